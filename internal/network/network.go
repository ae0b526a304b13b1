// Package network holds the per-chain parameters used to deploy the lottery contract.
package network

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// ErrUnknownChain is returned when no parameters are registered for a chain.
var ErrUnknownChain = errors.New("network: unknown chain")

// DevelopmentChains are the network names served by a local node with mocked oracles.
var DevelopmentChains = []string{"hardhat", "localhost"}

// IsDevelopment reports whether name is a local development network.
func IsDevelopment(name string) bool {
	for _, dev := range DevelopmentChains {
		if dev == name {
			return true
		}
	}
	return false
}

// aliases map network names onto the entry they share a chain with.
var aliases = map[string]string{
	"localhost": "hardhat",
}

// Spec is the raw, config-file form of a network entry.
type Spec struct {
	Name               string `mapstructure:"name" yaml:"name" validate:"required"`
	ChainID            uint64 `mapstructure:"chain_id" yaml:"chain_id" validate:"required"`
	EntranceFee        string `mapstructure:"entrance_fee" yaml:"entrance_fee" validate:"required,numeric"` // wei
	GasLane            string `mapstructure:"gas_lane" yaml:"gas_lane" validate:"required,len=66,hexadecimal"`
	SubscriptionID     uint64 `mapstructure:"subscription_id" yaml:"subscription_id"`
	CallbackGasLimit   uint32 `mapstructure:"callback_gas_limit" yaml:"callback_gas_limit" validate:"required"`
	Interval           uint64 `mapstructure:"interval" yaml:"interval" validate:"required"` // seconds
	VRFCoordinator     string `mapstructure:"vrf_coordinator" yaml:"vrf_coordinator,omitempty" validate:"omitempty,eth_addr"`
	BlockConfirmations uint64 `mapstructure:"block_confirmations" yaml:"block_confirmations,omitempty"`
}

// Params are the resolved deployment parameters for one network.
type Params struct {
	Name             string
	ChainID          uint64
	EntranceFee      *big.Int
	GasLane          common.Hash
	SubscriptionID   uint64
	CallbackGasLimit uint32
	Interval         uint64

	// VRFCoordinator is the zero address on development chains, where a mock is deployed instead.
	VRFCoordinator     common.Address
	BlockConfirmations uint64
}

// IsDevelopment reports whether the params describe a development network.
func (p *Params) IsDevelopment() bool {
	return IsDevelopment(p.Name)
}

// IntervalBig returns the upkeep interval as the uint256 the contract expects.
func (p *Params) IntervalBig() *big.Int {
	return new(big.Int).SetUint64(p.Interval)
}

const (
	sepoliaGasLane = "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"
	goerliGasLane  = "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"

	// 0.01 ETH
	defaultEntranceFee = "10000000000000000"
)

// Defaults returns the built-in network table.
func Defaults() []Spec {
	return []Spec{
		{
			Name:               "sepolia",
			ChainID:            11155111,
			EntranceFee:        defaultEntranceFee,
			GasLane:            sepoliaGasLane,
			CallbackGasLimit:   500000,
			Interval:           30,
			VRFCoordinator:     "0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625",
			BlockConfirmations: 6,
		},
		{
			Name:               "goerli",
			ChainID:            5,
			EntranceFee:        defaultEntranceFee,
			GasLane:            goerliGasLane,
			CallbackGasLimit:   500000,
			Interval:           30,
			VRFCoordinator:     "0x2Ca8E0C643bDe4C2E08ab1fA0da3401AdAD7734D",
			BlockConfirmations: 6,
		},
		{
			Name:             "hardhat",
			ChainID:          31337,
			EntranceFee:      defaultEntranceFee,
			GasLane:          sepoliaGasLane,
			CallbackGasLimit: 500000,
			Interval:         30,
		},
	}
}

// Registry resolves network parameters by chain id or name.
type Registry struct {
	specs []Spec
}

// NewRegistry builds a registry from the defaults plus the given overrides.
// An override replaces any default sharing its name or chain id.
func NewRegistry(overrides ...Spec) (*Registry, error) {
	validate := validator.New()
	r := &Registry{}
	for _, s := range Defaults() {
		r.put(s)
	}
	for _, s := range overrides {
		if err := validateSpec(validate, s); err != nil {
			return nil, fmt.Errorf("network %q: %w", s.Name, err)
		}
		r.put(s)
	}
	return r, nil
}

func validateSpec(validate *validator.Validate, s Spec) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if !IsDevelopment(s.Name) && s.VRFCoordinator == "" {
		return fmt.Errorf("vrf_coordinator is required on non-development networks")
	}
	return nil
}

func (r *Registry) put(s Spec) {
	kept := r.specs[:0]
	for _, existing := range r.specs {
		if existing.Name == s.Name || existing.ChainID == s.ChainID {
			continue
		}
		kept = append(kept, existing)
	}
	r.specs = append(kept, s)
}

// Lookup returns the parameters registered for chainID.
func (r *Registry) Lookup(chainID uint64) (*Params, error) {
	for _, s := range r.specs {
		if s.ChainID == chainID {
			return s.params(s.Name)
		}
	}
	return nil, fmt.Errorf("%w: chain id %d", ErrUnknownChain, chainID)
}

// ByName returns the parameters for a named network. Aliases such as
// "localhost" resolve to the entry they share a chain with but keep their own name.
func (r *Registry) ByName(name string) (*Params, error) {
	target := name
	if _, ok := r.find(name); !ok {
		if alias, ok := aliases[name]; ok {
			target = alias
		}
	}
	s, ok := r.find(target)
	if !ok {
		return nil, fmt.Errorf("%w: network %q", ErrUnknownChain, name)
	}
	return s.params(name)
}

// Names lists the registered network names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) find(name string) (Spec, bool) {
	for _, s := range r.specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

func (s Spec) params(name string) (*Params, error) {
	fee, ok := new(big.Int).SetString(s.EntranceFee, 10)
	if !ok {
		return nil, fmt.Errorf("network %q: invalid entrance fee %q", s.Name, s.EntranceFee)
	}

	confirmations := s.BlockConfirmations
	if confirmations == 0 {
		confirmations = 1
	}

	p := &Params{
		Name:               name,
		ChainID:            s.ChainID,
		EntranceFee:        fee,
		GasLane:            common.HexToHash(s.GasLane),
		SubscriptionID:     s.SubscriptionID,
		CallbackGasLimit:   s.CallbackGasLimit,
		Interval:           s.Interval,
		BlockConfirmations: confirmations,
	}
	if s.VRFCoordinator != "" {
		p.VRFCoordinator = common.HexToAddress(s.VRFCoordinator)
	}
	return p, nil
}
