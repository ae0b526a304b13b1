package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrUnknownAccount is returned for an account index or name the signer set does not hold.
var ErrUnknownAccount = errors.New("chain: unknown account")

// Signer signs transactions with a local private key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewLocalSigner creates a Signer from a hex-encoded private key, with or without 0x.
func NewLocalSigner(hexKey string, chainID *big.Int) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return newSigner(privateKey, chainID), nil
}

func newSigner(privateKey *ecdsa.PrivateKey, chainID *big.Int) *Signer {
	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    new(big.Int).Set(chainID),
	}
}

// Address returns the signer's Ethereum address.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID returns the chain ID used for signing.
func (s *Signer) ChainID() *big.Int {
	return s.chainID
}

// TransactOpts returns fresh transaction options bound to ctx.
func (s *Signer) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// CallOpts returns call options issued from the signer's address.
func (s *Signer) CallOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{From: s.address, Context: ctx}
}

// SignTx signs a transaction with the latest signer for the chain.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// DevPrivateKeys are the first ten accounts of the default Hardhat/Anvil mnemonic
// "test test test test test test test test test test test junk".
//
// These keys are publicly known. NewDevAccounts refuses to load them for production chains.
var DevPrivateKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", // 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d", // 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a", // 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6", // 0x90F79bf6EB2c4f870365E785982E1f101E93b906
	"47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a", // 0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65
	"8b3a350cf5c34c9194ca85829a2df0ec3153be0318b5e2d3348e872092edffba", // 0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc
	"92db14e403b83dfe3df233f83dfa3a0d7096f21ca9b0d6d6b8d88b2b4ec1564e", // 0x976EA74026E726554dB657fA54763abd0C3a0aa9
	"4bbbf85ce3377467afe5d46f804f221813b2bb87f24d81f60f1fcdbf7cbf4356", // 0x14dC79964da2C08b23698B3D3cc7Ca32193d9955
	"dbda1821b80551c9d65939329250298aa3472ba22feea921c0cf5d620ea67b97", // 0x23618e81E3f5cdF7f54C3d65f7FBc0aBf5B21E8f
	"2a871d0798f97d79848a013d4936a73bf4cc922c825d33c1cf7073dff6d409c6", // 0xa0Ee7A142d267C1f36714E4a8F75612F20a79720
}

// NamedAccounts maps account roles onto dev account indexes.
var NamedAccounts = map[string]int{
	"deployer": 0,
	"player":   1,
}

var productionChainIDs = map[uint64]string{
	1:     "Ethereum Mainnet",
	10:    "Optimism",
	137:   "Polygon",
	8453:  "Base",
	42161: "Arbitrum One",
}

// DevAccounts holds the well-known development signers in index order.
type DevAccounts struct {
	signers []*Signer
}

// NewDevAccounts loads the dev keys for chainID.
// Returns error if chainID corresponds to a production network.
func NewDevAccounts(chainID *big.Int) (*DevAccounts, error) {
	if chainID.IsUint64() {
		if name, ok := productionChainIDs[chainID.Uint64()]; ok {
			return nil, fmt.Errorf("dev accounts cannot be used on %s (chain_id=%s): keys are publicly known", name, chainID)
		}
	}

	signers := make([]*Signer, 0, len(DevPrivateKeys))
	for _, hexKey := range DevPrivateKeys {
		s, err := NewLocalSigner(hexKey, chainID)
		if err != nil {
			return nil, err
		}
		signers = append(signers, s)
	}
	return &DevAccounts{signers: signers}, nil
}

// Account returns the signer at index i.
func (d *DevAccounts) Account(i int) (*Signer, error) {
	if i < 0 || i >= len(d.signers) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownAccount, i)
	}
	return d.signers[i], nil
}

// Named returns the signer for a role in NamedAccounts.
func (d *DevAccounts) Named(name string) (*Signer, error) {
	i, ok := NamedAccounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAccount, name)
	}
	return d.Account(i)
}

// Addresses returns the dev addresses in index order.
func (d *DevAccounts) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(d.signers))
	for _, s := range d.signers {
		addrs = append(addrs, s.address)
	}
	return addrs
}
