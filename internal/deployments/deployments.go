// Package deployments records where contracts were deployed on each network.
package deployments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no deployment is recorded under a name.
var ErrNotFound = errors.New("deployment not found")

// Record is one deployed contract.
type Record struct {
	ID              uuid.UUID       `json:"id" yaml:"id"`
	Network         string          `json:"network" yaml:"network"`
	ChainID         uint64          `json:"chainId" yaml:"chain_id"`
	Name            string          `json:"contractName" yaml:"name"`
	Address         common.Address  `json:"address" yaml:"address"`
	ABI             json.RawMessage `json:"abi" yaml:"-"`
	Args            []string        `json:"args" yaml:"args"`
	ConstructorData hexutil.Bytes   `json:"constructorData,omitempty" yaml:"-"`
	TransactionHash common.Hash     `json:"transactionHash" yaml:"transaction_hash"`
	BlockNumber     uint64          `json:"blockNumber" yaml:"block_number"`
	Deployer        common.Address  `json:"deployer" yaml:"deployer"`
	CreatedAt       time.Time       `json:"createdAt" yaml:"created_at"`
}

// MarshalJSON writes addresses in EIP-55 checksum form, as hardhat-deploy files carry them.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		Address  string `json:"address"`
		Deployer string `json:"deployer"`
	}{
		plain:    plain(r),
		Address:  r.Address.Hex(),
		Deployer: r.Deployer.Hex(),
	})
}

// Store persists deployment records per network.
type Store interface {
	// Save inserts or replaces the record for (Network, Name).
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, network, name string) (*Record, error)
	// List returns the network's records ordered by name.
	List(ctx context.Context, network string) ([]*Record, error)
	// Delete drops every record of the network.
	Delete(ctx context.Context, network string) error
}

func prepare(rec *Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}
