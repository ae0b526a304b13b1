// Package chain provides node connections, signers and transaction helpers.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrChainIDMismatch is returned when a node serves a different chain than configured.
var ErrChainIDMismatch = errors.New("chain: chain id mismatch")

// Backend is the node surface the deploy scripts, bindings and keeper need.
// Both *ethclient.Client and the simulated backend's client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend

	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Client is an ethclient that keeps its raw RPC connection for dev-node calls.
type Client struct {
	*ethclient.Client
	rpc *rpc.Client
}

// Dial connects to an Ethereum JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return &Client{
		Client: ethclient.NewClient(rpcClient),
		rpc:    rpcClient,
	}, nil
}

// DevNode returns helpers for the Hardhat/Anvil evm_* RPC namespace.
func (c *Client) DevNode() *DevNode {
	return NewDevNode(c.rpc)
}

// VerifyChainID fails when the node's chain id differs from want.
func VerifyChainID(ctx context.Context, b Backend, want uint64) error {
	got, err := b.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain ID: %w", err)
	}
	if !got.IsUint64() || got.Uint64() != want {
		return fmt.Errorf("%w: expected %d, got %s", ErrChainIDMismatch, want, got)
	}
	return nil
}
