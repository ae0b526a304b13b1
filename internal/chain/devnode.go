package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// DevNode wraps the evm_* methods exposed by Hardhat Network and Anvil.
type DevNode struct {
	rpc *rpc.Client
}

// NewDevNode creates helpers on top of an RPC connection.
func NewDevNode(c *rpc.Client) *DevNode {
	return &DevNode{rpc: c}
}

// IncreaseTime moves the node clock forward for the next mined block.
func (n *DevNode) IncreaseTime(ctx context.Context, d time.Duration) error {
	var result json.RawMessage
	if err := n.rpc.CallContext(ctx, &result, "evm_increaseTime", int64(d/time.Second)); err != nil {
		return fmt.Errorf("evm_increaseTime: %w", err)
	}
	return nil
}

// Mine mines a single block.
func (n *DevNode) Mine(ctx context.Context) error {
	var result json.RawMessage
	if err := n.rpc.CallContext(ctx, &result, "evm_mine"); err != nil {
		return fmt.Errorf("evm_mine: %w", err)
	}
	return nil
}

// Advance increases time by d and mines a block so view calls observe it.
func (n *DevNode) Advance(ctx context.Context, d time.Duration) error {
	if err := n.IncreaseTime(ctx, d); err != nil {
		return err
	}
	return n.Mine(ctx)
}

// Snapshot records the node state and returns its id.
func (n *DevNode) Snapshot(ctx context.Context) (string, error) {
	var id string
	if err := n.rpc.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return "", fmt.Errorf("evm_snapshot: %w", err)
	}
	return id, nil
}

// Revert restores a snapshot. Snapshots are single use.
func (n *DevNode) Revert(ctx context.Context, id string) error {
	var ok bool
	if err := n.rpc.CallContext(ctx, &ok, "evm_revert", id); err != nil {
		return fmt.Errorf("evm_revert: %w", err)
	}
	if !ok {
		return fmt.Errorf("evm_revert: snapshot %s not found", id)
	}
	return nil
}
