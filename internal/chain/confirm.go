package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("chain: transaction reverted")

// ConfirmationPollInterval is how often the head is polled while waiting for confirmations.
var ConfirmationPollInterval = time.Second

// ConfirmBackend is what WaitConfirmed needs from a node.
type ConfirmBackend interface {
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

// WaitConfirmed waits until tx is mined and buried under the given number of
// confirmations, counting the including block as the first. Zero is treated as one.
func WaitConfirmed(ctx context.Context, b ConfirmBackend, tx *types.Transaction, confirmations uint64) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, b, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for receipt of %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex())
	}
	if confirmations <= 1 {
		return receipt, nil
	}

	target := receipt.BlockNumber.Uint64() + confirmations - 1
	ticker := time.NewTicker(ConfirmationPollInterval)
	defer ticker.Stop()

	for {
		head, err := b.BlockNumber(ctx)
		if err != nil {
			return receipt, fmt.Errorf("get block number: %w", err)
		}
		if head >= target {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return receipt, ctx.Err()
		case <-ticker.C:
		}
	}
}
