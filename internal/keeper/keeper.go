// Package keeper runs upkeep for the lottery against nodes without an
// automation network, and answers randomness requests through the mock coordinator.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/oklog/ulid/v2"

	"github.com/bohdan-ly/lottery-smart-contract/internal/contracts"
)

// Lottery is the part of the lottery binding the keeper drives.
type Lottery interface {
	Address() common.Address
	CheckUpkeep(opts *bind.CallOpts, checkData []byte) (bool, []byte, error)
	PerformUpkeep(opts *bind.TransactOpts, performData []byte) (*types.Transaction, error)
	FilterRequestedLotteryWinner(ctx context.Context, from uint64, to *uint64) ([]*contracts.RequestedLotteryWinner, error)
}

// Coordinator answers randomness requests.
type Coordinator interface {
	FulfillRandomWords(opts *bind.TransactOpts, requestID *big.Int, consumer common.Address) (*types.Transaction, error)
}

// Signer provides options for calls and transactions.
type Signer interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
	CallOpts(ctx context.Context) *bind.CallOpts
}

// HeadReader reports the latest block number.
type HeadReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// WaitFunc waits for a transaction and returns its successful receipt.
type WaitFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// Config configures a Keeper.
type Config struct {
	Lottery Lottery
	// Coordinator is nil on live networks, where the VRF service fulfills requests.
	Coordinator  Coordinator
	Signer       Signer
	Heads        HeadReader
	Wait         WaitFunc
	PollInterval time.Duration
	// FromBlock is where the request scan starts.
	FromBlock uint64
	Metrics   *Metrics
	Logger    *slog.Logger
}

// Keeper polls checkUpkeep and performs upkeep when it is due.
type Keeper struct {
	cfg       Config
	logger    *slog.Logger
	nextBlock uint64
	fulfilled map[string]struct{}
}

// New creates a keeper.
func New(cfg Config) (*Keeper, error) {
	if cfg.Lottery == nil || cfg.Signer == nil || cfg.Wait == nil {
		return nil, errors.New("keeper: lottery, signer and wait func are required")
	}
	if cfg.Coordinator != nil && cfg.Heads == nil {
		return nil, errors.New("keeper: head reader is required to fulfill requests")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Keeper{
		cfg:       cfg,
		logger:    logger,
		nextBlock: cfg.FromBlock,
		fulfilled: make(map[string]struct{}),
	}, nil
}

// Run ticks until ctx is cancelled. Tick errors are logged and counted.
func (k *Keeper) Run(ctx context.Context) error {
	k.logger.Info("keeper started",
		slog.String("lottery", k.cfg.Lottery.Address().Hex()),
		slog.Duration("poll_interval", k.cfg.PollInterval),
		slog.Bool("fulfill", k.cfg.Coordinator != nil),
	)

	ticker := time.NewTicker(k.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := k.Tick(ctx); err != nil && ctx.Err() == nil {
			k.logger.Error("keeper tick failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			k.logger.Info("keeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one round: upkeep if due, then fulfillment of pending requests.
func (k *Keeper) Tick(ctx context.Context) error {
	round := ulid.Make().String()
	log := k.logger.With(slog.String("round", round))

	performed, err := k.upkeep(ctx, log)
	if err != nil {
		k.countError("upkeep")
		return err
	}
	if performed {
		log.Info("upkeep performed")
	}

	if k.cfg.Coordinator == nil {
		return nil
	}
	if err := k.fulfill(ctx, log); err != nil {
		k.countError("fulfill")
		return err
	}
	return nil
}

func (k *Keeper) upkeep(ctx context.Context, log *slog.Logger) (bool, error) {
	if m := k.cfg.Metrics; m != nil {
		m.Checks.Inc()
	}
	needed, performData, err := k.cfg.Lottery.CheckUpkeep(k.cfg.Signer.CallOpts(ctx), nil)
	if err != nil {
		return false, fmt.Errorf("check upkeep: %w", err)
	}
	if !needed {
		log.Debug("upkeep not needed")
		return false, nil
	}

	opts, err := k.cfg.Signer.TransactOpts(ctx)
	if err != nil {
		return false, err
	}
	tx, err := k.cfg.Lottery.PerformUpkeep(opts, performData)
	if err != nil {
		// Another keeper may have closed the round between check and perform.
		if reason := contracts.RevertReason(err); reason != "" {
			log.Warn("perform upkeep reverted", slog.String("reason", reason))
			return false, nil
		}
		return false, fmt.Errorf("perform upkeep: %w", err)
	}
	if _, err := k.cfg.Wait(ctx, tx); err != nil {
		return false, fmt.Errorf("perform upkeep: %w", err)
	}

	if m := k.cfg.Metrics; m != nil {
		m.Upkeeps.Inc()
		m.LastUpkeep.SetToCurrentTime()
	}
	log.Debug("perform upkeep mined", slog.String("tx", tx.Hash().Hex()))
	return true, nil
}

func (k *Keeper) fulfill(ctx context.Context, log *slog.Logger) error {
	head, err := k.cfg.Heads.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get block number: %w", err)
	}
	if head < k.nextBlock {
		return nil
	}

	requests, err := k.cfg.Lottery.FilterRequestedLotteryWinner(ctx, k.nextBlock, &head)
	if err != nil {
		return err
	}

	for _, req := range requests {
		id := req.ReqId.String()
		if _, done := k.fulfilled[id]; done {
			continue
		}

		opts, err := k.cfg.Signer.TransactOpts(ctx)
		if err != nil {
			return err
		}
		tx, err := k.cfg.Coordinator.FulfillRandomWords(opts, req.ReqId, k.cfg.Lottery.Address())
		if err != nil {
			if reason := contracts.RevertReason(err); reason == "nonexistent request" {
				log.Debug("request already fulfilled", slog.String("request_id", id))
				k.fulfilled[id] = struct{}{}
				continue
			}
			return fmt.Errorf("fulfill request %s: %w", id, err)
		}
		if _, err := k.cfg.Wait(ctx, tx); err != nil {
			return fmt.Errorf("fulfill request %s: %w", id, err)
		}

		k.fulfilled[id] = struct{}{}
		if m := k.cfg.Metrics; m != nil {
			m.Fulfillments.Inc()
		}
		log.Info("randomness fulfilled", slog.String("request_id", id))
	}

	k.nextBlock = head + 1
	return nil
}

func (k *Keeper) countError(stage string) {
	if m := k.cfg.Metrics; m != nil {
		m.Errors.WithLabelValues(stage).Inc()
	}
}
