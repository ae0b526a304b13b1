package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrEventNotFound is returned when a receipt does not carry the expected event.
var ErrEventNotFound = errors.New("contracts: event not found")

// LotteryState mirrors the contract's state enum.
type LotteryState uint8

const (
	LotteryOpen        LotteryState = 0
	LotteryCalculating LotteryState = 1
)

func (s LotteryState) String() string {
	switch s {
	case LotteryOpen:
		return "open"
	case LotteryCalculating:
		return "calculating"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// LotteryEnter is emitted for every entry.
type LotteryEnter struct {
	Player common.Address
	Raw    types.Log
}

// RequestedLotteryWinner is emitted by performUpkeep with the VRF request id.
type RequestedLotteryWinner struct {
	ReqId *big.Int
	Raw   types.Log
}

// WinnerPicked is emitted once randomness is fulfilled and the pot is paid out.
type WinnerPicked struct {
	Winner common.Address
	Raw    types.Log
}

// Lottery is a binding for a deployed Lottery contract.
type Lottery struct {
	address  common.Address
	backend  bind.ContractBackend
	contract *bind.BoundContract
}

// NewLottery binds the contract at address.
func NewLottery(address common.Address, backend bind.ContractBackend) *Lottery {
	return &Lottery{
		address:  address,
		backend:  backend,
		contract: bind.NewBoundContract(address, LotteryABI, backend, backend, backend),
	}
}

// Address returns the contract address.
func (l *Lottery) Address() common.Address { return l.address }

// EnterLottery enters the sender. The entrance fee is taken from opts.Value.
func (l *Lottery) EnterLottery(opts *bind.TransactOpts) (*types.Transaction, error) {
	return l.contract.Transact(opts, "enterLottery")
}

// PerformUpkeep closes the round and requests randomness.
func (l *Lottery) PerformUpkeep(opts *bind.TransactOpts, performData []byte) (*types.Transaction, error) {
	if performData == nil {
		performData = []byte{}
	}
	return l.contract.Transact(opts, "performUpkeep", performData)
}

// CheckUpkeep reports whether the interval has passed with an open round, players and balance.
func (l *Lottery) CheckUpkeep(opts *bind.CallOpts, checkData []byte) (bool, []byte, error) {
	if checkData == nil {
		checkData = []byte{}
	}
	var out []interface{}
	if err := l.contract.Call(opts, &out, "checkUpkeep", checkData); err != nil {
		return false, nil, fmt.Errorf("call checkUpkeep: %w", err)
	}
	if len(out) != 2 {
		return false, nil, fmt.Errorf("call checkUpkeep: unexpected result length %d", len(out))
	}
	needed, _ := out[0].(bool)
	data, _ := out[1].([]byte)
	return needed, data, nil
}

func (l *Lottery) LotteryState(opts *bind.CallOpts) (LotteryState, error) {
	v, err := call[uint8](l.contract, opts, "getLotteryState")
	return LotteryState(v), err
}

func (l *Lottery) EntranceFee(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.contract, opts, "getEntranceFee")
}

func (l *Lottery) Interval(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.contract, opts, "getInterval")
}

func (l *Lottery) Player(opts *bind.CallOpts, index *big.Int) (common.Address, error) {
	return call[common.Address](l.contract, opts, "getPlayer", index)
}

func (l *Lottery) NumOfPlayers(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.contract, opts, "getNumOfPlayers")
}

func (l *Lottery) RecentWinner(opts *bind.CallOpts) (common.Address, error) {
	return call[common.Address](l.contract, opts, "getRecentWinner")
}

func (l *Lottery) LastTimeStamp(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.contract, opts, "getLastTimeStamp")
}

func (l *Lottery) NumWords(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.contract, opts, "getNumWords")
}

func (l *Lottery) RequestConfirmations(opts *bind.CallOpts) (*big.Int, error) {
	return call[*big.Int](l.contract, opts, "getRequestConfirmations")
}

func (l *Lottery) ParseLotteryEnter(log types.Log) (*LotteryEnter, error) {
	ev := &LotteryEnter{Raw: log}
	if err := l.contract.UnpackLog(ev, "LotteryEnter", log); err != nil {
		return nil, err
	}
	return ev, nil
}

func (l *Lottery) ParseRequestedLotteryWinner(log types.Log) (*RequestedLotteryWinner, error) {
	ev := &RequestedLotteryWinner{Raw: log}
	if err := l.contract.UnpackLog(ev, "RequestedLotteryWinner", log); err != nil {
		return nil, err
	}
	return ev, nil
}

func (l *Lottery) ParseWinnerPicked(log types.Log) (*WinnerPicked, error) {
	ev := &WinnerPicked{Raw: log}
	if err := l.contract.UnpackLog(ev, "WinnerPicked", log); err != nil {
		return nil, err
	}
	return ev, nil
}

// FindLotteryEnter returns the LotteryEnter event carried by receipt.
func (l *Lottery) FindLotteryEnter(receipt *types.Receipt) (*LotteryEnter, error) {
	log, ok := findEvent(receipt, l.address, LotteryABI.Events["LotteryEnter"])
	if !ok {
		return nil, fmt.Errorf("%w: LotteryEnter in %s", ErrEventNotFound, receipt.TxHash.Hex())
	}
	return l.ParseLotteryEnter(*log)
}

// FindRequestedLotteryWinner returns the request emitted by a performUpkeep receipt.
// The coordinator's RandomWordsRequested log precedes it in the same receipt.
func (l *Lottery) FindRequestedLotteryWinner(receipt *types.Receipt) (*RequestedLotteryWinner, error) {
	log, ok := findEvent(receipt, l.address, LotteryABI.Events["RequestedLotteryWinner"])
	if !ok {
		return nil, fmt.Errorf("%w: RequestedLotteryWinner in %s", ErrEventNotFound, receipt.TxHash.Hex())
	}
	return l.ParseRequestedLotteryWinner(*log)
}

// FindWinnerPicked returns the payout event from a fulfillRandomWords receipt.
func (l *Lottery) FindWinnerPicked(receipt *types.Receipt) (*WinnerPicked, error) {
	log, ok := findEvent(receipt, l.address, LotteryABI.Events["WinnerPicked"])
	if !ok {
		return nil, fmt.Errorf("%w: WinnerPicked in %s", ErrEventNotFound, receipt.TxHash.Hex())
	}
	return l.ParseWinnerPicked(*log)
}

// FilterRequestedLotteryWinner returns the randomness requests emitted in [from, to].
// A nil to means the latest block.
func (l *Lottery) FilterRequestedLotteryWinner(ctx context.Context, from uint64, to *uint64) ([]*RequestedLotteryWinner, error) {
	logs, err := l.filter(ctx, "RequestedLotteryWinner", from, to)
	if err != nil {
		return nil, err
	}
	out := make([]*RequestedLotteryWinner, 0, len(logs))
	for _, log := range logs {
		ev, err := l.ParseRequestedLotteryWinner(log)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// FilterWinnerPicked returns the winners picked in [from, to].
func (l *Lottery) FilterWinnerPicked(ctx context.Context, from uint64, to *uint64) ([]*WinnerPicked, error) {
	logs, err := l.filter(ctx, "WinnerPicked", from, to)
	if err != nil {
		return nil, err
	}
	out := make([]*WinnerPicked, 0, len(logs))
	for _, log := range logs {
		ev, err := l.ParseWinnerPicked(log)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (l *Lottery) filter(ctx context.Context, event string, from uint64, to *uint64) ([]types.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: []common.Address{l.address},
		Topics:    [][]common.Hash{{LotteryABI.Events[event].ID}},
	}
	if to != nil {
		q.ToBlock = new(big.Int).SetUint64(*to)
	}
	logs, err := l.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", event, err)
	}
	return logs, nil
}

// WaitForWinnerPicked polls for the first WinnerPicked event at or after fromBlock.
// Polling works against nodes without subscription support.
func (l *Lottery) WaitForWinnerPicked(ctx context.Context, fromBlock uint64, pollInterval time.Duration) (*WinnerPicked, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		events, err := l.FilterWinnerPicked(ctx, fromBlock, nil)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			return events[0], nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
