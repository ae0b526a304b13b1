// Package contracts provides Go bindings for the Lottery contract and the
// VRF coordinator mock it is tested against.
package contracts

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract names as they appear in Hardhat artifacts and deployment records.
const (
	LotteryName     = "Lottery"
	CoordinatorName = "VRFCoordinatorV2Mock"
)

var (
	//go:embed abi/Lottery.json
	LotteryABIJSON []byte

	//go:embed abi/VRFCoordinatorV2Mock.json
	CoordinatorABIJSON []byte
)

var (
	LotteryABI     = mustParseABI(LotteryABIJSON)
	CoordinatorABI = mustParseABI(CoordinatorABIJSON)
)

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("parse embedded ABI: %v", err))
	}
	return parsed
}

// call invokes a single-return view method and converts the result to T.
func call[T any](c *bind.BoundContract, opts *bind.CallOpts, method string, args ...interface{}) (T, error) {
	var (
		zero T
		out  []interface{}
	)
	if err := c.Call(opts, &out, method, args...); err != nil {
		return zero, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("call %s: empty result", method)
	}
	return *abi.ConvertType(out[0], new(T)).(*T), nil
}

// findEvent returns the first log in receipt emitted by address with the event's topic.
func findEvent(receipt *types.Receipt, address common.Address, event abi.Event) (*types.Log, bool) {
	for _, l := range receipt.Logs {
		if l.Address == address && len(l.Topics) > 0 && l.Topics[0] == event.ID {
			return l, true
		}
	}
	return nil, false
}
