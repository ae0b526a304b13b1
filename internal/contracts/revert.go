package contracts

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	errorSelector = []byte{0x08, 0xc3, 0x79, 0xa0} // Error(string)
	panicSelector = []byte{0x4e, 0x48, 0x7b, 0x71} // Panic(uint256)
)

// RevertError is a decoded contract revert.
//
// Name is the custom error name, "Error" for require messages, "Panic" for
// assertion failures and empty for a bare revert.
type RevertError struct {
	Name string
	Args []interface{}
	Data []byte

	message string
}

// Reason renders the revert the way test assertions compare it:
// the require message, or the custom error with its arguments,
// e.g. "Lottery__UpkeepNotNeeded(0, 0, 0)".
func (e *RevertError) Reason() string {
	switch e.Name {
	case "":
		if len(e.Data) > 0 {
			return "unknown error 0x" + hex.EncodeToString(e.Data)
		}
		return ""
	case "Error", "Panic":
		return e.message
	}
	if len(e.Args) == 0 {
		return e.Name
	}
	args := make([]string, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, formatArg(a))
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")"
}

func (e *RevertError) Error() string {
	if r := e.Reason(); r != "" {
		return "execution reverted: " + r
	}
	return "execution reverted"
}

// Matches reports whether the revert is the named custom error or carries the require message.
func (e *RevertError) Matches(nameOrReason string) bool {
	return e.Name == nameOrReason || e.Reason() == nameOrReason
}

func formatArg(v interface{}) string {
	switch a := v.(type) {
	case *big.Int:
		return a.String()
	case common.Address:
		return a.Hex()
	case common.Hash:
		return a.Hex()
	case []byte:
		return hexutil.Encode(a)
	case [32]byte:
		return hexutil.Encode(a[:])
	default:
		return fmt.Sprint(a)
	}
}

// DecodeRevert extracts revert data from an RPC error and decodes it against
// the given ABIs. It returns false if err carries no revert data.
func DecodeRevert(err error, abis ...abi.ABI) (*RevertError, bool) {
	data, ok := revertData(err)
	if !ok {
		return nil, false
	}
	return decodeRevertData(data, abis...), true
}

// IsRevert reports whether err is a contract revert.
func IsRevert(err error) bool {
	_, ok := revertData(err)
	return ok
}

// RevertReason decodes err against the Lottery and coordinator ABIs and
// returns the assertion string, or "" if err is not a revert.
func RevertReason(err error) string {
	rev, ok := DecodeRevert(err, LotteryABI, CoordinatorABI)
	if !ok {
		return ""
	}
	return rev.Reason()
}

func revertData(err error) ([]byte, bool) {
	if err == nil {
		return nil, false
	}
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev.Data, true
	}
	var de rpc.DataError
	if !errors.As(err, &de) {
		return nil, false
	}
	errData := de.ErrorData()
	// Hardhat Network nests the revert data: {"message": ..., "data": "0x..."}.
	if m, ok := errData.(map[string]interface{}); ok {
		errData = m["data"]
	}
	switch d := errData.(type) {
	case string:
		b, decErr := hexutil.Decode(d)
		if decErr != nil {
			if d == "0x" || d == "" {
				return []byte{}, true
			}
			return nil, false
		}
		return b, true
	case []byte:
		return d, true
	case hexutil.Bytes:
		return d, true
	case nil:
		// Geth reports a bare revert without data.
		return []byte{}, strings.Contains(de.Error(), "execution reverted")
	default:
		return nil, false
	}
}

func decodeRevertData(data []byte, abis ...abi.ABI) *RevertError {
	rev := &RevertError{Data: data}
	if len(data) < 4 {
		return rev
	}
	selector := data[:4]

	if bytes.Equal(selector, errorSelector) || bytes.Equal(selector, panicSelector) {
		msg, err := abi.UnpackRevert(data)
		if err == nil {
			rev.Name = "Error"
			if bytes.Equal(selector, panicSelector) {
				rev.Name = "Panic"
			}
			rev.message = msg
			rev.Args = []interface{}{msg}
			return rev
		}
	}

	for _, a := range abis {
		for _, e := range a.Errors {
			if !bytes.Equal(e.ID[:4], selector) {
				continue
			}
			args, err := e.Inputs.Unpack(data[4:])
			if err != nil {
				continue
			}
			rev.Name = e.Name
			rev.Args = args
			return rev
		}
	}
	return rev
}
