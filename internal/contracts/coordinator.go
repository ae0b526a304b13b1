package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SubscriptionCreated is emitted by createSubscription.
type SubscriptionCreated struct {
	SubId uint64
	Owner common.Address
	Raw   types.Log
}

// RandomWordsFulfilled is emitted after the coordinator calls back the consumer.
type RandomWordsFulfilled struct {
	RequestId  *big.Int
	OutputSeed *big.Int
	Payment    *big.Int
	Success    bool
	Raw        types.Log
}

// Subscription is the result of getSubscription.
type Subscription struct {
	Balance   *big.Int
	ReqCount  uint64
	Owner     common.Address
	Consumers []common.Address
}

// VRFCoordinatorV2Mock is a binding for the local VRF coordinator mock.
type VRFCoordinatorV2Mock struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewVRFCoordinatorV2Mock binds the mock at address.
func NewVRFCoordinatorV2Mock(address common.Address, backend bind.ContractBackend) *VRFCoordinatorV2Mock {
	return &VRFCoordinatorV2Mock{
		address:  address,
		contract: bind.NewBoundContract(address, CoordinatorABI, backend, backend, backend),
	}
}

func (c *VRFCoordinatorV2Mock) Address() common.Address { return c.address }

func (c *VRFCoordinatorV2Mock) CreateSubscription(opts *bind.TransactOpts) (*types.Transaction, error) {
	return c.contract.Transact(opts, "createSubscription")
}

func (c *VRFCoordinatorV2Mock) FundSubscription(opts *bind.TransactOpts, subID uint64, amount *big.Int) (*types.Transaction, error) {
	return c.contract.Transact(opts, "fundSubscription", subID, amount)
}

func (c *VRFCoordinatorV2Mock) AddConsumer(opts *bind.TransactOpts, subID uint64, consumer common.Address) (*types.Transaction, error) {
	return c.contract.Transact(opts, "addConsumer", subID, consumer)
}

// FulfillRandomWords plays the VRF node: it answers requestID on consumer.
// Unknown requests revert with "nonexistent request".
func (c *VRFCoordinatorV2Mock) FulfillRandomWords(opts *bind.TransactOpts, requestID *big.Int, consumer common.Address) (*types.Transaction, error) {
	return c.contract.Transact(opts, "fulfillRandomWords", requestID, consumer)
}

func (c *VRFCoordinatorV2Mock) ConsumerIsAdded(opts *bind.CallOpts, subID uint64, consumer common.Address) (bool, error) {
	return call[bool](c.contract, opts, "consumerIsAdded", subID, consumer)
}

func (c *VRFCoordinatorV2Mock) GetSubscription(opts *bind.CallOpts, subID uint64) (*Subscription, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, "getSubscription", subID); err != nil {
		return nil, fmt.Errorf("call getSubscription: %w", err)
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("call getSubscription: unexpected result length %d", len(out))
	}
	sub := &Subscription{}
	sub.Balance, _ = out[0].(*big.Int)
	sub.ReqCount, _ = out[1].(uint64)
	sub.Owner, _ = out[2].(common.Address)
	sub.Consumers, _ = out[3].([]common.Address)
	return sub, nil
}

func (c *VRFCoordinatorV2Mock) ParseSubscriptionCreated(log types.Log) (*SubscriptionCreated, error) {
	ev := &SubscriptionCreated{Raw: log}
	if err := c.contract.UnpackLog(ev, "SubscriptionCreated", log); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *VRFCoordinatorV2Mock) ParseRandomWordsFulfilled(log types.Log) (*RandomWordsFulfilled, error) {
	ev := &RandomWordsFulfilled{Raw: log}
	if err := c.contract.UnpackLog(ev, "RandomWordsFulfilled", log); err != nil {
		return nil, err
	}
	return ev, nil
}

// FindSubscriptionCreated reads the subscription id from a createSubscription receipt.
func (c *VRFCoordinatorV2Mock) FindSubscriptionCreated(receipt *types.Receipt) (*SubscriptionCreated, error) {
	log, ok := findEvent(receipt, c.address, CoordinatorABI.Events["SubscriptionCreated"])
	if !ok {
		return nil, fmt.Errorf("%w: SubscriptionCreated in %s", ErrEventNotFound, receipt.TxHash.Hex())
	}
	return c.ParseSubscriptionCreated(*log)
}

// FindRandomWordsFulfilled reads the fulfillment result from a fulfillRandomWords receipt.
func (c *VRFCoordinatorV2Mock) FindRandomWordsFulfilled(receipt *types.Receipt) (*RandomWordsFulfilled, error) {
	log, ok := findEvent(receipt, c.address, CoordinatorABI.Events["RandomWordsFulfilled"])
	if !ok {
		return nil, fmt.Errorf("%w: RandomWordsFulfilled in %s", ErrEventNotFound, receipt.TxHash.Hex())
	}
	return c.ParseRandomWordsFulfilled(*log)
}
