package keeper

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bohdan-ly/lottery-smart-contract/internal/chain"
	"github.com/bohdan-ly/lottery-smart-contract/internal/contracts"
)

var lotteryAddr = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")

type mockLottery struct {
	mock.Mock
}

func (m *mockLottery) Address() common.Address { return lotteryAddr }

func (m *mockLottery) CheckUpkeep(opts *bind.CallOpts, checkData []byte) (bool, []byte, error) {
	args := m.Called(opts, checkData)
	return args.Bool(0), args.Get(1).([]byte), args.Error(2)
}

func (m *mockLottery) PerformUpkeep(opts *bind.TransactOpts, performData []byte) (*types.Transaction, error) {
	args := m.Called(opts, performData)
	tx, _ := args.Get(0).(*types.Transaction)
	return tx, args.Error(1)
}

func (m *mockLottery) FilterRequestedLotteryWinner(ctx context.Context, from uint64, to *uint64) ([]*contracts.RequestedLotteryWinner, error) {
	args := m.Called(ctx, from, *to)
	reqs, _ := args.Get(0).([]*contracts.RequestedLotteryWinner)
	return reqs, args.Error(1)
}

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) FulfillRandomWords(opts *bind.TransactOpts, requestID *big.Int, consumer common.Address) (*types.Transaction, error) {
	args := m.Called(opts, requestID.Int64(), consumer)
	tx, _ := args.Get(0).(*types.Transaction)
	return tx, args.Error(1)
}

type fixedHead uint64

func (h fixedHead) BlockNumber(context.Context) (uint64, error) { return uint64(h), nil }

// revertErr mimics a node error carrying revert data.
type revertErr struct{ data string }

func (e *revertErr) Error() string          { return "execution reverted" }
func (e *revertErr) ErrorData() interface{} { return e.data }

func nonexistentRequest(t *testing.T) error {
	t.Helper()
	// Error(string) selector followed by the ABI-encoded message.
	data := "0x08c379a0" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000013" +
		"6e6f6e6578697374656e74207265717565737400000000000000000000000000"
	_, err := hexutil.Decode(data)
	require.NoError(t, err)
	return &revertErr{data: data}
}

// upkeepNotNeeded encodes the revert performUpkeep raises once the round has
// already been closed by another caller.
func upkeepNotNeeded(t *testing.T, balance, players, state int64) error {
	t.Helper()
	abiErr, ok := contracts.LotteryABI.Errors["Lottery__UpkeepNotNeeded"]
	require.True(t, ok)
	args, err := abiErr.Inputs.Pack(big.NewInt(balance), big.NewInt(players), big.NewInt(state))
	require.NoError(t, err)
	return &revertErr{data: hexutil.Encode(append(abiErr.ID.Bytes()[:4], args...))}
}

func testSigner(t *testing.T) *chain.Signer {
	t.Helper()
	s, err := chain.NewLocalSigner(chain.DevPrivateKeys[0], big.NewInt(31337))
	require.NoError(t, err)
	return s
}

func okWait(context.Context, *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func newKeeper(t *testing.T, l Lottery, c Coordinator, head uint64) (*Keeper, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	cfg := Config{
		Lottery: l,
		Signer:  testSigner(t),
		Heads:   fixedHead(head),
		Wait:    okWait,
		Metrics: metrics,
	}
	if c != nil {
		cfg.Coordinator = c
	}
	k, err := New(cfg)
	require.NoError(t, err)
	return k, metrics
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Lottery: &mockLottery{}, Signer: testSigner(t), Wait: okWait, Coordinator: &mockCoordinator{}})
	assert.Error(t, err, "fulfilling needs a head reader")
}

func TestTickUpkeepNotNeeded(t *testing.T) {
	l := &mockLottery{}
	l.On("CheckUpkeep", mock.Anything, []byte(nil)).Return(false, []byte{}, nil).Once()

	k, metrics := newKeeper(t, l, nil, 0)
	require.NoError(t, k.Tick(context.Background()))

	l.AssertExpectations(t)
	l.AssertNotCalled(t, "PerformUpkeep", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Checks))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Upkeeps))
}

func TestTickPerformsUpkeep(t *testing.T) {
	l := &mockLottery{}
	l.On("CheckUpkeep", mock.Anything, []byte(nil)).Return(true, []byte{0x01}, nil).Once()
	l.On("PerformUpkeep", mock.Anything, []byte{0x01}).Return(types.NewTx(&types.LegacyTx{Nonce: 1}), nil).Once()

	k, metrics := newKeeper(t, l, nil, 0)
	require.NoError(t, k.Tick(context.Background()))

	l.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Upkeeps))
	assert.Greater(t, testutil.ToFloat64(metrics.LastUpkeep), 0.0)
}

func TestTickUpkeepRevertIsSkipped(t *testing.T) {
	l := &mockLottery{}
	l.On("CheckUpkeep", mock.Anything, []byte(nil)).Return(true, []byte{}, nil).Once()
	revert := upkeepNotNeeded(t, 10000000000000000, 1, 1)
	l.On("PerformUpkeep", mock.Anything, []byte{}).Return(nil, revert).Once()
	require.Equal(t, "Lottery__UpkeepNotNeeded(10000000000000000, 1, 1)", contracts.RevertReason(revert))

	k, metrics := newKeeper(t, l, nil, 0)
	require.NoError(t, k.Tick(context.Background()))
	l.AssertExpectations(t)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Upkeeps))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Errors.WithLabelValues("upkeep")))
}

func TestTickCheckError(t *testing.T) {
	l := &mockLottery{}
	l.On("CheckUpkeep", mock.Anything, []byte(nil)).Return(false, []byte{}, errors.New("connection refused")).Once()

	k, metrics := newKeeper(t, l, nil, 0)
	assert.Error(t, k.Tick(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Errors.WithLabelValues("upkeep")))
}

func TestTickFulfillsRequestsOnce(t *testing.T) {
	l := &mockLottery{}
	l.On("CheckUpkeep", mock.Anything, []byte(nil)).Return(false, []byte{}, nil)
	l.On("FilterRequestedLotteryWinner", mock.Anything, uint64(0), uint64(10)).Return([]*contracts.RequestedLotteryWinner{
		{ReqId: big.NewInt(1)},
		{ReqId: big.NewInt(2)},
	}, nil).Once()

	c := &mockCoordinator{}
	c.On("FulfillRandomWords", mock.Anything, int64(1), lotteryAddr).Return(types.NewTx(&types.LegacyTx{Nonce: 2}), nil).Once()
	c.On("FulfillRandomWords", mock.Anything, int64(2), lotteryAddr).Return(nil, nonexistentRequest(t)).Once()

	k, metrics := newKeeper(t, l, c, 10)
	require.NoError(t, k.Tick(context.Background()))

	c.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Fulfillments))

	// The head has not moved, so the next tick scans nothing.
	require.NoError(t, k.Tick(context.Background()))
	l.AssertNumberOfCalls(t, "FilterRequestedLotteryWinner", 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	l := &mockLottery{}
	l.On("CheckUpkeep", mock.Anything, []byte(nil)).Return(false, []byte{}, nil)

	k, err := New(Config{
		Lottery:      l,
		Signer:       testSigner(t),
		Wait:         okWait,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, k.Run(ctx))
	assert.GreaterOrEqual(t, len(l.Calls), 2)
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.Checks.Inc()

	srv := httptest.NewServer(NewRouter(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := testutil.GatherAndCount(reg, "lottery_keeper_checks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
