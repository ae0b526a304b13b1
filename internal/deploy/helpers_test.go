package deploy

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bohdan-ly/lottery-smart-contract/internal/artifacts"
	"github.com/bohdan-ly/lottery-smart-contract/internal/chain"
	"github.com/bohdan-ly/lottery-smart-contract/internal/contracts"
	"github.com/bohdan-ly/lottery-smart-contract/internal/deployments"
	"github.com/bohdan-ly/lottery-smart-contract/internal/network"
	"github.com/bohdan-ly/lottery-smart-contract/internal/verify"
)

// stopInitCode deploys a contract whose runtime is a single STOP.
const stopInitCode = "0x6001600c60003960016000f300"

// mockCoordinatorInitCode deploys a runtime that answers every call with
// SubscriptionCreated(subId = 1, owner = caller):
//
//	CALLER PUSH1 0 MSTORE PUSH1 1 PUSH32 topic PUSH1 32 PUSH1 0 LOG2 STOP
func mockCoordinatorInitCode() string {
	topic := contracts.CoordinatorABI.Events["SubscriptionCreated"].ID
	runtime := append([]byte{0x33, 0x60, 0x00, 0x52, 0x60, 0x01, 0x7f}, topic.Bytes()...)
	runtime = append(runtime, 0x60, 0x20, 0x60, 0x00, 0xa2, 0x00)

	n := byte(len(runtime))
	prelude := []byte{0x60, n, 0x60, 0x0c, 0x60, 0x00, 0x39, 0x60, n, 0x60, 0x00, 0xf3}
	return hexutil.Encode(append(prelude, runtime...))
}

// writeArtifacts lays out a Hardhat artifacts tree for both contracts.
func writeArtifacts(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(path string, v any) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}

	write(filepath.Join(root, "contracts", "Lottery.sol", "Lottery.json"), map[string]any{
		"_format":      "hh-sol-artifact-1",
		"contractName": "Lottery",
		"sourceName":   "contracts/Lottery.sol",
		"abi":          json.RawMessage(contracts.LotteryABIJSON),
		"bytecode":     stopInitCode,
	})
	write(filepath.Join(root, "contracts", "Lottery.sol", "Lottery.dbg.json"), map[string]any{
		"_format":   "hh-sol-dbg-1",
		"buildInfo": "../../build-info/b1.json",
	})
	write(filepath.Join(root, "build-info", "b1.json"), map[string]any{
		"id":              "b1",
		"solcVersion":     "0.8.7",
		"solcLongVersion": "0.8.7+commit.e28d00a7",
		"input":           map[string]any{"language": "Solidity"},
	})
	write(filepath.Join(root, "@chainlink", "contracts", "src", "v0.8", "mocks", "VRFCoordinatorV2Mock.sol", "VRFCoordinatorV2Mock.json"), map[string]any{
		"_format":      "hh-sol-artifact-1",
		"contractName": "VRFCoordinatorV2Mock",
		"sourceName":   "@chainlink/contracts/src/v0.8/mocks/VRFCoordinatorV2Mock.sol",
		"abi":          json.RawMessage(contracts.CoordinatorABIJSON),
		"bytecode":     mockCoordinatorInitCode(),
	})
	return root
}

// autoCommitClient mines a block after every sent transaction and keeps the
// transactions it sent.
type autoCommitClient struct {
	simulated.Client
	backend *simulated.Backend

	mu   sync.Mutex
	sent []*types.Transaction
}

func (c *autoCommitClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	c.mu.Lock()
	c.sent = append(c.sent, tx)
	c.mu.Unlock()
	c.backend.Commit()
	return nil
}

type contractCall struct {
	Method string
	Args   []interface{}
}

// callsTo decodes the transactions sent to addr against the coordinator ABI.
func (c *autoCommitClient) callsTo(t *testing.T, addr common.Address) []contractCall {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []contractCall
	for _, tx := range c.sent {
		if tx.To() == nil || *tx.To() != addr {
			continue
		}
		data := tx.Data()
		require.GreaterOrEqual(t, len(data), 4)
		method, err := contracts.CoordinatorABI.MethodById(data[:4])
		require.NoError(t, err)
		args, err := method.Inputs.Unpack(data[4:])
		require.NoError(t, err)
		out = append(out, contractCall{Method: method.Name, Args: args})
	}
	return out
}

type testEnv struct {
	*Environment
	sim    *simulated.Backend
	client *autoCommitClient
}

// newTestEnv builds an environment on a simulated chain (chain id 1337).
func newTestEnv(t *testing.T, networkName string) *testEnv {
	t.Helper()
	accounts, err := chain.NewDevAccounts(big.NewInt(1337))
	require.NoError(t, err)
	deployer, err := accounts.Named("deployer")
	require.NoError(t, err)

	balance := new(big.Int).Mul(big.NewInt(10_000), big.NewInt(params.Ether))
	sim := simulated.NewBackend(types.GenesisAlloc{deployer.Address(): {Balance: balance}})
	t.Cleanup(func() { _ = sim.Close() })

	p := &network.Params{
		Name:               networkName,
		ChainID:            1337,
		EntranceFee:        big.NewInt(1e16),
		GasLane:            common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"),
		CallbackGasLimit:   500000,
		Interval:           30,
		BlockConfirmations: 1,
	}
	if !network.IsDevelopment(networkName) {
		p.VRFCoordinator = common.HexToAddress("0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625")
		p.SubscriptionID = 42
	}

	client := &autoCommitClient{Client: sim.Client(), backend: sim}
	return &testEnv{
		Environment: &Environment{
			Network:   p,
			Backend:   client,
			Deployer:  deployer,
			Artifacts: artifacts.NewLoader(writeArtifacts(t)),
			Store:     deployments.NewMemoryStore(),
		},
		sim:    sim,
		client: client,
	}
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, req verify.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
