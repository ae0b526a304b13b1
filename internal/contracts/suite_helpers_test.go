package contracts_test

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/bohdan-ly/lottery-smart-contract/internal/chain"
	"github.com/bohdan-ly/lottery-smart-contract/internal/config"
	"github.com/bohdan-ly/lottery-smart-contract/internal/contracts"
	"github.com/bohdan-ly/lottery-smart-contract/internal/network"
)

// liveConfig loads configuration for suites that need a running node.
// They are skipped unless LOTTERY_RPC_URL is set.
func liveConfig(t *testing.T) (*config.Config, *network.Params) {
	t.Helper()
	if os.Getenv("LOTTERY_RPC_URL") == "" {
		t.Skip("set LOTTERY_RPC_URL (and LOTTERY_NETWORK, LOTTERY_ARTIFACTS_DIR) to run against a node")
	}

	cfg, err := config.Load("")
	require.NoError(t, err)
	registry, err := cfg.Registry()
	require.NoError(t, err)
	params, err := registry.ByName(cfg.Network)
	require.NoError(t, err)
	return cfg, params
}

func dial(t *testing.T, cfg *config.Config, params *network.Params) *chain.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := chain.Dial(ctx, cfg.RPCURL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	require.NoError(t, chain.VerifyChainID(ctx, client, params.ChainID))
	return client
}

// enter sends enterLottery from signer with value wei and waits for it.
func enter(t *testing.T, ctx context.Context, b chain.Backend, l *contracts.Lottery, signer *chain.Signer, value *big.Int) *types.Receipt {
	t.Helper()
	opts, err := signer.TransactOpts(ctx)
	require.NoError(t, err)
	opts.Value = value

	tx, err := l.EnterLottery(opts)
	require.NoError(t, err)
	receipt, err := chain.WaitConfirmed(ctx, b, tx, 1)
	require.NoError(t, err)
	return receipt
}

func balance(t *testing.T, ctx context.Context, b chain.Backend, addr common.Address) *big.Int {
	t.Helper()
	bal, err := b.BalanceAt(ctx, addr, nil)
	require.NoError(t, err)
	return bal
}

// requireRevertedWith asserts err is a revert rendering as reason.
func requireRevertedWith(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, contracts.IsRevert(err), "expected a revert, got %v", err)
	require.Equal(t, reason, contracts.RevertReason(err))
}
