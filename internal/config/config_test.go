package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lottery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "hardhat", cfg.Network)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.RPCURL)
	assert.Equal(t, "./artifacts", cfg.ArtifactsDir)
	assert.Equal(t, "./deployments", cfg.DeploymentsDir)
	assert.False(t, cfg.Frontend.Enabled)
	assert.Equal(t, "../nextjs-lottery/src/constants/contractAddresses.json", cfg.Frontend.AddressesFile)
	assert.Equal(t, "../nextjs-lottery/src/constants/abi.json", cfg.Frontend.ABIFile)
	assert.Empty(t, cfg.Etherscan.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Etherscan.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Keeper.PollInterval)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
network: sepolia
rpc_url: https://rpc.sepolia.example
frontend:
  enabled: true
  abi_file: ./abi.json
keeper:
  poll_interval: 2s
networks:
  - name: sepolia
    chain_id: 11155111
    entrance_fee: "10000000000000000"
    gas_lane: "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"
    subscription_id: 4242
    callback_gas_limit: 500000
    interval: 30
    vrf_coordinator: "0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sepolia", cfg.Network)
	assert.Equal(t, "https://rpc.sepolia.example", cfg.RPCURL)
	assert.True(t, cfg.Frontend.Enabled)
	assert.Equal(t, "./abi.json", cfg.Frontend.ABIFile)
	assert.Equal(t, 2*time.Second, cfg.Keeper.PollInterval)
	require.Len(t, cfg.Networks, 1)

	registry, err := cfg.Registry()
	require.NoError(t, err)
	p, err := registry.ByName("sepolia")
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), p.SubscriptionID)
}

func TestLoadLegacyEnvToggles(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UPDATE_FRONTEND", "true")
	t.Setenv("ETHERSCAN_API_KEY", "etherscan-key")
	t.Setenv("LOTTERY_NETWORK", "localhost")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Frontend.Enabled)
	assert.Equal(t, "etherscan-key", cfg.Etherscan.APIKey)
	assert.Equal(t, "localhost", cfg.Network)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
rpc_url: "not a url"
`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, `
log_level: verbose
`)
	_, err = Load(path)
	assert.Error(t, err)
}
