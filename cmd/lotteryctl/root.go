package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bohdan-ly/lottery-smart-contract/internal/artifacts"
	"github.com/bohdan-ly/lottery-smart-contract/internal/chain"
	"github.com/bohdan-ly/lottery-smart-contract/internal/config"
	"github.com/bohdan-ly/lottery-smart-contract/internal/deploy"
	"github.com/bohdan-ly/lottery-smart-contract/internal/deployments"
	"github.com/bohdan-ly/lottery-smart-contract/internal/frontend"
	"github.com/bohdan-ly/lottery-smart-contract/internal/network"
	"github.com/bohdan-ly/lottery-smart-contract/internal/verify"
)

var (
	cfgFile     string
	networkName string

	cfg    *config.Config
	params *network.Params
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lotteryctl",
	Short: "Deploy and operate the lottery contracts",
	Long: `lotteryctl deploys the Lottery contract and its VRF coordinator mock,
records deployments, syncs the frontend constants and runs a local keeper.

Examples:
  lotteryctl deploy --network hardhat
  lotteryctl deploy --network sepolia --tags lottery
  lotteryctl deployments list --output json
  lotteryctl keeper run`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: lottery.yaml in . or ./config)")
	rootCmd.PersistentFlags().StringVarP(&networkName, "network", "n", "", "network name (overrides config)")
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if networkName != "" {
		cfg.Network = networkName
	}

	logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(logger)

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}
	params, err = registry.ByName(cfg.Network)
	return err
}

func newLogger(w interface{ Write([]byte) (int, error) }, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// connect dials the configured node and checks it serves the selected network.
func connect(ctx context.Context) (*chain.Client, error) {
	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	if err := chain.VerifyChainID(ctx, client, params.ChainID); err != nil {
		client.Close()
		return nil, fmt.Errorf("network %s: %w", params.Name, err)
	}
	return client, nil
}

// deployerSigner uses the configured key, or the first dev account on development networks.
func deployerSigner() (*chain.Signer, error) {
	chainID := new(big.Int).SetUint64(params.ChainID)
	if cfg.PrivateKey != "" {
		return chain.NewLocalSigner(cfg.PrivateKey, chainID)
	}
	if !params.IsDevelopment() {
		return nil, errors.New("private key is required on live networks (set PRIVATE_KEY or LOTTERY_PRIVATE_KEY)")
	}
	accounts, err := chain.NewDevAccounts(chainID)
	if err != nil {
		return nil, err
	}
	return accounts.Named("deployer")
}

// openStore returns the Postgres registry when a DSN is configured, the file registry otherwise.
func openStore(ctx context.Context) (deployments.Store, func(), error) {
	if cfg.Database.DSN == "" {
		return deployments.NewFileStore(cfg.DeploymentsDir), func() {}, nil
	}

	if err := deployments.Migrate(cfg.Database.DSN); err != nil {
		return nil, nil, err
	}
	pool, err := deployments.OpenPostgres(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("using postgres deployment registry")
	return deployments.NewPostgresStore(pool), pool.Close, nil
}

func newVerifier() verify.Verifier {
	if cfg.Etherscan.APIKey == "" {
		return nil
	}
	return verify.NewClient(cfg.Etherscan.APIKey,
		verify.WithBaseURL(cfg.Etherscan.APIURL),
		verify.WithPolling(cfg.Etherscan.PollInterval, cfg.Etherscan.MaxAttempts),
		verify.WithLogger(logger),
	)
}

func newFrontendSyncer() *frontend.Syncer {
	return &frontend.Syncer{
		AddressesFile: cfg.Frontend.AddressesFile,
		ABIFile:       cfg.Frontend.ABIFile,
		Logger:        logger,
	}
}

// newEnvironment wires everything a deploy script needs. The caller closes the returned func.
func newEnvironment(ctx context.Context) (*deploy.Environment, func(), error) {
	client, err := connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	signer, err := deployerSigner()
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	store, closeStore, err := openStore(ctx)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	env := &deploy.Environment{
		Network:   params,
		Backend:   client,
		Deployer:  signer,
		Artifacts: artifacts.NewLoader(cfg.ArtifactsDir),
		Store:     store,
		Logger:    logger,
	}
	if v := newVerifier(); v != nil {
		env.Verifier = v
	}
	if cfg.Frontend.Enabled {
		env.Frontend = newFrontendSyncer()
	}

	return env, func() {
		closeStore()
		client.Close()
	}, nil
}
