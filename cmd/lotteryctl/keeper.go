package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/bohdan-ly/lottery-smart-contract/internal/chain"
	"github.com/bohdan-ly/lottery-smart-contract/internal/contracts"
	"github.com/bohdan-ly/lottery-smart-contract/internal/keeper"
)

var keeperCmd = &cobra.Command{
	Use:   "keeper",
	Short: "Automation for nodes without a keeper network",
}

var keeperRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform upkeep when due and fulfill randomness through the mock coordinator",
	Long: `Poll checkUpkeep on the recorded Lottery and call performUpkeep when it
returns true. On development networks pending randomness requests are
fulfilled through the recorded VRFCoordinatorV2Mock.

Metrics are served on keeper.metrics_addr at /metrics.

Examples:
  lotteryctl keeper run
  lotteryctl keeper run --network localhost`,
	Args: cobra.NoArgs,
	RunE: runKeeper,
}

func init() {
	keeperCmd.AddCommand(keeperRunCmd)
	rootCmd.AddCommand(keeperCmd)
}

func runKeeper(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, closeEnv, err := newEnvironment(ctx)
	if err != nil {
		return err
	}
	defer closeEnv()

	lotteryRec, err := env.Get(ctx, contracts.LotteryName)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	kcfg := keeper.Config{
		Lottery: contracts.NewLottery(lotteryRec.Address, env.Backend),
		Signer:  env.Deployer,
		Heads:   env.Backend,
		Wait: func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
			return chain.WaitConfirmed(ctx, env.Backend, tx, 1)
		},
		PollInterval: cfg.Keeper.PollInterval,
		FromBlock:    lotteryRec.BlockNumber,
		Metrics:      keeper.NewMetrics(reg),
		Logger:       logger,
	}
	if params.IsDevelopment() {
		mockRec, err := env.Get(ctx, contracts.CoordinatorName)
		if err != nil {
			return err
		}
		kcfg.Coordinator = contracts.NewVRFCoordinatorV2Mock(mockRec.Address, env.Backend)
	}

	k, err := keeper.New(kcfg)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Keeper.MetricsAddr != "" {
		srv = &http.Server{
			Addr:              cfg.Keeper.MetricsAddr,
			Handler:           keeper.NewRouter(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	runErr := k.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.String("error", err.Error()))
		}
	}
	return runErr
}
