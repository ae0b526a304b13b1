package main

import (
	"github.com/spf13/cobra"

	"github.com/bohdan-ly/lottery-smart-contract/internal/deploy"
)

var frontendCmd = &cobra.Command{
	Use:   "frontend",
	Short: "Manage the frontend contract constants",
}

var frontendSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Write the recorded lottery address and ABI into the frontend",
	Long: `Write the recorded lottery address and ABI into the frontend constants,
whether or not frontend updates are enabled for deploys.

Examples:
  lotteryctl frontend sync --network hardhat`,
	Args: cobra.NoArgs,
	RunE: runFrontendSync,
}

func init() {
	frontendCmd.AddCommand(frontendSyncCmd)
	rootCmd.AddCommand(frontendCmd)
}

func runFrontendSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	env := &deploy.Environment{
		Network:  params,
		Store:    store,
		Frontend: newFrontendSyncer(),
		Logger:   logger,
	}
	return deploy.FrontendScript{}.Run(ctx, env)
}
