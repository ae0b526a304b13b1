package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <contract>",
	Short: "Verify a recorded deployment on the block explorer",
	Long: `Submit the source of a recorded deployment to the Etherscan API and wait
for the result. Requires an API key (ETHERSCAN_API_KEY or etherscan.api_key).

Examples:
  lotteryctl verify Lottery --network sepolia`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if params.IsDevelopment() {
		return fmt.Errorf("network %s is a development network and cannot be verified", params.Name)
	}
	if cfg.Etherscan.APIKey == "" {
		return errors.New("etherscan api key is not configured")
	}

	env, closeEnv, err := newEnvironment(ctx)
	if err != nil {
		return err
	}
	defer closeEnv()

	rec, err := env.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if err := env.VerifyDeployment(ctx, rec); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s verified at %s\n", rec.Name, rec.Address.Hex())
	return nil
}
