package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bohdan-ly/lottery-smart-contract/internal/deploy"
)

var (
	deployTags  []string
	deployReset bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the deploy scripts against the selected network",
	Long: `Run the deploy scripts in order: 00-deploy-mocks, 01-deploy-lottery and
99-update-frontend. Scripts are selected by tag.

Examples:
  lotteryctl deploy
  lotteryctl deploy --tags mocks,lottery
  lotteryctl deploy --network sepolia --tags lottery
  lotteryctl deploy --reset`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringSliceVar(&deployTags, "tags", []string{"all"}, "script tags to run")
	deployCmd.Flags().BoolVar(&deployReset, "reset", false, "discard recorded deployments for the network first")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	env, closeEnv, err := newEnvironment(ctx)
	if err != nil {
		return err
	}
	defer closeEnv()

	runner := deploy.NewRunner(logger, deploy.DefaultScripts()...)
	if len(runner.Scripts(deployTags...)) == 0 {
		return fmt.Errorf("no deploy scripts match tags %v", deployTags)
	}

	if deployReset {
		err = runner.Fixture(ctx, env, deployTags...)
	} else {
		err = runner.Run(ctx, env, deployTags...)
	}
	if err != nil {
		return err
	}

	records, err := env.Store.List(ctx, params.Name)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rec.Name, rec.Address.Hex())
	}
	return nil
}
