package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var outputFormat string

var deploymentsCmd = &cobra.Command{
	Use:   "deployments",
	Short: "Inspect recorded deployments",
}

var deploymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployments recorded for the selected network",
	Long: `List deployments recorded for the selected network.

Examples:
  lotteryctl deployments list
  lotteryctl deployments list --network sepolia --output json`,
	Args: cobra.NoArgs,
	RunE: runDeploymentsList,
}

func init() {
	deploymentsListCmd.Flags().StringVarP(&outputFormat, "output", "o", outputTable, "output format: table, json or yaml")
	deploymentsCmd.AddCommand(deploymentsListCmd)
	rootCmd.AddCommand(deploymentsCmd)
}

func runDeploymentsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.List(ctx, params.Name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch outputFormat {
	case outputJSON:
		return printJSON(out, records)
	case outputYAML:
		return printYAML(out, records)
	case outputTable:
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No deployments recorded for %s.\n", params.Name)
		return nil
	}

	w := newTable(out)
	printTableHeader(w, "NAME", "ADDRESS", "CHAIN", "BLOCK", "TX", "DEPLOYED")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			rec.Name,
			rec.Address.Hex(),
			rec.ChainID,
			rec.BlockNumber,
			rec.TransactionHash.Hex(),
			rec.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}
