// Command lotteryctl deploys the lottery contracts, keeps the frontend in sync
// and runs a local keeper.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
