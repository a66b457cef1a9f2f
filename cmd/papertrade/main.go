package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "papertrade - simulated intraday trading engine",
	Long: `papertrade runs declarative trading strategies against a simulated
market: a random-walk candle generator in live mode, or a recorded
candle series in replay mode. Fills, positions, and P&L are simulated
against a paper wallet with risk limits enforced across strategies.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
