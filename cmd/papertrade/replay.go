package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TalariManohar018/papertrade/internal/engine"
	"github.com/TalariManohar018/papertrade/internal/logger"
	"github.com/TalariManohar018/papertrade/internal/market"
)

var (
	replayFile        string
	replayDataset     string
	replayStrategies  string
	replaySaveDataset string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded candle series and report results",
	Long: `Replay runs the engine against a recorded candle series instead of
the live generator. Strategies from --strategies are activated, the
whole series is processed, and a performance report is printed.

The series comes from --file (a JSON array of candles) or --dataset
(a named dataset in the configured cold storage).`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFile, "file", "", "JSON candle file to replay")
	replayCmd.Flags().StringVar(&replayDataset, "dataset", "", "named dataset in cold storage to replay")
	replayCmd.Flags().StringVar(&replayStrategies, "strategies", "", "JSON file of strategy definitions to run (required)")
	replayCmd.Flags().StringVar(&replaySaveDataset, "save-dataset", "", "store the parsed candles in cold storage under this dataset name")

	replayCmd.MarkFlagRequired("strategies")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	if (replayFile == "") == (replayDataset == "") {
		return fmt.Errorf("exactly one of --file or --dataset is required")
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	eng, err := engine.New(cfg, log)
	if err != nil {
		return err
	}
	defer eng.Stop(cmd.Context())

	var data []byte
	switch {
	case replayFile != "":
		if data, err = os.ReadFile(replayFile); err != nil {
			return fmt.Errorf("reading candle file: %w", err)
		}
	default:
		ds := eng.Datasets()
		if ds == nil {
			return fmt.Errorf("--dataset requires cold storage configured")
		}
		if data, err = ds.LoadDataset(cmd.Context(), replayDataset); err != nil {
			return fmt.Errorf("loading dataset %q: %w", replayDataset, err)
		}
	}

	candles := market.ParseReplayData(data, log.Named("replay"))
	if len(candles) == 0 {
		return fmt.Errorf("no usable candles in replay data")
	}

	if replaySaveDataset != "" {
		ds := eng.Datasets()
		if ds == nil {
			return fmt.Errorf("--save-dataset requires cold storage configured")
		}
		if err := ds.SaveDataset(cmd.Context(), replaySaveDataset, candles); err != nil {
			return fmt.Errorf("saving dataset %q: %w", replaySaveDataset, err)
		}
		log.Info("dataset saved", zap.String("name", replaySaveDataset))
	}

	n, err := loadStrategies(cmd.Context(), eng, replayStrategies, true)
	if err != nil {
		return err
	}
	log.Info("replay starting",
		zap.Int("candles", len(candles)),
		zap.Int("strategies", n))

	report, err := eng.RunReplay(candles)
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func printReport(r *engine.Report) {
	fmt.Println("=== Replay Report ===")
	fmt.Printf("Trades:          %d (%d wins / %d losses)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Printf("Win rate:        %.1f%%\n", r.WinRate)
	fmt.Printf("Net P&L:         %.2f\n", r.NetPnL)
	fmt.Printf("Gross profit:    %.2f\n", r.GrossProfit)
	fmt.Printf("Gross loss:      %.2f\n", r.GrossLoss)
	if r.ProfitFactor > 0 {
		fmt.Printf("Profit factor:   %.2f\n", r.ProfitFactor)
	}
	fmt.Printf("Commission:      %.2f\n", r.Commission)
	fmt.Printf("Max drawdown:    %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("Balance:         %.2f -> %.2f (%.2f%%)\n", r.InitialBalance, r.FinalBalance, r.ReturnPct)
}
