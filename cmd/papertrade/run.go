package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TalariManohar018/papertrade/internal/config"
	"github.com/TalariManohar018/papertrade/internal/engine"
	"github.com/TalariManohar018/papertrade/internal/logger"
	"github.com/TalariManohar018/papertrade/internal/strategy"
)

var runStrategiesFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the live simulation engine",
	Long: `Start the engine in live mode: the simulator generates candles,
activated strategies trade them, and the websocket stream and metrics
endpoints are served until interrupted.`,
	RunE: runEngine,
}

func init() {
	runCmd.Flags().StringVar(&runStrategiesFile, "strategies", "", "JSON file of strategy definitions to load and activate")
	rootCmd.AddCommand(runCmd)
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func runEngine(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

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

	if runStrategiesFile != "" {
		n, err := loadStrategies(cmd.Context(), eng, runStrategiesFile, true)
		if err != nil {
			return err
		}
		log.Info("strategies loaded", zap.Int("count", n))
	}

	if err := eng.Start(cmd.Context()); err != nil {
		return err
	}

	mux := http.NewServeMux()
	if cfg.Stream.Enabled {
		mux.HandleFunc(cfg.Stream.Path, eng.Hub().HandleWS)
	}
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, eng.Metrics().Handler())
	}
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(eng.Snapshot())
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown error", zap.Error(err))
	}
	return eng.Stop(ctx)
}

// loadStrategies reads a JSON array of strategy definitions, creates
// them, and optionally activates each.
func loadStrategies(ctx context.Context, eng *engine.Engine, path string, activate bool) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading strategies file: %w", err)
	}

	var defs []strategy.Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return 0, fmt.Errorf("parsing strategies file: %w", err)
	}

	for i, def := range defs {
		created, err := eng.Runtime().Create(ctx, def)
		if err != nil {
			return i, fmt.Errorf("creating strategy %q: %w", def.Name, err)
		}
		if activate {
			if err := eng.Runtime().Activate(ctx, created.ID); err != nil {
				return i, fmt.Errorf("activating strategy %q: %w", def.Name, err)
			}
		}
	}
	return len(defs), nil
}
