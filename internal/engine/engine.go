// Package engine wires the simulator, evaluator, ledger, risk guard,
// strategy runtime, stores, stream hub, and metrics into one running
// trading engine.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TalariManohar018/papertrade/internal/activity"
	"github.com/TalariManohar018/papertrade/internal/condition"
	"github.com/TalariManohar018/papertrade/internal/config"
	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/TalariManohar018/papertrade/internal/ledger"
	"github.com/TalariManohar018/papertrade/internal/market"
	"github.com/TalariManohar018/papertrade/internal/metrics"
	"github.com/TalariManohar018/papertrade/internal/risk"
	"github.com/TalariManohar018/papertrade/internal/storage/archive"
	"github.com/TalariManohar018/papertrade/internal/storage/state"
	"github.com/TalariManohar018/papertrade/internal/strategy"
	"github.com/TalariManohar018/papertrade/internal/stream"
)

// Engine is the top-level orchestrator. It owns every component and
// drives the candle pipeline: simulator -> runtime -> ledger, with
// state persisted and snapshots streamed after each tick.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger

	sim      *market.Simulator
	books    *ledger.Ledger
	guard    *risk.Guard
	feed     *activity.Recorder
	runtime  *strategy.Runtime
	store    state.Store
	datasets *archive.Datasets
	hub      *stream.Hub
	registry *metrics.Registry

	mu          sync.Mutex
	running     bool
	lastTick    time.Time
	unsubscribe func()
	unsubFeed   func()
}

// New assembles an engine from configuration. The state store and cold
// storage backends are chosen by cfg.Storage.
func New(cfg *config.Config, logger ...*zap.Logger) (*Engine, error) {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}

	store, err := openStateStore(cfg.Storage.Hot, l)
	if err != nil {
		return nil, fmt.Errorf("engine: open state store: %w", err)
	}

	datasets, err := openColdStorage(cfg.Storage.Cold)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("engine: open cold storage: %w", err)
	}

	sim := market.NewSimulator(market.Options{
		Symbols:      cfg.Simulator.Symbols,
		BasePrices:   cfg.Simulator.BasePrices,
		Volatility:   cfg.Simulator.Volatility,
		BaseInterval: time.Duration(cfg.Simulator.BaseIntervalMS) * time.Millisecond,
		HistorySize:  cfg.Simulator.HistorySize,
		Timeframe:    cfg.Simulator.Timeframe,
	}, l.Named("market"))

	books := ledger.NewLedger(cfg.Wallet.InitialBalance, ledger.Costs{
		MarginFactor:  cfg.Wallet.MarginFactor,
		SlippagePct:   cfg.Wallet.SlippagePct,
		CommissionPct: cfg.Wallet.CommissionPct,
	}, l.Named("ledger"))

	guard := risk.NewGuard(risk.Limits{
		MaxDailyLoss:         cfg.Risk.MaxDailyLoss,
		MaxTradesPerDay:      cfg.Risk.MaxTradesPerDay,
		MaxExposurePerSymbol: cfg.Risk.MaxExposurePerSymbol,
		TradingDays:          cfg.Risk.TradingDays,
	}, l.Named("risk"))

	feed := activity.NewRecorder(activity.DefaultCapacity, l.Named("activity"))
	evaluator := condition.NewEvaluator(l.Named("condition"))
	runtime := strategy.NewRuntime(evaluator, sim, books, guard, feed, store, l.Named("strategy"))

	return &Engine{
		cfg:      cfg,
		logger:   l,
		sim:      sim,
		books:    books,
		guard:    guard,
		feed:     feed,
		runtime:  runtime,
		store:    store,
		datasets: datasets,
		hub:      stream.NewHub(l.Named("stream")),
		registry: metrics.NewRegistry(),
	}, nil
}

func openStateStore(cfg config.HotStorageConfig, logger *zap.Logger) (state.Store, error) {
	if cfg.DSN == "" || cfg.DSN == "memory" {
		return state.NewMemoryStore(), nil
	}
	return state.NewSQLiteStore(cfg.DSN, logger.Named("state"))
}

func openColdStorage(cfg config.ColdStorageConfig) (*archive.Datasets, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "localfs":
		fs, err := archive.NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return archive.NewDatasets(fs), nil
	case "s3":
		s3, err := archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return archive.NewDatasets(s3), nil
	default:
		return nil, fmt.Errorf("unknown cold storage type %q", cfg.Type)
	}
}

// Start restores persisted state, wires the candle pipeline, and starts
// the simulator in live mode.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine: already running")
	}
	e.running = true
	e.mu.Unlock()

	if err := e.restore(ctx); err != nil {
		e.logger.Warn("state restore failed, starting fresh", zap.Error(err))
	}

	go e.hub.Run()
	e.wireFanout()

	e.unsubscribe = e.sim.Subscribe(e.handleCandle)
	e.sim.SetSpeed(e.cfg.Simulator.Speed)
	e.sim.StartLive()

	e.feed.Record(activity.Event{
		Type:    activity.TypeSystem,
		Message: "engine started",
		Data:    map[string]any{"mode": string(e.sim.Mode())},
	})
	e.logger.Info("engine started",
		zap.Strings("symbols", e.cfg.Simulator.Symbols),
		zap.Float64("speed", e.cfg.Simulator.Speed))
	return nil
}

// wireFanout forwards activity events to stream clients and translates
// them into metrics.
func (e *Engine) wireFanout() {
	e.unsubFeed = e.feed.Subscribe(func(ev activity.Event) {
		e.hub.Broadcast("activity", ev)

		switch ev.Type {
		case activity.TypeOrder:
			status, _ := ev.Data["status"].(string)
			side, _ := ev.Data["side"].(string)
			if status != "" {
				e.registry.RecordOrder(ev.Symbol, side, status)
			}
		case activity.TypeTrade:
			if pnl, ok := ev.Data["pnl"].(float64); ok {
				reason, _ := ev.Data["reason"].(string)
				e.registry.RecordTradeClosed(ev.Symbol, reason, pnl)
			}
		case activity.TypeRisk:
			if reason, ok := ev.Data["reason"].(string); ok {
				e.registry.RecordEntryDenied(reason)
			}
		}
	})
}

// restore reloads the last persisted snapshot into the live components.
func (e *Engine) restore(ctx context.Context) error {
	snap, err := e.store.LoadState(ctx)
	if err != nil {
		return err
	}
	// A zero SavedAt means the store has never been written.
	if snap == nil || snap.SavedAt.IsZero() {
		return nil
	}

	e.books.Restore(snap.Wallet, snap.Positions, snap.Orders, snap.Trades)
	e.guard.Restore(snap.Risk)
	e.runtime.Restore(snap.Strategies)

	e.logger.Info("state restored",
		zap.Float64("balance", snap.Wallet.Balance),
		zap.Int("positions", len(snap.Positions)),
		zap.Int("strategies", len(snap.Strategies)),
		zap.Time("saved_at", snap.SavedAt))
	return nil
}

// handleCandle is the per-candle pipeline, invoked by the simulator.
func (e *Engine) handleCandle(c core.Candle) {
	started := time.Now()

	e.runtime.OnCandle(c)

	e.registry.RecordCandle(c.Symbol, string(e.sim.Mode()))
	e.updateGauges()

	e.mu.Lock()
	e.lastTick = c.Timestamp
	e.mu.Unlock()

	e.hub.Broadcast("candle", c)
	e.hub.Broadcast("snapshot", e.Snapshot())

	if err := e.persistState(context.Background()); err != nil {
		e.logger.Warn("tick persistence failed", zap.Error(err))
	}

	e.registry.ObserveTick(time.Since(started))
}

func (e *Engine) updateGauges() {
	active := 0
	for _, def := range e.runtime.List() {
		if def.Status == strategy.StatusActive {
			active++
		}
	}
	locked, _ := e.guard.Locked()

	e.registry.SetActiveStrategies(active)
	e.registry.SetOpenPositions(len(e.books.Positions()))
	e.registry.SetWalletBalance(e.books.Wallet().Balance)
	e.registry.SetRiskLocked(locked)
	e.registry.SetStreamClients(e.hub.ClientCount())
}

func (e *Engine) currentState() state.State {
	return state.State{
		Wallet:     e.books.Wallet(),
		Positions:  e.books.Positions(),
		Orders:     e.books.Orders(),
		Trades:     e.books.Trades(),
		Risk:       e.guard.Snapshot(),
		Strategies: e.runtime.List(),
		Activity:   e.feed.Recent(activity.DefaultCapacity),
		SavedAt:    time.Now().UTC(),
	}
}

func (e *Engine) persistState(ctx context.Context) error {
	return e.store.SaveState(ctx, e.currentState())
}

// archiveSnapshot writes the current state to cold storage under a
// timestamped key. Best effort: failures are logged, never fatal.
func (e *Engine) archiveSnapshot(ctx context.Context) {
	if e.datasets == nil {
		return
	}
	st := e.currentState()
	data, err := json.Marshal(st)
	if err != nil {
		e.logger.Warn("snapshot encoding failed", zap.Error(err))
		return
	}
	key, err := e.datasets.SaveSnapshot(ctx, st.SavedAt, data)
	if err != nil {
		e.logger.Warn("snapshot archive failed", zap.Error(err))
		return
	}
	e.logger.Info("state snapshot archived", zap.String("key", key))
}

// Snapshot reports the engine's current status for the stream and CLI.
type Snapshot struct {
	Mode             string             `json:"mode"`
	Running          bool               `json:"running"`
	LastTick         time.Time          `json:"last_tick"`
	Prices           map[string]float64 `json:"prices"`
	Wallet           ledger.WalletState `json:"wallet"`
	UnrealizedPnL    float64            `json:"unrealized_pnl"`
	OpenPositions    []ledger.Position  `json:"open_positions"`
	ActiveStrategies int                `json:"active_strategies"`
	Risk             risk.State         `json:"risk"`
}

// Snapshot assembles the current engine status.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	running := e.running
	lastTick := e.lastTick
	e.mu.Unlock()

	prices := make(map[string]float64, len(e.cfg.Simulator.Symbols))
	for _, sym := range e.cfg.Simulator.Symbols {
		prices[sym] = e.sim.CurrentPrice(sym)
	}

	active := 0
	for _, def := range e.runtime.List() {
		if def.Status == strategy.StatusActive {
			active++
		}
	}

	return Snapshot{
		Mode:             string(e.sim.Mode()),
		Running:          running,
		LastTick:         lastTick,
		Prices:           prices,
		Wallet:           e.books.Wallet(),
		UnrealizedPnL:    e.books.UnrealizedPnL(prices),
		OpenPositions:    e.books.Positions(),
		ActiveStrategies: active,
		Risk:             e.guard.Snapshot(),
	}
}

// EmergencyStop squares off every open position at current simulator
// prices, locks the risk guard, and halts the market feed. Trading
// cannot resume until the guard is unlocked and the engine restarted.
func (e *Engine) EmergencyStop(reason string) []ledger.Trade {
	e.guard.Lock("emergency stop: " + reason)
	e.sim.Stop()

	trades := e.books.CloseAll(e.sim.CurrentPrice, "emergency_stop")
	for _, t := range trades {
		e.registry.RecordTradeClosed(t.Symbol, t.Reason, t.PnL)
	}

	e.feed.Record(activity.Event{
		Type:    activity.TypeRisk,
		Message: "emergency stop: " + reason,
		Data:    map[string]any{"positions_closed": len(trades)},
	})
	e.logger.Error("emergency stop",
		zap.String("reason", reason),
		zap.Int("positions_closed", len(trades)))

	if err := e.persistState(context.Background()); err != nil {
		e.logger.Warn("emergency stop persistence failed", zap.Error(err))
	}
	e.archiveSnapshot(context.Background())
	e.updateGauges()
	return trades
}

// RunReplay drives a full replay synchronously and returns the report.
// The engine must not be live; strategies act on replay candles exactly
// as on live ones.
func (e *Engine) RunReplay(candles []core.Candle) (*Report, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: replay refused while live")
	}
	e.mu.Unlock()

	if !e.sim.LoadReplay(candles) {
		return nil, core.WrapError(core.ErrReplayDataInvalid, fmt.Errorf("no candles to replay"))
	}

	e.unsubscribe = e.sim.Subscribe(e.handleCandleReplay)
	defer func() {
		e.unsubscribe()
		e.unsubscribe = nil
	}()

	for e.sim.Tick() {
	}

	report := BuildReport(e.cfg.Wallet.InitialBalance, e.books.Wallet(), e.books.Trades())
	return &report, nil
}

// handleCandleReplay is handleCandle without the streaming and
// persistence overhead; replay runs are synchronous and report-driven.
func (e *Engine) handleCandleReplay(c core.Candle) {
	started := time.Now()
	e.runtime.OnCandle(c)
	e.registry.RecordCandle(c.Symbol, string(market.ModeReplay))
	e.mu.Lock()
	e.lastTick = c.Timestamp
	e.mu.Unlock()
	e.registry.ObserveTick(time.Since(started))
}

// Stop halts the feed, persists final state, and releases resources. A
// stopped or never-started engine still closes its store, so Stop is
// safe to defer after New.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	wasRunning := e.running
	e.running = false
	e.mu.Unlock()

	var err error
	if wasRunning {
		e.sim.Stop()
		if e.unsubscribe != nil {
			e.unsubscribe()
			e.unsubscribe = nil
		}
		if e.unsubFeed != nil {
			e.unsubFeed()
			e.unsubFeed = nil
		}

		if err = e.persistState(ctx); err != nil {
			e.logger.Warn("final persistence failed", zap.Error(err))
		}
		e.archiveSnapshot(ctx)
		e.logger.Info("engine stopped")
	}

	e.hub.Stop()
	if cerr := e.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Accessors for the CLI layer.

func (e *Engine) Runtime() *strategy.Runtime   { return e.runtime }
func (e *Engine) Simulator() *market.Simulator { return e.sim }
func (e *Engine) Books() *ledger.Ledger        { return e.books }
func (e *Engine) Guard() *risk.Guard           { return e.guard }
func (e *Engine) Activity() *activity.Recorder { return e.feed }
func (e *Engine) Hub() *stream.Hub             { return e.hub }
func (e *Engine) Metrics() *metrics.Registry   { return e.registry }
func (e *Engine) Datasets() *archive.Datasets  { return e.datasets }
