package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TalariManohar018/papertrade/internal/activity"
	"github.com/TalariManohar018/papertrade/internal/condition"
	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/TalariManohar018/papertrade/internal/ledger"
	"github.com/TalariManohar018/papertrade/internal/risk"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MarketData is the slice of the simulator the runtime depends on.
type MarketData interface {
	CurrentPrice(symbol string) float64
	History(symbol string, count int) []core.Candle
}

// SignalEvaluator turns a condition list and candle history into an
// entry or exit signal.
type SignalEvaluator interface {
	Evaluate(conditions []condition.Condition, history []core.Candle) bool
}

// Store persists strategy definitions. Lifecycle operations await the
// save before acknowledging success.
type Store interface {
	SaveStrategy(ctx context.Context, def Definition) error
	DeleteStrategy(ctx context.Context, id string) error
}

// Runtime drives all strategies against the candle stream. One OnCandle
// call processes one candle; per-candle work for a symbol never
// overlaps because the simulator serializes ticks.
type Runtime struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	evaluator  SignalEvaluator
	market     MarketData
	books      *ledger.Ledger
	guard      *risk.Guard
	feed       *activity.Recorder
	store      Store
	strategies map[string]*Definition
	now        func() time.Time
}

// NewRuntime wires a runtime from its collaborators. store may be nil,
// disabling persistence.
func NewRuntime(
	evaluator SignalEvaluator,
	market MarketData,
	books *ledger.Ledger,
	guard *risk.Guard,
	feed *activity.Recorder,
	store Store,
	logger ...*zap.Logger,
) *Runtime {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Runtime{
		logger:     l,
		evaluator:  evaluator,
		market:     market,
		books:      books,
		guard:      guard,
		feed:       feed,
		store:      store,
		strategies: make(map[string]*Definition),
		now:        time.Now,
	}
}

// SetClock injects a time source for deterministic tests.
func (r *Runtime) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Create validates and registers a new strategy in CREATED status. The
// definition is persisted before Create returns.
func (r *Runtime) Create(ctx context.Context, def Definition) (*Definition, error) {
	res := Validate(def)
	if !res.Valid {
		return nil, core.WrapError(core.ErrValidationFailed,
			fmt.Errorf("%d validation errors: %v", len(res.Errors), res.Errors))
	}

	r.mu.Lock()
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if _, exists := r.strategies[def.ID]; exists {
		r.mu.Unlock()
		return nil, core.WrapError(core.ErrValidationFailed,
			fmt.Errorf("strategy %s already exists", def.ID))
	}
	ts := r.now()
	def.Status = StatusCreated
	def.CreatedAt = ts
	def.UpdatedAt = ts
	r.strategies[def.ID] = &def
	r.mu.Unlock()

	r.record(activity.TypeStrategy, def.ID, def.Symbol,
		fmt.Sprintf("strategy %q created", def.Name), nil)

	if err := r.persist(ctx, def); err != nil {
		return nil, err
	}
	cp := def
	return &cp, nil
}

// Activate moves a strategy into ACTIVE. Legal from CREATED, STOPPED,
// and ERROR. It fails while the risk guard is locked, and returns only
// after the new status is durably saved.
func (r *Runtime) Activate(ctx context.Context, id string) error {
	if locked, reason := r.guard.Locked(); locked {
		return core.WrapError(core.ErrRiskLocked, fmt.Errorf("%s", reason))
	}

	r.mu.Lock()
	def, exists := r.strategies[id]
	if !exists {
		r.mu.Unlock()
		return core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("id %s", id))
	}
	switch def.Status {
	case StatusCreated, StatusStopped, StatusError:
	case StatusActive:
		r.mu.Unlock()
		return nil // already active
	default:
		r.mu.Unlock()
		return ErrInvalidTransition
	}
	def.Status = StatusActive
	def.LastError = ""
	def.UpdatedAt = r.now()
	snapshot := *def
	r.mu.Unlock()

	r.record(activity.TypeStrategy, id, snapshot.Symbol,
		fmt.Sprintf("strategy %q activated", snapshot.Name), nil)
	r.logger.Info("strategy activated",
		zap.String("strategy_id", id), zap.String("symbol", snapshot.Symbol))

	return r.persist(ctx, snapshot)
}

// Deactivate moves a strategy to STOPPED. Deactivating a strategy that
// is not ACTIVE is a no-op returning success. Open positions are left
// open; square-off is a separate operation.
func (r *Runtime) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	def, exists := r.strategies[id]
	if !exists {
		r.mu.Unlock()
		return core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("id %s", id))
	}
	if def.Status != StatusActive {
		r.mu.Unlock()
		return nil
	}
	def.Status = StatusStopped
	def.UpdatedAt = r.now()
	snapshot := *def
	r.mu.Unlock()

	r.record(activity.TypeStrategy, id, snapshot.Symbol,
		fmt.Sprintf("strategy %q deactivated", snapshot.Name), nil)

	return r.persist(ctx, snapshot)
}

// Delete removes a non-ACTIVE strategy. Its deletion is persisted before
// Delete returns.
func (r *Runtime) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	def, exists := r.strategies[id]
	if !exists {
		r.mu.Unlock()
		return core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("id %s", id))
	}
	if def.Status == StatusActive {
		r.mu.Unlock()
		return ErrStillActive
	}
	name, symbol := def.Name, def.Symbol
	delete(r.strategies, id)
	r.mu.Unlock()

	r.record(activity.TypeStrategy, id, symbol,
		fmt.Sprintf("strategy %q deleted", name), nil)

	if r.store == nil {
		return nil
	}
	if err := r.store.DeleteStrategy(ctx, id); err != nil {
		return core.WrapError(core.ErrPersistenceFailed, err)
	}
	return nil
}

// SquareOff force-closes a strategy's open position at the current
// market price.
func (r *Runtime) SquareOff(ctx context.Context, id string) (*ledger.Trade, error) {
	r.mu.RLock()
	def, exists := r.strategies[id]
	if !exists {
		r.mu.RUnlock()
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("id %s", id))
	}
	symbol := def.Symbol
	r.mu.RUnlock()

	price := r.market.CurrentPrice(symbol)
	trade, err := r.books.ClosePosition(id, symbol, price, "square_off")
	if err != nil {
		return nil, err
	}
	r.afterClose(id, symbol, trade)
	return trade, nil
}

// Get returns a snapshot of one strategy.
func (r *Runtime) Get(id string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.strategies[id]
	if !exists {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("id %s", id))
	}
	cp := *def
	return &cp, nil
}

// List returns snapshots of all strategies.
func (r *Runtime) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.strategies))
	for _, def := range r.strategies {
		out = append(out, *def)
	}
	return out
}

// Restore loads previously persisted definitions, demoting any that were
// saved mid-flight as ACTIVE back to STOPPED.
func (r *Runtime) Restore(defs []Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range defs {
		def := defs[i]
		if def.Status == StatusActive {
			def.Status = StatusStopped
		}
		r.strategies[def.ID] = &def
	}
}

// OnCandle processes one candle for every ACTIVE strategy on its symbol.
// This is the simulator subscription entry point.
func (r *Runtime) OnCandle(c core.Candle) {
	r.guard.Observe(c.TradingDate())

	// The books run on simulated time so that fills and daily caps line
	// up with candle dates during accelerated or historical replays.
	ts := c.Timestamp
	r.books.SetClock(func() time.Time { return ts })

	r.mu.RLock()
	matched := make([]Definition, 0, 2)
	for _, def := range r.strategies {
		if def.Status == StatusActive && def.Symbol == c.Symbol {
			matched = append(matched, *def)
		}
	}
	r.mu.RUnlock()

	for _, def := range matched {
		r.processCandle(def, c)
	}
}

// processCandle runs the per-strategy pipeline: square-off, window gate,
// then exit or entry evaluation. A panic anywhere in the pipeline moves
// the strategy to ERROR without disturbing other strategies or the tick
// loop.
func (r *Runtime) processCandle(def Definition, c core.Candle) {
	defer func() {
		if rec := recover(); rec != nil {
			r.setError(def.ID, fmt.Sprintf("runtime fault: %v", rec))
		}
	}()

	pos, hasPos := r.books.Position(def.ID, def.Symbol)

	// Square-off is a hard exit, checked before the window gate so late
	// positions close even after the window ends.
	if hasPos && def.PastSquareOff(c.Timestamp) {
		r.closePosition(def, c.Close, "square_off")
		return
	}

	if !def.InWindow(c.Timestamp) {
		return
	}

	if hasPos {
		if reason, ok := r.shouldExit(def, pos, c); ok {
			r.closePosition(def, c.Close, reason)
		}
		return
	}
	r.tryEnter(def, c)
}

// shouldExit checks stop-loss and take-profit thresholds, then the exit
// condition list.
func (r *Runtime) shouldExit(def Definition, pos *ledger.Position, c core.Candle) (string, bool) {
	entry := pos.EntryPrice
	price := c.Close

	if def.Risk.StopLossPct > 0 {
		stop := entry * (1 - def.Risk.StopLossPct/100)
		if pos.Side == core.SideShort {
			stop = entry * (1 + def.Risk.StopLossPct/100)
		}
		if (pos.Side == core.SideLong && price <= stop) ||
			(pos.Side == core.SideShort && price >= stop) {
			return "stop_loss", true
		}
	}
	if def.Risk.TakeProfitPct > 0 {
		target := entry * (1 + def.Risk.TakeProfitPct/100)
		if pos.Side == core.SideShort {
			target = entry * (1 - def.Risk.TakeProfitPct/100)
		}
		if (pos.Side == core.SideLong && price >= target) ||
			(pos.Side == core.SideShort && price <= target) {
			return "take_profit", true
		}
	}
	if def.Risk.MaxLossPerTrade > 0 && pos.UnrealizedPnL(price) <= -def.Risk.MaxLossPerTrade {
		return "max_loss_per_trade", true
	}
	if def.Risk.MaxProfitTarget > 0 && pos.UnrealizedPnL(price) >= def.Risk.MaxProfitTarget {
		return "max_profit_target", true
	}

	if len(def.ExitConditions) > 0 {
		history := r.market.History(def.Symbol, 0)
		if r.evaluator.Evaluate(def.ExitConditions, history) {
			return "exit_signal", true
		}
	}
	return "", false
}

// tryEnter evaluates entry conditions and places the order through the
// risk guard and ledger. Denials and margin shortfalls skip the entry
// and keep the strategy running.
func (r *Runtime) tryEnter(def Definition, c core.Candle) {
	history := r.market.History(def.Symbol, 0)
	if !r.evaluator.Evaluate(def.EntryConditions, history) {
		return
	}

	if def.MaxTradesPerDay > 0 && r.dayEntries(def, c) >= def.MaxTradesPerDay {
		r.record(activity.TypeRisk, def.ID, def.Symbol,
			"entry denied: strategy trade cap reached",
			map[string]any{"reason": "strategy_trade_cap"})
		return
	}

	price := c.Close
	added := r.books.EstimateMargin(def.Quantity, price)
	res := r.guard.CheckAndRecordTrade(c.Timestamp, r.books.Exposure(def.Symbol), added)
	if !res.Allowed {
		r.record(activity.TypeRisk, def.ID, def.Symbol,
			"entry denied: "+res.Reason,
			map[string]any{"reason": res.Reason})
		return
	}

	pos, err := r.books.OpenPosition(def.ID, def.Symbol, def.Side, def.Quantity, price)
	if err != nil {
		r.guard.ReleaseTrade()
		if errors.Is(err, core.ErrInsufficientMargin) {
			r.record(activity.TypeOrder, def.ID, def.Symbol,
				"entry skipped: insufficient margin",
				map[string]any{"status": string(ledger.OrderStatusRejected), "side": string(def.Side)})
			return
		}
		r.setError(def.ID, fmt.Sprintf("order failed: %v", err))
		return
	}

	r.record(activity.TypeOrder, def.ID, def.Symbol,
		fmt.Sprintf("%s %d @ %.2f", def.Side, def.Quantity, pos.EntryPrice),
		map[string]any{
			"position_id": pos.ID,
			"status":      string(ledger.OrderStatusFilled),
			"side":        string(def.Side),
		})
}

// closePosition closes the strategy's position and feeds the realized
// loss to the guard.
func (r *Runtime) closePosition(def Definition, price float64, reason string) {
	trade, err := r.books.ClosePosition(def.ID, def.Symbol, price, reason)
	if err != nil {
		r.setError(def.ID, fmt.Sprintf("close failed: %v", err))
		return
	}
	r.afterClose(def.ID, def.Symbol, trade)
}

func (r *Runtime) afterClose(id, symbol string, trade *ledger.Trade) {
	if trade.PnL < 0 {
		r.guard.RecordRealizedLoss(-trade.PnL)
	}
	r.record(activity.TypeTrade, id, symbol,
		fmt.Sprintf("closed %s %d @ %.2f pnl %.2f (%s)",
			trade.Side, trade.Quantity, trade.ExitPrice, trade.PnL, trade.Reason),
		map[string]any{"trade_id": trade.ID, "pnl": trade.PnL, "reason": trade.Reason})
}

// dayEntries counts the strategy's filled entry orders on the candle's
// trading date. Exit orders carry the opposite side and are not counted.
func (r *Runtime) dayEntries(def Definition, c core.Candle) int {
	date := c.TradingDate()
	count := 0
	for _, o := range r.books.Orders() {
		if o.StrategyID == def.ID && o.Side == def.Side &&
			o.Status == ledger.OrderStatusFilled &&
			o.PlacedAt.Format("2006-01-02") == date {
			count++
		}
	}
	return count
}

// setError moves a strategy to ERROR and detaches it from the stream.
func (r *Runtime) setError(id, msg string) {
	r.mu.Lock()
	def, exists := r.strategies[id]
	if !exists {
		r.mu.Unlock()
		return
	}
	def.Status = StatusError
	def.LastError = msg
	def.UpdatedAt = r.now()
	snapshot := *def
	r.mu.Unlock()

	r.logger.Error("strategy faulted",
		zap.String("strategy_id", id), zap.String("error", msg))
	r.record(activity.TypeStrategy, id, snapshot.Symbol,
		fmt.Sprintf("strategy %q faulted: %s", snapshot.Name, msg), nil)

	if r.store != nil {
		if err := r.store.SaveStrategy(context.Background(), snapshot); err != nil {
			r.logger.Warn("failed to persist faulted strategy", zap.Error(err))
		}
	}
}

func (r *Runtime) persist(ctx context.Context, def Definition) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveStrategy(ctx, def); err != nil {
		return core.WrapError(core.ErrPersistenceFailed, err)
	}
	return nil
}

func (r *Runtime) record(t activity.Type, strategyID, symbol, msg string, data map[string]any) {
	if r.feed == nil {
		return
	}
	r.feed.Record(activity.Event{
		Type:       t,
		StrategyID: strategyID,
		Symbol:     symbol,
		Message:    msg,
		Data:       data,
	})
}
