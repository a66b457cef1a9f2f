// Package risk enforces account-wide trading limits: a daily loss cap
// with a sticky lock, per-day trade counting, per-symbol exposure caps,
// and a trading-day calendar.
package risk

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limits defines the guard's parameters. Zero values disable the
// corresponding check.
type Limits struct {
	// MaxDailyLoss halts trading once cumulative realized losses for the
	// day reach this amount.
	MaxDailyLoss float64
	// MaxTradesPerDay caps position entries per day.
	MaxTradesPerDay int
	// MaxExposurePerSymbol caps reserved margin per symbol.
	MaxExposurePerSymbol float64
	// TradingDays lists the weekdays trading is allowed on. Empty means
	// every day.
	TradingDays []string
}

// DefaultLimits returns Limits with sensible default values.
func DefaultLimits() Limits {
	return Limits{
		MaxDailyLoss:    5000,
		MaxTradesPerDay: 10,
		TradingDays: []string{
			"Monday", "Tuesday", "Wednesday", "Thursday", "Friday",
		},
	}
}

// CheckResult represents the outcome of an entry check.
type CheckResult struct {
	// Allowed indicates whether the entry is permitted.
	Allowed bool
	// Reason provides explanation when the entry is denied.
	Reason string
}

// Guard tracks per-day counters against its limits. Days are delimited
// by the trading date of the candles driving the simulation, not the
// wall clock, so replays of historical data keep correct day boundaries.
// All methods are safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	logger *zap.Logger
	limits Limits

	currentDate string
	tradeCount  int
	dailyLoss   float64
	locked      bool
	lockReason  string
}

// NewGuard creates an unlocked guard with the given limits.
func NewGuard(limits Limits, logger ...*zap.Logger) *Guard {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Guard{logger: l, limits: limits}
}

// Observe rolls the guard's day forward when a candle lands on a new
// trading date. Rolling resets the trade count and daily loss and clears
// the lock.
func (g *Guard) Observe(tradingDate string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if tradingDate == "" || tradingDate == g.currentDate {
		return
	}
	if g.currentDate != "" {
		g.logger.Info("trading day rolled",
			zap.String("from", g.currentDate),
			zap.String("to", tradingDate),
			zap.Int("trades", g.tradeCount),
			zap.Float64("daily_loss", g.dailyLoss),
		)
	}
	g.currentDate = tradingDate
	g.tradeCount = 0
	g.dailyLoss = 0
	g.locked = false
	g.lockReason = ""
}

// CheckAndRecordTrade atomically validates a prospective entry and, when
// allowed, counts it against the daily trade cap. symbolExposure is the
// margin already reserved for the symbol; addedExposure is the margin the
// entry would add.
func (g *Guard) CheckAndRecordTrade(ts time.Time, symbolExposure, addedExposure float64) CheckResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.tradingDayAllowed(ts) {
		return CheckResult{Reason: fmt.Sprintf("not a trading day: %s", ts.Weekday())}
	}
	if g.locked {
		return CheckResult{Reason: g.lockReason}
	}
	if g.limits.MaxTradesPerDay > 0 && g.tradeCount >= g.limits.MaxTradesPerDay {
		return CheckResult{Reason: fmt.Sprintf(
			"daily trade cap reached: %d >= %d", g.tradeCount, g.limits.MaxTradesPerDay)}
	}
	if g.limits.MaxExposurePerSymbol > 0 &&
		symbolExposure+addedExposure > g.limits.MaxExposurePerSymbol {
		return CheckResult{Reason: fmt.Sprintf(
			"symbol exposure %.2f would exceed cap %.2f",
			symbolExposure+addedExposure, g.limits.MaxExposurePerSymbol)}
	}

	g.tradeCount++
	return CheckResult{Allowed: true}
}

// ReleaseTrade returns a trade slot counted by CheckAndRecordTrade, for
// entries that passed the check but failed downstream.
func (g *Guard) ReleaseTrade() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tradeCount > 0 {
		g.tradeCount--
	}
}

// RecordRealizedLoss accumulates a trade's realized loss against the
// daily limit. Profits do not shrink the accumulator. The guard locks
// once the day's losses reach the limit and stays locked until Unlock or
// the next trading day.
func (g *Guard) RecordRealizedLoss(loss float64) {
	if loss <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyLoss += loss
	if g.limits.MaxDailyLoss > 0 && g.dailyLoss >= g.limits.MaxDailyLoss && !g.locked {
		g.locked = true
		g.lockReason = fmt.Sprintf(
			"daily loss limit reached: %.2f >= %.2f", g.dailyLoss, g.limits.MaxDailyLoss)
		g.logger.Warn("risk lock engaged", zap.String("reason", g.lockReason))
	}
}

// Locked reports whether the guard is refusing new entries, with the
// reason.
func (g *Guard) Locked() (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked, g.lockReason
}

// Unlock clears the lock manually without resetting the day's counters.
// The guard relocks on the next recorded loss if the limit is still
// breached by a further loss.
func (g *Guard) Unlock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.locked {
		return
	}
	g.locked = false
	g.lockReason = ""
	g.dailyLoss = 0
	g.logger.Info("risk lock cleared manually")
}

// Lock engages the lock manually, for operator-initiated halts.
func (g *Guard) Lock(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked = true
	g.lockReason = reason
	g.logger.Warn("risk lock engaged", zap.String("reason", reason))
}

// State is the persistable form of the guard's counters.
type State struct {
	Date       string  `json:"date"`
	Trades     int     `json:"trades"`
	DailyLoss  float64 `json:"daily_loss"`
	Locked     bool    `json:"locked"`
	LockReason string  `json:"lock_reason,omitempty"`
}

// Snapshot returns the guard's current state for persistence.
func (g *Guard) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		Date:       g.currentDate,
		Trades:     g.tradeCount,
		DailyLoss:  g.dailyLoss,
		Locked:     g.locked,
		LockReason: g.lockReason,
	}
}

// Restore replaces the guard's counters with persisted state.
func (g *Guard) Restore(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentDate = s.Date
	g.tradeCount = s.Trades
	g.dailyLoss = s.DailyLoss
	g.locked = s.Locked
	g.lockReason = s.LockReason
}

// Stats returns the guard's current counters.
func (g *Guard) Stats() (date string, trades int, dailyLoss float64, locked bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentDate, g.tradeCount, g.dailyLoss, g.locked
}

func (g *Guard) tradingDayAllowed(ts time.Time) bool {
	if len(g.limits.TradingDays) == 0 {
		return true
	}
	day := ts.Weekday().String()
	for _, d := range g.limits.TradingDays {
		if d == day {
			return true
		}
	}
	return false
}
