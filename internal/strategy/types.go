// Package strategy defines declarative strategy definitions and the
// runtime state machine that trades them against the candle stream.
package strategy

import (
	"errors"
	"time"

	"github.com/TalariManohar018/papertrade/internal/condition"
	"github.com/TalariManohar018/papertrade/internal/core"
)

// Strategy-specific errors.
var (
	// ErrInvalidTransition indicates the status change is not legal.
	ErrInvalidTransition = errors.New("strategy: invalid status transition")
	// ErrStillActive indicates the operation needs a stopped strategy.
	ErrStillActive = errors.New("strategy: still active")
)

// Status is the lifecycle state of a strategy.
type Status string

const (
	// StatusCreated means the strategy exists but never traded.
	StatusCreated Status = "CREATED"
	// StatusActive means the strategy is consuming candles.
	StatusActive Status = "ACTIVE"
	// StatusStopped means the strategy was deactivated.
	StatusStopped Status = "STOPPED"
	// StatusError means the strategy hit an unrecoverable fault and needs
	// manual reactivation.
	StatusError Status = "ERROR"
)

// RiskParams holds per-strategy exit thresholds. Percentages are whole
// percent values: StopLossPct 2 exits a long at 2% under entry.
type RiskParams struct {
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	MaxLossPerTrade float64 `json:"max_loss_per_trade"`
	MaxProfitTarget float64 `json:"max_profit_target"`
}

// Definition is a declarative strategy. The runtime reads a snapshot;
// definitions change only through explicit operations.
type Definition struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Symbol     string              `json:"symbol"`
	Instrument core.InstrumentType `json:"instrument"`
	Product    core.ProductType    `json:"product"`
	Timeframe  string              `json:"timeframe"`
	Side       core.Side           `json:"side"`
	Quantity   int64               `json:"quantity"`
	OrderType  core.OrderType      `json:"order_type"`

	EntryConditions []condition.Condition `json:"entry_conditions"`
	ExitConditions  []condition.Condition `json:"exit_conditions"`

	MaxTradesPerDay int            `json:"max_trades_per_day"`
	WindowStart     core.TimeOfDay `json:"window_start"`
	WindowEnd       core.TimeOfDay `json:"window_end"`
	SquareOff       core.TimeOfDay `json:"square_off"`
	Risk            RiskParams     `json:"risk"`

	Status    Status    `json:"status"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasWindow reports whether a trading window is configured.
func (d Definition) HasWindow() bool {
	return d.WindowStart != d.WindowEnd
}

// InWindow reports whether ts falls inside the trading window. An unset
// window admits every timestamp.
func (d Definition) InWindow(ts time.Time) bool {
	if !d.HasWindow() {
		return true
	}
	return d.WindowStart.Contains(d.WindowEnd, ts)
}

// PastSquareOff reports whether ts has reached the square-off cutoff.
// A zero square-off disables the cutoff.
func (d Definition) PastSquareOff(ts time.Time) bool {
	if (d.SquareOff == core.TimeOfDay{}) {
		return false
	}
	return d.SquareOff.AtOrAfter(ts)
}
