// Package ledger keeps the paper-trading books: wallet balance, margin,
// open positions, and the order and trade history produced by simulated
// fills.
package ledger

import (
	"errors"
	"time"

	"github.com/TalariManohar018/papertrade/internal/core"
)

// Ledger-specific errors.
var (
	// ErrInvalidSymbol indicates an invalid or empty symbol.
	ErrInvalidSymbol = errors.New("ledger: invalid symbol")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("ledger: invalid quantity")
	// ErrInvalidPrice indicates a non-positive price.
	ErrInvalidPrice = errors.New("ledger: invalid price")
	// ErrPositionExists indicates the strategy already holds the symbol.
	ErrPositionExists = errors.New("ledger: position already open")
	// ErrPositionNotFound indicates no open position for the key.
	ErrPositionNotFound = errors.New("ledger: position not found")
)

// OrderStatus represents the lifecycle status of a simulated order.
type OrderStatus string

const (
	// OrderStatusFilled indicates the order filled at the simulated price.
	OrderStatusFilled OrderStatus = "FILLED"
	// OrderStatusRejected indicates the order was refused before filling.
	OrderStatusRejected OrderStatus = "REJECTED"
)

// Order records a simulated order and its immediate outcome. Market
// orders always fill in one shot at the slippage-adjusted price.
type Order struct {
	// ID is the ledger-assigned unique identifier.
	ID string `json:"id"`
	// StrategyID is the owning strategy.
	StrategyID string `json:"strategy_id"`
	// Symbol is the traded instrument.
	Symbol string `json:"symbol"`
	// Side indicates the position direction the order opens or closes.
	Side core.Side `json:"side"`
	// Type specifies the order execution type.
	Type core.OrderType `json:"type"`
	// Quantity is the number of units.
	Quantity int64 `json:"quantity"`
	// Price is the reference market price at placement.
	Price float64 `json:"price"`
	// FillPrice is the slippage-adjusted execution price.
	FillPrice float64 `json:"fill_price"`
	// Commission is the commission charged on the fill.
	Commission float64 `json:"commission"`
	// Status is the order outcome.
	Status OrderStatus `json:"status"`
	// RejectionReason contains the reason if the order was rejected.
	RejectionReason string `json:"rejection_reason,omitempty"`
	// PlacedAt is when the order was placed.
	PlacedAt time.Time `json:"placed_at"`
}

// Position represents an open holding owned by one strategy.
type Position struct {
	// ID is the ledger-assigned unique identifier.
	ID string `json:"id"`
	// StrategyID is the owning strategy.
	StrategyID string `json:"strategy_id"`
	// Symbol is the held instrument.
	Symbol string `json:"symbol"`
	// Side is the position direction.
	Side core.Side `json:"side"`
	// Quantity is the number of units held.
	Quantity int64 `json:"quantity"`
	// EntryPrice is the fill price the position opened at.
	EntryPrice float64 `json:"entry_price"`
	// Margin is the wallet amount reserved while the position is open.
	Margin float64 `json:"margin"`
	// EntryCommission is the commission paid on the opening fill.
	EntryCommission float64 `json:"entry_commission"`
	// OpenedAt is when the position opened.
	OpenedAt time.Time `json:"opened_at"`
}

// UnrealizedPnL returns the mark-to-market profit at the given price.
func (p Position) UnrealizedPnL(price float64) float64 {
	diff := price - p.EntryPrice
	if p.Side == core.SideShort {
		diff = -diff
	}
	return diff * float64(p.Quantity)
}

// Trade records a completed round trip: an opened position that has been
// closed.
type Trade struct {
	// ID is the ledger-assigned unique identifier.
	ID string `json:"id"`
	// StrategyID is the owning strategy.
	StrategyID string `json:"strategy_id"`
	// Symbol is the traded instrument.
	Symbol string `json:"symbol"`
	// Side is the direction of the closed position.
	Side core.Side `json:"side"`
	// Quantity is the number of units.
	Quantity int64 `json:"quantity"`
	// EntryPrice is the opening fill price.
	EntryPrice float64 `json:"entry_price"`
	// ExitPrice is the closing fill price.
	ExitPrice float64 `json:"exit_price"`
	// PnL is the realized profit net of commission.
	PnL float64 `json:"pnl"`
	// Commission is the total commission charged across both fills.
	Commission float64 `json:"commission"`
	// Reason describes what triggered the exit.
	Reason string `json:"reason"`
	// OpenedAt is when the position opened.
	OpenedAt time.Time `json:"opened_at"`
	// ClosedAt is when the position closed.
	ClosedAt time.Time `json:"closed_at"`
}

// WalletState is a point-in-time snapshot of the paper wallet.
type WalletState struct {
	// Balance is the free cash available for new margin.
	Balance float64 `json:"balance"`
	// MarginUsed is the amount reserved by open positions.
	MarginUsed float64 `json:"margin_used"`
	// RealizedPnL is the cumulative net profit from closed trades.
	RealizedPnL float64 `json:"realized_pnl"`
	// UpdatedAt is when the wallet last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Equity returns free cash plus reserved margin.
func (w WalletState) Equity() float64 {
	return w.Balance + w.MarginUsed
}
