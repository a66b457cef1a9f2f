// Package state persists the engine's books: wallet, positions, orders,
// trades, risk counters, strategy definitions, and the activity feed.
// Implementations are swappable; the engine only requires load/save
// semantics per entity plus bulk snapshot operations.
package state

import (
	"context"
	"time"

	"github.com/TalariManohar018/papertrade/internal/activity"
	"github.com/TalariManohar018/papertrade/internal/ledger"
	"github.com/TalariManohar018/papertrade/internal/risk"
	"github.com/TalariManohar018/papertrade/internal/strategy"
)

// State is the full persisted snapshot of the engine.
type State struct {
	Wallet     ledger.WalletState    `json:"wallet"`
	Positions  []ledger.Position     `json:"positions"`
	Orders     []ledger.Order        `json:"orders"`
	Trades     []ledger.Trade        `json:"trades"`
	Risk       risk.State            `json:"risk"`
	Strategies []strategy.Definition `json:"strategies"`
	Activity   []activity.Event      `json:"activity"`
	SavedAt    time.Time             `json:"saved_at"`
}

// Store defines the persistence adapter. Loads of absent entities return
// the zero value and false rather than an error.
type Store interface {
	SaveWallet(ctx context.Context, w ledger.WalletState) error
	LoadWallet(ctx context.Context) (ledger.WalletState, bool, error)

	SavePositions(ctx context.Context, positions []ledger.Position) error
	LoadPositions(ctx context.Context) ([]ledger.Position, error)

	SaveOrders(ctx context.Context, orders []ledger.Order) error
	LoadOrders(ctx context.Context) ([]ledger.Order, error)

	SaveTrades(ctx context.Context, trades []ledger.Trade) error
	LoadTrades(ctx context.Context) ([]ledger.Trade, error)

	SaveRisk(ctx context.Context, s risk.State) error
	LoadRisk(ctx context.Context) (risk.State, bool, error)

	SaveStrategy(ctx context.Context, def strategy.Definition) error
	DeleteStrategy(ctx context.Context, id string) error
	LoadStrategies(ctx context.Context) ([]strategy.Definition, error)

	SaveActivity(ctx context.Context, events []activity.Event) error
	LoadActivity(ctx context.Context) ([]activity.Event, error)

	// SaveState persists a full snapshot atomically where the backend
	// allows it.
	SaveState(ctx context.Context, s State) error
	// LoadState reassembles the last saved snapshot.
	LoadState(ctx context.Context) (*State, error)

	// Clear wipes all persisted state.
	Clear(ctx context.Context) error

	Close() error
}
