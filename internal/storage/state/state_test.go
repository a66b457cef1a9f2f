package state_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/TalariManohar018/papertrade/internal/activity"
	"github.com/TalariManohar018/papertrade/internal/condition"
	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/TalariManohar018/papertrade/internal/ledger"
	"github.com/TalariManohar018/papertrade/internal/risk"
	"github.com/TalariManohar018/papertrade/internal/storage/state"
	"github.com/TalariManohar018/papertrade/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ state.Store = (*state.MemoryStore)(nil)
	_ state.Store = (*state.SQLiteStore)(nil)
)

func stores(t *testing.T) map[string]state.Store {
	t.Helper()
	sqlite, err := state.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]state.Store{
		"memory": state.NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleState() state.State {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return state.State{
		Wallet: ledger.WalletState{
			Balance:     98000,
			MarginUsed:  1000,
			RealizedPnL: -120.5,
			UpdatedAt:   ts,
		},
		Positions: []ledger.Position{{
			ID: "p1", StrategyID: "s1", Symbol: "NIFTY",
			Side: core.SideLong, Quantity: 10, EntryPrice: 100,
			Margin: 1000, OpenedAt: ts,
		}},
		Orders: []ledger.Order{{
			ID: "o1", StrategyID: "s1", Symbol: "NIFTY",
			Side: core.SideLong, Type: core.OrderTypeMarket, Quantity: 10,
			Price: 100, FillPrice: 100, Status: ledger.OrderStatusFilled,
			PlacedAt: ts,
		}},
		Trades: []ledger.Trade{{
			ID: "t1", StrategyID: "s1", Symbol: "NIFTY",
			Side: core.SideLong, Quantity: 5, EntryPrice: 90,
			ExitPrice: 85, PnL: -25, Reason: "stop_loss",
			OpenedAt: ts.Add(-time.Hour), ClosedAt: ts,
		}},
		Risk: risk.State{
			Date: "2026-03-02", Trades: 2, DailyLoss: 120.5,
			Locked: true, LockReason: "daily loss limit reached: 120.50 >= 100.00",
		},
		Strategies: []strategy.Definition{{
			ID: "s1", Name: "rsi dip buyer", Symbol: "NIFTY",
			Side: core.SideLong, Quantity: 10, Status: strategy.StatusActive,
			EntryConditions: []condition.Condition{{
				Indicator: condition.IndicatorRSI,
				Operator:  condition.OpLessThan,
				Value:     30,
				Period:    14,
			}},
			WindowStart: core.TimeOfDay{Hour: 9, Minute: 15},
			WindowEnd:   core.TimeOfDay{Hour: 15, Minute: 0},
			SquareOff:   core.TimeOfDay{Hour: 15, Minute: 15},
			CreatedAt:   ts, UpdatedAt: ts,
		}},
		Activity: []activity.Event{{
			ID: "a1", Type: activity.TypeRisk, StrategyID: "s1",
			Message: "locked", Timestamp: ts,
		}},
		SavedAt: ts,
	}
}

func TestStateRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleState()

			require.NoError(t, store.SaveState(ctx, want))
			got, err := store.LoadState(ctx)
			require.NoError(t, err)

			assert.Equal(t, want.Wallet, got.Wallet)
			assert.Equal(t, want.Risk, got.Risk)
			assert.Equal(t, want.Strategies, got.Strategies)
			assert.Equal(t, want.Positions, got.Positions)
			assert.Equal(t, want.Orders, got.Orders)
			assert.Equal(t, want.Trades, got.Trades)
			assert.Equal(t, want.Activity, got.Activity)
			assert.True(t, want.SavedAt.Equal(got.SavedAt))
		})
	}
}

func TestPerEntitySaves(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sample := sampleState()

			// Absent entities load as zero values without error.
			_, ok, err := store.LoadWallet(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
			positions, err := store.LoadPositions(ctx)
			require.NoError(t, err)
			assert.Empty(t, positions)

			require.NoError(t, store.SaveWallet(ctx, sample.Wallet))
			w, ok, err := store.LoadWallet(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, sample.Wallet, w)

			require.NoError(t, store.SaveRisk(ctx, sample.Risk))
			rs, ok, err := store.LoadRisk(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, sample.Risk, rs)

			require.NoError(t, store.SavePositions(ctx, sample.Positions))
			positions, err = store.LoadPositions(ctx)
			require.NoError(t, err)
			assert.Equal(t, sample.Positions, positions)

			require.NoError(t, store.SaveOrders(ctx, sample.Orders))
			orders, err := store.LoadOrders(ctx)
			require.NoError(t, err)
			assert.Equal(t, sample.Orders, orders)

			require.NoError(t, store.SaveTrades(ctx, sample.Trades))
			trades, err := store.LoadTrades(ctx)
			require.NoError(t, err)
			assert.Equal(t, sample.Trades, trades)

			require.NoError(t, store.SaveActivity(ctx, sample.Activity))
			events, err := store.LoadActivity(ctx)
			require.NoError(t, err)
			assert.Equal(t, sample.Activity, events)
		})
	}
}

func TestStrategySaveUpdateDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			def := sampleState().Strategies[0]

			require.NoError(t, store.SaveStrategy(ctx, def))

			def.Status = strategy.StatusStopped
			require.NoError(t, store.SaveStrategy(ctx, def), "save is an upsert")

			defs, err := store.LoadStrategies(ctx)
			require.NoError(t, err)
			require.Len(t, defs, 1)
			assert.Equal(t, strategy.StatusStopped, defs[0].Status)

			require.NoError(t, store.DeleteStrategy(ctx, def.ID))
			defs, err = store.LoadStrategies(ctx)
			require.NoError(t, err)
			assert.Empty(t, defs)
		})
	}
}

func TestClear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.SaveState(ctx, sampleState()))
			require.NoError(t, store.Clear(ctx))

			_, ok, err := store.LoadWallet(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			defs, err := store.LoadStrategies(ctx)
			require.NoError(t, err)
			assert.Empty(t, defs)
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := state.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveState(ctx, sampleState()))
	require.NoError(t, store.Close())

	reopened, err := state.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState().Wallet, got.Wallet)
	assert.Len(t, got.Strategies, 1)
}
