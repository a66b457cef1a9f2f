package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/TalariManohar018/papertrade/internal/activity"
	"github.com/TalariManohar018/papertrade/internal/ledger"
	"github.com/TalariManohar018/papertrade/internal/risk"
	"github.com/TalariManohar018/papertrade/internal/strategy"
)

// MemoryStore is an in-memory Store, used in tests and for runs where
// durability does not matter.
type MemoryStore struct {
	mu         sync.RWMutex
	wallet     *ledger.WalletState
	positions  []ledger.Position
	orders     []ledger.Order
	trades     []ledger.Trade
	risk       *risk.State
	strategies map[string]strategy.Definition
	activity   []activity.Event
	savedAt    time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strategies: make(map[string]strategy.Definition),
	}
}

func (m *MemoryStore) SaveWallet(_ context.Context, w ledger.WalletState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallet = &w
	return nil
}

func (m *MemoryStore) LoadWallet(_ context.Context) (ledger.WalletState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.wallet == nil {
		return ledger.WalletState{}, false, nil
	}
	return *m.wallet, true, nil
}

func (m *MemoryStore) SavePositions(_ context.Context, positions []ledger.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = append([]ledger.Position(nil), positions...)
	return nil
}

func (m *MemoryStore) LoadPositions(_ context.Context) ([]ledger.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Position(nil), m.positions...), nil
}

func (m *MemoryStore) SaveOrders(_ context.Context, orders []ledger.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append([]ledger.Order(nil), orders...)
	return nil
}

func (m *MemoryStore) LoadOrders(_ context.Context) ([]ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Order(nil), m.orders...), nil
}

func (m *MemoryStore) SaveTrades(_ context.Context, trades []ledger.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append([]ledger.Trade(nil), trades...)
	return nil
}

func (m *MemoryStore) LoadTrades(_ context.Context) ([]ledger.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Trade(nil), m.trades...), nil
}

func (m *MemoryStore) SaveRisk(_ context.Context, s risk.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.risk = &s
	return nil
}

func (m *MemoryStore) LoadRisk(_ context.Context) (risk.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.risk == nil {
		return risk.State{}, false, nil
	}
	return *m.risk, true, nil
}

func (m *MemoryStore) SaveStrategy(_ context.Context, def strategy.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[def.ID] = def
	return nil
}

func (m *MemoryStore) DeleteStrategy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strategies, id)
	return nil
}

func (m *MemoryStore) LoadStrategies(_ context.Context) ([]strategy.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	defs := make([]strategy.Definition, 0, len(m.strategies))
	for _, def := range m.strategies {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

func (m *MemoryStore) SaveActivity(_ context.Context, events []activity.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append([]activity.Event(nil), events...)
	return nil
}

func (m *MemoryStore) LoadActivity(_ context.Context) ([]activity.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]activity.Event(nil), m.activity...), nil
}

func (m *MemoryStore) SaveState(ctx context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wallet = &s.Wallet
	m.positions = append([]ledger.Position(nil), s.Positions...)
	m.orders = append([]ledger.Order(nil), s.Orders...)
	m.trades = append([]ledger.Trade(nil), s.Trades...)
	m.risk = &s.Risk
	m.strategies = make(map[string]strategy.Definition, len(s.Strategies))
	for _, def := range s.Strategies {
		m.strategies[def.ID] = def
	}
	m.activity = append([]activity.Event(nil), s.Activity...)
	m.savedAt = s.SavedAt
	return nil
}

func (m *MemoryStore) LoadState(ctx context.Context) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &State{
		Positions: append([]ledger.Position(nil), m.positions...),
		Orders:    append([]ledger.Order(nil), m.orders...),
		Trades:    append([]ledger.Trade(nil), m.trades...),
		Activity:  append([]activity.Event(nil), m.activity...),
		SavedAt:   m.savedAt,
	}
	if m.wallet != nil {
		s.Wallet = *m.wallet
	}
	if m.risk != nil {
		s.Risk = *m.risk
	}
	for _, def := range m.strategies {
		s.Strategies = append(s.Strategies, def)
	}
	sort.Slice(s.Strategies, func(i, j int) bool { return s.Strategies[i].ID < s.Strategies[j].ID })
	return s, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wallet = nil
	m.positions = nil
	m.orders = nil
	m.trades = nil
	m.risk = nil
	m.strategies = make(map[string]strategy.Definition)
	m.activity = nil
	m.savedAt = time.Time{}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
