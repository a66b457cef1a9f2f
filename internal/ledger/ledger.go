package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Costs models the execution frictions applied to simulated fills.
type Costs struct {
	// MarginFactor scales notional value into reserved margin.
	MarginFactor float64
	// SlippagePct shifts fills against the taker, as a fraction of price.
	SlippagePct float64
	// CommissionPct is charged on each fill's notional value.
	CommissionPct float64
}

// Ledger tracks the wallet and all positions, orders, and trades. One
// open position is allowed per (strategy, symbol) pair. All methods are
// safe for concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	costs     Costs
	wallet    WalletState
	positions map[string]*Position // strategyID|symbol -> position
	orders    []Order
	trades    []Trade
	now       func() time.Time
}

// NewLedger creates a ledger seeded with the given cash balance.
func NewLedger(initialBalance float64, costs Costs, logger ...*zap.Logger) *Ledger {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	if costs.MarginFactor <= 0 {
		costs.MarginFactor = 1
	}
	return &Ledger{
		logger: l,
		costs:  costs,
		wallet: WalletState{
			Balance:   initialBalance,
			UpdatedAt: time.Now(),
		},
		positions: make(map[string]*Position),
		now:       time.Now,
	}
}

// SetClock injects a time source for deterministic tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func positionKey(strategyID, symbol string) string {
	return strategyID + "|" + symbol
}

// fillPrice applies slippage against the taker: buys fill above the
// market price, sells below it.
func (l *Ledger) fillPrice(price float64, buying bool) float64 {
	if buying {
		return price * (1 + l.costs.SlippagePct)
	}
	return price * (1 - l.costs.SlippagePct)
}

// EstimateMargin returns the margin a fill at the given price would
// reserve, before slippage.
func (l *Ledger) EstimateMargin(qty int64, price float64) float64 {
	return price * float64(qty) * l.costs.MarginFactor
}

// OpenPosition opens a new position for a strategy at the given market
// price. The fill reserves margin and charges commission up front; if the
// free balance cannot cover both, the order is recorded as rejected and
// core.ErrInsufficientMargin is returned.
func (l *Ledger) OpenPosition(strategyID, symbol string, side core.Side, qty int64, price float64) (*Position, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := positionKey(strategyID, symbol)
	if _, exists := l.positions[key]; exists {
		return nil, ErrPositionExists
	}

	ts := l.now()
	fill := l.fillPrice(price, side == core.SideLong)
	notional := fill * float64(qty)
	margin := notional * l.costs.MarginFactor
	commission := notional * l.costs.CommissionPct

	order := Order{
		ID:         uuid.NewString(),
		StrategyID: strategyID,
		Symbol:     symbol,
		Side:       side,
		Type:       core.OrderTypeMarket,
		Quantity:   qty,
		Price:      price,
		FillPrice:  fill,
		Commission: commission,
		PlacedAt:   ts,
	}

	if margin+commission > l.wallet.Balance {
		order.Status = OrderStatusRejected
		order.RejectionReason = fmt.Sprintf(
			"margin %.2f + commission %.2f exceeds balance %.2f",
			margin, commission, l.wallet.Balance)
		l.orders = append(l.orders, order)
		l.logger.Warn("order rejected",
			zap.String("strategy_id", strategyID),
			zap.String("symbol", symbol),
			zap.String("reason", order.RejectionReason),
		)
		return nil, core.WrapError(core.ErrInsufficientMargin,
			fmt.Errorf("need %.2f, have %.2f", margin+commission, l.wallet.Balance))
	}

	order.Status = OrderStatusFilled
	l.orders = append(l.orders, order)

	pos := &Position{
		ID:              uuid.NewString(),
		StrategyID:      strategyID,
		Symbol:          symbol,
		Side:            side,
		Quantity:        qty,
		EntryPrice:      fill,
		Margin:          margin,
		EntryCommission: commission,
		OpenedAt:        ts,
	}
	l.positions[key] = pos

	l.wallet.Balance -= margin + commission
	l.wallet.MarginUsed += margin
	l.wallet.UpdatedAt = ts

	l.logger.Info("position opened",
		zap.String("strategy_id", strategyID),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Int64("qty", qty),
		zap.Float64("fill", fill),
		zap.Float64("margin", margin),
	)

	cp := *pos
	return &cp, nil
}

// ClosePosition closes a strategy's position at the given market price
// and returns the completed trade. Margin is released and the realized
// P&L, net of both fills' commissions, lands in the wallet.
func (l *Ledger) ClosePosition(strategyID, symbol string, price float64, reason string) (*Trade, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := positionKey(strategyID, symbol)
	pos, exists := l.positions[key]
	if !exists {
		return nil, ErrPositionNotFound
	}

	ts := l.now()
	fill := l.fillPrice(price, pos.Side == core.SideShort)
	notional := fill * float64(pos.Quantity)
	exitCommission := notional * l.costs.CommissionPct

	gross := pos.UnrealizedPnL(fill)
	net := gross - pos.EntryCommission - exitCommission

	order := Order{
		ID:         uuid.NewString(),
		StrategyID: strategyID,
		Symbol:     symbol,
		Side:       pos.Side.Opposite(),
		Type:       core.OrderTypeMarket,
		Quantity:   pos.Quantity,
		Price:      price,
		FillPrice:  fill,
		Commission: exitCommission,
		Status:     OrderStatusFilled,
		PlacedAt:   ts,
	}
	l.orders = append(l.orders, order)

	trade := Trade{
		ID:         uuid.NewString(),
		StrategyID: strategyID,
		Symbol:     symbol,
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  fill,
		PnL:        net,
		Commission: pos.EntryCommission + exitCommission,
		Reason:     reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   ts,
	}
	l.trades = append(l.trades, trade)

	delete(l.positions, key)
	l.wallet.Balance += pos.Margin + gross - exitCommission
	l.wallet.MarginUsed -= pos.Margin
	l.wallet.RealizedPnL += net
	l.wallet.UpdatedAt = ts

	l.logger.Info("position closed",
		zap.String("strategy_id", strategyID),
		zap.String("symbol", symbol),
		zap.Float64("exit", fill),
		zap.Float64("pnl", net),
		zap.String("reason", reason),
	)

	return &trade, nil
}

// CloseAll force-closes every open position at prices supplied by
// priceOf and returns the resulting trades.
func (l *Ledger) CloseAll(priceOf func(symbol string) float64, reason string) []Trade {
	l.mu.RLock()
	open := make([]*Position, 0, len(l.positions))
	for _, pos := range l.positions {
		cp := *pos
		open = append(open, &cp)
	}
	l.mu.RUnlock()

	trades := make([]Trade, 0, len(open))
	for _, pos := range open {
		price := priceOf(pos.Symbol)
		if price <= 0 {
			price = pos.EntryPrice
		}
		t, err := l.ClosePosition(pos.StrategyID, pos.Symbol, price, reason)
		if err != nil {
			continue
		}
		trades = append(trades, *t)
	}
	return trades
}

// Position returns a copy of the open position for a strategy and symbol.
func (l *Ledger) Position(strategyID, symbol string) (*Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, exists := l.positions[positionKey(strategyID, symbol)]
	if !exists {
		return nil, false
	}
	cp := *pos
	return &cp, true
}

// Positions returns copies of all open positions.
func (l *Ledger) Positions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	return out
}

// Exposure returns the total reserved margin for a symbol across all
// strategies.
func (l *Ledger) Exposure(symbol string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, pos := range l.positions {
		if pos.Symbol == symbol {
			total += pos.Margin
		}
	}
	return total
}

// Orders returns a copy of the order history.
func (l *Ledger) Orders() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// Trades returns a copy of the completed trade history.
func (l *Ledger) Trades() []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Wallet returns a snapshot of the wallet.
func (l *Ledger) Wallet() WalletState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet
}

// UnrealizedPnL marks all open positions to the supplied prices. Symbols
// with no price mark at their entry price.
func (l *Ledger) UnrealizedPnL(prices map[string]float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, pos := range l.positions {
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			continue
		}
		total += pos.UnrealizedPnL(price)
	}
	return total
}

// MarkToMarket returns the total unrealized P&L of a symbol's open
// positions at the given price. Balance is untouched; this is a display
// value.
func (l *Ledger) MarkToMarket(symbol string, price float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, pos := range l.positions {
		if pos.Symbol == symbol && price > 0 {
			total += pos.UnrealizedPnL(price)
		}
	}
	return total
}

// Restore replaces the ledger's books with previously persisted state.
func (l *Ledger) Restore(wallet WalletState, positions []Position, orders []Order, trades []Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.wallet = wallet
	l.positions = make(map[string]*Position, len(positions))
	for i := range positions {
		pos := positions[i]
		l.positions[positionKey(pos.StrategyID, pos.Symbol)] = &pos
	}
	l.orders = append([]Order(nil), orders...)
	l.trades = append([]Trade(nil), trades...)
}
