package risk_test

import (
	"testing"
	"time"

	"github.com/TalariManohar018/papertrade/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monday is a known trading day.
var monday = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestDailyLossLockIsSticky(t *testing.T) {
	g := risk.NewGuard(risk.Limits{MaxDailyLoss: 1000})

	g.RecordRealizedLoss(600)
	locked, _ := g.Locked()
	assert.False(t, locked)

	g.RecordRealizedLoss(400)
	locked, reason := g.Locked()
	assert.True(t, locked)
	assert.Contains(t, reason, "daily loss limit")

	// A later profit neither releases the lock nor offsets the loss.
	g.RecordRealizedLoss(-5000)
	locked, _ = g.Locked()
	assert.True(t, locked, "lock must be sticky across profitable trades")

	res := g.CheckAndRecordTrade(monday, 0, 0)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "daily loss limit")
}

func TestOnlyLossesAccumulate(t *testing.T) {
	g := risk.NewGuard(risk.Limits{MaxDailyLoss: 1000})

	g.RecordRealizedLoss(800)
	g.RecordRealizedLoss(-500) // profit, ignored

	_, _, loss, _ := g.Stats()
	assert.InDelta(t, 800, loss, 1e-9)

	g.RecordRealizedLoss(200)
	locked, _ := g.Locked()
	assert.True(t, locked)
}

func TestTradeCapCountsEntriesOnly(t *testing.T) {
	g := risk.NewGuard(risk.Limits{MaxTradesPerDay: 3})

	for i := 0; i < 3; i++ {
		res := g.CheckAndRecordTrade(monday, 0, 0)
		require.True(t, res.Allowed, "entry %d should pass", i)
	}

	res := g.CheckAndRecordTrade(monday, 0, 0)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "trade cap")

	// Exits do not touch the counter, so recording losses changes nothing.
	g.RecordRealizedLoss(10)
	res = g.CheckAndRecordTrade(monday, 0, 0)
	assert.False(t, res.Allowed)
}

func TestReleaseTradeReturnsSlot(t *testing.T) {
	g := risk.NewGuard(risk.Limits{MaxTradesPerDay: 1})

	require.True(t, g.CheckAndRecordTrade(monday, 0, 0).Allowed)
	assert.False(t, g.CheckAndRecordTrade(monday, 0, 0).Allowed)

	g.ReleaseTrade()
	assert.True(t, g.CheckAndRecordTrade(monday, 0, 0).Allowed)
}

func TestDayRollResetsCountersAndLock(t *testing.T) {
	g := risk.NewGuard(risk.Limits{MaxDailyLoss: 1000, MaxTradesPerDay: 1})
	g.Observe("2026-03-02")

	require.True(t, g.CheckAndRecordTrade(monday, 0, 0).Allowed)
	g.RecordRealizedLoss(1000)
	locked, _ := g.Locked()
	require.True(t, locked)

	// Same date observed again: nothing resets.
	g.Observe("2026-03-02")
	locked, _ = g.Locked()
	assert.True(t, locked)

	// A candle dated the next day rolls the window.
	g.Observe("2026-03-03")
	locked, _ = g.Locked()
	assert.False(t, locked)

	tuesday := monday.AddDate(0, 0, 1)
	res := g.CheckAndRecordTrade(tuesday, 0, 0)
	assert.True(t, res.Allowed)

	_, trades, loss, _ := g.Stats()
	assert.Equal(t, 1, trades)
	assert.Zero(t, loss)
}

func TestTradingDayCalendar(t *testing.T) {
	g := risk.NewGuard(risk.DefaultLimits())

	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	res := g.CheckAndRecordTrade(saturday, 0, 0)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "not a trading day")

	res = g.CheckAndRecordTrade(monday, 0, 0)
	assert.True(t, res.Allowed)

	// Empty calendar allows every day.
	open := risk.NewGuard(risk.Limits{})
	assert.True(t, open.CheckAndRecordTrade(saturday, 0, 0).Allowed)
}

func TestExposureCap(t *testing.T) {
	g := risk.NewGuard(risk.Limits{MaxExposurePerSymbol: 10000})

	res := g.CheckAndRecordTrade(monday, 8000, 1500)
	assert.True(t, res.Allowed)

	res = g.CheckAndRecordTrade(monday, 8000, 2500)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "exposure")
}

func TestManualLockAndUnlock(t *testing.T) {
	g := risk.NewGuard(risk.Limits{MaxDailyLoss: 1000})

	g.Lock("operator halt")
	res := g.CheckAndRecordTrade(monday, 0, 0)
	assert.False(t, res.Allowed)
	assert.Equal(t, "operator halt", res.Reason)

	g.Unlock()
	assert.True(t, g.CheckAndRecordTrade(monday, 0, 0).Allowed)

	// Unlock after a loss lock clears the accumulator too, so a small
	// further loss does not immediately relock.
	g.RecordRealizedLoss(2000)
	g.Unlock()
	g.RecordRealizedLoss(100)
	locked, _ := g.Locked()
	assert.False(t, locked)
}

func TestCheckAndRecordIsAtomic(t *testing.T) {
	g := risk.NewGuard(risk.Limits{MaxTradesPerDay: 50})

	done := make(chan int, 8)
	for w := 0; w < 8; w++ {
		go func() {
			allowed := 0
			for i := 0; i < 25; i++ {
				if g.CheckAndRecordTrade(monday, 0, 0).Allowed {
					allowed++
				}
			}
			done <- allowed
		}()
	}

	total := 0
	for w := 0; w < 8; w++ {
		total += <-done
	}
	assert.Equal(t, 50, total, "exactly the cap must be admitted")
}
