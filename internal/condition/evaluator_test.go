package condition_test

import (
	"testing"
	"time"

	"github.com/TalariManohar018/papertrade/internal/condition"
	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/stretchr/testify/assert"
)

// candles builds a chronological series of flat candles from closes.
func candles(closes ...float64) []core.Candle {
	start := time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC)
	out := make([]core.Candle, len(closes))
	for i, c := range closes {
		out[i] = core.Candle{
			Symbol:    "NIFTY",
			Timeframe: "1m",
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return out
}

func TestEvaluate_EmptyInputs(t *testing.T) {
	e := condition.NewEvaluator()

	assert.False(t, e.Evaluate(nil, candles(100)))
	assert.False(t, e.Evaluate([]condition.Condition{
		{Indicator: condition.IndicatorPrice, Operator: condition.OpGreaterThan, Value: 1},
	}, nil))
}

func TestEvaluate_PriceComparisons(t *testing.T) {
	e := condition.NewEvaluator()
	history := candles(100, 105)

	tests := []struct {
		name string
		op   condition.Operator
		val  float64
		want bool
	}{
		{"greater than true", condition.OpGreaterThan, 104, true},
		{"greater than false", condition.OpGreaterThan, 105, false},
		{"less than true", condition.OpLessThan, 106, true},
		{"gte at boundary", condition.OpGreaterThanEqual, 105, true},
		{"lte at boundary", condition.OpLessThanEqual, 105, true},
		{"equals within tolerance", condition.OpEquals, 105.005, true},
		{"equals outside tolerance", condition.OpEquals, 105.02, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate([]condition.Condition{
				{Indicator: condition.IndicatorPrice, Operator: tt.op, Value: tt.val},
			}, history)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_LeftFoldOrder(t *testing.T) {
	// With price 105: A(price>200)=false, B(price>100)=true, C(price>200)=false.
	// Left fold: ((false OR true) AND false) = false
	// Right-associative grouping would give: false OR (true AND false)=false... pick
	// thresholds where the grouping actually differs:
	// A=false, B=true (OR), C=true (AND):
	//   left fold: ((false OR true) AND true) = true
	// A=true, B=false (AND), C=true (OR):
	//   left fold: ((true AND false) OR true) = true
	//   precedence grouping (AND binds tighter): true AND (false OR true)... also true.
	// Decisive case: A=false (seed), B=false (AND), C=true (OR)
	//   left fold: ((false AND false) OR true) = true
	//   conventional precedence: false AND (false OR true) = false
	e := condition.NewEvaluator()
	history := candles(100, 105)

	price := func(op condition.Operator, v float64, logic condition.Logic) condition.Condition {
		return condition.Condition{Indicator: condition.IndicatorPrice, Operator: op, Value: v, Logic: logic}
	}

	list := []condition.Condition{
		price(condition.OpGreaterThan, 200, ""),                 // false
		price(condition.OpGreaterThan, 200, condition.LogicAnd), // false
		price(condition.OpGreaterThan, 100, condition.LogicOr),  // true
	}
	assert.True(t, e.Evaluate(list, history), "left fold must evaluate ((A AND B) OR C)")

	list = []condition.Condition{
		price(condition.OpGreaterThan, 100, ""),                 // true
		price(condition.OpGreaterThan, 100, condition.LogicOr),  // true
		price(condition.OpGreaterThan, 200, condition.LogicAnd), // false
	}
	assert.False(t, e.Evaluate(list, history), "left fold must evaluate ((A OR B) AND C)")
}

func TestEvaluate_FirstConditionLogicIgnored(t *testing.T) {
	e := condition.NewEvaluator()
	history := candles(100, 105)

	// A lone false condition with an OR connector must not default to true.
	list := []condition.Condition{
		{Indicator: condition.IndicatorPrice, Operator: condition.OpGreaterThan, Value: 200, Logic: condition.LogicOr},
	}
	assert.False(t, e.Evaluate(list, history))
}

func TestEvaluate_CrossAbove(t *testing.T) {
	e := condition.NewEvaluator()
	cross := condition.Condition{
		Indicator: condition.IndicatorPrice,
		Operator:  condition.OpCrossAbove,
		Value:     102,
	}

	assert.True(t, e.Evaluate([]condition.Condition{cross}, candles(100, 105)),
		"prior below threshold, current above: cross fires")
	assert.True(t, e.Evaluate([]condition.Condition{cross}, candles(102, 105)),
		"prior exactly at threshold counts as below")
	assert.False(t, e.Evaluate([]condition.Condition{cross}, candles(103, 105)),
		"already above before: no cross")
	assert.False(t, e.Evaluate([]condition.Condition{cross}, candles(105)),
		"a single sample can never cross")
}

func TestEvaluate_CrossBelow(t *testing.T) {
	e := condition.NewEvaluator()
	cross := condition.Condition{
		Indicator: condition.IndicatorPrice,
		Operator:  condition.OpCrossBelow,
		Value:     102,
	}

	assert.True(t, e.Evaluate([]condition.Condition{cross}, candles(105, 100)))
	assert.False(t, e.Evaluate([]condition.Condition{cross}, candles(101, 100)),
		"already below before: no cross")
}

func TestEvaluate_InsufficientHistoryIsFalse(t *testing.T) {
	e := condition.NewEvaluator()

	// RSI(14) over two candles cannot be computed and must not error.
	list := []condition.Condition{
		{Indicator: condition.IndicatorRSI, Operator: condition.OpGreaterThan, Value: 0, Period: 14},
	}
	assert.False(t, e.Evaluate(list, candles(100, 105)))

	// Even OR-ing with an always-true condition, the starved leg stays false.
	list = []condition.Condition{
		{Indicator: condition.IndicatorRSI, Operator: condition.OpGreaterThan, Value: 0, Period: 14},
		{Indicator: condition.IndicatorPrice, Operator: condition.OpGreaterThan, Value: 0, Logic: condition.LogicOr},
	}
	assert.True(t, e.Evaluate(list, candles(100, 105)), "OR with a computable condition still folds")
}

func TestEvaluate_RSIOversoldNeverFiresOnMonotonicRise(t *testing.T) {
	// Two ascending closes 100 -> 105: RSI has no losses, so an
	// RSI < 30 entry condition must never be true.
	e := condition.NewEvaluator()
	list := []condition.Condition{
		{Indicator: condition.IndicatorRSI, Operator: condition.OpLessThan, Value: 30, Period: 1},
	}
	assert.False(t, e.Evaluate(list, candles(100, 105)))
}

func TestEvaluate_VolumeIndicator(t *testing.T) {
	e := condition.NewEvaluator()
	history := candles(100)
	history[0].Volume = 5000

	list := []condition.Condition{
		{Indicator: condition.IndicatorVolume, Operator: condition.OpGreaterThanEqual, Value: 5000},
	}
	assert.True(t, e.Evaluate(list, history))
}

func TestEvaluate_SMAWithWarmHistory(t *testing.T) {
	e := condition.NewEvaluator()

	list := []condition.Condition{
		{Indicator: condition.IndicatorSMA, Operator: condition.OpGreaterThan, Value: 102, Period: 3},
	}
	// SMA(3) of last window [103,104,105] = 104 > 102.
	assert.True(t, e.Evaluate(list, candles(101, 102, 103, 104, 105)))
}
