package condition

import (
	"math"

	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/TalariManohar018/papertrade/internal/indicator"
	"go.uber.org/zap"
)

// Evaluator turns a condition list and a candle history into a boolean
// entry/exit signal.
//
// Conditions combine strictly left to right: the first condition seeds the
// running result and every later condition applies its own AND/OR connector
// against that running result. The fold is deliberately not grouped by
// boolean precedence; strategies depend on this order.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(logger ...*zap.Logger) *Evaluator {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Evaluator{logger: l}
}

// Evaluate folds the condition list over the candle history. A condition
// whose indicator cannot be computed from the available history evaluates
// to false, so strategies cannot fire before their lookback is warm.
func (e *Evaluator) Evaluate(conditions []Condition, history []core.Candle) bool {
	if len(conditions) == 0 || len(history) == 0 {
		return false
	}

	result := e.evaluateOne(conditions[0], history)
	for _, c := range conditions[1:] {
		next := e.evaluateOne(c, history)
		if c.Logic == LogicOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

// evaluateOne computes the condition's indicator series over the trailing
// window and applies the comparison against the threshold.
func (e *Evaluator) evaluateOne(c Condition, history []core.Candle) bool {
	series := e.series(c, history)
	if len(series) == 0 {
		return false
	}

	current := series[len(series)-1]

	switch c.Operator {
	case OpGreaterThan:
		return current > c.Value
	case OpLessThan:
		return current < c.Value
	case OpGreaterThanEqual:
		return current >= c.Value
	case OpLessThanEqual:
		return current <= c.Value
	case OpEquals:
		return math.Abs(current-c.Value) < equalsTolerance
	case OpCrossAbove:
		if len(series) < 2 {
			return false
		}
		prior := series[len(series)-2]
		return prior <= c.Value && current > c.Value
	case OpCrossBelow:
		if len(series) < 2 {
			return false
		}
		prior := series[len(series)-2]
		return prior >= c.Value && current < c.Value
	default:
		e.logger.Warn("unknown condition operator", zap.String("operator", string(c.Operator)))
		return false
	}
}

// series returns the right-aligned indicator value series for a condition.
func (e *Evaluator) series(c Condition, history []core.Candle) []float64 {
	period := c.EffectivePeriod()

	switch c.Indicator {
	case IndicatorPrice:
		return closes(history)
	case IndicatorVolume:
		out := make([]float64, len(history))
		for i, bar := range history {
			out[i] = float64(bar.Volume)
		}
		return out
	case IndicatorSMA:
		return indicator.SMA(closes(history), period)
	case IndicatorEMA:
		return indicator.EMA(closes(history), period)
	case IndicatorRSI:
		return indicator.RSI(closes(history), period)
	case IndicatorMACD:
		fast := 12
		if period != DefaultPeriod(IndicatorMACD) {
			fast = (period + 1) / 2
		}
		return indicator.MACD(closes(history), fast, period)
	case IndicatorADX:
		highs := make([]float64, len(history))
		lows := make([]float64, len(history))
		for i, bar := range history {
			highs[i] = bar.High
			lows[i] = bar.Low
		}
		return indicator.ADX(highs, lows, closes(history), period)
	case IndicatorBollinger:
		_, middle, _ := indicator.Bollinger(closes(history), period, 2)
		return middle
	case IndicatorVWAP:
		return vwap(history, period)
	default:
		return nil
	}
}

func closes(history []core.Candle) []float64 {
	out := make([]float64, len(history))
	for i, bar := range history {
		out[i] = bar.Close
	}
	return out
}

// vwap computes a rolling volume-weighted average of the typical price.
// Bars with zero volume fall back to the typical price itself.
func vwap(history []core.Candle, period int) []float64 {
	if len(history) < period {
		return nil
	}

	out := make([]float64, 0, len(history)-period+1)
	for i := period - 1; i < len(history); i++ {
		var pv, vol float64
		for _, bar := range history[i-period+1 : i+1] {
			typical := (bar.High + bar.Low + bar.Close) / 3
			pv += typical * float64(bar.Volume)
			vol += float64(bar.Volume)
		}
		if vol == 0 {
			out = append(out, (history[i].High+history[i].Low+history[i].Close)/3)
			continue
		}
		out = append(out, pv/vol)
	}
	return out
}
