// Package condition models strategy entry/exit conditions and evaluates
// them against a rolling candle window.
package condition

import (
	"fmt"
	"math"
)

// Indicator identifies the technical indicator a condition reads.
type Indicator string

const (
	IndicatorPrice     Indicator = "PRICE"
	IndicatorVolume    Indicator = "VOLUME"
	IndicatorSMA       Indicator = "SMA"
	IndicatorEMA       Indicator = "EMA"
	IndicatorRSI       Indicator = "RSI"
	IndicatorVWAP      Indicator = "VWAP"
	IndicatorMACD      Indicator = "MACD"
	IndicatorADX       Indicator = "ADX"
	IndicatorBollinger Indicator = "BOLLINGER"
)

// Operator is the comparison applied between indicator value and threshold.
type Operator string

const (
	OpGreaterThan      Operator = "GT"
	OpLessThan         Operator = "LT"
	OpGreaterThanEqual Operator = "GTE"
	OpLessThanEqual    Operator = "LTE"
	OpEquals           Operator = "EQ"
	OpCrossAbove       Operator = "CROSS_ABOVE"
	OpCrossBelow       Operator = "CROSS_BELOW"
)

// Logic is the connector applied against the running result of the
// preceding conditions in the same list.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition is a single indicator-threshold test. The Logic connector of
// the first condition in a list has no predecessor and is ignored.
type Condition struct {
	Indicator Indicator `json:"indicator"`
	Operator  Operator  `json:"operator"`
	Value     float64   `json:"value"`
	Period    int       `json:"period,omitempty"`
	Logic     Logic     `json:"logic,omitempty"`
}

// equalsTolerance is the band within which EQ comparisons match.
const equalsTolerance = 0.01

// DefaultPeriod returns the lookback used when a condition leaves Period
// unset.
func DefaultPeriod(ind Indicator) int {
	switch ind {
	case IndicatorRSI, IndicatorADX:
		return 14
	case IndicatorSMA, IndicatorEMA, IndicatorBollinger, IndicatorVWAP:
		return 20
	case IndicatorMACD:
		return 26
	default:
		return 1
	}
}

// EffectivePeriod resolves the condition's lookback period.
func (c Condition) EffectivePeriod() int {
	if c.Period > 0 {
		return c.Period
	}
	return DefaultPeriod(c.Indicator)
}

// String renders a condition for activity and validation messages.
func (c Condition) String() string {
	return fmt.Sprintf("%s(%d) %s %g", c.Indicator, c.EffectivePeriod(), c.Operator, c.Value)
}

var knownIndicators = map[Indicator]struct{}{
	IndicatorPrice: {}, IndicatorVolume: {}, IndicatorSMA: {}, IndicatorEMA: {},
	IndicatorRSI: {}, IndicatorVWAP: {}, IndicatorMACD: {}, IndicatorADX: {},
	IndicatorBollinger: {},
}

var knownOperators = map[Operator]struct{}{
	OpGreaterThan: {}, OpLessThan: {}, OpGreaterThanEqual: {}, OpLessThanEqual: {},
	OpEquals: {}, OpCrossAbove: {}, OpCrossBelow: {},
}

// ValidationResult carries structural errors and advisory warnings for a
// condition list. Errors block activation; warnings do not.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks a condition list for structural completeness. It does
// not evaluate against market data.
func Validate(conditions []Condition) ValidationResult {
	var errs, warns []string

	if len(conditions) == 0 {
		errs = append(errs, "at least one condition is required")
	}

	for i, c := range conditions {
		label := fmt.Sprintf("condition %d", i+1)

		if _, ok := knownIndicators[c.Indicator]; !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown indicator %q", label, c.Indicator))
		}
		if _, ok := knownOperators[c.Operator]; !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown operator %q", label, c.Operator))
		}
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			errs = append(errs, fmt.Sprintf("%s: threshold must be a finite number", label))
		}
		if c.Period < 0 || c.Period > 500 {
			errs = append(errs, fmt.Sprintf("%s: period %d outside valid range 0..500", label, c.Period))
		}
		if i > 0 && c.Logic != "" && c.Logic != LogicAnd && c.Logic != LogicOr {
			errs = append(errs, fmt.Sprintf("%s: logic connector must be AND or OR, got %q", label, c.Logic))
		}

		if c.Indicator == IndicatorRSI && (c.Value < 0 || c.Value > 100) {
			warns = append(warns, fmt.Sprintf("%s: RSI threshold %g outside 0..100 can never trigger", label, c.Value))
		}
		if c.Indicator == IndicatorADX && (c.Value < 0 || c.Value > 100) {
			warns = append(warns, fmt.Sprintf("%s: ADX threshold %g outside 0..100 can never trigger", label, c.Value))
		}
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}
