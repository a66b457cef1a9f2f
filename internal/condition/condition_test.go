package condition_test

import (
	"math"
	"testing"

	"github.com/TalariManohar018/papertrade/internal/condition"
	"github.com/stretchr/testify/assert"
)

func TestValidate_EmptyList(t *testing.T) {
	result := condition.Validate(nil)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "at least one condition")
}

func TestValidate_WellFormed(t *testing.T) {
	result := condition.Validate([]condition.Condition{
		{Indicator: condition.IndicatorRSI, Operator: condition.OpLessThan, Value: 30, Period: 14},
		{Indicator: condition.IndicatorPrice, Operator: condition.OpGreaterThan, Value: 100, Logic: condition.LogicAnd},
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidate_UnknownIndicatorAndOperator(t *testing.T) {
	result := condition.Validate([]condition.Condition{
		{Indicator: "STOCHASTIC", Operator: "BETWEEN", Value: 30},
	})

	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
}

func TestValidate_NonFiniteThreshold(t *testing.T) {
	result := condition.Validate([]condition.Condition{
		{Indicator: condition.IndicatorPrice, Operator: condition.OpGreaterThan, Value: math.NaN()},
	})

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "finite")
}

func TestValidate_PeriodRange(t *testing.T) {
	result := condition.Validate([]condition.Condition{
		{Indicator: condition.IndicatorSMA, Operator: condition.OpGreaterThan, Value: 10, Period: 501},
	})

	assert.False(t, result.Valid)
}

func TestValidate_RSIThresholdWarning(t *testing.T) {
	result := condition.Validate([]condition.Condition{
		{Indicator: condition.IndicatorRSI, Operator: condition.OpGreaterThan, Value: 150},
	})

	assert.True(t, result.Valid, "out-of-range RSI threshold is a warning, not an error")
	assert.Len(t, result.Warnings, 1)
}

func TestValidate_BadLogicConnector(t *testing.T) {
	result := condition.Validate([]condition.Condition{
		{Indicator: condition.IndicatorPrice, Operator: condition.OpGreaterThan, Value: 1},
		{Indicator: condition.IndicatorPrice, Operator: condition.OpLessThan, Value: 2, Logic: "XOR"},
	})

	assert.False(t, result.Valid)
}

func TestEffectivePeriod_Defaults(t *testing.T) {
	c := condition.Condition{Indicator: condition.IndicatorRSI}
	assert.Equal(t, 14, c.EffectivePeriod())

	c = condition.Condition{Indicator: condition.IndicatorEMA}
	assert.Equal(t, 20, c.EffectivePeriod())

	c = condition.Condition{Indicator: condition.IndicatorRSI, Period: 7}
	assert.Equal(t, 7, c.EffectivePeriod())

	c = condition.Condition{Indicator: condition.IndicatorPrice}
	assert.Equal(t, 1, c.EffectivePeriod())
}

func TestCondition_String(t *testing.T) {
	c := condition.Condition{Indicator: condition.IndicatorRSI, Operator: condition.OpLessThan, Value: 30}
	assert.Equal(t, "RSI(14) LT 30", c.String())
}
