// Package indicator implements the technical indicator math used by the
// condition evaluator. All functions operate on chronological series and
// return a shorter, right-aligned series: the last element always
// corresponds to the last input bar. Insufficient input returns an empty
// slice rather than an error.
package indicator

import "math"

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// EMA calculates Exponential Moving Average, seeded with the SMA of the
// first period values.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)
	multiplier := 2.0 / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	result = append(result, ema)

	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result = append(result, ema)
	}

	return result
}

// RSI calculates the Relative Strength Index with Wilder smoothing.
// Returns slice of length: len(prices) - period. A value of 100 means the
// window contained no losses at all.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period+1 {
		return []float64{}
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	result := make([]float64, 0, len(prices)-period)
	result = append(result, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		result = append(result, rsiValue(avgGain, avgLoss))
	}

	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACD calculates the MACD line (fast EMA minus slow EMA).
// Returns slice of length: len(prices) - slow + 1.
func MACD(prices []float64, fast, slow int) []float64 {
	if fast <= 0 || slow <= fast || len(prices) < slow {
		return []float64{}
	}

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	// Both series are right-aligned; trim the fast series to match.
	offset := len(fastEMA) - len(slowEMA)
	result := make([]float64, len(slowEMA))
	for i := range slowEMA {
		result[i] = fastEMA[i+offset] - slowEMA[i]
	}
	return result
}

// Bollinger calculates the Bollinger middle band (SMA) with the upper and
// lower bands at stdDev standard deviations. Series share the SMA alignment.
func Bollinger(prices []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	middle = SMA(prices, period)
	if len(middle) == 0 {
		return nil, middle, nil
	}

	upper = make([]float64, len(middle))
	lower = make([]float64, len(middle))
	for i := range middle {
		window := prices[i : i+period]
		var variance float64
		for _, p := range window {
			d := p - middle[i]
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + stdDev*sd
		lower[i] = middle[i] - stdDev*sd
	}
	return upper, middle, lower
}

// ADX calculates the Average Directional Index with Wilder smoothing.
// Needs at least 2*period+1 bars; returns a right-aligned series.
func ADX(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period <= 0 || len(highs) != n || len(lows) != n || n < 2*period+1 {
		return []float64{}
	}

	// True range and directional movement per bar.
	tr := make([]float64, n-1)
	plusDM := make([]float64, n-1)
	minusDM := make([]float64, n-1)
	for i := 1; i < n; i++ {
		tr[i-1] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))

		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	// Wilder-smoothed TR and DM.
	var smTR, smPlus, smMinus float64
	for i := 0; i < period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := make([]float64, 0, len(tr)-period+1)
	dx = append(dx, dxValue(smPlus, smMinus, smTR))
	for i := period; i < len(tr); i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dx = append(dx, dxValue(smPlus, smMinus, smTR))
	}

	if len(dx) < period {
		return []float64{}
	}

	// ADX is the Wilder smoothing of DX.
	var adx float64
	for i := 0; i < period; i++ {
		adx += dx[i]
	}
	adx /= float64(period)

	result := make([]float64, 0, len(dx)-period+1)
	result = append(result, adx)
	for i := period; i < len(dx); i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		result = append(result, adx)
	}
	return result
}

func dxValue(plus, minus, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	plusDI := 100 * plus / tr
	minusDI := 100 * minus / tr
	sum := plusDI + minusDI
	if sum == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / sum
}
