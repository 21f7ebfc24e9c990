package market

import "math"

// Technical indicator math over close series ordered oldest first.
// Each function reports false when the series is too short.

// SMA returns the simple moving average of the last n values
func SMA(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}

	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

// EMASeries returns the exponential moving average aligned with values.
// The first n-1 points are undefined and returned as NaN; the n-th is
// seeded with the SMA of the first n values.
func EMASeries(values []float64, n int) []float64 {
	if n <= 0 || len(values) < n {
		return nil
	}

	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < n; i++ {
		sum += values[i]
		out[i] = math.NaN()
	}
	ema := sum / float64(n)
	out[n-1] = ema

	multiplier := 2.0 / (float64(n) + 1.0)
	for i := n; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// EMA returns the latest EMA(n)
func EMA(values []float64, n int) (float64, bool) {
	series := EMASeries(values, n)
	if series == nil {
		return 0, false
	}
	return series[len(series)-1], true
}

// RSI returns Wilder's relative strength index over period
func RSI(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// Wilder smoothing for the rest
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true // flat
		}
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACDValue is the latest MACD reading
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD computes MACD(fast, slow) with an EMA(signal) signal line
func MACD(values []float64, fast, slow, signal int) (MACDValue, bool) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(values) < slow+signal-1 {
		return MACDValue{}, false
	}

	fastEMA := EMASeries(values, fast)
	slowEMA := EMASeries(values, slow)

	// MACD line is defined from the slow EMA's first point
	line := make([]float64, 0, len(values)-slow+1)
	for i := slow - 1; i < len(values); i++ {
		line = append(line, fastEMA[i]-slowEMA[i])
	}

	sig, ok := EMA(line, signal)
	if !ok {
		return MACDValue{}, false
	}
	last := line[len(line)-1]
	return MACDValue{MACD: last, Signal: sig, Histogram: last - sig}, true
}

// BollingerValue is the latest Bollinger band reading
type BollingerValue struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger computes bands of k population standard deviations around SMA(n)
func Bollinger(values []float64, n int, k float64) (BollingerValue, bool) {
	mid, ok := SMA(values, n)
	if !ok {
		return BollingerValue{}, false
	}

	var sq float64
	for _, v := range values[len(values)-n:] {
		sq += (v - mid) * (v - mid)
	}
	sd := math.Sqrt(sq / float64(n))

	return BollingerValue{Upper: mid + k*sd, Middle: mid, Lower: mid - k*sd}, true
}
