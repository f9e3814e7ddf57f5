package indicators

import "math"

// All functions take closing prices ordered most recent first, matching the
// provider's time-series responses.

// RSI computes the Wilder Relative Strength Index: average gain/loss seeded
// with a simple mean over the first period, then smoothed as
// avg = (avg*(period-1) + new) / period. Zero average loss yields 100.
// ok is false when fewer than period+1 closes are available.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	chron := chronological(closes)

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := chron[i] - chron[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(chron); i++ {
		d := chron[i] - chron[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return round1(100 - 100/(1+rs)), true
}

// SMA returns the simple mean of the period most recent closes.
// ok is false when fewer than period closes are available.
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	sum := 0.0
	for _, c := range closes[:period] {
		sum += c
	}
	return sum / float64(period), true
}

// Momentum returns the percent change between the latest close and the close
// n bars earlier, or 0 when the series is too short.
func Momentum(closes []float64, n int) float64 {
	if n <= 0 || len(closes) <= n || closes[n] == 0 {
		return 0
	}
	return (closes[0] - closes[n]) / closes[n] * 100
}

// DaysAboveMA counts consecutive bars the close stayed above its rolling
// moving average, walking backward from the latest bar and stopping at the
// first miss. The scan is capped at 30 bars. Returns 0 when fewer than
// period+10 closes are available.
func DaysAboveMA(closes []float64, period int) int {
	if period <= 0 || len(closes) < period+10 {
		return 0
	}

	maxOffset := len(closes) - period
	if maxOffset > 30 {
		maxOffset = 30
	}

	days := 0
	for i := 0; i < maxOffset; i++ {
		ma, ok := SMA(closes[i:], period)
		if !ok || closes[i] <= ma {
			break
		}
		days++
	}
	return days
}

func chronological(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i, c := range closes {
		out[len(closes)-1-i] = c
	}
	return out
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
