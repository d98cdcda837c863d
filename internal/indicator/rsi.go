package indicator

import "math"

// RSI returns the oscillator value at the last point of closes.
// NaN when closes is empty.
func RSI(closes []float64, period int) float64 {
	series := RSISeries(closes, period)
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// RSISeries computes the oscillator for every point. Gains and losses are smoothed
// recursively with alpha = 1/period, each stream seeded with its first raw value; the
// first point has no predecessor and contributes a zero gain and loss.
func RSISeries(closes []float64, period int) []float64 {
	if len(closes) == 0 || period <= 0 {
		return nil
	}
	alpha := 1.0 / float64(period)

	out := make([]float64, len(closes))
	var avgGain, avgLoss float64
	for i := range closes {
		gain, loss := 0.0, 0.0
		if i > 0 {
			delta := closes[i] - closes[i-1]
			if delta > 0 {
				gain = delta
			} else if delta < 0 {
				loss = -delta
			}
		}

		if i == 0 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		out[i] = oscillator(avgGain, avgLoss)
	}
	return out
}

func oscillator(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
