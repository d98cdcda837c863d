package indicator

import "math"

// Band is one point of a rolling band series.
type Band struct {
	Mean  float64
	Upper float64
	Lower float64
}

// RollingBands computes mean ± width·σ over a trailing window for every point.
// Points before the window fills are NaN.
func RollingBands(closes []float64, period int, width float64) []Band {
	out := make([]Band, len(closes))
	nan := math.NaN()
	for i := range closes {
		if period <= 0 || i+1 < period {
			out[i] = Band{Mean: nan, Upper: nan, Lower: nan}
			continue
		}
		mean, std := MeanStd(closes[:i+1], period)
		out[i] = Band{Mean: mean, Upper: mean + width*std, Lower: mean - width*std}
	}
	return out
}
