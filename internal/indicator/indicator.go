// Package indicator computes Bollinger-style bands and an exponentially smoothed RSI
// over a chronological series of closing prices.
package indicator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientData marks a series too short to evaluate.
var ErrInsufficientData = errors.New("insufficient price history")

// Params tune the calculator.
type Params struct {
	BandPeriod int
	BandWidth  float64
	RSIPeriod  int
	MinPoints  int
}

// DefaultParams mirrors the production settings: 20-period bands at 2σ, RSI 14, 30 points minimum.
func DefaultParams() Params {
	return Params{BandPeriod: 20, BandWidth: 2, RSIPeriod: 14, MinPoints: 30}
}

// Snapshot is the indicator state at the most recent point of a series.
type Snapshot struct {
	Price float64
	Mean  float64
	Upper float64
	Lower float64
	RSI   float64
}

// Compute evaluates the latest point of closes.
func Compute(closes []float64, p Params) (Snapshot, error) {
	if len(closes) == 0 || len(closes) < p.MinPoints || len(closes) < p.BandPeriod {
		return Snapshot{}, fmt.Errorf("%w: %d points, need %d", ErrInsufficientData, len(closes), max(p.MinPoints, p.BandPeriod))
	}
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Snapshot{}, fmt.Errorf("non-finite close at index %d", i)
		}
	}

	mean, std := MeanStd(closes, p.BandPeriod)
	snap := Snapshot{
		Price: closes[len(closes)-1],
		Mean:  mean,
		Upper: mean + p.BandWidth*std,
		Lower: mean - p.BandWidth*std,
		RSI:   RSI(closes, p.RSIPeriod),
	}
	if math.IsNaN(snap.Mean) || math.IsNaN(snap.Upper) || math.IsNaN(snap.Lower) || math.IsNaN(snap.RSI) {
		return Snapshot{}, fmt.Errorf("indicator produced NaN (mean=%v rsi=%v)", snap.Mean, snap.RSI)
	}
	return snap, nil
}

// MeanStd returns the simple mean and population standard deviation of the last
// period values. Both are NaN when fewer than period values exist.
func MeanStd(values []float64, period int) (float64, float64) {
	if period <= 0 || len(values) < period {
		return math.NaN(), math.NaN()
	}
	window := values[len(values)-period:]

	sum := 0.0
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(period)

	sq := 0.0
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(period))
}
