package fetcher

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable means the provider had no usable close prices for the symbol.
var ErrDataUnavailable = errors.New("price data unavailable")

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceSeries is a chronological, gap-free daily close history for one symbol.
type PriceSeries struct {
	Symbol string
	Field  string // provider field the closes were taken from
	Points []PricePoint
}

// Closes returns the close prices in order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Len is the number of points.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// PriceFetcher retrieves daily price history from a market-data provider.
type PriceFetcher interface {
	FetchDaily(ctx context.Context, symbol string) (PriceSeries, error)
}
