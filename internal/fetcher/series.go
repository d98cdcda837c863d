package fetcher

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Close-price field names, in the order they are tried.
const (
	FieldClose    = "close"
	FieldAdjClose = "adjclose"
)

// column is one candidate price column of a provider response.
type column struct {
	name   string
	values []*float64
}

// selectCloseColumn walks the fallback chain: the named close field first, then the
// adjusted close. A column qualifies when it holds at least one non-null value.
// Anything else is ErrDataUnavailable; no other column (open, volume, ...) is ever
// used as a stand-in for price.
func selectCloseColumn(candidates map[string][]*float64) (column, error) {
	for _, name := range []string{FieldClose, FieldAdjClose} {
		values, ok := candidates[name]
		if !ok {
			continue
		}
		for _, v := range values {
			if v != nil {
				return column{name: name, values: values}, nil
			}
		}
	}
	return column{}, fmt.Errorf("%w: no close or adjclose field in response", ErrDataUnavailable)
}

// buildSeries aligns timestamps with closes, drops nulls and non-positive or non-finite
// values, collapses duplicate dates (last wins) and sorts chronologically.
func buildSeries(symbol string, timestamps []int64, col column, loc *time.Location) (PriceSeries, error) {
	if loc == nil {
		loc = time.UTC
	}

	byDate := make(map[time.Time]float64, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(col.values) {
			break
		}
		v := col.values[i]
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
			continue
		}
		local := time.Unix(ts, 0).In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		byDate[day] = *v
	}

	if len(byDate) == 0 {
		return PriceSeries{}, fmt.Errorf("%w: %s returned no valid %s values", ErrDataUnavailable, symbol, col.name)
	}

	points := make([]PricePoint, 0, len(byDate))
	for d, c := range byDate {
		points = append(points, PricePoint{Date: d, Close: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	return PriceSeries{Symbol: symbol, Field: col.name, Points: points}, nil
}
