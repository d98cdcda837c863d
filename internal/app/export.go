package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"bandwatch/internal/fetcher"
	"bandwatch/internal/indicator"
)

// bandRow is one exported day.
type bandRow struct {
	Date  time.Time
	Close float64
	Mean  float64
	Upper float64
	Lower float64
	RSI   float64
}

// Export fetches a symbol's history and renders its bands and RSI as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if strings.TrimSpace(opts.Symbol) == "" {
		return errors.New("--symbol is required")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	series, err := a.newFetcher().FetchDaily(ctx, opts.Symbol)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", opts.Symbol, err)
	}

	rows := buildRows(series, a.Config.Signal.BandPeriod, a.Config.Signal.BandWidth, a.Config.Signal.RSIPeriod)
	downsampled := downsampleRows(rows, opts.MaxPoints)
	a.Logger.Info().Str("symbol", opts.Symbol).Int("total", len(rows)).Int("exported", len(downsampled)).Msg("exporting band history")

	if opts.CSVPath != "" {
		if err := writeRowsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRowsPNG(opts.PNGPath, opts.Symbol, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func buildRows(series fetcher.PriceSeries, period int, width float64, rsiPeriod int) []bandRow {
	closes := series.Closes()
	bands := indicator.RollingBands(closes, period, width)
	rsi := indicator.RSISeries(closes, rsiPeriod)

	rows := make([]bandRow, len(closes))
	for i, p := range series.Points {
		rows[i] = bandRow{
			Date:  p.Date,
			Close: p.Close,
			Mean:  bands[i].Mean,
			Upper: bands[i].Upper,
			Lower: bands[i].Lower,
			RSI:   rsi[i],
		}
	}
	return rows
}

func downsampleRows(rows []bandRow, max int) []bandRow {
	if max <= 1 || len(rows) <= max {
		return rows
	}

	result := make([]bandRow, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeRowsCSV(path string, rows []bandRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"date", "close", "mean", "upper_band", "lower_band", "rsi"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			formatFloat(row.Close, 4),
			formatFloat(row.Mean, 4),
			formatFloat(row.Upper, 4),
			formatFloat(row.Lower, 4),
			formatFloat(row.RSI, 2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeRowsPNG(path, symbol string, rows []bandRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	// Bands are undefined during warm-up; plot from the first full window.
	start := 0
	for start < len(rows) && math.IsNaN(rows[start].Mean) {
		start++
	}
	rows = rows[start:]
	if len(rows) < 2 {
		return errors.New("not enough history to plot bands")
	}

	x := make([]time.Time, len(rows))
	closes := make([]float64, len(rows))
	means := make([]float64, len(rows))
	uppers := make([]float64, len(rows))
	lowers := make([]float64, len(rows))
	rsi := make([]float64, len(rows))

	for i, row := range rows {
		x[i] = row.Date
		closes[i] = row.Close
		means[i] = row.Mean
		uppers[i] = row.Upper
		lowers[i] = row.Lower
		rsi[i] = row.RSI
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  symbol,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "RSI",
			ValueFormatter: priceFormatter,
			Range:          &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Close", XValues: x, YValues: closes},
			chart.TimeSeries{Name: "Mean", XValues: x, YValues: means},
			chart.TimeSeries{Name: "Upper band", XValues: x, YValues: uppers},
			chart.TimeSeries{Name: "Lower band", XValues: x, YValues: lowers},
			chart.TimeSeries{Name: "RSI", XValues: x, YValues: rsi, YAxis: chart.YAxisSecondary},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// formatFloat renders v with fixed places; undefined values are left blank.
func formatFloat(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
