// Package metrics records per-cycle Prometheus metrics. A run-once job has no
// scrape endpoint, so the registry is flushed to a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the cycle metrics on a private registry. A nil *Recorder is a
// valid no-op.
type Recorder struct {
	registry *prometheus.Registry

	tickerResults  *prometheus.CounterVec
	alertsSent     *prometheus.CounterVec
	notifyFailures prometheus.Counter
	lastPrice      *prometheus.GaugeVec
	lastRSI        *prometheus.GaugeVec
	fetchLatency   prometheus.Histogram
	cycleDuration  prometheus.Gauge
	lastRun        prometheus.Gauge
	ledgerEntries  prometheus.Gauge
}

// New creates a recorder backed by a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		tickerResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bandwatch_ticker_results_total",
				Help: "Ticker evaluations by outcome",
			},
			[]string{"outcome"},
		),
		alertsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bandwatch_alerts_total",
				Help: "Alerts that passed the cooldown gate, by category",
			},
			[]string{"category"},
		),
		notifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bandwatch_notification_failures_total",
			Help: "Notifications the chat endpoint failed to accept",
		}),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bandwatch_last_price",
				Help: "Latest close evaluated for a symbol",
			},
			[]string{"symbol"},
		),
		lastRSI: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bandwatch_rsi",
				Help: "Latest RSI evaluated for a symbol",
			},
			[]string{"symbol"},
		),
		fetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bandwatch_fetch_duration_seconds",
			Help:    "Market data fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		cycleDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bandwatch_cycle_duration_seconds",
			Help: "Wall time of the last cycle",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bandwatch_last_run_timestamp_seconds",
			Help: "Unix time the last cycle finished",
		}),
		ledgerEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bandwatch_ledger_entries",
			Help: "Keys held in the cooldown ledger",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveOutcome counts one ticker result.
func (r *Recorder) ObserveOutcome(outcome string) {
	if r == nil {
		return
	}
	r.tickerResults.WithLabelValues(outcome).Inc()
}

// ObserveAlert counts an alert that was allowed to fire.
func (r *Recorder) ObserveAlert(category string) {
	if r == nil {
		return
	}
	r.alertsSent.WithLabelValues(category).Inc()
}

// ObserveNotifyFailure counts a failed delivery.
func (r *Recorder) ObserveNotifyFailure() {
	if r == nil {
		return
	}
	r.notifyFailures.Inc()
}

// ObserveSnapshot records the latest price and RSI for symbol.
func (r *Recorder) ObserveSnapshot(symbol string, price, rsi float64) {
	if r == nil {
		return
	}
	r.lastPrice.WithLabelValues(symbol).Set(price)
	r.lastRSI.WithLabelValues(symbol).Set(rsi)
}

// ObserveFetch records one fetch latency.
func (r *Recorder) ObserveFetch(d time.Duration) {
	if r == nil {
		return
	}
	r.fetchLatency.Observe(d.Seconds())
}

// ObserveCycle records cycle duration, completion time and ledger size.
func (r *Recorder) ObserveCycle(d time.Duration, finished time.Time, ledgerSize int) {
	if r == nil {
		return
	}
	r.cycleDuration.Set(d.Seconds())
	r.lastRun.Set(float64(finished.Unix()))
	r.ledgerEntries.Set(float64(ledgerSize))
}

// WriteTextfile writes the registry in text exposition format to path.
// prometheus.WriteToTextfile renames a temp file into place.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
