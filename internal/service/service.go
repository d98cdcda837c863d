package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bandwatch/internal/alerting"
	"bandwatch/internal/clock"
	"bandwatch/internal/fetcher"
	"bandwatch/internal/indicator"
	"bandwatch/internal/ledger"
	"bandwatch/internal/metrics"
	"bandwatch/internal/scheduler"
	"bandwatch/internal/signal"
	"bandwatch/internal/storage"
	"bandwatch/internal/watchlist"
)

const (
	persistTimeout = 10 * time.Second
	auditTimeout   = 5 * time.Second
)

// Options tune a cycle.
type Options struct {
	Params          indicator.Params
	Thresholds      signal.Thresholds
	Cooldown        time.Duration
	TickerDelay     time.Duration
	DigestEnabled   bool
	DigestHours     []int
	LockKey         int64
	MetricsTextfile string
}

// DefaultOptions returns production cycle settings.
func DefaultOptions() Options {
	return Options{
		Params:        indicator.DefaultParams(),
		Thresholds:    signal.DefaultThresholds(),
		Cooldown:      ledger.DefaultCooldown,
		TickerDelay:   time.Second,
		DigestEnabled: true,
		DigestHours:   DefaultDigestHours,
	}
}

// Deps are the collaborators of a Service. Snapshots, Alerts, Locker and Metrics
// are optional.
type Deps struct {
	Watchlist   *watchlist.Watchlist
	Fetcher     fetcher.PriceFetcher
	Notifier    alerting.Notifier
	LedgerStore ledger.Store
	Snapshots   storage.SnapshotStore
	Alerts      storage.AlertStore
	Locker      storage.AdvisoryLocker
	Metrics     *metrics.Recorder
	Clock       clock.Clock
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Service runs monitoring cycles.
type Service struct {
	opts      Options
	watchlist *watchlist.Watchlist
	fetcher   fetcher.PriceFetcher
	notifier  alerting.Notifier
	store     ledger.Store
	snapshots storage.SnapshotStore
	alerts    storage.AlertStore
	locker    storage.AdvisoryLocker
	metrics   *metrics.Recorder
	now       clock.Clock
	sleep     func(ctx context.Context, d time.Duration) error
	logger    zerolog.Logger
}

// New constructs the monitoring service.
func New(opts Options, deps Deps, logger zerolog.Logger) (*Service, error) {
	if deps.Watchlist == nil || deps.Watchlist.Len() == 0 {
		return nil, fmt.Errorf("watchlist is empty")
	}
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("price fetcher not configured")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier not configured")
	}
	if deps.LedgerStore == nil {
		return nil, fmt.Errorf("ledger store not configured")
	}
	if deps.Clock == nil {
		deps.Clock = clock.System
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepContext
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = ledger.DefaultCooldown
	}

	return &Service{
		opts:      opts,
		watchlist: deps.Watchlist,
		fetcher:   deps.Fetcher,
		notifier:  deps.Notifier,
		store:     deps.LedgerStore,
		snapshots: deps.Snapshots,
		alerts:    deps.Alerts,
		locker:    deps.Locker,
		metrics:   deps.Metrics,
		now:       deps.Clock,
		sleep:     deps.Sleep,
		logger:    logger.With().Str("component", "service").Logger(),
	}, nil
}

// Watch runs a cycle on every scheduler tick until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, sched *scheduler.Scheduler) error {
	if sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return sched.Run(ctx, func(ctx context.Context, tick time.Time) error {
		report := s.RunCycle(ctx)
		if report.PersistErr != nil {
			return fmt.Errorf("cycle %s: %w", tick.Format(time.RFC3339), report.PersistErr)
		}
		return nil
	})
}

// RunCycle performs one pass over the watchlist. Per-ticker failures are
// reported in the result, never returned.
func (s *Service) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{Started: s.now()}

	unlock, proceed := s.acquireLock(ctx)
	if !proceed {
		s.logger.Info().Msg("advisory lock held elsewhere, skipping cycle")
		report.LockSkipped = true
		report.Finished = s.now()
		return report
	}
	if unlock != nil {
		defer unlock()
	}

	l := ledger.Load(ctx, s.store, s.opts.Cooldown, s.now, s.logger)
	report.DigestSent = s.sendDigest(ctx, l, s.now())

	s.logger.Info().Msgf("--- Cycle %s started ---", clock.Local(report.Started).Format("15:04"))

	assets := s.watchlist.Assets()
	for i, asset := range assets {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		res := s.Evaluate(ctx, l, asset)
		report.Results = append(report.Results, res)
		s.metrics.ObserveOutcome(string(res.Outcome))

		if i < len(assets)-1 && s.opts.TickerDelay > 0 && res.Outcome != OutcomeSkippedWeekend {
			if err := s.sleep(ctx, s.opts.TickerDelay); err != nil {
				report.Interrupted = true
				break
			}
		}
	}

	if l.Dirty() {
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		report.PersistErr = l.Persist(persistCtx, s.store)
		cancel()
		if report.PersistErr != nil {
			s.logger.Error().Err(report.PersistErr).Msg("ledger persist failed; on-disk state left untouched")
		} else {
			report.Persisted = true
			s.logger.Info().Int("entries", l.Len()).Msg("ledger saved")
		}
	} else {
		s.logger.Info().Msg("no new alerts, ledger untouched")
	}

	report.Finished = s.now()
	s.metrics.ObserveCycle(report.Finished.Sub(report.Started), report.Finished, l.Len())
	if err := s.metrics.WriteTextfile(s.opts.MetricsTextfile); err != nil {
		s.logger.Warn().Err(err).Msg("metrics textfile not written")
	}

	s.logger.Info().
		Int("evaluated", len(report.Results)).
		Int("alerted", report.Count(OutcomeAlerted)).
		Int("suppressed", report.Count(OutcomeSuppressed)).
		Int("failed", report.Count(OutcomeFailed)).
		Bool("interrupted", report.Interrupted).
		Msg("cycle finished")
	return report
}

// Evaluate runs fetch → indicators → classify → gate → notify for one asset.
func (s *Service) Evaluate(ctx context.Context, l *ledger.Ledger, asset watchlist.Asset) TickerResult {
	res := TickerResult{Symbol: asset.Symbol, Category: signal.None}
	log := s.logger.With().Str("symbol", asset.Symbol).Logger()

	now := s.now()
	if clock.IsWeekend(now) && !asset.Continuous {
		res.Outcome = OutcomeSkippedWeekend
		return res
	}

	started := time.Now()
	series, err := s.fetcher.FetchDaily(ctx, asset.Symbol)
	s.metrics.ObserveFetch(time.Since(started))
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("fetch %s: %w", asset.Symbol, err)
		if errors.Is(err, fetcher.ErrDataUnavailable) {
			res.Kind = KindDataUnavailable
			log.Warn().Err(err).Msg("no data, skipping")
		} else {
			res.Kind = KindProvider
			log.Error().Err(err).Msgf("Error reading %s", asset.Symbol)
		}
		return res
	}

	snap, err := indicator.Compute(series.Closes(), s.opts.Params)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			res.Outcome = OutcomeInsufficientData
			log.Debug().Int("points", series.Len()).Msg("insufficient history, skipping")
			return res
		}
		res.Outcome, res.Kind, res.Err = OutcomeFailed, KindComputation, fmt.Errorf("compute %s: %w", asset.Symbol, err)
		log.Error().Err(err).Msgf("Value conversion error %s", asset.Symbol)
		return res
	}
	res.Snapshot = snap
	s.metrics.ObserveSnapshot(asset.Symbol, snap.Price, snap.RSI)
	log.Info().Msg(signal.Summary(asset.Symbol, snap.Price, snap.RSI))

	result, fired := signal.Classify(signal.Input{
		Symbol: asset.Symbol,
		Price:  snap.Price,
		Upper:  snap.Upper,
		Lower:  snap.Lower,
		RSI:    snap.RSI,
	}, s.opts.Thresholds)
	res.Category = result.Category
	s.auditSnapshot(ctx, asset.Symbol, now, snap, result.Category)

	if !fired {
		res.Outcome = OutcomeNoSignal
		return res
	}
	res.Key = result.Key

	if !l.CanFire(result.Key) {
		res.Outcome = OutcomeSuppressed
		log.Debug().Str("key", result.Key).Msg("inside cooldown, suppressed")
		return res
	}

	res.Outcome = OutcomeAlerted
	s.metrics.ObserveAlert(string(result.Category))
	log.Info().Str("key", result.Key).Msgf("⚡ ALERT FIRED: %s", asset.Symbol)

	notifyErr := s.notify(ctx, alerting.Notification{Key: result.Key, Text: result.Text})
	if notifyErr != nil {
		res.Kind, res.Err = KindNotification, fmt.Errorf("notify %s: %w", result.Key, notifyErr)
		s.metrics.ObserveNotifyFailure()
		log.Error().Err(notifyErr).Str("key", result.Key).Msg("Telegram error")
	}
	s.auditAlert(ctx, result, now, notifyErr)
	return res
}

func (s *Service) notify(ctx context.Context, note alerting.Notification) error {
	return s.notifier.Notify(ctx, note)
}

func (s *Service) auditSnapshot(ctx context.Context, symbol string, at time.Time, snap indicator.Snapshot, category signal.Category) {
	if s.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()

	record := storage.SnapshotRecord{
		Symbol:     symbol,
		ObservedAt: at,
		Price:      decimal.NewFromFloat(snap.Price),
		Mean:       decimal.NewFromFloat(snap.Mean),
		Upper:      decimal.NewFromFloat(snap.Upper),
		Lower:      decimal.NewFromFloat(snap.Lower),
		RSI:        decimal.NewFromFloat(snap.RSI),
		Category:   string(category),
	}
	if _, err := s.snapshots.InsertSnapshot(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to persist band snapshot")
	}
}

func (s *Service) auditAlert(ctx context.Context, result signal.Result, at time.Time, notifyErr error) {
	if s.alerts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()

	record := storage.AlertRecord{
		Key:       result.Key,
		Symbol:    result.Symbol,
		Category:  string(result.Category),
		Price:     decimal.NewFromFloat(result.Price),
		Level:     decimal.NewFromFloat(result.Level),
		RSI:       decimal.NewFromFloat(result.RSI),
		Message:   result.Text,
		Delivered: notifyErr == nil,
		FiredAt:   at,
	}
	if notifyErr != nil {
		msg := notifyErr.Error()
		record.Error = &msg
	}
	if _, err := s.alerts.InsertAlert(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("key", result.Key).Msg("failed to persist alert record")
	}
}

// acquireLock returns proceed=false only when another process holds the lock.
// Lock errors are logged and the cycle runs unguarded.
func (s *Service) acquireLock(ctx context.Context) (func(), bool) {
	if s.opts.LockKey == 0 || s.locker == nil {
		return nil, true
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.opts.LockKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("advisory lock unavailable, continuing without it")
		return nil, true
	}
	if !acquired {
		return nil, false
	}
	return unlock, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
