package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bandwatch/internal/alerting"
	"bandwatch/internal/clock"
	"bandwatch/internal/config"
	"bandwatch/internal/fetcher"
	"bandwatch/internal/indicator"
	"bandwatch/internal/ledger"
	"bandwatch/internal/metrics"
	"bandwatch/internal/scheduler"
	"bandwatch/internal/service"
	bandsignal "bandwatch/internal/signal"
	"bandwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newFetcher() fetcher.PriceFetcher {
	return fetcher.NewYahoo(fetcher.YahooOptions{
		BaseURL:   a.Config.Market.BaseURL,
		Range:     a.Config.Market.Range,
		Interval:  a.Config.Market.Interval,
		Timeout:   a.Config.Market.RequestTimeout,
		UserAgent: a.Config.Market.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.TelegramActive() {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	a.Logger.Warn().Msg("telegram not configured; notifications are logged only")
	return alerting.NewLogNotifier(a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// openLedgerStore returns the configured ledger backend and its release func.
func (a *App) openLedgerStore(ctx context.Context) (ledger.Store, func(), error) {
	switch a.Config.Ledger.Backend {
	case "redis":
		r := a.Config.Ledger.Redis
		store, err := ledger.NewRedisStore(ledger.RedisOptions{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Key:      r.Key,
			Timeout:  r.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := store.Ping(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("redis ledger unreachable; cycle starts with an empty ledger")
		}
		return store, func() { _ = store.Close() }, nil
	case "file", "":
		return ledger.NewFileStore(a.Config.Ledger.Path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", a.Config.Ledger.Backend)
	}
}

func (a *App) serviceOptions() service.Options {
	sc := a.Config.Signal
	return service.Options{
		Params: indicator.Params{
			BandPeriod: sc.BandPeriod,
			BandWidth:  sc.BandWidth,
			RSIPeriod:  sc.RSIPeriod,
			MinPoints:  sc.MinPoints,
		},
		Thresholds: bandsignal.Thresholds{
			CriticalPct: sc.CriticalPct,
			Overbought:  sc.Overbought,
			Oversold:    sc.Oversold,
		},
		Cooldown:        a.Config.Ledger.Cooldown,
		TickerDelay:     a.Config.Scheduler.TickerDelay,
		DigestEnabled:   a.Config.Digest.Enabled,
		DigestHours:     a.Config.Digest.Hours,
		LockKey:         a.Config.Scheduler.AdvisoryLockKey,
		MetricsTextfile: a.Config.Metrics.Textfile,
	}
}

// buildService wires every collaborator. The returned func releases them.
func (a *App) buildService(ctx context.Context) (*service.Service, func(), error) {
	wl, err := a.Config.BuildWatchlist()
	if err != nil {
		return nil, nil, err
	}

	ledgerStore, closeLedger, err := a.openLedgerStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		closeLedger()
		return nil, nil, err
	}

	deps := service.Deps{
		Watchlist:   wl,
		Fetcher:     a.newFetcher(),
		Notifier:    a.newNotifier(),
		LedgerStore: ledgerStore,
		Clock:       clock.System,
	}
	if a.Config.Metrics.Textfile != "" {
		deps.Metrics = metrics.New()
	}
	if store != nil {
		deps.Snapshots = store
		deps.Alerts = store
		deps.Locker = store
	} else {
		a.Logger.Debug().Msg("database.dsn not configured; audit log disabled")
	}

	cleanup := func() {
		if closeStore != nil {
			closeStore()
		}
		closeLedger()
	}

	svc, err := service.New(a.serviceOptions(), deps, a.Logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// Run executes a single monitoring cycle. Per-ticker failures never fail the run.
func (a *App) Run(ctx context.Context) (service.CycleReport, error) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := a.buildService(ctx)
	if err != nil {
		return service.CycleReport{}, err
	}
	defer cleanup()

	return svc.RunCycle(ctx), nil
}

// Watch repeats cycles on the configured interval or cron expression until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := a.buildService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		Cron:         a.Config.Scheduler.Cron,
		Location:     clock.Zone,
	}, a.Logger)
	if err != nil {
		return err
	}

	a.Logger.Info().Str("cron", a.Config.Scheduler.Cron).Dur("interval", a.Config.Scheduler.Interval).Msg("starting watch loop")
	err = svc.Watch(ctx, sched)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

// Migrate applies the SQL migrations to the configured database.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	if a.Config.Database.DSN == "" {
		return nil, errors.New("database.dsn not configured")
	}
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, err
	}
	defer pool.Close()
	return storage.Migrate(ctx, pool, a.Config.Database.MigrationsPath)
}

// ExportOptions hold parameters for exporting a symbol's band history.
type ExportOptions struct {
	Symbol    string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Symbol string
}

// PruneOptions configure audit retention.
type PruneOptions struct {
	OlderThan time.Duration
}

// SimulateOptions describe a synthetic classification.
type SimulateOptions struct {
	Symbol string
	Price  float64
	Upper  float64
	Lower  float64
	RSI    float64
	DryRun bool
}
