package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"bandwatch/internal/logging"
	"bandwatch/internal/version"
	"bandwatch/internal/watchlist"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
	Signal    SignalConfig    `mapstructure:"signal"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Digest    DigestConfig    `mapstructure:"digest"`
	Market    MarketConfig    `mapstructure:"market"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// WatchlistConfig lists the monitored tickers. Symbols is the short form;
// Assets allows an explicit continuous flag per ticker.
type WatchlistConfig struct {
	Symbols            []string          `mapstructure:"symbols"`
	Assets             []watchlist.Asset `mapstructure:"assets"`
	ContinuousSuffixes []string          `mapstructure:"continuous_suffixes"`
}

// SignalConfig tunes indicators and the classifier.
type SignalConfig struct {
	CriticalPct float64 `mapstructure:"critical_pct"`
	BandPeriod  int     `mapstructure:"band_period"`
	BandWidth   float64 `mapstructure:"band_width"`
	RSIPeriod   int     `mapstructure:"rsi_period"`
	MinPoints   int     `mapstructure:"min_points"`
	Overbought  float64 `mapstructure:"overbought"`
	Oversold    float64 `mapstructure:"oversold"`
}

// LedgerConfig selects and configures the cooldown ledger storage.
type LedgerConfig struct {
	Backend  string        `mapstructure:"backend"`
	Path     string        `mapstructure:"path"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig covers the Redis ledger backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig governs pacing within a cycle and the watch loop.
type SchedulerConfig struct {
	TickerDelay     time.Duration `mapstructure:"ticker_delay"`
	Interval        time.Duration `mapstructure:"interval"`
	Cron            string        `mapstructure:"cron"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// DigestConfig controls the status digest.
type DigestConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	Hours   []int `mapstructure:"hours"`
}

// MarketConfig captures market-data provider connectivity.
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Range          string        `mapstructure:"range"`
	Interval       string        `mapstructure:"interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram channel.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN disables the audit log.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// MetricsConfig sets where cycle metrics are written.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("BANDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv exports variables from a .env file without overriding the real environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// bindAliases accepts the bare TOKEN and CHAT_ID variables used by existing deployments.
func bindAliases(v *viper.Viper) error {
	if err := v.BindEnv("alerting.telegram.bot_token", "BANDWATCH_ALERTING_TELEGRAM_BOT_TOKEN", "TOKEN"); err != nil {
		return fmt.Errorf("bind bot token env: %w", err)
	}
	if err := v.BindEnv("alerting.telegram.chat_id", "BANDWATCH_ALERTING_TELEGRAM_CHAT_ID", "CHAT_ID"); err != nil {
		return fmt.Errorf("bind chat id env: %w", err)
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bandwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "bandwatch.log")

	v.SetDefault("watchlist.symbols", []string{})
	v.SetDefault("watchlist.continuous_suffixes", watchlist.DefaultContinuousSuffixes)

	v.SetDefault("signal.critical_pct", 0.02)
	v.SetDefault("signal.band_period", 20)
	v.SetDefault("signal.band_width", 2.0)
	v.SetDefault("signal.rsi_period", 14)
	v.SetDefault("signal.min_points", 30)
	v.SetDefault("signal.overbought", 70.0)
	v.SetDefault("signal.oversold", 30.0)

	v.SetDefault("ledger.backend", "file")
	v.SetDefault("ledger.path", "alert_ledger.json")
	v.SetDefault("ledger.cooldown", "2h")
	v.SetDefault("ledger.redis.addr", "localhost:6379")
	v.SetDefault("ledger.redis.db", 0)
	v.SetDefault("ledger.redis.key", "bandwatch:ledger")
	v.SetDefault("ledger.redis.timeout", "5s")

	v.SetDefault("scheduler.ticker_delay", "1s")
	v.SetDefault("scheduler.interval", "15m")
	v.SetDefault("scheduler.cron", "")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x62616e64))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("digest.enabled", true)
	v.SetDefault("digest.hours", []int{9, 18})

	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.range", "6mo")
	v.SetDefault("market.interval", "1d")
	v.SetDefault("market.request_timeout", "30s")
	v.SetDefault("market.user_agent", version.UserAgent())

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Signal.CriticalPct < 0 {
		return fmt.Errorf("signal.critical_pct cannot be negative")
	}
	if c.Signal.BandPeriod <= 0 || c.Signal.RSIPeriod <= 0 {
		return fmt.Errorf("signal.band_period and signal.rsi_period must be greater than zero")
	}
	if c.Signal.BandWidth <= 0 {
		return fmt.Errorf("signal.band_width must be greater than zero")
	}
	if c.Signal.MinPoints < c.Signal.BandPeriod {
		return fmt.Errorf("signal.min_points must be at least signal.band_period")
	}
	if c.Signal.Oversold >= c.Signal.Overbought {
		return fmt.Errorf("signal.oversold must be below signal.overbought")
	}
	if c.Ledger.Cooldown <= 0 {
		return fmt.Errorf("ledger.cooldown must be greater than zero")
	}
	switch c.Ledger.Backend {
	case "file":
		if strings.TrimSpace(c.Ledger.Path) == "" {
			return fmt.Errorf("ledger.path is required for the file backend")
		}
	case "redis":
		if strings.TrimSpace(c.Ledger.Redis.Addr) == "" {
			return fmt.Errorf("ledger.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("ledger.backend must be file or redis, got %q", c.Ledger.Backend)
	}
	if c.Scheduler.TickerDelay < 0 {
		return fmt.Errorf("scheduler.ticker_delay cannot be negative")
	}
	if c.Scheduler.Cron == "" && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	for _, h := range c.Digest.Hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("digest.hours entries must be within 0-23, got %d", h)
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if _, err := c.BuildWatchlist(); err != nil {
		return err
	}
	return nil
}

// TelegramActive reports whether notifications go to Telegram. Supplying both
// credentials enables the channel implicitly.
func (c *Config) TelegramActive() bool {
	if !c.Alerting.Enabled {
		return false
	}
	t := c.Alerting.Telegram
	return t.Enabled || (t.BotToken != "" && t.ChatID != "")
}

// BuildWatchlist merges Symbols and Assets into a watchlist. With neither
// configured the default watchlist is used.
func (c *Config) BuildWatchlist() (*watchlist.Watchlist, error) {
	if len(c.Watchlist.Symbols) == 0 && len(c.Watchlist.Assets) == 0 {
		return watchlist.FromSymbols(watchlist.DefaultSymbols, c.Watchlist.ContinuousSuffixes)
	}

	assets := make([]watchlist.Asset, 0, len(c.Watchlist.Symbols)+len(c.Watchlist.Assets))
	for _, s := range c.Watchlist.Symbols {
		if strings.TrimSpace(s) == "" {
			continue
		}
		assets = append(assets, watchlist.Asset{Symbol: s})
	}
	assets = append(assets, c.Watchlist.Assets...)

	wl, err := watchlist.New(assets, c.Watchlist.ContinuousSuffixes)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	return wl, nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
