package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bandwatch/internal/clock"
)

// Config describes logger runtime configuration.
type Config struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	File        string `mapstructure:"file"`
	TimeFormat  string `mapstructure:"time_format"`
	Caller      bool   `mapstructure:"caller"`
	PrettyPrint bool   `mapstructure:"pretty"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger constructs a zerolog logger from config. Console output and the
// optional append-only file both render lines as "[DD/MM HH:MM] message" in
// UTC-3; format "json" switches stdout to JSON. A log file that cannot be
// opened is reported on the console and skipped. The returned closer releases
// the file sink.
func NewLogger(cfg Config) (zerolog.Logger, io.Closer, error) {
	jsonOut := strings.EqualFold(cfg.Format, "json") && !cfg.PrettyPrint

	zerolog.TimeFieldFormat = time.RFC3339
	if jsonOut && cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}
	zerolog.TimestampFunc = clock.System

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err == nil && cfg.Level != "" {
		level = parsed
	}

	var stdout io.Writer = os.Stdout
	if !jsonOut {
		stdout = consoleWriter(os.Stdout, false)
	}

	writer := stdout
	var closer io.Closer = nopCloser{}
	var fileErr error
	if cfg.File != "" {
		file, err := openAppend(cfg.File)
		if err != nil {
			fileErr = err
		} else {
			writer = zerolog.MultiLevelWriter(stdout, consoleWriter(file, true))
			closer = file
		}
	}

	logger := zerolog.New(writer).Level(level)
	builder := logger.With().Timestamp()
	if cfg.Caller {
		builder = builder.Caller()
	}
	logger = builder.Logger()

	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("file", cfg.File).Msg("log file unavailable, logging to console only")
	}

	return logger, closer, nil
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:             out,
		NoColor:         noColor,
		TimeFormat:      time.RFC3339,
		FormatTimestamp: formatStamp,
	}
}

// formatStamp renders the zerolog time field as "[DD/MM HH:MM]" in UTC-3.
func formatStamp(i interface{}) string {
	if raw, ok := i.(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return "[" + clock.LogStamp(t) + "]"
		}
	}
	return "[" + clock.LogStamp(clock.System()) + "]"
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}
