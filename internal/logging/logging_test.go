package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFormatStamp(t *testing.T) {
	got := formatStamp("2025-04-02T15:04:05Z")
	if got != "[02/04 12:04]" {
		t.Fatalf("expected UTC-3 stamp, got %s", got)
	}
	if !regexp.MustCompile(`^\[\d{2}/\d{2} \d{2}:\d{2}\]$`).MatchString(formatStamp(nil)) {
		t.Fatal("fallback stamp should use the same shape")
	}
}

func TestConsoleWriterLineShape(t *testing.T) {
	zerolog.TimeFieldFormat = time.RFC3339
	var buf bytes.Buffer
	logger := zerolog.New(consoleWriter(&buf, true)).With().Timestamp().Logger()
	logger.Info().Msg("🔎 ABC: $10.00 (RSI: 55)")

	line := buf.String()
	if !regexp.MustCompile(`^\[\d{2}/\d{2} \d{2}:\d{2}\] INF 🔎 ABC: \$10\.00 \(RSI: 55\)`).MatchString(line) {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestNewLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bandwatch.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("previous line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger, closer, err := NewLogger(Config{Level: "info", Format: "json", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info().Msg("cycle finished")
	logger.Debug().Msg("hidden")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(body)
	if !strings.HasPrefix(text, "previous line\n") {
		t.Fatal("file sink must append")
	}
	if !strings.Contains(text, "cycle finished") || strings.Contains(text, "hidden") {
		t.Fatalf("unexpected file content %q", text)
	}
	if strings.Contains(text, "\x1b[") {
		t.Fatal("file sink must not contain colour codes")
	}
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	logger, closer, err := NewLogger(Config{Level: "bogus"})
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}
}

func TestNewLoggerFallsBackToConsoleWhenFileUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(blocker, "logs", "bandwatch.log")

	logger, closer, err := NewLogger(Config{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("unwritable log file must not be fatal: %v", err)
	}
	if closer == nil {
		t.Fatal("expected a closer")
	}
	defer closer.Close()

	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}
	logger.Info().Msg("still logging")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("log file should not exist, stat err %v", err)
	}
}
