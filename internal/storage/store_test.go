package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bandwatch/internal/config"
)

func TestNilStoreNotConfigured(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if _, err := s.InsertSnapshot(ctx, SnapshotRecord{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("InsertSnapshot: expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.ListRecentAlerts(ctx, 10); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ListRecentAlerts: expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.ListRecentSnapshots(ctx, "ABC", 10); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ListRecentSnapshots: expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.DeleteAlertsBefore(ctx, time.Now()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("DeleteAlertsBefore: expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.DeleteSnapshotsBefore(ctx, time.Now()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("DeleteSnapshotsBefore: expected ErrNotConfigured, got %v", err)
	}
	if _, _, err := s.TryAdvisoryLock(ctx, 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("TryAdvisoryLock: expected ErrNotConfigured, got %v", err)
	}
	s.Close()
}

func TestNewPoolRequiresDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), config.DatabaseConfig{}); err == nil {
		t.Fatal("empty dsn should fail")
	}
}

func TestMigrationFilesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := MigrationFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "001_a.sql" || filepath.Base(files[1]) != "002_b.sql" {
		t.Fatalf("unexpected migration order %v", files)
	}
}

func TestMigrateWithoutPool(t *testing.T) {
	if _, err := Migrate(context.Background(), nil, t.TempDir()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestParseDecimals(t *testing.T) {
	values, err := parseDecimals(namedDecimal{"a", "1.25"}, namedDecimal{"b", "-3"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !values[0].Equal(decimal.RequireFromString("1.25")) || !values[1].Equal(decimal.NewFromInt(-3)) {
		t.Fatalf("unexpected values %v", values)
	}
	if _, err := parseDecimals(namedDecimal{"rsi", "NaN?"}); err == nil {
		t.Fatal("garbage should fail")
	}
}
