package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bandwatch/internal/clock"
	"bandwatch/internal/config"
	"bandwatch/internal/service"
	"bandwatch/internal/storage"
)

type fakeAuditStore struct {
	alerts         []storage.AlertRecord
	snapshots      []storage.SnapshotRecord
	alertCutoff    time.Time
	snapshotCutoff time.Time
}

func (f *fakeAuditStore) InsertSnapshot(_ context.Context, s storage.SnapshotRecord) (storage.SnapshotRecord, error) {
	f.snapshots = append(f.snapshots, s)
	return s, nil
}

func (f *fakeAuditStore) ListRecentSnapshots(_ context.Context, symbol string, limit int) ([]storage.SnapshotRecord, error) {
	var out []storage.SnapshotRecord
	for _, s := range f.snapshots {
		if s.Symbol == symbol && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeAuditStore) DeleteSnapshotsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.snapshotCutoff = cutoff
	var kept []storage.SnapshotRecord
	for _, s := range f.snapshots {
		if !s.ObservedAt.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	n := int64(len(f.snapshots) - len(kept))
	f.snapshots = kept
	return n, nil
}

func (f *fakeAuditStore) InsertAlert(_ context.Context, r storage.AlertRecord) (storage.AlertRecord, error) {
	f.alerts = append(f.alerts, r)
	return r, nil
}

func (f *fakeAuditStore) ListRecentAlerts(_ context.Context, limit int) ([]storage.AlertRecord, error) {
	if len(f.alerts) > limit {
		return f.alerts[:limit], nil
	}
	return f.alerts, nil
}

func (f *fakeAuditStore) DeleteAlertsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.alertCutoff = cutoff
	var kept []storage.AlertRecord
	for _, r := range f.alerts {
		if !r.FiredAt.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	n := int64(len(f.alerts) - len(kept))
	f.alerts = kept
	return n, nil
}

func snapshotAt(symbol string, at time.Time, price float64) storage.SnapshotRecord {
	return storage.SnapshotRecord{
		Symbol:     symbol,
		ObservedAt: at,
		Price:      decimal.NewFromFloat(price),
		Mean:       decimal.NewFromInt(100),
		Upper:      decimal.NewFromInt(104),
		Lower:      decimal.NewFromInt(96),
		RSI:        decimal.NewFromFloat(55.4),
		Category:   "NONE",
	}
}

func TestPrintSnapshotsForSymbol(t *testing.T) {
	at := time.Date(2025, 4, 2, 13, 0, 0, 0, time.UTC)
	store := &fakeAuditStore{snapshots: []storage.SnapshotRecord{
		snapshotAt("ABC", at, 101.257),
		snapshotAt("XYZ", at, 5),
	}}

	a, out := newTestApp(&config.Config{})
	if err := a.printSnapshots(context.Background(), store, "ABC", 10); err != nil {
		t.Fatalf("print snapshots: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "2025-04-02 10:00") || !strings.Contains(text, "101.26") {
		t.Fatalf("snapshot row missing from %q", text)
	}
	if strings.Contains(text, "5.00") {
		t.Fatalf("other symbols must not be listed: %q", text)
	}

	out.Reset()
	if err := a.printSnapshots(context.Background(), store, "NOPE", 10); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no snapshots recorded for NOPE") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestPrintAlertsSanitizesErrors(t *testing.T) {
	msg := "telegram\nstatus 502"
	store := &fakeAuditStore{alerts: []storage.AlertRecord{{
		Key:     "ABC_SELL_CRIT",
		Price:   decimal.NewFromInt(210),
		Level:   decimal.NewFromInt(102),
		RSI:     decimal.NewFromInt(81),
		FiredAt: time.Date(2025, 4, 2, 13, 0, 0, 0, time.UTC),
		Error:   &msg,
	}}}

	a, out := newTestApp(&config.Config{})
	if err := a.printAlerts(context.Background(), store, 5); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "ABC_SELL_CRIT") || !strings.Contains(out.String(), "telegram status 502") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestPruneAuditDeletesOlderRows(t *testing.T) {
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, clock.Zone)
	store := &fakeAuditStore{
		alerts: []storage.AlertRecord{
			{Key: "OLD_SELL_NORM", FiredAt: cutoff.Add(-time.Hour)},
			{Key: "NEW_SELL_NORM", FiredAt: cutoff.Add(time.Hour)},
		},
		snapshots: []storage.SnapshotRecord{
			snapshotAt("ABC", cutoff.Add(-48*time.Hour), 1),
			snapshotAt("ABC", cutoff.Add(-24*time.Hour), 1),
			snapshotAt("ABC", cutoff, 1),
		},
	}

	a, out := newTestApp(&config.Config{})
	if err := a.pruneAudit(context.Background(), store, cutoff); err != nil {
		t.Fatalf("prune: %v", err)
	}

	if !store.alertCutoff.Equal(cutoff) || !store.snapshotCutoff.Equal(cutoff) {
		t.Fatal("both tables should be pruned at the same cutoff")
	}
	if len(store.alerts) != 1 || store.alerts[0].Key != "NEW_SELL_NORM" || len(store.snapshots) != 1 {
		t.Fatalf("unexpected remaining rows: %+v %+v", store.alerts, store.snapshots)
	}
	if !strings.Contains(out.String(), "deleted 1 alerts and 2 snapshots before 2025-01-01 00:00") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestPruneValidatesArguments(t *testing.T) {
	a, _ := newTestApp(&config.Config{})
	if err := a.Prune(context.Background(), PruneOptions{}); err == nil {
		t.Fatal("expected error for zero retention")
	}
	if err := a.Prune(context.Background(), PruneOptions{OlderThan: time.Hour}); err == nil {
		t.Fatal("expected error without a database")
	}
}

func TestRunWithUnreachableRedisLedger(t *testing.T) {
	yahoo := yahooServer(t, spikeCloses())
	defer yahoo.Close()
	rec := &telegramRecorder{}
	tg := rec.server()
	defer tg.Close()

	cfg := testConfig(t, yahoo.URL, tg.URL)
	cfg.Ledger.Backend = "redis"
	cfg.Ledger.Redis = config.RedisConfig{Addr: "127.0.0.1:1", Key: "bandwatch:test", Timeout: 200 * time.Millisecond}
	a, _ := newTestApp(cfg)

	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("unreachable redis must not abort the run: %v", err)
	}
	if report.Count(service.OutcomeAlerted) != 1 || rec.count() != 1 {
		t.Fatalf("ticker should be evaluated and alerted, got %+v", report)
	}
	if report.PersistErr == nil {
		t.Fatal("persist failure should be reported")
	}
}
