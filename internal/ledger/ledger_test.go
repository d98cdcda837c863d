package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bandwatch/internal/clock"
)

type manualClock struct {
	t time.Time
}

func (m *manualClock) now() time.Time { return m.t }

func (m *manualClock) advance(d time.Duration) { m.t = m.t.Add(d) }

func newClock() *manualClock {
	return &manualClock{t: time.Date(2025, 4, 1, 10, 0, 0, 0, clock.Zone)}
}

func TestCanFireGate(t *testing.T) {
	mc := newClock()
	l := New(2*time.Hour, mc.now)

	if !l.CanFire("X_SELL_NORM") {
		t.Fatal("first call must fire")
	}
	if l.CanFire("X_SELL_NORM") {
		t.Fatal("second call inside cooldown must be refused")
	}
	if l.Mutations() != 1 {
		t.Fatalf("refused call must not mutate, mutations=%d", l.Mutations())
	}

	mc.advance(119 * time.Minute)
	if l.CanFire("X_SELL_NORM") {
		t.Fatal("still inside cooldown")
	}

	mc.advance(time.Minute)
	if !l.CanFire("X_SELL_NORM") {
		t.Fatal("elapsed == cooldown must fire again")
	}
	last, _ := l.LastFired("X_SELL_NORM")
	if !last.Equal(mc.t) {
		t.Fatalf("timestamp not refreshed: %s", last)
	}
}

func TestCanFireAfterStaleEntry(t *testing.T) {
	mc := newClock()
	store := &memStore{data: map[string]string{
		"X_SELL_NORM": clock.FormatTimestamp(mc.t.Add(-3 * time.Hour)),
	}}
	l := Load(context.Background(), store, 2*time.Hour, mc.now, zerolog.Nop())

	if !l.CanFire("X_SELL_NORM") {
		t.Fatal("entry older than the cooldown must fire")
	}
	if l.CanFire("X_SELL_NORM") {
		t.Fatal("and then be suppressed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(time.Hour, newClock().now)
	if !l.CanFire("A_BUY_NORM") || !l.CanFire("A_BUY_CRIT") || !l.CanFire("B_BUY_NORM") {
		t.Fatal("distinct keys must not share a cooldown")
	}
	if l.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", l.Len())
	}
}

func TestRecordAndHas(t *testing.T) {
	l := New(time.Hour, newClock().now)
	if l.Has("DIGEST_2025-04-01_09") {
		t.Fatal("unexpected key")
	}
	l.Record("DIGEST_2025-04-01_09")
	if !l.Has("DIGEST_2025-04-01_09") || !l.Dirty() {
		t.Fatal("record must store the key and mark dirty")
	}
}

func TestEntriesSortedWithNextEligible(t *testing.T) {
	mc := newClock()
	l := New(2*time.Hour, mc.now)
	l.Record("b")
	l.Record("a")
	entries := l.Entries()
	if len(entries) != 2 || entries[0].Key != "a" || entries[1].Key != "b" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if !entries[0].NextAfter.Equal(mc.t.Add(2 * time.Hour)) {
		t.Fatalf("unexpected next eligible time %s", entries[0].NextAfter)
	}
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	store := &memStore{loadErr: errors.New("boom")}
	l := Load(context.Background(), store, time.Hour, newClock().now, zerolog.Nop())
	if l.Len() != 0 || l.Dirty() {
		t.Fatal("failed load must produce a clean empty ledger")
	}
}

func TestLoadDropsUnparseableValues(t *testing.T) {
	store := &memStore{data: map[string]string{
		"good": "2025-04-01T09:00:00.000000-03:00",
		"bad":  "not a time",
	}}
	l := Load(context.Background(), store, time.Hour, newClock().now, zerolog.Nop())
	if !l.Has("good") || l.Has("bad") {
		t.Fatalf("unexpected entries: %+v", l.Entries())
	}
}

func TestPersistClearsDirty(t *testing.T) {
	store := &memStore{}
	l := New(time.Hour, newClock().now)
	l.Record("k")
	if err := l.Persist(context.Background(), store); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if l.Dirty() {
		t.Fatal("ledger should be clean after persist")
	}
	if store.saves != 1 || store.data["k"] == "" {
		t.Fatalf("store not written: %+v", store)
	}
}

func TestPersistErrorKeepsDirty(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	l := New(time.Hour, newClock().now)
	l.Record("k")
	if err := l.Persist(context.Background(), store); err == nil {
		t.Fatal("expected error")
	}
	if !l.Dirty() {
		t.Fatal("failed persist must keep the ledger dirty")
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	mc := newClock()
	store := &memStore{}
	l := New(time.Hour, mc.now)
	l.Record("ABC_SELL_CRIT")
	mc.advance(17*time.Minute + 3*time.Second + 250*time.Microsecond)
	l.Record("DIGEST_2025-04-01_09")
	if err := l.Persist(context.Background(), store); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	reloaded := Load(context.Background(), store, time.Hour, mc.now, zerolog.Nop())
	want := l.Entries()
	got := reloaded.Entries()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Key != want[i].Key || !got[i].FiredAt.Equal(want[i].FiredAt) {
			t.Fatalf("entry %d mismatch: %+v vs %+v", i, got[i], want[i])
		}
	}
}

type memStore struct {
	data    map[string]string
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(ctx context.Context) (map[string]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Save(ctx context.Context, entries map[string]string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = make(map[string]string, len(entries))
	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}

func (m *memStore) String() string { return "mem" }
