// Package ledger holds the cooldown ledger that deduplicates alerts across runs.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bandwatch/internal/clock"
)

// DefaultCooldown is the minimum gap between two firings of the same key.
const DefaultCooldown = 2 * time.Hour

// Entry is one ledger row.
type Entry struct {
	Key       string
	FiredAt   time.Time
	NextAfter time.Time
}

// Ledger maps alert keys to the instant they last fired. It is loaded once per
// cycle, mutated in memory and written back only when Dirty.
type Ledger struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	cooldown  time.Duration
	now       clock.Clock
	mutations int
}

// New returns an empty ledger.
func New(cooldown time.Duration, now clock.Clock) *Ledger {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = clock.System
	}
	return &Ledger{entries: make(map[string]time.Time), cooldown: cooldown, now: now}
}

// Load reads the ledger from store. Missing or unreadable storage yields an empty
// ledger; the failure is logged, never returned.
func Load(ctx context.Context, store Store, cooldown time.Duration, now clock.Clock, logger zerolog.Logger) *Ledger {
	l := New(cooldown, now)
	if store == nil {
		return l
	}

	raw, err := store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("store", store.String()).Msg("ledger unreadable, starting empty")
		return l
	}

	entries, skipped := Decode(raw)
	for _, key := range skipped {
		logger.Warn().Str("key", key).Str("value", raw[key]).Msg("dropping ledger entry with bad timestamp")
	}
	l.entries = entries
	return l
}

// CanFire reports whether key may fire now. When it may, the current instant is
// recorded under key before returning, so a second call inside the cooldown is refused.
func (l *Ledger) CanFire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.entries[key]; ok && now.Sub(last) < l.cooldown {
		return false
	}
	l.entries[key] = now
	l.mutations++
	return true
}

// Record stores the current instant under key unconditionally.
func (l *Ledger) Record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = l.now()
	l.mutations++
}

// Has reports whether key ever fired.
func (l *Ledger) Has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[key]
	return ok
}

// LastFired returns when key last fired.
func (l *Ledger) LastFired(key string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.entries[key]
	return t, ok
}

// Entries lists all rows ordered by key.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for k, t := range l.entries {
		out = append(out, Entry{Key: k, FiredAt: t, NextAfter: t.Add(l.cooldown)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len is the number of keys held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Mutations counts writes since load or the last successful Persist.
func (l *Ledger) Mutations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mutations
}

// Dirty reports whether Persist has anything to write.
func (l *Ledger) Dirty() bool {
	return l.Mutations() > 0
}

// Cooldown returns the configured cooldown.
func (l *Ledger) Cooldown() time.Duration {
	return l.cooldown
}

// Persist writes the full ledger to store and clears the dirty state on success.
func (l *Ledger) Persist(ctx context.Context, store Store) error {
	if store == nil {
		return fmt.Errorf("ledger store not configured")
	}

	l.mu.Lock()
	raw := Encode(l.entries)
	pending := l.mutations
	l.mu.Unlock()

	if err := store.Save(ctx, raw); err != nil {
		return fmt.Errorf("persist ledger to %s: %w", store.String(), err)
	}

	l.mu.Lock()
	l.mutations -= pending
	l.mu.Unlock()
	return nil
}
