package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bandwatch/internal/alerting"
	"bandwatch/internal/clock"
	"bandwatch/internal/ledger"
)

// DefaultDigestHours are the local hours at which the status digest is sent.
var DefaultDigestHours = []int{9, 18}

// DigestKey is the ledger key for the digest of now's local date and hour.
func DigestKey(now time.Time) string {
	local := clock.Local(now)
	return fmt.Sprintf("DIGEST_%s_%02d", local.Format("2006-01-02"), local.Hour())
}

// DigestMessage renders the status digest.
func DigestMessage(now time.Time, watched int) string {
	local := clock.Local(now)
	status := "Market open"
	if clock.IsWeekend(local) {
		status = "Market closed (weekend)"
	}

	var b strings.Builder
	b.WriteString("🤖 STATUS ONLINE\n")
	fmt.Fprintf(&b, "📅 %s\n", clock.LogStamp(local))
	fmt.Fprintf(&b, "ℹ️ %s\n", status)
	fmt.Fprintf(&b, "👁️ Watching %d assets.", watched)
	return b.String()
}

func (s *Service) digestDue(now time.Time) bool {
	if !s.opts.DigestEnabled {
		return false
	}
	hour := clock.Local(now).Hour()
	for _, h := range s.opts.DigestHours {
		if h == hour {
			return true
		}
	}
	return false
}

// sendDigest fires the digest at most once per (date, hour). The key is recorded
// even when delivery fails.
func (s *Service) sendDigest(ctx context.Context, l *ledger.Ledger, now time.Time) bool {
	if !s.digestDue(now) {
		return false
	}
	key := DigestKey(now)
	if l.Has(key) {
		return false
	}

	note := alerting.Notification{Key: key, Text: DigestMessage(now, s.watchlist.Len())}
	if err := s.notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("digest delivery failed")
	} else {
		s.logger.Info().Str("key", key).Msg("Daily digest sent.")
	}
	l.Record(key)
	return true
}
