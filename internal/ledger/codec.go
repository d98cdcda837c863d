package ledger

import (
	"time"

	"bandwatch/internal/clock"
)

// Encode converts ledger instants into their stored string form.
func Encode(entries map[string]time.Time) map[string]string {
	out := make(map[string]string, len(entries))
	for k, t := range entries {
		out[k] = clock.FormatTimestamp(t)
	}
	return out
}

// Decode parses stored values. Keys whose value cannot be parsed are returned in skipped
// and left out of the result.
func Decode(raw map[string]string) (entries map[string]time.Time, skipped []string) {
	entries = make(map[string]time.Time, len(raw))
	for k, v := range raw {
		t, err := clock.ParseTimestamp(v)
		if err != nil {
			skipped = append(skipped, k)
			continue
		}
		entries[k] = t
	}
	return entries, skipped
}
