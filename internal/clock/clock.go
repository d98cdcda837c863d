package clock

import (
	"fmt"
	"strings"
	"time"
)

// Zone is the fixed UTC-3 zone every ledger timestamp and log line uses.
// It has no daylight-saving rules.
var Zone = time.FixedZone("UTC-3", -3*60*60)

// TimestampLayout is the on-disk form of ledger timestamps (ISO-8601, microseconds, fixed offset).
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// Clock yields the current instant. Tests swap in a fixed value.
type Clock func() time.Time

// System returns the wall clock expressed in Zone.
func System() time.Time {
	return time.Now().In(Zone)
}

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t.In(Zone) }
}

// Local converts t into Zone.
func Local(t time.Time) time.Time {
	return t.In(Zone)
}

// IsWeekend reports whether t falls on Saturday or Sunday in Zone.
func IsWeekend(t time.Time) bool {
	wd := t.In(Zone).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// FormatTimestamp renders t in Zone with the offset baked in.
func FormatTimestamp(t time.Time) string {
	return t.In(Zone).Format(TimestampLayout)
}

var offsetLessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp accepts RFC 3339 values with any offset and offset-less ISO values,
// which are read as Zone wall time. The result is always expressed in Zone.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.In(Zone), nil
	}
	for _, layout := range offsetLessLayouts {
		if t, err := time.ParseInLocation(layout, value, Zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unsupported format", raw)
}

// LogStamp renders the "DD/MM HH:MM" prefix used by the log sink and digest text.
func LogStamp(t time.Time) string {
	return t.In(Zone).Format("02/01 15:04")
}
