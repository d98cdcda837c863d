package service

import (
	"time"

	"bandwatch/internal/indicator"
	"bandwatch/internal/signal"
)

// Outcome is what happened to one ticker in a cycle.
type Outcome string

const (
	OutcomeSkippedWeekend   Outcome = "skipped_weekend"
	OutcomeInsufficientData Outcome = "insufficient_data"
	OutcomeNoSignal         Outcome = "no_signal"
	OutcomeAlerted          Outcome = "alerted"
	OutcomeSuppressed       Outcome = "suppressed"
	OutcomeFailed           Outcome = "failed"
)

// ErrorKind classifies per-ticker failures.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindDataUnavailable ErrorKind = "data_unavailable"
	KindProvider        ErrorKind = "provider"
	KindComputation     ErrorKind = "computation"
	KindNotification    ErrorKind = "notification"
)

// TickerResult is the typed result of evaluating one watchlist entry. An alerted
// result may still carry a notification error: the ledger key stays recorded.
type TickerResult struct {
	Symbol   string
	Outcome  Outcome
	Category signal.Category
	Key      string
	Snapshot indicator.Snapshot
	Kind     ErrorKind
	Err      error
}

// CycleReport aggregates one pass over the watchlist.
type CycleReport struct {
	Started     time.Time
	Finished    time.Time
	Results     []TickerResult
	DigestSent  bool
	Persisted   bool
	PersistErr  error
	LockSkipped bool
	Interrupted bool
}

// Count returns how many results have outcome o.
func (r CycleReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns the results that carry an error.
func (r CycleReport) Failures() []TickerResult {
	var out []TickerResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}
