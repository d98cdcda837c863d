package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotRecord is one evaluated band snapshot.
type SnapshotRecord struct {
	ID         int64
	Symbol     string
	ObservedAt time.Time
	Price      decimal.Decimal
	Mean       decimal.Decimal
	Upper      decimal.Decimal
	Lower      decimal.Decimal
	RSI        decimal.Decimal
	Category   string
	CreatedAt  time.Time
}

// AlertRecord captures a notification that passed the cooldown gate.
type AlertRecord struct {
	ID        int64
	Key       string
	Symbol    string
	Category  string
	Price     decimal.Decimal
	Level     decimal.Decimal
	RSI       decimal.Decimal
	Message   string
	Delivered bool
	Error     *string
	FiredAt   time.Time
	CreatedAt time.Time
}
