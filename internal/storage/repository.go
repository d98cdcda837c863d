package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSnapshotSQL = `INSERT INTO band_snapshots (
        symbol,
        observed_at,
        price,
        mean,
        upper_band,
        lower_band,
        rsi,
        category
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    RETURNING id, created_at;`

	listRecentSnapshotsSQL = `SELECT
        id,
        symbol,
        observed_at,
        price,
        mean,
        upper_band,
        lower_band,
        rsi,
        category,
        created_at
    FROM band_snapshots
    WHERE symbol = $1
    ORDER BY observed_at DESC
    LIMIT $2;`

	insertAlertSQL = `INSERT INTO alerts (
        alert_key,
        symbol,
        category,
        price,
        level,
        rsi,
        message,
        delivered,
        error,
        fired_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (alert_key, fired_at) DO UPDATE
    SET delivered = EXCLUDED.delivered,
        error     = EXCLUDED.error
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        alert_key,
        symbol,
        category,
        price,
        level,
        rsi,
        message,
        delivered,
        error,
        fired_at,
        created_at
    FROM alerts
    ORDER BY fired_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL    = `DELETE FROM alerts WHERE fired_at < $1;`
	deleteSnapshotsBeforeSQL = `DELETE FROM band_snapshots WHERE observed_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore persists evaluated band snapshots.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snap SnapshotRecord) (SnapshotRecord, error)
	ListRecentSnapshots(ctx context.Context, symbol string, limit int) ([]SnapshotRecord, error)
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to snapshots and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// The lock dies with the session anyway; releasing the conn is what matters.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertSnapshot appends a band snapshot.
func (s *Store) InsertSnapshot(ctx context.Context, snap SnapshotRecord) (SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return SnapshotRecord{}, err
	}

	row := pool.QueryRow(ctx, insertSnapshotSQL,
		snap.Symbol,
		snap.ObservedAt,
		snap.Price.String(),
		snap.Mean.String(),
		snap.Upper.String(),
		snap.Lower.String(),
		snap.RSI.String(),
		snap.Category,
	)
	if scanErr := row.Scan(&snap.ID, &snap.CreatedAt); scanErr != nil {
		return SnapshotRecord{}, fmt.Errorf("insert snapshot: %w", scanErr)
	}
	return snap, nil
}

// ListRecentSnapshots lists the latest snapshots for symbol, newest first.
func (s *Store) ListRecentSnapshots(ctx context.Context, symbol string, limit int) ([]SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, symbol, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	snaps := make([]SnapshotRecord, 0, limit)
	for rows.Next() {
		snap, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snaps = append(snaps, snap)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snaps, nil
}

// InsertAlert persists an alert emission. Re-inserting the same key and instant
// only refreshes the delivery outcome.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	var errMsg interface{}
	if alert.Error != nil {
		errMsg = *alert.Error
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Key,
		alert.Symbol,
		alert.Category,
		alert.Price.String(),
		alert.Level.String(),
		alert.RSI.String(),
		alert.Message,
		alert.Delivered,
		errMsg,
		alert.FiredAt,
	)
	if scanErr := row.Scan(&alert.ID, &alert.CreatedAt); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return alert, nil
}

// ListRecentAlerts lists alerts newest first.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes alerts fired before olderThan and reports how many went.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.deleteBefore(ctx, deleteAlertsBeforeSQL, "alerts", olderThan)
}

// DeleteSnapshotsBefore deletes snapshots observed before olderThan.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.deleteBefore(ctx, deleteSnapshotsBeforeSQL, "snapshots", olderThan)
}

func (s *Store) deleteBefore(ctx context.Context, query, what string, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, query, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete %s before: %w", what, execErr)
	}
	return tag.RowsAffected(), nil
}

func scanSnapshot(rows pgx.Rows) (SnapshotRecord, error) {
	var (
		snap                      SnapshotRecord
		priceStr, meanStr, rsiStr string
		upperStr, lowerStr        string
	)

	if err := rows.Scan(
		&snap.ID,
		&snap.Symbol,
		&snap.ObservedAt,
		&priceStr,
		&meanStr,
		&upperStr,
		&lowerStr,
		&rsiStr,
		&snap.Category,
		&snap.CreatedAt,
	); err != nil {
		return SnapshotRecord{}, err
	}

	values, err := parseDecimals(
		namedDecimal{"price", priceStr},
		namedDecimal{"mean", meanStr},
		namedDecimal{"upper band", upperStr},
		namedDecimal{"lower band", lowerStr},
		namedDecimal{"rsi", rsiStr},
	)
	if err != nil {
		return SnapshotRecord{}, err
	}
	snap.Price, snap.Mean, snap.Upper, snap.Lower, snap.RSI = values[0], values[1], values[2], values[3], values[4]
	return snap, nil
}

func scanAlert(rows pgx.Rows) (AlertRecord, error) {
	var (
		rec                        AlertRecord
		priceStr, levelStr, rsiStr string
		errMsg                     sql.NullString
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.Key,
		&rec.Symbol,
		&rec.Category,
		&priceStr,
		&levelStr,
		&rsiStr,
		&rec.Message,
		&rec.Delivered,
		&errMsg,
		&rec.FiredAt,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	values, err := parseDecimals(
		namedDecimal{"price", priceStr},
		namedDecimal{"level", levelStr},
		namedDecimal{"rsi", rsiStr},
	)
	if err != nil {
		return AlertRecord{}, err
	}
	rec.Price, rec.Level, rec.RSI = values[0], values[1], values[2]

	if errMsg.Valid {
		msg := errMsg.String
		rec.Error = &msg
	}
	return rec, nil
}

type namedDecimal struct {
	name  string
	value string
}

func parseDecimals(fields ...namedDecimal) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(fields))
	for i, f := range fields {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
		out[i] = d
	}
	return out, nil
}
