package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bandwatch/internal/clock"
)

// auditPruner is the retention side of the audit store.
type auditPruner interface {
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error)
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// Prune removes audited alerts and snapshots older than opts.OlderThan.
func (a *App) Prune(ctx context.Context, opts PruneOptions) error {
	if opts.OlderThan <= 0 {
		return errors.New("--older-than must be greater than zero")
	}
	if a.Config.Database.DSN == "" {
		return errors.New("database.dsn not configured")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return a.pruneAudit(ctx, store, clock.System().Add(-opts.OlderThan))
}

func (a *App) pruneAudit(ctx context.Context, store auditPruner, cutoff time.Time) error {
	alerts, err := store.DeleteAlertsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	snaps, err := store.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	a.Logger.Info().Int64("alerts", alerts).Int64("snapshots", snaps).Time("cutoff", cutoff).Msg("audit pruned")
	fmt.Fprintf(a.Out, "deleted %d alerts and %d snapshots before %s\n", alerts, snaps, clock.Local(cutoff).Format("2006-01-02 15:04"))
	return nil
}
