package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"bandwatch/internal/clock"
	"bandwatch/internal/ledger"
	"bandwatch/internal/storage"
)

// Show prints the cooldown ledger and, when a database is configured, recent
// alerts plus the audited snapshots of opts.Symbol.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	ledgerStore, closeLedger, err := a.openLedgerStore(ctx)
	if err != nil {
		return err
	}
	defer closeLedger()

	l := ledger.Load(ctx, ledgerStore, a.Config.Ledger.Cooldown, clock.System, a.Logger)
	a.printLedger(l, clock.System())

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		if opts.Symbol != "" {
			a.Logger.Warn().Msg("database.dsn not configured; no snapshots to show")
		}
		return nil
	}
	defer closeStore()

	if err := a.printAlerts(ctx, store, opts.Limit); err != nil {
		return err
	}
	if opts.Symbol == "" {
		return nil
	}
	return a.printSnapshots(ctx, store, opts.Symbol, opts.Limit)
}

func (a *App) printLedger(l *ledger.Ledger, now time.Time) {
	entries := l.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(a.Out, "ledger is empty")
		return
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Key\tLast fired (UTC-3)\tNext eligible\tState")
	for _, e := range entries {
		state := "ready"
		if now.Before(e.NextAfter) {
			state = "cooling"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			e.Key,
			clock.LogStamp(e.FiredAt),
			clock.LogStamp(e.NextAfter),
			state,
		)
	}
	writer.Flush()
}

func (a *App) printAlerts(ctx context.Context, store storage.AlertStore, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.Out)
	if len(alerts) == 0 {
		fmt.Fprintln(a.Out, "no alerts recorded")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Fired (UTC-3)\tKey\tPrice\tLevel\tRSI\tDelivered\tError")
	for _, rec := range alerts {
		errMsg := ""
		if rec.Error != nil {
			errMsg = sanitizeInline(*rec.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			clock.Local(rec.FiredAt).Format("2006-01-02 15:04"),
			rec.Key,
			rec.Price.StringFixed(2),
			rec.Level.StringFixed(2),
			rec.RSI.StringFixed(0),
			rec.Delivered,
			errMsg,
		)
	}
	return writer.Flush()
}

func (a *App) printSnapshots(ctx context.Context, store storage.SnapshotStore, symbol string, limit int) error {
	snaps, err := store.ListRecentSnapshots(ctx, symbol, limit)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.Out)
	if len(snaps) == 0 {
		fmt.Fprintf(a.Out, "no snapshots recorded for %s\n", symbol)
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Observed (UTC-3)\tPrice\tLower\tMean\tUpper\tRSI\tCategory")
	for _, snap := range snaps {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			clock.Local(snap.ObservedAt).Format("2006-01-02 15:04"),
			snap.Price.StringFixed(2),
			snap.Lower.StringFixed(2),
			snap.Mean.StringFixed(2),
			snap.Upper.StringFixed(2),
			snap.RSI.StringFixed(0),
			snap.Category,
		)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
