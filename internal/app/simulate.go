package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bandwatch/internal/alerting"
	bandsignal "bandwatch/internal/signal"
)

// SimulateAlert classifies a synthetic price against given bands and dispatches
// the resulting message. The cooldown ledger is not consulted.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) (bandsignal.Result, error) {
	if strings.TrimSpace(opts.Symbol) == "" {
		return bandsignal.Result{}, errors.New("symbol required")
	}
	if opts.Upper <= opts.Lower {
		return bandsignal.Result{}, fmt.Errorf("upper band %.2f must be above lower band %.2f", opts.Upper, opts.Lower)
	}

	th := bandsignal.Thresholds{
		CriticalPct: a.Config.Signal.CriticalPct,
		Overbought:  a.Config.Signal.Overbought,
		Oversold:    a.Config.Signal.Oversold,
	}
	result, fired := bandsignal.Classify(bandsignal.Input{
		Symbol: opts.Symbol,
		Price:  opts.Price,
		Upper:  opts.Upper,
		Lower:  opts.Lower,
		RSI:    opts.RSI,
	}, th)

	if !fired {
		fmt.Fprintf(a.Out, "%s: no alert (%s)\n", opts.Symbol, result.Category)
		return result, nil
	}

	fmt.Fprintf(a.Out, "%s -> %s\n%s\n", result.Key, result.Category, result.Text)
	if opts.DryRun {
		return result, nil
	}
	if !a.Config.Alerting.Enabled {
		return result, errors.New("alerting disabled")
	}

	notifier := a.newNotifier()
	if err := notifier.Notify(ctx, alerting.Notification{Key: result.Key, Text: result.Text}); err != nil {
		return result, fmt.Errorf("dispatch simulated alert: %w", err)
	}
	return result, nil
}
