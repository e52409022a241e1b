// Package reconcile keeps the local store faithful to the backend when push
// messages alone cannot: it pulls authoritative snapshots at startup and on
// every reconnect, and guards backtests against a lost terminal push with a
// timed fallback pull.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"findash/internal/api"
	"findash/internal/state"
	"findash/internal/util"
)

// Reconciler is the pull-side writer of the store. It replaces slices with
// pull responses exactly as the router would with the equivalent push.
type Reconciler struct {
	api        *api.Client
	store      *state.Store
	log        *slog.Logger
	stallDelay time.Duration

	// inFlight counts commands awaiting a response; the stall fallback holds
	// off while any are pending. Command completion signals recheck so the
	// watcher re-evaluates even when the command changed no slice.
	inFlight atomic.Int32
	recheck  chan struct{}
}

// New creates a reconciler pulling through client into store. stallDelay is
// how long a backtest may sit without progress or results before the summary
// resource is polled.
func New(client *api.Client, store *state.Store, stallDelay time.Duration, log *slog.Logger) *Reconciler {
	return &Reconciler{
		api:        client,
		store:      store,
		log:        log,
		stallDelay: stallDelay,
		recheck:    make(chan struct{}, 1),
	}
}

// Baseline establishes the mount-time state: the full resync, retried a few
// times so a briefly unreachable backend does not leave the client rendering
// zero values.
func (r *Reconciler) Baseline(ctx context.Context) error {
	return util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		return r.Resync(ctx)
	})
}

// Resync pulls every baseline resource and replaces the corresponding slice.
// It runs on mount and on every transition of the push channel to open: the
// server is not guaranteed to re-push snapshots after a reconnect, and frames
// missed while disconnected are gone for good. A failed pull leaves its slice
// at the last known-good value.
func (r *Reconciler) Resync(ctx context.Context) error {
	var errs []error

	if scanner, err := r.api.ScannerConfig(ctx); err != nil {
		r.log.Warn("scanner status pull failed", "error", err)
		errs = append(errs, err)
	} else {
		r.store.SetScanner(scanner)
	}

	if signals, err := r.api.ActiveSignals(ctx); err != nil {
		r.log.Warn("active signals pull failed", "error", err)
		errs = append(errs, err)
	} else {
		r.store.SetSignals(state.Live, signals)
	}

	if eod, err := r.api.EODStatus(ctx); err != nil {
		r.log.Warn("eod status pull failed", "error", err)
		errs = append(errs, err)
	} else {
		r.store.SetEODStatus(state.Live, eod)
	}

	sim, err := r.api.SimulationStatus(ctx)
	if err != nil {
		r.log.Warn("simulation status pull failed", "error", err)
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	r.store.SetSim(sim)

	if sim.IsActive {
		if simSignals, err := r.api.SimActiveSignals(ctx); err != nil {
			r.log.Warn("sim signals pull failed", "error", err)
			errs = append(errs, err)
		} else {
			r.store.SetSignals(state.Sim, simSignals)
		}
	}

	return errors.Join(errs...)
}

// StallWatch polls nothing in steady state: it waits for store changes and
// command completions, and only when a backtest sits active with neither
// progress nor results for the stall delay does it pull the summary once. The
// timer fires at most once per continuous occurrence of that condition and
// never re-arms after results are known. Blocks until ctx is cancelled.
func (r *Reconciler) StallWatch(ctx context.Context) {
	id, events := r.store.Subscribe(16)
	defer r.store.Unsubscribe(id)

	var timer *time.Timer
	var fire <-chan time.Time
	fired := false

	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			fire = nil
		}
	}
	defer disarm()

	for {
		if r.stalled() {
			if timer == nil && !fired {
				timer = time.NewTimer(r.stallDelay)
				fire = timer.C
			}
		} else {
			fired = false
			disarm()
		}

		select {
		case <-ctx.Done():
			return
		case <-fire:
			timer = nil
			fire = nil
			if r.stalled() {
				fired = true
				r.pullBacktestSummary(ctx)
			}
		case <-r.recheck:
			// A command finished; loop to re-evaluate the condition.
		case _, ok := <-events:
			if !ok {
				return
			}
		}
	}
}

// commandDone releases one in-flight command and wakes the stall watcher.
// Without the wake, a stall beginning while a command is pending would never
// be re-evaluated: inFlight transitions emit no store event.
func (r *Reconciler) commandDone() {
	r.inFlight.Add(-1)
	select {
	case r.recheck <- struct{}{}:
	default:
	}
}

// stalled reports whether a backtest appears to have lost its terminal push:
// active backtest mode, no progress seen, no results known, and no command
// awaiting a response.
func (r *Reconciler) stalled() bool {
	if r.inFlight.Load() > 0 {
		return false
	}
	sim := r.store.Sim()
	if !sim.IsActive || !sim.IsBacktest {
		return false
	}
	bt := r.store.Backtest()
	return bt.Progress == nil && bt.Results == nil
}

// pullBacktestSummary fetches the summary resource and, when it shows
// completed trades, publishes it exactly as backtest_complete would. The
// session id captured before the pull guards against the summary landing
// after a newer run has started. A failed fallback changes nothing — the run
// keeps showing in progress rather than showing wrong data.
func (r *Reconciler) pullBacktestSummary(ctx context.Context) {
	sessionID := r.store.Sim().SessionID

	summary, err := r.api.BacktestSummary(ctx)
	if err != nil {
		r.log.Warn("backtest summary fallback pull failed", "error", err)
		return
	}
	if summary.Overall.TotalTrades == 0 {
		r.log.Debug("backtest summary fallback found no trades yet")
		return
	}

	if r.store.PublishBacktestResultsForSession(summary, sessionID) {
		r.log.Info("backtest results recovered via summary pull",
			"trades", summary.Overall.TotalTrades)
	} else {
		r.log.Debug("discarding stale backtest summary pull")
	}
}
