package reconcile

import (
	"context"

	"findash/internal/wire"
)

// Command relays. Each issues the request and, when the backend returns a
// complete snapshot, replaces the owning slice with it — the same
// whole-value replacement the equivalent push would perform, so a command's
// local effect and the server's later broadcast are idempotent with respect
// to each other. Failures surface to the caller and mutate nothing.

// StartSimulation starts a new simulation session.
func (r *Reconciler) StartSimulation(ctx context.Context, req wire.StartSimulationRequest) (wire.SimStatus, error) {
	return r.simCommand(func() (wire.SimStatus, error) { return r.api.StartSimulation(ctx, req) })
}

// PauseSimulation pauses the running simulation.
func (r *Reconciler) PauseSimulation(ctx context.Context) (wire.SimStatus, error) {
	return r.simCommand(func() (wire.SimStatus, error) { return r.api.PauseSimulation(ctx) })
}

// ResumeSimulation resumes a paused simulation.
func (r *Reconciler) ResumeSimulation(ctx context.Context) (wire.SimStatus, error) {
	return r.simCommand(func() (wire.SimStatus, error) { return r.api.ResumeSimulation(ctx) })
}

// StopSimulation terminates the simulation session.
func (r *Reconciler) StopSimulation(ctx context.Context) (wire.SimStatus, error) {
	return r.simCommand(func() (wire.SimStatus, error) { return r.api.StopSimulation(ctx) })
}

// NextHour advances the simulation clock one hour. Only meaningful while
// stepping controls are offered (see state.CanStep).
func (r *Reconciler) NextHour(ctx context.Context) (wire.SimStatus, error) {
	return r.simCommand(func() (wire.SimStatus, error) { return r.api.NextHour(ctx) })
}

// NextDay advances the simulation clock to the next trading day.
func (r *Reconciler) NextDay(ctx context.Context) (wire.SimStatus, error) {
	return r.simCommand(func() (wire.SimStatus, error) { return r.api.NextDay(ctx) })
}

// StartBacktest starts an accelerated backtest session.
func (r *Reconciler) StartBacktest(ctx context.Context, req wire.StartBacktestRequest) (wire.SimStatus, error) {
	return r.simCommand(func() (wire.SimStatus, error) { return r.api.StartBacktest(ctx, req) })
}

// StopBacktest stops a running backtest or exits backtest mode.
func (r *Reconciler) StopBacktest(ctx context.Context) (wire.SimStatus, error) {
	return r.simCommand(func() (wire.SimStatus, error) { return r.api.StopBacktest(ctx) })
}

// UpdateScannerConfig changes scanner settings and applies the returned
// status snapshot.
func (r *Reconciler) UpdateScannerConfig(ctx context.Context, req wire.ScannerConfigUpdate) (wire.ScannerStatus, error) {
	r.inFlight.Add(1)
	defer r.commandDone()

	status, err := r.api.UpdateScannerConfig(ctx, req)
	if err != nil {
		return wire.ScannerStatus{}, err
	}
	r.store.SetScanner(status)
	return status, nil
}

// ScanNow triggers an immediate live scan; progress arrives by push.
func (r *Reconciler) ScanNow(ctx context.Context) error {
	return r.relay(func() error { return r.api.ScanNow(ctx) })
}

// SimScanNow triggers a scan at the current simulation time.
func (r *Reconciler) SimScanNow(ctx context.Context) error {
	return r.relay(func() error { return r.api.SimScanNow(ctx) })
}

// StartEODAnalysis starts a live end-of-day analysis run.
func (r *Reconciler) StartEODAnalysis(ctx context.Context, req wire.StartEODRequest) error {
	return r.relay(func() error { return r.api.StartEODAnalysis(ctx, req) })
}

// CancelEODAnalysis cancels the live end-of-day analysis run.
func (r *Reconciler) CancelEODAnalysis(ctx context.Context) error {
	return r.relay(func() error { return r.api.CancelEODAnalysis(ctx) })
}

// StartSimEODAnalysis starts an end-of-day analysis at simulation time.
func (r *Reconciler) StartSimEODAnalysis(ctx context.Context) error {
	return r.relay(func() error { return r.api.StartSimEODAnalysis(ctx) })
}

// CancelSimEODAnalysis cancels the simulation end-of-day analysis run.
func (r *Reconciler) CancelSimEODAnalysis(ctx context.Context) error {
	return r.relay(func() error { return r.api.CancelSimEODAnalysis(ctx) })
}

// ConfirmEntry confirms the fill of a triggered signal. The updated signal
// set arrives by the signals_update broadcast that follows.
func (r *Reconciler) ConfirmEntry(ctx context.Context, signalID int, req wire.ConfirmEntryRequest) error {
	return r.relay(func() error { return r.api.ConfirmEntry(ctx, signalID, req) })
}

// CancelSignal cancels a live signal.
func (r *Reconciler) CancelSignal(ctx context.Context, signalID int) error {
	return r.relay(func() error { return r.api.CancelSignal(ctx, signalID) })
}

// ConfirmSimEntry confirms the fill of a triggered simulation signal.
func (r *Reconciler) ConfirmSimEntry(ctx context.Context, signalID int, req wire.ConfirmEntryRequest) error {
	return r.relay(func() error { return r.api.ConfirmSimEntry(ctx, signalID, req) })
}

// CancelSimSignal cancels a simulation signal.
func (r *Reconciler) CancelSimSignal(ctx context.Context, signalID int) error {
	return r.relay(func() error { return r.api.CancelSimSignal(ctx, signalID) })
}

// simCommand runs a clock command and applies the returned snapshot.
func (r *Reconciler) simCommand(call func() (wire.SimStatus, error)) (wire.SimStatus, error) {
	r.inFlight.Add(1)
	defer r.commandDone()

	status, err := call()
	if err != nil {
		return wire.SimStatus{}, err
	}
	r.store.SetSim(status)
	return status, nil
}

// relay runs a command with no snapshot in its response.
func (r *Reconciler) relay(call func() error) error {
	r.inFlight.Add(1)
	defer r.commandDone()
	return call()
}
