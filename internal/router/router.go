// Package router dispatches inbound push envelopes to the state slice that
// owns each message kind.
package router

import (
	"encoding/json"
	"log/slog"

	"findash/internal/state"
	"findash/internal/wire"
)

// Router classifies envelopes by kind and applies whole-value replacements to
// the store. It is the single push-side writer of every slice. Malformed or
// unknown envelopes are logged and dropped; no mutation happens and nothing
// escapes — a new server-side message kind must never crash an old client.
type Router struct {
	store *state.Store
	log   *slog.Logger
}

// New creates a router writing into store.
func New(store *state.Store, log *slog.Logger) *Router {
	return &Router{store: store, log: log}
}

// Route applies one envelope to the store. It runs synchronously to
// completion; the channel manager delivers frames one at a time, so no two
// routing passes ever interleave.
func (r *Router) Route(env wire.Envelope) {
	switch env.Type {
	case wire.KindScannerStatus:
		var status wire.ScannerStatus
		if !r.decode(env, &status) {
			return
		}
		r.store.SetScanner(status)

	case wire.KindSignalsUpdate, wire.KindSimSignalsUpdate:
		var signals []wire.Signal
		if !r.decode(env, &signals) {
			return
		}
		r.store.SetSignals(scopeOf(env.Type), signals)

	case wire.KindEODStatus:
		var status wire.EODStatus
		if !r.decode(env, &status) {
			return
		}
		r.store.SetEODStatus(state.Live, status)

	case wire.KindEODProgress, wire.KindSimEODProgress:
		var progress wire.EODProgress
		if !r.decode(env, &progress) {
			return
		}
		r.store.SetEODProgress(scopeOf(env.Type), progress)

	case wire.KindEODComplete, wire.KindSimEODComplete:
		var complete wire.EODComplete
		if !r.decode(env, &complete) {
			return
		}
		r.store.CompleteEOD(scopeOf(env.Type), complete)

	case wire.KindSimStatus:
		var status wire.SimStatus
		if !r.decode(env, &status) {
			return
		}
		r.store.SetSim(status)

	case wire.KindSimBacktestProgress:
		var progress wire.BacktestProgress
		if !r.decode(env, &progress) {
			return
		}
		r.store.SetBacktestProgress(progress)

	case wire.KindBacktestComplete:
		var results wire.BacktestResults
		if !r.decode(env, &results) {
			return
		}
		r.store.PublishBacktestResults(results)

	case wire.KindScanProgress, wire.KindSimScanProgress:
		var progress wire.ScanProgress
		if !r.decode(env, &progress) {
			return
		}
		r.store.SetScanProgress(scopeOf(env.Type), progress)

	case wire.KindScanStarted, wire.KindScanFinished:
		var scan wire.MarketScan
		if !r.decode(env, &scan) {
			return
		}
		r.store.SetMarketScanning(scan.Market, env.Type == wire.KindScanStarted)

	default:
		r.log.Debug("dropping unknown message kind", "kind", env.Type)
	}
}

// decode unmarshals the envelope payload into v, logging and reporting false
// on failure so the caller leaves the slice untouched.
func (r *Router) decode(env wire.Envelope, v any) bool {
	if err := json.Unmarshal(env.Data, v); err != nil {
		r.log.Warn("dropping malformed payload", "kind", env.Type, "error", err)
		return false
	}
	return true
}

// scopeOf maps a kind to the live or simulation slice family. Only called
// for kinds that have both variants.
func scopeOf(kind wire.Kind) state.Scope {
	switch kind {
	case wire.KindSimSignalsUpdate, wire.KindSimEODProgress,
		wire.KindSimEODComplete, wire.KindSimScanProgress:
		return state.Sim
	}
	return state.Live
}
