package reconcile

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"findash/internal/api"
	"findash/internal/state"
	"findash/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

// backend fakes the financia REST surface with mutable canned responses.
type backend struct {
	srv *httptest.Server

	mu          sync.Mutex
	scanner     wire.ScannerStatus
	signals     []wire.Signal
	simSignals  []wire.Signal
	eod         wire.EODStatus
	sim         wire.SimStatus
	summary     wire.BacktestResults
	failScanner bool
	summaryHits int
	scanGate    chan struct{} // when set, scan-now blocks until closed
	scanStarted chan struct{} // when set, closed once scan-now arrives
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/strategies/scanner/config", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failScanner {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(b.scanner)
	})
	mux.HandleFunc("/strategies/signals/active", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.signals)
	})
	mux.HandleFunc("/simulation/signals/active", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.simSignals)
	})
	mux.HandleFunc("/strategies/eod-analysis/status", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.eod)
	})
	mux.HandleFunc("/simulation/status", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.sim)
	})
	mux.HandleFunc("/simulation/backtest/summary", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.summaryHits++
		json.NewEncoder(w).Encode(b.summary)
	})
	mux.HandleFunc("/strategies/scanner/scan-now", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		gate, started := b.scanGate, b.scanStarted
		b.scanStarted = nil
		b.mu.Unlock()
		if started != nil {
			close(started)
		}
		if gate != nil {
			<-gate
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/simulation/pause", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.sim.IsActive {
			http.Error(w, `{"detail":"No simulation is active"}`, http.StatusBadRequest)
			return
		}
		b.sim.IsPaused = true
		json.NewEncoder(w).Encode(b.sim)
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) hits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summaryHits
}

func newTestReconciler(t *testing.T, b *backend, stallDelay time.Duration) (*Reconciler, *state.Store) {
	t.Helper()
	store := state.NewStore()
	rec := New(api.NewClient(b.srv.URL), store, stallDelay, discardLogger())
	return rec, store
}

func TestResyncPopulatesAllSlices(t *testing.T) {
	b := newBackend(t)
	b.scanner = wire.ScannerStatus{IsRunning: true, ScanIntervalMinutes: 5}
	b.signals = []wire.Signal{{ID: 1, Ticker: "THYAO.IS", Status: wire.SignalPending}}
	b.eod = wire.EODStatus{ResultsCount: 1, Results: []wire.EODResult{{Ticker: "SASA.IS"}}}
	b.sim = wire.SimStatus{IsActive: true, SessionID: intPtr(4)}
	b.simSignals = []wire.Signal{{ID: 20, Status: wire.SignalTriggered}}

	rec, store := newTestReconciler(t, b, time.Second)
	if err := rec.Resync(context.Background()); err != nil {
		t.Fatalf("Resync() returned error: %v", err)
	}

	if got := store.Scanner(); !got.IsRunning {
		t.Error("Scanner not populated by resync")
	}
	if got := store.Signals(state.Live); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("live Signals = %+v, want ID 1", got)
	}
	if got := store.EOD(state.Live); got.Status.ResultsCount != 1 {
		t.Errorf("EOD.ResultsCount = %d, want 1", got.Status.ResultsCount)
	}
	if got := store.Sim(); !got.IsActive {
		t.Error("Sim not populated by resync")
	}
	if got := store.Signals(state.Sim); len(got) != 1 || got[0].ID != 20 {
		t.Errorf("sim Signals = %+v, want ID 20", got)
	}
	if store.Mode() != state.ModeSimulation {
		t.Errorf("Mode = %q, want %q", store.Mode(), state.ModeSimulation)
	}
}

func TestResyncFailedPullKeepsLastKnownGood(t *testing.T) {
	b := newBackend(t)
	rec, store := newTestReconciler(t, b, time.Second)

	store.SetScanner(wire.ScannerStatus{IsRunning: true, ScanIntervalMinutes: 15})
	b.mu.Lock()
	b.failScanner = true
	b.mu.Unlock()

	if err := rec.Resync(context.Background()); err == nil {
		t.Error("Resync() = nil error with failing resource, want error")
	}

	if got := store.Scanner(); !got.IsRunning || got.ScanIntervalMinutes != 15 {
		t.Errorf("Scanner = %+v, want last known-good value", got)
	}
}

func TestStallFallbackFiresExactlyOnce(t *testing.T) {
	b := newBackend(t)
	b.sim = wire.SimStatus{IsActive: true, IsBacktest: true, IsBacktestRunning: true, SessionID: intPtr(2)}
	b.summary = wire.BacktestResults{
		Overall:     wire.BalanceStats{TotalTrades: 6, TotalProfit: 1234.5},
		PerStrategy: []wire.StrategyStats{{StrategyID: 1, TotalTrades: 6}},
	}

	rec, store := newTestReconciler(t, b, 30*time.Millisecond)
	store.SetSim(b.sim)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { rec.StallWatch(ctx); close(done) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if bt := store.Backtest(); bt.Results != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	bt := store.Backtest()
	if bt.Results == nil {
		t.Fatal("stall fallback did not publish results")
	}
	if bt.Results.Overall.TotalTrades != 6 {
		t.Errorf("Results.Overall.TotalTrades = %d, want 6", bt.Results.Overall.TotalTrades)
	}
	if bt.Progress != nil {
		t.Error("Progress != nil after published results, want nil")
	}

	// The condition no longer holds; the timer must not re-arm.
	time.Sleep(100 * time.Millisecond)
	if got := b.hits(); got != 1 {
		t.Errorf("summary pulls = %d, want exactly 1", got)
	}

	cancel()
	<-done
}

func TestStallFallbackSkipsWhileProgressPresent(t *testing.T) {
	b := newBackend(t)
	rec, store := newTestReconciler(t, b, 30*time.Millisecond)

	store.SetSim(wire.SimStatus{IsActive: true, IsBacktest: true, SessionID: intPtr(1)})
	store.SetBacktestProgress(wire.BacktestProgress{CurrentDay: 2, TotalDays: 10})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { rec.StallWatch(ctx); close(done) }()

	time.Sleep(120 * time.Millisecond)
	if got := b.hits(); got != 0 {
		t.Errorf("summary pulls = %d, want 0 while progress flows", got)
	}

	cancel()
	<-done
}

func TestStallFallbackWithEmptySummaryStaysSafe(t *testing.T) {
	b := newBackend(t)
	b.sim = wire.SimStatus{IsActive: true, IsBacktest: true, SessionID: intPtr(1)}
	// Zero trades: inconclusive, so nothing is published and the check does
	// not fire again for this occurrence.
	b.summary = wire.BacktestResults{}

	rec, store := newTestReconciler(t, b, 30*time.Millisecond)
	store.SetSim(b.sim)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { rec.StallWatch(ctx); close(done) }()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && b.hits() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := b.hits(); got != 1 {
		t.Errorf("summary pulls = %d, want exactly 1 per occurrence", got)
	}
	if bt := store.Backtest(); bt.Results != nil {
		t.Error("empty summary published as results, want left in progress")
	}

	cancel()
	<-done
}

func TestStallFallbackFiresAfterCommandCompletes(t *testing.T) {
	b := newBackend(t)
	b.sim = wire.SimStatus{IsActive: true, IsBacktest: true, SessionID: intPtr(3)}
	b.summary = wire.BacktestResults{Overall: wire.BalanceStats{TotalTrades: 2}}
	gate := make(chan struct{})
	started := make(chan struct{})
	b.scanGate = gate
	b.scanStarted = started

	rec, store := newTestReconciler(t, b, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { rec.StallWatch(ctx); close(done) }()

	// Hold a fire-and-forget command in flight, then let the stall condition
	// begin while it is pending. The command releases no store event, so its
	// completion alone must wake the watcher.
	cmdDone := make(chan struct{})
	go func() {
		rec.ScanNow(ctx)
		close(cmdDone)
	}()
	<-started

	store.SetSim(b.sim)
	close(gate)
	<-cmdDone

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if bt := store.Backtest(); bt.Results != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	bt := store.Backtest()
	if bt.Results == nil {
		t.Fatal("fallback never fired after the in-flight command completed")
	}
	if got := b.hits(); got != 1 {
		t.Errorf("summary pulls = %d, want exactly 1", got)
	}

	cancel()
	<-done
}

func TestPauseCommandAppliesSnapshot(t *testing.T) {
	b := newBackend(t)
	b.sim = wire.SimStatus{IsActive: true, SessionID: intPtr(5)}

	rec, store := newTestReconciler(t, b, time.Second)
	store.SetSim(b.sim)

	got, err := rec.PauseSimulation(context.Background())
	if err != nil {
		t.Fatalf("PauseSimulation() returned error: %v", err)
	}
	if !got.IsPaused {
		t.Error("returned snapshot IsPaused = false, want true")
	}
	if sim := store.Sim(); !sim.IsPaused {
		t.Error("store Sim.IsPaused = false after command, want true")
	}
}

func TestFailedCommandMutatesNothing(t *testing.T) {
	b := newBackend(t) // sim inactive: pause returns 400
	rec, store := newTestReconciler(t, b, time.Second)

	if _, err := rec.PauseSimulation(context.Background()); err == nil {
		t.Fatal("PauseSimulation() = nil error, want failure")
	}
	if sim := store.Sim(); sim.IsPaused || sim.IsActive {
		t.Errorf("Sim = %+v, want untouched zero value", sim)
	}
}
