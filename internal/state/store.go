// Package state holds the client-side mirror of the financia backend: one
// store with independently owned slices for scanner status, active signals,
// end-of-day analysis, the simulation clock, and backtest runs. Every update
// is a whole-value replacement of one slice — the server is the single source
// of truth and always emits complete snapshots, so slices are never merged
// field by field.
package state

import (
	"sync"

	"findash/internal/wire"
)

// Scope selects between the live slices and their simulation counterparts.
type Scope int

const (
	Live Scope = iota
	Sim
)

// Slice names a unit of synchronized state for change notifications.
type Slice string

const (
	SliceScanner         Slice = "scanner"
	SliceSignals         Slice = "signals"
	SliceSimSignals      Slice = "sim_signals"
	SliceEOD             Slice = "eod"
	SliceSimEOD          Slice = "sim_eod"
	SliceSim             Slice = "sim"
	SliceBacktest        Slice = "backtest"
	SliceScanProgress    Slice = "scan_progress"
	SliceSimScanProgress Slice = "sim_scan_progress"
	SliceScanning        Slice = "scanning_markets"
)

// ChangeEvent is emitted to subscribers after a slice has been replaced.
type ChangeEvent struct {
	Slice Slice
}

// EODState is the end-of-day analysis slice: the service snapshot plus the
// transient per-ticker progress. Progress is non-nil only while a run is in
// flight.
type EODState struct {
	Status   wire.EODStatus
	Progress *wire.EODProgress
}

// BacktestState is the backtest slice. Results, once set, supersede Progress;
// both are cleared when a new simulation session begins.
type BacktestState struct {
	Progress *wire.BacktestProgress
	Results  *wire.BacktestResults
}

// Store is the in-memory, thread-safe mirror of all server-side state the
// dashboard renders. Writes go through exactly one path per slice (the
// message router, or the reconciliation layer during a pull); everything else
// reads copies or subscribes to change events.
type Store struct {
	mu sync.RWMutex

	scanner    wire.ScannerStatus
	signals    []wire.Signal
	simSignals []wire.Signal
	eod        EODState
	simEOD     EODState
	sim        wire.SimStatus
	backtest   BacktestState

	scanProgress    *wire.ScanProgress
	simScanProgress *wire.ScanProgress
	scanning        map[string]bool

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan ChangeEvent
}

// NewStore creates an empty store; slices hold zero values until the first
// pull or push populates them.
func NewStore() *Store {
	return &Store{
		scanning: make(map[string]bool),
		subs:     make(map[int]chan ChangeEvent),
	}
}

// ---------------------------------------------------------------------------
// Writers (router / reconciler only)
// ---------------------------------------------------------------------------

// SetScanner replaces the scanner status slice.
func (s *Store) SetScanner(status wire.ScannerStatus) {
	s.mu.Lock()
	s.scanner = status
	s.mu.Unlock()
	s.notify(SliceScanner)
}

// SetSignals replaces the full active signal set for the given scope. The
// backend sends complete sets, so an empty list genuinely means no active
// signals.
func (s *Store) SetSignals(scope Scope, signals []wire.Signal) {
	cp := cloneSignals(signals)

	s.mu.Lock()
	if scope == Sim {
		s.simSignals = cp
	} else {
		s.signals = cp
	}
	s.mu.Unlock()
	s.notify(signalsSlice(scope))
}

// SetEODStatus replaces the end-of-day slice with a fresh service snapshot.
// Any in-flight progress is dropped; a running analysis re-broadcasts it.
func (s *Store) SetEODStatus(scope Scope, status wire.EODStatus) {
	s.mu.Lock()
	eod := s.eodFor(scope)
	eod.Status = status
	eod.Progress = nil
	s.mu.Unlock()
	s.notify(eodSlice(scope))
}

// SetEODProgress replaces the transient progress field. A terminal status
// (completed or cancelled) clears progress regardless of its prior value; a
// non-terminal one also marks the analysis as running.
func (s *Store) SetEODProgress(scope Scope, p wire.EODProgress) {
	s.mu.Lock()
	eod := s.eodFor(scope)
	if p.Terminal() {
		eod.Progress = nil
		if p.Status == wire.EODCancelled {
			eod.Status.IsAnalyzing = false
		}
	} else {
		prog := p
		eod.Progress = &prog
		eod.Status.IsAnalyzing = true
	}
	s.mu.Unlock()
	s.notify(eodSlice(scope))
}

// CompleteEOD publishes the terminal artifact of an analysis run: results are
// replaced, progress cleared, and the analyzing flag dropped.
func (s *Store) CompleteEOD(scope Scope, c wire.EODComplete) {
	s.mu.Lock()
	eod := s.eodFor(scope)
	eod.Status.IsAnalyzing = false
	eod.Status.Results = c.Results
	eod.Status.ResultsCount = c.ResultsCount
	eod.Status.TotalScanned = c.TotalScanned
	eod.Status.Filters = c.Filters
	if c.Date != "" {
		date := c.Date
		eod.Status.LastRunAt = &date
	}
	eod.Progress = nil
	s.mu.Unlock()
	s.notify(eodSlice(scope))
}

// SetSim replaces the simulation clock slice wholesale. Crossing into a new
// session (or out of any session) resets the backtest slice so stale progress
// or results from a previous run cannot survive.
func (s *Store) SetSim(status wire.SimStatus) {
	s.mu.Lock()
	newSession := !sameSession(s.sim.SessionID, status.SessionID)
	s.sim = status
	if newSession {
		s.backtest = BacktestState{}
	}
	s.mu.Unlock()
	s.notify(SliceSim)
	if newSession {
		s.notify(SliceBacktest)
	}
}

// SetBacktestProgress replaces the backtest progress field.
func (s *Store) SetBacktestProgress(p wire.BacktestProgress) {
	s.mu.Lock()
	prog := p
	s.backtest.Progress = &prog
	s.mu.Unlock()
	s.notify(SliceBacktest)
}

// PublishBacktestResults records the terminal artifact of a backtest run and
// clears its progress.
func (s *Store) PublishBacktestResults(r wire.BacktestResults) {
	s.mu.Lock()
	res := r
	s.backtest.Results = &res
	s.backtest.Progress = nil
	s.mu.Unlock()
	s.notify(SliceBacktest)
}

// PublishBacktestResultsForSession applies a pulled backtest summary only if
// the simulation session it was fetched for is still current and no results
// have arrived by push in the meantime. Returns whether it was applied. This
// is the ordering guard between the stall-fallback pull and a late push.
func (s *Store) PublishBacktestResultsForSession(r wire.BacktestResults, sessionID *int) bool {
	s.mu.Lock()
	if !sameSession(s.sim.SessionID, sessionID) || s.backtest.Results != nil {
		s.mu.Unlock()
		return false
	}
	res := r
	s.backtest.Results = &res
	s.backtest.Progress = nil
	s.mu.Unlock()
	s.notify(SliceBacktest)
	return true
}

// SetScanProgress replaces the transient market-scan progress for the scope.
func (s *Store) SetScanProgress(scope Scope, p wire.ScanProgress) {
	s.mu.Lock()
	prog := p
	if scope == Sim {
		s.simScanProgress = &prog
	} else {
		s.scanProgress = &prog
	}
	s.mu.Unlock()
	s.notify(scanProgressSlice(scope))
}

// SetMarketScanning toggles a market in the currently-scanning set (legacy
// SCAN_STARTED / SCAN_FINISHED kinds). Finishing a scan also clears the live
// scan progress when it belongs to that market.
func (s *Store) SetMarketScanning(market string, scanning bool) {
	s.mu.Lock()
	if scanning {
		s.scanning[market] = true
	} else {
		delete(s.scanning, market)
		if s.scanProgress != nil && s.scanProgress.Market == market {
			s.scanProgress = nil
		}
	}
	s.mu.Unlock()
	s.notify(SliceScanning)
}

// ---------------------------------------------------------------------------
// Readers
// ---------------------------------------------------------------------------

// Scanner returns a copy of the scanner status slice.
func (s *Store) Scanner() wire.ScannerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc := s.scanner
	sc.LastScanAt = clonePtr(sc.LastScanAt)
	return sc
}

// Signals returns a copy of the active signal set for the scope. Copies are
// deep: writing through a snapshot's pointer fields never reaches the store.
func (s *Store) Signals(scope Scope) []wire.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.signals
	if scope == Sim {
		src = s.simSignals
	}
	return cloneSignals(src)
}

// EOD returns a copy of the end-of-day slice for the scope.
func (s *Store) EOD(scope Scope) EODState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eod := s.eod
	if scope == Sim {
		eod = s.simEOD
	}
	if eod.Progress != nil {
		prog := *eod.Progress
		prog.Ticker = clonePtr(prog.Ticker)
		eod.Progress = &prog
	}
	eod.Status.LastRunAt = clonePtr(eod.Status.LastRunAt)
	eod.Status.Results = append([]wire.EODResult(nil), eod.Status.Results...)
	return eod
}

// Sim returns a copy of the simulation clock slice.
func (s *Store) Sim() wire.SimStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sim := s.sim
	sim.CurrentTime = clonePtr(sim.CurrentTime)
	sim.StartDate = clonePtr(sim.StartDate)
	sim.EndDate = clonePtr(sim.EndDate)
	sim.SessionID = clonePtr(sim.SessionID)
	return sim
}

// Backtest returns a copy of the backtest slice.
func (s *Store) Backtest() BacktestState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bt := s.backtest
	if bt.Progress != nil {
		prog := *bt.Progress
		bt.Progress = &prog
	}
	if bt.Results != nil {
		res := *bt.Results
		res.PerStrategy = append([]wire.StrategyStats(nil), res.PerStrategy...)
		bt.Results = &res
	}
	return bt
}

// ScanProgress returns a copy of the transient scan progress for the scope,
// or nil when no scan is reporting.
func (s *Store) ScanProgress(scope Scope) *wire.ScanProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.scanProgress
	if scope == Sim {
		src = s.simScanProgress
	}
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}

// ScanningMarkets returns the set of markets with a scan currently running.
func (s *Store) ScanningMarkets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	markets := make([]string, 0, len(s.scanning))
	for m := range s.scanning {
		markets = append(markets, m)
	}
	return markets
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

// Subscribe creates a change-event subscription. Events are delivered
// non-blocking: a subscriber that falls behind misses events rather than
// stalling the writer, and must re-read the slice it cares about.
func (s *Store) Subscribe(bufSize int) (id int, ch <-chan ChangeEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id = s.nextSubID
	s.nextSubID++
	c := make(chan ChangeEvent, bufSize)
	s.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Store) notify(slice Slice) {
	evt := ChangeEvent{Slice: slice}
	s.subsMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Slow subscriber, drop event.
		}
	}
	s.subsMu.Unlock()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// eodFor must be called with s.mu held.
func (s *Store) eodFor(scope Scope) *EODState {
	if scope == Sim {
		return &s.simEOD
	}
	return &s.eod
}

func signalsSlice(scope Scope) Slice {
	if scope == Sim {
		return SliceSimSignals
	}
	return SliceSignals
}

func eodSlice(scope Scope) Slice {
	if scope == Sim {
		return SliceSimEOD
	}
	return SliceEOD
}

func scanProgressSlice(scope Scope) Slice {
	if scope == Sim {
		return SliceSimScanProgress
	}
	return SliceScanProgress
}

func sameSession(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSignal(sig wire.Signal) wire.Signal {
	sig.EntryPrice = clonePtr(sig.EntryPrice)
	sig.StopLoss = clonePtr(sig.StopLoss)
	sig.TakeProfit = clonePtr(sig.TakeProfit)
	sig.CurrentPrice = clonePtr(sig.CurrentPrice)
	sig.ActualEntryPrice = clonePtr(sig.ActualEntryPrice)
	sig.CreatedAt = clonePtr(sig.CreatedAt)
	sig.TriggeredAt = clonePtr(sig.TriggeredAt)
	sig.EnteredAt = clonePtr(sig.EnteredAt)
	return sig
}

func cloneSignals(src []wire.Signal) []wire.Signal {
	cp := make([]wire.Signal, len(src))
	for i := range src {
		cp[i] = cloneSignal(src[i])
	}
	return cp
}
