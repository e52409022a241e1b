package state

import "findash/internal/wire"

// Mode is the derived operating context of the dashboard. It decides which
// command prefix callers use (live vs. simulation ledger) and which clock
// controls are offered.
type Mode string

const (
	ModeLive       Mode = "live"
	ModeSimulation Mode = "simulation"
	ModeBacktest   Mode = "backtest"
)

// ModeOf derives the mode from a simulation clock snapshot. Pure: the same
// snapshot always yields the same mode.
func ModeOf(s wire.SimStatus) Mode {
	if !s.IsActive {
		return ModeLive
	}
	if s.IsBacktest {
		return ModeBacktest
	}
	return ModeSimulation
}

// CanStep reports whether manual hour/day stepping and pause/resume controls
// are meaningful. A backtest drives the clock itself, so stepping is only
// offered for an interactive simulation.
func CanStep(s wire.SimStatus) bool {
	return s.IsActive && !s.IsBacktest
}

// Mode returns the mode derived from the current simulation clock slice.
func (s *Store) Mode() Mode {
	return ModeOf(s.Sim())
}
