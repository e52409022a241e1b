package state

import (
	"testing"

	"findash/internal/wire"
)

func TestModeOf(t *testing.T) {
	tests := []struct {
		name   string
		status wire.SimStatus
		want   Mode
	}{
		{"inactive", wire.SimStatus{}, ModeLive},
		{"inactive ignores backtest flag", wire.SimStatus{IsBacktest: true}, ModeLive},
		{"active simulation", wire.SimStatus{IsActive: true}, ModeSimulation},
		{"active paused simulation", wire.SimStatus{IsActive: true, IsPaused: true}, ModeSimulation},
		{"active backtest", wire.SimStatus{IsActive: true, IsBacktest: true}, ModeBacktest},
		{"running backtest", wire.SimStatus{IsActive: true, IsBacktest: true, IsBacktestRunning: true}, ModeBacktest},
	}

	for _, tt := range tests {
		if got := ModeOf(tt.status); got != tt.want {
			t.Errorf("%s: ModeOf = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCanStep(t *testing.T) {
	if CanStep(wire.SimStatus{}) {
		t.Error("CanStep(inactive) = true, want false")
	}
	if !CanStep(wire.SimStatus{IsActive: true}) {
		t.Error("CanStep(simulation) = false, want true")
	}
	// Backtest and manual stepping are mutually exclusive.
	if CanStep(wire.SimStatus{IsActive: true, IsBacktest: true}) {
		t.Error("CanStep(backtest) = true, want false")
	}
}

func TestStoreModeRecomputesOnReplacement(t *testing.T) {
	s := NewStore()
	if got := s.Mode(); got != ModeLive {
		t.Errorf("Mode() on empty store = %q, want %q", got, ModeLive)
	}

	s.SetSim(wire.SimStatus{IsActive: true})
	if got := s.Mode(); got != ModeSimulation {
		t.Errorf("Mode() = %q, want %q", got, ModeSimulation)
	}

	s.SetSim(wire.SimStatus{IsActive: true, IsBacktest: true})
	if got := s.Mode(); got != ModeBacktest {
		t.Errorf("Mode() = %q, want %q", got, ModeBacktest)
	}

	s.SetSim(wire.SimStatus{})
	if got := s.Mode(); got != ModeLive {
		t.Errorf("Mode() after stop = %q, want %q", got, ModeLive)
	}
}
