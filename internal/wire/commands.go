package wire

// StartSimulationRequest is the body of POST /simulation/start. Dates are
// ISO (YYYY-MM-DD).
type StartSimulationRequest struct {
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	SecondsPerHour int     `json:"seconds_per_hour"`
	InitialBalance float64 `json:"initial_balance"`
}

// StartBacktestRequest is the body of POST /simulation/backtest/start. A
// backtest replays the same date range as a simulation but runs uninterrupted
// to completion.
type StartBacktestRequest struct {
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	InitialBalance float64 `json:"initial_balance"`
}

// ConfirmEntryRequest is the body of the confirm-entry command: the human
// confirmed fill price for a triggered signal awaiting entry.
type ConfirmEntryRequest struct {
	EntryPrice float64 `json:"entry_price"`
	Lots       int     `json:"lots"`
}

// ScannerConfigUpdate is the body of PUT /strategies/scanner/config. Pointer
// fields are omitted when the caller does not change them.
type ScannerConfigUpdate struct {
	IsRunning           *bool               `json:"is_running,omitempty"`
	ScanIntervalMinutes *int                `json:"scan_interval_minutes,omitempty"`
	EmailNotifications  *EmailNotifications `json:"email_notifications,omitempty"`
}

// StartEODRequest is the body of the EOD analysis start command.
type StartEODRequest struct {
	Filters *EODFilters `json:"filters,omitempty"`
}
