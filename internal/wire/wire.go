// Package wire defines the message envelope and payload types exchanged with
// the financia dashboard backend, both over the push websocket and over the
// REST pull/command endpoints.
package wire

import "encoding/json"

// Kind is the type tag carried by every push envelope. The set is closed but
// extensible: unknown kinds must be dropped by consumers, never treated as
// errors.
type Kind string

const (
	KindScannerStatus       Kind = "scanner_status"
	KindSignalsUpdate       Kind = "signals_update"
	KindEODStatus           Kind = "eod_status"
	KindEODProgress         Kind = "eod_progress"
	KindEODComplete         Kind = "eod_complete"
	KindSimStatus           Kind = "sim_status"
	KindSimSignalsUpdate    Kind = "sim_signals_update"
	KindSimEODProgress      Kind = "sim_eod_progress"
	KindSimEODComplete      Kind = "sim_eod_complete"
	KindSimBacktestProgress Kind = "sim_backtest_progress"
	KindBacktestComplete    Kind = "backtest_complete"
	KindScanProgress        Kind = "scan_progress"
	KindSimScanProgress     Kind = "sim_scan_progress"

	// Legacy administrative kinds emitted by the recommendation scanner.
	KindScanStarted  Kind = "SCAN_STARTED"
	KindScanFinished Kind = "SCAN_FINISHED"
)

// Envelope is the frame format for every inbound push message. Data stays
// raw until the router knows which payload type the kind selects.
type Envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Market identifiers used by the backend.
const (
	MarketBIST100 = "bist100"
	MarketBinance = "binance"
)

// Signal lifecycle states. A signal is only shown while in one of these;
// terminal states (stopped, target_hit, cancelled) drop out of the active set
// server-side.
const (
	SignalPending   = "pending"
	SignalTriggered = "triggered"
	SignalEntered   = "entered"
)

// EmailNotifications holds the scanner's per-event email toggles.
type EmailNotifications struct {
	Triggered    bool `json:"triggered"`
	EntryReached bool `json:"entry_reached"`
}

// ScannerStatus is the payload of scanner_status and the scanner config
// resource. last_scan_at is an ISO timestamp or null.
type ScannerStatus struct {
	IsRunning           bool               `json:"is_running"`
	IsScanning          bool               `json:"is_scanning"`
	ScanIntervalMinutes int                `json:"scan_interval_minutes"`
	LastScanAt          *string            `json:"last_scan_at"`
	EmailNotifications  EmailNotifications `json:"email_notifications"`
}

// Signal is one entry of a signals_update / sim_signals_update payload. The
// backend always sends the complete active set, never deltas.
type Signal struct {
	ID               int      `json:"id"`
	Ticker           string   `json:"ticker"`
	Market           string   `json:"market"`
	StrategyID       int      `json:"strategy_id"`
	Status           string   `json:"status"`
	Direction        string   `json:"direction"`
	EntryPrice       *float64 `json:"entry_price"`
	StopLoss         *float64 `json:"stop_loss"`
	TakeProfit       *float64 `json:"take_profit"`
	CurrentPrice     *float64 `json:"current_price"`
	EntryReached     bool     `json:"entry_reached"`
	ActualEntryPrice *float64 `json:"actual_entry_price"`
	Lots             int      `json:"lots"`
	RemainingLots    int      `json:"remaining_lots"`
	Notes            string   `json:"notes"`
	CreatedAt        *string  `json:"created_at"`
	TriggeredAt      *string  `json:"triggered_at"`
	EnteredAt        *string  `json:"entered_at"`
}

// EODFilters are the volume/change thresholds applied to an EOD run.
type EODFilters struct {
	MinChange         float64 `json:"min_change"`
	MinRelativeVolume float64 `json:"min_relative_volume"`
	MinVolume         float64 `json:"min_volume"`
}

// EODResult is one row of an end-of-day analysis result set.
type EODResult struct {
	Ticker         string  `json:"ticker"`
	Symbol         string  `json:"symbol"`
	Close          float64 `json:"close"`
	Open           float64 `json:"open"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	PrevClose      float64 `json:"prev_close"`
	ChangePercent  float64 `json:"change_percent"`
	Volume         int64   `json:"volume"`
	AvgVolume      int64   `json:"avg_volume"`
	RelativeVolume float64 `json:"relative_volume"`
	VolumeTL       float64 `json:"volume_tl"`
}

// EODStatus is the payload of eod_status and the EOD status resource: a full
// snapshot of the analysis service, including the last published results.
type EODStatus struct {
	IsAnalyzing  bool        `json:"is_analyzing"`
	LastRunAt    *string     `json:"last_run_at"`
	TotalScanned int         `json:"total_scanned"`
	ResultsCount int         `json:"results_count"`
	Results      []EODResult `json:"results"`
	Filters      EODFilters  `json:"filters"`
}

// EOD progress statuses carried by eod_progress / sim_eod_progress.
const (
	EODStarted   = "started"
	EODRunning   = "running"
	EODCompleted = "completed"
	EODCancelled = "cancelled"
)

// EODProgress is the payload of eod_progress and sim_eod_progress.
type EODProgress struct {
	Status  string  `json:"status"`
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Ticker  *string `json:"ticker"`
}

// Terminal reports whether this progress message ends the run (the client
// must clear its progress slice on either outcome).
func (p EODProgress) Terminal() bool {
	return p.Status == EODCompleted || p.Status == EODCancelled
}

// EODComplete is the payload of eod_complete / sim_eod_complete: the terminal
// artifact of one analysis run.
type EODComplete struct {
	Date         string      `json:"date"`
	ResultsCount int         `json:"results_count"`
	Results      []EODResult `json:"results"`
	TotalScanned int         `json:"total_scanned"`
	Filters      EODFilters  `json:"filters"`
}

// SimStatus is the payload of sim_status and the simulation status resource:
// the full simulation clock snapshot including balance metrics. SessionID is
// null when no session has ever been created.
type SimStatus struct {
	IsActive          bool    `json:"is_active"`
	IsPaused          bool    `json:"is_paused"`
	DayCompleted      bool    `json:"day_completed"`
	HourCompleted     bool    `json:"hour_completed"`
	IsScanning        bool    `json:"is_scanning"`
	IsEODRunning      bool    `json:"is_eod_running"`
	IsBacktest        bool    `json:"is_backtest"`
	IsBacktestRunning bool    `json:"is_backtest_running"`
	CurrentTime       *string `json:"current_time"`
	StartDate         *string `json:"start_date"`
	EndDate           *string `json:"end_date"`
	SecondsPerHour    int     `json:"seconds_per_hour"`
	SessionID         *int    `json:"session_id"`

	InitialBalance float64 `json:"initial_balance"`
	CurrentBalance float64 `json:"current_balance"`
	TotalProfit    float64 `json:"total_profit"`
	ProfitPercent  float64 `json:"profit_percent"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
}

// BacktestProgress is the payload of sim_backtest_progress.
type BacktestProgress struct {
	CurrentDay  int     `json:"current_day"`
	TotalDays   int     `json:"total_days"`
	CurrentDate string  `json:"current_date"`
	TradesSoFar int     `json:"trades_so_far"`
	TotalProfit float64 `json:"total_profit"`
}

// BalanceStats mirrors the backend's balance summary block.
type BalanceStats struct {
	InitialBalance float64 `json:"initial_balance"`
	CurrentBalance float64 `json:"current_balance"`
	TotalProfit    float64 `json:"total_profit"`
	ProfitPercent  float64 `json:"profit_percent"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
}

// StrategyStats is the per-strategy breakdown of a backtest summary.
type StrategyStats struct {
	StrategyID         int     `json:"strategy_id"`
	StrategyName       string  `json:"strategy_name"`
	StrategyType       string  `json:"strategy_type"`
	TotalTrades        int     `json:"total_trades"`
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	WinRate            float64 `json:"win_rate"`
	TotalProfitTL      float64 `json:"total_profit_tl"`
	TotalProfitPercent float64 `json:"total_profit_percent"`
	AvgProfitPercent   float64 `json:"avg_profit_percent"`
	AvgRRAchieved      float64 `json:"avg_rr_achieved"`
	BestTradePercent   float64 `json:"best_trade_percent"`
	WorstTradePercent  float64 `json:"worst_trade_percent"`
}

// BacktestResults is the payload of backtest_complete and the backtest
// summary resource. Once set it supersedes any BacktestProgress.
type BacktestResults struct {
	Overall     BalanceStats    `json:"overall"`
	PerStrategy []StrategyStats `json:"per_strategy"`
}

// ScanProgress is the payload of scan_progress / sim_scan_progress. Transient:
// used only for progress rendering, never persisted.
type ScanProgress struct {
	Market  string `json:"market"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Ticker  string `json:"ticker"`
}

// MarketScan is the payload of the legacy SCAN_STARTED / SCAN_FINISHED kinds.
// Count is only present on SCAN_FINISHED.
type MarketScan struct {
	Market string `json:"market"`
	Count  int    `json:"count"`
}
