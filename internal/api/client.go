// Package api is the REST client for the financia backend: the pull
// resources the reconciliation layer reads and the commands callers issue.
// It is transport only — state replacement happens in the reconcile package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"findash/internal/wire"
)

// Error is a non-2xx response from the backend. Command failures are not
// retried; they surface to the caller with the status and a body snippet.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Body)
}

// Client talks to the financia REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Pull resources
// ---------------------------------------------------------------------------

// ScannerConfig retrieves the scanner configuration and status.
func (c *Client) ScannerConfig(ctx context.Context) (wire.ScannerStatus, error) {
	var out wire.ScannerStatus
	err := c.do(ctx, http.MethodGet, "/strategies/scanner/config", nil, &out)
	return out, err
}

// ActiveSignals retrieves the live active signal set.
func (c *Client) ActiveSignals(ctx context.Context) ([]wire.Signal, error) {
	var out []wire.Signal
	err := c.do(ctx, http.MethodGet, "/strategies/signals/active", nil, &out)
	return out, err
}

// SimActiveSignals retrieves the simulation active signal set.
func (c *Client) SimActiveSignals(ctx context.Context) ([]wire.Signal, error) {
	var out []wire.Signal
	err := c.do(ctx, http.MethodGet, "/simulation/signals/active", nil, &out)
	return out, err
}

// EODStatus retrieves the end-of-day analysis snapshot.
func (c *Client) EODStatus(ctx context.Context) (wire.EODStatus, error) {
	var out wire.EODStatus
	err := c.do(ctx, http.MethodGet, "/strategies/eod-analysis/status", nil, &out)
	return out, err
}

// SimulationStatus retrieves the simulation clock snapshot.
func (c *Client) SimulationStatus(ctx context.Context) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodGet, "/simulation/status", nil, &out)
	return out, err
}

// BacktestSummary retrieves the backtest results summary with per-strategy
// breakdown.
func (c *Client) BacktestSummary(ctx context.Context) (wire.BacktestResults, error) {
	var out wire.BacktestResults
	err := c.do(ctx, http.MethodGet, "/simulation/backtest/summary", nil, &out)
	return out, err
}

// ---------------------------------------------------------------------------
// Simulation clock commands — each returns the fresh clock snapshot.
// ---------------------------------------------------------------------------

// StartSimulation starts a new simulation session.
func (c *Client) StartSimulation(ctx context.Context, req wire.StartSimulationRequest) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodPost, "/simulation/start", req, &out)
	return out, err
}

// PauseSimulation pauses the running simulation.
func (c *Client) PauseSimulation(ctx context.Context) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodPost, "/simulation/pause", nil, &out)
	return out, err
}

// ResumeSimulation resumes a paused simulation.
func (c *Client) ResumeSimulation(ctx context.Context) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodPost, "/simulation/resume", nil, &out)
	return out, err
}

// StopSimulation terminates the simulation session.
func (c *Client) StopSimulation(ctx context.Context) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodPost, "/simulation/stop", nil, &out)
	return out, err
}

// NextHour advances the simulation clock by one hour.
func (c *Client) NextHour(ctx context.Context) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodPost, "/simulation/next-hour", nil, &out)
	return out, err
}

// NextDay advances the simulation clock to the next trading day.
func (c *Client) NextDay(ctx context.Context) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodPost, "/simulation/next-day", nil, &out)
	return out, err
}

// StartBacktest starts an accelerated backtest session.
func (c *Client) StartBacktest(ctx context.Context, req wire.StartBacktestRequest) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodPost, "/simulation/backtest/start", req, &out)
	return out, err
}

// StopBacktest stops a running backtest or exits backtest mode.
func (c *Client) StopBacktest(ctx context.Context) (wire.SimStatus, error) {
	var out wire.SimStatus
	err := c.do(ctx, http.MethodPost, "/simulation/backtest/stop", nil, &out)
	return out, err
}

// ---------------------------------------------------------------------------
// Scanner / EOD / signal commands
// ---------------------------------------------------------------------------

// UpdateScannerConfig changes scanner settings and returns the new status.
func (c *Client) UpdateScannerConfig(ctx context.Context, req wire.ScannerConfigUpdate) (wire.ScannerStatus, error) {
	var out wire.ScannerStatus
	err := c.do(ctx, http.MethodPut, "/strategies/scanner/config", req, &out)
	return out, err
}

// ScanNow triggers an immediate live market scan.
func (c *Client) ScanNow(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/strategies/scanner/scan-now", nil, nil)
}

// SimScanNow triggers a scan at the current simulation time.
func (c *Client) SimScanNow(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/simulation/scan-now", nil, nil)
}

// StartEODAnalysis starts a live end-of-day analysis run.
func (c *Client) StartEODAnalysis(ctx context.Context, req wire.StartEODRequest) error {
	return c.do(ctx, http.MethodPost, "/strategies/eod-analysis/start", req, nil)
}

// CancelEODAnalysis cancels the live end-of-day analysis run.
func (c *Client) CancelEODAnalysis(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/strategies/eod-analysis/cancel", nil, nil)
}

// StartSimEODAnalysis starts an end-of-day analysis at simulation time.
func (c *Client) StartSimEODAnalysis(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/simulation/eod-analysis", nil, nil)
}

// CancelSimEODAnalysis cancels the simulation end-of-day analysis run.
func (c *Client) CancelSimEODAnalysis(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/simulation/eod-analysis/cancel", nil, nil)
}

// ConfirmEntry confirms the human fill of a triggered live signal.
func (c *Client) ConfirmEntry(ctx context.Context, signalID int, req wire.ConfirmEntryRequest) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/strategies/signals/%d/confirm-entry", signalID), req, nil)
}

// CancelSignal cancels a live signal.
func (c *Client) CancelSignal(ctx context.Context, signalID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/strategies/signals/%d", signalID), nil, nil)
}

// ConfirmSimEntry confirms the fill of a triggered simulation signal.
func (c *Client) ConfirmSimEntry(ctx context.Context, signalID int, req wire.ConfirmEntryRequest) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/simulation/signals/%d/confirm-entry", signalID), req, nil)
}

// CancelSimSignal cancels a simulation signal.
func (c *Client) CancelSimSignal(ctx context.Context, signalID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/simulation/signals/%d", signalID), nil, nil)
}

// ---------------------------------------------------------------------------

// do issues one request and decodes the JSON response into out (when out is
// non-nil). Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{Status: resp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
