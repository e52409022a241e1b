// Package channel owns the persistent websocket connection to the financia
// backend: connect, read, and a fixed-delay reconnect loop that never gives
// up. The backend is a trusted first-party service, so there is no backoff
// growth and no retry cap — availability wins over politeness here.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"findash/internal/router"
	"findash/internal/wire"
)

// ConnectionState is the lifecycle of the push channel, owned exclusively by
// the Manager.
type ConnectionState int

const (
	Connecting ConnectionState = iota
	Open
	Closed
)

// String returns the lowercase name of the state.
func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Manager maintains one websocket connection and feeds every inbound frame,
// synchronously and in arrival order, to the router. Frame order is the only
// ordering guarantee, and only within one connection — a reconnect carries no
// continuity promise, which is why the OnOpen hook re-runs reconciliation.
type Manager struct {
	url            string
	router         *router.Router
	log            *slog.Logger
	reconnectDelay time.Duration
	dialer         *websocket.Dialer

	// OnOpen runs after every successful connect, before frames are read.
	OnOpen func(ctx context.Context)
	// OnStateChange reports transitions for the offline indicator. It must
	// not block.
	OnStateChange func(s ConnectionState)

	mu    sync.RWMutex
	state ConnectionState
}

// NewManager creates a channel manager dialing wsURL (see WSURL) with the
// given fixed reconnect delay.
func NewManager(wsURL string, rt *router.Router, reconnectDelay, handshakeTimeout time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		url:            wsURL,
		router:         rt,
		log:            log,
		reconnectDelay: reconnectDelay,
		dialer:         &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		state:          Closed,
	}
}

// WSURL derives the push channel URL from the configured HTTP base:
// http→ws, https→wss, path /ws.
func WSURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in base URL", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Run connects and keeps the channel alive until ctx is cancelled. Each drop
// schedules a new attempt after the fixed delay, indefinitely.
func (m *Manager) Run(ctx context.Context) {
	for {
		m.setState(Connecting)

		conn, resp, err := m.dialer.DialContext(ctx, m.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			m.setState(Closed)
			if ctx.Err() != nil {
				return
			}
			m.log.Warn("websocket dial failed", "url", m.url, "error", err)
			if !m.wait(ctx) {
				return
			}
			continue
		}

		m.setState(Open)
		m.log.Info("push channel connected", "url", m.url)
		if m.OnOpen != nil {
			m.OnOpen(ctx)
		}

		m.readLoop(ctx, conn)
		conn.Close()
		m.setState(Closed)

		if ctx.Err() != nil {
			return
		}
		m.log.Warn("push channel lost, reconnecting", "delay", m.reconnectDelay)
		if !m.wait(ctx) {
			return
		}
	}
}

// readLoop consumes frames until the connection fails or ctx is cancelled.
// Each frame is fully routed before the next is read, so message handling is
// single-threaded and sequential.
func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				m.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.log.Warn("dropping unparseable frame", "error", err)
			continue
		}
		m.router.Route(env)
	}
}

// wait sleeps the reconnect delay; false means ctx was cancelled.
func (m *Manager) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(m.reconnectDelay):
		return true
	}
}

func (m *Manager) setState(s ConnectionState) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	m.mu.Unlock()
	if changed && m.OnStateChange != nil {
		m.OnStateChange(s)
	}
}
