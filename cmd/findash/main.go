// findash is the dashboard client daemon for the financia market-scanning
// backend. It maintains a local mirror of server state (scanner, signals,
// end-of-day analysis, simulation clock, backtest) from the push channel and
// reconciliation pulls, and exposes it to rendering collaborators through
// the state store.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"findash/internal/api"
	"findash/internal/channel"
	"findash/internal/config"
	"findash/internal/prefs"
	"findash/internal/reconcile"
	"findash/internal/router"
	"findash/internal/state"
	"findash/internal/util"
)

func main() {
	var cfg *config.Config
	var err error
	if path := os.Getenv("FINDASH_CONFIG"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	prefStore, err := prefs.Open(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open preferences: %v", err)
	}
	defer prefStore.Close()

	store := state.NewStore()
	rt := router.New(store, logger)
	client := api.NewClient(cfg.Server.BaseURL)
	rec := reconcile.New(client, store, cfg.Channel.StallTimeout(), logger)

	wsURL, err := channel.WSURL(cfg.Server.BaseURL)
	if err != nil {
		log.Fatalf("invalid server base URL: %v", err)
	}
	mgr := channel.NewManager(wsURL, rt, cfg.Channel.ReconnectDelay(), cfg.Channel.HandshakeTimeout(), logger)
	mgr.OnOpen = func(ctx context.Context) {
		// Snapshots are not guaranteed to be re-pushed after a reconnect, so
		// every open re-establishes the baseline.
		if err := rec.Resync(ctx); err != nil {
			logger.Warn("resync incomplete", "error", err)
		}
		logger.Info("state synchronized", "mode", store.Mode())
	}
	mgr.OnStateChange = func(s channel.ConnectionState) {
		// The offline indicator: transport failures are never hard errors.
		logger.Info("push channel state", "state", s.String())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rec.Baseline(ctx); err != nil {
		logger.Warn("baseline sync incomplete, continuing with partial state", "error", err)
	}

	go rec.StallWatch(ctx)

	logger.Info("findash starting", "server", cfg.Server.BaseURL, "mode", store.Mode())
	mgr.Run(ctx)
	logger.Info("findash stopped")
}
