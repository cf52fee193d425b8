package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/obsidianstack/rangeshift/internal/alerts"
	"github.com/obsidianstack/rangeshift/internal/api"
	"github.com/obsidianstack/rangeshift/internal/auth"
	"github.com/obsidianstack/rangeshift/internal/config"
	"github.com/obsidianstack/rangeshift/internal/daemon"
	"github.com/obsidianstack/rangeshift/internal/metrics"
	"github.com/obsidianstack/rangeshift/internal/store"
	"github.com/obsidianstack/rangeshift/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the jobs from a config file and serves their results.
type ServeCmd struct {
	Config string `help:"Path to config file" default:"config.yaml" type:"path"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return c.serve(ctx, g)
}

// serve runs until ctx is cancelled. Background workers are stopped and
// joined before the history database and alert deliveries are closed out.
func (c *ServeCmd) serve(ctx context.Context, g *Globals) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(os.Stderr, pick(g.LogLevel, cfg.Log.Level), pick(g.LogFormat, cfg.Log.Format)))

	slog.Info("rangeshift starting",
		"version", version,
		"config", c.Config,
		"http_port", cfg.Server.HTTPPort,
		"jobs", len(cfg.Jobs),
		"history", cfg.Storage.Backend != "",
		"auth_mode", cfg.Server.Auth.Mode,
		"alert_rules", len(cfg.Alerts.Rules),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Result store with background TTL eviction.
	st := store.New(cfg.Server.ResultTTL)
	go st.Run(ctx)

	var hist *store.History
	if cfg.Storage.Backend == "sqlite" {
		hist, err = store.OpenHistory(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer hist.Close()
		slog.Info("history enabled", "path", cfg.Storage.Path, "retention", cfg.Storage.Retention)
	}

	hub := ws.New(st, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	alertEngine := alerts.New(cfg.Alerts)
	defer alertEngine.Wait()

	// Runs before the deferred Wait and Close above.
	var workers sync.WaitGroup
	defer func() {
		cancel()
		workers.Wait()
	}()

	d := daemon.New(cfg, daemon.Deps{Store: st, History: hist, Notifier: hub, Alerts: alertEngine})
	workers.Add(2)
	go func() {
		defer workers.Done()
		if err := d.Run(ctx); err != nil {
			slog.Error("daemon stopped", "err", err)
		}
	}()

	// Hot reload swaps jobs and engine settings. Port, TTL and storage
	// changes need a restart.
	go func() {
		defer workers.Done()
		err := config.Watch(ctx, c.Config, func(updated *config.Config) {
			if updated.Server != cfg.Server || updated.Storage != cfg.Storage {
				slog.Warn("config: server and storage changes apply after restart")
			}
			alertEngine.Update(updated.Alerts)
			d.SetConfig(updated)
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	requireKey := auth.APIKey(cfg.Server.Auth.Mode, cfg.Server.Auth.EffectiveHeader(), cfg.Server.Auth.Key())

	mux := http.NewServeMux()
	mux.Handle("/api/", requireKey(api.New(st, hist, alertEngine)))
	mux.Handle("/metrics", requireKey(metrics.Handler(st)))
	mux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("rangeshift shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	return httpSrv.Shutdown(shutdownCtx)
}

func pick(flag, fromConfig string) string {
	if flag != "" {
		return flag
	}
	return fromConfig
}
