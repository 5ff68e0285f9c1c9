package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/statuspulse/statuspulse/internal/api"
	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/engine"
	"github.com/statuspulse/statuspulse/internal/incident"
	"github.com/statuspulse/statuspulse/internal/notify"
	"github.com/statuspulse/statuspulse/internal/schedule"
	"github.com/statuspulse/statuspulse/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("statuspulse starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"services", len(cfg.Services),
		"http_port", cfg.HTTPPort,
		"base_interval", cfg.Scheduler.BaseInterval,
		"max_interval", cfg.Scheduler.MaxInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Monitoring core: time series store, detector, prober registry.
	eng := engine.New(engine.Options{
		Retention:     cfg.Retention.Cap,
		DefaultWindow: cfg.Retention.DefaultWindow,
		ProbeTimeout:  cfg.Probe.Timeout,
		ProbeConfig:   cfg.Probe,
	})
	eng.SetTrackedServices(cfg.Services)

	// Incident log — folds transition events into open/resolved intervals.
	incidents := incident.NewLog()
	incidentSub := eng.Subscribe()
	go func() {
		for ev := range incidentSub.C {
			incidents.Record(ev)
		}
	}()

	// Webhook notifier on its own subscription.
	notifier := notify.New(cfg.Notify.Webhooks)
	notifySub := eng.Subscribe()
	go notifier.Run(ctx, notifySub.C)

	// Adaptive poll cadence driving full engine cycles.
	sched := schedule.New(cfg.Scheduler.BaseInterval, cfg.Scheduler.MaxInterval, eng.Cycle)
	sched.Start(ctx)

	// WebSocket hub — streams snapshots every StreamPeriod and relays
	// transition events. The observer count doubles as the visibility
	// signal: polling pauses while nobody is watching.
	hub := ws.New(eng, cfg.StreamPeriod)
	hub.OnObserverChange = func(count int) {
		if count == 0 {
			sched.Suspend()
		} else {
			sched.Resume()
		}
	}
	go hub.Run(ctx)

	// Hot reload: swap the tracked service set without a restart. Dropped
	// services lose any open incident along with their history.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			before := make(map[string]struct{})
			for _, id := range eng.TrackedIDs() {
				before[id] = struct{}{}
			}
			eng.SetTrackedServices(next.Services)
			for _, svc := range next.Services {
				delete(before, svc.ID)
			}
			for id := range before {
				incidents.Drop(id)
			}
			slog.Info("service set reloaded", "services", len(next.Services))
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Combined HTTP server: REST API + WebSocket hub on HTTPPort.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(eng, incidents))
	httpMux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("statuspulse shutting down")
	incidentSub.Close()
	notifySub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
