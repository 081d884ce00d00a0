// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/voidops/voidops/internal/admin"
	"github.com/voidops/voidops/internal/command"
	"github.com/voidops/voidops/internal/config"
	"github.com/voidops/voidops/internal/dispatch"
	"github.com/voidops/voidops/internal/economy"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/notify"
	"github.com/voidops/voidops/internal/observability"
	"github.com/voidops/voidops/internal/tick"
)

const (
	shutdownTimeout   = 15 * time.Second
	notifyQueueLength = 64
)

// serveConfig holds flags local to serve.
type serveConfig struct {
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	scfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation server",
		Long: `Run the tick scheduler, the websocket gateway and the metrics/admin
listener until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, scfg)
		},
	}

	cmd.Flags().BoolVar(&scfg.autoMigrate, "auto-migrate", false, "apply pending migrations before starting (postgres only)")

	return cmd
}

// app is the wired simulation: every component serve runs.
type app struct {
	Engine     *tick.Engine
	Scheduler  *tick.Scheduler
	Hub        *notify.Hub
	Limiter    *command.RateLimiter
	Dispatcher *command.Dispatcher
	Gateway    *notify.Gateway
}

// buildApp wires the simulation over b. Metrics are registered on reg.
func buildApp(cfg config.Config, cat *gamedata.Catalog, b *backend, clock fleet.Clock, random fleet.Random, reg prometheus.Registerer, logger *slog.Logger) (*app, error) {
	tick.RegisterMetrics(reg)
	command.RegisterMetrics(reg)
	notify.RegisterMetrics(reg)

	hub := notify.NewHub(notifyQueueLength, logger)

	engine := tick.NewEngine(tick.EngineConfig{
		Drones:     b.Drones,
		Transactor: b.Transactor,
		Log:        b.Events,
		Notifier:   hub,
		Catalog:    cat,
		Random:     random,
		Logger:     logger.With("component", "tick"),
	})

	scheduler, err := tick.NewScheduler(engine, clock, cfg.TickInterval(cat), logger.With("component", "scheduler"))
	if err != nil {
		return nil, err
	}

	limiter := command.NewRateLimiterWithRegistry(command.LimiterConfig{
		Burst:     cfg.RateLimit.Burst,
		PerSecond: cfg.RateLimit.PerSecond,
	}, reg)

	dispatcher, err := command.NewDispatcher(command.DispatcherConfig{
		Tasks: dispatch.NewService(dispatch.ServiceConfig{
			Drones:     b.Drones,
			Transactor: b.Transactor,
			Catalog:    cat,
			Clock:      clock,
		}),
		Market: economy.NewService(economy.ServiceConfig{
			Drones:     b.Drones,
			Accounts:   b.Accounts,
			Transactor: b.Transactor,
			Catalog:    cat,
			Random:     random,
		}),
		Drones:  b.Drones,
		Events:  b.Events,
		Catalog: cat,
		Clock:   clock,
		Limiter: limiter,
		Logger:  logger.With("component", "command"),
	})
	if err != nil {
		limiter.Close()
		return nil, err
	}

	gateway := notify.NewGateway(notify.GatewayConfig{
		Hub:      hub,
		Commands: dispatcher,
		Logger:   logger.With("component", "gateway"),
	})

	return &app{
		Engine:     engine,
		Scheduler:  scheduler,
		Hub:        hub,
		Limiter:    limiter,
		Dispatcher: dispatcher,
		Gateway:    gateway,
	}, nil
}

func runServe(cmd *cobra.Command, scfg *serveConfig) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return oops.With("operation", "load game data").With("path", cfg.GameData).Wrap(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, backendOptions{AutoMigrate: scfg.autoMigrate}, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	obs := observability.NewServer(cfg.MetricsAddr, b.Ready)
	obs.Metrics().BuildInfo.WithLabelValues(version, cfg.Store).Set(1)

	a, err := buildApp(cfg, cat, b, fleet.SystemClock, fleet.SystemRandom, obs.Registry(), logger)
	if err != nil {
		return err
	}
	defer a.Limiter.Close()

	admin.Register(obs, admin.Config{
		Ticks:    a.Scheduler,
		Requests: obs.Metrics().AdminRequests,
		Logger:   logger,
	})

	var obsErrs <-chan error
	if cfg.MetricsAddr != "" {
		if obsErrs, err = obs.Start(); err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return oops.With("operation", "listen").With("addr", cfg.ListenAddr).Wrap(err)
	}
	gameSrv := &http.Server{
		Handler:           notify.NewMux(a.Gateway, time.Now()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	gameErrs := make(chan error, 1)
	go func() {
		defer close(gameErrs)
		if serveErr := gameSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			gameErrs <- serveErr
		}
	}()

	if err := a.Scheduler.Start(ctx); err != nil {
		return oops.With("operation", "start scheduler").Wrap(err)
	}

	logger.Info("voidops started",
		"store", cfg.Store,
		"listen_addr", listener.Addr().String(),
		"metrics_addr", obs.Addr(),
		"tick_interval_ms", a.Scheduler.Interval().Milliseconds(),
		"drone_types", len(cat.Drones),
		"locations", len(cat.Locations),
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err, ok := <-gameErrs:
		if ok {
			runErr = oops.With("operation", "serve game listener").Wrap(err)
		}
	case err, ok := <-obsErrs:
		if ok {
			runErr = oops.With("operation", "serve observability").Wrap(err)
		}
	}

	a.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := gameSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping game listener", "error", err)
	}
	if err := obs.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}
