// FlipFlow daemon — the listing lifecycle engine for a single-seller
// marketplace inventory.
//
// Architecture:
//
//	main.go                  — entry point: config, store, gateway, engine, signals
//	engine/engine.go         — coordinator: one transactional session per policy run
//	gatekeeper/              — pure validators: title, profit, mobile HTML, STR
//	lifecycle/               — repricer, zombie killer, resurrector, relister,
//	                           smart queue, photo shuffler, store pulse
//	growth/                  — kickstarter campaigns, offer sniper, purgatory
//	gateway/ebay/            — live marketplace client (OAuth, rate limiting, retry)
//	gateway/mock/            — stateful offline gateway for mock mode and tests
//	store/postgres/          — pgx-backed persistence; store/ holds the contract
//	scheduler/               — cron bindings for the recurring policy runs
//	api/                     — REST preview/execute surface + WS job event stream
//
// How it keeps listings alive:
//
//	Search ranking decays as a listing ages without engagement. The engine
//	reprices on a markdown ladder, detects zombies (old + unseen), clones
//	them under fresh marketplace identities, queues new listings into the
//	weekly conversion surge, promotes fresh listings with short ad
//	campaigns, and converts watchers into buyers with tiered offers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"flipflow/internal/api"
	"flipflow/internal/config"
	"flipflow/internal/engine"
	"flipflow/internal/gateway"
	"flipflow/internal/gateway/ebay"
	"flipflow/internal/gateway/mock"
	"flipflow/internal/scheduler"
	"flipflow/internal/store"
	"flipflow/internal/store/postgres"
)

func main() {
	cfgPath := os.Getenv("FLIPFLOW_CONFIG")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	ctx := context.Background()

	// Store: mock mode runs fully in memory, everything else on Postgres.
	var st store.Store
	if cfg.Ebay.Mode == "mock" {
		st = store.NewMemory()
		logger.Warn("MOCK MODE — in-memory store, nothing is persisted")
	} else {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		st = pg
	}
	defer st.Close()

	// Gateway: the in-memory fake or the live client.
	var gw gateway.Gateway
	if cfg.Ebay.Mode == "mock" {
		gw = mock.NewWithFixtures()
	} else {
		client, err := ebay.NewClient(cfg, logger)
		if err != nil {
			logger.Error("failed to create ebay client", "error", err)
			os.Exit(1)
		}
		gw = client
	}

	eng, err := engine.New(cfg, st, gw, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.New(cfg, eng, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API, eng, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("api server failed", "error", err)
			}
		}()
		logger.Info("api started", "url", fmt.Sprintf("http://localhost:%d", cfg.API.Port))
	}

	logger.Info("flipflow engine started",
		"mode", cfg.Ebay.Mode,
		"surge_window", fmt.Sprintf("%s %02d:00-%02d:00 %s",
			cfg.Queue.SurgeDay, cfg.Queue.SurgeStartHour, cfg.Queue.SurgeEndHour, cfg.Queue.SurgeTimezone),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop api server", "error", err)
		}
	}
	sched.Stop()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
