// Package api exposes the engine over HTTP: an execute endpoint per policy
// (plus read-only previews for some of them), the gatekeeper calculators,
// and a WebSocket stream of job events for the dashboard.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"flipflow/internal/config"
	"flipflow/internal/engine"
)

// Server runs the HTTP/WebSocket API.
type Server struct {
	cfg      config.APIConfig
	engine   *engine.Engine
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates the API server and wires its routes.
func NewServer(cfg config.APIConfig, eng *engine.Engine, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(eng, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.HandleFunc("GET /ws", handlers.HandleWebSocket)

	mux.HandleFunc("POST /api/listings", handlers.HandleListingCreate)
	mux.HandleFunc("POST /api/listings/sold", handlers.HandleMarkSold)

	mux.HandleFunc("GET /api/reprice/preview", handlers.HandleRepricePreview)
	mux.HandleFunc("POST /api/reprice/execute", handlers.HandleRepriceExecute)

	mux.HandleFunc("POST /api/zombies/scan", handlers.HandleZombieScan)
	mux.HandleFunc("POST /api/zombies/flag", handlers.HandleZombieFlag)
	mux.HandleFunc("POST /api/zombies/resurrect", handlers.HandleResurrect)

	mux.HandleFunc("GET /api/relist/preview", handlers.HandleRelistPreview)
	mux.HandleFunc("POST /api/relist/execute", handlers.HandleRelistExecute)

	mux.HandleFunc("POST /api/queue/enqueue", handlers.HandleEnqueue)
	mux.HandleFunc("POST /api/queue/release", handlers.HandleQueueRelease)
	mux.HandleFunc("GET /api/queue/status", handlers.HandleQueueStatus)

	mux.HandleFunc("POST /api/offers/scan", handlers.HandleOfferScan)
	mux.HandleFunc("POST /api/offers/inbound", handlers.HandleInboundOffer)

	mux.HandleFunc("POST /api/campaigns/promote", handlers.HandlePromote)
	mux.HandleFunc("POST /api/campaigns/cleanup", handlers.HandleCampaignCleanup)

	mux.HandleFunc("POST /api/purgatory/enter", handlers.HandlePurgatoryEnter)
	mux.HandleFunc("GET /api/purgatory/scan", handlers.HandlePurgatoryScan)

	mux.HandleFunc("POST /api/photos/shuffle", handlers.HandlePhotoShuffle)
	mux.HandleFunc("POST /api/pulse", handlers.HandleStorePulse)

	mux.HandleFunc("POST /api/profit/calc", handlers.HandleProfitCalc)
	mux.HandleFunc("POST /api/title/sanitize", handlers.HandleTitleSanitize)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		engine:   eng,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start starts the hub, the event forwarder, and the HTTP server. Blocks
// until the server stops.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.forwardEvents()

	s.logger.Info("api server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// forwardEvents relays coordinator job events to the WebSocket hub.
func (s *Server) forwardEvents() {
	for evt := range s.engine.Events() {
		s.hub.BroadcastJobEvent(evt)
	}
}
