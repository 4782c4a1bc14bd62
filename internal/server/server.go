// Package server wires the store, registry, realtime hub, event publisher and
// HTTP router into one runnable unit.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/events"
	"taskhub/internal/httpserver"
	"taskhub/internal/notify"
	"taskhub/internal/realtime"
	"taskhub/internal/registry"
	"taskhub/internal/store"
)

type Server struct {
	httpServer *http.Server
	store      *store.Store
	hub        *realtime.Hub
	registry   *registry.Registry
	events     *events.Publisher
	logger     *slog.Logger

	unsubscribe func()
}

func New(cfg *config.Config, jwtSecret []byte, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	storeInstance, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	hub := realtime.NewHub(reg, jwtSecret, time.Duration(cfg.HandshakeTimeoutSeconds)*time.Second, logger)

	publisher := events.NewPublisher()
	dispatcher := notify.NewDispatcher(storeInstance, reg, hub, logger)
	// Task handlers publish events; only this consumer touches the
	// dispatcher. The decoupling keeps notification failures away from
	// task operations.
	unsubscribe := publisher.Subscribe(dispatcher.HandleTaskEvent)

	router := httpserver.NewRouter(httpserver.Dependencies{
		JWTSecret:   jwtSecret,
		Store:       storeInstance,
		Registry:    reg,
		Hub:         hub,
		Events:      publisher,
		CorsOrigins: cfg.CorsOrigins,
		Logger:      logger,
	})

	address := fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort)
	srv := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		httpServer:  srv,
		store:       storeInstance,
		hub:         hub,
		registry:    reg,
		events:      publisher,
		logger:      logger,
		unsubscribe: unsubscribe,
	}, nil
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.hub != nil {
		s.hub.Shutdown()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
