// Package app wires the hub's components together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"campushub/internal/api"
	"campushub/internal/call"
	"campushub/internal/config"
	"campushub/internal/database"
	"campushub/internal/hub"
	"campushub/internal/notify"
	"campushub/internal/router"
	"campushub/internal/websocket"
)

// Application coordinates all system components. Construction follows strict
// dependency order: store, registry, notifier, router, signaler, hub,
// handler, API, HTTP server.
type Application struct {
	config     *config.Config
	store      *database.Store
	registry   *websocket.Registry
	notifier   *notify.Dispatcher
	router     *router.Router
	signaler   *call.Signaler
	hub        *hub.Hub
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication builds an application from cfg, or defaults when cfg is nil.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := database.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	registry := websocket.NewRegistry()
	notifier := notify.NewDispatcher(registry)
	messageRouter := router.NewRouter(registry, store, store, notifier)
	signaler := call.NewSignaler(registry, notifier, cfg.Call.RingTimeout)
	eventHub := hub.NewHub(registry, messageRouter, signaler)
	wsHandler := websocket.NewHandler(eventHub)
	apiServer := api.NewServer(store, registry, signaler)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      store,
		registry:   registry,
		notifier:   notifier,
		router:     messageRouter,
		signaler:   signaler,
		hub:        eventHub,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins serving. It returns once the HTTP listener is up or fails.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting CampusHub on %s", app.httpServer.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.store.Close()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("CampusHub started")
		return nil
	case <-ctx.Done():
		_ = app.store.Close()
		return ctx.Err()
	}
}

// Stop shuts the application down in reverse dependency order: HTTP listener
// first so no new connections arrive, then the store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down CampusHub")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.store.Close(); err != nil {
		log.Printf("Store shutdown error: %v", err)
	}

	log.Printf("CampusHub shutdown complete")
	return nil
}

// Addr returns the server address for external connections.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
