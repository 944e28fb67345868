package gateway

import (
	"context"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/sustainifly/go/internal/region"
	"github.com/mcdev12/sustainifly/go/internal/session"
)

// Service wires the websocket and REST handlers around one connection manager.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	eventsHealth      http.Handler
	allowedOrigins    []string
}

// Config holds gateway service configuration.
type Config struct {
	ConnectionConfig ConnectionConfig
	AllowedOrigins   []string
	// EventsHealth, when set, is served at /health/events.
	EventsHealth http.Handler
}

// NewService creates a gateway service. Every session it starts publishes its
// events to publisher.
func NewService(config Config, catalog *region.Catalog, publisher session.Publisher) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, catalog, publisher)

	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		stateHandler:      NewStateHandler(cm, catalog),
		eventsHealth:      config.EventsHealth,
		allowedOrigins:    origins,
	}
}

// Start runs until ctx is cancelled and then closes every session.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("gateway service stopped")
	return nil
}

// RegisterRoutes registers all HTTP routes with the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	if s.eventsHealth != nil {
		mux.Handle("GET /health/events", s.eventsHealth)
	}
}

// Handler returns the gateway routes behind CORS, served over HTTP/1.1 or h2c.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: s.allowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

// GetStats returns service statistics.
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "session-gateway"
	stats["status"] = "running"
	return stats
}
