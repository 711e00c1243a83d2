package gateway

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/petitbac/go/internal/game"
)

// Service is the game gateway: it owns the session registry and exposes it
// over WebSocket and HTTP.
type Service struct {
	registry          *game.Registry
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	health            *HealthChecker
	allowedOrigins    []string
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	// PublicURL is the base of the join links encoded in QR codes.
	PublicURL      string
	AllowedOrigins []string
}

// DefaultConfig returns default configuration for the gateway.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		AllowedOrigins:   []string{"*"},
	}
}

// NewService creates the gateway. Game events are delivered through the
// service's connections, so any Notifier in opts is replaced. results may be
// nil.
func NewService(config Config, opts game.Options, results ResultsProvider) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, nil)
	opts.Notifier = connectionManager

	registry := game.NewRegistry(opts)
	connectionManager.SetSessions(registry)

	service := &Service{
		registry:          registry,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(registry, results, config.PublicURL),
		allowedOrigins:    config.AllowedOrigins,
	}
	service.health = NewHealthChecker(service)
	return service
}

// AddHealthCheck reports the named dependency on /health.
func (s *Service) AddHealthCheck(name string, check HealthCheck) {
	s.health.Register(name, check)
}

// Registry returns the sessions owned by the service.
func (s *Service) Registry() *game.Registry {
	return s.registry
}

// Start blocks until ctx is cancelled, then stops the service.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")

	<-ctx.Done()

	log.Info().Msg("game gateway service shutting down")
	return s.Stop()
}

// Stop closes every session and connection.
func (s *Service) Stop() error {
	s.registry.Close()
	s.connectionManager.CloseAll()
	log.Info().Msg("game gateway service stopped")
	return nil
}

// Handler returns the HTTP handler of the gateway: routes wrapped with CORS
// and HTTP/2 cleartext support.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()

	r.Handle("/health", s.health).Methods(http.MethodGet)

	s.wsHandler.RegisterRoutes(r)
	s.stateHandler.RegisterStateRoutes(r)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: s.allowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	log.Info().Msg("game gateway routes registered")
	return h2c.NewHandler(c.Handler(r), &http2.Server{})
}

// Stats returns statistics about the gateway connections.
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
