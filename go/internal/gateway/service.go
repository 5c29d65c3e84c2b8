package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the presence bridge: player sockets in, orchestrator
// broadcasts out, plus the read-only state endpoints.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// NewService routes client frames from cm's connections to coord. cm must be
// the Broadcaster coord was built with.
func NewService(cm *ConnectionManager, coord Coordinator) *Service {
	cm.router = NewRouter(coord)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		stateHandler:      NewStateHandler(coord),
	}
}

// Start blocks until ctx is done and then closes every connection
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting quiz gateway service")
	<-ctx.Done()
	log.Info().Msg("quiz gateway service shutting down")
	return s.Stop()
}

func (s *Service) Stop() error {
	s.connectionManager.CloseAll()
	log.Info().Msg("quiz gateway service stopped")
	return nil
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("quiz gateway routes registered")
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
