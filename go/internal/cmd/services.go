package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizarena/go/internal/admin"
	"github.com/mcdev12/quizarena/go/internal/archive"
	"github.com/mcdev12/quizarena/go/internal/config"
	"github.com/mcdev12/quizarena/go/internal/game"
	"github.com/mcdev12/quizarena/go/internal/gateway"
	"github.com/mcdev12/quizarena/go/internal/orchestrator"
	"github.com/mcdev12/quizarena/go/internal/outbox"
	"github.com/mcdev12/quizarena/go/internal/questions"
	"github.com/mcdev12/quizarena/go/internal/room"
)

type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Service
	Admin        *admin.Service
	Outbox       *outbox.Outbox
	OutboxHealth *outbox.HealthChecker

	closers []func()
}

// setupServices wires the dependency chain:
// question bank → session store + registry → orchestrator ← gateway
func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	s := &Services{}

	sinks := []outbox.Sink{outbox.NewLogSink(log.With().Str("component", "events").Logger())}

	if cfg.NATS.URL != "" {
		js, err := outbox.NewJetStreamSink(ctx, cfg.JetStreamConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to set up JetStream publisher: %w", err)
		}
		sinks = append(sinks, js)
		s.closers = append(s.closers, func() {
			if err := js.Close(); err != nil {
				log.Error().Err(err).Msg("failed to drain NATS connection")
			}
		})
	}

	if cfg.Database.Enabled {
		store, err := archive.Connect(ctx, cfg.Database)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set up results archive: %w", err)
		}
		sinks = append(sinks, store)
		s.closers = append(s.closers, store.Close)
	}

	s.Outbox = outbox.New(cfg.OutboxConfig(), sinks...)
	s.OutboxHealth = outbox.NewHealthChecker(s.Outbox, cfg.Outbox.BufferSize/2)

	provider := questions.NewFileProvider(cfg.QuestionsFile)
	rooms := room.NewRegistry(cfg.Game.MaxPlayers)
	games := game.NewStore(provider, cfg.GameSettings())

	cm := gateway.NewConnectionManager(cfg.ConnectionConfig())
	s.Orchestrator = orchestrator.NewOrchestrator(rooms, games, cm, cfg.OrchestratorSettings(),
		orchestrator.WithOutbox(s.Outbox),
	)
	s.Gateway = gateway.NewService(cm, s.Orchestrator)
	s.Admin = admin.NewService(s.Orchestrator,
		admin.WithStats("connections", func() any { return s.Gateway.Stats() }),
		admin.WithStats("outbox", func() any { return s.Outbox.Stats() }),
	)

	return s, nil
}

// Close releases the external connections in reverse order of creation
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
