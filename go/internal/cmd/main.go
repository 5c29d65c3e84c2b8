package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizarena/go/internal/config"
	"github.com/mcdev12/quizarena/go/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	// the worker runs until Stop so events from the shutdown itself are delivered
	if err := services.Outbox.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox")
	}

	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("quiz gateway failed")
		}
	}()

	server := setupServer(cfg.Port, services)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Int("max_players", cfg.Game.MaxPlayers).
			Bool("nats", cfg.NATS.URL != "").
			Bool("archive", cfg.Database.Enabled).
			Msg("quizarena listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	services.Orchestrator.Close()
	if err := services.Outbox.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop outbox")
	}
}
