package outbox

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mcdev12/quizarena/go/internal/events"
)

// LogSink writes every lifecycle event to the log, for development and for
// deployments without a message bus.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Handle(_ context.Context, e events.Lifecycle) error {
	s.logger.Info().
		Str("event_id", e.ID.String()).
		Str("event_type", string(e.Type)).
		Str("room_id", e.RoomID).
		RawJSON("payload", e.Payload).
		Msg("lifecycle event")
	return nil
}
