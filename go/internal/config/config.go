package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizarena/go/internal/dbconfig"
	"github.com/mcdev12/quizarena/go/internal/game"
	"github.com/mcdev12/quizarena/go/internal/gateway"
	"github.com/mcdev12/quizarena/go/internal/logging"
	"github.com/mcdev12/quizarena/go/internal/orchestrator"
	"github.com/mcdev12/quizarena/go/internal/outbox"
)

// Config is the server configuration, read from the environment
type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	QuestionsFile string `env:"QUESTIONS_FILE"`

	Game     GameConfig      `envPrefix:"GAME_"`
	Gateway  GatewayConfig   `envPrefix:"WS_"`
	NATS     NATSConfig      `envPrefix:"NATS_"`
	Outbox   OutboxConfig    `envPrefix:"OUTBOX_"`
	Database dbconfig.Config `envPrefix:"DB_"`
	Log      logging.Config  `envPrefix:"LOG_"`
}

type GameConfig struct {
	MaxPlayers          int           `env:"MAX_PLAYERS" envDefault:"10"`
	MinPlayers          int           `env:"MIN_PLAYERS" envDefault:"2"`
	QuestionCount       int           `env:"QUESTION_COUNT" envDefault:"15"`
	BasePoints          int           `env:"BASE_POINTS" envDefault:"10"`
	SpeedBonusPerSecond int           `env:"SPEED_BONUS" envDefault:"2"`
	LobbyCountdown      time.Duration `env:"LOBBY_COUNTDOWN" envDefault:"5s"`
	QuestionTime        time.Duration `env:"QUESTION_TIME" envDefault:"15s"`
	RevealDelay         time.Duration `env:"REVEAL_DELAY" envDefault:"500ms"`
}

type GatewayConfig struct {
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"60s"`
	PingInterval   time.Duration `env:"PING_INTERVAL" envDefault:"30s"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`
	SendBufferSize int           `env:"SEND_BUFFER" envDefault:"256"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// NATSConfig enables the JetStream publisher when URL is set
type NATSConfig struct {
	URL           string `env:"URL"`
	StreamName    string `env:"STREAM" envDefault:"QUIZ_EVENTS"`
	SubjectPrefix string `env:"SUBJECT_PREFIX" envDefault:"quiz.events"`
}

type OutboxConfig struct {
	BufferSize int           `env:"BUFFER_SIZE" envDefault:"1024"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"1s"`
}

// Load reads .env when present and parses the process environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	return Parse(nil)
}

// Parse reads configuration from environ, or from the process environment
// when environ is nil, and validates it.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	g := c.Game
	if g.MinPlayers < 1 {
		errs = append(errs, fmt.Errorf("GAME_MIN_PLAYERS must be at least 1, got %d", g.MinPlayers))
	}
	if g.MaxPlayers < g.MinPlayers {
		errs = append(errs, fmt.Errorf("GAME_MAX_PLAYERS (%d) is below GAME_MIN_PLAYERS (%d)", g.MaxPlayers, g.MinPlayers))
	}
	if g.QuestionCount < 1 {
		errs = append(errs, fmt.Errorf("GAME_QUESTION_COUNT must be at least 1, got %d", g.QuestionCount))
	}
	if g.BasePoints < 0 || g.SpeedBonusPerSecond < 0 {
		errs = append(errs, errors.New("scoring multipliers must not be negative"))
	}
	if g.LobbyCountdown < time.Second {
		errs = append(errs, fmt.Errorf("GAME_LOBBY_COUNTDOWN must be at least 1s, got %s", g.LobbyCountdown))
	}
	if g.QuestionTime < time.Second {
		errs = append(errs, fmt.Errorf("GAME_QUESTION_TIME must be at least 1s, got %s", g.QuestionTime))
	}
	if g.RevealDelay <= 0 {
		errs = append(errs, fmt.Errorf("GAME_REVEAL_DELAY must be positive, got %s", g.RevealDelay))
	}
	if c.Gateway.SendBufferSize < 1 {
		errs = append(errs, fmt.Errorf("WS_SEND_BUFFER must be at least 1, got %d", c.Gateway.SendBufferSize))
	}
	if c.Outbox.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("OUTBOX_BUFFER_SIZE must be at least 1, got %d", c.Outbox.BufferSize))
	}
	return errors.Join(errs...)
}

func (c Config) GameSettings() game.Settings {
	return game.Settings{
		MinPlayers:          c.Game.MinPlayers,
		QuestionCount:       c.Game.QuestionCount,
		BasePoints:          c.Game.BasePoints,
		SpeedBonusPerSecond: c.Game.SpeedBonusPerSecond,
	}
}

// OrchestratorSettings converts the countdowns to whole ticks
func (c Config) OrchestratorSettings() orchestrator.Settings {
	s := orchestrator.DefaultSettings()
	s.LobbyCountdownSec = int(c.Game.LobbyCountdown / s.TickInterval)
	s.QuestionTimeSec = int(c.Game.QuestionTime / s.TickInterval)
	s.RevealDelay = c.Game.RevealDelay
	return s
}

func (c Config) ConnectionConfig() gateway.ConnectionConfig {
	cc := gateway.DefaultConnectionConfig()
	cc.WriteTimeout = c.Gateway.WriteTimeout
	cc.ReadTimeout = c.Gateway.ReadTimeout
	cc.PingInterval = c.Gateway.PingInterval
	cc.MaxMessageSize = c.Gateway.MaxMessageSize
	cc.SendBufferSize = c.Gateway.SendBufferSize
	cc.AllowedOrigins = c.Gateway.AllowedOrigins
	return cc
}

func (c Config) OutboxConfig() outbox.Config {
	oc := outbox.DefaultConfig()
	oc.BufferSize = c.Outbox.BufferSize
	oc.MaxRetries = c.Outbox.MaxRetries
	oc.RetryDelay = c.Outbox.RetryDelay
	return oc
}

func (c Config) JetStreamConfig() outbox.JetStreamConfig {
	js := outbox.DefaultJetStreamConfig()
	js.URL = c.NATS.URL
	js.StreamName = c.NATS.StreamName
	js.SubjectPrefix = c.NATS.SubjectPrefix
	return js
}
