package archive

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizarena/go/internal/dbconfig"
	"github.com/mcdev12/quizarena/go/internal/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS quiz_results (
    event_id        UUID        NOT NULL,
    room_id         TEXT        NOT NULL,
    room_name       TEXT        NOT NULL,
    conn_id         TEXT        NOT NULL,
    display_name    TEXT        NOT NULL,
    score           INTEGER     NOT NULL,
    rank            INTEGER     NOT NULL,
    active_at_end   BOOLEAN     NOT NULL,
    total_questions INTEGER     NOT NULL,
    finished_at     TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (event_id, conn_id)
)`

const insertResult = `
INSERT INTO quiz_results (
    event_id, room_id, room_name, conn_id, display_name,
    score, rank, active_at_end, total_questions, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (event_id, conn_id) DO NOTHING`

// DB is the subset of pgxpool.Pool the archive uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store writes finished-game scoreboards to Postgres. Nothing is ever read
// back into live sessions.
type Store struct {
	db    DB
	close func()
}

func NewStore(db DB) *Store {
	return &Store{db: db, close: func() {}}
}

// Connect opens a pool for cfg and makes sure the results table exists.
func Connect(ctx context.Context, cfg dbconfig.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: pool, close: pool.Close}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("results archive connected")
	return s, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create quiz_results: %w", err)
	}
	return nil
}

func (s *Store) Name() string { return "archive" }

// Handle stores GameFinished events and ignores every other type.
func (s *Store) Handle(ctx context.Context, e events.Lifecycle) error {
	if e.Type != events.LifecycleGameFinished {
		return nil
	}
	payload, err := events.DecodePayload(e)
	if err != nil {
		return err
	}
	rows := rowsFor(e.ID, e.OccurredAt, *payload.(*events.GameFinishedPayload))
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertResult,
			r.EventID, r.RoomID, r.RoomName, r.ConnID, r.DisplayName,
			r.Score, r.Rank, r.Active, r.TotalQuestions, r.FinishedAt,
		)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert result for room %s: %w", e.RoomID, err)
		}
	}
	return nil
}

// Ping checks the database when the underlying handle supports it
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) Close() {
	s.close()
}

type resultRow struct {
	EventID        uuid.UUID
	RoomID         string
	RoomName       string
	ConnID         string
	DisplayName    string
	Score          int
	Rank           int
	Active         bool
	TotalQuestions int
	FinishedAt     time.Time
}

// rowsFor flattens a scoreboard into rows ranked by score. Equal scores
// share a rank.
func rowsFor(eventID uuid.UUID, at time.Time, p events.GameFinishedPayload) []resultRow {
	scores := append([]events.FinalScore(nil), p.Scores...)
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	rows := make([]resultRow, 0, len(scores))
	for i, sc := range scores {
		rank := i + 1
		if i > 0 && sc.Score == scores[i-1].Score {
			rank = rows[i-1].Rank
		}
		rows = append(rows, resultRow{
			EventID:        eventID,
			RoomID:         p.RoomID,
			RoomName:       p.RoomName,
			ConnID:         sc.ConnID,
			DisplayName:    sc.DisplayName,
			Score:          sc.Score,
			Rank:           rank,
			Active:         sc.Active,
			TotalQuestions: p.TotalQuestions,
			FinishedAt:     at.UTC(),
		})
	}
	return rows
}
