package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/quizarena/go/internal/questions"
)

const room = "ABC123"

func bank(n int) questions.StaticProvider {
	set := make(questions.StaticProvider, n)
	for i := range set {
		set[i] = questions.Question{
			Text:         fmt.Sprintf("question %d", i),
			Choices:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
		}
	}
	return set
}

func newTestStore(t *testing.T, provider questions.Provider) *Store {
	t.Helper()
	seed := uint64(0)
	return NewStore(provider, DefaultSettings(), WithRandSource(func() *rand.Rand {
		seed++
		return rand.New(rand.NewPCG(seed, seed*7))
	}))
}

func startedStore(t *testing.T, poolSize int, players ...string) *Store {
	t.Helper()
	s := newTestStore(t, bank(poolSize))
	for _, p := range players {
		s.AddPlayer(room, p, "name-"+p)
		require.NoError(t, s.SetReady(room, p, "", true))
	}
	_, err := s.Start(room)
	require.NoError(t, err)
	return s
}

// correctDisplayed finds the displayed index of the right answer for the open question.
func correctDisplayed(t *testing.T, s *Store, connID string) int {
	t.Helper()
	items, err := s.ResultsFor(room, connID)
	require.NoError(t, err)
	snap, err := s.Snapshot(room)
	require.NoError(t, err)
	return items[snap.Index].CorrectDisplayIndex
}

func TestCanStartGuard(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Store)
		want  bool
	}{
		{
			name:  "single ready player",
			setup: func(s *Store) { _ = s.SetReady(room, "p1", "", true) },
		},
		{
			name: "two ready players",
			setup: func(s *Store) {
				_ = s.SetReady(room, "p1", "", true)
				_ = s.SetReady(room, "p2", "", true)
			},
			want: true,
		},
		{
			name: "one of two not ready",
			setup: func(s *Store) {
				_ = s.SetReady(room, "p1", "", true)
				s.AddPlayer(room, "p2", "")
			},
		},
		{
			name: "inactive unready player does not block",
			setup: func(s *Store) {
				_ = s.SetReady(room, "p1", "", true)
				_ = s.SetReady(room, "p2", "", true)
				s.AddPlayer(room, "p3", "")
				_, _ = s.RemovePlayer(room, "p3")
			},
			want: true,
		},
		{
			name: "unready all",
			setup: func(s *Store) {
				_ = s.SetReady(room, "p1", "", true)
				_ = s.SetReady(room, "p2", "", true)
				s.UnreadyAll(room)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, bank(20))
			s.Ensure(room)
			tt.setup(s)
			assert.Equal(t, tt.want, s.CanStart(room))
			snap, err := s.Snapshot(room)
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.CanStart)
		})
	}
}

func TestStartRequiresGuard(t *testing.T) {
	s := newTestStore(t, bank(20))
	s.AddPlayer(room, "p1", "")
	require.NoError(t, s.SetReady(room, "p1", "", true))

	_, err := s.Start(room)
	assert.ErrorIs(t, err, ErrGuardNotSatisfied)
	assert.ErrorIs(t, s.BeginCountdown(room), ErrGuardNotSatisfied)
}

func TestCountdownLifecycle(t *testing.T) {
	s := newTestStore(t, bank(20))
	require.NoError(t, s.SetReady(room, "p1", "", true))
	require.NoError(t, s.SetReady(room, "p2", "", true))

	require.NoError(t, s.BeginCountdown(room))
	require.NoError(t, s.BeginCountdown(room), "second call is a no-op")
	phase, _ := s.Phase(room)
	assert.Equal(t, PhaseCountdown, phase)

	s.CancelCountdown(room)
	phase, _ = s.Phase(room)
	assert.Equal(t, PhaseLobby, phase)
}

func TestStartDrawsPool(t *testing.T) {
	tests := []struct {
		name     string
		bankSize int
		want     int
	}{
		{name: "capped at question count", bankSize: 40, want: 15},
		{name: "smaller bank uses all", bankSize: 6, want: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startedStore(t, tt.bankSize, "p1", "p2")
			snap, err := s.Snapshot(room)
			require.NoError(t, err)
			assert.Equal(t, PhaseQuestion, snap.Phase)
			assert.Equal(t, 0, snap.Index)
			assert.Equal(t, tt.want, snap.Total)
			assert.True(t, snap.Started)
			assert.False(t, snap.CanStart)
			require.NotNil(t, snap.Question)
			assert.Len(t, snap.Question.Choices, 4)

			s.mu.RLock()
			sess := s.sessions[room]
			s.mu.RUnlock()
			seen := map[string]bool{}
			for _, q := range sess.pool {
				assert.False(t, seen[q.Text], "question repeated: %s", q.Text)
				seen[q.Text] = true
			}
		})
	}
}

func TestStartEmptyBank(t *testing.T) {
	s := newTestStore(t, questions.StaticProvider{})
	require.NoError(t, s.SetReady(room, "p1", "", true))
	require.NoError(t, s.SetReady(room, "p2", "", true))

	_, err := s.Start(room)
	assert.ErrorIs(t, err, ErrEmptyBank)
	phase, _ := s.Phase(room)
	assert.Equal(t, PhaseLobby, phase)
}

func TestSubmitAnswerScoring(t *testing.T) {
	s := startedStore(t, 20, "p1", "p2")
	right := correctDisplayed(t, s, "p1")
	wrong := (right + 1) % 4

	res, err := s.SubmitAnswer(room, "p1", right, 7)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Correct)
	assert.Equal(t, 10+2*7, res.Awarded)
	assert.False(t, res.AllAnswered)

	res, err = s.SubmitAnswer(room, "p2", wrong, 12)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.False(t, res.Correct)
	assert.Zero(t, res.Awarded)
	assert.True(t, res.AllAnswered)

	snap, err := s.Snapshot(room)
	require.NoError(t, err)
	scores := map[string]int{}
	for _, e := range snap.Scores {
		scores[e.ID] = e.Score
	}
	assert.Equal(t, map[string]int{"p1": 24, "p2": 0}, scores)
}

func TestSubmitAnswerNegativeHintClamped(t *testing.T) {
	s := startedStore(t, 20, "p1", "p2")
	res, err := s.SubmitAnswer(room, "p1", correctDisplayed(t, s, "p1"), -5)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Awarded)
}

func TestSubmitAnswerIsIdempotent(t *testing.T) {
	s := startedStore(t, 20, "p1", "p2")
	right := correctDisplayed(t, s, "p1")

	_, err := s.SubmitAnswer(room, "p1", right, 5)
	require.NoError(t, err)
	before, _ := s.Snapshot(room)
	beforeResults, _ := s.ResultsFor(room, "p1")

	res, err := s.SubmitAnswer(room, "p1", (right+1)%4, 9)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
	assert.False(t, res.Accepted)

	after, _ := s.Snapshot(room)
	afterResults, _ := s.ResultsFor(room, "p1")
	assert.Equal(t, before.Scores, after.Scores)
	assert.Equal(t, beforeResults, afterResults)
}

func TestSubmitAnswerRejections(t *testing.T) {
	t.Run("not started", func(t *testing.T) {
		s := newTestStore(t, bank(5))
		s.AddPlayer(room, "p1", "")
		_, err := s.SubmitAnswer(room, "p1", 0, 5)
		assert.ErrorIs(t, err, ErrSessionNotStarted)
	})
	t.Run("unknown session", func(t *testing.T) {
		s := newTestStore(t, bank(5))
		_, err := s.SubmitAnswer(room, "p1", 0, 5)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
	t.Run("locked", func(t *testing.T) {
		s := startedStore(t, 5, "p1", "p2")
		closed, err := s.CloseQuestion(room)
		require.NoError(t, err)
		require.True(t, closed)
		_, err = s.SubmitAnswer(room, "p1", 0, 5)
		assert.ErrorIs(t, err, ErrQuestionLocked)
	})
	t.Run("not a participant", func(t *testing.T) {
		s := startedStore(t, 5, "p1", "p2")
		_, err := s.SubmitAnswer(room, "stranger", 0, 5)
		assert.ErrorIs(t, err, ErrNotParticipant)
	})
	t.Run("choice out of range", func(t *testing.T) {
		s := startedStore(t, 5, "p1", "p2")
		_, err := s.SubmitAnswer(room, "p1", 4, 5)
		assert.ErrorIs(t, err, ErrInvalidChoice)
		_, err = s.SubmitAnswer(room, "p1", -1, 5)
		assert.ErrorIs(t, err, ErrInvalidChoice)
	})
}

func TestCloseQuestionOnlyFirstCallerWins(t *testing.T) {
	s := startedStore(t, 5, "p1", "p2")

	first, err := s.CloseQuestion(room)
	require.NoError(t, err)
	second, err := s.CloseQuestion(room)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestAdvanceRequiresLock(t *testing.T) {
	s := startedStore(t, 5, "p1", "p2")
	_, _, err := s.Advance(room)
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestFullGameResultsMatchWhatPlayersSaw(t *testing.T) {
	s := startedStore(t, 8, "p1", "p2")

	type seen struct {
		choices []string
		picked  int
	}
	var sawP1 []seen

	finished := false
	for !finished {
		snap, err := s.Snapshot(room)
		require.NoError(t, err)
		require.NotNil(t, snap.Question)
		choices := slices.Clone(snap.Question.Choices)

		pick := snap.Index % len(choices)
		_, err = s.SubmitAnswer(room, "p1", pick, 3)
		require.NoError(t, err)
		sawP1 = append(sawP1, seen{choices: choices, picked: pick})
		if snap.Index%2 == 0 {
			_, err = s.SubmitAnswer(room, "p2", 0, 3)
			require.NoError(t, err)
		}

		closed, err := s.CloseQuestion(room)
		require.NoError(t, err)
		require.True(t, closed)

		next, done, err := s.Advance(room)
		require.NoError(t, err)
		finished = done
		if done {
			assert.Equal(t, PhaseFinished, next.Phase)
			assert.Equal(t, 7, next.Index, "index clamps to the last question")
			assert.Nil(t, next.Question)
		} else {
			assert.Equal(t, snap.Index+1, next.Index)
			assert.False(t, next.Locked)
		}
	}

	items, err := s.ResultsFor(room, "p1")
	require.NoError(t, err)
	require.Len(t, items, 8)
	for i, item := range items {
		assert.Equal(t, sawP1[i].choices, item.Choices, "question %d order", i)
		require.NotNil(t, item.YourIndex)
		assert.Equal(t, sawP1[i].picked, *item.YourIndex)

		assert.GreaterOrEqual(t, item.CorrectDisplayIndex, 0)
		assert.Less(t, item.CorrectDisplayIndex, len(item.Choices))
	}

	p2, err := s.ResultsFor(room, "p2")
	require.NoError(t, err)
	require.Len(t, p2, 8)
	assert.NotNil(t, p2[0].YourIndex)
	assert.Nil(t, p2[1].YourIndex)

	_, err = s.SubmitAnswer(room, "p1", 0, 5)
	assert.ErrorIs(t, err, ErrSessionNotStarted)
}

func TestCorrectnessUsesPermutation(t *testing.T) {
	provider := questions.StaticProvider{
		{Text: "pick c", Choices: []string{"a", "b", "c", "d", "e", "f"}, CorrectIndex: 2},
	}
	s := newTestStore(t, provider)
	require.NoError(t, s.SetReady(room, "p1", "", true))
	require.NoError(t, s.SetReady(room, "p2", "", true))
	snap, err := s.Start(room)
	require.NoError(t, err)

	displayedC := slices.Index(snap.Question.Choices, "c")
	require.GreaterOrEqual(t, displayedC, 0)

	res, err := s.SubmitAnswer(room, "p1", displayedC, 0)
	require.NoError(t, err)
	assert.True(t, res.Correct)

	items, err := s.ResultsFor(room, "p1")
	require.NoError(t, err)
	assert.Equal(t, displayedC, items[0].CorrectDisplayIndex)
	assert.Equal(t, snap.Question.Choices, items[0].Choices)
}

func TestRemovePlayerKeepsHistory(t *testing.T) {
	s := startedStore(t, 5, "p1", "p2", "p3")
	_, err := s.SubmitAnswer(room, "p3", 1, 5)
	require.NoError(t, err)

	remaining, err := s.RemovePlayer(room, "p3")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	snap, _ := s.Snapshot(room)
	assert.Len(t, snap.Scores, 2, "running game shows active players only")

	items, err := s.ResultsFor(room, "p3")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	require.NotNil(t, items[0].YourIndex)
	assert.Equal(t, 1, *items[0].YourIndex)

	assert.False(t, s.AllAnswered(room))
	_, _ = s.SubmitAnswer(room, "p1", 0, 5)
	_, _ = s.SubmitAnswer(room, "p2", 0, 5)
	assert.True(t, s.AllAnswered(room))

	_, _ = s.CloseQuestion(room)
	for {
		_, done, err := s.Advance(room)
		require.NoError(t, err)
		if done {
			break
		}
		_, _ = s.CloseQuestion(room)
	}
	snap, _ = s.Snapshot(room)
	assert.Len(t, snap.Scores, 3, "finished game lists everyone who played")
}

func TestRejoinCannotAnswerTwice(t *testing.T) {
	s := startedStore(t, 5, "p1", "p2")
	_, err := s.SubmitAnswer(room, "p2", 0, 5)
	require.NoError(t, err)

	_, _ = s.RemovePlayer(room, "p2")
	s.AddPlayer(room, "p2", "")

	_, err = s.SubmitAnswer(room, "p2", 1, 5)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
}

func TestSetReadyOutsideLobbyIsRejected(t *testing.T) {
	s := startedStore(t, 5, "p1", "p2")
	assert.ErrorIs(t, s.SetReady(room, "p1", "", false), ErrInvalidPhase)
}

func TestReset(t *testing.T) {
	s := startedStore(t, 1, "p1", "p2", "p3")
	_, err := s.SubmitAnswer(room, "p1", correctDisplayed(t, s, "p1"), 5)
	require.NoError(t, err)
	_, _ = s.RemovePlayer(room, "p3")

	assert.ErrorIs(t, s.Reset(room), ErrInvalidPhase, "cannot reset a running game")

	_, _ = s.CloseQuestion(room)
	_, done, err := s.Advance(room)
	require.NoError(t, err)
	require.True(t, done)

	require.NoError(t, s.Reset(room))
	snap, err := s.Snapshot(room)
	require.NoError(t, err)
	assert.Equal(t, PhaseLobby, snap.Phase)
	assert.Equal(t, -1, snap.Index)
	assert.Zero(t, snap.Total)
	assert.False(t, snap.Started)
	assert.Equal(t, []ScoreEntry{
		{ID: "p1", Name: "name-p1", Score: 0, Active: true},
		{ID: "p2", Name: "name-p2", Score: 0, Active: true},
	}, snap.Scores)
	for _, r := range snap.Ready {
		assert.False(t, r.Ready)
	}
	assert.Len(t, s.Participants(room), 2)
}

func TestDiscard(t *testing.T) {
	s := startedStore(t, 5, "p1", "p2")
	s.Discard(room)

	_, err := s.Snapshot(room)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, s.InProgress(room))
	assert.Zero(t, s.Count())
}
