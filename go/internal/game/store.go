package game

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/mcdev12/quizarena/go/internal/questions"
)

// Store keeps one session per room id. Sessions are created lazily and live
// until Discard. The store lock only guards the map; each session has its own.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	provider questions.Provider
	settings Settings
	newRand  func() *rand.Rand
}

type StoreOption func(*Store)

// WithRandSource sets how each new session seeds its shuffles.
func WithRandSource(fn func() *rand.Rand) StoreOption {
	return func(s *Store) {
		s.newRand = fn
	}
}

func NewStore(provider questions.Provider, settings Settings, opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*session),
		provider: provider,
		settings: settings,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Settings() Settings {
	return s.settings
}

// Ensure creates a lobby session for the room if none exists
func (s *Store) Ensure(roomID string) {
	s.ensure(roomID)
}

func (s *Store) ensure(roomID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[roomID]
	if !ok {
		sess = newSession(roomID, s.newRand())
		s.sessions[roomID] = sess
	}
	return sess
}

func (s *Store) get(roomID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[roomID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) AddPlayer(roomID, connID, displayName string) {
	sess := s.ensure(roomID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.add(connID, displayName)
}

// RemovePlayer marks the participant inactive and returns how many active
// participants remain. Score and answer history are kept.
func (s *Store) RemovePlayer(roomID, connID string) (int, error) {
	sess, err := s.get(roomID)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if p, ok := sess.players[connID]; ok {
		p.Active = false
		p.Ready = false
	}
	return sess.activeCount(), nil
}

// SetReady changes readiness while the session is in lobby or countdown. The
// player is added to the session if not already present.
func (s *Store) SetReady(roomID, connID, displayName string, ready bool) error {
	sess := s.ensure(roomID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != PhaseLobby && sess.phase != PhaseCountdown {
		return ErrInvalidPhase
	}
	p, ok := sess.players[connID]
	if !ok || !p.Active {
		sess.add(connID, displayName)
		p = sess.players[connID]
	}
	p.Ready = ready
	return nil
}

func (s *Store) UnreadyAll(roomID string) {
	sess, err := s.get(roomID)
	if err != nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != PhaseLobby && sess.phase != PhaseCountdown {
		return
	}
	for _, p := range sess.players {
		p.Ready = false
	}
}

// CanStart reports whether at least MinPlayers are active and all of them are ready.
func (s *Store) CanStart(roomID string) bool {
	sess, err := s.get(roomID)
	if err != nil {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.canStart(s.settings.MinPlayers)
}

// BeginCountdown moves a lobby whose start guard holds into the countdown.
// Calling it during a countdown is a no-op.
func (s *Store) BeginCountdown(roomID string) error {
	sess, err := s.get(roomID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.phase {
	case PhaseCountdown:
		return nil
	case PhaseLobby:
	default:
		return ErrInvalidPhase
	}
	if !sess.canStart(s.settings.MinPlayers) {
		return ErrGuardNotSatisfied
	}
	sess.phase = PhaseCountdown
	return nil
}

// CancelCountdown returns a counting-down session to the lobby
func (s *Store) CancelCountdown(roomID string) {
	sess, err := s.get(roomID)
	if err != nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.phase == PhaseCountdown {
		sess.phase = PhaseLobby
	}
}

// Start draws a fresh question pool and opens question 0. The start guard is
// checked again here.
func (s *Store) Start(roomID string) (Snapshot, error) {
	sess, err := s.get(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != PhaseLobby && sess.phase != PhaseCountdown {
		return Snapshot{}, ErrInvalidPhase
	}
	if !sess.canStart(s.settings.MinPlayers) {
		return Snapshot{}, ErrGuardNotSatisfied
	}

	master := s.provider.MasterSet()
	n := min(s.settings.QuestionCount, len(master))
	if n <= 0 {
		return Snapshot{}, fmt.Errorf("start session %s: %w", roomID, ErrEmptyBank)
	}
	pool := make([]questions.Question, 0, n)
	for _, i := range sess.rng.Perm(len(master))[:n] {
		pool = append(pool, master[i])
	}

	sess.prune()
	sess.pool = pool
	sess.phase = PhaseQuestion
	clear(sess.perms)
	clear(sess.history)
	for _, id := range sess.order {
		p := sess.players[id]
		p.Score = 0
		p.Ready = false
		sess.historyOf(id)
	}
	sess.openQuestion(0)

	return sess.snapshot(s.settings.MinPlayers), nil
}

// SubmitAnswer scores a displayed choice for the open question. Each
// participant gets one accepted answer per question.
func (s *Store) SubmitAnswer(roomID, connID string, displayed, secondsRemaining int) (AnswerResult, error) {
	sess, err := s.get(roomID)
	if err != nil {
		return AnswerResult{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != PhaseQuestion {
		return AnswerResult{}, ErrSessionNotStarted
	}
	if sess.locked {
		return AnswerResult{}, ErrQuestionLocked
	}
	p, ok := sess.players[connID]
	if !ok || !p.Active {
		return AnswerResult{}, ErrNotParticipant
	}
	if _, done := sess.answered[connID]; done {
		return AnswerResult{}, ErrAlreadyAnswered
	}
	perm := sess.perms[sess.index]
	if displayed < 0 || displayed >= len(perm) {
		return AnswerResult{}, ErrInvalidChoice
	}

	res := AnswerResult{
		Accepted: true,
		Index:    sess.index,
		Correct:  perm[displayed] == sess.pool[sess.index].CorrectIndex,
	}
	sess.historyOf(connID)[sess.index] = displayed
	sess.answered[connID] = struct{}{}
	if res.Correct {
		res.Awarded = s.settings.Points(secondsRemaining)
		p.Score += res.Awarded
	}
	res.AllAnswered = sess.allAnswered()
	return res, nil
}

// CloseQuestion locks the open question. Only the first call for a question
// returns true.
func (s *Store) CloseQuestion(roomID string) (bool, error) {
	sess, err := s.get(roomID)
	if err != nil {
		return false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != PhaseQuestion || sess.locked {
		return false, nil
	}
	sess.locked = true
	return true, nil
}

// Advance leaves the reveal pause: it opens the next question or finishes
// the session once the pool is exhausted.
func (s *Store) Advance(roomID string) (snap Snapshot, finished bool, err error) {
	sess, err := s.get(roomID)
	if err != nil {
		return Snapshot{}, false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != PhaseQuestion || !sess.locked {
		return Snapshot{}, false, ErrInvalidPhase
	}
	if sess.index+1 >= len(sess.pool) {
		sess.phase = PhaseFinished
		sess.locked = false
		clear(sess.answered)
		return sess.snapshot(s.settings.MinPlayers), true, nil
	}
	sess.openQuestion(sess.index + 1)
	return sess.snapshot(s.settings.MinPlayers), false, nil
}

func (s *Store) AllAnswered(roomID string) bool {
	sess, err := s.get(roomID)
	if err != nil {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.allAnswered()
}

func (s *Store) ActiveCount(roomID string) int {
	sess, err := s.get(roomID)
	if err != nil {
		return 0
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.activeCount()
}

// ActivePlayers lists the connection ids of active participants in join order.
func (s *Store) ActivePlayers(roomID string) []string {
	sess, err := s.get(roomID)
	if err != nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var ids []string
	for _, id := range sess.order {
		if sess.players[id].Active {
			ids = append(ids, id)
		}
	}
	return ids
}

// Participants returns every participant, active or not, in join order.
func (s *Store) Participants(roomID string) []Participant {
	sess, err := s.get(roomID)
	if err != nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	out := make([]Participant, 0, len(sess.order))
	for _, id := range sess.order {
		out = append(out, *sess.players[id])
	}
	return out
}

// ResultsFor rebuilds every opened question in the order connID saw its
// choices. Questions the session never reached are left out.
func (s *Store) ResultsFor(roomID, connID string) ([]ReviewItem, error) {
	sess, err := s.get(roomID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	hist := sess.history[connID]
	items := make([]ReviewItem, 0, len(sess.pool))
	for i, q := range sess.pool {
		if _, opened := sess.perms[i]; !opened {
			continue
		}
		choices, correct := sess.displayed(i)
		item := ReviewItem{Text: q.Text, Choices: choices, CorrectDisplayIndex: correct}
		if i < len(hist) && hist[i] != unanswered {
			picked := hist[i]
			item.YourIndex = &picked
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) Snapshot(roomID string) (Snapshot, error) {
	sess, err := s.get(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(s.settings.MinPlayers), nil
}

func (s *Store) Phase(roomID string) (Phase, bool) {
	sess, err := s.get(roomID)
	if err != nil {
		return "", false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.phase, true
}

// Reset turns a finished session back into a lobby for a rematch. Players
// who left during the previous game are dropped.
func (s *Store) Reset(roomID string) error {
	sess, err := s.get(roomID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != PhaseFinished {
		return ErrInvalidPhase
	}
	sess.prune()
	sess.phase = PhaseLobby
	sess.pool = nil
	sess.index = -1
	sess.locked = false
	clear(sess.answered)
	clear(sess.perms)
	clear(sess.history)
	for _, p := range sess.players {
		p.Score = 0
		p.Ready = false
	}
	return nil
}

func (s *Store) Discard(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, roomID)
}

// InProgress reports whether the room is playing a question right now
func (s *Store) InProgress(roomID string) bool {
	phase, ok := s.Phase(roomID)
	return ok && phase == PhaseQuestion
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
