package game

import (
	"math/rand/v2"
	"sync"

	"github.com/mcdev12/quizarena/go/internal/questions"
)

const unanswered = -1

// session is one room's quiz state machine. All methods expect mu held.
type session struct {
	mu sync.Mutex

	roomID string
	phase  Phase
	pool   []questions.Question
	index  int
	locked bool

	players map[string]*Participant
	order   []string // join order, for stable output

	answered map[string]struct{}
	perms    map[int][]int   // question index -> displayed position -> original position
	history  map[string][]int // conn id -> displayed index per question, or unanswered

	rng *rand.Rand
}

func newSession(roomID string, rng *rand.Rand) *session {
	return &session{
		roomID:   roomID,
		phase:    PhaseLobby,
		index:    -1,
		players:  make(map[string]*Participant),
		answered: make(map[string]struct{}),
		perms:    make(map[int][]int),
		history:  make(map[string][]int),
		rng:      rng,
	}
}

func (s *session) add(connID, name string) {
	if p, ok := s.players[connID]; ok {
		p.Active = true
		if name != "" {
			p.DisplayName = name
		}
	} else {
		s.players[connID] = &Participant{ConnID: connID, DisplayName: name, Active: true}
		s.order = append(s.order, connID)
	}
	if s.phase == PhaseQuestion {
		s.historyOf(connID)
	}
}

func (s *session) historyOf(connID string) []int {
	h, ok := s.history[connID]
	if !ok {
		h = make([]int, len(s.pool))
		for i := range h {
			h[i] = unanswered
		}
		s.history[connID] = h
	}
	return h
}

func (s *session) activeCount() int {
	n := 0
	for _, p := range s.players {
		if p.Active {
			n++
		}
	}
	return n
}

func (s *session) canStart(minPlayers int) bool {
	if s.phase != PhaseLobby && s.phase != PhaseCountdown {
		return false
	}
	active := 0
	for _, p := range s.players {
		if !p.Active {
			continue
		}
		if !p.Ready {
			return false
		}
		active++
	}
	return active >= minPlayers
}

func (s *session) allAnswered() bool {
	if s.phase != PhaseQuestion {
		return false
	}
	active := 0
	for id, p := range s.players {
		if !p.Active {
			continue
		}
		active++
		if _, ok := s.answered[id]; !ok {
			return false
		}
	}
	return active > 0
}

// prune drops participants that are no longer active
func (s *session) prune() {
	kept := s.order[:0]
	for _, id := range s.order {
		if s.players[id].Active {
			kept = append(kept, id)
			continue
		}
		delete(s.players, id)
		delete(s.history, id)
	}
	s.order = kept
}

func (s *session) openQuestion(idx int) {
	s.index = idx
	s.locked = false
	clear(s.answered)
	if _, ok := s.perms[idx]; !ok {
		s.perms[idx] = s.rng.Perm(len(s.pool[idx].Choices))
	}
}

func (s *session) displayed(idx int) (choices []string, correct int) {
	q := s.pool[idx]
	perm := s.perms[idx]
	choices = make([]string, len(perm))
	correct = -1
	for d, orig := range perm {
		choices[d] = q.Choices[orig]
		if orig == q.CorrectIndex {
			correct = d
		}
	}
	return choices, correct
}

func (s *session) snapshot(minPlayers int) Snapshot {
	snap := Snapshot{
		RoomID:     s.roomID,
		Phase:      s.phase,
		Started:    s.phase == PhaseQuestion || s.phase == PhaseFinished,
		Finished:   s.phase == PhaseFinished,
		Index:      s.index,
		Total:      len(s.pool),
		Locked:     s.locked,
		Scores:     []ScoreEntry{},
		Ready:      []ReadyEntry{},
		MinPlayers: minPlayers,
		CanStart:   s.canStart(minPlayers),
	}
	if s.phase == PhaseQuestion && s.index >= 0 {
		choices, _ := s.displayed(s.index)
		snap.Question = &PublicQuestion{Text: s.pool[s.index].Text, Choices: choices}
	}
	for _, id := range s.order {
		p := s.players[id]
		if p.Active || s.phase == PhaseFinished {
			snap.Scores = append(snap.Scores, ScoreEntry{ID: id, Name: p.DisplayName, Score: p.Score, Active: p.Active})
		}
		if p.Active {
			snap.Ready = append(snap.Ready, ReadyEntry{ID: id, Name: p.DisplayName, Ready: p.Ready})
		}
	}
	return snap
}
