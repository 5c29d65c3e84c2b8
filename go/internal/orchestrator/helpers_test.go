package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/quizarena/go/internal/events"
	"github.com/mcdev12/quizarena/go/internal/game"
	"github.com/mcdev12/quizarena/go/internal/questions"
	"github.com/mcdev12/quizarena/go/internal/room"
)

const testRoom = "ABC123"

var testSettings = Settings{
	LobbyCountdownSec: 3,
	QuestionTimeSec:   5,
	RevealDelay:       500 * time.Millisecond,
	TickInterval:      time.Second,
}

type sent struct {
	to  []string // nil means every connection
	msg events.Outbound
}

type recorder struct {
	mu   sync.Mutex
	msgs []sent

	// called on every BroadcastAll, outside mu
	onBroadcastAll func()
}

func (r *recorder) Send(connIDs []string, msg events.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{to: slices.Clone(connIDs), msg: msg})
}

func (r *recorder) BroadcastAll(msg events.Outbound) {
	if r.onBroadcastAll != nil {
		r.onBroadcastAll()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{msg: msg})
}

// received lists messages of typ delivered to connID, in order
func (r *recorder) received(connID string, typ events.OutboundType) []events.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []events.Outbound
	for _, s := range r.msgs {
		if s.msg.Type != typ {
			continue
		}
		if s.to == nil || slices.Contains(s.to, connID) {
			out = append(out, s.msg)
		}
	}
	return out
}

func (r *recorder) countdowns(connID string, typ events.OutboundType) []*int {
	var out []*int
	for _, m := range r.received(connID, typ) {
		out = append(out, m.Data.(events.CountdownPayload).Seconds)
	}
	return out
}

func (r *recorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []events.Lifecycle
}

func (f *fakeOutbox) Enqueue(e events.Lifecycle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return true
}

func (f *fakeOutbox) types() []events.LifecycleType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.LifecycleType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *fakeOutbox) last(typ events.LifecycleType) (events.Lifecycle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Type == typ {
			return f.events[i], true
		}
	}
	return events.Lifecycle{}, false
}

type harness struct {
	t      *testing.T
	clock  *clockwork.FakeClock
	rec    *recorder
	outbox *fakeOutbox
	rooms  *room.Registry
	games  *game.Store
	orch   *Orchestrator
}

func newHarness(t *testing.T, bankSize, maxPlayers int) *harness {
	t.Helper()
	return newHarnessWithIDs(t, bankSize, maxPlayers, func() string { return testRoom })
}

// newHarnessWithIDs is newHarness with a caller-supplied room id source
func newHarnessWithIDs(t *testing.T, bankSize, maxPlayers int, newID room.IDGenerator) *harness {
	t.Helper()

	set := make(questions.StaticProvider, bankSize)
	for i := range set {
		set[i] = questions.Question{
			Text:         fmt.Sprintf("question %d", i),
			Choices:      []string{"w", "x", "y", "z"},
			CorrectIndex: i % 4,
		}
	}

	h := &harness{
		t:      t,
		clock:  clockwork.NewFakeClock(),
		rec:    &recorder{},
		outbox: &fakeOutbox{},
		rooms:  room.NewRegistry(maxPlayers, room.WithIDGenerator(newID)),
	}
	h.games = game.NewStore(set, game.DefaultSettings(), game.WithRandSource(func() *rand.Rand {
		return rand.New(rand.NewPCG(42, 1042))
	}))
	h.orch = NewOrchestrator(h.rooms, h.games, h.rec, testSettings,
		WithClock(h.clock),
		WithOutbox(h.outbox),
		WithLogger(zerolog.Nop()),
	)
	t.Cleanup(h.orch.Close)
	return h
}

// waitTimers blocks until exactly n timers are pending on the fake clock
func (h *harness) waitTimers(n int) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(h.t, h.clock.BlockUntilContext(ctx, n), "waiting for %d pending timers", n)
}

// tick waits for the room's single pending timer and moves the clock forward
func (h *harness) tick(d time.Duration) {
	h.t.Helper()
	h.waitTimers(1)
	h.clock.Advance(d)
}

func (h *harness) eventually(cond func() bool, msg string) {
	h.t.Helper()
	require.Eventually(h.t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func (h *harness) snapshot() game.Snapshot {
	h.t.Helper()
	snap, err := h.games.Snapshot(testRoom)
	require.NoError(h.t, err)
	return snap
}

func (h *harness) phase() game.Phase {
	phase, _ := h.games.Phase(testRoom)
	return phase
}

// lobby creates the test room with the given players, p[0] hosting
func (h *harness) lobby(players ...string) {
	h.t.Helper()
	ack := h.orch.CreateRoom(players[0], "", "name-"+players[0])
	require.True(h.t, ack.OK)
	require.Equal(h.t, testRoom, ack.RoomID)
	for _, p := range players[1:] {
		join := h.orch.JoinRoom(p, testRoom, "name-"+p)
		require.True(h.t, join.OK, "join %s: %s", p, join.Message)
	}
}

// startGame readies everyone and runs the lobby countdown down to question 0
func (h *harness) startGame(players ...string) {
	h.t.Helper()
	h.lobby(players...)
	for _, p := range players {
		require.True(h.t, h.orch.SetReady(p, testRoom, true).OK)
	}
	for i := 0; i < testSettings.LobbyCountdownSec; i++ {
		h.tick(testSettings.TickInterval)
	}
	h.eventually(func() bool { return h.phase() == game.PhaseQuestion }, "game should start")
	h.waitTimers(1)
}

// correctChoice is the displayed index of the right answer on the open question
func (h *harness) correctChoice(connID string) int {
	h.t.Helper()
	ack := h.orch.Results(connID, testRoom)
	require.True(h.t, ack.OK)
	idx := h.snapshot().Index
	require.Greater(h.t, len(ack.Results), idx)
	return ack.Results[idx].CorrectDisplayIndex
}
