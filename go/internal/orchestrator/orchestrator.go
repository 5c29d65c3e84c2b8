package orchestrator

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizarena/go/internal/events"
	"github.com/mcdev12/quizarena/go/internal/game"
	"github.com/mcdev12/quizarena/go/internal/room"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Broadcaster delivers outbound messages to connections. Send must enqueue
// synchronously so that per-connection order matches call order.
type Broadcaster interface {
	Send(connIDs []string, msg events.Outbound)
	BroadcastAll(msg events.Outbound)
}

// Outbox accepts lifecycle events for asynchronous publishing
type Outbox interface {
	Enqueue(e events.Lifecycle) bool
}

type Settings struct {
	LobbyCountdownSec int
	QuestionTimeSec   int
	RevealDelay       time.Duration
	TickInterval      time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		LobbyCountdownSec: 5,
		QuestionTimeSec:   15,
		RevealDelay:       500 * time.Millisecond,
		TickInterval:      time.Second,
	}
}

// Orchestrator ties presence events and timers to room membership and game
// phase transitions. Every mutation of a room runs inside that room's lane.
type Orchestrator struct {
	rooms    *room.Registry
	games    *game.Store
	out      Broadcaster
	outbox   Outbox
	clock    Clock
	settings Settings
	logger   zerolog.Logger

	lanes *lanes

	timersMu sync.Mutex
	timers   map[string]map[timerKind]*armedTimer
}

type Option func(*Orchestrator)

func WithClock(c Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithOutbox sets where lifecycle events go. Without it they are dropped.
func WithOutbox(ob Outbox) Option {
	return func(o *Orchestrator) {
		o.outbox = ob
	}
}

// NewOrchestrator creates an orchestrator over the given registry and store
func NewOrchestrator(rooms *room.Registry, games *game.Store, out Broadcaster, settings Settings, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		rooms:    rooms,
		games:    games,
		out:      out,
		outbox:   discardOutbox{},
		clock:    clockwork.NewRealClock(),
		settings: settings,
		logger:   log.With().Str("component", "orchestrator").Logger(),
		lanes:    newLanes(),
		timers:   make(map[string]map[timerKind]*armedTimer),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type discardOutbox struct{}

func (discardOutbox) Enqueue(events.Lifecycle) bool { return true }

// Close cancels every pending timer. Rooms and sessions are left as they are.
func (o *Orchestrator) Close() {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	for id, set := range o.timers {
		for _, at := range set {
			at.cancel()
		}
		delete(o.timers, id)
	}
	o.logger.Info().Msg("orchestrator stopped")
}

type Stats struct {
	Rooms        int `json:"rooms"`
	Sessions     int `json:"sessions"`
	ActiveTimers int `json:"activeTimers"`
	ActiveLanes  int `json:"activeLanes"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		Rooms:        o.rooms.Count(),
		Sessions:     o.games.Count(),
		ActiveTimers: o.timerCount(),
		ActiveLanes:  o.lanes.size(),
	}
}

// PublicRooms lists the rooms open for browsing. Rooms playing a question
// are left out.
func (o *Orchestrator) PublicRooms() []room.Summary {
	all := o.rooms.ListPublic()
	out := make([]room.Summary, 0, len(all))
	for _, s := range all {
		if o.games.InProgress(s.ID) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (o *Orchestrator) emit(typ events.LifecycleType, roomID string, payload any) {
	e, err := events.NewLifecycle(typ, roomID, o.clock.Now(), payload)
	if err != nil {
		o.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to build lifecycle event")
		return
	}
	if !o.outbox.Enqueue(e) {
		o.logger.Warn().Str("room_id", roomID).Str("event_type", string(typ)).Msg("outbox full, dropped lifecycle event")
	}
}

func members(rm room.Room) []string {
	ids := make([]string, len(rm.Players))
	for i, p := range rm.Players {
		ids[i] = p.ConnID
	}
	return ids
}

func (o *Orchestrator) sendRoom(roomID string, typ events.OutboundType, data any) {
	rm, ok := o.rooms.Find(roomID)
	if !ok {
		return
	}
	o.out.Send(members(rm), events.Outbound{Type: typ, RoomID: roomID, Data: data})
}

func (o *Orchestrator) broadcastRoomUpdate(rm room.Room) {
	o.out.Send(members(rm), events.Outbound{Type: events.TypeRoomUpdate, RoomID: rm.ID, Data: rm})
}

func (o *Orchestrator) broadcastState(roomID string) {
	snap, err := o.games.Snapshot(roomID)
	if err != nil {
		return
	}
	o.sendRoom(roomID, events.TypeGameState, snap)
}

func (o *Orchestrator) broadcastCountdown(roomID string, typ events.OutboundType, seconds *int) {
	o.sendRoom(roomID, typ, events.CountdownPayload{RoomID: roomID, Seconds: seconds})
}

// BroadcastRooms pushes the public room list to every connection.
func (o *Orchestrator) BroadcastRooms() {
	o.out.BroadcastAll(events.Outbound{Type: events.TypeRoomsList, Data: o.PublicRooms()})
}
