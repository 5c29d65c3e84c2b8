package orchestrator

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type timerKind int

const (
	lobbyTimer timerKind = iota
	questionTimer
	revealTimer
)

func (k timerKind) String() string {
	switch k {
	case lobbyTimer:
		return "lobby"
	case questionTimer:
		return "question"
	case revealTimer:
		return "reveal"
	default:
		return "unknown"
	}
}

// armedTimer is one pending timer for a room. The pointer itself is the
// token a firing callback checks against the timers map, so a timer that was
// cancelled or replaced while its callback waited for the lane does nothing.
type armedTimer struct {
	kind  timerKind
	timer clockwork.Timer
	stop  chan struct{}
	left  int // whole seconds left on a countdown
}

// arm schedules kind for roomID after d, replacing any timer of the same kind.
func (o *Orchestrator) arm(roomID string, kind timerKind, d time.Duration, left int) *armedTimer {
	at := &armedTimer{
		kind:  kind,
		timer: o.clock.NewTimer(d),
		stop:  make(chan struct{}),
		left:  left,
	}
	o.replaceTimer(roomID, at)

	go func(id string, at *armedTimer) {
		select {
		case <-at.timer.Chan():
			o.fire(id, at)
		case <-at.stop:
		}
	}(roomID, at)

	o.logger.Debug().
		Str("room_id", roomID).
		Stringer("timer", kind).
		Dur("duration", d).
		Int("left", left).
		Msg("armed timer")
	return at
}

// fire runs a timer callback. The public room list goes out after the lane
// is released.
func (o *Orchestrator) fire(roomID string, at *armedTimer) {
	if o.runTimer(roomID, at) {
		o.BroadcastRooms()
	}
}

// runTimer handles a timer inside the room's lane and reports whether the
// room's public listing changed.
func (o *Orchestrator) runTimer(roomID string, at *armedTimer) bool {
	release := o.lanes.acquire(roomID)
	defer release()

	if !o.isCurrent(roomID, at) {
		o.logger.Debug().Str("room_id", roomID).Stringer("timer", at.kind).Msg("dropping stale timer")
		return false
	}

	switch at.kind {
	case lobbyTimer:
		return o.onLobbyTick(roomID, at)
	case questionTimer:
		o.onQuestionTick(roomID, at)
	case revealTimer:
		o.removeTimer(roomID, at)
		return o.onReveal(roomID)
	}
	return false
}

// replaceTimer atomically replaces a timer for a room, cancelling any existing one of the same kind.
func (o *Orchestrator) replaceTimer(roomID string, at *armedTimer) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	set, ok := o.timers[roomID]
	if !ok {
		set = make(map[timerKind]*armedTimer)
		o.timers[roomID] = set
	}
	if existing, ok := set[at.kind]; ok && existing != at {
		existing.cancel()
	}
	set[at.kind] = at
}

func (o *Orchestrator) isCurrent(roomID string, at *armedTimer) bool {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	return o.timers[roomID][at.kind] == at
}

// current returns the pending timer of kind for roomID, or nil
func (o *Orchestrator) current(roomID string, kind timerKind) *armedTimer {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	return o.timers[roomID][kind]
}

// cancelTimer cancels and removes a room's timer of the given kind. It reports
// whether one was pending.
func (o *Orchestrator) cancelTimer(roomID string, kind timerKind) bool {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	set := o.timers[roomID]
	at, ok := set[kind]
	if !ok {
		return false
	}
	at.cancel()
	delete(set, kind)
	if len(set) == 0 {
		delete(o.timers, roomID)
	}
	o.logger.Debug().Str("room_id", roomID).Stringer("timer", kind).Msg("cancelled timer")
	return true
}

// cancelAll drops every timer of a room
func (o *Orchestrator) cancelAll(roomID string) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	for _, at := range o.timers[roomID] {
		at.cancel()
	}
	delete(o.timers, roomID)
}

// removeTimer forgets a timer that already fired
func (o *Orchestrator) removeTimer(roomID string, at *armedTimer) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	set := o.timers[roomID]
	if set[at.kind] != at {
		return
	}
	delete(set, at.kind)
	if len(set) == 0 {
		delete(o.timers, roomID)
	}
}

func (o *Orchestrator) timerCount() int {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	n := 0
	for _, set := range o.timers {
		n += len(set)
	}
	return n
}

func (at *armedTimer) cancel() {
	select {
	case <-at.stop:
		return
	default:
	}
	close(at.stop)
	stopAndDrainTimer(at.timer)
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent goroutine leaks.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
