package orchestrator

import (
	"slices"

	"github.com/mcdev12/quizarena/go/internal/events"
	"github.com/mcdev12/quizarena/go/internal/game"
	"github.com/mcdev12/quizarena/go/internal/room"
)

type CreateAck struct {
	Result
	RoomID string `json:"roomId,omitempty"`
	Max    int    `json:"max,omitempty"`
}

type JoinAck struct {
	Result
	RoomID string `json:"roomId,omitempty"`
}

type AnswerAck struct {
	Result
	Accepted bool `json:"accepted"`
	Correct  bool `json:"correct"`
}

type ResultsAck struct {
	Result
	Results []game.ReviewItem `json:"results"`
}

type StateAck struct {
	Result
	State *game.Snapshot `json:"state"`
}

type RoomAck struct {
	Result
	Room *room.Room `json:"room"`
}

// CreateRoom opens a room hosted by connID.
func (o *Orchestrator) CreateRoom(connID, name, displayName string) CreateAck {
	rm, err := o.rooms.Create(name, connID, displayName)
	if err != nil {
		o.logger.Error().Err(err).Str("conn_id", connID).Msg("failed to create room")
		return CreateAck{Result: failed(err)}
	}

	release := o.lanes.acquire(rm.ID)
	o.games.AddPlayer(rm.ID, connID, rm.Players[0].DisplayName)
	o.broadcastRoomUpdate(rm)
	o.broadcastState(rm.ID)
	o.emit(events.LifecycleRoomCreated, rm.ID, events.RoomCreatedPayload{
		RoomID:     rm.ID,
		Name:       rm.Name,
		HostID:     rm.HostID,
		MaxPlayers: rm.MaxPlayers,
	})
	release()

	o.BroadcastRooms()
	o.logger.Info().Str("room_id", rm.ID).Str("conn_id", connID).Msg("room created")
	return CreateAck{Result: ok(), RoomID: rm.ID, Max: rm.MaxPlayers}
}

// JoinRoom seats connID in roomID. Joining during the lobby un-readies
// everyone; joining during a game adds an active player with no answers yet.
func (o *Orchestrator) JoinRoom(connID, roomID, displayName string) JoinAck {
	release := o.lanes.acquire(roomID)
	rm, joined, err := o.rooms.Join(roomID, connID, displayName)
	if err != nil {
		release()
		return JoinAck{Result: failed(err)}
	}
	if joined {
		p := rm.Players[len(rm.Players)-1]
		o.games.AddPlayer(roomID, connID, p.DisplayName)
		if phase, _ := o.games.Phase(roomID); phase == game.PhaseLobby || phase == game.PhaseCountdown {
			o.games.UnreadyAll(roomID)
			o.cancelLobby(roomID)
		}
		o.broadcastRoomUpdate(rm)
		o.broadcastState(roomID)
	}
	release()

	if joined {
		o.BroadcastRooms()
		o.logger.Info().Str("room_id", roomID).Str("conn_id", connID).Msg("player joined")
	}
	return JoinAck{Result: ok(), RoomID: roomID}
}

// Leave removes connID from every room it belongs to. hintRoomID may be empty
// or stale; membership is what decides.
func (o *Orchestrator) Leave(connID, hintRoomID string) Result {
	roomIDs := o.rooms.RoomsOf(connID)
	if hintRoomID != "" && !slices.Contains(roomIDs, hintRoomID) {
		roomIDs = append(roomIDs, hintRoomID)
	}

	changed := false
	for _, id := range roomIDs {
		if o.leaveRoom(id, connID) {
			changed = true
		}
	}
	if changed {
		o.BroadcastRooms()
	}
	return ok()
}

// Disconnect treats a closed connection as leaving every room
func (o *Orchestrator) Disconnect(connID string) {
	o.Leave(connID, "")
}

func (o *Orchestrator) leaveRoom(roomID, connID string) bool {
	release := o.lanes.acquire(roomID)
	defer release()

	rm, removed, deleted := o.rooms.Leave(roomID, connID)
	if !removed {
		return false
	}
	log := o.logger.With().Str("room_id", roomID).Str("conn_id", connID).Logger()

	if deleted {
		o.cancelAll(roomID)
		o.games.Discard(roomID)
		o.emit(events.LifecycleRoomClosed, roomID, events.RoomClosedPayload{RoomID: roomID})
		log.Info().Msg("room closed")
		return true
	}

	o.broadcastRoomUpdate(rm)

	phase, exists := o.games.Phase(roomID)
	if !exists {
		o.seedLobby(roomID)
		o.broadcastState(roomID)
		return true
	}
	active, _ := o.games.RemovePlayer(roomID, connID)

	switch phase {
	case game.PhaseLobby, game.PhaseCountdown:
		o.games.UnreadyAll(roomID)
		o.cancelLobby(roomID)
	case game.PhaseQuestion:
		switch {
		case active == 0:
			o.cancelAll(roomID)
			o.games.Discard(roomID)
			o.seedLobby(roomID)
		case active == 1:
			o.abandon(roomID)
		case o.games.AllAnswered(roomID):
			o.closeQuestion(roomID)
		}
	}

	o.broadcastState(roomID)
	log.Info().Str("phase", string(phase)).Int("active", active).Msg("player left")
	return true
}

// SetReady flips a player's readiness. Readying up in a finished room starts
// a rematch lobby.
func (o *Orchestrator) SetReady(connID, roomID string, ready bool) Result {
	res, rematch := o.setReady(connID, roomID, ready)
	if rematch {
		o.BroadcastRooms()
	}
	return res
}

func (o *Orchestrator) setReady(connID, roomID string, ready bool) (Result, bool) {
	release := o.lanes.acquire(roomID)
	defer release()

	rm, err := o.member(roomID, connID)
	if err != nil {
		return failed(err), false
	}

	rematch := false
	if phase, _ := o.games.Phase(roomID); phase == game.PhaseFinished && ready {
		if err := o.games.Reset(roomID); err != nil {
			return failed(err), false
		}
		rematch = true
	}

	if err := o.games.SetReady(roomID, connID, displayNameOf(rm, connID), ready); err != nil {
		return failed(err), rematch
	}

	if ready && o.games.CanStart(roomID) {
		o.startLobby(roomID)
	} else if !ready {
		o.cancelLobby(roomID)
	}
	o.broadcastState(roomID)
	return ok(), rematch
}

// SubmitAnswer scores connID's displayed choice for the open question. The
// last expected answer closes the question.
func (o *Orchestrator) SubmitAnswer(connID, roomID string, choice int) AnswerAck {
	release := o.lanes.acquire(roomID)
	defer release()

	if _, err := o.member(roomID, connID); err != nil {
		return AnswerAck{Result: failed(err)}
	}

	res, err := o.games.SubmitAnswer(roomID, connID, choice, o.secondsLeft(roomID))
	if err != nil {
		return AnswerAck{Result: failed(err)}
	}

	o.broadcastState(roomID)
	if res.AllAnswered {
		o.closeQuestion(roomID)
	}
	return AnswerAck{Result: ok(), Accepted: res.Accepted, Correct: res.Correct}
}

// Results returns the per-question review as connID saw it
func (o *Orchestrator) Results(connID, roomID string) ResultsAck {
	release := o.lanes.acquire(roomID)
	defer release()

	items, err := o.games.ResultsFor(roomID, connID)
	if err != nil {
		return ResultsAck{Result: failed(err)}
	}
	return ResultsAck{Result: ok(), Results: items}
}

func (o *Orchestrator) GameState(roomID string) StateAck {
	release := o.lanes.acquire(roomID)
	defer release()

	snap, err := o.games.Snapshot(roomID)
	if err != nil {
		return StateAck{Result: failed(err)}
	}
	return StateAck{Result: ok(), State: &snap}
}

func (o *Orchestrator) RoomState(roomID string) RoomAck {
	rm, found := o.rooms.Find(roomID)
	if !found {
		return RoomAck{Result: failed(room.ErrRoomNotFound)}
	}
	return RoomAck{Result: ok(), Room: &rm}
}

// ResetGame turns a finished game back into a lobby
func (o *Orchestrator) ResetGame(connID, roomID string) Result {
	release := o.lanes.acquire(roomID)
	if _, err := o.member(roomID, connID); err != nil {
		release()
		return failed(err)
	}
	if err := o.games.Reset(roomID); err != nil {
		release()
		return failed(err)
	}
	o.broadcastState(roomID)
	release()

	o.BroadcastRooms()
	return ok()
}

func (o *Orchestrator) member(roomID, connID string) (room.Room, error) {
	rm, found := o.rooms.Find(roomID)
	if !found {
		return room.Room{}, room.ErrRoomNotFound
	}
	if !rm.HasMember(connID) {
		return room.Room{}, ErrNotMember
	}
	return rm, nil
}

func displayNameOf(rm room.Room, connID string) string {
	for _, p := range rm.Players {
		if p.ConnID == connID {
			return p.DisplayName
		}
	}
	return room.DefaultDisplayName(connID)
}
