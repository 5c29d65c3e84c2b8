package orchestrator

import (
	"github.com/mcdev12/quizarena/go/internal/events"
	"github.com/mcdev12/quizarena/go/internal/game"
)

// The functions below run inside the room's lane.

// startLobby begins the countdown when the start guard holds. It does nothing
// while a countdown is already running.
func (o *Orchestrator) startLobby(roomID string) {
	if o.current(roomID, lobbyTimer) != nil {
		return
	}
	if err := o.games.BeginCountdown(roomID); err != nil {
		return
	}
	left := o.settings.LobbyCountdownSec
	o.arm(roomID, lobbyTimer, o.settings.TickInterval, left)
	o.broadcastCountdown(roomID, events.TypeCountdown, events.Seconds(left))
	o.logger.Info().Str("room_id", roomID).Int("seconds", left).Msg("lobby countdown started")
}

// cancelLobby stops a running countdown and puts the session back in the lobby.
func (o *Orchestrator) cancelLobby(roomID string) {
	o.games.CancelCountdown(roomID)
	if o.cancelTimer(roomID, lobbyTimer) {
		o.broadcastCountdown(roomID, events.TypeCountdown, nil)
		o.logger.Info().Str("room_id", roomID).Msg("lobby countdown cancelled")
	}
}

// onLobbyTick reports true when the game started and the room left the
// public list.
func (o *Orchestrator) onLobbyTick(roomID string, at *armedTimer) bool {
	if !o.games.CanStart(roomID) {
		o.cancelLobby(roomID)
		o.broadcastState(roomID)
		return false
	}

	left := at.left - 1
	if left > 0 {
		o.arm(roomID, lobbyTimer, o.settings.TickInterval, left)
		o.broadcastCountdown(roomID, events.TypeCountdown, events.Seconds(left))
		return false
	}

	o.removeTimer(roomID, at)
	o.broadcastCountdown(roomID, events.TypeCountdown, nil)
	return o.startGame(roomID)
}

func (o *Orchestrator) startGame(roomID string) bool {
	snap, err := o.games.Start(roomID)
	if err != nil {
		o.logger.Warn().Err(err).Str("room_id", roomID).Msg("could not start game")
		o.games.CancelCountdown(roomID)
		o.broadcastState(roomID)
		return false
	}

	o.broadcastState(roomID)
	o.emit(events.LifecycleGameStarted, roomID, events.GameStartedPayload{
		RoomID:         roomID,
		Players:        o.games.ActivePlayers(roomID),
		TotalQuestions: snap.Total,
	})
	o.openQuestionTimer(roomID)

	o.logger.Info().Str("room_id", roomID).Int("questions", snap.Total).Msg("game started")
	return true
}

func (o *Orchestrator) openQuestionTimer(roomID string) {
	left := o.settings.QuestionTimeSec
	o.arm(roomID, questionTimer, o.settings.TickInterval, left)
	o.broadcastCountdown(roomID, events.TypeQuestionCountdown, events.Seconds(left))
}

func (o *Orchestrator) onQuestionTick(roomID string, at *armedTimer) {
	left := at.left - 1
	if left > 0 {
		o.arm(roomID, questionTimer, o.settings.TickInterval, left)
		o.broadcastCountdown(roomID, events.TypeQuestionCountdown, events.Seconds(left))
		return
	}
	o.removeTimer(roomID, at)
	o.closeQuestion(roomID)
}

// secondsLeft is the remaining time on the open question, used as the speed
// bonus hint.
func (o *Orchestrator) secondsLeft(roomID string) int {
	if at := o.current(roomID, questionTimer); at != nil {
		return at.left
	}
	return 0
}

// closeQuestion is the single path from an open question into the reveal
// pause. Both the question timer and the last answer end up here; only the
// first call per question schedules the reveal.
func (o *Orchestrator) closeQuestion(roomID string) {
	closed, err := o.games.CloseQuestion(roomID)
	if err != nil || !closed {
		return
	}
	o.cancelTimer(roomID, questionTimer)
	o.broadcastCountdown(roomID, events.TypeQuestionCountdown, nil)
	o.broadcastState(roomID)
	o.arm(roomID, revealTimer, o.settings.RevealDelay, 0)
}

// onReveal leaves the reveal pause. A session that vanished or moved on since
// the timer was armed is left alone. It reports true when the game finished.
func (o *Orchestrator) onReveal(roomID string) bool {
	snap, finished, err := o.games.Advance(roomID)
	if err != nil {
		o.logger.Debug().Err(err).Str("room_id", roomID).Msg("reveal fired for a stale session")
		return false
	}

	o.broadcastState(roomID)
	if !finished {
		o.openQuestionTimer(roomID)
		return false
	}

	o.cancelAll(roomID)
	o.emit(events.LifecycleGameFinished, roomID, o.finishedPayload(roomID, snap))
	o.logger.Info().Str("room_id", roomID).Msg("game finished")
	return true
}

func (o *Orchestrator) finishedPayload(roomID string, snap game.Snapshot) events.GameFinishedPayload {
	payload := events.GameFinishedPayload{
		RoomID:         roomID,
		TotalQuestions: snap.Total,
	}
	if rm, ok := o.rooms.Find(roomID); ok {
		payload.RoomName = rm.Name
	}
	for _, p := range o.games.Participants(roomID) {
		payload.Scores = append(payload.Scores, events.FinalScore{
			ConnID:      p.ConnID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			Active:      p.Active,
		})
	}
	return payload
}

// abandon ends a running game that is down to one active player. The player
// is told, the session and its timers are dropped, and the room gets a fresh
// lobby.
func (o *Orchestrator) abandon(roomID string) {
	remaining := o.games.ActivePlayers(roomID)
	snap, _ := o.games.Snapshot(roomID)

	for _, connID := range remaining {
		o.out.Send([]string{connID}, events.Outbound{
			Type:   events.TypeAbandoned,
			RoomID: roomID,
			Data:   events.AbandonedPayload{RoomID: roomID, Message: "All other players left the game"},
		})
	}

	o.cancelAll(roomID)
	o.games.Discard(roomID)

	payload := events.GameAbandonedPayload{RoomID: roomID, Index: snap.Index}
	if len(remaining) > 0 {
		payload.Remaining = remaining[0]
	}
	o.emit(events.LifecycleGameAbandoned, roomID, payload)
	o.seedLobby(roomID)

	o.logger.Info().Str("room_id", roomID).Int("index", snap.Index).Msg("game abandoned")
}

// seedLobby gives a room without a session a fresh lobby holding its current members
func (o *Orchestrator) seedLobby(roomID string) {
	rm, ok := o.rooms.Find(roomID)
	if !ok {
		return
	}
	o.games.Ensure(roomID)
	for _, p := range rm.Players {
		o.games.AddPlayer(roomID, p.ConnID, p.DisplayName)
	}
}
