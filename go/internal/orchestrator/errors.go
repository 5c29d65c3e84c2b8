package orchestrator

import (
	"errors"

	"github.com/mcdev12/quizarena/go/internal/game"
	"github.com/mcdev12/quizarena/go/internal/room"
)

// Code is the machine-readable reason carried by a failed acknowledgement.
type Code string

const (
	CodeRoomNotFound      Code = "ROOM_NOT_FOUND"
	CodeRoomFull          Code = "ROOM_FULL"
	CodeAlreadyAnswered   Code = "ALREADY_ANSWERED"
	CodeQuestionLocked    Code = "QUESTION_LOCKED"
	CodeSessionNotStarted Code = "SESSION_NOT_STARTED"
	CodeGuardNotSatisfied Code = "GUARD_NOT_SATISFIED"
	CodeNotMember         Code = "NOT_MEMBER"
	CodeInvalidChoice     Code = "INVALID_CHOICE"
	CodeInvalidPhase      Code = "INVALID_PHASE"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeUnknown           Code = "UNKNOWN"
)

var ErrNotMember = errors.New("connection is not a member of the room")

var codes = []struct {
	err  error
	code Code
}{
	{room.ErrRoomNotFound, CodeRoomNotFound},
	{game.ErrSessionNotFound, CodeRoomNotFound},
	{room.ErrRoomFull, CodeRoomFull},
	{room.ErrIDExhausted, CodeUnavailable},
	{game.ErrAlreadyAnswered, CodeAlreadyAnswered},
	{game.ErrQuestionLocked, CodeQuestionLocked},
	{game.ErrSessionNotStarted, CodeSessionNotStarted},
	{game.ErrGuardNotSatisfied, CodeGuardNotSatisfied},
	{game.ErrNotParticipant, CodeNotMember},
	{ErrNotMember, CodeNotMember},
	{game.ErrInvalidChoice, CodeInvalidChoice},
	{game.ErrInvalidPhase, CodeInvalidPhase},
	{game.ErrEmptyBank, CodeUnavailable},
}

// CodeOf maps an error returned by the registry or the session store to its code.
func CodeOf(err error) Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// Result is embedded in every acknowledgement
type Result struct {
	OK      bool   `json:"ok"`
	Error   Code   `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok() Result {
	return Result{OK: true}
}

func failed(err error) Result {
	return Result{OK: false, Error: CodeOf(err), Message: err.Error()}
}
