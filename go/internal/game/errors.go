package game

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotStarted = errors.New("session not started")
	ErrQuestionLocked    = errors.New("question is locked")
	ErrAlreadyAnswered   = errors.New("already answered")
	ErrGuardNotSatisfied = errors.New("not every active player is ready or too few players")
	ErrNotParticipant    = errors.New("not an active participant")
	ErrInvalidChoice     = errors.New("invalid choice index")
	ErrInvalidPhase      = errors.New("operation not allowed in current phase")
	ErrEmptyBank         = errors.New("question bank is empty")
)
