package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event payload types shared between the orchestrator, the gateway and the outbox

// OutboundType names a message pushed to connected players
type OutboundType string

const (
	TypeRoomUpdate        OutboundType = "room:update"
	TypeRoomsList         OutboundType = "rooms:list"
	TypeGameState         OutboundType = "game:state"
	TypeCountdown         OutboundType = "game:countdown"
	TypeQuestionCountdown OutboundType = "game:qcountdown"
	TypeAbandoned         OutboundType = "room:abandoned"
)

// Outbound is a message for connected players. RoomID is empty for
// lobby-wide messages.
type Outbound struct {
	Type   OutboundType
	RoomID string
	Data   any
}

// CountdownPayload carries a lobby or question tick. Seconds is nil when the
// countdown was cancelled or has ended.
type CountdownPayload struct {
	RoomID  string `json:"roomId"`
	Seconds *int   `json:"seconds"`
}

func Seconds(n int) *int {
	return &n
}

// AbandonedPayload is sent to the last active player of a game that lost
// everyone else
type AbandonedPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// LifecycleType names a room or game lifecycle event published off-process
type LifecycleType string

const (
	LifecycleRoomCreated   LifecycleType = "RoomCreated"
	LifecycleRoomClosed    LifecycleType = "RoomClosed"
	LifecycleGameStarted   LifecycleType = "GameStarted"
	LifecycleGameFinished  LifecycleType = "GameFinished"
	LifecycleGameAbandoned LifecycleType = "GameAbandoned"
)

// Lifecycle is the envelope for lifecycle events
type Lifecycle struct {
	ID         uuid.UUID       `json:"id"`
	Type       LifecycleType   `json:"type"`
	RoomID     string          `json:"room_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewLifecycle(typ LifecycleType, roomID string, at time.Time, payload any) (Lifecycle, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Lifecycle{}, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return Lifecycle{
		ID:         uuid.New(),
		Type:       typ,
		RoomID:     roomID,
		OccurredAt: at,
		Payload:    data,
	}, nil
}

// RoomCreatedPayload is the payload for a RoomCreated event
type RoomCreatedPayload struct {
	RoomID     string `json:"room_id"`
	Name       string `json:"name"`
	HostID     string `json:"host_id"`
	MaxPlayers int    `json:"max_players"`
}

// RoomClosedPayload is the payload for a RoomClosed event
type RoomClosedPayload struct {
	RoomID string `json:"room_id"`
}

// GameStartedPayload is the payload for a GameStarted event
type GameStartedPayload struct {
	RoomID         string   `json:"room_id"`
	Players        []string `json:"players"`
	TotalQuestions int      `json:"total_questions"`
}

// FinalScore is one line of a finished game's scoreboard
type FinalScore struct {
	ConnID      string `json:"conn_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Active      bool   `json:"active"`
}

// GameFinishedPayload is the payload for a GameFinished event
type GameFinishedPayload struct {
	RoomID         string       `json:"room_id"`
	RoomName       string       `json:"room_name"`
	TotalQuestions int          `json:"total_questions"`
	Scores         []FinalScore `json:"scores"`
}

// GameAbandonedPayload is the payload for a GameAbandoned event
type GameAbandonedPayload struct {
	RoomID    string `json:"room_id"`
	Remaining string `json:"remaining_conn_id,omitempty"`
	Index     int    `json:"question_index"`
}

// DecodePayload unmarshals the payload of e into the struct matching its type.
func DecodePayload(e Lifecycle) (any, error) {
	var target any
	switch e.Type {
	case LifecycleRoomCreated:
		target = &RoomCreatedPayload{}
	case LifecycleRoomClosed:
		target = &RoomClosedPayload{}
	case LifecycleGameStarted:
		target = &GameStartedPayload{}
	case LifecycleGameFinished:
		target = &GameFinishedPayload{}
	case LifecycleGameAbandoned:
		target = &GameAbandonedPayload{}
	default:
		return nil, fmt.Errorf("unknown lifecycle type: %s", e.Type)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return target, nil
}
