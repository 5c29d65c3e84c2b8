package gateway

import (
	"encoding/json"

	"github.com/mcdev12/quizarena/go/internal/events"
	"github.com/mcdev12/quizarena/go/internal/orchestrator"
	"github.com/mcdev12/quizarena/go/internal/room"
)

// Inbound request types sent by clients
const (
	TypeRoomCreate  = "room:create"
	TypeRoomJoin    = "room:join"
	TypeRoomLeave   = "room:leave"
	TypeRoomGet     = "room:get"
	TypeRoomsGet    = "rooms:get"
	TypeGameReady   = "game:ready"
	TypeGameAnswer  = "game:answer"
	TypeGameResults = "game:results"
	TypeGameGet     = "game:get"
	TypeGameReset   = "game:reset"
)

// TypeAck marks the reply to a client request
const TypeAck = "ack"

// ClientMessage is what a client writes on the socket. RequestID is echoed on
// the ack so clients can match replies to requests.
type ClientMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Envelope is every frame the server writes: broadcasts and acks alike.
type Envelope struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Event     string `json:"event,omitempty"`
	Data      any    `json:"data"`
}

func broadcastEnvelope(msg events.Outbound) Envelope {
	return Envelope{Type: string(msg.Type), RoomID: msg.RoomID, Data: msg.Data}
}

func ackEnvelope(req ClientMessage, data any) Envelope {
	return Envelope{Type: TypeAck, RequestID: req.RequestID, Event: req.Type, Data: data}
}

type createRequest struct {
	Name            string `json:"name"`
	DisplayName     string `json:"displayName"`
	HostDisplayName string `json:"hostDisplayName"`
}

type joinRequest struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type roomRequest struct {
	RoomID string `json:"roomId"`
}

type readyRequest struct {
	RoomID string `json:"roomId"`
	Ready  bool   `json:"ready"`
}

type answerRequest struct {
	RoomID      string `json:"roomId"`
	ChoiceIndex *int   `json:"choiceIndex"`
}

// RoomsAck answers rooms:get
type RoomsAck struct {
	orchestrator.Result
	Rooms []room.Summary `json:"rooms"`
}
