package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/quizarena/go/internal/orchestrator"
	"github.com/mcdev12/quizarena/go/internal/room"
)

// CodeBadRequest is returned for frames that cannot be decoded or name an
// unknown request type.
const CodeBadRequest orchestrator.Code = "BAD_REQUEST"

// Coordinator is the part of the orchestrator the gateway drives
type Coordinator interface {
	CreateRoom(connID, name, displayName string) orchestrator.CreateAck
	JoinRoom(connID, roomID, displayName string) orchestrator.JoinAck
	Leave(connID, hintRoomID string) orchestrator.Result
	Disconnect(connID string)
	SetReady(connID, roomID string, ready bool) orchestrator.Result
	SubmitAnswer(connID, roomID string, choice int) orchestrator.AnswerAck
	Results(connID, roomID string) orchestrator.ResultsAck
	GameState(roomID string) orchestrator.StateAck
	RoomState(roomID string) orchestrator.RoomAck
	ResetGame(connID, roomID string) orchestrator.Result
	PublicRooms() []room.Summary
}

// Router decodes client frames and turns them into coordinator calls
type Router struct {
	coord Coordinator
}

func NewRouter(coord Coordinator) *Router {
	return &Router{coord: coord}
}

func badRequest(format string, args ...any) orchestrator.Result {
	return orchestrator.Result{Error: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

// decode unmarshals data into v. An absent payload leaves v zeroed.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// handle returns the ack for one client frame
func (r *Router) handle(c *Connection, frame []byte) Envelope {
	var msg ClientMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return ackEnvelope(msg, badRequest("malformed message: %v", err))
	}
	return ackEnvelope(msg, r.dispatch(c, msg))
}

func (r *Router) dispatch(c *Connection, msg ClientMessage) any {
	switch msg.Type {
	case TypeRoomCreate:
		var req createRequest
		if err := decode(msg.Data, &req); err != nil {
			return badRequest("invalid %s payload: %v", msg.Type, err)
		}
		name := req.DisplayName
		if name == "" {
			name = req.HostDisplayName
		}
		if name == "" {
			name = c.DisplayName
		}
		return r.coord.CreateRoom(c.ID, req.Name, name)

	case TypeRoomJoin:
		var req joinRequest
		if err := decode(msg.Data, &req); err != nil {
			return badRequest("invalid %s payload: %v", msg.Type, err)
		}
		name := req.DisplayName
		if name == "" {
			name = c.DisplayName
		}
		return r.coord.JoinRoom(c.ID, req.RoomID, name)

	case TypeRoomLeave:
		// a broken payload is still a leave
		var req roomRequest
		_ = decode(msg.Data, &req)
		return r.coord.Leave(c.ID, req.RoomID)

	case TypeGameReady:
		var req readyRequest
		if err := decode(msg.Data, &req); err != nil {
			return badRequest("invalid %s payload: %v", msg.Type, err)
		}
		return r.coord.SetReady(c.ID, req.RoomID, req.Ready)

	case TypeGameAnswer:
		var req answerRequest
		if err := decode(msg.Data, &req); err != nil {
			return badRequest("invalid %s payload: %v", msg.Type, err)
		}
		if req.ChoiceIndex == nil {
			return badRequest("choiceIndex is required")
		}
		return r.coord.SubmitAnswer(c.ID, req.RoomID, *req.ChoiceIndex)

	case TypeGameResults:
		var req roomRequest
		if err := decode(msg.Data, &req); err != nil {
			return badRequest("invalid %s payload: %v", msg.Type, err)
		}
		return r.coord.Results(c.ID, req.RoomID)

	case TypeGameGet:
		var req roomRequest
		if err := decode(msg.Data, &req); err != nil {
			return badRequest("invalid %s payload: %v", msg.Type, err)
		}
		return r.coord.GameState(req.RoomID)

	case TypeRoomGet:
		var req roomRequest
		if err := decode(msg.Data, &req); err != nil {
			return badRequest("invalid %s payload: %v", msg.Type, err)
		}
		return r.coord.RoomState(req.RoomID)

	case TypeRoomsGet:
		return RoomsAck{Result: orchestrator.Result{OK: true}, Rooms: r.coord.PublicRooms()}

	case TypeGameReset:
		var req roomRequest
		if err := decode(msg.Data, &req); err != nil {
			return badRequest("invalid %s payload: %v", msg.Type, err)
		}
		return r.coord.ResetGame(c.ID, req.RoomID)

	default:
		return badRequest("unknown message type %q", msg.Type)
	}
}

func (r *Router) disconnect(c *Connection) {
	r.coord.Disconnect(c.ID)
}
