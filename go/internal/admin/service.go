package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mcdev12/quizarena/go/internal/orchestrator"
	"github.com/mcdev12/quizarena/go/internal/room"
)

const ServiceName = "quizarena.admin.v1.AdminService"

const (
	ListRoomsProcedure = "/" + ServiceName + "/ListRooms"
	GetRoomProcedure   = "/" + ServiceName + "/GetRoom"
	GetStatsProcedure  = "/" + ServiceName + "/GetStats"
)

// Coordinator is what the admin service reads from the orchestrator
type Coordinator interface {
	PublicRooms() []room.Summary
	RoomState(roomID string) orchestrator.RoomAck
	GameState(roomID string) orchestrator.StateAck
	Stats() orchestrator.Stats
}

// Service is a read-only operator view over live rooms. Messages are
// well-known protobuf types so no generated code is needed.
type Service struct {
	coord    Coordinator
	sections map[string]func() any
	now      func() *timestamppb.Timestamp
}

type Option func(*Service)

// WithStats adds a named section to GetStats, e.g. gateway connection counts
func WithStats(name string, fn func() any) Option {
	return func(s *Service) {
		s.sections[name] = fn
	}
}

func NewService(coord Coordinator, opts ...Option) *Service {
	s := &Service{
		coord:    coord,
		sections: make(map[string]func() any),
		now:      timestamppb.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler builds the connect handler for the service, the same shape a
// generated NewXxxServiceHandler returns.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ListRoomsProcedure, connect.NewUnaryHandler(ListRoomsProcedure, svc.ListRooms, opts...))
	mux.Handle(GetRoomProcedure, connect.NewUnaryHandler(GetRoomProcedure, svc.GetRoom, opts...))
	mux.Handle(GetStatsProcedure, connect.NewUnaryHandler(GetStatsProcedure, svc.GetStats, opts...))
	return "/" + ServiceName + "/", mux
}

// ListRooms returns the rooms open for browsing
func (s *Service) ListRooms(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	msg, err := toStruct(map[string]any{"rooms": s.coord.PublicRooms()})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// GetRoom returns a room's membership and its session snapshot
func (s *Service) GetRoom(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[structpb.Struct], error) {
	roomID := strings.ToUpper(strings.TrimSpace(req.Msg.GetValue()))
	if roomID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("room id is required"))
	}

	rm := s.coord.RoomState(roomID)
	if !rm.OK {
		return nil, resultError(rm.Result)
	}
	body := map[string]any{"room": rm.Room}
	if st := s.coord.GameState(roomID); st.OK {
		body["state"] = st.State
	}

	msg, err := toStruct(body)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// GetStats reports orchestrator counters plus every registered section
func (s *Service) GetStats(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	body := map[string]any{
		"orchestrator": s.coord.Stats(),
		"generatedAt":  s.now().AsTime(),
	}
	for name, fn := range s.sections {
		body[name] = fn()
	}

	msg, err := toStruct(body)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// toStruct converts v through its JSON form
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}

func resultError(r orchestrator.Result) *connect.Error {
	return connect.NewError(codeFor(r.Error), errors.New(r.Message))
}

func codeFor(code orchestrator.Code) connect.Code {
	switch code {
	case orchestrator.CodeRoomNotFound:
		return connect.CodeNotFound
	case orchestrator.CodeRoomFull:
		return connect.CodeResourceExhausted
	case orchestrator.CodeNotMember:
		return connect.CodePermissionDenied
	case orchestrator.CodeInvalidChoice:
		return connect.CodeInvalidArgument
	case orchestrator.CodeAlreadyAnswered,
		orchestrator.CodeQuestionLocked,
		orchestrator.CodeSessionNotStarted,
		orchestrator.CodeGuardNotSatisfied,
		orchestrator.CodeInvalidPhase:
		return connect.CodeFailedPrecondition
	case orchestrator.CodeUnavailable:
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}
