package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizarena/go/internal/orchestrator"
)

// StateHandler serves read-only room and game state over plain HTTP, for
// clients that reload and want a snapshot before the socket is up.
type StateHandler struct {
	coord Coordinator
}

func NewStateHandler(coord Coordinator) *StateHandler {
	return &StateHandler{coord: coord}
}

// HandleListRooms handles GET /api/rooms
func (h *StateHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.PublicRooms())
}

// HandleGetRoom handles GET /api/rooms/{id}
func (h *StateHandler) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	ack := h.coord.RoomState(r.PathValue("id"))
	if !ack.OK {
		writeJSON(w, statusFor(ack.Error), ack.Result)
		return
	}
	writeJSON(w, http.StatusOK, ack.Room)
}

// HandleGetState handles GET /api/rooms/{id}/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	ack := h.coord.GameState(r.PathValue("id"))
	if !ack.OK {
		writeJSON(w, statusFor(ack.Error), ack.Result)
		return
	}
	writeJSON(w, http.StatusOK, ack.State)
}

func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms", h.HandleListRooms)
	mux.HandleFunc("GET /api/rooms/{id}", h.HandleGetRoom)
	mux.HandleFunc("GET /api/rooms/{id}/state", h.HandleGetState)
}

func statusFor(code orchestrator.Code) int {
	switch code {
	case orchestrator.CodeRoomNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
