// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/qspy/internal/game"
	"github.com/jason-s-yu/qspy/internal/metrics"
	"github.com/jason-s-yu/qspy/internal/protocol"
	"github.com/jason-s-yu/qspy/internal/version"
)

// VersionHeader carries the client's build version on every API call.
const VersionHeader = "X-QSPY-VERSION"

// roomResponse is the body of /api/room and /api/join replies. Mistake
// tells the client which input field to highlight.
type roomResponse struct {
	RoomID  string `json:"roomID,omitempty"`
	Error   string `json:"error,omitempty"`
	Mistake *int   `json:"mistake,omitempty"`
}

// VersionMiddleware rejects requests whose version header does not
// match the server build with 418, which clients treat as "reload
// required". Distinct from every other rejection status on purpose.
func VersionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(VersionHeader) != version.Current() {
			http.Error(w, "Version does not match API version.", http.StatusTeapot)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExistsHandler answers whether a public room ID is live: 200 or 404.
func ExistsHandler(dir *game.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("roomID")
		if roomID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if dir.FindRoomByID(roomID) == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// RoomHandler serves the create-or-join pre-check. Create registers a
// new room and returns its ID; join resolves name+password to an ID the
// client then connects with.
func RoomHandler(logger *logrus.Logger, dir *game.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req protocol.RoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		req.Sanitize()
		if ferr := req.Validate(); ferr != nil {
			writeFieldError(w, http.StatusBadRequest, ferr)
			return
		}

		if req.Create {
			s, err := dir.CreateRoom(req.RoomName, req.RoomPass)
			switch {
			case errors.Is(err, game.ErrTooManyRooms):
				writeJSON(w, http.StatusServiceUnavailable, roomResponse{Error: "Too many rooms."})
			case errors.Is(err, game.ErrRoomExists):
				writeJSON(w, http.StatusBadRequest, roomResponse{Error: "Room already exists."})
			case err != nil:
				logger.Errorf("create room %q: %v", req.RoomName, err)
				writeJSON(w, http.StatusInternalServerError, roomResponse{Error: "Unknown error."})
			default:
				writeJSON(w, http.StatusOK, roomResponse{RoomID: s.ID()})
			}
			return
		}

		s := dir.FindRoom(req.RoomName)
		if s == nil || !s.CheckPassword(req.RoomPass) {
			mistake := protocol.MistakeLookup
			writeJSON(w, http.StatusNotFound, roomResponse{Error: "Room not found or password is incorrect.", Mistake: &mistake})
			return
		}
		if s.HasStarted() {
			writeJSON(w, http.StatusForbidden, roomResponse{Error: "Room has already started. Try joining later."})
			return
		}
		if s.ClientCount() >= game.MaxRoomMembers {
			writeJSON(w, http.StatusForbidden, roomResponse{Error: "Room is full."})
			return
		}
		writeJSON(w, http.StatusOK, roomResponse{RoomID: s.ID()})
	}
}

// JoinHandler serves the direct-join pre-check for players following a
// shared room link; they carry a room ID instead of a name+password.
func JoinHandler(dir *game.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req protocol.JoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		req.Sanitize()
		if ferr := req.Validate(); ferr != nil {
			writeFieldError(w, http.StatusBadRequest, ferr)
			return
		}

		s := dir.FindRoomByID(req.RoomID)
		if s == nil {
			writeJSON(w, http.StatusBadRequest, roomResponse{Error: "Room not found."})
			return
		}
		if s.HasStarted() {
			writeJSON(w, http.StatusForbidden, roomResponse{Error: "Room has already started. Try joining later."})
			return
		}
		if s.ClientCount() >= game.MaxRoomMembers {
			writeJSON(w, http.StatusForbidden, roomResponse{Error: "Room is full."})
			return
		}
		writeJSON(w, http.StatusOK, roomResponse{})
	}
}

// StatsHandler exposes the process-wide gauges.
func StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "{\n    \"clients\": %d,\n    \"rooms\": %d\n}", metrics.ClientCount(), metrics.RoomCount())
	}
}

func writeFieldError(w http.ResponseWriter, status int, ferr *protocol.FieldError) {
	mistake := ferr.Field
	writeJSON(w, status, roomResponse{Error: ferr.Message, Mistake: &mistake})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
