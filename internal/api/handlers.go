// Package api exposes the room bootstrap endpoints: rooms and membership are
// managed here, outside the realtime path.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"chat-status/internal/models"
	"chat-status/internal/store"
)

type Handler struct {
	Store store.Store
}

// Register mounts the admin routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/rooms", h.listRooms).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms", h.createRoom).Methods(http.MethodPost)
	r.HandleFunc("/api/rooms/{room}/members", h.addMember).Methods(http.MethodPost)
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[API] Response encode failed", "error", err)
	}
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Store.ListRooms(r.Context())
	if err != nil {
		slog.Error("[API] Room list failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	room, err := h.Store.CreateRoom(r.Context(), req.Name)
	if err != nil {
		slog.Error("[API] Room create failed", "room", req.Name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	added, err := h.Store.AddMember(r.Context(), room, models.UserID(req.UserID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		slog.Error("[API] Member add failed", "room", room, "user", req.UserID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}
