package ws

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"chat-status/internal/auth"
	"chat-status/internal/models"
	"chat-status/internal/presence"
	"chat-status/internal/render"
	"chat-status/internal/store"
)

// Gateway is the connection lifecycle controller: it authenticates the
// websocket upgrade, validates the target room, and wires the connection to
// a Session.
type Gateway struct {
	Store    store.Store
	Presence *presence.Tracker
	Hub      *Hub
	Renderer render.Renderer
	Auth     *auth.Verifier
}

// ServeWS handles GET /ws/{room}.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractTokenFromRequest(r)
	if token == "" {
		slog.Warn("[WS] No token provided", "from", r.RemoteAddr)
		http.Error(w, "Unauthorized: token required", http.StatusUnauthorized)
		return
	}

	claims, err := g.Auth.Verify(token)
	if err != nil {
		slog.Warn("[WS] Token validation failed", "from", r.RemoteAddr, "error", err)
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}
	user := models.UserID(claims.Subject)

	room := mux.Vars(r)["room"]
	if room == "" {
		http.Error(w, "room required", http.StatusBadRequest)
		return
	}

	// Room must exist before any connection state is created.
	if _, err := g.Store.FindRoom(r.Context(), room); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("[WS] Room not found", "room", room, "user", user)
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		slog.Error("[WS] Room lookup failed", "room", room, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("[WS] Failed to upgrade connection", "user", user, "room", room, "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}
	client.session = NewSession(g.Store, g.Presence, g.Hub, g.Renderer, room, user, client.send)

	slog.Info("[WS] Connection established", "user", user, "room", room)

	go client.WritePump()
	client.session.Connect()
	go client.ReadPump()
}
