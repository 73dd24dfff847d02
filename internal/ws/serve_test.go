package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chat-status/internal/auth"
	"chat-status/internal/models"
	"chat-status/internal/presence"
	"chat-status/internal/render"
	"chat-status/internal/store"
)

const testSecret = "test-secret"

func signTestToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	_, err := st.CreateRoom(ctx, "lobby")
	require.NoError(t, err)
	for _, u := range []models.UserID{"alice", "bob"} {
		_, err := st.AddMember(ctx, "lobby", u)
		require.NoError(t, err)
	}

	gateway := &Gateway{
		Store:    st,
		Presence: presence.NewTracker(),
		Hub:      NewHub(),
		Renderer: render.NewHTML(),
		Auth:     auth.NewVerifier(testSecret),
	}
	router := mux.NewRouter()
	router.HandleFunc("/ws/{room}", gateway.ServeWS)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func dial(t *testing.T, srv *httptest.Server, room, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + room
	if token != "" {
		url += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestServeWSRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	_, resp, err := dial(t, srv, "lobby", "")
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWSRejectsUnknownRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	_, resp, err := dial(t, srv, "nowhere", signTestToken(t, "alice"))
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeWSEndToEnd(t *testing.T) {
	srv, st := newTestServer(t)

	connA, _, err := dial(t, srv, "lobby", signTestToken(t, "alice"))
	require.NoError(t, err)
	defer connA.Close()

	// Alice's own arrival produces an occupancy frame.
	frame := readFrame(t, connA)
	require.Equal(t, models.FrameOnlineCount, frame["type"])
	require.Contains(t, frame["html"], "0 online")

	connB, _, err := dial(t, srv, "lobby", signTestToken(t, "bob"))
	require.NoError(t, err)
	defer connB.Close()

	frame = readFrame(t, connA)
	require.Equal(t, models.FrameOnlineCount, frame["type"])
	require.Contains(t, frame["html"], "1 online")

	frame = readFrame(t, connB)
	require.Equal(t, models.FrameOnlineCount, frame["type"])
	require.Contains(t, frame["html"], "1 online")

	// Alice sends; both sides receive the rendered message and bob's
	// observation marks it delivered.
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte(`{"body":"hi bob"}`)))

	frameA := readFrame(t, connA)
	require.Equal(t, models.FrameChatMessage, frameA["type"])
	frameB := readFrame(t, connB)
	require.Equal(t, models.FrameChatMessage, frameB["type"])
	require.Contains(t, frameB["html"], "hi bob")

	msgID := frameB["message_id"].(string)
	require.Eventually(t, func() bool {
		delivered, err := st.IsDelivered(context.Background(), msgID, "bob")
		return err == nil && delivered
	}, 2*time.Second, 10*time.Millisecond)

	// Bob reads; everyone gets the status transition to read.
	require.NoError(t, connB.WriteMessage(websocket.TextMessage, []byte(`{"read_message_id":"`+msgID+`"}`)))

	frameA = readFrame(t, connA)
	require.Equal(t, models.FrameChatMessageStatus, frameA["type"])
	require.Equal(t, string(models.StatusRead), frameA["status"])
}
