package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"chat-status/internal/models"
	"chat-status/internal/store"
)

func newTestRouter() (*mux.Router, *store.Memory) {
	st := store.NewMemory()
	r := mux.NewRouter()
	(&Handler{Store: st}).Register(r)
	return r, st
}

func do(r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateRoomAndAddMember(t *testing.T) {
	r, st := newTestRouter()

	w := do(r, http.MethodPost, "/api/rooms", `{"name":"lobby"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/api/rooms/lobby/members", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, res["added"])

	// Adding the same member again reports no change.
	w = do(r, http.MethodPost, "/api/rooms/lobby/members", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.False(t, res["added"])

	room, err := st.FindRoom(context.Background(), "lobby")
	require.NoError(t, err)
	require.Equal(t, []models.UserID{"alice"}, room.Members)
}

func TestAddMemberToMissingRoom(t *testing.T) {
	r, _ := newTestRouter()
	w := do(r, http.MethodPost, "/api/rooms/nowhere/members", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRoomValidation(t *testing.T) {
	r, _ := newTestRouter()
	require.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/rooms", `{}`).Code)
	require.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/rooms", `garbage`).Code)
}

func TestListRooms(t *testing.T) {
	r, st := newTestRouter()
	_, err := st.CreateRoom(context.Background(), "lobby")
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []models.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	require.Equal(t, "lobby", rooms[0].Name)
}
