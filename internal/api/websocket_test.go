package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/JustinTDCT/Marquee/internal/models"
)

func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebSocketPlayerEvents(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	userID, token := env.user(t, models.RoleUser)
	env.srv.Hub.OpenPlayer(userID.String(), PlayerState{VideoURL: "https://cdn/a.mp4"})

	conn := dialWS(t, ts, token)
	msg := readWS(t, conn)
	assert.Equal(t, EventPlayerOpen, msg.Event)
	assert.Equal(t, "https://cdn/a.mp4", msg.Data.(map[string]interface{})["video_url"])
	assert.Eventually(t, func() bool { return env.srv.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.srv.Hub.Broadcast("links:updated", map[string]string{"tmdb_id": "603"})
	assert.Equal(t, "links:updated", readWS(t, conn).Event)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"event":"player:close"}`)))
	assert.Equal(t, EventPlayerClose, readWS(t, conn).Event)
	assert.False(t, env.srv.Hub.Player(userID.String()).Open)
}

func TestHubSendToUser(t *testing.T) {
	hub := NewWSHub()
	a := &WSClient{userID: "a", send: make(chan []byte, 4)}
	b := &WSClient{userID: "b", send: make(chan []byte, 4)}
	hub.addClient(a)
	hub.addClient(b)

	hub.OpenPlayer("a", PlayerState{VideoURL: "https://x"})
	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 0)

	hub.ClosePlayer("b")
	assert.Len(t, b.send, 0)

	hub.removeClient(a)
	hub.removeClient(b)
	assert.Equal(t, 0, hub.ClientCount())
}
