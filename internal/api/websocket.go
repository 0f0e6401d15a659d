package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/JustinTDCT/Marquee/internal/auth"
	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/metrics"
)

const (
	EventPlayerOpen  = "player:open"
	EventPlayerClose = "player:close"
)

// ──────────────────── WebSocket Hub ────────────────────

// PlayerState is the video a user currently has open.
type PlayerState struct {
	Open     bool   `json:"open"`
	VideoURL string `json:"video_url,omitempty"`
	TMDBID   string `json:"tmdb_id,omitempty"`
	Season   int    `json:"season,omitempty"`
	Episode  int    `json:"episode,omitempty"`
}

type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool

	playersMu sync.RWMutex
	players   map[string]PlayerState // user id → open player
}

type WSClient struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[*WSClient]bool),
		players: make(map[string]PlayerState),
	}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// SendToUser delivers an event to every connection of one user.
func (h *WSHub) SendToUser(userID, event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.userID != userID {
			continue
		}
		select {
		case client.send <- msg:
		default:
		}
	}
}

// OpenPlayer records the user's active video and tells their clients.
// Opening a new video replaces the previous one.
func (h *WSHub) OpenPlayer(userID string, state PlayerState) {
	state.Open = true
	h.playersMu.Lock()
	h.players[userID] = state
	h.playersMu.Unlock()
	h.SendToUser(userID, EventPlayerOpen, state)
}

func (h *WSHub) ClosePlayer(userID string) {
	h.playersMu.Lock()
	_, open := h.players[userID]
	delete(h.players, userID)
	h.playersMu.Unlock()
	if open {
		h.SendToUser(userID, EventPlayerClose, PlayerState{})
	}
}

func (h *WSHub) Player(userID string) PlayerState {
	h.playersMu.RLock()
	defer h.playersMu.RUnlock()
	return h.players[userID]
}

// sendPlayerState replays an open player to a newly connected client.
func (h *WSHub) sendPlayerState(client *WSClient) {
	state := h.Player(client.userID)
	if !state.Open {
		return
	}
	msg, err := json.Marshal(WSMessage{Event: EventPlayerOpen, Data: state})
	if err != nil {
		return
	}
	select {
	case client.send <- msg:
	default:
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	metrics.WSClients.Inc()
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
		metrics.WSClients.Dec()
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := logging.For("ws")
	token := auth.ExtractToken(r)
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	claims, err := s.Auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.WithError(err).Warn("websocket accept failed")
		return
	}

	client := &WSClient{
		conn:   conn,
		userID: claims.Subject,
		send:   make(chan []byte, 64),
	}
	s.Hub.addClient(client)
	s.Hub.sendPlayerState(client)
	log.WithField("user_id", client.userID).Debug("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		if msg.Event == EventPlayerClose {
			s.Hub.ClosePlayer(client.userID)
		}
	}

	s.Hub.removeClient(client)
	log.WithField("user_id", client.userID).Debug("client disconnected")
}
