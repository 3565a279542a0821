// Package ws is the websocket relay between clients and the lobby.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/i-akshat-jain/sequence-game/engine"
	"github.com/i-akshat-jain/sequence-game/service/internal/events"
	"github.com/i-akshat-jain/sequence-game/service/internal/models"
	"github.com/i-akshat-jain/sequence-game/service/internal/room"
	log "github.com/sirupsen/logrus"
)

// Client to server messages.
const (
	MsgJoinRoom   = "join-room"
	MsgStartGame  = "start-game"
	MsgGameAction = "game-action"
	MsgSelectCard = "select-card"
	MsgLeaveRoom  = "leave-room"
)

// Server to client messages beyond the lobby's own.
const (
	MsgJoinedRoom   = "joined-room"
	MsgValidTargets = "valid-targets"
	MsgError        = "error"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 64 << 10
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type startGameData struct {
	RoomID   string                   `json:"roomId"`
	Settings *models.SettingsOverride `json:"settings,omitempty"`
}

type gameActionData struct {
	RoomID string            `json:"roomId"`
	Action models.GameAction `json:"action"`
}

type selectCardData struct {
	CardID string `json:"cardId"`
}

// JoinedRoomData answers a successful join-room.
type JoinedRoomData struct {
	RoomID      string        `json:"roomId"`
	PlayerID    uuid.UUID     `json:"playerId"`
	Player      models.Player `json:"player"`
	Room        room.View     `json:"room"`
	Ticket      string        `json:"ticket"`
	Reconnected bool          `json:"reconnected"`
}

// ValidTargetsData answers select-card.
type ValidTargetsData struct {
	CardID  string            `json:"cardId"`
	Targets []engine.Position `json:"targets"`
}

// Client is one websocket connection.
type Client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte

	// Seat, set by Bind. Guarded by Hub.mu.
	roomID   string
	playerID uuid.UUID
}

// Hub routes lobby and game messages to seated clients and mirrors public
// room messages to NATS.
type Hub struct {
	lobby          *room.Lobby
	publisher      *events.Publisher
	originPatterns []string

	mu    sync.RWMutex
	conns map[*websocket.Conn]*Client
	seats map[string]map[uuid.UUID]*Client // roomID -> playerID -> client
}

// NewHub returns a hub accepting the given origins. Entries may be full
// origins or host patterns; none allows any origin.
func NewHub(allowedOrigins []string, publisher *events.Publisher) *Hub {
	return &Hub{
		publisher:      publisher,
		originPatterns: originPatterns(allowedOrigins),
		conns:          make(map[*websocket.Conn]*Client),
		seats:          make(map[string]map[uuid.UUID]*Client),
	}
}

// SetLobby attaches the lobby. It must be called before serving.
func (h *Hub) SetLobby(l *room.Lobby) { h.lobby = l }

func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		out = append(out, o)
	}
	return out
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: len(h.originPatterns) == 0,
	})
	if err != nil {
		log.Printf("Websocket accept failed: %v", err)
		return
	}
	conn.SetReadLimit(readLimit)

	client := &Client{id: uuid.New(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.conns[conn] = client
	h.mu.Unlock()
	log.Printf("Client %s connected from %s.", client.id, r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.writeLoop(ctx, client)

	h.readLoop(ctx, client)

	if roomID, playerID := h.seatOf(client); roomID != "" {
		if err := h.lobby.LeaveRoom(roomID, playerID, conn); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			log.Printf("Client %s: Leave on disconnect failed: %v", client.id, err)
		}
	}

	h.mu.Lock()
	delete(h.conns, conn)
	h.unbindLocked(client)
	close(client.send)
	h.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "bye")
	log.Printf("Client %s disconnected.", client.id)
}

func (h *Hub) writeLoop(ctx context.Context, c *Client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.Printf("Client %s: Write failed: %v", c.id, err)
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, c *Client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			h.sendError(c, "bad-message", "message is not valid JSON")
			continue
		}
		h.handle(c, m)
	}
}

func (h *Hub) handle(c *Client, m Message) {
	switch m.Type {
	case MsgJoinRoom:
		var req room.JoinRequest
		if !h.decode(c, m, &req) {
			return
		}
		if roomID, playerID := h.seatOf(c); roomID != "" && roomID != req.RoomID {
			h.lobby.LeaveRoom(roomID, playerID, c.conn)
		}
		res, err := h.lobby.JoinRoom(req, c.conn)
		if err != nil {
			h.sendLobbyError(c, err)
			return
		}
		h.sendTo(c, MsgJoinedRoom, JoinedRoomData{
			RoomID:      res.Room.ID,
			PlayerID:    res.Player.ID,
			Player:      res.Player,
			Room:        res.Room,
			Ticket:      res.Ticket,
			Reconnected: res.Reconnected,
		})

	case MsgStartGame:
		var req startGameData
		if !h.decode(c, m, &req) {
			return
		}
		roomID, playerID, ok := h.requireSeat(c)
		if !ok {
			return
		}
		if err := h.lobby.StartGame(roomID, playerID, req.Settings); err != nil {
			h.sendLobbyError(c, err)
		}

	case MsgGameAction:
		var req gameActionData
		if !h.decode(c, m, &req) {
			return
		}
		roomID, playerID, ok := h.requireSeat(c)
		if !ok {
			return
		}
		// Rule violations reach the player as a private action_rejected event.
		if err := h.lobby.HandleAction(roomID, playerID, req.Action); err != nil {
			var lobbyErr *room.Error
			if errors.As(err, &lobbyErr) {
				h.sendLobbyError(c, err)
			}
		}

	case MsgSelectCard:
		var req selectCardData
		if !h.decode(c, m, &req) {
			return
		}
		roomID, playerID, ok := h.requireSeat(c)
		if !ok {
			return
		}
		targets, err := h.lobby.ValidTargets(roomID, playerID, req.CardID)
		if err != nil {
			h.sendLobbyError(c, err)
			return
		}
		if targets == nil {
			targets = []engine.Position{}
		}
		h.sendTo(c, MsgValidTargets, ValidTargetsData{CardID: req.CardID, Targets: targets})

	case MsgLeaveRoom:
		roomID, playerID, ok := h.requireSeat(c)
		if !ok {
			return
		}
		if err := h.lobby.LeaveRoom(roomID, playerID, c.conn); err != nil {
			h.sendLobbyError(c, err)
		}

	default:
		h.sendError(c, "unknown-message", "unknown message type "+m.Type)
	}
}

func (h *Hub) decode(c *Client, m Message, v interface{}) bool {
	if len(m.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		h.sendError(c, "bad-message", "invalid "+m.Type+" payload")
		return false
	}
	return true
}

func (h *Hub) requireSeat(c *Client) (string, uuid.UUID, bool) {
	roomID, playerID := h.seatOf(c)
	if roomID == "" {
		h.sendLobbyError(c, room.ErrNotInRoom)
		return "", uuid.Nil, false
	}
	return roomID, playerID, true
}

func (h *Hub) seatOf(c *Client) (string, uuid.UUID) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.roomID, c.playerID
}

// Bind seats the connection's client. A client previously holding the seat
// is disconnected.
func (h *Hub) Bind(roomID string, playerID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[conn]
	if !ok {
		return
	}
	players := h.seats[roomID]
	if players == nil {
		players = make(map[uuid.UUID]*Client)
		h.seats[roomID] = players
	}
	if old, ok := players[playerID]; ok && old != c {
		old.roomID, old.playerID = "", uuid.Nil
		go old.conn.Close(websocket.StatusPolicyViolation, "seat taken by a new connection")
	}
	h.unbindLocked(c)
	c.roomID, c.playerID = roomID, playerID
	players[playerID] = c
}

// Unbind clears a seat. A nil conn clears it whichever client holds it.
func (h *Hub) Unbind(roomID string, playerID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.seats[roomID][playerID]
	if !ok || (conn != nil && c.conn != conn) {
		return
	}
	h.unbindLocked(c)
}

// unbindLocked assumes h.mu is held.
func (h *Hub) unbindLocked(c *Client) {
	if c.roomID == "" {
		return
	}
	if players := h.seats[c.roomID]; players[c.playerID] == c {
		delete(players, c.playerID)
		if len(players) == 0 {
			delete(h.seats, c.roomID)
		}
	}
	c.roomID, c.playerID = "", uuid.Nil
}

// Broadcast sends a message to every client seated in the room and
// publishes it on the room's NATS subject.
func (h *Hub) Broadcast(roomID, msgType string, data interface{}) {
	b, err := json.Marshal(outMessage{Type: msgType, Data: data})
	if err != nil {
		log.Printf("Room %s: Failed to marshal %s: %v", roomID, msgType, err)
		return
	}
	h.mu.RLock()
	for _, c := range h.seats[roomID] {
		h.enqueue(c, b)
	}
	h.mu.RUnlock()

	if h.publisher.Enabled() {
		h.publisher.PublishRoomEvent(roomID, msgType, data)
	}
}

// SendToPlayer sends a message to one seated player.
func (h *Hub) SendToPlayer(roomID string, playerID uuid.UUID, msgType string, data interface{}) {
	b, err := json.Marshal(outMessage{Type: msgType, Data: data})
	if err != nil {
		log.Printf("Room %s: Failed to marshal %s for %s: %v", roomID, msgType, playerID, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.seats[roomID][playerID]; ok {
		h.enqueue(c, b)
	}
}

// enqueue drops the message when the client is not keeping up.
// Assumes h.mu is held.
func (h *Hub) enqueue(c *Client, b []byte) {
	select {
	case c.send <- b:
	default:
		log.Printf("Client %s: Send buffer full, dropping message.", c.id)
	}
}

func (h *Hub) sendTo(c *Client, msgType string, data interface{}) {
	b, err := json.Marshal(outMessage{Type: msgType, Data: data})
	if err != nil {
		log.Printf("Client %s: Failed to marshal %s: %v", c.id, msgType, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.conns[c.conn]; ok {
		h.enqueue(c, b)
	}
}

func (h *Hub) sendLobbyError(c *Client, err error) {
	h.sendError(c, room.Code(err), err.Error())
}

func (h *Hub) sendError(c *Client, code, message string) {
	h.sendTo(c, MsgError, ErrorData{Code: code, Message: message})
}
