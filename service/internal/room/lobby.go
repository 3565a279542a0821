package room

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/i-akshat-jain/sequence-game/engine"
	"github.com/i-akshat-jain/sequence-game/service/internal/game"
	"github.com/i-akshat-jain/sequence-game/service/internal/models"
	log "github.com/sirupsen/logrus"
)

// Messages the lobby sends to clients.
const (
	MsgPlayerJoined = "player-joined"
	MsgPlayerLeft   = "player-left"
	MsgGameStarted  = "game-started"
	MsgGameEvent    = "game-event"
)

// Notifier delivers lobby and game messages to connected clients.
// Implementations must not call back into the lobby or a room.
type Notifier interface {
	Bind(roomID string, playerID uuid.UUID, conn *websocket.Conn)
	Unbind(roomID string, playerID uuid.UUID, conn *websocket.Conn)
	Broadcast(roomID, msgType string, data interface{})
	SendToPlayer(roomID string, playerID uuid.UUID, msgType string, data interface{})
}

// JoinRequest is a client's request for a seat. A valid Ticket reclaims the
// seat it was issued for and the other fields are ignored.
type JoinRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	IsAdmin    bool   `json:"isAdmin"`
	Ticket     string `json:"ticket,omitempty"`
}

// JoinResult describes the seat a join produced.
type JoinResult struct {
	Room        View          `json:"room"`
	Player      models.Player `json:"player"`
	Reconnected bool          `json:"reconnected"`
	Ticket      string        `json:"ticket"`
}

// PlayerEvent is the payload of player-joined and player-left.
type PlayerEvent struct {
	Player models.Player `json:"player"`
	Room   View          `json:"room"`
}

// Lobby owns room lifecycle: creation on the admin's join, seating, start and
// removal once the last player leaves.
type Lobby struct {
	repo     Repository
	defaults models.RoomSettings
	tickets  *TicketIssuer
	notifier Notifier

	// SnapshotTTL is handed to every room the lobby creates.
	SnapshotTTL time.Duration

	gamesFinished atomic.Int64
}

// NewLobby wires a lobby. notifier may be nil in tests.
func NewLobby(repo Repository, defaults models.RoomSettings, tickets *TicketIssuer, notifier Notifier) *Lobby {
	return &Lobby{repo: repo, defaults: defaults, tickets: tickets, notifier: notifier}
}

// Rooms returns the lobby's repository.
func (l *Lobby) Rooms() Repository { return l.repo }

// GamesFinished counts games that reached an end since startup.
func (l *Lobby) GamesFinished() int64 { return l.gamesFinished.Load() }

// newRoom builds a room whose game events flow to the notifier.
func (l *Lobby) newRoom(id string) *Room {
	r := New(id, l.defaults)
	r.SnapshotTTL = l.SnapshotTTL
	r.BroadcastFn = func(ev game.GameEvent) {
		l.broadcast(id, MsgGameEvent, ev)
	}
	r.BroadcastToPlayerFn = func(playerID uuid.UUID, ev game.GameEvent) {
		if l.notifier != nil {
			l.notifier.SendToPlayer(id, playerID, MsgGameEvent, ev)
		}
	}
	r.OnGameEnd = func(roomID string, winner engine.TeamID, sequences map[engine.TeamID]int) {
		l.gamesFinished.Add(1)
		log.WithFields(log.Fields{"room": roomID, "winner": winner, "sequences": sequences}).Info("game finished")
	}
	r.OnSeat = func(playerID uuid.UUID, conn *websocket.Conn) {
		if l.notifier != nil {
			l.notifier.Bind(id, playerID, conn)
		}
	}
	return r
}

func (l *Lobby) broadcast(roomID, msgType string, data interface{}) {
	if l.notifier != nil {
		l.notifier.Broadcast(roomID, msgType, data)
	}
}

// JoinRoom seats a connection. An admin joining an unknown room creates it
// with the default settings; anyone else gets room-not-found.
func (l *Lobby) JoinRoom(req JoinRequest, conn *websocket.Conn) (*JoinResult, error) {
	if req.Ticket != "" {
		return l.rejoin(req, conn)
	}
	if err := ValidateRoomID(req.RoomID); err != nil {
		return nil, err
	}
	if err := ValidateName(req.PlayerName); err != nil {
		return nil, err
	}

	r, ok := l.repo.Get(req.RoomID)
	if !ok {
		if !req.IsAdmin {
			return nil, ErrRoomNotFound
		}
		created := l.newRoom(req.RoomID)
		if err := l.repo.Create(created); err != nil {
			// Lost a race with another admin; join theirs.
			if r, ok = l.repo.Get(req.RoomID); !ok {
				return nil, err
			}
		} else {
			r = created
			log.Printf("Room %s: Created.", r.ID)
		}
	}

	p, reconnected, err := r.Join(req.PlayerName, req.IsAdmin, conn)
	if err != nil {
		return nil, err
	}
	return l.seated(r, p, reconnected)
}

func (l *Lobby) rejoin(req JoinRequest, conn *websocket.Conn) (*JoinResult, error) {
	claims, playerID, err := l.tickets.Parse(req.Ticket)
	if err != nil {
		return nil, err
	}
	if req.RoomID != "" && req.RoomID != claims.RoomID {
		return nil, ErrInvalidTicket
	}
	r, ok := l.repo.Get(claims.RoomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	p, err := r.Rejoin(playerID, conn)
	if err != nil {
		return nil, err
	}
	return l.seated(r, p, true)
}

// seated issues the ticket and announces the player.
func (l *Lobby) seated(r *Room, p *models.Player, reconnected bool) (*JoinResult, error) {
	view := r.View()
	player := playerFromView(view, p.ID)
	ticket, err := l.tickets.Issue(r.ID, player.ID, player.Name, player.IsAdmin)
	if err != nil {
		return nil, err
	}
	l.broadcast(r.ID, MsgPlayerJoined, PlayerEvent{Player: player, Room: view})
	return &JoinResult{Room: view, Player: player, Reconnected: reconnected, Ticket: ticket}, nil
}

func playerFromView(v View, id uuid.UUID) models.Player {
	for _, p := range v.Players {
		if p.ID == id {
			return p
		}
	}
	return models.Player{ID: id}
}

// LeaveRoom releases the player's seat and deletes the room once nobody is
// connected. conn may be nil to force the leave.
func (l *Lobby) LeaveRoom(roomID string, playerID uuid.UUID, conn *websocket.Conn) error {
	r, ok := l.repo.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	before := r.View()
	remaining, err := r.Leave(playerID, conn)
	if errors.Is(err, errStaleConn) {
		return nil
	}
	if err != nil {
		return err
	}
	if l.notifier != nil {
		l.notifier.Unbind(roomID, playerID, conn)
	}
	if remaining == 0 {
		r.Close("room empty")
		l.repo.Delete(roomID)
		return nil
	}
	after := r.View()
	player := playerFromView(before, playerID)
	player.Connected = false
	l.broadcast(roomID, MsgPlayerLeft, PlayerEvent{Player: player, Room: after})
	return nil
}

// StartGame starts a game in the room on the admin's request.
func (l *Lobby) StartGame(roomID string, requester uuid.UUID, override *models.SettingsOverride) error {
	r, ok := l.repo.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if _, err := r.Start(requester, override); err != nil {
		return err
	}
	l.broadcast(roomID, MsgGameStarted, r.View())
	return nil
}

// HandleAction forwards a game action from a seated player.
func (l *Lobby) HandleAction(roomID string, playerID uuid.UUID, action models.GameAction) error {
	r, ok := l.repo.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.HandleAction(playerID, action)
}

// ValidTargets lists the positions the player's card may target.
func (l *Lobby) ValidTargets(roomID string, playerID uuid.UUID, cardID string) ([]engine.Position, error) {
	r, ok := l.repo.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.ValidTargets(playerID, cardID)
}

// Room returns a room's public view.
func (l *Lobby) Room(roomID string) (View, error) {
	r, ok := l.repo.Get(roomID)
	if !ok {
		return View{}, ErrRoomNotFound
	}
	return r.View(), nil
}

// ListRooms returns every live room's view.
func (l *Lobby) ListRooms() []View {
	rooms := l.repo.List()
	out := make([]View, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.View())
	}
	return out
}
