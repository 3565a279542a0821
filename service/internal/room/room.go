// Package room implements the lobby: rooms, seats, admin-only start and
// the hand-off of a full table to a game session.
package room

import (
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/i-akshat-jain/sequence-game/engine"
	"github.com/i-akshat-jain/sequence-game/service/internal/game"
	"github.com/i-akshat-jain/sequence-game/service/internal/models"
	log "github.com/sirupsen/logrus"
)

// LobbyState is the room's phase as shown to clients.
type LobbyState string

const (
	StateWaiting  LobbyState = "waiting"
	StatePlaying  LobbyState = "playing"
	StateFinished LobbyState = "finished"
)

const (
	minRoomIDLen  = 3
	maxRoomIDLen  = 10
	maxNameLen    = 20
	minPlayers    = 2
	maxMaxPlayers = 12
)

// ValidateRoomID checks the room id length.
func ValidateRoomID(id string) error {
	if n := len(id); n < minRoomIDLen || n > maxRoomIDLen {
		return ErrInvalidRoomID
	}
	return nil
}

// ValidateName checks the player name length.
func ValidateName(name string) error {
	if n := len([]rune(name)); n < 1 || n > maxNameLen {
		return ErrInvalidName
	}
	return nil
}

// Room is one table. Lock order is Room.mu, then the game's Mu.
type Room struct {
	ID        string
	AdminID   uuid.UUID
	CreatedAt time.Time

	// Callbacks handed to every game started in this room.
	BroadcastFn         func(ev game.GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev game.GameEvent)
	OnGameEnd           game.OnGameEndFunc
	// SnapshotTTL overrides the lifetime of game snapshots when positive.
	SnapshotTTL time.Duration

	// OnSeat is called, under the room lock, when a connection takes a seat.
	OnSeat func(playerID uuid.UUID, conn *websocket.Conn)

	mu         sync.Mutex
	settings   models.RoomSettings
	players    []*models.Player
	game       *game.SequenceGame
	gamesRun   int
	lastActive time.Time
}

// View is the public description of a room.
type View struct {
	ID         string              `json:"id"`
	AdminID    uuid.UUID           `json:"adminId"`
	Players    []models.Player     `json:"players"`
	Settings   models.RoomSettings `json:"settings"`
	LobbyState LobbyState          `json:"lobbyState"`
	GameID     *uuid.UUID          `json:"gameId,omitempty"`
	GamesRun   int                 `json:"gamesRun"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// New returns an empty room.
func New(id string, settings models.RoomSettings) *Room {
	now := time.Now()
	return &Room{
		ID:         id,
		CreatedAt:  now,
		settings:   settings,
		lastActive: now,
	}
}

// state derives the lobby state from the current game.
// Assumes r.mu is held.
func (r *Room) state() LobbyState {
	if r.game == nil {
		return StateWaiting
	}
	r.game.Mu.Lock()
	defer r.game.Mu.Unlock()
	if r.game.GameOver {
		return StateFinished
	}
	return StatePlaying
}

// playing reports whether a game is running.
// Assumes r.mu is held.
func (r *Room) playing() bool {
	return r.state() == StatePlaying
}

func (r *Room) touch() { r.lastActive = time.Now() }

// LastActive returns the time of the last lobby or game action.
func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

func (r *Room) findByName(name string) *models.Player {
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func (r *Room) findByID(id uuid.UUID) *models.Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Join seats a player. A name already in the room is a reconnect when the
// admin flag matches, otherwise the name is taken. The first player of an
// empty room becomes its admin.
func (r *Room) Join(name string, isAdmin bool, conn *websocket.Conn) (*models.Player, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.findByName(name); existing != nil {
		if existing.IsAdmin != isAdmin {
			return nil, false, ErrNameTaken
		}
		r.seat(existing.ID, conn)
		r.reconnect(existing, conn)
		return existing, true, nil
	}

	if r.playing() {
		return nil, false, ErrGameInProgress
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return nil, false, ErrRoomFull
	}

	p := &models.Player{
		ID:        uuid.New(),
		Name:      name,
		Connected: true,
		Conn:      conn,
	}
	if len(r.players) == 0 {
		p.IsAdmin = true
		r.AdminID = p.ID
	}
	r.players = append(r.players, p)
	r.seat(p.ID, conn)
	r.touch()
	log.Printf("Room %s: Player %s (%s) joined (%d/%d).", r.ID, p.ID, p.Name, len(r.players), r.settings.MaxPlayers)
	return p, false, nil
}

// Rejoin reclaims a seat by player ID, as carried in a seat ticket.
func (r *Room) Rejoin(playerID uuid.UUID, conn *websocket.Conn) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findByID(playerID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	r.seat(p.ID, conn)
	r.reconnect(p, conn)
	return p, nil
}

func (r *Room) seat(playerID uuid.UUID, conn *websocket.Conn) {
	if r.OnSeat != nil {
		r.OnSeat(playerID, conn)
	}
}

// reconnect swaps in the new connection and resyncs a running game.
// Assumes r.mu is held.
func (r *Room) reconnect(p *models.Player, conn *websocket.Conn) {
	r.touch()
	log.Printf("Room %s: Player %s (%s) reconnecting.", r.ID, p.ID, p.Name)
	if r.game != nil {
		r.game.Mu.Lock()
		defer r.game.Mu.Unlock()
		if r.game.Started {
			r.game.HandleReconnect(p.ID, conn)
			return
		}
	}
	p.Conn = conn
	p.Connected = true
}

// Leave removes a waiting player, or marks a seated one disconnected while a
// game runs. A non-nil conn that no longer owns the seat changes nothing and
// yields errStaleConn, so a socket closing after a reconnect does not evict
// the player.
// It returns the number of players still connected.
func (r *Room) Leave(playerID uuid.UUID, conn *websocket.Conn) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findByID(playerID)
	if p == nil {
		return r.connectedCount(), ErrNotInRoom
	}
	if conn != nil && r.seatConn(p) != conn {
		return r.connectedCount(), errStaleConn
	}
	r.touch()

	if r.playing() {
		r.game.Mu.Lock()
		r.game.HandleDisconnect(playerID)
		r.game.Mu.Unlock()
		return r.connectedCount(), nil
	}

	for i, pl := range r.players {
		if pl.ID == playerID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	p.Connected = false
	p.Conn = nil
	if p.IsAdmin && len(r.players) > 0 {
		next := r.players[0]
		next.IsAdmin = true
		r.AdminID = next.ID
		log.Printf("Room %s: Admin left, %s (%s) is the new admin.", r.ID, next.ID, next.Name)
	}
	log.Printf("Room %s: Player %s (%s) left.", r.ID, p.ID, p.Name)
	return r.connectedCount(), nil
}

// seatConn reads the player's connection under the game lock.
// Assumes r.mu is held.
func (r *Room) seatConn(p *models.Player) *websocket.Conn {
	if r.game != nil {
		r.game.Mu.Lock()
		defer r.game.Mu.Unlock()
	}
	return p.Conn
}

// connectedCount counts connected players.
// Assumes r.mu is held.
func (r *Room) connectedCount() int {
	if r.game != nil {
		r.game.Mu.Lock()
		defer r.game.Mu.Unlock()
	}
	n := 0
	for _, p := range r.players {
		if p.Connected {
			n++
		}
	}
	return n
}

// Start launches a game with the seated players. Only the admin may start,
// and the override is merged into the room's settings first.
func (r *Room) Start(requesterID uuid.UUID, override *models.SettingsOverride) (*game.SequenceGame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findByID(requesterID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	if !p.IsAdmin {
		return nil, ErrNotAdmin
	}
	if r.playing() {
		return nil, ErrGameInProgress
	}

	settings := r.settings.Apply(override)
	if settings.MaxPlayers < minPlayers || settings.MaxPlayers > maxMaxPlayers || settings.TurnTimeLimit < 0 {
		return nil, ErrInvalidSettings
	}

	// Players who dropped out of a finished game give up their seat.
	seated := r.players[:0]
	for _, pl := range r.players {
		if pl.Connected {
			pl.Autoplay = false
			seated = append(seated, pl)
		}
	}
	r.players = seated

	if len(r.players) < minPlayers {
		return nil, ErrNotEnoughPlayers
	}
	if _, err := engine.PolicyFor(len(r.players)); err != nil {
		return nil, ErrUnsupportedCount
	}

	g := game.NewSequenceGame(r.ID, settings)
	g.BroadcastFn = r.BroadcastFn
	g.BroadcastToPlayerFn = r.BroadcastToPlayerFn
	g.OnGameEnd = r.OnGameEnd
	if r.SnapshotTTL > 0 {
		g.SnapshotTTL = r.SnapshotTTL
	}
	for _, pl := range r.players {
		g.AddPlayer(pl)
	}
	if err := g.StartGame(); err != nil {
		return nil, err
	}

	r.settings = settings
	r.game = g
	r.gamesRun++
	r.touch()
	log.Printf("Room %s: Game %s started by %s with %d players.", r.ID, g.ID, p.Name, len(r.players))
	return g, nil
}

// HandleAction forwards a player's game action.
func (r *Room) HandleAction(playerID uuid.UUID, action models.GameAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.game == nil {
		return ErrNoGame
	}
	r.touch()
	r.game.Mu.Lock()
	defer r.game.Mu.Unlock()
	return r.game.HandlePlayerAction(playerID, action)
}

// ValidTargets lists where the player's card may go.
func (r *Room) ValidTargets(playerID uuid.UUID, cardID string) ([]engine.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.game == nil {
		return nil, ErrNoGame
	}
	r.game.Mu.Lock()
	defer r.game.Mu.Unlock()
	return r.game.ValidTargets(playerID, cardID), nil
}

// GameState returns the running game as seen by forUser, or nil.
func (r *Room) GameState(forUser uuid.UUID) *game.ObfGameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.game == nil {
		return nil
	}
	r.game.Mu.Lock()
	defer r.game.Mu.Unlock()
	st := r.game.GetCurrentObfuscatedGameState(forUser)
	return &st
}

// Layout returns the current game's board layout, or nil before the first game.
func (r *Room) Layout() *engine.BoardLayout {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.game == nil {
		return nil
	}
	r.game.Mu.Lock()
	defer r.game.Mu.Unlock()
	if r.game.Engine == nil {
		return nil
	}
	return r.game.Engine.Layout
}

// View returns a copy of the room's public state.
func (r *Room) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := View{
		ID:         r.ID,
		AdminID:    r.AdminID,
		Settings:   r.settings,
		LobbyState: r.state(),
		GamesRun:   r.gamesRun,
		CreatedAt:  r.CreatedAt,
		Players:    make([]models.Player, 0, len(r.players)),
	}
	if r.game != nil {
		id := r.game.ID
		v.GameID = &id
		r.game.Mu.Lock()
		defer r.game.Mu.Unlock()
	}
	for _, p := range r.players {
		cp := *p
		cp.Conn = nil
		v.Players = append(v.Players, cp)
	}
	return v
}

// Close ends a running game and drops every connection.
func (r *Room) Close(reason string) {
	r.mu.Lock()
	g := r.game
	if g != nil {
		g.Mu.Lock()
		if g.Started && !g.GameOver {
			g.EndGame()
		}
	}
	var conns []*websocket.Conn
	for _, p := range r.players {
		if p.Conn != nil {
			conns = append(conns, p.Conn)
			p.Conn = nil
		}
		p.Connected = false
	}
	if g != nil {
		g.Mu.Unlock()
	}
	r.mu.Unlock()

	// The close handshake can block, so it runs outside the locks.
	for _, c := range conns {
		go c.Close(websocket.StatusGoingAway, reason)
	}
}
