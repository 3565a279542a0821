// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/i-akshat-jain/sequence-game/engine"
	"github.com/i-akshat-jain/sequence-game/engine/agent"
	"github.com/i-akshat-jain/sequence-game/service/internal/cache"
	"github.com/i-akshat-jain/sequence-game/service/internal/database"
	"github.com/i-akshat-jain/sequence-game/service/internal/models"
	log "github.com/sirupsen/logrus"
)

// OnGameEndFunc defines the signature for a callback function executed when a game ends.
// It receives the room ID, the winning team (empty if the game was abandoned) and the
// number of sequences each team completed.
type OnGameEndFunc func(roomID string, winner engine.TeamID, sequences map[engine.TeamID]int)

// GameEventType represents the type of a game-related event broadcast via WebSockets.
type GameEventType string

// Constants defining the various GameEvent types used for WebSocket communication.
const (
	EventGameStarted       GameEventType = "game_started"        // Public: Game began; carries layout and teams.
	EventPlayerTurn        GameEventType = "player_turn"         // Public: Notification of the current player's turn.
	EventChipPlaced        GameEventType = "chip_placed"         // Public: A chip was placed with the given card.
	EventChipRemoved       GameEventType = "chip_removed"        // Public: A one-eyed jack cleared a cell.
	EventSequenceFormed    GameEventType = "sequence_formed"     // Public: A team completed a sequence.
	EventDeadCardDiscarded GameEventType = "dead_card_discarded" // Public: A dead card was swapped for a new one.
	EventTurnPassed        GameEventType = "turn_passed"         // Public: Player passed or timed out.
	EventDeckReshuffled    GameEventType = "deck_reshuffled"     // Public: Discard piles became the new deck.
	EventPlayerConnection  GameEventType = "player_connection"   // Public: A player dropped or came back.
	EventPrivateCardDrawn  GameEventType = "private_card_drawn"  // Private: Details of the card drawn.
	EventActionRejected    GameEventType = "action_rejected"     // Private: The player's action was refused.
	EventPrivateSyncState  GameEventType = "private_sync_state"  // Private: Full game state sync for a player.
	EventGameEnd           GameEventType = "game_end"            // Public: Game has ended, includes results.
)

// EventUser identifies a user within a GameEvent payload.
type EventUser struct {
	ID   uuid.UUID     `json:"id"`
	Team engine.TeamID `json:"team,omitempty"`
}

// GameEvent is the standard structure for broadcasting game state changes and actions.
type GameEvent struct {
	Type     GameEventType    `json:"type"`
	User     *EventUser       `json:"user,omitempty"`     // The user initiating or targeted by the event.
	Card     *engine.Card     `json:"card,omitempty"`     // Card played, discarded or drawn.
	Position *engine.Position `json:"position,omitempty"` // Board cell involved.
	Sequence *engine.Sequence `json:"sequence,omitempty"` // Completed sequence.

	Payload map[string]interface{} `json:"payload,omitempty"` // Additional arbitrary data.

	State *ObfGameState `json:"state,omitempty"` // Full obfuscated state for sync events.
}

var (
	ErrGameStarted      = errors.New("game already started")
	ErrGameNotStarted   = errors.New("game not started")
	ErrPlayerNotInGame  = errors.New("player not in game")
	ErrPlayerOffline    = errors.New("player not connected")
	ErrMalformedPayload = errors.New("malformed action payload")
)

// autoplayDelay is how long an autoplayed seat waits before moving.
var autoplayDelay = 1500 * time.Millisecond

// maxDeadDiscards bounds automatic dead-card swaps in one turn.
const maxDeadDiscards = 8

// SequenceGame represents the state and logic for a single Sequence game in a room.
type SequenceGame struct {
	ID     uuid.UUID // Unique identifier for this game instance.
	RoomID string    // ID of the room that created this game.

	Settings models.RoomSettings // Settings the room started the game with.

	Players []*models.Player // Seats in turn order.

	Engine *engine.GameState // The authoritative game state.
	Seed   engine.Seed       // Source of the deal, layout and reshuffles.

	// Turn Management
	TurnID       int           // Increments each turn, useful for state synchronization and checks.
	TurnDuration time.Duration // Configurable duration for each turn timer.
	turnTimer    *time.Timer   // Active timer for the current turn.
	actionIndex  int           // Sequential index for the action log.

	// Game Lifecycle State
	Started  bool // Has the game started?
	GameOver bool // Has the game finished?

	Autoplay    agent.Policy  // Plays for disconnected seats when enabled.
	SnapshotTTL time.Duration // Lifetime of the Redis state snapshot.

	lastSeen map[uuid.UUID]time.Time // Tracks last activity time for players.
	Mu       sync.Mutex              // Mutex protecting concurrent access to game state.

	// Communication Callbacks
	BroadcastFn         func(ev GameEvent)                     // Sends an event to all connected players.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent) // Sends an event to a single player.
	OnGameEnd           OnGameEndFunc                          // Callback executed when the game finishes.
}

// NewSequenceGame creates a new game instance for a room with the given settings.
// The engine state is built in StartGame.
func NewSequenceGame(roomID string, settings models.RoomSettings) *SequenceGame {
	id, _ := uuid.NewRandom()
	return &SequenceGame{
		ID:           id,
		RoomID:       roomID,
		Settings:     settings,
		Seed:         engine.NewSeed(),
		TurnDuration: time.Duration(settings.TurnTimeLimit) * time.Second,
		Autoplay:     agent.Greedy{},
		SnapshotTTL:  24 * time.Hour,
		lastSeen:     make(map[uuid.UUID]time.Time),
	}
}

// enginePlayerID maps a service player ID to the engine's seat ID.
func enginePlayerID(id uuid.UUID) engine.PlayerID {
	return engine.PlayerID(id.String())
}

// servicePlayerID maps an engine seat ID back to the service player ID.
func servicePlayerID(id engine.PlayerID) uuid.UUID {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return uuid.Nil
	}
	return u
}

// StartGame deals the cards, binds a freshly generated layout and starts the first turn.
func (g *SequenceGame) StartGame() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.GameOver || g.Started {
		log.Printf("Game %s: StartGame called in invalid state (GameOver:%v, Started:%v). Ignoring.", g.ID, g.GameOver, g.Started)
		return ErrGameStarted
	}

	seats := make([]engine.Seat, len(g.Players))
	for i, p := range g.Players {
		seats[i] = engine.Seat{ID: enginePlayerID(p.ID), Name: p.Name}
	}
	state, err := engine.NewGame(seats, g.Seed, g.Settings.Rules)
	if err != nil {
		log.Printf("Game %s: Cannot start with %d players: %v", g.ID, len(g.Players), err)
		return err
	}
	layout := engine.CreateBoardLayoutSeeded(g.Seed)
	if layout.Fallback {
		log.Printf("Warning: Game %s: generated layout failed validation, using the fallback layout.", g.ID)
	}
	if err := state.Start(layout); err != nil {
		return err
	}

	g.Engine = state
	g.Started = true
	if g.Settings.TurnTimeLimit > 0 {
		g.TurnDuration = time.Duration(g.Settings.TurnTimeLimit) * time.Second
	} else {
		g.TurnDuration = 0 // Disable timer if set to 0.
	}
	log.Printf("Game %s: Started in room %s with %d players, %d teams, %d sequences to win.",
		g.ID, g.RoomID, len(g.Players), len(state.Teams), state.RequiredSequences)

	g.persistInitialGameState()
	g.logAction(uuid.Nil, "game_start", map[string]interface{}{
		"players":           len(g.Players),
		"requiredSequences": state.RequiredSequences,
		"fallbackLayout":    layout.Fallback,
	})

	g.fireEvent(GameEvent{
		Type: EventGameStarted,
		Payload: map[string]interface{}{
			"boardLayout":       layout,
			"teams":             state.Teams,
			"turnOrder":         state.TurnOrder,
			"dealer":            state.Dealer,
			"requiredSequences": state.RequiredSequences,
			"settings":          g.Settings,
		},
	})
	g.broadcastSyncStateToAll()

	g.beginTurn()
	return nil
}

// persistInitialGameState saves the dealt hands and deck size to the database.
// Assumes lock is held by caller.
func (g *SequenceGame) persistInitialGameState() {
	type initialState struct {
		DeckSize int                      `json:"deckSize"`
		Layout   *engine.BoardLayout      `json:"boardLayout"`
		Teams    []engine.Team            `json:"teams"`
		Players  map[string][]engine.Card `json:"players"`
	}

	snap := initialState{
		DeckSize: len(g.Engine.Deck),
		Layout:   g.Engine.Layout,
		Teams:    g.Engine.Teams,
		Players:  make(map[string][]engine.Card),
	}
	for _, p := range g.Engine.Players {
		hand := make([]engine.Card, len(p.Hand))
		copy(hand, p.Hand)
		snap.Players[string(p.ID)] = hand
	}

	if database.DB != nil {
		go database.UpsertInitialGameState(g.ID, g.RoomID, snap)
	}
	g.logAction(uuid.Nil, "game_initial_state_saved", map[string]interface{}{"deckSize": snap.DeckSize})
}

// AddPlayer adds a player to the game if not started, or marks them as reconnected.
// Assumes lock is held by caller.
func (g *SequenceGame) AddPlayer(p *models.Player) {
	found := false
	for i, pl := range g.Players {
		if pl.ID == p.ID {
			// Player reconnecting.
			g.Players[i].Conn = p.Conn
			g.Players[i].Connected = true
			g.Players[i].Name = p.Name
			g.lastSeen[p.ID] = time.Now()
			log.Printf("Game %s: Player %s (%s) reconnected.", g.ID, p.ID, p.Name)
			found = true
			break
		}
	}
	if !found {
		// New player joining (only possible before game starts).
		if !g.Started {
			g.Players = append(g.Players, p)
			g.lastSeen[p.ID] = time.Now()
			log.Printf("Game %s: Player %s (%s) added.", g.ID, p.ID, p.Name)
		} else {
			log.Printf("Game %s: Player %s (%s) cannot be added because game has already started.", g.ID, p.ID, p.Name)
			if p.Conn != nil {
				p.Conn.Close(websocket.StatusPolicyViolation, "Game already in progress.")
			}
			return
		}
	}
	g.logAction(p.ID, "player_add", map[string]interface{}{"reconnect": found, "name": p.Name})
}

// fireEvent broadcasts an event to all connected players via the BroadcastFn callback.
// Assumes lock is held by caller.
func (g *SequenceGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	} else {
		log.Printf("Warning: Game %s: BroadcastFn is nil, cannot broadcast event type %s.", g.ID, ev.Type)
	}
}

// fireEventToPlayer sends an event to a specific player via the BroadcastToPlayerFn callback.
// Checks if the player is connected before sending.
// Assumes lock is held by caller.
func (g *SequenceGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		log.Printf("Warning: Game %s: BroadcastToPlayerFn is nil, cannot send private event type %s to player %s.", g.ID, ev.Type, playerID)
		return
	}
	target := g.getPlayerByID(playerID)
	if target != nil && target.Connected {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// rejectAction tells a single player why their action was refused.
// Assumes lock is held by caller.
func (g *SequenceGame) rejectAction(playerID uuid.UUID, actionType string, reason error) {
	g.fireEventToPlayer(playerID, GameEvent{
		Type: EventActionRejected,
		Payload: map[string]interface{}{
			"actionType": actionType,
			"message":    reason.Error(),
		},
	})
}

// HandleDisconnect marks a player as disconnected and handles game state consequences.
// Assumes lock is held by caller.
func (g *SequenceGame) HandleDisconnect(playerID uuid.UUID) {
	log.Printf("Game %s: Handling disconnect for player %s.", g.ID, playerID)

	player := g.getPlayerByID(playerID)
	if player == nil {
		log.Printf("Game %s: Disconnected player %s not found.", g.ID, playerID)
		return
	}
	if !player.Connected {
		log.Printf("Game %s: Player %s already marked as disconnected.", g.ID, playerID)
		return
	}
	player.Connected = false
	player.Conn = nil
	g.logAction(playerID, "player_disconnect", nil)

	if !g.Started || g.GameOver {
		return
	}

	if g.countConnectedPlayers() == 0 {
		log.Printf("Game %s: No players left connected. Ending game.", g.ID)
		g.EndGame()
		return
	}

	if g.Settings.AutoplayDisconnected {
		player.Autoplay = true
	}
	g.fireEvent(GameEvent{
		Type:    EventPlayerConnection,
		User:    &EventUser{ID: playerID, Team: g.Engine.TeamOf(enginePlayerID(playerID))},
		Payload: map[string]interface{}{"connected": false, "autoplay": player.Autoplay},
	})
	g.broadcastSyncStateToAll()

	// A seat that just went to autoplay on its own turn should not wait out the full timer.
	if player.Autoplay && g.currentPlayerID() == playerID {
		g.scheduleNextTurnTimer()
	}
}

// HandleReconnect marks a player as connected and sends them the current game state.
// Assumes lock is held by caller.
func (g *SequenceGame) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) {
	log.Printf("Game %s: Handling reconnect for player %s.", g.ID, playerID)

	player := g.getPlayerByID(playerID)
	if player == nil {
		log.Printf("Game %s: Reconnecting player %s not found in game.", g.ID, playerID)
		g.logAction(playerID, "player_reconnect_fail", map[string]interface{}{"reason": "player not found"})
		if conn != nil {
			conn.Close(websocket.StatusPolicyViolation, "Game not found or you were removed.")
		}
		return
	}

	wasAutoplay := player.Autoplay
	player.Connected = true
	player.Conn = conn
	player.Autoplay = false
	g.lastSeen[playerID] = time.Now()
	g.logAction(playerID, "player_reconnect", map[string]interface{}{"name": player.Name})

	if !g.Started {
		return
	}

	g.sendSyncState(playerID)
	if !g.GameOver {
		g.fireEvent(GameEvent{
			Type:    EventPlayerConnection,
			User:    &EventUser{ID: playerID, Team: g.Engine.TeamOf(enginePlayerID(playerID))},
			Payload: map[string]interface{}{"connected": true, "autoplay": false},
		})
	}

	// Give the player a full turn back if the autoplay timer was running for them.
	if wasAutoplay && !g.GameOver && g.currentPlayerID() == playerID {
		log.Printf("Game %s: Player %s reconnected on their turn. Rescheduling timer.", g.ID, playerID)
		g.scheduleNextTurnTimer()
	}
}

// sendSyncState sends the current obfuscated game state to a single player.
// Assumes lock is held by caller.
func (g *SequenceGame) sendSyncState(playerID uuid.UUID) {
	if g.BroadcastToPlayerFn == nil {
		log.Println("Warning: BroadcastToPlayerFn is nil, cannot send sync state.")
		return
	}
	state := g.GetCurrentObfuscatedGameState(playerID)
	g.fireEventToPlayer(playerID, GameEvent{
		Type:  EventPrivateSyncState,
		State: &state,
	})
}

// broadcastSyncStateToAll sends the obfuscated game state to all currently connected players.
// Assumes lock is held by caller.
func (g *SequenceGame) broadcastSyncStateToAll() {
	for _, p := range g.Players {
		if p.Connected {
			g.sendSyncState(p.ID)
		}
	}
}

// countConnectedPlayers returns the number of players currently marked as connected.
// Assumes lock is held by caller.
func (g *SequenceGame) countConnectedPlayers() int {
	count := 0
	for _, p := range g.Players {
		if p.Connected {
			count++
		}
	}
	return count
}

// HandlePlayerAction validates and applies a client action.
// Assumes lock is held by the caller.
func (g *SequenceGame) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) error {
	// --- Basic State Checks ---
	if g.GameOver || !g.Started {
		log.Printf("Game %s: Action %s from %s ignored (game not running).", g.ID, action.ActionType, playerID)
		g.rejectAction(playerID, action.ActionType, engine.ErrGameNotPlaying)
		return engine.ErrGameNotPlaying
	}

	// --- Player Validation ---
	player := g.getPlayerByID(playerID)
	if player == nil {
		log.Printf("Game %s: Action %s from unknown player %s ignored.", g.ID, action.ActionType, playerID)
		return ErrPlayerNotInGame
	}
	if !player.Connected {
		log.Printf("Game %s: Action %s from disconnected player %s ignored.", g.ID, action.ActionType, playerID)
		return ErrPlayerOffline
	}

	// --- Turn Validation ---
	if g.currentPlayerID() != playerID {
		log.Printf("Game %s: Action %s from %s ignored (not their turn).", g.ID, action.ActionType, playerID)
		g.rejectAction(playerID, action.ActionType, engine.ErrNotYourTurn)
		return engine.ErrNotYourTurn
	}

	g.lastSeen[playerID] = time.Now()

	ea, err := toEngineAction(playerID, action)
	if err != nil {
		log.Printf("Game %s: Action %s from %s rejected: %v", g.ID, action.ActionType, playerID, err)
		g.rejectAction(playerID, action.ActionType, err)
		return err
	}
	return g.applyEngineAction(playerID, ea)
}

// toEngineAction decodes the wire payload into an engine action.
func toEngineAction(playerID uuid.UUID, action models.GameAction) (engine.GameAction, error) {
	ea := engine.GameAction{
		Type:     engine.ActionType(action.ActionType),
		PlayerID: enginePlayerID(playerID),
	}
	switch ea.Type {
	case engine.ActionPassTurn:
		return ea, nil
	case engine.ActionPlayCard, engine.ActionRemoveChip, engine.ActionDiscardDeadCard:
	default:
		return ea, fmt.Errorf("%w: %q", engine.ErrUnknownAction, action.ActionType)
	}

	cardID, _ := action.Payload["cardId"].(string)
	if cardID == "" {
		return ea, engine.ErrCardRequired
	}
	ea.Card = &engine.Card{ID: cardID}

	if ea.Type == engine.ActionDiscardDeadCard {
		return ea, nil
	}
	row, rowOK := payloadInt(action.Payload, "row")
	col, colOK := payloadInt(action.Payload, "col")
	if !rowOK || !colOK {
		return ea, engine.ErrPositionRequired
	}
	ea.Position = &engine.Position{Row: row, Col: col}
	return ea, nil
}

// payloadInt reads an integral JSON number.
func payloadInt(payload map[string]interface{}, key string) (int, bool) {
	switch v := payload[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// ValidTargets lists the cells the given card in the player's hand may target.
// Assumes lock is held by caller.
func (g *SequenceGame) ValidTargets(playerID uuid.UUID, cardID string) []engine.Position {
	if !g.Started || g.Engine == nil {
		return nil
	}
	return engine.ValidTargets(g.Engine, enginePlayerID(playerID), cardID, nil)
}

// EndGame finalizes the game, broadcasts results and triggers the OnGameEnd callback.
// Assumes lock is held by caller.
func (g *SequenceGame) EndGame() {
	if g.GameOver {
		log.Printf("Game %s: EndGame called, but game is already over.", g.ID)
		return
	}
	g.GameOver = true
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}

	var winner engine.TeamID
	reason := "abandoned"
	if g.Engine != nil && g.Engine.IsTerminal() {
		winner = g.Engine.Winner
		reason = "sequences"
	}
	counts := g.sequenceCounts()

	g.logAction(uuid.Nil, string(EventGameEnd), map[string]interface{}{
		"winner":    winner,
		"sequences": counts,
		"reason":    reason,
	})
	g.persistFinalGameState(winner, counts)

	var winners []uuid.UUID
	if winner != "" {
		for _, t := range g.Engine.Teams {
			if t.ID != winner {
				continue
			}
			for _, pid := range t.PlayerIDs {
				winners = append(winners, servicePlayerID(pid))
			}
		}
	}
	g.fireEvent(GameEvent{
		Type: EventGameEnd,
		Payload: map[string]interface{}{
			"winner":    winner,
			"winners":   winners,
			"sequences": counts,
			"reason":    reason,
		},
	})
	g.broadcastSyncStateToAll()

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.RoomID, winner, counts)
	}
	log.Printf("Game %s: Ended (%s). Winner: %q. Sequences: %v", g.ID, reason, winner, counts)
}

// sequenceCounts returns the number of completed sequences per team.
// Assumes lock is held by caller.
func (g *SequenceGame) sequenceCounts() map[engine.TeamID]int {
	counts := make(map[engine.TeamID]int)
	if g.Engine == nil {
		return counts
	}
	for _, t := range g.Engine.Teams {
		counts[t.ID] = engine.SequenceCount(g.Engine.Sequences, t.ID)
	}
	return counts
}

// persistFinalGameState stores the outcome and final board.
// Assumes lock is held by caller.
func (g *SequenceGame) persistFinalGameState(winner engine.TeamID, counts map[engine.TeamID]int) {
	if database.DB == nil || g.Engine == nil {
		return
	}
	snapshot := map[string]interface{}{
		"board":      g.Engine.Board,
		"sequences":  g.Engine.Sequences,
		"counts":     counts,
		"turnNumber": g.Engine.TurnNumber,
	}
	total := len(g.Engine.Sequences)
	gameID := g.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreFinalGameState(ctx, gameID, string(winner), total, snapshot); err != nil {
			log.Printf("Error: Game %s: %v", gameID, err)
		}
	}()
}

// getPlayerByID finds a player struct by ID within the game's Players slice.
// Returns the player pointer or nil if not found.
// Assumes lock is held by caller.
func (g *SequenceGame) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// currentPlayerID returns the service ID of the player to act.
// Assumes lock is held by caller.
func (g *SequenceGame) currentPlayerID() uuid.UUID {
	if g.Engine == nil {
		return uuid.Nil
	}
	return servicePlayerID(g.Engine.CurrentPlayer)
}

// logAction sends game action details to the action log via Redis.
// Increments the internal action index for ordering.
// Assumes lock is held by caller.
func (g *SequenceGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		RoomID:        g.RoomID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if g.Engine != nil {
		record.StateHash = g.Engine.Hash()
	}

	log.WithFields(log.Fields{
		"game":   g.ID,
		"index":  record.ActionIndex,
		"action": actionType,
	}).Debug("game action")

	if cache.Rdb == nil {
		return
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.Printf("Error: Game %s: Failed publishing action %d ('%s') to Redis: %v", rec.GameID, rec.ActionIndex, rec.ActionType, err)
		}
	}(record)
}

// saveSnapshot stores the current engine state in Redis.
// Assumes lock is held by caller.
func (g *SequenceGame) saveSnapshot() {
	if cache.Rdb == nil || g.Engine == nil {
		return
	}
	state := g.Engine // States are never mutated after ApplyAction returns them.
	roomID, ttl := g.RoomID, g.SnapshotTTL
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.SaveSnapshot(ctx, roomID, state, ttl); err != nil {
			log.Printf("Error: Room %s: Failed saving snapshot: %v", roomID, err)
		}
	}()
}
