// internal/game/game_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/i-akshat-jain/sequence-game/engine"
	"github.com/i-akshat-jain/sequence-game/service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster captures game events for testing assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

// newMockBroadcaster creates an instance of the mock broadcaster.
func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[uuid.UUID][]GameEvent),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = []GameEvent{}
	mb.playerEvents = make(map[uuid.UUID][]GameEvent)
}

func (mb *mockBroadcaster) findEventByType(eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == eventType {
			return &mb.allEvents[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) eventsByType(eventType GameEventType) []GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []GameEvent
	for _, ev := range mb.allEvents {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) findPlayerEventByType(playerID uuid.UUID, eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

// setupTestGame initializes a SequenceGame with mock players and broadcasters and starts it.
// The seed is fixed so deals are reproducible.
func setupTestGame(t *testing.T, numPlayers int, settings *models.RoomSettings) (*SequenceGame, []*models.Player, *mockBroadcaster) {
	t.Helper()
	s := models.DefaultRoomSettings()
	s.TurnTimeLimit = 0
	if settings != nil {
		s = *settings
	}

	g := NewSequenceGame("room1", s)
	g.Seed = engine.SeedFromUint64(7)
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	players := make([]*models.Player, numPlayers)
	for i := 0; i < numPlayers; i++ {
		players[i] = &models.Player{
			ID:        uuid.New(),
			Name:      "Player" + string(rune('A'+i)),
			Connected: true,
			IsAdmin:   i == 0,
		}
		g.AddPlayer(players[i])
	}

	require.NoError(t, g.StartGame())
	require.True(t, g.Started, "Game should be marked as started")
	mb.clear() // Clear events generated during setup.

	return g, players, mb
}

// currentTurnPlayer returns the player whose turn it currently is.
func currentTurnPlayer(g *SequenceGame) *models.Player {
	return g.getPlayerByID(g.currentPlayerID())
}

// pickPlacement returns a placement with a non-jack card for the current player.
func pickPlacement(t *testing.T, g *SequenceGame) engine.Move {
	t.Helper()
	for _, m := range engine.GetPossibleMoves(g.Engine, g.Engine.CurrentPlayer, nil) {
		if !m.Card.IsJack() {
			return m
		}
	}
	t.Fatal("current player has no regular placement")
	return engine.Move{}
}

func playAction(m engine.Move) models.GameAction {
	return models.GameAction{
		ActionType: string(engine.ActionPlayCard),
		Payload: map[string]interface{}{
			"cardId": m.Card.ID,
			"row":    float64(m.Position.Row),
			"col":    float64(m.Position.Col),
		},
	}
}

// TestStartGameAnnounces verifies start events, private hands and the first turn.
func TestStartGameAnnounces(t *testing.T) {
	g := NewSequenceGame("room1", models.DefaultRoomSettings())
	g.Settings.TurnTimeLimit = 0
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		p := &models.Player{ID: uuid.New(), Name: "P", Connected: true}
		ids = append(ids, p.ID)
		g.AddPlayer(p)
	}

	require.NoError(t, g.StartGame())
	assert.ErrorIs(t, g.StartGame(), ErrGameStarted, "second start should be refused")

	started := mb.findEventByType(EventGameStarted)
	require.NotNil(t, started)
	assert.Equal(t, 2, started.Payload["requiredSequences"])
	assert.NotNil(t, started.Payload["boardLayout"])

	turn := mb.findEventByType(EventPlayerTurn)
	require.NotNil(t, turn)
	assert.Equal(t, ids[0], turn.User.ID, "first seat should open")

	for _, id := range ids {
		syncEv := mb.findPlayerEventByType(id, EventPrivateSyncState)
		require.NotNil(t, syncEv, "every player should get a private sync")
		for _, ps := range syncEv.State.Players {
			if ps.PlayerID == id {
				assert.Len(t, ps.Hand, 6)
			} else {
				assert.Empty(t, ps.Hand, "other hands must stay hidden")
				assert.Equal(t, 6, ps.HandSize)
			}
		}
	}
}

// TestStartGameUnsupportedCount verifies a five-player table cannot start.
func TestStartGameUnsupportedCount(t *testing.T) {
	g := NewSequenceGame("room1", models.DefaultRoomSettings())
	for i := 0; i < 5; i++ {
		g.AddPlayer(&models.Player{ID: uuid.New(), Name: "P", Connected: true})
	}
	err := g.StartGame()
	assert.ErrorIs(t, err, engine.ErrUnsupportedPlayerCount)
	assert.False(t, g.Started)
}

// TestPlayCardFlow verifies a regular placement places a chip, draws privately and advances.
func TestPlayCardFlow(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, nil)
	actor := currentTurnPlayer(g)
	m := pickPlacement(t, g)
	handBefore := len(g.Engine.Player(g.Engine.CurrentPlayer).Hand)

	require.NoError(t, g.HandlePlayerAction(actor.ID, playAction(m)))

	chip := g.Engine.Board.At(m.Position)
	require.NotNil(t, chip, "chip should be on the board")
	assert.Equal(t, m.Card.ID, chip.Card.ID)
	assert.Equal(t, handBefore, len(g.Engine.Player(enginePlayerID(actor.ID)).Hand), "hand refilled")

	placed := mb.findEventByType(EventChipPlaced)
	require.NotNil(t, placed)
	assert.Equal(t, actor.ID, placed.User.ID)
	assert.Equal(t, m.Position, *placed.Position)
	assert.Equal(t, m.Card.ID, placed.Card.ID)

	drawn := mb.findPlayerEventByType(actor.ID, EventPrivateCardDrawn)
	require.NotNil(t, drawn, "actor should privately see the drawn card")
	other := players[0]
	if other.ID == actor.ID {
		other = players[1]
	}
	assert.Nil(t, mb.findPlayerEventByType(other.ID, EventPrivateCardDrawn), "drawn card must not leak")

	assert.Equal(t, other.ID, currentTurnPlayer(g).ID, "turn should pass to the other player")
	assert.Equal(t, 1, g.TurnID)
	turn := mb.findEventByType(EventPlayerTurn)
	require.NotNil(t, turn)
	assert.Equal(t, other.ID, turn.User.ID)
}

// TestActionNotYourTurn verifies out-of-turn actions are rejected privately.
func TestActionNotYourTurn(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, nil)
	waiting := players[0]
	if waiting.ID == currentTurnPlayer(g).ID {
		waiting = players[1]
	}
	before := g.Engine

	err := g.HandlePlayerAction(waiting.ID, models.GameAction{ActionType: string(engine.ActionPassTurn)})
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
	assert.Same(t, before, g.Engine, "state must not change")

	rejected := mb.findPlayerEventByType(waiting.ID, EventActionRejected)
	require.NotNil(t, rejected)
	assert.Equal(t, "pass_turn", rejected.Payload["actionType"])
}

// TestIllegalPlacementRejected verifies the engine's verdict reaches the player.
func TestIllegalPlacementRejected(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, nil)
	actor := currentTurnPlayer(g)
	m := pickPlacement(t, g)
	before := g.Engine

	a := playAction(m)
	a.Payload["row"], a.Payload["col"] = float64(0), float64(0) // Free corner.
	err := g.HandlePlayerAction(actor.ID, a)
	assert.ErrorIs(t, err, engine.ErrFreeSpace)
	assert.Same(t, before, g.Engine)
	assert.NotNil(t, mb.findPlayerEventByType(actor.ID, EventActionRejected))
	assert.Nil(t, mb.findEventByType(EventChipPlaced))
}

// TestMalformedActions verifies payload decoding errors.
func TestMalformedActions(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, nil)
	actor := currentTurnPlayer(g)

	cases := []struct {
		name   string
		action models.GameAction
		want   error
	}{
		{"unknown type", models.GameAction{ActionType: "action_snap"}, engine.ErrUnknownAction},
		{"missing card", models.GameAction{ActionType: "play_card", Payload: map[string]interface{}{"row": 1.0, "col": 1.0}}, engine.ErrCardRequired},
		{"missing position", models.GameAction{ActionType: "play_card", Payload: map[string]interface{}{"cardId": "x"}}, engine.ErrPositionRequired},
		{"fractional row", models.GameAction{ActionType: "remove_chip", Payload: map[string]interface{}{"cardId": "x", "row": 1.5, "col": 1.0}}, engine.ErrPositionRequired},
		{"card not held", models.GameAction{ActionType: "discard_dead_card", Payload: map[string]interface{}{"cardId": "card-9-hearts-A"}}, engine.ErrCardNotInHand},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, g.HandlePlayerAction(actor.ID, tc.action), tc.want)
		})
	}
	assert.Equal(t, actor.ID, currentTurnPlayer(g).ID, "turn must not move")
}

// TestPassTurn verifies pass_turn advances without card motion.
func TestPassTurn(t *testing.T) {
	g, _, mb := setupTestGame(t, 3, nil)
	actor := currentTurnPlayer(g)
	hand := append([]engine.Card{}, g.Engine.Player(enginePlayerID(actor.ID)).Hand...)

	require.NoError(t, g.HandlePlayerAction(actor.ID, models.GameAction{ActionType: "pass_turn"}))

	passed := mb.findEventByType(EventTurnPassed)
	require.NotNil(t, passed)
	assert.Equal(t, actor.ID, passed.User.ID)
	assert.Equal(t, hand, g.Engine.Player(enginePlayerID(actor.ID)).Hand)
	assert.NotEqual(t, actor.ID, currentTurnPlayer(g).ID)
	assert.Equal(t, 1, g.TurnID)
}

// TestTurnTimerPasses verifies an expired turn timer synthesizes a pass.
func TestTurnTimerPasses(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, nil)
	first := currentTurnPlayer(g).ID

	g.Mu.Lock()
	g.TurnDuration = 50 * time.Millisecond
	g.scheduleNextTurnTimer()
	g.Mu.Unlock()

	require.Eventually(t, func() bool {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.TurnID < 1 {
			return false
		}
		g.TurnDuration = 0 // Stop the cycle of timed passes.
		return true
	}, 2*time.Second, 10*time.Millisecond, "timer should have passed the turn")

	passes := mb.eventsByType(EventTurnPassed)
	require.NotEmpty(t, passes)
	assert.Equal(t, first, passes[0].User.ID)
}

// TestStaleTimerIgnored verifies a timer from an earlier turn does nothing.
func TestStaleTimerIgnored(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, nil)
	actor := currentTurnPlayer(g)

	g.Mu.Lock()
	g.TurnDuration = 80 * time.Millisecond
	g.scheduleNextTurnTimer()
	g.TurnDuration = 0
	require.NoError(t, g.HandlePlayerAction(actor.ID, playAction(pickPlacement(t, g))))
	g.Mu.Unlock()

	time.Sleep(200 * time.Millisecond)
	g.Mu.Lock()
	defer g.Mu.Unlock()
	assert.Equal(t, 1, g.TurnID, "stale timer must not pass the new turn")
}

// TestAutoplayDisconnectedSeat verifies the server plays for a dropped player when enabled.
func TestAutoplayDisconnectedSeat(t *testing.T) {
	prev := autoplayDelay
	autoplayDelay = 10 * time.Millisecond
	defer func() { autoplayDelay = prev }()

	s := models.DefaultRoomSettings()
	s.TurnTimeLimit = 0
	s.AutoplayDisconnected = true
	g, _, mb := setupTestGame(t, 2, &s)
	dropped := currentTurnPlayer(g)

	g.Mu.Lock()
	g.HandleDisconnect(dropped.ID)
	assert.True(t, dropped.Autoplay)
	g.Mu.Unlock()

	require.Eventually(t, func() bool {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		return g.TurnID >= 1
	}, 2*time.Second, 10*time.Millisecond, "autoplay should have taken the turn")

	g.Mu.Lock()
	defer g.Mu.Unlock()
	assert.Equal(t, 1, g.Engine.Board.ChipCount(), "greedy should place a chip on an empty board")
	assert.NotNil(t, mb.findEventByType(EventChipPlaced))
	assert.False(t, g.GameOver)

	g.HandleReconnect(dropped.ID, nil)
	assert.False(t, dropped.Autoplay, "reconnect should end autoplay")
	assert.NotNil(t, mb.findPlayerEventByType(dropped.ID, EventPrivateSyncState))
}

// TestAutoplayDiscardStillEndsTurn verifies an autoplayed seat holding a dead
// card discards it and still finishes the turn.
func TestAutoplayDiscardStillEndsTurn(t *testing.T) {
	prev := autoplayDelay
	autoplayDelay = 10 * time.Millisecond
	defer func() { autoplayDelay = prev }()

	s := models.DefaultRoomSettings()
	s.TurnTimeLimit = 0
	s.AutoplayDisconnected = true
	g, _, mb := setupTestGame(t, 2, &s)
	dropped := currentTurnPlayer(g)

	g.Mu.Lock()
	pid := g.Engine.CurrentPlayer
	var dead engine.Card
	found := false
	for _, c := range g.Engine.Player(pid).Hand {
		if !c.IsJack() {
			dead, found = c, true
			break
		}
	}
	require.True(t, found, "current player should hold a regular card")
	for _, at := range g.Engine.Layout.PositionsOf(dead.Face()) {
		g.Engine.Board[at.Row][at.Col] = &engine.Chip{Team: "team2", Position: at}
	}
	g.HandleDisconnect(dropped.ID)
	require.True(t, dropped.Autoplay)
	g.Mu.Unlock()

	require.Eventually(t, func() bool {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		return g.TurnID >= 1
	}, 2*time.Second, 10*time.Millisecond, "autoplay should finish the turn after discarding")

	g.Mu.Lock()
	defer g.Mu.Unlock()
	ev := mb.findEventByType(EventDeadCardDiscarded)
	require.NotNil(t, ev)
	assert.Equal(t, dropped.ID, ev.User.ID)
	assert.NotEqual(t, dropped.ID, g.currentPlayerID())
}

// TestDisconnectWithoutAutoplay verifies a dropped seat just waits for its timer.
func TestDisconnectWithoutAutoplay(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, nil)
	dropped := currentTurnPlayer(g)

	g.HandleDisconnect(dropped.ID)
	assert.False(t, dropped.Autoplay)
	assert.False(t, g.GameOver)
	ev := mb.findEventByType(EventPlayerConnection)
	require.NotNil(t, ev)
	assert.Equal(t, false, ev.Payload["connected"])

	err := g.HandlePlayerAction(dropped.ID, models.GameAction{ActionType: "pass_turn"})
	assert.ErrorIs(t, err, ErrPlayerOffline)
}

// TestAllDisconnectedEndsGame verifies an empty table is abandoned.
func TestAllDisconnectedEndsGame(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, nil)
	var endedRoom string
	var endedWinner engine.TeamID = "unset"
	g.OnGameEnd = func(roomID string, winner engine.TeamID, _ map[engine.TeamID]int) {
		endedRoom, endedWinner = roomID, winner
	}

	g.HandleDisconnect(players[0].ID)
	assert.False(t, g.GameOver)
	g.HandleDisconnect(players[1].ID)
	require.True(t, g.GameOver)

	end := mb.findEventByType(EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, "abandoned", end.Payload["reason"])
	assert.Equal(t, "room1", endedRoom)
	assert.Equal(t, engine.TeamID(""), endedWinner)
}

// TestSequenceWinEndsGame verifies completing the last needed sequence ends the game.
func TestSequenceWinEndsGame(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, nil)
	actor := currentTurnPlayer(g)
	pid := g.Engine.CurrentPlayer
	team := g.Engine.TeamOf(pid)
	g.Engine.RequiredSequences = 1

	// Find a card whose cell has four open cells to its left, and fill them.
	var move engine.Move
	found := false
	for _, m := range engine.GetPossibleMoves(g.Engine, pid, nil) {
		if m.Card.IsJack() || m.Position.Col < 4 {
			continue
		}
		ok := true
		for i := 1; i <= 4; i++ {
			if (engine.Position{Row: m.Position.Row, Col: m.Position.Col - i}).IsCorner() {
				ok = false
			}
		}
		if ok {
			move, found = m, true
			break
		}
	}
	if !found {
		t.Skip("no suitable placement in the dealt hand")
	}
	for i := 1; i <= 4; i++ {
		at := engine.Position{Row: move.Position.Row, Col: move.Position.Col - i}
		g.Engine.Board[at.Row][at.Col] = &engine.Chip{PlayerID: pid, Team: team, Position: at}
	}

	var endedWinner engine.TeamID
	g.OnGameEnd = func(_ string, winner engine.TeamID, counts map[engine.TeamID]int) {
		endedWinner = winner
		assert.Equal(t, 1, counts[team])
	}
	require.NoError(t, g.HandlePlayerAction(actor.ID, playAction(move)))

	assert.True(t, g.GameOver)
	assert.Equal(t, team, endedWinner)
	formed := mb.findEventByType(EventSequenceFormed)
	require.NotNil(t, formed)
	assert.Equal(t, team, formed.Sequence.Team)
	end := mb.findEventByType(EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, team, end.Payload["winner"])
	assert.Contains(t, end.Payload["winners"], actor.ID)

	err := g.HandlePlayerAction(actor.ID, models.GameAction{ActionType: "pass_turn"})
	assert.ErrorIs(t, err, engine.ErrGameNotPlaying, "no actions after the game ends")
}

// TestDeadCardsDiscardedAtTurnStart verifies the next player's dead cards are swapped automatically.
func TestDeadCardsDiscardedAtTurnStart(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, nil)
	actor := currentTurnPlayer(g)
	next := g.Engine.NextPlayer(g.Engine.CurrentPlayer)

	var dead engine.Card
	found := false
	for _, c := range g.Engine.Player(next).Hand {
		if !c.IsJack() {
			dead, found = c, true
			break
		}
	}
	require.True(t, found, "next player should hold a regular card")
	for _, at := range g.Engine.Layout.PositionsOf(dead.Face()) {
		g.Engine.Board[at.Row][at.Col] = &engine.Chip{Team: "team1", Position: at}
	}

	require.NoError(t, g.HandlePlayerAction(actor.ID, models.GameAction{ActionType: "pass_turn"}))

	for _, c := range g.Engine.Player(next).Hand {
		assert.NotEqual(t, dead.ID, c.ID, "dead card should have been discarded")
	}
	assert.Empty(t, engine.GetDeadCards(g.Engine, next, nil))
	ev := mb.findEventByType(EventDeadCardDiscarded)
	require.NotNil(t, ev)
	assert.Equal(t, servicePlayerID(next), ev.User.ID)
	assert.Equal(t, servicePlayerID(next), g.currentPlayerID(), "discarding does not pass the turn")
}

// TestValidTargets verifies the select-card helper matches the engine.
func TestValidTargets(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, nil)
	actor := currentTurnPlayer(g)
	m := pickPlacement(t, g)

	targets := g.ValidTargets(actor.ID, m.Card.ID)
	assert.Contains(t, targets, m.Position)
	assert.Empty(t, g.ValidTargets(actor.ID, "card-3-hearts-A"), "unknown card has no targets")

	other := players[0]
	if other.ID == actor.ID {
		other = players[1]
	}
	assert.Empty(t, g.ValidTargets(other.ID, m.Card.ID), "card from another hand has no targets")
}

// TestObfuscatedStateBeforeStart verifies the lobby view of an unstarted game.
func TestObfuscatedStateBeforeStart(t *testing.T) {
	g := NewSequenceGame("room1", models.DefaultRoomSettings())
	p := &models.Player{ID: uuid.New(), Name: "Solo", Connected: true}
	g.AddPlayer(p)

	st := g.GetCurrentObfuscatedGameState(p.ID)
	assert.False(t, st.Started)
	assert.Equal(t, engine.PhaseSetup, st.Phase)
	require.Len(t, st.Players, 1)
	assert.Equal(t, "Solo", st.Players[0].Name)
	assert.Nil(t, st.Board)
}

// TestAddPlayerAfterStart verifies late joiners are turned away.
func TestAddPlayerAfterStart(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, nil)
	g.AddPlayer(&models.Player{ID: uuid.New(), Name: "Late", Connected: true})
	assert.Len(t, g.Players, 2)

	// Same ID is a reconnect, not a new seat.
	players[0].Connected = false
	g.AddPlayer(&models.Player{ID: players[0].ID, Name: players[0].Name})
	assert.Len(t, g.Players, 2)
	assert.True(t, players[0].Connected)
}
