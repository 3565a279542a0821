// internal/game/engine_adapter.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/i-akshat-jain/sequence-game/engine"
	log "github.com/sirupsen/logrus"
)

// applyEngineAction applies an action to the engine, emits events and moves the turn on.
// Returns any error from the engine; the state is unchanged in that case.
// Assumes lock is held by caller.
func (g *SequenceGame) applyEngineAction(actorID uuid.UUID, a engine.GameAction) error {
	prev := g.Engine
	next, err := engine.ApplyAction(prev, a)
	if err != nil {
		log.Printf("Game %s: Engine rejected %s from %s: %v", g.ID, a.Type, actorID, err)
		g.rejectAction(actorID, string(a.Type), err)
		return err
	}
	g.Engine = next

	g.emitEventsForAction(actorID, a, prev, next)
	g.saveSnapshot()

	if next.IsTerminal() {
		g.EndGame()
		return nil
	}
	if next.TurnNumber != prev.TurnNumber {
		g.onTurnAdvanced()
	}
	return nil
}

// emitEventsForAction diffs two engine states and sends the matching WebSocket events.
// Assumes lock is held by caller.
func (g *SequenceGame) emitEventsForAction(actorID uuid.UUID, a engine.GameAction, prev, next *engine.GameState) {
	user := &EventUser{ID: actorID, Team: next.TeamOf(a.PlayerID)}
	played := playedCard(prev, next, a.PlayerID)

	switch a.Type {
	case engine.ActionPassTurn:
		g.fireEvent(GameEvent{Type: EventTurnPassed, User: user, Payload: map[string]interface{}{"turn": g.TurnID}})
		g.logAction(actorID, string(EventTurnPassed), nil)

	case engine.ActionDiscardDeadCard:
		g.fireEvent(GameEvent{Type: EventDeadCardDiscarded, User: user, Card: played})
		g.logAction(actorID, string(EventDeadCardDiscarded), map[string]interface{}{"card": cardID(played)})

	case engine.ActionPlayCard, engine.ActionRemoveChip:
		var pos engine.Position
		switch {
		case a.TargetChip != nil:
			pos = a.TargetChip.Position
		case a.Position != nil:
			pos = *a.Position
		}
		before, after := prev.Board.At(pos), next.Board.At(pos)
		switch {
		case before != nil && after == nil:
			g.fireEvent(GameEvent{
				Type:     EventChipRemoved,
				User:     user,
				Card:     played,
				Position: &pos,
				Payload:  map[string]interface{}{"removedTeam": before.Team, "removedCard": before.Card},
			})
			g.logAction(actorID, string(EventChipRemoved), map[string]interface{}{"card": cardID(played), "row": pos.Row, "col": pos.Col})
		case after != nil:
			g.fireEvent(GameEvent{Type: EventChipPlaced, User: user, Card: played, Position: &pos})
			g.logAction(actorID, string(EventChipPlaced), map[string]interface{}{"card": cardID(played), "row": pos.Row, "col": pos.Col})
		}
	}

	for i := len(prev.Sequences); i < len(next.Sequences); i++ {
		seq := next.Sequences[i]
		g.fireEvent(GameEvent{
			Type:     EventSequenceFormed,
			User:     user,
			Sequence: &seq,
			Payload:  map[string]interface{}{"teamSequences": engine.SequenceCount(next.Sequences, seq.Team)},
		})
		g.logAction(actorID, string(EventSequenceFormed), map[string]interface{}{"sequence": seq.ID, "team": seq.Team})
	}

	if len(next.Deck) > len(prev.Deck) {
		g.fireEvent(GameEvent{Type: EventDeckReshuffled, Payload: map[string]interface{}{"deckSize": len(next.Deck)}})
		g.logAction(uuid.Nil, string(EventDeckReshuffled), map[string]interface{}{"deckSize": len(next.Deck)})
	}

	for _, c := range drawnCards(prev, next, a.PlayerID) {
		card := c
		g.fireEventToPlayer(actorID, GameEvent{Type: EventPrivateCardDrawn, Card: &card})
	}
}

// playedCard returns the card that left the player's hand between two states.
func playedCard(prev, next *engine.GameState, id engine.PlayerID) *engine.Card {
	before, after := prev.Player(id), next.Player(id)
	if before == nil || after == nil {
		return nil
	}
	kept := make(map[string]bool, len(after.Hand))
	for _, c := range after.Hand {
		kept[c.ID] = true
	}
	for _, c := range before.Hand {
		if !kept[c.ID] {
			card := c
			return &card
		}
	}
	return nil
}

// drawnCards returns the cards that entered the player's hand between two states.
func drawnCards(prev, next *engine.GameState, id engine.PlayerID) []engine.Card {
	before, after := prev.Player(id), next.Player(id)
	if before == nil || after == nil {
		return nil
	}
	had := make(map[string]bool, len(before.Hand))
	for _, c := range before.Hand {
		had[c.ID] = true
	}
	var out []engine.Card
	for _, c := range after.Hand {
		if !had[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func cardID(c *engine.Card) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// onTurnAdvanced is called after the engine's turn advances.
// Assumes lock is held by caller.
func (g *SequenceGame) onTurnAdvanced() {
	g.TurnID++
	if g.Engine.IsTerminal() || g.GameOver {
		return
	}
	g.beginTurn()
}

// beginTurn clears the new player's dead cards, announces the turn and arms the timer.
// Assumes lock is held by caller.
func (g *SequenceGame) beginTurn() {
	g.autoDiscardDeadCards()
	g.scheduleNextTurnTimer()
	g.broadcastPlayerTurn()
}

// autoDiscardDeadCards swaps every dead card in the current player's hand for a
// fresh one. A replacement can itself be dead, so it repeats until the hand is clean.
// Assumes lock is held by caller.
func (g *SequenceGame) autoDiscardDeadCards() {
	pid := g.Engine.CurrentPlayer
	actorID := servicePlayerID(pid)
	for i := 0; i < maxDeadDiscards; i++ {
		dead := engine.HandleDeadCards(g.Engine, pid, nil)
		if len(dead) == 0 {
			return
		}
		prev := g.Engine
		next, err := engine.ApplyAction(prev, dead[0])
		if err != nil {
			log.Printf("Game %s: Automatic dead-card discard failed for %s: %v", g.ID, pid, err)
			return
		}
		g.Engine = next
		log.Printf("Game %s: Discarded dead card %s for player %s.", g.ID, dead[0].Card.ID, actorID)
		g.emitEventsForAction(actorID, dead[0], prev, next)
	}
}

// scheduleNextTurnTimer arms the timer for the current player. Autoplayed seats
// move after a short delay instead of the full turn.
// Assumes lock is held by caller.
func (g *SequenceGame) scheduleNextTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	if g.GameOver || !g.Started || g.Engine.IsTerminal() {
		return
	}

	currentPlayerUUID := g.currentPlayerID()
	currentPlayer := g.getPlayerByID(currentPlayerUUID)
	if currentPlayer == nil {
		log.Printf("Game %s: Cannot schedule timer, acting player %s not found.", g.ID, currentPlayerUUID)
		return
	}

	delay := g.TurnDuration
	if currentPlayer.Autoplay {
		delay = autoplayDelay
	}
	if delay <= 0 {
		return
	}

	curTurnID := g.TurnID
	g.turnTimer = time.AfterFunc(delay, func() {
		go func(expectedTurnID int) {
			g.Mu.Lock()
			defer g.Mu.Unlock()

			if !g.GameOver && g.Started && g.TurnID == expectedTurnID {
				log.Printf("Game %s, Turn %d: Timer fired for player %s.", g.ID, g.TurnID, currentPlayerUUID)
				g.handleTimeout(currentPlayerUUID)
			}
		}(curTurnID)
	})
}

// broadcastPlayerTurn notifies all players of the current player's turn.
// Assumes lock is held by caller.
func (g *SequenceGame) broadcastPlayerTurn() {
	if g.GameOver || !g.Started || g.Engine.IsTerminal() {
		return
	}
	currentPlayerUUID := g.currentPlayerID()
	log.Printf("Game %s: Turn %d starting for player %s.", g.ID, g.TurnID, currentPlayerUUID)

	payload := map[string]interface{}{
		"turn":       g.TurnID,
		"turnNumber": g.Engine.TurnNumber,
	}
	if g.TurnDuration > 0 {
		payload["deadline"] = time.Now().Add(g.TurnDuration).UnixMilli()
	}
	g.fireEvent(GameEvent{
		Type:    EventPlayerTurn,
		User:    &EventUser{ID: currentPlayerUUID, Team: g.Engine.TeamOf(g.Engine.CurrentPlayer)},
		Payload: payload,
	})
	g.sendSyncState(currentPlayerUUID)
	g.logAction(currentPlayerUUID, string(EventPlayerTurn), map[string]interface{}{"turn": g.TurnID})
}

// handleTimeout ends a turn the player did not finish. Autoplayed seats get
// policy moves until the turn passes (dead-card discards keep it); everyone
// else passes.
// Assumes lock is held by caller.
func (g *SequenceGame) handleTimeout(playerID uuid.UUID) {
	pid := enginePlayerID(playerID)
	player := g.getPlayerByID(playerID)

	if player != nil && player.Autoplay && g.Autoplay != nil {
		turn := g.Engine.TurnNumber
		for i := 0; i <= maxDeadDiscards; i++ {
			a := g.Autoplay.Choose(g.Engine, pid)
			g.logAction(playerID, "player_autoplay", map[string]interface{}{"action": a.Type, "turn": g.TurnID})
			if err := g.applyEngineAction(playerID, a); err != nil {
				log.Printf("Game %s: Autoplay move for %s was rejected, passing instead.", g.ID, playerID)
				break
			}
			if g.GameOver || g.Engine.TurnNumber != turn {
				return
			}
		}
	} else {
		log.Printf("Game %s: Player %s timed out on turn %d.", g.ID, playerID, g.TurnID)
		g.logAction(playerID, "player_timeout", map[string]interface{}{"turn": g.TurnID})
	}

	g.applyEngineAction(playerID, engine.GameAction{Type: engine.ActionPassTurn, PlayerID: pid})
}
