package engine

import (
	"errors"
	"fmt"
)

var (
	ErrGameNotPlaying   = errors.New("game is not in progress")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrNotYourTurn      = errors.New("not this player's turn")
	ErrCardRequired     = errors.New("action requires a card")
	ErrCardNotInHand    = errors.New("card not in hand")
	ErrPositionRequired = errors.New("action requires a position")
	ErrNotDeadCard      = errors.New("card is not dead")
	ErrUnknownAction    = errors.New("unknown action type")
)

// ApplyAction validates action against state and returns the resulting
// state. The input is never modified: on rejection it is returned as is,
// together with the reason.
func ApplyAction(state *GameState, action GameAction) (*GameState, error) {
	if state == nil {
		return nil, ErrGameNotPlaying
	}
	next := state.Clone()
	if err := next.apply(action); err != nil {
		return state, err
	}
	return next, nil
}

// ApplyGameAction is ApplyAction without the rejection reason. An illegal
// action returns the unchanged input state.
func ApplyGameAction(state *GameState, action GameAction) *GameState {
	next, _ := ApplyAction(state, action)
	return next
}

// apply mutates g in place. Callers must pass a clone.
func (g *GameState) apply(a GameAction) error {
	if g.Phase != PhasePlaying {
		return fmt.Errorf("%w: phase %s", ErrGameNotPlaying, g.Phase)
	}
	if g.Layout == nil {
		return ErrLayoutRequired
	}
	p := g.Player(a.PlayerID)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, a.PlayerID)
	}
	if a.PlayerID != g.CurrentPlayer {
		return fmt.Errorf("%w: %s acted, %s to play", ErrNotYourTurn, a.PlayerID, g.CurrentPlayer)
	}

	switch a.Type {
	case ActionPlayCard:
		return g.playCard(p, a)
	case ActionRemoveChip:
		return g.removeChip(p, a)
	case ActionPassTurn:
		g.advanceTurn()
		return nil
	case ActionDiscardDeadCard:
		return g.discardDeadCard(p, a)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}

// cardFromHand locates the action's card in the player's hand by id. The
// hand's copy is authoritative; the client's suit and rank are ignored.
func cardFromHand(p *Player, a GameAction) (int, Card, error) {
	if a.Card == nil {
		return -1, Card{}, ErrCardRequired
	}
	idx := p.handIndex(a.Card.ID)
	if idx < 0 {
		return -1, Card{}, fmt.Errorf("%w: %s", ErrCardNotInHand, a.Card.ID)
	}
	return idx, p.Hand[idx], nil
}

func takeFromHand(p *Player, idx int) Card {
	c := p.Hand[idx]
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return c
}

// playCard places a chip, or removes one when the card is a one-eyed jack.
func (g *GameState) playCard(p *Player, a GameAction) error {
	idx, card, err := cardFromHand(p, a)
	if err != nil {
		return err
	}
	if a.Position == nil {
		return ErrPositionRequired
	}
	pos := *a.Position
	target, err := ResolveMove(card, pos, g.Layout, &g.Board, g.Sequences, p.Team)
	if err != nil {
		return err
	}
	if target != nil {
		g.completeRemoval(p, idx, target)
		return nil
	}

	takeFromHand(p, idx)
	g.Board[pos.Row][pos.Col] = &Chip{
		ID:       fmt.Sprintf("chip-%d-%d-%d", pos.Row, pos.Col, g.TurnNumber),
		PlayerID: p.ID,
		Team:     p.Team,
		Position: pos,
		Card:     card,
	}
	if found := DetectSequences(&g.Board, pos, p.Team, g.Sequences, g.Rules); len(found) > 0 {
		g.Sequences = append(g.Sequences, found...)
	}

	if winner, ok := CheckWinCondition(g); ok {
		g.Winner = winner
		g.Phase = PhaseFinished
		return nil
	}
	g.draw(p)
	g.advanceTurn()
	return nil
}

// removeChip requires a one-eyed jack. The target comes from TargetChip
// when given, else from Position.
func (g *GameState) removeChip(p *Player, a GameAction) error {
	idx, card, err := cardFromHand(p, a)
	if err != nil {
		return err
	}
	if !card.IsRemoval() {
		return fmt.Errorf("%w: %s", ErrNotRemoval, card)
	}
	var pos Position
	switch {
	case a.TargetChip != nil:
		pos = a.TargetChip.Position
	case a.Position != nil:
		pos = *a.Position
	default:
		return ErrPositionRequired
	}
	target, err := ResolveMove(card, pos, g.Layout, &g.Board, g.Sequences, p.Team)
	if err != nil {
		return err
	}
	g.completeRemoval(p, idx, target)
	return nil
}

// completeRemoval discards the jack to the player's pile and the cleared
// chip's card to the shared pile.
func (g *GameState) completeRemoval(p *Player, idx int, target *Chip) {
	jack := takeFromHand(p, idx)
	p.DiscardPile = append(p.DiscardPile, jack)
	g.DiscardPile = append(g.DiscardPile, target.Card)
	g.Board[target.Position.Row][target.Position.Col] = nil
	g.draw(p)
	g.advanceTurn()
}

// discardDeadCard swaps a dead card for a fresh one. The turn does not pass.
func (g *GameState) discardDeadCard(p *Player, a GameAction) error {
	idx, card, err := cardFromHand(p, a)
	if err != nil {
		return err
	}
	if !IsDeadCard(card, g.Layout, &g.Board) {
		return fmt.Errorf("%w: %s", ErrNotDeadCard, card)
	}
	p.DiscardPile = append(p.DiscardPile, takeFromHand(p, idx))
	g.draw(p)
	return nil
}

// draw gives p the top deck card, reshuffling the discard piles into a new
// deck when it is empty. With no cards anywhere the hand simply stays short.
func (g *GameState) draw(p *Player) {
	if len(g.Deck) == 0 {
		g.reshuffle()
	}
	if len(g.Deck) == 0 {
		return
	}
	top := g.Deck[len(g.Deck)-1]
	g.Deck = g.Deck[:len(g.Deck)-1]
	p.Hand = append(p.Hand, top)
}

// reshuffle gathers the shared and personal discard piles into the deck.
func (g *GameState) reshuffle() {
	cards := append([]Card{}, g.DiscardPile...)
	g.DiscardPile = []Card{}
	for i := range g.Players {
		cards = append(cards, g.Players[i].DiscardPile...)
		g.Players[i].DiscardPile = []Card{}
	}
	if len(cards) == 0 {
		return
	}
	shuffleInPlace(cards, g.nextStream())
	g.Deck = cards
}

// advanceTurn activates the next player in turn order.
func (g *GameState) advanceTurn() {
	if g.IsTerminal() {
		return
	}
	g.TurnNumber++
	g.setActive(g.NextPlayer(g.CurrentPlayer))
}
