package engine

// GetPossibleMoves lists every legal (card, cell) pair for playerID. A nil
// layout means the state's own layout.
func GetPossibleMoves(state *GameState, playerID PlayerID, layout *BoardLayout) []Move {
	p, layout := lookup(state, playerID, layout)
	if p == nil {
		return nil
	}
	var moves []Move
	for _, card := range p.Hand {
		for _, pos := range targetsFor(state, card, p.Team, layout) {
			moves = append(moves, Move{Card: card, Position: pos, Removal: card.IsRemoval()})
		}
	}
	return moves
}

// ValidTargets lists the cells the given card from playerID's hand may target.
func ValidTargets(state *GameState, playerID PlayerID, cardID string, layout *BoardLayout) []Position {
	p, layout := lookup(state, playerID, layout)
	if p == nil {
		return nil
	}
	idx := p.handIndex(cardID)
	if idx < 0 {
		return nil
	}
	return targetsFor(state, p.Hand[idx], p.Team, layout)
}

// GetDeadCards returns the cards in playerID's hand that can never be placed.
func GetDeadCards(state *GameState, playerID PlayerID, layout *BoardLayout) []Card {
	p, layout := lookup(state, playerID, layout)
	if p == nil {
		return nil
	}
	var dead []Card
	for _, c := range p.Hand {
		if IsDeadCard(c, layout, &state.Board) {
			dead = append(dead, c)
		}
	}
	return dead
}

// HandleDeadCards builds one discard_dead_card action per dead card, ready to
// be applied in order.
func HandleDeadCards(state *GameState, playerID PlayerID, layout *BoardLayout) []GameAction {
	var actions []GameAction
	for _, c := range GetDeadCards(state, playerID, layout) {
		card := c
		actions = append(actions, GameAction{
			Type:     ActionDiscardDeadCard,
			PlayerID: playerID,
			Card:     &card,
		})
	}
	return actions
}

func lookup(state *GameState, playerID PlayerID, layout *BoardLayout) (*Player, *BoardLayout) {
	if state == nil {
		return nil, nil
	}
	if layout == nil {
		layout = state.Layout
	}
	if layout == nil {
		return nil, nil
	}
	return state.Player(playerID), layout
}

func targetsFor(state *GameState, card Card, team TeamID, layout *BoardLayout) []Position {
	var out []Position
	switch {
	case card.IsWild() || card.IsRemoval():
		for r := 0; r < BoardSize; r++ {
			for c := 0; c < BoardSize; c++ {
				pos := Position{Row: r, Col: c}
				if CanPlay(card, pos, layout, &state.Board, state.Sequences, team) {
					out = append(out, pos)
				}
			}
		}
	default:
		for _, pos := range layout.PositionsOf(card.Face()) {
			if CanPlay(card, pos, layout, &state.Board, state.Sequences, team) {
				out = append(out, pos)
			}
		}
	}
	return out
}
