// Package agent implements move-choosing policies on top of the engine's
// move enumerator. They drive simulated games and stand in for players who
// have dropped out of a room.
package agent

import (
	"math/rand/v2"

	"github.com/i-akshat-jain/sequence-game/engine"
)

// Policy picks the next action for a player. The returned action is always
// legal for the given state when the player is the current player.
type Policy interface {
	Choose(g *engine.GameState, id engine.PlayerID) engine.GameAction
}

// Random plays a uniformly random legal move.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a seeded random policy.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) Choose(g *engine.GameState, id engine.PlayerID) engine.GameAction {
	if a, ok := deadCardAction(g, id); ok {
		return a
	}
	moves := engine.GetPossibleMoves(g, id, nil)
	if len(moves) == 0 {
		return passAction(id)
	}
	return moveAction(id, moves[r.rng.IntN(len(moves))])
}

// Greedy plays the move that most lengthens its own lines, preferring moves
// that complete a sequence and removals that break the longest opposing line.
type Greedy struct{}

func (Greedy) Choose(g *engine.GameState, id engine.PlayerID) engine.GameAction {
	if a, ok := deadCardAction(g, id); ok {
		return a
	}
	team := g.TeamOf(id)
	moves := engine.GetPossibleMoves(g, id, nil)
	if len(moves) == 0 {
		return passAction(id)
	}
	best, bestScore := 0, -1
	for i, m := range moves {
		s := Score(g, team, m)
		// Save wild jacks for completing lines.
		if m.Card.IsWild() && s < engine.SequenceLength {
			s -= 2
		}
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return moveAction(id, moves[best])
}

// Score rates a move for team: for a placement, the longest line of team's
// chips through the cell afterwards (with a bonus at sequence length); for a
// removal, the longest opposing line the chip belonged to.
func Score(g *engine.GameState, team engine.TeamID, m engine.Move) int {
	if m.Removal {
		chip := g.Board.At(m.Position)
		if chip == nil {
			return 0
		}
		return longestLine(g, chip.Team, m.Position)
	}
	n := longestLine(g, team, m.Position)
	if n >= engine.SequenceLength {
		n += 10
	}
	return n
}

var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// longestLine counts the longest run of team's chips through p, treating p
// itself as held by team.
func longestLine(g *engine.GameState, team engine.TeamID, p engine.Position) int {
	held := func(q engine.Position) bool {
		if !q.Valid() {
			return false
		}
		if g.Rules.FreeCornersCount && q.IsCorner() {
			return true
		}
		c := g.Board.At(q)
		return c != nil && c.Team == team
	}
	best := 1
	for _, d := range directions {
		n := 1
		for q := (engine.Position{Row: p.Row + d[0], Col: p.Col + d[1]}); held(q); q = (engine.Position{Row: q.Row + d[0], Col: q.Col + d[1]}) {
			n++
		}
		for q := (engine.Position{Row: p.Row - d[0], Col: p.Col - d[1]}); held(q); q = (engine.Position{Row: q.Row - d[0], Col: q.Col - d[1]}) {
			n++
		}
		if n > best {
			best = n
		}
	}
	return best
}

func deadCardAction(g *engine.GameState, id engine.PlayerID) (engine.GameAction, bool) {
	if dead := engine.HandleDeadCards(g, id, nil); len(dead) > 0 {
		return dead[0], true
	}
	return engine.GameAction{}, false
}

func passAction(id engine.PlayerID) engine.GameAction {
	return engine.GameAction{Type: engine.ActionPassTurn, PlayerID: id}
}

func moveAction(id engine.PlayerID, m engine.Move) engine.GameAction {
	card, at := m.Card, m.Position
	if m.Removal {
		return engine.GameAction{Type: engine.ActionRemoveChip, PlayerID: id, Card: &card, Position: &at}
	}
	return engine.GameAction{Type: engine.ActionPlayCard, PlayerID: id, Card: &card, Position: &at}
}
