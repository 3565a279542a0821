package engine

import "testing"

// newStartedGame returns a playing game on the canonical layout.
func newStartedGame(t *testing.T, players int, seed uint64, rules Rules) *GameState {
	t.Helper()
	g, err := NewGame(NewSeats(players), SeedFromUint64(seed), rules)
	if err != nil {
		t.Fatalf("NewGame(%d): %v", players, err)
	}
	if err := g.Start(FallbackBoardLayout()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g
}

// layoutWith returns a copy of the canonical layout with face moved to pos.
func layoutWith(t *testing.T, pos Position, f Face) *BoardLayout {
	t.Helper()
	l := FallbackBoardLayout()
	src := l.PositionsOf(f)[0]
	l.Cells[pos.Row][pos.Col], l.Cells[src.Row][src.Col] = l.Cells[src.Row][src.Col], l.Cells[pos.Row][pos.Col]
	l.buildIndex()
	if err := l.Validate(); err != nil {
		t.Fatalf("layoutWith: %v", err)
	}
	return l
}

// pullIntoHand moves the first card matching match from the deck (or another
// player's hand) into pid's hand. The displaced hand card, never one of keep,
// takes its place so the card count is unchanged.
func pullIntoHand(t *testing.T, g *GameState, pid PlayerID, match func(Card) bool, keep ...Card) Card {
	t.Helper()
	p := g.Player(pid)
	if p == nil {
		t.Fatalf("no player %s", pid)
	}
	for _, c := range p.Hand {
		if match(c) {
			return c
		}
	}
	slot := -1
	for i, c := range p.Hand {
		kept := false
		for _, k := range keep {
			if k.ID == c.ID {
				kept = true
			}
		}
		if !kept {
			slot = i
			break
		}
	}
	if slot < 0 {
		t.Fatalf("no free hand slot for %s", pid)
	}
	for i, c := range g.Deck {
		if match(c) {
			g.Deck[i] = p.Hand[slot]
			p.Hand[slot] = c
			return c
		}
	}
	for oi := range g.Players {
		other := &g.Players[oi]
		if other.ID == pid {
			continue
		}
		for i, c := range other.Hand {
			if match(c) {
				other.Hand[i] = p.Hand[slot]
				p.Hand[slot] = c
				return c
			}
		}
	}
	t.Fatalf("no card available for %s", pid)
	return Card{}
}

func isFace(f Face) func(Card) bool {
	return func(c Card) bool { return !c.IsJack() && c.Face() == f }
}

func isJack(j JackType) func(Card) bool {
	return func(c Card) bool { return c.JackType == j }
}

// placeChip puts a chip for pid at pos using a card taken from the deck, so
// the card count is unchanged.
func placeChip(t *testing.T, g *GameState, pid PlayerID, pos Position) *Chip {
	t.Helper()
	if len(g.Deck) == 0 {
		t.Fatalf("placeChip: deck empty")
	}
	card := g.Deck[len(g.Deck)-1]
	g.Deck = g.Deck[:len(g.Deck)-1]
	chip := &Chip{
		ID:       "test-" + pos.String(),
		PlayerID: pid,
		Team:     g.TeamOf(pid),
		Position: pos,
		Card:     card,
	}
	g.Board[pos.Row][pos.Col] = chip
	return chip
}

func pos(r, c int) Position { return Position{Row: r, Col: c} }

func checkConservation(t *testing.T, g *GameState) {
	t.Helper()
	if n := g.CardCount(); n != TotalCards {
		t.Fatalf("card count = %d, want %d", n, TotalCards)
	}
}
