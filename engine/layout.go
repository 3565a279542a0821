package engine

import (
	"errors"
	"fmt"
)

// LayoutCell is one printed board cell: a free corner or a bound card.
type LayoutCell struct {
	Card *Card `json:"card"`
	Free bool  `json:"free,omitempty"`
}

// BoardLayout is the fixed card-to-cell mapping of one game. It is never
// mutated after construction and may be shared between states and players.
type BoardLayout struct {
	Cells    [BoardSize][BoardSize]LayoutCell `json:"cells"`
	Fallback bool                             `json:"fallback,omitempty"`

	index map[Face][]Position
}

var errLayoutInvalid = errors.New("board layout invalid")

// CreateBoardLayout builds a randomized layout from a fresh OS seed.
func CreateBoardLayout() *BoardLayout {
	return CreateBoardLayoutSeeded(NewSeed())
}

// CreateBoardLayoutSeeded builds the layout for seed. If the randomized
// construction fails validation the deterministic fallback is returned.
func CreateBoardLayoutSeeded(seed Seed) *BoardLayout {
	cards := boardCards()
	shuffleInPlace(cards, seed.stream(1))
	return layoutOrFallback(cards)
}

// FallbackBoardLayout places the board cards in canonical order. It satisfies
// the same invariants as a randomized layout.
func FallbackBoardLayout() *BoardLayout {
	l, err := buildLayout(boardCards())
	if err != nil {
		panic("engine: fallback layout invalid: " + err.Error())
	}
	l.Fallback = true
	return l
}

func layoutOrFallback(cards []Card) *BoardLayout {
	l, err := buildLayout(cards)
	if err != nil {
		return FallbackBoardLayout()
	}
	return l
}

// boardCards returns the 96 printed cards: every non-jack face of both decks.
func boardCards() []Card {
	cards := make([]Card, 0, PlayableCells)
	for _, c := range GenerateDeck() {
		if c.IsJack() {
			continue
		}
		cards = append(cards, c)
	}
	return cards
}

// buildLayout fills the non-corner cells row-major from cards and validates
// the result.
func buildLayout(cards []Card) (*BoardLayout, error) {
	l := &BoardLayout{}
	i := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			pos := Position{Row: r, Col: c}
			if pos.IsCorner() {
				l.Cells[r][c] = LayoutCell{Free: true}
				continue
			}
			if i >= len(cards) {
				return nil, fmt.Errorf("%w: ran out of cards at %s", errLayoutInvalid, pos)
			}
			card := cards[i]
			i++
			l.Cells[r][c] = LayoutCell{Card: &card}
		}
	}
	if i != len(cards) {
		return nil, fmt.Errorf("%w: %d cards left unplaced", errLayoutInvalid, len(cards)-i)
	}
	l.buildIndex()
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *BoardLayout) buildIndex() {
	l.index = make(map[Face][]Position, CardsPerDeck)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if card := l.Cells[r][c].Card; card != nil {
				f := card.Face()
				l.index[f] = append(l.index[f], Position{Row: r, Col: c})
			}
		}
	}
}

// Validate checks the layout invariants: free corners, no jacks on the board,
// and every non-jack face bound to exactly two cells.
func (l *BoardLayout) Validate() error {
	counts := make(map[Face]int, CardsPerDeck)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			pos := Position{Row: r, Col: c}
			cell := l.Cells[r][c]
			if pos.IsCorner() {
				if !cell.Free || cell.Card != nil {
					return fmt.Errorf("%w: corner %s is not free", errLayoutInvalid, pos)
				}
				continue
			}
			if cell.Free || cell.Card == nil {
				return fmt.Errorf("%w: %s has no card", errLayoutInvalid, pos)
			}
			if cell.Card.IsJack() || cell.Card.IsJoker {
				return fmt.Errorf("%w: %s holds %s", errLayoutInvalid, pos, cell.Card)
			}
			counts[cell.Card.Face()]++
		}
	}
	for _, s := range Suits {
		for r := RankAce; r <= RankKing; r++ {
			if r == RankJack {
				continue
			}
			if n := counts[NewFace(s, r)]; n != DecksInPlay {
				return fmt.Errorf("%w: %s bound %d times", errLayoutInvalid, NewFace(s, r), n)
			}
		}
	}
	return nil
}

// Cell returns the printed cell at pos. ok is false off the board.
func (l *BoardLayout) Cell(pos Position) (LayoutCell, bool) {
	if !pos.Valid() {
		return LayoutCell{}, false
	}
	return l.Cells[pos.Row][pos.Col], true
}

// IsFree reports whether pos is a free corner.
func (l *BoardLayout) IsFree(pos Position) bool {
	cell, ok := l.Cell(pos)
	return ok && cell.Free
}

// CardAt returns the card bound to pos, or nil for corners and off-board.
func (l *BoardLayout) CardAt(pos Position) *Card {
	cell, ok := l.Cell(pos)
	if !ok {
		return nil
	}
	return cell.Card
}

// PositionsOf returns the cells bound to face. Layouts decoded from JSON have
// no index and are scanned instead.
func (l *BoardLayout) PositionsOf(f Face) []Position {
	if l.index != nil {
		return l.index[f]
	}
	var out []Position
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if card := l.Cells[r][c].Card; card != nil && card.Face() == f {
				out = append(out, Position{Row: r, Col: c})
			}
		}
	}
	return out
}
