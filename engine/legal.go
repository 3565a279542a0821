package engine

import (
	"errors"
	"fmt"
)

// Board holds the chips in play; nil means an empty cell.
type Board [BoardSize][BoardSize]*Chip

// At returns the chip at pos or nil. Off-board positions are empty.
func (b *Board) At(pos Position) *Chip {
	if !pos.Valid() {
		return nil
	}
	return b[pos.Row][pos.Col]
}

// Occupied reports whether a chip sits at pos.
func (b *Board) Occupied(pos Position) bool { return b.At(pos) != nil }

// ChipCount returns the number of chips on the board.
func (b *Board) ChipCount() int {
	n := 0
	for r := range b {
		for c := range b[r] {
			if b[r][c] != nil {
				n++
			}
		}
	}
	return n
}

var (
	ErrOutOfBounds   = errors.New("position off the board")
	ErrFreeSpace     = errors.New("free space cannot hold a chip")
	ErrCellOccupied  = errors.New("cell already occupied")
	ErrCardMismatch  = errors.New("card does not match cell")
	ErrNoChip        = errors.New("no chip to remove")
	ErrOwnChip       = errors.New("cannot remove own team's chip")
	ErrProtectedChip = errors.New("chip belongs to a completed sequence")
	ErrNotRemoval    = errors.New("card cannot remove chips")
)

// ProtectedPositions returns the set of cells covered by recorded sequences.
func ProtectedPositions(sequences []Sequence) map[Position]bool {
	out := make(map[Position]bool)
	for _, s := range sequences {
		for _, p := range s.Positions {
			out[p] = true
		}
	}
	return out
}

func isProtected(pos Position, sequences []Sequence) bool {
	for _, s := range sequences {
		if s.Contains(pos) {
			return true
		}
	}
	return false
}

// ResolveMove decides whether card may target pos for team. For a removal
// it returns the chip that would be removed; placements return nil. It has
// no side effects.
func ResolveMove(card Card, pos Position, layout *BoardLayout, board *Board, sequences []Sequence, team TeamID) (*Chip, error) {
	if !pos.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}
	if layout.IsFree(pos) || pos.IsCorner() {
		return nil, fmt.Errorf("%w: %s", ErrFreeSpace, pos)
	}

	switch {
	case card.IsWild():
		if board.Occupied(pos) {
			return nil, fmt.Errorf("%w: %s", ErrCellOccupied, pos)
		}
		return nil, nil

	case card.IsRemoval():
		chip := board.At(pos)
		if chip == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoChip, pos)
		}
		if chip.Team == team {
			return nil, fmt.Errorf("%w: %s", ErrOwnChip, pos)
		}
		if isProtected(pos, sequences) {
			return nil, fmt.Errorf("%w: %s", ErrProtectedChip, pos)
		}
		return chip, nil
	}

	bound := layout.CardAt(pos)
	if bound == nil || bound.Face() != card.Face() {
		return nil, fmt.Errorf("%w: %s at %s", ErrCardMismatch, card, pos)
	}
	if board.Occupied(pos) {
		return nil, fmt.Errorf("%w: %s", ErrCellOccupied, pos)
	}
	return nil, nil
}

// CanPlay is the boolean form of ResolveMove.
func CanPlay(card Card, pos Position, layout *BoardLayout, board *Board, sequences []Sequence, team TeamID) bool {
	_, err := ResolveMove(card, pos, layout, board, sequences, team)
	return err == nil
}

// IsDeadCard reports whether card can never be placed: every cell bound to
// its face is occupied. Jacks and jokers are never dead.
func IsDeadCard(card Card, layout *BoardLayout, board *Board) bool {
	if card.IsJoker || card.IsJack() {
		return false
	}
	for _, pos := range layout.PositionsOf(card.Face()) {
		if !board.Occupied(pos) {
			return false
		}
	}
	return true
}
