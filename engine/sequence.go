package engine

import "fmt"

type axis struct {
	dr, dc int
	dir    Direction
}

// Scan axes, each walked in both directions from the pivot.
var axes = [4]axis{
	{0, 1, DirectionHorizontal},
	{1, 0, DirectionVertical},
	{1, 1, DirectionDiagonal},
	{1, -1, DirectionDiagonal},
}

// DetectSequences returns the sequences completed by team's chip at pivot.
//
// A maximal same-team run of at least the sequence length is one record
// covering the whole run. A run that already shares two or more cells with
// the team's recorded sequences on the same axis only extends them; it is
// recorded again once its unrecorded part through the pivot, plus one shared
// cell, reaches the sequence length.
func DetectSequences(board *Board, pivot Position, team TeamID, existing []Sequence, rules Rules) []Sequence {
	owned := func(p Position) bool {
		if !p.Valid() {
			return false
		}
		if rules.FreeCornersCount && p.IsCorner() {
			return true
		}
		chip := board.At(p)
		return chip != nil && chip.Team == team
	}
	if !pivot.Valid() || board.At(pivot) == nil || board.At(pivot).Team != team {
		return nil
	}

	length := rules.sequenceLength()
	var found []Sequence
	for _, ax := range axes {
		start := pivot
		for owned(start.add(-ax.dr, -ax.dc)) {
			start = start.add(-ax.dr, -ax.dc)
		}
		var run []Position
		for p := start; owned(p); p = p.add(ax.dr, ax.dc) {
			run = append(run, p)
		}
		if len(run) < length {
			continue
		}

		recorded := recordedOnAxis(team, ax, existing, found)
		cells := newSequenceCells(run, pivot, recorded, length)
		if cells == nil {
			continue
		}
		found = append(found, Sequence{
			ID:        fmt.Sprintf("seq-%s-%d-%d-%d", team, cells[0].Row, cells[0].Col, len(existing)+len(found)),
			Team:      team,
			Positions: cells,
			Direction: ax.dir,
		})
	}
	return found
}

func recordedOnAxis(team TeamID, ax axis, lists ...[]Sequence) map[Position]bool {
	out := make(map[Position]bool)
	for _, list := range lists {
		for _, s := range list {
			if s.Team != team {
				continue
			}
			if dr, dc := s.axis(); dr != ax.dr || dc != ax.dc {
				continue
			}
			for _, p := range s.Positions {
				out[p] = true
			}
		}
	}
	return out
}

// newSequenceCells picks the cells of run to record, or nil if the run adds
// no new sequence.
func newSequenceCells(run []Position, pivot Position, recorded map[Position]bool, length int) []Position {
	shared := 0
	at := -1
	for i, p := range run {
		if recorded[p] {
			shared++
		}
		if p == pivot {
			at = i
		}
	}
	if shared <= 1 {
		return append([]Position(nil), run...)
	}
	if at < 0 || recorded[pivot] {
		return nil
	}

	lo, hi := at, at
	for lo > 0 && !recorded[run[lo-1]] {
		lo--
	}
	for hi < len(run)-1 && !recorded[run[hi+1]] {
		hi++
	}
	switch {
	case hi-lo+1 >= length:
		return append([]Position(nil), run[lo:hi+1]...)
	case hi-lo+2 >= length && lo > 0:
		return append([]Position(nil), run[lo-1:hi+1]...)
	case hi-lo+2 >= length && hi < len(run)-1:
		return append([]Position(nil), run[lo:hi+2]...)
	}
	return nil
}

// SequenceCount returns the number of sequences recorded for team.
func SequenceCount(sequences []Sequence, team TeamID) int {
	n := 0
	for _, s := range sequences {
		if s.Team == team {
			n++
		}
	}
	return n
}
