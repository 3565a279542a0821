package engine

import (
	"errors"
	"testing"
)

func checkLayout(t *testing.T, l *BoardLayout) {
	t.Helper()
	free := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			p := pos(r, c)
			if l.IsFree(p) {
				free++
				if !p.IsCorner() {
					t.Errorf("%s is free but not a corner", p)
				}
			}
		}
	}
	if free != 4 {
		t.Errorf("free cells = %d, want 4", free)
	}
	for _, s := range Suits {
		for r := RankAce; r <= RankKing; r++ {
			bound := l.PositionsOf(NewFace(s, r))
			want := 2
			if r == RankJack {
				want = 0
			}
			if len(bound) != want {
				t.Errorf("%s bound to %d cells, want %d", NewFace(s, r), len(bound), want)
			}
			for _, p := range bound {
				if p.IsCorner() {
					t.Errorf("%s bound to corner %s", NewFace(s, r), p)
				}
			}
		}
	}
}

// TestCreateBoardLayoutInvariants verifies corners and bindings over many seeds.
func TestCreateBoardLayoutInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		l := CreateBoardLayoutSeeded(SeedFromUint64(seed))
		if l.Fallback {
			t.Errorf("seed %d: randomized layout fell back", seed)
		}
		checkLayout(t, l)
	}
	checkLayout(t, CreateBoardLayout())
}

// TestCreateBoardLayoutSeededDeterministic verifies one seed always gives one layout.
func TestCreateBoardLayoutSeededDeterministic(t *testing.T) {
	a := CreateBoardLayoutSeeded(SeedFromUint64(99))
	b := CreateBoardLayoutSeeded(SeedFromUint64(99))
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			ca, cb := a.CardAt(pos(r, c)), b.CardAt(pos(r, c))
			if (ca == nil) != (cb == nil) || (ca != nil && *ca != *cb) {
				t.Fatalf("layouts differ at (%d,%d)", r, c)
			}
		}
	}
}

// TestFallbackBoardLayout verifies the deterministic layout meets the same invariants.
func TestFallbackBoardLayout(t *testing.T) {
	l := FallbackBoardLayout()
	if !l.Fallback {
		t.Error("Fallback flag not set")
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	checkLayout(t, l)
}

// TestLayoutFallsBackOnLostCards verifies a construction short of cards is
// replaced by the fallback rather than returned half-built.
func TestLayoutFallsBackOnLostCards(t *testing.T) {
	cards := boardCards()
	if _, err := buildLayout(cards[:len(cards)-1]); !errors.Is(err, errLayoutInvalid) {
		t.Fatalf("buildLayout(95 cards) err = %v, want errLayoutInvalid", err)
	}
	l := layoutOrFallback(cards[:len(cards)-1])
	if !l.Fallback {
		t.Error("expected fallback layout")
	}
	checkLayout(t, l)
}

// TestBuildLayoutRejectsTripleBinding verifies a face bound three times fails validation.
func TestBuildLayoutRejectsTripleBinding(t *testing.T) {
	cards := boardCards()
	cards[1] = cards[0]
	if _, err := buildLayout(cards); !errors.Is(err, errLayoutInvalid) {
		t.Fatalf("err = %v, want errLayoutInvalid", err)
	}
}

// TestLayoutQueries verifies lookups off the board and on corners.
func TestLayoutQueries(t *testing.T) {
	l := FallbackBoardLayout()
	if l.CardAt(pos(0, 0)) != nil {
		t.Error("corner has a card")
	}
	if l.CardAt(pos(-1, 3)) != nil || l.CardAt(pos(3, 10)) != nil {
		t.Error("off-board position has a card")
	}
	if l.IsFree(pos(10, 10)) {
		t.Error("off-board position reported free")
	}
	c := l.CardAt(pos(0, 1))
	if c == nil {
		t.Fatal("(0,1) has no card")
	}
	found := false
	for _, p := range l.PositionsOf(c.Face()) {
		if p == pos(0, 1) {
			found = true
		}
	}
	if !found {
		t.Errorf("PositionsOf(%s) missing (0,1)", c.Face())
	}

	decoded := &BoardLayout{Cells: l.Cells}
	if got := len(decoded.PositionsOf(c.Face())); got != 2 {
		t.Errorf("unindexed PositionsOf = %d cells, want 2", got)
	}
}
