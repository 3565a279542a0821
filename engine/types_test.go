package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestFacePacking verifies suit and rank survive the uint8 packing.
func TestFacePacking(t *testing.T) {
	for _, s := range Suits {
		for r := RankAce; r <= RankKing; r++ {
			f := NewFace(s, r)
			if f.Suit() != s || f.Rank() != r {
				t.Errorf("NewFace(%s,%s) unpacked to %s,%s", s, r, f.Suit(), f.Rank())
			}
		}
	}
}

// TestCardJSON verifies the wire names of suits, ranks and jack types.
func TestCardJSON(t *testing.T) {
	c := NewCard(1, SuitClubs, RankJack)
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"suit":"clubs"`, `"rank":"J"`, `"jackType":"one-eyed"`, `"id":"card-1-clubs-J"`} {
		if !strings.Contains(s, want) {
			t.Errorf("%s missing %s", s, want)
		}
	}
	var back Card
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != c {
		t.Errorf("decoded %+v, want %+v", back, c)
	}
	if err := json.Unmarshal([]byte(`{"suit":"stars"}`), &back); err == nil {
		t.Error("unknown suit accepted")
	}
}

// TestPositionGeometry verifies bounds and corners.
func TestPositionGeometry(t *testing.T) {
	corners := []Position{{0, 0}, {0, 9}, {9, 0}, {9, 9}}
	for _, p := range corners {
		if !p.IsCorner() || !p.Valid() {
			t.Errorf("%s should be a valid corner", p)
		}
	}
	for _, p := range []Position{{-1, 0}, {0, 10}, {10, 5}} {
		if p.Valid() {
			t.Errorf("%s should be off the board", p)
		}
	}
	if (Position{0, 5}).IsCorner() {
		t.Error("(0,5) reported as corner")
	}
}
