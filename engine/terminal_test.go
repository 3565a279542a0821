package engine

import "testing"

// TestCheckWinCondition verifies the threshold per team.
func TestCheckWinCondition(t *testing.T) {
	g := newStartedGame(t, 2, 41, DefaultRules())
	if _, ok := CheckWinCondition(g); ok {
		t.Fatal("win on an empty board")
	}
	g.Sequences = []Sequence{{Team: "team2"}}
	if _, ok := CheckWinCondition(g); ok {
		t.Fatal("one sequence won a two-sequence game")
	}
	g.Sequences = append(g.Sequences, Sequence{Team: "team1"}, Sequence{Team: "team2"})
	winner, ok := CheckWinCondition(g)
	if !ok || winner != "team2" {
		t.Fatalf("winner = %q, %v; want team2", winner, ok)
	}

	g.Winner = "team1"
	if w, _ := CheckWinCondition(g); w != "team1" {
		t.Errorf("recorded winner ignored, got %q", w)
	}
}

// TestCheckWinConditionThreeTeams verifies one sequence wins a three-team game.
func TestCheckWinConditionThreeTeams(t *testing.T) {
	g := newStartedGame(t, 6, 42, DefaultRules())
	g.Sequences = []Sequence{{Team: "team3"}}
	if w, ok := CheckWinCondition(g); !ok || w != "team3" {
		t.Fatalf("winner = %q, %v; want team3", w, ok)
	}
}

// TestHashTracksPublicState verifies equal states hash equally and a move changes the hash.
func TestHashTracksPublicState(t *testing.T) {
	g := newStartedGame(t, 2, 43, DefaultRules())
	if g.Hash() != g.Clone().Hash() {
		t.Fatal("clone hashes differently")
	}
	next, err := ApplyAction(g, GameAction{Type: ActionPassTurn, PlayerID: g.CurrentPlayer})
	if err != nil {
		t.Fatal(err)
	}
	if next.Hash() == g.Hash() {
		t.Error("pass did not change the hash")
	}
}
