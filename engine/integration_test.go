//go:build integration

package engine_test

// Full-game integration tests. They use only the public API and drive every
// seat with an agent policy until a team wins or the turn cap is hit.
//
// Run: go test -tags integration -run TestIntegration ./engine/

import (
	"testing"

	"github.com/i-akshat-jain/sequence-game/engine"
	"github.com/i-akshat-jain/sequence-game/engine/agent"
)

func playOut(t *testing.T, players int, seed uint64, p agent.Policy, maxTurns int) *engine.GameState {
	t.Helper()
	g, err := engine.NewGame(engine.NewSeats(players), engine.SeedFromUint64(seed), engine.DefaultRules())
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.Start(engine.CreateBoardLayoutSeeded(engine.SeedFromUint64(seed))); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for step := 0; step < maxTurns && !g.IsTerminal(); step++ {
		a := p.Choose(g, g.CurrentPlayer)
		next, err := engine.ApplyAction(g, a)
		if err != nil {
			t.Fatalf("seed %d step %d: %+v rejected: %v", seed, step, a, err)
		}
		if n := next.CardCount(); n != engine.TotalCards {
			t.Fatalf("seed %d step %d: card count %d", seed, step, n)
		}
		if next.Phase == engine.PhaseSetup {
			t.Fatalf("seed %d step %d: phase went back to setup", seed, step)
		}
		g = next
	}
	return g
}

// TestIntegrationGreedyGamesFinish plays greedy self-play for every supported
// table size and checks any winner against the recorded sequences.
func TestIntegrationGreedyGamesFinish(t *testing.T) {
	for _, players := range engine.SupportedPlayerCounts() {
		for seed := uint64(1); seed <= 5; seed++ {
			g := playOut(t, players, seed, agent.Greedy{}, 5000)
			if !g.IsTerminal() {
				t.Logf("%d players seed %d: no winner after 5000 actions", players, seed)
				continue
			}
			w, ok := engine.CheckWinCondition(g)
			if !ok || w != g.Winner {
				t.Errorf("%d players seed %d: winner %q vs CheckWinCondition %q", players, seed, g.Winner, w)
			}
			if engine.SequenceCount(g.Sequences, g.Winner) < g.RequiredSequences {
				t.Errorf("%d players seed %d: winner has too few sequences", players, seed)
			}
		}
	}
}

// TestIntegrationRandomGamesHoldInvariants runs long random games; they need
// not finish, only stay consistent.
func TestIntegrationRandomGamesHoldInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		playOut(t, 4, seed, agent.NewRandom(seed), 2000)
	}
}
