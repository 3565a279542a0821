// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/i-akshat-jain/sequence-game/engine"
	"github.com/i-akshat-jain/sequence-game/service/internal/models"
)

// ObfPlayerState represents the state of a single player, obfuscated for a specific observer.
type ObfPlayerState struct {
	PlayerID      uuid.UUID     `json:"playerId"`
	Name          string        `json:"name"`
	Team          engine.TeamID `json:"team"`
	HandSize      int           `json:"handSize"`
	DiscardCount  int           `json:"discardCount"`
	Connected     bool          `json:"connected"`
	Autoplay      bool          `json:"autoplay"`
	IsCurrentTurn bool          `json:"isCurrentTurn"`
	// Hand is populated only for the player requesting the state ('self').
	Hand []engine.Card `json:"hand,omitempty"`
	// DeadCards lists the self player's cards that can no longer be placed.
	DeadCards []engine.Card `json:"deadCards,omitempty"`
}

// ObfGameState represents the overall game state, obfuscated for a specific observer.
// The deck order and other players' hands are never included.
type ObfGameState struct {
	GameID            uuid.UUID           `json:"gameId"`
	RoomID            string              `json:"roomId"`
	Started           bool                `json:"started"`
	GameOver          bool                `json:"gameOver"`
	Phase             engine.Phase        `json:"gamePhase"`
	CurrentPlayerID   uuid.UUID           `json:"currentPlayerId"`
	TurnID            int                 `json:"turnId"`
	TurnNumber        int                 `json:"turnNumber"`
	DeckSize          int                 `json:"deckSize"`
	DiscardSize       int                 `json:"discardSize"`
	DiscardTop        *engine.Card        `json:"discardTop,omitempty"`
	Board             *engine.Board       `json:"board,omitempty"`
	Layout            *engine.BoardLayout `json:"boardLayout,omitempty"`
	Sequences         []engine.Sequence   `json:"sequences"`
	Teams             []engine.Team       `json:"teams"`
	RequiredSequences int                 `json:"requiredSequences"`
	Winner            engine.TeamID       `json:"winner,omitempty"`
	Players           []ObfPlayerState    `json:"players"`
	Settings          models.RoomSettings `json:"settings"`
}

// GetCurrentObfuscatedGameState generates a snapshot of the game state,
// tailored to the perspective of the requesting user (`forUser`).
// This function assumes the game lock is HELD by the caller.
func (g *SequenceGame) GetCurrentObfuscatedGameState(forUser uuid.UUID) ObfGameState {
	obf := ObfGameState{
		GameID:    g.ID,
		RoomID:    g.RoomID,
		Started:   g.Started,
		GameOver:  g.GameOver,
		TurnID:    g.TurnID,
		Settings:  g.Settings,
		Sequences: []engine.Sequence{},
		Players:   make([]ObfPlayerState, 0, len(g.Players)),
	}

	st := g.Engine
	if st == nil {
		obf.Phase = engine.PhaseSetup
		for _, pl := range g.Players {
			obf.Players = append(obf.Players, ObfPlayerState{
				PlayerID:  pl.ID,
				Name:      pl.Name,
				Connected: pl.Connected,
			})
		}
		return obf
	}

	obf.Phase = st.Phase
	obf.GameOver = g.GameOver || st.IsTerminal()
	obf.TurnNumber = st.TurnNumber
	obf.DeckSize = len(st.Deck)
	obf.DiscardSize = len(st.DiscardPile)
	if n := len(st.DiscardPile); n > 0 {
		top := st.DiscardPile[n-1]
		obf.DiscardTop = &top
	}
	board := st.Board
	obf.Board = &board
	obf.Layout = st.Layout
	obf.Sequences = append(obf.Sequences, st.Sequences...)
	obf.Teams = st.Teams
	obf.RequiredSequences = st.RequiredSequences
	obf.Winner = st.Winner
	if !obf.GameOver {
		obf.CurrentPlayerID = servicePlayerID(st.CurrentPlayer)
	}

	for _, pl := range g.Players {
		ps := ObfPlayerState{
			PlayerID:  pl.ID,
			Name:      pl.Name,
			Connected: pl.Connected,
			Autoplay:  pl.Autoplay,
		}
		pid := enginePlayerID(pl.ID)
		if ep := st.Player(pid); ep != nil {
			ps.Team = ep.Team
			ps.HandSize = len(ep.Hand)
			ps.DiscardCount = len(ep.DiscardPile)
			ps.IsCurrentTurn = !obf.GameOver && st.CurrentPlayer == pid
			if pl.ID == forUser {
				ps.Hand = append([]engine.Card{}, ep.Hand...)
				ps.DeadCards = engine.GetDeadCards(st, pid, nil)
			}
		}
		obf.Players = append(obf.Players, ps)
	}
	return obf
}
