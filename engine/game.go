// Package engine implements the Sequence board game rules.
//
// The engine is synchronous and performs no I/O. Every accepted action
// produces a new GameState; the input state is never modified, so callers
// can keep the previous state for replay or rollback.
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// GameState holds the complete state of one Sequence game.
type GameState struct {
	Players           []Player     `json:"players"`
	Teams             []Team       `json:"teams"`
	CurrentPlayer     PlayerID     `json:"currentPlayer"`
	Board             Board        `json:"board"`
	Deck              []Card       `json:"deck"`
	DiscardPile       []Card       `json:"discardPile"`
	Phase             Phase        `json:"gamePhase"`
	Sequences         []Sequence   `json:"sequences"`
	Winner            TeamID       `json:"winner,omitempty"`
	PlayerCount       int          `json:"playerCount"`
	RequiredSequences int          `json:"requiredSequences"`
	Dealer            PlayerID     `json:"dealer"`
	TurnOrder         []PlayerID   `json:"turnOrder"`
	TurnNumber        int          `json:"turnNumber"`
	Rules             Rules        `json:"rules"`
	Layout            *BoardLayout `json:"boardLayout,omitempty"`

	seed     Seed
	shuffles uint64
}

// Seat is a player joining a new game.
type Seat struct {
	ID   PlayerID
	Name string
}

// NewSeats returns n seats named player1..playerN.
func NewSeats(n int) []Seat {
	seats := make([]Seat, n)
	for i := range seats {
		seats[i] = Seat{
			ID:   PlayerID(fmt.Sprintf("player%d", i+1)),
			Name: fmt.Sprintf("Player %d", i+1),
		}
	}
	return seats
}

var (
	ErrDuplicatePlayer = errors.New("duplicate player id")
	ErrLayoutRequired  = errors.New("board layout required")
	ErrAlreadyStarted  = errors.New("game already started")
)

// InitializeGame sets up a game for playerCount anonymous seats with a fresh
// seed and the default rules.
func InitializeGame(playerCount int) (*GameState, error) {
	return NewGame(NewSeats(playerCount), NewSeed(), DefaultRules())
}

// NewGame builds a game in the setup phase: teams assigned, deck shuffled
// from seed, hands dealt. The first seat deals and opens the game.
func NewGame(seats []Seat, seed Seed, rules Rules) (*GameState, error) {
	policy, err := PolicyFor(len(seats))
	if err != nil {
		return nil, err
	}

	g := &GameState{
		Phase:       PhaseSetup,
		PlayerCount: len(seats),
		Rules:       rules,
		seed:        seed,
		DiscardPile: []Card{},
		Sequences:   []Sequence{},
	}
	g.RequiredSequences = rules.requiredSequences(policy)

	seen := make(map[PlayerID]bool, len(seats))
	for _, s := range seats {
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, s.ID)
		}
		seen[s.ID] = true
		g.Players = append(g.Players, Player{
			ID:          s.ID,
			Name:        s.Name,
			Hand:        []Card{},
			DiscardPile: []Card{},
		})
		g.TurnOrder = append(g.TurnOrder, s.ID)
	}
	g.Teams = assignTeams(g.Players, policy)

	deck := GenerateDeck()
	shuffleInPlace(deck, g.nextStream())
	hands, rest := dealN(deck, len(g.Players), rules.handSize(len(g.Players)))
	for i := range g.Players {
		g.Players[i].Hand = append(g.Players[i].Hand, hands[i]...)
	}
	g.Deck = rest

	g.Dealer = g.TurnOrder[0]
	g.setActive(g.TurnOrder[0])
	return g, nil
}

// Start binds layout and moves the game from setup to playing.
func (g *GameState) Start(layout *BoardLayout) error {
	if layout == nil {
		return ErrLayoutRequired
	}
	if g.Phase != PhaseSetup {
		return fmt.Errorf("%w: phase %s", ErrAlreadyStarted, g.Phase)
	}
	g.Layout = layout
	g.Phase = PhasePlaying
	return nil
}

// nextStream returns the generator for the game's next shuffle.
func (g *GameState) nextStream() *rand.Rand {
	r := g.seed.stream(g.shuffles + 2)
	g.shuffles++
	return r
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// Player returns the player with id, or nil.
func (g *GameState) Player(id PlayerID) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// NextPlayer returns the player after id in turn order.
func (g *GameState) NextPlayer(id PlayerID) PlayerID {
	for i, p := range g.TurnOrder {
		if p == id {
			return g.TurnOrder[(i+1)%len(g.TurnOrder)]
		}
	}
	if len(g.TurnOrder) == 0 {
		return ""
	}
	return g.TurnOrder[0]
}

// TeamOf returns the team of player id.
func (g *GameState) TeamOf(id PlayerID) TeamID {
	if p := g.Player(id); p != nil {
		return p.Team
	}
	return ""
}

// IsTerminal returns true once a team has won.
func (g *GameState) IsTerminal() bool { return g.Phase == PhaseFinished }

// CardCount totals every card location plus chips on the board. It is always
// TotalCards.
func (g *GameState) CardCount() int {
	n := len(g.Deck) + len(g.DiscardPile) + g.Board.ChipCount()
	for _, p := range g.Players {
		n += len(p.Hand) + len(p.DiscardPile)
	}
	return n
}

func (g *GameState) setActive(id PlayerID) {
	g.CurrentPlayer = id
	for i := range g.Players {
		g.Players[i].IsActive = g.Players[i].ID == id
	}
}

// ---------------------------------------------------------------------------
// Clone
// ---------------------------------------------------------------------------

// Clone returns a deep copy. The layout is shared since it never changes.
func (g *GameState) Clone() *GameState {
	c := *g
	c.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		p.Hand = append([]Card{}, p.Hand...)
		p.DiscardPile = append([]Card{}, p.DiscardPile...)
		c.Players[i] = p
	}
	c.Teams = make([]Team, len(g.Teams))
	for i, t := range g.Teams {
		t.PlayerIDs = append([]PlayerID(nil), t.PlayerIDs...)
		c.Teams[i] = t
	}
	for r := range g.Board {
		for col, chip := range g.Board[r] {
			if chip != nil {
				cp := *chip
				c.Board[r][col] = &cp
			}
		}
	}
	c.Deck = append([]Card{}, g.Deck...)
	c.DiscardPile = append([]Card{}, g.DiscardPile...)
	c.Sequences = make([]Sequence, len(g.Sequences))
	for i, s := range g.Sequences {
		s.Positions = append([]Position(nil), s.Positions...)
		c.Sequences[i] = s
	}
	c.TurnOrder = append([]PlayerID(nil), g.TurnOrder...)
	return &c
}
