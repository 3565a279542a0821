package engine

import "fmt"

// Suit of a playing card.
type Suit uint8

const (
	SuitHearts   Suit = 0
	SuitDiamonds Suit = 1
	SuitClubs    Suit = 2
	SuitSpades   Suit = 3
)

// Suits lists the four suits in deck order.
var Suits = [4]Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

var suitNames = [4]string{"hearts", "diamonds", "clubs", "spades"}

func (s Suit) String() string {
	if int(s) < len(suitNames) {
		return suitNames[s]
	}
	return fmt.Sprintf("suit(%d)", uint8(s))
}

func (s Suit) MarshalText() ([]byte, error) {
	if int(s) >= len(suitNames) {
		return nil, fmt.Errorf("invalid suit %d", uint8(s))
	}
	return []byte(suitNames[s]), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	for i, name := range suitNames {
		if name == string(b) {
			*s = Suit(i)
			return nil
		}
	}
	return fmt.Errorf("unknown suit %q", b)
}

// Rank of a playing card, Ace low.
type Rank uint8

const (
	RankAce   Rank = 0
	RankTwo   Rank = 1
	RankThree Rank = 2
	RankFour  Rank = 3
	RankFive  Rank = 4
	RankSix   Rank = 5
	RankSeven Rank = 6
	RankEight Rank = 7
	RankNine  Rank = 8
	RankTen   Rank = 9
	RankJack  Rank = 10
	RankQueen Rank = 11
	RankKing  Rank = 12
)

var rankNames = [13]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

func (r Rank) String() string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return fmt.Sprintf("rank(%d)", uint8(r))
}

func (r Rank) MarshalText() ([]byte, error) {
	if int(r) >= len(rankNames) {
		return nil, fmt.Errorf("invalid rank %d", uint8(r))
	}
	return []byte(rankNames[r]), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	for i, name := range rankNames {
		if name == string(b) {
			*r = Rank(i)
			return nil
		}
	}
	return fmt.Errorf("unknown rank %q", b)
}

// JackType distinguishes the two jack behaviours. JackNone for every other card.
type JackType uint8

const (
	JackNone JackType = iota
	JackTwoEyed
	JackOneEyed
)

func (j JackType) String() string {
	switch j {
	case JackTwoEyed:
		return "two-eyed"
	case JackOneEyed:
		return "one-eyed"
	}
	return ""
}

func (j JackType) MarshalText() ([]byte, error) { return []byte(j.String()), nil }

func (j *JackType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*j = JackNone
	case "two-eyed":
		*j = JackTwoEyed
	case "one-eyed":
		*j = JackOneEyed
	default:
		return fmt.Errorf("unknown jack type %q", b)
	}
	return nil
}

// jackTypeFor returns the jack behaviour for a suit+rank. Red jacks are wild,
// black jacks remove chips.
func jackTypeFor(s Suit, r Rank) JackType {
	if r != RankJack {
		return JackNone
	}
	if s == SuitHearts || s == SuitDiamonds {
		return JackTwoEyed
	}
	return JackOneEyed
}

// ---------------------------------------------------------------------------
// Face: packed suit+rank, shared by the two physical copies of a card
// ---------------------------------------------------------------------------

// Face is a packed uint8: upper 4 bits = suit, lower 4 bits = rank.
type Face uint8

// NewFace constructs a Face from suit and rank.
func NewFace(s Suit, r Rank) Face {
	return Face((uint8(s) << 4) | (uint8(r) & 0x0F))
}

// Suit returns the suit bits (upper 4).
func (f Face) Suit() Suit { return Suit(uint8(f) >> 4) }

// Rank returns the rank bits (lower 4).
func (f Face) Rank() Rank { return Rank(uint8(f) & 0x0F) }

func (f Face) String() string { return f.Rank().String() + " of " + f.Suit().String() }

// ---------------------------------------------------------------------------
// Card
// ---------------------------------------------------------------------------

// Card is one physical card. ID is unique across both decks; two cards with
// the same Face are interchangeable for board matching.
type Card struct {
	ID       string   `json:"id"`
	Suit     Suit     `json:"suit"`
	Rank     Rank     `json:"rank"`
	IsJoker  bool     `json:"isJoker,omitempty"`
	JackType JackType `json:"jackType,omitempty"`
}

// NewCard builds the card for deck copy `deck` with its jack type derived.
func NewCard(deck int, s Suit, r Rank) Card {
	return Card{
		ID:       fmt.Sprintf("card-%d-%s-%s", deck, s, r),
		Suit:     s,
		Rank:     r,
		JackType: jackTypeFor(s, r),
	}
}

func (c Card) Face() Face { return NewFace(c.Suit, c.Rank) }

// IsWild reports whether the card may be placed on any open cell.
func (c Card) IsWild() bool { return c.IsJoker || c.JackType == JackTwoEyed }

// IsRemoval reports whether the card removes an opposing chip.
func (c Card) IsRemoval() bool { return !c.IsJoker && c.JackType == JackOneEyed }

// IsJack reports whether the card is a jack of either kind.
func (c Card) IsJack() bool { return c.JackType != JackNone }

func (c Card) String() string {
	if c.IsJoker {
		return "joker"
	}
	return c.Face().String()
}

// ---------------------------------------------------------------------------
// Board geometry
// ---------------------------------------------------------------------------

const (
	BoardSize      = 10
	PlayableCells  = BoardSize*BoardSize - 4
	DecksInPlay    = 2
	CardsPerDeck   = 52
	TotalCards     = DecksInPlay * CardsPerDeck
	SequenceLength = 5
)

// Position addresses a board cell.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Valid reports whether p lies on the board.
func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < BoardSize && p.Col >= 0 && p.Col < BoardSize
}

// IsCorner reports whether p is one of the four free spaces.
func (p Position) IsCorner() bool {
	return (p.Row == 0 || p.Row == BoardSize-1) && (p.Col == 0 || p.Col == BoardSize-1)
}

func (p Position) add(dr, dc int) Position { return Position{Row: p.Row + dr, Col: p.Col + dc} }

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// ---------------------------------------------------------------------------
// Players, teams, chips, sequences
// ---------------------------------------------------------------------------

type PlayerID string

type TeamID string

// Chip marks a claimed cell. Card is the card whose play placed it.
type Chip struct {
	ID       string   `json:"id"`
	PlayerID PlayerID `json:"playerId"`
	Team     TeamID   `json:"team"`
	Position Position `json:"position"`
	Card     Card     `json:"card"`
}

type Direction string

const (
	DirectionHorizontal Direction = "horizontal"
	DirectionVertical   Direction = "vertical"
	DirectionDiagonal   Direction = "diagonal"
)

// Sequence is a recorded run of at least SequenceLength same-team cells.
// Positions are ordered along the run.
type Sequence struct {
	ID        string     `json:"id"`
	Team      TeamID     `json:"team"`
	Positions []Position `json:"positions"`
	Direction Direction  `json:"direction"`
}

// Contains reports whether pos is part of the sequence.
func (s Sequence) Contains(pos Position) bool {
	for _, p := range s.Positions {
		if p == pos {
			return true
		}
	}
	return false
}

// axis returns the unit step between consecutive positions.
func (s Sequence) axis() (int, int) {
	if len(s.Positions) < 2 {
		return 0, 0
	}
	return s.Positions[1].Row - s.Positions[0].Row, s.Positions[1].Col - s.Positions[0].Col
}

type Player struct {
	ID          PlayerID `json:"id"`
	Name        string   `json:"name"`
	Team        TeamID   `json:"team"`
	Hand        []Card   `json:"hand"`
	IsActive    bool     `json:"isActive"`
	DiscardPile []Card   `json:"discardPile"`
}

// handIndex returns the index of cardID in the hand or -1.
func (p *Player) handIndex(cardID string) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

type Team struct {
	ID        TeamID     `json:"id"`
	PlayerIDs []PlayerID `json:"playerIds"`
}

// ---------------------------------------------------------------------------
// Phase and actions
// ---------------------------------------------------------------------------

type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

type ActionType string

const (
	ActionPlayCard        ActionType = "play_card"
	ActionRemoveChip      ActionType = "remove_chip"
	ActionPassTurn        ActionType = "pass_turn"
	ActionDiscardDeadCard ActionType = "discard_dead_card"
)

// GameAction is one player request. Card and Position are required by
// play_card; remove_chip takes its target from TargetChip or Position.
type GameAction struct {
	Type       ActionType `json:"type"`
	PlayerID   PlayerID   `json:"playerId"`
	Card       *Card      `json:"card,omitempty"`
	Position   *Position  `json:"position,omitempty"`
	TargetChip *Chip      `json:"targetChip,omitempty"`
}

// Move is a legal (card, cell) pair for the acting player.
type Move struct {
	Card     Card     `json:"card"`
	Position Position `json:"position"`
	Removal  bool     `json:"removal,omitempty"`
}
