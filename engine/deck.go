package engine

// GenerateDeck returns the two standard 52-card decks in canonical order.
// There are no physical jokers.
func GenerateDeck() []Card {
	deck := make([]Card, 0, TotalCards)
	for d := 0; d < DecksInPlay; d++ {
		for _, s := range Suits {
			for r := RankAce; r <= RankKing; r++ {
				deck = append(deck, NewCard(d, s, r))
			}
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of deck using a fresh OS seed.
func ShuffleDeck(deck []Card) []Card {
	return ShuffleDeckSeeded(deck, NewSeed())
}

// ShuffleDeckSeeded returns a shuffled copy of deck. The same seed and input
// always give the same order. The input slice is left untouched.
func ShuffleDeckSeeded(deck []Card, seed Seed) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	shuffleInPlace(out, seed.stream(0))
	return out
}

// handSizes maps player count to cards dealt per player.
var handSizes = map[int]int{
	2:  7,
	3:  6,
	4:  6,
	6:  5,
	8:  4,
	9:  4,
	10: 3,
	11: 3,
	12: 3,
}

// DefaultHandSize applies to player counts absent from the table.
const DefaultHandSize = 6

// HandSize returns the number of cards each player holds for playerCount.
func HandSize(playerCount int) int {
	if n, ok := handSizes[playerCount]; ok {
		return n
	}
	return DefaultHandSize
}

// DealCards deals round-robin from the top (end) of deck, HandSize cards each.
// It returns the hands and the remaining deck; deck itself is not modified.
// If deck runs out, later hands are short.
func DealCards(deck []Card, playerCount int) ([][]Card, []Card) {
	return dealN(deck, playerCount, HandSize(playerCount))
}

func dealN(deck []Card, playerCount, perPlayer int) ([][]Card, []Card) {
	if playerCount <= 0 {
		return nil, append([]Card(nil), deck...)
	}
	rest := make([]Card, len(deck))
	copy(rest, deck)
	hands := make([][]Card, playerCount)
	for c := 0; c < perPlayer; c++ {
		for p := 0; p < playerCount; p++ {
			if len(rest) == 0 {
				return hands, rest
			}
			hands[p] = append(hands[p], rest[len(rest)-1])
			rest = rest[:len(rest)-1]
		}
	}
	return hands, rest
}
