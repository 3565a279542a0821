package engine

// CheckWinCondition reports the first team, in team order, whose recorded
// sequences reach RequiredSequences. A finished game reports its winner.
func CheckWinCondition(g *GameState) (TeamID, bool) {
	if g.Winner != "" {
		return g.Winner, true
	}
	need := g.RequiredSequences
	if need <= 0 {
		need = 1
	}
	for _, t := range g.Teams {
		if SequenceCount(g.Sequences, t.ID) >= need {
			return t.ID, true
		}
	}
	return "", false
}

// Hash returns a 64-bit FNV-1a digest of the public state: board, sequences,
// turn and pile sizes. Equal states hash equally.
func (g *GameState) Hash() uint64 {
	h := uint64(14695981039346656037) // FNV-1a offset basis
	const prime = uint64(1099511628211)
	mix := func(v uint64) {
		h ^= v
		h *= prime
	}
	mixString := func(s string) {
		for i := 0; i < len(s); i++ {
			mix(uint64(s[i]))
		}
		mix(0xff)
	}

	for r := range g.Board {
		for c, chip := range g.Board[r] {
			if chip == nil {
				continue
			}
			mix(uint64(r*BoardSize + c))
			mixString(string(chip.Team))
			mixString(chip.Card.ID)
		}
	}
	for _, s := range g.Sequences {
		mixString(s.ID)
	}
	for _, p := range g.Players {
		mix(uint64(len(p.Hand)) << 8)
		mix(uint64(len(p.DiscardPile)) << 16)
	}
	mix(uint64(len(g.Deck)) << 24)
	mix(uint64(len(g.DiscardPile)) << 32)
	mix(uint64(g.TurnNumber) << 40)
	mixString(string(g.CurrentPlayer))
	mixString(string(g.Phase))
	return h
}
