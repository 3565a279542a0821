package engine

// Rules holds configurable game settings. Zero values fall back to the
// standard game.
type Rules struct {
	RequiredSequences int  `json:"requiredSequences,omitempty" yaml:"required_sequences"` // 0 = team policy
	SequenceLength    int  `json:"sequenceLength,omitempty" yaml:"sequence_length"`       // 0 = 5
	HandSize          int  `json:"handSize,omitempty" yaml:"hand_size"`                   // 0 = deal table
	FreeCornersCount  bool `json:"freeCornersCount,omitempty" yaml:"free_corners_count"`  // corners count for every team
}

// DefaultRules returns the standard Sequence rules.
func DefaultRules() Rules {
	return Rules{
		SequenceLength: SequenceLength,
	}
}

func (r Rules) sequenceLength() int {
	if r.SequenceLength <= 0 {
		return SequenceLength
	}
	return r.SequenceLength
}

func (r Rules) handSize(playerCount int) int {
	if r.HandSize > 0 {
		return r.HandSize
	}
	return HandSize(playerCount)
}

func (r Rules) requiredSequences(p TeamPolicy) int {
	if r.RequiredSequences > 0 {
		return r.RequiredSequences
	}
	return p.RequiredSequences
}
