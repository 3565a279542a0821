package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Seed is the 32-byte key every shuffle of a game is derived from. It is
// never serialized with the game state.
type Seed [32]byte

// NewSeed reads a fresh seed from the operating system's CSPRNG.
func NewSeed() Seed {
	var s Seed
	if _, err := crand.Read(s[:]); err != nil {
		panic("engine: crypto/rand unavailable: " + err.Error())
	}
	return s
}

// SeedFromUint64 expands v into a Seed. Used for reproducible tests and replays.
func SeedFromUint64(v uint64) Seed {
	var s Seed
	x := v
	for i := 0; i < len(s); i += 8 {
		// splitmix64
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		binary.LittleEndian.PutUint64(s[i:], z)
	}
	return s
}

// stream returns an independent ChaCha8 generator for shuffle number n.
func (s Seed) stream(n uint64) *rand.Rand {
	k := s
	binary.LittleEndian.PutUint64(k[24:], binary.LittleEndian.Uint64(s[24:])^n)
	return rand.New(rand.NewChaCha8(k))
}

// shuffleInPlace is a Fisher-Yates pass over cards.
func shuffleInPlace(cards []Card, r *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
