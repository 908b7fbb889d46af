// Package randutil centralises how pseudo-random generators are
// constructed. Gameplay must be reproducible from a single int64 seed,
// so every shuffle in the system goes through New rather than seeding
// rand/v2 ad hoc.
package randutil

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from the provided
// int64. The two 64-bit PCG seeds are derived with a splitmix finaliser
// so that adjacent input seeds do not produce correlated streams.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewSeed draws a fresh seed from OS entropy. Used when a table is not
// configured with an explicit seed; the drawn value is retained so the
// hand remains replayable after the fact.
func NewSeed() int64 {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; if it ever
		// does, a zero seed is still a valid (if predictable) stream.
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
