// Package gameid generates table identifiers. IDs are UUIDv7 values
// rendered as 26-character Crockford base32, so they sort by creation
// time and are safe in URLs and log lines.
package gameid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Crockford's base32 alphabet (no i, l, o, u).
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource supplies the random tail of an ID. Injected in tests so
// generated IDs are reproducible.
type RandSource interface {
	Intn(n int) int
}

// Generator produces game IDs. The zero source uses crypto/rand and
// the wall clock.
type Generator struct {
	source RandSource
	now    func() time.Time
}

// NewGenerator returns a Generator. source may be nil for OS entropy;
// now may be nil for time.Now.
func NewGenerator(source RandSource, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{source: source, now: now}
}

// Generate returns a fresh ID using OS entropy.
func Generate() string {
	return NewGenerator(nil, nil).Generate()
}

// Generate returns a new 26-character ID.
func (g *Generator) Generate() string {
	return encodeBase32(g.uuidv7())
}

// uuidv7 builds a 128-bit UUIDv7: 48-bit millisecond timestamp,
// version and variant bits, and 74 bits of randomness.
func (g *Generator) uuidv7() [16]byte {
	var u [16]byte

	ms := g.now().UnixMilli()
	u[0] = byte(ms >> 40)
	u[1] = byte(ms >> 32)
	u[2] = byte(ms >> 24)
	u[3] = byte(ms >> 16)
	u[4] = byte(ms >> 8)
	u[5] = byte(ms)

	if g.source != nil {
		for i := 6; i < 16; i++ {
			u[i] = byte(g.source.Intn(256))
		}
	} else if _, err := rand.Read(u[6:]); err != nil {
		panic("gameid: entropy source failed: " + err.Error())
	}

	u[6] = (u[6] & 0x0f) | 0x70 // version 7
	u[8] = (u[8] & 0x3f) | 0x80 // variant 10

	return u
}

// encodeBase32 renders 128 bits as 26 base32 characters. Two zero bits
// are prepended so the value divides evenly into 5-bit groups, which
// also pins the first character to 0-7.
func encodeBase32(u [16]byte) string {
	var out [26]byte
	var acc uint
	accBits := 2 // two leading pad bits, value zero
	pos := 0
	for _, b := range u {
		acc = acc<<8 | uint(b)
		accBits += 8
		for accBits >= 5 {
			accBits -= 5
			out[pos] = alphabet[(acc>>accBits)&0x1f]
			pos++
		}
	}
	return string(out[:])
}

// Validate reports whether id is a well-formed game ID.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("game ID must be 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
