package gameid

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	if len(id) != 26 {
		t.Errorf("expected 26 characters, got %d", len(id))
	}
	if err := Validate(id); err != nil {
		t.Errorf("generated ID failed validation: %v", err)
	}
	if id[0] > '7' {
		t.Errorf("first character %c exceeds maximum '7'", id[0])
	}
}

func TestGenerateUnique(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := Generate()
		if ids[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		ids[id] = true
	}
}

func TestGenerateTimeSorted(t *testing.T) {
	// UUIDv7 leads with the timestamp, so later IDs must sort later.
	now := time.Unix(1700000000, 0)
	gen := NewGenerator(nil, func() time.Time { return now })

	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, gen.Generate())
		now = now.Add(time.Millisecond)
	}

	for i := 1; i < len(ids); i++ {
		if strings.Compare(ids[i-1], ids[i]) >= 0 {
			t.Errorf("IDs not sorted: %s >= %s", ids[i-1], ids[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid ID", id: "01h5n0et5q6mt3v7ms1234abcd", wantErr: false},
		{name: "too short", id: "01h5n0et5q6mt3v7ms123", wantErr: true},
		{name: "too long", id: "01h5n0et5q6mt3v7ms1234abcdef", wantErr: true},
		{name: "first char too high", id: "81h5n0et5q6mt3v7ms1234abcd", wantErr: true},
		{name: "invalid character", id: "01h5n0et5q6mt3v7ms1234abci", wantErr: true},
		{name: "uppercase not allowed", id: "01H5N0ET5Q6MT3V7MS1234ABCD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAlphabet(t *testing.T) {
	if len(alphabet) != 32 {
		t.Errorf("alphabet should have 32 characters, got %d", len(alphabet))
	}

	seen := make(map[rune]bool)
	for _, char := range alphabet {
		if seen[char] {
			t.Errorf("duplicate character in alphabet: %c", char)
		}
		seen[char] = true
	}

	for _, char := range "ilou" {
		if strings.ContainsRune(alphabet, char) {
			t.Errorf("alphabet should not contain %c", char)
		}
	}
}

type stubRandSource struct {
	values []int
	index  int
}

func (s *stubRandSource) Intn(n int) int {
	if s.index >= len(s.values) {
		return 0
	}
	v := s.values[s.index] % n
	s.index++
	return v
}

func TestGeneratorDeterministic(t *testing.T) {
	// Same source and same clock must reproduce the ID exactly.
	fixed := time.UnixMilli(1700000000000)
	nowFn := func() time.Time { return fixed }

	gen1 := NewGenerator(&stubRandSource{values: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}, nowFn)
	gen2 := NewGenerator(&stubRandSource{values: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}, nowFn)

	id1 := gen1.Generate()
	id2 := gen2.Generate()

	if id1 != id2 {
		t.Errorf("deterministic generation diverged: %s vs %s", id1, id2)
	}
	if err := Validate(id1); err != nil {
		t.Errorf("generated ID failed validation: %v", err)
	}
}
