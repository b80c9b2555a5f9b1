package random

import (
	"math/rand"
	"time"
)

// Source is the subset of *rand.Rand used for uniform draws.
// Tests substitute a scripted implementation.
type Source interface {
	Intn(n int) int
}

// NewSource returns a time-seeded source. Draws are not reproducible across runs.
func NewSource() Source {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Choice returns a uniformly chosen element of values.
// A single-element slice is returned without consuming a draw.
// Returns 0 for an empty slice.
func Choice(src Source, values []int) int {
	switch len(values) {
	case 0:
		return 0
	case 1:
		return values[0]
	}
	return values[src.Intn(len(values))]
}
