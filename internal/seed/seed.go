// Package seed resolves the optional seeds taken by randomized pipeline steps.
package seed

import (
	"math/rand"
	"time"
)

// Value returns *s, or a time-derived seed when s is nil.
func Value(s *int64) int64 {
	if s != nil {
		return *s
	}
	return time.Now().UnixNano()
}

// Rand returns a generator seeded from s.
func Rand(s *int64) *rand.Rand {
	return rand.New(rand.NewSource(Value(s)))
}

// Of returns a pointer to v, for literal seeds.
func Of(v int64) *int64 { return &v }
