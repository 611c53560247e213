package testutil

import (
	"fmt"
	"sync"
)

// CountingIDs generates "<prefix>-1", "<prefix>-2", ... and never runs out.
//
// Unlike evaluation.SequenceGenerator, which returns a declared list, this
// generator suits tests that start an unknown number of runs but still
// compare stored IDs.
//
// Thread-safety: CountingIDs is safe for concurrent use via internal mutex.
type CountingIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCountingIDs creates a generator. An empty prefix becomes "run".
func NewCountingIDs(prefix string) *CountingIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &CountingIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *CountingIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
