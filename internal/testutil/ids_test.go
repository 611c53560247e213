package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountingIDs(t *testing.T) {
	g := NewCountingIDs("eval")
	assert.Equal(t, "eval-1", g.Generate())
	assert.Equal(t, "eval-2", g.Generate())
	assert.Equal(t, "eval-3", g.Generate())
}

func TestCountingIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "run-1", NewCountingIDs("").Generate())
}

func TestCountingIDs_Unique(t *testing.T) {
	g := NewCountingIDs("")
	var mu sync.Mutex
	seen := map[string]bool{}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 200)
}
