// Package scenarios is the catalogue of built-in evaluation scenarios. Each
// entry pairs a harness.Scenario with a reference memsim world whose program
// satisfies every case, so the catalogue can be exercised without a browser.
package scenarios

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/observe"
	"github.com/roach88/scratchbench/internal/sim/memsim"
)

// Entry is one built-in scenario.
type Entry struct {
	Name        string
	Description string

	// Build returns a fresh scenario. Scenarios carry no state between runs
	// but are rebuilt per run all the same.
	Build func() *harness.Scenario

	// Reference builds a stopped simulation running a correct solution.
	// Extra options are applied after the scenario's own.
	Reference func(opts ...memsim.Option) *memsim.Sim
}

// Registry holds scenarios by name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entry. Names must be unique.
func (r *Registry) Register(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("scenario entry has no name")
	}
	if e.Build == nil {
		return fmt.Errorf("scenario %s has no builder", e.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.Name]; exists {
		return fmt.Errorf("scenario %s already registered", e.Name)
	}
	r.entries[e.Name] = e
	return nil
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every entry sorted by name.
func (r *Registry) All() []Entry {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		out = append(out, r.entries[name])
	}
	return out
}

// Builtin returns a registry holding the built-in scenarios.
func Builtin() *Registry {
	r := NewRegistry()
	for _, e := range []Entry{
		bouncingCatEntry,
		arrowKeysEntry,
		countdownEntry,
		screenWrapEntry,
		askNameEntry,
		lightSwitchEntry,
	} {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
	return r
}

// observeFields samples fields of the scenario's sprite (or "var:<name>"
// variables) for d at the given interval.
func observeFields(ctx context.Context, env *harness.Env, d, interval time.Duration, fields ...string) (*observe.History, error) {
	return observe.Observe(ctx, harness.SampleFields(env, fields), observe.Options{
		Duration: d,
		Interval: interval,
	})
}

func reference(base []memsim.Option, extra []memsim.Option) *memsim.Sim {
	opts := make([]memsim.Option, 0, len(base)+len(extra))
	opts = append(opts, base...)
	opts = append(opts, extra...)
	return memsim.New(opts...)
}
