package browser

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/scratchbench/internal/sim"
)

// fanout delivers events to subscribers in subscription order.
type fanout struct {
	mu     sync.Mutex
	subs   map[sim.EventKind]map[sim.SubscriptionID]sim.Handler
	nextID sim.SubscriptionID
}

func newFanout() *fanout {
	return &fanout{subs: map[sim.EventKind]map[sim.SubscriptionID]sim.Handler{}}
}

func (f *fanout) add(kind sim.EventKind, h sim.Handler) (sim.SubscriptionID, error) {
	if h == nil {
		return 0, fmt.Errorf("subscribe %s: nil handler", kind)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if f.subs[kind] == nil {
		f.subs[kind] = map[sim.SubscriptionID]sim.Handler{}
	}
	f.subs[kind][f.nextID] = h
	return f.nextID, nil
}

func (f *fanout) remove(kind sim.EventKind, id sim.SubscriptionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[kind], id)
	if len(f.subs[kind]) == 0 {
		delete(f.subs, kind)
	}
}

func (f *fanout) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.subs {
		n += len(m)
	}
	return n
}

// dispatch calls handlers outside the lock so a handler may unsubscribe.
func (f *fanout) dispatch(ev sim.Event) {
	f.mu.Lock()
	ids := make([]sim.SubscriptionID, 0, len(f.subs[ev.Kind]))
	for id := range f.subs[ev.Kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]sim.Handler, len(ids))
	for i, id := range ids {
		handlers[i] = f.subs[ev.Kind][id]
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
