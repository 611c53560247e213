package observe

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/scratchbench/internal/sim"
)

// Subscription is an acquired event subscription. Release is idempotent and
// safe to call from any path, so callers can defer it right after Acquire.
type Subscription struct {
	h    sim.Handle
	kind sim.EventKind
	id   sim.SubscriptionID

	once sync.Once
	err  error
}

// Acquire subscribes fn to events of kind.
func Acquire(h sim.Handle, kind sim.EventKind, fn sim.Handler) (*Subscription, error) {
	id, err := h.Subscribe(kind, fn)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", kind, err)
	}
	return &Subscription{h: h, kind: kind, id: id}, nil
}

// Kind returns the subscribed event kind.
func (s *Subscription) Kind() sim.EventKind {
	return s.kind
}

// Release unsubscribes. Only the first call has an effect.
func (s *Subscription) Release() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if err := s.h.Unsubscribe(s.kind, s.id); err != nil {
			s.err = fmt.Errorf("unsubscribe %s: %w", s.kind, err)
		}
	})
	return s.err
}

// WithSubscription runs body while fn is subscribed to kind. The subscription
// is released when body returns or panics.
func WithSubscription(h sim.Handle, kind sim.EventKind, fn sim.Handler, body func() error) (err error) {
	sub, err := Acquire(h, kind, fn)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := sub.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return body()
}

// Recorder collects events of one or more kinds until released.
type Recorder struct {
	mu     sync.Mutex
	events []sim.Event
	closed bool

	subs []*Subscription
}

func newRecorder() *Recorder {
	return &Recorder{}
}

// Record subscribes a new Recorder to every kind given. On error nothing
// stays subscribed.
func Record(h sim.Handle, kinds ...sim.EventKind) (*Recorder, error) {
	r := newRecorder()
	for _, kind := range kinds {
		sub, err := Acquire(h, kind, func(ev sim.Event) { r.add(ev) })
		if err != nil {
			_ = r.Release()
			return nil, err
		}
		r.subs = append(r.subs, sub)
	}
	return r, nil
}

// add appends ev unless the recorder was closed; it reports whether ev was
// kept.
func (r *Recorder) add(ev sim.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.events = append(r.events, ev)
	return true
}

func (r *Recorder) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Events returns the recorded events in arrival order.
func (r *Recorder) Events() []sim.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sim.Event(nil), r.events...)
}

// Texts returns the text of every recorded event of kind.
func (r *Recorder) Texts(kind sim.EventKind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev.Text)
		}
	}
	return out
}

// Transcript joins the text of every recorded event of kind with newlines.
func (r *Recorder) Transcript(kind sim.EventKind) string {
	return strings.Join(r.Texts(kind), "\n")
}

// Release stops recording and unsubscribes every kind. Events already
// recorded stay readable.
func (r *Recorder) Release() error {
	r.close()
	var errs []error
	for _, sub := range r.subs {
		errs = append(errs, sub.Release())
	}
	return errors.Join(errs...)
}
