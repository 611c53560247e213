// Package input translates abstract input intents into events for the
// simulation's IO intake and keeps a ledger of everything still held.
//
// The ledger is what makes teardown safe: every key or mouse button pressed
// through an Adapter is released by ReleaseAll/Close, even when the case that
// pressed it failed, errored or timed out. A release that fails stays in the
// ledger so that a later ReleaseAll or Close retries it. A closed Adapter
// rejects further input, so a timed-out case body that keeps running cannot
// press keys into the next case.
package input

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/timing"
)

// DefaultClickHold is the press-to-release delay of ClickAt.
const DefaultClickHold = 30 * time.Millisecond

// ErrClosed is returned by every operation on a closed Adapter.
var ErrClosed = errors.New("input adapter closed")

// ClickOptions tunes ClickAt.
type ClickOptions struct {
	// Hold is how long the button stays down. Zero means DefaultClickHold.
	Hold time.Duration
}

// Adapter posts input events to one simulation on behalf of one case.
type Adapter struct {
	h   sim.Handle
	log logrus.FieldLogger

	// sem is a one-slot lock held while an event is posted. Unlike a mutex,
	// acquiring it gives up when ctx ends.
	sem       chan struct{}
	held      map[string]struct{}
	mouseHeld bool
	mouseX    float64
	mouseY    float64

	rejecting atomic.Bool
}

// New creates an Adapter bound to h.
func New(h sim.Handle, log logrus.FieldLogger) *Adapter {
	return &Adapter{
		h:    h,
		log:  log.WithField("component", "input"),
		sem:  make(chan struct{}, 1),
		held: map[string]struct{}{},
	}
}

func (a *Adapter) lock(ctx context.Context) error {
	select {
	case a.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("input busy: %w", ctx.Err())
	}
}

func (a *Adapter) unlock() {
	<-a.sem
}

// postLocked sends one event on behalf of a caller; the caller holds the
// lock so that Close cannot interleave with a press.
func (a *Adapter) postLocked(ctx context.Context, ev sim.InputEvent) error {
	if a.rejecting.Load() {
		return ErrClosed
	}
	return a.send(ctx, ev)
}

func (a *Adapter) send(ctx context.Context, ev sim.InputEvent) error {
	if err := a.h.PostInput(ctx, ev); err != nil {
		return fmt.Errorf("post %s input: %w", ev.Device, err)
	}
	a.log.WithFields(logrus.Fields{
		"device":  ev.Device,
		"key":     ev.Key,
		"x":       ev.X,
		"y":       ev.Y,
		"is_down": ev.IsDown,
	}).Debug("input posted")
	return nil
}

// KeyDown presses and holds a key until KeyUp or ReleaseAll.
func (a *Adapter) KeyDown(ctx context.Context, key string) error {
	key = NormalizeKey(key)
	if key == "" {
		return fmt.Errorf("key down: empty key")
	}

	if err := a.lock(ctx); err != nil {
		return err
	}
	defer a.unlock()

	if err := a.postLocked(ctx, sim.InputEvent{Device: sim.DeviceKeyboard, Key: key, IsDown: true}); err != nil {
		return err
	}
	a.held[key] = struct{}{}
	return nil
}

// KeyUp releases a key.
func (a *Adapter) KeyUp(ctx context.Context, key string) error {
	key = NormalizeKey(key)
	if key == "" {
		return fmt.Errorf("key up: empty key")
	}

	if err := a.lock(ctx); err != nil {
		return err
	}
	defer a.unlock()

	if err := a.postLocked(ctx, sim.InputEvent{Device: sim.DeviceKeyboard, Key: key}); err != nil {
		return err
	}
	delete(a.held, key)
	return nil
}

// PressKey holds a key for hold and releases it. The release is posted even
// when the hold is interrupted by ctx.
func (a *Adapter) PressKey(ctx context.Context, key string, hold time.Duration) error {
	if err := a.KeyDown(ctx, key); err != nil {
		return err
	}
	waitErr := timing.Wait(ctx, hold)
	if err := a.KeyUp(context.WithoutCancel(ctx), key); err != nil {
		return err
	}
	return waitErr
}

// Hotkey presses a key combination: every key but the last is held in order,
// the last key is pressed, then the held keys are released in reverse order.
func (a *Adapter) Hotkey(ctx context.Context, keys ...string) (err error) {
	if len(keys) == 0 {
		return fmt.Errorf("hotkey: keys must not be empty")
	}

	var pressed []string
	defer func() {
		release := context.WithoutCancel(ctx)
		for i := len(pressed) - 1; i >= 0; i-- {
			if upErr := a.KeyUp(release, pressed[i]); upErr != nil && err == nil {
				err = upErr
			}
		}
	}()

	for _, k := range keys[:len(keys)-1] {
		if err := a.KeyDown(ctx, k); err != nil {
			return err
		}
		pressed = append(pressed, k)
	}
	return a.PressKey(ctx, keys[len(keys)-1], 0)
}

// MouseMove moves the pointer without changing the button state.
func (a *Adapter) MouseMove(ctx context.Context, x, y float64) error {
	if err := a.lock(ctx); err != nil {
		return err
	}
	defer a.unlock()

	if err := a.postLocked(ctx, sim.InputEvent{Device: sim.DeviceMouse, X: x, Y: y, Move: true}); err != nil {
		return err
	}
	a.mouseX, a.mouseY = x, y
	return nil
}

// MouseDown presses the button at (x, y).
func (a *Adapter) MouseDown(ctx context.Context, x, y float64) error {
	if err := a.lock(ctx); err != nil {
		return err
	}
	defer a.unlock()

	if err := a.postLocked(ctx, sim.InputEvent{Device: sim.DeviceMouse, X: x, Y: y, IsDown: true}); err != nil {
		return err
	}
	a.mouseX, a.mouseY = x, y
	a.mouseHeld = true
	return nil
}

// MouseUp releases the button at (x, y).
func (a *Adapter) MouseUp(ctx context.Context, x, y float64) error {
	if err := a.lock(ctx); err != nil {
		return err
	}
	defer a.unlock()

	if err := a.postLocked(ctx, sim.InputEvent{Device: sim.DeviceMouse, X: x, Y: y}); err != nil {
		return err
	}
	a.mouseX, a.mouseY = x, y
	a.mouseHeld = false
	return nil
}

// ClickAt moves to (x, y), presses, holds and releases. The release is
// posted even when the hold is interrupted by ctx.
func (a *Adapter) ClickAt(ctx context.Context, x, y float64, opts ClickOptions) error {
	hold := opts.Hold
	if hold <= 0 {
		hold = DefaultClickHold
	}

	if err := a.MouseMove(ctx, x, y); err != nil {
		return err
	}
	if err := a.MouseDown(ctx, x, y); err != nil {
		return err
	}
	waitErr := timing.Wait(ctx, hold)
	if err := a.MouseUp(context.WithoutCancel(ctx), x, y); err != nil {
		return err
	}
	return waitErr
}

// AnswerPendingQuestion submits text to the question prompt currently shown.
func (a *Adapter) AnswerPendingQuestion(ctx context.Context, text string) error {
	if err := a.lock(ctx); err != nil {
		return err
	}
	defer a.unlock()

	return a.postLocked(ctx, sim.InputEvent{Device: sim.DeviceAnswer, Text: text})
}

// Held returns the keys pressed through this adapter and not yet released.
func (a *Adapter) Held() []string {
	_ = a.lock(context.Background())
	defer a.unlock()

	return a.heldLocked()
}

func (a *Adapter) heldLocked() []string {
	keys := make([]string, 0, len(a.held))
	for k := range a.held {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MouseHeld reports whether the button was pressed and not yet released.
func (a *Adapter) MouseHeld() bool {
	_ = a.lock(context.Background())
	defer a.unlock()
	return a.mouseHeld
}

// Holding reports whether any key or the mouse button is still held.
func (a *Adapter) Holding() bool {
	_ = a.lock(context.Background())
	defer a.unlock()
	return len(a.held) > 0 || a.mouseHeld
}

// ReleaseAll posts exactly one release for every held key and for a held
// mouse button. Input whose release fails stays held in the ledger.
func (a *Adapter) ReleaseAll(ctx context.Context) error {
	if err := a.lock(ctx); err != nil {
		return fmt.Errorf("release held input: %w", err)
	}
	defer a.unlock()

	return a.releaseLocked(ctx)
}

func (a *Adapter) releaseLocked(ctx context.Context) error {
	var errs []error
	for _, k := range a.heldLocked() {
		if err := a.send(ctx, sim.InputEvent{Device: sim.DeviceKeyboard, Key: k}); err != nil {
			errs = append(errs, fmt.Errorf("release key %s: %w", k, err))
			continue
		}
		delete(a.held, k)
		a.log.WithField("key", k).Debug("released held key")
	}

	if a.mouseHeld {
		if err := a.send(ctx, sim.InputEvent{Device: sim.DeviceMouse, X: a.mouseX, Y: a.mouseY}); err != nil {
			errs = append(errs, fmt.Errorf("release mouse button: %w", err))
		} else {
			a.mouseHeld = false
			a.log.Debug("released held mouse button")
		}
	}

	return errors.Join(errs...)
}

// Reject makes every later input operation fail with ErrClosed without
// releasing anything. It never blocks, so it may run while an operation is
// still in flight.
func (a *Adapter) Reject() {
	a.rejecting.Store(true)
}

// Close rejects further input and releases everything still held. Calling
// Close again retries releases that failed; with nothing held it posts
// nothing.
func (a *Adapter) Close(ctx context.Context) error {
	a.Reject()
	return a.ReleaseAll(ctx)
}
