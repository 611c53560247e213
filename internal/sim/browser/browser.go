package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/roach88/scratchbench/internal/sim"
)

// Defaults for Options.
const (
	DefaultGUIURL       = "http://localhost:8601"
	DefaultPollInterval = 50 * time.Millisecond
	DefaultLoadTimeout  = 60 * time.Second
)

// Options configures Open.
type Options struct {
	// RemoteURL is a DevTools websocket URL of an already running Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string

	// GUIURL is the Scratch GUI page exposing window.vm.
	GUIURL string

	// Headful shows the locally launched browser window.
	Headful bool

	PollInterval time.Duration
	LoadTimeout  time.Duration

	Logger logrus.FieldLogger
}

// Browser is a sim.Handle backed by a Chrome tab.
type Browser struct {
	log      logrus.FieldLogger
	tab      context.Context
	cancel   func()
	interval time.Duration

	events *fanout

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

var _ sim.Handle = (*Browser)(nil)

// Open connects to Chrome, loads the GUI and waits for its VM. The browser
// lives until Close is called or ctx is cancelled.
func Open(ctx context.Context, opts Options) (*Browser, error) {
	if opts.GUIURL == "" {
		opts.GUIURL = DefaultGUIURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	log := opts.Logger.WithField("component", "browser")

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", !opts.Headful))
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}
	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Debugf),
		chromedp.WithErrorf(log.Errorf),
	)

	chromedp.ListenTarget(tab, func(ev any) {
		if ev, ok := ev.(*runtime.EventConsoleAPICalled); ok {
			args := make([]string, len(ev.Args))
			for i, arg := range ev.Args {
				args[i] = string(arg.Value)
			}
			log.WithField("console", ev.Type).Debug(strings.Join(args, " "))
		}
	})

	b := &Browser{
		log: log,
		tab: tab,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		interval: opts.PollInterval,
		events:   newFanout(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	log.WithField("url", opts.GUIURL).Info("loading scratch gui")
	err := chromedp.Run(tab,
		chromedp.Navigate(opts.GUIURL),
		chromedp.Poll(vmReady, nil, chromedp.WithPollingTimeout(opts.LoadTimeout)),
		chromedp.Evaluate(installQueue, nil),
	)
	if err != nil {
		b.cancel()
		return nil, fmt.Errorf("load %s: %w", opts.GUIURL, err)
	}

	go b.poll()
	return b, nil
}

// Close stops the event poll loop and closes the tab (and the browser when
// it was launched locally).
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
		b.cancel()
	})
	return nil
}

// eval runs a JavaScript expression in the page. ctx bounds the call; the
// tab outlives it.
func (b *Browser) eval(ctx context.Context, expr string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(b.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, out)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (b *Browser) callFn(ctx context.Context, fn string, out any, args ...any) error {
	expr, err := call(fn, args...)
	if err != nil {
		return err
	}
	return b.eval(ctx, expr, out)
}

// Start clicks the green flag.
func (b *Browser) Start(ctx context.Context) error {
	if err := b.eval(ctx, greenFlag, nil); err != nil {
		return fmt.Errorf("green flag: %w", err)
	}
	return nil
}

// Stop halts every running script.
func (b *Browser) Stop(ctx context.Context) error {
	if err := b.eval(ctx, stopAll, nil); err != nil {
		return fmt.Errorf("stop all: %w", err)
	}
	return nil
}

// Actors lists the original (non-clone) targets, stage first.
func (b *Browser) Actors(ctx context.Context) ([]sim.Actor, error) {
	var actors []sim.Actor
	if err := b.eval(ctx, listActors, &actors); err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}
	return actors, nil
}

func (b *Browser) target(ctx context.Context, actor sim.Actor) (*targetState, error) {
	var st *targetState
	if err := b.callFn(ctx, readTarget, &st, actor.ID); err != nil {
		return nil, fmt.Errorf("read %s: %w", actor.Name, err)
	}
	if st == nil {
		return nil, &sim.NotFoundError{Kind: sim.NotFoundActor, Name: actor.Name}
	}
	return st, nil
}

// ReadField reads one field of an actor.
func (b *Browser) ReadField(ctx context.Context, actor sim.Actor, field sim.Field) (any, error) {
	st, err := b.target(ctx, actor)
	if err != nil {
		return nil, err
	}
	return st.field(field)
}

// Variables lists an actor's variables (sorted by name) followed by its lists.
func (b *Browser) Variables(ctx context.Context, actor sim.Actor) ([]sim.Variable, error) {
	st, err := b.target(ctx, actor)
	if err != nil {
		return nil, err
	}
	return st.variables(), nil
}

// Subscribe registers h for events of kind. Handlers run on the poll
// goroutine.
func (b *Browser) Subscribe(kind sim.EventKind, h sim.Handler) (sim.SubscriptionID, error) {
	return b.events.add(kind, h)
}

// Unsubscribe removes a handler; unknown ids are ignored.
func (b *Browser) Unsubscribe(kind sim.EventKind, id sim.SubscriptionID) error {
	b.events.remove(kind, id)
	return nil
}

// ListenerCount returns the number of registered event handlers.
func (b *Browser) ListenerCount() int {
	return b.events.count()
}

// PostInput posts one event through vm.postIOData, or emits ANSWER for
// answers.
func (b *Browser) PostInput(ctx context.Context, ev sim.InputEvent) error {
	if ev.Device == sim.DeviceAnswer {
		return b.callFn(ctx, answer, nil, ev.Text)
	}
	device, data, err := ioData(ev)
	if err != nil {
		return err
	}
	return b.callFn(ctx, postIO, nil, device, data)
}

func (b *Browser) poll() {
	defer close(b.doneCh)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-b.tab.Done():
			return
		case <-ticker.C:
			b.drain()
		}
	}
}

func (b *Browser) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*b.interval+time.Second)
	defer cancel()

	var queued []pageEvent
	if err := b.eval(ctx, drainQueue, &queued); err != nil {
		b.log.WithError(err).Debug("drain event queue")
		return
	}
	for _, pe := range queued {
		b.events.dispatch(pe.event())
	}
}
