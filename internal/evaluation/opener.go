package evaluation

import (
	"context"
	"fmt"

	"github.com/roach88/scratchbench/internal/scenarios"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/sim/browser"
	"github.com/roach88/scratchbench/internal/sim/memsim"
)

// Opener provides the simulation for one evaluation. release is called
// exactly once, after the scenario settles or the safety timeout fires.
type Opener func(ctx context.Context, task scenarios.Entry) (h sim.Handle, release func(), err error)

// MemsimOpener runs each task against a fresh copy of its reference world.
func MemsimOpener(opts ...memsim.Option) Opener {
	return func(ctx context.Context, task scenarios.Entry) (sim.Handle, func(), error) {
		if task.Reference == nil {
			return nil, nil, fmt.Errorf("task %s has no reference world", task.Name)
		}
		s := task.Reference(opts...)
		return s, func() { _ = s.Stop(context.Background()) }, nil
	}
}

// BrowserOpener opens a Chrome tab on the Scratch GUI for each task. The
// project under test is whatever the GUI page loads.
func BrowserOpener(opts browser.Options) Opener {
	return func(ctx context.Context, task scenarios.Entry) (sim.Handle, func(), error) {
		b, err := browser.Open(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	}
}
