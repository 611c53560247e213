// Package memsim is an in-process, deterministic stand-in for the Scratch VM.
//
// A Sim owns a World (stage, sprites, globals, input device state) and a set
// of Programs. Start runs every program's init function against the world and
// then steps all programs on a fixed tick from a single goroutine, the same
// way the VM's sequencer advances green-flag scripts. Programs see a fixed dt
// per tick, so two Sims built from the same options and driven with the same
// inputs evolve identically.
//
// The Sim keeps counters the harness tests rely on: keys currently held,
// whether the mouse button is down, and how many event listeners are
// registered.
package memsim
