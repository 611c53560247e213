// Package harness runs behavioral checks against a live simulation.
//
// A Scenario is an ordered list of Cases. The Runner executes them strictly
// one after another against a single sim.Handle, because cases share its
// mutable state. Each case moves through
//
//	PENDING -> RUNNING -> PASSED | FAILED | ERRORED | TIMED_OUT
//
// Setup stops the simulation (and optionally restarts it) before the body
// runs; teardown stops it again, releases every held key and mouse button
// and drops the case's event listeners. Teardown runs exactly once on every
// path, including a body that panics or overruns its budget. A failing case
// never aborts the scenario, and the caller always receives a ScenarioResult
// unless the scenario's own Prepare hook fails.
//
// # Definition Format
//
// Scenarios can also be declared in YAML and compiled with
// Definition.Compile:
//
//	name: arrow_right_moves
//	description: pressing the right arrow moves the sprite right
//	sprite: Cat
//	aliases: [Sprite1]
//	timeout: 5
//	cases:
//	  - name: moves_right
//	    steps:
//	      - start: {}
//	      - key_down: ArrowRight
//	      - observe: {fields: [x], duration_ms: 1500, interval_ms: 100}
//	      - key_up: ArrowRight
//	    expect:
//	      - alignment: {field: x, sign: 1, min_ratio: 0.6, min_frames: 3}
//
// Definitions are decoded strictly (unknown fields are rejected) and
// validated against an embedded CUE schema before compilation.
//
// # Usage
//
//	def, err := harness.LoadDefinition("scenarios/arrow.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sc, err := def.Compile()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := harness.NewRunner(logger).RunScenario(ctx, handle, sc, harness.Config{}, closePage)
package harness
