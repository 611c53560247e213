// Package sim defines the boundary between the evaluation harness and the
// simulation it observes.
//
// The simulation (a Scratch virtual machine running in a browser page, or the
// in-process memsim used by tests) is an external collaborator. The harness
// only ever talks to it through Handle: start/stop, actor enumeration, field
// reads, event subscription and input posting. Every harness operation takes
// the Handle as an explicit parameter; there is no global simulation.
package sim
