// Package evaluation runs one named task end to end: it looks the task up,
// opens a simulation for it, runs the scenario under a service-level safety
// timeout, captures the log lines of the run and persists the report.
//
// The safety timeout is independent of the per-case budget. When it fires
// the report is failed with "evaluation timeout after <N>s", the simulation
// is released, and the scenario's eventual result is discarded.
package evaluation
