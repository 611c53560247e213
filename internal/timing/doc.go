// Package timing provides the cooperative delay and deadline primitives every
// other part of the harness is built on.
//
// None of these functions block the simulation: the simulation ticks on its
// own goroutine, and a caller suspended in Wait or WithTimeout only parks its
// own flow. Every timer created here is stopped on every return path.
package timing
