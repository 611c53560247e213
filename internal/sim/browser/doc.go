// Package browser implements sim.Handle against a Scratch GUI page driven
// through the Chrome DevTools protocol.
//
// The page must expose the virtual machine as window.vm. On Open the adapter
// navigates to the GUI, waits for the VM, and installs a small in-page queue
// that collects say/question/answer events. A poll loop drains that queue and
// fans the events out to subscribers, so handlers run on the poll goroutine
// rather than inside the page.
//
// Inputs are delivered with vm.postIOData, the same intake the GUI uses, and
// answers are emitted as the runtime's ANSWER event.
package browser
