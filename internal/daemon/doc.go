// Package daemon wires the queue store, event bus consumer, and workflow
// manager into a single-instance background service.
package daemon
