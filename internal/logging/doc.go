// Package logging wires slog handlers and shared attribute helpers for
// daemon and CLI output. The console handler renders a compact
// timestamp/level/component line; the JSON handler is meant for log
// shipping.
package logging
