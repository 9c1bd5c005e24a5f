// Package queue persists image batches and their lifecycle in SQLite.
//
// A batch starts in collecting while images arrive from the event bus,
// flips to ready once enough images accumulate, and then moves through
// rendering, uploading, and publishing until completed or failed. The
// store serializes all writes through a single database handle with WAL
// enabled, so the daemon and CLI can share one database file. When you
// add new statuses or columns, update schema.sql and bump schemaVersion.
package queue
