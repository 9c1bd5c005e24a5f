// Package workflow coordinates batch processing through the render,
// upload, and publish stages. A single manager goroutine polls the queue
// for actionable batches, drives the registered stage handlers, and
// maintains heartbeats so crashed runs can be reclaimed.
package workflow
