// Package ipc exposes daemon control over a Unix domain socket using
// JSON-RPC. The CLI is the only intended client.
package ipc
