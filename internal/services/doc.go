// Package services holds cross-cutting helpers shared by stage handlers:
// error classification sentinels and context annotation for structured
// logging.
package services
