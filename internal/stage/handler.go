package stage

import (
	"context"

	"reelsmith/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Batch) error
	Execute(context.Context, *queue.Batch) error
	HealthCheck(context.Context) Health
}
