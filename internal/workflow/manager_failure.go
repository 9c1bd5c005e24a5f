package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, batch *queue.Batch, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	message := m.classifyStageFailure(stageName, stageErr)
	batch.SetFailed(message)

	logger.Error("stage failed",
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Bool("retryable", services.IsRetryable(stageErr)),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	)

	if err := m.store.Update(ctx, batch); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastBatch(batch)
	if m.notifier != nil {
		detail := fmt.Sprintf("%s stage, batch %q", stageName, batch.Title)
		if err := m.notifier.NotifyError(ctx, stageErr, detail); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		if stageName != "" {
			return fmt.Sprintf("%s failed without error detail", stageName)
		}
		return "workflow failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	return message
}
