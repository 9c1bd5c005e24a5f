package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

func (m *Manager) processBatch(ctx context.Context, batch *queue.Batch) error {
	m.mu.RLock()
	stg, ok := m.stageByStart[batch.Status]
	m.mu.RUnlock()
	if !ok {
		m.logger.Warn("no stage configured for status", logging.String("status", string(batch.Status)))
		m.waitForBatchOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(
		services.WithStage(services.WithBatchID(ctx, batch.ID), stg.name),
		requestID,
	)
	stageLogger := logging.WithContext(stageCtx, m.logger)

	if err := m.transitionToProcessing(stageCtx, stg, batch); err != nil {
		stageLogger.Error("failed to transition batch to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, batch)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, batch *queue.Batch) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("title", strings.TrimSpace(batch.Title)),
	)

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String(logging.FieldStage, stg.name))
		batch.Status = queue.StatusFailed
		batch.ErrorMessage = fmt.Sprintf("stage %s missing handler", stg.name)
		if err := m.store.Update(ctx, batch); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		m.setLastError(errors.New("stage handler unavailable"))
		return errors.New("stage handler unavailable")
	}

	if err := handler.Prepare(ctx, batch); err != nil {
		m.handleStageFailure(ctx, stg.name, batch, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, batch); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, handler, batch)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, batch, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if batch.Status == stg.processingStatus || batch.Status == "" {
		batch.Status = stg.doneStatus
	}
	batch.LastHeartbeat = nil
	if batch.Status == queue.StatusCompleted {
		if batch.ProgressPercent < 100 {
			batch.ProgressPercent = 100
		}
		if strings.TrimSpace(batch.ProgressMessage) == "" {
			batch.ProgressMessage = deriveStageLabel(queue.StatusCompleted)
		}
	}
	if err := m.store.Update(ctx, batch); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(batch.Status)),
		logging.String("progress_message", strings.TrimSpace(batch.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastBatch(batch)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, batch *queue.Batch) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, batch.ID)

	execErr := handler.Execute(ctx, batch)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, batch *queue.Batch) error {
	if stg.processingStatus == "" {
		return errors.New("processing status must not be empty")
	}

	now := time.Now().UTC()
	batch.Status = stg.processingStatus
	if batch.ProgressStage == "" {
		batch.ProgressStage = deriveStageLabel(stg.processingStatus)
	}
	if batch.ProgressMessage == "" {
		batch.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(stg.processingStatus))
	}
	batch.ProgressPercent = 0
	batch.ErrorMessage = ""
	batch.LastHeartbeat = &now

	if err := m.store.Update(ctx, batch); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastBatch(batch)
	return nil
}
