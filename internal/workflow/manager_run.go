package workflow

import (
	"context"
	"errors"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.statusOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("failed to reset stuck processing batches", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reset stuck processing batches", logging.Int64("count", reset))
	}

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleBatches(ctx, m.logger); err != nil {
			m.logger.Warn("reclaim stale processing failed; stuck batches may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		batch, err := m.nextBatch(ctx)
		if err != nil {
			m.handleNextBatchError(ctx, err)
			continue
		}
		if batch == nil {
			m.waitForBatchOrShutdown(ctx)
			continue
		}

		if err := m.processBatch(ctx, batch); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) nextBatch(ctx context.Context) (*queue.Batch, error) {
	m.mu.RLock()
	statuses := append([]queue.Status(nil), m.statusOrder...)
	m.mu.RUnlock()
	return m.store.NextForStatuses(ctx, statuses...)
}

func (m *Manager) handleNextBatchError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("failed to fetch next batch",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForBatchOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}
