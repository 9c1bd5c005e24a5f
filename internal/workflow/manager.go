package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
	"reelsmith/internal/stage"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Renderer  stage.Handler
	Uploader  stage.Handler
	Publisher stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	statusOrder  []queue.Status

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastBatch *queue.Batch
}

// NewManager constructs a workflow manager with the default notifier.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger.With(logging.String(logging.FieldComponent, "workflow-manager")),
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// ConfigureStages registers the pipeline handlers. Must be called before Start.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := []pipelineStage{
		{
			name:             "render",
			handler:          set.Renderer,
			startStatus:      queue.StatusReady,
			processingStatus: queue.StatusRendering,
			doneStatus:       queue.StatusRendered,
		},
		{
			name:             "upload",
			handler:          set.Uploader,
			startStatus:      queue.StatusRendered,
			processingStatus: queue.StatusUploading,
			doneStatus:       queue.StatusUploaded,
		},
		{
			name:             "publish",
			handler:          set.Publisher,
			startStatus:      queue.StatusUploaded,
			processingStatus: queue.StatusPublishing,
			doneStatus:       queue.StatusCompleted,
		},
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = m.stages[:0]
	m.stageByStart = make(map[queue.Status]pipelineStage, len(stages))
	m.statusOrder = m.statusOrder[:0]
	for _, stg := range stages {
		if stg.handler == nil {
			continue
		}
		m.stages = append(m.stages, stg)
		m.stageByStart[stg.startStatus] = stg
		m.statusOrder = append(m.statusOrder, stg.startStatus)
	}
}

func deriveStageLabel(status queue.Status) string {
	switch status {
	case queue.StatusRendering:
		return "Rendering"
	case queue.StatusUploading:
		return "Uploading"
	case queue.StatusPublishing:
		return "Publishing"
	case queue.StatusCompleted:
		return "Completed"
	default:
		return string(status)
	}
}
