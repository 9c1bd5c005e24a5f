package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a batch.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusReady      Status = "ready"
	StatusRendering  Status = "rendering"
	StatusRendered   Status = "rendered"
	StatusUploading  Status = "uploading"
	StatusUploaded   Status = "uploaded"
	StatusPublishing Status = "publishing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when batches are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusCollecting,
	StatusReady,
	StatusRendering,
	StatusRendered,
	StatusUploading,
	StatusUploaded,
	StatusPublishing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusRendering:  {},
	StatusUploading:  {},
	StatusPublishing: {},
}

type statusTransition struct {
	from Status
	to   Status
}

var stageRollbackTransitions = []statusTransition{
	{from: StatusRendering, to: StatusReady},
	{from: StatusUploading, to: StatusRendered},
	{from: StatusPublishing, to: StatusUploaded},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalBatches     int
	Error            string
}

// HealthSummary describes aggregated batch counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Collecting int
	Ready      int
	Processing int
	Failed     int
	Completed  int
}

// Batch represents an image batch persisted in SQLite.
type Batch struct {
	ID              int64
	VideoID         string
	Title           string
	Status          Status
	ImageCount      int
	VideoFile       string
	UploadKey       string
	VideoURL        string
	ErrorMessage    string
	SourceChannel   string
	EventTimestamp  float64
	RenderDetails   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
}

// Image represents a validated image stored on disk and attached to a batch.
type Image struct {
	ID        int64
	BatchID   int64
	Path      string
	Format    string
	Width     int
	Height    int
	SizeBytes int64
	CreatedAt time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (b Batch) IsProcessing() bool {
	_, ok := processingStatuses[b.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// InitProgress resets progress fields for a new stage. If ProgressStage is
// currently empty it is set to the provided stage value; otherwise the
// existing stage is preserved to support resume scenarios.
func (b *Batch) InitProgress(stage, message string) {
	if b.ProgressStage == "" {
		b.ProgressStage = stage
	}
	b.ProgressMessage = message
	b.ProgressPercent = 0
	b.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (b *Batch) SetProgress(stage, message string, percent float64) {
	b.ProgressStage = stage
	b.ProgressMessage = message
	b.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (b *Batch) SetProgressComplete(stage, message string) {
	b.SetProgress(stage, message, 100)
}

// SetFailed marks the batch as failed with the given error message.
func (b *Batch) SetFailed(message string) {
	b.Status = StatusFailed
	b.ErrorMessage = message
	b.ProgressPercent = 0
	b.ProgressMessage = message
	b.LastHeartbeat = nil
	b.ProgressStage = "Failed"
}

// StageKey returns the normalized stage identifier used in API/CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusCollecting:
		return "collecting"
	case StatusCompleted:
		return "final"
	case StatusReady,
		StatusRendering,
		StatusRendered,
		StatusUploading,
		StatusUploaded,
		StatusPublishing,
		StatusFailed:
		return string(s)
	default:
		return ""
	}
}
