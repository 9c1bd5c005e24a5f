package ipc

import (
	"time"

	"reelsmith/internal/queue"
)

// QueueBatch is the wire representation of a queue batch.
type QueueBatch struct {
	ID              int64      `json:"id"`
	VideoID         string     `json:"video_id"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	ImageCount      int        `json:"image_count"`
	VideoFile       string     `json:"video_file,omitempty"`
	UploadKey       string     `json:"upload_key,omitempty"`
	VideoURL        string     `json:"video_url,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	SourceChannel   string     `json:"source_channel,omitempty"`
	EventTimestamp  float64    `json:"event_timestamp,omitempty"`
	RenderDetails   string     `json:"render_details,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ProgressStage   string     `json:"progress_stage,omitempty"`
	ProgressPercent float64    `json:"progress_percent"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	LastHeartbeat   *time.Time `json:"last_heartbeat,omitempty"`
}

// FromBatch converts a queue batch into its wire representation.
func FromBatch(batch *queue.Batch) QueueBatch {
	if batch == nil {
		return QueueBatch{}
	}
	return QueueBatch{
		ID:              batch.ID,
		VideoID:         batch.VideoID,
		Title:           batch.Title,
		Status:          string(batch.Status),
		ImageCount:      batch.ImageCount,
		VideoFile:       batch.VideoFile,
		UploadKey:       batch.UploadKey,
		VideoURL:        batch.VideoURL,
		ErrorMessage:    batch.ErrorMessage,
		SourceChannel:   batch.SourceChannel,
		EventTimestamp:  batch.EventTimestamp,
		RenderDetails:   batch.RenderDetails,
		CreatedAt:       batch.CreatedAt,
		UpdatedAt:       batch.UpdatedAt,
		ProgressStage:   batch.ProgressStage,
		ProgressPercent: batch.ProgressPercent,
		ProgressMessage: batch.ProgressMessage,
		LastHeartbeat:   batch.LastHeartbeat,
	}
}

// BatchImage is the wire representation of a collected image.
type BatchImage struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// FromImage converts a queue image into its wire representation.
func FromImage(img *queue.Image) BatchImage {
	if img == nil {
		return BatchImage{}
	}
	return BatchImage{
		ID:        img.ID,
		Path:      img.Path,
		Format:    img.Format,
		Width:     img.Width,
		Height:    img.Height,
		SizeBytes: img.SizeBytes,
		CreatedAt: img.CreatedAt,
	}
}

// StageHealth describes readiness of a workflow stage.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	QueueStats   map[string]int     `json:"queue_stats"`
	LastError    string             `json:"last_error"`
	LastBatch    *QueueBatch        `json:"last_batch"`
	LockPath     string             `json:"lock_path"`
	QueueDBPath  string             `json:"queue_db_path"`
	StageHealth  []StageHealth      `json:"stage_health"`
	Dependencies []DependencyStatus `json:"dependencies"`
	PID          int                `json:"pid"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Batches []QueueBatch `json:"batches"`
}

// QueueDescribeRequest fetches a single batch by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse contains a single batch and its images.
type QueueDescribeResponse struct {
	Batch  QueueBatch   `json:"batch"`
	Images []BatchImage `json:"images"`
}

// QueueClearRequest removes all batches.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearCompletedRequest removes completed batches.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed batches.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetRequest resets in-flight batches.
type QueueResetRequest struct{}

// QueueResetResponse reports number of batches reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRetryRequest retries failed batches. Empty list means all failed batches.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried batches.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Collecting int `json:"collecting"`
	Ready      int `json:"ready"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalBatches     int      `json:"total_batches"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
