package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
)

// Store manages batch persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewBatch inserts a new collecting batch. The title may be empty and filled
// in later from the first payload that carries one.
func (s *Store) NewBatch(ctx context.Context, title string) (*Batch, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO batches (
            video_id, title, status, created_at, updated_at,
            progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		nullableString(title),
		StatusCollecting,
		timestamp,
		timestamp,
		nil,
		0.0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// CurrentCollecting returns the open collecting batch, or nil when none exists.
// At most one batch collects at a time; the oldest wins if the invariant is
// ever violated.
func (s *Store) CurrentCollecting(ctx context.Context) (*Batch, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+batchColumns+` FROM batches WHERE status = ? ORDER BY id LIMIT 1`,
		StatusCollecting,
	)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current collecting batch: %w", err)
	}
	return batch, nil
}

// GetByID fetches a batch by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// Update persists changes to an existing batch.
func (s *Store) Update(ctx context.Context, batch *Batch) error {
	if batch == nil {
		return errors.New("batch is nil")
	}
	batch.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE batches
         SET video_id = ?, title = ?, status = ?, video_file = ?, upload_key = ?,
             video_url = ?, error_message = ?, source_channel = ?, event_timestamp = ?,
             render_details_json = ?, updated_at = ?, progress_stage = ?,
             progress_percent = ?, progress_message = ?, last_heartbeat = ?
         WHERE id = ?`,
		batch.VideoID,
		nullableString(batch.Title),
		batch.Status,
		nullableString(batch.VideoFile),
		nullableString(batch.UploadKey),
		nullableString(batch.VideoURL),
		nullableString(batch.ErrorMessage),
		nullableString(batch.SourceChannel),
		batch.EventTimestamp,
		nullableString(batch.RenderDetails),
		batch.UpdatedAt.Format(time.RFC3339Nano),
		nullableString(batch.ProgressStage),
		batch.ProgressPercent,
		nullableString(batch.ProgressMessage),
		nullableTime(batch.LastHeartbeat),
		batch.ID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// AddImage records a validated image against a batch and bumps its count.
func (s *Store) AddImage(ctx context.Context, batchID int64, img Image) (*Image, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add image tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO batch_images (batch_id, path, format, width, height, size_bytes, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batchID,
		img.Path,
		img.Format,
		img.Width,
		img.Height,
		img.SizeBytes,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE batches SET image_count = image_count + 1, updated_at = ? WHERE id = ?`,
		timestamp,
		batchID,
	); err != nil {
		return nil, fmt.Errorf("bump image count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add image: %w", err)
	}

	stored := img
	stored.ID = id
	stored.BatchID = batchID
	stored.CreatedAt = now
	return &stored, nil
}

// ImagesForBatch returns a batch's images ordered by insertion.
func (s *Store) ImagesForBatch(ctx context.Context, batchID int64) ([]*Image, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, batch_id, path, format, width, height, size_bytes, created_at
         FROM batch_images WHERE batch_id = ? ORDER BY id`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query batch images: %w", err)
	}
	defer rows.Close()

	var images []*Image
	for rows.Next() {
		var (
			img        Image
			createdRaw sql.NullString
		)
		if err := rows.Scan(&img.ID, &img.BatchID, &img.Path, &img.Format, &img.Width, &img.Height, &img.SizeBytes, &createdRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			img.CreatedAt = created
		}
		images = append(images, &img)
	}
	return images, rows.Err()
}

// RemoveImages deletes a batch's image rows, typically after the source files
// have been cleaned up post-render.
func (s *Store) RemoveImages(ctx context.Context, batchID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batch_images WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, fmt.Errorf("remove batch images: %w", err)
	}
	return res.RowsAffected()
}

// List returns batches filtered by status set (or all batches when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Batch, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + batchColumns + ` FROM batches`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// NextForStatuses returns the oldest batch matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Batch, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + batchColumns + ` FROM batches WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ResetStuckProcessing rolls batches stuck in processing states back to the
// preceding stable status.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE batches
             SET status = ?, progress_stage = 'Reset from stuck processing',
                 progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
             WHERE status = ?`,
			transition.to,
			timestamp,
			transition.from,
		)
		if err != nil {
			return total, fmt.Errorf("reset stuck batches: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight batch.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE batches SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing rolls batches with expired heartbeats back to the
// preceding stable status.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	cutoffValue := cutoff.UTC().Format(time.RFC3339Nano)
	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE batches
             SET status = ?, progress_stage = 'Reclaimed from stale processing',
                 progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
             WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
			transition.to,
			timestamp,
			transition.from,
			cutoffValue,
		)
		if err != nil {
			return total, fmt.Errorf("reclaim stale batches: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// retrySettledStatus derives the status a failed batch returns to from how
// far it got before failing. A batch with an upload URL only needs to
// publish again, one with a rendered file only needs to upload again, and
// anything earlier re-renders. Source images are deleted after a successful
// render, so sending a rendered batch back to ready would strand it.
const retrySettledStatus = `CASE
            WHEN video_url IS NOT NULL AND video_url != '' THEN '` + string(StatusUploaded) + `'
            WHEN video_file IS NOT NULL AND video_file != '' THEN '` + string(StatusRendered) + `'
            ELSE '` + string(StatusReady) + `'
        END`

// RetryFailed moves failed batches back to their preceding settled status
// for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE batches
            SET status = `+retrySettledStatus+`,
                progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed batches: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE batches
        SET status = ` + retrySettledStatus + `,
            progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected batches: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of batches grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM batches GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusCollecting:
			health.Collecting += count
		case StatusReady:
			health.Ready += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		default:
			if _, ok := processingStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		DBPath:        s.path,
		SchemaVersion: fmt.Sprintf("%d", schemaVersion),
	}

	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("queue database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'batches'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(batches)")
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("table info: %w", err)
		}
		defer colsRows.Close()

		var columns []string
		for colsRows.Next() {
			var (
				cid     int
				name    string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("scan table info: %w", err)
			}
			columns = append(columns, name)
		}
		if err := colsRows.Err(); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("iterate table info: %w", err)
		}
		health.ColumnsPresent = append(health.ColumnsPresent, columns...)

		expected := []string{"id", "video_id", "title", "status", "image_count", "video_file", "upload_key", "video_url", "error_message", "source_channel", "event_timestamp", "render_details_json", "created_at", "updated_at", "progress_stage", "progress_percent", "progress_message", "last_heartbeat"}
		missingMap := make(map[string]struct{}, len(expected))
		for _, col := range expected {
			missingMap[col] = struct{}{}
		}
		for _, col := range columns {
			delete(missingMap, col)
		}
		for col := range missingMap {
			health.MissingColumns = append(health.MissingColumns, col)
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM batches")
		if err := row.Scan(&health.TotalBatches); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count batches: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

// Remove deletes a batch by identifier. Image rows cascade.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed batches from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all batches from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed batches from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

const batchColumns = "id, video_id, title, status, image_count, video_file, upload_key, video_url, error_message, source_channel, event_timestamp, render_details_json, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat"

func scanBatch(scanner interface{ Scan(dest ...any) error }) (*Batch, error) {
	var (
		id               int64
		videoID          string
		title            sql.NullString
		statusStr        string
		imageCount       sql.NullInt64
		videoFile        sql.NullString
		uploadKey        sql.NullString
		videoURL         sql.NullString
		errorMessage     sql.NullString
		sourceChannel    sql.NullString
		eventTimestamp   sql.NullFloat64
		renderDetails    sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&videoID,
		&title,
		&statusStr,
		&imageCount,
		&videoFile,
		&uploadKey,
		&videoURL,
		&errorMessage,
		&sourceChannel,
		&eventTimestamp,
		&renderDetails,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	batch := &Batch{
		ID:              id,
		VideoID:         videoID,
		Title:           title.String,
		Status:          Status(statusStr),
		ImageCount:      int(imageCount.Int64),
		VideoFile:       videoFile.String,
		UploadKey:       uploadKey.String,
		VideoURL:        videoURL.String,
		ErrorMessage:    errorMessage.String,
		SourceChannel:   sourceChannel.String,
		EventTimestamp:  eventTimestamp.Float64,
		RenderDetails:   renderDetails.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		batch.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		batch.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			batch.LastHeartbeat = &heartbeat
		}
	}
	return batch, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
