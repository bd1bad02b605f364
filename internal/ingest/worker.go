package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chatlens/chatlens/internal/storage"
)

// JobTypeImportRecords is the queue type for deferred record imports.
const JobTypeImportRecords = "import_records"

// JobStore abstracts the job queue operations.
type JobStore interface {
	EnqueueJob(job storage.Job) error
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// importPayload carries the raw rows of a deferred import.
type importPayload struct {
	Rows []Row `json:"rows"`
}

// EnqueueImport queues raw rows for background import and returns the job id.
func EnqueueImport(store JobStore, rows []Row) (string, error) {
	payload, err := json.Marshal(importPayload{Rows: rows})
	if err != nil {
		return "", fmt.Errorf("marshaling import payload: %w", err)
	}
	job := storage.Job{ID: uuid.NewString(), Type: JobTypeImportRecords, PayloadJSON: string(payload)}
	if err := store.EnqueueJob(job); err != nil {
		return "", fmt.Errorf("enqueueing import job: %w", err)
	}
	return job.ID, nil
}

// Worker processes import_records jobs from the local job queue.
type Worker struct {
	jobs     JobStore
	importer *Importer
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(jobs JobStore, importer *Importer, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		jobs:     jobs,
		importer: importer,
		poll:     pollInterval,
		logger:   logger,
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single import job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.jobs.ClaimNextJob([]string{JobTypeImportRecords})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.jobs.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.jobs.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(job *storage.Job) error {
	var payload importPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if len(payload.Rows) == 0 {
		return nil
	}

	normalized := NormalizeRows(payload.Rows)
	res := w.importer.Import(normalized)
	w.logger.Info("import job processed",
		"job_id", job.ID, "inserted", res.Inserted, "failed", res.Failed)
	if res.Inserted == 0 && res.Failed > 0 {
		return fmt.Errorf("all %d records failed to import", res.Failed)
	}
	return nil
}
