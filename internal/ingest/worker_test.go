package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/storage"
)

func openQueue(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWorker_ProcessesImportJob(t *testing.T) {
	queue := openQueue(t)
	im := NewImporter(queue, discardLogger())
	w := NewWorker(queue, im, time.Millisecond, discardLogger())

	rows := []Row{
		{"user_message": "hello", "assistant_message": "hi"},
		{"user_message": "my query is slow", "message_category": "Database Questions"},
	}
	jobID, err := EnqueueImport(queue, rows)
	if err != nil {
		t.Fatalf("EnqueueImport() error: %v", err)
	}

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if !done {
		t.Fatal("RunOnce() claimed no job")
	}

	n, err := queue.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d after import, want 2", n)
	}

	job, err := queue.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if job.Status != "completed" {
		t.Errorf("job status = %q, want completed", job.Status)
	}
}

func TestWorker_NoJobs(t *testing.T) {
	queue := openQueue(t)
	w := NewWorker(queue, NewImporter(queue, discardLogger()), time.Millisecond, discardLogger())

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if done {
		t.Error("RunOnce() claimed a job from an empty queue")
	}
}

func TestWorker_BadPayloadFailsJob(t *testing.T) {
	queue := openQueue(t)
	w := NewWorker(queue, NewImporter(queue, discardLogger()), time.Millisecond, discardLogger())

	job := storage.Job{ID: "bad-payload", Type: JobTypeImportRecords, PayloadJSON: "{not json", MaxAttempts: 1}
	if err := queue.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob() error: %v", err)
	}

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if !done {
		t.Fatal("RunOnce() claimed no job")
	}

	got, err := queue.GetJob("bad-payload")
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("job status = %q, want failed", got.Status)
	}
	if got.LastError == "" {
		t.Error("job has no last error recorded")
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	queue := openQueue(t)
	w := NewWorker(queue, NewImporter(queue, discardLogger()), time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
