package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chatlens/chatlens/internal/analytics"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(i int) analytics.Record {
	return analytics.Record{
		ID:              uuid.NewString(),
		Timestamp:       time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		UserMessage:     fmt.Sprintf("question %d", i),
		ModelResponse:   fmt.Sprintf("answer %d", i),
		UserSentiment:   analytics.SentimentPositive,
		MessageCategory: "Technical Support",
		AdMessage:       "Try our new tool",
		AdCategory:      "Software Tools",
		AdClicked:       i%10 == 0,
		UserLocation:    "Austin, TX",
		UserDevice:      "iPhone 15",
	}
}

func TestMigrations_Applied(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations() error: %v", err)
	}
	if len(versions) == 0 || versions[0] != 1 {
		t.Errorf("applied versions = %v, want [1 ...]", versions)
	}
}

func TestInsertAndFetchRoundtrip(t *testing.T) {
	s := openTestStore(t)

	want := testRecord(0)
	if err := s.InsertRecord(want); err != nil {
		t.Fatalf("InsertRecord() error: %v", err)
	}

	got, err := s.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FetchAll() returned %d records, want 1", len(got))
	}

	r := got[0]
	if r.ID != want.ID || r.UserMessage != want.UserMessage || r.ModelResponse != want.ModelResponse {
		t.Errorf("record fields = %+v, want %+v", r, want)
	}
	if !r.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", r.Timestamp, want.Timestamp)
	}
	if r.UserSentiment != want.UserSentiment || r.AdClicked != want.AdClicked {
		t.Errorf("sentiment/clicked = %v/%v, want %v/%v",
			r.UserSentiment, r.AdClicked, want.UserSentiment, want.AdClicked)
	}
}

func TestInsertRecord_GeneratesID(t *testing.T) {
	s := openTestStore(t)

	r := testRecord(0)
	r.ID = ""
	if err := s.InsertRecord(r); err != nil {
		t.Fatalf("InsertRecord() error: %v", err)
	}

	got, err := s.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}
	if got[0].ID == "" {
		t.Error("stored record has empty id")
	}
	if _, err := uuid.Parse(got[0].ID); err != nil {
		t.Errorf("stored id %q is not a UUID: %v", got[0].ID, err)
	}
}

func TestInsertRecords_Transactional(t *testing.T) {
	s := openTestStore(t)

	first := testRecord(0)
	dup := testRecord(1)
	dup.ID = first.ID

	err := s.InsertRecords([]analytics.Record{first, dup})
	if err == nil {
		t.Fatal("expected error on duplicate primary key")
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d after failed batch, want 0 (rolled back)", n)
	}
}

func TestFetchAll_PagedAndOrdered(t *testing.T) {
	s := openTestStore(t)

	// More than one page forces the pager through at least two round trips.
	records := make([]analytics.Record, 1500)
	for i := range records {
		records[i] = testRecord(i)
	}
	if err := s.InsertRecords(records); err != nil {
		t.Fatalf("InsertRecords() error: %v", err)
	}

	got, err := s.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}
	if len(got) != 1500 {
		t.Fatalf("FetchAll() returned %d records, want 1500", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("records out of order at index %d", i)
		}
	}
}

func TestCount(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		if err := s.InsertRecord(testRecord(i)); err != nil {
			t.Fatalf("InsertRecord() error: %v", err)
		}
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 5 {
		t.Errorf("Count() = %d, want 5", n)
	}
}

func TestReplace(t *testing.T) {
	s := openTestStore(t)

	old := make([]analytics.Record, 3)
	for i := range old {
		old[i] = testRecord(i)
	}
	if err := s.InsertRecords(old); err != nil {
		t.Fatalf("InsertRecords() error: %v", err)
	}

	fresh := []analytics.Record{testRecord(100), testRecord(101)}
	if err := s.Replace(fresh); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}

	got, err := s.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FetchAll() returned %d records after Replace, want 2", len(got))
	}
	for _, r := range got {
		if !strings.HasPrefix(r.UserMessage, "question 10") {
			t.Errorf("unexpected surviving record %q", r.UserMessage)
		}
	}
}

// --- Jobs ---

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: uuid.NewString(), Type: "import_records", PayloadJSON: `{"source":"upload"}`}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob() error: %v", err)
	}

	claimed, err := s.ClaimNextJob([]string{"import_records"})
	if err != nil {
		t.Fatalf("ClaimNextJob() error: %v", err)
	}
	if claimed == nil {
		t.Fatal("ClaimNextJob() returned nil, want the enqueued job")
	}
	if claimed.ID != job.ID || claimed.Status != "running" {
		t.Errorf("claimed = %+v, want id %s with status running", claimed, job.ID)
	}

	// A second claim must find nothing while the job runs.
	again, err := s.ClaimNextJob([]string{"import_records"})
	if err != nil {
		t.Fatalf("second ClaimNextJob() error: %v", err)
	}
	if again != nil {
		t.Errorf("claimed running job twice: %+v", again)
	}

	if err := s.CompleteJob(claimed.ID); err != nil {
		t.Fatalf("CompleteJob() error: %v", err)
	}

	got, err := s.GetJob(claimed.ID)
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if got.Status != "completed" {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestClaimNextJob_FiltersByType(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: uuid.NewString(), Type: "other"}); err != nil {
		t.Fatalf("EnqueueJob() error: %v", err)
	}

	claimed, err := s.ClaimNextJob([]string{"import_records"})
	if err != nil {
		t.Fatalf("ClaimNextJob() error: %v", err)
	}
	if claimed != nil {
		t.Errorf("claimed job of wrong type: %+v", claimed)
	}
}

func TestFailJob_RetriesWithBackoff(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: uuid.NewString(), Type: "import_records", MaxAttempts: 3}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob() error: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"import_records"}); err != nil {
		t.Fatalf("ClaimNextJob() error: %v", err)
	}

	if err := s.FailJob(job.ID, "connection refused"); err != nil {
		t.Fatalf("FailJob() error: %v", err)
	}

	got, err := s.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if got.Status != "pending" {
		t.Errorf("status = %q, want pending for retry", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if got.LastError != "connection refused" {
		t.Errorf("last error = %q", got.LastError)
	}
	if !got.RunAfter.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("run_after = %v, want backoff into the future", got.RunAfter)
	}

	// The backoff keeps the job out of reach for an immediate claim.
	claimed, err := s.ClaimNextJob([]string{"import_records"})
	if err != nil {
		t.Fatalf("ClaimNextJob() error: %v", err)
	}
	if claimed != nil {
		t.Errorf("claimed job before backoff elapsed: %+v", claimed)
	}
}

func TestFailJob_ExhaustsAttempts(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: uuid.NewString(), Type: "import_records", MaxAttempts: 1}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob() error: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"import_records"}); err != nil {
		t.Fatalf("ClaimNextJob() error: %v", err)
	}

	if err := s.FailJob(job.ID, "still broken"); err != nil {
		t.Fatalf("FailJob() error: %v", err)
	}

	got, err := s.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("status = %q, want failed after max attempts", got.Status)
	}
}

func TestJobErrNotFound(t *testing.T) {
	s := openTestStore(t)

	if err := s.CompleteJob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteJob(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.FailJob("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FailJob(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetJob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrNotFound", err)
	}
}
