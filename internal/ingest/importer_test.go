package ingest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/chatlens/chatlens/internal/analytics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyStore rejects batch inserts and individual records whose user message
// is marked bad, to exercise the per-record retry path.
type flakyStore struct {
	records      []analytics.Record
	rejectBatch  bool
	batchCalls   int
	insertCalls  int
}

func (f *flakyStore) InsertRecord(r analytics.Record) error {
	f.insertCalls++
	if r.UserMessage == "bad" {
		return errors.New("constraint violation")
	}
	f.records = append(f.records, r)
	return nil
}

func (f *flakyStore) InsertRecords(records []analytics.Record) error {
	f.batchCalls++
	if f.rejectBatch {
		return errors.New("batch rejected")
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *flakyStore) FetchAll() ([]analytics.Record, error) { return f.records, nil }
func (f *flakyStore) Count() (int, error)                   { return len(f.records), nil }
func (f *flakyStore) Replace(records []analytics.Record) error {
	f.records = records
	return nil
}
func (f *flakyStore) Close() error { return nil }

func makeRecords(n int) []analytics.Record {
	records := make([]analytics.Record, n)
	for i := range records {
		records[i] = analytics.Record{UserMessage: fmt.Sprintf("message %d", i)}
	}
	return records
}

func TestImport_Batches(t *testing.T) {
	store := &flakyStore{}
	im := NewImporter(store, discardLogger())

	res := im.Import(makeRecords(250))
	if res.Inserted != 250 || res.Failed != 0 {
		t.Errorf("Result = %+v, want 250 inserted", res)
	}
	// 250 records in batches of 100 means three batch calls.
	if store.batchCalls != 3 {
		t.Errorf("batch calls = %d, want 3", store.batchCalls)
	}
	if store.insertCalls != 0 {
		t.Errorf("individual inserts = %d, want 0", store.insertCalls)
	}
}

func TestImport_RetriesFailedBatchPerRecord(t *testing.T) {
	store := &flakyStore{rejectBatch: true}
	im := NewImporter(store, discardLogger())

	records := makeRecords(5)
	records[2].UserMessage = "bad"

	res := im.Import(records)
	if res.Inserted != 4 || res.Failed != 1 {
		t.Errorf("Result = %+v, want 4 inserted and 1 failed", res)
	}
	if store.insertCalls != 5 {
		t.Errorf("individual inserts = %d, want 5", store.insertCalls)
	}
}

func TestImport_Empty(t *testing.T) {
	store := &flakyStore{}
	im := NewImporter(store, discardLogger())

	res := im.Import(nil)
	if res.Inserted != 0 || res.Failed != 0 {
		t.Errorf("Result = %+v, want zero activity", res)
	}
}
