package ingest

import (
	"log/slog"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/storage"
)

// batchSize keeps individual inserts well under payload limits.
const batchSize = 100

// Result reports the outcome of an import.
type Result struct {
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

// Importer writes records to the store in batches.
type Importer struct {
	store  storage.Store
	logger *slog.Logger
}

// NewImporter creates an Importer writing to store.
func NewImporter(store storage.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: store, logger: logger}
}

// Import inserts records in batches of 100. A failed batch is retried one
// record at a time so a single bad row cannot sink its neighbors; rows that
// still fail are counted, not returned as an error.
func (im *Importer) Import(records []analytics.Record) Result {
	var res Result
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		err := im.store.InsertRecords(batch)
		if err == nil {
			res.Inserted += len(batch)
			continue
		}
		im.logger.Warn("batch insert failed, retrying records individually",
			"batch_start", start, "batch_size", len(batch), "error", err)

		for _, r := range batch {
			if err := im.store.InsertRecord(r); err != nil {
				im.logger.Warn("record insert failed", "record_id", r.ID, "error", err)
				res.Failed++
				continue
			}
			res.Inserted++
		}
	}
	return res
}
