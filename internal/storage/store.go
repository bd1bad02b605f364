// Package storage persists chat log records. Postgres is the primary
// backend; a local SQLite database doubles as fallback record store and as
// the job queue for background imports.
package storage

import (
	"errors"
	"log/slog"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const (
	// fetchPageSize is the page length used when reading the whole table.
	fetchPageSize = 1000
	// fetchMaxRecords caps a full-table read so a runaway table cannot
	// exhaust memory.
	fetchMaxRecords = 50000
)

// Store is the record persistence surface shared by both backends.
type Store interface {
	InsertRecord(r analytics.Record) error
	InsertRecords(records []analytics.Record) error
	FetchAll() ([]analytics.Record, error)
	Count() (int, error)
	Replace(records []analytics.Record) error
	Close() error
}

// Job is a queued background task.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// pager is implemented by both backends; fetchAll drives it page by page.
type pager interface {
	fetchPage(limit, offset int) ([]analytics.Record, error)
}

// fetchAll reads the whole table in pages, stopping on a short page or when
// the record cap is reached.
func fetchAll(p pager) ([]analytics.Record, error) {
	var all []analytics.Record
	for offset := 0; offset < fetchMaxRecords; offset += fetchPageSize {
		limit := fetchPageSize
		if remaining := fetchMaxRecords - offset; remaining < limit {
			limit = remaining
		}

		page, err := p.fetchPage(limit, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < limit {
			break
		}
	}
	return all, nil
}

// Open selects the record store. With a database URL it tries Postgres and
// degrades to the local store on failure; without one the local store is
// used directly.
func Open(databaseURL string, local Store, logger *slog.Logger) Store {
	if databaseURL == "" {
		return local
	}
	pg, err := OpenPostgres(databaseURL)
	if err != nil {
		logger.Warn("postgres unavailable, using local store", "error", err)
		return local
	}
	return pg
}
