package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/chatlens/chatlens/internal/analytics"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_logs (
    id UUID PRIMARY KEY,
    timestamp TIMESTAMPTZ NOT NULL,
    user_message TEXT NOT NULL DEFAULT '',
    assistant_message TEXT NOT NULL DEFAULT '',
    user_sentiment TEXT NOT NULL DEFAULT 'Neutral',
    conversation_category TEXT NOT NULL DEFAULT 'General',
    ad_message TEXT NOT NULL DEFAULT '',
    ad_category TEXT NOT NULL DEFAULT 'General',
    ad_clicked BOOLEAN NOT NULL DEFAULT FALSE,
    country TEXT NOT NULL DEFAULT '',
    device_type TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_chat_logs_timestamp ON chat_logs (timestamp);
CREATE INDEX IF NOT EXISTS idx_chat_logs_sentiment ON chat_logs (user_sentiment);`

// Postgres is the primary record store.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the database at databaseURL and ensures the
// chat_logs table exists.
func OpenPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) InsertRecord(r analytics.Record) error {
	return p.insertRecord(p.db, r)
}

func (p *Postgres) insertRecord(ex execer, r analytics.Record) error {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := ex.Exec(`
		INSERT INTO chat_logs (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, r.Timestamp.UTC(), r.UserMessage, r.ModelResponse,
		string(r.UserSentiment), r.MessageCategory, r.AdMessage, r.AdCategory,
		r.AdClicked, r.UserLocation, r.UserDevice,
	)
	return err
}

// InsertRecords writes the batch in a single transaction.
func (p *Postgres) InsertRecords(records []analytics.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	for _, r := range records {
		if err := p.insertRecord(tx, r); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) fetchPage(limit, offset int) ([]analytics.Record, error) {
	rows, err := p.db.Query(`
		SELECT `+recordColumns+`
		FROM chat_logs ORDER BY timestamp ASC, id ASC LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []analytics.Record
	for rows.Next() {
		var r analytics.Record
		var sentiment string
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.UserMessage, &r.ModelResponse, &sentiment,
			&r.MessageCategory, &r.AdMessage, &r.AdCategory, &r.AdClicked,
			&r.UserLocation, &r.UserDevice); err != nil {
			return nil, err
		}
		r.Timestamp = r.Timestamp.UTC()
		r.UserSentiment = analytics.Sentiment(sentiment)
		results = append(results, r)
	}
	return results, rows.Err()
}

// FetchAll reads the whole table in pages of 1000 records, capped at 50000.
func (p *Postgres) FetchAll() ([]analytics.Record, error) {
	return fetchAll(p)
}

func (p *Postgres) Count() (int, error) {
	var n int
	err := p.db.QueryRow("SELECT COUNT(*) FROM chat_logs").Scan(&n)
	return n, err
}

// Replace atomically swaps the table contents for the given records.
func (p *Postgres) Replace(records []analytics.Record) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM chat_logs"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing chat_logs: %w", err)
	}
	for _, r := range records {
		if err := p.insertRecord(tx, r); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}
