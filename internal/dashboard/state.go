// Package dashboard holds the in-memory view state backing the records UI:
// a cached copy of the table, the active filters, and pagination. All
// methods are safe for concurrent use.
package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/storage"
)

const defaultPageSize = 50

// Filters narrows the record table. Values within one field are OR-ed,
// fields are AND-ed together. Zero values match everything.
type Filters struct {
	Search     string   `json:"search,omitempty"`
	Sentiments []string `json:"sentiments,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Locations  []string `json:"locations,omitempty"`
	Devices    []string `json:"devices,omitempty"`
	AdClicked  *bool    `json:"ad_clicked,omitempty"`
}

// Match reports whether the record passes every active filter.
func (f Filters) Match(r analytics.Record) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.UserMessage), needle) &&
			!strings.Contains(strings.ToLower(r.ModelResponse), needle) &&
			!strings.Contains(strings.ToLower(r.AdMessage), needle) {
			return false
		}
	}
	if !matchesAny(f.Sentiments, string(r.UserSentiment)) {
		return false
	}
	if !matchesAny(f.Categories, r.MessageCategory) {
		return false
	}
	if !matchesAny(f.Locations, r.UserLocation) {
		return false
	}
	if !matchesAny(f.Devices, r.UserDevice) {
		return false
	}
	if f.AdClicked != nil && r.AdClicked != *f.AdClicked {
		return false
	}
	return true
}

func matchesAny(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

// State is the dashboard's cached view of the record table.
type State struct {
	store storage.Store

	mu          sync.RWMutex
	records     []analytics.Record
	filters     Filters
	page        int
	pageSize    int
	lastRefresh time.Time
}

// NewState creates a State reading from store. pageSize <= 0 uses the
// default of 50.
func NewState(store storage.Store, pageSize int) *State {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &State{store: store, pageSize: pageSize}
}

// Refresh reloads the cached table from the store.
func (s *State) Refresh() error {
	records, err := s.store.FetchAll()
	if err != nil {
		return fmt.Errorf("refreshing records: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.page = 0
	s.lastRefresh = time.Now().UTC()
	return nil
}

// Records returns the full cached table.
func (s *State) Records() []analytics.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]analytics.Record, len(s.records))
	copy(out, s.records)
	return out
}

// LastRefresh returns when the cache was last reloaded, zero if never.
func (s *State) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// SetFilters replaces the active filters and resets pagination.
func (s *State) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
	s.page = 0
}

// Filters returns the active filters.
func (s *State) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Filtered returns the cached records passing the active filters.
func (s *State) Filtered() []analytics.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filteredLocked()
}

func (s *State) filteredLocked() []analytics.Record {
	var out []analytics.Record
	for _, r := range s.records {
		if s.filters.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Page is one page of filtered records plus its position.
type Page struct {
	Records    []analytics.Record `json:"records"`
	Number     int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	Total      int                `json:"total"`
}

// CurrentPage returns the current page of filtered records. The page index
// is clamped into range, so an over-advanced page shows the last one.
func (s *State) CurrentPage() Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.filteredLocked()
	totalPages := (len(filtered) + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if s.page >= totalPages {
		s.page = totalPages - 1
	}
	if s.page < 0 {
		s.page = 0
	}

	start := s.page * s.pageSize
	end := start + s.pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return Page{
		Records:    filtered[start:end],
		Number:     s.page,
		TotalPages: totalPages,
		Total:      len(filtered),
	}
}

// SetPage moves to the given page; CurrentPage clamps it into range.
func (s *State) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = n
}

// csvHeader matches the chat_logs column layout.
var csvHeader = []string{
	"id", "timestamp", "user_message", "assistant_message", "user_sentiment",
	"conversation_category", "ad_message", "ad_category", "ad_clicked",
	"country", "device_type",
}

// ExportCSV writes the filtered records as CSV.
func (s *State) ExportCSV(w io.Writer) error {
	filtered := s.Filtered()

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range filtered {
		row := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.UserMessage,
			r.ModelResponse,
			string(r.UserSentiment),
			r.MessageCategory,
			r.AdMessage,
			r.AdCategory,
			strconv.FormatBool(r.AdClicked),
			r.UserLocation,
			r.UserDevice,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
