package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatlens/chatlens/internal/analytics"
)

// Row is one loosely-structured record as decoded from a CSV or JSON export.
type Row map[string]any

// Column aliases seen across export formats. The canonical name comes
// first; the first populated alias wins.
var columnAliases = map[string][]string{
	"user_message":          {"user_message"},
	"assistant_message":     {"assistant_message", "model_response"},
	"user_sentiment":        {"user_sentiment"},
	"conversation_category": {"conversation_category", "message_category"},
	"ad_message":            {"ad_message"},
	"ad_category":           {"ad_category"},
	"ad_clicked":            {"ad_clicked"},
	"country":               {"country", "user_location"},
	"device_type":           {"device_type", "user_device"},
}

// trailingHourOffset matches an hour-only zone suffix after a time, so bare
// dates like 2024-05-20 are left alone.
var trailingHourOffset = regexp.MustCompile(`:\d{2}[+-](\d{2})$`)

// NormalizeRow coerces a raw row into a valid record. Missing fields get
// defaults, malformed ids are regenerated, and unusable timestamps fall back
// to the current time.
func NormalizeRow(row Row) analytics.Record {
	return analytics.Record{
		ID:              CleanID(stringField(row, "id", "")),
		Timestamp:       CleanTimestamp(stringField(row, "timestamp", "")),
		UserMessage:     alias(row, "user_message", ""),
		ModelResponse:   alias(row, "assistant_message", "No response"),
		UserSentiment:   analytics.Sentiment(alias(row, "user_sentiment", "Neutral")),
		MessageCategory: alias(row, "conversation_category", "General Information"),
		AdMessage:       alias(row, "ad_message", ""),
		AdCategory:      alias(row, "ad_category", ""),
		AdClicked:       boolField(row, "ad_clicked"),
		UserLocation:    alias(row, "country", defaultCountry),
		UserDevice:      alias(row, "device_type", defaultDevice),
	}
}

// NormalizeRows normalizes a slice of raw rows.
func NormalizeRows(rows []Row) []analytics.Record {
	records := make([]analytics.Record, len(rows))
	for i, row := range rows {
		records[i] = NormalizeRow(row)
	}
	return records
}

// CleanID validates the id as a UUID and generates a fresh one when the
// value is missing or malformed.
func CleanID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.NewString()
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.NewString()
	}
	return parsed.String()
}

// timestampLayouts are tried in order after RFC3339.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999-07:00",
	"2006-01-02T15:04:05-07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CleanTimestamp parses the value into UTC. Values that cannot be parsed,
// including impossible timezone offsets, fall back to the current time.
func CleanTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now().UTC()
	}

	// Reject trailing hour-only offsets beyond the valid range before the
	// layouts get a chance to accept them.
	if m := trailingHourOffset.FindStringSubmatch(value); m != nil {
		if hours, err := strconv.Atoi(m[1]); err == nil && hours > 14 {
			return now().UTC()
		}
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return now().UTC()
}

func alias(row Row, canonical, fallback string) string {
	for _, name := range columnAliases[canonical] {
		if v := stringField(row, name, ""); v != "" {
			return v
		}
	}
	return fallback
}

func stringField(row Row, key, fallback string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return fallback
	}
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fallback
	}
}

func boolField(row Row, key string) bool {
	v, ok := row[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(b)))
		return err == nil && parsed
	case float64:
		return b != 0
	default:
		return false
	}
}
