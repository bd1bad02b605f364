package ingest

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chatlens/chatlens/internal/analytics"
)

func TestNormalizeRow_CanonicalColumns(t *testing.T) {
	withFixedNow(t)

	id := uuid.NewString()
	r := NormalizeRow(Row{
		"id":                    id,
		"timestamp":             "2024-05-01T10:30:00Z",
		"user_message":          "does the api support webhooks?",
		"assistant_message":     "Yes, via the events endpoint.",
		"user_sentiment":        "Positive",
		"conversation_category": "API Questions",
		"ad_message":            "Ship faster with our SDK",
		"ad_category":           "Developer Tools",
		"ad_clicked":            true,
		"country":               "Germany",
		"device_type":           "MacBook Pro",
	})

	if r.ID != id {
		t.Errorf("ID = %q, want %q", r.ID, id)
	}
	if !r.Timestamp.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", r.Timestamp)
	}
	if r.ModelResponse != "Yes, via the events endpoint." {
		t.Errorf("ModelResponse = %q", r.ModelResponse)
	}
	if r.UserSentiment != analytics.SentimentPositive || !r.AdClicked {
		t.Errorf("sentiment/clicked = %q/%v", r.UserSentiment, r.AdClicked)
	}
	if r.UserLocation != "Germany" || r.UserDevice != "MacBook Pro" {
		t.Errorf("location/device = %q/%q", r.UserLocation, r.UserDevice)
	}
}

func TestNormalizeRow_Aliases(t *testing.T) {
	withFixedNow(t)

	r := NormalizeRow(Row{
		"model_response":   "aliased answer",
		"message_category": "Database Questions",
		"user_location":    "France",
		"user_device":      "iPad Pro",
	})

	if r.ModelResponse != "aliased answer" {
		t.Errorf("ModelResponse = %q, want aliased value", r.ModelResponse)
	}
	if r.MessageCategory != "Database Questions" {
		t.Errorf("MessageCategory = %q", r.MessageCategory)
	}
	if r.UserLocation != "France" || r.UserDevice != "iPad Pro" {
		t.Errorf("location/device = %q/%q", r.UserLocation, r.UserDevice)
	}
}

func TestNormalizeRow_Defaults(t *testing.T) {
	withFixedNow(t)

	r := NormalizeRow(Row{})

	if r.UserSentiment != analytics.SentimentNeutral {
		t.Errorf("UserSentiment = %q, want Neutral", r.UserSentiment)
	}
	if r.MessageCategory != "General Information" {
		t.Errorf("MessageCategory = %q, want General Information", r.MessageCategory)
	}
	if r.ModelResponse != "No response" {
		t.Errorf("ModelResponse = %q, want No response", r.ModelResponse)
	}
	if r.UserLocation != "United States" || r.UserDevice != "Web Browser" {
		t.Errorf("location/device = %q/%q", r.UserLocation, r.UserDevice)
	}
	if r.AdClicked {
		t.Error("AdClicked defaulted to true")
	}
	if !r.Timestamp.Equal(fixedNow()) {
		t.Errorf("Timestamp = %v, want current time", r.Timestamp)
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		t.Errorf("generated ID %q is not a UUID: %v", r.ID, err)
	}
}

func TestNormalizeRow_BoolCoercion(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"TRUE", true},
		{"false", false},
		{"yes", false},
		{float64(1), true},
		{float64(0), false},
		{nil, false},
	}
	for _, tt := range tests {
		r := NormalizeRow(Row{"ad_clicked": tt.value})
		if r.AdClicked != tt.want {
			t.Errorf("ad_clicked %v (%T) = %v, want %v", tt.value, tt.value, r.AdClicked, tt.want)
		}
	}
}

func TestCleanID(t *testing.T) {
	valid := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	if got := CleanID("  " + valid + " "); got != valid {
		t.Errorf("CleanID(valid) = %q, want %q", got, valid)
	}

	for _, bad := range []string{"", "not-a-uuid", "12345"} {
		got := CleanID(bad)
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("CleanID(%q) = %q, not a valid UUID", bad, got)
		}
		if got == bad {
			t.Errorf("CleanID(%q) kept the invalid value", bad)
		}
	}
}

func TestCleanTimestamp(t *testing.T) {
	withFixedNow(t)

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"rfc3339", "2024-05-01T10:30:00Z", time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"offset", "2024-05-01T10:30:00+02:00", time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)},
		{"short offset", "2024-05-01T10:30:00+02", time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)},
		{"no zone", "2024-05-01T10:30:00", time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"space separator", "2024-05-01 10:30:00", time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"bare date", "2024-05-20", time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)},
		{"empty", "", fixedNow()},
		{"garbage", "yesterday-ish", fixedNow()},
		{"impossible offset", "2024-05-01T10:30:00+99", fixedNow()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTimestamp(tt.value); !got.Equal(tt.want) {
				t.Errorf("CleanTimestamp(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
