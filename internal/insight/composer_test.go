package insight

import (
	"strings"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
)

func sentimentRecords(positive, neutral, negative int) []analytics.Record {
	var records []analytics.Record
	add := func(n int, s analytics.Sentiment) {
		for i := 0; i < n; i++ {
			records = append(records, analytics.Record{
				UserSentiment:   s,
				MessageCategory: "General Chat",
				UserLocation:    "Austin, TX",
				UserDevice:      "iPhone 15",
				AdCategory:      "Software Tools",
			})
		}
	}
	add(positive, analytics.SentimentPositive)
	add(neutral, analytics.SentimentNeutral)
	add(negative, analytics.SentimentNegative)
	return records
}

func TestCompose_EmptyTable(t *testing.T) {
	c := NewComposer()
	if got := c.Compose(nil, "anything at all"); got != "No data available for analysis." {
		t.Errorf("Compose(nil) = %q", got)
	}
}

func TestCompose_SentimentDistribution(t *testing.T) {
	c := NewComposer()
	got := c.Compose(sentimentRecords(50, 30, 20), "What about sentiment trends?")

	if !strings.Contains(got, "Positive: 50.0%, Neutral: 30.0%, Negative: 20.0%") {
		t.Errorf("sentiment insight missing distribution: %q", got)
	}
	// Neither threshold crossed: negative is not above 30% and positive is
	// not above 50%, so no qualitative remark is added.
	if strings.Contains(got, "negative sentiment") || strings.Contains(got, "positive sentiment") {
		t.Errorf("unexpected qualitative remark: %q", got)
	}
}

func TestCompose_SentimentRemarks(t *testing.T) {
	c := NewComposer()

	got := c.Compose(sentimentRecords(10, 30, 60), "overall mood")
	if !strings.Contains(got, "High negative sentiment") {
		t.Errorf("expected negative remark, got %q", got)
	}

	got = c.Compose(sentimentRecords(70, 20, 10), "overall mood")
	if !strings.Contains(got, "Strong positive sentiment") {
		t.Errorf("expected positive remark, got %q", got)
	}
}

func TestCompose_SentimentBeatsTrend(t *testing.T) {
	// "sentiment trends" matches both the sentiment and the trend rule; the
	// sentiment rule comes first and must win.
	c := NewComposer()
	got := c.Compose(sentimentRecords(5, 3, 2), "sentiment trends over time")
	if !strings.HasPrefix(got, "**Sentiment Analysis:**") {
		t.Errorf("expected sentiment insight, got %q", got)
	}
}

func TestCompose_Categories(t *testing.T) {
	records := sentimentRecords(6, 0, 0)
	for i := range records[:4] {
		records[i].MessageCategory = "Technical Support"
	}

	c := NewComposer()
	got := c.Compose(records, "what is the most common topic?")
	if !strings.Contains(got, "Technical Support (4 messages)") {
		t.Errorf("category insight missing counts: %q", got)
	}
	if !strings.Contains(got, "The most common use case is Technical Support with 4 messages.") {
		t.Errorf("category insight missing leader sentence: %q", got)
	}
}

func TestCompose_CTR(t *testing.T) {
	records := sentimentRecords(10, 0, 0)
	records[0].AdClicked = true
	records[1].AdClicked = true

	c := NewComposer()
	got := c.Compose(records, "how are ads performing?")
	if !strings.Contains(got, "**Overall CTR:** 20.00%") {
		t.Errorf("CTR insight wrong overall rate: %q", got)
	}
	if !strings.Contains(got, "Positive: 20.0%") {
		t.Errorf("CTR insight missing per-sentiment rate: %q", got)
	}
}

func TestCompose_CTRSentimentOrder(t *testing.T) {
	records := sentimentRecords(2, 2, 2)
	records[0].AdClicked = true

	c := NewComposer()
	got := c.Compose(records, "how are ads performing?")
	if !strings.Contains(got, "CTR by sentiment: Negative: 0.0%, Neutral: 0.0%, Positive: 50.0%") {
		t.Errorf("per-sentiment rates not in alphabetical group order: %q", got)
	}
}

func TestCompose_Devices(t *testing.T) {
	records := sentimentRecords(4, 0, 0)
	records[2].UserDevice = "Windows Desktop"
	records[3].UserDevice = "Samsung Galaxy S24"

	c := NewComposer()
	got := c.Compose(records, "which devices do people use?")
	if !strings.Contains(got, "Mobile devices account for 75.0% of interactions.") {
		t.Errorf("device insight wrong mobile share: %q", got)
	}
}

func TestCompose_Trends(t *testing.T) {
	records := sentimentRecords(3, 0, 0)
	for i := range records {
		records[i].Timestamp = time.Date(2024, 5, 1, 14, i, 0, 0, time.UTC)
	}

	c := NewComposer()
	got := c.Compose(records, "when is peak usage?")
	if !strings.Contains(got, "Peak activity occurs at 14:00") {
		t.Errorf("trend insight wrong peak hour: %q", got)
	}
}

func TestCompose_TrendsWithoutTimestamps(t *testing.T) {
	c := NewComposer()
	got := c.Compose(sentimentRecords(3, 0, 0), "any usage patterns?")
	if !strings.Contains(got, "not available without timestamp data") {
		t.Errorf("expected timestamp disclaimer, got %q", got)
	}
}

func TestCompose_Overview(t *testing.T) {
	c := NewComposer()
	got := c.Compose(sentimentRecords(5, 3, 2), "tell me about the data")
	if !strings.HasPrefix(got, "**Data Overview:**") {
		t.Errorf("expected overview insight, got %q", got)
	}
	if !strings.Contains(got, "Total interactions: 10") {
		t.Errorf("overview missing total: %q", got)
	}
}

func TestDataSummary(t *testing.T) {
	got := DataSummary(sentimentRecords(5, 3, 2))
	for _, want := range []string{
		"Total interactions: 10",
		"Positive: 5 (50.0%)",
		"Overall CTR: 0.00%",
		"Top device: iPhone 15",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DataSummary missing %q in:\n%s", want, got)
		}
	}
}

func TestDataSummary_Empty(t *testing.T) {
	if got := DataSummary(nil); got != "" {
		t.Errorf("DataSummary(nil) = %q, want empty", got)
	}
}

func TestSuggestedQuestions(t *testing.T) {
	base := SuggestedQuestions(nil)
	if len(base) != 10 {
		t.Fatalf("static list has %d questions, want 10", len(base))
	}

	// All clicks false: CTR 0% triggers the low-CTR question; sentiment is
	// entirely negative, which triggers the negative-sentiment question first.
	qs := SuggestedQuestions(sentimentRecords(0, 0, 10))
	if len(qs) != 12 {
		t.Fatalf("got %d questions, want 12", len(qs))
	}
	if qs[0] != "Why is there high negative sentiment and how can we improve it?" {
		t.Errorf("first question = %q, want negative-sentiment prompt", qs[0])
	}
	if qs[1] != "How can we improve our low click-through rates?" {
		t.Errorf("second question = %q, want low-CTR prompt", qs[1])
	}
}
