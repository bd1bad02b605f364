package insight

import (
	"fmt"
	"strings"

	"github.com/chatlens/chatlens/internal/analytics"
)

// DataSummary condenses the record table into the compact text block that is
// handed to LLM providers as grounding context. Empty input yields an empty
// string; callers short-circuit before reaching a provider.
func DataSummary(records []analytics.Record) string {
	s, err := analytics.Summarize(records)
	if err != nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset Overview:\n")
	fmt.Fprintf(&sb, "- Total interactions: %d\n", s.TotalRecords)
	if !s.DateStart.IsZero() && !s.DateEnd.IsZero() {
		fmt.Fprintf(&sb, "- Date range: %s to %s\n",
			s.DateStart.Format("2006-01-02"), s.DateEnd.Format("2006-01-02"))
	}
	fmt.Fprintf(&sb, "- Unique categories: %d, locations: %d, devices: %d\n",
		s.UniqueCategories, s.UniqueLocations, s.UniqueDevices)

	sb.WriteString("\nSentiment Distribution:\n")
	for _, v := range analytics.Aggregate(records, analytics.GroupBySentiment) {
		share := float64(v.Count) / float64(s.TotalRecords) * 100
		fmt.Fprintf(&sb, "- %s: %d (%.1f%%)\n", v.Key, v.Count, share)
	}

	sb.WriteString("\nTop Categories:\n")
	for _, v := range head(analytics.Aggregate(records, analytics.GroupByCategory), 5) {
		fmt.Fprintf(&sb, "- %s: %d\n", v.Key, v.Count)
	}

	sb.WriteString("\nAd Performance:\n")
	fmt.Fprintf(&sb, "- Total clicks: %d\n", s.TotalClicks)
	fmt.Fprintf(&sb, "- Overall CTR: %.2f%%\n", s.OverallCTR)
	for _, v := range head(analytics.AggregateCTR(records, analytics.GroupByAdCategory), 3) {
		fmt.Fprintf(&sb, "- %s CTR: %.2f%%\n", v.Key, v.CTR)
	}

	fmt.Fprintf(&sb, "\nTop location: %s\nTop device: %s\n", s.TopLocation, s.TopDevice)
	return sb.String()
}

// SuggestedQuestions returns starter questions for the current table. The
// static list is reordered when the data shows notable negative sentiment or
// weak ad performance.
func SuggestedQuestions(records []analytics.Record) []string {
	questions := []string{
		"What are the top use cases for our AI chat?",
		"How does sentiment vary across different categories?",
		"Which ad categories have the highest CTR?",
		"What are the geographic patterns in user behavior?",
		"How does device type affect ad click rates?",
		"What time of day has the highest engagement?",
		"Which message categories generate the most negative sentiment?",
		"How can we improve ad performance?",
		"What are the trending topics in user messages?",
		"Which locations show the highest conversion rates?",
	}

	s, err := analytics.Summarize(records)
	if err != nil {
		return questions
	}

	negShare := float64(s.SentimentCounts[analytics.SentimentNegative]) / float64(s.TotalRecords)
	if negShare > 0.3 {
		questions = insertAt(questions, 0, "Why is there high negative sentiment and how can we improve it?")
	}
	if s.OverallCTR < 5 {
		questions = insertAt(questions, 1, "How can we improve our low click-through rates?")
	}
	return questions
}

func insertAt(qs []string, i int, q string) []string {
	if i > len(qs) {
		i = len(qs)
	}
	out := make([]string, 0, len(qs)+1)
	out = append(out, qs[:i]...)
	out = append(out, q)
	return append(out, qs[i:]...)
}
