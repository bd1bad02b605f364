// Package insight answers natural-language questions about an analytics
// table. The Composer is a deterministic keyword-dispatch rule table; the
// Engine layers optional LLM providers on top of it.
package insight

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/chatlens/chatlens/internal/analytics"
)

const noDataMessage = "No data available for analysis."

var mobileDevicePattern = regexp.MustCompile(`(?i)iphone|ipad|samsung|android`)

// rule pairs a keyword predicate with a renderer. Rules are evaluated in
// order; the first whose keyword set matches the query wins.
type rule struct {
	keywords []string
	render   func(records []analytics.Record) string
}

// Composer produces rule-based insight text from records and a user query.
type Composer struct {
	rules []rule
}

// NewComposer builds the Composer with its fixed, ordered rule table.
func NewComposer() *Composer {
	return &Composer{
		rules: []rule{
			{[]string{"sentiment", "mood", "feeling", "emotion"}, renderSentiment},
			{[]string{"category", "topic", "use case", "common"}, renderCategories},
			{[]string{"ctr", "click", "ad", "performance", "conversion"}, renderCTR},
			{[]string{"location", "geographic", "region", "city"}, renderLocations},
			{[]string{"device", "mobile", "desktop", "platform"}, renderDevices},
			{[]string{"trend", "pattern", "time", "when"}, renderTrends},
		},
	}
}

// Compose answers the query from the record table. An empty table always
// yields the explicit no-data message, never an error.
func (c *Composer) Compose(records []analytics.Record, userQuery string) string {
	if len(records) == 0 {
		return noDataMessage
	}

	query := strings.ToLower(userQuery)
	for _, r := range c.rules {
		if matchesAny(query, r.keywords) {
			return r.render(records)
		}
	}
	return renderOverview(records)
}

func matchesAny(query string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(query, kw) {
			return true
		}
	}
	return false
}

func renderSentiment(records []analytics.Record) string {
	total := len(records)
	views := analytics.Aggregate(records, analytics.GroupBySentiment)

	parts := make([]string, 0, len(views))
	shares := make(map[string]float64, len(views))
	for _, v := range views {
		share := float64(v.Count) / float64(total) * 100
		shares[v.Key] = share
		parts = append(parts, fmt.Sprintf("%s: %.1f%%", v.Key, share))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Sentiment Analysis:** %s.", strings.Join(parts, ", "))
	if shares[string(analytics.SentimentNegative)] > 30 {
		sb.WriteString(" High negative sentiment suggests areas for improvement in user experience.")
	} else if shares[string(analytics.SentimentPositive)] > 50 {
		sb.WriteString(" Strong positive sentiment indicates good user satisfaction.")
	}
	return sb.String()
}

func renderCategories(records []analytics.Record) string {
	views := analytics.Aggregate(records, analytics.GroupByCategory)
	top := head(views, 5)

	parts := make([]string, len(top))
	for i, v := range top {
		parts[i] = fmt.Sprintf("%s (%d messages)", v.Key, v.Count)
	}
	return fmt.Sprintf("**Top Categories:** %s. The most common use case is %s with %d messages.",
		strings.Join(parts, ", "), top[0].Key, top[0].Count)
}

func renderCTR(records []analytics.Record) string {
	clicks := 0
	for _, r := range records {
		if r.AdClicked {
			clicks++
		}
	}
	overall := float64(clicks) / float64(len(records)) * 100

	bySentiment := analytics.Aggregate(records, analytics.GroupBySentiment)
	ctrs := make(map[string]float64, len(bySentiment))
	for _, v := range bySentiment {
		ctrs[v.Key] = v.CTR
	}

	// Sentiment groups render in alphabetical key order.
	keys := make([]string, 0, len(ctrs))
	for k := range ctrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %.1f%%", k, ctrs[k]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Overall CTR:** %.2f%%. CTR by sentiment: %s.", overall, strings.Join(parts, ", "))
	if ctrs[string(analytics.SentimentPositive)] > overall*1.5 {
		sb.WriteString(" Positive sentiment users are significantly more likely to click ads.")
	}
	return sb.String()
}

func renderLocations(records []analytics.Record) string {
	views := analytics.Aggregate(records, analytics.GroupByLocation)
	top := head(views, 5)

	parts := make([]string, len(top))
	for i, v := range top {
		parts[i] = fmt.Sprintf("%s (%d)", v.Key, v.Count)
	}
	return fmt.Sprintf("**Top Locations:** %s. %s has the highest activity with %d interactions.",
		strings.Join(parts, ", "), top[0].Key, top[0].Count)
}

func renderDevices(records []analytics.Record) string {
	views := analytics.Aggregate(records, analytics.GroupByDevice)
	top := head(views, 5)

	parts := make([]string, len(top))
	for i, v := range top {
		parts[i] = fmt.Sprintf("%s (%d)", v.Key, v.Count)
	}

	mobile := 0
	for _, r := range records {
		if mobileDevicePattern.MatchString(r.UserDevice) {
			mobile++
		}
	}
	mobileShare := float64(mobile) / float64(len(records)) * 100

	return fmt.Sprintf("**Device Distribution:** %s. Mobile devices account for %.1f%% of interactions.",
		strings.Join(parts, ", "), mobileShare)
}

func renderTrends(records []analytics.Record) string {
	hour, ok := analytics.PeakHour(records)
	if !ok {
		return "**Usage Patterns:** Time-based analysis not available without timestamp data."
	}
	return fmt.Sprintf("**Usage Patterns:** Peak activity occurs at %d:00. Most interactions happen during business hours.", hour)
}

func renderOverview(records []analytics.Record) string {
	s, err := analytics.Summarize(records)
	if err != nil {
		return noDataMessage
	}

	categories := analytics.Aggregate(records, analytics.GroupByCategory)
	return fmt.Sprintf(`**Data Overview:**
- Total interactions: %d
- Most common category: %s (%d occurrences)
- Overall sentiment: %s (most common)
- Overall CTR: %.2f%%
- Top location: %s
- Top device: %s`,
		s.TotalRecords, s.TopCategory, categories[0].Count, s.TopSentiment,
		s.OverallCTR, s.TopLocation, s.TopDevice)
}

func head(views []analytics.View, n int) []analytics.View {
	if len(views) < n {
		return views
	}
	return views[:n]
}
