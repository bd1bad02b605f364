// Package classify assigns coarse sentiment and category labels to free
// text using keyword matching. Both classifiers are pure functions of the
// lower-cased input.
package classify

import (
	"strings"

	"github.com/chatlens/chatlens/internal/analytics"
)

var positiveWords = []string{
	"good", "great", "excellent", "perfect", "amazing", "wonderful",
	"fantastic", "awesome", "brilliant", "help", "thanks", "thank you",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "horrible", "disappointing", "frustrating",
	"annoying", "difficult", "problem", "error", "fail",
}

// categoryRule maps a keyword set to a category label. Rules are evaluated
// in order; the first match wins.
type categoryRule struct {
	keywords []string
	label    string
}

var categoryRules = []categoryRule{
	{[]string{"error", "bug", "problem", "issue", "debug"}, "Technical Support"},
	{[]string{"price", "cost", "billing", "payment", "subscription"}, "Billing Question"},
	{[]string{"api", "integration", "code", "programming", "function", "variable"}, "API Questions"},
	{[]string{"database", "sql", "query", "postgresql", "mysql"}, "Database Questions"},
}

const defaultCategory = "General Information"

// Sentiment scores the text against the positive and negative word sets and
// returns the dominant label. Ties, including no matches at all, resolve to
// Neutral.
func Sentiment(text string) analytics.Sentiment {
	lower := strings.ToLower(text)

	positive := 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	negative := 0
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return analytics.SentimentPositive
	case negative > positive:
		return analytics.SentimentNegative
	default:
		return analytics.SentimentNeutral
	}
}

// Category returns the first category whose keyword set matches the text,
// falling back to General Information.
func Category(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return defaultCategory
}
