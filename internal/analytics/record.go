package analytics

import (
	"errors"
	"time"
)

// ErrNoData is returned when an operation needs at least one record.
var ErrNoData = errors.New("no data")

// Sentiment is the three-way sentiment label attached to a record.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Sentiments lists all valid sentiment labels in canonical order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// Record is one analytics row: a single user/assistant exchange plus the
// advertisement shown alongside it and user metadata.
type Record struct {
	ID              string    `json:"id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	UserMessage     string    `json:"user_message"`
	ModelResponse   string    `json:"model_response"`
	UserSentiment   Sentiment `json:"user_sentiment"`
	MessageCategory string    `json:"message_category"`
	AdMessage       string    `json:"ad_message"`
	AdCategory      string    `json:"ad_category"`
	AdClicked       bool      `json:"ad_clicked"`
	UserLocation    string    `json:"user_location"`
	UserDevice      string    `json:"user_device"`
}

// MessageCategories is the closed set of conversation categories.
var MessageCategories = []string{
	"Technical Support", "Product Inquiry", "Billing Question",
	"General Information", "Complaint", "Feature Request",
	"Account Help", "Troubleshooting", "Sales Inquiry", "Feedback",
	"Integration Help", "API Questions", "Documentation Request",
	"Bug Report", "Performance Issue", "Security Question",
}

// AdCategories is the closed set of advertisement categories.
var AdCategories = []string{
	"Software Tools", "Cloud Services", "Marketing Tools",
	"Development Frameworks", "Security Solutions", "Analytics Platforms",
	"CRM Software", "Productivity Apps", "Design Tools", "AI/ML Services",
	"Database Solutions", "DevOps Tools", "Mobile Apps", "E-commerce",
	"Communication Tools", "Project Management",
}

// Devices is the closed set of user device descriptors.
var Devices = []string{
	"iPhone 15", "iPhone 14", "iPhone 13", "Samsung Galaxy S24",
	"Samsung Galaxy S23", "MacBook Pro", "MacBook Air", "Windows Laptop",
	"iPad Pro", "iPad Air", "Surface Pro", "Chrome OS", "Android Tablet",
	"Desktop Windows", "Desktop Mac", "Linux Desktop",
}

// Locations is the closed set of user locations.
var Locations = []string{
	"New York, NY", "Los Angeles, CA", "Chicago, IL", "Houston, TX",
	"Phoenix, AZ", "Philadelphia, PA", "San Antonio, TX", "San Diego, CA",
	"Dallas, TX", "San Jose, CA", "Austin, TX", "Jacksonville, FL",
	"Fort Worth, TX", "Columbus, OH", "Charlotte, NC", "San Francisco, CA",
	"Indianapolis, IN", "Seattle, WA", "Denver, CO", "Washington, DC",
	"Boston, MA", "Nashville, TN", "Detroit, MI", "Portland, OR",
	"Memphis, TN", "Louisville, KY", "Baltimore, MD", "Milwaukee, WI",
}
