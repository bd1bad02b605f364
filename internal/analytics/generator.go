package analytics

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// sampleQuestions are the canned user messages used for synthetic records.
var sampleQuestions = []string{
	"How do I reset my password?",
	"What are your pricing plans?",
	"Can you help me integrate your API?",
	"I'm having trouble with the login process",
	"What features are included in the pro plan?",
	"How do I export my data?",
	"Is there a mobile app available?",
	"Can I get a refund for my subscription?",
	"How do I contact technical support?",
	"What security measures do you have in place?",
	"How can I upgrade my account?",
	"Are there any training resources available?",
	"Can I customize the dashboard?",
	"What integrations do you support?",
	"How do I delete my account?",
	"Is there a free trial available?",
	"Can you help me with setup?",
	"What's the difference between plans?",
	"How do I invite team members?",
	"Can I change my email address?",
}

// sampleResponses are the canned assistant replies.
var sampleResponses = []string{
	"I can help you with that. Please check your email for password reset instructions.",
	"Our pricing starts at $9.99/month for the basic plan. Would you like me to explain the features?",
	"I'd be happy to help with API integration. Here's a link to our documentation.",
	"Let me troubleshoot this login issue with you. Can you tell me what error you're seeing?",
	"The pro plan includes advanced analytics, priority support, and custom integrations.",
	"You can export your data from the Settings > Data Export section.",
	"Yes, we have mobile apps for both iOS and Android available in the app stores.",
	"Refunds are processed within 5-7 business days. I'll initiate that for you.",
	"You can reach our technical support team at support@company.com or through live chat.",
	"We use enterprise-grade encryption and comply with SOC 2 Type II standards.",
	"I can help you upgrade your account. Which plan would you like to switch to?",
	"We offer comprehensive training materials and video tutorials in our help center.",
	"Yes, you can customize your dashboard layout and widgets from the settings panel.",
	"We integrate with over 50 popular tools including Slack, Salesforce, and Google Workspace.",
	"Account deletion can be done from Account Settings > Privacy > Delete Account.",
	"Yes, we offer a 14-day free trial with full access to all features.",
	"I'll guide you through the setup process step by step. Let's start with configuration.",
	"Here's a comparison chart showing the differences between our Basic, Pro, and Enterprise plans.",
	"Team members can be invited from the Team Management section in your dashboard.",
	"You can update your email address in Account Settings > Profile Information.",
}

// adMessages are the canned advertisement texts.
var adMessages = []string{
	"Boost your productivity with our AI-powered automation tools - 30% off this month!",
	"Secure your data with enterprise-grade cloud storage - Free trial available!",
	"Transform your marketing strategy with advanced analytics - Get started today!",
	"Build faster with our developer-friendly API platform - Documentation included!",
	"Protect your business with comprehensive cybersecurity solutions - Learn more!",
	"Streamline your workflow with intelligent project management - Free for teams under 5!",
	"Scale your business with professional CRM software - No setup fees!",
	"Create stunning designs with our intuitive design platform - Templates included!",
	"Optimize your performance with real-time monitoring tools - Start monitoring now!",
	"Connect your team with seamless communication tools - Video calls included!",
	"Manage your inventory with smart tracking solutions - Barcode scanning available!",
	"Accelerate development with automated testing frameworks - Integration ready!",
	"Enhance customer experience with AI chatbot solutions - 24/7 support included!",
	"Simplify accounting with cloud-based financial tools - Tax reporting features!",
	"Increase sales with targeted email marketing campaigns - A/B testing included!",
}

const (
	baseClickRate        = 0.05
	positiveClickFactor  = 2.0
	negativeClickFactor  = 0.5
	adAffinityFactor     = 1.5
	detailSuffixChance   = 0.3
	generationWindowDays = 90
)

// Generator produces reproducible synthetic analytics records. The same seed
// and count always yield an identical sequence.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a Generator with its own seeded random source.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Generate produces n records sorted ascending by timestamp. A non-positive
// n yields an empty slice.
func (g *Generator) Generate(n int) []Record {
	if n <= 0 {
		return []Record{}
	}

	start := g.now().UTC().Add(-generationWindowDays * 24 * time.Hour)
	records := make([]Record, 0, n)

	for i := 0; i < n; i++ {
		ts := start.
			Add(time.Duration(g.rng.Intn(generationWindowDays+1)) * 24 * time.Hour).
			Add(time.Duration(g.rng.Intn(24)) * time.Hour).
			Add(time.Duration(g.rng.Intn(60)) * time.Minute).
			Truncate(time.Minute)

		category := MessageCategories[g.rng.Intn(len(MessageCategories))]
		userMessage := sampleQuestions[g.rng.Intn(len(sampleQuestions))]
		modelResponse := sampleResponses[g.rng.Intn(len(sampleResponses))]
		sentiment := g.pickSentiment(category)

		adCategory := AdCategories[g.rng.Intn(len(AdCategories))]
		adMessage := adMessages[g.rng.Intn(len(adMessages))]
		clicked := g.rng.Float64() < clickProbability(sentiment, category, adCategory)

		location := Locations[g.rng.Intn(len(Locations))]
		device := Devices[g.rng.Intn(len(Devices))]

		// Occasionally append device/location detail so messages aren't all
		// identical across the table.
		if g.rng.Float64() < detailSuffixChance {
			userMessage += fmt.Sprintf(" I'm using %s and located in %s.",
				firstWord(device), beforeComma(location))
		}

		records = append(records, Record{
			Timestamp:       ts,
			UserMessage:     userMessage,
			ModelResponse:   modelResponse,
			UserSentiment:   sentiment,
			MessageCategory: category,
			AdMessage:       adMessage,
			AdCategory:      adCategory,
			AdClicked:       clicked,
			UserLocation:    location,
			UserDevice:      device,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records
}

// pickSentiment draws a sentiment using category-conditioned weights in
// [Positive, Neutral, Negative] order.
func (g *Generator) pickSentiment(category string) Sentiment {
	var weights [3]float64
	switch category {
	case "Complaint", "Bug Report", "Performance Issue":
		weights = [3]float64{0.2, 0.3, 0.5}
	case "Product Inquiry", "Sales Inquiry", "General Information":
		weights = [3]float64{0.6, 0.3, 0.1}
	default:
		weights = [3]float64{0.4, 0.4, 0.2}
	}

	r := g.rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return Sentiments[i]
		}
	}
	return Sentiments[len(Sentiments)-1]
}

// clickProbability applies the sentiment multiplier and the category/ad
// affinity boost to the base click rate. The affinity pairs encode an
// observed business assumption and are kept as-is.
func clickProbability(sentiment Sentiment, category, adCategory string) float64 {
	p := baseClickRate
	switch sentiment {
	case SentimentPositive:
		p *= positiveClickFactor
	case SentimentNegative:
		p *= negativeClickFactor
	}

	if (category == "Technical Support" && strings.Contains(adCategory, "Tools")) ||
		(category == "Product Inquiry" && strings.Contains(adCategory, "Software")) {
		p *= adAffinityFactor
	}
	return p
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

func beforeComma(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[:i]
	}
	return s
}
