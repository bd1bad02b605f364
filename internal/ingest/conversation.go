// Package ingest turns external chat data into stored analytics records.
// It accepts raw conversation transcripts and loosely-structured row maps
// (CSV or JSON exports), normalizes both, and imports them in batches.
package ingest

import (
	"errors"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/classify"
)

// ErrInvalidConversation is returned when a conversation payload is missing
// its id or messages.
var ErrInvalidConversation = errors.New("invalid conversation format")

// Defaults applied to records built from raw transcripts, which carry no
// ad or audience metadata of their own.
const (
	defaultDevice    = "Web Browser"
	defaultCountry   = "United States"
	defaultAdMessage = "Try our premium AI assistant for advanced features!"
	defaultAdGroup   = "AI Tools"
)

// Message is one turn of a raw conversation transcript.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Conversation is a raw transcript as exported by a chat frontend.
type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// now is swapped out in tests.
var now = time.Now

// ConversationRecords pairs user and assistant turns into analytics records.
// A user message immediately followed by an assistant message forms one
// record; anything else is skipped. Sentiment and category are derived from
// the user message.
func ConversationRecords(conv Conversation) ([]analytics.Record, error) {
	if conv.ID == "" || conv.Messages == nil {
		return nil, ErrInvalidConversation
	}

	var records []analytics.Record
	i := 0
	for i < len(conv.Messages) {
		start := i

		var userMessage, userTimestamp string
		if conv.Messages[i].Role == "user" {
			userMessage = conv.Messages[i].Content
			userTimestamp = conv.Messages[i].Timestamp
			i++
		}

		var assistantMessage string
		if i < len(conv.Messages) && conv.Messages[i].Role == "assistant" {
			assistantMessage = conv.Messages[i].Content
			i++
		}

		if userMessage == "" || assistantMessage == "" {
			// Incomplete pair. Skip one message if nothing was consumed.
			if i == start {
				i++
			}
			continue
		}

		records = append(records, analytics.Record{
			Timestamp:       messageTime(userTimestamp),
			UserMessage:     userMessage,
			ModelResponse:   assistantMessage,
			UserSentiment:   classify.Sentiment(userMessage),
			MessageCategory: classify.Category(userMessage),
			AdMessage:       defaultAdMessage,
			AdCategory:      defaultAdGroup,
			AdClicked:       false,
			UserLocation:    defaultCountry,
			UserDevice:      defaultDevice,
		})
	}

	return records, nil
}

func messageTime(ts string) time.Time {
	if ts == "" {
		return now().UTC()
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return now().UTC()
	}
	return t.UTC()
}
