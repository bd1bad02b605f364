package insight

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
)

// Insight sources, reported alongside every answer.
const (
	SourceLLM   = "llm"
	SourceRules = "rules"
)

const defaultProviderTimeout = 30 * time.Second

// Provider generates insight text from a data summary and a user query.
// Implementations talk to external models and may fail or time out.
type Provider interface {
	Name() string
	GenerateInsight(ctx context.Context, dataSummary, userQuery string) (string, error)
}

// Engine answers analytics questions. Providers are tried in order and the
// first success wins; any provider failure degrades to the rule-based
// Composer, so the Engine itself never fails.
type Engine struct {
	providers []Provider
	composer  *Composer
	timeout   time.Duration
	logger    *slog.Logger
}

// NewEngine wires providers ahead of the rule-based fallback. providers may
// be empty, in which case every answer comes from the Composer.
func NewEngine(providers []Provider, timeout time.Duration, logger *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		providers: providers,
		composer:  NewComposer(),
		timeout:   timeout,
		logger:    logger,
	}
}

// Insight answers the query and reports which source produced the answer.
func (e *Engine) Insight(ctx context.Context, records []analytics.Record, userQuery string) (string, string) {
	if len(records) == 0 {
		return noDataMessage, SourceRules
	}

	summary := DataSummary(records)
	for _, p := range e.providers {
		text, err := e.tryProvider(ctx, p, summary, userQuery)
		if err != nil {
			e.logger.Warn("insight provider failed, trying next",
				"provider", p.Name(), "error", err)
			continue
		}
		return text, SourceLLM
	}

	return e.composer.Compose(records, userQuery), SourceRules
}

func (e *Engine) tryProvider(ctx context.Context, p Provider, summary, userQuery string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return p.GenerateInsight(ctx, summary, userQuery)
}
