package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/insight"
)

// NewMCPServer creates an MCP server exposing the analytics tools.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"chatlens",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("chatlens provides analytics over AI chat logs: sentiment, categories, ad performance, and natural-language insights."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_insight",
			mcp.WithDescription("Answer an analytics question about the chat log data in natural language."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
		),
		mcpGetInsight(deps),
	)

	s.AddTool(
		mcp.NewTool("summary_stats",
			mcp.WithDescription("Return whole-table statistics: totals, sentiment distribution, CTR, and top values."),
		),
		mcpSummaryStats(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_sample_data",
			mcp.WithDescription("Generate synthetic chat log records and store them."),
			mcp.WithNumber("count", mcp.Description("Number of records to generate"), mcp.Required()),
			mcp.WithNumber("seed", mcp.Description("Optional RNG seed for reproducible output")),
			mcp.WithBoolean("replace", mcp.Description("Replace existing records instead of appending")),
		),
		mcpGenerateSampleData(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"chatlens://suggestions",
			"Suggested Questions",
			mcp.WithResourceDescription("Starter analytics questions tailored to the current data"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSuggestions(deps),
	)

	return s
}

func mcpGetInsight(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		text, source := deps.Engine.Insight(ctx, deps.State.Records(), query)
		b, err := json.Marshal(map[string]string{"insight": text, "source": source})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal insight: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSummaryStats(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := analytics.Summarize(deps.State.Records())
		if err != nil {
			return mcpError("no records available"), nil
		}

		b, err := json.Marshal(summary)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGenerateSampleData(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		count, err := req.RequireInt("count")
		if err != nil {
			return mcpError("count is required"), nil
		}
		if count <= 0 || count > maxGenerateCount {
			return mcpError(fmt.Sprintf("count must be between 1 and %d", maxGenerateCount)), nil
		}

		seed := int64(req.GetInt("seed", 0))
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		records := analytics.NewGenerator(seed).Generate(count)

		if req.GetBool("replace", false) {
			if err := deps.Store.Replace(records); err != nil {
				return mcpError(fmt.Sprintf("failed to replace records: %v", err)), nil
			}
		} else {
			res := deps.Importer.Import(records)
			if res.Failed > 0 {
				return mcpError(fmt.Sprintf("inserted %d records, %d failed", res.Inserted, res.Failed)), nil
			}
		}

		if err := deps.State.Refresh(); err != nil {
			return mcpError(fmt.Sprintf("records stored but refresh failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Generated %d records", count)), nil
	}
}

func mcpResourceSuggestions(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		questions := insight.SuggestedQuestions(deps.State.Records())

		b, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal suggestions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
