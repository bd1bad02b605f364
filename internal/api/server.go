// Package api exposes the analytics service over HTTP and MCP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatlens/chatlens/internal/dashboard"
	"github.com/chatlens/chatlens/internal/ingest"
	"github.com/chatlens/chatlens/internal/insight"
	"github.com/chatlens/chatlens/internal/storage"
)

const maxRequestBodySize = 10 << 20 // 10MB

// Deps carries everything the handlers need.
type Deps struct {
	Store    storage.Store
	State    *dashboard.State
	Engine   *insight.Engine
	Importer *ingest.Importer
	Jobs     ingest.JobStore // optional; nil disables async ingestion
	Token    string
	Logger   *slog.Logger
}

// NewHandler builds the HTTP API. The health endpoint is open; everything
// else sits behind bearer auth.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/records", handleRecords(deps))
		r.Get("/records/export", handleExportCSV(deps))
		r.Get("/stats", handleStats(deps))
		r.Get("/suggestions", handleSuggestions(deps))
		r.Post("/insights", handleInsights(deps))
		r.Post("/generate", handleGenerate(deps))
		r.Post("/ingest/conversations", handleIngestConversations(deps))
		r.Post("/ingest/records", handleIngestRecords(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
