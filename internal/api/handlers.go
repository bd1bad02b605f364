package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/dashboard"
	"github.com/chatlens/chatlens/internal/ingest"
	"github.com/chatlens/chatlens/internal/insight"
)

// maxGenerateCount bounds a single synthetic generation request.
const maxGenerateCount = 100000

// handleRecords serves the current dashboard page. Filter and page query
// parameters update the shared dashboard state before rendering, matching
// single-user session semantics.
func handleRecords(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if hasFilterParams(r) {
			f := dashboard.Filters{
				Search:     q.Get("search"),
				Sentiments: q["sentiment"],
				Categories: q["category"],
				Locations:  q["location"],
				Devices:    q["device"],
			}
			if v := q.Get("ad_clicked"); v != "" {
				clicked, err := strconv.ParseBool(v)
				if err != nil {
					httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid ad_clicked value %q", v)
					return
				}
				f.AdClicked = &clicked
			}
			deps.State.SetFilters(f)
		}

		if v := q.Get("page"); v != "" {
			page, err := strconv.Atoi(v)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid page value %q", v)
				return
			}
			deps.State.SetPage(page)
		}

		writeJSON(w, deps.State.CurrentPage())
	}
}

func hasFilterParams(r *http.Request) bool {
	q := r.URL.Query()
	for _, key := range []string{"search", "sentiment", "category", "location", "device", "ad_clicked"} {
		if _, ok := q[key]; ok {
			return true
		}
	}
	return false
}

func handleExportCSV(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="chat_logs.csv"`)
		if err := deps.State.ExportCSV(w); err != nil {
			deps.Logger.Error("csv export failed", "error", err)
		}
	}
}

// statsResponse bundles the whole-table summary with per-field breakdowns.
type statsResponse struct {
	Summary     analytics.Summary           `json:"summary"`
	Breakdowns  map[string][]analytics.View `json:"breakdowns"`
	AdCTRByView map[string][]analytics.View `json:"ctr_by"`
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := deps.State.Records()

		summary, err := analytics.Summarize(records)
		if errors.Is(err, analytics.ErrNoData) {
			httpError(w, http.StatusNotFound, "no_data", "no records available")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "summarizing records: %v", err)
			return
		}

		writeJSON(w, statsResponse{
			Summary: summary,
			Breakdowns: map[string][]analytics.View{
				"category":  analytics.Aggregate(records, analytics.GroupByCategory),
				"sentiment": analytics.Aggregate(records, analytics.GroupBySentiment),
				"location":  analytics.Aggregate(records, analytics.GroupByLocation),
				"device":    analytics.Aggregate(records, analytics.GroupByDevice),
			},
			AdCTRByView: map[string][]analytics.View{
				"ad_category": analytics.AggregateCTR(records, analytics.GroupByAdCategory),
				"sentiment":   analytics.AggregateCTR(records, analytics.GroupBySentiment),
			},
		})
	}
}

func handleSuggestions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"questions": insight.SuggestedQuestions(deps.State.Records()),
		})
	}
}

type insightRequest struct {
	Query string `json:"query"`
}

func handleInsights(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req insightRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		text, source := deps.Engine.Insight(r.Context(), deps.State.Records(), req.Query)
		writeJSON(w, map[string]string{
			"insight": text,
			"source":  source,
		})
	}
}

type generateRequest struct {
	Count   int    `json:"count"`
	Seed    *int64 `json:"seed,omitempty"`
	Replace bool   `json:"replace,omitempty"`
}

func handleGenerate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Count <= 0 || req.Count > maxGenerateCount {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "count must be between 1 and %d", maxGenerateCount)
			return
		}

		seed := time.Now().UnixNano()
		if req.Seed != nil {
			seed = *req.Seed
		}
		records := analytics.NewGenerator(seed).Generate(req.Count)

		var res ingest.Result
		if req.Replace {
			if err := deps.Store.Replace(records); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "replacing records: %v", err)
				return
			}
			res = ingest.Result{Inserted: len(records)}
		} else {
			res = deps.Importer.Import(records)
		}

		if err := deps.State.Refresh(); err != nil {
			deps.Logger.Warn("state refresh failed after generate", "error", err)
		}

		writeJSON(w, map[string]any{
			"generated": req.Count,
			"inserted":  res.Inserted,
			"failed":    res.Failed,
			"seed":      seed,
		})
	}
}

type conversationsRequest struct {
	Conversations []ingest.Conversation `json:"conversations"`
}

func handleIngestConversations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req conversationsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Conversations) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "conversations are required")
			return
		}

		var inserted, failedConversations int
		for _, conv := range req.Conversations {
			records, err := ingest.ConversationRecords(conv)
			if err != nil {
				deps.Logger.Warn("skipping invalid conversation", "conversation_id", conv.ID, "error", err)
				failedConversations++
				continue
			}
			res := deps.Importer.Import(records)
			inserted += res.Inserted
			if res.Failed > 0 {
				failedConversations++
			}
		}

		if err := deps.State.Refresh(); err != nil {
			deps.Logger.Warn("state refresh failed after ingest", "error", err)
		}

		writeJSON(w, map[string]int{
			"inserted_records":     inserted,
			"failed_conversations": failedConversations,
		})
	}
}

type recordsRequest struct {
	Rows  []ingest.Row `json:"rows"`
	Async bool         `json:"async,omitempty"`
}

func handleIngestRecords(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req recordsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Rows) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "rows are required")
			return
		}

		if req.Async {
			if deps.Jobs == nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "async ingestion is not available")
				return
			}
			jobID, err := ingest.EnqueueImport(deps.Jobs, req.Rows)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "enqueueing import: %v", err)
				return
			}
			writeJSON(w, map[string]string{"job_id": jobID, "status": "queued"})
			return
		}

		res := deps.Importer.Import(ingest.NormalizeRows(req.Rows))
		if err := deps.State.Refresh(); err != nil {
			deps.Logger.Warn("state refresh failed after ingest", "error", err)
		}
		writeJSON(w, res)
	}
}
