package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sqlagent/sqlagent/internal/db"
	"github.com/sqlagent/sqlagent/internal/pipeline"
)

type queryRequest struct {
	Query string `json:"query"`
}

// queryResponse is the chat contract: generation and execution failures
// still return 200 with the error carried in the body, and an execution
// failure keeps the attempted SQL visible.
type queryResponse struct {
	SQL         string   `json:"sql"`
	Columns     []string `json:"columns,omitempty"`
	Results     []db.Row `json:"results"`
	Error       string   `json:"error,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query pipeline is not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}

	outcome := deps.Pipeline.Handle(r.Context(), pipeline.Request{Text: request.Query})
	if outcome.Failure != nil {
		if outcome.Failure.Kind == pipeline.FailureValidation {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", outcome.Failure.Message, false, nil)
			return
		}
		writeJSON(w, http.StatusOK, queryResponse{
			SQL:         outcome.Failure.SQL,
			Results:     []db.Row{},
			Error:       outcome.Failure.Message,
			Suggestions: outcome.Failure.Suggestions,
		})
		return
	}

	results := outcome.Success.Rows.Rows
	if results == nil {
		results = []db.Row{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		SQL:     outcome.Success.SQL,
		Columns: outcome.Success.Rows.Columns,
		Results: results,
	})
}
