package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type exportRequest struct {
	SQL string `json:"sql"`
}

func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "result export is not configured", false, nil)
		return
	}

	var request exportRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid export request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	summary, err := deps.Exporter.Export(r.Context(), request.SQL)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "EXPORT_FAILED", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
