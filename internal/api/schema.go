package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sqlagent/sqlagent/internal/db"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Backend == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "database backend is not configured", false, nil)
		return
	}

	description, err := deps.Backend.Describe(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema": description})
}

func handleSampleData(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Backend == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "database backend is not configured", false, nil)
		return
	}

	samples, _, err := db.SampleData(r.Context(), deps.Backend, deps.SampleRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SAMPLE_FETCH_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sample_data": samples})
}

func handleDataDictionary(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Backend == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "database backend is not configured", false, nil)
		return
	}

	description, err := deps.Backend.Describe(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", err.Error(), true, nil)
		return
	}
	samples, _, err := db.SampleDataForTables(r.Context(), deps.Backend, description.TableNames(), deps.SampleRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SAMPLE_FETCH_FAILED", err.Error(), true, nil)
		return
	}

	var dictionary strings.Builder
	dictionary.WriteString(description.PromptText())
	for _, table := range description.TableNames() {
		fmt.Fprintf(&dictionary, "\n\nSample rows for %s: %d", table, len(samples[table]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data_dictionary": dictionary.String(),
		"business_context": map[string]any{
			"domain":      "STEM education program management",
			"system_type": "Salesforce-style CRM",
			"primary_entities": []string{
				"Schools and organizations (Account)",
				"People (Contact)",
				"Program opportunities (Opportunity)",
				"Classes and workshops (Session)",
				"Instructor scheduling (ProgramInstructorAvailability)",
			},
		},
	})
}
