package db

import (
	"context"
	"fmt"
	"strconv"
)

const DefaultSampleRows = 5

// sampleOrder picks a per-table ordering so the sample rows show variety
// (different roles, stages, statuses) instead of the first inserted rows.
var sampleOrder = map[string]string{
	"Contact":     "Title",
	"Session":     "Status, Name",
	"Opportunity": "StageName",
}

// SampleData reads up to limit rows from every table the backend reports.
func SampleData(ctx context.Context, backend Backend, limit int) (map[string][]Row, []string, error) {
	description, err := backend.Describe(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("describe schema: %w", err)
	}
	return SampleDataForTables(ctx, backend, description.TableNames(), limit)
}

// SampleDataForTables reads up to limit rows from each named table. A table
// that fails to read degrades to an empty slice so one broken table does
// not fail the whole snapshot.
func SampleDataForTables(ctx context.Context, engine Engine, tables []string, limit int) (map[string][]Row, []string, error) {
	if limit <= 0 {
		limit = DefaultSampleRows
	}
	samples := make(map[string][]Row, len(tables))
	for _, table := range tables {
		statement := "SELECT * FROM " + QuoteIdent(table)
		if orderBy, ok := sampleOrder[table]; ok {
			statement += " ORDER BY " + orderBy
		}
		statement += " LIMIT " + strconv.Itoa(limit)

		result, err := engine.Execute(ctx, statement)
		if err != nil {
			samples[table] = []Row{}
			continue
		}
		samples[table] = result.Rows
	}
	return samples, tables, nil
}
