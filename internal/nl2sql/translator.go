package nl2sql

import (
	"context"

	"github.com/sqlagent/sqlagent/internal/schema"
)

// TableContext carries one table's metadata and a handful of sample rows,
// serialized into the model prompt.
type TableContext struct {
	TableName  string           `json:"table_name"`
	Columns    []schema.Column  `json:"columns"`
	SampleRows []map[string]any `json:"sample_rows,omitempty"`
}

type Request struct {
	Question string         `json:"question"`
	Tables   []TableContext `json:"tables"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Translator converts a free-text question into a single SQL statement.
// Implementations are non-deterministic; callers treat the translator as a
// replaceable dependency and never validate the SQL beyond non-emptiness.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
