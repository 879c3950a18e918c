package db

import (
	"context"
	"strings"

	"github.com/sqlagent/sqlagent/internal/schema"
)

// Row maps column name to a scalar value. NULL columns carry an explicit
// nil value rather than being omitted.
type Row map[string]any

// ResultSet is the ordered output of one statement. Columns preserves the
// backend-reported column order; every row carries the same column set.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Engine runs one SQL statement against the configured backend. It never
// retries a failed statement.
type Engine interface {
	Execute(ctx context.Context, sqlText string) (ResultSet, error)
}

// Inspector produces a live, normalized schema snapshot. Read-only.
type Inspector interface {
	Describe(ctx context.Context) (schema.Description, error)
}

// Backend is one configured database, embedded or networked. Callers must
// not need to know which dialect is active.
type Backend interface {
	Engine
	Inspector
	Ping(ctx context.Context) error
	Close() error
}

// IsReadStatement reports whether the statement returns rows rather than
// mutating data. Mutating statements are still executed, with the affected
// row count reported as a one-row result.
func IsReadStatement(sqlText string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(sqlText))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "PRAGMA", "EXPLAIN"} {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

// AffectedRowsResult shapes a DML outcome the way read results are shaped,
// so callers render both uniformly.
func AffectedRowsResult(affected int64) ResultSet {
	return ResultSet{
		Columns: []string{"affected_rows", "message"},
		Rows: []Row{{
			"affected_rows": affected,
			"message":       "Query executed successfully",
		}},
	}
}

func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
