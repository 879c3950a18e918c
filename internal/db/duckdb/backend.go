package duckdb

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlagent/sqlagent/internal/db"
	"github.com/sqlagent/sqlagent/internal/schema"
)

// Backend is the embedded file-based engine. An empty path opens an
// in-memory database, which tests rely on.
type Backend struct {
	conn *sql.DB
}

func Open(ctx context.Context, path string) (*Backend, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, db.NewError(db.KindConnectivity, err, "open duckdb database %q: %v", path, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, db.NewError(db.KindConnectivity, err, "ping duckdb database %q: %v", path, err)
	}
	return &Backend{conn: conn}, nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.conn.PingContext(ctx); err != nil {
		return db.NewError(db.KindConnectivity, err, "ping duckdb: %v", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.conn.Close()
}

func (b *Backend) Execute(ctx context.Context, sqlText string) (db.ResultSet, error) {
	statement := stripTrailingSemicolons(sqlText)
	if statement == "" {
		return db.ResultSet{}, db.NewError(db.KindSyntax, nil, "sql is required")
	}

	if !db.IsReadStatement(statement) {
		result, err := b.conn.ExecContext(ctx, statement)
		if err != nil {
			return db.ResultSet{}, classify(err, "execute statement")
		}
		affected, err := result.RowsAffected()
		if err != nil {
			affected = 0
		}
		return db.AffectedRowsResult(affected), nil
	}

	rows, err := b.conn.QueryContext(ctx, statement)
	if err != nil {
		return db.ResultSet{}, classify(err, "execute query")
	}
	defer func() { _ = rows.Close() }()

	return scanRows(rows)
}

// Describe reads table metadata from information_schema and key roles from
// duckdb_constraints(), normalized to the dialect-independent shape.
func (b *Backend) Describe(ctx context.Context) (schema.Description, error) {
	tableRows, err := b.conn.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'main' AND table_type = 'BASE TABLE'
ORDER BY table_name`)
	if err != nil {
		return schema.Description{}, classify(err, "list tables")
	}
	defer func() { _ = tableRows.Close() }()

	var names []string
	for tableRows.Next() {
		var name string
		if err := tableRows.Scan(&name); err != nil {
			return schema.Description{}, db.NewError(db.KindExecution, err, "scan table name: %v", err)
		}
		names = append(names, name)
	}
	if err := tableRows.Err(); err != nil {
		return schema.Description{}, classify(err, "list tables")
	}

	description := schema.Description{Tables: make([]schema.Table, 0, len(names))}
	for _, name := range names {
		table, err := b.describeTable(ctx, name)
		if err != nil {
			return schema.Description{}, err
		}
		description.Tables = append(description.Tables, table)
	}
	return description, nil
}

func (b *Backend) describeTable(ctx context.Context, name string) (schema.Table, error) {
	primary, err := b.keyColumns(ctx, name, "PRIMARY KEY")
	if err != nil {
		return schema.Table{}, err
	}
	foreign, err := b.keyColumns(ctx, name, "FOREIGN KEY")
	if err != nil {
		return schema.Table{}, err
	}

	columnRows, err := b.conn.QueryContext(ctx, `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?
ORDER BY ordinal_position`, name)
	if err != nil {
		return schema.Table{}, classify(err, "describe table "+name)
	}
	defer func() { _ = columnRows.Close() }()

	table := schema.Table{Name: name}
	for columnRows.Next() {
		var columnName, dataType, nullable string
		if err := columnRows.Scan(&columnName, &dataType, &nullable); err != nil {
			return schema.Table{}, db.NewError(db.KindExecution, err, "scan column for %s: %v", name, err)
		}
		column := schema.Column{
			Name:     columnName,
			Type:     dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		}
		switch {
		case primary[columnName]:
			column.Key = schema.KeyPrimary
			column.Nullable = false
		case foreign[columnName]:
			column.Key = schema.KeyForeign
		}
		table.Columns = append(table.Columns, column)
	}
	if err := columnRows.Err(); err != nil {
		return schema.Table{}, classify(err, "describe table "+name)
	}
	return table, nil
}

func (b *Backend) keyColumns(ctx context.Context, table, constraintType string) (map[string]bool, error) {
	rows, err := b.conn.QueryContext(ctx, `
SELECT unnest(constraint_column_names)
FROM duckdb_constraints()
WHERE schema_name = 'main' AND table_name = ? AND constraint_type = ?`, table, constraintType)
	if err != nil {
		return nil, classify(err, "list constraints for "+table)
	}
	defer func() { _ = rows.Close() }()

	columns := map[string]bool{}
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, db.NewError(db.KindExecution, err, "scan constraint column: %v", err)
		}
		columns[column] = true
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list constraints for "+table)
	}
	return columns, nil
}

func scanRows(rows *sql.Rows) (db.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return db.ResultSet{}, db.NewError(db.KindExecution, err, "read columns: %v", err)
	}

	result := db.ResultSet{Columns: columns, Rows: make([]db.Row, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return db.ResultSet{}, db.NewError(db.KindExecution, err, "scan row: %v", err)
		}
		row := make(db.Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return db.ResultSet{}, classify(err, "iterate rows")
	}
	return result, nil
}

func normalizeValue(value any) any {
	if raw, ok := value.([]byte); ok {
		return string(raw)
	}
	return value
}

func classify(err error, op string) error {
	message := err.Error()
	kind := db.KindExecution
	switch {
	case containsAny(message, "Parser Error", "Syntax Error", "syntax error"):
		kind = db.KindSyntax
	case containsAny(message, "Permission", "permission denied"):
		kind = db.KindPermission
	case containsAny(message, "could not open", "database is locked", "IO Error", "connection"):
		kind = db.KindConnectivity
	}
	return db.NewError(kind, err, "%s: %v", op, err)
}

func containsAny(value string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(value, needle) {
			return true
		}
	}
	return false
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

var _ db.Backend = (*Backend)(nil)
