package duckdb

import (
	"context"
	"testing"

	"github.com/sqlagent/sqlagent/internal/db"
	"github.com/sqlagent/sqlagent/internal/schema"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestExecuteReturnsRowsAsColumnMaps(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	if _, err := backend.Execute(ctx, "CREATE TABLE t (id INTEGER, name VARCHAR)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := backend.Execute(ctx, "INSERT INTO t VALUES (1, 'a'), (2, NULL)"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	result, err := backend.Execute(ctx, "SELECT id, name FROM t ORDER BY id;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "id" {
		t.Fatalf("columns = %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if result.Rows[1]["name"] != nil {
		t.Fatalf("null column = %#v, want nil", result.Rows[1]["name"])
	}
}

func TestExecuteDMLReportsAffectedRows(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	if _, err := backend.Execute(ctx, "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	result, err := backend.Execute(ctx, "INSERT INTO t VALUES (1), (2), (3)")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if result.Rows[0]["affected_rows"] != int64(3) {
		t.Fatalf("affected_rows = %#v", result.Rows[0]["affected_rows"])
	}
}

func TestExecuteZeroRowsIsNotAnError(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	if _, err := backend.Execute(ctx, "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	result, err := backend.Execute(ctx, "SELECT * FROM t")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Rows == nil || len(result.Rows) != 0 {
		t.Fatalf("rows = %#v, want empty non-nil slice", result.Rows)
	}
}

func TestExecuteClassifiesSyntaxErrors(t *testing.T) {
	backend := openTestBackend(t)

	_, err := backend.Execute(context.Background(), "SELEC wrong FROM nowhere")
	if err == nil {
		t.Fatal("Execute() expected error")
	}
	if kind := db.KindOf(err); kind != db.KindSyntax {
		t.Fatalf("kind = %q, want %q (err=%v)", kind, db.KindSyntax, err)
	}
}

func TestExecuteMissingTableIsExecutionError(t *testing.T) {
	backend := openTestBackend(t)

	_, err := backend.Execute(context.Background(), "SELECT * FROM missing_table")
	if err == nil {
		t.Fatal("Execute() expected error")
	}
	if kind := db.KindOf(err); kind != db.KindExecution {
		t.Fatalf("kind = %q, want %q (err=%v)", kind, db.KindExecution, err)
	}
}

func TestDescribeNormalizesKeysAndNullability(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	if _, err := backend.Execute(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name VARCHAR)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	description, err := backend.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if len(description.Tables) != 1 {
		t.Fatalf("tables = %d", len(description.Tables))
	}
	table := description.Tables[0]
	if table.Name != "t" || len(table.Columns) != 2 {
		t.Fatalf("table = %+v", table)
	}

	byName := map[string]schema.Column{}
	for _, column := range table.Columns {
		byName[column.Name] = column
	}
	id := byName["id"]
	if id.Key != schema.KeyPrimary || id.Nullable {
		t.Fatalf("id column = %+v, want non-nullable primary key", id)
	}
	name := byName["name"]
	if name.Key != schema.KeyNone || !name.Nullable {
		t.Fatalf("name column = %+v, want nullable with no key role", name)
	}
}

func TestDescribeReportsForeignKeys(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	statements := []string{
		"CREATE TABLE parent (id INTEGER PRIMARY KEY)",
		"CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER REFERENCES parent(id))",
	}
	for _, statement := range statements {
		if _, err := backend.Execute(ctx, statement); err != nil {
			t.Fatalf("execute %q: %v", statement, err)
		}
	}

	description, err := backend.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	child, ok := description.Table("child")
	if !ok {
		t.Fatalf("child table missing: %v", description.TableNames())
	}
	var parentID schema.Column
	for _, column := range child.Columns {
		if column.Name == "parent_id" {
			parentID = column
		}
	}
	if parentID.Key != schema.KeyForeign {
		t.Fatalf("parent_id key = %q, want %q", parentID.Key, schema.KeyForeign)
	}
}
