package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sqlagent/sqlagent/internal/db"
	"github.com/sqlagent/sqlagent/internal/nl2sql"
	"github.com/sqlagent/sqlagent/internal/schema"
)

type fakeTranslator struct {
	requests []nl2sql.Request
	result   nl2sql.Result
	err      error
}

func (f *fakeTranslator) Translate(_ context.Context, req nl2sql.Request) (nl2sql.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nl2sql.Result{}, f.err
	}
	return f.result, nil
}

type fakeBackend struct {
	description schema.Description
	describeErr error
	result      db.ResultSet
	executeErr  error
	executed    []string
}

func (f *fakeBackend) Execute(_ context.Context, sqlText string) (db.ResultSet, error) {
	f.executed = append(f.executed, sqlText)
	if strings.Contains(sqlText, "LIMIT") && strings.HasPrefix(sqlText, `SELECT * FROM "`) {
		// Sample-data probe issued while building prompt context.
		return db.ResultSet{Columns: []string{"Id"}, Rows: []db.Row{{"Id": "001"}}}, nil
	}
	if f.executeErr != nil {
		return db.ResultSet{}, f.executeErr
	}
	return f.result, nil
}

func (f *fakeBackend) Describe(context.Context) (schema.Description, error) {
	if f.describeErr != nil {
		return schema.Description{}, f.describeErr
	}
	return f.description, nil
}

func (f *fakeBackend) Ping(context.Context) error { return nil }
func (f *fakeBackend) Close() error               { return nil }

func accountSchema() schema.Description {
	return schema.Description{Tables: []schema.Table{{
		Name: "Account",
		Columns: []schema.Column{
			{Name: "Id", Type: "VARCHAR", Key: schema.KeyPrimary},
			{Name: "Name", Type: "VARCHAR", Nullable: true},
			{Name: "Industry", Type: "VARCHAR", Nullable: true},
		},
	}}}
}

func TestHandleRejectsEmptyInputWithoutGenerating(t *testing.T) {
	translator := &fakeTranslator{}
	backend := &fakeBackend{description: accountSchema()}
	p := New(translator, backend, Config{}, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		outcome := p.Handle(context.Background(), Request{Text: text})
		if outcome.Failure == nil || outcome.Failure.Kind != FailureValidation {
			t.Fatalf("Handle(%q) = %+v, want validation failure", text, outcome)
		}
	}
	if len(translator.requests) != 0 {
		t.Fatalf("translator called %d times for empty input", len(translator.requests))
	}
	if len(backend.executed) != 0 {
		t.Fatalf("backend called %d times for empty input", len(backend.executed))
	}
}

func TestHandleSuccessPassesStatementAndRowsThrough(t *testing.T) {
	rows := db.ResultSet{
		Columns: []string{"Id", "Name", "Industry"},
		Rows: []db.Row{
			{"Id": "001", "Name": "Lincoln Middle School", "Industry": "Education"},
			{"Id": "002", "Name": "Roosevelt Academy", "Industry": "Education"},
			{"Id": "003", "Name": "TechCorp", "Industry": "Technology"},
		},
	}
	translator := &fakeTranslator{result: nl2sql.Result{SQL: "SELECT * FROM Account"}}
	backend := &fakeBackend{description: accountSchema(), result: rows}
	p := New(translator, backend, Config{}, nil)

	outcome := p.Handle(context.Background(), Request{Text: "Show me all accounts"})
	if outcome.Failure != nil {
		t.Fatalf("Handle() failure = %+v", outcome.Failure)
	}
	if outcome.Success.SQL != "SELECT * FROM Account" {
		t.Fatalf("SQL = %q, want generated statement unchanged", outcome.Success.SQL)
	}
	if len(outcome.Success.Rows.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(outcome.Success.Rows.Rows))
	}
	if len(translator.requests) != 1 {
		t.Fatalf("translator calls = %d, want 1", len(translator.requests))
	}
	if len(translator.requests[0].Tables) != 1 || translator.requests[0].Tables[0].TableName != "Account" {
		t.Fatalf("translator schema context = %+v", translator.requests[0].Tables)
	}
}

func TestHandleGenerationFailureSkipsExecution(t *testing.T) {
	translator := &fakeTranslator{err: errors.New("quota exceeded")}
	backend := &fakeBackend{description: accountSchema()}
	p := New(translator, backend, Config{}, nil)

	outcome := p.Handle(context.Background(), Request{Text: "Show me all accounts"})
	if outcome.Failure == nil || outcome.Failure.Kind != FailureGeneration {
		t.Fatalf("outcome = %+v, want generation failure", outcome)
	}
	if !strings.Contains(outcome.Failure.Message, "quota exceeded") {
		t.Fatalf("message = %q", outcome.Failure.Message)
	}
	for _, statement := range backend.executed {
		if !strings.Contains(statement, "LIMIT") {
			t.Fatalf("executor ran generated statement %q after generation failure", statement)
		}
	}
}

func TestHandleExecutionFailureSurfacesAttemptedSQL(t *testing.T) {
	translator := &fakeTranslator{result: nl2sql.Result{SQL: "SELECT * FROM Acount"}}
	backend := &fakeBackend{
		description: accountSchema(),
		executeErr:  db.NewError(db.KindExecution, nil, "execute query: table Acount does not exist"),
	}
	p := New(translator, backend, Config{}, nil)

	outcome := p.Handle(context.Background(), Request{Text: "Show me all accounts"})
	if outcome.Failure == nil || outcome.Failure.Kind != FailureExecution {
		t.Fatalf("outcome = %+v, want execution failure", outcome)
	}
	if outcome.Failure.SQL != "SELECT * FROM Acount" {
		t.Fatalf("attempted SQL = %q, want surfaced statement", outcome.Failure.SQL)
	}
	if outcome.Success != nil {
		t.Fatal("partial success returned alongside failure")
	}
}

func TestHandleSchemaLoadFailureIsGenerationFailure(t *testing.T) {
	translator := &fakeTranslator{}
	backend := &fakeBackend{describeErr: db.NewError(db.KindConnectivity, nil, "database unreachable")}
	p := New(translator, backend, Config{}, nil)

	outcome := p.Handle(context.Background(), Request{Text: "anything"})
	if outcome.Failure == nil || outcome.Failure.Kind != FailureGeneration {
		t.Fatalf("outcome = %+v, want generation failure", outcome)
	}
	if len(translator.requests) != 0 {
		t.Fatalf("translator called %d times after schema failure", len(translator.requests))
	}
}

func TestHandleExecutionFailureSuggestsColumns(t *testing.T) {
	translator := &fakeTranslator{result: nl2sql.Result{SQL: `SELECT Industri FROM Account`}}
	backend := &fakeBackend{
		description: accountSchema(),
		executeErr:  db.NewError(db.KindExecution, nil, `column "Industri" not found`),
	}
	p := New(translator, backend, Config{}, nil)

	outcome := p.Handle(context.Background(), Request{Text: "industries"})
	if outcome.Failure == nil {
		t.Fatalf("outcome = %+v, want failure", outcome)
	}
	found := false
	for _, suggestion := range outcome.Failure.Suggestions {
		if suggestion == "Account.Industry" {
			found = true
		}
	}
	if !found {
		t.Fatalf("suggestions = %v, want Account.Industry", outcome.Failure.Suggestions)
	}
}
