package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sqlagent/sqlagent/internal/config"
	"github.com/sqlagent/sqlagent/internal/db"
	"github.com/sqlagent/sqlagent/internal/pipeline"
	"github.com/sqlagent/sqlagent/internal/schema"
)

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("sqlagent-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

type fakePipeline struct {
	requests []pipeline.Request
	outcome  pipeline.Outcome
}

func (f *fakePipeline) Handle(_ context.Context, req pipeline.Request) pipeline.Outcome {
	f.requests = append(f.requests, req)
	return f.outcome
}

func TestQueryEndpointReturnsSQLAndRows(t *testing.T) {
	p := &fakePipeline{outcome: pipeline.Outcome{Success: &pipeline.Success{
		SQL: "SELECT * FROM Account",
		Rows: db.ResultSet{
			Columns: []string{"Id", "Name"},
			Rows: []db.Row{
				{"Id": "001", "Name": "Lincoln Middle School"},
				{"Id": "002", "Name": "Roosevelt Academy"},
				{"Id": "003", "Name": "TechCorp"},
			},
		},
	}}}
	h := NewHandler(testConfig(t), Dependencies{Pipeline: p})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"Show me all accounts"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var body queryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.SQL != "SELECT * FROM Account" {
		t.Fatalf("sql = %q", body.SQL)
	}
	if len(body.Results) != 3 {
		t.Fatalf("results = %d", len(body.Results))
	}
	if body.Error != "" {
		t.Fatalf("error = %q", body.Error)
	}
	if len(p.requests) != 1 || p.requests[0].Text != "Show me all accounts" {
		t.Fatalf("pipeline requests = %+v", p.requests)
	}
}

func TestQueryEndpointRejectsMissingQuery(t *testing.T) {
	p := &fakePipeline{}
	h := NewHandler(testConfig(t), Dependencies{Pipeline: p})

	for _, payload := range []string{`{}`, `{"query":""}`, `{"query":"   "}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(payload))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: status = %d, want 400", payload, rr.Code)
		}
	}
	if len(p.requests) != 0 {
		t.Fatalf("pipeline called %d times for malformed requests", len(p.requests))
	}
}

func TestQueryEndpointExecutionFailureKeepsSQLIn200(t *testing.T) {
	p := &fakePipeline{outcome: pipeline.Outcome{Failure: &pipeline.Failure{
		Kind:    pipeline.FailureExecution,
		Message: "execute query: table Acount does not exist",
		SQL:     "SELECT * FROM Acount",
	}}}
	h := NewHandler(testConfig(t), Dependencies{Pipeline: p})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"accounts"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with error payload", rr.Code)
	}
	var body queryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.SQL != "SELECT * FROM Acount" {
		t.Fatalf("sql = %q, want attempted statement", body.SQL)
	}
	if body.Error == "" {
		t.Fatal("error missing from failure payload")
	}
	if body.Results == nil || len(body.Results) != 0 {
		t.Fatalf("results = %#v, want empty array", body.Results)
	}
}

func TestQueryEndpointGenerationFailureHasEmptySQL(t *testing.T) {
	p := &fakePipeline{outcome: pipeline.Outcome{Failure: &pipeline.Failure{
		Kind:    pipeline.FailureGeneration,
		Message: "quota exceeded",
	}}}
	h := NewHandler(testConfig(t), Dependencies{Pipeline: p})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"accounts"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body queryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.SQL != "" {
		t.Fatalf("sql = %q, want empty for generation failure", body.SQL)
	}
	if !strings.Contains(body.Error, "quota exceeded") {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestQueryEndpointZeroRowsIsSuccess(t *testing.T) {
	p := &fakePipeline{outcome: pipeline.Outcome{Success: &pipeline.Success{
		SQL:  "SELECT * FROM Account WHERE 1=0",
		Rows: db.ResultSet{Columns: []string{"Id"}, Rows: []db.Row{}},
	}}}
	h := NewHandler(testConfig(t), Dependencies{Pipeline: p})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"nothing"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var raw map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	results, ok := raw["results"].([]any)
	if !ok || len(results) != 0 {
		t.Fatalf("results = %#v, want empty JSON array", raw["results"])
	}
	if _, hasError := raw["error"]; hasError {
		t.Fatal("zero rows must not carry an error field")
	}
}

type stubBackend struct {
	description schema.Description
	describeErr error
	executeErr  error
	results     db.ResultSet
	pingErr     error
}

func (s *stubBackend) Execute(context.Context, string) (db.ResultSet, error) {
	if s.executeErr != nil {
		return db.ResultSet{}, s.executeErr
	}
	return s.results, nil
}

func (s *stubBackend) Describe(context.Context) (schema.Description, error) {
	if s.describeErr != nil {
		return schema.Description{}, s.describeErr
	}
	return s.description, nil
}

func (s *stubBackend) Ping(context.Context) error { return s.pingErr }
func (s *stubBackend) Close() error               { return nil }
