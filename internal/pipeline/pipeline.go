package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sqlagent/sqlagent/internal/db"
	"github.com/sqlagent/sqlagent/internal/nl2sql"
	"github.com/sqlagent/sqlagent/internal/observability"
)

// Request is one immutable user question.
type Request struct {
	Text string
}

type FailureKind string

const (
	FailureValidation FailureKind = "validation_failed"
	FailureGeneration FailureKind = "generation_failed"
	FailureExecution  FailureKind = "execution_failed"
)

type Success struct {
	SQL  string
	Rows db.ResultSet
}

// Failure carries the attempted SQL for execution failures so the user can
// see what was run. Generation and validation failures have no SQL.
type Failure struct {
	Kind        FailureKind
	Message     string
	SQL         string
	Suggestions []string
}

// Outcome is a tagged union: exactly one of Success or Failure is set.
// No partial results are ever returned alongside an error.
type Outcome struct {
	Success *Success
	Failure *Failure
}

func failure(kind FailureKind, format string, args ...any) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

type Config struct {
	GenerateTimeout time.Duration
	ExecuteTimeout  time.Duration
	SampleRows      int
}

// Pipeline turns one free-text question into an executed query result. It
// is stateless; concurrent invocations share nothing but the backend's
// connection pool.
type Pipeline struct {
	translator nl2sql.Translator
	backend    db.Backend
	cfg        Config
	logger     *slog.Logger
}

func New(translator nl2sql.Translator, backend db.Backend, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	if cfg.ExecuteTimeout <= 0 {
		cfg.ExecuteTimeout = 30 * time.Second
	}
	if cfg.SampleRows <= 0 {
		cfg.SampleRows = db.DefaultSampleRows
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{translator: translator, backend: backend, cfg: cfg, logger: logger}
}

// Handle runs validate, generate, execute. A generated statement is
// executed at most once; nothing is retried.
func (p *Pipeline) Handle(ctx context.Context, req Request) Outcome {
	question := strings.TrimSpace(req.Text)
	if question == "" {
		return failure(FailureValidation, "query text is required")
	}

	tables, description, err := p.buildTableContexts(ctx)
	if err != nil {
		observability.ObserveQuery(string(FailureGeneration))
		return failure(FailureGeneration, "load schema context: %v", err)
	}

	generateCtx, cancelGenerate := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
	defer cancelGenerate()
	generateStart := time.Now()
	translated, err := p.translator.Translate(generateCtx, nl2sql.Request{
		Question: question,
		Tables:   tables,
	})
	observability.ObserveGeneration(time.Since(generateStart), err)
	if err != nil {
		p.logger.WarnContext(ctx, "sql generation failed", slog.Any("error", err))
		observability.ObserveQuery(string(FailureGeneration))
		return failure(FailureGeneration, "%v", err)
	}

	executeCtx, cancelExecute := context.WithTimeout(ctx, p.cfg.ExecuteTimeout)
	defer cancelExecute()
	executeStart := time.Now()
	result, err := p.backend.Execute(executeCtx, translated.SQL)
	observability.ObserveExecution(time.Since(executeStart), err)
	if err != nil {
		p.logger.WarnContext(ctx, "sql execution failed",
			slog.String("sql", translated.SQL),
			slog.String("kind", string(db.KindOf(err))),
			slog.Any("error", err),
		)
		observability.ObserveQuery(string(FailureExecution))
		return Outcome{Failure: &Failure{
			Kind:        FailureExecution,
			Message:     err.Error(),
			SQL:         translated.SQL,
			Suggestions: suggestColumns(err.Error(), description),
		}}
	}

	observability.ObserveQuery("success")
	return Outcome{Success: &Success{SQL: translated.SQL, Rows: result}}
}

func (p *Pipeline) buildTableContexts(ctx context.Context) ([]nl2sql.TableContext, descriptionIndex, error) {
	description, err := p.backend.Describe(ctx)
	if err != nil {
		return nil, nil, err
	}

	samples, _, err := db.SampleDataForTables(ctx, p.backend, description.TableNames(), p.cfg.SampleRows)
	if err != nil {
		return nil, nil, err
	}

	contexts := make([]nl2sql.TableContext, 0, len(description.Tables))
	index := descriptionIndex{}
	for _, table := range description.Tables {
		tableContext := nl2sql.TableContext{TableName: table.Name, Columns: table.Columns}
		for _, row := range samples[table.Name] {
			tableContext.SampleRows = append(tableContext.SampleRows, map[string]any(row))
		}
		contexts = append(contexts, tableContext)
		for _, column := range table.Columns {
			index[strings.ToLower(column.Name)] = append(index[strings.ToLower(column.Name)], table.Name+"."+column.Name)
		}
	}
	return contexts, index, nil
}
