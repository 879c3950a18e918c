package postgres

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sqlagent/sqlagent/internal/db"
	"github.com/sqlagent/sqlagent/internal/schema"
)

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Backend is the networked engine. The pooled *sql.DB is safe for
// concurrent use, so requests never share a raw connection.
type Backend struct {
	conn *sql.DB
}

func Open(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, db.NewError(db.KindConnectivity, nil, "postgres dsn is required")
	}

	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, db.NewError(db.KindConnectivity, err, "open postgres database: %v", err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, db.NewError(db.KindConnectivity, err, "ping postgres database: %v", err)
	}
	return &Backend{conn: conn}, nil
}

// NewWithDB wraps an existing handle. Tests use this with sqlmock.
func NewWithDB(conn *sql.DB) *Backend {
	return &Backend{conn: conn}
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.conn.PingContext(ctx); err != nil {
		return db.NewError(db.KindConnectivity, err, "ping postgres: %v", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.conn.Close()
}

func (b *Backend) Execute(ctx context.Context, sqlText string) (db.ResultSet, error) {
	statement := strings.TrimSpace(sqlText)
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

const columnsQuery = `
SELECT table_name, column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`

const keyColumnsQuery = `
SELECT tc.table_name, kcu.column_name, tc.constraint_type
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
WHERE tc.table_schema = 'public'
  AND tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')`

func (b *Backend) Describe(ctx context.Context) (schema.Description, error) {
	keys, err := b.keyRoles(ctx)
	if err != nil {
		return schema.Description{}, err
	}

	rows, err := b.conn.QueryContext(ctx, columnsQuery)
	if err != nil {
		return schema.Description{}, classify(err, "list columns")
	}
	defer func() { _ = rows.Close() }()

	description := schema.Description{}
	index := map[string]int{}
	for rows.Next() {
		var tableName, columnName, dataType, nullable string
		if err := rows.Scan(&tableName, &columnName, &dataType, &nullable); err != nil {
			return schema.Description{}, db.NewError(db.KindExecution, err, "scan column metadata: %v", err)
		}

		position, ok := index[tableName]
		if !ok {
			position = len(description.Tables)
			index[tableName] = position
			description.Tables = append(description.Tables, schema.Table{Name: tableName})
		}

		column := schema.Column{
			Name:     columnName,
			Type:     dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
			Key:      keys[tableName+"."+columnName],
		}
		if column.Key == schema.KeyPrimary {
			column.Nullable = false
		}
		description.Tables[position].Columns = append(description.Tables[position].Columns, column)
	}
	if err := rows.Err(); err != nil {
		return schema.Description{}, classify(err, "list columns")
	}
	return description, nil
}

func (b *Backend) keyRoles(ctx context.Context) (map[string]schema.KeyRole, error) {
	rows, err := b.conn.QueryContext(ctx, keyColumnsQuery)
	if err != nil {
		return nil, classify(err, "list key columns")
	}
	defer func() { _ = rows.Close() }()

	roles := map[string]schema.KeyRole{}
	for rows.Next() {
		var tableName, columnName, constraintType string
		if err := rows.Scan(&tableName, &columnName, &constraintType); err != nil {
			return nil, db.NewError(db.KindExecution, err, "scan key metadata: %v", err)
		}
		key := tableName + "." + columnName
		// A column that is both primary and foreign reports as primary.
		if constraintType == "PRIMARY KEY" {
			roles[key] = schema.KeyPrimary
		} else if roles[key] != schema.KeyPrimary {
			roles[key] = schema.KeyForeign
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list key columns")
	}
	return roles, nil
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
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := db.KindExecution
		switch {
		case pgErr.Code == "42601" || pgErr.Code == "42000":
			kind = db.KindSyntax
		case pgErr.Code == "42501" || strings.HasPrefix(pgErr.Code, "28"):
			kind = db.KindPermission
		case strings.HasPrefix(pgErr.Code, "08"):
			kind = db.KindConnectivity
		}
		return db.NewError(kind, err, "%s: %s", op, pgErr.Message)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return db.NewError(db.KindConnectivity, err, "%s: %v", op, err)
	}
	return db.NewError(db.KindExecution, err, "%s: %v", op, err)
}

var _ db.Backend = (*Backend)(nil)
