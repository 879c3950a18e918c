package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/sqlagent/sqlagent/internal/db"
	"github.com/sqlagent/sqlagent/internal/observability"
	"github.com/sqlagent/sqlagent/internal/storage"
)

type Summary struct {
	ObjectPath string `json:"object_path"`
	Rows       int    `json:"rows"`
	Bytes      int64  `json:"bytes"`
}

// Exporter runs a statement and writes the result set to the object store
// as a Parquet file. Values are stringified so the file schema stays
// uniform regardless of backend column types.
type Exporter struct {
	Engine db.Engine
	Store  storage.ObjectStore
	Now    func() time.Time
}

func New(engine db.Engine, store storage.ObjectStore) *Exporter {
	return &Exporter{Engine: engine, Store: store, Now: time.Now}
}

func (e *Exporter) Export(ctx context.Context, sqlText string) (Summary, error) {
	if e.Engine == nil || e.Store == nil {
		return Summary{}, fmt.Errorf("exporter is not configured")
	}

	result, err := e.Engine.Execute(ctx, sqlText)
	if err != nil {
		return Summary{}, fmt.Errorf("execute export query: %w", err)
	}
	if len(result.Columns) == 0 {
		return Summary{}, fmt.Errorf("export query returned no columns")
	}

	data, err := EncodeResultToParquet(result)
	if err != nil {
		return Summary{}, err
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	key, err := storage.BuildExportPath("result", now())
	if err != nil {
		return Summary{}, err
	}

	info, err := e.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	if err != nil {
		return Summary{}, fmt.Errorf("upload export object: %w", err)
	}

	observability.ObserveExport(len(result.Rows), info.Size)
	return Summary{ObjectPath: info.Key, Rows: len(result.Rows), Bytes: info.Size}, nil
}

// EncodeResultToParquet writes every column as an optional UTF8 string.
// NULLs stay NULL; everything else goes through fmt.Sprint.
func EncodeResultToParquet(result db.ResultSet) ([]byte, error) {
	group := parquet.Group{}
	for _, column := range result.Columns {
		group[column] = parquet.Optional(parquet.String())
	}
	fileSchema := parquet.NewSchema("result", group)

	rows := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		encoded := make(map[string]any, len(result.Columns))
		for _, column := range result.Columns {
			value := row[column]
			if value == nil {
				encoded[column] = nil
				continue
			}
			encoded[column] = fmt.Sprint(value)
		}
		rows = append(rows, encoded)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[map[string]any](buf, fileSchema)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
