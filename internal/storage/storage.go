package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"time"
)

type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

type PutOptions struct {
	ContentType string
}

// ObjectStore is the write-side surface the export feature needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
}

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildExportPath places exported result sets under a date partition so
// object listings stay navigable.
func BuildExportPath(name string, at time.Time) (string, error) {
	if !pathComponentPattern.MatchString(name) {
		return "", fmt.Errorf("invalid export name: %q", name)
	}
	ts := at.UTC()
	return path.Join(
		"exports",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s-%d.parquet", name, ts.UnixNano()),
	), nil
}
