package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// KeyRole describes how a column participates in a key, normalized across
// backend dialects.
type KeyRole string

const (
	KeyNone    KeyRole = ""
	KeyPrimary KeyRole = "primary"
	KeyForeign KeyRole = "foreign"
)

type Column struct {
	Name     string  `json:"column"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Key      KeyRole `json:"key"`
}

type Table struct {
	Name    string
	Columns []Column
}

// Description is a snapshot of table metadata in database-reported order.
// It is rebuilt on every request and never cached.
type Description struct {
	Tables []Table
}

func (d Description) Table(name string) (Table, bool) {
	for _, table := range d.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return Table{}, false
}

func (d Description) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for _, table := range d.Tables {
		names = append(names, table.Name)
	}
	return names
}

// MarshalJSON emits a JSON object keyed by table name, preserving the
// database-reported table order instead of Go map ordering.
func (d Description) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBufferString("{")
	for i, table := range d.Tables {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(table.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal table name %q: %w", table.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		columns, err := json.Marshal(table.Columns)
		if err != nil {
			return nil, fmt.Errorf("marshal columns for %q: %w", table.Name, err)
		}
		buf.Write(columns)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PromptText renders the description as plain text suitable for inclusion
// in a model prompt or the data dictionary endpoint.
func (d Description) PromptText() string {
	var b strings.Builder
	for _, table := range d.Tables {
		fmt.Fprintf(&b, "Table: %s\n", table.Name)
		for _, column := range table.Columns {
			nullable := "NOT NULL"
			if column.Nullable {
				nullable = "NULL"
			}
			role := ""
			switch column.Key {
			case KeyPrimary:
				role = " PRIMARY KEY"
			case KeyForeign:
				role = " FOREIGN KEY"
			}
			fmt.Fprintf(&b, "  %s %s %s%s\n", column.Name, column.Type, nullable, role)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
