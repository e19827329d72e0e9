// Package schema describes the logical shape of a table a domain caller
// wants the storage core to manage: its columns, and the indexes a
// domain layer wants created over it. The core takes these as plain data;
// it never imports a domain package to avoid a layering cycle.
package schema

import "github.com/mastra-ai/dsqlstore/internal/sqltype"

// Logical column types a Column may declare.
const (
	Text      = sqltype.Text
	Integer   = sqltype.Integer
	BigInt    = sqltype.BigInt
	Boolean   = sqltype.Boolean
	UUID      = sqltype.UUID
	Timestamp = sqltype.Timestamp
	JSONB     = sqltype.JSONB
)

// Column describes one logical column of a table schema.
type Column struct {
	Type       sqltype.ColumnType
	Nullable   bool
	PrimaryKey bool
}

// TableSchema maps a table name to its column descriptors.
type TableSchema struct {
	Name    string
	Columns map[string]Column
}

// TimestampColumns returns the names of columns declared with the
// timestamp logical type, the set that needs a *Z shadow sibling.
func (s TableSchema) TimestampColumns() []string {
	var out []string
	for name, col := range s.Columns {
		if col.Type == sqltype.Timestamp {
			out = append(out, name)
		}
	}
	return out
}

// PrimaryKeyColumns returns the names of columns declared as primary key,
// in no particular order; callers needing a stable order should sort.
func (s TableSchema) PrimaryKeyColumns() []string {
	var out []string
	for name, col := range s.Columns {
		if col.PrimaryKey {
			out = append(out, name)
		}
	}
	return out
}

// CreateIndexOptions mirrors the options a domain layer supplies to the
// Index Manager's createIndex operation. Columns may carry trailing
// ASC/DESC tokens; the manager strips them since DSQL indexes are
// unordered.
type CreateIndexOptions struct {
	Name       string
	Table      string
	Columns    []string
	Unique     bool
	Where      string // ignored by DSQL; accepted for API compatibility
	Method     string // default "btree"
	OpClass    string
	Storage    string // WITH (...) clause contents
	Tablespace string
}
