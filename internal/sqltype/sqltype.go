// Package sqltype maps the logical column types a domain schema declares
// to the SQL types and default clauses Aurora DSQL accepts, and prepares
// Go values for binding as query parameters.
package sqltype

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// ColumnType enumerates the logical column types a table schema may
// declare. The core must not assume any other values.
type ColumnType string

const (
	Text      ColumnType = "text"
	Integer   ColumnType = "integer"
	BigInt    ColumnType = "bigint"
	Boolean   ColumnType = "boolean"
	UUID      ColumnType = "uuid"
	Timestamp ColumnType = "timestamp"
	JSONB     ColumnType = "jsonb"
)

// ShadowSuffix is appended to a timestamp column's name to form its
// TIMESTAMPTZ sibling, e.g. "createdAt" -> "createdAtZ".
const ShadowSuffix = "Z"

// SQLType returns the DSQL SQL type for a logical column type. jsonb maps
// to TEXT because DSQL's native JSONB support is incomplete for DDL
// defaults; the value is cast to ::jsonb only at query-filter time.
func SQLType(t ColumnType) (string, error) {
	switch t {
	case Text:
		return "TEXT", nil
	case Integer:
		return "INTEGER", nil
	case BigInt:
		return "BIGINT", nil
	case Boolean:
		return "BOOLEAN", nil
	case UUID:
		return "UUID", nil
	case Timestamp:
		return "TIMESTAMP", nil
	case JSONB:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("sqltype: unrecognized column type %q", t)
	}
}

// ShadowSQLType is the SQL type of a timestamp column's *Z shadow sibling.
const ShadowSQLType = "TIMESTAMPTZ"

// DefaultClause returns the SQL DEFAULT clause for a logical column type
// when the column is non-nullable, or "" if the type carries no default.
// The timestamp column itself carries no default; its *Z shadow sibling
// does (see ShadowDefaultClause).
func DefaultClause(t ColumnType, nullable bool) string {
	if nullable {
		return ""
	}
	switch t {
	case JSONB:
		return `DEFAULT '{}'`
	default:
		return ""
	}
}

// ShadowDefaultClause is the DEFAULT clause attached to every *Z shadow
// column, regardless of the base column's nullability: DSQL cannot attach
// defaults to a base timestamp column added by a later ALTER TABLE, so the
// shadow column is the only place the default can live.
const ShadowDefaultClause = "DEFAULT NOW()"

// ShadowColumnName returns the shadow column name for a timestamp column.
func ShadowColumnName(column string) string {
	return column + ShadowSuffix
}

// PrepareValue adapts a Go value for binding to a parameter of the given
// logical column type:
//   - nil passes through unchanged.
//   - time.Time becomes an RFC3339 (ISO-8601) string.
//   - for jsonb columns, map/slice/struct values are JSON-marshaled.
//   - for all other columns, non-string "object" values (maps, slices,
//     structs, pointers to them) are JSON-marshaled for backwards
//     compatibility with callers that store ad-hoc structured data in
//     non-jsonb columns.
func PrepareValue(t ColumnType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if ts, ok := value.(time.Time); ok {
		return ts.UTC().Format(time.RFC3339Nano), nil
	}

	switch t {
	case JSONB:
		if isJSONObjectLike(value) {
			return marshalJSON(value)
		}
		return value, nil
	default:
		if isJSONObjectLike(value) {
			return marshalJSON(value)
		}
		return value, nil
	}
}

func marshalJSON(value any) (any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("sqltype: marshaling value: %w", err)
	}
	return string(b), nil
}

// createdAtKeys and updatedAtKeys list the record-field spellings the
// timestamp shim recognizes, matching both camelCase and snake_case
// domain conventions.
var (
	createdAtKeys = []string{"createdAt", "created_at"}
	updatedAtKeys = []string{"updatedAt", "updated_at"}
)

// ApplyInsertTimestampShim sets the *Z shadow field alongside whichever
// createdAt/created_at and updatedAt/updated_at spellings are present in
// record, mutating it in place. DSQL has no triggers, so this emulates
// triggerless timestamp maintenance at insert time.
func ApplyInsertTimestampShim(record map[string]any) {
	for _, keys := range [][]string{createdAtKeys, updatedAtKeys} {
		for _, key := range keys {
			if v, ok := record[key]; ok {
				record[key+ShadowSuffix] = v
			}
		}
	}
}

// ApplyUpdateTimestampShim sets updatedAt/updatedAtZ (and the snake_case
// equivalents, if that spelling is already present in record) to now,
// mutating record in place. Called on every update and batch-update
// element.
func ApplyUpdateTimestampShim(record map[string]any, now time.Time) {
	stamp := now.UTC().Format(time.RFC3339Nano)
	record["updatedAt"] = stamp
	record["updatedAt"+ShadowSuffix] = stamp
	if _, ok := record["updated_at"]; ok {
		record["updated_at"] = stamp
		record["updated_at"+ShadowSuffix] = stamp
	}
}

// isJSONObjectLike reports whether value is a Go type that should be
// stringified as JSON rather than passed through to the driver as-is:
// maps, slices/arrays (but not []byte), and structs. Strings, numbers,
// bools, and []byte pass through untouched.
func isJSONObjectLike(value any) bool {
	switch value.(type) {
	case string, []byte:
		return false
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}
