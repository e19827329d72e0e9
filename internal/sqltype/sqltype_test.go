package sqltype

import (
	"testing"
	"time"

	"github.com/mastra-ai/dsqlstore/internal/testutil"
)

func TestSQLType(t *testing.T) {
	cases := map[ColumnType]string{
		Text:      "TEXT",
		Integer:   "INTEGER",
		BigInt:    "BIGINT",
		Boolean:   "BOOLEAN",
		UUID:      "UUID",
		Timestamp: "TIMESTAMP",
		JSONB:     "TEXT",
	}
	for logical, want := range cases {
		got, err := SQLType(logical)
		testutil.NoError(t, err)
		testutil.Equal(t, want, got)
	}

	_, err := SQLType("bogus")
	testutil.True(t, err != nil, "expected error for unrecognized type")
}

func TestDefaultClause(t *testing.T) {
	testutil.Equal(t, `DEFAULT '{}'`, DefaultClause(JSONB, false))
	testutil.Equal(t, "", DefaultClause(JSONB, true))
	testutil.Equal(t, "", DefaultClause(Text, false))
	testutil.Equal(t, "", DefaultClause(Timestamp, false))
}

func TestShadowColumnName(t *testing.T) {
	testutil.Equal(t, "createdAtZ", ShadowColumnName("createdAt"))
}

func TestPrepareValue_Nil(t *testing.T) {
	v, err := PrepareValue(Text, nil)
	testutil.NoError(t, err)
	testutil.Nil(t, v)
}

func TestPrepareValue_Time(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v, err := PrepareValue(Timestamp, ts)
	testutil.NoError(t, err)
	testutil.Equal(t, "2026-01-02T03:04:05Z", v.(string))
}

func TestPrepareValue_JSONBObject(t *testing.T) {
	v, err := PrepareValue(JSONB, map[string]any{"a": 1})
	testutil.NoError(t, err)
	testutil.Equal(t, `{"a":1}`, v.(string))
}

func TestPrepareValue_JSONBString(t *testing.T) {
	v, err := PrepareValue(JSONB, `{"a":1}`)
	testutil.NoError(t, err)
	testutil.Equal(t, `{"a":1}`, v.(string))
}

func TestPrepareValue_NonJSONBObjectStillStringified(t *testing.T) {
	v, err := PrepareValue(Text, []string{"x", "y"})
	testutil.NoError(t, err)
	testutil.Equal(t, `["x","y"]`, v.(string))
}

func TestPrepareValue_ScalarsPassThrough(t *testing.T) {
	v, err := PrepareValue(Integer, 42)
	testutil.NoError(t, err)
	testutil.Equal(t, 42, v.(int))

	v, err = PrepareValue(Boolean, true)
	testutil.NoError(t, err)
	testutil.Equal(t, true, v.(bool))
}

func TestApplyInsertTimestampShim(t *testing.T) {
	record := map[string]any{"createdAt": "2026-01-02T03:04:05Z"}
	ApplyInsertTimestampShim(record)
	testutil.Equal(t, "2026-01-02T03:04:05Z", record["createdAtZ"].(string))
}

func TestApplyInsertTimestampShim_SnakeCase(t *testing.T) {
	record := map[string]any{"created_at": "2026-01-02T03:04:05Z"}
	ApplyInsertTimestampShim(record)
	testutil.Equal(t, "2026-01-02T03:04:05Z", record["created_atZ"].(string))
}

func TestApplyUpdateTimestampShim(t *testing.T) {
	record := map[string]any{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ApplyUpdateTimestampShim(record, now)
	testutil.Equal(t, record["updatedAt"].(string), record["updatedAtZ"].(string))
	testutil.True(t, record["updatedAt"].(string) != "", "updatedAt should be set")
}
