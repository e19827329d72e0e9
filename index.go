package dsqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/mastra-ai/dsqlstore/internal/asyncddl"
	"github.com/mastra-ai/dsqlstore/internal/dsqlpool"
	"github.com/mastra-ai/dsqlstore/internal/identifier"
	"github.com/mastra-ai/dsqlstore/internal/storeerr"
	"github.com/mastra-ai/dsqlstore/schema"
)

// IndexIssuer is the subset of the Index Manager the CRUD executor needs
// to fire the workflow-snapshot unique index during table creation.
type IndexIssuer interface {
	CreateIndex(ctx context.Context, opts schema.CreateIndexOptions) error
}

// IndexManager implements createIndex, dropIndex, listIndexes, and
// describeIndex against Aurora DSQL's async DDL and pg_indexes/pg_class
// catalogs.
type IndexManager struct {
	db         dsqlpool.DbClient
	schemaName string
	ddlOpts    asyncddl.Options
}

// NewIndexManager builds an IndexManager bound to db within schemaName.
func NewIndexManager(db dsqlpool.DbClient, schemaName string) *IndexManager {
	if schemaName == "" {
		schemaName = "public"
	}
	return &IndexManager{db: db, schemaName: schemaName}
}

// stripSortDirection removes a trailing ASC/DESC token from a caller-
// supplied column spec: DSQL indexes are unordered and reject sort
// specifiers.
func stripSortDirection(col string) string {
	col = strings.TrimSpace(col)
	for _, suffix := range []string{" ASC", " asc", " DESC", " desc"} {
		if strings.HasSuffix(col, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(col, suffix))
		}
	}
	return col
}

// CreateIndex checks pg_indexes for an existing same-named index, and if
// absent issues CREATE [UNIQUE] INDEX ASYNC and drives it to completion
// via the async DDL driver. Storage becomes a WITH (...) clause; Where,
// OpClass and Tablespace are accepted but not written into the DDL.
func (m *IndexManager) CreateIndex(ctx context.Context, opts schema.CreateIndexOptions) error {
	exists, err := m.indexExists(ctx, opts.Name)
	if err != nil {
		return storeerr.New(storeerr.ID("dsql", "create_index", "failed"), err).WithTable(opts.Table)
	}
	if exists {
		return nil
	}

	qIndex, err := identifier.Quote("index", opts.Name)
	if err != nil {
		return storeerr.New(storeerr.ID("dsql", "create_index", "failed"), err).WithTable(opts.Table)
	}
	qTable, err := identifier.QuoteQualified(m.schemaName, "table", opts.Table)
	if err != nil {
		return storeerr.New(storeerr.ID("dsql", "create_index", "failed"), err).WithTable(opts.Table)
	}

	cols := make([]string, len(opts.Columns))
	for i, c := range opts.Columns {
		qc, err := identifier.Quote("column", stripSortDirection(c))
		if err != nil {
			return storeerr.New(storeerr.ID("dsql", "create_index", "failed"), err).WithTable(opts.Table)
		}
		cols[i] = qc
	}

	method := opts.Method
	if method == "" {
		method = "btree"
	}

	var b strings.Builder
	b.WriteString("CREATE ")
	if opts.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ASYNC ")
	b.WriteString(qIndex)
	b.WriteString(" ON ")
	b.WriteString(qTable)
	fmt.Fprintf(&b, " USING %s (%s)", method, strings.Join(cols, ", "))
	if opts.Storage != "" {
		fmt.Fprintf(&b, " WITH (%s)", opts.Storage)
	}

	ddlSQL := b.String()

	if err := asyncddl.Run(ctx, m, m.ddlOpts, ddlSQL); err != nil {
		return storeerr.New(storeerr.ID("dsql", "create_index", "failed"), err).WithTable(opts.Table)
	}
	return nil
}

// QueryRow adapts IndexManager to asyncddl.Querier so Run/Wait can use it
// directly.
func (m *IndexManager) QueryRow(ctx context.Context, sql string, args ...any) asyncddl.Row {
	row, err := m.db.OneOrNone(ctx, sql, args...)
	if err != nil {
		return errRow{err}
	}
	return row
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

func (m *IndexManager) indexExists(ctx context.Context, name string) (bool, error) {
	row, err := m.db.OneOrNone(ctx, `SELECT 1 FROM pg_indexes WHERE schemaname = $1 AND indexname = $2`, m.schemaName, name)
	if err != nil {
		return false, err
	}
	var probe int
	if err := row.Scan(&probe); err != nil {
		return false, err
	}
	return probe == 1, nil
}

// DropIndex checks existence, then issues DROP INDEX IF EXISTS.
func (m *IndexManager) DropIndex(ctx context.Context, name string) error {
	exists, err := m.indexExists(ctx, name)
	if err != nil {
		return storeerr.New(storeerr.ID("dsql", "drop_index", "failed"), err)
	}
	if !exists {
		return nil
	}
	qIndex, err := identifier.Quote("index", name)
	if err != nil {
		return storeerr.New(storeerr.ID("dsql", "drop_index", "failed"), err)
	}
	if err := m.db.None(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s`, qIndex)); err != nil {
		return storeerr.New(storeerr.ID("dsql", "drop_index", "failed"), err)
	}
	return nil
}

// IndexInfo describes one row of listIndexes/describeIndex output.
type IndexInfo struct {
	Name        string
	Table       string
	Columns     []string
	Unique      bool
	SizeBytes   int64
	Definition  string
	Method      string
	Scans       int64
	TuplesRead  int64
	TuplesFetch int64
}

// ListIndexes joins pg_indexes, pg_class, and pg_index to return index
// metadata; each index's columns are parsed from its definition. If table
// is non-empty, results are filtered to that table.
func (m *IndexManager) ListIndexes(ctx context.Context, table string) ([]IndexInfo, error) {
	sql := `
		SELECT i.indexname, i.tablename, i.indexdef, ix.indisunique,
		       pg_relation_size(c.oid) AS size_bytes
		FROM pg_indexes i
		JOIN pg_class c ON c.relname = i.indexname
		JOIN pg_index ix ON ix.indexrelid = c.oid
		WHERE i.schemaname = $1 AND ($2 = '' OR i.tablename = $2)
		ORDER BY i.indexname`

	rows, err := m.db.ManyOrNone(ctx, sql, m.schemaName, table)
	if err != nil {
		return nil, storeerr.New(storeerr.ID("dsql", "list_indexes", "failed"), err)
	}
	defer rows.Close()

	var out []IndexInfo
	for rows.Next() {
		var info IndexInfo
		var def string
		if err := rows.Scan(&info.Name, &info.Table, &def, &info.Unique, &info.SizeBytes); err != nil {
			return nil, storeerr.New(storeerr.ID("dsql", "list_indexes", "failed"), err)
		}
		info.Definition = def
		info.Columns = columnsFromDefinition(def)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.New(storeerr.ID("dsql", "list_indexes", "failed"), err)
	}
	return out, nil
}

// DescribeIndex extends ListIndexes with method, scan count, and tuple
// statistics from pg_stat_user_indexes, normalizing DSQL's btree_index
// method name to "btree" for API consistency with vanilla PostgreSQL.
func (m *IndexManager) DescribeIndex(ctx context.Context, name string) (IndexInfo, error) {
	list, err := m.ListIndexes(ctx, "")
	if err != nil {
		return IndexInfo{}, err
	}
	var found *IndexInfo
	for i := range list {
		if list[i].Name == name {
			found = &list[i]
			break
		}
	}
	if found == nil {
		return IndexInfo{}, storeerr.New(storeerr.ID("dsql", "describe_index", "not_found"), fmt.Errorf("index %q not found", name))
	}

	sql := `
		SELECT am.amname, s.idx_scan, s.idx_tup_read, s.idx_tup_fetch
		FROM pg_stat_user_indexes s
		JOIN pg_class c ON c.oid = s.indexrelid
		JOIN pg_am am ON am.oid = c.relam
		WHERE s.schemaname = $1 AND s.indexrelname = $2`

	row, err := m.db.OneOrNone(ctx, sql, m.schemaName, name)
	if err != nil {
		return IndexInfo{}, storeerr.New(storeerr.ID("dsql", "describe_index", "failed"), err)
	}
	var method string
	if err := row.Scan(&method, &found.Scans, &found.TuplesRead, &found.TuplesFetch); err == nil {
		found.Method = normalizeMethod(method)
	}

	return *found, nil
}

func normalizeMethod(method string) string {
	if method == "btree_index" {
		return "btree"
	}
	return method
}

// columnsFromDefinition extracts the parenthesized column list out of a
// pg_indexes.indexdef string, e.g. "CREATE INDEX ... (a, b)" -> ["a","b"].
func columnsFromDefinition(def string) []string {
	start := strings.Index(def, "(")
	end := strings.LastIndex(def, ")")
	if start < 0 || end < 0 || end <= start {
		return nil
	}
	inner := def[start+1 : end]
	parts := strings.Split(inner, ",")
	cols := make([]string, len(parts))
	for i, p := range parts {
		cols[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return cols
}
