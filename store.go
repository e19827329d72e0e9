// Package dsqlstore adapts a generic table-based persistence contract to
// Amazon Aurora DSQL: optimistic-concurrency retries, row-capped batch
// writes, lazy schema bootstrap, async DDL, and a JSON-in-TEXT column
// convention, wrapped in a CRUD executor and index manager.
package dsqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mastra-ai/dsqlstore/internal/batch"
	"github.com/mastra-ai/dsqlstore/internal/dsqlpool"
	"github.com/mastra-ai/dsqlstore/internal/identifier"
	"github.com/mastra-ai/dsqlstore/internal/retry"
	"github.com/mastra-ai/dsqlstore/internal/schemaboot"
	"github.com/mastra-ai/dsqlstore/internal/sqltype"
	"github.com/mastra-ai/dsqlstore/internal/storeerr"
	"github.com/mastra-ai/dsqlstore/schema"
)

// workflowSnapshotTable is the one table name the core treats specially:
// it gets a unique async index on (workflow_name, run_id) instead of an
// inline UNIQUE constraint, and its snapshot column is JSON-parsed back
// on load.
const workflowSnapshotTable = "mastra_workflow_snapshot"

// Record is a logical row: column name to value. batchInsert mutates
// records in place to add *Z timestamp shadow fields, a documented side
// effect.
type Record = map[string]any

// Store is the CRUD Executor. It owns one DbClient and a reference to the
// process-wide schema-bootstrap registry shared across all Store
// instances in this process.
type Store struct {
	db         dsqlpool.DbClient
	schemaName string
	bootstrap  *schemaboot.Registry
	retryOpts  retry.Options
	logger     *slog.Logger
}

// New builds a Store. schemaName "" defaults to "public", which requires
// no bootstrap. bootstrap may be nil to use the process-wide default
// registry (the common case: multiple Store instances sharing a database
// should share one registry).
func New(db dsqlpool.DbClient, schemaName string, bootstrap *schemaboot.Registry, logger *slog.Logger) *Store {
	if schemaName == "" {
		schemaName = "public"
	}
	if bootstrap == nil {
		bootstrap = schemaboot.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:         db,
		schemaName: schemaName,
		bootstrap:  bootstrap,
		retryOpts:  retry.DefaultOptions(),
		logger:     logger,
	}
}

// bootExec adapts the Store's DbClient to schemaboot.Execer.
type bootExec struct{ db dsqlpool.DbClient }

func (b bootExec) SchemaExists(ctx context.Context, schema string) (bool, error) {
	row, err := b.db.OneOrNone(ctx, `SELECT 1 FROM information_schema.schemata WHERE schema_name = $1`, schema)
	if err != nil {
		return false, err
	}
	var probe int
	if err := row.Scan(&probe); err != nil {
		return false, err
	}
	return probe == 1, nil
}

func (b bootExec) CreateSchema(ctx context.Context, schemaName string) error {
	quoted, err := identifier.Quote("schema", schemaName)
	if err != nil {
		return err
	}
	return b.db.None(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, quoted))
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if s.schemaName == "public" {
		return nil
	}
	return s.bootstrap.Ensure(ctx, bootExec{s.db}, s.schemaName)
}

func (s *Store) qualifiedTable(table string) (string, error) {
	return identifier.QuoteQualified(s.schemaName, "table", table)
}

func (s *Store) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := retry.Do(ctx, s.retryOpts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func wrapErr(op, table string, recordCount int, cause error) error {
	e := storeerr.New(storeerr.ID("dsql", op, "failed"), cause).WithTable(table)
	if recordCount >= 0 {
		e = e.WithDetail("recordCount", recordCount)
	}
	return e
}

// createTable ensures the schema exists, builds the column list (with
// *Z shadow siblings for every timestamp column), and issues CREATE TABLE
// IF NOT EXISTS. For mastra_workflow_snapshot it also fires the async
// unique-index DDL, best-effort.
func (s *Store) CreateTable(ctx context.Context, desc schema.TableSchema, idx IndexIssuer) error {
	if err := s.ensureSchema(ctx); err != nil {
		return wrapErr("create_table", desc.Name, -1, err)
	}

	qTable, err := s.qualifiedTable(desc.Name)
	if err != nil {
		return wrapErr("create_table", desc.Name, -1, err)
	}

	colDefs, err := buildColumnDefs(desc)
	if err != nil {
		return wrapErr("create_table", desc.Name, -1, err)
	}

	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, qTable, strings.Join(colDefs, ", "))
	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.None(ctx, sql)
	}); err != nil {
		return wrapErr("create_table", desc.Name, -1, err)
	}

	shadowCols := desc.TimestampColumns()
	sort.Strings(shadowCols)
	if len(shadowCols) > 0 {
		if err := s.AlterTable(ctx, desc, shadowCols); err != nil {
			return err
		}
	}

	if desc.Name == workflowSnapshotTable && idx != nil {
		if err := idx.CreateIndex(ctx, schema.CreateIndexOptions{
			Name:    "idx_workflow_snapshot_name_run",
			Table:   desc.Name,
			Columns: []string{"workflow_name", "run_id"},
			Unique:  true,
		}); err != nil {
			s.logger.Warn("unique index creation on workflow snapshot table did not complete",
				"table", desc.Name, "error", err)
		}
	}

	return nil
}

// alterTable issues ALTER TABLE ... ADD COLUMN IF NOT EXISTS for every
// column named in ifNotExists. DSQL's ALTER TABLE cannot carry NOT NULL or
// a default, so added columns are always nullable; timestamp columns
// additionally get their nullable *Z sibling.
func (s *Store) AlterTable(ctx context.Context, desc schema.TableSchema, ifNotExists []string) error {
	qTable, err := s.qualifiedTable(desc.Name)
	if err != nil {
		return wrapErr("alter_table", desc.Name, -1, err)
	}

	for _, colName := range ifNotExists {
		col, ok := desc.Columns[colName]
		if !ok {
			continue
		}
		qCol, err := identifier.Quote("column", colName)
		if err != nil {
			return wrapErr("alter_table", desc.Name, -1, err)
		}
		sqlType, err := sqltype.SQLType(col.Type)
		if err != nil {
			return wrapErr("alter_table", desc.Name, -1, err)
		}

		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, qTable, qCol, sqlType)
		if err := s.withRetry(ctx, func(ctx context.Context) error {
			return s.db.None(ctx, stmt)
		}); err != nil {
			return wrapErr("alter_table", desc.Name, -1, err)
		}

		if col.Type == sqltype.Timestamp {
			qShadow, err := identifier.Quote("column", sqltype.ShadowColumnName(colName))
			if err != nil {
				return wrapErr("alter_table", desc.Name, -1, err)
			}
			shadowStmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, qTable, qShadow, sqltype.ShadowSQLType)
			if err := s.withRetry(ctx, func(ctx context.Context) error {
				return s.db.None(ctx, shadowStmt)
			}); err != nil {
				return wrapErr("alter_table", desc.Name, -1, err)
			}
		}
	}
	return nil
}

// buildColumnDefs renders the full column list for CREATE TABLE,
// including *Z shadow columns (with DEFAULT NOW()) for every timestamp
// column, plus a PRIMARY KEY clause.
func buildColumnDefs(desc schema.TableSchema) ([]string, error) {
	names := make([]string, 0, len(desc.Columns))
	for name := range desc.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	var defs []string
	var pkCols []string
	for _, name := range names {
		col := desc.Columns[name]
		qName, err := identifier.Quote("column", name)
		if err != nil {
			return nil, err
		}
		sqlType, err := sqltype.SQLType(col.Type)
		if err != nil {
			return nil, err
		}

		def := fmt.Sprintf("%s %s", qName, sqlType)
		if !col.Nullable {
			if clause := sqltype.DefaultClause(col.Type, col.Nullable); clause != "" {
				def += " " + clause
			}
			def += " NOT NULL"
		}
		defs = append(defs, def)

		if col.PrimaryKey {
			pkCols = append(pkCols, qName)
		}

		if col.Type == sqltype.Timestamp {
			qShadow, err := identifier.Quote("column", sqltype.ShadowColumnName(name))
			if err != nil {
				return nil, err
			}
			defs = append(defs, fmt.Sprintf("%s %s %s", qShadow, sqltype.ShadowSQLType, sqltype.ShadowDefaultClause))
		}
	}

	if len(pkCols) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkCols, ", ")))
	}

	return defs, nil
}

// insert adds *Z timestamp shadows, prepares values through the type
// adapter, and issues a parameterized INSERT.
func (s *Store) Insert(ctx context.Context, desc schema.TableSchema, record Record) error {
	sqltype.ApplyInsertTimestampShim(record)

	qTable, err := s.qualifiedTable(desc.Name)
	if err != nil {
		return wrapErr("insert", desc.Name, 1, err)
	}

	cols, placeholders, values, err := s.prepareRecord(desc, record)
	if err != nil {
		return wrapErr("insert", desc.Name, 1, err)
	}

	sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, qTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.None(ctx, sql, values...)
	}); err != nil {
		return wrapErr("insert", desc.Name, 1, err)
	}
	return nil
}

// batchInsert splits records by the DSQL row cap and runs each batch
// inside its own transaction, one parameterized INSERT per record in
// submission order.
func (s *Store) BatchInsert(ctx context.Context, desc schema.TableSchema, records []Record) error {
	result, err := batch.Split(records, batch.DefaultMaxRows)
	if err != nil {
		return wrapErr("batch_insert", desc.Name, len(records), err)
	}

	qTable, err := s.qualifiedTable(desc.Name)
	if err != nil {
		return wrapErr("batch_insert", desc.Name, len(records), err)
	}

	for _, b := range result.Batches {
		if err := s.withRetry(ctx, func(ctx context.Context) error {
			return s.db.Tx(ctx, func(ctx context.Context, tx dsqlpool.DbClient) error {
				for _, record := range b {
					sqltype.ApplyInsertTimestampShim(record)
					cols, placeholders, values, err := s.prepareRecord(desc, record)
					if err != nil {
						return err
					}
					sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, qTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
					if err := tx.None(ctx, sql, values...); err != nil {
						return err
					}
				}
				return nil
			})
		}); err != nil {
			return wrapErr("batch_insert", desc.Name, len(records), err)
		}
	}
	return nil
}

// load builds SELECT <columns> FROM t WHERE k1=$1 AND k2=$2 ... ORDER BY
// "createdAt" DESC LIMIT 1, selecting every declared column plus each *Z
// shadow column, in sorted order. For mastra_workflow_snapshot it JSON-parses a
// string-encoded snapshot column before returning.
func (s *Store) Load(ctx context.Context, desc schema.TableSchema, keys Record) (Record, bool, error) {
	qTable, err := s.qualifiedTable(desc.Name)
	if err != nil {
		return nil, false, wrapErr("load", desc.Name, -1, err)
	}

	keyNames := sortedKeys(keys)
	conditions := make([]string, 0, len(keyNames))
	values := make([]any, 0, len(keyNames))
	for i, name := range keyNames {
		qCol, err := identifier.Quote("column", name)
		if err != nil {
			return nil, false, wrapErr("load", desc.Name, -1, err)
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", qCol, i+1))
		values = append(values, keys[name])
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	columnOrder := sortedColumnNames(desc)
	selectList := make([]string, len(columnOrder))
	for i, name := range columnOrder {
		qCol, err := identifier.Quote("column", name)
		if err != nil {
			return nil, false, wrapErr("load", desc.Name, -1, err)
		}
		selectList[i] = qCol
	}
	sql := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY "createdAt" DESC LIMIT 1`, strings.Join(selectList, ", "), qTable, where)
	var found Record
	var rowErr error

	err = s.withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.db.ManyOrNone(ctx, sql, values...)
		if err != nil {
			return err
		}
		defer rows.Close()

		if !rows.Next() {
			rowErr = rows.Err()
			return rowErr
		}

		scanDests := make([]any, len(columnOrder))
		scanVals := make([]any, len(columnOrder))
		for i := range scanDests {
			scanDests[i] = &scanVals[i]
		}
		if err := rows.Scan(scanDests...); err != nil {
			return err
		}

		rec := make(Record, len(columnOrder))
		for i, name := range columnOrder {
			rec[name] = scanVals[i]
		}
		found = rec
		return nil
	})
	if err != nil {
		return nil, false, wrapErr("load", desc.Name, -1, err)
	}
	if found == nil {
		return nil, false, nil
	}

	if desc.Name == workflowSnapshotTable {
		if raw, ok := found["snapshot"].(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
				found["snapshot"] = parsed
			}
		}
	}

	return found, true, nil
}

// update injects updatedAt/updatedAtZ and issues a parameterized
// SET ... WHERE ... statement.
func (s *Store) Update(ctx context.Context, desc schema.TableSchema, keys Record, data Record) error {
	sqltype.ApplyUpdateTimestampShim(data, time.Now())

	qTable, err := s.qualifiedTable(desc.Name)
	if err != nil {
		return wrapErr("update", desc.Name, 1, err)
	}

	setNames := sortedKeys(data)
	setClauses := make([]string, 0, len(setNames))
	values := make([]any, 0, len(setNames)+len(keys))
	paramIdx := 1
	for _, name := range setNames {
		qCol, err := identifier.Quote("column", name)
		if err != nil {
			return wrapErr("update", desc.Name, 1, err)
		}
		colType := columnTypeOf(desc, name)
		prepared, err := sqltype.PrepareValue(colType, data[name])
		if err != nil {
			return wrapErr("update", desc.Name, 1, err)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", qCol, paramIdx))
		values = append(values, prepared)
		paramIdx++
	}

	keyNames := sortedKeys(keys)
	whereClauses := make([]string, 0, len(keyNames))
	for _, name := range keyNames {
		qCol, err := identifier.Quote("column", name)
		if err != nil {
			return wrapErr("update", desc.Name, 1, err)
		}
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", qCol, paramIdx))
		values = append(values, keys[name])
		paramIdx++
	}

	sql := fmt.Sprintf(`UPDATE %s SET %s WHERE %s`, qTable, strings.Join(setClauses, ", "), strings.Join(whereClauses, " AND "))
	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.None(ctx, sql, values...)
	}); err != nil {
		return wrapErr("update", desc.Name, 1, err)
	}
	return nil
}

// batchUpdate splits updates by the row cap and runs each batch in a
// transaction, one UPDATE per element.
func (s *Store) BatchUpdate(ctx context.Context, desc schema.TableSchema, updates []KeyedUpdate) error {
	result, err := batch.Split(updates, batch.DefaultMaxRows)
	if err != nil {
		return wrapErr("batch_update", desc.Name, len(updates), err)
	}

	for _, b := range result.Batches {
		if err := s.withRetry(ctx, func(ctx context.Context) error {
			return s.db.Tx(ctx, func(ctx context.Context, tx dsqlpool.DbClient) error {
				for _, u := range b {
					if err := s.updateWithClient(ctx, tx, desc, u.Keys, u.Data); err != nil {
						return err
					}
				}
				return nil
			})
		}); err != nil {
			return wrapErr("batch_update", desc.Name, len(updates), err)
		}
	}
	return nil
}

// KeyedUpdate pairs a key selector with the data to set, the element type
// for batchUpdate.
type KeyedUpdate struct {
	Keys Record
	Data Record
}

func (s *Store) updateWithClient(ctx context.Context, db dsqlpool.DbClient, desc schema.TableSchema, keys, data Record) error {
	sqltype.ApplyUpdateTimestampShim(data, time.Now())

	qTable, err := s.qualifiedTable(desc.Name)
	if err != nil {
		return err
	}

	setNames := sortedKeys(data)
	setClauses := make([]string, 0, len(setNames))
	values := make([]any, 0, len(setNames)+len(keys))
	paramIdx := 1
	for _, name := range setNames {
		qCol, err := identifier.Quote("column", name)
		if err != nil {
			return err
		}
		colType := columnTypeOf(desc, name)
		prepared, err := sqltype.PrepareValue(colType, data[name])
		if err != nil {
			return err
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", qCol, paramIdx))
		values = append(values, prepared)
		paramIdx++
	}

	keyNames := sortedKeys(keys)
	whereClauses := make([]string, 0, len(keyNames))
	for _, name := range keyNames {
		qCol, err := identifier.Quote("column", name)
		if err != nil {
			return err
		}
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", qCol, paramIdx))
		values = append(values, keys[name])
		paramIdx++
	}

	sql := fmt.Sprintf(`UPDATE %s SET %s WHERE %s`, qTable, strings.Join(setClauses, ", "), strings.Join(whereClauses, " AND "))
	return db.None(ctx, sql, values...)
}

// batchDelete splits keys by the row cap and runs each batch in a
// transaction, one DELETE per element.
func (s *Store) BatchDelete(ctx context.Context, desc schema.TableSchema, keysList []Record) error {
	result, err := batch.Split(keysList, batch.DefaultMaxRows)
	if err != nil {
		return wrapErr("batch_delete", desc.Name, len(keysList), err)
	}

	qTable, err := s.qualifiedTable(desc.Name)
	if err != nil {
		return wrapErr("batch_delete", desc.Name, len(keysList), err)
	}

	for _, b := range result.Batches {
		if err := s.withRetry(ctx, func(ctx context.Context) error {
			return s.db.Tx(ctx, func(ctx context.Context, tx dsqlpool.DbClient) error {
				for _, keys := range b {
					keyNames := sortedKeys(keys)
					whereClauses := make([]string, 0, len(keyNames))
					values := make([]any, 0, len(keyNames))
					for i, name := range keyNames {
						qCol, err := identifier.Quote("column", name)
						if err != nil {
							return err
						}
						whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", qCol, i+1))
						values = append(values, keys[name])
					}
					sql := fmt.Sprintf(`DELETE FROM %s WHERE %s`, qTable, strings.Join(whereClauses, " AND "))
					if err := tx.None(ctx, sql, values...); err != nil {
						return err
					}
				}
				return nil
			})
		}); err != nil {
			return wrapErr("batch_delete", desc.Name, len(keysList), err)
		}
	}
	return nil
}

// clearTable issues DELETE FROM t; DSQL forbids TRUNCATE.
func (s *Store) ClearTable(ctx context.Context, table string) error {
	qTable, err := s.qualifiedTable(table)
	if err != nil {
		return wrapErr("clear_table", table, -1, err)
	}
	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.None(ctx, fmt.Sprintf(`DELETE FROM %s`, qTable))
	}); err != nil {
		return wrapErr("clear_table", table, -1, err)
	}
	return nil
}

// dropTable issues DROP TABLE IF EXISTS.
func (s *Store) DropTable(ctx context.Context, table string) error {
	qTable, err := s.qualifiedTable(table)
	if err != nil {
		return wrapErr("drop_table", table, -1, err)
	}
	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.None(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, qTable))
	}); err != nil {
		return wrapErr("drop_table", table, -1, err)
	}
	return nil
}

func (s *Store) prepareRecord(desc schema.TableSchema, record Record) (cols, placeholders []string, values []any, err error) {
	names := sortedKeys(record)
	for i, name := range names {
		qCol, qerr := identifier.Quote("column", name)
		if qerr != nil {
			return nil, nil, nil, qerr
		}
		colType := columnTypeOf(desc, name)
		prepared, perr := sqltype.PrepareValue(colType, record[name])
		if perr != nil {
			return nil, nil, nil, perr
		}
		cols = append(cols, qCol)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		values = append(values, prepared)
	}
	return cols, placeholders, values, nil
}

func columnTypeOf(desc schema.TableSchema, name string) sqltype.ColumnType {
	if col, ok := desc.Columns[name]; ok {
		return col.Type
	}
	if strings.HasSuffix(name, sqltype.ShadowSuffix) {
		return sqltype.Timestamp
	}
	return sqltype.Text
}

func sortedKeys(m Record) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func sortedColumnNames(desc schema.TableSchema) []string {
	names := make([]string, 0, len(desc.Columns)*2)
	for name, col := range desc.Columns {
		names = append(names, name)
		if col.Type == sqltype.Timestamp {
			names = append(names, sqltype.ShadowColumnName(name))
		}
	}
	sort.Strings(names)
	return names
}
