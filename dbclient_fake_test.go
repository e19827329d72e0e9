package dsqlstore_test

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/mastra-ai/dsqlstore/internal/dsqlpool"
)

// call records one query issued against a fakeDB, for assertions on the
// SQL shape a Store/IndexManager operation produced.
type call struct {
	sql  string
	args []any
}

// fakeDB is a hand-rolled dsqlpool.DbClient for exercising Store and
// IndexManager without a live cluster. Tx runs fn directly against the
// same fake rather than simulating commit/rollback semantics; tests that
// care about rollback set txErr instead.
type fakeDB struct {
	mu    sync.Mutex
	calls []call

	noneErr error
	noneFn  func(sql string, args []any) error

	oneRow dsqlpool.Row
	oneErr error

	oneOrNoneFn  func(sql string, args []any) (dsqlpool.Row, error)
	oneOrNoneRow dsqlpool.Row
	oneOrNoneErr error

	manyFn   func(sql string, args []any) (dsqlpool.Rows, error)
	manyRows dsqlpool.Rows
	manyErr  error

	txErr error
}

func (f *fakeDB) record(sql string, args []any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{sql, args})
}

func (f *fakeDB) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDB) lastSQL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1].sql
}

func (f *fakeDB) None(ctx context.Context, sql string, args ...any) error {
	f.record(sql, args)
	if f.noneFn != nil {
		return f.noneFn(sql, args)
	}
	return f.noneErr
}

func (f *fakeDB) One(ctx context.Context, sql string, args ...any) (dsqlpool.Row, error) {
	f.record(sql, args)
	return f.oneRow, f.oneErr
}

func (f *fakeDB) OneOrNone(ctx context.Context, sql string, args ...any) (dsqlpool.Row, error) {
	f.record(sql, args)
	if f.oneOrNoneFn != nil {
		return f.oneOrNoneFn(sql, args)
	}
	return f.oneOrNoneRow, f.oneOrNoneErr
}

func (f *fakeDB) ManyOrNone(ctx context.Context, sql string, args ...any) (dsqlpool.Rows, error) {
	f.record(sql, args)
	if f.manyFn != nil {
		return f.manyFn(sql, args)
	}
	return f.manyRows, f.manyErr
}

func (f *fakeDB) Tx(ctx context.Context, fn func(ctx context.Context, tx dsqlpool.DbClient) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(ctx, f)
}

// fakeRow implements dsqlpool.Row (and asyncddl.Row, which has the same
// Scan signature) over a fixed tuple of values.
type fakeRow struct {
	values []any
	err    error

	// noRows mirrors noRowsTolerant: Scan succeeds without touching dest,
	// so callers see zero-valued destinations, matching OneOrNone's
	// contract for "no row found".
	noRows bool
}

func (r fakeRow) Scan(dest ...any) error {
	if r.noRows {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("fakeRow: want %d scan targets, got %d", len(r.values), len(dest))
	}
	for i, v := range r.values {
		if err := assignInto(dest[i], v); err != nil {
			return err
		}
	}
	return nil
}

// fakeRows implements dsqlpool.Rows over a fixed set of tuples.
type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("fakeRows: want %d scan targets, got %d", len(row), len(dest))
	}
	for i, v := range row {
		if err := assignInto(dest[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     {}

func assignInto(dest, value any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr {
		return fmt.Errorf("assignInto: destination must be a pointer, got %T", dest)
	}
	elem := rv.Elem()
	if value == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	vv := reflect.ValueOf(value)
	if elem.Kind() == reflect.Interface {
		elem.Set(vv)
		return nil
	}
	if !vv.Type().AssignableTo(elem.Type()) {
		return fmt.Errorf("assignInto: cannot assign %T into %s", value, elem.Type())
	}
	elem.Set(vv)
	return nil
}
