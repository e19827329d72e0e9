// Package schemaboot deduplicates CREATE SCHEMA IF NOT EXISTS across
// multiple in-process core instances that share one database, so
// concurrent startups don't race each other issuing the same DDL.
package schemaboot

import (
	"context"
	"fmt"
	"sync"
)

// Execer is the minimal query surface the coordinator needs: a check for
// whether a schema exists, and a call that creates it.
type Execer interface {
	// SchemaExists reports whether schema is already present.
	SchemaExists(ctx context.Context, schema string) (bool, error)
	// CreateSchema issues CREATE SCHEMA IF NOT EXISTS for schema.
	CreateSchema(ctx context.Context, schema string) error
}

type inFlight struct {
	done chan struct{}
	err  error
}

// Registry is a process-wide, mutex-guarded map from schema name to its
// bootstrap state. The default schema ("public") never needs an entry;
// callers should skip Ensure for it.
//
// complete holds schema names that have finished bootstrapping; it is a
// sync.Map so a schema already known complete can be checked without
// taking mu, the common case once a process has warmed up.
type Registry struct {
	mu       sync.Mutex
	pending  map[string]*inFlight
	complete sync.Map // schema name -> struct{}
}

// NewRegistry constructs an empty registry. Most callers should use the
// process-wide Default registry instead of constructing their own, so that
// independent core instances pointed at the same database actually
// deduplicate against each other.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]*inFlight)}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide schema-bootstrap registry shared by all
// core instances in this process.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry()
	})
	return defaultReg
}

// Ensure guarantees that schema exists in the database exec reaches,
// issuing CREATE SCHEMA IF NOT EXISTS at most once per schema name for the
// lifetime of the registry. Concurrent callers for the same schema name
// all wait on the single in-flight attempt. On failure the entry is
// evicted so a later call may retry.
func (r *Registry) Ensure(ctx context.Context, exec Execer, schema string) error {
	if _, ok := r.complete.Load(schema); ok {
		return nil
	}

	r.mu.Lock()
	if f, ok := r.pending[schema]; ok {
		r.mu.Unlock()
		return waitFor(ctx, f)
	}

	f := &inFlight{done: make(chan struct{})}
	r.pending[schema] = f
	r.mu.Unlock()

	f.err = r.bootstrap(ctx, exec, schema)

	r.mu.Lock()
	if f.err == nil {
		r.complete.Store(schema, struct{}{})
	}
	delete(r.pending, schema)
	r.mu.Unlock()
	close(f.done)

	return f.err
}

func (r *Registry) bootstrap(ctx context.Context, exec Execer, schema string) error {
	exists, err := exec.SchemaExists(ctx, schema)
	if err != nil {
		return fmt.Errorf("schemaboot: checking schema %q: %w", schema, err)
	}
	if exists {
		return nil
	}
	if err := exec.CreateSchema(ctx, schema); err != nil {
		return fmt.Errorf("schemaboot: creating schema %q: %w", schema, err)
	}
	return nil
}

func waitFor(ctx context.Context, f *inFlight) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset clears all entries. Intended for tests only.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.pending = make(map[string]*inFlight)
	r.mu.Unlock()
	r.complete.Range(func(k, _ any) bool {
		r.complete.Delete(k)
		return true
	})
}
