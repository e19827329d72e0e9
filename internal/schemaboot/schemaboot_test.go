package schemaboot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mastra-ai/dsqlstore/internal/testutil"
)

type fakeExec struct {
	existsFn    func(schema string) (bool, error)
	createCalls atomic.Int32
	createErr   error
}

func (f *fakeExec) SchemaExists(ctx context.Context, schema string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(schema)
	}
	return false, nil
}

func (f *fakeExec) CreateSchema(ctx context.Context, schema string) error {
	f.createCalls.Add(1)
	return f.createErr
}

func TestEnsure_CreatesOnce(t *testing.T) {
	r := NewRegistry()
	exec := &fakeExec{}

	testutil.NoError(t, r.Ensure(context.Background(), exec, "tenant_a"))
	testutil.NoError(t, r.Ensure(context.Background(), exec, "tenant_a"))
	testutil.Equal(t, int32(1), exec.createCalls.Load())
}

func TestEnsure_SkipsCreateWhenAlreadyExists(t *testing.T) {
	r := NewRegistry()
	exec := &fakeExec{existsFn: func(string) (bool, error) { return true, nil }}

	testutil.NoError(t, r.Ensure(context.Background(), exec, "tenant_a"))
	testutil.Equal(t, int32(0), exec.createCalls.Load())
}

func TestEnsure_ConcurrentCallersDeduplicate(t *testing.T) {
	r := NewRegistry()
	exec := &fakeExec{}

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Ensure(context.Background(), exec, "shared")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		testutil.NoError(t, err)
	}
	testutil.Equal(t, int32(1), exec.createCalls.Load())
}

func TestEnsure_EvictsOnFailureAllowingRetry(t *testing.T) {
	r := NewRegistry()
	exec := &fakeExec{createErr: errors.New("permission denied")}

	err := r.Ensure(context.Background(), exec, "tenant_a")
	testutil.True(t, err != nil, "expected failure")

	exec.createErr = nil
	err = r.Ensure(context.Background(), exec, "tenant_a")
	testutil.NoError(t, err)
	testutil.Equal(t, int32(2), exec.createCalls.Load())
}
