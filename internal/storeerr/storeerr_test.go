package storeerr

import (
	"errors"
	"testing"

	"github.com/mastra-ai/dsqlstore/internal/testutil"
)

func TestID(t *testing.T) {
	testutil.Equal(t, "DSQL_INSERT_FAILED", ID("dsql", "insert", "failed"))
	testutil.Equal(t, "DSQL_BATCH_INSERT_FAILED", ID("dsql", "batch insert", "failed"))
}

func TestError_WrapsAndUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := New(ID("dsql", "insert", "failed"), cause).WithTable("mastra_threads").WithDetail("recordCount", 3)

	testutil.True(t, errors.Is(err, cause) || errors.Unwrap(err) == cause, "should unwrap to cause")
	testutil.Contains(t, err.Error(), "DSQL_INSERT_FAILED")
	testutil.Contains(t, err.Error(), "mastra_threads")
	testutil.Contains(t, err.Error(), "connection reset")
}
