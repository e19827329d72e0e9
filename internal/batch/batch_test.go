package batch

import (
	"testing"

	"github.com/mastra-ai/dsqlstore/internal/testutil"
)

func TestSplit_Empty(t *testing.T) {
	res, err := Split([]int{}, DefaultMaxRows)
	testutil.NoError(t, err)
	testutil.Equal(t, 0, res.BatchCount)
	testutil.Equal(t, 0, res.TotalRecords)
}

func TestSplit_ExactlyOneBatch(t *testing.T) {
	records := make([]int, DefaultMaxRows)
	res, err := Split(records, DefaultMaxRows)
	testutil.NoError(t, err)
	testutil.Equal(t, 1, res.BatchCount)
	testutil.SliceLen(t, res.Batches[0], DefaultMaxRows)
}

func TestSplit_Overflow(t *testing.T) {
	records := make([]int, DefaultMaxRows+1)
	res, err := Split(records, DefaultMaxRows)
	testutil.NoError(t, err)
	testutil.Equal(t, 2, res.BatchCount)
	testutil.SliceLen(t, res.Batches[0], DefaultMaxRows)
	testutil.SliceLen(t, res.Batches[1], 1)
}

func TestSplit_SmallMaxRows(t *testing.T) {
	records := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	res, err := Split(records, 3)
	testutil.NoError(t, err)
	testutil.Equal(t, 4, res.BatchCount)
	wantLens := []int{3, 3, 3, 1}
	for i, b := range res.Batches {
		testutil.SliceLen(t, b, wantLens[i])
	}
}

func TestSplit_PreservesOrderAndIdentity(t *testing.T) {
	type record struct{ id int }
	records := []*record{{1}, {2}, {3}, {4}, {5}}
	res, err := Split(records, 2)
	testutil.NoError(t, err)
	testutil.True(t, res.Batches[0][0] == records[0], "batch element should alias original")
	testutil.Equal(t, 1, res.Batches[0][0].id)
	testutil.Equal(t, 5, res.Batches[2][0].id)
}

func TestSplit_InvalidMaxRows(t *testing.T) {
	_, err := Split([]int{1, 2, 3}, 0)
	testutil.ErrorContains(t, err, "positive")

	_, err = Split([]int{1, 2, 3}, -1)
	testutil.ErrorContains(t, err, "positive")
}
