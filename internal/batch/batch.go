// Package batch shards record slices into contiguous chunks that respect a
// maximum row count per chunk, the shape Aurora DSQL's per-transaction row
// cap requires of any bulk write.
package batch

import "fmt"

// Result holds the outcome of Split: the contiguous batches, plus counts
// callers commonly need for logging without recomputing them.
type Result[T any] struct {
	Batches      [][]T
	TotalRecords int
	BatchCount   int
}

// DefaultMaxRows is Aurora DSQL's per-transaction row cap.
const DefaultMaxRows = 3000

// Split partitions records into contiguous slices of at most maxRows
// elements each. Each returned slice aliases the backing array of records,
// so callers must not rely on the returned batches being independent
// copies. maxRows must be positive.
func Split[T any](records []T, maxRows int) (Result[T], error) {
	if maxRows <= 0 {
		return Result[T]{}, fmt.Errorf("batch: maxRows must be a positive number")
	}

	total := len(records)
	if total == 0 {
		return Result[T]{TotalRecords: 0, BatchCount: 0}, nil
	}

	batches := make([][]T, 0, (total+maxRows-1)/maxRows)
	for start := 0; start < total; start += maxRows {
		end := start + maxRows
		if end > total {
			end = total
		}
		batches = append(batches, records[start:end])
	}

	return Result[T]{
		Batches:      batches,
		TotalRecords: total,
		BatchCount:   len(batches),
	}, nil
}
