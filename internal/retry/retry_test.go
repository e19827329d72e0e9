package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mastra-ai/dsqlstore/internal/testutil"
)

func noJitter(n int64) int64 { return n - 1 }

func serializationErr() error {
	return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	opts := DefaultOptions()
	calls := 0
	res, err := Do(context.Background(), opts, func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	testutil.NoError(t, err)
	testutil.Equal(t, 42, res.Value)
	testutil.Equal(t, 1, res.Attempts)
	testutil.Equal(t, 1, calls)
}

func TestDo_RetriesOnSerializationFailure(t *testing.T) {
	opts := DefaultOptions()
	opts.InitialDelay = time.Millisecond
	opts.randInt63n = func(int64) int64 { return 0 }

	attempts := 0
	var retryCalls int
	opts.OnRetry = func(err error, attempt int, delay time.Duration) {
		retryCalls++
	}

	res, err := Do(context.Background(), opts, func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", serializationErr()
		}
		return "ok", nil
	})
	testutil.NoError(t, err)
	testutil.Equal(t, "ok", res.Value)
	testutil.Equal(t, 2, res.Attempts)
	testutil.Equal(t, 1, retryCalls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxAttempts = 3
	opts.InitialDelay = time.Millisecond
	opts.randInt63n = func(int64) int64 { return 0 }

	attempts := 0
	var retryCalls int
	opts.OnRetry = func(err error, attempt int, delay time.Duration) {
		retryCalls++
	}

	_, err := Do(context.Background(), opts, func(ctx context.Context) (int, error) {
		attempts++
		return 0, serializationErr()
	})
	testutil.True(t, err != nil, "expected final error")
	testutil.Equal(t, 3, attempts)
	testutil.Equal(t, 2, retryCalls)
}

func TestDo_NonRetriableFailsImmediately(t *testing.T) {
	opts := DefaultOptions()
	attempts := 0
	_, err := Do(context.Background(), opts, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &pgconn.PgError{Code: pgerrcode.UndefinedTable}
	})
	testutil.True(t, err != nil, "expected error")
	testutil.Equal(t, 1, attempts)
}

func TestDo_NonSQLSTATEErrorNotRetriable(t *testing.T) {
	opts := DefaultOptions()
	attempts := 0
	_, err := Do(context.Background(), opts, func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("network blip")
	})
	testutil.True(t, err != nil, "expected error")
	testutil.Equal(t, 1, attempts)
}

func TestOptions_Validate(t *testing.T) {
	cases := []Options{
		{MaxAttempts: 0, InitialDelay: 0, MaxDelay: time.Second, BackoffMultiplier: 2},
		{MaxAttempts: 1, InitialDelay: -1, MaxDelay: time.Second, BackoffMultiplier: 2},
		{MaxAttempts: 1, InitialDelay: 0, MaxDelay: 0, BackoffMultiplier: 2},
		{MaxAttempts: 1, InitialDelay: 0, MaxDelay: time.Second, BackoffMultiplier: 0.5},
		{MaxAttempts: 1, InitialDelay: 5 * time.Second, MaxDelay: time.Second, BackoffMultiplier: 2},
	}
	for _, o := range cases {
		testutil.True(t, o.Validate() != nil, "expected validation error for %+v", o)
	}
}

func TestDo_ValidatesBeforeAnyAttempt(t *testing.T) {
	opts := Options{MaxAttempts: 0}
	calls := 0
	_, err := Do(context.Background(), opts, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	testutil.True(t, err != nil, "expected validation error")
	testutil.Equal(t, 0, calls)
}

func TestComputeDelay_MatchesFormula(t *testing.T) {
	opts := DefaultOptions()
	opts.InitialDelay = 100 * time.Millisecond
	opts.MaxDelay = 2 * time.Second
	opts.BackoffMultiplier = 2
	opts.Jitter = false

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
		2 * time.Second, // capped
	}
	for k, w := range want {
		got := computeDelay(opts, k+1, nil)
		testutil.Equal(t, w, got)
	}
}

func TestComputeDelay_FullJitterRange(t *testing.T) {
	opts := DefaultOptions()
	opts.InitialDelay = 100 * time.Millisecond
	opts.MaxDelay = 2 * time.Second
	opts.BackoffMultiplier = 2
	opts.Jitter = true

	got := computeDelay(opts, 1, func(n int64) int64 { return n - 1 })
	testutil.Equal(t, 100*time.Millisecond, got)

	got = computeDelay(opts, 1, func(int64) int64 { return 0 })
	testutil.Equal(t, time.Duration(0), got)
}

func TestIsSerializationFailure(t *testing.T) {
	testutil.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}), "40001 should be retriable")
	testutil.False(t, IsSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	testutil.False(t, IsSerializationFailure(&pgconn.PgError{Code: "08006"}))
	testutil.False(t, IsSerializationFailure(errors.New("plain error")))
}
