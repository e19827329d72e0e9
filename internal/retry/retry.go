// Package retry executes an operation with exponential backoff and full
// jitter, retrying only errors classified as transient. The default
// classifier recognizes Aurora DSQL's optimistic-concurrency serialization
// failure (SQLSTATE 40001); callers may supply their own classifier.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Options configures a call to Do. The zero value is not valid; use
// DefaultOptions and override fields as needed.
type Options struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool

	// OnRetry, if set, is invoked once between a failed attempt and the
	// next, never after the final failure.
	OnRetry func(err error, attempt int, delay time.Duration)

	// IsRetriable, if set, overrides the default SQLSTATE 40001 classifier.
	IsRetriable func(err error) bool

	// randInt63n is injectable for deterministic tests; nil means
	// math/rand.Int63n.
	randInt63n func(int64) int64
}

// DefaultOptions returns the package's default retry/backoff settings.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:       5,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            true,
	}
}

// Validate checks option invariants. Violations must be caught before any
// attempt is made.
func (o Options) Validate() error {
	if o.MaxAttempts < 1 {
		return fmt.Errorf("retry: maxAttempts must be >= 1, got %d", o.MaxAttempts)
	}
	if o.InitialDelay < 0 {
		return fmt.Errorf("retry: initialDelayMs must be >= 0, got %v", o.InitialDelay)
	}
	if o.MaxDelay <= 0 {
		return fmt.Errorf("retry: maxDelayMs must be > 0, got %v", o.MaxDelay)
	}
	if o.BackoffMultiplier < 1 {
		return fmt.Errorf("retry: backoffMultiplier must be >= 1, got %v", o.BackoffMultiplier)
	}
	if o.MaxDelay < o.InitialDelay {
		return fmt.Errorf("retry: maxDelayMs must be >= initialDelayMs")
	}
	return nil
}

// Result carries the outcome of a successful Do call.
type Result[T any] struct {
	Value       T
	Attempts    int
	TotalTimeMs int64
}

// clock abstracts the time source and sleep used by Do; Do always uses
// realClock.
type clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do executes fn, retrying on transient errors per opts. It returns the
// first successful result, or the last error from fn, unwrapped, once
// attempts are exhausted or the error is not retriable.
func Do[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (Result[T], error) {
	var zero T
	if err := opts.Validate(); err != nil {
		return Result[T]{}, err
	}

	c := clock(realClock{})
	start := c.Now()

	isRetriable := opts.IsRetriable
	if isRetriable == nil {
		isRetriable = IsSerializationFailure
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result[T]{}, err
		}

		value, err := fn(ctx)
		if err == nil {
			return Result[T]{
				Value:       value,
				Attempts:    attempt,
				TotalTimeMs: c.Now().Sub(start).Milliseconds(),
			}, nil
		}

		lastErr = err
		if attempt == opts.MaxAttempts || !isRetriable(err) {
			return Result[T]{}, lastErr
		}

		delay := computeDelay(opts, attempt, opts.randInt63n)
		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt, delay)
		}
		if sleepErr := c.Sleep(ctx, delay); sleepErr != nil {
			return Result[T]{}, sleepErr
		}
	}

	_ = zero
	return Result[T]{}, lastErr
}

// computeDelay implements the full-jitter formula: delay before attempt
// k+1 is uniform in [0, min(initial*multiplier^(k-1), maxDelay)].
func computeDelay(opts Options, attempt int, randInt63n func(int64) int64) time.Duration {
	base := float64(opts.InitialDelay) * pow(opts.BackoffMultiplier, attempt-1)
	capped := time.Duration(base)
	if capped > opts.MaxDelay {
		capped = opts.MaxDelay
	}
	if !opts.Jitter {
		return capped
	}
	if capped <= 0 {
		return 0
	}
	if randInt63n == nil {
		randInt63n = rand.Int63n
	}
	return time.Duration(randInt63n(int64(capped) + 1))
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// IsSerializationFailure is the default retriability classifier: an error
// is retriable iff it carries a PostgreSQL SQLSTATE code equal to 40001
// (serialization failure under OCC).
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure
}
