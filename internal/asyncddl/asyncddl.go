// Package asyncddl drives Aurora DSQL's asynchronous DDL pattern: issue a
// statement with an ASYNC suffix, read back a job_uuid, then poll
// sys.wait_for_job until the job completes, fails, or a timeout elapses.
// Callers see a single synchronous operation; the job_uuid never escapes.
package asyncddl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status values returned by sys.wait_for_job.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

const (
	// DefaultTimeout bounds the total wait for a job to finish.
	DefaultTimeout = 60 * time.Second
	// PollInterval matches the argument passed to sys.wait_for_job.
	PollInterval = 1 * time.Second
)

// Row is the minimal result-row scanner the driver needs; pgx.Row
// satisfies this directly.
type Row interface {
	Scan(dest ...any) error
}

// Querier is the query surface the driver needs from the pool/connection
// it runs against.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// ErrTimeout is returned when a job does not reach a terminal status
// within the configured timeout.
var ErrTimeout = errors.New("asyncddl: timed out waiting for job")

// Options configures a Run call. The zero value uses DefaultTimeout and
// PollInterval.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = PollInterval
	}
	return o
}

// Run issues the given DDL statement (which must be an ASYNC DDL
// statement returning a job_uuid column), then polls sys.wait_for_job
// until the job completes, fails, or times out.
func Run(ctx context.Context, q Querier, opts Options, ddlSQL string, args ...any) error {
	opts = opts.withDefaults()

	var jobUUID string
	if err := q.QueryRow(ctx, ddlSQL, args...).Scan(&jobUUID); err != nil {
		return fmt.Errorf("asyncddl: issuing DDL: %w", err)
	}
	if _, err := uuid.Parse(jobUUID); err != nil {
		return fmt.Errorf("asyncddl: job_uuid %q is not a valid UUID: %w", jobUUID, err)
	}

	return Wait(ctx, q, opts, jobUUID)
}

// Wait polls sys.wait_for_job(jobUUID, 1) at PollInterval until the job
// reaches COMPLETED or FAILED, or the overall Timeout elapses.
func Wait(ctx context.Context, q Querier, opts Options, jobUUID string) error {
	opts = opts.withDefaults()

	deadline := time.Now().Add(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		status, err := pollOnce(ctx, q, jobUUID)
		if err != nil {
			return err
		}
		switch status {
		case StatusCompleted:
			return nil
		case StatusFailed:
			return fmt.Errorf("asyncddl: job %s failed", jobUUID)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: job %s still %s after %s", ErrTimeout, jobUUID, status, opts.Timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func pollOnce(ctx context.Context, q Querier, jobUUID string) (string, error) {
	var status string
	err := q.QueryRow(ctx, `SELECT sys.wait_for_job($1, 1)`, jobUUID).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("asyncddl: polling job %s: %w", jobUUID, err)
	}
	return status, nil
}
