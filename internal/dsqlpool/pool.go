// Package dsqlpool wraps a pgx connection pool with Aurora DSQL's
// IAM-token authentication and exposes the small DbClient surface the rest
// of the storage core is built on: none, one, oneOrNone, manyOrNone, tx.
package dsqlpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	dsqlauth "github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mastra-ai/dsqlstore/internal/dsqlconfig"
)

// Row is satisfied by pgx.Row; declared locally so callers depending on
// DbClient don't need a direct pgx import.
type Row interface {
	Scan(dest ...any) error
}

// Rows is satisfied by pgx.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// DbClient is the uniform query surface every other component in the
// storage core depends on. Pool and Tx both implement it, so retry,
// bootstrap, and CRUD logic is agnostic to whether it is running inside a
// transaction.
type DbClient interface {
	None(ctx context.Context, sql string, args ...any) error
	One(ctx context.Context, sql string, args ...any) (Row, error)
	OneOrNone(ctx context.Context, sql string, args ...any) (Row, error)
	ManyOrNone(ctx context.Context, sql string, args ...any) (Rows, error)
	Tx(ctx context.Context, fn func(ctx context.Context, tx DbClient) error) error
}

// Pool wraps a pgxpool.Pool configured for IAM-token authentication
// against an Aurora DSQL cluster.
type Pool struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New builds a Pool from cfg, installing a BeforeConnect hook that mints a
// fresh IAM auth token for every new physical connection — DSQL treats the
// token as the database password, and tokens are short-lived so each
// connection establishment needs its own.
func New(ctx context.Context, cfg *dsqlconfig.Config, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connString := fmt.Sprintf("postgres://%s@%s/%s?sslmode=require",
		cfg.User, cfg.Host, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("dsqlpool: parsing database URL: %w", err)
	}

	poolCfg.MaxConns = valueOr(cfg.MaxConns, 10)
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnIdleTime = time.Duration(valueOrInt(cfg.MaxIdleMs, 600000)) * time.Millisecond
	poolCfg.MaxConnLifetime = time.Duration(valueOrInt(cfg.MaxLifetimeSeconds, 3300)) * time.Second
	poolCfg.ConnConfig.ConnectTimeout = time.Duration(valueOrInt(cfg.ConnectTimeoutMs, 5000)) * time.Millisecond

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("dsqlpool: loading AWS credentials: %w", err)
	}

	poolCfg.BeforeConnect = func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, err := dsqlauth.GenerateDBConnectAuthToken(ctx, cfg.Host, cfg.Region, awsCfg.Credentials)
		if err != nil {
			return fmt.Errorf("dsqlpool: minting IAM auth token: %w", err)
		}
		connConfig.Password = token
		return nil
	}

	pgxPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("dsqlpool: creating connection pool: %w", err)
	}

	if err := pgxPool.Ping(ctx); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("dsqlpool: database ping failed: %w", err)
	}

	logger.Info("dsql pool ready", "host", cfg.Host, "region", cfg.Region, "maxConns", poolCfg.MaxConns)

	return &Pool{pool: pgxPool, logger: logger}, nil
}

// Close releases all pooled connections.
func (p *Pool) Close() {
	p.pool.Close()
}

func (p *Pool) None(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	return err
}

func (p *Pool) One(ctx context.Context, sql string, args ...any) (Row, error) {
	return p.pool.QueryRow(ctx, sql, args...), nil
}

func (p *Pool) OneOrNone(ctx context.Context, sql string, args ...any) (Row, error) {
	return noRowsTolerant{p.pool.QueryRow(ctx, sql, args...)}, nil
}

func (p *Pool) ManyOrNone(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Tx runs fn inside a single transaction, committing on a nil return and
// rolling back otherwise. fn receives a DbClient scoped to the same
// transaction so nested calls into retry/CRUD helpers stay within it.
func (p *Pool) Tx(ctx context.Context, fn func(ctx context.Context, tx DbClient) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("dsqlpool: beginning transaction: %w", err)
	}

	if err := fn(ctx, &txClient{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("dsqlpool: rolling back after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("dsqlpool: committing transaction: %w", err)
	}
	return nil
}

// txClient adapts a pgx.Tx to DbClient so transaction bodies can call the
// exact same helpers as top-level pool operations.
type txClient struct {
	tx pgx.Tx
}

func (c *txClient) None(ctx context.Context, sql string, args ...any) error {
	_, err := c.tx.Exec(ctx, sql, args...)
	return err
}

func (c *txClient) One(ctx context.Context, sql string, args ...any) (Row, error) {
	return c.tx.QueryRow(ctx, sql, args...), nil
}

func (c *txClient) OneOrNone(ctx context.Context, sql string, args ...any) (Row, error) {
	return noRowsTolerant{c.tx.QueryRow(ctx, sql, args...)}, nil
}

func (c *txClient) ManyOrNone(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Tx on a txClient runs fn as a savepoint-scoped nested transaction.
func (c *txClient) Tx(ctx context.Context, fn func(ctx context.Context, tx DbClient) error) error {
	nested, err := c.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("dsqlpool: beginning nested transaction: %w", err)
	}
	if err := fn(ctx, &txClient{tx: nested}); err != nil {
		_ = nested.Rollback(ctx)
		return err
	}
	return nested.Commit(ctx)
}

// noRowsTolerant wraps a pgx.Row so that Scan reports pgx.ErrNoRows as a
// nil error, letting OneOrNone callers distinguish "no row" from a real
// failure without special-casing pgx's sentinel error themselves.
type noRowsTolerant struct {
	row pgx.Row
}

func (n noRowsTolerant) Scan(dest ...any) error {
	err := n.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

// IsNoRows reports whether err represents "no rows returned", the
// condition OneOrNone callers treat as a nil result rather than an error.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// AsPgError extracts a *pgconn.PgError from err if present.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := errors.As(err, &pgErr)
	return pgErr, ok
}

func valueOr(v, def int32) int32 {
	if v <= 0 {
		return def
	}
	return v
}

func valueOrInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
