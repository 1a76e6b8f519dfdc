// Package db provides the transactional persistence primitives shared by
// every repository in internal/data. It wraps sqlx so that a single
// connection pool can serve both plain statements and multi-statement
// transactions through the same interface.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stellar/go/support/log"
)

const (
	DefaultConnMaxIdleTimeSeconds = 10
	DefaultConnMaxLifetimeSeconds = 300
)

// DBPoolConfig represents tunables for the sql.DB pool. The platform's only
// shared mutable resource (see spec §5) is sized here; ~10 connections is
// the default the billing/dispatch workers are tuned against.
type DBPoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

var DefaultDBPoolConfig = DBPoolConfig{
	MaxOpenConns:    10,
	MaxIdleConns:    2,
	ConnMaxIdleTime: DefaultConnMaxIdleTimeSeconds * time.Second,
	ConnMaxLifetime: DefaultConnMaxLifetimeSeconds * time.Second,
}

// DBConnectionPool is an interface that wraps the sqlx.DB struct's methods
// and includes the RunInTransaction helper.
//
//go:generate mockery --name=DBConnectionPool --case=underscore --structname=MockDBConnectionPool
type DBConnectionPool interface {
	SQLExecuter
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (DBTransaction, error)
	Close() error
	Ping(ctx context.Context) error
	SqlDB(ctx context.Context) (*sql.DB, error)
}

// DBConnectionPoolImplementation is a wrapper around sqlx.DB that implements
// DBConnectionPool.
type DBConnectionPoolImplementation struct {
	*sqlx.DB
	dataSourceName string
}

func (d *DBConnectionPoolImplementation) BeginTxx(ctx context.Context, opts *sql.TxOptions) (DBTransaction, error) {
	return d.DB.BeginTxx(ctx, opts)
}

func (d *DBConnectionPoolImplementation) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *DBConnectionPoolImplementation) SqlDB(ctx context.Context) (*sql.DB, error) {
	if d.DB == nil || d.DB.DB == nil {
		return nil, fmt.Errorf("sql.DB is not initialized")
	}
	return d.DB.DB, nil
}

var _ DBConnectionPool = (*DBConnectionPoolImplementation)(nil)

// DBTransaction is an interface that wraps the sqlx.Tx struct's methods.
type DBTransaction interface {
	SQLExecuter
	Rollback() error
	Commit() error
}

var _ DBTransaction = (*sqlx.Tx)(nil)

// SQLExecuter is an interface that wraps the *sqlx.DB and *sqlx.Tx structs.
type SQLExecuter interface {
	DriverName() string
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	sqlx.PreparerContext
	sqlx.QueryerContext
	Rebind(query string) string
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

var (
	_ SQLExecuter = (*sqlx.DB)(nil)
	_ SQLExecuter = (DBConnectionPool)(nil)
	_ SQLExecuter = (*sqlx.Tx)(nil)
	_ SQLExecuter = (DBTransaction)(nil)
)

// DBTxRollback rolls back the transaction if there is an error, logging the
// outcome either way.
func DBTxRollback(ctx context.Context, dbTx DBTransaction, err error, logMessage string) {
	if err != nil {
		if IsTransactionExecutionError(err) {
			log.Ctx(ctx).Debugf("%s: %s", logMessage, err.Error())
		} else {
			log.Ctx(ctx).Errorf("%s: %s", logMessage, err.Error())
		}
		if errRollback := dbTx.Rollback(); errRollback != nil {
			log.Ctx(ctx).Errorf("error in database transaction rollback: %s", errRollback.Error())
		}
	}
}

// RunInTransactionWithResult runs the given atomic function inside a single
// database transaction and returns its result. Every write that spans more
// than one row (wallet balance + ledger row, job claim + runner state, ...)
// goes through this helper so that it either commits together or rolls back
// together.
func RunInTransactionWithResult[T any](ctx context.Context, pool DBConnectionPool, opts *sql.TxOptions, fn func(dbTx DBTransaction) (T, error)) (result T, err error) {
	dbTx, err := pool.BeginTxx(ctx, opts)
	if err != nil {
		return *new(T), fmt.Errorf("creating db transaction: %w", err)
	}

	defer func() {
		DBTxRollback(ctx, dbTx, err, "rolling back transaction due to error")
	}()

	result, err = fn(dbTx)
	if err != nil {
		return *new(T), NewTransactionExecutionError(err)
	}

	if err = dbTx.Commit(); err != nil {
		return *new(T), fmt.Errorf("committing transaction: %w", err)
	}

	return result, nil
}

// RunInTransaction runs the given atomic function inside a single database
// transaction.
func RunInTransaction(ctx context.Context, pool DBConnectionPool, opts *sql.TxOptions, fn func(dbTx DBTransaction) error) error {
	_, err := RunInTransactionWithResult(ctx, pool, opts, func(dbTx DBTransaction) (interface{}, error) {
		return nil, fn(dbTx)
	})
	return err
}

// OpenDBConnectionPoolWithConfig opens a new database connection pool.
func OpenDBConnectionPoolWithConfig(dataSourceName string, cfg DBPoolConfig) (DBConnectionPool, error) {
	sqlxDB, err := sqlx.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	sqlxDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlxDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	sqlxDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err = sqlxDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging connection pool: %w", err)
	}

	return &DBConnectionPoolImplementation{DB: sqlxDB, dataSourceName: dataSourceName}, nil
}

// OpenDBConnectionPool opens a new database connection pool with default settings.
func OpenDBConnectionPool(dataSourceName string) (DBConnectionPool, error) {
	return OpenDBConnectionPoolWithConfig(dataSourceName, DefaultDBPoolConfig)
}

// CloseConnectionPoolIfNeeded closes the given DB connection pool if it's
// open and not nil.
func CloseConnectionPoolIfNeeded(ctx context.Context, pool DBConnectionPool) error {
	if pool == nil {
		log.Ctx(ctx).Info("NO-OP: attempting to close a nil DB connection pool")
		return nil
	}

	//nolint:nilerr // an error here just means the pool is already closed
	if err := pool.Ping(ctx); err != nil {
		log.Ctx(ctx).Info("NO-OP: attempting to close an already-closed DB connection pool")
		return nil
	}

	return pool.Close()
}

// TransactionExecutionError represents an error that occurred while running
// the body of a transaction, as opposed to errors from transaction handling
// itself (begin/commit/rollback).
type TransactionExecutionError struct {
	err error
}

func NewTransactionExecutionError(err error) *TransactionExecutionError {
	return &TransactionExecutionError{err: err}
}

func (t *TransactionExecutionError) Error() string {
	return fmt.Sprintf("transaction execution error: %s", t.err.Error())
}

func (t *TransactionExecutionError) Unwrap() error {
	return t.err
}

// IsTransactionExecutionError checks if the given error originated from the
// atomic function execution rather than from transaction bookkeeping.
func IsTransactionExecutionError(err error) bool {
	var eErr *TransactionExecutionError
	return errors.As(err, &eErr)
}
