// Package testutil provides testing utilities for the ORM packages: loggers
// bound to the test, sqlmock-backed pools and the integration test harness.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/nebula-orm/pkg/clients"
	"github.com/ajitpratap0/nebula-orm/pkg/config"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// ObservedLogger returns a logger that records entries at level and above,
// and the recorder to assert on.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// MockDatabaseConfig returns a valid configuration for a single-connection
// pool. sqlmock hands out one driver connection, so tests keep MaxSize at 1.
func MockDatabaseConfig() config.DatabaseConfig {
	cfg := config.NewDatabaseConfig()
	cfg.User = "test"
	cfg.Password = "test"
	cfg.Database = "test"
	cfg.MinSize = 1
	cfg.MaxSize = 1
	return cfg
}

// NewMockDB creates a sqlmock database using exact statement matching.
func NewMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	return db, mock
}

// MockOpener returns a clients.Opener handing out db.
func MockOpener(db *sql.DB) clients.Opener {
	return func(config.DatabaseConfig) (*sql.DB, error) { return db, nil }
}

// NewMockPool returns an initialized pool over a sqlmock database. The pool
// is shut down when the test ends.
func NewMockPool(t *testing.T, l *zap.Logger) (*clients.Pool, sqlmock.Sqlmock) {
	t.Helper()
	return NewMockPoolWithConfig(t, l, MockDatabaseConfig())
}

// NewMockPoolWithConfig is NewMockPool with an explicit configuration.
func NewMockPoolWithConfig(t *testing.T, l *zap.Logger, cfg config.DatabaseConfig) (*clients.Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := NewMockDB(t)

	pool := clients.NewPool(l, clients.WithOpener(MockOpener(db)))
	require.NoError(t, pool.Initialize(context.Background(), cfg))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		// sqlmock reports an unexpected Close unless the test set ExpectClose.
		_ = pool.Shutdown(ctx)
	})
	return pool, mock
}

// NewMockExecutor returns an executor over NewMockPool.
func NewMockExecutor(t *testing.T, l *zap.Logger, opts ...clients.ExecutorOption) (*clients.Executor, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock := NewMockPool(t, l)
	return clients.NewExecutor(pool, l, opts...), mock
}
