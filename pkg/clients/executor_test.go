package clients_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/nebula-orm/pkg/clients"
	"github.com/ajitpratap0/nebula-orm/pkg/config"
	"github.com/ajitpratap0/nebula-orm/pkg/metrics"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-orm/pkg/testutil"
)

const selectUsers = "select `id`, `name`,`score` from `users`"

func TestRunQuery_AllRows(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	mock.ExpectQuery(selectUsers).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "score"}).
			AddRow([]byte("001"), []byte("ann"), 12.5).
			AddRow([]byte("002"), nil, 3.0))

	rows, err := exec.RunQuery(context.Background(), selectUsers, nil, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, clients.Row{"id": "001", "name": "ann", "score": 12.5}, rows[0])
	assert.Nil(t, rows[1]["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunQuery_Size(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	q := selectUsers + " where `score`>?"
	mock.ExpectQuery(q).WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b").AddRow("c"))

	rows, err := exec.RunQuery(context.Background(), q, []any{10}, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0]["id"])
	assert.Equal(t, "b", rows[1]["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunQuery_EmptyIsNotNil(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	mock.ExpectQuery(selectUsers).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "score"}))

	rows, err := exec.RunQuery(context.Background(), selectUsers, nil, 1)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRunQuery_Failure(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	errDriver := errors.New("table doesn't exist")
	mock.ExpectQuery(selectUsers).WillReturnError(errDriver)

	rows, err := exec.RunQuery(context.Background(), selectUsers, nil, 0)
	require.Error(t, err)
	assert.Nil(t, rows)
	assert.ErrorIs(t, err, errDriver)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeQuery))
}

func TestPlaceholderMismatchFailsBeforeAcquire(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	_, err := exec.RunQuery(context.Background(), selectUsers+" where `id`=?", nil, 1)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeArgument))

	_, err = exec.RunCommand(context.Background(), "delete from `users` where `id`=?", []any{"a", "b"}, true)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeArgument))

	assert.Equal(t, 0, exec.Pool().Stats().InUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_PoolNotReady(t *testing.T) {
	exec := clients.NewExecutor(clients.NewPool(testutil.TestLogger(t)), testutil.TestLogger(t))

	_, err := exec.RunQuery(context.Background(), selectUsers, nil, 0)
	assert.ErrorIs(t, err, clients.ErrPoolNotReady)

	_, err = exec.RunCommand(context.Background(), "delete from `users`", nil, true)
	assert.ErrorIs(t, err, clients.ErrPoolNotReady)
}

func TestRunCommand_Autocommit(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	q := "delete from `users` where `id`=?"
	mock.ExpectExec(q).WithArgs("001").WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := exec.RunCommand(context.Background(), q, []any{"001"}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCommand_Transaction(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	q := "update `users` set `name`=?,`score`=? where `id`=?"
	mock.ExpectBegin()
	mock.ExpectExec(q).WithArgs("ann", 1.5, "001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := exec.RunCommand(context.Background(), q, []any{"ann", 1.5, "001"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCommand_RollbackOnFailure(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	q := "insert into `users` (`name`,`id`) values(?,?)"
	errDup := errors.New("Duplicate entry '001' for key 'PRIMARY'")
	mock.ExpectBegin()
	mock.ExpectExec(q).WithArgs("ann", "001").WillReturnError(errDup)
	mock.ExpectRollback()

	n, err := exec.RunCommand(context.Background(), q, []any{"ann", "001"}, false)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, errDup)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeQuery))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, exec.Pool().Stats().InUse)
}

func TestRunCommand_RollbackFailureDoesNotMask(t *testing.T) {
	log, logs := testutil.ObservedLogger(zapcore.DebugLevel)
	exec, mock := testutil.NewMockExecutor(t, log)

	q := "delete from `users` where `id`=?"
	errExec := errors.New("lock wait timeout exceeded")
	mock.ExpectBegin()
	mock.ExpectExec(q).WithArgs("001").WillReturnError(errExec)
	mock.ExpectRollback().WillReturnError(errors.New("connection lost"))

	_, err := exec.RunCommand(context.Background(), q, []any{"001"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errExec)

	entries := logs.FilterMessage("rollback failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCommand_CommitFailure(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))

	q := "delete from `users` where `id`=?"
	errCommit := errors.New("deadlock found")
	mock.ExpectBegin()
	mock.ExpectExec(q).WithArgs("001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errCommit)

	n, err := exec.RunCommand(context.Background(), q, []any{"001"}, false)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, errCommit)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_LogsStatementWithoutArgs(t *testing.T) {
	log, logs := testutil.ObservedLogger(zapcore.InfoLevel)
	exec, mock := testutil.NewMockExecutor(t, log)

	q := "delete from `users` where `id`=?"
	mock.ExpectExec(q).WithArgs("top-secret").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := exec.RunCommand(context.Background(), q, []any{"top-secret"}, true)
	require.NoError(t, err)

	entries := logs.FilterMessage("SQL").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, q, ctx["sql"])
	for _, v := range ctx {
		assert.NotEqual(t, "top-secret", v)
	}
}

func TestExecutor_PostgresPlaceholders(t *testing.T) {
	cfg := testutil.MockDatabaseConfig()
	cfg.Dialect = config.DialectPostgres
	pool, mock := testutil.NewMockPoolWithConfig(t, testutil.TestLogger(t), cfg)
	exec := clients.NewExecutor(pool, testutil.TestLogger(t))

	mock.ExpectQuery(`select "id", "name","score" from "users" where "id"=$1`).WithArgs("001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "score"}).AddRow("001", "ann", 1.0))
	mock.ExpectExec(`update "users" set "name"=$1,"score"=$2 where "id"=$3`).WithArgs("bob", 2.0, "001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := exec.RunQuery(context.Background(), selectUsers+" where `id`=?", []any{"001"}, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = exec.RunCommand(context.Background(),
		"update `users` set `name`=?,`score`=? where `id`=?", []any{"bob", 2.0, "001"}, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_TracesAndCounts(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t), clients.WithTracer(tp.Tracer("test")))

	before := promtestutil.ToFloat64(metrics.StatementsTotal.WithLabelValues("select", metrics.StatusSuccess))
	rowsBefore := promtestutil.ToFloat64(metrics.RowsReturned.WithLabelValues("select"))

	mock.ExpectQuery(selectUsers).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "score"}).AddRow("1", "a", 1.0).AddRow("2", "b", 2.0))

	_, err := exec.RunQuery(context.Background(), selectUsers, nil, 0)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.select", spans[0].Name())

	assert.Equal(t, before+1, promtestutil.ToFloat64(metrics.StatementsTotal.WithLabelValues("select", metrics.StatusSuccess)))
	assert.Equal(t, rowsBefore+2, promtestutil.ToFloat64(metrics.RowsReturned.WithLabelValues("select")))
}
