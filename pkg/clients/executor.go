package clients

import (
	"context"
	"database/sql"
	"errors"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-orm/pkg/logger"
	"github.com/ajitpratap0/nebula-orm/pkg/metrics"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-orm/pkg/observability"
	"github.com/ajitpratap0/nebula-orm/pkg/pool"
)

// Row is one materialized result row keyed by column name. []byte values
// are returned as strings.
type Row map[string]any

// Executor runs statement templates on pooled connections. Templates use ?
// placeholders; the executor checks the argument count and rewrites them
// for the pool's dialect.
type Executor struct {
	pool   *Pool
	logger *zap.Logger
	tracer trace.Tracer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTracer sets the tracer statement spans are started on. The default is
// the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(e *Executor) { e.tracer = t }
}

// NewExecutor creates an executor over p.
func NewExecutor(p *Pool, l *zap.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		pool:   p,
		logger: logger.OrDefault(l).With(zap.String("component", "executor")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pool returns the pool the executor runs on.
func (e *Executor) Pool() *Pool { return e.pool }

// Dialect returns the dialect of the underlying pool.
func (e *Executor) Dialect() Dialect { return e.pool.Dialect() }

// prepare checks pool state and argument count before any connection is
// taken.
func (e *Executor) prepare(ctx context.Context, query string, argc int) (string, string, *zap.Logger, error) {
	_, dialect, err := e.pool.handle()
	if err != nil {
		return "", "", nil, err
	}
	stmt, err := dialect.Rebind(query, argc)
	if err != nil {
		return "", "", nil, err
	}
	log := logger.WithContext(ctx, e.logger)
	log.Info("SQL", zap.String("sql", query))
	return stmt, dialect.String(), log, nil
}

// RunQuery executes a read statement and returns at most size rows; size <= 0
// returns all rows. The result is never nil.
func (e *Executor) RunQuery(ctx context.Context, query string, args []any, size int) ([]Row, error) {
	stmt, system, log, err := e.prepare(ctx, query, len(args))
	if err != nil {
		return nil, err
	}

	op := Operation(query)
	timer := metrics.NewTimer(op)
	ctx, span := observability.NewStatementTracer(e.tracer, system).Start(ctx, op, query)

	rows := make([]Row, 0)
	err = e.pool.WithConn(ctx, func(c *Conn) error {
		var qerr error
		rows, qerr = fetch(ctx, c.Raw(), stmt, args, size)
		return qerr
	})

	metrics.ObserveStatement(op, timer.Stop(), err)
	observability.End(span, int64(len(rows)), err)
	if err != nil {
		return nil, err
	}

	metrics.RowsReturned.WithLabelValues(op).Add(float64(len(rows)))
	log.Debug("rows returned", zap.Int("rows", len(rows)))
	return rows, nil
}

func fetch(ctx context.Context, conn *sql.Conn, stmt string, args []any, size int) ([]Row, error) {
	rs, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, queryError(err, "query failed", stmt)
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, queryError(err, "failed to read columns", stmt)
	}

	buf := pool.GetScanBuffer(len(cols))
	defer pool.PutScanBuffer(buf)

	out := make([]Row, 0)
	for (size <= 0 || len(out) < size) && rs.Next() {
		if err := rs.Scan(buf.Ptrs...); err != nil {
			return nil, queryError(err, "failed to scan row", stmt)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := buf.Values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = buf.Values[i]
			}
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, queryError(err, "failed to iterate rows", stmt)
	}
	return out, nil
}

// RunCommand executes a write statement and returns the affected row count.
// With autocommit false the statement runs in an explicit transaction that
// is rolled back when execution or commit fails; a rollback failure is
// logged and the original error returned.
func (e *Executor) RunCommand(ctx context.Context, query string, args []any, autocommit bool) (int64, error) {
	stmt, system, log, err := e.prepare(ctx, query, len(args))
	if err != nil {
		return 0, err
	}

	op := Operation(query)
	timer := metrics.NewTimer(op)
	ctx, span := observability.NewStatementTracer(e.tracer, system).Start(ctx, op, query)

	var affected int64
	err = e.pool.WithConn(ctx, func(c *Conn) error {
		var cerr error
		if autocommit {
			affected, cerr = exec(ctx, c.Raw(), stmt, args)
		} else {
			affected, cerr = execTx(ctx, c.Raw(), stmt, args, log)
		}
		return cerr
	})

	metrics.ObserveStatement(op, timer.Stop(), err)
	observability.End(span, affected, err)
	if err != nil {
		return 0, err
	}
	log.Debug("rows affected", zap.Int64("rows", affected))
	return affected, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func exec(ctx context.Context, x execer, stmt string, args []any) (int64, error) {
	res, err := x.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, queryError(err, "statement failed", stmt)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queryError(err, "failed to read affected rows", stmt)
	}
	return n, nil
}

func execTx(ctx context.Context, conn *sql.Conn, stmt string, args []any, log *zap.Logger) (int64, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, queryError(err, "failed to begin transaction", stmt)
	}

	n, err := exec(ctx, tx, stmt, args)
	if err != nil {
		rollback(tx, log)
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		rollback(tx, log)
		return 0, queryError(err, "failed to commit transaction", stmt)
	}
	return n, nil
}

// rollback aborts tx. Its failure is logged so that the error that caused
// the rollback is the one returned. A transaction database/sql already
// finished reports ErrTxDone, which is not a failure.
func rollback(tx *sql.Tx, log *zap.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error("rollback failed", zap.Error(err))
	}
}

func queryError(err error, message, stmt string) error {
	typ := nebulaerrors.ErrorTypeQuery
	if errors.Is(err, context.DeadlineExceeded) {
		typ = nebulaerrors.ErrorTypeTimeout
	}
	return nebulaerrors.Wrap(err, typ, message).WithDetail("sql", stmt)
}
