// Package models implements the record protocol on top of compiled schemas.
// A Table binds a schema.Schema to an executor and provides the class-level
// lookups (Find, FindAll, FindNumber); a Record is one mutable instance that
// can Save, Update and Remove itself.
//
// Example:
//
//	users := models.NewTable(blog.UserSchema, executor, logger)
//	u, err := users.New(map[string]any{"name": "ann", "email": "ann@example.com"})
//	if err != nil {
//	    return err
//	}
//	if _, err := u.Save(ctx); err != nil {
//	    return err
//	}
//
//	top, err := users.FindAll(ctx, models.FindOptions{
//	    Where:   "`score` > ?",
//	    Args:    []any{10},
//	    OrderBy: "`score` desc",
//	    Limit:   models.Range{Offset: 0, Count: 5},
//	})
package models

import (
	"context"
	"reflect"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-orm/pkg/clients"
	"github.com/ajitpratap0/nebula-orm/pkg/logger"
	"github.com/ajitpratap0/nebula-orm/pkg/metrics"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-orm/pkg/schema"
)

// NumberAlias is the column alias FindNumber selects its expression as.
const NumberAlias = "_num_"

// Executor runs statements for a Table. *clients.Executor implements it.
type Executor interface {
	RunQuery(ctx context.Context, query string, args []any, size int) ([]clients.Row, error)
	RunCommand(ctx context.Context, query string, args []any, autocommit bool) (int64, error)
}

// dialecter is implemented by executors that know their SQL dialect. Without
// it MySQL limit syntax is used.
type dialecter interface {
	Dialect() clients.Dialect
}

// Table binds a compiled schema to an executor.
type Table struct {
	schema     *schema.Schema
	exec       Executor
	logger     *zap.Logger
	autocommit bool
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithTransactions makes Save, Update and Remove run inside an explicit
// transaction instead of relying on the connection's autocommit.
func WithTransactions() TableOption {
	return func(t *Table) { t.autocommit = false }
}

// NewTable creates a Table for s.
func NewTable(s *schema.Schema, exec Executor, l *zap.Logger, opts ...TableOption) *Table {
	t := &Table{
		schema: s,
		exec:   exec,
		logger: logger.OrDefault(l).With(
			zap.String("component", "table"),
			zap.String("model", s.Name()),
		),
		autocommit: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Schema returns the compiled schema.
func (t *Table) Schema() *schema.Schema { return t.schema }

// New builds an unsaved record from values. Every key must be a declared
// attribute.
func (t *Table) New(values map[string]any) (*Record, error) {
	r := &Record{table: t, values: make(map[string]any, len(values))}
	for attr, v := range values {
		if err := r.Set(attr, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FindOptions narrows FindAll. Where and OrderBy are inserted verbatim; the
// caller is responsible for their safety and binds values through Args.
//
// Limit accepts nil, an integer (count), a [2]int or []int of length 2
// (offset, count), or a Range. Any other shape is an argument error.
type FindOptions struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   any
}

// Range is an (offset, count) limit.
type Range struct {
	Offset int
	Count  int
}

func (t *Table) ctx(ctx context.Context, op string) context.Context {
	return logger.ContextWith(ctx, t.schema.Table(), op)
}

func (t *Table) pkWhere() string {
	return " where " + schema.QuoteIdent(t.schema.PrimaryKeyColumn()) + "=?"
}

// Find loads the record with primary key pk. A missing row is not an error:
// the result is nil.
func (t *Table) Find(ctx context.Context, pk any) (*Record, error) {
	rows, err := t.exec.RunQuery(t.ctx(ctx, "find"), t.schema.SelectSQL()+t.pkWhere(), []any{pk}, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return t.fromRow(rows[0])
}

// FindAll loads every record matching opts, in database order.
func (t *Table) FindAll(ctx context.Context, opts FindOptions) ([]*Record, error) {
	limit, limitArgs, err := t.limitClause(opts.Limit)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(t.schema.SelectSQL())
	args := make([]any, 0, len(opts.Args)+len(limitArgs))
	if opts.Where != "" {
		b.WriteString(" where ")
		b.WriteString(opts.Where)
	}
	args = append(args, opts.Args...)
	if opts.OrderBy != "" {
		b.WriteString(" order by ")
		b.WriteString(opts.OrderBy)
	}
	b.WriteString(limit)
	args = append(args, limitArgs...)

	rows, err := t.exec.RunQuery(t.ctx(ctx, "find_all"), b.String(), args, 0)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		r, err := t.fromRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// FindNumber evaluates an aggregate expression such as count(*) over the
// table and returns its value, or nil when no row was produced.
func (t *Table) FindNumber(ctx context.Context, expr, where string, args ...any) (any, error) {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(expr)
	b.WriteString(" as ")
	b.WriteString(schema.QuoteIdent(NumberAlias))
	b.WriteString(" from ")
	b.WriteString(schema.QuoteIdent(t.schema.Table()))
	if where != "" {
		b.WriteString(" where ")
		b.WriteString(where)
	}

	rows, err := t.exec.RunQuery(t.ctx(ctx, "find_number"), b.String(), args, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0][NumberAlias], nil
}

// Count returns count(*) over the rows matching where.
func (t *Table) Count(ctx context.Context, where string, args ...any) (int64, error) {
	v, err := t.FindNumber(ctx, "count(*)", where, args...)
	if err != nil || v == nil {
		return 0, err
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeQuery, "count is not an integer")
	}
	return n, nil
}

// limitClause validates a FindOptions.Limit and renders it.
func (t *Table) limitClause(limit any) (string, []any, error) {
	if limit == nil {
		return "", nil, nil
	}

	var (
		offset, count int
		paired        bool
	)
	switch l := limit.(type) {
	case Range:
		offset, count, paired = l.Offset, l.Count, true
	case *Range:
		if l == nil {
			return "", nil, nil
		}
		offset, count, paired = l.Offset, l.Count, true
	case [2]int:
		offset, count, paired = l[0], l[1], true
	case []int:
		if len(l) != 2 {
			return "", nil, invalidLimit(limit)
		}
		offset, count, paired = l[0], l[1], true
	default:
		v := reflect.ValueOf(limit)
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			count = int(v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			count = int(v.Uint())
		default:
			return "", nil, invalidLimit(limit)
		}
	}
	if offset < 0 || count < 0 {
		return "", nil, invalidLimit(limit)
	}

	if !paired {
		return " limit ?", []any{count}, nil
	}
	if d, ok := t.exec.(dialecter); ok && d.Dialect() == clients.DialectPostgres {
		return " limit ? offset ?", []any{count, offset}, nil
	}
	return " limit ?, ?", []any{offset, count}, nil
}

func invalidLimit(limit any) error {
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeArgument, "invalid limit value: %v", limit).
		WithDetail("limit", limit)
}

// fromRow populates a record from a result row. Columns that map to no
// attribute are ignored.
func (t *Table) fromRow(row clients.Row) (*Record, error) {
	r := &Record{table: t, values: make(map[string]any, len(row))}
	for col, v := range row {
		attr, ok := t.schema.AttributeForColumn(col)
		if !ok {
			continue
		}
		f, _ := t.schema.Field(attr)
		cv, err := f.Coerce(v)
		if err != nil {
			return nil, err
		}
		r.values[attr] = cv
	}
	return r, nil
}

// checkAffected logs and counts a write that did not touch exactly one row.
func (t *Table) checkAffected(action string, affected int64) {
	if affected == 1 {
		return
	}
	metrics.AffectedRowsAnomalies.WithLabelValues(t.schema.Table(), action).Inc()
	t.logger.Warn("failed to "+action+" record",
		zap.String("table", t.schema.Table()),
		zap.Int64("affected_rows", affected))
}
