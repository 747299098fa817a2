// Package observability wires OpenTelemetry tracing into statement execution.
// Every statement sent by the executor runs inside a span carrying the
// statement text and operation; argument values are never recorded.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of the ORM's spans.
const TracerName = "github.com/ajitpratap0/nebula-orm"

// Span attribute keys.
const (
	AttrDBSystem    = attribute.Key("db.system")
	AttrDBStatement = attribute.Key("db.statement")
	AttrDBOperation = attribute.Key("db.operation")
	AttrDBRows      = attribute.Key("db.rows_affected")
)

// Tracer returns the ORM tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StatementTracer starts spans for SQL statements of one dialect.
type StatementTracer struct {
	tracer trace.Tracer
	system string
}

// NewStatementTracer creates a statement tracer. A nil tracer means the
// global one.
func NewStatementTracer(tracer trace.Tracer, system string) *StatementTracer {
	if tracer == nil {
		tracer = Tracer()
	}
	return &StatementTracer{tracer: tracer, system: system}
}

// Start opens a client span named after the operation.
func (st *StatementTracer) Start(ctx context.Context, operation, statement string) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrDBSystem.String(st.system),
			AttrDBStatement.String(statement),
			AttrDBOperation.String(operation),
		),
	)
}

// End records the outcome and ends span.
func End(span trace.Span, rows int64, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(AttrDBRows.Int64(rows))
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
