package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/nebula-orm/pkg/config"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

func TestStatementTracer(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	st := NewStatementTracer(tp.Tracer("test"), "mysql")

	_, span := st.Start(context.Background(), "select", "select `id` from `users`")
	End(span, 3, nil)

	_, span = st.Start(context.Background(), "delete", "delete from `users` where `id`=?")
	End(span, 0, errors.New("lock wait timeout"))

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "db.select", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "mysql", attrs["db.system"])
	assert.Equal(t, "select `id` from `users`", attrs["db.statement"])
	assert.Equal(t, "3", attrs["db.rows_affected"])

	assert.Equal(t, "db.delete", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "lock wait timeout", spans[1].Status().Description)
}

func TestInitTracing_Disabled(t *testing.T) {
	cfg := config.NewConfig().Observability
	cfg.EnableTracing = false

	shutdown, err := InitTracing(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	cfg := config.NewConfig().Observability
	cfg.EnableTracing = true
	cfg.TracingExporter = "jaeger"

	_, err := InitTracing(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestInitTracing_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := config.NewConfig().Observability
	cfg.EnableTracing = true
	cfg.TracingExporter = ExporterStdout

	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), cfg, &buf)
	require.NoError(t, err)

	_, span := NewStatementTracer(nil, "mysql").Start(context.Background(), "select", "select 1")
	End(span, 1, nil)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "db.select")
	assert.Contains(t, buf.String(), "nebula-orm")
}
