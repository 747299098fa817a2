// Package metrics exposes Prometheus collectors for the ORM: statement
// counts and latency, rows returned, unexpected affected-row counts and
// connection pool occupancy.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("select")
//	rows, err := run()
//	metrics.ObserveStatement("select", timer.Stop(), err)
//	metrics.RowsReturned.WithLabelValues("select").Add(float64(len(rows)))
//
// All collectors are registered with the default Prometheus registry on
// package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// StatementsTotal counts executed statements.
	// Labels: operation (select/insert/update/delete/other), status (success/error)
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_orm_statements_total",
			Help: "Total number of SQL statements executed",
		},
		[]string{"operation", "status"},
	)

	// StatementLatency tracks statement round-trip time in nanoseconds,
	// connection acquisition included.
	// Labels: operation
	StatementLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nebula_orm_statement_latency_nanoseconds",
			Help: "Statement latency in nanoseconds",
			Buckets: []float64{
				1e5, // 100μs
				1e6, // 1ms
				5e6,
				1e7, // 10ms
				5e7,
				1e8, // 100ms
				1e9, // 1s
				5e9,
			},
		},
		[]string{"operation"},
	)

	// RowsReturned counts rows returned by queries.
	// Labels: operation
	RowsReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_orm_rows_returned_total",
			Help: "Total number of rows returned by queries",
		},
		[]string{"operation"},
	)

	// AffectedRowsAnomalies counts save/update/remove calls that did not
	// affect exactly one row.
	// Labels: table, action (save/update/remove)
	AffectedRowsAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_orm_affected_rows_anomalies_total",
			Help: "Record writes whose affected row count was not 1",
		},
		[]string{"table", "action"},
	)

	// PoolConnections reports pool occupancy.
	// Labels: dialect, state (open/in_use/idle)
	PoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebula_orm_pool_connections",
			Help: "Number of pooled database connections by state",
		},
		[]string{"dialect", "state"},
	)

	// PoolWaits reports the cumulative number of acquisitions that had to
	// wait for a free connection.
	// Labels: dialect
	PoolWaits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebula_orm_pool_wait_count",
			Help: "Cumulative number of connection acquisitions that waited",
		},
		[]string{"dialect"},
	)
)

// ObserveStatement records one finished statement.
func ObserveStatement(operation string, d time.Duration, err error) {
	StatementsTotal.WithLabelValues(operation, status(err)).Inc()
	StatementLatency.WithLabelValues(operation).Observe(float64(d.Nanoseconds()))
}

// SetPoolConnections publishes a pool snapshot.
func SetPoolConnections(dialect string, open, inUse, idle int, waits int64) {
	PoolConnections.WithLabelValues(dialect, "open").Set(float64(open))
	PoolConnections.WithLabelValues(dialect, "in_use").Set(float64(inUse))
	PoolConnections.WithLabelValues(dialect, "idle").Set(float64(idle))
	PoolWaits.WithLabelValues(dialect).Set(float64(waits))
}

// ClearPoolConnections zeroes the pool gauges after shutdown.
func ClearPoolConnections(dialect string) {
	SetPoolConnections(dialect, 0, 0, 0, 0)
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Timer measures the duration of an operation from creation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
