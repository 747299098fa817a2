// Package clients manages the database side of the ORM: a bounded connection
// pool with an explicit initialize/shutdown lifecycle, dialect-specific
// placeholder translation, and the query executor that runs statement
// templates on pooled connections.
package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-orm/pkg/config"
	"github.com/ajitpratap0/nebula-orm/pkg/logger"
	"github.com/ajitpratap0/nebula-orm/pkg/metrics"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

// PoolState is the lifecycle state of a Pool.
type PoolState int

const (
	StateUninitialized PoolState = iota
	StateReady
	StateClosed
)

func (s PoolState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrPoolNotReady is returned when the pool has not been initialized.
	ErrPoolNotReady = nebulaerrors.New(nebulaerrors.ErrorTypeConnection, "connection pool is not initialized")
	// ErrPoolClosed is returned once the pool has been shut down.
	ErrPoolClosed = nebulaerrors.New(nebulaerrors.ErrorTypeConnection, "connection pool is closed")
)

// Opener opens the *sql.DB behind a pool. The default opener builds a DSN
// for the configured dialect.
type Opener func(cfg config.DatabaseConfig) (*sql.DB, error)

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithOpener replaces the default opener, e.g. with one returning a sqlmock DB.
func WithOpener(fn Opener) PoolOption {
	return func(p *Pool) { p.opener = fn }
}

// Pool is the process-scoped connection pool. It holds between MinSize and
// MaxSize live connections; Acquire blocks while all MaxSize are checked out.
// A Pool is created uninitialized and must be passed explicitly to the
// executors that use it.
type Pool struct {
	logger *zap.Logger
	opener Opener

	mu             sync.RWMutex
	state          PoolState
	db             *sql.DB
	dialect        Dialect
	acquireTimeout time.Duration
	maxSize        int

	// checkouts counts connections handed out by Acquire and not yet
	// released; drained is closed when it drops to zero.
	checkoutMu sync.Mutex
	checkouts  int
	drained    chan struct{}
}

// PoolStats is a snapshot of pool occupancy.
type PoolStats struct {
	Dialect      string        `json:"dialect"`
	State        string        `json:"state"`
	MaxOpen      int           `json:"max_open"`
	Open         int           `json:"open"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	WaitDuration time.Duration `json:"wait_duration"`
}

// NewPool creates an uninitialized pool.
func NewPool(l *zap.Logger, opts ...PoolOption) *Pool {
	p := &Pool{
		logger: logger.OrDefault(l).With(zap.String("component", "connection_pool")),
		opener: openDB,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize fills unset optional keys of cfg with their defaults, validates
// it, opens the pool and eagerly establishes MinSize connections. Any failure
// closes whatever was opened and leaves the pool uninitialized. Calling Initialize on a ready pool is a programmer error
// and panics.
func (p *Pool) Initialize(ctx context.Context, cfg config.DatabaseConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateReady {
		panic("clients: connection pool already initialized")
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	dialect, err := ParseDialect(cfg.Dialect)
	if err != nil {
		return err
	}

	db, err := p.opener(cfg)
	if err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConnection, "failed to open database").
			WithDetail("addr", cfg.Addr())
	}
	db.SetMaxOpenConns(cfg.MaxSize)
	db.SetMaxIdleConns(cfg.MaxSize)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := warmUp(ctx, db, cfg.MinSize); err != nil {
		_ = db.Close() // the warm-up error is the one worth reporting
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConnection, "failed to establish initial connections").
			WithDetail("addr", cfg.Addr()).
			WithDetail("min_size", cfg.MinSize)
	}

	p.db = db
	p.dialect = dialect
	p.acquireTimeout = cfg.AcquireTimeout
	p.maxSize = cfg.MaxSize
	p.state = StateReady

	p.logger.Info("create database connection pool",
		zap.String("dialect", dialect.String()),
		zap.String("addr", cfg.Addr()),
		zap.String("database", cfg.Database),
		zap.Int("min_size", cfg.MinSize),
		zap.Int("max_size", cfg.MaxSize))
	p.publishStatsLocked()
	return nil
}

// warmUp opens n connections at once, pings each and returns them idle.
func warmUp(ctx context.Context, db *sql.DB, n int) error {
	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	for i := 0; i < n; i++ {
		c, err := db.Conn(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, c)
		if err := c.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// handle returns the live *sql.DB or the lifecycle error.
func (p *Pool) handle() (*sql.DB, Dialect, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.state {
	case StateReady:
		return p.db, p.dialect, nil
	case StateClosed:
		return nil, "", ErrPoolClosed
	default:
		return nil, "", ErrPoolNotReady
	}
}

// Acquire checks out one connection, waiting while all are in use. The wait
// is bounded by ctx and, when configured, by the acquire timeout. The caller
// owns the connection until Release.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	db, dialect, err := p.handle()
	if err != nil {
		return nil, err
	}

	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	c, err := db.Conn(ctx)
	if err != nil {
		if p.State() == StateClosed {
			return nil, ErrPoolClosed
		}
		if ctx.Err() != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeTimeout, "timed out acquiring connection")
		}
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConnection, "failed to acquire connection")
	}

	p.checkout()
	p.publishStats()
	return &Conn{conn: c, pool: p, dialect: dialect}, nil
}

// WithConn acquires a connection, runs fn and releases the connection on
// every exit path, panics included.
func (p *Pool) WithConn(ctx context.Context, fn func(*Conn) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()
	return fn(c)
}

// Shutdown stops handing out connections, waits until checked-out
// connections are released or ctx is done, then closes the pool.
// Subsequent Acquire calls fail with ErrPoolClosed.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateReady {
		p.state = StateClosed
		p.mu.Unlock()
		return nil
	}
	db, dialect := p.db, p.dialect
	p.state = StateClosed
	p.mu.Unlock()

	select {
	case <-p.released():
	case <-ctx.Done():
		p.logger.Warn("closing pool with connections still in use",
			zap.Int("in_use", p.checkedOut()))
	}

	err := db.Close()
	metrics.ClearPoolConnections(dialect.String())
	if err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConnection, "failed to close connection pool")
	}
	p.logger.Info("close database connection pool")
	return nil
}

func (p *Pool) checkout() {
	p.checkoutMu.Lock()
	p.checkouts++
	p.checkoutMu.Unlock()
}

func (p *Pool) checkin() {
	p.checkoutMu.Lock()
	defer p.checkoutMu.Unlock()
	p.checkouts--
	if p.checkouts == 0 && p.drained != nil {
		close(p.drained)
		p.drained = nil
	}
}

func (p *Pool) checkedOut() int {
	p.checkoutMu.Lock()
	defer p.checkoutMu.Unlock()
	return p.checkouts
}

// released returns a channel that is closed once no connection is checked out.
func (p *Pool) released() <-chan struct{} {
	p.checkoutMu.Lock()
	defer p.checkoutMu.Unlock()
	if p.checkouts == 0 {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	if p.drained == nil {
		p.drained = make(chan struct{})
	}
	return p.drained
}

// State returns the lifecycle state.
func (p *Pool) State() PoolState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Dialect returns the dialect of an initialized pool.
func (p *Pool) Dialect() Dialect {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dialect
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statsLocked()
}

func (p *Pool) statsLocked() PoolStats {
	st := PoolStats{
		Dialect: p.dialect.String(),
		State:   p.state.String(),
		MaxOpen: p.maxSize,
	}
	if p.db == nil || p.state != StateReady {
		return st
	}
	s := p.db.Stats()
	st.Open = s.OpenConnections
	st.InUse = s.InUse
	st.Idle = s.Idle
	st.WaitCount = s.WaitCount
	st.WaitDuration = s.WaitDuration
	return st
}

func (p *Pool) publishStats() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.publishStatsLocked()
}

func (p *Pool) publishStatsLocked() {
	if p.state != StateReady {
		return
	}
	st := p.statsLocked()
	metrics.SetPoolConnections(st.Dialect, st.Open, st.InUse, st.Idle, st.WaitCount)
}

// Conn is one checked-out connection. It must not be shared between
// goroutines and must be released exactly once; further Release calls are
// no-ops.
type Conn struct {
	conn    *sql.Conn
	pool    *Pool
	dialect Dialect
	once    sync.Once
}

// Raw exposes the underlying *sql.Conn.
func (c *Conn) Raw() *sql.Conn { return c.conn }

// Dialect returns the dialect the connection speaks.
func (c *Conn) Dialect() Dialect { return c.dialect }

// Release returns the connection to the pool.
func (c *Conn) Release() {
	c.once.Do(func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			c.pool.logger.Warn("failed to release connection", zap.Error(err))
		}
		c.pool.checkin()
		c.pool.publishStats()
	})
}

// openDB is the default Opener.
func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Dialect {
	case config.DialectPostgres:
		pgCfg, err := pgx.ParseConfig(PostgresDSN(cfg))
		if err != nil {
			return nil, err
		}
		return stdlib.OpenDB(*pgCfg), nil
	default:
		return sql.Open(DialectMySQL.DriverName(), MySQLDSN(cfg))
	}
}

// MySQLDSN formats the go-sql-driver DSN for cfg. Charset is applied by the
// driver; autocommit is sent as a session variable on connect.
func MySQLDSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Addr()
	mc.DBName = cfg.Database
	mc.Params = map[string]string{
		"autocommit": boolParam(cfg.AutocommitEnabled()),
	}
	if cfg.Charset != "" {
		mc.Params["charset"] = cfg.Charset
	}
	return mc.FormatDSN()
}

// PostgresDSN formats a postgres:// URL for cfg. PostgreSQL sessions always
// autocommit; the charset becomes client_encoding.
func PostgresDSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Addr(),
		Path:   "/" + cfg.Database,
	}
	if cfg.Charset != "" {
		q := url.Values{}
		q.Set("client_encoding", strings.ToUpper(cfg.Charset))
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// RedactDSN hides the password of a DSN for logging.
func RedactDSN(cfg config.DatabaseConfig) string {
	safe := cfg
	if safe.Password != "" {
		safe.Password = "xxxxx"
	}
	if cfg.Dialect == config.DialectPostgres {
		return PostgresDSN(safe)
	}
	return MySQLDSN(safe)
}

func (s PoolStats) String() string {
	return fmt.Sprintf("%s pool %s: open=%d in_use=%d idle=%d max=%d waits=%d",
		s.Dialect, s.State, s.Open, s.InUse, s.Idle, s.MaxOpen, s.WaitCount)
}
