package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-orm/pkg/clients"
	"github.com/ajitpratap0/nebula-orm/pkg/config"
)

// Environment variables read by IntegrationDatabaseConfig.
const (
	EnvTestDialect  = "NEBULA_ORM_TEST_DIALECT"
	EnvTestHost     = "NEBULA_ORM_TEST_HOST"
	EnvTestPort     = "NEBULA_ORM_TEST_PORT"
	EnvTestUser     = "NEBULA_ORM_TEST_USER"
	EnvTestPassword = "NEBULA_ORM_TEST_PASSWORD"
	EnvTestDatabase = "NEBULA_ORM_TEST_DATABASE"
)

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// IntegrationDatabaseConfig builds a pool configuration from the
// NEBULA_ORM_TEST_* environment and skips the test when no database user is
// configured.
func IntegrationDatabaseConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	IntegrationTest(t)

	cfg := config.NewDatabaseConfig()
	cfg.User = os.Getenv(EnvTestUser)
	if cfg.User == "" {
		t.Skipf("Skipping integration test: %s is not set", EnvTestUser)
	}
	cfg.Password = os.Getenv(EnvTestPassword)
	cfg.Database = os.Getenv(EnvTestDatabase)
	if v := os.Getenv(EnvTestDialect); v != "" {
		cfg.Dialect = v
		if v == config.DialectPostgres {
			cfg.Port = 5432
		}
	}
	if v := os.Getenv(EnvTestHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(EnvTestPort); v != "" {
		port, err := strconv.Atoi(v)
		require.NoError(t, err, "invalid %s", EnvTestPort)
		cfg.Port = port
	}
	cfg.MaxSize = 4
	cfg.AcquireTimeout = 10 * time.Second
	return cfg
}

// IntegrationTestSuite provides a live pool and executor to suites that
// embed it.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	Logger   *zap.Logger
	Pool     *clients.Pool
	Executor *clients.Executor
}

// SetupSuite initializes the pool, or skips the suite when no database is
// configured.
func (s *IntegrationTestSuite) SetupSuite() {
	cfg := IntegrationDatabaseConfig(s.T())

	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
	s.Logger = TestLogger(s.T())

	s.Pool = clients.NewPool(s.Logger)
	require.NoError(s.T(), s.Pool.Initialize(s.ctx, cfg))
	s.Executor = clients.NewExecutor(s.Pool, s.Logger)

	s.T().Logf("Integration test suite connected to %s", cfg.Addr())
}

// TearDownSuite shuts the pool down
func (s *IntegrationTestSuite) TearDownSuite() {
	if s.Pool != nil {
		s.NoError(s.Pool.Shutdown(s.ctx))
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.T().Logf("Integration test suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// Exec runs a statement, failing the test on error.
func (s *IntegrationTestSuite) Exec(sql string, args ...any) {
	_, err := s.Executor.RunCommand(s.ctx, sql, args, true)
	s.Require().NoError(err)
}
