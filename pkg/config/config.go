// Package config provides the configuration consumed by the ORM layer.
// DatabaseConfig holds everything the connection pool manager needs at
// Initialize; Config bundles it with the logging and observability sections
// read by the CLI.
//
// Example usage:
//
//	cfg := config.NewDatabaseConfig()
//	cfg.User = "app"
//	cfg.Password = os.Getenv("DB_PASSWORD")
//	cfg.Database = "awesome"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/ajitpratap0/nebula-orm/pkg/logger"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

const (
	// DialectMySQL selects go-sql-driver/mysql
	DialectMySQL = "mysql"
	// DialectPostgres selects pgx through its database/sql adapter
	DialectPostgres = "postgres"
)

// Config is the top-level configuration file layout.
type Config struct {
	Database      DatabaseConfig      `yaml:"database" json:"database" mapstructure:"database"`
	Logging       logger.Config       `yaml:"logging" json:"logging" mapstructure:"logging"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// DatabaseConfig contains the connection pool settings.
// User, Password and Database are required; everything else has a default.
type DatabaseConfig struct {
	// Dialect selects the driver and placeholder syntax (mysql, postgres)
	Dialect    string `yaml:"dialect" json:"dialect" mapstructure:"dialect"`
	Host       string `yaml:"host" json:"host" mapstructure:"host"`
	Port       int    `yaml:"port" json:"port" mapstructure:"port"`
	User       string `yaml:"user" json:"user" mapstructure:"user"`
	Password   string `yaml:"password" json:"password" mapstructure:"password"`
	Database   string `yaml:"database" json:"database" mapstructure:"database"`
	Charset    string `yaml:"charset" json:"charset" mapstructure:"charset"`
	// Autocommit defaults to true when unset
	Autocommit *bool  `yaml:"autocommit,omitempty" json:"autocommit,omitempty" mapstructure:"autocommit"`
	// MinSize connections are opened eagerly at Initialize
	MinSize int `yaml:"min_size" json:"min_size" mapstructure:"min_size"`
	// MaxSize bounds the number of open connections
	MaxSize int `yaml:"max_size" json:"max_size" mapstructure:"max_size"`

	// AcquireTimeout bounds how long Acquire waits for a free connection (0 = wait for ctx)
	AcquireTimeout time.Duration `yaml:"acquire_timeout" json:"acquire_timeout" mapstructure:"acquire_timeout"`
	// ConnMaxLifetime closes connections older than this (0 = never)
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	// ConnMaxIdleTime closes connections idle for longer than this (0 = never)
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// ObservabilityConfig controls metrics and tracing.
type ObservabilityConfig struct {
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing" mapstructure:"enable_tracing"`
	// TracingExporter is "stdout" or "none"
	TracingExporter string `yaml:"tracing_exporter" json:"tracing_exporter" mapstructure:"tracing_exporter"`
	ServiceName     string `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
}

// NewDatabaseConfig returns a DatabaseConfig populated with defaults.
// The required credentials are left empty.
func NewDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Dialect:    DialectMySQL,
		Host:       "localhost",
		Port:       3306,
		Charset:    "utf8",
		Autocommit: Bool(true),
		MinSize:    1,
		MaxSize:    10,
	}
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Database: NewDatabaseConfig(),
		Logging:  logger.DefaultConfig(),
		Observability: ObservabilityConfig{
			EnableMetrics:   true,
			EnableTracing:   false,
			TracingExporter: "none",
			ServiceName:     "nebula-orm",
		},
	}
}

// Bool returns a pointer to b, for optional settings such as Autocommit.
func Bool(b bool) *bool { return &b }

// AutocommitEnabled reports the session autocommit setting.
func (c *DatabaseConfig) AutocommitEnabled() bool {
	return c.Autocommit == nil || *c.Autocommit
}

// WithDefaults returns a copy of c with unset optional keys filled from
// NewDatabaseConfig. Pool sizes are filled only when MaxSize is unset, so an
// explicit MinSize of 0 survives.
func (c DatabaseConfig) WithDefaults() DatabaseConfig {
	d := NewDatabaseConfig()
	if c.Dialect == "" {
		c.Dialect = d.Dialect
	}
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Charset == "" {
		c.Charset = d.Charset
	}
	if c.Autocommit == nil {
		c.Autocommit = d.Autocommit
	}
	if c.MaxSize == 0 {
		c.MaxSize = d.MaxSize
		if c.MinSize == 0 {
			c.MinSize = d.MinSize
		}
	}
	return c
}

// Validate checks required keys and value ranges. The returned error is of
// type nebulaerrors.ErrorTypeConfig and names the offending key.
func (c *DatabaseConfig) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"user", c.User},
		{"password", c.Password},
		{"database", c.Database},
	}
	for _, r := range required {
		if r.value == "" {
			return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "%s is required", r.key).
				WithDetail("key", r.key)
		}
	}

	switch c.Dialect {
	case DialectMySQL, DialectPostgres:
	default:
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "unsupported dialect %q", c.Dialect).
			WithDetail("key", "dialect")
	}

	if c.Host == "" {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "host cannot be empty").WithDetail("key", "host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "port %d out of range", c.Port).WithDetail("key", "port")
	}
	if c.MaxSize < 1 {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "max_size must be positive").WithDetail("key", "max_size")
	}
	if c.MinSize < 0 {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "min_size cannot be negative").WithDetail("key", "min_size")
	}
	if c.MinSize > c.MaxSize {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "min_size %d exceeds max_size %d", c.MinSize, c.MaxSize).
			WithDetail("key", "min_size")
	}
	if c.AcquireTimeout < 0 {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "acquire_timeout cannot be negative").
			WithDetail("key", "acquire_timeout")
	}
	return nil
}

// Addr returns host:port.
func (c *DatabaseConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates every section.
func (c *Config) Validate() error {
	return c.Database.Validate()
}
