package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by FromViper,
// e.g. NEBULA_ORM_DATABASE_PASSWORD.
const EnvPrefix = "NEBULA_ORM"

// NewViper returns a viper instance preloaded with every default of NewConfig
// and bound to NEBULA_ORM_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := NewConfig()
	v.SetDefault("database.dialect", d.Database.Dialect)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "")
	v.SetDefault("database.charset", d.Database.Charset)
	v.SetDefault("database.autocommit", d.Database.AutocommitEnabled())
	v.SetDefault("database.min_size", d.Database.MinSize)
	v.SetDefault("database.max_size", d.Database.MaxSize)
	v.SetDefault("database.acquire_timeout", d.Database.AcquireTimeout)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("observability.enable_metrics", d.Observability.EnableMetrics)
	v.SetDefault("observability.enable_tracing", d.Observability.EnableTracing)
	v.SetDefault("observability.tracing_exporter", d.Observability.TracingExporter)
	v.SetDefault("observability.service_name", d.Observability.ServiceName)
	return v
}

// FromViper decodes a Config from v. When v has a config file set it is read
// first; a missing file is an error.
func FromViper(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := NewConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
