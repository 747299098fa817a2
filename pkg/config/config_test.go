package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

func validDatabaseConfig() DatabaseConfig {
	cfg := NewDatabaseConfig()
	cfg.User = "ryan"
	cfg.Password = "secret"
	cfg.Database = "awesome"
	return cfg
}

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *DatabaseConfig)
		wantKey string
	}{
		{name: "valid", mutate: func(c *DatabaseConfig) {}},
		{name: "missing user", mutate: func(c *DatabaseConfig) { c.User = "" }, wantKey: "user"},
		{name: "missing password", mutate: func(c *DatabaseConfig) { c.Password = "" }, wantKey: "password"},
		{name: "missing database", mutate: func(c *DatabaseConfig) { c.Database = "" }, wantKey: "database"},
		{name: "bad dialect", mutate: func(c *DatabaseConfig) { c.Dialect = "oracle" }, wantKey: "dialect"},
		{name: "bad port", mutate: func(c *DatabaseConfig) { c.Port = 0 }, wantKey: "port"},
		{name: "zero max", mutate: func(c *DatabaseConfig) { c.MaxSize = 0; c.MinSize = 0 }, wantKey: "max_size"},
		{name: "min above max", mutate: func(c *DatabaseConfig) { c.MinSize = 11 }, wantKey: "min_size"},
		{name: "negative acquire timeout", mutate: func(c *DatabaseConfig) { c.AcquireTimeout = -time.Second }, wantKey: "acquire_timeout"},
		{name: "postgres", mutate: func(c *DatabaseConfig) { c.Dialect = DialectPostgres; c.Port = 5432 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDatabaseConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))

			var e *nebulaerrors.Error
			require.ErrorAs(t, err, &e)
			key, _ := e.Detail("key")
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestLoadFile_EnvSubstitution(t *testing.T) {
	t.Setenv("NEBULA_ORM_TEST_PW", "from-env")

	path := filepath.Join(t.TempDir(), "orm.yaml")
	content := `
database:
  user: ryan
  password: ${NEBULA_ORM_TEST_PW}
  database: awesome
  autocommit: false
  acquire_timeout: 2s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.False(t, cfg.Database.AutocommitEnabled())
	assert.Equal(t, 2*time.Second, cfg.Database.AcquireTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := NewConfig()
	cfg.Database = validDatabaseConfig()
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database, loaded.Database)
}

func TestFromViper_Env(t *testing.T) {
	t.Setenv("NEBULA_ORM_DATABASE_USER", "envuser")
	t.Setenv("NEBULA_ORM_DATABASE_PASSWORD", "envpw")
	t.Setenv("NEBULA_ORM_DATABASE_DATABASE", "envdb")
	t.Setenv("NEBULA_ORM_DATABASE_MAX_SIZE", "3")

	cfg, err := FromViper(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "envuser", cfg.Database.User)
	assert.Equal(t, "envdb", cfg.Database.Database)
	assert.Equal(t, 3, cfg.Database.MaxSize)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.True(t, cfg.Database.AutocommitEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestFromViper_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  user: fileuser\n  port: 3307\n"), 0600))

	v := NewViper()
	v.SetConfigFile(path)
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "fileuser", cfg.Database.User)
	assert.Equal(t, 3307, cfg.Database.Port)
}

func TestDatabaseConfig_WithDefaults(t *testing.T) {
	cfg := DatabaseConfig{User: "u", Password: "p", Database: "d"}.WithDefaults()
	assert.Equal(t, DialectMySQL, cfg.Dialect)
	assert.Equal(t, "localhost:3306", cfg.Addr())
	assert.Equal(t, "utf8", cfg.Charset)
	assert.Equal(t, 1, cfg.MinSize)
	assert.Equal(t, 10, cfg.MaxSize)
	assert.True(t, cfg.AutocommitEnabled())
	assert.NoError(t, cfg.Validate())

	explicit := DatabaseConfig{
		Dialect:    DialectPostgres,
		Port:       5432,
		Autocommit: Bool(false),
		MaxSize:    4,
	}.WithDefaults()
	assert.Equal(t, DialectPostgres, explicit.Dialect)
	assert.Equal(t, 5432, explicit.Port)
	assert.False(t, explicit.AutocommitEnabled())
	assert.Equal(t, 0, explicit.MinSize)
	assert.Equal(t, 4, explicit.MaxSize)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("NEBULA_ORM_TEST_SELF", "${NEBULA_ORM_TEST_SELF}")
	t.Setenv("NEBULA_ORM_TEST_HOST", "db.internal")

	got := substituteEnvVars("a: ${NEBULA_ORM_TEST_SELF}\nb: ${NEBULA_ORM_TEST_HOST}\nc: ${NEBULA_ORM_TEST_UNSET}")
	assert.Equal(t, "a: ${NEBULA_ORM_TEST_SELF}\nb: db.internal\nc: ", got)
}
