package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-orm/pkg/clients"
	"github.com/ajitpratap0/nebula-orm/pkg/config"
	"github.com/ajitpratap0/nebula-orm/pkg/logger"
	"github.com/ajitpratap0/nebula-orm/pkg/metrics"
	"github.com/ajitpratap0/nebula-orm/pkg/observability"
)

var version = "0.1.0"

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	v           *viper.Viper
	out         io.Writer
	cfgFile     string
	logLevel    string
	timeout     time.Duration
	dumpMetrics bool

	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: config.NewViper(), out: out}

	root := &cobra.Command{
		Use:   "nebula-orm",
		Short: "Nebula ORM - inspect record schemas and talk to the configured database",
		Long: `nebula-orm operates the record types compiled into this binary.
It prints their statement templates and DDL, checks the connection pool and
runs simple lookups against the configured MySQL or PostgreSQL database.

Configuration is read from --config (YAML) and NEBULA_ORM_* environment
variables, e.g. NEBULA_ORM_DATABASE_PASSWORD.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.load() },
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.dumpMetrics && a.cfg.Observability.EnableMetrics {
				return metrics.WriteText(a.out, nil)
			}
			return nil
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.DurationVar(&a.timeout, "timeout", 30*time.Second, "Timeout for database commands")
	flags.BoolVar(&a.dumpMetrics, "dump-metrics", false, "Print collected metrics after the command")

	root.AddCommand(
		a.versionCmd(),
		a.schemaCmd(),
		a.pingCmd(),
		a.countCmd(),
		a.findCmd(),
		a.demoCmd(),
	)
	return root
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "nebula-orm v%s\n", version)
			fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// load resolves the configuration and builds the command logger.
func (a *app) load() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	}
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.Get().With(zap.String("component", "nebula-orm-cli"))
	return nil
}

// connect initializes tracing and a pool from the loaded configuration. The
// returned cleanup shuts both down.
func (a *app) connect(ctx context.Context) (*clients.Executor, func(), error) {
	stopTracing, err := observability.InitTracing(ctx, a.cfg.Observability, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	pool := clients.NewPool(a.log)
	a.log.Debug("connecting", zap.String("dsn", clients.RedactDSN(a.cfg.Database)))
	if err := pool.Initialize(ctx, a.cfg.Database); err != nil {
		_ = stopTracing(ctx)
		return nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pool.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("failed to shut down pool", zap.Error(err))
		}
		if err := stopTracing(shutdownCtx); err != nil {
			a.log.Warn("failed to flush traces", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return clients.NewExecutor(pool, a.log), cleanup, nil
}

func (a *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}
