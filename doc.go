// Package nebulaorm is a small object-relational mapper over database/sql.
// Record types are declared once as schema definitions, compiled into
// immutable schemas with precomputed SQL templates, and then read and written
// through a shared, explicitly managed connection pool.
//
// # Architecture
//
// Five pieces build on each other:
//
// 1. Field descriptors (pkg/schema): storage kind, column type, key-ness and
// an optional default that may be a generator evaluated on first use.
//
// 2. Schema registry (pkg/schema): validates a definition (exactly one
// primary key, unique attributes and columns) and precomputes the select,
// insert, update and delete templates.
//
// 3. Connection pool manager (pkg/clients): Initialize and Shutdown a bounded
// pool of MySQL or PostgreSQL connections. Acquired connections are released
// on every exit path.
//
// 4. Query executor (pkg/clients): checks placeholder counts, rewrites ?
// placeholders for the dialect, runs reads with an optional row limit and
// writes with optional explicit transactions.
//
// 5. Record protocol (pkg/models): Find, FindAll and FindNumber on a table;
// Save, Update and Remove on a record.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/nebula-orm/pkg/clients"
//	    "github.com/ajitpratap0/nebula-orm/pkg/config"
//	    "github.com/ajitpratap0/nebula-orm/pkg/models"
//	    "github.com/ajitpratap0/nebula-orm/pkg/schema"
//	)
//
//	var Score = schema.MustRegister(schema.Definition{
//	    Name:  "Score",
//	    Table: "scores",
//	    Attributes: []schema.Attribute{
//	        schema.Attr("id", schema.StringField(schema.PrimaryKey(), schema.WithDefaultFunc(schema.NewID))),
//	        schema.Attr("name", schema.StringField(schema.WithLength(50))),
//	        schema.Attr("score", schema.FloatField()),
//	    },
//	})
//
//	cfg := config.NewDatabaseConfig()
//	cfg.User, cfg.Password, cfg.Database = "app", secret, "awesome"
//
//	pool := clients.NewPool(logger)
//	if err := pool.Initialize(ctx, cfg); err != nil {
//	    return err
//	}
//	defer pool.Shutdown(ctx)
//
//	scores := models.NewTable(Score, clients.NewExecutor(pool, logger), logger)
//	r, _ := scores.New(map[string]any{"name": "ann"})
//	_, err := r.Save(ctx) // id and score take their defaults
//
// # Key Packages
//
//	pkg/schema        - Field descriptors and the schema registry
//	pkg/clients       - Connection pool, dialects and the query executor
//	pkg/models        - Tables and records
//	pkg/config        - Pool configuration, YAML and environment loading
//	pkg/nebulaerrors  - Typed errors
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus collectors
//	pkg/observability - OpenTelemetry statement tracing
//
// # Command Line
//
// cmd/nebula-orm prints the templates of the bundled blog models and runs
// ping, count, find and demo commands against the configured database:
//
//	nebula-orm --config nebula.yaml schema User
//	NEBULA_ORM_DATABASE_PASSWORD=... nebula-orm count Blog --where "user_id = ?" --arg 42
package nebulaorm
