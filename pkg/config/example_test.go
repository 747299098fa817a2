package config_test

import (
	"fmt"

	"github.com/ajitpratap0/nebula-orm/pkg/config"
)

// ExampleNewDatabaseConfig shows the defaults applied before any file is read.
func ExampleNewDatabaseConfig() {
	cfg := config.NewDatabaseConfig()

	fmt.Printf("Addr: %s\n", cfg.Addr())
	fmt.Printf("Charset: %s\n", cfg.Charset)
	fmt.Printf("Autocommit: %v\n", cfg.AutocommitEnabled())
	fmt.Printf("Pool: %d..%d\n", cfg.MinSize, cfg.MaxSize)

	// Output:
	// Addr: localhost:3306
	// Charset: utf8
	// Autocommit: true
	// Pool: 1..10
}

// ExampleDatabaseConfig_Validate shows the fail-fast check on required keys.
func ExampleDatabaseConfig_Validate() {
	cfg := config.NewDatabaseConfig()
	cfg.User = "ryan"
	cfg.Password = "secret"

	fmt.Println(cfg.Validate())

	cfg.Database = "awesome"
	fmt.Println(cfg.Validate())

	// Output:
	// config: database is required
	// <nil>
}

// ExampleParse demonstrates YAML parsing with environment substitution.
func ExampleParse() {
	cfg := config.NewConfig()
	doc := []byte(`
database:
  user: ryan
  password: secret
  database: awesome
  max_size: 4
`)
	if err := config.Parse(doc, cfg); err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(cfg.Database.User, cfg.Database.MaxSize, cfg.Database.Port)

	// Output:
	// ryan 4 3306
}
