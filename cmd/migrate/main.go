// migrate applies the embedded users schema to the configured postgres database.
package main

import (
	"flag"
	"fmt"
	"os"

	"user-directory-service/internal/adapter/db/migrate"
	"user-directory-service/internal/config"
)

func main() {
	direction := flag.String("direction", migrate.DirectionUp, "Migration direction: up or down")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DB.Driver != config.DriverPostgres {
		fmt.Fprintf(os.Stderr, "migrations target postgres; DB_DRIVER is %q (sqlite uses DB_AUTO_MIGRATE)\n", cfg.DB.Driver)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DB.URL(), *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrations %s complete\n", *direction)
}
