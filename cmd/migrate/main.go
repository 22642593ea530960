package main

import (
	"embed"
	"flag"
	"os"

	"github.com/chainvault/chainvault/pkg/config"
	"github.com/chainvault/chainvault/pkg/migrate"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	var (
		up   = flag.Bool("up", false, "Run pending migrations")
		down = flag.Bool("down", false, "Roll back the last migration")
	)
	flag.Parse()

	if *up == *down {
		log.Fatal().Msg("specify exactly one of -up or -down")
	}

	cfg := config.LoadFromEnv()
	cfg.Logging.SetupLogging()

	migrator, err := migrate.NewMigrator(&cfg.Database, migrationsFS, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}
	defer migrator.Close()

	if *up {
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	} else {
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
	}

	os.Exit(0)
}
