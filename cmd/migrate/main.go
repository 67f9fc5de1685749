// migrate applies the identities schema from embedded SQL: go run ./cmd/migrate --direction up.
package main

import (
	flag "github.com/spf13/pflag"

	"food-delivery-platform/auth/internal/config"
	"food-delivery-platform/auth/internal/db/migrate"
	"food-delivery-platform/auth/internal/logger"
)

func main() {
	direction := flag.StringP("direction", "d", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.LoadFor(config.Tooling)
	log := logger.New("info", "json")
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log = logger.Component(logger.New(cfg.LogLevel, cfg.LogFormat), "migrate")

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Fatal().Err(err).Str("direction", *direction).Msg("migration failed")
	}
	v, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("read schema version")
	}
	log.Info().Str("direction", *direction).Uint("version", v).Bool("dirty", dirty).Msg("migrations applied")
}
