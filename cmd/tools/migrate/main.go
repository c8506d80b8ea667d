package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-resto/internal/db"
	"github.com/noah-isme/backend-resto/internal/obs"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("resto-migrate", "console", "info")

	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	version := flag.Bool("version", false, "print the current schema version and exit")
	dbURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "postgres connection URL")
	flag.Parse()

	if *dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	switch {
	case *version:
		v, dirty, err := db.Version(*dbURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("read schema version")
		}
		logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
	case *down > 0:
		if err := db.Rollback(*dbURL, *down); err != nil {
			logger.Fatal().Err(err).Int("steps", *down).Msg("rollback")
		}
		logger.Info().Int("steps", *down).Msg("rolled back")
	default:
		if err := db.Migrate(*dbURL); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
		logger.Info().Msg("schema up to date")
	}
}
