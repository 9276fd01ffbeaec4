package main

import (
	"context"
	"flag"

	"raices-verdes/internal/config"
	"raices-verdes/internal/db"
	"raices-verdes/internal/logging"
	"raices-verdes/internal/migrate"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	flag.Parse()

	cfg := config.FromEnv()
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if *down {
		if err := migrate.Down(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("roll back migrations")
		}
		logger.Info().Msg("migrations rolled back")
		return
	}

	version, err := migrate.Apply(ctx, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	logger.Info().Uint("version", version).Msg("migrations applied")
}
