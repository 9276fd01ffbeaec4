package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"raices-verdes/internal/config"
	"raices-verdes/internal/db"
	"raices-verdes/internal/logging"
	"raices-verdes/internal/seed"
	"raices-verdes/internal/service/session"
)

const demoTokenTTL = 7 * 24 * time.Hour

func main() {
	cfg := config.FromEnv()
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	identities, err := seed.Apply(ctx, pool, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed apply")
	}
	logger.Info().Int("identities", len(identities)).Msg("seed applied")

	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET not set, skipping demo tokens")
		return
	}
	now := time.Now()
	for _, id := range identities {
		claims := session.NewClaims(id.ID, uuid.NewString(), id.Email, id.Name, now, demoTokenTTL)
		token, err := session.Issue(cfg.JWTSecret, claims)
		if err != nil {
			logger.Fatal().Err(err).Str("identity", id.ID).Msg("issue demo token")
		}
		fmt.Printf("%-9s %-20s %s\n", id.Role, id.Email, token)
	}
}
