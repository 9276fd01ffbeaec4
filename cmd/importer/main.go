package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"raices-verdes/internal/config"
	"raices-verdes/internal/db"
	"raices-verdes/internal/domain"
	"raices-verdes/internal/importer"
	"raices-verdes/internal/logging"
	"raices-verdes/internal/repository/producer"
	"raices-verdes/internal/repository/product"
)

func main() {
	var (
		filePath   string
		producerID string
	)
	flag.StringVar(&filePath, "file", "", "Path to the product CSV (name,price,community,stock,image_url,description)")
	flag.StringVar(&producerID, "producer", "", "Producer id that owns the imported products")
	flag.Parse()

	if filePath == "" || producerID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "importer")
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if _, err := producer.NewPostgres(pool).GetByID(ctx, producerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Fatal().Str("producer_id", producerID).Msg("producer does not exist")
		}
		logger.Fatal().Err(err).Msg("load producer")
	}

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open file")
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, &logger), producerID, &logger)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Int("imported", count).Msg("import failed")
	}

	fmt.Printf("Imported %d products for producer %s in %s\n", count, producerID, time.Since(start).Truncate(time.Millisecond))
}
