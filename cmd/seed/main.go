package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"coach-storefront/internal/config"
	pg "coach-storefront/internal/infra/db/postgres"
	"coach-storefront/internal/infra/db/seed"
	"coach-storefront/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres DSN; when set the config file is not loaded")
	flag.Parse()

	logCfg := config.LogConfig{Level: "info", Format: "console"}
	if *dsn == "" {
		cfg, err := config.LoadConfig(*cfgPath, false)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		*dsn = cfg.Database.URL
		logCfg = cfg.Log
	}
	logger := logging.New(logCfg, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, *dsn, 4)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	products := seed.Products(time.Now())
	if err := seed.Load(ctx, pg.NewTxManager(pool), pg.NewProductRepo(pool), products, logger); err != nil {
		pool.Close()
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	logger.Info().Int("products", len(products)).Msg("catalog seeded")
}
