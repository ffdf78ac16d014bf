package main

import (
	"context"
	"database/sql"
	"flag"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/Kevaljjjb/Consensus-backend/internal/adapters/feed"
	"github.com/Kevaljjjb/Consensus-backend/internal/adapters/observability"
	"github.com/Kevaljjjb/Consensus-backend/internal/app"
	"github.com/Kevaljjjb/Consensus-backend/internal/shared"
	mysqlrepo "github.com/Kevaljjjb/Consensus-backend/internal/storage/mysql"
)

func main() {
	backfill := flag.Bool("backfill", false, "re-derive numeric columns for all stored rows instead of ingesting")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := feed.New(cfg.FeedBase, cfg.FeedKey, cfg.FeedRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize feed client")
	}
	ing := app.NewIngestionService(client, repo)

	if *backfill {
		n, err := ing.Backfill(ctx)
		if err != nil {
			log.Fatal().Err(err).Int64("rows", n).Msg("backfill failed")
		}
		return
	}

	log.Info().
		Str("base", cfg.FeedBase).
		Int("workers", cfg.Workers).
		Strs("sources", cfg.Sources).
		Msg("ingestor starting")

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, src := range cfg.Sources {
		src := src

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			defer sem.Release(int64(1))

			n, err := ing.IngestSource(ctx, source)
			if err != nil {
				log.Warn().Str("source", source).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Str("source", source).Int("upserted", n).Msg("ingest ok")
		}(src)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
