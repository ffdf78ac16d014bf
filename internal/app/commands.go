package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Kevaljjjb/Consensus-backend/internal/adapters/observability"
	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
)

type IngestionService struct {
	feed domain.FeedClient
	repo domain.ListingRepository
}

func NewIngestionService(feed domain.FeedClient, repo domain.ListingRepository) *IngestionService {
	return &IngestionService{feed: feed, repo: repo}
}

// IngestSource pulls one source site's scraped batch from the feed, maps
// it to listings, and upserts. Re-scraped URLs update in place; the store
// re-derives the numeric columns as part of the write. Returns the number
// of rows sent to the store.
func (s *IngestionService) IngestSource(ctx context.Context, source string) (int, error) {
	payloads, err := s.feed.FetchListings(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", source, err)
	}

	ls := mapListings(source, payloads)
	dropped := len(payloads) - len(ls)
	if dropped > 0 {
		log.Warn().Str("source", source).Int("dropped", dropped).Msg("payloads without url skipped")
	}
	if len(ls) == 0 {
		observability.ObserveIngest(source, 0, dropped)
		return 0, nil
	}

	n, err := s.repo.UpsertListings(ctx, ls)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", source, err)
	}
	observability.ObserveIngest(source, n, dropped)
	log.Info().Str("source", source).Int("fetched", len(payloads)).Int("upserted", n).Msg("source ingested")
	return n, nil
}

// Backfill re-derives the numeric columns over every stored row. Safe to
// re-run; the derivation is idempotent.
func (s *IngestionService) Backfill(ctx context.Context) (int64, error) {
	n, err := s.repo.BackfillNumerics(ctx)
	if err != nil {
		return n, fmt.Errorf("backfill numerics: %w", err)
	}
	log.Info().Int64("rows", n).Msg("numeric backfill completed")
	return n, nil
}
