package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
)

type QueryService struct {
	repo         domain.ListingRepository
	cache        domain.Cache
	dashboardTTL time.Duration
}

func NewQueryService(r domain.ListingRepository, c domain.Cache, dashboardTTL time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, dashboardTTL: dashboardTTL}
}

func (s *QueryService) GetListing(ctx context.Context, id int64) (domain.ListingView, error) {
	return s.repo.GetListing(ctx, id)
}

func (s *QueryService) ListListings(ctx context.Context, q domain.ListingsQuery) (domain.ListingsPage, error) {
	return s.repo.ListListings(ctx, q)
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func (s *QueryService) SearchListings(ctx context.Context, q domain.SearchQuery) ([]domain.ListingView, error) {
	if strings.TrimSpace(q.Q) == "" {
		return []domain.ListingView{}, nil
	}
	if q.Limit < 1 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}
	return s.repo.SearchListings(ctx, q)
}

func (s *QueryService) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	return s.repo.FilterOptions(ctx)
}

func (s *QueryService) Stats(ctx context.Context) (domain.ListingStats, error) {
	return s.repo.Stats(ctx)
}

// DashboardOverview serves the aggregated payload through a TTL cache
// keyed by the exact parameter tuple. A hit returns the cached payload
// verbatim; a miss recomputes synchronously and overwrites the entry.
// Concurrent misses for the same key may each recompute; last write wins.
func (s *QueryService) DashboardOverview(ctx context.Context, q domain.DashboardQuery) (domain.DashboardOverview, error) {
	q.Clamp()
	key := fmt.Sprintf("dashboard:overview:%d:%d:%s", q.LookbackDays, q.PriorityLimit, strings.Join(q.CountryScope, ","))

	var cached domain.DashboardOverview
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	rows, err := s.repo.DashboardRows(ctx, q.LookbackDays)
	if err != nil {
		return domain.DashboardOverview{}, err
	}

	// Missing pipeline data is explicit absence, not an error.
	var pipeline *domain.PipelineStats
	stats, err := s.repo.PipelineStats(ctx, q.LookbackDays)
	switch {
	case err == nil:
		pipeline = &stats
	case errors.Is(err, domain.ErrSLAUnavailable):
		pipeline = nil
	default:
		return domain.DashboardOverview{}, err
	}

	overview := buildOverview(rows, pipeline, q, time.Now())
	_ = s.cache.Set(ctx, key, overview, int(s.dashboardTTL.Seconds()))
	return overview, nil
}
