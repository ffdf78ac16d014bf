package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/Kevaljjjb/Consensus-backend/internal/app"
	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	rows        []domain.DashboardRow
	stats       domain.ListingStats
	pipeline    *domain.PipelineStats
	pipelineErr error

	dashboardCalls int
	lastSearch     domain.SearchQuery
}

func (f *fakeRepo) UpsertListings(ctx context.Context, ls []domain.Listing) (int, error) {
	return len(ls), nil
}
func (f *fakeRepo) BackfillNumerics(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeRepo) GetListing(ctx context.Context, id int64) (domain.ListingView, error) {
	return domain.ListingView{ID: id}, nil
}
func (f *fakeRepo) ListListings(ctx context.Context, q domain.ListingsQuery) (domain.ListingsPage, error) {
	return domain.ListingsPage{Page: q.Page, PerPage: q.PerPage}, nil
}
func (f *fakeRepo) SearchListings(ctx context.Context, q domain.SearchQuery) ([]domain.ListingView, error) {
	f.lastSearch = q
	return []domain.ListingView{}, nil
}
func (f *fakeRepo) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	return domain.FilterOptions{}, nil
}
func (f *fakeRepo) Stats(ctx context.Context) (domain.ListingStats, error) {
	return f.stats, nil
}
func (f *fakeRepo) DashboardRows(ctx context.Context, lookbackDays int) ([]domain.DashboardRow, error) {
	f.dashboardCalls++
	out := make([]domain.DashboardRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}
func (f *fakeRepo) PipelineStats(ctx context.Context, lookbackDays int) (domain.PipelineStats, error) {
	if f.pipelineErr != nil {
		return domain.PipelineStats{}, f.pipelineErr
	}
	if f.pipeline == nil {
		return domain.PipelineStats{}, domain.ErrSLAUnavailable
	}
	return *f.pipeline, nil
}

type fakeCache struct {
	store map[string]domain.DashboardOverview
	sets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*domain.DashboardOverview); ok {
		*d = v
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]domain.DashboardOverview{}
	}
	c.store[key] = v.(domain.DashboardOverview)
	c.sets++
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error { return nil }

func row(id int64, source, country string, cash float64, lastSeen time.Time) domain.DashboardRow {
	c := cash
	return domain.DashboardRow{
		ID: id, Source: source, Country: country,
		CashFlowNum:   &c,
		FirstSeenDate: lastSeen, LastSeenDate: lastSeen,
	}
}

// ---- tests ----

func TestDashboardOverview_CacheMissThenHit(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{rows: []domain.DashboardRow{row(1, "BizBen", "US", 2_500_000, now)}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 5*time.Minute)

	first, err := q.DashboardOverview(context.Background(), domain.DashboardQuery{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if first.Snapshot.TotalListings != 1 {
		t.Fatalf("unexpected snapshot: %+v", first.Snapshot)
	}
	if repo.dashboardCalls != 1 || cache.sets != 1 {
		t.Fatalf("expected one computation + one cache set, got %d/%d", repo.dashboardCalls, cache.sets)
	}

	// Grow the repo; a second identical request must come from cache.
	repo.rows = append(repo.rows, row(2, "BizBen", "US", 3_000_000, now))
	second, err := q.DashboardOverview(context.Background(), domain.DashboardQuery{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if second.Snapshot.TotalListings != 1 {
		t.Fatalf("expected cached payload, got %+v", second.Snapshot)
	}
	if repo.dashboardCalls != 1 {
		t.Fatalf("cache hit must not recompute, calls=%d", repo.dashboardCalls)
	}
}

func TestDashboardOverview_KeyIncludesScope(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{rows: []domain.DashboardRow{row(1, "BizBen", "GB", 2_500_000, now)}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 5*time.Minute)

	if _, err := q.DashboardOverview(context.Background(), domain.DashboardQuery{}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if _, err := q.DashboardOverview(context.Background(), domain.DashboardQuery{CountryScope: []string{"GB"}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if repo.dashboardCalls != 2 {
		t.Fatalf("different scope must recompute, calls=%d", repo.dashboardCalls)
	}
}

func TestDashboardOverview_SLAAbsentWithoutPipeline(t *testing.T) {
	repo := &fakeRepo{}
	q := app.NewQueryService(repo, &fakeCache{}, 5*time.Minute)

	out, err := q.DashboardOverview(context.Background(), domain.DashboardQuery{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.SLA.Available {
		t.Fatalf("SLA must be marked unavailable: %+v", out.SLA)
	}
	if out.SLA.Response48hRate != nil || out.SLA.InPipeline != nil {
		t.Fatalf("SLA fields must be explicit nulls: %+v", out.SLA)
	}
}

func TestDashboardOverview_ClampsPriorityLimit(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{}
	for i := int64(1); i <= 60; i++ {
		repo.rows = append(repo.rows, row(i, "BizBen", "US", 2_500_000, now))
	}
	q := app.NewQueryService(repo, &fakeCache{}, 5*time.Minute)

	out, err := q.DashboardOverview(context.Background(), domain.DashboardQuery{PriorityLimit: 9999})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.PriorityQueue) != domain.MaxPriorityLimit {
		t.Fatalf("priority queue len = %d, want %d", len(out.PriorityQueue), domain.MaxPriorityLimit)
	}
}

func TestSearchListings_ClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	q := app.NewQueryService(repo, &fakeCache{}, 5*time.Minute)

	if _, err := q.SearchListings(context.Background(), domain.SearchQuery{Q: "hvac", Limit: 1000}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if repo.lastSearch.Limit != 100 {
		t.Fatalf("limit = %d, want 100", repo.lastSearch.Limit)
	}

	out, err := q.SearchListings(context.Background(), domain.SearchQuery{Q: "   "})
	if err != nil || len(out) != 0 {
		t.Fatalf("blank query should short-circuit: %v %v", out, err)
	}
	if repo.lastSearch.Limit != 100 {
		t.Fatalf("blank query must not hit the repo")
	}
}
