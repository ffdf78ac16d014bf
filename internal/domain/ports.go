package domain

import (
	"context"
	"time"
)

type ListingRepository interface {
	// Write paths
	UpsertListings(ctx context.Context, ls []Listing) (int, error)
	BackfillNumerics(ctx context.Context) (int64, error)

	// Read paths
	GetListing(ctx context.Context, id int64) (ListingView, error)
	ListListings(ctx context.Context, q ListingsQuery) (ListingsPage, error)
	SearchListings(ctx context.Context, q SearchQuery) ([]ListingView, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
	Stats(ctx context.Context) (ListingStats, error)

	// Dashboard inputs
	DashboardRows(ctx context.Context, lookbackDays int) ([]DashboardRow, error)
	PipelineStats(ctx context.Context, lookbackDays int) (PipelineStats, error)
}

// FeedClient pulls batches of scraped rows from the feed service that
// fronts the per-site scraping pipelines.
type FeedClient interface {
	FetchListings(ctx context.Context, source string) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// DashboardRow is the slim projection the aggregation engine consumes:
// every listing whose last sighting falls inside the lookback window.
type DashboardRow struct {
	ID              int64
	Title           string
	Source          string
	State           string
	Country         string
	Industry        string
	GrossRevenue    string
	EBITDA          string
	CashFlow        string
	GrossRevenueNum *float64
	EBITDANum       *float64
	CashFlowNum     *float64
	FirstSeenDate   time.Time
	LastSeenDate    time.Time
}

// PipelineStats come from the optional deal-pipeline table. When that
// table is missing the repository returns ErrSLAUnavailable and the
// dashboard reports the SLA block as explicitly absent.
type PipelineStats struct {
	Response48hRate *float64 `json:"response_48h_rate"`
	Offer5dRate     *float64 `json:"offer_5d_rate"`
	Close60dRate    *float64 `json:"close_60d_rate"`
	InPipeline      *int     `json:"in_pipeline"`
}
