package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("listing not found")
	ErrInvalidSort    = errors.New("invalid sort_by column")
	ErrSLAUnavailable = errors.New("pipeline data source unavailable")
)

// Unknown is the sentinel stored for descriptive fields the scrapers could
// not supply. It is never treated as a real filter value.
const Unknown = "N/A"

// Listing is one scraped business-for-sale deal. URL is the identity: the
// same URL always maps to the same row, re-scrapes update in place.
type Listing struct {
	URL          string
	ListingHash  string // sha256(url)
	Source       string
	Title        string
	City         string
	State        string
	Country      string
	Industry     string
	Description  string
	ListedByFirm string
	ListedByName string
	Phone        string
	Email        string

	// Raw financial text exactly as scraped ("$1,200,000", "N/A", ...).
	// The numeric columns are derived from these on every write and are
	// never set by callers.
	Price        string
	GrossRevenue string
	CashFlow     string
	Inventory    string
	EBITDA       string

	FinancialData    string
	SourceLink       string
	ExtraInformation string
	DealDate         string
	ScrapingDate     string
}

// ListingView is the read model returned by the query paths.
type ListingView struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	Source       string `json:"source"`
	Title        string `json:"title"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	Industry     string `json:"industry"`
	Description  string `json:"description"`
	ListedByFirm string `json:"listed_by_firm"`
	ListedByName string `json:"listed_by_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`

	Price        string `json:"price"`
	GrossRevenue string `json:"gross_revenue"`
	CashFlow     string `json:"cash_flow"`
	Inventory    string `json:"inventory"`
	EBITDA       string `json:"ebitda"`

	PriceNum        *float64 `json:"price_num"`
	GrossRevenueNum *float64 `json:"gross_revenue_num"`
	CashFlowNum     *float64 `json:"cash_flow_num"`
	EBITDANum       *float64 `json:"ebitda_num"`

	FinancialData    string `json:"financial_data"`
	SourceLink       string `json:"source_link"`
	ExtraInformation string `json:"extra_information"`
	DealDate         string `json:"deal_date"`
	ScrapingDate     string `json:"scraping_date"`

	BusinessEntityID *int64 `json:"business_entity_id,omitempty"`

	FirstSeenDate time.Time `json:"first_seen_date"`
	LastSeenDate  time.Time `json:"last_seen_date"`
}

// ListingFilters are the exact-match and range predicates shared by the
// listing feed and search endpoints. Nil means "not supplied"; all
// supplied predicates are combined with AND.
type ListingFilters struct {
	Source   *string
	Industry *string
	State    *string
	Country  *string
	City     *string // legacy filter, still accepted

	MinCashFlow *float64
	MaxCashFlow *float64
	MinEBITDA   *float64
	MaxEBITDA   *float64
	MinRevenue  *float64
	MaxRevenue  *float64
	MinPrice    *float64
	MaxPrice    *float64
}

type ListingsQuery struct {
	ListingFilters
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string
}

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	DefaultSortBy  = "last_seen_date"
)

// Clamp normalizes pagination and defaults in place. Out-of-range values
// are clamped, not rejected.
func (q *ListingsQuery) Clamp() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
}

type ListingsPage struct {
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
	Items      []ListingView `json:"data"`
}

type SearchQuery struct {
	ListingFilters
	Q     string
	Limit int
}

// FilterOptions are the distinct known values per categorical field,
// sorted ascending, for filter dropdowns.
type FilterOptions struct {
	Source   []string `json:"source"`
	Industry []string `json:"industry"`
	State    []string `json:"state"`
	Country  []string `json:"country"`
}

type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int    `json:"count"`
}

// ListingStats are the all-time corpus counters, unlike the dashboard
// overview which is scoped to a lookback window.
type ListingStats struct {
	TotalListings      int             `json:"total_listings"`
	BySource           map[string]int  `json:"by_source"`
	NewThisWeek        int             `json:"new_this_week"`
	DistinctIndustries int             `json:"distinct_industries"`
	TopIndustries      []IndustryCount `json:"top_industries"`
}
