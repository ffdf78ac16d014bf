package domain

import "strings"

const (
	DefaultLookbackDays  = 90
	DefaultPriorityLimit = 12
	MaxPriorityLimit     = 50
)

// DefaultCountryScope is the buyer's home market.
var DefaultCountryScope = []string{"US", "CA"}

type DashboardQuery struct {
	LookbackDays  int
	PriorityLimit int
	CountryScope  []string
}

// Clamp applies defaults and bounds in place.
func (q *DashboardQuery) Clamp() {
	if q.LookbackDays < 1 {
		q.LookbackDays = DefaultLookbackDays
	}
	if q.PriorityLimit < 1 {
		q.PriorityLimit = DefaultPriorityLimit
	}
	if q.PriorityLimit > MaxPriorityLimit {
		q.PriorityLimit = MaxPriorityLimit
	}
	if len(q.CountryScope) == 0 {
		q.CountryScope = append([]string(nil), DefaultCountryScope...)
	}
}

// ParseCountryScope splits a comma-separated scope ("us, ca") into
// upper-cased, de-duplicated codes. An empty result falls back to the
// default scope.
func ParseCountryScope(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, chunk := range strings.Split(raw, ",") {
		code := strings.ToUpper(strings.TrimSpace(chunk))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultCountryScope...)
	}
	return out
}

type Snapshot struct {
	TotalListings      int     `json:"total_listings"`
	NewThisWeek        int     `json:"new_this_week"`
	QualifiedCount     int     `json:"qualified_count"`
	PassRate           float64 `json:"pass_rate"`
	ActiveSources      int     `json:"active_sources"`
	DistinctIndustries int     `json:"distinct_industries"`
}

type FunnelStage struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

type SourceYield struct {
	Source        string  `json:"source"`
	Total         int     `json:"total"`
	Qualified     int     `json:"qualified"`
	QualifiedRate float64 `json:"qualified_rate"`
}

type PriorityItem struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Source        string   `json:"source"`
	State         string   `json:"state"`
	Country       string   `json:"country"`
	GrossRevenue  string   `json:"gross_revenue"`
	EBITDA        string   `json:"ebitda"`
	CashFlow      string   `json:"cash_flow"`
	FirstSeenDate string   `json:"first_seen_date"`
	FitScore      int      `json:"fit_score"`
	Reasons       []string `json:"reasons"`
}

// SLAReport distinguishes "no pipeline data source" (Available=false,
// all rates null) from "pipeline exists with zero breaches".
type SLAReport struct {
	Available       bool     `json:"available"`
	Response48hRate *float64 `json:"response_48h_rate"`
	Offer5dRate     *float64 `json:"offer_5d_rate"`
	Close60dRate    *float64 `json:"close_60d_rate"`
	InPipeline      *int     `json:"in_pipeline"`
}

type DataQuality struct {
	ParseableRevenuePct  float64 `json:"parseable_revenue_pct"`
	ParseableEBITDAPct   float64 `json:"parseable_ebitda_pct"`
	ParseableCashFlowPct float64 `json:"parseable_cash_flow_pct"`
	ParseableLocationPct float64 `json:"parseable_location_pct"`
}

type DashboardOverview struct {
	GeneratedAt    string         `json:"generated_at"`
	Snapshot       Snapshot       `json:"snapshot"`
	CriteriaFunnel []FunnelStage  `json:"criteria_funnel"`
	SourceYield    []SourceYield  `json:"source_yield"`
	PriorityQueue  []PriorityItem `json:"priority_queue"`
	SLA            SLAReport      `json:"sla"`
	DataQuality    DataQuality    `json:"data_quality"`
}
