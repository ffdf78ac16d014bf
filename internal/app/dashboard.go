package app

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
)

// Buy-box thresholds behind the funnel, qualification, and fit scoring.
const (
	cashFlowFitMin  = 2_000_000
	cashFlowNearMin = 1_000_000
	marginFitMin    = 0.10
	revenueScoreMin = 10_000_000
	newWithinDays   = 7
)

// Fit-score weights; the total is capped at 100.
const (
	scoreLocal        = 20
	scoreCashFlowFit  = 35
	scoreCashFlowNear = 20
	scoreMarginFit    = 25
	scoreRevenue      = 10
	scoreFreshness    = 10
)

type rowFlags struct {
	local       bool
	cashFit     bool
	cashNear    bool
	marginFit   bool
	newThisWeek bool
}

func (f rowFlags) qualified() bool { return f.local && f.cashFit && f.marginFit }

func flagRow(r domain.DashboardRow, scope map[string]struct{}, now time.Time) rowFlags {
	var f rowFlags
	_, f.local = scope[strings.ToUpper(strings.TrimSpace(r.Country))]
	if r.CashFlowNum != nil {
		f.cashFit = *r.CashFlowNum >= cashFlowFitMin
		f.cashNear = !f.cashFit && *r.CashFlowNum >= cashFlowNearMin
	}
	if r.GrossRevenueNum != nil && r.EBITDANum != nil && *r.GrossRevenueNum > 0 {
		f.marginFit = *r.EBITDANum / *r.GrossRevenueNum >= marginFitMin
	}
	f.newThisWeek = r.FirstSeenDate.After(now.AddDate(0, 0, -newWithinDays))
	return f
}

func known(s string) bool {
	t := strings.TrimSpace(s)
	return t != "" && !strings.EqualFold(t, domain.Unknown)
}

func displaySource(s string) string {
	if !known(s) {
		return "Unknown"
	}
	return s
}

func round4(f float64) float64 { return math.Round(f*10000) / 10000 }

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round4(float64(part) / float64(whole))
}

// buildOverview assembles the full dashboard payload from the
// window-scoped rows. The country scope drives the "local" flag rather
// than filtering the row set, so the funnel's Local stage stays
// meaningful. A nil pipeline means the SLA source is unavailable and the
// block is reported as explicitly absent, not zero.
func buildOverview(rows []domain.DashboardRow, pipeline *domain.PipelineStats, q domain.DashboardQuery, now time.Time) domain.DashboardOverview {
	scope := make(map[string]struct{}, len(q.CountryScope))
	for _, c := range q.CountryScope {
		scope[c] = struct{}{}
	}

	var (
		newWeek, qualified             int
		localN, cashFitN, marginFitN   int
		revOK, ebitdaOK, cashOK, locOK int
	)
	sources := make(map[string]struct{})
	industries := make(map[string]struct{})
	yields := make(map[string]*domain.SourceYield)
	queue := make([]scoredItem, 0, len(rows))

	for _, r := range rows {
		f := flagRow(r, scope, now)

		if f.newThisWeek {
			newWeek++
		}
		if f.local {
			localN++
		}
		if f.cashFit {
			cashFitN++
		}
		if f.marginFit {
			marginFitN++
		}
		if f.qualified() {
			qualified++
		}
		if known(r.Source) {
			sources[r.Source] = struct{}{}
		}
		if known(r.Industry) {
			industries[r.Industry] = struct{}{}
		}

		if r.GrossRevenueNum != nil {
			revOK++
		}
		if r.EBITDANum != nil {
			ebitdaOK++
		}
		if r.CashFlowNum != nil {
			cashOK++
		}
		if known(r.State) && known(r.Country) {
			locOK++
		}

		src := displaySource(r.Source)
		y := yields[src]
		if y == nil {
			y = &domain.SourceYield{Source: src}
			yields[src] = y
		}
		y.Total++
		if f.qualified() {
			y.Qualified++
		}

		queue = append(queue, scoreRow(r, f))
	}

	total := len(rows)
	overview := domain.DashboardOverview{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Snapshot: domain.Snapshot{
			TotalListings:      total,
			NewThisWeek:        newWeek,
			QualifiedCount:     qualified,
			PassRate:           ratio(qualified, total),
			ActiveSources:      len(sources),
			DistinctIndustries: len(industries),
		},
		CriteriaFunnel: []domain.FunnelStage{
			{Stage: "All Listings", Count: total},
			{Stage: "Local (" + strings.Join(q.CountryScope, "/") + ")", Count: localN},
			{Stage: "Cash Flow Fit", Count: cashFitN},
			{Stage: "Margin Fit", Count: marginFitN},
			{Stage: "Shortlist", Count: qualified},
		},
		SourceYield:   rankYields(yields),
		PriorityQueue: rankQueue(queue, q.PriorityLimit),
		DataQuality: domain.DataQuality{
			ParseableRevenuePct:  ratio(revOK, total),
			ParseableEBITDAPct:   ratio(ebitdaOK, total),
			ParseableCashFlowPct: ratio(cashOK, total),
			ParseableLocationPct: ratio(locOK, total),
		},
	}

	if pipeline != nil {
		overview.SLA = domain.SLAReport{
			Available:       true,
			Response48hRate: pipeline.Response48hRate,
			Offer5dRate:     pipeline.Offer5dRate,
			Close60dRate:    pipeline.Close60dRate,
			InPipeline:      pipeline.InPipeline,
		}
	}
	return overview
}

type scoredItem struct {
	item     domain.PriorityItem
	lastSeen time.Time
}

func scoreRow(r domain.DashboardRow, f rowFlags) scoredItem {
	score := 0
	reasons := []string{}

	if f.local {
		score += scoreLocal
		reasons = append(reasons, "Local")
	}
	switch {
	case f.cashFit:
		score += scoreCashFlowFit
		reasons = append(reasons, "Cash Flow Fit")
	case f.cashNear:
		score += scoreCashFlowNear
		reasons = append(reasons, "Cash Flow Near Fit")
	}
	if f.marginFit {
		score += scoreMarginFit
		reasons = append(reasons, "Margin Fit")
	}
	if r.GrossRevenueNum != nil && *r.GrossRevenueNum >= revenueScoreMin {
		score += scoreRevenue
		reasons = append(reasons, "Revenue >= $10M")
	}
	if f.newThisWeek {
		score += scoreFreshness
		reasons = append(reasons, "New This Week")
	}
	if score > 100 {
		score = 100
	}

	return scoredItem{
		item: domain.PriorityItem{
			ID:            r.ID,
			Title:         r.Title,
			Source:        displaySource(r.Source),
			State:         r.State,
			Country:       r.Country,
			GrossRevenue:  r.GrossRevenue,
			EBITDA:        r.EBITDA,
			CashFlow:      r.CashFlow,
			FirstSeenDate: r.FirstSeenDate.UTC().Format(time.RFC3339),
			FitScore:      score,
			Reasons:       reasons,
		},
		lastSeen: r.LastSeenDate,
	}
}

func rankQueue(queue []scoredItem, limit int) []domain.PriorityItem {
	sort.Slice(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		if a.item.FitScore != b.item.FitScore {
			return a.item.FitScore > b.item.FitScore
		}
		if !a.lastSeen.Equal(b.lastSeen) {
			return a.lastSeen.After(b.lastSeen)
		}
		return a.item.ID > b.item.ID
	})
	if len(queue) > limit {
		queue = queue[:limit]
	}
	out := make([]domain.PriorityItem, len(queue))
	for i, s := range queue {
		out[i] = s.item
	}
	return out
}

func rankYields(yields map[string]*domain.SourceYield) []domain.SourceYield {
	out := make([]domain.SourceYield, 0, len(yields))
	for _, y := range yields {
		y.QualifiedRate = ratio(y.Qualified, y.Total)
		out = append(out, *y)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.QualifiedRate != b.QualifiedRate {
			return a.QualifiedRate > b.QualifiedRate
		}
		if a.Qualified != b.Qualified {
			return a.Qualified > b.Qualified
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Source < b.Source
	})
	return out
}
