package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
)

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullStr(ns sql.NullString) string {
	if !ns.Valid {
		return domain.Unknown
	}
	return ns.String
}

func nullF64(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertListings writes a batch of scraped rows. The derived numeric
// columns are recomputed here from the raw text on every write, so they
// can never go stale or be set independently of their source field.
func (r *Repo) UpsertListings(ctx context.Context, ls []domain.Listing) (int, error) {
	if len(ls) == 0 {
		return 0, nil
	}
	values := make([]string, 0, len(ls))
	args := make([]any, 0, len(ls)*27)
	for _, l := range ls {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,NOW(),NOW())")
		args = append(args,
			l.URL,
			l.ListingHash,
			l.Source,
			l.Title,
			l.City,
			l.State,
			l.Country,
			l.Industry,
			l.Description,
			l.ListedByFirm,
			l.ListedByName,
			l.Phone,
			l.Email,
			l.Price,
			l.GrossRevenue,
			l.CashFlow,
			l.Inventory,
			l.EBITDA,
			valF64(domain.ParseFinancial(l.Price)),
			valF64(domain.ParseFinancial(l.GrossRevenue)),
			valF64(domain.ParseFinancial(l.CashFlow)),
			valF64(domain.ParseFinancial(l.EBITDA)),
			l.FinancialData,
			l.SourceLink,
			l.ExtraInformation,
			l.DealDate,
			l.ScrapingDate,
		)
	}
	sqlStr := insertListingsPrefix + strings.Join(values, ",") + insertListingsOnDup
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return 0, err
	}
	return len(ls), nil
}

// BackfillNumerics re-derives the numeric columns for every stored row
// from its raw text. Used after normalizer changes; produces exactly the
// same values the ingest path would.
func (r *Repo) BackfillNumerics(ctx context.Context) (int64, error) {
	rows, err := r.db.QueryContext(ctx, backfillSelectSQL)
	if err != nil {
		return 0, err
	}

	type rederived struct {
		id                             int64
		price, revenue, cash, earnings *float64
	}
	var pending []rederived
	for rows.Next() {
		var (
			id                             int64
			price, revenue, cash, earnings sql.NullString
		)
		if err := rows.Scan(&id, &price, &revenue, &cash, &earnings); err != nil {
			rows.Close()
			return 0, err
		}
		pending = append(pending, rederived{
			id:       id,
			price:    domain.ParseFinancial(price.String),
			revenue:  domain.ParseFinancial(revenue.String),
			cash:     domain.ParseFinancial(cash.String),
			earnings: domain.ParseFinancial(earnings.String),
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	var updated int64
	for _, p := range pending {
		res, err := r.db.ExecContext(ctx, backfillUpdateSQL,
			valF64(p.price), valF64(p.revenue), valF64(p.cash), valF64(p.earnings), p.id)
		if err != nil {
			return updated, fmt.Errorf("backfill id %d: %w", p.id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += n
		}
	}
	return updated, nil
}

func scanListing(sc interface{ Scan(...any) error }) (domain.ListingView, error) {
	var (
		lv domain.ListingView

		source, title, city, state, country, industry, description sql.NullString
		firm, name, phone, email                                   sql.NullString
		price, revenue, cash, inventory, earnings                  sql.NullString
		priceNum, revenueNum, cashNum, earningsNum                 sql.NullFloat64
		financialData, sourceLink, extraInfo, dealDate, scrapeDate sql.NullString
		entityID                                                   sql.NullInt64
	)
	if err := sc.Scan(
		&lv.ID,
		&lv.URL,
		&source, &title, &city, &state, &country, &industry, &description,
		&firm, &name, &phone, &email,
		&price, &revenue, &cash, &inventory, &earnings,
		&priceNum, &revenueNum, &cashNum, &earningsNum,
		&financialData, &sourceLink, &extraInfo, &dealDate, &scrapeDate,
		&entityID,
		&lv.FirstSeenDate, &lv.LastSeenDate,
	); err != nil {
		return domain.ListingView{}, err
	}

	lv.Source = nullStr(source)
	lv.Title = nullStr(title)
	lv.City = nullStr(city)
	lv.State = nullStr(state)
	lv.Country = nullStr(country)
	lv.Industry = nullStr(industry)
	lv.Description = nullStr(description)
	lv.ListedByFirm = nullStr(firm)
	lv.ListedByName = nullStr(name)
	lv.Phone = nullStr(phone)
	lv.Email = nullStr(email)
	lv.Price = nullStr(price)
	lv.GrossRevenue = nullStr(revenue)
	lv.CashFlow = nullStr(cash)
	lv.Inventory = nullStr(inventory)
	lv.EBITDA = nullStr(earnings)
	lv.PriceNum = nullF64(priceNum)
	lv.GrossRevenueNum = nullF64(revenueNum)
	lv.CashFlowNum = nullF64(cashNum)
	lv.EBITDANum = nullF64(earningsNum)
	lv.FinancialData = nullStr(financialData)
	lv.SourceLink = nullStr(sourceLink)
	lv.ExtraInformation = nullStr(extraInfo)
	lv.DealDate = nullStr(dealDate)
	lv.ScrapingDate = nullStr(scrapeDate)
	if entityID.Valid {
		id := entityID.Int64
		lv.BusinessEntityID = &id
	}
	return lv, nil
}

func (r *Repo) GetListing(ctx context.Context, id int64) (domain.ListingView, error) {
	row := r.db.QueryRowContext(ctx, selectListingSQL+" WHERE id = ?", id)
	lv, err := scanListing(row)
	if err == sql.ErrNoRows {
		return domain.ListingView{}, domain.ErrNotFound
	}
	return lv, err
}

// ListListings runs the dynamic filter/sort/pagination query. All filter
// values are bound parameters; the sort column goes through the whitelist
// in resolveSort, never through user input.
func (r *Repo) ListListings(ctx context.Context, q domain.ListingsQuery) (domain.ListingsPage, error) {
	q.Clamp()
	column, direction, err := resolveSort(q.SortBy, q.SortOrder)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	conds, args := buildFilterConditions(q.ListingFilters)
	where := whereSQL(conds)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_listings"+where, args...).Scan(&total); err != nil {
		return domain.ListingsPage{}, err
	}

	offset := (q.Page - 1) * q.PerPage
	pageSQL := selectListingSQL + where + orderBySQL(column, direction) + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, pageSQL, append(args, q.PerPage, offset)...)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	defer rows.Close()

	var items []domain.ListingView
	for rows.Next() {
		lv, err := scanListing(rows)
		if err != nil {
			return domain.ListingsPage{}, err
		}
		items = append(items, lv)
	}
	if err := rows.Err(); err != nil {
		return domain.ListingsPage{}, err
	}

	return domain.ListingsPage{
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
		Items:      items,
	}, nil
}

// SearchListings is the text-match layer behind /api/search: the shared
// filter predicate plus a LIKE match across the descriptive columns.
func (r *Repo) SearchListings(ctx context.Context, q domain.SearchQuery) ([]domain.ListingView, error) {
	conds, args := buildFilterConditions(q.ListingFilters)
	pattern := "%" + escapeLike(q.Q) + "%"
	conds = append(conds, "(title LIKE ? OR description LIKE ? OR industry LIKE ? OR city LIKE ? OR state LIKE ?)")
	args = append(args, pattern, pattern, pattern, pattern, pattern)

	sqlStr := selectListingSQL + whereSQL(conds) + " ORDER BY last_seen_date DESC, id ASC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, sqlStr, append(args, q.Limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ListingView
	for rows.Next() {
		lv, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lv)
	}
	return out, rows.Err()
}

// Filterable categorical columns. Fixed list, never derived from input.
var filterOptionColumns = []string{"source", "industry", "state", "country"}

func (r *Repo) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	var opts domain.FilterOptions
	dst := map[string]*[]string{
		"source":   &opts.Source,
		"industry": &opts.Industry,
		"state":    &opts.State,
		"country":  &opts.Country,
	}
	for _, column := range filterOptionColumns {
		values, err := r.distinctValues(ctx, column)
		if err != nil {
			return domain.FilterOptions{}, fmt.Errorf("filter options for %s: %w", column, err)
		}
		*dst[column] = values
	}
	return opts, nil
}

func (r *Repo) distinctValues(ctx context.Context, column string) ([]string, error) {
	sqlStr := fmt.Sprintf(`
SELECT DISTINCT %[1]s
FROM raw_listings
WHERE %[1]s IS NOT NULL
  AND TRIM(%[1]s) <> ''
  AND UPPER(TRIM(%[1]s)) <> 'N/A'
ORDER BY %[1]s ASC`, column)

	rows, err := r.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Stats returns the all-time corpus counters. The dashboard overview is
// window-scoped; this is the unscoped view the admin UI polls.
func (r *Repo) Stats(ctx context.Context) (domain.ListingStats, error) {
	var (
		st          domain.ListingStats
		newThisWeek sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, statsTotalsSQL).
		Scan(&st.TotalListings, &newThisWeek, &st.DistinctIndustries); err != nil {
		return domain.ListingStats{}, err
	}
	if newThisWeek.Valid {
		st.NewThisWeek = int(newThisWeek.Int64)
	}

	rows, err := r.db.QueryContext(ctx, statsBySourceSQL)
	if err != nil {
		return domain.ListingStats{}, err
	}
	defer rows.Close()

	st.BySource = map[string]int{}
	for rows.Next() {
		var (
			source sql.NullString
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return domain.ListingStats{}, err
		}
		st.BySource[nullStr(source)] = n
	}
	if err := rows.Err(); err != nil {
		return domain.ListingStats{}, err
	}

	top, err := r.db.QueryContext(ctx, statsTopIndustriesSQL)
	if err != nil {
		return domain.ListingStats{}, err
	}
	defer top.Close()

	st.TopIndustries = []domain.IndustryCount{}
	for top.Next() {
		var ic domain.IndustryCount
		if err := top.Scan(&ic.Industry, &ic.Count); err != nil {
			return domain.ListingStats{}, err
		}
		st.TopIndustries = append(st.TopIndustries, ic)
	}
	return st, top.Err()
}

// DashboardRows returns the slim projection of every listing seen inside
// the lookback window.
func (r *Repo) DashboardRows(ctx context.Context, lookbackDays int) ([]domain.DashboardRow, error) {
	rows, err := r.db.QueryContext(ctx, dashboardRowsSQL, lookbackDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DashboardRow
	for rows.Next() {
		var (
			dr                                      domain.DashboardRow
			title, source, state, country, industry sql.NullString
			revenue, earnings, cash                 sql.NullString
			revenueNum, earningsNum, cashNum        sql.NullFloat64
		)
		if err := rows.Scan(
			&dr.ID, &title, &source, &state, &country, &industry,
			&revenue, &earnings, &cash,
			&revenueNum, &earningsNum, &cashNum,
			&dr.FirstSeenDate, &dr.LastSeenDate,
		); err != nil {
			return nil, err
		}
		dr.Title = nullStr(title)
		dr.Source = nullStr(source)
		dr.State = nullStr(state)
		dr.Country = nullStr(country)
		dr.Industry = nullStr(industry)
		dr.GrossRevenue = nullStr(revenue)
		dr.EBITDA = nullStr(earnings)
		dr.CashFlow = nullStr(cash)
		dr.GrossRevenueNum = nullF64(revenueNum)
		dr.EBITDANum = nullF64(earningsNum)
		dr.CashFlowNum = nullF64(cashNum)
		out = append(out, dr)
	}
	return out, rows.Err()
}

// PipelineStats computes the SLA rates from the optional pipeline table.
// A missing or incomplete table yields domain.ErrSLAUnavailable so the
// caller can report explicit absence instead of zeros.
func (r *Repo) PipelineStats(ctx context.Context, lookbackDays int) (domain.PipelineStats, error) {
	var tables int
	if err := r.db.QueryRowContext(ctx, pipelineProbeSQL).Scan(&tables); err != nil {
		return domain.PipelineStats{}, err
	}
	if tables == 0 {
		return domain.PipelineStats{}, domain.ErrSLAUnavailable
	}
	var columns int
	if err := r.db.QueryRowContext(ctx, pipelineColumnsSQL).Scan(&columns); err != nil {
		return domain.PipelineStats{}, err
	}
	if columns < 5 {
		return domain.PipelineStats{}, domain.ErrSLAUnavailable
	}

	var (
		resp, offer, closeRate sql.NullFloat64
		inPipeline             sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, pipelineStatsSQL, lookbackDays).
		Scan(&resp, &offer, &closeRate, &inPipeline); err != nil {
		return domain.PipelineStats{}, err
	}

	stats := domain.PipelineStats{
		Response48hRate: nullF64(resp),
		Offer5dRate:     nullF64(offer),
		Close60dRate:    nullF64(closeRate),
	}
	if inPipeline.Valid {
		n := int(inPipeline.Int64)
		stats.InPipeline = &n
	} else {
		zero := 0
		stats.InPipeline = &zero
	}
	return stats, nil
}
