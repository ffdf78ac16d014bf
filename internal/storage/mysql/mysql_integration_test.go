//go:build integration || !unit

package mysql_test

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
	mysqlrepo "github.com/Kevaljjjb/Consensus-backend/internal/storage/mysql"
)

// ---------- small helpers ----------
func pfloat(f float64) *float64 { return &f }

func hashOf(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])
}

func seedListing(url, source, country, cashFlow, revenue string) domain.Listing {
	return domain.Listing{
		URL:          url,
		ListingHash:  hashOf(url),
		Source:       source,
		Title:        "HVAC Services Co",
		City:         "Austin",
		State:        "TX",
		Country:      country,
		Industry:     "Services",
		Description:  "Established route business",
		Price:        "$2,500,000",
		GrossRevenue: revenue,
		CashFlow:     cashFlow,
		Inventory:    "N/A",
		EBITDA:       "N/A",
		SourceLink:   url,
		ScrapingDate: "2026-08-01",
	}
}

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=consensus",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "consensus")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the tests ----------
func TestRepo_MySQL_UpsertAndQuery(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	seed := []domain.Listing{
		seedListing("https://bizbuysell.com/1", "BizBuySell", "US", "$2,400,000", "$8,000,000"),
		seedListing("https://bizben.com/2", "BizBen", "US", "(150,000)", "N/A"),
		seedListing("https://bfs.co.uk/3", "BusinessesForSale", "UK", "unknown", "$500,000"),
	}
	n, err := repo.UpsertListings(ctx, seed)
	if err != nil {
		t.Fatalf("UpsertListings: %v", err)
	}
	if n != 3 {
		t.Fatalf("upserted %d, want 3", n)
	}

	// derive-on-write: the numeric columns come out of the raw text
	page, err := repo.ListListings(ctx, domain.ListingsQuery{SortBy: "cash_flow_num", SortOrder: "desc"})
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("total %d, want 3", page.Total)
	}
	first := page.Items[0]
	if first.CashFlowNum == nil || *first.CashFlowNum != 2400000 {
		t.Fatalf("top cash flow = %v, want 2400000", first.CashFlowNum)
	}
	// parenthesized raws derive negative, non-numeric raws derive NULL;
	// NULL sorts after every real value in both directions
	last := page.Items[len(page.Items)-1]
	if last.CashFlowNum != nil {
		t.Fatalf("expected null cash flow last, got %v", *last.CashFlowNum)
	}

	// re-scrape: same URL updates in place, first_seen survives
	before, err := repo.GetListing(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	updated := seed[0]
	updated.CashFlow = "$2,600,000"
	if _, err := repo.UpsertListings(ctx, []domain.Listing{updated}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	after, err := repo.GetListing(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetListing after re-scrape: %v", err)
	}
	if after.CashFlowNum == nil || *after.CashFlowNum != 2600000 {
		t.Fatalf("re-derived cash flow = %v, want 2600000", after.CashFlowNum)
	}
	if !after.FirstSeenDate.Equal(before.FirstSeenDate) {
		t.Fatalf("first_seen_date changed on re-scrape: %v -> %v", before.FirstSeenDate, after.FirstSeenDate)
	}

	// range filter on derived column; null derived values never match
	got, err := repo.ListListings(ctx, domain.ListingsQuery{
		ListingFilters: domain.ListingFilters{MinCashFlow: pfloat(0)},
	})
	if err != nil {
		t.Fatalf("range filter: %v", err)
	}
	if got.Total != 1 {
		t.Fatalf("min_cash_flow=0 matched %d rows, want 1", got.Total)
	}

	// inverted range means empty set, not an error
	inv, err := repo.ListListings(ctx, domain.ListingsQuery{
		ListingFilters: domain.ListingFilters{MinCashFlow: pfloat(5e6), MaxCashFlow: pfloat(1e6)},
	})
	if err != nil {
		t.Fatalf("inverted range: %v", err)
	}
	if inv.Total != 0 {
		t.Fatalf("inverted range matched %d rows, want 0", inv.Total)
	}

	// distinct dropdown values exclude the sentinel
	opts, err := repo.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("FilterOptions: %v", err)
	}
	if len(opts.Source) != 3 {
		t.Fatalf("sources %v, want 3 entries", opts.Source)
	}
	for _, c := range opts.Country {
		if c == domain.Unknown {
			t.Fatalf("sentinel leaked into countries: %v", opts.Country)
		}
	}

	// all-time stats: one row per source, everything new this week
	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalListings != 3 || stats.NewThisWeek != 3 {
		t.Fatalf("stats totals %+v, want 3/3", stats)
	}
	if stats.BySource["BizBuySell"] != 1 || len(stats.BySource) != 3 {
		t.Fatalf("by_source %+v", stats.BySource)
	}
	if stats.DistinctIndustries != 1 || len(stats.TopIndustries) != 1 {
		t.Fatalf("industries %+v / %+v", stats.DistinctIndustries, stats.TopIndustries)
	}
	if stats.TopIndustries[0].Industry != "Services" || stats.TopIndustries[0].Count != 3 {
		t.Fatalf("top industries %+v", stats.TopIndustries)
	}
}

func TestRepo_MySQL_BackfillAndSLA(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	if _, err := repo.UpsertListings(ctx, []domain.Listing{
		seedListing("https://bizbuysell.com/9", "BizBuySell", "US", "$1,000,000", "$4,000,000"),
		seedListing("https://bizben.com/10", "BizBen", "US", "(123.4567)", "N/A"),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// the column stores the normalizer's value without extra rounding
	var frac sql.NullFloat64
	if err := db.QueryRow(`SELECT cash_flow_num FROM raw_listings WHERE url = ?`, "https://bizben.com/10").Scan(&frac); err != nil {
		t.Fatalf("scan fractional: %v", err)
	}
	if !frac.Valid || frac.Float64 != -123.4567 {
		t.Fatalf("derived cash_flow_num = %+v, want -123.4567", frac)
	}

	// wipe a derived column behind the repo's back, then re-derive
	if _, err := db.Exec(`UPDATE raw_listings SET cash_flow_num = NULL`); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if _, err := repo.BackfillNumerics(ctx); err != nil {
		t.Fatalf("BackfillNumerics: %v", err)
	}
	var cf sql.NullFloat64
	if err := db.QueryRow(`SELECT cash_flow_num FROM raw_listings WHERE url = ?`, "https://bizbuysell.com/9").Scan(&cf); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !cf.Valid || cf.Float64 != 1000000 {
		t.Fatalf("backfilled cash_flow_num = %+v, want 1000000", cf)
	}
	if err := db.QueryRow(`SELECT cash_flow_num FROM raw_listings WHERE url = ?`, "https://bizben.com/10").Scan(&frac); err != nil {
		t.Fatalf("scan fractional after backfill: %v", err)
	}
	if !frac.Valid || frac.Float64 != -123.4567 {
		t.Fatalf("backfilled fractional cash_flow_num = %+v, want -123.4567", frac)
	}

	// the migrations create the pipeline table, so stats resolve
	stats, err := repo.PipelineStats(ctx, 90)
	if err != nil {
		t.Fatalf("PipelineStats: %v", err)
	}
	if stats.InPipeline == nil {
		t.Fatalf("expected non-nil in_pipeline count")
	}

	// dropping the table makes the SLA explicitly unavailable
	if _, err := db.Exec(`DROP TABLE pipeline`); err != nil {
		t.Fatalf("drop pipeline: %v", err)
	}
	if _, err := repo.PipelineStats(ctx, 90); !errors.Is(err, domain.ErrSLAUnavailable) {
		t.Fatalf("err = %v, want ErrSLAUnavailable", err)
	}
}
