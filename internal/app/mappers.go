package app

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
)

/********** alias registry (single source of truth) **********/

// Scraper feeds emit either the spreadsheet-style headers the original
// pipelines used ("Listed By (Firm)") or snake_case keys. First non-empty
// alias wins.
var listingAliases = map[string][]string{
	"url":               {"URL", "url", "listing_url"},
	"source":            {"Source", "source", "site"},
	"title":             {"Title", "title", "name"},
	"city":              {"City", "city"},
	"state":             {"State", "state", "region"},
	"country":           {"Country", "country"},
	"industry":          {"Industry", "industry", "category"},
	"description":       {"Description", "description"},
	"listed_by_firm":    {"Listed By (Firm)", "listed_by_firm", "broker_firm", "firm"},
	"listed_by_name":    {"Listed By (Name)", "listed_by_name", "broker_name", "agent"},
	"phone":             {"Phone", "phone"},
	"email":             {"Email", "email"},
	"price":             {"Price", "price", "asking_price"},
	"gross_revenue":     {"Gross Revenue", "gross_revenue", "revenue"},
	"cash_flow":         {"Cash Flow", "cash_flow", "sde"},
	"inventory":         {"Inventory", "inventory"},
	"ebitda":            {"EBITDA", "ebitda"},
	"financial_data":    {"Financial Data", "financial_data"},
	"source_link":       {"source Link", "source_link"},
	"extra_information": {"Extra Information", "extra_information", "extras"},
	"deal_date":         {"Deal Date", "deal_date"},
	"scraping_date":     {"Scraping Date", "scraping_date", "scraped_at"},
}

// Values the scrapers emit for "nothing there". Zero prices are noise from
// placeholder listings, not real asks.
var falsyValues = map[string]struct{}{
	"":      {},
	"0":     {},
	"$0":    {},
	"0.0":   {},
	"0.00":  {},
	"$0.00": {},
	"none":  {},
	"n/a":   {},
	"null":  {},
}

/********** helpers **********/

func lookupString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		// JSON numbers arrive as float64; keep raw-text semantics.
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func firstAlias(m map[string]any, key string) string {
	for _, alias := range listingAliases[key] {
		if s := strings.TrimSpace(lookupString(m, alias)); s != "" {
			return s
		}
	}
	return ""
}

// normalise maps blank / zero / none-ish values to the "N/A" sentinel so
// every descriptive column carries a value.
func normalise(s string) string {
	t := strings.TrimSpace(s)
	if _, falsy := falsyValues[strings.ToLower(t)]; falsy {
		return domain.Unknown
	}
	return t
}

// hashURL is the listing's content-addressed identity: same URL, same row.
func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

/********** listing mapper **********/

// mapListing converts one scraped payload into a Listing. Returns false
// when the payload has no URL; such rows have no identity and are dropped.
func mapListing(source string, payload map[string]any) (domain.Listing, bool) {
	url := strings.TrimSpace(firstAlias(payload, "url"))
	if url == "" {
		return domain.Listing{}, false
	}

	l := domain.Listing{
		URL:         url,
		ListingHash: hashURL(url),
		Source:      normalise(firstAlias(payload, "source")),

		Title:        normalise(firstAlias(payload, "title")),
		City:         normalise(firstAlias(payload, "city")),
		State:        normalise(firstAlias(payload, "state")),
		Country:      normalise(firstAlias(payload, "country")),
		Industry:     normalise(firstAlias(payload, "industry")),
		Description:  normalise(firstAlias(payload, "description")),
		ListedByFirm: normalise(firstAlias(payload, "listed_by_firm")),
		ListedByName: normalise(firstAlias(payload, "listed_by_name")),
		Phone:        normalise(firstAlias(payload, "phone")),
		Email:        normalise(firstAlias(payload, "email")),

		Price:        normalise(firstAlias(payload, "price")),
		GrossRevenue: normalise(firstAlias(payload, "gross_revenue")),
		CashFlow:     normalise(firstAlias(payload, "cash_flow")),
		Inventory:    normalise(firstAlias(payload, "inventory")),
		EBITDA:       normalise(firstAlias(payload, "ebitda")),

		FinancialData:    normalise(firstAlias(payload, "financial_data")),
		SourceLink:       normalise(firstAlias(payload, "source_link")),
		ExtraInformation: normalise(firstAlias(payload, "extra_information")),
		DealDate:         normalise(firstAlias(payload, "deal_date")),
		ScrapingDate:     normalise(firstAlias(payload, "scraping_date")),
	}

	if l.Source == domain.Unknown && source != "" {
		l.Source = source
	}
	if l.SourceLink == domain.Unknown {
		l.SourceLink = url
	}
	return l, true
}

// mapListings maps a batch, dropping URL-less rows and de-duplicating
// repeated URLs within the batch (last one wins, matching upsert order).
func mapListings(source string, payloads []map[string]any) []domain.Listing {
	byURL := make(map[string]int, len(payloads))
	out := make([]domain.Listing, 0, len(payloads))
	for _, p := range payloads {
		l, ok := mapListing(source, p)
		if !ok {
			continue
		}
		if i, dup := byURL[l.URL]; dup {
			out[i] = l
			continue
		}
		byURL[l.URL] = len(out)
		out = append(out, l)
	}
	return out
}
