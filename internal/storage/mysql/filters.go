package mysql

import (
	"fmt"
	"strings"

	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
)

// sortColumns is the closed whitelist of ORDER BY targets. Anything not in
// this map (after legacy-alias rewriting) is rejected before it gets near
// the query text, so user input never reaches the SQL as a column name.
var sortColumns = map[string]string{
	"last_seen_date":    "last_seen_date",
	"first_seen_date":   "first_seen_date",
	"gross_revenue_num": "gross_revenue_num",
	"ebitda_num":        "ebitda_num",
	"cash_flow_num":     "cash_flow_num",
	"price_num":         "price_num",
}

// Older clients sort by the raw field names.
var legacySortAliases = map[string]string{
	"gross_revenue": "gross_revenue_num",
	"ebitda":        "ebitda_num",
	"cash_flow":     "cash_flow_num",
	"price":         "price_num",
}

// Numeric sort columns are nullable; date columns are not.
var nullableSortColumns = map[string]bool{
	"gross_revenue_num": true,
	"ebitda_num":        true,
	"cash_flow_num":     true,
	"price_num":         true,
}

// resolveSort maps (sort_by, sort_order) to a whitelisted column and
// direction. An unknown sort_by is an error; an unknown sort_order falls
// back to DESC.
func resolveSort(sortBy, sortOrder string) (column, direction string, err error) {
	name := sortBy
	if alias, ok := legacySortAliases[name]; ok {
		name = alias
	}
	column, ok := sortColumns[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidSort, sortBy)
	}

	switch strings.ToLower(sortOrder) {
	case "asc":
		direction = "ASC"
	default:
		direction = "DESC"
	}
	return column, direction, nil
}

// orderBySQL renders the ORDER BY clause for a resolved sort. Nullable
// columns sort nulls last regardless of direction (MySQL would otherwise
// put them first ascending); id ASC makes pagination deterministic.
func orderBySQL(column, direction string) string {
	if nullableSortColumns[column] {
		return fmt.Sprintf(" ORDER BY (%s IS NULL), %s %s, id ASC", column, column, direction)
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", column, direction)
}

// trimFilter treats blank filter values as omitted.
func trimFilter(p *string) *string {
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	if t == "" {
		return nil
	}
	return &t
}

// buildFilterConditions turns the validated filter set into WHERE
// fragments plus bind args, AND-combined by the caller. Every value is a
// `?` placeholder; range bounds compare against the derived numeric
// columns, so rows with a null derived value never match.
func buildFilterConditions(f domain.ListingFilters) (conds []string, args []any) {
	text := []struct {
		column string
		value  *string
	}{
		{"source", f.Source},
		{"industry", f.Industry},
		{"state", f.State},
		{"country", f.Country},
		{"city", f.City},
	}
	for _, t := range text {
		if v := trimFilter(t.value); v != nil {
			conds = append(conds, t.column+" = ?")
			args = append(args, *v)
		}
	}

	ranges := []struct {
		column   string
		min, max *float64
	}{
		{"cash_flow_num", f.MinCashFlow, f.MaxCashFlow},
		{"ebitda_num", f.MinEBITDA, f.MaxEBITDA},
		{"gross_revenue_num", f.MinRevenue, f.MaxRevenue},
		{"price_num", f.MinPrice, f.MaxPrice},
	}
	for _, r := range ranges {
		if r.min != nil {
			conds = append(conds, r.column+" >= ?")
			args = append(args, *r.min)
		}
		if r.max != nil {
			conds = append(conds, r.column+" <= ?")
			args = append(args, *r.max)
		}
	}
	return conds, args
}

func whereSQL(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// likeEscaper neutralizes LIKE metacharacters in user text so a search
// for "%" matches literal percent signs, not every row.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
