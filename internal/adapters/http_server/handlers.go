package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Kevaljjjb/Consensus-backend/internal/app"
	"github.com/Kevaljjjb/Consensus-backend/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/api/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/api/listings", h.listListings)
	s.mux.Get("/api/listings/filter-options", h.filterOptions)
	s.mux.Get("/api/listings/{id}", h.getListing)
	s.mux.Get("/api/search", h.searchListings)
	s.mux.Get("/api/stats", h.stats)
	s.mux.Get("/api/dashboard/overview", h.dashboardOverview)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// strParam returns a pointer for the first non-empty name, so legacy
// aliases keep working next to the canonical parameter.
func strParam(q url.Values, names ...string) *string {
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return &v
		}
	}
	return nil
}

// floatParam parses the first present name; unparseable values are
// ignored rather than rejected.
func floatParam(q url.Values, names ...string) *float64 {
	for _, n := range names {
		v := q.Get(n)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func intParam(q url.Values, name string, def int) int {
	v := q.Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseFilters(q url.Values) domain.ListingFilters {
	return domain.ListingFilters{
		Source:   strParam(q, "source"),
		Industry: strParam(q, "industry"),
		State:    strParam(q, "state"),
		Country:  strParam(q, "country"),
		City:     strParam(q, "city"),

		MinCashFlow: floatParam(q, "min_cash_flow"),
		MaxCashFlow: floatParam(q, "max_cash_flow"),
		MinEBITDA:   floatParam(q, "min_ebitda", "ebitda_min"),
		MaxEBITDA:   floatParam(q, "max_ebitda", "ebitda_max"),
		MinRevenue:  floatParam(q, "min_revenue", "revenue_min"),
		MaxRevenue:  floatParam(q, "max_revenue", "revenue_max"),
		MinPrice:    floatParam(q, "min_price"),
		MaxPrice:    floatParam(q, "max_price"),
	}
}

func (h *Handlers) listListings(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	query := domain.ListingsQuery{
		ListingFilters: parseFilters(qv),
		Page:           intParam(qv, "page", 1),
		PerPage:        intParam(qv, "per_page", 0),
		SortBy:         qv.Get("sort_by"),
		SortOrder:      qv.Get("sort_order"),
	}

	out, err := h.Q.ListListings(r.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSort) {
			writeProblem(w, http.StatusBadRequest, "Invalid sort_by", err.Error())
			return
		}
		log.Error().Err(err).Msg("list listings failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) getListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}

	out, err := h.Q.GetListing(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "listing not found")
			return
		}
		log.Error().Err(err).Msg("get listing failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) searchListings(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	query := domain.SearchQuery{
		ListingFilters: parseFilters(qv),
		Q:              qv.Get("q"),
		Limit:          intParam(qv, "limit", 0),
	}

	out, err := h.Q.SearchListings(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Msg("search listings failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	writeJSON(w, r, map[string]any{"total": len(out), "data": out})
}

func (h *Handlers) filterOptions(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.FilterOptions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("filter options failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("listing stats failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) dashboardOverview(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	query := domain.DashboardQuery{
		LookbackDays:  intParam(qv, "lookback_days", 0),
		PriorityLimit: intParam(qv, "priority_limit", 0),
		CountryScope:  domain.ParseCountryScope(qv.Get("country_scope")),
	}

	out, err := h.Q.DashboardOverview(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Msg("dashboard overview failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	writeJSON(w, r, out)
}
