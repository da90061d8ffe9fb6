package catalog

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
)

const (
	DefaultOrderBy = "date"
	DefaultOrder   = "desc"

	isoLayout = "2006-01-02T15:04:05"

	// MaxSearchRequests caps the name x identifier combinations one search
	// may expand into.
	MaxSearchRequests = 20
)

var errUnrecognisedDate = errors.New("unrecognised date")

// StockRange bounds stock_quantity. WooCommerce cannot filter on stock, so
// the range is applied to the results after the call.
type StockRange struct {
	Min *int
	Max *int
}

func (r StockRange) IsZero() bool { return r.Min == nil && r.Max == nil }

// Matches reports whether p falls inside the range. Products that do not
// track stock never match a non-empty range.
func (r StockRange) Matches(p models.Product) bool {
	if r.IsZero() {
		return true
	}
	if p.StockQuantity == nil {
		return false
	}
	q := *p.StockQuantity
	if r.Min != nil && q < *r.Min {
		return false
	}
	if r.Max != nil && q > *r.Max {
		return false
	}
	return true
}

// QueryToAPIParams maps a search form onto WooCommerce list-products query
// parameters. It performs no I/O.
func QueryToAPIParams(q models.SearchQuery) (url.Values, error) {
	params, _, err := parseQuery(q)
	return params, err
}

// searchRequests expands params into one parameter set per product name and
// GTIN pair. WooCommerce treats search and global_unique_id as a single
// value, so a comma-joined list would match nothing. SKUs stay joined since
// the sku filter accepts a list.
func searchRequests(q models.SearchQuery, params url.Values) ([]url.Values, error) {
	names := splitLines(q.ProductNames)
	ids := append(splitLines(q.UPCs), splitLines(q.Barcodes)...)
	if len(names) <= 1 && len(ids) <= 1 {
		return []url.Values{params}, nil
	}
	if max(len(names), 1)*max(len(ids), 1) > MaxSearchRequests {
		return nil, &ValidationError{
			Field:   "productNames",
			Message: "too many names and barcodes combined, search for fewer at a time",
		}
	}

	if len(names) == 0 {
		names = []string{""}
	}
	if len(ids) == 0 {
		ids = []string{""}
	}
	out := make([]url.Values, 0, len(names)*len(ids))
	for _, name := range names {
		for _, id := range ids {
			req := url.Values{}
			for k, vs := range params {
				req[k] = vs
			}
			if name != "" {
				req.Set("search", name)
			}
			if id != "" {
				req.Set("global_unique_id", id)
			}
			out = append(out, req)
		}
	}
	return out, nil
}

func parseQuery(q models.SearchQuery) (url.Values, StockRange, error) {
	params := url.Values{}
	var stock StockRange

	if v := strings.TrimSpace(q.Category); v != "" {
		params.Set("category", v)
	}
	if names := splitLines(q.ProductNames); len(names) > 0 {
		params.Set("search", strings.Join(names, ","))
	}
	if skus := splitLines(q.SKUs); len(skus) > 0 {
		params.Set("sku", strings.Join(skus, ","))
	}
	ids := append(splitLines(q.UPCs), splitLines(q.Barcodes)...)
	if len(ids) > 0 {
		params.Set("global_unique_id", strings.Join(ids, ","))
	}

	prices := []struct{ field, value, param string }{
		{"minPrice", q.MinPrice, "min_price"},
		{"maxPrice", q.MaxPrice, "max_price"},
	}
	for _, p := range prices {
		v := strings.TrimSpace(p.value)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, stock, &ValidationError{Field: p.field, Message: "must be a number"}
		}
		params.Set(p.param, strconv.FormatFloat(f, 'f', -1, 64))
	}

	var err error
	if stock.Min, err = parseStock("minStock", q.MinStock); err != nil {
		return nil, stock, err
	}
	if stock.Max, err = parseStock("maxStock", q.MaxStock); err != nil {
		return nil, stock, err
	}

	dates := []struct {
		field, value, param string
		endOfDay            bool
	}{
		{"createdFrom", q.CreatedFrom, "after", false},
		{"createdTo", q.CreatedTo, "before", true},
		{"modifiedFrom", q.ModifiedFrom, "modified_after", false},
		{"modifiedTo", q.ModifiedTo, "modified_before", true},
	}
	for _, d := range dates {
		v := strings.TrimSpace(d.value)
		if v == "" {
			continue
		}
		iso, err := toISO8601(v, d.endOfDay)
		if err != nil {
			return nil, stock, &ValidationError{Field: d.field, Message: "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp"}
		}
		params.Set(d.param, iso)
	}

	if v := strings.TrimSpace(q.Status); v != "" {
		if v == "published" {
			v = "publish"
		}
		params.Set("status", v)
	}

	orderBy := strings.TrimSpace(q.SortBy)
	if orderBy == "" {
		orderBy = DefaultOrderBy
	}
	params.Set("orderby", orderBy)

	order := strings.TrimSpace(q.SortOrder)
	if order == "" {
		order = DefaultOrder
	}
	params.Set("order", order)

	return params, stock, nil
}

// splitLines returns the non-blank trimmed lines of s in input order.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func parseStock(field, value string) (*int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: "must be a whole number"}
	}
	return &n, nil
}

// toISO8601 accepts the formats HTML date and datetime-local inputs produce
// plus RFC 3339. Bare dates expand to the start or end of that day.
func toISO8601(v string, endOfDay bool) (string, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.Format(isoLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.Format(time.RFC3339), nil
	}
	for _, layout := range []string{isoLayout, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(isoLayout), nil
		}
	}
	return "", errUnrecognisedDate
}
