package rest

import (
	"net/url"
	"strings"

	pg "github.com/edgeflare/fluentrest/pkg/pgx"
)

// Query string parameters with a fixed meaning.
const (
	paramFields    = "fields"
	paramSort      = "sort"
	paramQuery     = "q"
	paramPage      = "page"
	paramPageCount = "page_count"
)

func defaultReserved() map[string]bool {
	return map[string]bool{
		paramFields:    true,
		paramSort:      true,
		paramQuery:     true,
		paramPage:      true,
		paramPageCount: true,
	}
}

// ParseFields splits a comma separated column list. An empty list selects
// all columns.
func ParseFields(fields string) []string {
	var cols []string
	for f := range strings.SplitSeq(fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			cols = append(cols, f)
		}
	}
	if len(cols) == 0 {
		return []string{pg.Wildcard}
	}
	return cols
}

// ParseSort parses a comma separated sort list. A leading "-" sorts the
// column in descending order.
//
//	ParseSort("-created_at,name") // created_at DESC, name ASC
func ParseSort(sort string) []pg.Order {
	var orders []pg.Order
	for term := range strings.SplitSeq(sort, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		o := pg.Order{Column: term, Direction: pg.Ascending}
		if col, ok := strings.CutPrefix(term, "-"); ok {
			o = pg.Order{Column: col, Direction: pg.Descending}
		}
		if o.Column != "" {
			orders = append(orders, o)
		}
	}
	return orders
}

// ParseFilters returns an equality filter for every query parameter that is
// not reserved. Repeated parameters use their first value.
func ParseFilters(query url.Values, reserved map[string]bool) map[string]any {
	filters := make(map[string]any, len(query))
	for key, values := range query {
		if reserved[key] || len(values) == 0 {
			continue
		}
		filters[key] = values[0]
	}
	return filters
}
