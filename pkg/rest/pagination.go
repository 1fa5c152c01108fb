package rest

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	DefaultPageSize = 100
	// MaxPageSize caps page_count.
	MaxPageSize = 1000
	// MaxPageLinks caps the pages links of one response. Larger collections
	// get a window of pages around the current one.
	MaxPageLinks = 100

	HeaderTotalCount = "X-Total-Count"

	relNext  = "next"
	relPrev  = "prev"
	relPages = "pages"
)

// Pagination describes the page of a collection returned by a request.
type Pagination struct {
	TotalCount    int64 `json:"total_count"`
	NumberOfPages int   `json:"number_of_pages"`
	Page          int   `json:"page"`
	PageCount     int   `json:"page_count"`
}

// Paginate computes the pagination descriptor and navigation links for page
// (zero-based) of a collection of total rows split into pages of pageSize.
// Links are ordered next, prev, then one pages link per page, at most
// MaxPageLinks of them.
func Paginate(uri string, total int64, page, pageSize int) (Pagination, []Link) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))

	p := Pagination{
		TotalCount:    total,
		NumberOfPages: pages,
		Page:          page,
		PageCount:     pageSize,
	}

	first, last := pageWindow(page, pages)
	links := make([]Link, 0, last-first+2)
	if page < pages-1 {
		links = append(links, Link{Name: relNext, Href: pageHref(uri, page+1, pageSize)})
	}
	if page > 0 {
		links = append(links, Link{Name: relPrev, Href: pageHref(uri, page-1, pageSize)})
	}
	for i := first; i < last; i++ {
		links = append(links, Link{Name: relPages, Href: pageHref(uri, i, pageSize)})
	}
	return p, links
}

// pageWindow returns the range [first, last) of page indexes to link.
func pageWindow(page, pages int) (first, last int) {
	if pages <= MaxPageLinks {
		return 0, pages
	}
	first = min(max(page-MaxPageLinks/2, 0), pages-MaxPageLinks)
	return first, first + MaxPageLinks
}

func pageHref(uri string, page, pageSize int) string {
	return fmt.Sprintf("%s?page=%d&page_count=%d", uri, page, pageSize)
}

// pageParams reads page and page_count from the query string. Missing or
// invalid values fall back to page 0 and the configured page size. Sizes
// above MaxPageSize are clamped.
func pageParams(r *http.Request, defaultSize int) (page, size int) {
	q := r.URL.Query()
	size = defaultSize
	if v, err := strconv.Atoi(q.Get(paramPageCount)); err == nil && v > 0 {
		size = v
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)
	if v, err := strconv.Atoi(q.Get(paramPage)); err == nil && v > 0 {
		page = v
	}
	return page, size
}
