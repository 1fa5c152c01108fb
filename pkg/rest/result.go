package rest

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/edgeflare/fluentrest/pkg/hal"
)

// Result is the outcome of one request, handed to the formatter chain.
type Result struct {
	Name       string
	URI        string
	Rows       []map[string]any
	Collection bool
	Links      []Link
	Pagination *Pagination
	StatusCode int
	Err        error

	// Params holds the id path parameters used to expand link hrefs.
	Params map[string]string

	// PrimaryKey and CollectionURI give embedded rows their self link.
	PrimaryKey    string
	CollectionURI string

	// Minimal results write status and headers only.
	Minimal bool

	started time.Time
}

// Status is the HTTP status of the result: the error status if Err is set,
// otherwise StatusCode, defaulting to 200.
func (res *Result) Status() int {
	if res.Err != nil {
		return StatusCode(res.Err)
	}
	if res.StatusCode != 0 {
		return res.StatusCode
	}
	return http.StatusOK
}

// HAL renders the result as a HAL resource with expanded link hrefs.
// Errors render as {message, status_code}; collections embed their rows
// under the resource name.
func (res *Result) HAL() *hal.Resource {
	var doc *hal.Resource

	switch {
	case res.Err != nil:
		doc = hal.NewResource(map[string]any{
			"message":     res.Err.Error(),
			"status_code": res.Status(),
		}, res.URI)

	case res.Collection:
		state := map[string]any{}
		if p := res.Pagination; p != nil {
			state["total_count"] = p.TotalCount
			state["number_of_pages"] = p.NumberOfPages
			state["page"] = p.Page
			state["page_count"] = p.PageCount
		}
		doc = hal.NewResource(state, res.URI)

		items := make([]*hal.Resource, len(res.Rows))
		for i, row := range res.Rows {
			items[i] = hal.NewResource(row, res.rowURI(row))
		}
		doc.Embed(res.Name, items...)

	default:
		var row map[string]any
		if len(res.Rows) > 0 {
			row = res.Rows[0]
		}
		doc = hal.NewResource(row, res.URI)
	}

	for _, l := range res.Links {
		href := expandPath(l.Href, res.Params)
		doc.AddLink(l.Name, newLink(l.Name, href, l.Title).hal())
	}
	return doc
}

func (res *Result) rowURI(row map[string]any) string {
	if res.PrimaryKey == "" || res.CollectionURI == "" {
		return ""
	}
	id, ok := row[res.PrimaryKey]
	if !ok || id == nil {
		return ""
	}
	return JoinPath(JoinPath(res.CollectionURI, url.PathEscape(fmt.Sprint(id))), "/")
}

func (l Link) hal() hal.Link {
	return hal.Link{Href: l.Href, Templated: l.Templated, Title: l.Title}
}
