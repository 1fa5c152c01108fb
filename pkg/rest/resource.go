package rest

import (
	"context"
	"maps"
	"net/http"

	pg "github.com/edgeflare/fluentrest/pkg/pgx"
)

// Store runs statements against the database. *pgx.DB implements it.
type Store interface {
	Rows(ctx context.Context, stmt pg.Statement) ([]map[string]any, error)
	Run(ctx context.Context, stmt pg.Statement) (int64, error)
}

// Operation identifies the handler resolving a TableRef.
type Operation string

const (
	OpGet    Operation = "get"
	OpGetID  Operation = "get-id"
	OpPut    Operation = "put"
	OpPatch  Operation = "patch"
	OpPost   Operation = "post"
	OpDelete Operation = "del"
)

// TableRef names the relation behind an entity: a fixed table, view or
// function call, or a resolver evaluated once per request.
type TableRef struct {
	name    string
	resolve func(op Operation, r *http.Request, id string) string
}

// Table refers to a fixed relation, eg "accounts", "app.accounts" or
// "recent_accounts(7)".
func Table(name string) TableRef {
	return TableRef{name: name}
}

// TableFunc resolves the relation per request. id is empty for collection
// operations.
func TableFunc(fn func(op Operation, r *http.Request, id string) string) TableRef {
	return TableRef{resolve: fn}
}

func (t TableRef) Resolve(op Operation, r *http.Request, id string) string {
	if t.resolve != nil {
		return t.resolve(op, r, id)
	}
	return t.name
}

// Verbs enables HTTP methods on an entity.
type Verbs struct {
	Get    bool
	Put    bool
	Patch  bool
	Post   bool
	Delete bool
}

// AllVerbs enables every method.
func AllVerbs() Verbs {
	return Verbs{Get: true, Put: true, Patch: true, Post: true, Delete: true}
}

// Allows reports whether method is enabled. HEAD follows GET.
func (v Verbs) Allows(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return v.Get
	case http.MethodPut:
		return v.Put
	case http.MethodPatch:
		return v.Patch
	case http.MethodPost:
		return v.Post
	case http.MethodDelete:
		return v.Delete
	}
	return false
}

// Resource configures a named resource before choosing what backs it.
type Resource struct {
	mount        *MountPoint
	pageSize     int
	pagination   bool
	description  string
	namedQueries map[string]map[string]any
}

// PageSize sets the default page_count. Defaults to 100.
func (r *Resource) PageSize(size int) *Resource {
	if size > 0 {
		r.pageSize = size
	}
	return r
}

// SupportsPagination toggles counting and page links for collections.
func (r *Resource) SupportsPagination(enabled bool) *Resource {
	r.pagination = enabled
	return r
}

// NamedQuery registers a canned filter set addressable in place of an id:
//
//	Resource("accounts").NamedQuery("closed", map[string]any{"status": "closed"})
//	// GET /api/accounts/closed/ == GET /api/accounts/?status=closed
func (r *Resource) NamedQuery(name string, params map[string]any) *Resource {
	if r.namedQueries == nil {
		r.namedQueries = make(map[string]map[string]any)
	}
	r.namedQueries[name] = maps.Clone(params)
	return r
}

func (r *Resource) Description(description string) *Resource {
	r.description = description
	return r
}

// ForEntity backs the resource by a table, view or function.
func (r *Resource) ForEntity(store Store, table TableRef) *EntityBuilder {
	return &EntityBuilder{
		resource:    r,
		store:       store,
		table:       table,
		verbs:       AllVerbs(),
		primaryKey:  "id",
		reserved:    defaultReserved(),
		constraints: make(map[string]constraint),
	}
}

// ForVerbs backs the resource by custom handlers.
func (r *Resource) ForVerbs() *VerbsBuilder {
	return &VerbsBuilder{resource: r}
}

// ForEndpoints makes the resource an index linking to endpoints.
func (r *Resource) ForEndpoints(endpoints ...*Endpoint) *EndpointsBuilder {
	r.pagination = false
	return &EndpointsBuilder{resource: r, endpoints: endpoints}
}

// ForRouter mounts handler under the resource path with the path prefix
// stripped.
func (r *Resource) ForRouter(handler http.Handler) *Endpoint {
	r.pagination = false
	mp := r.mount
	ep := mp.newEndpoint("", r.description)

	ep.handle("", JoinPath(ep.URI(), "/"), func(w http.ResponseWriter, req *http.Request) {
		prefix := Expand(ep.URI(), ep.params(req))
		http.StripPrefix(prefix, handler).ServeHTTP(w, req)
	})

	if mp.parent != nil {
		mp.parent.addLink(newLink(mp.resourceName, JoinPath(ep.URI(), "/"), r.description))
	}
	return ep
}
