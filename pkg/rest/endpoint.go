package rest

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/edgeflare/fluentrest/pkg/httputil"
)

// Link is an outbound hypermedia link of an endpoint. Href may contain
// {name} tokens that are expanded against the request parameters.
type Link struct {
	Name      string
	Href      string
	Templated bool
	Title     string
}

func newLink(name, href, title string) Link {
	return Link{Name: name, Href: href, Templated: strings.Contains(href, "{"), Title: title}
}

// MountPoint is a base URI on a router under which one resource is mounted.
type MountPoint struct {
	service      *Service
	router       *httputil.Router
	uri          string
	resourceName string
	parent       *Endpoint
}

// Resource names the resource mounted here and returns its builder.
func (m *MountPoint) Resource(name string) *Resource {
	m.resourceName = name
	return &Resource{
		mount:      m,
		pageSize:   DefaultPageSize,
		pagination: true,
	}
}

// Path joins the mount URI and the resource name.
func (m *MountPoint) Path() string {
	return JoinPath(m.uri, m.resourceName)
}

// Parent returns the endpoint this mount point is nested under, if any.
func (m *MountPoint) Parent() *Endpoint {
	return m.parent
}

func (m *MountPoint) SingularName() string {
	return m.service.pluralizer.Singular(m.resourceName)
}

var nonWord = regexp.MustCompile(`\W+`)

// IDName is the path parameter identifying one instance of the resource:
// the singular resource name followed by "_id".
func (m *MountPoint) IDName() string {
	return nonWord.ReplaceAllString(m.SingularName(), "_") + "_id"
}

// newEndpoint creates the endpoint produced by a builder. It is linked to its
// parent by pointer; the parent's link list is extended by the caller.
func (m *MountPoint) newEndpoint(idName, description string) *Endpoint {
	return &Endpoint{
		name:        m.resourceName,
		path:        m.Path(),
		idName:      idName,
		description: description,
		parent:      m.parent,
		router:      m.router,
		service:     m.service,
	}
}

// Endpoint is a mounted resource: its name, path, id parameter and the links
// it advertises. Endpoints are built at startup and read concurrently
// afterwards.
type Endpoint struct {
	name        string
	path        string
	idName      string
	description string
	links       []Link
	parent      *Endpoint
	router      *httputil.Router
	service     *Service
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Path() string { return e.path }
func (e *Endpoint) IDName() string { return e.idName }
func (e *Endpoint) Description() string { return e.description }
func (e *Endpoint) Parent() *Endpoint { return e.parent }

// Links returns the links added by child endpoints, in registration order.
func (e *Endpoint) Links() []Link {
	return e.links
}

// MountAt starts a child resource definition under uri, relative to an
// instance of this endpoint.
//
//	accounts.MountAt("/").Resource("addresses") // /api/accounts/{account_id}/addresses
func (e *Endpoint) MountAt(uri string) *MountPoint {
	if uri == "" {
		uri = "/"
	}
	return &MountPoint{service: e.service, router: e.router, uri: uri, parent: e}
}

func (e *Endpoint) addLink(l Link) {
	e.links = append(e.links, l)
}

// params collects the id path parameters of the endpoint and its ancestors.
func (e *Endpoint) params(r *http.Request) map[string]string {
	params := make(map[string]string)
	for ep := e; ep != nil; ep = ep.parent {
		if ep.idName == "" {
			continue
		}
		if v := r.PathValue(ep.idName); v != "" {
			params[ep.idName] = v
		}
	}
	return params
}

// parentID returns the id of the enclosing parent instance.
func (e *Endpoint) parentID(r *http.Request) string {
	if e.parent == nil || e.parent.idName == "" {
		return ""
	}
	return r.PathValue(e.parent.idName)
}

func (e *Endpoint) newResult(r *http.Request) *Result {
	return &Result{
		Name:    e.name,
		Params:  e.params(r),
		started: time.Now(),
	}
}

// handle registers h for method on pattern, a path relative to the root of
// the router's mux.
func (e *Endpoint) handle(method, pattern string, h http.HandlerFunc) {
	pattern = strings.TrimPrefix(pattern, e.router.Prefix())
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	if method != "" {
		pattern = method + " " + pattern
	}
	e.router.Handle(pattern, e.withEndpoint(h))
}

func (e *Endpoint) collectionPatterns() []string {
	uri := e.URI()
	if strings.HasSuffix(uri, "/") {
		return []string{uri + "{$}"}
	}
	return []string{uri, uri + "/{$}"}
}

func (e *Endpoint) itemPatterns() []string {
	item := JoinPath(e.URI(), placeholder(e.idName))
	return []string{item, item + "/{$}"}
}

type endpointCtxKey struct{}

func (e *Endpoint) withEndpoint(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), endpointCtxKey{}, e)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EndpointFrom returns the endpoint serving the request.
func EndpointFrom(ctx context.Context) (*Endpoint, bool) {
	ep, ok := ctx.Value(endpointCtxKey{}).(*Endpoint)
	return ep, ok
}

// Respond writes res through the formatter chain of the endpoint serving r.
// Name, Params and URI default to those of the endpoint and the endpoint's
// links are appended. It is meant for handlers registered with ForVerbs.
func Respond(w http.ResponseWriter, r *http.Request, res *Result) {
	ep, ok := EndpointFrom(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "no endpoint in request context")
		return
	}
	if res.started.IsZero() {
		res.started = time.Now()
	}
	if res.Name == "" {
		res.Name = ep.name
	}
	if res.Params == nil {
		res.Params = ep.params(r)
	}
	if res.URI == "" {
		res.URI = JoinPath(expandPath(ep.URI(), res.Params), "/")
	}
	res.Links = append(res.Links, ep.links...)
	ep.service.respond(w, r, res)
}
