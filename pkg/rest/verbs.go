package rest

import "net/http"

// VerbsBuilder configures a resource served by custom handlers. Handlers
// answer through Respond so that their results share the formatter chain.
type VerbsBuilder struct {
	resource *Resource
	handlers map[string]http.Handler
	links    []Link
}

func (b *VerbsBuilder) on(method string, h http.Handler) *VerbsBuilder {
	if b.handlers == nil {
		b.handlers = make(map[string]http.Handler)
	}
	b.handlers[method] = h
	return b
}

func (b *VerbsBuilder) OnGet(h http.Handler) *VerbsBuilder { return b.on(http.MethodGet, h) }
func (b *VerbsBuilder) OnPut(h http.Handler) *VerbsBuilder { return b.on(http.MethodPut, h) }
func (b *VerbsBuilder) OnPatch(h http.Handler) *VerbsBuilder { return b.on(http.MethodPatch, h) }
func (b *VerbsBuilder) OnPost(h http.Handler) *VerbsBuilder { return b.on(http.MethodPost, h) }
func (b *VerbsBuilder) OnDelete(h http.Handler) *VerbsBuilder { return b.on(http.MethodDelete, h) }

// Links adds links advertised by every response of the endpoint.
func (b *VerbsBuilder) Links(links ...Link) *VerbsBuilder {
	b.links = append(b.links, links...)
	return b
}

// Endpoint registers every verb on the collection and item routes. Methods
// without a handler answer 405.
func (b *VerbsBuilder) Endpoint() *Endpoint {
	mp := b.resource.mount
	ep := mp.newEndpoint(mp.IDName(), b.resource.description)
	for _, l := range b.links {
		ep.addLink(l)
	}

	methods := []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete}
	patterns := append(ep.collectionPatterns(), ep.itemPatterns()...)
	for _, p := range patterns {
		for _, m := range methods {
			ep.handle(m, p, b.dispatch(m))
		}
	}

	if mp.parent != nil {
		mp.parent.addLink(newLink(mp.resourceName, ep.itemTemplate(), b.resource.description))
	}
	return ep
}

func (b *VerbsBuilder) dispatch(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := b.handlers[method]; ok {
			h.ServeHTTP(w, r)
			return
		}
		Respond(w, r, &Result{Err: verbNotSupported(r.Method)})
	}
}
