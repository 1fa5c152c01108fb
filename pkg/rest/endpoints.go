package rest

import "net/http"

// EndpointsBuilder configures an index resource listing other endpoints.
type EndpointsBuilder struct {
	resource  *Resource
	endpoints []*Endpoint
}

// Endpoint registers GET on the index routes. The response carries one
// templated link per listed endpoint followed by the links of endpoints
// mounted below the index. Other verbs get a 405 HAL error.
func (b *EndpointsBuilder) Endpoint() *Endpoint {
	mp := b.resource.mount
	ep := mp.newEndpoint("", b.resource.description)

	index := func(w http.ResponseWriter, r *http.Request) {
		res := ep.newResult(r)
		res.URI = JoinPath(expandPath(ep.URI(), res.Params), "/")
		for _, e := range b.endpoints {
			res.Links = append(res.Links, newLink(e.name, e.itemTemplate(), e.description))
		}
		Respond(w, r, res)
	}
	notSupported := func(w http.ResponseWriter, r *http.Request) {
		Respond(w, r, &Result{Err: verbNotSupported(r.Method)})
	}
	for _, p := range ep.collectionPatterns() {
		ep.handle(http.MethodGet, p, index)
		for _, m := range []string{http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete} {
			ep.handle(m, p, notSupported)
		}
	}

	if mp.parent != nil {
		mp.parent.addLink(newLink(mp.resourceName, JoinPath(ep.URI(), "/"), b.resource.description))
	}
	return ep
}
