package config

import (
	"cmp"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/edgeflare/fluentrest/pkg/httputil"
	"github.com/edgeflare/fluentrest/pkg/rest"
)

var verbs = map[string]func(*rest.Verbs){
	http.MethodGet:    func(v *rest.Verbs) { v.Get = false },
	http.MethodPut:    func(v *rest.Verbs) { v.Put = false },
	http.MethodPatch:  func(v *rest.Verbs) { v.Patch = false },
	http.MethodPost:   func(v *rest.Verbs) { v.Post = false },
	http.MethodDelete: func(v *rest.Verbs) { v.Delete = false },
}

// StoreFunc returns the store of the named pool. An empty name selects the
// default pool.
type StoreFunc func(pool string) (rest.Store, error)

// Mount registers resources under baseURI on router and an index at baseURI
// linking the top level resources. It returns the index endpoint, or nil when
// baseURI is the root.
func Mount(svc *rest.Service, router *httputil.Router, baseURI string, resources []ResourceConfig, stores StoreFunc) (*rest.Endpoint, error) {
	baseURI = path.Clean("/" + baseURI)

	endpoints := make([]*rest.Endpoint, 0, len(resources))
	for _, rc := range resources {
		ep, err := mountResource(svc.MountAt(router, baseURI), rc, stores)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}

	if baseURI == "/" {
		return nil, nil
	}
	index := svc.MountAt(router, path.Dir(baseURI)).
		Resource(path.Base(baseURI)).
		ForEndpoints(endpoints...).
		Endpoint()
	return index, nil
}

func mountResource(mp *rest.MountPoint, rc ResourceConfig, stores StoreFunc) (*rest.Endpoint, error) {
	store, err := stores(rc.Pool)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", rc.Name, err)
	}

	res := mp.Resource(rc.Name).
		Description(rc.Description).
		PageSize(rc.PageSize)
	if rc.Pagination != nil {
		res.SupportsPagination(*rc.Pagination)
	}
	for name, params := range rc.NamedQueries {
		res.NamedQuery(name, params)
	}

	v := rest.AllVerbs()
	for _, verb := range rc.Disable {
		disable, ok := verbs[strings.ToUpper(verb)]
		if !ok {
			return nil, fmt.Errorf("resource %q: unknown verb %q", rc.Name, verb)
		}
		disable(&v)
	}

	b := res.ForEntity(store, rest.Table(cmp.Or(rc.Table, rc.Name))).
		WithVerbs(v).
		PrimaryKey(rc.PrimaryKey).
		ForeignKey(rc.ForeignKey).
		Reserve(rc.Reserved...)
	for _, c := range rc.Constraints {
		b.OnConstraint(c.Name, c.Status, c.Message)
	}
	if rc.FullText != nil {
		b.UsesFullText(rc.FullText.Entity, rc.FullText.Field)
	}
	ep := b.Endpoint()

	for _, child := range rc.Children {
		if _, err := mountResource(ep.MountAt("/"), child, stores); err != nil {
			return nil, err
		}
	}
	return ep, nil
}
