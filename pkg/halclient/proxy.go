package halclient

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Proxy is a resource reached from the root of a Client, optionally
// identified by an id. Proxies are immutable.
type Proxy struct {
	client   *Client
	def      *ResourceBuilder
	parent   *Proxy
	id       string
	singular string
}

func (c *Client) newProxy(def *ResourceBuilder, parent *Proxy, id string) *Proxy {
	return &Proxy{
		client:   c,
		def:      def,
		parent:   parent,
		id:       id,
		singular: c.pluralizer.Singular(def.name),
	}
}

func (p *Proxy) Name() string { return p.def.name }
func (p *Proxy) SingularName() string { return p.singular }
func (p *Proxy) ID() string { return p.id }
func (p *Proxy) Parent() *Proxy { return p.parent }

// IDName is the template parameter carrying the id of this resource.
func (p *Proxy) IDName() string {
	return p.singular + "_id"
}

// Item returns the instance of this resource identified by id.
func (p *Proxy) Item(id string) (*Proxy, error) {
	if id == "" {
		return nil, fmt.Errorf("%s: %w", p.def.name, ErrIDRequired)
	}
	return p.client.newProxy(p.def, p.parent, id), nil
}

// Resource returns a proxy for a nested resource.
func (p *Proxy) Resource(name string) (*Proxy, error) {
	def, ok := p.def.child(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownResource, p.def.name, name)
	}
	return p.client.newProxy(def, p, ""), nil
}

// FollowNames returns the link names leading from the root to this
// resource.
func (p *Proxy) FollowNames() []string {
	var names []string
	for cur := p; cur != nil; cur = cur.parent {
		names = append(names, cur.def.name)
	}
	slices.Reverse(names)
	return names
}

// TemplateParams returns the {singular}_id parameter of every proxy on the
// path that carries an id.
func (p *Proxy) TemplateParams() map[string]string {
	params := make(map[string]string)
	for cur := p; cur != nil; cur = cur.parent {
		if cur.id != "" {
			params[cur.IDName()] = cur.id
		}
	}
	return params
}

func (p *Proxy) allowed(a Action) error {
	if !p.def.actions[a] {
		return fmt.Errorf("%w: %s on %s", ErrActionDisabled, a, p.def.name)
	}
	return nil
}

func (p *Proxy) request(ctx context.Context, method string, params map[string]string, query url.Values, payload any) (*Response, error) {
	u, err := p.client.follow(ctx, p.FollowNames(), params)
	if err != nil {
		return nil, err
	}
	return p.client.do(ctx, method, u, query, payload)
}

func (p *Proxy) withID(id string) map[string]string {
	params := p.TemplateParams()
	params[p.IDName()] = id
	return params
}

// Find lists the resource. Multi-valued parameters are sent as one comma
// separated value.
func (p *Proxy) Find(ctx context.Context, params url.Values) (*Response, error) {
	if err := p.allowed(ActionFind); err != nil {
		return nil, err
	}
	query := make(url.Values, len(params))
	for k, vs := range params {
		query.Set(k, strings.Join(vs, ","))
	}
	return p.request(ctx, http.MethodGet, p.TemplateParams(), query, nil)
}

func (p *Proxy) Create(ctx context.Context, data any) (*Response, error) {
	if err := p.allowed(ActionCreate); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrDataRequired
	}
	return p.request(ctx, http.MethodPost, p.TemplateParams(), nil, data)
}

func (p *Proxy) FindByID(ctx context.Context, id string) (*Response, error) {
	if err := p.allowed(ActionFindByID); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	return p.request(ctx, http.MethodGet, p.withID(id), nil, nil)
}

// Update replaces the fields of the instance id with data.
func (p *Proxy) Update(ctx context.Context, id string, data any) (*Response, error) {
	if err := p.allowed(ActionUpdate); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	if data == nil {
		return nil, ErrDataRequired
	}
	return p.request(ctx, http.MethodPut, p.withID(id), nil, data)
}

// Patch sends data, a partial object or a JSON Patch document, to the
// instance id.
func (p *Proxy) Patch(ctx context.Context, id string, data any) (*Response, error) {
	if err := p.allowed(ActionPatch); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	if data == nil {
		return nil, ErrDataRequired
	}
	return p.request(ctx, http.MethodPatch, p.withID(id), nil, data)
}

// Delete removes every instance matching filters.
func (p *Proxy) Delete(ctx context.Context, filters url.Values) (*Response, error) {
	if err := p.allowed(ActionDelete); err != nil {
		return nil, err
	}
	return p.request(ctx, http.MethodDelete, p.TemplateParams(), maps.Clone(filters), nil)
}

func (p *Proxy) DeleteByID(ctx context.Context, id string) (*Response, error) {
	if err := p.allowed(ActionDeleteByID); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	return p.request(ctx, http.MethodDelete, p.withID(id), nil, nil)
}

// FindByNamedQuery runs the server side query registered under name.
func (p *Proxy) FindByNamedQuery(ctx context.Context, name string) (*Response, error) {
	if err := p.allowed(ActionFindByNamedQuery); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("named query: %w", ErrIDRequired)
	}
	return p.request(ctx, http.MethodGet, p.withID(name), nil, nil)
}
