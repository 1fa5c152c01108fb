// Package halclient navigates APIs served by pkg/rest by following HAL
// links from the API root.
//
//	b := halclient.NewBuilder()
//	b.Resource("accounts").Resource("addresses")
//
//	c, err := b.HAL("http://localhost:8080/api/")
//	accounts, _ := c.Resource("accounts")
//	acme, _ := accounts.Item("42")
//	addresses, _ := acme.Resource("addresses")
//	resp, err := addresses.Find(ctx, url.Values{"city": {"Springfield"}})
//
// Every action starts at the root, GETs each intermediate resource and
// expands RFC 6570 link templates with the ids collected along the way.
package halclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/edgeflare/fluentrest/pkg/hal"
	"github.com/edgeflare/fluentrest/pkg/httputil"
	"github.com/gertd/go-pluralize"
	"github.com/yosida95/uritemplate/v3"
	"go.uber.org/zap"
)

var (
	ErrActionDisabled  = errors.New("action not permitted")
	ErrIDRequired      = errors.New("id is required")
	ErrDataRequired    = errors.New("data is required")
	ErrUnknownResource = errors.New("unknown resource")
	ErrLinkNotFound    = errors.New("link not found")
)

// Pluralizer derives the singular resource name used for {name_id}
// template parameters.
type Pluralizer interface {
	Singular(word string) string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithRetries sets how often transport errors and 5xx responses are
// retried. Zero disables retries.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = max(n, 0)
	}
}

func WithPluralizer(p Pluralizer) Option {
	return func(c *Client) {
		if p != nil {
			c.pluralizer = p
		}
	}
}

// Response is the outcome of a client request. Resource is empty when the
// body is not a HAL document.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Resource   *hal.Resource
}

// Client issues requests against a HAL API.
type Client struct {
	base       *url.URL
	resources  []*ResourceBuilder
	httpClient *http.Client
	logger     *zap.Logger
	headers    http.Header
	retries    int
	pluralizer Pluralizer
}

func newClient(base *url.URL, resources []*ResourceBuilder, opts ...Option) *Client {
	c := &Client{
		base:       base,
		resources:  resources,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
		headers:    make(http.Header),
		retries:    3,
		pluralizer: pluralize.NewClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URI returns the root URI of the API.
func (c *Client) URI() string {
	return c.base.String()
}

// Root fetches the API root.
func (c *Client) Root(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, c.base, nil, nil)
}

// ResourceAt fetches href, resolved against the root URI after expanding
// its template with params.
func (c *Client) ResourceAt(ctx context.Context, href string, params map[string]string) (*Response, error) {
	u, err := resolve(c.base, hal.Link{Href: href, Templated: strings.Contains(href, "{")}, params)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, u, nil, nil)
}

// Resource returns a proxy for a top level resource.
func (c *Client) Resource(name string) (*Proxy, error) {
	for _, rb := range c.resources {
		if rb.name == name {
			return c.newProxy(rb, nil, ""), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownResource, name)
}

// follow walks the named links from the root, GETting every resource on
// the way, and returns the URI of the last link.
func (c *Client) follow(ctx context.Context, names []string, params map[string]string) (*url.URL, error) {
	current := c.base
	for _, name := range names {
		resp, err := c.do(ctx, http.MethodGet, current, nil, nil)
		if err != nil {
			return nil, err
		}
		link, ok := resp.Resource.Link(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q at %s", ErrLinkNotFound, name, current)
		}
		next, err := resolve(current, link, params)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("follow", zap.String("rel", name), zap.Stringer("uri", next))
		current = next
	}
	return current, nil
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, query url.Values, payload any) (*Response, error) {
	target := *u
	if len(query) > 0 {
		q := target.Query()
		maps.Copy(q, query)
		target.RawQuery = q.Encode()
	}

	cfg := httputil.DefaultRequestConfig(method, target.String())
	cfg.Client = c.httpClient
	cfg.Logger = c.logger
	cfg.RetryEnabled = c.retries > 0
	cfg.MaxRetries = c.retries
	cfg.Headers = c.headers.Clone()
	if cfg.Headers.Get("Accept") == "" {
		cfg.Headers.Set("Accept", hal.MediaTypeJSON)
	}

	raw, err := httputil.Request(ctx, cfg, payload)
	var resp *Response
	if raw != nil {
		resp = &Response{
			StatusCode: raw.StatusCode,
			Header:     raw.Headers,
			Body:       raw.Body,
			Resource:   parse(raw.Body),
		}
	}
	if err != nil {
		return resp, fmt.Errorf("%s %s: %w", method, target.String(), err)
	}
	return resp, nil
}

func parse(body []byte) *hal.Resource {
	res := hal.NewResource(nil, "")
	if len(bytes.TrimSpace(body)) == 0 {
		return res
	}
	if err := res.UnmarshalJSON(body); err != nil {
		return hal.NewResource(nil, "")
	}
	return res
}

// resolve expands the link template with params and resolves the result
// against base.
func resolve(base *url.URL, link hal.Link, params map[string]string) (*url.URL, error) {
	href := link.Href
	if link.Templated {
		tpl, err := uritemplate.New(href)
		if err != nil {
			return nil, fmt.Errorf("parse link template %q: %w", href, err)
		}
		values := uritemplate.Values{}
		for k, v := range params {
			values.Set(k, uritemplate.String(v))
		}
		if href, err = tpl.Expand(values); err != nil {
			return nil, fmt.Errorf("expand link template %q: %w", link.Href, err)
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("parse link %q: %w", href, err)
	}
	return base.ResolveReference(ref), nil
}
