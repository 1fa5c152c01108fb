package httputil

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Middleware defines a function type that represents a middleware. Middleware functions wrap an
// http.Handler to modify or enhance its behavior.
type Middleware func(http.Handler) http.Handler

// RouterOptions is a function type that represents options to configure a Router.
type RouterOptions func(*Router)

// Router is the main structure for handling HTTP routing and middleware.
type Router struct {
	mux        *http.ServeMux
	server     *http.Server
	logger     *zap.Logger
	prefix     string
	middleware []Middleware
	root       bool
	mu         sync.RWMutex
	chain      atomic.Pointer[handlerChain]
}

type handlerChain struct {
	http.Handler
}

// NewRouter creates a new instance of Router with the given options.
func NewRouter(opts ...RouterOptions) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		server: &http.Server{},
		logger: zap.NewNop(),
		root:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithServerOptions returns a RouterOptions function that sets custom http.Server options.
func WithServerOptions(opts ...func(*http.Server)) RouterOptions {
	return func(r *Router) {
		for _, opt := range opts {
			opt(r.server)
		}
	}
}

// WithLogger sets the logger used for server lifecycle messages.
func WithLogger(logger *zap.Logger) RouterOptions {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Use adds one or more middleware to the router. At least one middleware must be provided.
// Middleware functions are applied in the order they are added. Middleware of the root
// router wraps the whole mux, so it also sees requests matching no route; middleware of a
// group wraps the handlers registered on that group afterwards.
func (r *Router) Use(mw Middleware, additional ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
	if len(additional) > 0 {
		r.middleware = append(r.middleware, additional...)
	}
	r.chain.Store(nil)
}

// Group creates a new sub-router with a specified prefix. A group of a group inherits the
// middleware of its parent group.
func (r *Router) Group(prefix string) *Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var inherited []Middleware
	if !r.root {
		inherited = slices.Clone(r.middleware)
	}
	return &Router{
		mux:        r.mux,
		middleware: inherited,
		server:     r.server,
		logger:     r.logger,
		prefix:     r.prefix + prefix,
	}
}

// Prefix returns the path prefix prepended to every pattern of the router.
func (r *Router) Prefix() string {
	return r.prefix
}

// Handle registers an HTTP handler for a given method and pattern as introduced in
// [Routing Enhancements for Go 1.22](https://go.dev/blog/routing-enhancements).
// The handler `METHOD /pattern` on a route group with a /prefix resolves to `METHOD /prefix/pattern`.
// A pattern without a method matches every method.
func (r *Router) Handle(methodPattern string, handler http.Handler) {
	method, pattern, ok := strings.Cut(methodPattern, " ")
	if !ok {
		method, pattern = "", methodPattern
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	finalHandler := handler
	if !r.root {
		for i := len(r.middleware) - 1; i >= 0; i-- {
			finalHandler = r.middleware[i](finalHandler)
		}
	}

	fullPattern := r.prefix + pattern
	if method != "" {
		fullPattern = fmt.Sprintf("%s %s", method, fullPattern)
	}
	r.mux.Handle(fullPattern, finalHandler)
}

// ServeHTTP dispatches the request through the router middleware and mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler().ServeHTTP(w, req)
}

// ListenAndServe starts the server.
func (r *Router) ListenAndServe(addr string) error {
	r.logger.Info("starting server", zap.String("addr", addr))

	r.server.Addr = addr
	r.server.Handler = r.handler()
	return r.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (r *Router) Shutdown(ctx context.Context) error {
	r.logger.Info("shutting down server")
	return r.server.Shutdown(ctx)
}

// handler returns the mux wrapped in the router middleware. The chain is
// built on first use and rebuilt only after Use; routes registered later are
// served through the same chain.
func (r *Router) handler() http.Handler {
	if c := r.chain.Load(); c != nil {
		return c.Handler
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.chain.Load(); c != nil {
		return c.Handler
	}

	var handler http.Handler = r.mux
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	r.chain.Store(&handlerChain{handler})
	return handler
}
