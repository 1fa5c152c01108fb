package middleware

import (
	"net/http"

	"github.com/edgeflare/fluentrest/pkg/httputil"
)

// Chain wraps h so that the first middleware runs first. Nil entries are
// skipped, which lets callers pass optional middleware inline.
func Chain(h http.Handler, middlewares ...httputil.Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			h = middlewares[i](h)
		}
	}
	return h
}
