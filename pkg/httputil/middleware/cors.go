package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSOptions defines configuration for CORS.
type CORSOptions struct {
	// AllowedOrigins lists exact origins or "*".
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge caches preflight results for that many seconds when positive.
	MaxAge int
}

// defaultCORSOptions allows any origin to call every verb of a resource and
// read the hypermedia and pagination headers.
func defaultCORSOptions() *CORSOptions {
	return &CORSOptions{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization", "X-Request-Id", "Prefer"},
		ExposedHeaders:   []string{"Link", "Location", "X-Total-Count", "X-Request-Id", "API-Version", "Preference-Applied"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed. With credentials a wildcard echoes the origin.
func (o *CORSOptions) allowOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	if slices.Contains(o.AllowedOrigins, origin) {
		return origin
	}
	if slices.Contains(o.AllowedOrigins, "*") {
		if o.AllowCredentials {
			return origin
		}
		return "*"
	}
	return ""
}

// CORSWithOptions creates a CORS middleware with the provided configuration.
// If options is nil, it will use the default CORS settings. Requests without
// an Origin header, or from an origin not allowed, pass through untouched.
// Preflight requests are answered with 204 and never reach next.
func CORSWithOptions(options *CORSOptions) func(http.Handler) http.Handler {
	if options == nil {
		options = defaultCORSOptions()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := options.allowOrigin(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Origin", origin)
			if options.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !preflight {
				if len(options.ExposedHeaders) > 0 {
					h.Set("Access-Control-Expose-Headers", strings.Join(options.ExposedHeaders, ","))
				}
				next.ServeHTTP(w, r)
				return
			}

			if len(options.AllowedMethods) > 0 {
				h.Set("Access-Control-Allow-Methods", strings.Join(options.AllowedMethods, ","))
			}
			if len(options.AllowedHeaders) > 0 {
				h.Set("Access-Control-Allow-Headers", strings.Join(options.AllowedHeaders, ","))
			}
			if options.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(options.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
