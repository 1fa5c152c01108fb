package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSWithOptions(t *testing.T) {
	tests := []struct {
		name           string
		options        *CORSOptions
		method         string
		header         map[string]string
		expected       map[string]string
		expectedStatus int
	}{
		{
			name:    "default options echo the origin",
			method:  http.MethodGet,
			options: nil,
			header:  map[string]string{"Origin": "http://app.example.com"},
			expected: map[string]string{
				"Access-Control-Allow-Origin":      "http://app.example.com",
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Expose-Headers":    "Link,Location,X-Total-Count,X-Request-Id,API-Version,Preference-Applied",
				"Access-Control-Allow-Methods":     "",
				"Vary":                             "Origin",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "wildcard without credentials",
			method: http.MethodGet,
			options: &CORSOptions{
				AllowedOrigins: []string{"*"},
			},
			header: map[string]string{"Origin": "http://app.example.com"},
			expected: map[string]string{
				"Access-Control-Allow-Origin":      "*",
				"Access-Control-Allow-Credentials": "",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "origin not allowed",
			method: http.MethodGet,
			options: &CORSOptions{
				AllowedOrigins: []string{"http://example.com"},
				ExposedHeaders: []string{"Link"},
			},
			header: map[string]string{"Origin": "http://evil.example.com"},
			expected: map[string]string{
				"Access-Control-Allow-Origin":   "",
				"Access-Control-Expose-Headers": "",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:    "no origin",
			method:  http.MethodGet,
			options: defaultCORSOptions(),
			expected: map[string]string{
				"Access-Control-Allow-Origin": "",
				"Vary":                        "Origin",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:    "preflight request",
			method:  http.MethodOptions,
			options: defaultCORSOptions(),
			header: map[string]string{
				"Origin":                        "http://app.example.com",
				"Access-Control-Request-Method": "PATCH",
			},
			expected: map[string]string{
				"Access-Control-Allow-Origin":   "http://app.example.com",
				"Access-Control-Allow-Methods":  "GET,HEAD,POST,PUT,PATCH,DELETE,OPTIONS",
				"Access-Control-Allow-Headers":  "Content-Type,Accept,Authorization,X-Request-Id,Prefer",
				"Access-Control-Max-Age":        "600",
				"Access-Control-Expose-Headers": "",
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:    "plain OPTIONS reaches the handler",
			method:  http.MethodOptions,
			options: defaultCORSOptions(),
			header:  map[string]string{"Origin": "http://app.example.com"},
			expected: map[string]string{
				"Access-Control-Allow-Methods": "",
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://api.example.com/api/accounts", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()

			handler := CORSWithOptions(tt.options)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			handler.ServeHTTP(rr, req)

			for header, expectedValue := range tt.expected {
				assert.Equal(t, expectedValue, rr.Header().Get(header), header)
			}
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}
