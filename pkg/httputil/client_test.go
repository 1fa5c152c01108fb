package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetries(method, url string) RequestConfig {
	cfg := DefaultRequestConfig(method, url)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestRequest(t *testing.T) {
	t.Run("sends json payload on every attempt", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"name":"acme"}`, string(body))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			if calls.Add(1) < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":1}`))
		}))
		defer srv.Close()

		resp, err := Request(context.Background(), fastRetries(http.MethodPost, srv.URL), map[string]any{"name": "acme"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.JSONEq(t, `{"id":1}`, string(resp.Body))
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"missing"}`))
		}))
		defer srv.Close()

		resp, err := Request(context.Background(), fastRetries(http.MethodGet, srv.URL), nil)
		require.Error(t, err)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("server errors exhaust retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		cfg := fastRetries(http.MethodGet, srv.URL)
		cfg.MaxRetries = 2
		_, err := Request(context.Background(), cfg, nil)
		require.Error(t, err)
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("retry disabled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		cfg := DefaultRequestConfig(http.MethodDelete, srv.URL)
		cfg.RetryEnabled = false
		_, err := Request(context.Background(), cfg, nil)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	})
}
