package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/edgeflare/fluentrest/pkg/httputil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResponseRecorder is a wrapper for http.ResponseWriter to capture status codes and durations.
type ResponseRecorder struct {
	start time.Time
	http.ResponseWriter
	StatusCode int
	Bytes      int
}

func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
		start:          time.Now(),
	}
}

func (rr *ResponseRecorder) WriteHeader(statusCode int) {
	rr.StatusCode = statusCode
	rr.ResponseWriter.WriteHeader(statusCode)
}

func (rr *ResponseRecorder) Write(b []byte) (int, error) {
	n, err := rr.ResponseWriter.Write(b)
	rr.Bytes += n
	return n, err
}

// Logger returns the request scoped logger set by LoggerWithOptions, or def.
func Logger(ctx context.Context, def *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(httputil.LogEntryCtxKey).(*zap.Logger); ok {
		return logger
	}
	return def
}

// LoggerOptions defines configuration for the logger middleware.
type LoggerOptions struct {
	Logger *zap.Logger
	Format func(reqID string, rec *ResponseRecorder, r *http.Request, latency time.Duration) []zap.Field
}

var defaultLogger *zap.Logger

func init() {
	var err error
	defaultLogger, err = zap.NewProduction()
	if err != nil {
		panic(err)
	}
}

func defaultFormat(reqID string, rec *ResponseRecorder, r *http.Request, latency time.Duration) []zap.Field {
	return []zap.Field{
		zap.String("req_id", reqID),
		zap.Int("status", rec.StatusCode),
		zap.String("method", r.Method),
		zap.String("host", r.Host),
		zap.String("url", r.URL.String()),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
		zap.Int("bytes", rec.Bytes),
		zap.Duration("latency", latency),
	}
}

// LoggerWithOptions logs one "response" entry per request. The request scoped
// logger, tagged with the request id, is stored in the context.
func LoggerWithOptions(options *LoggerOptions) func(http.Handler) http.Handler {
	if options == nil {
		options = &LoggerOptions{}
	}
	logger := options.Logger
	if logger == nil {
		logger = defaultLogger
	}
	format := options.Format
	if format == nil {
		format = defaultFormat
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Value(httputil.LogEntryCtxKey).(*zap.Logger); ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqID, ok := httputil.RequestID(r)
			if !ok {
				reqID = uuid.Nil.String()
			}

			rec := NewResponseRecorder(w)
			ctx := context.WithValue(r.Context(), httputil.LogEntryCtxKey, logger.With(zap.String("req_id", reqID)))
			r = r.WithContext(ctx)

			next.ServeHTTP(rec, r)

			logger.Info("response", format(reqID, rec, r, time.Since(start))...)
		})
	}
}
