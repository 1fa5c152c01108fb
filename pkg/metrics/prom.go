package metrics

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluentrest_requests_total",
			Help: "Total number of requests handled by resource, verb and status",
		},
		[]string{"resource", "verb", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluentrest_request_duration_seconds",
			Help:    "Duration of resource requests including database round trips",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "verb"},
	)

	NotifyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluentrest_notify_errors_total",
			Help: "Total number of change notifications that failed to publish",
		},
		[]string{"resource"},
	)
)

// ObserveRequest records a handled request.
func ObserveRequest(resource, verb string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(resource, verb, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(resource, verb).Observe(elapsed.Seconds())
}

type PromServerOpts struct {
	Logger            *zap.Logger
	Addr              string
	Path              string        // Path for metrics endpoint, defaults to "/metrics"
	ShutdownTimeout   time.Duration // Timeout for server shutdown, defaults to 5 seconds
	ReadHeaderTimeout time.Duration // Timeout for reading request headers, defaults to 3 seconds
}

func defaultPrometheusServerOptions() PromServerOpts {
	return PromServerOpts{
		Logger:            zap.NewNop(),
		Addr:              ":9100",
		Path:              "/metrics",
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// StartPrometheusServer starts a Prometheus metrics server with the given options.
// The server shuts down gracefully when ctx is canceled.
func StartPrometheusServer(ctx context.Context, wg *sync.WaitGroup, opts *PromServerOpts) {
	effectiveOpts := defaultPrometheusServerOptions()
	if opts != nil {
		effectiveOpts.Addr = cmp.Or(opts.Addr, effectiveOpts.Addr)
		effectiveOpts.Path = cmp.Or(opts.Path, effectiveOpts.Path)
		effectiveOpts.ShutdownTimeout = cmp.Or(opts.ShutdownTimeout, effectiveOpts.ShutdownTimeout)
		effectiveOpts.ReadHeaderTimeout = cmp.Or(opts.ReadHeaderTimeout, effectiveOpts.ReadHeaderTimeout)
		if opts.Logger != nil {
			effectiveOpts.Logger = opts.Logger
		}
	}
	logger := effectiveOpts.Logger

	mux := http.NewServeMux()
	mux.Handle(effectiveOpts.Path, promhttp.Handler())
	server := &http.Server{
		Addr:              effectiveOpts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: effectiveOpts.ReadHeaderTimeout,
	}

	serverClosed := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting metrics server", zap.String("addr", effectiveOpts.Addr), zap.String("path", effectiveOpts.Path))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
		close(serverClosed)
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), effectiveOpts.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutting down metrics server", zap.Error(err))
		}

		select {
		case <-serverClosed:
			logger.Info("metrics server shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("metrics server shutdown timed out")
		}
	}()
}
