package rest

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/edgeflare/fluentrest/pkg/httputil"
	"github.com/edgeflare/fluentrest/pkg/httputil/middleware"
	"github.com/edgeflare/fluentrest/pkg/metrics"
	"github.com/edgeflare/fluentrest/pkg/notify"
	"github.com/gertd/go-pluralize"
	"go.uber.org/zap"
)

// DefaultVersionHeader is the response header carrying the API version.
const DefaultVersionHeader = "API-Version"

// Formatter writes a Result to the response. It returns true when the
// response has been written, which stops the formatter chain.
type Formatter func(w http.ResponseWriter, r *http.Request, res *Result) bool

// Pluralizer converts resource names between singular and plural form.
// *pluralize.Client satisfies it and accepts custom rules:
//
//	p := pluralize.NewClient()
//	p.AddIrregularRule("person", "people")
//	svc := rest.NewService(rest.WithPluralizer(p))
type Pluralizer interface {
	Singular(word string) string
	Plural(word string) string
}

// Option configures a Service.
type Option func(*Service)

// WithPluralizer sets the pluralizer used to derive id parameter names.
func WithPluralizer(p Pluralizer) Option {
	return func(s *Service) {
		if p != nil {
			s.pluralizer = p
		}
	}
}

// WithLogger sets the logger for database and notification failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier publishes an event after every successful write.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithVersionHeader writes version in the named response header. An empty
// name uses DefaultVersionHeader.
func WithVersionHeader(name, version string) Option {
	return func(s *Service) {
		s.versionHeader = cmp.Or(name, DefaultVersionHeader)
		s.version = version
	}
}

// WithMetrics records request counts and durations in pkg/metrics.
func WithMetrics(enabled bool) Option {
	return func(s *Service) {
		s.metrics = enabled
	}
}

// Service holds the settings shared by every resource mounted through it.
type Service struct {
	formatters    []Formatter
	pluralizer    Pluralizer
	logger        *zap.Logger
	notifier      notify.Notifier
	versionHeader string
	version       string
	metrics       bool
}

// NewService returns a Service. Until a formatter is added with Use,
// results are written by HALFormatter.
func NewService(opts ...Option) *Service {
	s := &Service{
		pluralizer:    pluralize.NewClient(),
		logger:        zap.NewNop(),
		notifier:      notify.Nop,
		versionHeader: DefaultVersionHeader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Use appends a formatter to the chain run for every result.
func (s *Service) Use(f Formatter) *Service {
	s.formatters = append(s.formatters, f)
	return s
}

// MountAt starts a resource definition under uri on router. A uri that does
// not start with the router prefix is taken relative to it.
func (s *Service) MountAt(router *httputil.Router, uri string) *MountPoint {
	uri = cmp.Or(uri, "/")
	if prefix := router.Prefix(); prefix != "" && !strings.HasPrefix(uri, prefix) {
		uri = JoinPath(prefix, uri)
	}
	return &MountPoint{service: s, router: router, uri: uri}
}

func (s *Service) respond(w http.ResponseWriter, r *http.Request, res *Result) {
	if s.version != "" {
		w.Header().Set(s.versionHeader, s.version)
	}

	status := res.Status()
	if status >= http.StatusInternalServerError {
		logger := middleware.Logger(r.Context(), s.logger)
		logger.Error("request failed",
			zap.String("resource", res.Name),
			zap.String("method", r.Method),
			zap.String("uri", res.URI),
			zap.Error(cause(res.Err)),
		)
	}

	formatters := s.formatters
	if len(formatters) == 0 {
		formatters = []Formatter{HALFormatter}
	}
	handled := false
	for _, f := range formatters {
		if f(w, r, res) {
			handled = true
			break
		}
	}
	if !handled {
		status = http.StatusNotAcceptable
		httputil.Error(w, status, "No acceptable representation for "+r.Header.Get("Accept"))
	}

	if s.metrics {
		metrics.ObserveRequest(res.Name, r.Method, status, time.Since(res.started))
	}
}

func (s *Service) notify(ctx context.Context, event notify.Event) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		middleware.Logger(ctx, s.logger).Warn("change notification failed",
			zap.String("resource", event.Resource),
			zap.String("op", string(event.Op)),
			zap.Error(err),
		)
		if s.metrics {
			metrics.NotifyErrors.WithLabelValues(event.Resource).Inc()
		}
	}
}

// cause returns the underlying error of a *Error for logging.
func cause(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}
