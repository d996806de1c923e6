package emvi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/emvi-client/internal/logging"
)

const (
	DefaultAuthHost = "https://auth.emvi.com"
	DefaultAPIHost  = "https://api.emvi.com"

	// DefaultHTTPTimeout bounds every request, including token refreshes.
	DefaultHTTPTimeout = 30 * time.Second
)

type options struct {
	authHost   string
	apiHost    string
	httpClient *http.Client
	store      Store
	namespace  string
	logger     logging.Logger
	limiter    *rate.Limiter
}

// Option configures a Client or a Session.
type Option func(*options)

// WithAuthHost overrides the host serving /api/v1/auth/token.
func WithAuthHost(host string) Option {
	return func(o *options) {
		if host != "" {
			o.authHost = strings.TrimSuffix(host, "/")
		}
	}
}

// WithAPIHost overrides the host serving the search endpoints.
func WithAPIHost(host string) Option {
	return func(o *options) {
		if host != "" {
			o.apiHost = strings.TrimSuffix(host, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for all requests. Its Transport is
// wrapped, never modified.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		if httpClient != nil {
			o.httpClient = httpClient
		}
	}
}

// WithStore sets where the token is persisted between runs.
func WithStore(store Store) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithNamespace sets the prefix of the persisted token keys.
// Defaults to the client ID.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logging.NewSlogLogger(logger)
		}
	}
}

// WithRateLimit caps outgoing search requests at r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(o *options) {
		if r > 0 && burst > 0 {
			o.limiter = rate.NewLimiter(r, burst)
		}
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		authHost:   DefaultAuthHost,
		apiHost:    DefaultAPIHost,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     logging.NewSlogLogger(slog.Default()),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = NewMemoryStore()
	}
	o.logger = o.logger.With("component", "emvi")
	return o
}
