// Package geocode resolves place names to administrative boundary polygons
// via the Nominatim search API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/twpayne/go-geom"
	"golang.org/x/time/rate"

	"github.com/urbanclimate-lab/lczmap/internal/resilience"
)

// Client resolves a free-form place name to its boundary polygon.
type Client interface {
	// Boundary geocodes a place name and returns its administrative
	// boundary. A place that cannot be resolved after reformulation and
	// retries fails with *errs.GeocodeError.
	Boundary(ctx context.Context, place string) (*Boundary, error)
}

// Boundary is a resolved place boundary in geographic coordinates.
type Boundary struct {
	// DisplayName is the full name Nominatim matched, e.g.
	// "Rio de Janeiro, Região Sudeste, Brasil".
	DisplayName string
	// Geom is a Polygon or MultiPolygon in the given CRS.
	Geom geom.T
	CRS  string
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the Nominatim endpoint, e.g. for a self-hosted
// instance or a test server.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit. The public Nominatim
// instance allows at most 1 request per second.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryPolicy sets the per-formulation retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(g *geocoder) {
		g.retry = p
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retry      resilience.Policy
}

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// New creates a geocoder backed by Nominatim.
func New(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  "lczmap/1.0 (urban climate analysis)",
		limiter:    rate.NewLimiter(rate.Limit(1.0), 1),
		retry:      resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
