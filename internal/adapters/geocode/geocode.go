// Package geocode resolves listing addresses to coordinates using the
// OpenStreetMap Nominatim search API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/aptrank/pkg/logger"
	"github.com/okian/aptrank/pkg/metrics"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent = "aptrank/1.0"
	breakerName      = "nominatim"
	defaultTimeout   = 10 * time.Second
)

// Point sources.
const (
	SourceNominatim = "nominatim"
	SourceHint      = "area_hint"
	SourceDefault   = "default"
)

// Point is a resolved location. Approximate points come from an area hint or
// the default center.
type Point struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Approximate bool    `json:"approximate"`
	Source      string  `json:"source"`
}

// MapURL links to the point on openstreetmap.org.
func (p Point) MapURL() string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=16/%.6f/%.6f", p.Lat, p.Lon, p.Lat, p.Lon)
}

// AreaHint maps an address substring to approximate coordinates.
type AreaHint struct {
	Substring string
	Lat       float64
	Lon       float64
}

// Client geocodes addresses.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[*Point]
	cache     *Cache
	hints     []AreaHint
	center    Point
	logger    logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the Nominatim search endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent Nominatim's usage policy requires.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithRate limits outgoing requests per second. Nominatim allows one.
func WithRate(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithCache sets the result cache.
func WithCache(cache *Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithAreaHints sets the fallback hints, checked in order.
func WithAreaHints(hints []AreaHint) Option {
	return func(c *Client) {
		c.hints = hints
	}
}

// WithDefaultCenter sets the fallback when no hint matches.
func WithDefaultCenter(lat, lon float64) Option {
	return func(c *Client) {
		c.center = Point{Lat: lat, Lon: lon, Approximate: true, Source: SourceDefault}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client. Without a cache option results are cached in memory.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		http:      &http.Client{Timeout: defaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		cache:     NewCache(""),
		center:    Point{Lat: 40.7128, Lon: -74.0060, Approximate: true, Source: SourceDefault},
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	metrics.UpdateBreakerState(breakerName, 0)
	c.breaker = gobreaker.NewCircuitBreaker[*Point](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn(context.Background(), "geocoder circuit breaker state change",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateBreakerState(name, stateToFloat(to))
		},
	})
	return c
}

// Cache returns the client's cache.
func (c *Client) Cache() *Cache { return c.cache }

// Geocode resolves address. Found and not-found answers are cached. When the
// service cannot be reached the approximate fallback is returned but not
// cached, so a later call retries. An error is returned only when ctx ends.
func (c *Client) Geocode(ctx context.Context, address string) (Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return c.center, nil
	}
	if p, ok := c.cache.Get(address); ok {
		return p, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Point{}, err
	}

	found, err := c.breaker.Execute(func() (*Point, error) {
		return c.search(ctx, address)
	})
	switch {
	case err != nil && ctx.Err() != nil:
		return Point{}, ctx.Err()
	case err != nil:
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordGeocode("rejected")
		} else {
			metrics.RecordGeocode("failed")
		}
		c.logger.Warn(ctx, "geocoding failed, using approximate location",
			logger.String("address", address), logger.Error(err))
		return c.fallback(address), nil
	case found == nil:
		metrics.RecordGeocode("not_found")
		p := c.fallback(address)
		c.remember(ctx, address, p)
		return p, nil
	default:
		metrics.RecordGeocode("found")
		c.remember(ctx, address, *found)
		return *found, nil
	}
}

func (c *Client) remember(ctx context.Context, address string, p Point) {
	c.cache.Put(address, p)
	if err := c.cache.Save(); err != nil {
		c.logger.Warn(ctx, "could not save geocoding cache", logger.Error(err))
	}
}

// fallback returns the first hint whose substring occurs in address, else
// the default center.
func (c *Client) fallback(address string) Point {
	for _, h := range c.hints {
		if h.Substring != "" && strings.Contains(address, h.Substring) {
			return Point{Lat: h.Lat, Lon: h.Lon, Approximate: true, Source: SourceHint}
		}
	}
	return c.center
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// search returns nil, nil when Nominatim has no match.
func (c *Client) search(ctx context.Context, address string) (*Point, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: nominatim returned status %d", ErrLookup, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLookup, err)
	}
	if len(results) == 0 {
		return nil, nil //nolint:nilnil // no match is not a failure
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if err := errors.Join(errLat, errLon); err != nil {
		return nil, fmt.Errorf("%w: coordinates: %w", ErrLookup, err)
	}
	return &Point{Lat: lat, Lon: lon, Source: SourceNominatim}, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
