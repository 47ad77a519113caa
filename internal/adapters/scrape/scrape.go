// Package scrape pulls listing photos out of a listing page.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/okian/aptrank/pkg/metrics"
)

const (
	// DefaultUserAgent looks like a desktop browser; listing sites reject
	// obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultMaxImages = 6
	defaultTimeout   = 10 * time.Second
	maxBodyBytes     = 5 * 1024 * 1024
)

// Sentinel errors.
var (
	ErrInvalidURL = errors.New("invalid listing url")
	ErrFetch      = errors.New("fetch listing failed")
)

// Scraper fetches listing pages.
type Scraper struct {
	client    *http.Client
	userAgent string
	maxImages int
}

// Option applies a configuration option to the Scraper.
type Option func(*Scraper)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the request timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.client = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithMaxImages caps how many image URLs are returned.
func WithMaxImages(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxImages = n
		}
	}
}

// New creates a Scraper.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: DefaultUserAgent,
		maxImages: DefaultMaxImages,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Images returns up to the configured number of JPEG URLs found on the page.
// A page without matching images yields an empty slice and no error.
func (s *Scraper) Images(ctx context.Context, rawURL string) ([]string, error) {
	base, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		metrics.RecordScrape("failed")
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), http.NoBody)
	if err != nil {
		metrics.RecordScrape("failed")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RecordScrape("failed")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordScrape("failed")
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetch, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordScrape("failed")
		return nil, fmt.Errorf("%w: parse: %w", ErrFetch, err)
	}

	images := Extract(doc, base, s.maxImages)
	if len(images) == 0 {
		metrics.RecordScrape("empty")
	} else {
		metrics.RecordScrape("ok")
	}
	return images, nil
}

// Extract walks doc collecting <img> sources that look like JPEGs. data-src
// (lazy loading) wins over src. Relative URLs resolve against base.
func Extract(doc *html.Node, base *url.URL, limit int) []string {
	images := []string{}
	seen := make(map[string]struct{})

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "img" {
			if src := imageSource(n); src != "" {
				if abs := resolve(base, src); abs != "" {
					if _, dup := seen[abs]; !dup {
						seen[abs] = struct{}{}
						images = append(images, abs)
						if limit > 0 && len(images) >= limit {
							return false
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)

	return images
}

func imageSource(n *html.Node) string {
	var dataSrc, src string
	for _, a := range n.Attr {
		switch a.Key {
		case "data-src":
			dataSrc = strings.TrimSpace(a.Val)
		case "src":
			src = strings.TrimSpace(a.Val)
		}
	}
	for _, v := range []string{dataSrc, src} {
		if isJPEG(v) {
			return v
		}
	}
	return ""
}

func isJPEG(v string) bool {
	l := strings.ToLower(v)
	return strings.Contains(l, "jpg") || strings.Contains(l, "jpeg")
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return u.String()
}
