// Package sheet loads apartment listings from a spreadsheet: a Google Sheets
// share URL, any CSV URL, or a local CSV file.
package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/pkg/logger"
	"github.com/okian/aptrank/pkg/metrics"
)

const (
	DefaultLinkColumn    = "Link"
	DefaultAddressColumn = "Addy"
	defaultTimeout       = 10 * time.Second
)

// Loader reads listings from one source.
type Loader struct {
	source        string
	linkColumn    string
	addressColumn string
	client        *http.Client
	userAgent     string
	logger        logger.Logger
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLinkColumn sets the column holding the listing URL.
func WithLinkColumn(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.linkColumn = name
		}
	}
}

// WithAddressColumn sets the column holding the street address.
func WithAddressColumn(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.addressColumn = name
		}
	}
}

// WithHTTPClient sets the client used for remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header for remote sources.
func WithUserAgent(ua string) Option {
	return func(l *Loader) {
		l.userAgent = ua
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader creates a loader for source.
func NewLoader(source string, opts ...Option) *Loader {
	l := &Loader{
		source:        source,
		linkColumn:    DefaultLinkColumn,
		addressColumn: DefaultAddressColumn,
		client:        &http.Client{Timeout: defaultTimeout},
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches and parses the listings.
func (l *Loader) Load(ctx context.Context) ([]model.Item, error) {
	rc, err := l.open(ctx)
	if err != nil {
		metrics.RecordSheetLoad(false)
		return nil, err
	}
	defer rc.Close()

	items, err := Parse(rc, l.linkColumn, l.addressColumn)
	metrics.RecordSheetLoad(err == nil)
	if err != nil {
		return nil, err
	}
	l.logger.Info(ctx, "listings loaded", logger.String("source", l.source), logger.Int("items", len(items)))
	return items, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	if !isRemote(l.source) {
		f, err := os.Open(l.source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		return f, nil
	}

	target := ExportURL(l.source)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, target, resp.StatusCode)
	}
	return resp.Body, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// ExportURL turns a Google Sheets edit or share URL into its CSV export URL.
// A gid in the query or fragment selects the tab. Other URLs are returned
// unchanged.
func ExportURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(u.Host, "docs.google.com") || !strings.Contains(u.Path, "/spreadsheets/") {
		return raw
	}
	i := strings.LastIndex(u.Path, "/")
	switch tail := u.Path[i+1:]; tail {
	case "export":
		return raw
	case "edit", "view", "htmlview", "":
		u.Path = u.Path[:i]
	}

	q := url.Values{"format": {"csv"}}
	if gid := u.Query().Get("gid"); gid != "" {
		q.Set("gid", gid)
	} else if frag, err := url.ParseQuery(u.Fragment); err == nil && frag.Get("gid") != "" {
		q.Set("gid", frag.Get("gid"))
	}
	u.Path += "/export"
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// Parse reads CSV with a header row. Rows with an empty or "nan" link are
// dropped, as are repeated links (the first row wins). Column order is kept.
func Parse(r io.Reader, linkColumn, addressColumn string) ([]model.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %q (empty sheet)", ErrMissingColumn, linkColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrParse, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	header = uniqueHeader(header)

	linkIdx, addrIdx := -1, -1
	for i, h := range header {
		switch h {
		case linkColumn:
			if linkIdx < 0 {
				linkIdx = i
			}
		case addressColumn:
			if addrIdx < 0 {
				addrIdx = i
			}
		}
	}
	if linkIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, linkColumn)
	}

	var items []model.Item
	seen := make(map[string]struct{})
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrParse, line, err)
		}

		link := strings.TrimSpace(cell(rec, linkIdx))
		if link == "" || strings.EqualFold(link, "nan") {
			continue
		}
		key := model.KeyFor(link)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		it := model.Item{
			Key:    key,
			Link:   link,
			Fields: make([]model.Field, len(header)),
		}
		if addrIdx >= 0 {
			it.Address = strings.TrimSpace(cell(rec, addrIdx))
		}
		for i, h := range header {
			it.Fields[i] = model.Field{Name: h, Value: cell(rec, i)}
		}
		items = append(items, it)
	}
	return items, nil
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// uniqueHeader renames repeated column names so every column keeps its own
// value: the second "Notes" becomes "Notes.1", the third "Notes.2". Suffixes
// that collide with another column's name are skipped.
func uniqueHeader(header []string) []string {
	taken := make(map[string]bool, len(header))
	for _, col := range header {
		taken[col] = true
	}

	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	next := make(map[string]int)
	for i, col := range header {
		if !seen[col] {
			seen[col] = true
			out[i] = col
			continue
		}
		n := next[col]
		name := col
		for taken[name] {
			n++
			name = fmt.Sprintf("%s.%d", col, n)
		}
		next[col] = n
		taken[name] = true
		out[i] = name
	}
	return out
}
