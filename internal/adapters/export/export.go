// Package export writes rankings to CSV.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/aptrank/internal/domain/types"
)

// ErrWrite wraps any failure writing the rankings file.
var ErrWrite = errors.New("write rankings failed")

// TimeLayout formats the Last_Updated column.
const TimeLayout = "2006-01-02 15:04:05"

// Fixed leading columns, followed by the listing's own columns.
var leading = []string{"Rank", "ELO_Score", "Last_Updated"}

// Writer rewrites a CSV file with the current rankings.
type Writer struct {
	path string
	now  func() time.Time
}

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithClock sets the source of the Last_Updated timestamp.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWriter creates a writer for path.
func NewWriter(path string, opts ...Option) *Writer {
	w := &Writer{path: path, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the output file.
func (w *Writer) Path() string { return w.path }

// Export replaces the file atomically: rows go to a temp file in the same
// directory which is then renamed over the target.
func (w *Writer) Export(_ context.Context, entries []types.Entry) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := Write(tmp, entries, w.now()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Write encodes entries as CSV. Listing columns appear in first-seen order
// across all entries; missing values are empty.
func Write(out io.Writer, entries []types.Entry, at time.Time) error {
	var columns []string
	seen := make(map[string]struct{})
	for _, e := range entries {
		for _, c := range e.Listing.Columns {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				columns = append(columns, c)
			}
		}
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(append(append([]string{}, leading...), columns...)); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	stamp := at.Format(TimeLayout)
	row := make([]string, len(leading)+len(columns))
	for _, e := range entries {
		row[0] = strconv.Itoa(e.Rank)
		row[1] = strconv.FormatFloat(e.Rating, 'f', 2, 64)
		row[2] = stamp
		for i, c := range columns {
			row[len(leading)+i] = e.Listing.Fields[c]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
