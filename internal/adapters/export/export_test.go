package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/aptrank/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func entry(rank int, key string, r float64, fields ...string) types.Entry {
	l := types.Listing{Key: key, Fields: map[string]string{}}
	for i := 0; i+1 < len(fields); i += 2 {
		l.Columns = append(l.Columns, fields[i])
		l.Fields[fields[i]] = fields[i+1]
	}
	return types.Entry{Rank: rank, Key: key, Rating: r, Listing: l}
}

func TestWrite(t *testing.T) {
	Convey("Given ranked entries", t, func() {
		at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		entries := []types.Entry{
			entry(1, "a", 1016, "Link", "https://x/a", "Addy", "1 Main St, Brooklyn"),
			entry(2, "b", 983.987, "Link", "https://x/b", "Addy", "2 Elm", "Price", "2100"),
		}

		Convey("When written", func() {
			var buf bytes.Buffer
			So(Write(&buf, entries, at), ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

			Convey("Then the header leads with rank, score and timestamp", func() {
				So(lines[0], ShouldEqual, "Rank,ELO_Score,Last_Updated,Link,Addy,Price")
			})

			Convey("Then scores use two decimals and missing columns are empty", func() {
				So(lines[1], ShouldEqual, `1,1016.00,2024-05-06 07:08:09,https://x/a,"1 Main St, Brooklyn",`)
				So(lines[2], ShouldEqual, "2,983.99,2024-05-06 07:08:09,https://x/b,2 Elm,2100")
			})
		})
	})
}

func TestWriter_Export(t *testing.T) {
	Convey("Given a writer in a temp dir", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "rankings.csv")
		w := NewWriter(path, WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }))

		Convey("When exporting twice", func() {
			So(w.Export(context.Background(), []types.Entry{entry(1, "a", 1000, "Link", "x")}), ShouldBeNil)
			So(w.Export(context.Background(), []types.Entry{entry(1, "b", 1016, "Link", "y")}), ShouldBeNil)

			Convey("Then the file holds only the latest rankings and no temp files remain", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "Rank,ELO_Score,Last_Updated,Link\n1,1016.00,2024-01-01 00:00:00,y\n")
				left, _ := os.ReadDir(dir)
				So(left, ShouldHaveLength, 1)
				So(w.Path(), ShouldEqual, path)
			})
		})

		Convey("When the directory does not exist", func() {
			err := NewWriter(filepath.Join(dir, "nope", "r.csv")).Export(context.Background(), nil)

			Convey("Then ErrWrite is returned", func() {
				So(errors.Is(err, ErrWrite), ShouldBeTrue)
			})
		})
	})
}
