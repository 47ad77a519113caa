package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/aptrank/internal/adapters/repository"
	app "github.com/okian/aptrank/internal/app"
	"github.com/okian/aptrank/internal/config"
	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

const listingsCSV = "Link,Addy,Price\n" +
	"https://listings.test/a,1 Atlantic Ave,2500\n" +
	"https://listings.test/b,2 Bedford Ave,2100\n" +
	"https://listings.test/a,duplicate,9999\n"

// run executes the CLI with args and returns stdout.
func run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// gaugeValue reads an unlabelled gauge from the metrics registry.
func gaugeValue(name string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func writeSheet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listings.csv")
	if err := os.WriteFile(path, []byte(listingsCSV), 0o600); err != nil {
		t.Fatalf("write sheet: %v", err)
	}
	return path
}

func TestConfigLoading(t *testing.T) {
	convey.Convey("Given APTRANK environment variables", t, func() {
		t.Setenv("APTRANK_ADDR", ":8080")
		t.Setenv("APTRANK_K_FACTOR", "24")

		convey.Convey("Then configuration reflects them", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.KFactor, convey.ShouldEqual, 24)
		})
	})
}

func TestRankingsCommand(t *testing.T) {
	sheetPath := writeSheet(t)

	convey.Convey("Given a local listings sheet and in-memory state", t, func() {
		convey.Convey("When rankings are printed", func() {
			out, err := run("rankings", "--sheet", sheetPath, "--db", "")

			convey.Convey("Then every unique listing is shown once", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "RANK")
				convey.So(out, convey.ShouldContainSubstring, "1 Atlantic Ave")
				convey.So(out, convey.ShouldContainSubstring, "2 Bedford Ave")
				convey.So(out, convey.ShouldNotContainSubstring, "duplicate")
				convey.So(out, convey.ShouldContainSubstring, "1000.00")
			})
		})

		convey.Convey("When rankings are printed as JSON with a limit", func() {
			out, err := run("rankings", "--sheet", sheetPath, "--db", "", "--json", "-n", "1")

			convey.Convey("Then a single entry is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(strings.Count(out, `"rank"`), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When no sheet is configured", func() {
			_, err := run("rankings", "--db", "")

			convey.Convey("Then the command fails", func() {
				convey.So(errors.Is(err, app.ErrNoSource), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the default strategy is unknown", func() {
			t.Setenv("APTRANK_DEFAULT_STRATEGY", "alphabetical")
			_, err := run("rankings", "--sheet", sheetPath, "--db", "")

			convey.Convey("Then the command fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestExportCommand(t *testing.T) {
	sheetPath := writeSheet(t)

	convey.Convey("Given a listings sheet", t, func() {
		out := filepath.Join(t.TempDir(), "rankings.csv")

		convey.Convey("When the rankings are exported", func() {
			stdout, err := run("export", "--sheet", sheetPath, "--db", "", "--out", out)

			convey.Convey("Then the CSV is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "wrote 2 rankings to "+out)
				data, err := os.ReadFile(out)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldStartWith, "Rank,ELO_Score,Last_Updated,Link,Addy,Price")
			})
		})
	})
}

func TestHistoryCommand(t *testing.T) {
	sheetPath := writeSheet(t)

	convey.Convey("Given a database with one recorded comparison", t, func() {
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "state.db")
		store, err := repository.NewSQLiteStore(ctx, dbPath)
		convey.So(err, convey.ShouldBeNil)

		a, b := model.KeyFor("https://listings.test/a"), model.KeyFor("https://listings.test/b")
		err = store.Save(ctx, map[string]float64{a: 1016, b: 984}, []model.Outcome{{
			ID: "m1", WinnerKey: a, LoserKey: b,
			WinnerBefore: 1000, LoserBefore: 1000,
			WinnerAfter: 1016, LoserAfter: 984,
			At: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		}})
		convey.So(err, convey.ShouldBeNil)
		convey.So(store.Close(), convey.ShouldBeNil)

		convey.Convey("When the history is printed with a sheet", func() {
			out, err := run("history", "--db", dbPath, "--sheet", sheetPath)

			convey.Convey("Then listings are named by address", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "1 Atlantic Ave")
				convey.So(out, convey.ShouldContainSubstring, "1000.0 -> 1016.0")
			})
		})

		convey.Convey("When the history is printed as JSON", func() {
			out, err := run("history", "--db", dbPath, "--json")

			convey.Convey("Then the match is included", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"id": "m1"`)
				convey.So(out, convey.ShouldContainSubstring, a)
			})
		})

		convey.Convey("When rankings are computed from the same database", func() {
			out, err := run("rankings", "--db", dbPath, "--sheet", sheetPath, "--json")

			convey.Convey("Then the stored ratings are used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "1016")
				convey.So(strings.Index(out, "1 Atlantic Ave"), convey.ShouldBeLessThan, strings.Index(out, "2 Bedford Ave"))
			})
		})
	})
}

func TestSimulateCommand(t *testing.T) {
	convey.Convey("Given a small simulation", t, func() {
		out, err := run("simulate", "--items", "6", "--rounds", "30", "--strategy", "balanced", "--seed", "3")

		convey.Convey("Then a summary table is printed", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "SPEARMAN")
			convey.So(out, convey.ShouldContainSubstring, "balanced")
			convey.So(out, convey.ShouldNotContainSubstring, "random")
		})
	})

	convey.Convey("Given an unknown strategy", t, func() {
		_, err := run("simulate", "--strategy", "alphabetical")

		convey.Convey("Then the command fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service", t, func() {
		svc := app.New(app.WithItems([]model.Item{
			{Key: "a", Link: "https://listings.test/a"},
			{Key: "b", Link: "https://listings.test/b"},
		}))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)

		convey.Convey("When a match is recorded and stats are read", func() {
			_, err := svc.RecordMatch(context.Background(), "a", "b")
			convey.So(err, convey.ShouldBeNil)
			metrics.UpdateItemCount(0)
			metrics.UpdateLedgerLength(0)
			_ = svc.GetStats()

			convey.Convey("Then reading stats leaves the gauges alone", func() {
				convey.So(gaugeValue("aptrank_ranker_items"), convey.ShouldEqual, 0)
				convey.So(gaugeValue("aptrank_ranker_ledger_length"), convey.ShouldEqual, 0)
			})

			convey.Convey("Then the updater sets them from the stats", func() {
				updateServiceMetrics(svc)
				convey.So(gaugeValue("aptrank_ranker_items"), convey.ShouldEqual, 2)
				convey.So(gaugeValue("aptrank_ranker_ledger_length"), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("Then the updater returns when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}
