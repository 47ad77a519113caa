package simulate

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/okian/aptrank/internal/domain/selector"
	"github.com/okian/aptrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(&bytes.Buffer{})); err != nil {
		panic(err)
	}
}

func TestStatistics(t *testing.T) {
	Convey("Given rank statistics", t, func() {
		Convey("Then identical orderings correlate perfectly", func() {
			So(spearman([]float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}), ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("Then reversed orderings correlate negatively", func() {
			So(spearman([]float64{1, 2, 3, 4}, []float64{4, 3, 2, 1}), ShouldAlmostEqual, -1, 1e-12)
		})

		Convey("Then ties share the average rank", func() {
			So(ranks([]float64{1, 2, 2, 3}), ShouldResemble, []float64{1, 2.5, 2.5, 4})
		})

		Convey("Then constant or short inputs give zero", func() {
			So(spearman([]float64{1, 1, 1}, []float64{1, 2, 3}), ShouldEqual, 0)
			So(spearman([]float64{1}, []float64{1}), ShouldEqual, 0)
		})

		Convey("Then coverage summarizes appearance counts", func() {
			c := coverage([]int{0, 2, 4})
			So(c.Min, ShouldEqual, 0)
			So(c.Max, ShouldEqual, 4)
			So(c.Mean, ShouldEqual, 2)
			So(c.Unseen, ShouldEqual, 1)
			So(c.StdDev, ShouldAlmostEqual, 1.632993, 1e-6)
		})
	})
}

func TestJudge(t *testing.T) {
	Convey("Given a judge", t, func() {
		j := NewJudge(0.1, rand.New(rand.NewSource(1)))

		Convey("Then equal utilities are a coin flip", func() {
			So(j.PreferA(0.5, 0.5), ShouldEqual, 0.5)
		})

		Convey("Then the better listing is usually preferred", func() {
			So(j.PreferA(0.9, 0.1), ShouldBeGreaterThan, 0.99)
			wins := 0
			for range 1000 {
				if j.ChooseA(0.9, 0.1) {
					wins++
				}
			}
			So(wins, ShouldBeGreaterThan, 980)
		})
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given an invalid configuration", t, func() {
		cfg := DefaultConfig()
		cfg.Items = 1
		_, err := Run(ctx, cfg)

		Convey("Then it is rejected", func() {
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given a small experiment with a sharp judge", t, func() {
		cfg := DefaultConfig()
		cfg.Items = 12
		cfg.Rounds = 500
		cfg.Noise = 0.02
		cfg.Seed = 7

		report, err := Run(ctx, cfg)
		So(err, ShouldBeNil)

		Convey("Then every strategy is reported in order", func() {
			So(report.Results, ShouldHaveLength, 3)
			So(report.Results[0].Strategy, ShouldEqual, "random")
			So(report.Results[1].Strategy, ShouldEqual, "active")
			So(report.Results[2].Strategy, ShouldEqual, "balanced")
			for _, r := range report.Results {
				So(r.Comparisons, ShouldEqual, 500)
				So(r.Coverage.Mean, ShouldAlmostEqual, 1000.0/12, 1e-9)
			}
		})

		Convey("Then the ratings recover the hidden order", func() {
			for _, r := range report.Results {
				So(r.Spearman, ShouldBeGreaterThan, 0.5)
			}
		})

		Convey("Then balanced coverage leaves nothing unseen", func() {
			So(report.Results[2].Coverage.Unseen, ShouldEqual, 0)
		})

		Convey("When the experiment is repeated with the same seed", func() {
			again, err := Run(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then the results are identical", func() {
				for i := range report.Results {
					So(again.Results[i].Spearman, ShouldEqual, report.Results[i].Spearman)
					So(again.Results[i].Coverage, ShouldResemble, report.Results[i].Coverage)
				}
			})
		})

		Convey("When the report is rendered", func() {
			var table, js bytes.Buffer
			So(report.WriteTable(&table), ShouldBeNil)
			So(report.WriteJSON(&js), ShouldBeNil)

			Convey("Then both forms name the strategies", func() {
				So(table.String(), ShouldContainSubstring, "SPEARMAN")
				So(table.String(), ShouldContainSubstring, "balanced")
				So(js.String(), ShouldContainSubstring, `"strategy": "active"`)
			})
		})
	})

	Convey("Given a single requested strategy", t, func() {
		cfg := DefaultConfig()
		cfg.Items = 5
		cfg.Rounds = 10
		cfg.Strategies = []selector.Strategy{selector.Random}
		report, err := Run(ctx, cfg)

		Convey("Then only that strategy runs", func() {
			So(err, ShouldBeNil)
			So(report.Results, ShouldHaveLength, 1)
			So(report.Results[0].Fallbacks, ShouldEqual, 0)
		})
	})
}
