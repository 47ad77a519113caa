package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/aptrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.InitialRating, convey.ShouldEqual, 1000)
			convey.So(cfg.KFactor, convey.ShouldEqual, 32)
			convey.So(cfg.RecentWindow, convey.ShouldEqual, 5)
			convey.So(cfg.CoverageThreshold, convey.ShouldEqual, 2)
			convey.So(cfg.DefaultStrategy, convey.ShouldEqual, "balanced")
			convey.So(cfg.LinkColumn, convey.ShouldEqual, "Link")
			convey.So(cfg.MaxImages, convey.ShouldEqual, 6)
			convey.So(cfg.AreaHints, convey.ShouldHaveLength, 4)
			convey.So(cfg.HTTPTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("When k_factor is not positive", func() {
			cfg.KFactor = 0

			convey.Convey("Then validation fails with ErrInvalidConfig", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "k_factor")
			})
		})

		convey.Convey("When the link column is blank", func() {
			cfg.LinkColumn = "  "

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the recent window is negative", func() {
			cfg.RecentWindow = -1

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the history limit is zero", func() {
			cfg.MaxHistoryLimit = 0

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})
	})
}
