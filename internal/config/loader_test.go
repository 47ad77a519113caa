package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/aptrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.KFactor, convey.ShouldEqual, 32)
				convey.So(cfg.RecentWindow, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("APTRANK_ADDR", ":8080")
			_ = os.Setenv("APTRANK_K_FACTOR", "24")
			_ = os.Setenv("APTRANK_RECENT_WINDOW", "3")
			_ = os.Setenv("APTRANK_DEFAULT_STRATEGY", "active")
			_ = os.Setenv("APTRANK_SHEET_URL", "listings.csv")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.KFactor, convey.ShouldEqual, 24)
				convey.So(cfg.RecentWindow, convey.ShouldEqual, 3)
				convey.So(cfg.DefaultStrategy, convey.ShouldEqual, "active")
				convey.So(cfg.SheetURL, convey.ShouldEqual, "listings.csv")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
db_path: "/tmp/ranks.db"
db_journal_mode: DELETE
coverage_threshold: 4
area_hints:
  - substring: Brooklyn
    lat: 40.6782
    lon: -73.9442
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("APTRANK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep defaults elsewhere", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/ranks.db")
				convey.So(cfg.DBJournalMode, convey.ShouldEqual, "DELETE")
				convey.So(cfg.CoverageThreshold, convey.ShouldEqual, 4)
				convey.So(cfg.KFactor, convey.ShouldEqual, 32)
				convey.So(cfg.AreaHints, convey.ShouldHaveLength, 1)
				convey.So(cfg.AreaHints[0].Substring, convey.ShouldEqual, "Brooklyn")
				convey.So(cfg.AreaHints[0].Lat, convey.ShouldEqual, 40.6782)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, "addr: \":9090\"\nmax_images: 3\n")
			_ = os.Setenv("APTRANK_CONFIG", tmpFile)
			_ = os.Setenv("APTRANK_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxImages, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("APTRANK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("APTRANK_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("APTRANK_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("APTRANK_RECENT_WINDOW", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"APTRANK_CONFIG", "APTRANK_ADDR", "APTRANK_K_FACTOR", "APTRANK_RECENT_WINDOW",
		"APTRANK_DEFAULT_STRATEGY", "APTRANK_SHEET_URL",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "aptrank.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
