package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/clerb/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DatabaseType, convey.ShouldEqual, "sqlite")
				convey.So(cfg.DatabasePath, convey.ShouldEqual, "clerb.db")
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 3600)
				convey.So(cfg.IsPostgres(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CLERB_ADDR", ":8080")
			_ = os.Setenv("CLERB_COLOR_QUEUE_SIZE", "64")
			_ = os.Setenv("CLERB_COLOR_WORKER_COUNT", "3")
			_ = os.Setenv("CLERB_DATABASE_TYPE", "postgres")
			_ = os.Setenv("CLERB_DATABASE_URL", "postgres://clerb@localhost/clerb?sslmode=disable")
			_ = os.Setenv("CLERB_LISTEN_CHANGES", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ColorQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.ColorWorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.IsPostgres(), convey.ShouldBeTrue)
				convey.So(cfg.ListenChanges, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
redis_addr: "localhost:6379"
cache_ttl_seconds: 120
catalog_rate_per_second: 2.5
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CLERB_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 120)
				convey.So(cfg.CatalogRatePerSecond, convey.ShouldEqual, 2.5)
			})

			convey.Convey("And env vars should win over the file", func() {
				_ = os.Setenv("CLERB_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("CLERB_CONFIG", "/nonexistent/clerb.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When postgres is selected without a URL", func() {
			_ = os.Setenv("CLERB_DATABASE_TYPE", "postgres")

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When listen_changes is set for sqlite", func() {
			_ = os.Setenv("CLERB_LISTEN_CHANGES", "true")

			_, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the database type is unknown", func() {
			_ = os.Setenv("CLERB_DATABASE_TYPE", "mongo")

			_, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"CLERB_CONFIG",
		"CLERB_ADDR",
		"CLERB_COLOR_QUEUE_SIZE",
		"CLERB_COLOR_WORKER_COUNT",
		"CLERB_DATABASE_TYPE",
		"CLERB_DATABASE_URL",
		"CLERB_LISTEN_CHANGES",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "clerb-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
