package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/guardiansafety/aegis/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.NormalIntervalMS, convey.ShouldEqual, 30_000)
				convey.So(cfg.EmergencyIntervalMS, convey.ShouldEqual, 10_000)
				convey.So(cfg.ScoreCacheTTLMS, convey.ShouldEqual, 300_000)
				convey.So(cfg.ConnectivityPollMS, convey.ShouldEqual, 30_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("AEGIS_ADDR", ":9090")
			_ = os.Setenv("AEGIS_NORMAL_INTERVAL_MS", "15000")
			_ = os.Setenv("AEGIS_EMERGENCY_INTERVAL_MS", "5000")
			_ = os.Setenv("AEGIS_DELIVERY_ATTEMPTS", "5")
			_ = os.Setenv("AEGIS_LOW_CONFIDENCE_THRESHOLD", "50")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.NormalIntervalMS, convey.ShouldEqual, 15_000)
				convey.So(cfg.EmergencyIntervalMS, convey.ShouldEqual, 5_000)
				convey.So(cfg.DeliveryAttempts, convey.ShouldEqual, 5)
				convey.So(cfg.LowConfidenceThreshold, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":7070"
normal_interval_ms: 20000
accuracy_ceiling_m: 500
score_weights:
  crime_index: 0.5
  lighting: 0.5
history_db_path: "/tmp/audit.db"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("AEGIS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.NormalIntervalMS, convey.ShouldEqual, 20_000)
				convey.So(cfg.AccuracyCeilingM, convey.ShouldEqual, 500)
				convey.So(cfg.ScoreWeights["crime_index"], convey.ShouldEqual, 0.5)
				convey.So(cfg.HistoryDBPath, convey.ShouldEqual, "/tmp/audit.db")
			})

			convey.Convey("Then missing fields keep their defaults", func() {
				convey.So(cfg.EmergencyIntervalMS, convey.ShouldEqual, 10_000)
				convey.So(cfg.SoundThrottleMS, convey.ShouldEqual, 2_000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":7070"
normal_interval_ms: 20000
ping_timeout_ms: 3000
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("AEGIS_CONFIG", tmpFile)
			_ = os.Setenv("AEGIS_ADDR", ":9090")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.NormalIntervalMS, convey.ShouldEqual, 20_000)
				convey.So(cfg.PingTimeoutMS, convey.ShouldEqual, 3_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("AEGIS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("AEGIS_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("AEGIS_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-positive interval", func() {
			_ = os.Setenv("AEGIS_NORMAL_INTERVAL_MS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a negative weight", func() {
			yamlContent := `
score_weights:
  crime_index: -0.3
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("AEGIS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a negative area freshness", func() {
			_ = os.Setenv("AEGIS_AREA_FRESHNESS_MS", "-1")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("AEGIS_NORMAL_INTERVAL_MS", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"AEGIS_CONFIG",
		"AEGIS_ADDR",
		"AEGIS_NORMAL_INTERVAL_MS",
		"AEGIS_EMERGENCY_INTERVAL_MS",
		"AEGIS_DELIVERY_ATTEMPTS",
		"AEGIS_LOW_CONFIDENCE_THRESHOLD",
		"AEGIS_AREA_FRESHNESS_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "aegis-config-*.yaml")
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
