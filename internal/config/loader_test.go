package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sentrylab/vigil/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	ctx := context.Background()

	Convey("Given no environment overrides", t, func() {
		cfg, err := config.Load(ctx)

		Convey("Then loading yields the reference defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.TargetClass, ShouldEqual, "person")
			So(cfg.ConfThreshold, ShouldEqual, 0.75)
			So(cfg.IoUThreshold, ShouldEqual, 0.5)
			So(cfg.SampleWindow, ShouldEqual, 5*time.Second)
			So(cfg.SampleRate, ShouldEqual, 10)
			So(cfg.CycleSleep, ShouldEqual, 2*time.Second)
			So(cfg.AlertThreshold, ShouldEqual, 2*time.Second)
			So(cfg.ImageMaxBytes, ShouldEqual, 100<<10)
			So(cfg.JPEGStartQuality, ShouldEqual, 85)
			So(cfg.JPEGQualityStep, ShouldEqual, 5)
			So(cfg.JPEGQualityFloor, ShouldEqual, 10)
			So(cfg.DetectStrategy, ShouldEqual, "first-match")
			So(cfg.EvidencePolicy, ShouldEqual, "send")
			So(cfg.DispatchQueueSize, ShouldEqual, 16)
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	ctx := context.Background()

	Convey("Given environment overrides", t, func() {
		t.Setenv("VIGIL_TARGET_CLASS", "dog")
		t.Setenv("VIGIL_SAMPLE_WINDOW", "3s")
		t.Setenv("VIGIL_SAMPLE_RATE", "5")
		t.Setenv("VIGIL_DETECT_STRATEGY", "best-of-window")
		t.Setenv("VIGIL_EVIDENCE_POLICY", "save-and-send")

		cfg, err := config.Load(ctx)

		Convey("Then env values win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.TargetClass, ShouldEqual, "dog")
			So(cfg.SampleWindow, ShouldEqual, 3*time.Second)
			So(cfg.SampleRate, ShouldEqual, 5)
			So(cfg.DetectStrategy, ShouldEqual, "best-of-window")
			So(cfg.EvidencePolicy, ShouldEqual, "save-and-send")
		})
	})

	Convey("Given an unknown target class in the environment", t, func() {
		t.Setenv("VIGIL_TARGET_CLASS", "unicorn")

		_, err := config.Load(ctx)

		Convey("Then loading fails before the pipeline can start", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "unicorn")
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	ctx := context.Background()

	Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "vigil.yaml")
		yaml := "target_class: cat\nsample_rate: 2\nalert_threshold: 4s\n"
		So(os.WriteFile(path, []byte(yaml), 0o644), ShouldBeNil)
		t.Setenv("VIGIL_CONFIG", path)

		Convey("When loading without env overrides", func() {
			cfg, err := config.Load(ctx)

			Convey("Then file values layer over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.TargetClass, ShouldEqual, "cat")
				So(cfg.SampleRate, ShouldEqual, 2)
				So(cfg.AlertThreshold, ShouldEqual, 4*time.Second)
				So(cfg.Addr, ShouldEqual, ":9080")
			})
		})

		Convey("When an env var contradicts the file", func() {
			t.Setenv("VIGIL_TARGET_CLASS", "dog")
			cfg, err := config.Load(ctx)

			Convey("Then env wins", func() {
				So(err, ShouldBeNil)
				So(cfg.TargetClass, ShouldEqual, "dog")
			})
		})
	})

	Convey("Given a missing config file", t, func() {
		t.Setenv("VIGIL_CONFIG", "/does/not/exist.yaml")

		_, err := config.Load(ctx)
		So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given a valid base config", t, func() {
		base := config.New()
		So(base.Validate(), ShouldBeNil)

		check := func(mutate func(*config.Config), fragment string) {
			cfg := *base
			mutate(&cfg)
			err := cfg.Validate()
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, fragment)
		}

		Convey("Each invalid field is rejected", func() {
			check(func(c *config.Config) { c.Addr = "" }, "addr")
			check(func(c *config.Config) { c.TargetClass = "ghost" }, "ghost")
			check(func(c *config.Config) { c.ConfThreshold = 1.5 }, "conf_threshold")
			check(func(c *config.Config) { c.IoUThreshold = 0 }, "iou_threshold")
			check(func(c *config.Config) { c.SampleWindow = 0 }, "sample_window")
			check(func(c *config.Config) { c.SampleRate = -1 }, "sample_rate")
			check(func(c *config.Config) { c.CycleSleep = -time.Second }, "cycle_sleep")
			check(func(c *config.Config) { c.AlertThreshold = 0 }, "alert_threshold")
			check(func(c *config.Config) { c.AlertSinkURL = "" }, "alert_sink_url")
			check(func(c *config.Config) { c.DetectorURL = "" }, "detector_url")
			check(func(c *config.Config) { c.CameraDevice = -1 }, "camera_device")
			check(func(c *config.Config) { c.ImageMaxBytes = 0 }, "image_max_bytes")
			check(func(c *config.Config) { c.JPEGStartQuality = 101 }, "jpeg_start_quality")
			check(func(c *config.Config) { c.JPEGQualityFloor = 90 }, "jpeg_quality_floor")
			check(func(c *config.Config) { c.JPEGQualityStep = 0 }, "jpeg_quality_step")
			check(func(c *config.Config) { c.DetectStrategy = "psychic" }, "detect_strategy")
			check(func(c *config.Config) { c.EvidencePolicy = "shred" }, "evidence_policy")
			check(func(c *config.Config) { c.DispatchQueueSize = 0 }, "dispatch_queue_size")
			check(func(c *config.Config) { c.DispatchTimeout = 0 }, "dispatch_timeout")
		})

		Convey("A save policy requires an evidence directory", func() {
			cfg := *base
			cfg.EvidencePolicy = "save"
			cfg.EvidenceDir = ""
			So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestLoadAlertd(t *testing.T) {
	ctx := context.Background()

	Convey("Given complete alertd credentials in the environment", t, func() {
		t.Setenv("ALERTD_BOT_TOKEN", "123:abc")
		t.Setenv("ALERTD_CHAT_ID", "4567")

		cfg, err := config.LoadAlertd(ctx)

		Convey("Then loading succeeds with defaults for the rest", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8000")
			So(cfg.BotToken, ShouldEqual, "123:abc")
			So(cfg.ChatID, ShouldEqual, "4567")
			So(cfg.RequestTimeout, ShouldEqual, 15*time.Second)
		})
	})

	Convey("Given missing credentials", t, func() {
		t.Setenv("ALERTD_BOT_TOKEN", "")
		t.Setenv("ALERTD_CHAT_ID", "")

		_, err := config.LoadAlertd(ctx)

		Convey("Then loading fails; there is no degraded mode", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
