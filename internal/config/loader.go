package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sentrylab/vigil/internal/domain/classes"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VIGIL_CONFIG is set
//  3. env (prefix VIGIL_)
//
// The result is validated before it is returned; a Config that fails
// validation never reaches the pipeline.
func Load(ctx context.Context) (*Config, error) {
	cfg := *New()
	if err := layer(ctx, "VIGIL", os.Getenv("VIGIL_CONFIG"), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAlertd builds the alert relay daemon config the same way, with the
// ALERTD_ env prefix and optional ALERTD_CONFIG file.
func LoadAlertd(ctx context.Context) (*AlertdConfig, error) {
	cfg := *NewAlertd()
	if err := layer(ctx, "ALERTD", os.Getenv("ALERTD_CONFIG"), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// layer loads an optional YAML file then env vars with the given prefix
// into dst. Env keys map VIGIL_SAMPLE_RATE -> sample_rate to match the
// koanf tags on the structs.
func layer(_ context.Context, prefix, path string, dst any) error {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	lower := strings.ToLower(prefix) + "_"
	envProvider := env.Provider(prefix+"_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), lower)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", dst, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return nil
}

// Validate checks the pipeline config. All failures here are fatal at
// startup; the loop must not start on a bad config.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Addr == "" {
		return fail("addr must not be empty")
	}
	if err := classes.Validate(c.TargetClass); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.ConfThreshold <= 0 || c.ConfThreshold > 1 {
		return fail("conf_threshold %v out of (0,1]", c.ConfThreshold)
	}
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		return fail("iou_threshold %v out of (0,1]", c.IoUThreshold)
	}
	if c.SampleWindow <= 0 {
		return fail("sample_window must be positive, got %v", c.SampleWindow)
	}
	if c.SampleRate <= 0 {
		return fail("sample_rate must be positive, got %v", c.SampleRate)
	}
	if c.CycleSleep < 0 {
		return fail("cycle_sleep must not be negative, got %v", c.CycleSleep)
	}
	if c.AlertThreshold <= 0 {
		return fail("alert_threshold must be positive, got %v", c.AlertThreshold)
	}
	if c.AlertSinkURL == "" {
		return fail("alert_sink_url must not be empty")
	}
	if c.DetectorURL == "" {
		return fail("detector_url must not be empty")
	}
	if c.CameraDevice < 0 {
		return fail("camera_device must not be negative, got %d", c.CameraDevice)
	}
	if c.ImageMaxBytes <= 0 {
		return fail("image_max_bytes must be positive, got %d", c.ImageMaxBytes)
	}
	if c.JPEGStartQuality < 1 || c.JPEGStartQuality > 100 {
		return fail("jpeg_start_quality %d out of [1,100]", c.JPEGStartQuality)
	}
	if c.JPEGQualityFloor < 1 || c.JPEGQualityFloor > c.JPEGStartQuality {
		return fail("jpeg_quality_floor %d out of [1,start_quality]", c.JPEGQualityFloor)
	}
	if c.JPEGQualityStep <= 0 {
		return fail("jpeg_quality_step must be positive, got %d", c.JPEGQualityStep)
	}
	switch c.DetectStrategy {
	case "first-match", "best-of-window":
	default:
		return fail("detect_strategy %q must be first-match or best-of-window", c.DetectStrategy)
	}
	switch c.EvidencePolicy {
	case "send", "save", "save-and-send":
	default:
		return fail("evidence_policy %q must be send, save or save-and-send", c.EvidencePolicy)
	}
	if c.EvidencePolicy != "send" && c.EvidenceDir == "" {
		return fail("evidence_dir must not be empty when evidence is saved")
	}
	if c.EvidenceMaxBytes <= 0 {
		return fail("evidence_max_bytes must be positive, got %d", c.EvidenceMaxBytes)
	}
	if c.DispatchQueueSize <= 0 {
		return fail("dispatch_queue_size must be positive, got %d", c.DispatchQueueSize)
	}
	if c.DispatchTimeout <= 0 {
		return fail("dispatch_timeout must be positive, got %v", c.DispatchTimeout)
	}
	return nil
}

// Validate checks the alertd config. Credentials are required; there is
// no degraded mode without a reachable Telegram bot.
func (c *AlertdConfig) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BotToken == "":
		return fmt.Errorf("%w: bot_token is required", ErrInvalidConfig)
	case c.ChatID == "":
		return fmt.Errorf("%w: chat_id is required", ErrInvalidConfig)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("%w: request_timeout must be positive, got %v", ErrInvalidConfig, c.RequestTimeout)
	}
	return nil
}
