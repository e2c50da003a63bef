// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializers that build configs with defaults.
// - Validation happens once at load time; the pipeline never re-checks.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Config contains the detection pipeline configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the ops HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TargetClass is the class whose sustained presence triggers alerts.
	// Must be a member of the detector's supported class set.
	TargetClass string `koanf:"target_class"`

	// ConfThreshold and IoUThreshold are forwarded to the detector.
	ConfThreshold float64 `koanf:"conf_threshold"`
	IoUThreshold  float64 `koanf:"iou_threshold"`

	// SampleWindow is the wall-clock duration of one capture window.
	SampleWindow time.Duration `koanf:"sample_window"`

	// SampleRate is the target capture rate in frames per second.
	SampleRate float64 `koanf:"sample_rate"`

	// CycleSleep is the pause between consecutive cycles.
	CycleSleep time.Duration `koanf:"cycle_sleep"`

	// AlertThreshold is the minimum continuous detection duration before
	// an episode fires.
	AlertThreshold time.Duration `koanf:"alert_threshold"`

	// AlertSinkURL is the base URL of the notification backend.
	AlertSinkURL string `koanf:"alert_sink_url"`

	// DetectorURL is the base URL of the object detection service.
	DetectorURL string `koanf:"detector_url"`

	// CameraDevice selects the capture device index.
	CameraDevice int `koanf:"camera_device"`

	// ImageMaxBytes bounds the compressed evidence image size.
	ImageMaxBytes int `koanf:"image_max_bytes"`

	// JPEG re-encode schedule for the evidence image.
	JPEGStartQuality int `koanf:"jpeg_start_quality"`
	JPEGQualityStep  int `koanf:"jpeg_quality_step"`
	JPEGQualityFloor int `koanf:"jpeg_quality_floor"`

	// DetectStrategy selects window reduction: first-match or best-of-window.
	DetectStrategy string `koanf:"detect_strategy"`

	// EvidencePolicy selects what happens to the rendered evidence image:
	// send, save, or save-and-send.
	EvidencePolicy string `koanf:"evidence_policy"`

	// EvidenceDir is where saved evidence images land.
	EvidenceDir string `koanf:"evidence_dir"`

	// EvidenceMaxBytes caps the evidence directory size before the
	// oldest files are swept.
	EvidenceMaxBytes int64 `koanf:"evidence_max_bytes"`

	// DispatchQueueSize bounds the in-flight alert dispatch queue.
	DispatchQueueSize int `koanf:"dispatch_queue_size"`

	// DispatchTimeout bounds how long shutdown waits for in-flight
	// dispatches to finish.
	DispatchTimeout time.Duration `koanf:"dispatch_timeout"`
}

// New creates a Config with production defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		TargetClass:       "person",
		ConfThreshold:     0.75,
		IoUThreshold:      0.5,
		SampleWindow:      5 * time.Second,
		SampleRate:        10,
		CycleSleep:        2 * time.Second,
		AlertThreshold:    2 * time.Second,
		AlertSinkURL:      "http://localhost:8000",
		DetectorURL:       "http://localhost:8081",
		CameraDevice:      0,
		ImageMaxBytes:     100 << 10,
		JPEGStartQuality:  85,
		JPEGQualityStep:   5,
		JPEGQualityFloor:  10,
		DetectStrategy:    "first-match",
		EvidencePolicy:    "send",
		EvidenceDir:       "output",
		EvidenceMaxBytes:  4 << 30,
		DispatchQueueSize: 16,
		DispatchTimeout:   10 * time.Second,
	}
}

// AlertdConfig contains the alert relay daemon configuration.
type AlertdConfig struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// BotToken authenticates against the Telegram Bot API. Required.
	BotToken string `koanf:"bot_token"`

	// ChatID is the destination chat for relayed alerts. Required.
	ChatID string `koanf:"chat_id"`

	// RequestTimeout bounds each outbound Telegram call.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// NewAlertd creates an AlertdConfig with defaults. BotToken and ChatID
// have no defaults and must come from the environment or file.
func NewAlertd() *AlertdConfig {
	return &AlertdConfig{
		LogLevel:       "info",
		Addr:           ":8000",
		RequestTimeout: 15 * time.Second,
	}
}
