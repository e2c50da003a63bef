package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentrylab/vigil/internal/adapters/camera"
	"github.com/sentrylab/vigil/internal/adapters/http/api"
	"github.com/sentrylab/vigil/internal/adapters/sink"
	"github.com/sentrylab/vigil/internal/adapters/yolo"
	"github.com/sentrylab/vigil/internal/alert"
	service "github.com/sentrylab/vigil/internal/app"
	"github.com/sentrylab/vigil/internal/config"
	"github.com/sentrylab/vigil/internal/detect"
	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/internal/evidence"
	"github.com/sentrylab/vigil/internal/imaging"
	"github.com/sentrylab/vigil/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Open the capture device up front so a missing camera fails fast.
	cam, err := camera.Open(cfg.CameraDevice)
	if err != nil {
		log.Error(ctx, "failed to open camera",
			logger.Int("device", cfg.CameraDevice), logger.Error(err))
		return
	}

	detector := yolo.NewClient(cfg.DetectorURL,
		yolo.WithThresholds(cfg.ConfThreshold, cfg.IoUThreshold))
	alertSink := sink.NewClient(cfg.AlertSinkURL)

	policy := alert.ParsePolicy(cfg.EvidencePolicy)

	opts := []service.Option{
		service.WithFrameSource(cam),
		service.WithDetector(detector),
		service.WithSink(alertSink),
		service.WithRenderer(imaging.NewBoxRenderer()),
		service.WithTargetClass(cfg.TargetClass),
		service.WithMinScore(cfg.ConfThreshold),
		service.WithSampling(cfg.SampleWindow, cfg.SampleRate),
		service.WithCycleSleep(cfg.CycleSleep),
		service.WithAlertThreshold(cfg.AlertThreshold),
		service.WithStrategy(detect.ParseStrategy(cfg.DetectStrategy)),
		service.WithEvidencePolicy(policy),
		service.WithCompressionBudget(model.CompressionBudget{
			MaxBytes:     cfg.ImageMaxBytes,
			StartQuality: cfg.JPEGStartQuality,
			QualityStep:  cfg.JPEGQualityStep,
			QualityFloor: cfg.JPEGQualityFloor,
		}),
		service.WithDispatchQueueSize(cfg.DispatchQueueSize),
		service.WithDispatchTimeout(cfg.DispatchTimeout),
		service.WithLogger(log.Named("pipeline")),
	}

	// Evidence storage only runs under the save policies.
	if policy == alert.PolicySave || policy == alert.PolicySaveAndSend {
		store, err := evidence.NewStore(cfg.EvidenceDir,
			evidence.WithMaxBytes(cfg.EvidenceMaxBytes))
		if err != nil {
			log.Error(ctx, "failed to open evidence store",
				logger.String("dir", cfg.EvidenceDir), logger.Error(err))
			return
		}
		go store.RunSweeper(ctx)
		opts = append(opts, service.WithSaver(store))
	}

	// Live feed hub for websocket subscribers.
	hub := api.NewHub()
	go hub.Run(ctx)
	opts = append(opts, service.WithBroadcaster(hub))

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start pipeline", logger.Error(err))
		return
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(svc, hub).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting ops HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "stopped")
}
