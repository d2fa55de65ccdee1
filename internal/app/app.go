// Package app wires configuration, collaborators and servers into one
// runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/rtc-attention/internal/attention/classifier"
	"github.com/yungbote/rtc-attention/internal/attention/pipeline"
	"github.com/yungbote/rtc-attention/internal/attention/session"
	"github.com/yungbote/rtc-attention/internal/config"
	"github.com/yungbote/rtc-attention/internal/events"
	httpapi "github.com/yungbote/rtc-attention/internal/http"
	httpH "github.com/yungbote/rtc-attention/internal/http/handlers"
	"github.com/yungbote/rtc-attention/internal/observability"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
	"github.com/yungbote/rtc-attention/internal/vision"
)

var version = "dev"

type App struct {
	Log      *logger.Logger
	Config   *config.Config
	Metrics  *observability.Metrics
	Pipeline *pipeline.Pipeline
	Hub      *events.Hub

	detector     vision.Detector
	bus          events.Bus
	server       *httpapi.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	mode, err := classifier.ParseMode(cfg.Classifier.Mode)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Observability.Tracing,
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Env,
		Version:     version,
	})
	metrics := observability.New(cfg.Observability.Metrics)

	detector, err := newDetector(ctx, log, cfg.Detector)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init detector: %w", err)
	}

	hub := events.NewHub(log)
	bus, err := newBus(ctx, log, cfg.Events)
	if err != nil {
		_ = detector.Close()
		log.Sync()
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	store := session.NewStore(session.Options{
		MaxUsers:         cfg.Session.MaxUsers,
		MaxHistory:       cfg.Session.MaxHistory,
		MaxMeasurements:  cfg.Session.MaxMeasurements,
		IdleTimeout:      cfg.Session.IdleTimeout.Duration,
		EvictionInterval: cfg.Session.EvictionInterval.Duration,
	})
	p := pipeline.New(store, detector, pipeline.Options{
		Mode:           mode,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		AcquireTimeout: cfg.Pipeline.AcquireTimeout.Duration,
		MaxImageSide:   cfg.Pipeline.MaxImageSide,
		MaxImagePixels: cfg.Pipeline.MaxImagePixels,
		Metrics:        metrics,
		Events:         bus,
		Log:            log,
	})

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.Observability.ServiceName,
		CORSOrigins:      cfg.HTTP.CORSOrigins,
		MaxRequestBytes:  cfg.HTTP.MaxRequestBytes,
		AttentionHandler: httpH.NewAttentionHandler(log, p),
		RoomHandler:      httpH.NewRoomHandler(log, p, hub),
		HealthHandler:    httpH.NewHealthHandler(p, readiness(detector)),
	})
	server := httpapi.NewServer(cfg.HTTP, router, log)
	server.OnShutdown(hub.CloseAll)

	log.Info("attention service configured",
		"detector", cfg.Detector.Type,
		"classifier_mode", mode,
		"max_users", cfg.Session.MaxUsers,
		"redis_events", cfg.Events.RedisAddr != "",
		"metrics", cfg.Observability.Metrics,
		"tracing", cfg.Observability.Tracing,
	)

	return &App{
		Log:          log,
		Config:       cfg,
		Metrics:      metrics,
		Pipeline:     p,
		Hub:          hub,
		detector:     detector,
		bus:          bus,
		server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves until ctx ends or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return errors.New("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	if err := a.bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		return fmt.Errorf("start event forwarder: %w", err)
	}
	if rb, ok := a.bus.(*events.RedisBus); ok {
		a.Metrics.StartRedisCollector(ctx, a.Log, rb.Client(), 0)
	}

	g.Go(func() error { return a.server.Run(ctx) })
	g.Go(func() error {
		return a.Pipeline.Janitor(ctx, a.Config.Session.EvictionInterval.Duration)
	})
	if a.Metrics != nil && a.Config.Observability.MetricsAddr != "" {
		srv := a.Metrics.Server(a.Config.Observability.MetricsAddr)
		g.Go(func() error {
			return httpapi.Serve(ctx, srv, a.Config.HTTP.ShutdownTimeout.Duration, a.Log.With("component", "metrics"))
		})
	}

	err := g.Wait()
	if errors.Is(err, nethttp.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.Log.Warn("close event bus", "error", err)
		}
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.Log.Warn("close detector", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
		cancel()
	}
	a.Log.Sync()
}
