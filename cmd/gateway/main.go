package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"theranotes-go/internal/api/handlers"
	"theranotes-go/internal/api/routes"
	"theranotes-go/internal/audio"
	"theranotes-go/internal/config"
	"theranotes-go/internal/health"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/observe"
	"theranotes-go/internal/pipeline"
	"theranotes-go/internal/server"
)

const stagesWarmup = 2 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load(config.GatewayPort)
	if err != nil {
		logger.New().WithError(err).Error("invalid configuration")
		return 1
	}
	log := logger.NewWithOptions(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Service:     "gateway",
	})
	log.WithFields(map[string]interface{}{
		"transcriber_url": cfg.Stages.TranscriberURL,
		"notary_url":      cfg.Stages.NotaryURL,
		"formatter_url":   cfg.Stages.FormatterBaseURL(),
	}).Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := observe.InitProvider(observe.ProviderConfig{
		ServiceName:    "theranotes-gateway",
		ServiceVersion: handlers.Version,
	})
	if err != nil {
		log.WithError(err).Error("failed to init metrics provider")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics provider shutdown")
		}
	}()
	metrics, err := observe.NewMetrics(provider.MeterProvider())
	if err != nil {
		log.WithError(err).Error("failed to create metrics")
		return 1
	}

	orch := pipeline.New(pipeline.FromStages(cfg.Stages), log, pipeline.WithMetrics(metrics))
	go func() {
		if err := orch.WaitReady(ctx, stagesWarmup); err != nil {
			log.WithError(err).Warn("stages not ready; requests will fail until they come up")
		}
	}()

	if cfg.Environment != "" && cfg.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.NewEngine(log, metrics)
	routes.RegisterGateway(r, routes.GatewayDeps{
		Handler: handlers.NewGatewayHandler(orch, audio.Policy{MaxBytes: cfg.MaxFileSizeBytes()}),
		Health:  health.New("gateway", orch.Checks()...),
		Metrics: provider.Handler(),
	})

	total := cfg.Stages.TranscribeTimeout + cfg.Stages.ExtractTimeout + cfg.Stages.FormatTimeout
	srv := server.New(cfg.Port, server.WithCORS(r, cfg.CORSOrigins), total+30*time.Second)
	if err := server.Run(ctx, srv, log); err != nil {
		log.WithError(err).Error("server terminated")
		return 1
	}
	return 0
}
