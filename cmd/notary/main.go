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
	"theranotes-go/internal/config"
	"theranotes-go/internal/extractor"
	"theranotes-go/internal/health"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/ner"
	"theranotes-go/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load(config.NotaryPort)
	if err != nil {
		logger.New().WithError(err).Error("invalid configuration")
		return 1
	}
	log := logger.NewWithOptions(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Service:     "notary",
	})

	capability := ner.Unavailable()
	if cfg.NEREnabled {
		capability = ner.Available(ner.NewDefault())
	}
	log.WithField("ner_available", capability.Available()).Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Environment != "" && cfg.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.NewEngine(log, nil)
	routes.RegisterNotary(r, routes.NotaryDeps{
		Handler: handlers.NewNotaryHandler(extractor.New(capability)),
		Health:  health.New("notary"),
	})

	srv := server.New(cfg.Port, server.WithCORS(r, cfg.CORSOrigins), time.Minute)
	if err := server.Run(ctx, srv, log); err != nil {
		log.WithError(err).Error("server terminated")
		return 1
	}
	return 0
}
