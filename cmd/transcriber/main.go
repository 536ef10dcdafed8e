package main

import (
	"context"
	"io"
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
	"theranotes-go/internal/server"
	"theranotes-go/internal/transcription"
)

const engineWarmup = 2 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load() // loads .env

	cfg, err := config.Load(config.TranscriberPort)
	if err != nil {
		logger.New().WithError(err).Error("invalid configuration")
		return 1
	}
	log := logger.NewWithOptions(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Service:     "transcriber",
	})
	log.WithFields(map[string]interface{}{
		"engine":  cfg.Whisper.Engine,
		"workers": cfg.Whisper.Workers,
	}).Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := transcription.NewEngine(cfg.Whisper, log)
	if err != nil {
		log.WithError(err).Error("failed to build transcription engine")
		return 1
	}
	if c, ok := engine.(io.Closer); ok {
		defer c.Close()
	}
	if p, ok := engine.(transcription.Pinger); ok {
		go func() {
			if err := transcription.WaitReady(ctx, p, engineWarmup, log); err != nil {
				log.WithError(err).Warn("transcription engine not ready; /readyz will keep failing")
			}
		}()
	}

	svc := transcription.NewService(engine, cfg.Whisper.Workers, log)
	stager, err := audio.NewStager(cfg.TempDir, cfg.MaxFileSizeBytes(), log)
	if err != nil {
		log.WithError(err).Error("failed to prepare temp dir")
		return 1
	}
	h := handlers.NewTranscriberHandler(svc, stager, audio.Policy{MaxBytes: cfg.MaxFileSizeBytes()}, cfg.Stages.TranscribeTimeout)

	if cfg.Environment != "" && cfg.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.NewEngine(log, nil)
	routes.RegisterTranscriber(r, routes.TranscriberDeps{
		Handler:   h,
		Health:    health.New("transcriber", health.Checker{Name: "engine", Check: svc.Ready}),
		ModelSize: cfg.Whisper.ModelSize,
		Workers:   cfg.Whisper.Workers,
	})

	srv := server.New(cfg.Port, server.WithCORS(r, cfg.CORSOrigins), cfg.Stages.TranscribeTimeout+30*time.Second)
	if err := server.Run(ctx, srv, log); err != nil {
		log.WithError(err).Error("server terminated")
		return 1
	}
	log.Info("goodbye")
	return 0
}
