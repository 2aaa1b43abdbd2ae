package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"ai-chat-be/internal/bootstrap"
	"ai-chat-be/internal/config"
	"ai-chat-be/internal/metrics"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/tracer"
	"ai-chat-be/pkg/database"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] Invalid configuration: %v", err)
	}
	if cfg.Queue.Driver == "memory" {
		log.Fatal("[FATAL] QUEUE_DRIVER=memory only works inside the API process (WORKER_EMBEDDED=true)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := tracer.InitTracer(cfg.Telemetry)
	defer shutdownTracer(context.Background())

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.LogQueries)
	if err != nil {
		log.Fatalf("[FATAL] Unable to connect to database: %v", err)
	}

	infra, err := bootstrap.NewInfrastructure(ctx, gormDB, cfg, sysLogger, true)
	if err != nil {
		log.Fatalf("[FATAL] Queue unavailable: %v", err)
	}

	consumer, err := bootstrap.NewConsumerService(cfg, infra, bootstrap.WorkerNotifier(infra))
	if err != nil {
		infra.Close()
		log.Fatalf("[FATAL] %v", err)
	}
	if err := consumer.Consume(ctx); err != nil {
		infra.Close()
		log.Fatalf("[FATAL] Failed to start consumer: %v", err)
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	go func() {
		if err := app.Listen(":" + cfg.App.WorkerMetricsPort); err != nil {
			log.Printf("[WARN] Metrics endpoint stopped: %v", err)
		}
	}()

	log.Printf("[INFO] Worker consuming %s (concurrency %d)", cfg.Queue.Subject, cfg.Queue.Concurrency)
	<-ctx.Done()

	log.Println("[INFO] Shutting down worker, waiting for in-flight jobs...")
	_ = app.Shutdown()
	infra.Close()
}
