package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ai-chat-be/internal/bootstrap"
	"ai-chat-be/internal/config"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/server"
	"ai-chat-be/internal/tracer"
	"ai-chat-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := tracer.InitTracer(cfg.Telemetry)
	defer shutdownTracer(context.Background())

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.LogQueries)
	if err != nil {
		log.Fatalf("[FATAL] Unable to connect to database: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Bootstrap failed: %v", err)
	}
	defer container.Infra.Close()

	// 4. Embedded worker
	if container.ConsumerService != nil {
		log.Println("[INFO] Starting embedded message consumer...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("[WARN] Embedded consumer not started: %v", err)
		}
	}

	// 5. Run Server
	srv := server.New(cfg, container, sysLogger)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("[ERROR] Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("[INFO] Shutting down...")
	if err := srv.Shutdown(10 * time.Second); err != nil {
		log.Printf("[WARN] Server shutdown: %v", err)
	}
}
