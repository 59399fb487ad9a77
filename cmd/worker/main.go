package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cpdash/internal/app"
	"cpdash/internal/platform/config"
	"cpdash/internal/platform/database"
	"cpdash/internal/platform/logger"
	"cpdash/internal/platform/queue"

	"go.uber.org/zap"
)

// Standalone sync worker for deployments that set SYNC_WORKER_IN_PROCESS=false on the API.
func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	cfg := config.AppConfig

	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Production: cfg.IsProduction()})
	defer logger.Sync()
	logger.Log.Info("worker service starting")

	if err := database.Connect(); err != nil {
		logger.Log.Fatal("database unavailable", zap.Error(err))
	}
	defer database.Close()
	if err := queue.ConnectRedis(); err != nil {
		logger.Log.Fatal("redis unavailable", zap.Error(err))
	}
	defer queue.CloseRedis()

	c := app.NewContainer(cfg, database.DB, queue.RDB, logger.Log)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Worker.Start(ctx)
	}()

	<-sigs
	logger.Log.Info("shutdown signal received")
	cancel()

	wg.Wait()
	logger.Log.Info("worker exited cleanly")
}
