package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cpdash/internal/api"
	"cpdash/internal/app"
	"cpdash/internal/common/security"
	"cpdash/internal/platform/config"
	"cpdash/internal/platform/database"
	"cpdash/internal/platform/logger"
	"cpdash/internal/platform/metrics"
	"cpdash/internal/platform/queue"
	"cpdash/internal/platform/tracing"

	"go.uber.org/zap"
)

func main() {
	// 1. Configuration
	if err := config.Load(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	cfg := config.AppConfig

	// 2. Logging, metrics, tracing
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Production: cfg.IsProduction()})
	defer logger.Sync()
	metrics.Init()

	if cfg.TracingEnabled {
		shutdown, err := tracing.Init(context.Background(), "cpdash-api", cfg.TracingEndpoint)
		if err != nil {
			logger.Log.Warn("tracing disabled", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	// 3. JWT
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)

	// 4. Postgres and Redis
	if err := database.Connect(); err != nil {
		logger.Log.Fatal("database unavailable", zap.Error(err))
	}
	defer database.Close()
	if err := database.Migrate(context.Background(), database.DB); err != nil {
		logger.Log.Fatal("migration failed", zap.Error(err))
	}

	if err := queue.ConnectRedis(); err != nil {
		logger.Log.Fatal("redis unavailable", zap.Error(err))
	}
	defer queue.CloseRedis()

	// 5. Repositories, collectors, services
	c := app.NewContainer(cfg, database.DB, queue.RDB, logger.Log)

	// 6. Sync worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	var wg sync.WaitGroup
	if cfg.SyncWorkerInProcess {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Worker.Start(workerCtx)
		}()
	}

	// 7. HTTP server
	router := api.NewRouter(c.APIServices(), api.Options{AllowedOrigins: cfg.CORSAllowedOrigins}, logger.Named("http"))
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Log.Info("server starting", zap.String("port", cfg.APIPort), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop

	logger.Log.Info("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	logger.Log.Info("server and worker stopped gracefully")
}
