package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"discord-package-parser/internal/cache"
	"discord-package-parser/internal/core/services"
	"discord-package-parser/internal/log"
	"discord-package-parser/internal/pkg/config"
	"discord-package-parser/internal/server"
	"discord-package-parser/internal/server/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	configPath := flag.String("config", "config.yml", "path to YAML config")
	flag.Parse()

	// 1. Загрузка и валидация конфигурации
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	logger := log.New(os.Stdout, cfg.SlogLevel(), cfg.Logging.Format)
	slog.SetDefault(logger)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// 3. Инициализация зависимостей
	pipeline := services.NewPipeline(pipelineOptions(cfg, logger.With("component", "pipeline"))...)
	runner := services.NewRunner(pipeline, logger.With("component", "runner"))
	metrics := server.NewMetrics()

	cacheStore := cache.NewCacheStore()
	cacheStore.StartCleanupTicker(appCtx, cfg.Server.CleanupInterval)

	processor := usecase.NewProcessPackageUseCase(runner, cacheStore, cfg.Processing.CacheTTL,
		usecase.WithLogger(logger.With("component", "usecase")),
		usecase.WithSkipAnalytics(cfg.Processing.SkipAnalytics),
		usecase.WithCacheHitHook(metrics.CacheHit),
	)

	// 4. Создание HTTP-сервера
	taskStore := server.NewTaskStore()
	srv, err := server.New(cfg, processor, taskStore, metrics, logger.With("component", "server"))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	srv.StartBackground(appCtx)

	// 5. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("Application exited gracefully")
	return nil
}

// pipelineOptions переводит настройки обработки в опции конвейера.
func pipelineOptions(cfg *config.Config, logger *slog.Logger) []services.Option {
	return []services.Option{
		services.WithLogger(logger),
		services.WithAnalyticsConfig(services.AnalyticsConfig{
			MaxBufferBytes:       cfg.Analytics.MaxBufferBytes,
			MinBatchSize:         cfg.Analytics.MinBatchSize,
			BatchPerCore:         cfg.Analytics.BatchPerCore,
			ProgressEveryBatches: cfg.Analytics.ProgressEveryBatches,
		}),
		services.WithChannelProgressEvery(cfg.Processing.ChannelProgressEvery),
		services.WithSkipAnalytics(cfg.Processing.SkipAnalytics),
	}
}
