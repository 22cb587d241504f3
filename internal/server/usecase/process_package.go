package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"discord-package-parser/internal/adapters/source"
	"discord-package-parser/internal/cache"
	"discord-package-parser/internal/core/services"
	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/ports"
)

// ProcessPackageUseCase инкапсулирует обработку загруженного архива выгрузки:
// хеш архива, поиск в кеше, запуск конвейера и кеширование результата.
type ProcessPackageUseCase struct {
	runner        *services.Runner
	cacheStore    *cache.CacheStore
	cacheTTL      time.Duration
	skipAnalytics bool
	onCacheHit    func()
	log           *slog.Logger
}

// Option настраивает ProcessPackageUseCase.
type Option func(*ProcessPackageUseCase)

// WithLogger задает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(uc *ProcessPackageUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// WithSkipAnalytics должен совпадать с настройкой конвейера: от него зависит ключ кеша.
func WithSkipAnalytics(skip bool) Option {
	return func(uc *ProcessPackageUseCase) {
		uc.skipAnalytics = skip
	}
}

// WithCacheHitHook задает функцию, вызываемую при попадании в кеш.
func WithCacheHitHook(fn func()) Option {
	return func(uc *ProcessPackageUseCase) {
		uc.onCacheHit = fn
	}
}

// NewProcessPackageUseCase создает новый экземпляр ProcessPackageUseCase.
func NewProcessPackageUseCase(runner *services.Runner, cacheStore *cache.CacheStore, cacheTTL time.Duration, opts ...Option) *ProcessPackageUseCase {
	uc := &ProcessPackageUseCase{
		runner:     runner,
		cacheStore: cacheStore,
		cacheTTL:   cacheTTL,
		onCacheHit: func() {},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessPackage извлекает статистику из архива filePath.
// Отмена ctx останавливает извлечение; в этом случае возвращается domain.ErrCancelled.
func (uc *ProcessPackageUseCase) ProcessPackage(ctx context.Context, filePath string, sink ports.Sink) (*domain.Report, error) {
	archiveHash, err := cache.CalculateFileHash(filePath)
	if err != nil {
		sink.Error(domain.StepScaffolding, err.Error(), domain.TitleFileAccess)
		return nil, fmt.Errorf("failed to hash archive %s: %w", filePath, err)
	}
	key := cache.Key(archiveHash, uc.skipAnalytics)

	if item, found := uc.cacheStore.Get(key); found {
		uc.log.Info("cache hit", "key", key)
		uc.onCacheHit()
		sink.Progress(domain.StepScaffolding, "Loaded statistics from cache")
		sink.ProfileComplete(item.Report.Statistics)
		if item.Report.Events != nil {
			sink.AnalyticsComplete(item.Report.Events)
		}
		return item.Report, nil
	}

	h := uc.runner.Start(ctx, source.NewFileSource(filePath), sink)
	report, err := h.Wait()
	if err != nil {
		return nil, err
	}

	uc.cacheStore.Put(key, report, uc.cacheTTL)
	uc.log.Info("report cached", "key", key, "ttl", uc.cacheTTL.String(), "run_id", h.ID)
	return report, nil
}
