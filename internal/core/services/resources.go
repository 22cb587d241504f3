package services

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// AnalyticsConfig - параметры чтения журнала событий.
type AnalyticsConfig struct {
	// MaxBufferBytes - верхняя граница буфера чтения.
	MaxBufferBytes int
	// MinBatchSize - минимальный размер пачки строк.
	MinBatchSize int
	// BatchPerCore - строк в пачке на одно логическое ядро.
	BatchPerCore int
	// ProgressEveryBatches - как часто сообщать о ходе обработки.
	ProgressEveryBatches int
}

// DefaultAnalyticsConfig возвращает параметры по умолчанию.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		MaxBufferBytes:       512 * 1024,
		MinBatchSize:         1000,
		BatchPerCore:         1000,
		ProgressEveryBatches: 10,
	}
}

func (c AnalyticsConfig) withDefaults() AnalyticsConfig {
	d := DefaultAnalyticsConfig()
	if c.MaxBufferBytes <= 0 {
		c.MaxBufferBytes = d.MaxBufferBytes
	}
	if c.MinBatchSize <= 0 {
		c.MinBatchSize = d.MinBatchSize
	}
	if c.BatchPerCore <= 0 {
		c.BatchPerCore = d.BatchPerCore
	}
	if c.ProgressEveryBatches <= 0 {
		c.ProgressEveryBatches = d.ProgressEveryBatches
	}
	return c
}

// minBufferBytes - нижняя граница буфера на машинах с очень малым объемом памяти.
const minBufferBytes = 4 * 1024

// Resources - снимок ресурсов машины.
type Resources struct {
	AvailableMemory uint64
	LogicalCores    int
}

// ResourceProbe возвращает текущие ресурсы машины.
type ResourceProbe func(ctx context.Context) (Resources, error)

// SystemResources опрашивает доступную память и число логических ядер.
func SystemResources(ctx context.Context) (Resources, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Resources{}, fmt.Errorf("failed to probe memory: %w", err)
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return Resources{}, fmt.Errorf("failed to probe cpu: %w", err)
	}
	return Resources{AvailableMemory: vm.Available, LogicalCores: cores}, nil
}

// plan - размеры буфера, пачки и пула воркеров для одного прохода.
type plan struct {
	bufferBytes int
	batchSize   int
	workers     int
}

// planFor вычисляет буфер = min(MaxBufferBytes, память/4) и пачку = max(MinBatchSize, ядра*BatchPerCore).
func planFor(cfg AnalyticsConfig, res Resources) plan {
	cores := res.LogicalCores
	if cores <= 0 {
		cores = runtime.NumCPU()
	}

	buffer := cfg.MaxBufferBytes
	if quarter := res.AvailableMemory / 4; quarter < uint64(buffer) {
		buffer = int(quarter)
	}
	if buffer < minBufferBytes {
		buffer = minBufferBytes
	}

	batch := cores * cfg.BatchPerCore
	if batch < cfg.MinBatchSize {
		batch = cfg.MinBatchSize
	}
	return plan{bufferBytes: buffer, batchSize: batch, workers: cores}
}

// fallbackResources используется, когда опрос системы не удался.
func fallbackResources(cfg AnalyticsConfig) Resources {
	return Resources{AvailableMemory: uint64(cfg.MaxBufferBytes) * 4, LogicalCores: runtime.NumCPU()}
}
