// Package cache хранит готовые отчеты, чтобы повторная загрузка того же архива
// не запускала извлечение заново.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"discord-package-parser/internal/domain"
)

// CacheItem представляет кэшированный отчет
type CacheItem struct {
	Report    *domain.Report
	ExpiresAt time.Time
}

// CacheStore управляет хранением и извлечением кэшированных отчетов
type CacheStore struct {
	cache map[string]*CacheItem
	mutex sync.RWMutex
	now   func() time.Time
}

// NewCacheStore создает новый экземпляр CacheStore
func NewCacheStore() *CacheStore {
	return &CacheStore{
		cache: make(map[string]*CacheItem),
		now:   time.Now,
	}
}

// Get извлекает кэшированный отчет по ключу
func (cs *CacheStore) Get(key string) (*CacheItem, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	item, exists := cs.cache[key]
	if !exists || cs.now().After(item.ExpiresAt) {
		return nil, false
	}
	return item, true
}

// Put сохраняет отчет в кэш с указанным сроком действия
func (cs *CacheStore) Put(key string, report *domain.Report, ttl time.Duration) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.cache[key] = &CacheItem{
		Report:    report,
		ExpiresAt: cs.now().Add(ttl),
	}
}

// Len возвращает число элементов, включая еще не удаленные просроченные.
func (cs *CacheStore) Len() int {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()
	return len(cs.cache)
}

// CleanupExpired удаляет просроченные элементы из кэша и возвращает их число
func (cs *CacheStore) CleanupExpired() int {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	now := cs.now()
	removed := 0
	for key, item := range cs.cache {
		if now.After(item.ExpiresAt) {
			delete(cs.cache, key)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных элементов
func (cs *CacheStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.CleanupExpired()
			}
		}
	}()
}

// Key строит ключ кэша: один и тот же архив с пропуском журнала событий
// и без него дает разные отчеты.
func Key(archiveHash string, skipAnalytics bool) string {
	if skipAnalytics {
		return archiveHash + ":messages"
	}
	return archiveHash + ":full"
}

// HashReader вычисляет хеш SHA256 потока
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("не удалось прочитать данные: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CalculateFileHash вычисляет хеш SHA256 содержимого файла
func CalculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть файл: %w", err)
	}
	defer file.Close()

	return HashReader(file)
}
