package config

import "time"

// Значения по умолчанию для конфигурации бота.
const (
	DefaultBackendURL       = "http://localhost:8080"
	DefaultPollingInterval  = 2 * time.Second
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultMaxArchiveSizeMB = 20 // Предел Bot API для скачивания файлов
	DefaultMaxColumnWidth   = 24
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"

	// EnvPrefix - префикс переменных окружения бота, например DPKG_BOT_TOKEN.
	EnvPrefix = "DPKG"
)
