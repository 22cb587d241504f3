package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadSizeMB = 512
	DefaultCleanupInterval = 1 * time.Hour

	// Processing defaults
	DefaultTaskTimeout          = 0 * time.Second
	DefaultCacheTTL             = 60 * time.Minute
	DefaultResultRetention      = 2 * time.Hour
	DefaultChannelProgressEvery = 20

	// Analytics defaults
	DefaultMaxBufferBytes       = 512 * 1024
	DefaultMinBatchSize         = 1000
	DefaultBatchPerCore         = 1000
	DefaultProgressEveryBatches = 10

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// EnvPrefix - префикс переменных окружения, переопределяющих конфигурацию.
const EnvPrefix = "DPKG"
