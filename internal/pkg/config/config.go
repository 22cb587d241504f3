// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию HTTP-сервера
type Server struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadSizeMB int64         `yaml:"max_upload_size_mb" envconfig:"MAX_UPLOAD_SIZE_MB"`
	UploadDir       string        `yaml:"upload_dir" envconfig:"UPLOAD_DIR"` // пусто - системный каталог временных файлов
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL"`
}

// Processing содержит конфигурацию обработки
type Processing struct {
	TaskTimeout          time.Duration `yaml:"task_timeout" envconfig:"TASK_TIMEOUT"` // 0 - без ограничений
	CacheTTL             time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	ResultRetention      time.Duration `yaml:"result_retention" envconfig:"RESULT_RETENTION"`
	ChannelProgressEvery int           `yaml:"channel_progress_every" envconfig:"CHANNEL_PROGRESS_EVERY"`
	SkipAnalytics        bool          `yaml:"skip_analytics" envconfig:"SKIP_ANALYTICS"`
}

// Analytics содержит параметры чтения журнала событий
type Analytics struct {
	MaxBufferBytes       int `yaml:"max_buffer_bytes" envconfig:"MAX_BUFFER_BYTES"`
	MinBatchSize         int `yaml:"min_batch_size" envconfig:"MIN_BATCH_SIZE"`
	BatchPerCore         int `yaml:"batch_per_core" envconfig:"BATCH_PER_CORE"`
	ProgressEveryBatches int `yaml:"progress_every_batches" envconfig:"PROGRESS_EVERY_BATCHES"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `yaml:"server" envconfig:"SERVER"`
	Processing Processing `yaml:"processing" envconfig:"PROCESSING"`
	Analytics  Analytics  `yaml:"analytics" envconfig:"ANALYTICS"`
	Logging    Logging    `yaml:"logging" envconfig:"LOGGING"`
}

// defaultConfig возвращает конфигурацию со значениями по умолчанию.
func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxUploadSizeMB: DefaultMaxUploadSizeMB,
			CleanupInterval: DefaultCleanupInterval,
		},
		Processing: Processing{
			TaskTimeout:          DefaultTaskTimeout,
			CacheTTL:             DefaultCacheTTL,
			ResultRetention:      DefaultResultRetention,
			ChannelProgressEvery: DefaultChannelProgressEvery,
		},
		Analytics: Analytics{
			MaxBufferBytes:       DefaultMaxBufferBytes,
			MinBatchSize:         DefaultMinBatchSize,
			BatchPerCore:         DefaultBatchPerCore,
			ProgressEveryBatches: DefaultProgressEveryBatches,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем .env,
// затем YAML-файл path (если есть), затем переменные окружения с префиксом DPKG.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("не удалось загрузить .env: %w", err)
	}

	cfg := defaultConfig()
	if err := loadFromYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("не удалось применить переменные окружения: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return cfg, nil
}

// loadFromYAML накладывает значения из YAML-файла на cfg. Отсутствующий файл не является ошибкой.
func loadFromYAML(filename string, cfg *Config) error {
	if filename == "" {
		return nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}
	return nil
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes возвращает ограничение размера загружаемого архива в байтах.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadSizeMB << 20
}

// SlogLevel возвращает уровень логирования для slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port должен быть действительным номером порта (1-65535)"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout должно быть положительным"))
	}
	if c.Server.MaxUploadSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_size_mb должно быть положительным"))
	}
	if c.Server.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.cleanup_interval должно быть положительным"))
	}

	if c.Processing.TaskTimeout < 0 {
		errs = append(errs, fmt.Errorf("processing.task_timeout должно быть неотрицательным (0 для отсутствия ограничений)"))
	}
	if c.Processing.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("processing.cache_ttl должно быть положительным"))
	}
	if c.Processing.ResultRetention <= 0 {
		errs = append(errs, fmt.Errorf("processing.result_retention должно быть положительным"))
	}
	if c.Processing.ChannelProgressEvery <= 0 {
		errs = append(errs, fmt.Errorf("processing.channel_progress_every должно быть положительным"))
	}

	if c.Analytics.MaxBufferBytes <= 0 {
		errs = append(errs, fmt.Errorf("analytics.max_buffer_bytes должно быть положительным"))
	}
	if c.Analytics.MinBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("analytics.min_batch_size должно быть положительным"))
	}
	if c.Analytics.BatchPerCore <= 0 {
		errs = append(errs, fmt.Errorf("analytics.batch_per_core должно быть положительным"))
	}
	if c.Analytics.ProgressEveryBatches <= 0 {
		errs = append(errs, fmt.Errorf("analytics.progress_every_batches должно быть положительным"))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error"))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format должен быть json или text"))
	}

	return errors.Join(errs...)
}
