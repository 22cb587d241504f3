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

// Render определяет оформление текстового отчета.
type Render struct {
	MaxColumnWidth int  `yaml:"max_column_width" envconfig:"MAX_COLUMN_WIDTH"`
	CJKPadding     bool `yaml:"cjk_padding" envconfig:"CJK_PADDING"`
}

// BotConfig содержит конфигурацию для Telegram-бота
type BotConfig struct {
	Token            string        `yaml:"token" envconfig:"TOKEN"`
	BackendURL       string        `yaml:"backend_url" envconfig:"BACKEND_URL"`
	PollingInterval  time.Duration `yaml:"polling_interval" envconfig:"POLLING_INTERVAL"`
	HTTPTimeout      time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT"`
	MaxArchiveSizeMB int           `yaml:"max_archive_size_mb" envconfig:"MAX_ARCHIVE_SIZE_MB"`
	Render           Render        `yaml:"render" envconfig:"RENDER"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot     BotConfig `yaml:"bot" envconfig:"BOT"`
	Logging Logging   `yaml:"logging" envconfig:"BOT_LOGGING"`
}

func defaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			BackendURL:       DefaultBackendURL,
			PollingInterval:  DefaultPollingInterval,
			HTTPTimeout:      DefaultHTTPTimeout,
			MaxArchiveSizeMB: DefaultMaxArchiveSizeMB,
			Render:           Render{MaxColumnWidth: DefaultMaxColumnWidth, CJKPadding: true},
		},
		Logging: Logging{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// LoadBotConfig загружает конфигурацию бота: значения по умолчанию, .env,
// YAML-файл filename (если есть) и переменные окружения DPKG_BOT_*.
func LoadBotConfig(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaultConfig()
	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return cfg, nil
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	var errs []error
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		errs = append(errs, fmt.Errorf("bot.token is not configured"))
	}
	if c.BackendURL == "" {
		errs = append(errs, fmt.Errorf("bot.backend_url cannot be empty"))
	}
	if c.PollingInterval <= 0 {
		errs = append(errs, fmt.Errorf("bot.polling_interval must be positive"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("bot.http_timeout must be positive"))
	}
	if c.MaxArchiveSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("bot.max_archive_size_mb must be positive"))
	}
	if c.Render.MaxColumnWidth <= 0 {
		errs = append(errs, fmt.Errorf("bot.render.max_column_width must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateFull проверяет всю конфигурацию.
func (c *Config) ValidateFull() error {
	var errs []error
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error"))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text"))
	}
	return errors.Join(errs...)
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

// MaxArchiveBytes возвращает предел размера принимаемого архива в байтах.
func (c *BotConfig) MaxArchiveBytes() int {
	return c.MaxArchiveSizeMB << 20
}
