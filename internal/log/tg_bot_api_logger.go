package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter адаптирует slog.Logger под интерфейс логгера,
// который ожидает библиотека go-telegram-bot-api/v5.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
	// Level - уровень сообщений библиотеки. По умолчанию Debug:
	// библиотека пишет в лог каждую ошибку долгого опроса.
	Level slog.Level
}

// NewTGBotAPIAdapter создает адаптер с уровнем Debug.
func NewTGBotAPIAdapter(logger *slog.Logger) *TGBotAPIAdapter {
	return &TGBotAPIAdapter{Logger: logger.With("component", "tgbotapi"), Level: slog.LevelDebug}
}

// Println реализует метод интерфейса tgbotapi.Logger.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	a.Logger.Log(context.Background(), a.Level, strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf реализует метод интерфейса tgbotapi.Logger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.Logger.Log(context.Background(), a.Level, strings.TrimSpace(fmt.Sprintf(format, v...)))
}
