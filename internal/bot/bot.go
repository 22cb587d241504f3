package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"discord-package-parser/cmd/bot/config"
	"discord-package-parser/internal/adapters/exporter"
	"discord-package-parser/internal/domain"
)

const (
	startCommand  = "start"
	cancelCommand = "cancel"

	// maxMessageLength - предел длины сообщения Telegram.
	maxMessageLength = 4096
)

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient ServerAPI
	taskStore    *TaskStore
	logger       *slog.Logger
	httpClient   *http.Client
	pollInterval time.Duration

	text *exporter.TextExporter
	xlsx *exporter.XLSXExporter

	// Подменяются в тестах.
	sendMessageFunc      func(msg tgbotapi.Chattable) (tgbotapi.Message, error)
	getFileDirectURLFunc func(fileID string) (string, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := newBot(cfg, serverClient, taskStore, logger)
	b.api = api
	b.sendMessageFunc = api.Send
	b.getFileDirectURLFunc = api.GetFileDirectURL
	return b, nil
}

func newBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) *Bot {
	return &Bot{
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    taskStore,
		logger:       logger,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		pollInterval: cfg.PollingInterval,
		text: exporter.NewTextExporter(
			exporter.WithMaxColumnWidth(cfg.Render.MaxColumnWidth),
			exporter.WithCJKPadding(cfg.Render.CJKPadding),
		),
		xlsx: exporter.NewXLSXExporter(),
	}
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	b.reply(msg.Chat.ID, "Пожалуйста, отправьте мне zip-архив с данными аккаунта Discord (Data Package).")
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand:
		b.reply(msg.Chat.ID, "Добро пожаловать! Я считаю статистику по архиву данных Discord.\n\n"+
			"Запросите архив в настройках Discord (Privacy & Safety → Request all of my Data) "+
			"и отправьте мне полученный package.zip.\n\n"+
			"Пожалуйста, обратите внимание:\n"+
			"• Я обрабатываю только один архив за раз.\n"+
			"• Команда /cancel останавливает текущую обработку.")
	case cancelCommand:
		b.handleCancel(ctx, msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, "Я не знаю такой команды.")
	}
}

func (b *Bot) handleCancel(ctx context.Context, chatID int64) {
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	taskID, ok := b.taskStore.Get(chatID)
	if !ok || taskID == "" {
		b.reply(chatID, "Сейчас нет активной обработки.")
		return
	}

	err := b.serverClient.CancelTask(ctx, taskID)
	switch {
	case errors.Is(err, ErrTaskFinished):
		b.reply(chatID, "Обработка уже завершена.")
	case err != nil:
		logger.Error("failed to cancel task", slog.String("task_id", taskID), slog.String("error", err.Error()))
		b.reply(chatID, "Не удалось отменить обработку. Попробуйте позже.")
	default:
		logger.Info("task cancellation requested", slog.String("task_id", taskID))
		b.reply(chatID, "Останавливаю обработку...")
	}
}

// handleDocument обрабатывает входящий документ (файл).
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	if !strings.EqualFold(path.Ext(doc.FileName), ".zip") {
		b.reply(chatID, "Это не zip-архив. Отправьте архив данных Discord целиком, как его прислал Discord.")
		return
	}
	if doc.FileSize > b.cfg.MaxArchiveBytes() {
		b.reply(chatID, fmt.Sprintf("Архив слишком большой. Telegram позволяет ботам скачивать файлы не больше %d МБ.", b.cfg.MaxArchiveSizeMB))
		return
	}

	// 1. Проверяем, нет ли уже активной задачи.
	if !b.taskStore.Reserve(chatID) {
		logger.Warn("user tried to start a new task while another is active")
		b.reply(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем начинать новую.")
		return
	}

	taskID, err := b.startTask(ctx, doc)
	if err != nil {
		b.taskStore.Delete(chatID)
		logger.Error("failed to start task", slog.String("error", err.Error()))
		b.reply(chatID, "Не удалось начать обработку архива. Пожалуйста, попробуйте позже.")
		return
	}

	logger.Info("task started on backend", slog.String("task_id", taskID))
	b.taskStore.Set(chatID, taskID)
	b.reply(chatID, "✅ Архив получен и поставлен в очередь на обработку. Ожидайте результата.")

	// Опрос живет дольше обработчика обновления.
	go b.pollTaskStatus(context.Background(), chatID, taskID)
}

// startTask скачивает документ из Telegram и передает его на сервер.
func (b *Bot) startTask(ctx context.Context, doc *tgbotapi.Document) (string, error) {
	fileURL, err := b.getFileDirectURLFunc(doc.FileID)
	if err != nil {
		return "", fmt.Errorf("failed to get file direct url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	startResp, err := b.serverClient.StartTask(ctx, DocumentFile{Name: doc.FileName, Content: resp.Body})
	if err != nil {
		return "", fmt.Errorf("failed to start task on backend: %w", err)
	}
	return startResp.TaskID, nil
}

func (b *Bot) reply(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// pollTaskStatus асинхронно опрашивает статус задачи на бэкенд-сервере.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	defer b.taskStore.Delete(chatID) // Гарантированно удаляем задачу по завершении.

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	lastStep := ""
	for {
		select {
		case <-ctx.Done():
			logger.Warn("polling cancelled by context")
			return
		case <-ticker.C:
			status, err := b.serverClient.GetTaskStatus(ctx, taskID)
			if err != nil {
				logger.Error("failed to get task status", slog.String("error", err.Error()))
				continue
			}

			switch status.Status {
			case "completed":
				logger.Info("task completed")
				b.processCompletedTask(ctx, chatID, taskID)
				return
			case "failed":
				logger.Warn("task failed", slog.String("title", status.ErrorTitle), slog.String("reason", status.ErrorMessage))
				b.reply(chatID, failureText(status))
				return
			case "cancelled":
				logger.Info("task cancelled")
				b.reply(chatID, "Обработка отменена.")
				return
			case "pending", "processing":
				logger.Debug("task is in progress", slog.String("status", status.Status), slog.String("progress", status.Progress))
				if status.Step == string(domain.StepAnalytics) && lastStep != status.Step {
					b.reply(chatID, "Сообщения обработаны, читаю журнал событий...")
				}
				lastStep = status.Step
			default:
				logger.Warn("unknown task status", slog.String("status", status.Status))
			}
		}
	}
}

func failureText(status *TaskStatusResponse) string {
	title := status.ErrorTitle
	if title == "" {
		title = "Processing error"
	}
	return fmt.Sprintf("Произошла ошибка при обработке архива.\n%s: %s", title, status.ErrorMessage)
}

// processCompletedTask обрабатывает успешно завершенную задачу.
func (b *Bot) processCompletedTask(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))

	report, err := b.serverClient.GetTaskResult(ctx, taskID)
	if err != nil || report.Statistics == nil {
		logger.Error("failed to fetch result", slog.Any("error", err))
		b.reply(chatID, "Не удалось получить результаты для выполненной задачи. Пожалуйста, попробуйте позже.")
		return
	}

	logger.Info("result fetched", slog.Uint64("message_count", report.Statistics.MessageCount))
	b.sendTextResult(chatID, report)
	b.sendExcelResult(chatID, report)
}

// sendTextResult отправляет отчет моноширинным текстом, а слишком длинный - файлом.
func (b *Bot) sendTextResult(chatID int64, report *domain.Report) {
	rendered := b.text.Render(report)
	text := "<pre>" + html.EscapeString(strings.ToValidUTF8(rendered, "")) + "</pre>"

	if len(text) > maxMessageLength {
		b.logger.Warn("rendered report is too long, sending as file", "length", len(text))
		summary := "<pre>" + html.EscapeString(strings.ToValidUTF8(b.text.RenderSummary(report.Statistics), "")) + "</pre>"
		if len(summary) <= maxMessageLength {
			reply := tgbotapi.NewMessage(chatID, summary)
			reply.ParseMode = tgbotapi.ModeHTML
			b.sendMessage(reply)
		}
		msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  resultFileName("txt"),
			Bytes: []byte(rendered),
		})
		msg.Caption = "Полный отчет слишком большой для одного сообщения, поэтому он прикреплен в виде файла."
		b.sendMessage(msg)
		return
	}

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	b.sendMessage(reply)
}

func (b *Bot) sendExcelResult(chatID int64, report *domain.Report) {
	var buf bytes.Buffer
	if err := b.xlsx.Export(&buf, report); err != nil {
		b.logger.Error("failed to render excel report", slog.String("error", err.Error()))
		b.reply(chatID, "Не удалось сгенерировать Excel-файл.")
		return
	}

	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  resultFileName("xlsx"),
		Bytes: buf.Bytes(),
	})
	msg.Caption = fmt.Sprintf("Анализ завершен. Сообщений: %d.", report.Statistics.MessageCount)
	b.sendMessage(msg)
}

func resultFileName(ext string) string {
	return fmt.Sprintf("discord_stats_%s.%s", time.Now().Format("2006-01-02_15-04-05"), ext)
}

