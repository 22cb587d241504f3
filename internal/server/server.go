package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"discord-package-parser/internal/adapters/exporter"
	"discord-package-parser/internal/adapters/sink"
	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/pkg/config"
	"discord-package-parser/internal/ports"
)

// PackageProcessor определяет интерфейс для варианта использования, который обрабатывает архивы выгрузки.
type PackageProcessor interface {
	ProcessPackage(ctx context.Context, filePath string, sink ports.Sink) (*domain.Report, error)
}

// maxMultipartMemory - часть формы, которая держится в памяти; остальное уходит во временные файлы.
const maxMultipartMemory = 32 << 20

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	processor  PackageProcessor
	metrics    *Metrics
	log        *slog.Logger
}

// New создает новый экземпляр Server
func New(cfg *config.Config, processor PackageProcessor, taskStore *TaskStore, metrics *Metrics, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Server.UploadDir != "" {
		if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload dir: %w", err)
		}
	}

	s := &Server{
		cfg:       cfg,
		taskStore: taskStore,
		processor: processor,
		metrics:   metrics,
		log:       logger,
	}
	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// Handler возвращает маршрутизатор сервера.
func (s *Server) Handler() http.Handler {
	return s.HTTPServer.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Промежуточное ПО
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Get("/tasks/{taskID}", s.handleTaskStatus)
		r.Get("/tasks/{taskID}/result", s.handleTaskResult)
		r.Delete("/tasks/{taskID}", s.handleCancelTask)
	})
	return r
}

// StartBackground запускает периодическую очистку задач до отмены ctx.
func (s *Server) StartBackground(ctx context.Context) {
	s.taskStore.StartCleanupTicker(ctx, s.cfg.Server.CleanupInterval)
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.HTTPServer.Shutdown(ctx)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes()
	if r.ContentLength > limit {
		writeError(w, http.StatusRequestEntityTooLarge, "archive exceeds upload limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "archive exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "form field 'file' is required")
		return
	}
	defer file.Close()

	taskID := uuid.NewString()
	tempFilePath, err := s.saveUpload(taskID, file)
	if err != nil {
		s.log.Error("failed to store upload", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store uploaded archive")
		return
	}

	// Задача живет дольше запроса, поэтому ее контекст не наследует r.Context().
	var (
		taskCtx context.Context
		cancel  context.CancelFunc
	)
	if s.cfg.Processing.TaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(context.Background(), s.cfg.Processing.TaskTimeout)
	} else {
		taskCtx, cancel = context.WithCancel(context.Background())
	}
	s.taskStore.CreateTask(taskID, s.cfg.Processing.ResultRetention, cancel)

	go s.runTask(taskCtx, cancel, taskID, tempFilePath)

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) saveUpload(taskID string, src io.Reader) (string, error) {
	dir := s.cfg.Server.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("package_%s.zip", taskID))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return path, nil
}

// TitleTimeout - заголовок ошибки задачи, превысившей processing.task_timeout.
const TitleTimeout = "Processing timeout"

func (s *Server) runTask(ctx context.Context, cancel context.CancelFunc, taskID, tempFilePath string) {
	defer cancel()
	defer os.Remove(tempFilePath)

	logger := s.log.With("task_id", taskID)
	start := time.Now()
	s.metrics.taskStarted()
	_ = s.taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

	progress := sink.Multi{&taskSink{store: s.taskStore, taskID: taskID}, sink.NewLogSink(logger)}
	report, err := s.processor.ProcessPackage(ctx, tempFilePath, progress)

	var status TaskStatus
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = TaskStatusFailed
		msg := fmt.Sprintf("processing did not finish within %s", s.cfg.Processing.TaskTimeout)
		_ = s.taskStore.UpdateTaskError(taskID, TitleTimeout, msg)
		logger.Warn("task timed out", "timeout", s.cfg.Processing.TaskTimeout.String())
	case errors.Is(err, domain.ErrCancelled):
		status = TaskStatusCancelled
		_ = s.taskStore.MarkCancelled(taskID)
		logger.Info("task cancelled")
	case err != nil:
		status = TaskStatusFailed
		_ = s.taskStore.UpdateTaskError(taskID, "", err.Error())
		logger.Warn("task failed", "error", err)
	default:
		status = TaskStatusCompleted
		_ = s.taskStore.UpdateTaskResult(taskID, report)
		logger.Info("task completed", "elapsed", time.Since(start).String())
	}
	s.metrics.taskFinished(status, time.Since(start))
}

// taskResponse - представление задачи в ответе API.
type taskResponse struct {
	TaskID       string     `json:"task_id"`
	Status       TaskStatus `json:"status"`
	Step         string     `json:"step,omitempty"`
	Progress     string     `json:"progress,omitempty"`
	ErrorTitle   string     `json:"error_title,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, taskResponse{
		TaskID:       task.ID,
		Status:       task.Status,
		Step:         string(task.Step),
		Progress:     task.Progress,
		ErrorTitle:   task.ErrorTitle,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    task.CreatedAt,
	})
}

// handleTaskResult отдает отчет в формате из параметра format (по умолчанию json).
func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if task.Status != TaskStatusCompleted {
		writeError(w, http.StatusConflict, "task is not completed")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = exporter.FormatJSON
	}
	exp, err := exporter.New(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch format {
	case exporter.FormatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	case exporter.FormatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="discord_stats.xlsx"`)
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	if err := exp.Export(w, task.Report); err != nil {
		s.log.Error("failed to export result", "task_id", task.ID, "format", format, "error", err)
	}
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	switch err := s.taskStore.CancelTask(taskID); {
	case errors.Is(err, ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, ErrTaskFinished):
		writeError(w, http.StatusConflict, "task already finished")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.log.Info("task cancellation requested", "task_id", taskID)
		writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID, "status": "cancelling"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
