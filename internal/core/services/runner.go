package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/pkg/cancel"
	"discord-package-parser/internal/ports"
)

// Handle - дескриптор запущенного извлечения. Принадлежит вызывающей стороне.
type Handle struct {
	ID string

	tok  *cancel.Token
	done chan struct{}

	mu     sync.Mutex
	report *domain.Report
	err    error
}

// Cancel запрашивает кооперативную отмену.
func (h *Handle) Cancel() {
	h.tok.Cancel()
}

// Done закрывается по завершении извлечения.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait дожидается завершения и возвращает результат.
func (h *Handle) Wait() (*domain.Report, error) {
	<-h.done
	return h.Result()
}

// Result возвращает результат; до завершения оба значения nil.
func (h *Handle) Result() (*domain.Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.report, h.err
}

// Runner запускает извлечение в фоне.
type Runner struct {
	pipeline ports.Extractor
	log      *slog.Logger
}

// NewRunner создает новый экземпляр Runner.
func NewRunner(pipeline ports.Extractor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{pipeline: pipeline, log: logger}
}

// Start запускает извлечение в отдельной горутине и сразу возвращает дескриптор.
// Отмена ctx равносильна вызову Handle.Cancel.
func (r *Runner) Start(ctx context.Context, src ports.ArchiveSource, sink ports.Sink) *Handle {
	h := &Handle{
		ID:   uuid.NewString(),
		tok:  cancel.New(),
		done: make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		logger := r.log.With("run_id", h.ID, "source", src.Name())
		logger.Info("extraction started")

		report, err := r.pipeline.Run(ctx, src, h.tok, sink)

		h.mu.Lock()
		h.report, h.err = report, err
		h.mu.Unlock()

		if err != nil {
			logger.Info("extraction finished with error", "error", err)
			return
		}
		logger.Info("extraction finished")
	}()

	return h
}
