package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"discord-package-parser/internal/domain"
)

// TaskStatus представляет статус задачи обработки
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsFinal сообщает, завершена ли задача.
func (s TaskStatus) IsFinal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

var (
	// ErrTaskNotFound - задачи с таким ID нет или она уже удалена.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskFinished - задача уже завершена и не может быть отменена.
	ErrTaskFinished = errors.New("task already finished")
)

// Task представляет собой одну задачу обработки
type Task struct {
	ID           string
	Status       TaskStatus
	Step         domain.Step
	Progress     string
	ErrorTitle   string
	ErrorMessage string
	Report       *domain.Report
	CreatedAt    time.Time
	FinishedAt   time.Time
	ExpiresAt    time.Time // Для автоматической очистки

	cancel context.CancelFunc
}

// TaskStore управляет хранением и извлечением задач
type TaskStore struct {
	tasks map[string]*Task
	mutex sync.RWMutex
	now   func() time.Time
}

// NewTaskStore создает новый экземпляр TaskStore
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

// CreateTask создает новую задачу со статусом 'pending'.
// cancel вызывается при отмене задачи через CancelTask.
func (ts *TaskStore) CreateTask(taskID string, ttl time.Duration, cancel context.CancelFunc) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := ts.now()
	ts.tasks[taskID] = &Task{
		ID:        taskID,
		Status:    TaskStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		cancel:    cancel,
	}
}

func (ts *TaskStore) update(taskID string, fn func(*Task)) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	fn(task)
	return nil
}

// UpdateTaskStatus обновляет статус задачи
func (ts *TaskStore) UpdateTaskStatus(taskID string, status TaskStatus) error {
	return ts.update(taskID, func(t *Task) { t.Status = status })
}

// UpdateProgress запоминает последнее сообщение о ходе обработки
func (ts *TaskStore) UpdateProgress(taskID string, step domain.Step, message string) error {
	return ts.update(taskID, func(t *Task) {
		t.Step = step
		t.Progress = message
	})
}

// UpdateTaskResult сохраняет отчет и переводит задачу в 'completed'
func (ts *TaskStore) UpdateTaskResult(taskID string, report *domain.Report) error {
	return ts.update(taskID, func(t *Task) {
		t.Status = TaskStatusCompleted
		t.Report = report
		t.FinishedAt = ts.now()
	})
}

// UpdateTaskError переводит задачу в 'failed'. Пустой title не затирает
// заголовок, уже сообщенный конвейером.
func (ts *TaskStore) UpdateTaskError(taskID, title, message string) error {
	return ts.update(taskID, func(t *Task) {
		t.Status = TaskStatusFailed
		if title != "" {
			t.ErrorTitle = title
		}
		t.ErrorMessage = message
		t.FinishedAt = ts.now()
	})
}

// MarkCancelled переводит задачу в 'cancelled'
func (ts *TaskStore) MarkCancelled(taskID string) error {
	return ts.update(taskID, func(t *Task) {
		t.Status = TaskStatusCancelled
		t.FinishedAt = ts.now()
	})
}

// CancelTask запрашивает отмену незавершенной задачи.
func (ts *TaskStore) CancelTask(taskID string) error {
	ts.mutex.RLock()
	task, exists := ts.tasks[taskID]
	var cancel context.CancelFunc
	var final bool
	if exists {
		cancel, final = task.cancel, task.Status.IsFinal()
	}
	ts.mutex.RUnlock()

	switch {
	case !exists:
		return ErrTaskNotFound
	case final:
		return ErrTaskFinished
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// GetTask возвращает копию задачи по ее ID
func (ts *TaskStore) GetTask(taskID string) (Task, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return Task{}, ErrTaskNotFound
	}
	return *task, nil
}

// CleanupExpired удаляет просроченные задачи из хранилища
func (ts *TaskStore) CleanupExpired() int {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := ts.now()
	removed := 0
	for taskID, task := range ts.tasks {
		if now.After(task.ExpiresAt) {
			if !task.Status.IsFinal() && task.cancel != nil {
				task.cancel()
			}
			delete(ts.tasks, taskID)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных задач
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.CleanupExpired()
			}
		}
	}()
}

// taskSink передает уведомления конвейера в хранилище задач.
type taskSink struct {
	store  *TaskStore
	taskID string
}

func (s *taskSink) Progress(step domain.Step, message string) {
	_ = s.store.UpdateProgress(s.taskID, step, message)
}

func (s *taskSink) Error(step domain.Step, message, title string) {
	_ = s.store.update(s.taskID, func(t *Task) {
		t.Step = step
		t.ErrorTitle = title
		t.ErrorMessage = message
	})
}

func (s *taskSink) ProfileComplete(stats *domain.UserStatistics) {
	_ = s.store.UpdateProgress(s.taskID, domain.StepMessages, "Profile statistics ready")
}

func (s *taskSink) AnalyticsComplete(stats *domain.EventStatistics) {
	_ = s.store.UpdateProgress(s.taskID, domain.StepAnalytics, "Analytics statistics ready")
}
