package domain

import (
	"errors"
	"fmt"
)

// Step - этап извлечения, к которому относятся уведомления о прогрессе и ошибках.
type Step string

const (
	StepScaffolding Step = "scaffolding"
	StepMessages    Step = "messages"
	StepAnalytics   Step = "analytics"
)

// Заголовки уведомлений об ошибках.
const (
	TitleFileAccess = "File access error"
	TitleArchive    = "Archive error"
	TitleExtraction = "Data extraction error"
	TitleAnalytics  = "Analytics processing error"
)

// ErrCancelled возвращается, когда извлечение остановлено через токен отмены.
// Это не ошибка обработки и не сообщается как таковая.
var ErrCancelled = errors.New("extraction cancelled")

// StructuralError - в архиве нет ожидаемой структуры.
type StructuralError struct {
	// Root - какой корень или файл не найден: messages, servers, profile, analytics, layout.
	Root   string
	Detail string
}

func (e *StructuralError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid package structure (%s): %s", e.Root, e.Detail)
	}
	return fmt.Sprintf("invalid package structure: %s root not found", e.Root)
}

// DecodeError - содержимое файла не удалось разобрать.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WithPath дописывает путь файла в *DecodeError внутри err, если путь еще не указан.
func WithPath(err error, path string) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Path == "" {
		de.Path = path
	}
	return err
}

// IOError - архив или его элемент не удалось открыть или прочитать.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
