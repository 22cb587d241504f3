package ports

import (
	"context"
	"io"

	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/pkg/cancel"
)

// ArchiveFile - открытый файл архива с произвольным доступом.
type ArchiveFile interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// ArchiveSource определяет интерфейс для получения исходного архива выгрузки.
type ArchiveSource interface {
	// Name возвращает человекочитаемое имя источника для логов.
	Name() string
	// Open открывает архив для чтения.
	Open() (ArchiveFile, error)
}

// Archive определяет доступ к элементам открытого архива.
type Archive interface {
	// Names возвращает имена всех элементов в порядке их следования в архиве.
	Names() []string
	// Exists сообщает, есть ли в архиве элемент с точно таким именем.
	Exists(path string) bool
	// Read возвращает очищенное содержимое элемента.
	// Отсутствующий или пустой элемент дает ("", false, nil).
	Read(path string) (string, bool, error)
	// OpenReader открывает элемент для потокового чтения.
	OpenReader(path string) (io.ReadCloser, error)
}

// Sink получает уведомления о ходе извлечения.
// Реализации должны быть безопасны для вызова из нескольких горутин.
type Sink interface {
	Progress(step domain.Step, message string)
	Error(step domain.Step, message, title string)
	ProfileComplete(stats *domain.UserStatistics)
	AnalyticsComplete(stats *domain.EventStatistics)
}

// Extractor выполняет полное извлечение статистики из архива.
type Extractor interface {
	Run(ctx context.Context, src ArchiveSource, tok *cancel.Token, sink Sink) (*domain.Report, error)
}

// Exporter определяет интерфейс для вывода результата.
type Exporter interface {
	// Export записывает отчет в w.
	Export(w io.Writer, report *domain.Report) error
}
