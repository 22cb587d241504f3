// Package archive индексирует элементы zip-архива выгрузки и дает к ним доступ по имени.
package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/xerrors"

	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/ports"
)

const bom = "\ufeff"

// ErrInvalidArchive - файл открылся, но не является корректным zip-архивом.
var ErrInvalidArchive = errors.New("invalid zip archive")

// Index - упорядоченный список элементов архива и отображение имя -> элемент.
// Архив перечисляется один раз при открытии.
type Index struct {
	names  []string
	files  map[string]*zip.File
	closer io.Closer
	log    *slog.Logger
}

// Option - функциональная опция для настройки Index.
type Option func(*Index)

// WithLogger устанавливает логгер для индекса.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.log = l
		}
	}
}

// Open открывает архив из источника и строит индекс его элементов.
// Любая ошибка открытия возвращается как *domain.IOError.
func Open(src ports.ArchiveSource, opts ...Option) (*Index, error) {
	f, err := src.Open()
	if err != nil {
		return nil, &domain.IOError{Path: src.Name(), Err: err}
	}

	zr, err := zip.NewReader(f, f.Size())
	if err != nil {
		f.Close()
		return nil, &domain.IOError{Path: src.Name(), Err: fmt.Errorf("%w: %v", ErrInvalidArchive, err)}
	}

	ix := &Index{
		names:  make([]string, 0, len(zr.File)),
		files:  make(map[string]*zip.File, len(zr.File)),
		closer: f,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}

	for _, zf := range zr.File {
		if _, dup := ix.files[zf.Name]; dup {
			continue
		}
		ix.names = append(ix.names, zf.Name)
		ix.files[zf.Name] = zf
	}

	ix.log.Debug("archive indexed", "source", src.Name(), "members", len(ix.names))
	return ix, nil
}

// Names возвращает имена элементов в порядке их следования в архиве.
func (ix *Index) Names() []string {
	return ix.names
}

// Exists сообщает, есть ли элемент с точно таким именем.
func (ix *Index) Exists(path string) bool {
	_, ok := ix.files[path]
	return ok
}

// Read возвращает содержимое элемента без BOM и окружающих пробелов.
func (ix *Index) Read(path string) (string, bool, error) {
	zf, ok := ix.files[path]
	if !ok {
		return "", false, nil
	}

	rc, err := zf.Open()
	if err != nil {
		return "", false, &domain.IOError{Path: path, Err: xerrors.Errorf("failed to open member: %w", err)}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", false, &domain.IOError{Path: path, Err: xerrors.Errorf("failed to read member: %w", err)}
	}

	content := strings.TrimSpace(strings.TrimPrefix(string(data), bom))
	if content == "" {
		ix.log.Debug("archive member is empty", "path", path)
		return "", false, nil
	}
	return content, true, nil
}

// OpenReader открывает элемент для потокового чтения.
func (ix *Index) OpenReader(path string) (io.ReadCloser, error) {
	zf, ok := ix.files[path]
	if !ok {
		return nil, &domain.IOError{Path: path, Err: xerrors.New("member not found")}
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, &domain.IOError{Path: path, Err: xerrors.Errorf("failed to open member: %w", err)}
	}
	return rc, nil
}

// Close освобождает исходный файл архива.
func (ix *Index) Close() error {
	if ix.closer == nil {
		return nil
	}
	return ix.closer.Close()
}

var _ ports.Archive = (*Index)(nil)
