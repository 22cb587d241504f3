package source

import (
	"fmt"
	"os"

	"discord-package-parser/internal/ports"
)

// FileSource реализует интерфейс ArchiveSource для архива на диске.
type FileSource struct {
	filePath string
}

// NewFileSource создает новый экземпляр FileSource.
func NewFileSource(filePath string) ports.ArchiveSource {
	return &FileSource{filePath: filePath}
}

// Name возвращает путь к архиву.
func (s *FileSource) Name() string {
	return s.filePath
}

// Open открывает файл архива для произвольного чтения.
func (s *FileSource) Open() (ports.ArchiveFile, error) {
	if s.filePath == "" {
		return nil, fmt.Errorf("не указан путь к файлу")
	}

	f, err := os.Open(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", s.filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file %s: %w", s.filePath, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s является каталогом", s.filePath)
	}

	return &osFile{File: f, size: info.Size()}, nil
}

type osFile struct {
	*os.File
	size int64
}

func (f *osFile) Size() int64 { return f.size }
