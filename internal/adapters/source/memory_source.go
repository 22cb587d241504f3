package source

import (
	"bytes"
	"fmt"

	"discord-package-parser/internal/ports"
)

// MemorySource реализует интерфейс ArchiveSource для архива, уже загруженного в память.
type MemorySource struct {
	name string
	data []byte
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(name string, data []byte) ports.ArchiveSource {
	return &MemorySource{name: name, data: data}
}

// Name возвращает имя, переданное при создании.
func (s *MemorySource) Name() string {
	return s.name
}

// Open возвращает читателя поверх данных в памяти.
func (s *MemorySource) Open() (ports.ArchiveFile, error) {
	if s.data == nil {
		return nil, fmt.Errorf("данные не установлены")
	}
	return &memoryFile{Reader: bytes.NewReader(s.data)}, nil
}

type memoryFile struct {
	*bytes.Reader
}

func (memoryFile) Close() error { return nil }
