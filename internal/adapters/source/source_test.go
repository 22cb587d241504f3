package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	t.Run("Open возвращает ошибку для пустого пути к файлу", func(t *testing.T) {
		src := NewFileSource("")
		f, err := src.Open()
		require.Error(t, err)
		assert.Nil(t, f)
		assert.Equal(t, "не указан путь к файлу", err.Error())
	})

	t.Run("Open возвращает ошибку для несуществующего файла", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.zip")).Open()
		assert.Error(t, err)
	})

	t.Run("Open возвращает ошибку для каталога", func(t *testing.T) {
		_, err := NewFileSource(t.TempDir()).Open()
		assert.Error(t, err)
	})

	t.Run("Open дает доступ к содержимому существующего файла", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "package.zip")
		require.NoError(t, os.WriteFile(path, []byte("PK-data"), 0o644))

		src := NewFileSource(path)
		assert.Equal(t, path, src.Name())

		f, err := src.Open()
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, int64(7), f.Size())
		buf := make([]byte, 4)
		_, err = f.ReadAt(buf, 3)
		require.NoError(t, err)
		assert.Equal(t, "data", string(buf))
	})
}

func TestMemorySource(t *testing.T) {
	t.Run("Open возвращает ошибку, если данные не установлены", func(t *testing.T) {
		_, err := NewMemorySource("empty", nil).Open()
		assert.Error(t, err)
	})

	t.Run("Open дает доступ к данным", func(t *testing.T) {
		src := NewMemorySource("mem", []byte("hello"))
		assert.Equal(t, "mem", src.Name())

		f, err := src.Open()
		require.NoError(t, err)
		assert.Equal(t, int64(5), f.Size())

		data, err := io.ReadAll(io.NewSectionReader(f, 0, f.Size()))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
		assert.NoError(t, f.Close())
	})
}
