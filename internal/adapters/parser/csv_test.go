package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-package-parser/internal/domain"
)

func TestParseCSV(t *testing.T) {
	t.Run("Разбор строк и пропуск пустых сообщений", func(t *testing.T) {
		content := "ID,Timestamp,Contents,Attachments\n" +
			"1,2020-01-01 10:00:00.000000+00:00,hello there,\n" +
			"2,2020-01-01 11:00:00.000000+00:00,,https://cdn/a.png\n" +
			"3,2020-01-01 12:00:00.000000+00:00,\"multi\nline, with comma\",https://cdn/b.png https://cdn/c.png\n"

		msgs, err := ParseCSV(content)
		require.NoError(t, err)
		require.Len(t, msgs, 2)

		assert.Equal(t, "1", msgs[0].ID)
		assert.Equal(t, "hello there", msgs[0].Contents)
		assert.Empty(t, msgs[0].Attachments)

		assert.Equal(t, "3", msgs[1].ID)
		assert.Equal(t, "multi\nline, with comma", msgs[1].Contents)
		assert.Equal(t, []string{"https://cdn/b.png", "https://cdn/c.png"}, msgs[1].Attachments)
	})

	t.Run("Колонки сопоставляются по имени", func(t *testing.T) {
		content := "Contents,ID,Attachments,Timestamp\nhi,5,,2020-01-01\n"
		msgs, err := ParseCSV(content)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "5", msgs[0].ID)
		assert.Equal(t, "2020-01-01", msgs[0].Timestamp)
	})

	t.Run("Нет обязательной колонки", func(t *testing.T) {
		_, err := ParseCSV("ID,Timestamp\n1,2\n")
		var de *domain.DecodeError
		assert.True(t, errors.As(err, &de))
	})

	t.Run("Только заголовок", func(t *testing.T) {
		msgs, err := ParseCSV("ID,Timestamp,Contents,Attachments")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("ParseMessages выбирает формат", func(t *testing.T) {
		msgs, err := ParseMessages("ID,Timestamp,Contents,Attachments\n1,t,abc,\n", true)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)

		msgs, err = ParseMessages(`[{"ID":1,"Contents":"abc"}]`, false)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})
}
