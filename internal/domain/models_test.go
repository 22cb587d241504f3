package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel(t *testing.T) {
	t.Run("Поле type принимает строку и число", func(t *testing.T) {
		var a, b Channel
		require.NoError(t, json.Unmarshal([]byte(`{"id":"1","type":"DM"}`), &a))
		require.NoError(t, json.Unmarshal([]byte(`{"id":"2","type":1}`), &b))

		require.NotNil(t, a.Type)
		require.NotNil(t, b.Type)
		assert.Equal(t, FlexString("DM"), *a.Type)
		assert.Equal(t, FlexString("1"), *b.Type)
	})

	t.Run("Личная переписка определяется по числу получателей", func(t *testing.T) {
		dm := Channel{ID: "1", Recipients: []string{"me", "friend"}}
		group := Channel{ID: "2", Recipients: []string{"me", "a", "b"}}

		assert.True(t, dm.IsDM())
		assert.False(t, group.IsDM())

		partner, ok := dm.Partner("me")
		assert.True(t, ok)
		assert.Equal(t, "friend", partner)

		_, ok = dm.Partner("")
		assert.False(t, ok, "без профиля собеседник не определяется")
	})
}

func TestMessage(t *testing.T) {
	t.Run("Длина считается в байтах", func(t *testing.T) {
		m := Message{Contents: "привет"}
		assert.Equal(t, 12, m.Length())
	})

	t.Run("Слова разделяются пробельными символами", func(t *testing.T) {
		m := Message{Contents: "  Hello,\tworld!\nagain "}
		assert.Equal(t, []string{"Hello,", "world!", "again"}, m.Words())
	})
}

func TestNewEventStatistics(t *testing.T) {
	stats := NewEventStatistics()
	assert.Len(t, stats.Counts, 21)
	for _, k := range KnownEventTypes {
		v, ok := stats.Counts[k]
		assert.True(t, ok, k)
		assert.Zero(t, v)
	}
}

func TestErrors(t *testing.T) {
	t.Run("Типизированные ошибки распознаются через errors.As", func(t *testing.T) {
		err := fmt.Errorf("stage: %w", &StructuralError{Root: "messages"})
		var se *StructuralError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "messages", se.Root)
		assert.Contains(t, err.Error(), "messages root not found")
	})

	t.Run("DecodeError и IOError раскрывают причину", func(t *testing.T) {
		cause := errors.New("boom")
		assert.ErrorIs(t, &DecodeError{Path: "a.json", Err: cause}, cause)
		assert.ErrorIs(t, &IOError{Path: "a.zip", Err: cause}, cause)
	})

	t.Run("WithPath дописывает путь в ошибку разбора", func(t *testing.T) {
		err := fmt.Errorf("channel: %w", &DecodeError{Err: errors.New("unexpected EOF")})
		err = WithPath(err, "messages/c1/messages.json")
		assert.Contains(t, err.Error(), "failed to decode messages/c1/messages.json")

		kept := WithPath(&DecodeError{Path: "a.json", Err: errors.New("x")}, "b.json")
		assert.Contains(t, kept.Error(), "a.json")

		plain := errors.New("io")
		assert.Same(t, plain, WithPath(plain, "c.json"))
	})

	t.Run("Отмена отличается от ошибки", func(t *testing.T) {
		err := fmt.Errorf("channels: %w", ErrCancelled)
		assert.ErrorIs(t, err, ErrCancelled)
		var se *StructuralError
		assert.False(t, errors.As(err, &se))
	})
}
