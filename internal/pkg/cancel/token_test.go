package cancel

import (
	"context"
	"sync"
	"testing"
	"time"

	"discord-package-parser/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	t.Run("Новый токен не отменен", func(t *testing.T) {
		tok := New()
		assert.False(t, tok.IsCancelled())
		assert.NoError(t, tok.Err())
	})

	t.Run("Отмена видна из других горутин", func(t *testing.T) {
		tok := New()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tok.Cancel()
			}()
		}
		wg.Wait()
		assert.True(t, tok.IsCancelled())
		assert.ErrorIs(t, tok.Err(), domain.ErrCancelled)
	})

	t.Run("Отмена контекста отменяет токен", func(t *testing.T) {
		tok := New()
		ctx, cancel := context.WithCancel(context.Background())
		stop := tok.Bind(ctx)
		defer stop()

		cancel()
		require.Eventually(t, tok.IsCancelled, time.Second, 5*time.Millisecond)
	})

	t.Run("После разрыва связи контекст не влияет на токен", func(t *testing.T) {
		tok := New()
		ctx, cancel := context.WithCancel(context.Background())
		stop := tok.Bind(ctx)
		assert.True(t, stop())

		cancel()
		time.Sleep(10 * time.Millisecond)
		assert.False(t, tok.IsCancelled())
	})
}
