// Package cancel предоставляет токен кооперативной отмены длительного извлечения.
package cancel

import (
	"context"
	"sync/atomic"

	"discord-package-parser/internal/domain"
)

// Token - флаг отмены. Устанавливается снаружи, внутри конвейера только читается.
type Token struct {
	cancelled atomic.Bool
}

// New создает новый токен в неотмененном состоянии.
func New() *Token {
	return &Token{}
}

// Cancel устанавливает флаг отмены. Повторные вызовы безопасны.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// IsCancelled сообщает, была ли запрошена отмена.
func (t *Token) IsCancelled() bool {
	return t.cancelled.Load()
}

// Err возвращает domain.ErrCancelled, если отмена запрошена, иначе nil.
func (t *Token) Err() error {
	if t.IsCancelled() {
		return domain.ErrCancelled
	}
	return nil
}

// Bind связывает токен с контекстом: отмена контекста отменяет токен.
// Возвращаемая функция разрывает связь.
func (t *Token) Bind(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, t.Cancel)
}
