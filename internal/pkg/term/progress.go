// Package term выводит ход извлечения в терминал.
package term

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"discord-package-parser/internal/domain"
)

// IsTerminal сообщает, подключен ли f к терминалу.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width возвращает ширину терминала или fallback, если ее не удалось узнать.
func Width(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// Progress - приемник уведомлений для командной строки.
// В интерактивном режиме прогресс перерисовывается в одной строке,
// иначе каждое уведомление пишется в лог.
type Progress struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	width       int
	dirty       bool
	log         *slog.Logger
}

// NewProgress создает приемник. width - ширина строки в интерактивном режиме.
func NewProgress(out io.Writer, interactive bool, width int, logger *slog.Logger) *Progress {
	if logger == nil {
		logger = slog.Default()
	}
	return &Progress{out: out, interactive: interactive, width: width, log: logger}
}

func (p *Progress) Progress(step domain.Step, message string) {
	if !p.interactive {
		p.log.Info(message, "step", string(step))
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	line := runewidth.Truncate(fmt.Sprintf("[%s] %s", step, message), p.width-1, "…")
	fmt.Fprintf(p.out, "\r\033[K%s", line)
	p.dirty = true
}

func (p *Progress) Error(step domain.Step, message, title string) {
	p.Finish()
	p.log.Error(title, "step", string(step), "error", message)
}

func (p *Progress) ProfileComplete(stats *domain.UserStatistics) {
	p.Finish()
	p.log.Info("message statistics ready",
		"messages", stats.MessageCount,
		"channels", stats.ChannelCount,
		"guilds", stats.GuildCount,
	)
}

func (p *Progress) AnalyticsComplete(stats *domain.EventStatistics) {
	p.Finish()
	p.log.Info("analytics statistics ready", "events", stats.AllEvents)
}

// Finish завершает перерисовываемую строку, чтобы следующий вывод начался с новой.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty {
		fmt.Fprintln(p.out)
		p.dirty = false
	}
}
