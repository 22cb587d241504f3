package sink

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"discord-package-parser/internal/domain"
)

func TestRecorder(t *testing.T) {
	t.Run("Записывает уведомления в порядке поступления", func(t *testing.T) {
		r := NewRecorder()
		r.Progress(domain.StepScaffolding, "Opened Archive")
		r.Error(domain.StepMessages, "boom", domain.TitleExtraction)

		events := r.Events()
		assert.Len(t, events, 2)
		assert.Equal(t, "progress", events[0].Kind)
		assert.Equal(t, domain.TitleExtraction, events[1].Title)

		last, ok := r.Last("progress")
		assert.True(t, ok)
		assert.Equal(t, "Opened Archive", last.Message)
		assert.Equal(t, 1, r.Count("error"))
	})

	t.Run("Безопасен при конкурентных вызовах", func(t *testing.T) {
		r := NewRecorder()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.Progress(domain.StepAnalytics, "tick")
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, r.Count("progress"))
	})

	t.Run("Запоминает итоговую статистику", func(t *testing.T) {
		r := NewRecorder()
		stats := domain.NewUserStatistics()
		events := domain.NewEventStatistics()
		r.ProfileComplete(stats)
		r.AnalyticsComplete(events)
		assert.Same(t, stats, r.Profile())
		assert.Same(t, events, r.Analytics())
	})
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, b}
	m.Progress(domain.StepMessages, "x")
	m.Error(domain.StepMessages, "y", "z")
	m.ProfileComplete(domain.NewUserStatistics())
	m.AnalyticsComplete(domain.NewEventStatistics())

	assert.Len(t, a.Events(), 4)
	assert.Equal(t, a.Events(), b.Events())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))
	s.Progress(domain.StepMessages, "Found 3 channels to process")
	s.Error(domain.StepAnalytics, "events log not found", domain.TitleAnalytics)

	out := buf.String()
	assert.Contains(t, out, "Found 3 channels to process")
	assert.Contains(t, out, "step=messages")
	assert.Contains(t, out, "Analytics processing error")
}
