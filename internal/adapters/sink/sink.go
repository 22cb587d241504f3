// Package sink содержит реализации получателя уведомлений о ходе извлечения.
package sink

import (
	"log/slog"
	"sync"

	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/ports"
)

// LogSink пишет уведомления в структурированный лог.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink создает новый экземпляр LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{log: logger}
}

func (s *LogSink) Progress(step domain.Step, message string) {
	s.log.Info(message, "step", string(step))
}

func (s *LogSink) Error(step domain.Step, message, title string) {
	s.log.Error(title, "step", string(step), "error", message)
}

func (s *LogSink) ProfileComplete(stats *domain.UserStatistics) {
	s.log.Info("profile statistics ready",
		"messages", stats.MessageCount,
		"channels", stats.ChannelCount,
		"dm_channels", stats.DMChannelCount,
		"guilds", stats.GuildCount,
	)
}

func (s *LogSink) AnalyticsComplete(stats *domain.EventStatistics) {
	s.log.Info("analytics statistics ready", "events", stats.AllEvents, "commands", len(stats.TopCommands))
}

// Multi рассылает уведомления всем вложенным получателям по порядку.
type Multi []ports.Sink

func (m Multi) Progress(step domain.Step, message string) {
	for _, s := range m {
		s.Progress(step, message)
	}
}

func (m Multi) Error(step domain.Step, message, title string) {
	for _, s := range m {
		s.Error(step, message, title)
	}
}

func (m Multi) ProfileComplete(stats *domain.UserStatistics) {
	for _, s := range m {
		s.ProfileComplete(stats)
	}
}

func (m Multi) AnalyticsComplete(stats *domain.EventStatistics) {
	for _, s := range m {
		s.AnalyticsComplete(stats)
	}
}

// Event - одно записанное уведомление.
type Event struct {
	Kind    string // progress, error, profile, analytics
	Step    domain.Step
	Message string
	Title   string
}

// Recorder запоминает все уведомления. Безопасен для конкурентного использования.
type Recorder struct {
	mu        sync.Mutex
	events    []Event
	profile   *domain.UserStatistics
	analytics *domain.EventStatistics
}

// NewRecorder создает новый экземпляр Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Progress(step domain.Step, message string) {
	r.append(Event{Kind: "progress", Step: step, Message: message})
}

func (r *Recorder) Error(step domain.Step, message, title string) {
	r.append(Event{Kind: "error", Step: step, Message: message, Title: title})
}

func (r *Recorder) ProfileComplete(stats *domain.UserStatistics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = stats
	r.events = append(r.events, Event{Kind: "profile", Step: domain.StepMessages})
}

func (r *Recorder) AnalyticsComplete(stats *domain.EventStatistics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analytics = stats
	r.events = append(r.events, Event{Kind: "analytics", Step: domain.StepAnalytics})
}

func (r *Recorder) append(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events возвращает копию записанных уведомлений.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last возвращает последнее уведомление указанного вида.
func (r *Recorder) Last(kind string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// Count возвращает число уведомлений указанного вида.
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Profile возвращает статистику из ProfileComplete, если она была.
func (r *Recorder) Profile() *domain.UserStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile
}

// Analytics возвращает статистику из AnalyticsComplete, если она была.
func (r *Recorder) Analytics() *domain.EventStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.analytics
}

var (
	_ ports.Sink = (*LogSink)(nil)
	_ ports.Sink = Multi(nil)
	_ ports.Sink = (*Recorder)(nil)
)
