package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"discord-package-parser/internal/adapters/archive"
	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/pkg/cancel"
	"discord-package-parser/internal/ports"
)

// Pipeline последовательно выполняет этапы извлечения:
// открытие архива, профиль, каналы, серверы, затем журнал событий.
type Pipeline struct {
	log                  *slog.Logger
	analyticsCfg         AnalyticsConfig
	probe                ResourceProbe
	channelProgressEvery int
	skipAnalytics        bool

	users     *UserAggregator
	servers   *ServerAggregator
	channels  *ChannelAggregator
	analytics *AnalyticsAggregator
}

var _ ports.Extractor = (*Pipeline)(nil)

// Option - функциональная опция для настройки Pipeline.
type Option func(*Pipeline)

// WithLogger устанавливает логгер для конвейера и всех этапов.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithAnalyticsConfig задает параметры чтения журнала событий.
func WithAnalyticsConfig(cfg AnalyticsConfig) Option {
	return func(p *Pipeline) {
		p.analyticsCfg = cfg
	}
}

// WithResourceProbe подменяет опрос ресурсов машины.
func WithResourceProbe(probe ResourceProbe) Option {
	return func(p *Pipeline) {
		p.probe = probe
	}
}

// WithChannelProgressEvery задает, через сколько каналов сообщать о ходе обработки.
func WithChannelProgressEvery(n int) Option {
	return func(p *Pipeline) {
		p.channelProgressEvery = n
	}
}

// WithSkipAnalytics отключает этап журнала событий.
func WithSkipAnalytics(skip bool) Option {
	return func(p *Pipeline) {
		p.skipAnalytics = skip
	}
}

// NewPipeline создает новый экземпляр Pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		log:                  slog.Default(),
		analyticsCfg:         DefaultAnalyticsConfig(),
		channelProgressEvery: DefaultChannelProgressEvery,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.users = NewUserAggregator(p.log.With("component", "user"))
	p.servers = NewServerAggregator(p.log.With("component", "servers"))
	p.channels = NewChannelAggregator(p.log.With("component", "channels"), p.channelProgressEvery)
	p.analytics = NewAnalyticsAggregator(p.analyticsCfg, p.probe, p.log.With("component", "analytics"))
	return p
}

// Run выполняет извлечение из архива src.
// Структурные ошибки и ошибки ввода-вывода сообщаются в sink один раз с указанием этапа.
// Отмена возвращает domain.ErrCancelled и не сообщается ни как ошибка, ни как завершение.
func (p *Pipeline) Run(ctx context.Context, src ports.ArchiveSource, tok *cancel.Token, sink ports.Sink) (*domain.Report, error) {
	stop := tok.Bind(ctx)
	defer stop()

	if err := tok.Err(); err != nil {
		return nil, err
	}

	ix, err := archive.Open(src, archive.WithLogger(p.log))
	if err != nil {
		title := domain.TitleFileAccess
		if errors.Is(err, archive.ErrInvalidArchive) {
			title = domain.TitleArchive
		}
		return nil, p.fail(sink, domain.StepScaffolding, title, err)
	}
	defer ix.Close()
	sink.Progress(domain.StepScaffolding, "Opened Archive")

	stats, err := p.extractMessages(ix, tok, sink)
	if err != nil {
		return nil, p.fail(sink, domain.StepMessages, domain.TitleExtraction, err)
	}
	sink.ProfileComplete(stats)

	report := &domain.Report{Statistics: stats}
	if p.skipAnalytics {
		return report, nil
	}

	if err := tok.Err(); err != nil {
		return nil, err
	}
	events, err := p.analytics.Aggregate(ctx, ix, tok, sink)
	if err != nil {
		return nil, p.fail(sink, domain.StepAnalytics, domain.TitleAnalytics, err)
	}
	sink.AnalyticsComplete(events)

	report.Events = events
	return report, nil
}

func (p *Pipeline) extractMessages(ix ports.Archive, tok *cancel.Token, sink ports.Sink) (*domain.UserStatistics, error) {
	if err := tok.Err(); err != nil {
		return nil, err
	}
	sink.Progress(domain.StepMessages, "Analyzing package structure...")

	layout, err := ResolveLayout(ix.Names())
	if err != nil {
		return nil, err
	}
	p.log.Info("package layout resolved",
		"messages_root", layout.MessagesRoot,
		"servers_root", layout.ServersRoot,
		"profile_root", layout.ProfileRoot,
		"channel_layout", layout.Channels.String(),
	)

	sink.Progress(domain.StepMessages, "Loading user information...")
	profile, err := p.users.Load(ix, layout)
	if err != nil {
		return nil, err
	}

	stats := domain.NewUserStatistics()
	stats.Profile = profile
	if profile != nil {
		stats.Payments = SummarizePayments(profile.Payments)
	}

	if err := p.channels.Aggregate(ix, layout, profile, stats, tok, sink); err != nil {
		return nil, err
	}

	if err := tok.Err(); err != nil {
		return nil, err
	}
	sink.Progress(domain.StepMessages, "Loading guild information...")
	guilds, err := p.servers.Load(ix, layout)
	if err != nil {
		return nil, err
	}
	stats.Guilds = guilds
	stats.GuildCount = len(guilds)

	sink.Progress(domain.StepMessages, "Finalizing extraction...")
	return stats, nil
}

func (p *Pipeline) fail(sink ports.Sink, step domain.Step, title string, err error) error {
	if errors.Is(err, domain.ErrCancelled) {
		p.log.Info("extraction cancelled", "step", string(step))
		return err
	}
	p.log.Error("extraction failed", "step", string(step), "error", err)
	sink.Error(step, err.Error(), title)
	return fmt.Errorf("%s step: %w", step, err)
}
