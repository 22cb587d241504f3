package exporter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"discord-package-parser/internal/domain"
)

const histogramBarWidth = 30

// TextExporter выводит отчет моноширинными таблицами.
type TextExporter struct {
	maxColumnWidth int
	cjkPadding     bool
}

// TextOption - функциональная опция для TextExporter.
type TextOption func(*TextExporter)

// WithMaxColumnWidth ограничивает ширину колонок; длинные значения переносятся.
func WithMaxColumnWidth(n int) TextOption {
	return func(e *TextExporter) {
		e.maxColumnWidth = n
	}
}

// WithCJKPadding включает поправку ширины для CJK-символов.
func WithCJKPadding(enabled bool) TextOption {
	return func(e *TextExporter) {
		e.cjkPadding = enabled
	}
}

// NewTextExporter создает новый экземпляр TextExporter.
func NewTextExporter(opts ...TextOption) *TextExporter {
	e := &TextExporter{maxColumnWidth: 32}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export записывает текстовый отчет в w.
func (e *TextExporter) Export(w io.Writer, report *domain.Report) error {
	if report == nil || report.Statistics == nil {
		return fmt.Errorf("empty report")
	}
	_, err := io.WriteString(w, e.Render(report))
	return err
}

// Render возвращает текстовый отчет строкой.
func (e *TextExporter) Render(report *domain.Report) string {
	var sb strings.Builder
	e.renderSummary(&sb, report.Statistics)
	e.renderMessages(&sb, report.Statistics)
	if report.Events != nil {
		e.renderEvents(&sb, report.Events)
	}
	return sb.String()
}

// RenderSummary возвращает только сводку: профиль, счетчики и платежи.
func (e *TextExporter) RenderSummary(stats *domain.UserStatistics) string {
	var sb strings.Builder
	e.renderSummary(&sb, stats)
	return sb.String()
}

func (e *TextExporter) newTable(cols ...column) *table {
	t := newTable(e.maxColumnWidth, cols...)
	t.cjkPadding = e.cjkPadding
	return t
}

func (e *TextExporter) renderSummary(sb *strings.Builder, s *domain.UserStatistics) {
	sb.WriteString("--- Discord Package Statistics ---\n")
	fmt.Fprintf(sb, "User: %s\n", profileLabel(s.Profile))
	if s.Profile != nil {
		fmt.Fprintf(sb, "User ID: %s\n", s.Profile.ID)
	}
	fmt.Fprintf(sb, "Messages: %d\n", s.MessageCount)
	fmt.Fprintf(sb, "Characters: %d\n", s.CharacterCount)
	fmt.Fprintf(sb, "Channels: %d\n", s.ChannelCount)
	fmt.Fprintf(sb, "Direct messages: %d\n", s.DMChannelCount)
	fmt.Fprintf(sb, "Guilds: %d\n", s.GuildCount)

	currencies := sortedCurrencies(s.Payments)
	if len(currencies) == 0 {
		sb.WriteString("Payments: none\n")
		return
	}
	sb.WriteString("\nPayments:\n")
	for _, c := range currencies {
		fmt.Fprintf(sb, "  %s %s\n", strings.ToUpper(c), s.Payments.Totals[c].StringFixed(2))
	}
	for _, line := range paymentLines(s.Payments) {
		fmt.Fprintf(sb, "  - %s\n", line)
	}
}

func (e *TextExporter) renderMessages(sb *strings.Builder, s *domain.UserStatistics) {
	sb.WriteString("\nTop channels:\n")
	if len(s.TopChannels) == 0 {
		sb.WriteString("No channels found.\n")
	} else {
		t := e.newTable(column{title: "#", right: true}, column{title: "Channel"}, column{title: "Guild"}, column{title: "Messages", right: true})
		for i, c := range s.TopChannels {
			t.add(strconv.Itoa(i+1), channelLabel(c), guildLabel(c), strconv.FormatUint(c.MessageCount, 10))
		}
		t.render(sb)
	}

	sb.WriteString("\nTop direct messages:\n")
	if len(s.TopDMs) == 0 {
		sb.WriteString("No direct messages found.\n")
	} else {
		t := e.newTable(column{title: "#", right: true}, column{title: "User"}, column{title: "Messages", right: true})
		for i, dm := range s.TopDMs {
			t.add(strconv.Itoa(i+1), dmLabel(s.Profile, dm.DMUserID), strconv.FormatUint(dm.MessageCount, 10))
		}
		t.render(sb)
	}

	e.renderWordCounts(sb, "Top words", s.TopWords)
	e.renderWordCounts(sb, "Top emotes", s.TopEmotes)

	sb.WriteString("\nMessages by hour:\n")
	renderHistogram(sb, s.HoursHistogram)

	if len(s.Guilds) > 0 {
		sb.WriteString("\nGuilds:\n")
		t := e.newTable(column{title: "ID"}, column{title: "Name"})
		for _, g := range s.Guilds {
			t.add(g.ID, g.Name)
		}
		t.render(sb)
	}
}

func (e *TextExporter) renderWordCounts(sb *strings.Builder, title string, items []domain.WordCount) {
	fmt.Fprintf(sb, "\n%s:\n", title)
	if len(items) == 0 {
		sb.WriteString("None.\n")
		return
	}
	t := e.newTable(column{title: "#", right: true}, column{title: "Word"}, column{title: "Count", right: true})
	for i, wc := range items {
		t.add(strconv.Itoa(i+1), wc.Word, strconv.FormatUint(wc.Count, 10))
	}
	t.render(sb)
}

func (e *TextExporter) renderEvents(sb *strings.Builder, ev *domain.EventStatistics) {
	fmt.Fprintf(sb, "\nAnalytics events: %d\n", ev.AllEvents)
	t := e.newTable(column{title: "Event"}, column{title: "Count", right: true})
	for _, ec := range sortedEventCounts(ev) {
		t.add(ec.eventType, strconv.FormatUint(ec.count, 10))
	}
	t.render(sb)

	sb.WriteString("\nTop commands:\n")
	if len(ev.TopCommands) == 0 {
		sb.WriteString("None.\n")
		return
	}
	ct := e.newTable(column{title: "#", right: true}, column{title: "Command"}, column{title: "Description"}, column{title: "Uses", right: true})
	for i, c := range ev.TopCommands {
		ct.add(strconv.Itoa(i+1), commandLabel(c), derefOr(c.Description, ""), strconv.FormatUint(c.Count, 10))
	}
	ct.render(sb)
}

// renderHistogram рисует гистограмму по часам, масштабируя к самому загруженному часу.
func renderHistogram(sb *strings.Builder, hours [24]uint64) {
	var peak uint64
	for _, v := range hours {
		if v > peak {
			peak = v
		}
	}
	for h, v := range hours {
		bar := 0
		if peak > 0 {
			bar = int(v * histogramBarWidth / peak)
		}
		if v > 0 && bar == 0 {
			bar = 1
		}
		fmt.Fprintf(sb, "%02d | %-*s %d\n", h, histogramBarWidth, strings.Repeat("#", bar), v)
	}
}
