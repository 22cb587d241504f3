// Package exporter выводит отчет об извлечении в текстовом, JSON и XLSX форматах.
package exporter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/ports"
)

// Поддерживаемые форматы вывода.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// ErrUnknownFormat возвращается для неподдерживаемого формата.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats перечисляет поддерживаемые форматы.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatXLSX}
}

// New возвращает экспортер для указанного формата.
func New(format string) (ports.Exporter, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewTextExporter(), nil
	case FormatJSON:
		return NewJSONExporter(), nil
	case FormatXLSX:
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// channelLabel - имя канала, а если его нет - id.
func channelLabel(c domain.TopChannel) string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.ID
}

func guildLabel(c domain.TopChannel) string {
	if c.GuildName != nil && *c.GuildName != "" {
		return *c.GuildName
	}
	if c.GuildID != nil {
		return *c.GuildID
	}
	return ""
}

// dmLabel подставляет имя собеседника из списка связей профиля, если оно известно.
func dmLabel(profile *domain.Profile, userID string) string {
	if profile == nil {
		return userID
	}
	for _, r := range profile.Relationships {
		if r.User.ID != userID {
			continue
		}
		if r.User.GlobalName != nil && *r.User.GlobalName != "" {
			return *r.User.GlobalName
		}
		if r.User.Username != "" {
			return r.User.Username
		}
	}
	return userID
}

// profileLabel - отображаемое имя владельца выгрузки.
func profileLabel(p *domain.Profile) string {
	if p == nil {
		return "unknown"
	}
	name := p.Username
	if p.GlobalName != nil && *p.GlobalName != "" {
		name = fmt.Sprintf("%s (@%s)", *p.GlobalName, p.Username)
	}
	if p.Discriminator != "" && p.Discriminator != "0" {
		name += "#" + string(p.Discriminator)
	}
	return name
}

func sortedCurrencies(s domain.PaymentSummary) []string {
	keys := make([]string, 0, len(s.Totals))
	for k := range s.Totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// paymentLines разбивает список платежей на строки.
func paymentLines(s domain.PaymentSummary) []string {
	if s.List == "" {
		return nil
	}
	return strings.Split(s.List, domain.PaymentListSeparator)
}

func commandLabel(c domain.CommandUsage) string {
	if c.Name != nil && *c.Name != "" {
		return "/" + *c.Name
	}
	return c.CommandID
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

type eventCount struct {
	eventType string
	count     uint64
}

// sortedEventCounts возвращает известные типы событий в порядке словаря.
func sortedEventCounts(e *domain.EventStatistics) []eventCount {
	out := make([]eventCount, 0, len(domain.KnownEventTypes))
	for _, t := range domain.KnownEventTypes {
		out = append(out, eventCount{eventType: t, count: e.Counts[t]})
	}
	return out
}
