package domain

import (
	"fmt"
	"time"
)

// ChannelLayout - поколение формата хранения каналов в выгрузке.
// Каждый вариант сам знает свои пути и форматы времени.
type ChannelLayout int

const (
	// LayoutCurrent: каталоги c<id>, сообщения в messages.json.
	LayoutCurrent ChannelLayout = iota + 1
	// LayoutPrefixedCSV: каталоги c<id>, сообщения в messages.csv.
	LayoutPrefixedCSV
	// LayoutLegacyCSV: каталоги <id> без префикса, сообщения в messages.csv.
	LayoutLegacyCSV
)

var (
	currentTimestampLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05Z07:00",
		time.RFC3339Nano,
	}
	csvTimestampLayouts = []string{
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
)

func (l ChannelLayout) String() string {
	switch l {
	case LayoutCurrent:
		return "current"
	case LayoutPrefixedCSV:
		return "prefixed-csv"
	case LayoutLegacyCSV:
		return "legacy-csv"
	default:
		return fmt.Sprintf("ChannelLayout(%d)", int(l))
	}
}

// Prefix возвращает префикс каталога канала.
func (l ChannelLayout) Prefix() string {
	if l == LayoutLegacyCSV {
		return ""
	}
	return "c"
}

// IsCSV сообщает, хранятся ли сообщения в CSV.
func (l ChannelLayout) IsCSV() bool {
	return l == LayoutPrefixedCSV || l == LayoutLegacyCSV
}

// Extension возвращает расширение файла сообщений.
func (l ChannelLayout) Extension() string {
	if l.IsCSV() {
		return "csv"
	}
	return "json"
}

// ChannelPath возвращает путь к метаданным канала.
func (l ChannelLayout) ChannelPath(root, id string) string {
	return fmt.Sprintf("%s/%s%s/channel.json", root, l.Prefix(), id)
}

// MessagesPath возвращает путь к файлу сообщений канала.
func (l ChannelLayout) MessagesPath(root, id string) string {
	return fmt.Sprintf("%s/%s%s/messages.%s", root, l.Prefix(), id, l.Extension())
}

// ParseTimestamp разбирает время сообщения по форматам этого поколения.
func (l ChannelLayout) ParseTimestamp(s string) (time.Time, error) {
	layouts := currentTimestampLayouts
	if l.IsCSV() {
		layouts = csvTimestampLayouts
	}
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q: %w", s, firstErr)
}

// LayoutFromFlags выбирает вариант по двум признакам архива.
// Смешанный архив (каталоги без префикса при наличии messages.json) отвергается.
func LayoutFromFlags(legacyLayout, legacyExtension bool) (ChannelLayout, error) {
	switch {
	case legacyLayout && legacyExtension:
		return LayoutLegacyCSV, nil
	case !legacyLayout && legacyExtension:
		return LayoutPrefixedCSV, nil
	case !legacyLayout && !legacyExtension:
		return LayoutCurrent, nil
	default:
		return 0, &StructuralError{
			Root:   "layout",
			Detail: "unprefixed channel directories mixed with JSON message files",
		}
	}
}
