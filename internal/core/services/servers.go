package services

import (
	"log/slog"
	"sort"

	"discord-package-parser/internal/adapters/parser"
	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/ports"
)

// ServerAggregator загружает список серверов из индекса серверов.
type ServerAggregator struct {
	log *slog.Logger
}

// NewServerAggregator создает новый экземпляр ServerAggregator.
func NewServerAggregator(logger *slog.Logger) *ServerAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerAggregator{log: logger}
}

// Load читает <serversRoot>/index.json (отображение id -> имя) и возвращает
// серверы, отсортированные по числовому id. Отсутствующий или поврежденный индекс
// дает пустой список.
func (a *ServerAggregator) Load(archive ports.Archive, layout Layout) ([]domain.Guild, error) {
	path := layout.GuildIndexPath()
	content, ok, err := archive.Read(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		a.log.Debug("guild index not found", "path", path)
		return []domain.Guild{}, nil
	}

	index, err := parser.ParseJSON[map[string]string](content)
	if err != nil {
		a.log.Warn("failed to parse guild index", "error", domain.WithPath(err, path))
		return []domain.Guild{}, nil
	}

	guilds := make([]domain.Guild, 0, len(index))
	for id, name := range index {
		guilds = append(guilds, domain.Guild{ID: id, Name: name})
	}
	sort.Slice(guilds, func(i, j int) bool { return lessSnowflake(guilds[i].ID, guilds[j].ID) })
	return guilds, nil
}

// lessSnowflake сравнивает десятичные идентификаторы как числа без переполнения.
func lessSnowflake(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
