package services

import (
	"regexp"
	"strings"

	"discord-package-parser/internal/domain"
)

var (
	messagesRootRegexp = regexp.MustCompile(`/c?[0-9]{16,32}/channel\.json$`)
	serversRootRegexp  = regexp.MustCompile(`/[0-9]{16,32}/guild\.json$`)
	profileRootRegexp  = regexp.MustCompile(`^([^/]+)/user\.json$`)
)

// Layout - корни разделов выгрузки и поколение формата каналов.
type Layout struct {
	MessagesRoot string
	ServersRoot  string
	ProfileRoot  string
	Channels     domain.ChannelLayout
}

// UserPath возвращает путь к профилю владельца выгрузки.
func (l Layout) UserPath() string {
	return l.ProfileRoot + "/user.json"
}

// MessagesIndexPath возвращает путь к индексу имен каналов.
func (l Layout) MessagesIndexPath() string {
	return l.MessagesRoot + "/index.json"
}

// GuildIndexPath возвращает путь к индексу серверов.
func (l Layout) GuildIndexPath() string {
	return l.ServersRoot + "/index.json"
}

// ResolveLayout определяет корни разделов по именам элементов архива.
// Для каждого корня берется первый подходящий элемент в порядке архива.
func ResolveLayout(names []string) (Layout, error) {
	var l Layout

	sample, ok := firstMatch(names, messagesRootRegexp)
	if !ok {
		return l, &domain.StructuralError{Root: "messages"}
	}
	l.MessagesRoot = parentDir(sample, 2)

	sample, ok = firstMatch(names, serversRootRegexp)
	if !ok {
		return l, &domain.StructuralError{Root: "servers"}
	}
	l.ServersRoot = parentDir(sample, 2)

	sample, ok = firstMatch(names, profileRootRegexp)
	if !ok {
		return l, &domain.StructuralError{Root: "profile"}
	}
	l.ProfileRoot = parentDir(sample, 1)

	channels, err := detectChannelLayout(names, l.MessagesRoot)
	if err != nil {
		return l, err
	}
	l.Channels = channels
	return l, nil
}

// detectChannelLayout вычисляет два признака поколения:
// есть ли каталоги каналов без префикса и нет ли ни одного messages.json в каталогах c<id>.
func detectChannelLayout(names []string, root string) (domain.ChannelLayout, error) {
	q := regexp.QuoteMeta(root)
	unprefixed := regexp.MustCompile(`^` + q + `/[0-9]{16,32}/channel\.json$`)
	prefixedJSON := regexp.MustCompile(`^` + q + `/c[0-9]{16,32}/messages\.json$`)

	legacyLayout := false
	hasJSON := false
	for _, name := range names {
		if !legacyLayout && unprefixed.MatchString(name) {
			legacyLayout = true
		}
		if !hasJSON && prefixedJSON.MatchString(name) {
			hasJSON = true
		}
		if legacyLayout && hasJSON {
			break
		}
	}
	return domain.LayoutFromFlags(legacyLayout, !hasJSON)
}

func firstMatch(names []string, re *regexp.Regexp) (string, bool) {
	for _, name := range names {
		if re.MatchString(name) {
			return name, true
		}
	}
	return "", false
}

// parentDir отбрасывает up последних сегментов пути.
func parentDir(path string, up int) string {
	segments := strings.Split(path, "/")
	if len(segments) <= up {
		return ""
	}
	return strings.Join(segments[:len(segments)-up], "/")
}
