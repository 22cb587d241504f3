package services

import (
	"fmt"
	"log/slog"
	"regexp"
	"unicode/utf8"

	"discord-package-parser/internal/adapters/parser"
	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/pkg/cancel"
	"discord-package-parser/internal/ports"
)

// DefaultChannelProgressEvery - как часто сообщать о ходе обработки каналов.
const DefaultChannelProgressEvery = 20

// ChannelAggregator обходит каналы выгрузки и собирает статистику сообщений.
type ChannelAggregator struct {
	log           *slog.Logger
	progressEvery int
}

// NewChannelAggregator создает новый экземпляр ChannelAggregator.
func NewChannelAggregator(logger *slog.Logger, progressEvery int) *ChannelAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if progressEvery <= 0 {
		progressEvery = DefaultChannelProgressEvery
	}
	return &ChannelAggregator{log: logger, progressEvery: progressEvery}
}

// channelTally - промежуточные счетчики одного прохода.
type channelTally struct {
	words    *wordCounter
	channels []domain.TopChannel
	dms      []domain.TopDM
	messages uint64
	chars    uint64
	hours    [24]uint64
}

// Aggregate заполняет в stats рейтинги каналов, личных переписок, слов и эмодзи,
// счетчики и гистограмму по часам. profile нужен для определения собеседника
// в личной переписке; без профиля личные переписки пропускаются целиком.
func (a *ChannelAggregator) Aggregate(
	archive ports.Archive,
	layout Layout,
	profile *domain.Profile,
	stats *domain.UserStatistics,
	tok *cancel.Token,
	sink ports.Sink,
) error {
	if err := tok.Err(); err != nil {
		return err
	}

	names := a.loadMessagesIndex(archive, layout)

	ids, err := a.scanChannelIDs(archive.Names(), layout.MessagesRoot, tok)
	if err != nil {
		return err
	}
	sink.Progress(domain.StepMessages, fmt.Sprintf("Found %d channels to process", len(ids)))
	a.log.Info("channels discovered", "count", len(ids), "layout", layout.Channels.String())

	profileID := ""
	if profile != nil {
		profileID = profile.ID
	}

	tally := &channelTally{words: newWordCounter()}
	for i, id := range ids {
		if err := tok.Err(); err != nil {
			return err
		}
		if i%a.progressEvery == 0 {
			sink.Progress(domain.StepMessages, fmt.Sprintf("Processing channel %d of %d (ID: %s)", i+1, len(ids), id))
		}
		if err := a.processChannel(archive, layout, id, profileID, names, tally, tok); err != nil {
			return err
		}
	}

	stats.ChannelCount = uint64(len(tally.channels))
	stats.DMChannelCount = uint64(len(tally.dms))
	stats.MessageCount = tally.messages
	stats.CharacterCount = tally.chars
	stats.HoursHistogram = tally.hours
	stats.TopChannels = topChannels(tally.channels, TopChannelsLimit)
	stats.TopDMs = topDMs(tally.dms, TopDMsLimit)
	stats.TopWords, stats.TopEmotes = tally.words.split(TopWordsLimit, TopEmotesLimit)
	return nil
}

func (a *ChannelAggregator) processChannel(
	archive ports.Archive,
	layout Layout,
	id, profileID string,
	names map[string]string,
	tally *channelTally,
	tok *cancel.Token,
) error {
	logger := a.log.With("channel_id", id)
	variant := layout.Channels

	metaPath := variant.ChannelPath(layout.MessagesRoot, id)
	content, ok, err := archive.Read(metaPath)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("channel metadata not found, skipping", "path", metaPath)
		return nil
	}
	channel, err := parser.ParseJSON[domain.Channel](content)
	if err != nil {
		logger.Debug("failed to parse channel metadata, skipping", "error", domain.WithPath(err, metaPath))
		return nil
	}
	if channel.ID == "" {
		channel.ID = id
	}

	var partner string
	if channel.IsDM() {
		var found bool
		partner, found = channel.Partner(profileID)
		if !found {
			logger.Debug("direct message partner unresolved, skipping")
			return nil
		}
	}

	messages, err := a.loadMessages(archive, layout, id, logger)
	if err != nil {
		return err
	}

	var count uint64
	for i := range messages {
		if err := tok.Err(); err != nil {
			return err
		}
		msg := &messages[i]
		count++
		tally.chars += uint64(msg.Length())
		if ts, err := variant.ParseTimestamp(msg.Timestamp); err == nil {
			tally.hours[ts.Hour()]++
		}
		for _, word := range parser.Tokenize(msg.Contents) {
			if utf8.RuneCountInString(word) > minRankedWordRunes {
				tally.words.add(word)
			}
		}
	}
	tally.messages += count

	if channel.IsDM() {
		tally.dms = append(tally.dms, domain.TopDM{ID: channel.ID, DMUserID: partner, MessageCount: count})
		return nil
	}

	top := domain.TopChannel{ID: channel.ID, MessageCount: count}
	switch {
	case channel.Name != nil && *channel.Name != "":
		top.Name = channel.Name
	case names[channel.ID] != "":
		name := names[channel.ID]
		top.Name = &name
	}
	if channel.Guild != nil {
		guildID, guildName := channel.Guild.ID, channel.Guild.Name
		top.GuildID = &guildID
		top.GuildName = &guildName
	}
	tally.channels = append(tally.channels, top)
	return nil
}

func (a *ChannelAggregator) loadMessages(archive ports.Archive, layout Layout, id string, logger *slog.Logger) ([]domain.Message, error) {
	path := layout.Channels.MessagesPath(layout.MessagesRoot, id)
	content, ok, err := archive.Read(path)
	if err != nil || !ok {
		return nil, err
	}
	messages, err := parser.ParseMessages(content, layout.Channels.IsCSV())
	if err != nil {
		logger.Debug("failed to parse messages, counting none", "error", domain.WithPath(err, path))
		return nil, nil
	}
	return messages, nil
}

// loadMessagesIndex читает отображение id канала -> отображаемое имя.
func (a *ChannelAggregator) loadMessagesIndex(archive ports.Archive, layout Layout) map[string]string {
	path := layout.MessagesIndexPath()
	content, ok, err := archive.Read(path)
	if err != nil || !ok {
		return map[string]string{}
	}
	index, err := parser.ParseJSON[map[string]string](content)
	if err != nil {
		a.log.Debug("failed to parse messages index", "error", domain.WithPath(err, path))
		return map[string]string{}
	}
	return index
}

// scanChannelIDs собирает id каналов из путей элементов под корнем сообщений.
// Учитываются и записи каталогов, и файлы внутри них; порядок - первое появление.
func (a *ChannelAggregator) scanChannelIDs(names []string, root string, tok *cancel.Token) ([]string, error) {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(root) + `/c?([0-9]{16,32})/`)
	seen := make(map[string]struct{})
	var ids []string
	for _, name := range names {
		if err := tok.Err(); err != nil {
			return nil, err
		}
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids, nil
}
