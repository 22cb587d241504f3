package services

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-package-parser/internal/adapters/archive"
	"discord-package-parser/internal/adapters/sink"
	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/pkg/cancel"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cancelOnProgress отменяет токен при первом уведомлении о прогрессе с заданным префиксом.
type cancelOnProgress struct {
	*sink.Recorder
	tok    *cancel.Token
	prefix string
}

func (s *cancelOnProgress) Progress(step domain.Step, message string) {
	s.Recorder.Progress(step, message)
	if strings.HasPrefix(message, s.prefix) {
		s.tok.Cancel()
	}
}

func aggregateChannels(t *testing.T, ix *archive.Index, profile *domain.Profile) (*domain.UserStatistics, *sink.Recorder) {
	t.Helper()
	layout, err := ResolveLayout(ix.Names())
	require.NoError(t, err)

	stats := domain.NewUserStatistics()
	rec := sink.NewRecorder()
	agg := NewChannelAggregator(discardLogger(), 0)
	require.NoError(t, agg.Aggregate(ix, layout, profile, stats, cancel.New(), rec))
	return stats, rec
}

func TestChannelAggregator(t *testing.T) {
	owner := &domain.Profile{ID: ownerID}

	t.Run("Счетчики, гистограмма и рейтинги", func(t *testing.T) {
		ix := newPackage(t).withProfile().withCurrentChannels().withServers().open()
		stats, rec := aggregateChannels(t, ix, owner)

		assert.Equal(t, uint64(2), stats.ChannelCount)
		assert.Equal(t, uint64(1), stats.DMChannelCount)
		assert.Equal(t, uint64(6), stats.MessageCount)
		assert.Equal(t, uint64(109), stats.CharacterCount)

		var want [24]uint64
		want[8], want[10], want[23] = 2, 2, 1
		assert.Equal(t, want, stats.HoursHistogram)

		require.Len(t, stats.TopChannels, 2)
		top := stats.TopChannels[0]
		assert.Equal(t, channelA, top.ID)
		assert.Equal(t, uint64(3), top.MessageCount)
		require.NotNil(t, top.Name)
		assert.Equal(t, "general-index", *top.Name, "имя берется из индекса, если в метаданных его нет")
		require.NotNil(t, top.GuildID)
		assert.Equal(t, guildID, *top.GuildID)
		assert.Equal(t, "Gophers", *top.GuildName)

		group := stats.TopChannels[1]
		assert.Equal(t, channelC, group.ID)
		assert.Equal(t, "Friends", *group.Name)
		assert.Nil(t, group.GuildID)
		assert.Nil(t, group.GuildName)

		require.Len(t, stats.TopDMs, 1)
		assert.Equal(t, domain.TopDM{ID: channelDM, DMUserID: friendID, MessageCount: 1}, stats.TopDMs[0])

		assert.Equal(t, []domain.WordCount{
			{Word: "everywhere", Count: 3},
			{Word: "gophers", Count: 2},
			{Word: "привет", Count: 1},
		}, stats.TopWords)
		assert.Equal(t, []domain.WordCount{
			{Word: "<:gopher:123456789>", Count: 1},
			{Word: "<a:dance:987654321>", Count: 1},
		}, stats.TopEmotes)

		first, ok := rec.Last("progress")
		require.True(t, ok)
		assert.Equal(t, "Processing channel 1 of 5 (ID: "+channelA+")", first.Message)
		assert.Equal(t, "Found 5 channels to process", rec.Events()[0].Message)
	})

	t.Run("Без профиля личные переписки не учитываются нигде", func(t *testing.T) {
		ix := newPackage(t).withCurrentChannels().withServers().open()
		stats, _ := aggregateChannels(t, ix, nil)

		assert.Equal(t, uint64(0), stats.DMChannelCount)
		assert.Empty(t, stats.TopDMs)
		assert.Equal(t, uint64(5), stats.MessageCount)
		assert.Equal(t, uint64(86), stats.CharacterCount)
		assert.Zero(t, stats.HoursHistogram[23])
		require.NotEmpty(t, stats.TopWords)
		assert.Equal(t, domain.WordCount{Word: "gophers", Count: 2}, stats.TopWords[0], "при равенстве выше слово, встреченное раньше")
	})

	t.Run("Сумма гистограммы не превышает число сообщений", func(t *testing.T) {
		ix := newPackage(t).withProfile().withCurrentChannels().withServers().open()
		stats, _ := aggregateChannels(t, ix, owner)
		var sum uint64
		for _, v := range stats.HoursHistogram {
			sum += v
		}
		assert.LessOrEqual(t, sum, stats.MessageCount)
	})

	t.Run("Отсутствующий файл сообщений дает ноль сообщений", func(t *testing.T) {
		ix := newPackage(t).
			add("messages/c"+channelA+"/channel.json", `{"id": "`+channelA+`", "name": "empty", "guild": {"id": "1", "name": "g"}}`).
			withServers().
			add("account/user.json", `{"id": "`+ownerID+`"}`).
			open()
		stats, _ := aggregateChannels(t, ix, owner)
		assert.Equal(t, uint64(1), stats.ChannelCount)
		assert.Equal(t, uint64(0), stats.MessageCount)
		require.Len(t, stats.TopChannels, 1)
		assert.Equal(t, uint64(0), stats.TopChannels[0].MessageCount)
	})

	t.Run("Поврежденный файл сообщений дает ноль сообщений", func(t *testing.T) {
		ix := newPackage(t).
			add("messages/c"+channelA+"/channel.json", `{"id": "`+channelA+`"}`).
			add("messages/c"+channelA+"/messages.json", `[{"ID": 1, "Contents": `).
			withServers().
			add("account/user.json", `{"id": "`+ownerID+`"}`).
			open()
		stats, _ := aggregateChannels(t, ix, owner)
		assert.Equal(t, uint64(1), stats.ChannelCount)
		assert.Equal(t, uint64(0), stats.MessageCount)
	})

	t.Run("Старый формат CSV", func(t *testing.T) {
		ix := newPackage(t).
			add("messages/"+channelA+"/channel.json", `{"id": "`+channelA+`", "guild": {"id": "`+guildID+`", "name": "Gophers"}}`).
			add("messages/"+channelA+"/messages.csv", "ID,Timestamp,Contents,Attachments\n"+
				"1,2020-03-04 09:15:00.123000+00:00,legacy message,\n"+
				"2,2020-03-04 21:00:00.000000+00:00,,https://cdn/a.png\n").
			withServers().
			add("account/user.json", `{"id": "`+ownerID+`"}`).
			open()
		stats, _ := aggregateChannels(t, ix, owner)
		assert.Equal(t, uint64(1), stats.MessageCount, "строка с пустым Contents пропускается")
		assert.Equal(t, uint64(1), stats.HoursHistogram[9])
		assert.Equal(t, []domain.WordCount{{Word: "legacy", Count: 1}, {Word: "message", Count: 1}}, stats.TopWords)
	})

	t.Run("Рейтинг каналов ограничен десятью", func(t *testing.T) {
		b := newPackage(t).withServers().add("account/user.json", `{"id": "`+ownerID+`"}`)
		for i := 0; i < 12; i++ {
			id := "2100000000000000" + string(rune('1'+i/10)) + string(rune('0'+i%10))
			b.add("messages/c"+id+"/channel.json", `{"id": "`+id+`"}`)
			msgs := "["
			for j := 0; j <= i; j++ {
				if j > 0 {
					msgs += ","
				}
				msgs += `{"ID": 1, "Timestamp": "2023-01-01 00:00:00", "Contents": "x"}`
			}
			b.add("messages/c"+id+"/messages.json", msgs+"]")
		}
		stats, _ := aggregateChannels(t, b.open(), owner)

		assert.Equal(t, uint64(12), stats.ChannelCount)
		require.Len(t, stats.TopChannels, TopChannelsLimit)
		for i := 1; i < len(stats.TopChannels); i++ {
			assert.GreaterOrEqual(t, stats.TopChannels[i-1].MessageCount, stats.TopChannels[i].MessageCount)
		}
		assert.Equal(t, uint64(12), stats.TopChannels[0].MessageCount)
	})

	t.Run("Повторный запуск дает тот же результат", func(t *testing.T) {
		ix := newPackage(t).withProfile().withCurrentChannels().withServers().open()
		first, _ := aggregateChannels(t, ix, owner)
		second, _ := aggregateChannels(t, ix, owner)
		assert.Equal(t, first, second)
	})

	t.Run("Отмененный токен останавливает обход до начала", func(t *testing.T) {
		ix := newPackage(t).withProfile().withCurrentChannels().withServers().open()
		layout, err := ResolveLayout(ix.Names())
		require.NoError(t, err)

		tok := cancel.New()
		tok.Cancel()
		stats := domain.NewUserStatistics()
		rec := sink.NewRecorder()

		err = NewChannelAggregator(discardLogger(), 0).Aggregate(ix, layout, owner, stats, tok, rec)
		assert.True(t, errors.Is(err, domain.ErrCancelled))
		assert.Empty(t, rec.Events())
		assert.Zero(t, stats.MessageCount)
	})

	t.Run("Отмена во время обхода каналов", func(t *testing.T) {
		ix := newPackage(t).withProfile().withCurrentChannels().withServers().open()
		layout, err := ResolveLayout(ix.Names())
		require.NoError(t, err)

		tok := cancel.New()
		rec := &cancelOnProgress{Recorder: sink.NewRecorder(), tok: tok, prefix: "Processing channel 1 of"}
		stats := domain.NewUserStatistics()

		err = NewChannelAggregator(discardLogger(), 0).Aggregate(ix, layout, owner, stats, tok, rec)
		assert.ErrorIs(t, err, domain.ErrCancelled)
		assert.Equal(t, domain.NewUserStatistics(), stats, "частичный результат в отчет не попадает")
		assert.Equal(t, 2, rec.Count("progress"))
	})
}

func TestWordCounterSplit(t *testing.T) {
	c := newWordCounter()
	for _, w := range []string{"<:a:1>", "golang", "<:a:1>", "golang", "golang", "<a:b:22>", "channel"} {
		c.add(w)
	}
	words, emotes := c.split(1, 10)
	assert.Equal(t, []domain.WordCount{{Word: "golang", Count: 3}}, words)
	assert.Equal(t, []domain.WordCount{{Word: "<:a:1>", Count: 2}, {Word: "<a:b:22>", Count: 1}}, emotes)
}

func TestIsEmote(t *testing.T) {
	assert.True(t, IsEmote("<:party_parrot:123>"))
	assert.True(t, IsEmote("<a:dance:987654321>"))
	assert.False(t, IsEmote("<:broken>"))
	assert.True(t, IsEmote("text<:a:1>"))
	assert.True(t, IsEmote("(<a:dance:987654321>)"))
	assert.False(t, IsEmote(":smile:"))
	assert.False(t, IsEmote("<:name:>"))
}

func TestWordCounterSplit_EmoteInsideToken(t *testing.T) {
	c := newWordCounter()
	for _, w := range []string{"<:pog:123456789>,", "<:pog:1><:kek:2>", "(<a:dance:987654321>)", "<:pog:123456789>", "gophers"} {
		c.add(w)
	}
	words, emotes := c.split(10, 10)
	assert.Equal(t, []domain.WordCount{{Word: "gophers", Count: 1}}, words)
	assert.Len(t, emotes, 4)
	for _, wc := range words {
		assert.False(t, emoteRegexp.MatchString(wc.Word), wc.Word)
	}
}
