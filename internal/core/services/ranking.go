package services

import (
	"regexp"
	"sort"

	"discord-package-parser/internal/domain"
)

// Ограничения рейтингов в отчете.
const (
	TopChannelsLimit = 10
	TopDMsLimit      = 10
	TopWordsLimit    = 10
	TopEmotesLimit   = 10
	TopCommandsLimit = 20

	// minRankedWordRunes - слова короче или равные этой длине в рейтинг не попадают.
	minRankedWordRunes = 5
)

var emoteRegexp = regexp.MustCompile(`<a?:\w+:\d+>`)

// IsEmote сообщает, содержит ли токен кастомный эмодзи вида <:name:id> или <a:name:id>.
// Токен с эмодзи внутри (знаки препинания, несколько эмодзи подряд) в рейтинг слов не попадает.
func IsEmote(token string) bool {
	return emoteRegexp.MatchString(token)
}

// wordCounter считает токены, сохраняя порядок первого появления.
type wordCounter struct {
	index map[string]int
	items []domain.WordCount
}

func newWordCounter() *wordCounter {
	return &wordCounter{index: make(map[string]int)}
}

func (c *wordCounter) add(word string) {
	if i, ok := c.index[word]; ok {
		c.items[i].Count++
		return
	}
	c.index[word] = len(c.items)
	c.items = append(c.items, domain.WordCount{Word: word, Count: 1})
}

// split сортирует токены по убыванию частоты (при равенстве - по первому появлению)
// и разносит их по двум непересекающимся рейтингам: слова и эмодзи.
func (c *wordCounter) split(wordsLimit, emotesLimit int) (words, emotes []domain.WordCount) {
	sorted := make([]domain.WordCount, len(c.items))
	copy(sorted, c.items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })

	words = make([]domain.WordCount, 0, wordsLimit)
	emotes = make([]domain.WordCount, 0, emotesLimit)
	for _, wc := range sorted {
		if IsEmote(wc.Word) {
			if len(emotes) < emotesLimit {
				emotes = append(emotes, wc)
			}
		} else if len(words) < wordsLimit {
			words = append(words, wc)
		}
		if len(words) == wordsLimit && len(emotes) == emotesLimit {
			break
		}
	}
	return words, emotes
}

func topChannels(channels []domain.TopChannel, limit int) []domain.TopChannel {
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].MessageCount > channels[j].MessageCount })
	if len(channels) > limit {
		channels = channels[:limit]
	}
	return channels
}

func topDMs(dms []domain.TopDM, limit int) []domain.TopDM {
	sort.SliceStable(dms, func(i, j int) bool { return dms[i].MessageCount > dms[j].MessageCount })
	if len(dms) > limit {
		dms = dms[:limit]
	}
	return dms
}
