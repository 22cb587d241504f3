package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexString принимает в JSON как строку, так и число.
// В разных поколениях выгрузки одно и то же поле встречается в обоих видах.
type FlexString string

// UnmarshalJSON реализует json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = FlexString(num.String())
	return nil
}

// Guild представляет сервер, к которому относится канал.
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel представляет метаданные канала из channel.json.
type Channel struct {
	ID         string      `json:"id"`
	Name       *string     `json:"name"`
	Type       *FlexString `json:"type"` // Может быть строкой или числом
	Recipients []string    `json:"recipients"`
	Guild      *Guild      `json:"guild"`
}

// IsDM сообщает, является ли канал личной перепиской.
// Решающим считается количество получателей, а не поле type.
func (c *Channel) IsDM() bool {
	return len(c.Recipients) == 2
}

// Partner возвращает собеседника в личной переписке, то есть получателя,
// отличного от владельца выгрузки.
func (c *Channel) Partner(profileID string) (string, bool) {
	if !c.IsDM() || profileID == "" {
		return "", false
	}
	for _, r := range c.Recipients {
		if r != profileID {
			return r, true
		}
	}
	return "", false
}

// Message представляет одно сообщение пользователя.
type Message struct {
	ID          string   `json:"id"`
	Timestamp   string   `json:"timestamp"`
	Contents    string   `json:"contents"`
	Attachments []string `json:"attachments"`
}

// Length возвращает длину сообщения в байтах UTF-8.
func (m *Message) Length() int {
	return len(m.Contents)
}

// Words возвращает токены сообщения, разделенные пробельными символами.
func (m *Message) Words() []string {
	return strings.Fields(m.Contents)
}

// Payment представляет один платеж из профиля.
type Payment struct {
	Status      int    `json:"status"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"` // В минимальных единицах валюты
	CreatedAt   string `json:"created_at"`
	Description string `json:"description"`
}

// RelationshipUser представляет пользователя из списка связей.
type RelationshipUser struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	GlobalName    *string    `json:"global_name"`
	Discriminator FlexString `json:"discriminator"`
	Avatar        *string    `json:"avatar"`
}

// Relationship представляет связь (друг, блокировка) владельца выгрузки.
type Relationship struct {
	User RelationshipUser `json:"user"`
}

// Profile представляет владельца выгрузки из user.json.
type Profile struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	GlobalName    *string        `json:"global_name"`
	Discriminator FlexString     `json:"discriminator"`
	AvatarHash    *string        `json:"avatar_hash"`
	Payments      []Payment      `json:"payments"`
	Relationships []Relationship `json:"relationships"`
}

// PaymentSummary содержит итоги по подтвержденным платежам.
type PaymentSummary struct {
	// Totals - сумма в основных единицах по каждой валюте.
	Totals map[string]decimal.Decimal `json:"totals"`
	// List - человекочитаемый список платежей, разделенный PaymentListSeparator.
	List string `json:"list"`
}

// PaymentListSeparator разделяет строки в PaymentSummary.List.
const PaymentListSeparator = "<br>"

// TopChannel - канал сервера в рейтинге по количеству сообщений.
type TopChannel struct {
	ID           string  `json:"id"`
	Name         *string `json:"name"`
	MessageCount uint64  `json:"message_count"`
	GuildID      *string `json:"guild_id"`
	GuildName    *string `json:"guild_name"`
}

// TopDM - личная переписка в рейтинге по количеству сообщений.
type TopDM struct {
	ID           string `json:"id"`
	DMUserID     string `json:"dm_user_id"`
	MessageCount uint64 `json:"message_count"`
}

// WordCount - слово или эмодзи с количеством употреблений.
type WordCount struct {
	Word  string `json:"word"`
	Count uint64 `json:"count"`
}

// UserStatistics - итоговый отчет по сообщениям, профилю и серверам.
type UserStatistics struct {
	Profile        *Profile       `json:"profile"`
	Payments       PaymentSummary `json:"payments"`
	TopChannels    []TopChannel   `json:"top_channels"`
	TopDMs         []TopDM        `json:"top_dms"`
	Guilds         []Guild        `json:"guilds"`
	GuildCount     int            `json:"guild_count"`
	ChannelCount   uint64         `json:"channel_count"`
	DMChannelCount uint64         `json:"dm_channel_count"`
	MessageCount   uint64         `json:"message_count"`
	CharacterCount uint64         `json:"character_count"`
	HoursHistogram [24]uint64     `json:"hours_histogram"`
	TopWords       []WordCount    `json:"top_words"`
	TopEmotes      []WordCount    `json:"top_emotes"`
}

// NewUserStatistics создает пустой отчет с инициализированными коллекциями.
func NewUserStatistics() *UserStatistics {
	return &UserStatistics{
		Payments:    PaymentSummary{Totals: map[string]decimal.Decimal{}},
		TopChannels: []TopChannel{},
		TopDMs:      []TopDM{},
		Guilds:      []Guild{},
		TopWords:    []WordCount{},
		TopEmotes:   []WordCount{},
	}
}

// CommandUsage - статистика использования одной slash-команды.
type CommandUsage struct {
	CommandID     string  `json:"command_id"`
	ApplicationID string  `json:"application_id"`
	Name          *string `json:"command_name"`
	Description   *string `json:"command_description"`
	Count         uint64  `json:"count"`
}

// EventStatistics - итоговый отчет по журналу событий.
type EventStatistics struct {
	// Counts содержит ровно по одному ключу на каждый тип из KnownEventTypes.
	Counts      map[string]uint64 `json:"counts"`
	AllEvents   uint64            `json:"all_events"`
	TopCommands []CommandUsage    `json:"top_commands"`
}

// NewEventStatistics создает отчет с нулевыми счетчиками для всех известных типов.
func NewEventStatistics() *EventStatistics {
	counts := make(map[string]uint64, len(KnownEventTypes))
	for _, t := range KnownEventTypes {
		counts[t] = 0
	}
	return &EventStatistics{
		Counts:      counts,
		TopCommands: []CommandUsage{},
	}
}

// EventApplicationCommandUsed - тип события, для которого ведется рейтинг команд.
const EventApplicationCommandUsed = "application_command_used"

// KnownEventTypes - словарь типов событий, которые считаются поименно.
var KnownEventTypes = []string{
	"application_created",
	"bot_token_compromised",
	"email_opened",
	"login_successful",
	"user_avatar_updated",
	"app_opened",
	"notification_clicked",
	"app_crashed",
	"app_native_crash",
	"oauth2_authorize_accepted",
	"remote_auth_login",
	"captcha_served",
	"voice_message_recorded",
	"message_reported",
	"message_edited",
	"premium_upsell_viewed",
	EventApplicationCommandUsed,
	"add_reaction",
	"guild_joined",
	"join_voice_channel",
	"leave_voice_channel",
}

// Report объединяет оба результата извлечения.
type Report struct {
	Statistics *UserStatistics  `json:"statistics"`
	Events     *EventStatistics `json:"events"`
}
