package services

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"discord-package-parser/internal/adapters/archive"
	"discord-package-parser/internal/adapters/source"
	"discord-package-parser/internal/ports"
)

const (
	ownerID   = "100000000000000001"
	friendID  = "100000000000000002"
	guildID   = "300000000000000001"
	channelA  = "200000000000000001"
	channelDM = "200000000000000002"
	channelC  = "200000000000000003"
	channelD  = "200000000000000004"
	channelE  = "200000000000000005"
)

type zipMember struct {
	name    string
	content string
}

// packageBuilder собирает zip-архив выгрузки в памяти.
type packageBuilder struct {
	t       *testing.T
	members []zipMember
}

func newPackage(t *testing.T) *packageBuilder {
	t.Helper()
	return &packageBuilder{t: t}
}

func (b *packageBuilder) add(name, content string) *packageBuilder {
	b.members = append(b.members, zipMember{name: name, content: content})
	return b
}

func (b *packageBuilder) addJSON(name string, v any) *packageBuilder {
	data, err := json.Marshal(v)
	require.NoError(b.t, err)
	return b.add(name, string(data))
}

func (b *packageBuilder) bytes() []byte {
	b.t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range b.members {
		w, err := zw.Create(m.name)
		require.NoError(b.t, err)
		_, err = w.Write([]byte(m.content))
		require.NoError(b.t, err)
	}
	require.NoError(b.t, zw.Close())
	return buf.Bytes()
}

func (b *packageBuilder) source() ports.ArchiveSource {
	return source.NewMemorySource("test-package.zip", b.bytes())
}

func (b *packageBuilder) open() *archive.Index {
	b.t.Helper()
	ix, err := archive.Open(b.source())
	require.NoError(b.t, err)
	b.t.Cleanup(func() { ix.Close() })
	return ix
}

// withProfile добавляет user.json владельца выгрузки.
func (b *packageBuilder) withProfile() *packageBuilder {
	return b.add("account/user.json", `{
		"id": "`+ownerID+`",
		"username": "gopher",
		"global_name": "Gopher",
		"discriminator": 0,
		"avatar_hash": null,
		"payments": [
			{"status": 1, "currency": "usd", "amount": 999, "created_at": "2023-02-01T10:00:00", "description": "Nitro Monthly"},
			{"status": 2, "currency": "usd", "amount": 500, "created_at": "2023-01-15T10:00:00", "description": "Refunded"},
			{"status": 1, "currency": "eur", "amount": 450, "created_at": "2022-12-01T10:00:00", "description": "Server Boost"}
		],
		"relationships": [
			{"user": {"id": "`+friendID+`", "username": "friend", "global_name": null, "discriminator": "0001", "avatar": null}}
		]
	}`)
}

// withCurrentChannels добавляет каналы в текущем формате (c<id>, messages.json).
func (b *packageBuilder) withCurrentChannels() *packageBuilder {
	return b.
		add("messages/index.json", `{"`+channelA+`": "general-index", "`+channelC+`": "friends-index"}`).
		add("messages/c"+channelA+"/channel.json", `{"id": "`+channelA+`", "type": 0, "guild": {"id": "`+guildID+`", "name": "Gophers"}}`).
		add("messages/c"+channelA+"/messages.json", `[
			{"ID": 1, "Timestamp": "2023-01-01 10:00:00", "Contents": "Hello gophers everywhere", "Attachments": ""},
			{"ID": 2, "Timestamp": "2023-01-01 10:30:00", "Contents": "gophers <:gopher:123456789>", "Attachments": ""},
			{"ID": 3, "Timestamp": "bad", "Contents": "", "Attachments": "https://cdn/a.png"}
		]`).
		add("messages/c"+channelDM+"/channel.json", `{"id": "`+channelDM+`", "type": 1, "recipients": ["`+ownerID+`", "`+friendID+`"]}`).
		add("messages/c"+channelDM+"/messages.json", `[
			{"ID": 4, "Timestamp": "2023-01-01 23:15:00", "Contents": "привет everywhere", "Attachments": ""}
		]`).
		add("messages/c"+channelC+"/channel.json", `{"id": "`+channelC+`", "type": 3, "name": "Friends", "recipients": ["`+ownerID+`", "a", "b"]}`).
		add("messages/c"+channelC+"/messages.json", `[
			{"ID": 5, "Timestamp": "2023-01-02 08:00:00", "Contents": "<a:dance:987654321> everywhere", "Attachments": ""},
			{"ID": 6, "Timestamp": "2023-01-02 08:05:00", "Contents": "short", "Attachments": ""}
		]`).
		add("messages/c"+channelD+"/channel.json", `{broken`).
		add("messages/c"+channelE+"/", "")
}

func (b *packageBuilder) withServers() *packageBuilder {
	return b.
		add("servers/"+guildID+"/guild.json", `{"id": "`+guildID+`", "name": "Gophers"}`).
		add("servers/index.json", `{"`+guildID+`": "Gophers", "30000000000000002": "Rustaceans"}`)
}

func (b *packageBuilder) withAnalytics(lines string) *packageBuilder {
	return b.add("activity/analytics/events-2023-00000-of-00001.json", lines)
}

func staticProbe(cores int) ResourceProbe {
	return func(context.Context) (Resources, error) {
		return Resources{AvailableMemory: 1 << 30, LogicalCores: cores}, nil
	}
}
