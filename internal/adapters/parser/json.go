// Package parser разбирает записи выгрузки: JSON-документы, CSV-таблицы сообщений и текст сообщений.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"

	"discord-package-parser/internal/domain"
)

var (
	errEmptyContent  = errors.New("empty JSON content")
	errNotJSONObject = errors.New("invalid JSON format: content does not start with { or [")
)

// DecodeJSON разбирает JSON-документ в значение типа T.
// Сначала пробует быстрый декодер, при неудаче - стандартный encoding/json.
// Если не справились оба, возвращает *domain.DecodeError с диагностикой обоих.
func DecodeJSON[T any](content []byte) (T, error) {
	var zero T

	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return zero, &domain.DecodeError{Err: errEmptyContent}
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return zero, &domain.DecodeError{Err: errNotJSONObject}
	}

	var fast T
	fastErr := gojson.Unmarshal(trimmed, &fast)
	if fastErr == nil {
		return fast, nil
	}

	var strict T
	strictErr := json.Unmarshal(trimmed, &strict)
	if strictErr == nil {
		return strict, nil
	}

	return zero, &domain.DecodeError{
		Err: fmt.Errorf("both decoders failed: fast: %v; standard: %w", fastErr, strictErr),
	}
}

// ParseJSON - вариант DecodeJSON для строкового содержимого.
func ParseJSON[T any](content string) (T, error) {
	return DecodeJSON[T]([]byte(content))
}

// attachmentList принимает вложения как строку через пробел, как массив или как null.
type attachmentList []string

func (a *attachmentList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = nil
		return nil
	case data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = list
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = splitAttachments(s)
		return nil
	}
}

type jsonMessage struct {
	ID          domain.FlexString `json:"ID"`
	Timestamp   string            `json:"Timestamp"`
	Contents    string            `json:"Contents"`
	Attachments attachmentList    `json:"Attachments"`
}

func (m jsonMessage) toDomain() domain.Message {
	return domain.Message{
		ID:          string(m.ID),
		Timestamp:   m.Timestamp,
		Contents:    m.Contents,
		Attachments: []string(m.Attachments),
	}
}

// ParseJSONMessages разбирает файл сообщений в формате JSON.
// Основная форма - массив; если массив не разобрался, файл читается как одно сообщение.
func ParseJSONMessages(content string) ([]domain.Message, error) {
	list, err := ParseJSON[[]jsonMessage](content)
	if err != nil {
		single, singleErr := ParseJSON[jsonMessage](content)
		if singleErr != nil {
			return nil, errors.Join(err, singleErr)
		}
		list = []jsonMessage{single}
	}

	messages := make([]domain.Message, 0, len(list))
	for _, m := range list {
		messages = append(messages, m.toDomain())
	}
	return messages, nil
}

// ParseMessages выбирает разбор по формату файла сообщений.
func ParseMessages(content string, csv bool) ([]domain.Message, error) {
	if csv {
		return ParseCSV(content)
	}
	return ParseJSONMessages(content)
}

// Tokenize разбивает текст на токены по пробельным символам.
// Регистр и пунктуация сохраняются.
func Tokenize(content string) []string {
	return strings.Fields(content)
}

func splitAttachments(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return []string{}
	}
	return fields
}
