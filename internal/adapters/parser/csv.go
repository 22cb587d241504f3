package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"discord-package-parser/internal/domain"
)

// Колонки CSV-файла сообщений.
const (
	ColumnID          = "ID"
	ColumnTimestamp   = "Timestamp"
	ColumnContents    = "Contents"
	ColumnAttachments = "Attachments"
)

var requiredColumns = []string{ColumnID, ColumnTimestamp, ColumnContents, ColumnAttachments}

// ParseCSV разбирает CSV-файл сообщений с заголовком ID,Timestamp,Contents,Attachments.
// Колонки сопоставляются по имени. Строки с пустым Contents пропускаются.
func ParseCSV(content string) ([]domain.Message, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.DecodeError{Err: errors.New("empty CSV content")}
		}
		return nil, &domain.DecodeError{Err: fmt.Errorf("failed to read CSV header: %w", err)}
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := pos[col]; !ok {
			return nil, &domain.DecodeError{Err: fmt.Errorf("CSV header has no %q column", col)}
		}
	}

	var messages []domain.Message
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.DecodeError{Err: fmt.Errorf("failed to read CSV record %d: %w", line, err)}
		}

		field := func(col string) string {
			if i := pos[col]; i < len(record) {
				return record[i]
			}
			return ""
		}

		contents := field(ColumnContents)
		if contents == "" {
			continue
		}
		messages = append(messages, domain.Message{
			ID:          field(ColumnID),
			Timestamp:   field(ColumnTimestamp),
			Contents:    contents,
			Attachments: splitAttachments(field(ColumnAttachments)),
		})
	}
	return messages, nil
}
