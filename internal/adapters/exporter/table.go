package exporter

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// column описывает колонку текстовой таблицы.
type column struct {
	title string
	width int // 0 - по содержимому
	right bool
}

// table - моноширинная таблица с переносом длинных ячеек.
type table struct {
	cols       []column
	rows       [][]string
	maxWidth   int
	cjkPadding bool
}

func newTable(maxWidth int, cols ...column) *table {
	return &table{cols: cols, maxWidth: maxWidth}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// widths вычисляет ширину колонок: явную или по самой широкой ячейке, но не больше maxWidth.
func (t *table) widths() []int {
	w := make([]int, len(t.cols))
	for i, c := range t.cols {
		if c.width > 0 {
			w[i] = c.width
			continue
		}
		w[i] = runewidth.StringWidth(c.title)
		for _, row := range t.rows {
			if i < len(row) {
				if cw := runewidth.StringWidth(row[i]); cw > w[i] {
					w[i] = cw
				}
			}
		}
		if t.maxWidth > 0 && w[i] > t.maxWidth {
			w[i] = t.maxWidth
		}
	}
	return w
}

func (t *table) render(sb *strings.Builder) {
	widths := t.widths()

	header := make([]string, len(t.cols))
	for i, c := range t.cols {
		header[i] = c.title
	}
	t.writeRow(sb, header, widths)

	sb.WriteString("|")
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteString("|")
	}
	sb.WriteString("\n")

	for _, row := range t.rows {
		t.writeRow(sb, row, widths)
	}
}

func (t *table) writeRow(sb *strings.Builder, cells []string, widths []int) {
	wrapped := make([][]string, len(t.cols))
	lines := 1
	for i := range t.cols {
		cell := ""
		if i < len(cells) {
			cell = strings.ReplaceAll(strings.ToValidUTF8(cells[i], ""), "\n", " ")
		}
		wrapped[i] = wrapString(cell, widths[i])
		if len(wrapped[i]) > lines {
			lines = len(wrapped[i])
		}
	}

	for l := 0; l < lines; l++ {
		sb.WriteString("|")
		for i, c := range t.cols {
			part := ""
			if l < len(wrapped[i]) {
				part = wrapped[i][l]
			}
			pad := generatePadding(part, widths[i], t.cjkPadding)
			sb.WriteString(" ")
			if c.right {
				sb.WriteString(pad + part)
			} else {
				sb.WriteString(part + pad)
			}
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}
}

// generatePadding вычисляет отступ до ширины колонки.
// cjk добавляет один пробел для строк с CJK-символами: некоторые клиенты
// Telegram рисуют их уже, чем предсказывает runewidth.
func generatePadding(s string, colWidth int, cjk bool) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	if cjk && paddingNeeded >= 0 && hasCJK(s) {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

func hasCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			return true
		}
	}
	return false
}

// wrapString переносит строку по ширине, предпочитая границы слов.
// Слово длиннее ширины разрезается посередине.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
			lines = append(lines, splitByWidth(word, width)...)
			continue
		}

		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return lines
}

func splitByWidth(word string, width int) []string {
	var lines []string
	runes := []rune(word)
	for len(runes) > 0 {
		i := 0
		currentWidth := 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if currentWidth+rw > width {
				break
			}
			currentWidth += rw
			i++
		}
		if i == 0 {
			i = 1
		}
		lines = append(lines, string(runes[:i]))
		runes = runes[i:]
	}
	return lines
}
