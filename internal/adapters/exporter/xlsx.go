package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"discord-package-parser/internal/domain"
)

// Имена листов книги.
const (
	SheetSummary  = "Summary"
	SheetChannels = "Channels"
	SheetDMs      = "Direct messages"
	SheetWords    = "Words"
	SheetEmotes   = "Emotes"
	SheetHours    = "Hours"
	SheetGuilds   = "Guilds"
	SheetPayments = "Payments"
	SheetEvents   = "Events"
	SheetCommands = "Commands"
)

// XLSXExporter выводит отчет книгой Excel, по листу на раздел.
type XLSXExporter struct{}

// NewXLSXExporter создает новый экземпляр XLSXExporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) Export(w io.Writer, report *domain.Report) (err error) {
	if report == nil || report.Statistics == nil {
		return fmt.Errorf("empty report")
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	b := &workbook{f: f}
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	b.summary(report.Statistics)
	b.messages(report.Statistics)
	if report.Events != nil {
		b.events(report.Events)
	}
	if b.err != nil {
		return fmt.Errorf("failed to build workbook: %w", b.err)
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// workbook запоминает первую ошибку, чтобы не проверять каждую запись ячейки.
type workbook struct {
	f   *excelize.File
	err error
}

func (b *workbook) sheet(name string, headers ...any) {
	if b.err != nil {
		return
	}
	if name != SheetSummary {
		if _, b.err = b.f.NewSheet(name); b.err != nil {
			return
		}
	}
	if len(headers) == 0 {
		return
	}
	b.row(name, 1, headers...)

	style, err := b.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		b.err = err
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	b.err = b.f.SetCellStyle(name, "A1", last, style)
}

func (b *workbook) row(sheet string, n int, values ...any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		b.err = err
		return
	}
	b.err = b.f.SetSheetRow(sheet, cell, &values)
}

func (b *workbook) width(sheet, col string, w float64) {
	if b.err != nil {
		return
	}
	b.err = b.f.SetColWidth(sheet, col, col, w)
}

func (b *workbook) summary(s *domain.UserStatistics) {
	b.sheet(SheetSummary, "Metric", "Value")
	rows := [][]any{
		{"User", profileLabel(s.Profile)},
		{"Messages", s.MessageCount},
		{"Characters", s.CharacterCount},
		{"Channels", s.ChannelCount},
		{"Direct messages", s.DMChannelCount},
		{"Guilds", s.GuildCount},
	}
	if s.Profile != nil {
		rows = append(rows, []any{"User ID", s.Profile.ID})
	}
	for i, r := range rows {
		b.row(SheetSummary, i+2, r...)
	}
	b.width(SheetSummary, "A", 20)
	b.width(SheetSummary, "B", 40)

	b.sheet(SheetPayments, "Currency", "Total")
	n := 2
	for _, c := range sortedCurrencies(s.Payments) {
		b.row(SheetPayments, n, strings.ToUpper(c), s.Payments.Totals[c].StringFixed(2))
		n++
	}
	for _, line := range paymentLines(s.Payments) {
		n++
		b.row(SheetPayments, n, line)
	}
	b.width(SheetPayments, "A", 40)
}

func (b *workbook) messages(s *domain.UserStatistics) {
	b.sheet(SheetChannels, "Channel ID", "Channel", "Guild ID", "Guild", "Messages")
	for i, c := range s.TopChannels {
		b.row(SheetChannels, i+2, c.ID, channelLabel(c), derefOr(c.GuildID, ""), derefOr(c.GuildName, ""), c.MessageCount)
	}
	b.width(SheetChannels, "B", 30)
	b.width(SheetChannels, "D", 30)

	b.sheet(SheetDMs, "Channel ID", "User ID", "User", "Messages")
	for i, dm := range s.TopDMs {
		b.row(SheetDMs, i+2, dm.ID, dm.DMUserID, dmLabel(s.Profile, dm.DMUserID), dm.MessageCount)
	}

	b.sheet(SheetWords, "Word", "Count")
	for i, wc := range s.TopWords {
		b.row(SheetWords, i+2, wc.Word, wc.Count)
	}
	b.sheet(SheetEmotes, "Emote", "Count")
	for i, wc := range s.TopEmotes {
		b.row(SheetEmotes, i+2, wc.Word, wc.Count)
	}

	b.sheet(SheetHours, "Hour", "Messages")
	for h, v := range s.HoursHistogram {
		b.row(SheetHours, h+2, h, v)
	}

	b.sheet(SheetGuilds, "Guild ID", "Name")
	for i, g := range s.Guilds {
		b.row(SheetGuilds, i+2, g.ID, g.Name)
	}
	b.width(SheetGuilds, "B", 30)
}

func (b *workbook) events(ev *domain.EventStatistics) {
	b.sheet(SheetEvents, "Event", "Count")
	b.row(SheetEvents, 2, "all_events", ev.AllEvents)
	for i, ec := range sortedEventCounts(ev) {
		b.row(SheetEvents, i+3, ec.eventType, ec.count)
	}
	b.width(SheetEvents, "A", 30)

	b.sheet(SheetCommands, "Command ID", "Application ID", "Name", "Description", "Uses")
	for i, c := range ev.TopCommands {
		b.row(SheetCommands, i+2, c.CommandID, c.ApplicationID, derefOr(c.Name, ""), derefOr(c.Description, ""), c.Count)
	}
	b.width(SheetCommands, "D", 40)
}
