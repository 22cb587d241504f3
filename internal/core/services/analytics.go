package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/pkg/cancel"
	"discord-package-parser/internal/ports"
)

var analyticsFileRegexp = regexp.MustCompile(`^(.*/)?analytics/events-\d{4}-\d{5}-of-\d{5}\.json$`)

// AnalyticsAggregator считает события из журнала аналитики.
// Журнал читается пачками строк, строки пачки разбираются параллельно.
type AnalyticsAggregator struct {
	log   *slog.Logger
	cfg   AnalyticsConfig
	probe ResourceProbe
}

// NewAnalyticsAggregator создает новый экземпляр AnalyticsAggregator.
// Если probe равен nil, используется SystemResources.
func NewAnalyticsAggregator(cfg AnalyticsConfig, probe ResourceProbe, logger *slog.Logger) *AnalyticsAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if probe == nil {
		probe = SystemResources
	}
	return &AnalyticsAggregator{log: logger, cfg: cfg.withDefaults(), probe: probe}
}

// FindAnalyticsFile возвращает первый в порядке архива файл журнала событий.
func FindAnalyticsFile(names []string) (string, bool) {
	return firstMatch(names, analyticsFileRegexp)
}

type eventEnvelope struct {
	EventType *string `json:"event_type"`
}

type commandEvent struct {
	ApplicationID      domain.FlexString `json:"application_id"`
	CommandID          domain.FlexString `json:"command_id"`
	CommandName        *string           `json:"command_name"`
	CommandDescription *string           `json:"command_description"`
}

// commandEntry хранит номера строк, из которых взяты значения,
// чтобы результат не зависел от порядка параллельной обработки.
type commandEntry struct {
	usage     domain.CommandUsage
	firstLine int
	nameLine  int
	descLine  int
}

// eventTally - общие счетчики прохода. Защищены одним мьютексом.
type eventTally struct {
	mu       sync.Mutex
	stats    *domain.EventStatistics
	commands map[string]*commandEntry
}

func (t *eventTally) record(eventType string, cmd *commandEvent, line int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.AllEvents++
	if _, known := t.stats.Counts[eventType]; known {
		t.stats.Counts[eventType]++
	}
	if cmd != nil {
		t.mergeCommand(cmd, line)
	}
}

func (t *eventTally) mergeCommand(cmd *commandEvent, line int) {
	id := string(cmd.CommandID)
	e, ok := t.commands[id]
	if !ok {
		e = &commandEntry{
			usage:     domain.CommandUsage{CommandID: id, ApplicationID: string(cmd.ApplicationID)},
			firstLine: line,
			nameLine:  -1,
			descLine:  -1,
		}
		t.commands[id] = e
	}
	e.usage.Count++
	if line < e.firstLine {
		e.firstLine = line
		e.usage.ApplicationID = string(cmd.ApplicationID)
	}
	if cmd.CommandName != nil && (e.nameLine < 0 || line < e.nameLine) {
		e.usage.Name = cmd.CommandName
		e.nameLine = line
	}
	if cmd.CommandDescription != nil && (e.descLine < 0 || line < e.descLine) {
		e.usage.Description = cmd.CommandDescription
		e.descLine = line
	}
}

// topCommands сортирует команды по убыванию использования; при равенстве
// выше та, что встретилась в журнале раньше.
func (t *eventTally) topCommands(limit int) []domain.CommandUsage {
	entries := make([]*commandEntry, 0, len(t.commands))
	for _, e := range t.commands {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].usage.Count != entries[j].usage.Count {
			return entries[i].usage.Count > entries[j].usage.Count
		}
		return entries[i].firstLine < entries[j].firstLine
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	top := make([]domain.CommandUsage, len(entries))
	for i, e := range entries {
		top[i] = e.usage
	}
	return top
}

// Aggregate находит журнал событий в архиве и считает события.
// Отсутствие журнала - *domain.StructuralError.
func (a *AnalyticsAggregator) Aggregate(ctx context.Context, archive ports.Archive, tok *cancel.Token, sink ports.Sink) (*domain.EventStatistics, error) {
	sink.Progress(domain.StepAnalytics, "Processing analytics...")
	started := time.Now()

	path, ok := FindAnalyticsFile(archive.Names())
	if !ok {
		return nil, &domain.StructuralError{Root: "analytics", Detail: "events log not found"}
	}

	res, err := a.probe(ctx)
	if err != nil {
		a.log.Warn("resource probe failed, using fallback", "error", err)
		res = fallbackResources(a.cfg)
	}
	p := planFor(a.cfg, res)
	a.log.Debug("analytics plan",
		"path", path,
		"buffer_bytes", p.bufferBytes,
		"batch_size", p.batchSize,
		"workers", p.workers,
	)

	rc, err := archive.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	stats, err := a.run(bufio.NewReaderSize(rc, p.bufferBytes), p, tok, sink)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return nil, err
		}
		return nil, &domain.IOError{Path: path, Err: err}
	}

	a.log.Info("analytics processed", "events", stats.AllEvents, "duration", time.Since(started))
	return stats, nil
}

func (a *AnalyticsAggregator) run(r *bufio.Reader, p plan, tok *cancel.Token, sink ports.Sink) (*domain.EventStatistics, error) {
	tally := &eventTally{
		stats:    domain.NewEventStatistics(),
		commands: make(map[string]*commandEntry),
	}

	processed := 0
	batchNumber := 0
	for {
		if err := tok.Err(); err != nil {
			return nil, err
		}

		batch, eof, err := readBatch(r, p.batchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		batchNumber++
		first := processed
		processed += len(batch)
		if batchNumber%a.cfg.ProgressEveryBatches == 0 {
			sink.Progress(domain.StepAnalytics, fmt.Sprintf("Processing batch %d (%d lines processed so far)", batchNumber, processed))
		}

		var g errgroup.Group
		g.SetLimit(p.workers)
		for i, line := range batch {
			lineNo := first + i
			g.Go(func() error {
				a.processLine(line, lineNo, tally)
				return nil
			})
		}
		_ = g.Wait()

		if eof || len(batch) < p.batchSize {
			break
		}
	}

	sink.Progress(domain.StepAnalytics, fmt.Sprintf("Analytics processing complete: %d lines processed", processed))

	tally.stats.TopCommands = tally.topCommands(TopCommandsLimit)
	return tally.stats, nil
}

// processLine разбирает одну строку журнала. Неразборчивые строки пропускаются.
func (a *AnalyticsAggregator) processLine(line []byte, lineNo int, tally *eventTally) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	var env eventEnvelope
	if err := gojson.Unmarshal(line, &env); err != nil || env.EventType == nil {
		return
	}

	var cmd *commandEvent
	if *env.EventType == domain.EventApplicationCommandUsed {
		var c commandEvent
		if err := gojson.Unmarshal(line, &c); err == nil && c.CommandID != "" {
			cmd = &c
		}
	}
	tally.record(*env.EventType, cmd, lineNo)
}

// readBatch читает до n строк. eof сообщает, что поток закончился.
func readBatch(r *bufio.Reader, n int) (lines [][]byte, eof bool, err error) {
	lines = make([][]byte, 0, n)
	for len(lines) < n {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			lines = append(lines, bytes.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, true, nil
			}
			return lines, false, err
		}
	}
	return lines, false, nil
}
