package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"discord-package-parser/internal/adapters/exporter"
	"discord-package-parser/internal/adapters/source"
	"discord-package-parser/internal/core/services"
	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/log"
	"discord-package-parser/internal/pkg/config"
	"discord-package-parser/internal/pkg/term"
	"discord-package-parser/internal/ports"
)

type extractOptions struct {
	format        string
	output        string
	configPath    string
	skipAnalytics bool
	logLevel      string
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract <package.zip>",
		Short: "Extract statistics from an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runExtract(ctx, args[0], opts, os.Stdout, os.Stderr)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", exporter.FormatText, "output format: "+strings.Join(exporter.Formats(), ", "))
	f.StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	f.StringVar(&opts.configPath, "config", "config.yml", "path to YAML config")
	f.BoolVar(&opts.skipAnalytics, "skip-analytics", false, "do not read the analytics event log")
	f.StringVar(&opts.logLevel, "log-level", "", "override logging.level from config")
	return cmd
}

// runExtract извлекает статистику и пишет отчет в файл или stdout.
func runExtract(ctx context.Context, archivePath string, opts *extractOptions, stdout io.Writer, stderr *os.File) error {
	exp, err := exporter.New(opts.format)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.skipAnalytics {
		cfg.Processing.SkipAnalytics = true
	}

	if opts.format == exporter.FormatXLSX && opts.output == "" {
		if f, ok := stdout.(*os.File); ok && term.IsTerminal(f) {
			return errors.New("refusing to write an xlsx workbook to a terminal, use --output")
		}
	}

	logger := log.New(stderr, cfg.SlogLevel(), "text")
	interactive := term.IsTerminal(stderr)
	progress := term.NewProgress(stderr, interactive, term.Width(stderr, 80), logger)

	pipeline := services.NewPipeline(pipelineOptions(cfg, logger)...)
	runner := services.NewRunner(pipeline, logger)

	h := runner.Start(context.WithoutCancel(ctx), source.NewFileSource(archivePath), progress)
	select {
	case <-h.Done():
	case <-ctx.Done():
		progress.Finish()
		logger.Info("interrupt received, cancelling")
		h.Cancel()
	}
	report, err := h.Wait()
	progress.Finish()
	if errors.Is(err, domain.ErrCancelled) {
		return errors.New("extraction cancelled")
	}
	if err != nil {
		return err
	}

	return writeReport(exp, report, opts.output, stdout)
}

func writeReport(exp ports.Exporter, report *domain.Report, output string, stdout io.Writer) (err error) {
	if output == "" {
		return exp.Export(stdout, report)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", output, cerr)
		}
	}()
	return exp.Export(f, report)
}

// pipelineOptions переводит настройки обработки в опции конвейера.
func pipelineOptions(cfg *config.Config, logger *slog.Logger) []services.Option {
	return []services.Option{
		services.WithLogger(logger),
		services.WithAnalyticsConfig(services.AnalyticsConfig{
			MaxBufferBytes:       cfg.Analytics.MaxBufferBytes,
			MinBatchSize:         cfg.Analytics.MinBatchSize,
			BatchPerCore:         cfg.Analytics.BatchPerCore,
			ProgressEveryBatches: cfg.Analytics.ProgressEveryBatches,
		}),
		services.WithChannelProgressEvery(cfg.Processing.ChannelProgressEvery),
		services.WithSkipAnalytics(cfg.Processing.SkipAnalytics),
	}
}
