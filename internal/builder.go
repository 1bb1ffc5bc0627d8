package internal

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/starford/sitegen/internal/history"
	"github.com/starford/sitegen/internal/preview"
	"github.com/starford/sitegen/internal/site"
	"github.com/starford/sitegen/internal/sse"
	"github.com/starford/sitegen/internal/watcher"
)

// builder runs full builds for every mode and fans the outcome out to the
// history store, the preview status and the event broker, if present.
type builder struct {
	sourceDir string
	outputDir string
	settings  site.Settings
	mode      Mode
	keep      int

	history history.Store
	status  *preview.Status
	broker  *sse.Broker
	logger  *slog.Logger
	stdout  io.Writer
}

func (b *builder) build(ctx context.Context, reason string) (*site.Summary, error) {
	summary, err := site.Build(ctx, b.sourceDir, b.outputDir, b.settings, site.NewLogReporter(b.logger))
	b.observe(summary, err, reason)
	return summary, err
}

func (b *builder) observe(summary *site.Summary, err error, reason string) {
	if err != nil && b.mode != ModeBuild {
		// Build mode returns the error to the caller instead.
		b.logger.Error("Build failed", slog.String("error", err.Error()), slog.String("changed", reason))
	}
	if b.history != nil {
		run, docs := b.historyRecord(summary, err)
		if _, recErr := b.history.Record(run, docs); recErr != nil {
			b.logger.Warn("history: record failed", slog.String("error", recErr.Error()))
		} else if _, pruneErr := b.history.Prune(b.keep); pruneErr != nil {
			b.logger.Warn("history: prune failed", slog.String("error", pruneErr.Error()))
		}
	}
	if b.status != nil {
		b.status.Set(summary)
	}
	if b.broker != nil {
		b.broker.PublishBuild(buildEvent(summary, err, reason))
	}
}

func (b *builder) watchConfig(cfg *Config) watcher.Config {
	return watcher.Config{
		SourceDir: b.sourceDir,
		LayoutDir: b.settings.LayoutDir,
		SourceExt: b.settings.SourceExt,
		Debounce:  cfg.Watch.Debounce,
	}
}

// historyRecord converts a build outcome into history rows. A nil summary
// means the build failed during setup.
func (b *builder) historyRecord(summary *site.Summary, err error) (history.Run, []history.Document) {
	if summary == nil {
		now := time.Now()
		run := history.Run{
			SourceDir:  b.sourceDir,
			OutputDir:  b.outputDir,
			Mode:       string(b.mode),
			StartedAt:  now,
			FinishedAt: now,
		}
		if err != nil {
			run.Error = err.Error()
		}
		return run, nil
	}

	run := history.Run{
		SourceDir:  summary.SourceDir,
		OutputDir:  summary.OutputDir,
		Mode:       string(b.mode),
		Written:    summary.Written,
		Skipped:    summary.Skipped,
		Warnings:   summary.Warnings,
		Error:      summary.Err,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}
	if run.Error == "" && err != nil {
		run.Error = err.Error()
	}
	docs := make([]history.Document, 0, len(summary.Results))
	for _, r := range summary.Results {
		docs = append(docs, history.Document{
			Source:          r.Source,
			Output:          r.Output,
			Template:        r.Template,
			Status:          r.Status,
			MetadataWarning: r.MetadataWarning,
			Checksum:        r.Checksum,
		})
	}
	return run, docs
}

func buildEvent(summary *site.Summary, err error, reason string) sse.Build {
	ev := sse.Build{Reason: reason}
	if err != nil {
		ev.Error = err.Error()
	}
	if summary != nil {
		ev.Written = summary.Written
		ev.Skipped = summary.Skipped
		ev.Warnings = summary.Warnings
		ev.DurationMS = summary.FinishedAt.Sub(summary.StartedAt).Milliseconds()
	}
	return ev
}
