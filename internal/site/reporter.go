package site

import (
	"log/slog"
)

// Reporter receives the generator's progress messages. Implementations
// decide formatting and destination.
type Reporter interface {
	Started(sourceDir string)
	InvalidMetadata(sourcePath string, err error)
	TemplateMissing(sourcePath, template string)
	Wrote(outputPath, template string)
	Finished(summary *Summary)
}

// LogReporter writes progress to a slog.Logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a Reporter backed by logger. A nil logger means
// slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Started(sourceDir string) {
	r.logger.Info("Generating site", slog.String("source", sourceDir))
}

func (r *LogReporter) InvalidMetadata(sourcePath string, err error) {
	r.logger.Warn("Metadata is not valid JSON",
		slog.String("path", sourcePath),
		slog.String("error", err.Error()))
}

func (r *LogReporter) TemplateMissing(sourcePath, template string) {
	r.logger.Error("Template not found",
		slog.String("template", template),
		slog.String("path", sourcePath))
}

func (r *LogReporter) Wrote(outputPath, template string) {
	r.logger.Info("Writing page",
		slog.String("output", outputPath),
		slog.String("template", template))
}

func (r *LogReporter) Finished(summary *Summary) {
	r.logger.Info("Finished generating site",
		slog.Int("written", summary.Written),
		slog.Int("skipped", summary.Skipped),
		slog.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))
}

type nopReporter struct{}

func (nopReporter) Started(string)                 {}
func (nopReporter) InvalidMetadata(string, error)  {}
func (nopReporter) TemplateMissing(string, string) {}
func (nopReporter) Wrote(string, string)           {}
func (nopReporter) Finished(*Summary)              {}
