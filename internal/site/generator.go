// Package site turns a directory of documents into rendered pages.
package site

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/sitegen/internal/document"
	"github.com/starford/sitegen/internal/layout"
	"github.com/starford/sitegen/internal/storage"
)

// Renderer renders a named template. A name that does not resolve must
// produce an error matching layout.ErrTemplateNotFound.
type Renderer interface {
	Render(name string, vars map[string]any) (string, error)
}

// Status of one processed document.
const (
	StatusWritten = "written"
	StatusSkipped = "skipped"
)

// Result records what happened to one document.
type Result struct {
	Source          string `json:"source"`
	Output          string `json:"output,omitempty"`
	Template        string `json:"template"`
	Status          string `json:"status"`
	MetadataWarning bool   `json:"metadata_warning,omitempty"`
	Checksum        string `json:"checksum,omitempty"`
}

// Summary describes one generation run. A run that failed carries the
// results gathered before the failure.
type Summary struct {
	SourceDir  string    `json:"source_dir"`
	OutputDir  string    `json:"output_dir"`
	Results    []Result  `json:"results"`
	Written    int       `json:"written"`
	Skipped    int       `json:"skipped"`
	Warnings   int       `json:"warnings"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Err        string    `json:"error,omitempty"`
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusWritten:
		s.Written++
	case StatusSkipped:
		s.Skipped++
	}
	if r.MetadataWarning {
		s.Warnings++
	}
}

// Option configures a Generator.
type Option func(*Generator)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(g *Generator) {
		if r != nil {
			g.reporter = r
		}
	}
}

// WithSourceExt sets the document extension, ".rst" by default.
func WithSourceExt(ext string) Option {
	return func(g *Generator) {
		g.sourceExt = ext
	}
}

// WithOutputExt sets the rendered file extension, ".html" by default.
func WithOutputExt(ext string) Option {
	return func(g *Generator) {
		g.outputExt = ext
	}
}

// WithChecksum sets the digest recorded for every written page.
func WithChecksum(fn func([]byte) string) Option {
	return func(g *Generator) {
		g.checksum = fn
	}
}

// Generator renders documents one at a time through a single Renderer.
type Generator struct {
	renderer  Renderer
	writer    storage.Writer
	reporter  Reporter
	sourceExt string
	outputExt string
	checksum  func([]byte) string
	now       func() time.Time
}

// New creates a Generator.
func New(renderer Renderer, writer storage.Writer, opts ...Option) *Generator {
	g := &Generator{
		renderer:  renderer,
		writer:    writer,
		reporter:  nopReporter{},
		sourceExt: SourceExt,
		outputExt: OutputExt,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders every document in sourceDir into outputDir.
//
// A document whose layout does not resolve is reported and skipped. Any
// other failure (reading a document, listing the directory, rendering,
// writing) ends the run and is returned alongside the partial summary.
// ctx is checked between documents.
func (g *Generator) Generate(ctx context.Context, sourceDir, outputDir string) (*Summary, error) {
	summary := &Summary{
		SourceDir: sourceDir,
		OutputDir: outputDir,
		Results:   []Result{},
		StartedAt: g.now(),
	}
	fail := func(err error) (*Summary, error) {
		summary.FinishedAt = g.now()
		summary.Err = err.Error()
		return summary, err
	}

	g.reporter.Started(sourceDir)

	for path, err := range ListDocuments(sourceDir, g.sourceExt) {
		if err != nil {
			return fail(err)
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		res, err := g.process(path, outputDir)
		if err != nil {
			return fail(err)
		}
		summary.add(res)
	}

	summary.FinishedAt = g.now()
	g.reporter.Finished(summary)
	return summary, nil
}

func (g *Generator) process(path, outputDir string) (Result, error) {
	doc, err := document.Read(path)
	if err != nil {
		return Result{}, err
	}

	res := Result{Source: path, Template: doc.Layout()}
	if doc.MetadataErr != nil {
		res.MetadataWarning = true
		g.reporter.InvalidMetadata(path, doc.MetadataErr)
	}

	html, err := g.renderer.Render(res.Template, doc.Context())
	if errors.Is(err, layout.ErrTemplateNotFound) {
		res.Status = StatusSkipped
		g.reporter.TemplateMissing(path, res.Template)
		return res, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("site: %s: %w", path, err)
	}

	res.Output = OutputPathExt(path, outputDir, g.outputExt)
	data := []byte(html)
	if err := g.writer.Write(res.Output, data); err != nil {
		return Result{}, fmt.Errorf("site: write %s: %w", res.Output, err)
	}
	if g.checksum != nil {
		res.Checksum = g.checksum(data)
	}
	res.Status = StatusWritten
	g.reporter.Wrote(res.Output, res.Template)
	return res, nil
}
