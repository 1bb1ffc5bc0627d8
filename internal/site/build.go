package site

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/starford/sitegen/internal/checksum"
	"github.com/starford/sitegen/internal/layout"
	"github.com/starford/sitegen/internal/storage"
)

// Settings control a Build.
type Settings struct {
	SourceExt  string
	OutputExt  string
	LayoutDir  string // relative to the source directory
	Autoescape bool
}

// DefaultSettings read .rst documents, write .html pages and look for templates
// under "layout".
func DefaultSettings() Settings {
	return Settings{
		SourceExt: SourceExt,
		OutputExt: OutputExt,
		LayoutDir: LayoutDir,
	}
}

// Build runs one full generation: it binds a fresh template engine to the
// layout directory of sourceDir and renders into outputDir.
func Build(ctx context.Context, sourceDir, outputDir string, s Settings, reporter Reporter) (*Summary, error) {
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("site: resolve output dir: %w", err)
	}
	engine, err := layout.New(filepath.Join(sourceDir, s.LayoutDir), layout.WithAutoescape(s.Autoescape))
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFS(absOut)
	if err != nil {
		return nil, err
	}

	g := New(engine, store,
		WithReporter(reporter),
		WithSourceExt(s.SourceExt),
		WithOutputExt(s.OutputExt),
		WithChecksum(checksum.Sum),
	)
	return g.Generate(ctx, sourceDir, absOut)
}
