// Package layout binds the pongo2 template engine to a site's layout directory.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// ErrTemplateNotFound is matched by errors.Is when a layout name does not
// resolve to a template file under the engine root.
var ErrTemplateNotFound = errors.New("template not found")

// NotFoundError carries the name that failed to resolve.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("layout: template %q not found", e.Name)
}

// Is reports ErrTemplateNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}

// pongo2 rejects a whole context when any key is not an identifier.
var identifierRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// renderMu guards pongo2's package-level autoescape switch, which every
// execution context copies when it is created.
var renderMu sync.Mutex

// errUnresolved is the text pongo2 uses when a loader cannot find a file.
const errUnresolved = "unable to resolve template"

// Option configures an Engine.
type Option func(*Engine)

// WithAutoescape toggles HTML escaping of rendered variables.
func WithAutoescape(on bool) Option {
	return func(e *Engine) {
		e.autoescape = on
	}
}

// Engine renders named templates from a fixed root directory. It is
// read-only after New and may be reused across documents.
type Engine struct {
	root       string
	set        *pongo2.TemplateSet
	autoescape bool
}

// New creates an engine bound to root. A root that does not exist yields an
// engine in which no template resolves; a root that is not a directory is an
// error.
func New(root string, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("layout: resolve root: %w", err)
	}
	e := &Engine{root: abs}
	for _, opt := range opts {
		opt(e)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Nothing resolves; every Render reports ErrTemplateNotFound.
		return e, nil
	case err != nil:
		return nil, fmt.Errorf("layout: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("layout: root is not a directory: %s", abs)
	}

	loader, err := pongo2.NewLocalFileSystemLoader(abs)
	if err != nil {
		return nil, fmt.Errorf("layout: loader: %w", err)
	}
	e.set = pongo2.NewSet("sitegen", loader)
	return e, nil
}

// Root returns the absolute template directory.
func (e *Engine) Root() string {
	return e.root
}

// Render executes the template called name with vars. A name that does not
// resolve, or a template whose extends or include target does not, yields a
// *NotFoundError; any other error comes from pongo2.
func (e *Engine) Render(name string, vars map[string]any) (string, error) {
	if _, err := e.resolve(name); err != nil || e.set == nil {
		return "", &NotFoundError{Name: name}
	}

	renderMu.Lock()
	defer renderMu.Unlock()
	pongo2.SetAutoescape(e.autoescape)

	tpl, err := e.set.FromFile(name)
	if err != nil {
		if missing, ok := e.unresolved(err); ok {
			return "", &NotFoundError{Name: missing}
		}
		return "", fmt.Errorf("layout: load %s: %w", name, err)
	}

	out, err := tpl.Execute(contextFor(vars))
	if err != nil {
		if missing, ok := e.unresolved(err); ok {
			return "", &NotFoundError{Name: missing}
		}
		return "", fmt.Errorf("layout: render %s: %w", name, err)
	}
	return out, nil
}

// unresolved reports whether err is pongo2 failing to load a referenced
// file, and returns that file's name relative to the root.
func (e *Engine) unresolved(err error) (string, bool) {
	var perr *pongo2.Error
	if !errors.As(err, &perr) || perr.Sender != "fromfile" || perr.OrigError == nil {
		return "", false
	}
	if perr.OrigError.Error() != errUnresolved {
		return "", false
	}
	name := perr.Filename
	if rel, err := filepath.Rel(e.root, name); err == nil && !strings.HasPrefix(rel, "..") {
		name = filepath.ToSlash(rel)
	}
	return name, true
}

// Templates returns the names of the regular files directly inside the root.
func (e *Engine) Templates() ([]string, error) {
	if e.set == nil {
		return nil, nil
	}
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return nil, fmt.Errorf("layout: list: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			out = append(out, entry.Name())
		}
	}
	return out, nil
}

// Has reports whether name resolves to a template file.
func (e *Engine) Has(name string) bool {
	if e.set == nil {
		return false
	}
	_, err := e.resolve(name)
	return err == nil
}

// resolve maps name to a file under root. Empty names, absolute paths and
// names escaping the root never resolve.
func (e *Engine) resolve(name string) (string, error) {
	notFound := &NotFoundError{Name: name}
	if name == "" || filepath.IsAbs(name) {
		return "", notFound
	}
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", notFound
	}
	full := filepath.Join(e.root, cleaned)
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", notFound
	}
	return full, nil
}

func contextFor(vars map[string]any) pongo2.Context {
	ctx := make(pongo2.Context, len(vars))
	for k, v := range vars {
		if identifierRe.MatchString(k) {
			ctx[k] = v
		}
	}
	return ctx
}
