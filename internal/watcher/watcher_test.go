package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type rebuilds struct {
	mu      sync.Mutex
	reasons []string
}

func (r *rebuilds) fn(_ context.Context, reason string) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
}

func (r *rebuilds) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

func (r *rebuilds) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reasons) == 0 {
		return ""
	}
	return r.reasons[len(r.reasons)-1]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, cfg Config) *rebuilds {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	rb := &rebuilds{}
	go func() {
		defer close(done)
		if err := Watch(ctx, cfg, quietLogger(), rb.fn); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return rb
}

func newSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "layout"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestWatch_DocumentChangeRebuilds(t *testing.T) {
	dir := newSite(t)
	rb := startWatcher(t, Config{SourceDir: dir, LayoutDir: "layout", SourceExt: ".rst", Debounce: 50 * time.Millisecond})

	doc := filepath.Join(dir, "index.rst")
	_ = os.WriteFile(doc, []byte(`{"layout": "home.html"}`+"\n---\nhi"), 0o644)

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return rb.count() > 0 },
		"document change did not trigger a rebuild")
	if got := rb.last(); got != doc {
		t.Errorf("reason = %q, want %q", got, doc)
	}
}

func TestWatch_LayoutChangeRebuilds(t *testing.T) {
	dir := newSite(t)
	rb := startWatcher(t, Config{SourceDir: dir, LayoutDir: "layout", SourceExt: ".rst", Debounce: 50 * time.Millisecond})

	_ = os.WriteFile(filepath.Join(dir, "layout", "home.html"), []byte("{{ content }}"), 0o644)

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return rb.count() > 0 },
		"layout change did not trigger a rebuild")
}

func TestWatch_NestedLayoutDir(t *testing.T) {
	dir := newSite(t)
	rb := startWatcher(t, Config{SourceDir: dir, LayoutDir: "layout", SourceExt: ".rst", Debounce: 50 * time.Millisecond})

	sub := filepath.Join(dir, "layout", "partials")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return rb.count() > 0 },
		"new layout dir did not trigger a rebuild")
	before := rb.count()

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "nav.html"), []byte("<nav></nav>"), 0o644)

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return rb.count() > before },
		"file in new layout subdir did not trigger a rebuild")
}

func TestWatch_IgnoresIrrelevantFiles(t *testing.T) {
	dir := newSite(t)
	rb := startWatcher(t, Config{SourceDir: dir, LayoutDir: "layout", SourceExt: ".rst", Debounce: 50 * time.Millisecond})

	// Output written next to the sources must not loop back into a rebuild.
	_ = os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>out</p>"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	time.Sleep(300 * time.Millisecond)
	if n := rb.count(); n != 0 {
		t.Errorf("rebuilds = %d, want 0", n)
	}
}

func TestWatch_DebounceCoalesces(t *testing.T) {
	dir := newSite(t)
	rb := startWatcher(t, Config{SourceDir: dir, LayoutDir: "layout", SourceExt: ".rst", Debounce: 150 * time.Millisecond})

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(dir, "index.rst"), []byte("{}\n---\nv"), 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return rb.count() > 0 },
		"burst did not trigger a rebuild")
	time.Sleep(300 * time.Millisecond)
	if n := rb.count(); n != 1 {
		t.Errorf("rebuilds = %d, want 1", n)
	}
}

func TestWatch_MissingSourceDir(t *testing.T) {
	err := Watch(context.Background(), Config{SourceDir: filepath.Join(t.TempDir(), "nope")}, quietLogger(), func(context.Context, string) {})
	if err == nil {
		t.Fatal("expected error for missing source dir")
	}
}

func TestRelevant(t *testing.T) {
	cfg := Config{SourceDir: "/site", LayoutDir: "layout", SourceExt: ".rst"}
	cases := map[string]bool{
		"/site/index.rst":             true,
		"/site/layout/home.html":      true,
		"/site/layout/partials/a.htm": true,
		"/site/index.html":            false,
		"/site/sub/deep.rst":          false,
		"/site/layoutx/home.html":     false,
		"/site/layout":                false,
		"/site/.rst":                  false,
		"/site/..rst":                 false,
		"/site/.hidden.rst":           true,
	}
	for path, want := range cases {
		if got := cfg.relevant(path); got != want {
			t.Errorf("relevant(%q) = %v, want %v", path, got, want)
		}
	}
}
