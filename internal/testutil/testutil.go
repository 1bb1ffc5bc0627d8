// Package testutil provides shared test helpers for building source trees and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/sitegen/internal/history"
)

// IndexRST is a document bound to the home.html layout.
const IndexRST = "{\"title\": \"My awesome site\", \"layout\": \"home.html\"}\n---\nblah blah"

// HomeHTML renders the document title.
const HomeHTML = "<h1>{{ title }}</h1>"

// Site creates a temporary source tree from files (slash-separated relative
// path to content) and returns its root.
func Site(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// BasicSite is a source tree with one document and its layout.
func BasicSite(t *testing.T) string {
	t.Helper()
	return Site(t, map[string]string{
		"index.rst":        IndexRST,
		"layout/home.html": HomeHTML,
	})
}

// ReadFile returns the content of root/rel, failing the test on error.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestDB creates a temporary history database that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "sitegen-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
