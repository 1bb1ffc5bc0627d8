package document

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const indexRST = "{\"title\": \"My awesome site\", \"layout\": \"home.html\"}\n---\nblah blah"

func TestParse_MetadataAndContent(t *testing.T) {
	doc, err := Parse("index.rst", strings.NewReader(indexRST))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.MetadataErr != nil {
		t.Fatalf("unexpected metadata error: %v", doc.MetadataErr)
	}
	if got, _ := doc.Metadata.String("title"); got != "My awesome site" {
		t.Errorf("title = %q", got)
	}
	if doc.Layout() != "home.html" {
		t.Errorf("layout = %q, want home.html", doc.Layout())
	}
	if doc.Content != "blah blah" {
		t.Errorf("content = %q, want %q", doc.Content, "blah blah")
	}
}

func TestParse_ContentKeepsLineTerminators(t *testing.T) {
	input := "{}\n---\nline one\r\n\nline three\n"
	doc, err := Parse("a.rst", strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "line one\r\n\nline three\n" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestParse_DelimiterWithSurroundingWhitespace(t *testing.T) {
	input := "{\"layout\": \"x.html\"}\r\n  ---  \r\nbody\r\n"
	doc, err := Parse("a.rst", strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Layout() != "x.html" {
		t.Errorf("layout = %q", doc.Layout())
	}
	if doc.Content != "body\r\n" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestParse_OnlyFirstDelimiterSplits(t *testing.T) {
	input := "{}\n---\nintro\n---\nmore\n"
	doc, err := Parse("a.rst", strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "intro\n---\nmore\n" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestParse_NoDelimiterWholeFileIsMetadata(t *testing.T) {
	doc, err := Parse("a.rst", strings.NewReader(`{"title": "only header"}`))
	if err != nil {
		t.Fatal(err)
	}
	if doc.MetadataErr != nil {
		t.Fatalf("unexpected metadata error: %v", doc.MetadataErr)
	}
	if got, _ := doc.Metadata.String("title"); got != "only header" {
		t.Errorf("title = %q", got)
	}
	if doc.Content != "" {
		t.Errorf("content = %q, want empty", doc.Content)
	}
}

func TestParse_NoDelimiterPlainTextIsInvalidMetadata(t *testing.T) {
	doc, err := Parse("a.rst", strings.NewReader("just some prose\nand more\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(doc.MetadataErr, ErrInvalidMetadata) {
		t.Errorf("MetadataErr = %v, want ErrInvalidMetadata", doc.MetadataErr)
	}
	if doc.Content != "" {
		t.Errorf("content = %q, want empty", doc.Content)
	}
}

func TestParse_MalformedMetadataIsNonFatal(t *testing.T) {
	doc, err := Parse("bad.rst", strings.NewReader("title: not json\n---\nbody"))
	if err != nil {
		t.Fatalf("malformed metadata must not fail: %v", err)
	}
	if !errors.Is(doc.MetadataErr, ErrInvalidMetadata) {
		t.Fatalf("MetadataErr = %v, want ErrInvalidMetadata", doc.MetadataErr)
	}
	if !strings.Contains(doc.MetadataErr.Error(), "bad.rst") {
		t.Errorf("error should name the file: %v", doc.MetadataErr)
	}
	if doc.Metadata == nil || len(doc.Metadata) != 0 {
		t.Errorf("metadata = %v, want empty map", doc.Metadata)
	}
	if doc.Layout() != "" {
		t.Errorf("layout = %q, want empty", doc.Layout())
	}
	if doc.Content != "body" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestParse_EmptyHeaderIsInvalid(t *testing.T) {
	doc, err := Parse("a.rst", strings.NewReader("---\nbody\n"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.MetadataErr == nil {
		t.Error("empty header should be reported")
	}
	if doc.Content != "body\n" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestParse_NonObjectHeaders(t *testing.T) {
	for _, header := range []string{`["a", "b"]`, `42`, `"text"`, `null`} {
		doc, err := Parse("a.rst", strings.NewReader(header+"\n---\n"))
		if err != nil {
			t.Fatal(err)
		}
		if !errors.Is(doc.MetadataErr, ErrInvalidMetadata) {
			t.Errorf("header %s: MetadataErr = %v", header, doc.MetadataErr)
		}
		if doc.Metadata == nil {
			t.Errorf("header %s: metadata should be an empty map", header)
		}
	}
}

func TestParse_NestedValues(t *testing.T) {
	input := `{"tags": ["go", "web"], "draft": false, "weight": 3, "author": {"name": "A"}}` + "\n---\n"
	doc, err := Parse("a.rst", strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	tags, ok := doc.Metadata["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("tags = %#v", doc.Metadata["tags"])
	}
	if doc.Metadata["draft"] != false {
		t.Errorf("draft = %#v", doc.Metadata["draft"])
	}
	if doc.Metadata["weight"] != int64(3) {
		t.Errorf("weight = %#v", doc.Metadata["weight"])
	}
	if _, ok := doc.Metadata["author"].(map[string]any); !ok {
		t.Errorf("author = %#v", doc.Metadata["author"])
	}
}

func TestParse_Numbers(t *testing.T) {
	input := `{"n": 3, "neg": -7, "big": 12345678901234567890, "f": 1.5, "whole": 2.0, "exp": 1e2, "tiny": 0.00001, "huge": 1e16, "list": [1, 0.25]}`
	doc, err := Parse("a.rst", strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if doc.MetadataErr != nil {
		t.Fatal(doc.MetadataErr)
	}
	m := doc.Metadata
	if m["n"] != int64(3) || m["neg"] != int64(-7) {
		t.Errorf("ints = %#v, %#v", m["n"], m["neg"])
	}
	if m["big"] != json.Number("12345678901234567890") {
		t.Errorf("big = %#v", m["big"])
	}
	for key, want := range map[string]string{"f": "1.5", "whole": "2.0", "exp": "100.0", "tiny": "1e-05", "huge": "1e+16"} {
		f, ok := m[key].(Float)
		if !ok || f.String() != want {
			t.Errorf("%s = %#v, want Float printing %q", key, m[key], want)
		}
	}
	list := m["list"].([]any)
	if list[0] != int64(1) || list[1] != Float(0.25) {
		t.Errorf("list = %#v", list)
	}
}

func TestParse_TrailingDataIsInvalid(t *testing.T) {
	doc, err := Parse("a.rst", strings.NewReader("{\"a\": 1} {\"b\": 2}\n---\nbody"))
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(doc.MetadataErr, ErrInvalidMetadata) {
		t.Errorf("MetadataErr = %v", doc.MetadataErr)
	}
}

func TestLayout_NonStringIgnored(t *testing.T) {
	doc, err := Parse("a.rst", strings.NewReader(`{"layout": 7}`))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Layout() != "" {
		t.Errorf("layout = %q, want empty", doc.Layout())
	}
}

func TestContext_BodyOverridesContentKey(t *testing.T) {
	doc, err := Parse("a.rst", strings.NewReader("{\"content\": \"from metadata\", \"title\": \"T\"}\n---\nfrom body"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := doc.Context()
	if ctx["content"] != "from body" {
		t.Errorf("content = %#v, want body text", ctx["content"])
	}
	if ctx["title"] != "T" {
		t.Errorf("title = %#v", ctx["title"])
	}
	// The document's own metadata is left untouched.
	if doc.Metadata["content"] != "from metadata" {
		t.Errorf("metadata mutated: %#v", doc.Metadata["content"])
	}
}

func TestRead_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.rst")
	if err := os.WriteFile(path, []byte(indexRST), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.Path != path {
		t.Errorf("path = %q", doc.Path)
	}
	if doc.Layout() != "home.html" {
		t.Errorf("layout = %q", doc.Layout())
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.rst"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}
