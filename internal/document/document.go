// Package document splits source files into a JSON metadata header and a raw content body.
package document

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Delimiter separates the metadata header from the content body.
const Delimiter = "---"

// LayoutKey is the metadata key naming the template a document renders through.
const LayoutKey = "layout"

// ErrInvalidMetadata marks a header that is not a well-formed JSON object.
var ErrInvalidMetadata = errors.New("metadata is not valid JSON")

// Metadata holds a decoded header. Values are nil, bool, string, []any,
// map[string]any and numbers: int64 for integer literals, Float for the rest,
// and json.Number for integers too large for int64.
type Metadata map[string]any

// Float is a fractional or exponent JSON number. It prints in the shortest
// form that reads back to the same value and always shows a fraction or an
// exponent, so 2.0 stays "2.0" and 0.00001 becomes "1e-05".
type Float float64

func (f Float) String() string {
	v := float64(f)
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// String returns the value under key when it is a string.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Document is one parsed source file.
type Document struct {
	Path     string
	Metadata Metadata
	Content  string
	// MetadataErr is set when the header could not be decoded. Metadata is
	// then empty and the document is still usable.
	MetadataErr error
}

// Layout returns the template name from the metadata, or "" when absent.
func (d *Document) Layout() string {
	s, _ := d.Metadata.String(LayoutKey)
	return s
}

// Context returns the variables a template is rendered with: a shallow copy
// of the metadata plus "content" holding the body.
//
// A metadata key named "content" is overwritten by the body without notice.
func (d *Document) Context() map[string]any {
	ctx := make(map[string]any, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		ctx[k] = v
	}
	ctx["content"] = d.Content
	return ctx
}

// Read opens path and parses it. The returned error reports I/O failures
// only; a bad header is reported through Document.MetadataErr.
func Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("document: open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(path, f)
}

// Parse splits r into header and body. path is used for identification and
// error messages only.
//
// Lines up to the first line whose trimmed text is exactly "---" form the
// header; the delimiter itself is dropped and everything after it is body,
// line terminators included. Without a delimiter the whole input is header
// and the body is empty.
func Parse(path string, r io.Reader) (*Document, error) {
	raw, content, err := split(r)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}

	doc := &Document{Path: path, Content: content}
	meta, err := decodeMetadata(raw)
	if err != nil {
		doc.Metadata = Metadata{}
		doc.MetadataErr = fmt.Errorf("document: %s: %w: %w", path, ErrInvalidMetadata, err)
		return doc, nil
	}
	doc.Metadata = meta
	return doc, nil
}

func split(r io.Reader) (string, string, error) {
	br := bufio.NewReader(r)
	var header, body strings.Builder
	inBody := false

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			switch {
			case inBody:
				body.WriteString(line)
			case strings.TrimSpace(line) == Delimiter:
				inBody = true
			default:
				header.WriteString(line)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", "", err
		}
	}
	return header.String(), body.String(), nil
}

func decodeMetadata(raw string) (Metadata, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("header is empty")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after header object")
	}
	switch obj := v.(type) {
	case nil:
		return nil, errors.New("header is null")
	case map[string]any:
		return Metadata(normalize(obj).(map[string]any)), nil
	default:
		return nil, errors.New("header is not a JSON object")
	}
}

// normalize replaces json.Number leaves with int64 or Float.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case json.Number:
		return number(t)
	default:
		return v
	}
}

func number(n json.Number) any {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i
		}
		return n
	}
	f, err := n.Float64()
	if err != nil {
		return n
	}
	return Float(f)
}
