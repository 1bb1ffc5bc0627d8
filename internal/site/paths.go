package site

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// Default extensions and layout directory name.
const (
	SourceExt = ".rst"
	OutputExt = ".html"
	LayoutDir = "layout"
)

// readBatch bounds how many directory entries are held at once.
const readBatch = 64

// splitExt separates the final extension from a base name. Leading dots are
// part of the name, so ".rst" has no extension and "x.tar.gz" splits into
// "x.tar" and ".gz".
func splitExt(base string) (string, string) {
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || strings.Trim(base[:i], ".") == "" {
		return base, ""
	}
	return base[:i], base[i:]
}

// IsDocument reports whether a file name carries the document extension ext,
// using the same split as enumeration.
func IsDocument(name, ext string) bool {
	_, e := splitExt(filepath.Base(name))
	return e == ext
}

// OutputPath maps a source document to its rendered file in outputDir.
func OutputPath(sourcePath, outputDir string) string {
	return OutputPathExt(sourcePath, outputDir, OutputExt)
}

// OutputPathExt is OutputPath with an explicit output extension.
func OutputPathExt(sourcePath, outputDir, ext string) string {
	name, _ := splitExt(filepath.Base(sourcePath))
	return filepath.Join(outputDir, name+ext)
}

// ListDocuments yields the paths of entries directly inside dir whose
// extension is exactly ext. Subdirectories are neither descended into nor
// yielded. Order follows the directory listing.
//
// Each range re-reads the directory. A listing error is yielded once and
// ends the sequence.
func ListDocuments(dir, ext string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(dir)
		if err != nil {
			yield("", fmt.Errorf("site: open %s: %w", dir, err))
			return
		}
		defer f.Close()

		for {
			entries, err := f.ReadDir(readBatch)
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				if !IsDocument(entry.Name(), ext) {
					continue
				}
				if !yield(filepath.Join(dir, entry.Name()), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("site: list %s: %w", dir, err))
				return
			}
		}
	}
}
