// Package storage writes rendered pages into the output directory.
package storage

// Writer persists rendered text. Implementations create or truncate the
// target and overwrite existing files without warning.
type Writer interface {
	Write(path string, content []byte) error
}

// Page describes one file in the output directory.
type Page struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Provider is the full output directory abstraction.
type Provider interface {
	Writer
	// List returns every regular file under the output root.
	List() ([]Page, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Root returns the absolute output directory.
	Root() string
}
