package history

// Store is the read/write surface of the history database.
type Store interface {
	Record(run Run, docs []Document) (int64, error)
	Recent(limit int) ([]Run, error)
	Documents(runID int64) ([]Document, error)
	Prune(keep int) (int64, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
