package history

import (
	"fmt"
	"time"
)

// Run is one recorded generation.
type Run struct {
	ID         int64     `json:"id"`
	SourceDir  string    `json:"source_dir"`
	OutputDir  string    `json:"output_dir"`
	Mode       string    `json:"mode"`
	Written    int       `json:"written"`
	Skipped    int       `json:"skipped"`
	Warnings   int       `json:"warnings"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Document is the outcome for one source file within a run.
type Document struct {
	Source          string `json:"source"`
	Output          string `json:"output,omitempty"`
	Template        string `json:"template"`
	Status          string `json:"status"`
	MetadataWarning bool   `json:"metadata_warning"`
	Checksum        string `json:"checksum,omitempty"`
}

// Record inserts a run and its documents within a transaction and returns
// the new run ID.
func (db *DB) Record(run Run, docs []Document) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.Exec(`
		INSERT INTO runs (source_dir, output_dir, mode, written, skipped, warnings, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.SourceDir, run.OutputDir, run.Mode, run.Written, run.Skipped, run.Warnings, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("history: insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: run id: %w", err)
	}

	if len(docs) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO documents (run_id, source, output, template, status, metadata_warning, checksum)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("history: prepare document insert: %w", err)
		}
		defer stmt.Close()
		for _, d := range docs {
			if _, err := stmt.Exec(id, d.Source, d.Output, d.Template, d.Status, d.MetadataWarning, d.Checksum); err != nil {
				return 0, fmt.Errorf("history: insert document: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first.
func (db *DB) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, source_dir, output_dir, mode, written, skipped, warnings, error, started_at, finished_at
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SourceDir, &r.OutputDir, &r.Mode, &r.Written, &r.Skipped,
			&r.Warnings, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Documents returns the per-document outcomes of a run in processing order.
func (db *DB) Documents(runID int64) ([]Document, error) {
	rows, err := db.conn.Query(`
		SELECT source, output, template, status, metadata_warning, checksum
		FROM documents
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Source, &d.Output, &d.Template, &d.Status, &d.MetadataWarning, &d.Checksum); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep runs and deletes the rest with their
// documents. It returns the number of runs removed.
func (db *DB) Prune(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const stale = `SELECT id FROM runs ORDER BY id DESC LIMIT -1 OFFSET ?`
	if _, err := tx.Exec(`DELETE FROM documents WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("history: prune documents: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("history: prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return n, nil
}
