// Package state persists incremental build metadata in a SQLite database in
// the output directory: per-book source digests, chapter counts, and the
// output files each book produced (so removed sources can be cleaned up).
package state

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/inkstone/bookforge/core/sqlite"
)

// DBFilename is the fixed name of the state database inside the output
// directory.
const DBFilename = "bookforge.db"

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	author         TEXT NOT NULL DEFAULT '',
	source_path    TEXT NOT NULL,
	source_hash    TEXT NOT NULL,
	total_chapters INTEGER NOT NULL,
	fallback       INTEGER NOT NULL DEFAULT 0,
	updated_at     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS outputs (
	book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	path    TEXT NOT NULL,
	PRIMARY KEY (book_id, path)
);
`

// BookRecord is one row of the books table.
type BookRecord struct {
	ID            string
	Title         string
	Author        string
	SourcePath    string
	SourceHash    string
	TotalChapters int
	Fallback      bool
	UpdatedAt     time.Time
}

// Store wraps the state database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the state database in outDir.
func Open(ctx context.Context, outDir string) (*Store, error) {
	db, err := sqlite.Open(filepath.Join(outDir, DBFilename))
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init state schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the record for a book ID, or nil when unknown.
func (s *Store) Get(ctx context.Context, bookID string) (*BookRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, source_path, source_hash, total_chapters, fallback, updated_at
		FROM books WHERE id = ?`, bookID)

	var rec BookRecord
	var fallback int
	var updated string
	err := row.Scan(&rec.ID, &rec.Title, &rec.Author, &rec.SourcePath,
		&rec.SourceHash, &rec.TotalChapters, &fallback, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query book %s: %w", bookID, err)
	}
	rec.Fallback = fallback != 0
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &rec, nil
}

// Put upserts a book record and replaces its recorded outputs in one
// transaction.
func (s *Store) Put(ctx context.Context, rec BookRecord, outputs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	fallback := 0
	if rec.Fallback {
		fallback = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO books (id, title, author, source_path, source_hash, total_chapters, fallback, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			source_path = excluded.source_path,
			source_hash = excluded.source_hash,
			total_chapters = excluded.total_chapters,
			fallback = excluded.fallback,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Title, rec.Author, rec.SourcePath, rec.SourceHash,
		rec.TotalChapters, fallback, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM outputs WHERE book_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clear outputs for %s: %w", rec.ID, err)
	}
	for _, path := range outputs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO outputs (book_id, path) VALUES (?, ?)`, rec.ID, path); err != nil {
			return fmt.Errorf("record output %s: %w", path, err)
		}
	}

	return tx.Commit()
}

// Outputs returns the recorded output paths for a book.
func (s *Store) Outputs(ctx context.Context, bookID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM outputs WHERE book_id = ? ORDER BY path`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query outputs for %s: %w", bookID, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Delete removes a book and returns the output paths that were recorded for
// it, so the caller can remove the files.
func (s *Store) Delete(ctx context.Context, bookID string) ([]string, error) {
	outputs, err := s.Outputs(ctx, bookID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM outputs WHERE book_id = ?`, bookID); err != nil {
		return nil, fmt.Errorf("delete outputs for %s: %w", bookID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, bookID); err != nil {
		return nil, fmt.Errorf("delete book %s: %w", bookID, err)
	}
	return outputs, tx.Commit()
}

// List returns all book records ordered by ID.
func (s *Store) List(ctx context.Context) ([]BookRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, author, source_path, source_hash, total_chapters, fallback, updated_at
		FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var records []BookRecord
	for rows.Next() {
		var rec BookRecord
		var fallback int
		var updated string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Author, &rec.SourcePath,
			&rec.SourceHash, &rec.TotalChapters, &fallback, &updated); err != nil {
			return nil, err
		}
		rec.Fallback = fallback != 0
		rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		records = append(records, rec)
	}
	return records, rows.Err()
}
