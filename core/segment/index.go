// Package segment serializes detected chapters into size-bounded text
// segments plus compact JSON indexes for the static web reader.
package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BookMeta identifies a book inside its index file.
type BookMeta struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	TotalChapters int      `json:"totalChapters"`
	Assets        []string `json:"assets"`
}

// ChapterEntry locates one chapter inside a segment. It serializes as the
// compact tuple [chapterId, title, assetIndex, startByte, length]; offsets
// are UTF-8 byte offsets within the referenced segment, not rune offsets.
type ChapterEntry struct {
	ID         int
	Title      string
	AssetIndex int
	StartByte  int64
	Length     int64
}

// MarshalJSON emits the row-tuple form.
func (e ChapterEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.ID, e.Title, e.AssetIndex, e.StartByte, e.Length})
}

// UnmarshalJSON reads the row-tuple form.
func (e *ChapterEntry) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 5 {
		return fmt.Errorf("chapter entry: want 5 fields, got %d", len(tuple))
	}
	fields := []any{&e.ID, &e.Title, &e.AssetIndex, &e.StartByte, &e.Length}
	for i, raw := range tuple {
		if err := json.Unmarshal(raw, fields[i]); err != nil {
			return fmt.Errorf("chapter entry field %d: %w", i, err)
		}
	}
	return nil
}

// Index is the per-book index file contents.
type Index struct {
	Book     BookMeta       `json:"book"`
	Chapters []ChapterEntry `json:"chapters"`
}

// IndexFilename returns the index filename for a book ID.
func IndexFilename(bookID string) string {
	return bookID + "_chapters.json"
}

// LoadIndex reads and parses a per-book index file.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}
	return &idx, nil
}

// BookListRow is one row of the compact book-list file, serialized in
// column order [id, title, author, totalChapters].
type BookListRow struct {
	ID            string
	Title         string
	Author        string
	TotalChapters int
}

// MarshalJSON emits the row-tuple form.
func (r BookListRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.ID, r.Title, r.Author, r.TotalChapters})
}

// UnmarshalJSON reads the row-tuple form.
func (r *BookListRow) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 4 {
		return fmt.Errorf("book row: want 4 fields, got %d", len(tuple))
	}
	fields := []any{&r.ID, &r.Title, &r.Author, &r.TotalChapters}
	for i, raw := range tuple {
		if err := json.Unmarshal(raw, fields[i]); err != nil {
			return fmt.Errorf("book row field %d: %w", i, err)
		}
	}
	return nil
}

// BookList is the compact book-list file contents.
type BookList struct {
	Columns []string      `json:"columns"`
	Rows    []BookListRow `json:"rows"`
}

// BookListFilename is the fixed name of the book-list file.
const BookListFilename = "books.json"

// bookListColumns is the fixed header row.
var bookListColumns = []string{"id", "title", "author", "totalChapters"}

// LoadBookList reads the book list from outDir, returning an empty list when
// the file does not exist yet.
func LoadBookList(outDir string) (*BookList, error) {
	data, err := os.ReadFile(filepath.Join(outDir, BookListFilename))
	if os.IsNotExist(err) {
		return &BookList{Columns: bookListColumns}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read book list: %w", err)
	}
	var list BookList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse book list: %w", err)
	}
	return &list, nil
}

// Upsert replaces or appends the row for a book, keeping rows sorted by ID.
func (l *BookList) Upsert(row BookListRow) {
	for i := range l.Rows {
		if l.Rows[i].ID == row.ID {
			l.Rows[i] = row
			return
		}
	}
	l.Rows = append(l.Rows, row)
	sort.Slice(l.Rows, func(i, j int) bool { return l.Rows[i].ID < l.Rows[j].ID })
}

// Remove deletes the row for a book ID, if present.
func (l *BookList) Remove(bookID string) {
	for i := range l.Rows {
		if l.Rows[i].ID == bookID {
			l.Rows = append(l.Rows[:i], l.Rows[i+1:]...)
			return
		}
	}
}

// Save writes the book list to outDir atomically.
func (l *BookList) Save(outDir string) error {
	l.Columns = bookListColumns
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal book list: %w", err)
	}
	return writeFileAtomic(filepath.Join(outDir, BookListFilename), data)
}

// writeFileAtomic writes via a temp file and rename so readers never observe
// a partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimPrefix(filepath.Base(path), ".")+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
