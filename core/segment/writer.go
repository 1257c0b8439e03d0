package segment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inkstone/bookforge/internal/logging"
)

// MaxSegmentBytes is the size cap for a single text segment. Kept 1 KiB
// under 25 MiB so downstream storage with a hard 25 MiB object limit always
// has headroom for metadata.
const MaxSegmentBytes = 25*1024*1024 - 1024

// RenderedChapter is one chapter ready for serialization.
type RenderedChapter struct {
	Title string
	Body  string
}

// Book identifies the book being written.
type Book struct {
	ID     string
	Title  string
	Author string
}

// WriteBook serializes chapters into segments and writes the per-book index.
// Each chapter is written as title + "\n" + body + "\n\n"; a chapter is never
// split across two segments — a new segment starts when appending would
// exceed the cap. The index is written only after every segment succeeded,
// so a failed run never leaves the index referencing missing segments.
// Returns the index and the paths of all files written.
func WriteBook(outDir string, book Book, chapters []RenderedChapter) (*Index, []string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}

	var (
		assets  []string
		entries []ChapterEntry
		buf     bytes.Buffer
		written []string
	)

	flush := func() error {
		if buf.Len() == 0 {
			return nil
		}
		name := fmt.Sprintf("%s_%d.txt", book.ID, len(assets)+1)
		path := filepath.Join(outDir, name)
		if err := writeFileAtomic(path, buf.Bytes()); err != nil {
			return fmt.Errorf("write segment %s: %w", name, err)
		}
		assets = append(assets, name)
		written = append(written, path)
		buf.Reset()
		return nil
	}

	for i, ch := range chapters {
		record := ch.Title + "\n" + ch.Body + "\n\n"
		if buf.Len() > 0 && buf.Len()+len(record) > MaxSegmentBytes {
			if err := flush(); err != nil {
				return nil, nil, err
			}
		}
		if len(record) > MaxSegmentBytes {
			logging.Warn("chapter exceeds segment cap, writing oversized segment",
				"book_id", book.ID, "chapter", i+1, "bytes", len(record))
		}
		entries = append(entries, ChapterEntry{
			ID:         i + 1,
			Title:      ch.Title,
			AssetIndex: len(assets),
			StartByte:  int64(buf.Len()),
			Length:     int64(len(ch.Title) + 1 + len(ch.Body)),
		})
		buf.WriteString(record)
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}

	idx := &Index{
		Book: BookMeta{
			ID:            book.ID,
			Title:         book.Title,
			Author:        book.Author,
			TotalChapters: len(entries),
			Assets:        assets,
		},
		Chapters: entries,
	}

	data, err := json.Marshal(idx)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal index: %w", err)
	}
	idxPath := filepath.Join(outDir, IndexFilename(book.ID))
	if err := writeFileAtomic(idxPath, data); err != nil {
		return nil, nil, fmt.Errorf("write index: %w", err)
	}
	written = append(written, idxPath)

	return idx, written, nil
}
