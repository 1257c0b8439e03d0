// Package pipeline is the batch driver: it walks a directory of novel
// archives, digest-gates each one, and runs extract -> decode -> parse ->
// write for those that changed. Books are processed one at a time to bound
// peak memory; each parse is self-contained, so a failure in one book never
// aborts the batch.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inkstone/bookforge/core/chapter"
	"github.com/inkstone/bookforge/core/digest"
	"github.com/inkstone/bookforge/core/errors"
	"github.com/inkstone/bookforge/core/segment"
	"github.com/inkstone/bookforge/core/textenc"
	"github.com/inkstone/bookforge/internal/archive"
	"github.com/inkstone/bookforge/internal/logging"
	"github.com/inkstone/bookforge/internal/state"
)

// Options configures a batch run.
type Options struct {
	SourceDir string
	OutDir    string
	Weights   chapter.Weights
	// Force reprocesses every archive regardless of digest.
	Force bool
	// ReparseFallback reprocesses books that previously only got the
	// fixed-size fallback partition, even when their digest is unchanged.
	ReparseFallback bool
}

// Event is a progress notification, broadcast to the reader UI during
// rebuilds triggered from the server.
type Event struct {
	Type     string `json:"type"` // "processing", "processed", "skipped", "failed", "removed", "done"
	BookID   string `json:"bookId,omitempty"`
	Message  string `json:"message,omitempty"`
	Chapters int    `json:"chapters,omitempty"`
}

// Summary aggregates the outcome of a batch run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	Removed   int
}

// Runner executes batch runs.
type Runner struct {
	opts   Options
	notify func(Event)
}

// NewRunner creates a runner. notify may be nil.
func NewRunner(opts Options, notify func(Event)) *Runner {
	if notify == nil {
		notify = func(Event) {}
	}
	return &Runner{opts: opts, notify: notify}
}

// Run processes every archive under SourceDir and removes outputs of
// archives that disappeared from the source set.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	if err := os.MkdirAll(r.opts.OutDir, 0755); err != nil {
		return sum, fmt.Errorf("create output directory: %w", err)
	}

	archives, err := listArchives(r.opts.SourceDir)
	if err != nil {
		return sum, err
	}

	st, err := state.Open(ctx, r.opts.OutDir)
	if err != nil {
		return sum, err
	}
	defer st.Close()

	bookList, err := segment.LoadBookList(r.opts.OutDir)
	if err != nil {
		return sum, err
	}

	seen := make(map[string]bool, len(archives))
	for _, src := range archives {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		book := IdentifyBook(src)
		seen[book.ID] = true

		outcome, err := r.processBook(ctx, st, bookList, src, book)
		switch {
		case err != nil:
			sum.Failed++
			var stage string
			if be, ok := err.(*errors.BookError); ok {
				stage = be.Stage
			}
			logging.BookFailed(book.ID, stage, err)
			r.notify(Event{Type: "failed", BookID: book.ID, Message: err.Error()})
		case outcome.skipped:
			sum.Skipped++
			r.notify(Event{Type: "skipped", BookID: book.ID})
		default:
			sum.Processed++
			r.notify(Event{Type: "processed", BookID: book.ID, Chapters: outcome.chapters})
		}
	}

	removed, err := r.removeStale(ctx, st, bookList, seen)
	if err != nil {
		return sum, err
	}
	sum.Removed = removed

	if err := bookList.Save(r.opts.OutDir); err != nil {
		return sum, err
	}

	logging.Info("batch_complete",
		"processed", sum.Processed, "skipped", sum.Skipped,
		"failed", sum.Failed, "removed", sum.Removed)
	r.notify(Event{Type: "done", Message: fmt.Sprintf("%d processed, %d skipped, %d failed, %d removed",
		sum.Processed, sum.Skipped, sum.Failed, sum.Removed)})
	return sum, nil
}

type outcome struct {
	skipped  bool
	chapters int
}

func (r *Runner) processBook(ctx context.Context, st *state.Store, bookList *segment.BookList, src string, book segment.Book) (outcome, error) {
	start := time.Now()
	r.notify(Event{Type: "processing", BookID: book.ID})

	dig, err := digest.File(src)
	if err != nil {
		return outcome{}, errors.NewBook(book.ID, "hash", err)
	}

	prev, err := st.Get(ctx, book.ID)
	if err != nil {
		return outcome{}, errors.NewBook(book.ID, "state", err)
	}
	if prev != nil && prev.SourceHash == dig && !r.opts.Force {
		if !(prev.Fallback && r.opts.ReparseFallback) && indexExists(r.opts.OutDir, book.ID) {
			logging.BookSkipped(book.ID, dig)
			return outcome{skipped: true}, nil
		}
	}

	data, entry, err := archive.FindLargest(src, archive.TextPredicate)
	if err != nil {
		return outcome{}, errors.NewBook(book.ID, "extract", err)
	}

	text, charset, err := textenc.Decode(data)
	if err != nil {
		return outcome{}, errors.NewBook(book.ID, "decode", err)
	}
	if strings.TrimSpace(text) == "" {
		return outcome{}, errors.NewBook(book.ID, "decode", errors.ErrEmptyText)
	}

	res, err := chapter.Parse(text, r.opts.Weights)
	if err != nil {
		return outcome{}, errors.NewBook(book.ID, "parse", err)
	}
	if res.Fallback {
		logging.FallbackPartition(book.ID, len(res.Chapters), chapter.FallbackChapterLines)
	}

	idx, written, err := segment.WriteBook(r.opts.OutDir, book, renderChapters(res))
	if err != nil {
		return outcome{}, errors.NewBook(book.ID, "write", err)
	}

	err = st.Put(ctx, state.BookRecord{
		ID:            book.ID,
		Title:         book.Title,
		Author:        book.Author,
		SourcePath:    src,
		SourceHash:    dig,
		TotalChapters: idx.Book.TotalChapters,
		Fallback:      res.Fallback,
	}, written)
	if err != nil {
		return outcome{}, errors.NewBook(book.ID, "state", err)
	}

	bookList.Upsert(segment.BookListRow{
		ID:            book.ID,
		Title:         book.Title,
		Author:        book.Author,
		TotalChapters: idx.Book.TotalChapters,
	})

	logging.BookProcessed(book.ID, idx.Book.TotalChapters, res.Fallback, time.Since(start),
		"entry", entry, "charset", charset)
	return outcome{chapters: idx.Book.TotalChapters}, nil
}

// removeStale deletes outputs for books whose source archive disappeared.
func (r *Runner) removeStale(ctx context.Context, st *state.Store, bookList *segment.BookList, seen map[string]bool) (int, error) {
	records, err := st.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range records {
		if seen[rec.ID] {
			continue
		}
		outputs, err := st.Delete(ctx, rec.ID)
		if err != nil {
			return removed, err
		}
		for _, path := range outputs {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logging.Warn("failed to remove stale output", "path", path, "error", err)
			}
		}
		bookList.Remove(rec.ID)
		removed++
		logging.Info("book_removed", "book_id", rec.ID, "outputs", len(outputs))
		r.notify(Event{Type: "removed", BookID: rec.ID})
	}
	return removed, nil
}

// renderChapters turns parsed line ranges into serializable chapters. The
// heading line itself is excluded from detected chapter bodies (the composed
// title replaces it); fallback ranges have no heading line to exclude.
func renderChapters(res *chapter.Result) []segment.RenderedChapter {
	rendered := make([]segment.RenderedChapter, 0, len(res.Chapters))
	for _, ch := range res.Chapters {
		start := ch.StartLine
		if !res.Fallback {
			start++
		}
		if start > ch.EndLine {
			start = ch.EndLine
		}
		body := strings.TrimRight(strings.Join(res.Lines[start:ch.EndLine], "\n"), "\n\t ")
		rendered = append(rendered, segment.RenderedChapter{Title: ch.Title, Body: body})
	}
	return rendered
}

func indexExists(outDir, bookID string) bool {
	_, err := os.Stat(filepath.Join(outDir, segment.IndexFilename(bookID)))
	return err == nil
}

// listArchives returns the supported archives directly under dir, sorted.
func listArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !archive.Supported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
