package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkstone/bookforge/core/chapter"
	"github.com/inkstone/bookforge/core/segment"
)

// novelText builds a detectable five-chapter novel body.
func novelText() string {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "第%d章 风云再起\n", i)
		for j := 0; j < 30; j++ {
			b.WriteString("平原上的风不停地吹着，远处传来隐约的马蹄声。\n")
		}
	}
	return b.String()
}

func writeArchive(t *testing.T, dir, name, entry, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create(entry)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestRunner(src, out string, notify func(Event)) *Runner {
	return NewRunner(Options{
		SourceDir: src,
		OutDir:    out,
		Weights:   chapter.DefaultWeights(),
	}, notify)
}

func TestRunnerProcessesArchive(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	writeArchive(t, src, "测试之书 - 作者.zip", "novel.txt", novelText())

	var events []Event
	runner := newTestRunner(src, out, func(ev Event) { events = append(events, ev) })

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	bookID := MakeBookID("测试之书 - 作者")
	idx, err := segment.LoadIndex(filepath.Join(out, segment.IndexFilename(bookID)))
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if idx.Book.TotalChapters != 5 {
		t.Errorf("TotalChapters = %d, want 5", idx.Book.TotalChapters)
	}
	if idx.Book.Author != "作者" {
		t.Errorf("Author = %q", idx.Book.Author)
	}
	for _, asset := range idx.Book.Assets {
		if _, err := os.Stat(filepath.Join(out, asset)); err != nil {
			t.Errorf("missing segment %s: %v", asset, err)
		}
	}

	list, err := segment.LoadBookList(out)
	if err != nil {
		t.Fatalf("LoadBookList: %v", err)
	}
	if len(list.Rows) != 1 || list.Rows[0].ID != bookID {
		t.Errorf("book list = %+v", list.Rows)
	}

	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	if types[0] != "processing" || types[len(types)-1] != "done" {
		t.Errorf("event types = %v", types)
	}
}

func TestRunnerSkipsUnchanged(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	writeArchive(t, src, "book.zip", "novel.txt", novelText())

	runner := newTestRunner(src, out, nil)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Skipped != 1 || sum.Processed != 0 {
		t.Errorf("second run summary = %+v, want 1 skipped", sum)
	}
}

func TestRunnerReprocessesChanged(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	writeArchive(t, src, "book.zip", "novel.txt", novelText())

	runner := newTestRunner(src, out, nil)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// New content, same filename: the digest gate must reopen.
	writeArchive(t, src, "book.zip", "novel.txt", novelText()+"第6章 终局\n正文。\n")
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Processed != 1 {
		t.Errorf("summary = %+v, want 1 processed", sum)
	}

	idx, err := segment.LoadIndex(filepath.Join(out, segment.IndexFilename("book")))
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if idx.Book.TotalChapters != 6 {
		t.Errorf("TotalChapters = %d, want 6 after reprocess", idx.Book.TotalChapters)
	}
}

func TestRunnerForce(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	writeArchive(t, src, "book.zip", "novel.txt", novelText())

	runner := newTestRunner(src, out, nil)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	forced := NewRunner(Options{
		SourceDir: src, OutDir: out,
		Weights: chapter.DefaultWeights(),
		Force:   true,
	}, nil)
	sum, err := forced.Run(context.Background())
	if err != nil {
		t.Fatalf("forced Run: %v", err)
	}
	if sum.Processed != 1 || sum.Skipped != 0 {
		t.Errorf("forced summary = %+v", sum)
	}
}

func TestRunnerRemovesStale(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	p := writeArchive(t, src, "book.zip", "novel.txt", novelText())

	runner := newTestRunner(src, out, nil)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	idx, err := segment.LoadIndex(filepath.Join(out, segment.IndexFilename("book")))
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}

	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Removed != 1 {
		t.Errorf("summary = %+v, want 1 removed", sum)
	}

	for _, asset := range idx.Book.Assets {
		if _, err := os.Stat(filepath.Join(out, asset)); !os.IsNotExist(err) {
			t.Errorf("stale segment %s still exists", asset)
		}
	}
	list, err := segment.LoadBookList(out)
	if err != nil {
		t.Fatalf("LoadBookList: %v", err)
	}
	if len(list.Rows) != 0 {
		t.Errorf("book list still has %+v", list.Rows)
	}
}

func TestRunnerFailureDoesNotAbortBatch(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	// Empty text entry: recoverable failure.
	writeArchive(t, src, "broken.zip", "novel.txt", "   \n  \n")
	writeArchive(t, src, "good.zip", "novel.txt", novelText())

	runner := newTestRunner(src, out, nil)
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 || sum.Processed != 1 {
		t.Errorf("summary = %+v, want 1 failed and 1 processed", sum)
	}
	if _, err := segment.LoadIndex(filepath.Join(out, segment.IndexFilename("good"))); err != nil {
		t.Errorf("good book missing: %v", err)
	}
}

func TestRunnerFallbackBook(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	var b strings.Builder
	for i := 0; i < 650; i++ {
		b.WriteString("没有任何标题的普通叙述行，讲着一个平淡的故事。\n")
	}
	writeArchive(t, src, "plain.zip", "novel.txt", b.String())

	runner := newTestRunner(src, out, nil)
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	idx, err := segment.LoadIndex(filepath.Join(out, segment.IndexFilename("plain")))
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if idx.Book.TotalChapters != 3 {
		t.Errorf("TotalChapters = %d, want 3 fallback chapters", idx.Book.TotalChapters)
	}
	if !chapter.IsFallbackTitle(idx.Chapters[0].Title) {
		t.Errorf("first title %q is not a fallback title", idx.Chapters[0].Title)
	}
}
