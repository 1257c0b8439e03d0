package state

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStorePutGet(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	missing, err := st.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if missing != nil {
		t.Errorf("unknown book returned %+v", missing)
	}

	rec := BookRecord{
		ID: "book1", Title: "测试", Author: "作者",
		SourcePath: "/src/book1.zip", SourceHash: "abc123",
		TotalChapters: 42, Fallback: true,
	}
	if err := st.Put(ctx, rec, []string{"/out/book1_1.txt", "/out/book1_chapters.json"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := st.Get(ctx, "book1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.SourceHash != "abc123" || got.TotalChapters != 42 || !got.Fallback {
		t.Errorf("Get = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not recorded")
	}

	outputs, err := st.Outputs(ctx, "book1")
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	if len(outputs) != 2 {
		t.Errorf("outputs = %v", outputs)
	}
}

func TestStorePutReplacesOutputs(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	rec := BookRecord{ID: "b", Title: "t", SourcePath: "p", SourceHash: "h1", TotalChapters: 1}
	if err := st.Put(ctx, rec, []string{"/out/old.txt"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec.SourceHash = "h2"
	if err := st.Put(ctx, rec, []string{"/out/new_1.txt", "/out/new_2.txt"}); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := st.Get(ctx, "b")
	if err != nil || got == nil {
		t.Fatalf("Get: %v / %+v", err, got)
	}
	if got.SourceHash != "h2" {
		t.Errorf("hash = %q, want h2", got.SourceHash)
	}

	outputs, err := st.Outputs(ctx, "b")
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	if len(outputs) != 2 || outputs[0] != "/out/new_1.txt" {
		t.Errorf("outputs = %v, want the replacement set", outputs)
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	rec := BookRecord{ID: "gone", Title: "t", SourcePath: "p", SourceHash: "h", TotalChapters: 1}
	if err := st.Put(ctx, rec, []string{"/out/gone_1.txt"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	outputs, err := st.Delete(ctx, "gone")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(outputs) != 1 || outputs[0] != "/out/gone_1.txt" {
		t.Errorf("Delete outputs = %v", outputs)
	}

	got, err := st.Get(ctx, "gone")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("deleted book still present: %+v", got)
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		rec := BookRecord{ID: id, Title: id, SourcePath: "p", SourceHash: "h", TotalChapters: 1}
		if err := st.Put(ctx, rec, nil); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	records, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("List returned %d records", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if records[i].ID != want {
			t.Errorf("records[%d].ID = %q, want %q", i, records[i].ID, want)
		}
	}
}
