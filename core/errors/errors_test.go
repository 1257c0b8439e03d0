package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestBookError(t *testing.T) {
	tests := []struct {
		name    string
		err     *BookError
		wantMsg string
	}{
		{
			name:    "with stage",
			err:     &BookError{BookID: "b001", Stage: "decode", Err: ErrEmptyText},
			wantMsg: "book b001: decode: decoded text is empty",
		},
		{
			name:    "without stage",
			err:     &BookError{BookID: "b002", Err: ErrNoTextEntry},
			wantMsg: "book b002: no text entry in archive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestBookErrorUnwrap(t *testing.T) {
	err := NewBook("b001", "parse", ErrCorpusTooSmall)
	if !errors.Is(err, ErrCorpusTooSmall) {
		t.Errorf("errors.Is(err, ErrCorpusTooSmall) = false, want true")
	}
}

func TestRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no text entry", ErrNoTextEntry, true},
		{"empty text", ErrEmptyText, true},
		{"corpus too small", ErrCorpusTooSmall, true},
		{"unsupported", ErrUnsupported, true},
		{"wrapped recoverable", fmt.Errorf("extract: %w", ErrNoTextEntry), true},
		{"book wrapped recoverable", NewBook("b001", "parse", ErrCorpusTooSmall), true},
		{"io failure", NewIO("write", "/out/seg.txt", errors.New("disk full")), false},
		{"not found", ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Recoverable(tt.err); got != tt.want {
				t.Errorf("Recoverable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIOError(t *testing.T) {
	base := errors.New("permission denied")
	err := NewIO("write", "/out/books.json", base)
	want := "failed to write /out/books.json: permission denied"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Error("IOError should unwrap to its underlying error")
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("index", "/out/b001_chapters.json", "truncated")
	want := "failed to parse index at /out/b001_chapters.json: truncated"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ParseError without underlying error should unwrap to ErrInvalidInput")
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("archive format", ".rar is not handled")
	want := "unsupported archive format: .rar is not handled"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should unwrap to ErrUnsupported")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	base := errors.New("boom")
	err := Wrap(base, "processing")
	if err.Error() != "processing: boom" {
		t.Errorf("Wrap() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should match base via errors.Is")
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "book %s", "b001") != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	base := errors.New("boom")
	err := Wrapf(base, "book %s", "b001")
	if err.Error() != "book b001: boom" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
}
