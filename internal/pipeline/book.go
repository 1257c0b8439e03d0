package pipeline

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/inkstone/bookforge/core/segment"
)

// IdentifyBook derives a book's identity from its archive filename.
// "玄幻大作 - 某作者.zip" yields title 玄幻大作, author 某作者; without the
// " - " separator the whole stem is the title and the author is unknown.
func IdentifyBook(archivePath string) segment.Book {
	stem := archiveStem(filepath.Base(archivePath))

	title, author := stem, ""
	if i := strings.LastIndex(stem, " - "); i > 0 {
		title = strings.TrimSpace(stem[:i])
		author = strings.TrimSpace(stem[i+3:])
	}

	return segment.Book{
		ID:     MakeBookID(stem),
		Title:  title,
		Author: author,
	}
}

// archiveStem strips the supported archive extensions.
func archiveStem(name string) string {
	for _, ext := range []string{".tar.gz", ".tar.xz", ".tgz", ".zip"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// MakeBookID turns an archive stem into a filesystem- and URL-safe
// identifier: letters, digits and CJK runes survive, everything else
// collapses into single underscores.
func MakeBookID(stem string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(stem) {
		switch {
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case unicode.Is(unicode.Han, r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
