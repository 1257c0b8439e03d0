// Package archive provides utilities for reading compressed novel archives.
// It supports zip, tar.gz and tar.xz containers.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/inkstone/bookforge/core/errors"
	"github.com/inkstone/bookforge/internal/validation"
)

// MaxEntryBytes caps how much is read from a single archive entry.
const MaxEntryBytes = 256 << 20

// Visitor is a callback for iterating archive entries. Return true to stop
// iteration. Directory entries and entries with unsafe names are never
// visited.
type Visitor func(name string, size int64, content io.Reader) (stop bool, err error)

// Supported reports whether the path names an archive format this package
// can open.
func Supported(p string) bool {
	switch {
	case strings.HasSuffix(p, ".zip"),
		strings.HasSuffix(p, ".tar.gz"),
		strings.HasSuffix(p, ".tgz"),
		strings.HasSuffix(p, ".tar.xz"):
		return true
	}
	return false
}

// Iterate walks all entries of the archive at path, calling the visitor for
// each regular file entry.
func Iterate(p string, visitor Visitor) error {
	switch {
	case strings.HasSuffix(p, ".zip"):
		return iterateZip(p, visitor)
	case strings.HasSuffix(p, ".tar.gz"), strings.HasSuffix(p, ".tgz"), strings.HasSuffix(p, ".tar.xz"):
		return iterateTar(p, visitor)
	default:
		return errors.NewUnsupported("archive format", p)
	}
}

// safeEntryName normalizes an entry name and rejects traversal attempts.
// Archive entries are only ever read into memory, but their names surface in
// logs and predicates, so hostile names are dropped outright.
func safeEntryName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." ||
		strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "/") {
		return "", false
	}
	if err := validation.ValidateFilename(path.Base(cleaned)); err != nil {
		return "", false
	}
	return cleaned, true
}

func iterateZip(p string, visitor Visitor) error {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, ok := safeEntryName(f.Name)
		if !ok {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", name, err)
		}
		stop, err := visitor(name, int64(f.UncompressedSize64), io.LimitReader(rc, MaxEntryBytes))
		rc.Close()
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func iterateTar(p string, visitor Visitor) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var reader io.Reader
	switch {
	case strings.HasSuffix(p, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	default:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr
	}

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		name, ok := safeEntryName(header.Name)
		if !ok {
			continue
		}
		stop, err := visitor(name, header.Size, io.LimitReader(tr, MaxEntryBytes))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// FindLargest reads the largest entry matching the predicate and returns its
// content and sanitized name. Novel archives sometimes carry several text
// files (advertisements, readme); the body text is reliably the biggest.
func FindLargest(p string, predicate func(name string) bool) ([]byte, string, error) {
	var best []byte
	var bestName string

	err := Iterate(p, func(name string, size int64, content io.Reader) (bool, error) {
		if !predicate(name) {
			return false, nil
		}
		data, err := io.ReadAll(content)
		if err != nil {
			return false, fmt.Errorf("read entry %s: %w", name, err)
		}
		if len(data) > len(best) {
			best = data
			bestName = name
		}
		return false, nil
	})
	if err != nil {
		return nil, "", err
	}
	if best == nil {
		return nil, "", errors.ErrNoTextEntry
	}
	return best, bestName, nil
}

// TextPredicate matches plain-text entries by extension, case-insensitively.
func TextPredicate(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".txt")
}
