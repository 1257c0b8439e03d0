// Package chapter implements heading detection for plain-text novels: a
// statistics pass resolves the document's marker vocabulary, physical lines
// are split at concatenated headings, candidates are matched against an
// ordered pattern list and confidence-scored, volume headings are folded into
// chapter titles, and the accepted headings partition the document into
// contiguous chapter ranges. The whole engine is pure per document: no I/O,
// no state shared across invocations.
package chapter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/inkstone/bookforge/core/errors"
)

// Chapter is one detected chapter: a composed title and the half-open line
// range [StartLine, EndLine) it covers in the logical corpus.
type Chapter struct {
	Title     string
	StartLine int
	EndLine   int
}

// Result is a completed parse. Lines is the logical corpus the ranges index
// into (composite physical lines appear as their split segments).
type Result struct {
	Lines      []string
	Chapters   []Chapter
	Vocabulary Vocabulary
	Fallback   bool
}

// FallbackChapterLines is the synthetic chapter size used when no headings
// are detected.
const FallbackChapterLines = 300

// MinCorpusLines is the smallest non-empty line count worth partitioning at
// all; below this the document is reported as unparseable instead.
const MinCorpusLines = 10

// fallbackTitlePrefix keys synthetic titles so a later pass can recognize
// books that never got real chapter detection and force reprocessing.
const fallbackTitlePrefix = "自动分段"

// IsFallbackTitle reports whether a chapter title was synthesized by the
// fixed-size fallback partitioner.
func IsFallbackTitle(title string) bool {
	return strings.HasPrefix(title, fallbackTitlePrefix)
}

// NormalizeLines collapses line-ending variants and splits text into the
// ordered physical line corpus.
func NormalizeLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// acceptedHeading is an accepted chapter heading prior to partitioning.
type acceptedHeading struct {
	lineIndex int
	title     string
}

// volumeState is the single piece of sequential parser state: the most
// recently accepted volume heading, if any. It is replaced wholesale by the
// next accepted volume and never applied retroactively.
type volumeState struct {
	active bool
	title  string
	marker rune // 0 for Latin keyword and bracket-annotation volumes
}

// Parse runs the full detection pipeline over decoded text.
func Parse(text string, w Weights) (*Result, error) {
	physical := NormalizeLines(text)
	vocab := ScanVocabulary(physical)

	sp := newSplitter(vocab)
	m := newMatcher(vocab)

	// Composite splitting produces a new corpus with its own indices; the
	// physical corpus is never mutated.
	type logicalLine struct {
		text      string
		composite bool
	}
	logical := make([]logicalLine, 0, len(physical))
	nonEmpty := 0
	for _, line := range physical {
		segments, composite := sp.split(line)
		for _, seg := range segments {
			logical = append(logical, logicalLine{text: seg, composite: composite})
			if strings.TrimSpace(seg) != "" {
				nonEmpty++
			}
		}
	}

	lines := make([]string, len(logical))
	for i, l := range logical {
		lines[i] = l.text
	}

	var accepted []acceptedHeading
	var volume volumeState
	for i, l := range logical {
		if strings.TrimSpace(l.text) == "" {
			continue
		}
		if c := m.matchChapter(i, l.text, l.composite); c != nil {
			if w.Score(c) >= w.Threshold {
				accepted = append(accepted, acceptedHeading{
					lineIndex: i,
					title:     composeTitle(vocab, volume, l.text),
				})
				continue
			}
			// First structural match wins; a rejected candidate is not
			// retried under a lower-priority pattern.
			continue
		}
		if v := m.matchVolume(i, l.text, l.composite); v != nil {
			if w.Score(v) >= w.Threshold {
				marker, _ := firstRune(v.Marker)
				if utf8.RuneCountInString(v.Marker) > 1 || !vocab.Upper[marker] {
					marker = 0
				}
				volume = volumeState{
					active: true,
					title:  strings.TrimSpace(l.text),
					marker: marker,
				}
			}
		}
	}

	if len(accepted) == 0 {
		if nonEmpty < MinCorpusLines {
			return nil, fmt.Errorf("%w: %d non-empty lines", errors.ErrCorpusTooSmall, nonEmpty)
		}
		return fallbackPartition(lines, vocab), nil
	}

	chapters := make([]Chapter, len(accepted))
	for i, h := range accepted {
		end := len(lines)
		if i+1 < len(accepted) {
			end = accepted[i+1].lineIndex
		}
		chapters[i] = Chapter{Title: h.title, StartLine: h.lineIndex, EndLine: end}
	}

	return &Result{
		Lines:      lines,
		Chapters:   chapters,
		Vocabulary: vocab,
	}, nil
}

// composeTitle prefixes the chapter title with the active volume title when
// the volume's marker resolved as upper-level. Latin keyword and bracket
// volumes always qualify: they have no glyph to collide with the primary set.
func composeTitle(vocab Vocabulary, volume volumeState, line string) string {
	title := strings.TrimSpace(line)
	if !volume.active {
		return title
	}
	if volume.marker != 0 && vocab.Primary[volume.marker] {
		return title
	}
	return volume.title + " " + title
}

// fallbackPartition slices the corpus into fixed-size synthetic chapters.
// Titles encode the covered line range so downstream tooling can tell these
// apart from detected chapters.
func fallbackPartition(lines []string, vocab Vocabulary) *Result {
	var chapters []Chapter
	for start := 0; start < len(lines); start += FallbackChapterLines {
		end := start + FallbackChapterLines
		if end > len(lines) {
			end = len(lines)
		}
		chapters = append(chapters, Chapter{
			Title:     fmt.Sprintf("%s %d-%d行", fallbackTitlePrefix, start+1, end),
			StartLine: start,
			EndLine:   end,
		})
	}
	return &Result{
		Lines:      lines,
		Chapters:   chapters,
		Vocabulary: vocab,
		Fallback:   true,
	}
}
