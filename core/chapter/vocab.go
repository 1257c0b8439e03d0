package chapter

import (
	"regexp"
	"sort"
	"strings"
)

// Seed marker sets. A glyph may appear in both; scan statistics resolve it
// into exactly one set (or drop it) before any matching happens.
var (
	upperSeedMarkers   = []rune("卷部册季集篇")
	primarySeedMarkers = []rune("章节回集篇幕话段折品")
)

// Vocabulary is the per-document marker resolution: which glyphs denote
// volume-level headings and which denote chapter-level headings. The two sets
// are disjoint once built.
type Vocabulary struct {
	Upper   map[rune]bool
	Primary map[rune]bool
}

// UpperClass returns a regexp character class over the upper markers, or ""
// when the set is empty.
func (v Vocabulary) UpperClass() string { return markerClass(v.Upper) }

// PrimaryClass returns a regexp character class over the primary markers, or
// "" when the set is empty.
func (v Vocabulary) PrimaryClass() string { return markerClass(v.Primary) }

func markerClass(set map[rune]bool) string {
	if len(set) == 0 {
		return ""
	}
	runes := make([]rune, 0, len(set))
	for r := range set {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range runes {
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteByte(']')
	return b.String()
}

// scanPattern matches a potential heading shape anywhere a candidate marker
// glyph directly follows an ordinal fragment, optionally preceded by a
// bracketed annotation and/or the ordinal prefix 第. Compiled once; the
// candidate glyph union is fixed.
var scanPattern = regexp.MustCompile(
	`^\s*(?:[（(【\[][^）)】\]]{0,20}[）)】\]])?\s*(第)?\s*` + numeralClass + `{1,12}\s*([` +
		string(upperSeedMarkers) + string(primarySeedMarkers) + `])`,
)

// markerStats accumulates occurrence statistics for one candidate glyph.
type markerStats struct {
	count int
	lines []int // line indices of occurrences, ascending
}

// maxScanLineRunes bounds the lines considered by the statistics pass;
// genuine headings are short.
const maxScanLineRunes = 100

// ScanVocabulary runs the statistics pass over the corpus and resolves the
// marker vocabulary. Pure function of the corpus; called once per document.
func ScanVocabulary(lines []string) Vocabulary {
	stats := make(map[rune]*markerStats)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len([]rune(trimmed)) > maxScanLineRunes {
			continue
		}
		m := scanPattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		glyph, _ := firstRune(m[2])
		st := stats[glyph]
		if st == nil {
			st = &markerStats{}
			stats[glyph] = st
		}
		st.count++
		st.lines = append(st.lines, i)
	}

	upper := make(map[rune]bool)
	primary := make(map[rune]bool)
	for _, r := range upperSeedMarkers {
		if stats[r] != nil {
			upper[r] = true
		}
	}
	for _, r := range primarySeedMarkers {
		if stats[r] != nil {
			primary[r] = true
		}
	}

	resolveAmbiguous(upper, primary, stats, len(lines))
	reclassifyUpper(upper, primary, stats)

	return Vocabulary{Upper: upper, Primary: primary}
}

// resolveAmbiguous assigns glyphs seeded into both sets to exactly one.
// A glyph stays chapter-level only when it recurs densely and shows up early;
// volume markers are rare and front-loaded, chapter markers are neither.
func resolveAmbiguous(upper, primary map[rune]bool, stats map[rune]*markerStats, lineCount int) {
	frequentAt := lineCount / 200
	if frequentAt < 10 {
		frequentAt = 10
	}
	lateAfter := int(float64(lineCount) * 0.15)

	for glyph := range upper {
		if !primary[glyph] {
			continue
		}
		st := stats[glyph]
		frequent := st.count > frequentAt
		early := len(st.lines) > 0 && st.lines[0] <= lateAfter
		if frequent && early {
			delete(upper, glyph)
		} else {
			delete(primary, glyph)
		}
	}
}

// reclassifyUpper demotes upper markers that behave like chapter markers:
// a real volume heading is almost always followed by chapter headings before
// the next volume, so an "upper" glyph whose occurrences rarely precede any
// primary occurrence, yet recurs heavily, is the document's actual chapter
// glyph wearing volume clothing.
func reclassifyUpper(upper, primary map[rune]bool, stats map[rune]*markerStats) {
	var primaryLines []int
	for glyph := range primary {
		primaryLines = append(primaryLines, stats[glyph].lines...)
	}
	sort.Ints(primaryLines)

	for glyph := range upper {
		st := stats[glyph]
		if st.count <= 50 {
			continue
		}
		followed := 0
		for _, line := range st.lines {
			if hasLineAfter(primaryLines, line) {
				followed++
			}
		}
		ratio := float64(followed) / float64(st.count)
		if ratio < 0.30 {
			delete(upper, glyph)
			primary[glyph] = true
		}
	}
}

// hasLineAfter reports whether sorted contains a value strictly greater than n.
func hasLineAfter(sorted []int, n int) bool {
	if len(sorted) == 0 {
		return false
	}
	return sorted[len(sorted)-1] > n
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}
