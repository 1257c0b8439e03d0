package chapter

import (
	"regexp"
	"strings"
	"unicode"
)

// Candidate is a raw heading match before confidence scoring.
type Candidate struct {
	LineIndex int
	Raw       string
	Numeral   string
	Marker    string
	Separator string
	Trailing  string
	Base      float64
	Prefixed  bool // matched with the ordinal prefix 第
	Composite bool // line originated from composite splitting
}

// Base confidence seeds, in descending pattern specificity.
const (
	basePrefixed     = 2.4  // 第 + numeral + primary marker
	baseBare         = 2.25 // numeral + primary marker
	baseReversed     = 2.1  // primary marker + numeral
	baseLatin        = 1.9  // "Chapter 12", "Ch. 3", ...
	baseSpecialTitle = 2.0  // 楔子 / 序章 / 尾声 / ...
	baseVolume       = 1.6  // any volume heading shape
)

// specialTitles are fixed heading words that carry no marker or ordinal.
var specialTitles = []string{
	"楔子", "序章", "序言", "序幕", "引子", "终章", "尾声", "尾记", "后记", "番外", "外传", "全文完",
}

// matcher holds the per-document compiled heading patterns. Patterns are
// compiled once from the resolved vocabulary and reused across all lines.
type matcher struct {
	prefixed *regexp.Regexp
	bare     *regexp.Regexp
	reversed *regexp.Regexp
	latin    *regexp.Regexp
	special  *regexp.Regexp

	volPrefixed *regexp.Regexp
	volReversed *regexp.Regexp
	volLatin    *regexp.Regexp
	volBracket  *regexp.Regexp
}

const separatorClass = `([:：、.．\s]*)`

func newMatcher(vocab Vocabulary) *matcher {
	m := &matcher{}

	num := numeralClass + `{1,12}`
	if pc := vocab.PrimaryClass(); pc != "" {
		m.prefixed = regexp.MustCompile(`^\s*第\s*(` + num + `)\s*(` + pc + `)` + separatorClass + `(.*)$`)
		m.bare = regexp.MustCompile(`^\s*(` + num + `)\s*(` + pc + `)` + separatorClass + `(.*)$`)
		m.reversed = regexp.MustCompile(`^\s*(` + pc + `)\s*(` + num + `)` + separatorClass + `(.*)$`)
	}
	m.latin = regexp.MustCompile(
		`^\s*(?i:(chapter|chap|ch|episode|ep|act|scene|story)\.?)\s*(?i:(?:no\.?|#)\s*)?([0-9]+|[IVXLCDMivxlcdm]+)` + separatorClass + `(.*)$`)
	m.special = regexp.MustCompile(`^\s*(` + strings.Join(specialTitles, "|") + `)` + separatorClass + `(.*)$`)

	if uc := vocab.UpperClass(); uc != "" {
		m.volPrefixed = regexp.MustCompile(`^\s*第\s*(` + num + `)\s*(` + uc + `)` + separatorClass + `(.*)$`)
		m.volReversed = regexp.MustCompile(`^\s*(` + uc + `)\s*(` + num + `)` + separatorClass + `(.*)$`)
	}
	m.volLatin = regexp.MustCompile(
		`^\s*(?i:(book|volume|vol|part|section|sec)\.?)\s*(?i:(?:no\.?|#)\s*)?([0-9]+|[IVXLCDMivxlcdm]+)` + separatorClass + `(.*)$`)
	m.volBracket = regexp.MustCompile(`^\s*([（(【\[][^）)】\]]{1,30}[）)】\]])\s*$`)

	return m
}

// matchChapter tries the chapter patterns in strict priority order and
// returns the first raw match as a candidate, or nil. Only one pattern is
// ever scored per line; a candidate rejected here is not reconsidered under a
// lower-priority pattern.
func (m *matcher) matchChapter(lineIndex int, line string, composite bool) *Candidate {
	type attempt struct {
		re       *regexp.Regexp
		base     float64
		prefixed bool
		reversed bool
	}
	attempts := []attempt{
		{m.prefixed, basePrefixed, true, false},
		{m.bare, baseBare, false, false},
		{m.reversed, baseReversed, false, true},
		{m.latin, baseLatin, false, true}, // keyword first, numeral second
	}

	for _, a := range attempts {
		if a.re == nil {
			continue
		}
		g := a.re.FindStringSubmatch(line)
		if g == nil {
			continue
		}
		c := &Candidate{
			LineIndex: lineIndex,
			Raw:       line,
			Base:      a.base,
			Prefixed:  a.prefixed,
			Composite: composite,
		}
		if a.reversed {
			c.Marker, c.Numeral = g[1], g[2]
		} else {
			c.Numeral, c.Marker = g[1], g[2]
		}
		c.Separator, c.Trailing = g[3], g[4]
		if rejectCandidate(c) {
			return nil
		}
		return c
	}

	if g := m.special.FindStringSubmatch(line); g != nil {
		c := &Candidate{
			LineIndex: lineIndex,
			Raw:       line,
			Marker:    g[1],
			Separator: g[2],
			Trailing:  g[3],
			Base:      baseSpecialTitle,
			Composite: composite,
		}
		if c.Composite && strings.TrimSpace(c.Trailing) == "" && strings.TrimSpace(line) != g[1] {
			return nil
		}
		return c
	}
	return nil
}

// rejectCandidate applies the structural false-positive rules that run after
// a raw pattern match but before scoring.
func rejectCandidate(c *Candidate) bool {
	num := ClassifyNumeral(c.Numeral)

	// A pure CJK numeral with no 第 is too often ordinary prose (ages,
	// counts, idioms) to trust on shape alone.
	if num.Kind == NumeralChinese && !c.Prefixed && !ContainsArabicOrRoman(c.Numeral) {
		return true
	}

	// No separator and the marker glyph runs straight into a word: the
	// "marker" is part of running prose unless the ordinal shape vouches
	// for it.
	if c.Separator == "" && c.Trailing != "" {
		r, _ := firstRune(c.Trailing)
		wordy := unicode.Is(unicode.Han, r) || r == '_' ||
			unicode.IsLetter(r) || unicode.IsDigit(r)
		if wordy && !c.Prefixed && num.Kind != NumeralArabic && num.Kind != NumeralRoman {
			return true
		}
	}

	// A composite fragment with nothing after the marker is a splitting
	// artifact, not a heading.
	if c.Composite && strings.TrimSpace(c.Trailing) == "" {
		return true
	}

	return false
}

// matchVolume tries the volume heading shapes in order; first match wins.
func (m *matcher) matchVolume(lineIndex int, line string, composite bool) *Candidate {
	if m.volPrefixed != nil {
		if g := m.volPrefixed.FindStringSubmatch(line); g != nil {
			return &Candidate{
				LineIndex: lineIndex, Raw: line,
				Numeral: g[1], Marker: g[2], Separator: g[3], Trailing: g[4],
				Base: baseVolume, Prefixed: true, Composite: composite,
			}
		}
	}
	if m.volReversed != nil {
		if g := m.volReversed.FindStringSubmatch(line); g != nil {
			return &Candidate{
				LineIndex: lineIndex, Raw: line,
				Marker: g[1], Numeral: g[2], Separator: g[3], Trailing: g[4],
				Base: baseVolume, Composite: composite,
			}
		}
	}
	if g := m.volLatin.FindStringSubmatch(line); g != nil {
		return &Candidate{
			LineIndex: lineIndex, Raw: line,
			Marker: g[1], Numeral: g[2], Separator: g[3], Trailing: g[4],
			Base: baseVolume, Composite: composite,
		}
	}
	if g := m.volBracket.FindStringSubmatch(line); g != nil {
		return &Candidate{
			LineIndex: lineIndex, Raw: line,
			Marker: g[1],
			Base:   baseVolume, Composite: composite,
		}
	}
	return nil
}
