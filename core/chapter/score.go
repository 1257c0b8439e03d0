package chapter

import (
	"strings"
	"unicode"
)

// Weights holds the confidence threshold and every scoring adjustment. All
// values are empirically tuned knobs: higher threshold means stricter
// acceptance, nothing more. Exposed so callers can tune without code changes.
type Weights struct {
	Threshold float64

	LenShortBonus  float64 // line <= 18 runes
	LenMediumBonus float64 // line <= 34 runes
	LenLongBonus   float64 // line <= 48 runes
	LenOverPenalty float64 // longer lines

	NoPunctBonus     float64 // zero sentence punctuation
	ColonOnlyBonus   float64 // exactly one mark and it is a CJK colon
	PunctUnitPenalty float64 // per sentence mark otherwise (applied negatively)

	SepWideBonus   float64 // >= 2 whitespace runes after the marker
	SepSingleBonus float64 // exactly 1 whitespace rune after the marker
	SepPunctBonus  float64 // single whitespace followed by punctuation/bracket
	SepAnyBonus    float64 // trailing text itself starts with whitespace

	LeadDelimiterBonus float64
	LeadSuffixBonus    float64 // 上/下/中/... continuation characters
	LeadAlnumBonus     float64
	LeadHanBonus       float64
	LeadOtherPenalty   float64

	TrailVeryLongPenalty float64 // > 60 runes
	TrailLongPenalty     float64 // > 44 runes
	TrailMediumPenalty   float64 // > 32 runes

	TrailPunctUnitPenalty float64 // per mark when >= 2 marks and > 24 runes
}

// DefaultWeights returns the tuned production weights.
func DefaultWeights() Weights {
	return Weights{
		Threshold: 1.8,

		LenShortBonus:  1.2,
		LenMediumBonus: 0.8,
		LenLongBonus:   0.2,
		LenOverPenalty: -1.5,

		NoPunctBonus:     0.8,
		ColonOnlyBonus:   0.1,
		PunctUnitPenalty: 1.1,

		SepWideBonus:   1.0,
		SepSingleBonus: 0.8,
		SepPunctBonus:  0.2,
		SepAnyBonus:    0.6,

		LeadDelimiterBonus: 0.25,
		LeadSuffixBonus:    0.45,
		LeadAlnumBonus:     0.25,
		LeadHanBonus:       0.25,
		LeadOtherPenalty:   -0.6,

		TrailVeryLongPenalty: -1.4,
		TrailLongPenalty:     -0.9,
		TrailMediumPenalty:   -0.4,

		TrailPunctUnitPenalty: 0.45,
	}
}

// sentencePunct are the marks whose density signals prose rather than a title.
const sentencePunct = "，,。.、；;！!？?：:"

// delimiterChars may legitimately open a title ("第一章：序幕" -> "：序幕").
const delimiterChars = "：:、·—－-—~～《〈「『【（(\"'“‘"

// allowedSuffixChars are continuation words that commonly follow a marker
// directly ("第三章上", "番外篇").
const allowedSuffixChars = "上下中末终序外前后番篇卷章"

// bracketOrPunct is consulted for the extra separator bonus.
const bracketOrPunct = sentencePunct + "（）()【】[]《》「」"

// stripTrailingMarks removes a trailing run of exclamation/question marks;
// titles legitimately end with those.
func stripTrailingMarks(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r == '!' || r == '！' || r == '?' || r == '？'
	})
}

func countSentencePunct(s string) (count int, only rune) {
	for _, r := range s {
		if strings.ContainsRune(sentencePunct, r) {
			count++
			only = r
		}
	}
	return count, only
}

// Score computes the confidence for one candidate. Adjustments are additive
// and order-independent; the caller accepts iff the result meets w.Threshold.
func (w Weights) Score(c *Candidate) float64 {
	score := c.Base

	line := strings.TrimSpace(c.Raw)
	lineRunes := len([]rune(line))
	switch {
	case lineRunes <= 18:
		score += w.LenShortBonus
	case lineRunes <= 34:
		score += w.LenMediumBonus
	case lineRunes <= 48:
		score += w.LenLongBonus
	default:
		score += w.LenOverPenalty
	}

	count, only := countSentencePunct(stripTrailingMarks(line))
	switch {
	case count == 0:
		score += w.NoPunctBonus
	case count == 1 && only == '：':
		score += w.ColonOnlyBonus
	default:
		score -= w.PunctUnitPenalty * float64(count)
	}

	score += w.separatorAdjustment(c.Separator, c.Trailing)
	score += w.trailingAdjustment(c.Trailing)

	return score
}

// separatorAdjustment rewards whitespace between marker and title, the
// strongest single signal that a line was typeset as a heading.
func (w Weights) separatorAdjustment(sep, trailing string) float64 {
	ws := 0
	var afterWS []rune
	for i, r := range []rune(sep) {
		if unicode.IsSpace(r) {
			ws++
			continue
		}
		afterWS = []rune(sep)[i:]
		break
	}

	switch {
	case ws >= 2:
		return w.SepWideBonus
	case ws == 1:
		bonus := w.SepSingleBonus
		next, ok := firstRune(trailing)
		if len(afterWS) > 0 {
			next, ok = afterWS[0], true
		}
		if ok && strings.ContainsRune(bracketOrPunct, next) {
			bonus += w.SepPunctBonus
		}
		return bonus
	default:
		if r, ok := firstRune(trailing); ok && unicode.IsSpace(r) {
			return w.SepAnyBonus
		}
		return 0
	}
}

// trailingAdjustment judges the shape of the would-be title text.
func (w Weights) trailingAdjustment(trailing string) float64 {
	adj := 0.0
	trimmed := strings.TrimSpace(trailing)
	if trimmed == "" {
		return 0
	}

	r, _ := firstRune(trimmed)
	switch {
	case strings.ContainsRune(delimiterChars, r):
		adj += w.LeadDelimiterBonus
	case strings.ContainsRune(allowedSuffixChars, r):
		adj += w.LeadSuffixBonus
	case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		adj += w.LeadAlnumBonus
	case unicode.Is(unicode.Han, r):
		adj += w.LeadHanBonus
	default:
		adj += w.LeadOtherPenalty
	}

	n := len([]rune(trimmed))
	switch {
	case n > 60:
		adj += w.TrailVeryLongPenalty
	case n > 44:
		adj += w.TrailLongPenalty
	case n > 32:
		adj += w.TrailMediumPenalty
	}

	if count, _ := countSentencePunct(stripTrailingMarks(trimmed)); count >= 2 && n > 24 {
		adj -= w.TrailPunctUnitPenalty * float64(count)
	}

	return adj
}
