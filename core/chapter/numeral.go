package chapter

import (
	"strings"
	"unicode"
)

// NumeralKind identifies the numeral system an ordinal fragment is written in.
type NumeralKind int

const (
	// NumeralUnknown means the fragment mixes systems or contains foreign runes.
	NumeralUnknown NumeralKind = iota
	// NumeralArabic covers ASCII and fullwidth decimal digits.
	NumeralArabic
	// NumeralRoman covers ASCII Roman letters and the dedicated Roman numeral
	// code points (U+2160..U+216B, U+2170..U+217B).
	NumeralRoman
	// NumeralChinese covers CJK numeral characters and compounds.
	NumeralChinese
)

// Numeral is a classified ordinal fragment. Value is 0 when the fragment
// could not be evaluated (Unknown, or a malformed compound).
type Numeral struct {
	Kind  NumeralKind
	Value int
	Raw   string
}

const (
	cjkNumeralChars    = "〇零一二三四五六七八九十百千万两"
	romanLetters       = "IVXLCDMivxlcdm"
	romanFullwidth     = "ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫⅰⅱⅲⅳⅴⅵⅶⅷⅸⅹⅺⅻ"
	fullwidthDigitZero = '０'
	fullwidthDigitNine = '９'
)

// numeralClass is the character class used in compiled heading patterns.
// Kept in one place so the matcher, splitter and vocabulary scanner agree.
const numeralClass = "[0-9０-９" + cjkNumeralChars + romanLetters + romanFullwidth + "]"

func isArabicDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= fullwidthDigitZero && r <= fullwidthDigitNine)
}

func isRomanRune(r rune) bool {
	return strings.ContainsRune(romanLetters, r) || strings.ContainsRune(romanFullwidth, r)
}

func isCJKNumeral(r rune) bool {
	return strings.ContainsRune(cjkNumeralChars, r)
}

// ContainsArabicOrRoman reports whether any rune of s is an Arabic digit or a
// Roman numeral rune. Used by the candidate rejection rules.
func ContainsArabicOrRoman(s string) bool {
	for _, r := range s {
		if isArabicDigit(r) || isRomanRune(r) {
			return true
		}
	}
	return false
}

// ClassifyNumeral classifies an ordinal fragment into one numeral system and
// evaluates it where possible.
func ClassifyNumeral(raw string) Numeral {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Numeral{Kind: NumeralUnknown, Raw: raw}
	}

	allArabic, allRoman, allCJK := true, true, true
	for _, r := range s {
		if !isArabicDigit(r) {
			allArabic = false
		}
		if !isRomanRune(r) {
			allRoman = false
		}
		if !isCJKNumeral(r) {
			allCJK = false
		}
	}

	switch {
	case allArabic:
		return Numeral{Kind: NumeralArabic, Value: parseArabic(s), Raw: raw}
	case allRoman:
		return Numeral{Kind: NumeralRoman, Value: parseRoman(s), Raw: raw}
	case allCJK:
		return Numeral{Kind: NumeralChinese, Value: parseChinese(s), Raw: raw}
	default:
		return Numeral{Kind: NumeralUnknown, Raw: raw}
	}
}

// parseArabic folds fullwidth digits into ASCII before evaluating.
func parseArabic(s string) int {
	n := 0
	for _, r := range s {
		if r >= fullwidthDigitZero && r <= fullwidthDigitNine {
			r = '0' + (r - fullwidthDigitZero)
		}
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 0
		}
	}
	return n
}

// romanValues maps a (case-folded, expanded) Roman letter to its value.
var romanValues = map[rune]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

// expandRomanRune maps fullwidth Roman code points to their ASCII expansion.
func expandRomanRune(r rune) string {
	expansions := []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII"}
	switch {
	case r >= 'Ⅰ' && r <= 'Ⅻ':
		return expansions[r-'Ⅰ']
	case r >= 'ⅰ' && r <= 'ⅻ':
		return expansions[r-'ⅰ']
	default:
		return string(unicode.ToUpper(r))
	}
}

func parseRoman(s string) int {
	var expanded strings.Builder
	for _, r := range s {
		expanded.WriteString(expandRomanRune(r))
	}
	runes := []rune(expanded.String())
	total := 0
	for i := 0; i < len(runes); i++ {
		v, ok := romanValues[runes[i]]
		if !ok {
			return 0
		}
		if i+1 < len(runes) && romanValues[runes[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	return total
}

// cjkDigitValues maps single CJK numeral characters to digit values.
var cjkDigitValues = map[rune]int{
	'〇': 0, '零': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// cjkUnitValues maps CJK multiplier characters to their magnitude.
var cjkUnitValues = map[rune]int{
	'十': 10, '百': 100, '千': 1000, '万': 10000,
}

// parseChinese evaluates a CJK numeral compound such as 一百二十三 or 三千零五.
// Digit-sequence style (一二三 for 123) is also handled, which novels use for
// large chapter numbers. Returns 0 for compounds it cannot evaluate.
func parseChinese(s string) int {
	runes := []rune(s)

	// Pure digit sequence without units, e.g. 三〇五 -> 305.
	hasUnit := false
	for _, r := range runes {
		if _, ok := cjkUnitValues[r]; ok {
			hasUnit = true
			break
		}
	}
	if !hasUnit {
		n := 0
		for _, r := range runes {
			d, ok := cjkDigitValues[r]
			if !ok {
				return 0
			}
			n = n*10 + d
		}
		return n
	}

	total, section, digit := 0, 0, 0
	for _, r := range runes {
		if d, ok := cjkDigitValues[r]; ok {
			digit = d
			continue
		}
		u, ok := cjkUnitValues[r]
		if !ok {
			return 0
		}
		if u == 10000 {
			total = (total + section + digit) * u
			section, digit = 0, 0
			continue
		}
		if digit == 0 {
			// Leading unit, e.g. 十五 -> 15.
			digit = 1
		}
		section += digit * u
		digit = 0
	}
	return total + section + digit
}
