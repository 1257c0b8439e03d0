// Package textenc turns raw novel bytes into normalized UTF-8 text. It
// resolves the character encoding by BOM sniffing first, then statistical
// detection, validating every candidate decoding before accepting it, and
// finally falling back to GB18030, the dominant encoding of the corpus.
package textenc

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// Validation thresholds. A candidate decoding is accepted only when it looks
// like real text: almost no replacement characters and a rune population
// dominated by CJK and ASCII.
const (
	maxReplacementRatio = 0.005
	minTextRatio        = 0.80
)

// fallbackCharset names the encoding forced when nothing validates.
const fallbackCharset = "GB18030"

// byCharset maps detector charset names to decoders.
var byCharset = map[string]encoding.Encoding{
	"GB18030":      simplifiedchinese.GB18030,
	"GB-18030":     simplifiedchinese.GB18030,
	"GBK":          simplifiedchinese.GBK,
	"GB2312":       simplifiedchinese.GBK,
	"Big5":         traditionalchinese.Big5,
	"UTF-16LE":     xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM),
	"UTF-16BE":     xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM),
	"Shift_JIS":    nil, // not a corpus encoding; treated as no decoder
	"EUC-JP":       nil,
	"EUC-KR":       nil,
	"ISO-8859-1":   nil,
	"windows-1252": nil,
}

// bomDecoders pairs byte-order marks with their decoders. UTF-32 marks are
// listed before UTF-16 because the UTF-16 LE mark is a prefix of the UTF-32
// LE mark.
var bomDecoders = []struct {
	mark    []byte
	charset string
	enc     encoding.Encoding
}{
	{[]byte{0xEF, 0xBB, 0xBF}, "UTF-8", nil},
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, "UTF-32LE", utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)},
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, "UTF-32BE", utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)},
	{[]byte{0xFF, 0xFE}, "UTF-16LE", xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM)},
	{[]byte{0xFE, 0xFF}, "UTF-16BE", xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM)},
}

// Decode resolves the encoding of raw bytes and returns the decoded text
// along with the charset name that was used.
func Decode(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "UTF-8", nil
	}

	// Byte-order marks are authoritative.
	for _, b := range bomDecoders {
		if !bytes.HasPrefix(data, b.mark) {
			continue
		}
		body := data[len(b.mark):]
		if b.enc == nil {
			return string(body), b.charset, nil
		}
		text, err := b.enc.NewDecoder().String(string(body))
		if err != nil {
			return "", "", fmt.Errorf("decode %s: %w", b.charset, err)
		}
		return text, b.charset, nil
	}

	// Valid UTF-8 needs no detector.
	if utf8.Valid(data) {
		if text := string(data); Validate(text) {
			return text, "UTF-8", nil
		}
	}

	// Statistical detection, validated before acceptance.
	if result, err := chardet.NewTextDetector().DetectBest(data); err == nil {
		if text, ok := tryCharset(data, result.Charset); ok {
			return text, result.Charset, nil
		}
	}

	// Detector unconvincing: walk the corpus encodings directly.
	for _, charset := range []string{"GB18030", "GBK", "Big5"} {
		if text, ok := tryCharset(data, charset); ok {
			return text, charset, nil
		}
	}

	// Last resort: force the fallback. GB18030 decodes any byte sequence.
	text, err := simplifiedchinese.GB18030.NewDecoder().String(string(data))
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", fallbackCharset, err)
	}
	return text, fallbackCharset, nil
}

// tryCharset decodes with the named charset and validates the result.
func tryCharset(data []byte, charset string) (string, bool) {
	enc, ok := byCharset[charset]
	if charset == "UTF-8" {
		if !utf8.Valid(data) {
			return "", false
		}
		text := string(data)
		return text, Validate(text)
	}
	if !ok || enc == nil {
		return "", false
	}
	text, err := enc.NewDecoder().String(string(data))
	if err != nil {
		return "", false
	}
	return text, Validate(text)
}

// Validate checks a candidate decoding for replacement-character density and
// CJK/ASCII character-class density.
func Validate(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	total, replacements, textual := 0, 0, 0
	for _, r := range text {
		total++
		switch {
		case r == utf8.RuneError:
			replacements++
		case r < 128:
			textual++
		case unicode.Is(unicode.Han, r),
			unicode.IsSpace(r),
			isCJKPunct(r):
			textual++
		}
	}
	if total == 0 {
		return false
	}
	if float64(replacements)/float64(total) > maxReplacementRatio {
		return false
	}
	return float64(textual)/float64(total) >= minTextRatio
}

// isCJKPunct covers fullwidth punctuation and CJK symbol blocks.
func isCJKPunct(r rune) bool {
	return (r >= 0x3000 && r <= 0x303F) || // CJK symbols and punctuation
		(r >= 0xFF00 && r <= 0xFFEF) || // fullwidth forms
		(r >= 0x2010 && r <= 0x2027) // general punctuation commonly seen in novels
}
