package chapter

import "testing"

func testMatcher() *matcher {
	return newMatcher(Vocabulary{
		Upper:   map[rune]bool{'卷': true},
		Primary: map[rune]bool{'章': true},
	})
}

func TestMatchChapterShapes(t *testing.T) {
	m := testMatcher()

	tests := []struct {
		name     string
		line     string
		base     float64
		numeral  string
		marker   string
		trailing string
	}{
		{"prefixed", "第12章 风雪夜", basePrefixed, "12", "章", "风雪夜"},
		{"prefixed chinese numeral", "第一百二十三章 决战", basePrefixed, "一百二十三", "章", "决战"},
		{"bare arabic", "12章 出发", baseBare, "12", "章", "出发"},
		{"reversed", "章12 残卷", baseReversed, "12", "章", "残卷"},
		{"latin chapter", "Chapter 5: The Road", baseLatin, "5", "Chapter", "The Road"},
		{"latin abbreviated", "Ch. 9 Homecoming", baseLatin, "9", "Ch", "Homecoming"},
		{"latin roman numeral", "Episode IV A New Hope", baseLatin, "IV", "Episode", "A New Hope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := m.matchChapter(0, tt.line, false)
			if c == nil {
				t.Fatalf("matchChapter(%q) = nil", tt.line)
			}
			if c.Base != tt.base {
				t.Errorf("Base = %v, want %v", c.Base, tt.base)
			}
			if c.Numeral != tt.numeral {
				t.Errorf("Numeral = %q, want %q", c.Numeral, tt.numeral)
			}
			if c.Marker != tt.marker {
				t.Errorf("Marker = %q, want %q", c.Marker, tt.marker)
			}
			if c.Trailing != tt.trailing {
				t.Errorf("Trailing = %q, want %q", c.Trailing, tt.trailing)
			}
		})
	}
}

func TestMatchChapterSpecialTitles(t *testing.T) {
	m := testMatcher()

	for _, line := range []string{"楔子", "序章", "尾声", "番外 青梅"} {
		c := m.matchChapter(0, line, false)
		if c == nil {
			t.Fatalf("matchChapter(%q) = nil, want special-title candidate", line)
		}
		if c.Base != baseSpecialTitle {
			t.Errorf("matchChapter(%q).Base = %v, want %v", line, c.Base, baseSpecialTitle)
		}
	}
}

func TestMatchChapterRejections(t *testing.T) {
	m := testMatcher()

	tests := []struct {
		name      string
		line      string
		composite bool
	}{
		// Pure CJK numeral without 第: too often prose.
		{"bare chinese numeral", "三十章", false},
		// Mixed numeral running straight into a word without 第.
		{"unknown numeral into word", "一2章风云起", false},
		// Composite fragment with no title text is a splitting artifact.
		{"composite without trailing", "第二章", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c := m.matchChapter(0, tt.line, tt.composite); c != nil {
				t.Errorf("matchChapter(%q, composite=%v) = %+v, want nil", tt.line, tt.composite, c)
			}
		})
	}

	// The same bare heading outside a composite line is fine.
	if c := m.matchChapter(0, "第二章", false); c == nil {
		t.Error("standalone 第二章 should produce a candidate")
	}
}

func TestMatchChapterNoRetryAfterRejection(t *testing.T) {
	m := testMatcher()

	// 三十章 matches the bare pattern and is rejected there; it must not be
	// reconsidered under the reversed pattern.
	if c := m.matchChapter(0, "三十章", false); c != nil {
		t.Errorf("rejected candidate was retried: %+v", c)
	}
}

func TestMatchVolumeShapes(t *testing.T) {
	m := testMatcher()

	tests := []struct {
		name   string
		line   string
		marker string
	}{
		{"prefixed volume", "第1卷 风起", "卷"},
		{"reversed volume", "卷三 乱世", "卷"},
		{"latin volume", "Book II: Exile", "Book"},
		{"bracket annotation", "【第一部完】", "【第一部完】"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := m.matchVolume(0, tt.line, false)
			if v == nil {
				t.Fatalf("matchVolume(%q) = nil", tt.line)
			}
			if v.Base != baseVolume {
				t.Errorf("Base = %v, want %v", v.Base, baseVolume)
			}
			if v.Marker != tt.marker {
				t.Errorf("Marker = %q, want %q", v.Marker, tt.marker)
			}
		})
	}

	if v := m.matchVolume(0, "他说完便走了。", false); v != nil {
		t.Errorf("prose matched a volume shape: %+v", v)
	}
}
