package chapter

import "testing"

func TestClassifyNumeral(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		kind  NumeralKind
		value int
	}{
		{"ascii digits", "12", NumeralArabic, 12},
		{"fullwidth digits", "１２８", NumeralArabic, 128},
		{"mixed width digits", "1２", NumeralArabic, 12},
		{"roman upper", "XIV", NumeralRoman, 14},
		{"roman lower", "ix", NumeralRoman, 9},
		{"roman fullwidth", "Ⅻ", NumeralRoman, 12},
		{"cjk single", "七", NumeralChinese, 7},
		{"cjk compound", "一百二十三", NumeralChinese, 123},
		{"cjk leading unit", "十五", NumeralChinese, 15},
		{"cjk with zero", "三千零五", NumeralChinese, 3005},
		{"cjk ten thousand", "两万三千", NumeralChinese, 23000},
		{"cjk digit sequence", "三〇五", NumeralChinese, 305},
		{"cjk liang", "两", NumeralChinese, 2},
		{"mixed systems", "一2", NumeralUnknown, 0},
		{"empty", "", NumeralUnknown, 0},
		{"whitespace only", "  ", NumeralUnknown, 0},
		{"foreign rune", "第", NumeralUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNumeral(tt.raw)
			if got.Kind != tt.kind {
				t.Errorf("ClassifyNumeral(%q).Kind = %v, want %v", tt.raw, got.Kind, tt.kind)
			}
			if got.Value != tt.value {
				t.Errorf("ClassifyNumeral(%q).Value = %d, want %d", tt.raw, got.Value, tt.value)
			}
			if got.Raw != tt.raw {
				t.Errorf("ClassifyNumeral(%q).Raw = %q", tt.raw, got.Raw)
			}
		})
	}
}

func TestContainsArabicOrRoman(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"一百二十", false},
		{"1卷", true},
		{"Ⅳ", true},
		{"x", true},
		{"第", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ContainsArabicOrRoman(tt.s); got != tt.want {
			t.Errorf("ContainsArabicOrRoman(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}
