// Package quality inspects emitted chapter indexes for detection defects:
// merged headings, duplicate or over-long titles, punctuation-dense titles
// that look like prose, reversed volume/chapter hierarchy, and books that
// only ever got the fixed-size fallback partition.
package quality

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/inkstone/bookforge/core/chapter"
	"github.com/inkstone/bookforge/core/segment"
)

// Check rule thresholds.
const (
	maxTitleRunes    = 80
	maxSentenceMarks = 3
)

const (
	chapterMarkerChars = "章节回集篇幕话段折品"
	upperMarkerChars   = "卷部册季"
)

var specialTitleWords = []string{
	"楔子", "序章", "序言", "序幕", "引子", "终章", "尾声", "尾记", "后记", "番外", "外传", "全文",
}

var (
	mergedPattern = regexp.MustCompile(`第\s*[\d〇零一二三四五六七八九十百千万]+\s*[` + chapterMarkerChars + `]`)
	sentenceMarks = regexp.MustCompile(`[，。、；]`)
	trailingBangs = regexp.MustCompile(`[！!？?]+$`)
	upperAsMarker = regexp.MustCompile(`第\s*\S+?\s*([` + upperMarkerChars + `])`)
	primaryMarker = regexp.MustCompile(`第.*?([` + chapterMarkerChars + `])`)
	upperMarker   = regexp.MustCompile(`第.*?([` + upperMarkerChars + `])`)
	latinMarker   = regexp.MustCompile(`(?i)\b(chapter|ch|episode|act|scene|book|part|vol)\b`)
	volumePrefix  = regexp.MustCompile(`第.*?[` + upperMarkerChars + `]\s+`)
)

// suspiciousPatterns detect prose sentences misrecognized as titles.
var suspiciousPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`^[^第\d]*说[^！？。]*。`), "prose sentence (contains 说, ends with 。)"},
	{regexp.MustCompile(`^[是这那][^第]*[了着]。`), "prose-like opener ending with 。"},
	{regexp.MustCompile(`^[^第]*，[^！？。]{0,10}[。！？]`), "short clause with comma and terminal punctuation"},
}

// Issue is one detected problem in a book's chapter list.
type Issue struct {
	Type     string // e.g. "merged_heading", "duplicate_title"
	Severity string // "high" or "medium"
	Chapter  int    // 1-based chapter number
	Title    string
	Detail   string
}

// BookReport is the check result for one book.
type BookReport struct {
	BookID        string
	Title         string
	Author        string
	TotalChapters int
	FallbackOnly  bool
	Issues        []Issue
}

// CheckIndex runs every rule over one loaded index.
func CheckIndex(idx *segment.Index) *BookReport {
	r := &BookReport{
		BookID:        idx.Book.ID,
		Title:         idx.Book.Title,
		Author:        idx.Book.Author,
		TotalChapters: idx.Book.TotalChapters,
	}

	fallbackCount := 0
	titleCounts := make(map[string][]int)
	for i, ch := range idx.Chapters {
		n := i + 1
		title := ch.Title
		titleCounts[title] = append(titleCounts[title], n)
		if chapter.IsFallbackTitle(title) {
			fallbackCount++
		}

		checkMerged(r, n, title)
		checkLength(r, n, title)
		checkPunctuation(r, n, title)
		checkHierarchy(r, n, title)
		checkMissingMarker(r, n, title)
		checkSuspicious(r, n, title)
	}
	checkDuplicates(r, titleCounts)

	r.FallbackOnly = len(idx.Chapters) > 0 && fallbackCount == len(idx.Chapters)
	sortIssues(r.Issues)
	return r
}

// CheckDir loads every per-book index under outDir and checks it.
func CheckDir(outDir string) ([]*BookReport, error) {
	paths, err := filepath.Glob(filepath.Join(outDir, "*_chapters.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no chapter indexes found under %s", outDir)
	}

	var reports []*BookReport
	for _, path := range paths {
		idx, err := segment.LoadIndex(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
			continue
		}
		reports = append(reports, CheckIndex(idx))
	}
	return reports, nil
}

func checkMerged(r *BookReport, n int, title string) {
	if matches := mergedPattern.FindAllString(title, -1); len(matches) > 1 {
		r.add(Issue{
			Type: "merged_heading", Severity: "high", Chapter: n, Title: title,
			Detail: fmt.Sprintf("%d chapter markers on one title", len(matches)),
		})
	}
}

func checkLength(r *BookReport, n int, title string) {
	if runes := len([]rune(title)); runes > maxTitleRunes {
		r.add(Issue{
			Type: "long_title", Severity: "medium", Chapter: n, Title: clip(title),
			Detail: fmt.Sprintf("title is %d runes", runes),
		})
	}
}

func checkPunctuation(r *BookReport, n int, title string) {
	// Titles carrying a volume prefix run long legitimately.
	if strings.ContainsAny(title, upperMarkerChars) {
		return
	}
	cleaned := trailingBangs.ReplaceAllString(title, "")
	if marks := sentenceMarks.FindAllString(cleaned, -1); len(marks) > maxSentenceMarks {
		r.add(Issue{
			Type: "high_punctuation", Severity: "medium", Chapter: n, Title: title,
			Detail: fmt.Sprintf("%d sentence marks", len(marks)),
		})
	}
}

func checkHierarchy(r *BookReport, n int, title string) {
	if matches := upperAsMarker.FindAllStringSubmatch(title, -1); len(matches) > 1 {
		var glyphs []string
		for _, m := range matches {
			glyphs = append(glyphs, m[1])
		}
		r.add(Issue{
			Type: "multiple_upper_markers", Severity: "high", Chapter: n, Title: title,
			Detail: "upper markers: " + strings.Join(glyphs, ", "),
		})
	}

	// Compare marker glyph positions, not match starts: both patterns anchor
	// on the same leading 第 when the markers share a prefix.
	um := upperMarker.FindStringSubmatchIndex(title)
	pm := primaryMarker.FindStringSubmatchIndex(title)
	if um != nil && pm != nil && um[2] > pm[2] {
		r.add(Issue{
			Type: "reversed_hierarchy", Severity: "high", Chapter: n, Title: title,
			Detail: "volume marker appears after chapter marker",
		})
	}
}

func checkMissingMarker(r *BookReport, n int, title string) {
	if chapter.IsFallbackTitle(title) {
		return
	}
	for _, special := range specialTitleWords {
		if strings.Contains(title, special) {
			return
		}
	}
	if !strings.ContainsAny(title, chapterMarkerChars+upperMarkerChars) &&
		!latinMarker.MatchString(title) {
		r.add(Issue{
			Type: "missing_marker", Severity: "medium", Chapter: n, Title: title,
			Detail: "no chapter marker found in title",
		})
	}
}

func checkSuspicious(r *BookReport, n int, title string) {
	// Strip any volume prefix before pattern matching.
	stripped := volumePrefix.ReplaceAllString(title, "")
	for _, p := range suspiciousPatterns {
		if p.re.MatchString(stripped) {
			r.add(Issue{
				Type: "suspicious_title", Severity: "medium", Chapter: n, Title: title,
				Detail: p.reason,
			})
			return
		}
	}
}

func checkDuplicates(r *BookReport, titleCounts map[string][]int) {
	titles := make([]string, 0, len(titleCounts))
	for title := range titleCounts {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		positions := titleCounts[title]
		if len(positions) < 2 {
			continue
		}
		r.add(Issue{
			Type: "duplicate_title", Severity: "high", Chapter: positions[0], Title: title,
			Detail: fmt.Sprintf("repeated %d times at chapters %v", len(positions), positions),
		})
	}
}

func (r *BookReport) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

func sortIssues(issues []Issue) {
	order := map[string]int{"high": 0, "medium": 1, "low": 2}
	sort.SliceStable(issues, func(i, j int) bool {
		if order[issues[i].Severity] != order[issues[j].Severity] {
			return order[issues[i].Severity] < order[issues[j].Severity]
		}
		return issues[i].Chapter < issues[j].Chapter
	})
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= 60 {
		return s
	}
	return string(runes[:60]) + "..."
}
