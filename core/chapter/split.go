package chapter

import (
	"regexp"
	"strings"
)

// splitter slices physical lines that carry several concatenated headings
// ("第一章 开始第二章 结束") into separate logical lines. Built once per
// document from the resolved vocabulary.
type splitter struct {
	boundary *regexp.Regexp
}

// newSplitter compiles the heading-boundary pattern, or returns an inert
// splitter when the document resolved no markers at all.
func newSplitter(vocab Vocabulary) *splitter {
	classes := ""
	if pc := vocab.PrimaryClass(); pc != "" {
		classes = pc[1 : len(pc)-1]
	}
	if uc := vocab.UpperClass(); uc != "" {
		classes += uc[1 : len(uc)-1]
	}
	if classes == "" {
		return &splitter{}
	}
	return &splitter{
		boundary: regexp.MustCompile(`第\s*` + numeralClass + `{1,12}\s*[` + classes + `]`),
	}
}

// split returns the logical lines for one physical line and whether the line
// was actually divided. Lines with zero boundary matches pass through
// unchanged; a single match at most re-trims the line.
func (s *splitter) split(line string) (segments []string, composite bool) {
	if s.boundary == nil {
		return []string{line}, false
	}
	matches := s.boundary.FindAllStringIndex(line, -1)
	if len(matches) == 0 {
		return []string{line}, false
	}

	var starts []int
	if matches[0][0] > 0 {
		starts = append(starts, 0)
	}
	for _, m := range matches {
		starts = append(starts, m[0])
	}

	for i, start := range starts {
		end := len(line)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		seg := line[start:end]
		if strings.TrimSpace(seg) == "" {
			continue
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return []string{line}, false
	}
	return segments, len(segments) > 1
}
