package chapter

import "testing"

func scoreLine(t *testing.T, line string) float64 {
	t.Helper()
	m := testMatcher()
	c := m.matchChapter(0, line, false)
	if c == nil {
		t.Fatalf("no candidate for %q", line)
	}
	return DefaultWeights().Score(c)
}

func TestScoreAcceptsCleanHeading(t *testing.T) {
	w := DefaultWeights()
	score := scoreLine(t, "第一章 初入江湖")
	if score < w.Threshold {
		t.Errorf("clean heading scored %.2f, below threshold %.2f", score, w.Threshold)
	}
}

func TestScoreRejectsProseLine(t *testing.T) {
	w := DefaultWeights()
	// Starts like a heading but reads like a sentence: long, comma-dense.
	line := "第三章的内容其实并不重要，因为主角早就知道，一切都是阴谋，而且，这个阴谋还牵涉了很多人。"
	score := scoreLine(t, line)
	if score >= w.Threshold {
		t.Errorf("prose line scored %.2f, should be below threshold %.2f", score, w.Threshold)
	}
}

func TestScoreSeparatorSignals(t *testing.T) {
	wide := scoreLine(t, "第一章  初入江湖")
	single := scoreLine(t, "第一章 初入江湖")
	none := scoreLine(t, "第一章初入江湖")

	if wide <= none {
		t.Errorf("wide separator (%.2f) should outscore none (%.2f)", wide, none)
	}
	if single <= none {
		t.Errorf("single separator (%.2f) should outscore none (%.2f)", single, none)
	}
}

func TestScoreTrailingLengthPenalty(t *testing.T) {
	short := scoreLine(t, "第一章 出发")

	long := "第一章 "
	for i := 0; i < 70; i++ {
		long += "远"
	}
	longScore := scoreLine(t, long)

	if longScore >= short {
		t.Errorf("over-long trailing text (%.2f) should score below short (%.2f)", longScore, short)
	}
}

func TestScoreTrailingExclamationTolerated(t *testing.T) {
	w := DefaultWeights()
	score := scoreLine(t, "第七章 决战！")
	if score < w.Threshold {
		t.Errorf("trailing exclamation dragged heading to %.2f, below %.2f", score, w.Threshold)
	}
}

func TestScoreColonOnlyTolerated(t *testing.T) {
	w := DefaultWeights()
	score := scoreLine(t, "第二章：雪夜")
	if score < w.Threshold {
		t.Errorf("colon-delimited heading scored %.2f, below %.2f", score, w.Threshold)
	}
}
