package textlayout

import "github.com/go-text/typesetting/segmenter"

// breakOpportunity is one candidate line-break point within a run,
// expressed as a rune offset from the run's start.
type breakOpportunity struct {
	offset    int
	mandatory bool
}

// lineBreakOpportunities walks text with the Unicode line-breaking
// segmenter (github.com/go-text/typesetting/segmenter — the same
// engine cogentcore-core's text/shaped pipeline drives its wrapping
// from) and returns every legal break point in ascending order,
// excluding offset 0 (nothing can be "broken before the first rune") and
// the end of text.
func lineBreakOpportunities(text []rune) []breakOpportunity {
	if len(text) == 0 {
		return nil
	}
	var seg segmenter.Segmenter
	seg.Init(text)
	iter := seg.LineIterator()

	var out []breakOpportunity
	for iter.Next() {
		line := iter.Line()
		if line.Offset <= 0 || line.Offset >= len(text) {
			continue
		}
		out = append(out, breakOpportunity{offset: line.Offset, mandatory: line.IsMandatoryBreak})
	}
	return out
}
