package textlayout

import (
	"testing"

	"corvid.dev/go/subray/fixedpoint"
	"corvid.dev/go/subray/fontmatch"
	"corvid.dev/go/subray/style"
	"corvid.dev/go/subray/subtitle"
)

// fakeShaper is a minimal Shaper that assigns one glyph per rune with a
// fixed advance (sizePx/2), so textlayout's own logic can be tested
// without parsing a real font or invoking HarfBuzz.
type fakeShaper struct{}

func (fakeShaper) Shape(text string, familyList []string, sizePx float64) (*fontmatch.GlyphString, error) {
	runes := []rune(text)
	glyphs := make([]fontmatch.Glyph, len(runes))
	for i := range runes {
		glyphs[i] = fontmatch.Glyph{
			GlyphID:      uint32(runes[i]),
			Advance:      fixedpoint.F26_6(sizePx / 2),
			Cluster:      i,
			SafeToBreak:  true,
			SafeToConcat: true,
		}
	}
	return fontmatch.NewGlyphString(glyphs), nil
}

func (fakeShaper) Split(gs *fontmatch.GlyphString, text string, offset int, familyList []string, sizePx float64) (left, right *fontmatch.GlyphString, err error) {
	var l, r []fontmatch.Glyph
	for _, g := range gs.All() {
		if g.Cluster < offset {
			l = append(l, g)
		} else {
			r = append(r, g)
		}
	}
	return fontmatch.NewGlyphString(l), fontmatch.NewGlyphString(r), nil
}

func (fakeShaper) Metrics(familyList []string, sizePx float64) (ascent, descent, lineGap float64, err error) {
	return sizePx * 0.8, sizePx * 0.2, sizePx * 0.1, nil
}

func plainItem(text string, sizePx float64) subtitle.InlineItem {
	st := style.Default()
	st.ApplyAll(style.PropertyMap{FontSizePx: &sizePx})
	return subtitle.InlineItem{Kind: subtitle.InlineText, Text: text, Style: st}
}

func TestLayoutSingleLineNoWrap(t *testing.T) {
	items := []subtitle.InlineItem{plainItem("hello", 20)}
	res, err := Layout(fakeShaper{}, items, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(res.Lines))
	}
	if got, want := res.Lines[0].Width, 5*10.0; got != want {
		t.Fatalf("expected width %v, got %v", want, got)
	}
}

func TestLayoutWrapsOnSpaces(t *testing.T) {
	items := []subtitle.InlineItem{plainItem("ab cd ef gh", 20)}
	// Each rune advances 10px; force a narrow width so not everything
	// fits on one line — with real UAX#14 segmentation, breaks land
	// after spaces.
	res, err := Layout(fakeShaper{}, items, 45)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Lines) < 2 {
		t.Fatalf("expected wrapping to produce multiple lines, got %d", len(res.Lines))
	}
	for i, line := range res.Lines {
		if line.Width > 45+1e-9 {
			t.Fatalf("line %d width %v exceeds available width 45", i, line.Width)
		}
	}
}

func TestLayoutExplicitNewlineForcesBreak(t *testing.T) {
	items := []subtitle.InlineItem{plainItem("ab\ncd", 20)}
	res, err := Layout(fakeShaper{}, items, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Lines) != 2 {
		t.Fatalf("expected explicit newline to force 2 lines, got %d", len(res.Lines))
	}
}

func TestLayoutRubyPadding(t *testing.T) {
	baseStyle := style.Default()
	baseSize := 20.0
	baseStyle.ApplyAll(style.PropertyMap{FontSizePx: &baseSize})
	annStyle := style.Default()
	annSize := 20.0
	annStyle.ApplyAll(style.PropertyMap{FontSizePx: &annSize})

	items := []subtitle.InlineItem{
		{Kind: subtitle.InlineRubyBase, Text: "X", Style: baseStyle},      // width 10 (1 glyph)
		{Kind: subtitle.InlineRubyAnnotation, Text: "ab", Style: annStyle, RubyBaseIndex: 0}, // width 20 (2 glyphs)
	}
	res, err := Layout(fakeShaper{}, items, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Lines) != 1 || len(res.Lines[0].Segments) != 2 {
		t.Fatalf("expected a single line with base+annotation, got %+v", res.Lines)
	}
	base := res.Lines[0].Segments[0]
	ann := res.Lines[0].Segments[1]
	if base.OriginX != 5 {
		t.Fatalf("expected base padding (20-10)/2=5, got %v", base.OriginX)
	}
	if ann.OriginX != 0 {
		t.Fatalf("expected annotation (wider side) padding 0, got %v", ann.OriginX)
	}
	if res.Lines[0].Width != 20 {
		t.Fatalf("expected atom width 20 (the wider of the two), got %v", res.Lines[0].Width)
	}
}

func TestApplyAlignmentCenter(t *testing.T) {
	items := []subtitle.InlineItem{plainItem("ab", 20)}
	res, err := Layout(fakeShaper{}, items, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ApplyAlignment(res, subtitle.AlignCenter)
	if got, want := res.Lines[0].Segments[0].OriginX, -res.Lines[0].Width/2; got != want {
		t.Fatalf("expected centered origin %v, got %v", want, got)
	}
}
