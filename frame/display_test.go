package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"corvid.dev/go/subray/fixedpoint"
	"corvid.dev/go/subray/fontmatch"
	"corvid.dev/go/subray/style"
	"corvid.dev/go/subray/subtitle"
	"corvid.dev/go/subray/textlayout"
)

func fakeGlyphString(n int) *fontmatch.GlyphString {
	f := fontmatch.NewFakeFont("fake", func(r rune) bool { return true })
	glyphs := make([]fontmatch.Glyph, n)
	for i := range glyphs {
		glyphs[i] = fontmatch.Glyph{GlyphID: uint32(i + 1), Advance: fixedpoint.F26_6(10), Font: f, Cluster: i}
	}
	return fontmatch.NewGlyphString(glyphs)
}

func oneSegmentFragment(st style.ComputedStyle) *Fragment {
	items := []subtitle.InlineItem{{Kind: subtitle.InlineText, Text: "ab", Style: st}}
	result := &textlayout.Result{
		Lines: []textlayout.ShapedLine{
			{Segments: []textlayout.LineSegment{{SourceItemIndex: 0, Glyphs: fakeGlyphString(2), OriginX: 0, OriginY: 20}}},
		},
	}
	return &Fragment{X: 10, Y: 5, Layout: result, Items: items}
}

func TestDisplayPassEmitsTextThenDecoration(t *testing.T) {
	st := style.Default()
	underline := true
	st.ApplyAll(style.PropertyMap{Underline: &underline})
	f := oneSegmentFragment(st)

	ops := DisplayPass([]*Fragment{f})
	if assert.Len(t, ops, 2) {
		_, isBitmaps := ops[0].(DeferredBitmaps)
		assert.True(t, isBitmaps, "text paints before decoration")
		_, isRect := ops[1].(FilledRect)
		assert.True(t, isRect, "underline decoration paints after text")
	}
}

func TestDisplayPassEmitsShadowBeforeText(t *testing.T) {
	st := style.Default()
	sigma := 2.0
	st.ApplyAll(style.PropertyMap{ShadowBlurSigma: &sigma})
	f := oneSegmentFragment(st)

	ops := DisplayPass([]*Fragment{f})
	if assert.Len(t, ops, 2) {
		shadowOp, ok := ops[0].(DeferredBitmaps)
		assert.True(t, ok)
		assert.Equal(t, 2.0, shadowOp.glyphs[0].blurSigma)
		textOp, ok := ops[1].(DeferredBitmaps)
		assert.True(t, ok)
		assert.Equal(t, 0.0, textOp.glyphs[0].blurSigma)
	}
}

func TestDisplayPassNoDecorationIsJustText(t *testing.T) {
	f := oneSegmentFragment(style.Default())
	ops := DisplayPass([]*Fragment{f})
	assert.Len(t, ops, 1)
}

func TestDisplayPassWalksChildren(t *testing.T) {
	parent := oneSegmentFragment(style.Default())
	child := oneSegmentFragment(style.Default())
	parent.Children = []*Fragment{child}
	ops := DisplayPass([]*Fragment{parent})
	assert.Len(t, ops, 2) // one text op per fragment, parent then child
}
