// Package fontmatch implements spec §4.4: font selection with per-
// codepoint fallback (Matcher) and shaping with fallback-aware reshaping
// around gaps (Shaper), built on the real shaping/font-enumeration stack
// already proven elsewhere in the retrieval pack (cogentcore-core's
// text/shaped/shapers/shapedgt wraps the same github.com/go-text/
// typesetting engine — see text/shaped/shaped_test.go).
package fontmatch

import (
	gofontpkg "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	gofont "github.com/go-text/typesetting/font"

	"corvid.dev/go/subray/glyph"
)

// Font is one loaded face, usable both for shaping (via its go-text
// typesetting font.Face, which HarfbuzzShaper consumes) and for outline
// extraction (via glyph.Face, which wraps x/image/font/sfnt — the same
// split the teacher's wider ecosystem uses: shaping engines operate on
// their own face abstraction, outline extraction goes through sfnt
// directly).
type Font struct {
	Family     string
	Shaping    gofont.Face
	Outlines   *glyph.Face
	sfntFont   *sfnt.Font
	unitsPerEm int32

	// coverFunc, when set, overrides the sfnt-cmap coverage test below.
	// Production code leaves this nil; tests that don't want to parse a
	// real font file set it to a fake coverage predicate.
	coverFunc func(r rune) bool
}

// NewFont wraps a parsed sfnt.Font plus its go-text typesetting face
// view under one family name.
func NewFont(family string, shaping gofont.Face, sf *sfnt.Font, unitsPerEm int32) *Font {
	return &Font{
		Family:     family,
		Shaping:    shaping,
		Outlines:   glyph.NewFace(sf, unitsPerEm),
		sfntFont:   sf,
		unitsPerEm: unitsPerEm,
	}
}

// NewFakeFont returns a Font with no real backing font data, whose
// coverage is entirely decided by covers. Used by tests (and, in
// principle, a synthetic tofu face) that need a Font without parsing
// real font bytes.
func NewFakeFont(family string, covers func(r rune) bool) *Font {
	return &Font{Family: family, coverFunc: covers}
}

// Metrics returns f's ascent/descent/line-gap at sizePx, in pixels
// (descent is returned as a positive magnitude below the baseline,
// matching x/image/font/sfnt.Metrics' convention). Used by textlayout
// to accumulate per-line max-ascender/min-descender/lineskip-descent
// per spec §4.5.
func (f *Font) Metrics(sizePx float64) (ascent, descent, lineGap float64, err error) {
	if f.sfntFont == nil {
		// Fake fonts used in tests carry no real metrics; a fixed
		// em-square-derived approximation keeps layout math sane.
		return sizePx * 0.8, sizePx * 0.2, sizePx * 0.1, nil
	}
	var buf sfnt.Buffer
	m, err := f.sfntFont.Metrics(&buf, fixed.Int26_6(sizePx*64), gofontpkg.HintingNone)
	if err != nil {
		return 0, 0, 0, err
	}
	return float64(m.Ascent) / 64, float64(m.Descent) / 64, float64(m.Height-m.Ascent-m.Descent) / 64, nil
}

// CoversRune reports whether f has a non-.notdef glyph for r. This is
// the per-codepoint fallback test spec §4.4 uses both for family
// resolution ("the first family that covers a given codepoint during
// fallback") and for shaping's gap-detection (§4.4 step 2/3).
func (f *Font) CoversRune(r rune) bool {
	if f.coverFunc != nil {
		return f.coverFunc(r)
	}
	if f.sfntFont == nil {
		return false
	}
	var buf sfnt.Buffer
	gid, err := f.sfntFont.GlyphIndex(&buf, r)
	return err == nil && gid != 0
}
