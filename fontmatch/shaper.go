package fontmatch

import (
	"fmt"

	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"

	"corvid.dev/go/subray/fixedpoint"
)

// ShapingFailedError is spec §7's ShapingFailed kind: the underlying
// shaper reported a hard failure (as opposed to a recoverable .notdef
// run, which is handled by falling back rather than erroring).
type ShapingFailedError struct {
	Err error
}

func (e *ShapingFailedError) Error() string { return fmt.Sprintf("fontmatch: shaping failed: %v", e.Err) }
func (e *ShapingFailedError) Unwrap() error  { return e.Err }

// Direction is the paragraph/run direction spec §4.4's guess_properties
// establishes.
type Direction int

const (
	LTR Direction = iota
	RTL
)

// ShapingBuffer holds a Unicode text slice plus the guessed properties
// (direction, script, language) spec §4.4 calls for, and drives the
// fallback-aware Shape algorithm.
type ShapingBuffer struct {
	Text      []rune
	Direction Direction
	Script    language.Script
	Language  language.Language
	SizePx    float64 // requested font size, pixels
}

// NewShapingBuffer wraps text. Call GuessProperties before Shape unless
// the caller already knows Direction/Script/Language.
func NewShapingBuffer(text string, sizePx float64) *ShapingBuffer {
	return &ShapingBuffer{Text: []rune(text), SizePx: sizePx, Language: language.NewLanguage("und")}
}

// GuessProperties determines direction via the Unicode Bidi Algorithm's
// paragraph-level heuristic (golang.org/x/text/unicode/bidi, since
// go-text/typesetting itself leaves script/direction policy to the
// caller per SPEC_FULL.md §C) and defaults script/language to "common"/
// "und" when nothing more specific is known. Callers with better
// metadata (an explicit lang attribute from the subtitle format) should
// set Script/Language directly instead of calling this.
func (b *ShapingBuffer) GuessProperties() {
	p := bidi.Paragraph{}
	p.SetString(string(b.Text))
	dir, err := p.Direction()
	if err == nil && dir == bidi.RightToLeft {
		b.Direction = RTL
	} else {
		b.Direction = LTR
	}
	if b.Script == 0 {
		b.Script = language.Common
	}
}

func (b *ShapingBuffer) hbDirection() di.Direction {
	if b.Direction == RTL {
		return di.DirectionRTL
	}
	return di.DirectionLTR
}

// Shape performs spec §4.4's fallback-aware shaping algorithm over the
// buffer's full text range, trying chain[0] first and re-invoking
// shaping on any .notdef gap with the next font in chain, terminating
// at chain's last entry (by convention always a tofu face — see
// Matcher.FallbackChain).
func (b *ShapingBuffer) Shape(chain []*Font) (*GlyphString, error) {
	if len(chain) == 0 {
		return nil, &ShapingFailedError{Err: fmt.Errorf("empty font fallback chain")}
	}
	glyphs, err := b.shapeRange(chain, b.Text, 0)
	if err != nil {
		return nil, err
	}
	return NewGlyphString(glyphs), nil
}

// shapeRange implements steps 1-4 of spec §4.4: shape text (a
// sub-slice of b.Text starting at byte/rune offset clusterBase within
// the original buffer) with chain[0]; accept maximal non-.notdef runs;
// for each gap, recurse on chain[1:]; at the last font in chain, force-
// emit rather than recursing further.
func (b *ShapingBuffer) shapeRange(chain []*Font, text []rune, clusterBase int) ([]Glyph, error) {
	font := chain[0]
	out, err := b.shapeOne(font, text)
	if err != nil {
		return nil, &ShapingFailedError{Err: err}
	}
	for i := range out {
		out[i].Cluster += clusterBase
	}

	var result []Glyph
	i := 0
	for i < len(out) {
		if out[i].GlyphID != 0 {
			j := i
			for j < len(out) && out[j].GlyphID != 0 {
				j++
			}
			result = append(result, out[i:j]...)
			i = j
			continue
		}

		j := i
		for j < len(out) && out[j].GlyphID == 0 {
			j++
		}
		startCluster := out[i].Cluster
		endCluster := clusterBase + len(text)
		if j < len(out) {
			endCluster = out[j].Cluster
		}
		subText := b.Text[startCluster:endCluster]

		if len(chain) == 1 {
			// Tofu itself only produced .notdef for this sub-range:
			// force-emit tofu glyphs rather than recursing further.
			result = append(result, forceGlyphs(font, subText, startCluster)...)
		} else {
			sub, err := b.shapeRange(chain[1:], subText, startCluster)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		}
		i = j
	}
	markClusterBoundaries(result)
	return result, nil
}

// shapeOne invokes HarfbuzzShaper once over text with font, translating
// go-text/typesetting's Output into our Glyph record. Cluster values in
// the result are relative to text (the caller rebases them).
func (b *ShapingBuffer) shapeOne(f *Font, text []rune) ([]Glyph, error) {
	shaper := shaping.HarfbuzzShaper{}
	input := shaping.Input{
		Text:      text,
		RunStart:  0,
		RunEnd:    len(text),
		Direction: b.hbDirection(),
		Face:      f.Shaping,
		Size:      fixed.I(int(b.SizePx)),
		Script:    b.Script,
		Language:  b.Language,
	}
	out := shaper.Shape(input)

	glyphs := make([]Glyph, len(out.Glyphs))
	for i, g := range out.Glyphs {
		glyphs[i] = Glyph{
			GlyphID: uint32(g.GlyphID),
			Advance: fixedpoint.F26_6(float64(g.XAdvance) / 64),
			OffsetX: fixedpoint.F26_6(float64(g.XOffset) / 64),
			OffsetY: fixedpoint.F26_6(float64(g.YOffset) / 64),
			Cluster: g.ClusterIndex,
			Font:    f,
		}
	}
	return glyphs, nil
}

// forceGlyphs emits one tofu glyph per rune of text, used when even the
// terminal font in the fallback chain cannot shape a sub-range.
func forceGlyphs(f *Font, text []rune, clusterBase int) []Glyph {
	out := make([]Glyph, len(text))
	for i, r := range text {
		gid := gofont.GID(0)
		if fc, ok := f.Shaping.(interface{ NominalGlyph(rune) (gofont.GID, bool) }); ok {
			if g, found := fc.NominalGlyph(r); found {
				gid = g
			}
		}
		out[i] = Glyph{GlyphID: uint32(gid), Font: f, Cluster: clusterBase + i}
	}
	markClusterBoundaries(out)
	return out
}

// markClusterBoundaries sets SafeToBreak/SafeToConcat on every glyph
// whose Cluster differs from its text-order predecessor's.
func markClusterBoundaries(glyphs []Glyph) {
	for i := range glyphs {
		boundary := i == 0 || glyphs[i].Cluster != glyphs[i-1].Cluster
		glyphs[i].SafeToBreak = boundary
		glyphs[i].SafeToConcat = boundary
	}
}
