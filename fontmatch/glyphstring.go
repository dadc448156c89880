package fontmatch

import "corvid.dev/go/subray/fixedpoint"

// Glyph is spec §3's Glyph record: immutable after shaping.
type Glyph struct {
	GlyphID uint32
	Advance fixedpoint.Fixed26_6
	OffsetX fixedpoint.Fixed26_6
	OffsetY fixedpoint.Fixed26_6
	// Cluster is the rune index (not a byte offset) into the source
	// text of the cluster this glyph originated from.
	Cluster int
	Font    *Font

	// SafeToBreak/SafeToConcat are the shaper-reported flags spec §4.4
	// uses to choose where a GlyphString may be split or spliced
	// without reshaping. In the absence of a richer harfbuzz flag (this
	// shaper derives them structurally rather than from a raw HB
	// bitfield), a glyph is SafeToBreak when it begins a new cluster —
	// i.e. no earlier glyph shares its Cluster value — since a shaped
	// ligature or contextual substitution never splits a cluster across
	// two glyphs; SafeToConcat uses the same test, since concatenating
	// at a non-cluster-boundary would require re-forming whatever
	// ligature produced it.
	SafeToBreak  bool
	SafeToConcat bool
}

// Segment names a half-open range [Start, End) of indices into a
// GlyphString's backing array — spec §3's "the slice's half-open range
// within the underlying immutable shaped array".
type Segment struct {
	Start, End int
}

// Len returns the number of glyphs the segment covers.
func (s Segment) Len() int { return s.End - s.Start }

// GlyphString is spec §3's GlyphString<T>: an ordered sequence of
// GlyphStringSegments, each a view into one shared, immutable backing
// array of shaped glyphs. All segments of one GlyphString must come
// from compatible shaping calls (spec's invariant); this implementation
// enforces that by construction — ShapingBuffer.Shape always returns a
// GlyphString whose single initial segment spans the whole backing
// array, and callers split it via Split/SplitAt rather than constructing
// segments by hand.
type GlyphString struct {
	backing  []Glyph
	Segments []Segment
}

// NewGlyphString wraps glyphs as a single-segment GlyphString.
func NewGlyphString(glyphs []Glyph) *GlyphString {
	return &GlyphString{backing: glyphs, Segments: []Segment{{Start: 0, End: len(glyphs)}}}
}

// Glyphs returns the backing-array view for seg.
func (g *GlyphString) Glyphs(seg Segment) []Glyph {
	return g.backing[seg.Start:seg.End]
}

// All returns every glyph across every segment, in segment order.
func (g *GlyphString) All() []Glyph {
	var out []Glyph
	for _, seg := range g.Segments {
		out = append(out, g.Glyphs(seg)...)
	}
	return out
}

// AdvanceWidth sums the X advance of every glyph in the string.
func (g *GlyphString) AdvanceWidth() fixedpoint.Fixed26_6 {
	var total fixedpoint.Fixed26_6
	for _, gl := range g.All() {
		total = total.Add(gl.Advance)
	}
	return total
}
