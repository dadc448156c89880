package glyph

import (
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"seehuhn.de/go/geom/vec"

	"corvid.dev/go/subray/outline"
)

// Face is a font ready to produce glyph outlines at a given size. It
// wraps golang.org/x/image/font/sfnt.Font, the retrieved-in-full
// outline source the teacher's own dependency tree reaches for
// (x/image sits alongside seehuhn.de/go/geom in the wider ecosystem);
// fontmatch is responsible for resolving which Face answers a given
// codepoint.
type Face struct {
	font       *sfnt.Font
	unitsPerEm int32
	buf        sfnt.Buffer
}

// NewFace wraps f. unitsPerEm is the font's design-space unit count
// (sfnt.Font.UnitsPerEm), needed to scale outlines to a requested
// pixel size.
func NewFace(f *sfnt.Font, unitsPerEm int32) *Face {
	return &Face{font: f, unitsPerEm: unitsPerEm}
}

// Outline returns gid's outline scaled to sizePx (pixels per em), in a
// y-down pixel coordinate system with the origin at the glyph's
// advance-width origin.
func (f *Face) Outline(gid sfnt.GlyphIndex, sizePx float64) (*outline.Outline, error) {
	if err := f.font.LoadGlyph(&f.buf, gid, nil); err != nil {
		return nil, err
	}
	scale := sizePx / float64(f.unitsPerEm)

	b := outline.NewBuilder()
	// Font outlines are y-up (baseline at 0, ascenders positive); the
	// rasterizer's pixel space is y-down, so Y is negated here.
	convX := func(p fixed.Int26_6) float64 { return float64(p) / 64 * scale }
	convY := func(p fixed.Int26_6) float64 { return -float64(p) / 64 * scale }
	pt := func(x, y fixed.Int26_6) vec.Vec2 { return vec.Vec2{X: convX(x), Y: convY(y)} }
	for _, seg := range f.buf.Segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			b.MoveTo(pt(seg.Args[0], seg.Args[1]))
		case sfnt.SegmentOpLineTo:
			b.LineTo(pt(seg.Args[0], seg.Args[1]))
		case sfnt.SegmentOpQuadTo:
			b.QuadTo(pt(seg.Args[0], seg.Args[1]), pt(seg.Args[2], seg.Args[3]))
		case sfnt.SegmentOpCubeTo:
			b.CubeTo(pt(seg.Args[0], seg.Args[1]), pt(seg.Args[2], seg.Args[3]), pt(seg.Args[4], seg.Args[5]))
		}
	}
	return b.Outline(), nil
}
