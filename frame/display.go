package frame

import (
	"golang.org/x/image/font/sfnt"
	"seehuhn.de/go/geom/vec"

	"corvid.dev/go/subray"
	"corvid.dev/go/subray/fixedpoint"
	"corvid.dev/go/subray/fontmatch"
	"corvid.dev/go/subray/glyph"
	"corvid.dev/go/subray/textlayout"
)

// PaintOp is one operation DisplayPass emits, in painting order (spec
// §5: background then text then decorations). The caller (Library.Render)
// executes the sequence against a concrete subray.Backend.
type PaintOp interface {
	Execute(backend subray.Backend, target *subray.RenderTarget, cache *glyph.GlyphCache, renderer *glyph.Renderer) error
}

// FilledRect paints a solid axis-aligned rectangle — used for
// underline/strikethrough decoration bars.
type FilledRect struct {
	X0, Y0, X1, Y1 float64
	Color          subray.BGRA8
}

func (op FilledRect) Execute(backend subray.Backend, target *subray.RenderTarget, _ *glyph.GlyphCache, _ *glyph.Renderer) error {
	a := vec.Vec2{X: op.X0, Y: op.Y0}
	b := vec.Vec2{X: op.X1, Y: op.Y0}
	c := vec.Vec2{X: op.X1, Y: op.Y1}
	d := vec.Vec2{X: op.X0, Y: op.Y1}
	backend.FillTriangle(target, a, b, c, op.Color)
	backend.FillTriangle(target, a, c, d, op.Color)
	return nil
}

// glyphPlacement is one shaped glyph positioned in device pixels, ready
// to be rendered (via the glyph cache) and blitted.
type glyphPlacement struct {
	font      *fontmatch.Font
	glyphID   uint32
	sizePx    float64
	penX      float64
	penY      float64
	color     subray.BGRA8
	blurSigma float64
}

// DeferredBitmaps blits a batch of glyphs, rendering (and caching) each
// one lazily at Execute time — "DeferredBitmaps closures run at
// rasterization time and observe the glyph cache as it exists then"
// (spec §5).
type DeferredBitmaps struct {
	glyphs []glyphPlacement
}

func (op DeferredBitmaps) Execute(backend subray.Backend, target *subray.RenderTarget, cache *glyph.GlyphCache, renderer *glyph.Renderer) error {
	for _, g := range op.glyphs {
		if g.font == nil || g.font.Outlines == nil {
			continue // fake/test fonts with no backing outline source
		}
		penXFloor, subX := splitPixel(g.penX)
		penYFloor, subY := splitPixel(g.penY)

		key := glyph.Key{
			Font:      g.font.Outlines,
			GlyphID:   sfnt.GlyphIndex(g.glyphID),
			SizePx:    fixedpoint.F16_16(g.sizePx),
			SubPixelX: fixedpoint.F26_6(subX),
			SubPixelY: fixedpoint.F26_6(subY),
			BlurSigma: g.blurSigma,
		}
		bmp, err := cache.GetOrTryInsertWith(key, func() (*glyph.Bitmap, error) {
			o, err := g.font.Outlines.Outline(sfnt.GlyphIndex(g.glyphID), g.sizePx)
			if err != nil {
				return nil, err
			}
			return renderer.Render(key, o)
		})
		if err != nil {
			return err
		}
		tex := glyphTexture(bmp, g.color)
		backend.Blit(target, penXFloor+bmp.OffsetX, penYFloor+bmp.OffsetY, tex, subray.BGRA8{A: 255})
	}
	return nil
}

func splitPixel(p float64) (floor int, frac float64) {
	f := int(p)
	if p < 0 && float64(f) != p {
		f--
	}
	return f, p - float64(f)
}

// glyphTexture tints a coverage-only Bitmap with color, premultiplied by
// each pixel's coverage — the bridge between glyph's alpha-only render
// product and subray.Backend.Blit's BGRA8 Texture input.
func glyphTexture(bmp *glyph.Bitmap, color subray.BGRA8) *subray.Texture {
	pix := make([]subray.BGRA8, len(bmp.Alpha))
	for i, a := range bmp.Alpha {
		pix[i] = color.MulAlpha(a)
	}
	return &subray.Texture{Width: bmp.Width, Height: bmp.Height, Pix: pix}
}

// toBGRA8 reinterprets a style group's [4]uint8 BGRA color as BGRA8.
func toBGRA8(c [4]uint8) subray.BGRA8 {
	return subray.BGRA8{B: c[0], G: c[1], R: c[2], A: c[3]}
}

// DisplayPass walks the fragment tree recorded by a Pass and emits the
// PaintOp sequence in painting order: for every line segment, an optional
// shadow layer, the glyph bitmaps, then decoration bars — then recurses
// into the fragment's children, matching spec §5's recursive z-order
// walk.
func DisplayPass(fragments []*Fragment) []PaintOp {
	var ops []PaintOp
	for _, f := range fragments {
		ops = append(ops, displayFragment(f)...)
	}
	return ops
}

func displayFragment(f *Fragment) []PaintOp {
	var ops []PaintOp
	if f.Layout != nil {
		for _, line := range f.Layout.Lines {
			for _, seg := range line.Segments {
				if seg.SourceItemIndex < 0 || seg.SourceItemIndex >= len(f.Items) {
					continue
				}
				item := f.Items[seg.SourceItemIndex]
				st := item.Style
				originX := f.X + seg.OriginX
				originY := f.Y + seg.OriginY

				shadow := st.Shadow()
				if shadow.BlurSigma > 0 || shadow.OffsetX != 0 || shadow.OffsetY != 0 {
					ops = append(ops, DeferredBitmaps{glyphs: placeGlyphs(seg, st.Font().SizePx,
						originX+shadow.OffsetX, originY+shadow.OffsetY, toBGRA8(shadow.Color), shadow.BlurSigma)})
				}

				ops = append(ops, DeferredBitmaps{glyphs: placeGlyphs(seg, st.Font().SizePx,
					originX, originY, toBGRA8(st.Color().Fill), 0)})

				decor := st.TextDecoration()
				if decor.Underline || decor.StrikeThrough {
					width := segmentAdvance(seg)
					color := toBGRA8(decor.Color)
					if decor.Underline {
						y := originY + st.Font().SizePx*0.15
						ops = append(ops, FilledRect{X0: originX, Y0: y, X1: originX + width, Y1: y + strokeThickness(st.Font().SizePx), Color: color})
					}
					if decor.StrikeThrough {
						y := originY - st.Font().SizePx*0.3
						ops = append(ops, FilledRect{X0: originX, Y0: y, X1: originX + width, Y1: y + strokeThickness(st.Font().SizePx), Color: color})
					}
				}
			}
		}
	}
	for _, child := range f.Children {
		ops = append(ops, displayFragment(child)...)
	}
	return ops
}

func strokeThickness(sizePx float64) float64 {
	t := sizePx * 0.06
	if t < 1 {
		t = 1
	}
	return t
}

func placeGlyphs(seg textlayout.LineSegment, sizePx, originX, originY float64, color subray.BGRA8, blurSigma float64) []glyphPlacement {
	if seg.Glyphs == nil {
		return nil
	}
	pen := originX
	glyphs := make([]glyphPlacement, 0, len(seg.Glyphs.All()))
	for _, g := range seg.Glyphs.All() {
		glyphs = append(glyphs, glyphPlacement{
			font:      g.Font,
			glyphID:   g.GlyphID,
			sizePx:    sizePx,
			penX:      pen + g.OffsetX.Float64(),
			penY:      originY + g.OffsetY.Float64(),
			color:     color,
			blurSigma: blurSigma,
		})
		pen += g.Advance.Float64()
	}
	return glyphs
}

func segmentAdvance(seg textlayout.LineSegment) float64 {
	if seg.Glyphs == nil {
		return 0
	}
	return seg.Glyphs.AdvanceWidth().Float64()
}
