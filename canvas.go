// corvid.dev/go/subray - a 2D vector rendering library
// Copyright (C) 2026  The subray Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package subray

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"corvid.dev/go/subray/fixedpoint"
	"corvid.dev/go/subray/outline"
)

// BGRA8 is an 8-bit-per-channel blue/green/red/alpha pixel, stored
// premultiplied. This is the wire format render() writes into the
// caller's buffer and the color every backend primitive below operates
// on; it intentionally does not match Go's image/color premultiplied
// conventions (which are RGBA-ordered) so that callers can cast a
// []BGRA8 directly onto a byte buffer laid out B,G,R,A.
type BGRA8 struct {
	B, G, R, A uint8
}

// TransparentBGRA8 is the zero value, used to clear render targets.
var TransparentBGRA8 = BGRA8{}

// MulAlpha scales all four channels (including alpha) by a/255,
// preserving the premultiplied invariant that B,G,R <= A.
func (c BGRA8) MulAlpha(a uint8) BGRA8 {
	return BGRA8{
		B: mulDiv255(c.B, a),
		G: mulDiv255(c.G, a),
		R: mulDiv255(c.R, a),
		A: mulDiv255(c.A, a),
	}
}

// BlendOver composites c (premultiplied source) over dst (premultiplied
// destination) using the standard Porter-Duff "over" operator. This is
// the non-linear, byte-domain blend libass and most software subtitle
// renderers use, not a linear-light compositing model.
func (c BGRA8) BlendOver(dst BGRA8) BGRA8 {
	inv := 255 - c.A
	return BGRA8{
		B: c.B + mulDiv255(dst.B, inv),
		G: c.G + mulDiv255(dst.G, inv),
		R: c.R + mulDiv255(dst.R, inv),
		A: c.A + mulDiv255(dst.A, inv),
	}
}

// mulDiv255 computes round(a*b/255) using the standard integer
// approximation (x+128+((x+128)>>8))>>8 with x = a*b, exact for all uint8
// inputs.
func mulDiv255(a, b uint8) uint8 {
	x := uint32(a) * uint32(b)
	return uint8((x + 128 + (x+128)>>8) >> 8)
}

// Texture is an opaque, backend-owned handle produced by
// CopyOrMoveIntoTexture. A software backend's Texture is just a bitmap;
// a GPU backend's would wrap a device-resident resource. Callers treat
// it as opaque and pass it back into Blit/BlurBufferBlit.
type Texture struct {
	Width, Height int
	Pix           []BGRA8
}

// RenderTarget is the caller-owned output buffer a frame paints into:
// a BGRA8 raster with a possibly padded row stride.
type RenderTarget struct {
	Pix           []BGRA8
	Width, Height int
	Stride        int // elements (not bytes) per row; >= Width
}

// At returns the pixel at (x, y), or the zero value if out of bounds.
func (t *RenderTarget) At(x, y int) BGRA8 {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return BGRA8{}
	}
	return t.Pix[y*t.Stride+x]
}

// Set writes the pixel at (x, y) if in bounds.
func (t *RenderTarget) Set(x, y int, c BGRA8) {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return
	}
	t.Pix[y*t.Stride+x] = c
}

// Clear fills the target with transparent black, matching the
// caller-facing ABI's contract that the buffer is cleared before every
// render() call.
func (t *RenderTarget) Clear() {
	for y := 0; y < t.Height; y++ {
		row := t.Pix[y*t.Stride : y*t.Stride+t.Width]
		for i := range row {
			row[i] = BGRA8{}
		}
	}
}

// Backend is the capability set a concrete rasterizer implementation
// must provide: simple debug primitives, the polygon accumulation-and-
// fill flow, texture compositing, and staged Gaussian blur. Renderer
// depends only on this interface, never on SoftwareBackend directly, so
// a GPU-backed implementation can be substituted without touching the
// layout/style/frame packages.
type Backend interface {
	Line(target *RenderTarget, x0, y0, x1, y1 float64, width float64, color BGRA8)
	HorizontalLine(target *RenderTarget, x0, x1, y int, color BGRA8)
	StrokePolygon(target *RenderTarget, vertices []vec.Vec2, width float64, color BGRA8)
	FillTriangle(target *RenderTarget, a, b, c vec.Vec2, color BGRA8)

	PolygonReset(offset vec.Vec2)
	PolygonAddPolyline(vertices []vec.Vec2, winding bool)
	PolygonFill(target *RenderTarget, color BGRA8)

	Blit(target *RenderTarget, dx, dy int, texture *Texture, alpha BGRA8)
	BlurPrepare(w, h int, sigma float64)
	BlurBufferBlit(dx, dy int, texture *Texture)
	BlurExecute(target *RenderTarget, dx, dy int, rgb [3]uint8)

	CopyOrMoveIntoTexture(bitmap *Texture) *Texture
}

// SoftwareBackend implements Backend on top of Rasterizer, the
// reference software path every other backend is validated against.
type SoftwareBackend struct {
	r  *Rasterizer
	ir *IntersectionRasterizer

	polyOffset vec.Vec2
	polyBuf    path.Data
	polyOpen   bool

	blurW, blurH int
	blurSigma    float64
	blurSrc      []float64 // single-channel accumulation buffer, row-major
}

// NewSoftwareBackend returns a Backend backed by a fresh Rasterizer.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{r: NewRasterizer(rect.Rect{}), ir: NewIntersectionRasterizer()}
}

func (s *SoftwareBackend) clipFor(target *RenderTarget) rect.Rect {
	return rect.Rect{LLx: 0, LLy: 0, URx: float64(target.Width), URy: float64(target.Height)}
}

// Line draws a debug line of the given width between two points.
func (s *SoftwareBackend) Line(target *RenderTarget, x0, y0, x1, y1, width float64, color BGRA8) {
	s.StrokePolygon(target, []vec.Vec2{{X: x0, Y: y0}, {X: x1, Y: y1}}, width, color)
}

// HorizontalLine fills a single scanline segment solidly, with no
// antialiasing, matching the debug-primitive contract.
func (s *SoftwareBackend) HorizontalLine(target *RenderTarget, x0, x1, y int, color BGRA8) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	for x := x0; x <= x1; x++ {
		target.Set(x, y, color.BlendOver(target.At(x, y)))
	}
}

// StrokePolygon strokes an open or closed polyline of the given width.
// The centerline is offset into two outline.Stroker curves (spec §4.2)
// and their union is filled via IntersectionRasterizer, since the two
// offset curves commonly cross each other at sharp joins and short caps.
func (s *SoftwareBackend) StrokePolygon(target *RenderTarget, vertices []vec.Vec2, width float64, color BGRA8) {
	if len(vertices) < 2 || width <= 0 {
		return
	}
	var p path.Data
	p.MoveTo(vertices[0])
	for _, v := range vertices[1:] {
		p.LineTo(v)
	}

	st := outline.NewStroker(width/2, width/2)
	top, bottom := st.Stroke((*outline.Outline)(&p))

	var combined path.Data
	appendPath(&combined, (*path.Data)(top))
	appendPath(&combined, (*path.Data)(bottom))

	s.ir.Clip = s.clipFor(target)
	emitCoverage(target, color, func(emit func(y, xMin int, coverage []float32)) {
		s.ir.Fill(&combined, emit)
	})
}

// appendPath re-issues src's commands onto dst, letting two independently
// built outlines be combined into a single path for one rasterizer pass.
func appendPath(dst, src *path.Data) {
	coordIdx := 0
	for _, cmd := range src.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			dst.MoveTo(src.Coords[coordIdx])
			coordIdx++
		case path.CmdLineTo:
			dst.LineTo(src.Coords[coordIdx])
			coordIdx++
		case path.CmdQuadTo:
			dst.QuadTo(src.Coords[coordIdx], src.Coords[coordIdx+1])
			coordIdx += 2
		case path.CmdCubeTo:
			dst.CubeTo(src.Coords[coordIdx], src.Coords[coordIdx+1], src.Coords[coordIdx+2])
			coordIdx += 3
		case path.CmdClose:
			dst.Close()
		}
	}
}

// FillTriangle fills a single triangle with antialiased nonzero coverage
// (used for debug scaffolding, e.g. caret/marker rendering).
func (s *SoftwareBackend) FillTriangle(target *RenderTarget, a, b, c vec.Vec2, color BGRA8) {
	var p path.Data
	p.MoveTo(a)
	p.LineTo(b)
	p.LineTo(c)
	p.Close()

	s.r.Clip = s.clipFor(target)
	emitCoverage(target, color, func(emit func(y, xMin int, coverage []float32)) {
		s.r.FillNonZero(&p, emit)
	})
}

// PolygonReset begins a new accumulation at offset; subsequent
// PolygonAddPolyline calls append contours relative to it.
func (s *SoftwareBackend) PolygonReset(offset vec.Vec2) {
	s.polyOffset = offset
	s.polyBuf = path.Data{}
	s.polyOpen = false
}

// PolygonAddPolyline appends a contour. winding is accepted for parity
// with the Backend interface and is ignored: PolygonFill always fills
// the accumulated contours with the nonzero rule.
func (s *SoftwareBackend) PolygonAddPolyline(vertices []vec.Vec2, winding bool) {
	if len(vertices) == 0 {
		return
	}
	if s.polyOpen {
		s.polyBuf.Close()
	}
	s.polyBuf.MoveTo(vec.Vec2{X: vertices[0].X + s.polyOffset.X, Y: vertices[0].Y + s.polyOffset.Y})
	for _, v := range vertices[1:] {
		s.polyBuf.LineTo(vec.Vec2{X: v.X + s.polyOffset.X, Y: v.Y + s.polyOffset.Y})
	}
	s.polyOpen = true
}

// PolygonFill rasterizes everything accumulated since PolygonReset
// using the nonzero winding rule and composites it onto target.
func (s *SoftwareBackend) PolygonFill(target *RenderTarget, color BGRA8) {
	if s.polyOpen {
		s.polyBuf.Close()
		s.polyOpen = false
	}
	s.r.Clip = s.clipFor(target)
	emitCoverage(target, color, func(emit func(y, xMin int, coverage []float32)) {
		s.r.FillNonZero(&s.polyBuf, emit)
	})
}

// emitCoverage runs render, converting float32 coverage spans into
// BGRA8 pixels alpha-blended onto target via BlendOver. Coverage is
// first quantized to a u16 per spec §4.1's external contract, then
// rescaled back into the byte domain for the blend.
func emitCoverage(target *RenderTarget, color BGRA8, render func(emit func(y, xMin int, coverage []float32))) {
	render(func(y, xMin int, coverage []float32) {
		row := target.Pix[y*target.Stride:]
		for i, c := range coverage {
			q := fixedpoint.CoverageToU16(float64(c))
			a := uint8(q >> 8)
			src := color.MulAlpha(a)
			x := xMin + i
			if x < 0 || x >= target.Width {
				continue
			}
			row[x] = src.BlendOver(row[x])
		}
	})
}

// Blit alpha-premultiplied-overblends texture onto target at (dx, dy),
// itself modulated by alpha (typically a solid tint plus a global
// opacity in its alpha channel).
func (s *SoftwareBackend) Blit(target *RenderTarget, dx, dy int, texture *Texture, alpha BGRA8) {
	for ty := 0; ty < texture.Height; ty++ {
		y := dy + ty
		if y < 0 || y >= target.Height {
			continue
		}
		for tx := 0; tx < texture.Width; tx++ {
			x := dx + tx
			if x < 0 || x >= target.Width {
				continue
			}
			src := texture.Pix[ty*texture.Width+tx]
			src = BGRA8{
				B: mulDiv255(src.B, alpha.A),
				G: mulDiv255(src.G, alpha.A),
				R: mulDiv255(src.R, alpha.A),
				A: mulDiv255(src.A, alpha.A),
			}
			target.Set(x, y, src.BlendOver(target.At(x, y)))
		}
	}
}

// BlurPrepare allocates (or resizes) the accumulation buffer used by
// BlurBufferBlit/BlurExecute for a w*h blur of the given sigma.
func (s *SoftwareBackend) BlurPrepare(w, h int, sigma float64) {
	s.blurW, s.blurH, s.blurSigma = w, h, sigma
	size := w * h
	if cap(s.blurSrc) < size {
		s.blurSrc = make([]float64, size)
	} else {
		s.blurSrc = s.blurSrc[:size]
		for i := range s.blurSrc {
			s.blurSrc[i] = 0
		}
	}
}

// BlurBufferBlit copies texture's alpha channel into the blur
// accumulation buffer at (dx, dy), in preparation for BlurExecute.
func (s *SoftwareBackend) BlurBufferBlit(dx, dy int, texture *Texture) {
	for ty := 0; ty < texture.Height; ty++ {
		y := dy + ty
		if y < 0 || y >= s.blurH {
			continue
		}
		for tx := 0; tx < texture.Width; tx++ {
			x := dx + tx
			if x < 0 || x >= s.blurW {
				continue
			}
			s.blurSrc[y*s.blurW+x] = float64(texture.Pix[ty*texture.Width+tx].A) / 255
		}
	}
}

// BlurExecute runs a three-pass box-blur approximation of a Gaussian
// with the sigma given to BlurPrepare (the standard three-equal-width
// box passes converge to a Gaussian with the same variance), then
// composites the result at (dx, dy) in the given solid rgb, using the
// blurred value as alpha.
func (s *SoftwareBackend) BlurExecute(target *RenderTarget, dx, dy int, rgb [3]uint8) {
	if s.blurW == 0 || s.blurH == 0 {
		return
	}
	radius := boxRadiusForSigma(s.blurSigma)
	buf := s.blurSrc
	tmp := make([]float64, len(buf))
	for pass := 0; pass < 3; pass++ {
		boxBlurHorizontal(buf, tmp, s.blurW, s.blurH, radius)
		boxBlurVertical(tmp, buf, s.blurW, s.blurH, radius)
	}

	for y := 0; y < s.blurH; y++ {
		ty := dy + y
		if ty < 0 || ty >= target.Height {
			continue
		}
		for x := 0; x < s.blurW; x++ {
			tx := dx + x
			if tx < 0 || tx >= target.Width {
				continue
			}
			a := uint8(max(0, min(255, int(buf[y*s.blurW+x]*255+0.5))))
			src := BGRA8{B: rgb[2], G: rgb[1], R: rgb[0], A: 255}.MulAlpha(a)
			target.Set(tx, ty, src.BlendOver(target.At(tx, ty)))
		}
	}
}

// boxRadiusForSigma picks the box-blur half-width for a three-pass
// approximation of a Gaussian with the given sigma: round(sigma *
// sqrt(12/3) / 2).
func boxRadiusForSigma(sigma float64) int {
	if sigma <= 0 {
		return 0
	}
	r := sigma * math.Sqrt(12.0/3.0) / 2
	return int(r + 0.5)
}

func boxBlurHorizontal(src, dst []float64, w, h, radius int) {
	if radius <= 0 {
		copy(dst, src)
		return
	}
	norm := 1.0 / float64(2*radius+1)
	for y := 0; y < h; y++ {
		row := src[y*w : y*w+w]
		out := dst[y*w : y*w+w]
		var sum float64
		for x := -radius; x <= radius; x++ {
			sum += sampleClamped(row, x)
		}
		for x := 0; x < w; x++ {
			out[x] = sum * norm
			sum -= sampleClamped(row, x-radius)
			sum += sampleClamped(row, x+radius+1)
		}
	}
}

func boxBlurVertical(src, dst []float64, w, h, radius int) {
	if radius <= 0 {
		copy(dst, src)
		return
	}
	norm := 1.0 / float64(2*radius+1)
	for x := 0; x < w; x++ {
		var sum float64
		for y := -radius; y <= radius; y++ {
			sum += sampleColumnClamped(src, w, h, x, y)
		}
		for y := 0; y < h; y++ {
			dst[y*w+x] = sum * norm
			sum -= sampleColumnClamped(src, w, h, x, y-radius)
			sum += sampleColumnClamped(src, w, h, x, y+radius+1)
		}
	}
}

func sampleClamped(row []float64, i int) float64 {
	if i < 0 {
		i = 0
	} else if i >= len(row) {
		i = len(row) - 1
	}
	return row[i]
}

func sampleColumnClamped(buf []float64, w, h, x, y int) float64 {
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	return buf[y*w+x]
}

// CopyOrMoveIntoTexture produces a backend-owned texture from bitmap.
// For the software backend this is a no-op identity: the bitmap is
// already the texture representation.
func (s *SoftwareBackend) CopyOrMoveIntoTexture(bitmap *Texture) *Texture {
	return bitmap
}
