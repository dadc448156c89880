package glyph

import (
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/image/font/sfnt"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"corvid.dev/go/subray"
	"corvid.dev/go/subray/fixedpoint"
	"corvid.dev/go/subray/outline"
)

// Key identifies a cached glyph render product. It is text-independent:
// two different characters that happen to share a glyph id, font, size,
// sub-pixel offset and blur sigma produce (and share) the same bitmap.
type Key struct {
	Font      *Face
	GlyphID   sfnt.GlyphIndex
	SizePx    fixedpoint.Fixed16_16
	SubPixelX fixedpoint.Fixed26_6 // fractional pen offset, in [0,1)
	SubPixelY fixedpoint.Fixed26_6
	BlurSigma float64
}

// Bitmap is an immutable rendered glyph: an 8-bit alpha-coverage buffer
// plus the offset (relative to the pen position) of its top-left pixel.
// Blitting never mutates a cached Bitmap.
type Bitmap struct {
	Width, Height  int
	Alpha          []uint8 // row-major, Width*Height bytes
	OffsetX        int
	OffsetY        int
}

// MemoryFootprint implements Value: the bitmap's pixel storage plus a
// fixed per-entry overhead estimate for the cache's own bookkeeping.
func (b *Bitmap) MemoryFootprint() uint64 {
	return uint64(len(b.Alpha)) + 64
}

// GlyphCache is the concrete cache instantiation every caller of this
// package uses: Key identifies a rendered glyph, *Bitmap is the cached
// render product.
type GlyphCache = Cache[Key, *Bitmap]

// NewGlyphCache returns a GlyphCache configured by config, logging
// through log.
func NewGlyphCache(config CacheConfiguration, log zerolog.Logger) *GlyphCache {
	return NewCache[Key, *Bitmap](config, log)
}

// Renderer produces Bitmaps from outlines: rasterize (§4.1) for
// blur_sigma == 0, or rasterize into a padded buffer and apply a
// three-pass box blur approximating a Gaussian otherwise.
type Renderer struct {
	raster *subray.Rasterizer
}

// NewRenderer returns a Renderer with a fresh internal rasterizer.
func NewRenderer() *Renderer {
	return &Renderer{raster: subray.NewRasterizer(rect.Rect{})}
}

// Render produces the Bitmap for key's outline. subPixelX/Y (in
// [0,1)) are baked into the outline's translation before rasterizing,
// so the cache key's sub-pixel component actually changes the pixels
// produced, not just the storage key.
func (r *Renderer) Render(key Key, o *outline.Outline) (*Bitmap, error) {
	if key.SubPixelX != 0 || key.SubPixelY != 0 {
		dx, dy := key.SubPixelX.Float64(), key.SubPixelY.Float64()
		shifted := &outline.Outline{Cmds: o.Cmds, Coords: make([]vec.Vec2, len(o.Coords))}
		for i, p := range o.Coords {
			shifted.Coords[i] = vec.Vec2{X: p.X + dx, Y: p.Y + dy}
		}
		o = shifted
	}
	bounds := outlineBounds(o)
	if bounds.IsZero() {
		return &Bitmap{}, nil
	}

	pad := 0
	if key.BlurSigma > 0 {
		pad = boxRadiusForSigma(key.BlurSigma)*3 + 1
	}

	minX := int(math.Floor(bounds.minX)) - pad
	minY := int(math.Floor(bounds.minY)) - pad
	maxX := int(math.Ceil(bounds.maxX)) + pad
	maxY := int(math.Ceil(bounds.maxY)) + pad
	w := maxX - minX
	h := maxY - minY
	if w <= 0 || h <= 0 {
		return &Bitmap{}, nil
	}

	alpha := make([]uint8, w*h)
	r.raster.Clip = rect.Rect{LLx: float64(minX), LLy: float64(minY), URx: float64(maxX), URy: float64(maxY)}
	r.raster.FillNonZero(o, func(y, xMin int, coverage []float32) {
		row := y - minY
		if row < 0 || row >= h {
			return
		}
		for i, c := range coverage {
			x := xMin + i - minX
			if x < 0 || x >= w {
				continue
			}
			q := fixedpoint.CoverageToU16(float64(c))
			alpha[row*w+x] = uint8(q >> 8)
		}
	})

	if key.BlurSigma > 0 {
		alpha = boxBlurAlpha(alpha, w, h, boxRadiusForSigma(key.BlurSigma))
	}

	return &Bitmap{
		Width:   w,
		Height:  h,
		Alpha:   alpha,
		OffsetX: minX,
		OffsetY: minY,
	}, nil
}

// boxRadiusForSigma matches spec §4.3's formula: round(sigma *
// sqrt(12/3) / 2).
func boxRadiusForSigma(sigma float64) int {
	if sigma <= 0 {
		return 0
	}
	r := sigma * math.Sqrt(12.0/3.0) / 2
	return int(r + 0.5)
}

// boxBlurAlpha runs three box-blur passes per axis (the standard
// approximation of a Gaussian blur of the matching variance) over an
// 8-bit alpha buffer.
func boxBlurAlpha(src []uint8, w, h, radius int) []uint8 {
	if radius <= 0 {
		return src
	}
	buf := make([]float64, w*h)
	for i, v := range src {
		buf[i] = float64(v)
	}
	tmp := make([]float64, w*h)
	for pass := 0; pass < 3; pass++ {
		boxBlurRow(buf, tmp, w, h, radius)
		boxBlurCol(tmp, buf, w, h, radius)
	}
	out := make([]uint8, w*h)
	for i, v := range buf {
		out[i] = uint8(max(0, min(255, int(v+0.5))))
	}
	return out
}

func boxBlurRow(src, dst []float64, w, h, radius int) {
	norm := 1.0 / float64(2*radius+1)
	for y := 0; y < h; y++ {
		row := src[y*w : y*w+w]
		out := dst[y*w : y*w+w]
		var sum float64
		for x := -radius; x <= radius; x++ {
			sum += clampedAt(row, x)
		}
		for x := 0; x < w; x++ {
			out[x] = sum * norm
			sum -= clampedAt(row, x-radius)
			sum += clampedAt(row, x+radius+1)
		}
	}
}

func boxBlurCol(src, dst []float64, w, h, radius int) {
	norm := 1.0 / float64(2*radius+1)
	for x := 0; x < w; x++ {
		var sum float64
		for y := -radius; y <= radius; y++ {
			sum += clampedCol(src, w, h, x, y)
		}
		for y := 0; y < h; y++ {
			dst[y*w+x] = sum * norm
			sum -= clampedCol(src, w, h, x, y-radius)
			sum += clampedCol(src, w, h, x, y+radius+1)
		}
	}
}

func clampedAt(row []float64, i int) float64 {
	if i < 0 {
		i = 0
	} else if i >= len(row) {
		i = len(row) - 1
	}
	return row[i]
}

func clampedCol(buf []float64, w, h, x, y int) float64 {
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	return buf[y*w+x]
}

type boundsF struct{ minX, minY, maxX, maxY float64 }

func (b boundsF) IsZero() bool { return b.maxX <= b.minX || b.maxY <= b.minY }

func outlineBounds(o *outline.Outline) boundsF {
	segs := outline.Segments(o)
	if len(segs) == 0 {
		return boundsF{}
	}
	b := boundsF{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
	grow := func(x, y float64) {
		b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
		b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
	}
	for _, s := range segs {
		grow(s.Start.X, s.Start.Y)
		n := s.Degree.NumControlPoints()
		for i := 0; i < n; i++ {
			grow(s.Points[i].X, s.Points[i].Y)
		}
	}
	return b
}
