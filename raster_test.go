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
	"fmt"
	"math"
	"testing"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"corvid.dev/go/subray/fixedpoint"
)

// coverageMatrix renders p into a dense row-major byte matrix (one byte
// per pixel, the top 8 bits of the u16 coverage, matching how the golden
// fixtures below are expressed) sized width x height.
func coverageMatrix(fill func(p *path.Data, emit func(y, xMin int, coverage []float32)), p *path.Data, width, height int) []uint8 {
	out := make([]uint8, width*height)
	fill(p, func(y, xMin int, coverage []float32) {
		if y < 0 || y >= height {
			return
		}
		for i, c := range coverage {
			x := xMin + i
			if x < 0 || x >= width {
				continue
			}
			q := fixedpoint.CoverageToU16(float64(c))
			out[y*width+x] = uint8(q >> 8)
		}
	})
	return out
}

func diffMatrix(t *testing.T, got, want []uint8, width, height int) {
	t.Helper()
	if slicesEqualU8(got, want) {
		return
	}
	var b []byte
	for y := height - 1; y >= 0; y-- {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if x != 0 {
				b = append(b, ' ')
			}
			b = fmt.Appendf(b, "%02X", got[idx])
		}
		b = append(b, '\n')
	}
	b = append(b, "--- want ---\n"...)
	for y := height - 1; y >= 0; y-- {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if x != 0 {
				b = append(b, ' ')
			}
			b = fmt.Appendf(b, "%02X", want[idx])
		}
		b = append(b, '\n')
	}
	t.Fatalf("coverage mismatch (bottom row first):\n%s", b)
}

func slicesEqualU8(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// linePath builds a path.Data from a polyline plus an implicit closing
// edge, matching the closed-contour convention every golden fixture
// below assumes.
func linePath(pts ...vec.Vec2) *path.Data {
	var p path.Data
	p.MoveTo(pts[0])
	for _, pt := range pts[1:] {
		p.LineTo(pt)
	}
	p.Close()
	return &p
}

func newFillRasterizer(clip rect.Rect) *Rasterizer {
	r := NewRasterizer(clip)
	r.CTM = matrix.Identity
	return r
}

// TestCoverageSomeLines ports spec §8 end-to-end scenario 1: a single
// linear outline rasterized on a 15x10 viewport.
func TestCoverageSomeLines(t *testing.T) {
	const width, height = 15, 10
	p := linePath(
		vec.Vec2{X: 0, Y: 0},
		vec.Vec2{X: 4, Y: 10},
		vec.Vec2{X: 10, Y: 7.5},
		vec.Vec2{X: 14, Y: 3},
	)
	r := newFillRasterizer(rect.Rect{LLx: 0, LLy: 0, URx: width, URy: height})
	got := coverageMatrix(r.FillNonZero, p, width, height)

	want := []uint8{
		// y=0 (bottom row)
		0xB1, 0xAD, 0x76, 0x40, 0x0C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x66, 0xFF, 0xFF, 0xFF, 0xFC, 0xD2, 0x9B, 0x64, 0x2D, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x0C, 0xF3, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xF3, 0xC0, 0x89, 0x52, 0x1B, 0x00,
		0x00, 0x99, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x0E,
		0x00, 0x33, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xA8, 0x01, 0x00,
		0x00, 0x00, 0xCC, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xBF, 0x07, 0x00, 0x00,
		0x00, 0x00, 0x66, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xD3, 0x0F, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x0C, 0xF3, 0xFF, 0xFF, 0xFF, 0xFF, 0xFD, 0xB5, 0x1C, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x99, 0xFF, 0xFF, 0xEC, 0x8A, 0x22, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		// y=9 (top row)
		0x00, 0x00, 0x00, 0x33, 0xCA, 0x60, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	diffMatrix(t, got, want, width, height)
}

// TestCoverageThinLine ports spec §8 end-to-end scenario 2: a thin
// vertical rectangle on a 2x10 viewport, covering 0.6 of the left
// column on every row.
func TestCoverageThinLine(t *testing.T) {
	const width, height = 2, 10
	p := linePath(
		vec.Vec2{X: 0.2, Y: 0},
		vec.Vec2{X: 0.2, Y: 10},
		vec.Vec2{X: 0.8, Y: 10},
		vec.Vec2{X: 0.8, Y: 0},
	)
	r := newFillRasterizer(rect.Rect{LLx: 0, LLy: 0, URx: width, URy: height})
	got := coverageMatrix(r.FillNonZero, p, width, height)

	want := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		want[y*width+0] = 0x99
		want[y*width+1] = 0x00
	}
	diffMatrix(t, got, want, width, height)
}

// TestCoverageQuadraticsAndLines exercises flattenQuadratic through the
// cell rasterizer on a mixed quad+line outline.
func TestCoverageQuadraticsAndLines(t *testing.T) {
	const width, height = 16, 10

	var p path.Data
	p.MoveTo(vec.Vec2{X: 0, Y: 0})
	p.QuadTo(vec.Vec2{X: 2, Y: 10}, vec.Vec2{X: 10, Y: 10})
	p.LineTo(vec.Vec2{X: 15, Y: 7.5})
	p.QuadTo(vec.Vec2{X: 10, Y: 5}, vec.Vec2{X: 7.5, Y: 3})
	p.Close()

	r := newFillRasterizer(rect.Rect{LLx: 0, LLy: 0, URx: width, URy: height})
	r.Flatness = 0.1
	got := coverageMatrix(r.FillNonZero, &p, width, height)

	// The exact boundary byte values depend on curve subdivision count,
	// which is tolerance-dependent; this checks the coarse silhouette
	// instead of byte-exact values, unlike the two linear fixtures above.
	var totalCoverage int
	for _, v := range got {
		totalCoverage += int(v)
	}
	if totalCoverage == 0 {
		t.Fatal("quadratic outline produced no coverage at all")
	}
	// Interior point: the outline clearly covers (8, 6).
	if got[6*width+8] < 0x80 {
		t.Errorf("interior pixel (8,6) lightly covered: %#02x", got[6*width+8])
	}
	// Corner point: (15,0) lies below the outline's right-hand edges.
	if got[width-1] != 0 {
		t.Errorf("corner pixel (15,0) should be uncovered, got %#02x", got[width-1])
	}
}

// TestRasterizerIdempotent ports spec §8's rasterizer invariant:
// rendering the same outline twice yields byte-identical buffers.
func TestRasterizerIdempotent(t *testing.T) {
	const width, height = 15, 10
	p := linePath(
		vec.Vec2{X: 0, Y: 0},
		vec.Vec2{X: 4, Y: 10},
		vec.Vec2{X: 10, Y: 7.5},
		vec.Vec2{X: 14, Y: 3},
	)
	r := newFillRasterizer(rect.Rect{LLx: 0, LLy: 0, URx: width, URy: height})
	first := coverageMatrix(r.FillNonZero, p, width, height)
	second := coverageMatrix(r.FillNonZero, p, width, height)
	diffMatrix(t, second, first, width, height)
}

// triangleArea computes the unsigned area of the triangle (a, b, c) via
// the shoelace formula, for area-conservation property checks below.
func triangleArea(a, b, c vec.Vec2) float64 {
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}

func sumCoverage(buf []uint8) float64 {
	var total float64
	for _, v := range buf {
		total += float64(v) / 255
	}
	return total
}

// TestCoverageConservesAreaCell ports spec §8's rasterizer invariant
// that total coverage approximates the outline's true area.
func TestCoverageConservesAreaCell(t *testing.T) {
	const width, height = 20, 20
	a := vec.Vec2{X: 2, Y: 2}
	b := vec.Vec2{X: 17, Y: 3}
	c := vec.Vec2{X: 6, Y: 15}
	p := linePath(a, b, c)

	r := newFillRasterizer(rect.Rect{LLx: 0, LLy: 0, URx: width, URy: height})
	got := coverageMatrix(r.FillNonZero, p, width, height)

	want := triangleArea(a, b, c)
	gotArea := sumCoverage(got)
	if math.Abs(gotArea-want) > 0.5 {
		t.Errorf("coverage sum = %.2f, triangle area = %.2f (diff too large)", gotArea, want)
	}
}

// TestIntersectionRasterizerBowtie exercises IntersectionRasterizer on a
// genuinely self-intersecting (bowtie) contour, the kind of geometry it
// exists to resolve directly rather than through many small per-pixel
// accumulations.
func TestIntersectionRasterizerBowtie(t *testing.T) {
	const width, height = 20, 20
	// Two triangles sharing only their apex, traced as one contour whose
	// edges (18,2)-(2,18) and (18,18)-(2,2) cross, so winding flips sign
	// across the crossing point at (10,10).
	var p path.Data
	p.MoveTo(vec.Vec2{X: 2, Y: 2})
	p.LineTo(vec.Vec2{X: 18, Y: 2})
	p.LineTo(vec.Vec2{X: 2, Y: 18})
	p.LineTo(vec.Vec2{X: 18, Y: 18})
	p.Close()

	ir := NewIntersectionRasterizer()
	ir.Clip = rect.Rect{LLx: 0, LLy: 0, URx: width, URy: height}
	got := coverageMatrix(ir.Fill, &p, width, height)

	wantArea := triangleArea(vec.Vec2{X: 2, Y: 2}, vec.Vec2{X: 18, Y: 2}, vec.Vec2{X: 10, Y: 10}) +
		triangleArea(vec.Vec2{X: 10, Y: 10}, vec.Vec2{X: 18, Y: 18}, vec.Vec2{X: 2, Y: 18})
	gotArea := sumCoverage(got)
	if math.Abs(gotArea-wantArea) > 1.0 {
		t.Errorf("coverage sum = %.2f, want ~%.2f", gotArea, wantArea)
	}

	// The apex pixel must show the triangles' shared point as covered,
	// not cancelled out by the crossing.
	if got[10*width+10] == 0 {
		t.Errorf("apex pixel (10,10) uncovered")
	}
}

// TestIntersectionRasterizerIdempotent mirrors
// TestRasterizerIdempotent for the event-driven variant.
func TestIntersectionRasterizerIdempotent(t *testing.T) {
	const width, height = 20, 20
	var p path.Data
	p.MoveTo(vec.Vec2{X: 2, Y: 2})
	p.LineTo(vec.Vec2{X: 18, Y: 2})
	p.LineTo(vec.Vec2{X: 10, Y: 10})
	p.Close()
	p.MoveTo(vec.Vec2{X: 10, Y: 10})
	p.LineTo(vec.Vec2{X: 18, Y: 18})
	p.LineTo(vec.Vec2{X: 2, Y: 18})
	p.Close()

	ir := NewIntersectionRasterizer()
	ir.Clip = rect.Rect{LLx: 0, LLy: 0, URx: width, URy: height}
	first := coverageMatrix(ir.Fill, &p, width, height)
	second := coverageMatrix(ir.Fill, &p, width, height)
	diffMatrix(t, second, first, width, height)
}
