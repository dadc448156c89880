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
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"corvid.dev/go/subray/fixedpoint"
)

// pixelCell is one entry of a per-scanline, x-sorted singly-linked list:
// the accumulated signed coverage contributions of every edge that
// crosses pixel (x, y). winding is the full-height signed contribution
// (used for the running sweep accumulator once the cell is passed);
// rcoverage is the contribution restricted to the cell itself.
type pixelCell struct {
	x         int
	winding   fixedpoint.Fixed16_16
	rcoverage fixedpoint.Fixed16_16
	next      int32 // index into Rasterizer.cells, -1 terminates
}

type fxPoint struct {
	X, Y fixedpoint.Fixed16_16
}

// Rasterizer converts vector paths to pixel coverage values—the fraction of
// each pixel's area covered by the filled path, ranging from 0 (outside) to
// 1 (inside). Create one instance and reuse it for multiple paths. Internal
// buffers grow as needed but never shrink, achieving zero allocations in
// steady state.
//
// Each scanline is rasterized as a sparse list of pixelCells: an edge
// crossing pixel row y contributes to the cell at the pixel column it
// crosses, recording both its winding (propagated rightward to every
// following pixel on the row) and its rcoverage (the fractional coverage
// of the cell itself). Sweeping a row then alternates between emitting a
// full-coverage span at the running winding between cells and the
// per-cell coverage winding+rcoverage at each cell.
//
// A Rasterizer is not safe for concurrent use.
type Rasterizer struct {
	// CTM transforms from user space to device space. Must be non-singular.
	CTM matrix.Matrix

	// Clip bounds output to this device-coordinate rectangle.
	// Coordinates must be integer-aligned.
	Clip rect.Rect

	// Flatness controls curve approximation accuracy in device pixels.
	// Typical values: 0.25–1.0. Must be positive.
	Flatness float64

	// Internal buffers (reused across calls)
	cells       []pixelCell
	firstForRow []int32
	touchedRows []int
	rowScratch  []float32
}

// NewRasterizer returns a Rasterizer with the given clip rectangle and
// reasonable defaults for the other parameters.
func NewRasterizer(clip rect.Rect) *Rasterizer {
	return &Rasterizer{
		CTM:      matrix.Identity,
		Clip:     clip,
		Flatness: defaultFlatness,
	}
}

// transformLinear applies only the 2×2 linear part of CTM to a vector.
// Used for CTM-aware tolerance checking where translation is irrelevant.
func (r *Rasterizer) transformLinear(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: r.CTM[0]*v.X + r.CTM[2]*v.Y,
		Y: r.CTM[1]*v.X + r.CTM[3]*v.Y,
	}
}

// flattenQuadratic flattens a quadratic Bézier and calls emit for each line segment.
// p0 is the start point (current point), p1 is control, p2 is endpoint.
// All points are in user space; CTM-aware tolerance checking is used.
func (r *Rasterizer) flattenQuadratic(p0, p1, p2 vec.Vec2, emit func(from, to vec.Vec2)) {
	e := p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25)

	eDev := r.transformLinear(e)

	n := 1
	errDev := eDev.Length()
	if errDev > r.Flatness {
		n = int(math.Ceil(math.Sqrt(errDev / r.Flatness)))
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		pt := p0.Mul(omt * omt).Add(p1.Mul(2 * omt * t)).Add(p2.Mul(t * t))
		emit(prev, pt)
		prev = pt
	}
}

// flattenCubic flattens a cubic Bézier and calls emit for each line segment.
// p0 is start, p1/p2 are controls, p3 is endpoint. All in user space.
func (r *Rasterizer) flattenCubic(p0, p1, p2, p3 vec.Vec2, emit func(from, to vec.Vec2)) {
	d1 := p0.Sub(p1.Mul(2)).Add(p2)
	d2 := p1.Sub(p2.Mul(2)).Add(p3)

	d1Dev := r.transformLinear(d1)
	d2Dev := r.transformLinear(d2)

	mDev := max(d1Dev.Length(), d2Dev.Length())
	n := 1
	if mDev > 0 {
		nFloat := math.Sqrt(3 * mDev / (4 * r.Flatness))
		if nFloat > 1 {
			n = int(math.Ceil(nFloat))
		}
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		omt2 := omt * omt
		omt3 := omt2 * omt
		t2 := t * t
		t3 := t2 * t
		pt := p0.Mul(omt3).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t3))
		emit(prev, pt)
		prev = pt
	}
}

// FillNonZero fills the path using the nonzero winding rule. The emit
// callback receives coverage row-by-row; its slice argument is valid only
// during the call. y and xMin are absolute device coordinates.
func (r *Rasterizer) FillNonZero(p *path.Data, emit func(y, xMin int, coverage []float32)) {
	r.fill(p, fillNonZero, emit)
}

// FillEvenOdd fills the path using the even-odd rule. The emit callback
// receives coverage row-by-row; its slice argument is valid only during
// the call. y and xMin are absolute device coordinates.
func (r *Rasterizer) FillEvenOdd(p *path.Data, emit func(y, xMin int, coverage []float32)) {
	r.fill(p, fillEvenOdd, emit)
}

// fillRule identifies which fill rule to apply.
type fillRule int

const (
	fillNonZero fillRule = iota
	fillEvenOdd
)

// fill is the internal implementation shared by FillNonZero and FillEvenOdd.
// It builds a per-row pixelCell list by walking the path once, then sweeps
// each touched row left to right, emitting contiguous coverage spans.
func (r *Rasterizer) fill(p *path.Data, rule fillRule, emit func(y, xMin int, coverage []float32)) {
	width := int(r.Clip.URx) - int(r.Clip.LLx)
	height := int(r.Clip.URy) - int(r.Clip.LLy)
	if width <= 0 || height <= 0 {
		return
	}

	r.resetCells(height)

	originX, originY := r.Clip.LLx, r.Clip.LLy

	var current, subpath vec.Vec2
	emitLine := func(a, b vec.Vec2) {
		ax := r.CTM[0]*a.X + r.CTM[2]*a.Y + r.CTM[4] - originX
		ay := r.CTM[1]*a.X + r.CTM[3]*a.Y + r.CTM[5] - originY
		bx := r.CTM[0]*b.X + r.CTM[2]*b.Y + r.CTM[4] - originX
		by := r.CTM[1]*b.X + r.CTM[3]*b.Y + r.CTM[5] - originY
		r.addSegment(ax, ay, bx, by, width, height)
	}

	coordIdx := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			current = p.Coords[coordIdx]
			subpath = current
			coordIdx++

		case path.CmdLineTo:
			emitLine(current, p.Coords[coordIdx])
			current = p.Coords[coordIdx]
			coordIdx++

		case path.CmdQuadTo:
			r.flattenQuadratic(current, p.Coords[coordIdx], p.Coords[coordIdx+1], emitLine)
			current = p.Coords[coordIdx+1]
			coordIdx += 2

		case path.CmdCubeTo:
			r.flattenCubic(current, p.Coords[coordIdx], p.Coords[coordIdx+1], p.Coords[coordIdx+2], emitLine)
			current = p.Coords[coordIdx+2]
			coordIdx += 3

		case path.CmdClose:
			if current != subpath {
				emitLine(current, subpath)
			}
			current = subpath
		}
	}

	if len(r.touchedRows) == 0 {
		return
	}

	originXInt := int(math.Floor(originX))
	originYInt := int(math.Floor(originY))

	slices.Sort(r.touchedRows)
	r.rowScratch = slices.Grow(r.rowScratch[:0], width)[:width]
	for _, row := range r.touchedRows {
		r.sweepRow(row, width, rule, originXInt, originYInt, emit)
	}
}

func (r *Rasterizer) resetCells(height int) {
	r.cells = r.cells[:0]
	if cap(r.firstForRow) < height {
		r.firstForRow = make([]int32, height)
	} else {
		r.firstForRow = r.firstForRow[:height]
	}
	for i := range r.firstForRow {
		r.firstForRow[i] = -1
	}
	r.touchedRows = r.touchedRows[:0]
}

// addSegment routes a device-space (already clip-origin-relative) line
// segment into the per-row pixelCell lists. Horizontal segments never
// change winding and are skipped.
func (r *Rasterizer) addSegment(x0, y0, x1, y1 float64, width, height int) {
	if y0 == y1 {
		return
	}

	var top, bottom fxPoint
	winding := 1
	if y1 > y0 {
		top = fxPoint{X: fixedpoint.F16_16(x1), Y: fixedpoint.F16_16(y1)}
		bottom = fxPoint{X: fixedpoint.F16_16(x0), Y: fixedpoint.F16_16(y0)}
	} else {
		top = fxPoint{X: fixedpoint.F16_16(x0), Y: fixedpoint.F16_16(y0)}
		bottom = fxPoint{X: fixedpoint.F16_16(x1), Y: fixedpoint.F16_16(y1)}
		winding = -1
	}

	yLo := bottom.Y.Floor()
	yHi := top.Y.Ceil()
	if yLo >= height || yHi <= 0 {
		return
	}
	if yLo < 0 {
		yLo = 0
	}
	if yHi > height {
		yHi = height
	}

	dxdy := (top.X - bottom.X).Div(top.Y - bottom.Y)
	var dydx fixedpoint.Fixed16_16
	if dxdy != 0 {
		dydx = fixedpoint.I16_16(1).Div(dxdy)
	}

	for y := yLo; y < yHi; y++ {
		rowLo := fixedpoint.I16_16(y)
		if rowLo < bottom.Y {
			rowLo = bottom.Y
		}
		rowHi := fixedpoint.I16_16(y + 1)
		if rowHi > top.Y {
			rowHi = top.Y
		}
		if rowHi <= rowLo {
			continue
		}

		xAtRowLo := bottom.X + dxdy.Mul(rowLo-bottom.Y)
		xAtRowHi := bottom.X + dxdy.Mul(rowHi-bottom.Y)
		r.addRowSegment(y, width, rowLo, xAtRowLo, rowHi, xAtRowHi, dxdy, dydx, bottom, winding)
	}
}

// addRowSegment splits the portion of a segment within pixel row y across
// the pixel columns it crosses, accumulating each column's contribution
// into its pixelCell. Columns left of the clip are folded into column 0
// (full coverage, since everything further right is unconditionally
// covered by a segment entering from off-screen); columns at or past the
// clip's right edge contribute nothing, since nothing is ever drawn there.
func (r *Rasterizer) addRowSegment(y, width int, rowLo, xAtRowLo, rowHi, xAtRowHi, dxdy, dydx fixedpoint.Fixed16_16, bottom fxPoint, winding int) {
	xMinRow, xMaxRow := xAtRowLo, xAtRowHi
	if xMinRow > xMaxRow {
		xMinRow, xMaxRow = xMaxRow, xMinRow
	}
	pixLeft := xMinRow.Floor()
	pixRight := xMaxRow.Floor()

	if pixRight < 0 {
		r.addLineToCell(0, y, fxPoint{Y: rowLo}, fxPoint{Y: rowHi}, winding)
		return
	}
	if pixLeft >= width {
		return
	}

	if pixLeft == pixRight {
		px := pixLeft
		loX := xAtRowLo - fixedpoint.I16_16(px)
		hiX := xAtRowHi - fixedpoint.I16_16(px)
		if px < 0 {
			px, loX, hiX = 0, 0, 0
		}
		r.addLineToCell(px, y, fxPoint{X: loX, Y: rowLo}, fxPoint{X: hiX, Y: rowHi}, winding)
		return
	}

	if pixLeft < 0 {
		yCross := bottom.Y + dydx.Mul(-bottom.X)
		if yCross < rowLo {
			yCross = rowLo
		}
		if yCross > rowHi {
			yCross = rowHi
		}
		offLo, offHi := rowLo, yCross
		if xAtRowLo >= 0 {
			offLo, offHi = yCross, rowHi
		}
		if offHi > offLo {
			r.addLineToCell(0, y, fxPoint{Y: offLo}, fxPoint{Y: offHi}, winding)
		}
	}

	start := max(pixLeft, 0)
	end := min(pixRight, width-1)
	for px := start; px <= end; px++ {
		colLo := fixedpoint.I16_16(px)
		colHi := fixedpoint.I16_16(px + 1)
		yAtColLo := bottom.Y + dydx.Mul(colLo-bottom.X)
		yAtColHi := bottom.Y + dydx.Mul(colHi-bottom.X)
		segMin, segMax := yAtColLo, yAtColHi
		if segMin > segMax {
			segMin, segMax = segMax, segMin
		}
		if segMin < rowLo {
			segMin = rowLo
		}
		if segMax > rowHi {
			segMax = rowHi
		}
		if segMax <= segMin {
			continue
		}
		xAtMin := bottom.X + dxdy.Mul(segMin-bottom.Y)
		xAtMax := bottom.X + dxdy.Mul(segMax-bottom.Y)
		r.addLineToCell(px, y, fxPoint{X: xAtMin - colLo, Y: segMin}, fxPoint{X: xAtMax - colLo, Y: segMax}, winding)
	}
}

// insertCell returns the index of the cell at (x, y), creating and
// linking it in x-sorted order if it does not already exist. The first
// time a row gains a cell, it is recorded in touchedRows.
func (r *Rasterizer) insertCell(x, y int) int {
	head := r.firstForRow[y]
	if head == -1 {
		r.touchedRows = append(r.touchedRows, y)
	}

	prev := int32(-1)
	cur := head
	for cur != -1 {
		c := &r.cells[cur]
		if c.x < x {
			prev = cur
			cur = c.next
			continue
		}
		if c.x == x {
			return int(cur)
		}
		break
	}

	newIdx := int32(len(r.cells))
	r.cells = append(r.cells, pixelCell{x: x, next: cur})
	if prev == -1 {
		r.firstForRow[y] = newIdx
	} else {
		r.cells[prev].next = newIdx
	}
	return int(newIdx)
}

// addLineToCell accumulates a line's contribution to cell (x, y): the
// local bottom/top points give the portion of the segment clipped to the
// cell, in coordinates local to pixel x (so X is in [0,1]).
func (r *Rasterizer) addLineToCell(x, y int, bottom, top fxPoint, winding int) {
	idx := r.insertCell(x, y)
	cell := &r.cells[idx]

	height := top.Y - bottom.Y
	signedHeight := height
	if winding < 0 {
		signedHeight = -signedHeight
	}

	two := fixedpoint.I16_16(2)
	cell.winding += signedHeight
	cell.rcoverage += signedHeight.Mul(two - (top.X + bottom.X)).Div(two)
}

// sweepRow walks row y's cell list left to right, tracking the running
// winding accumulator, and writes the resulting per-pixel coverage into
// r.rowScratch before trimming and emitting the covered span.
func (r *Rasterizer) sweepRow(y, width int, rule fillRule, originXInt, originYInt int, emit func(y, xMin int, coverage []float32)) {
	buf := r.rowScratch
	clear(buf)

	var winding fixedpoint.Fixed16_16
	last := 0
	idx := r.firstForRow[y]
	for idx != -1 {
		cell := &r.cells[idx]
		if winding != 0 {
			v := coverageFromWinding(winding, rule)
			for x := last; x < cell.x; x++ {
				buf[x] = v
			}
		}

		coverage := winding + cell.rcoverage
		winding += cell.winding
		buf[cell.x] = coverageFromWinding(coverage, rule)
		last = cell.x + 1
		idx = cell.next
	}

	if winding != 0 {
		v := coverageFromWinding(winding, rule)
		for x := last; x < width; x++ {
			buf[x] = v
		}
	}

	if trimmed, offset := trimZeros(buf); trimmed != nil {
		emit(y+originYInt, offset+originXInt, trimmed)
	}
}

// coverageFromWinding turns a signed accumulated winding value into a
// [0,1] coverage fraction under the given fill rule.
func coverageFromWinding(w fixedpoint.Fixed16_16, rule fillRule) float32 {
	wf := w.Float64()
	if wf < 0 {
		wf = -wf
	}
	if rule == fillEvenOdd {
		mod := math.Mod(wf, 2)
		c := 1 - math.Abs(1-mod)
		return float32(c)
	}
	if wf > 1 {
		wf = 1
	}
	return float32(wf)
}

// trimZeros returns the sub-slice of buf between its first and last
// non-zero entries (inclusive) and that slice's starting offset, or nil
// if buf is entirely zero.
func trimZeros(buf []float32) ([]float32, int) {
	start := -1
	end := -1
	for i, v := range buf {
		if v != 0 {
			if start == -1 {
				start = i
			}
			end = i
		}
	}
	if start == -1 {
		return nil, 0
	}
	return buf[start : end+1], start
}

const defaultFlatness = 0.25
