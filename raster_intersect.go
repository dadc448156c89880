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
	"container/heap"
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"corvid.dev/go/subray/fixedpoint"
)

// IntersectionRasterizer is the event-driven non-zero polygon rasterizer:
// an alternative to Rasterizer's pixelCell sweep, built around an
// explicit x-sorted active-edge list rather than per-pixel accumulation.
// Crossings between adjacent active segments are anticipated and
// resolved via a ternary search for the intersection height, and
// coverage is integrated exactly per trapezoid between matched
// winding-zero boundaries rather than per cell.
//
// Canvas routes stroked polygon fills through IntersectionRasterizer:
// the two offset curves an outline.Stroker produces commonly cross each
// other near sharp joins and short caps, and an active-edge-list sweep
// resolves that crossing directly rather than relying on many small
// per-pixel accumulations to cancel out correctly.
//
// An IntersectionRasterizer is not safe for concurrent use.
type IntersectionRasterizer struct {
	// Clip bounds output to this device-coordinate rectangle.
	Clip rect.Rect

	// Flatness controls curve approximation accuracy in device pixels.
	Flatness float64

	segs       []ixSegment
	activeHead int
	events     ixEventHeap
	coverage   []uint16
	rowScratch []float32
	width      int
	height     int
}

// NewIntersectionRasterizer returns an IntersectionRasterizer with
// reasonable defaults.
func NewIntersectionRasterizer() *IntersectionRasterizer {
	return &IntersectionRasterizer{Flatness: defaultFlatness, activeHead: -1}
}

type ixSegment struct {
	top, bottom vec.Vec2 // top.Y >= bottom.Y
	winding     int
	dx          float64 // d(x)/d(y)
	currentX    float64
	nextX       float64
	prev, next  int
}

func (s *ixSegment) xAtY(y float64) float64 {
	return s.bottom.X + s.dx*(y-s.bottom.Y)
}

type ixTrapezoid struct {
	top, txl, txr    float64
	bottom, bxl, bxr float64
}

type ixEventKind int

const (
	ixScanline ixEventKind = iota
	ixIntersection
	ixStart
	ixEnd
)

type ixEvent struct {
	y     float64
	kind  ixEventKind
	value int
}

// ixEventHeap is a min-heap ordered first by y, then by kind, then by
// value, matching the order in which same-height events must resolve:
// pending scanline integration before intersection bookkeeping, which
// in turn precedes activating or deactivating segments at that height.
type ixEventHeap []ixEvent

func (h ixEventHeap) Len() int { return len(h) }
func (h ixEventHeap) Less(i, j int) bool {
	if h[i].y != h[j].y {
		return h[i].y < h[j].y
	}
	if h[i].kind != h[j].kind {
		return h[i].kind < h[j].kind
	}
	return h[i].value < h[j].value
}
func (h ixEventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *ixEventHeap) Push(x any)   { *h = append(*h, x.(ixEvent)) }
func (h *ixEventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Fill rasterizes p under the non-zero winding rule into emit, tolerating
// self-intersecting contours. The emit callback receives coverage
// row-by-row; its slice argument is valid only during the call. y and
// xMin are absolute device coordinates.
func (r *IntersectionRasterizer) Fill(p *path.Data, emit func(y, xMin int, coverage []float32)) {
	r.width = int(r.Clip.URx) - int(r.Clip.LLx)
	r.height = int(r.Clip.URy) - int(r.Clip.LLy)
	if r.width <= 0 || r.height <= 0 {
		return
	}
	r.segs = r.segs[:0]

	originX, originY := r.Clip.LLx, r.Clip.LLy
	addLine := func(a, b vec.Vec2) {
		r.addLine(vec.Vec2{X: a.X - originX, Y: a.Y - originY}, vec.Vec2{X: b.X - originX, Y: b.Y - originY})
	}

	var current, subpath vec.Vec2
	coordIdx := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			current = p.Coords[coordIdx]
			subpath = current
			coordIdx++

		case path.CmdLineTo:
			addLine(current, p.Coords[coordIdx])
			current = p.Coords[coordIdx]
			coordIdx++

		case path.CmdQuadTo:
			r.flattenQuadratic(current, p.Coords[coordIdx], p.Coords[coordIdx+1], addLine)
			current = p.Coords[coordIdx+1]
			coordIdx += 2

		case path.CmdCubeTo:
			r.flattenCubic(current, p.Coords[coordIdx], p.Coords[coordIdx+1], p.Coords[coordIdx+2], addLine)
			current = p.Coords[coordIdx+2]
			coordIdx += 3

		case path.CmdClose:
			if current != subpath {
				addLine(current, subpath)
			}
			current = subpath
		}
	}

	if len(r.segs) == 0 {
		return
	}

	r.rasterize()

	originXInt := int(math.Floor(originX))
	originYInt := int(math.Floor(originY))
	r.rowScratch = r.rowScratch[:0]
	if cap(r.rowScratch) < r.width {
		r.rowScratch = make([]float32, r.width)
	} else {
		r.rowScratch = r.rowScratch[:r.width]
	}

	for y := 0; y < r.height; y++ {
		row := r.coverage[y*r.width : (y+1)*r.width]
		for x, c := range row {
			r.rowScratch[x] = float32(c) / 65535
		}
		if trimmed, offset := trimZeros(r.rowScratch); trimmed != nil {
			emit(y+originYInt, offset+originXInt, trimmed)
		}
	}
}

func (r *IntersectionRasterizer) flattenQuadratic(p0, p1, p2 vec.Vec2, emit func(a, b vec.Vec2)) {
	e := p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25)
	flatness := r.Flatness
	if flatness <= 0 {
		flatness = defaultFlatness
	}
	n := 1
	if errLen := e.Length(); errLen > flatness {
		n = int(math.Ceil(math.Sqrt(errLen / flatness)))
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

func (r *IntersectionRasterizer) flattenCubic(p0, p1, p2, p3 vec.Vec2, emit func(a, b vec.Vec2)) {
	d1 := p0.Sub(p1.Mul(2)).Add(p2)
	d2 := p1.Sub(p2.Mul(2)).Add(p3)
	flatness := r.Flatness
	if flatness <= 0 {
		flatness = defaultFlatness
	}
	m := max(d1.Length(), d2.Length())
	n := 1
	if m > 0 {
		nFloat := math.Sqrt(3 * m / (4 * flatness))
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

func (r *IntersectionRasterizer) addLine(a, b vec.Vec2) {
	if a.Y == b.Y {
		return
	}
	top, bottom := a, b
	winding := -1
	if b.Y > a.Y {
		top, bottom = b, a
		winding = 1
	}
	dx := (top.X - bottom.X) / (top.Y - bottom.Y)
	r.segs = append(r.segs, ixSegment{
		top: top, bottom: bottom, winding: winding, dx: dx,
		currentX: bottom.X, nextX: bottom.X, prev: -1, next: -1,
	})
}

// rasterize runs the event-driven sweep over r.segs, filling
// r.coverage (a dense width*height u16 buffer).
func (r *IntersectionRasterizer) rasterize() {
	n := r.width * r.height
	if cap(r.coverage) < n {
		r.coverage = make([]uint16, n)
	} else {
		r.coverage = r.coverage[:n]
		clear(r.coverage)
	}

	r.events = r.events[:0]
	maxY := float64(r.height)
	for idx := range r.segs {
		s := &r.segs[idx]
		r.events = append(r.events, ixEvent{y: s.bottom.Y, kind: ixStart, value: idx})
		r.events = append(r.events, ixEvent{y: s.top.Y, kind: ixEnd, value: idx})
		if s.top.Y > 0 && s.top.Y <= maxY {
			r.events = append(r.events, ixEvent{y: s.top.Y, kind: ixScanline})
		}
		if s.bottom.Y > 0 && s.bottom.Y <= maxY {
			r.events = append(r.events, ixEvent{y: s.bottom.Y, kind: ixScanline})
		}
	}
	heap.Init(&r.events)
	r.activeHead = -1

	lastY := 0.0
	haveLast := false
	var lastEvent ixEvent
	for r.events.Len() > 0 {
		event := heap.Pop(&r.events).(ixEvent)
		if haveLast && event == lastEvent {
			continue
		}
		lastEvent = event
		haveLast = true

		switch event.kind {
		case ixIntersection:
			r.processIntersection(lastY, event.value)

		case ixStart:
			r.activateSegment(event.y, event.value)

		case ixEnd:
			r.deactivateSegment(event.y, event.value)

		case ixScanline:
			nextY := event.y
			for i := r.activeHead; i != -1; i = r.segs[i].next {
				r.segs[i].nextX = r.segs[i].xAtY(nextY)
			}
			r.addCoverageBetween(nextY, lastY)
			for i := range r.segs {
				r.segs[i].currentX = r.segs[i].nextX
			}
			lastY = nextY
		}
	}
}

// activateSegment inserts segment i into the x-sorted active list at
// height currentY, breaking ties between coincident starting points by
// the cross product of the two segments' direction vectors so that the
// one bending further right is ordered after the other.
func (r *IntersectionRasterizer) activateSegment(currentY float64, i int) {
	x := r.segs[i].currentX
	prev := -1
	next := r.activeHead
	for next != -1 {
		ns := &r.segs[next]
		cont := false
		if ns.currentX < x {
			cont = true
		} else if ns.currentX == x {
			ax := r.segs[i].top.X - x
			ay := r.segs[i].top.Y - currentY
			bx := ns.top.X - x
			by := ns.top.Y - currentY
			cross := bx*ay - by*ax
			cont = cross < 0
		}
		if !cont {
			break
		}
		prev = next
		next = ns.next
	}

	insertedNext := -1
	if prev == -1 {
		head := r.activeHead
		r.segs[i].prev = -1
		r.segs[i].next = head
		r.activeHead = i
		if head != -1 {
			r.segs[head].prev = i
			insertedNext = head
		}
	} else {
		n := r.segs[prev].next
		r.segs[i].prev = prev
		r.segs[i].next = n
		r.segs[prev].next = i
		if n != -1 {
			r.segs[n].prev = i
		}
		insertedNext = n
	}

	if prev != -1 {
		r.checkForIntersection(currentY, prev, i)
	}
	if insertedNext != -1 {
		r.checkForIntersection(currentY, i, insertedNext)
	}
}

func (r *IntersectionRasterizer) deactivateSegment(currentY float64, i int) {
	prev := r.segs[i].prev
	next := r.segs[i].next
	if prev != -1 {
		r.segs[prev].next = next
	} else {
		r.activeHead = next
	}
	if next != -1 {
		r.segs[next].prev = prev
	}
	r.segs[i].prev, r.segs[i].next = -1, -1
	if prev != -1 && next != -1 {
		r.checkForIntersection(currentY, prev, next)
	}
}

// processIntersection swaps the active-list order of segment i and its
// successor once their predicted crossing height is reached.
func (r *IntersectionRasterizer) processIntersection(lastY float64, i int) {
	prev := r.segs[i].prev
	next := r.segs[i].next
	if next == -1 {
		return
	}
	nextNext := r.segs[next].next

	if prev != -1 {
		r.segs[prev].next = next
	} else {
		r.activeHead = next
	}
	r.segs[next].prev = prev
	r.segs[next].next = i
	r.segs[i].prev = next
	r.segs[i].next = nextNext
	if nextNext != -1 {
		r.segs[nextNext].prev = i
	}

	if prev != -1 {
		r.checkForIntersection(lastY, prev, next)
	}
	if nextNext != -1 {
		r.checkForIntersection(lastY, i, nextNext)
	}
}

// checkForIntersection schedules an Intersection/Scanline event pair if
// segments ai and bi (adjacent in the active list) cross above currentY.
func (r *IntersectionRasterizer) checkForIntersection(currentY float64, ai, bi int) {
	y, ok := r.findIntersectionY(currentY, ai, bi)
	if !ok || y <= currentY {
		return
	}
	heap.Push(&r.events, ixEvent{y: y, kind: ixIntersection, value: ai})
	if y > 0 && y <= float64(r.height) {
		heap.Push(&r.events, ixEvent{y: y, kind: ixScanline})
	}
}

// findIntersectionY locates, via ternary search on |Δx(y)| (the
// distance between the two segments' x position at height y), the
// height above currentY at which segments ai and bi cross. Segments
// whose bottom endpoints and top endpoints have the same left-to-right
// order (or share an x) are rejected cheaply before searching.
func (r *IntersectionRasterizer) findIntersectionY(currentY float64, ai, bi int) (float64, bool) {
	a := &r.segs[ai]
	b := &r.segs[bi]

	if a.bottom.X == b.bottom.X {
		return 0, false
	}
	bottomLess := a.bottom.X < b.bottom.X
	if a.top.X == b.top.X {
		return 0, false
	}
	topLess := a.top.X < b.top.X
	if bottomLess == topLess {
		return 0, false
	}

	topY := math.Min(a.top.Y, b.top.Y)
	bottomY := currentY
	if topY <= bottomY {
		return 0, false
	}

	dist := func(y float64) float64 { return math.Abs(a.xAtY(y) - b.xAtY(y)) }
	const tolerance = 1.0 / 32
	for topY-bottomY > tolerance {
		third := (topY - bottomY) / 3
		midLeft := bottomY + third
		midRight := topY - third
		if dist(midLeft) < dist(midRight) {
			topY = midRight
		} else {
			bottomY = midLeft
		}
	}

	intersectionY := (bottomY + topY) / 2
	if math.Abs(intersectionY-math.Min(a.top.Y, b.top.Y)) <= tolerance {
		return 0, false
	}
	if math.Abs(intersectionY-currentY) <= tolerance {
		return 0, false
	}
	return intersectionY, true
}

// addCoverageBetween pairs up the active list into winding-zero spans
// (start..end) and accumulates each span's trapezoidal coverage between
// heights lastY and nextY.
func (r *IntersectionRasterizer) addCoverageBetween(nextY, lastY float64) {
	windingCount := 0
	var start *ixSegment
	for i := r.activeHead; i != -1; {
		seg := &r.segs[i]
		if windingCount == 0 {
			start = seg
		}
		windingCount += seg.winding
		if windingCount == 0 {
			trap := ixTrapezoid{
				top: nextY, txl: start.nextX, txr: seg.nextX,
				bottom: lastY, bxl: start.currentX, bxr: seg.currentX,
			}
			r.addTrapezoidCoverage(&trap, start, seg)
		}
		i = seg.next
	}
}

func (r *IntersectionRasterizer) addTrapezoidCoverage(trap *ixTrapezoid, sleft, sright *ixSegment) {
	pixelTop := int(math.Ceil(trap.top))
	pixelBottom := int(math.Floor(trap.bottom))

	top := math.Min(math.Floor(trap.bottom)+1, trap.top)
	cur := ixTrapezoid{top: top, bottom: trap.bottom, bxl: trap.bxl, bxr: trap.bxr}
	if top == trap.top {
		cur.txl, cur.txr = trap.txl, trap.txr
	} else {
		cur.txl, cur.txr = sleft.xAtY(top), sright.xAtY(top)
	}

	for py := pixelBottom; py < pixelTop; py++ {
		r.addTrapezoidRowCoverage(py, &cur)

		if frac(cur.bottom) == 0 {
			cur.bottom++
			cur.bxl += sleft.dx
			cur.bxr += sright.dx
		} else {
			cur.bottom = math.Ceil(cur.bottom)
			cur.bxl = sleft.xAtY(cur.bottom)
			cur.bxr = sright.xAtY(cur.bottom)
		}

		cur.top++
		if trap.top < cur.top {
			cur.top = trap.top
			cur.txl, cur.txr = trap.txl, trap.txr
		} else {
			cur.txl += sleft.dx
			cur.txr += sright.dx
		}
	}
}

func (r *IntersectionRasterizer) addTrapezoidRowCoverage(py int, cur *ixTrapezoid) {
	if py < 0 || py >= r.height {
		return
	}

	pixelLeft := clampInt(int(math.Floor(math.Min(cur.txl, cur.bxl))), 0, r.width)
	pixelRight := clampInt(int(math.Ceil(math.Max(cur.txr, cur.bxr))), 0, r.width)
	if pixelLeft >= pixelRight {
		return
	}

	fpy := float64(py)
	var yCoverage float64
	if !(cur.top >= fpy+1 && cur.bottom <= fpy) {
		dTop := cur.top - fpy - 1
		dBot := fpy - cur.bottom
		yCoverage = math.Min(dTop, 0) + math.Min(dBot, 0)
	}

	innerLeft := clampInt(int(math.Ceil(math.Max(cur.txl, cur.bxl))), 0, r.width)
	innerRight := clampInt(int(math.Floor(math.Min(cur.txr, cur.bxr))), 0, r.width)
	innerH := cur.top - cur.bottom

	row := py * r.width
	for px := pixelLeft; px < pixelRight; px++ {
		fpx := float64(px)

		var lhit float64
		if px < innerLeft {
			topRight := clampF(cur.txl, fpx, fpx+1)
			bottomRight := clampF(cur.bxl, fpx, fpx+1)
			lhit = ((fpx - topRight) + (fpx - bottomRight)) * innerH / 2
		}

		var rhit float64
		if px >= innerRight {
			topLeft := clampF(cur.txr, fpx, fpx+1)
			bottomLeft := clampF(cur.bxr, fpx, fpx+1)
			rhit = ((topLeft - (fpx + 1)) + (bottomLeft - (fpx + 1))) * innerH / 2
		}

		coverage := 1 + yCoverage + lhit + rhit
		r.coverage[row+px] = saturatingAddU16(r.coverage[row+px], fixedpoint.CoverageToU16(coverage))
	}
}

func frac(x float64) float64 { return x - math.Floor(x) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func saturatingAddU16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	if sum > 0xFFFF {
		return 0xFFFF
	}
	return uint16(sum)
}
