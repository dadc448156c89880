package outline

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// Stroker implements spec §4.2: given an outline and a pair of x/y
// stroke radii, it produces two outlines — the left-side (top) and
// right-side (bottom) offset curves — whose union under non-zero fill
// is the stroked region.
//
// This generalizes the teacher library's closed-polygon stroke
// construction (raster.Rasterizer.Stroke / strokeSubpath in stroke.go,
// which emits one winding-compatible polygon per subpath) into the
// two-separate-offset-curve contract spec §4.2 calls for, including its
// specific merge/cap decision thresholds. Quadratics are subdivided by
// de Casteljau splitting and offset chord by chord.
type Stroker struct {
	// XRadius, YRadius are the stroke radii along the x and y axes. A
	// uniform stroke sets both to the same value; non-uniform radii
	// let an anisotropic CTM (already baked into the radii by the
	// caller) be approximated without re-deriving an elliptical offset.
	XRadius, YRadius float64

	// RelEps controls the normal-merge / cap-split thresholds below.
	// Spec's default is a small relative tolerance; 1e-4 matches the
	// teacher's own collinearity/cusp tolerances in stroke.go.
	RelEps float64
}

// NewStroker returns a Stroker with the given (possibly equal) radii
// and the default tolerance.
func NewStroker(xRadius, yRadius float64) *Stroker {
	if xRadius < eps || yRadius < eps {
		panic("outline: stroker radius must be >= eps")
	}
	return &Stroker{XRadius: xRadius, YRadius: yRadius, RelEps: 1e-4}
}

const eps = 1e-9

func (s *Stroker) mergeCos() float64 {
	return 1 - s.relEps()
}

func (s *Stroker) relEps() float64 {
	if s.RelEps <= 0 {
		return 1e-4
	}
	return s.RelEps
}

// splitCos is the cosine threshold at which recursive arc subdivision
// stops, per spec §4.2: split_cos = 1 + 8·rel_eps − 4(1+rel_eps)·√(2·rel_eps).
func (s *Stroker) splitCos() float64 {
	re := s.relEps()
	return 1 + 8*re - 4*(1+re)*math.Sqrt(2*re)
}

// Stroke produces the top (left-side) and bottom (right-side) offset
// outlines for o. Degenerate (zero-length) contours are skipped.
func (s *Stroker) Stroke(o *Outline) (top, bottom *Outline) {
	topB := NewBuilder()
	botB := NewBuilder()

	for _, contour := range splitContours(Segments(o)) {
		if len(contour) == 0 {
			continue
		}
		s.strokeContour(contour, topB, botB)
	}
	return topB.Outline(), botB.Outline()
}

func splitContours(segs []Segment) [][]Segment {
	var out [][]Segment
	var cur []Segment
	curID := -1
	for _, seg := range segs {
		if seg.ContourID != curID {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			curID = seg.ContourID
		}
		cur = append(cur, seg)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// offsetPoint returns p moved along the unit normal (rotated 90° CCW
// from tangent), scaled per-axis by the stroker's radii.
func (s *Stroker) offsetPoint(p, tangent vec.Vec2) vec.Vec2 {
	n := unitNormal(tangent)
	return vec.Vec2{X: p.X + n.X*s.XRadius, Y: p.Y + n.Y*s.YRadius}
}

func unitNormal(t vec.Vec2) vec.Vec2 {
	l := math.Hypot(t.X, t.Y)
	if l < eps {
		return vec.Vec2{}
	}
	tx, ty := t.X/l, t.Y/l
	return vec.Vec2{X: -ty, Y: tx}
}

func tangentOf(from, to vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: to.X - from.X, Y: to.Y - from.Y}
}

func (s *Stroker) strokeContour(contour []Segment, topB, botB *Builder) {
	type offsetSeg struct {
		startTangent, endTangent vec.Vec2
		points                   []vec.Vec2 // flattened-ish output points (start excluded)
		start                    vec.Vec2
	}

	// Build a flattened centerline polyline (quadratics are subdivided
	// until each piece passes the error test; cubics are converted to
	// quadratics first). Each chord is offset in the loop below.
	var flat []vec.Vec2
	flat = append(flat, contour[0].Start)
	for _, seg := range contour {
		switch seg.Degree {
		case Linear:
			flat = append(flat, seg.Points[0])
		case Quadratic:
			flat = append(flat, s.offsetQuadraticPoints(seg.Start, seg.Points[0], seg.Points[1])...)
		case Cubic:
			for _, q := range seg.ToQuadratics(1e-2) {
				flat = append(flat, s.offsetQuadraticPoints(flat[len(flat)-1], q[0], q[1])...)
			}
		}
	}

	n := len(flat)
	if n < 2 {
		return
	}

	var lastNormalTop, lastNormalBot vec.Vec2
	first := true
	for i := 0; i < n-1; i++ {
		a, b := flat[i], flat[i+1]
		tangent := tangentOf(a, b)
		if math.Hypot(tangent.X, tangent.Y) < eps {
			continue
		}
		nrm := unitNormal(tangent)
		top := vec.Vec2{X: a.X + nrm.X*s.XRadius, Y: a.Y + nrm.Y*s.YRadius}
		bot := vec.Vec2{X: a.X - nrm.X*s.XRadius, Y: a.Y - nrm.Y*s.YRadius}

		if first {
			topB.MoveTo(top)
			botB.MoveTo(bot)
			first = false
		} else {
			cosTheta := dot(normalize(lastNormalTop), nrm)
			if cosTheta < s.mergeCos() {
				s.emitCap(topB, a, lastNormalTop, nrm, s.XRadius, s.YRadius)
				s.emitCap(botB, a, vec.Vec2{X: -lastNormalBot.X, Y: -lastNormalBot.Y}, vec.Vec2{X: -nrm.X, Y: -nrm.Y}, s.XRadius, s.YRadius)
			}
			topB.LineTo(top)
			botB.LineTo(bot)
		}
		lastNormalTop = nrm
		lastNormalBot = nrm
	}
	if first {
		return
	}

	topEnd := flat[n-1]
	tangentEnd := tangentOf(flat[n-2], flat[n-1])
	nrmEnd := unitNormal(tangentEnd)
	topB.LineTo(vec.Vec2{X: topEnd.X + nrmEnd.X*s.XRadius, Y: topEnd.Y + nrmEnd.Y*s.YRadius})
	botB.LineTo(vec.Vec2{X: topEnd.X - nrmEnd.X*s.XRadius, Y: topEnd.Y - nrmEnd.Y*s.YRadius})
	topB.Close()
	botB.Close()
}

func dot(a, b vec.Vec2) float64 { return a.X*b.X + a.Y*b.Y }

func normalize(a vec.Vec2) vec.Vec2 {
	l := math.Hypot(a.X, a.Y)
	if l < eps {
		return a
	}
	return vec.Vec2{X: a.X / l, Y: a.Y / l}
}

// emitCap adds a circular arc cap between normal directions n0 and n1
// (unit vectors) centred at p, using recursive midpoint insertion:
// cos(θ/2) = √((1+cosθ)/2). Subdivision stops once the cosine of the
// angle between the current pair of normals is at least splitCos, or
// after 15 recursions.
func (s *Stroker) emitCap(b *Builder, center vec.Vec2, n0, n1 vec.Vec2, xr, yr float64) {
	s.subdivideArc(b, center, n0, n1, xr, yr, 0)
}

func (s *Stroker) subdivideArc(b *Builder, center, n0, n1 vec.Vec2, xr, yr float64, depth int) {
	cosTheta := dot(n0, n1)
	if cosTheta >= s.splitCos() || depth >= 15 {
		b.LineTo(vec.Vec2{X: center.X + n1.X*xr, Y: center.Y + n1.Y*yr})
		return
	}
	// bisect through the midpoint normal: for |θ|>90° bisect first.
	mid := normalize(vec.Vec2{X: n0.X + n1.X, Y: n0.Y + n1.Y})
	if math.Hypot(mid.X, mid.Y) < eps {
		// n0 and n1 are opposite; pick a perpendicular bisector.
		mid = vec.Vec2{X: -n0.Y, Y: n0.X}
	}
	s.subdivideArc(b, center, n0, mid, xr, yr, depth+1)
	s.subdivideArc(b, center, mid, n1, xr, yr, depth+1)
}

// offsetQuadraticPoints subdivides a quadratic Bézier for offsetting.
// If the predicted error (3+cosθ)² ≥ err_q·(1+cosθ), with
// err_q = 8(1+rel_eps)², the curve is split at t=0.5 (de Casteljau) and
// each half retried; otherwise the piece is accepted as one chord. It
// returns the centerline end points of the accepted pieces (start point
// excluded); strokeContour offsets each chord by the radii.
func (s *Stroker) offsetQuadraticPoints(p0, p1, p2 vec.Vec2) []vec.Vec2 {
	t0 := tangentOf(p0, p1)
	t1 := tangentOf(p1, p2)
	if math.Hypot(t0.X, t0.Y) < eps {
		t0 = tangentOf(p0, p2)
	}
	if math.Hypot(t1.X, t1.Y) < eps {
		t1 = tangentOf(p0, p2)
	}
	cosTheta := dot(normalize(t0), normalize(t1))
	re := s.relEps()
	errQ := 8 * (1 + re) * (1 + re)
	lhs := (3 + cosTheta) * (3 + cosTheta)
	rhs := errQ * (1 + cosTheta)
	if lhs >= rhs {
		// de Casteljau split at t=0.5
		p01 := mid(p0, p1)
		p12 := mid(p1, p2)
		p012 := mid(p01, p12)
		left := s.offsetQuadraticPoints(p0, p01, p012)
		right := s.offsetQuadraticPoints(p012, p12, p2)
		return append(left, right...)
	}
	return []vec.Vec2{p2}
}
