// Package outline implements the path container described by spec §3:
// an ordered sequence of contours, each a sequence of segments of degree
// Linear, Quadratic, or Cubic, plus accessors that return a borrowed view
// into the underlying point array and curve-lowering helpers
// (flatten/to_quadratics).
//
// The concrete representation is seehuhn.de/go/geom/path.Data, the same
// command-stream-plus-flat-point-array representation the teacher
// library (seehuhn.de/go/raster) already walks in its collectPathEdges
// and flattenPath routines — path.Data's CmdMoveTo/CmdLineTo/CmdQuadTo/
// CmdCubeTo/CmdClose stream already is spec's "ordered sequence of
// contours, each a sequence of segments of degree Linear|Quadratic|
// Cubic", so Outline is a thin named type over it.
package outline

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// Outline is spec's Outline record: an ordered sequence of contours.
type Outline = path.Data

// Degree identifies a segment's kind (line, quadratic or cubic);
// NumControlPoints gives how many points it consumes after its starting
// point.
type Degree int

const (
	Linear Degree = iota
	Quadratic
	Cubic
)

// NumControlPoints returns how many points (after the start point) a
// segment of this degree consumes.
func (d Degree) NumControlPoints() int {
	switch d {
	case Linear:
		return 1
	case Quadratic:
		return 2
	case Cubic:
		return 3
	default:
		return 0
	}
}

// Segment is a borrowed view into an outline's point array: the
// accessor spec §3 calls SegmentCurve. Start is the segment's starting
// point (the previous segment's end, or the contour's MoveTo point).
// Points holds the control points consumed after Start (length equal to
// Degree.NumControlPoints()); for Linear, Points[0] is the line's
// endpoint; for Quadratic, Points[0] is the control point and Points[1]
// the endpoint; for Cubic, Points[0:2] are controls and Points[2] the
// endpoint.
type Segment struct {
	Degree    Degree
	Start     vec.Vec2
	Points    [3]vec.Vec2
	ContourID int  // index of the contour (MoveTo-delimited group) this segment belongs to
	Closer    bool // true if this segment's end point closes its contour
}

// End returns the segment's final point.
func (s Segment) End() vec.Vec2 {
	switch s.Degree {
	case Linear:
		return s.Points[0]
	case Quadratic:
		return s.Points[1]
	default:
		return s.Points[2]
	}
}

// Builder appends points to an Outline and tags each segment's final
// point as the closer of a contour, matching spec's OutlineBuilder.
// Builder enforces the invariant that every contour begins only after
// the previous one is closed.
type Builder struct {
	data       path.Data
	inContour  bool
	contourIdx int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{contourIdx: -1} }

// MoveTo starts a new contour at p, implicitly closing any open one.
func (b *Builder) MoveTo(p vec.Vec2) *Builder {
	if b.inContour {
		b.data.Close()
	}
	b.data.MoveTo(p)
	b.inContour = true
	b.contourIdx++
	return b
}

// LineTo appends a Linear segment.
func (b *Builder) LineTo(p vec.Vec2) *Builder {
	b.data.LineTo(p)
	return b
}

// QuadTo appends a Quadratic segment.
func (b *Builder) QuadTo(ctrl, p vec.Vec2) *Builder {
	b.data.QuadTo(ctrl, p)
	return b
}

// CubeTo appends a Cubic segment.
func (b *Builder) CubeTo(ctrl1, ctrl2, p vec.Vec2) *Builder {
	b.data.CubeTo(ctrl1, ctrl2, p)
	return b
}

// Close closes the current contour, connecting back to its start point.
func (b *Builder) Close() *Builder {
	if b.inContour {
		b.data.Close()
		b.inContour = false
	}
	return b
}

// Outline finalises the builder, closing any still-open contour.
func (b *Builder) Outline() *Outline {
	b.Close()
	out := b.data
	return &out
}

// Segments walks o and returns every segment as a borrowed-view
// Segment, tagging each contour's final segment's Closer flag.
func Segments(o *Outline) []Segment {
	var segs []Segment
	var current, contourStart vec.Vec2
	contourID := -1
	coordIdx := 0
	for _, cmd := range o.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			current = o.Coords[coordIdx]
			contourStart = current
			contourID++
			coordIdx++
		case path.CmdLineTo:
			p := o.Coords[coordIdx]
			segs = append(segs, Segment{Degree: Linear, Start: current, Points: [3]vec.Vec2{p}, ContourID: contourID})
			current = p
			coordIdx++
		case path.CmdQuadTo:
			c, p := o.Coords[coordIdx], o.Coords[coordIdx+1]
			segs = append(segs, Segment{Degree: Quadratic, Start: current, Points: [3]vec.Vec2{c, p}, ContourID: contourID})
			current = p
			coordIdx += 2
		case path.CmdCubeTo:
			c1, c2, p := o.Coords[coordIdx], o.Coords[coordIdx+1], o.Coords[coordIdx+2]
			segs = append(segs, Segment{Degree: Cubic, Start: current, Points: [3]vec.Vec2{c1, c2, p}, ContourID: contourID})
			current = p
			coordIdx += 3
		case path.CmdClose:
			if current != contourStart {
				segs = append(segs, Segment{Degree: Linear, Start: current, Points: [3]vec.Vec2{contourStart}, ContourID: contourID})
			}
			if len(segs) > 0 {
				segs[len(segs)-1].Closer = true
			}
			current = contourStart
		}
	}
	return segs
}

// Flatten lowers a segment to a polyline (a sequence of points starting
// implicitly at s.Start) within the given tolerance (maximum deviation,
// in the same units as the segment's coordinates).
func (s Segment) Flatten(tolerance float64) []vec.Vec2 {
	switch s.Degree {
	case Linear:
		return []vec.Vec2{s.Points[0]}
	case Quadratic:
		return flattenQuadratic(s.Start, s.Points[0], s.Points[1], tolerance)
	default:
		return flattenCubic(s.Start, s.Points[0], s.Points[1], s.Points[2], tolerance)
	}
}

func flattenQuadratic(p0, p1, p2 vec.Vec2, tolerance float64) []vec.Vec2 {
	e := sub(add(p0, p2), scale(p1, 2))
	e = scale(e, 0.25)
	errv := length(e)
	n := 1
	if errv > tolerance {
		n = int(math.Ceil(math.Sqrt(errv / tolerance)))
	}
	pts := make([]vec.Vec2, 0, n)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		pt := add(add(scale(p0, omt*omt), scale(p1, 2*omt*t)), scale(p2, t*t))
		pts = append(pts, pt)
	}
	return pts
}

func flattenCubic(p0, p1, p2, p3 vec.Vec2, tolerance float64) []vec.Vec2 {
	d1 := sub(add(p0, p2), scale(p1, 2))
	d2 := sub(add(p1, p3), scale(p2, 2))
	m := math.Max(length(d1), length(d2))
	n := 1
	if m > 0 {
		nf := math.Sqrt(3 * m / (4 * tolerance))
		if nf > 1 {
			n = int(math.Ceil(nf))
		}
	}
	pts := make([]vec.Vec2, 0, n)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		omt2 := omt * omt
		omt3 := omt2 * omt
		t2 := t * t
		t3 := t2 * t
		pt := add(add(add(scale(p0, omt3), scale(p1, 3*omt2*t)), scale(p2, 3*omt*t2)), scale(p3, t3))
		pts = append(pts, pt)
	}
	return pts
}

// ToQuadratics lowers a Cubic segment to a sequence of Quadratic control
// points (pairs of (ctrl, end)) within tolerance, via recursive midpoint
// subdivision: a cubic can be approximated by a single quadratic sharing
// its endpoints when the cubic's two deviation vectors are small; when
// they are not, the cubic is split at t=0.5 (de Casteljau) and each half
// retried.
func (s Segment) ToQuadratics(tolerance float64) [][2]vec.Vec2 {
	if s.Degree != Cubic {
		panic("ToQuadratics: segment is not cubic")
	}
	return toQuadratics(s.Start, s.Points[0], s.Points[1], s.Points[2], tolerance, 0)
}

func toQuadratics(p0, p1, p2, p3 vec.Vec2, tolerance float64, depth int) [][2]vec.Vec2 {
	// approximate quadratic control point via the standard 3/4 rule
	c1 := add(p0, scale(sub(p1, p0), 1.5))
	c2 := add(p3, scale(sub(p2, p3), 1.5))
	ctrl := scale(add(c1, c2), 0.5)

	// deviation estimate: distance between the two 3/4-rule estimates
	dev := length(sub(c1, c2))
	if dev <= tolerance || depth >= 24 {
		return [][2]vec.Vec2{{ctrl, p3}}
	}

	// de Casteljau split at t=0.5
	p01 := mid(p0, p1)
	p12 := mid(p1, p2)
	p23 := mid(p2, p3)
	p012 := mid(p01, p12)
	p123 := mid(p12, p23)
	p0123 := mid(p012, p123)

	left := toQuadratics(p0, p01, p012, p0123, tolerance, depth+1)
	right := toQuadratics(p0123, p123, p23, p3, tolerance, depth+1)
	return append(left, right...)
}

func add(a, b vec.Vec2) vec.Vec2   { return vec.Vec2{X: a.X + b.X, Y: a.Y + b.Y} }
func sub(a, b vec.Vec2) vec.Vec2   { return vec.Vec2{X: a.X - b.X, Y: a.Y - b.Y} }
func scale(a vec.Vec2, s float64) vec.Vec2 { return vec.Vec2{X: a.X * s, Y: a.Y * s} }
func mid(a, b vec.Vec2) vec.Vec2   { return scale(add(a, b), 0.5) }
func length(a vec.Vec2) float64    { return math.Hypot(a.X, a.Y) }
