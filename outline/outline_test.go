package outline

import (
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"
)

func square(x0, y0, x1, y1 float64) *Outline {
	b := NewBuilder()
	b.MoveTo(vec.Vec2{X: x0, Y: y0})
	b.LineTo(vec.Vec2{X: x1, Y: y0})
	b.LineTo(vec.Vec2{X: x1, Y: y1})
	b.LineTo(vec.Vec2{X: x0, Y: y1})
	b.Close()
	return b.Outline()
}

func TestSegmentsClosesContour(t *testing.T) {
	o := square(0, 0, 10, 10)
	segs := Segments(o)
	if len(segs) == 0 {
		t.Fatal("expected segments")
	}
	if !segs[len(segs)-1].Closer {
		t.Error("expected final segment to be tagged as contour closer")
	}
	for _, s := range segs {
		if s.Degree != Linear {
			t.Errorf("square should only have linear segments, got %v", s.Degree)
		}
	}
}

func TestFlattenQuadraticEndpoint(t *testing.T) {
	s := Segment{
		Degree: Quadratic,
		Start:  vec.Vec2{X: 0, Y: 0},
		Points: [3]vec.Vec2{{X: 5, Y: 10}, {X: 10, Y: 0}},
	}
	pts := s.Flatten(0.01)
	if len(pts) == 0 {
		t.Fatal("expected flattened points")
	}
	last := pts[len(pts)-1]
	if math.Abs(last.X-10) > 1e-6 || math.Abs(last.Y-0) > 1e-6 {
		t.Errorf("flatten endpoint = %v, want (10,0)", last)
	}
}

func TestToQuadraticsEndpoint(t *testing.T) {
	s := Segment{
		Degree: Cubic,
		Start:  vec.Vec2{X: 0, Y: 0},
		Points: [3]vec.Vec2{{X: 3, Y: 10}, {X: 7, Y: 10}, {X: 10, Y: 0}},
	}
	quads := s.ToQuadratics(0.01)
	if len(quads) == 0 {
		t.Fatal("expected quadratics")
	}
	last := quads[len(quads)-1][1]
	if math.Abs(last.X-10) > 1e-6 || math.Abs(last.Y-0) > 1e-6 {
		t.Errorf("to_quadratics endpoint = %v, want (10,0)", last)
	}
}

func TestStrokerProducesTwoSides(t *testing.T) {
	o := square(0, 0, 20, 20)
	s := NewStroker(2, 2)
	top, bottom := s.Stroke(o)
	if len(top.Cmds) == 0 {
		t.Error("expected non-empty top outline")
	}
	if len(bottom.Cmds) == 0 {
		t.Error("expected non-empty bottom outline")
	}
}

func TestStrokerRejectsTooSmallRadius(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for radius below eps")
		}
	}()
	NewStroker(0, 1)
}
