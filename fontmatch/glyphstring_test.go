package fontmatch

import "testing"

func TestMarkClusterBoundaries(t *testing.T) {
	glyphs := []Glyph{
		{Cluster: 0}, // ligature head, cluster 0
		{Cluster: 0}, // same cluster: not a boundary
		{Cluster: 2}, // new cluster: boundary
	}
	markClusterBoundaries(glyphs)

	want := []bool{true, false, true}
	for i, w := range want {
		if glyphs[i].SafeToBreak != w || glyphs[i].SafeToConcat != w {
			t.Fatalf("glyph %d: expected boundary=%v, got break=%v concat=%v", i, w, glyphs[i].SafeToBreak, glyphs[i].SafeToConcat)
		}
	}
}

func TestGlyphStringAdvanceWidth(t *testing.T) {
	gs := NewGlyphString([]Glyph{
		{Advance: 10 << 6},
		{Advance: 20 << 6},
	})
	if got := gs.AdvanceWidth(); got.Float64() != 30 {
		t.Fatalf("expected total advance 30, got %v", got.Float64())
	}
}

func TestSplitAtExactSafeBoundaryNeedsNoReshape(t *testing.T) {
	glyphs := []Glyph{
		{Cluster: 0, SafeToBreak: true, SafeToConcat: true},
		{Cluster: 1, SafeToBreak: true, SafeToConcat: true},
		{Cluster: 2, SafeToBreak: true, SafeToConcat: true},
	}
	gs := NewGlyphString(glyphs)
	buf := &ShapingBuffer{Text: []rune("abc")}

	left, right, err := gs.SplitAt(1, buf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(left.All()) != 1 || len(right.All()) != 2 {
		t.Fatalf("expected split 1/2 glyphs, got %d/%d", len(left.All()), len(right.All()))
	}
	if left.All()[0].Cluster != 0 || right.All()[0].Cluster != 1 {
		t.Fatalf("split landed on the wrong glyphs: left=%v right=%v", left.All(), right.All())
	}
}
