package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"corvid.dev/go/subray/subtitle"
)

func TestAddEventRangeInsideIntersects(t *testing.T) {
	p := NewPass(SubtitleContext{}, 500)
	inside := p.AddEventRange(subtitle.Interval{Start: 100, End: 900})
	assert.True(t, inside)
	got := p.UnchangedInterval()
	assert.Equal(t, int64(100), got.Start)
	assert.Equal(t, int64(900), got.End)
}

func TestAddEventRangeOutsideNarrowsNearEdge(t *testing.T) {
	p := NewPass(SubtitleContext{}, 500)
	// An event entirely before t: only its End (the nearer edge) can
	// matter, tightening the lower bound.
	inside := p.AddEventRange(subtitle.Interval{Start: 0, End: 200})
	assert.False(t, inside)
	assert.Equal(t, int64(200), p.UnchangedInterval().Start)
	assert.Equal(t, subtitle.PosInf, p.UnchangedInterval().End)

	// An event entirely after t tightens the upper bound instead.
	inside = p.AddEventRange(subtitle.Interval{Start: 800, End: 1000})
	assert.False(t, inside)
	assert.Equal(t, int64(200), p.UnchangedInterval().Start)
	assert.Equal(t, int64(800), p.UnchangedInterval().End)
}

func TestAddEventRangeNeverWidens(t *testing.T) {
	p := NewPass(SubtitleContext{}, 500)
	p.AddEventRange(subtitle.Interval{Start: 300, End: 700})
	// A wider event containing the same point must not widen the
	// already-narrowed interval back out.
	p.AddEventRange(subtitle.Interval{Start: 0, End: 1000})
	got := p.UnchangedInterval()
	assert.Equal(t, int64(300), got.Start)
	assert.Equal(t, int64(700), got.End)
}

func TestAddAnimationPointNarrowsAndRecords(t *testing.T) {
	p := NewPass(SubtitleContext{}, 500)
	p.AddAnimationPoint(450)
	p.AddAnimationPoint(600)
	got := p.UnchangedInterval()
	assert.Equal(t, int64(450), got.Start)
	assert.Equal(t, int64(600), got.End)
	assert.Equal(t, []int64{450, 600}, p.AnimationPoints())
}

func TestNoAnimationPointSameIntervalMeansNoChange(t *testing.T) {
	// Spec §8 scenario 6: two timestamps within the same event interval
	// and no animation point between them share an unchanged interval.
	p1 := NewPass(SubtitleContext{}, 100)
	p1.AddEventRange(subtitle.Interval{Start: 0, End: 1000})
	p2 := NewPass(SubtitleContext{}, 200)
	p2.AddEventRange(subtitle.Interval{Start: 0, End: 1000})

	iv := p1.UnchangedInterval()
	assert.True(t, iv.Contains(200), "t2 should fall inside t1's unchanged interval")
}

func TestEmitFragmentAndFragments(t *testing.T) {
	p := NewPass(SubtitleContext{}, 0)
	f := &Fragment{X: 1, Y: 2}
	p.EmitFragment(f)
	assert.Equal(t, []*Fragment{f}, p.Fragments())
}
