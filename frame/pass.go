// Package frame implements spec §4.7: the per-frame layout pass
// (unchanged-interval bookkeeping over event ranges and animation points,
// plus fragment recording) and the display pass that walks the resulting
// fragment tree into paint operations.
package frame

import (
	"corvid.dev/go/subray/subtitle"
	"corvid.dev/go/subray/textlayout"
)

// SubtitleContext is spec §4.7's per-frame context: viewport geometry and
// the DPI scale a format-specific layouter resolves font sizes/paddings
// against.
type SubtitleContext struct {
	DPI                                  float64
	VideoWidth, VideoHeight              float64
	PadLeft, PadTop, PadRight, PadBottom float64
}

// Fragment is a positioned piece of laid-out content: textlayout's output
// for one event, anchored at (X, Y) in device pixels, plus the source
// items the layout's LineSegment.SourceItemIndex values index into (so
// DisplayPass can recover each segment's style). Children lets a
// format-specific layouter nest fragments (e.g. a container box around
// several events' output); DisplayPass visits a fragment, then its
// children, in order, matching spec §5's "z-order within a fragment tree
// follows the recursive walk".
type Fragment struct {
	X, Y     float64
	Layout   *textlayout.Result
	Items    []subtitle.InlineItem
	Children []*Fragment
}

// Pass implements spec §4.7's FrameLayoutPass: a format-specific
// layouter calls AddEventRange per candidate event and AddAnimationPoint
// per animation boundary it discovers while building fragments via
// EmitFragment, narrowing the unchanged interval as it goes.
type Pass struct {
	ctx SubtitleContext
	t   int64

	unchanged       subtitle.Interval
	animationPoints []int64
	fragments       []*Fragment
}

// NewPass starts a layout pass for timestamp t against ctx, with the
// unchanged interval initialized to (−∞, +∞).
func NewPass(ctx SubtitleContext, t int64) *Pass {
	return &Pass{
		ctx:       ctx,
		t:         t,
		unchanged: subtitle.Interval{Start: subtitle.NegInf, End: subtitle.PosInf},
	}
}

// AddEventRange reports whether t falls within iv, narrowing the
// unchanged interval: if t is inside, the interval is intersected with
// iv (the event's own bounds constrain when it can start/stop applying);
// if t is outside, only iv's edge nearer to t can affect the next
// unchanged interval, so that edge tightens whichever bound of the
// unchanged interval it falls on the near side of.
func (p *Pass) AddEventRange(iv subtitle.Interval) bool {
	inside := iv.Contains(p.t)
	switch {
	case inside:
		if iv.Start > p.unchanged.Start {
			p.unchanged.Start = iv.Start
		}
		if iv.End < p.unchanged.End {
			p.unchanged.End = iv.End
		}
	case iv.End <= p.t:
		if iv.End > p.unchanged.Start {
			p.unchanged.Start = iv.End
		}
	default: // iv.Start > p.t
		if iv.Start < p.unchanged.End {
			p.unchanged.End = iv.Start
		}
	}
	return inside
}

// AddAnimationPoint further narrows the unchanged interval around t: a
// point at or before t tightens the lower bound, a point after t tightens
// the upper bound. tPoint is also recorded for AnimationPoints.
func (p *Pass) AddAnimationPoint(tPoint int64) {
	p.animationPoints = append(p.animationPoints, tPoint)
	if tPoint <= p.t {
		if tPoint > p.unchanged.Start {
			p.unchanged.Start = tPoint
		}
	} else {
		if tPoint < p.unchanged.End {
			p.unchanged.End = tPoint
		}
	}
}

// EmitFragment records a positioned fragment to paint.
func (p *Pass) EmitFragment(f *Fragment) {
	p.fragments = append(p.fragments, f)
}

// UnchangedInterval returns the interval around t within which the
// caller may skip re-running layout entirely (spec §4.7).
func (p *Pass) UnchangedInterval() subtitle.Interval { return p.unchanged }

// AnimationPoints returns every animation timestamp recorded this pass,
// in call order (SPEC_FULL's supplemented first-class animation-point
// list, see SPEC_FULL.md §D.4).
func (p *Pass) AnimationPoints() []int64 {
	return append([]int64(nil), p.animationPoints...)
}

// Fragments returns the top-level fragment tree recorded this pass.
func (p *Pass) Fragments() []*Fragment { return p.fragments }
