// Package subtitle defines the minimal "Subtitle event" surface spec §3
// describes as the boundary with format-specific parsers (SRV3, WebVTT,
// ASS). Those parsers are out of scope per spec.md §1; this package only
// gives a hypothetical external parser something to populate and gives
// frame.Pass something to consume.
package subtitle

import "corvid.dev/go/subray/style"

// Alignment is the anchor-relative text alignment of an event.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// RubySide selects whether a ruby annotation sits above or below its
// base, generalizing spec §4.5's "above" description per the glossary's
// "(or below)" note (see SPEC_FULL.md §D.3).
type RubySide int

const (
	RubyAbove RubySide = iota
	RubyBelow
)

// InlineKind distinguishes the inline item variants a line-breaking pass
// (textlayout) must handle.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineRubyBase
	InlineRubyAnnotation
	// InlineSkip marks a segment to be excluded from layout output while
	// preserving the input index of every other segment (spec §4.5's
	// "marker used to skip segments from output while preserving input
	// indices") — useful for a format-specific parser to leave a
	// placeholder for e.g. a karaoke timing tag it doesn't render.
	InlineSkip
)

// InlineItem is one element of an event's content: a text run with a
// style, or a ruby base/annotation. RubyBaseIndex is only meaningful
// when Kind == InlineRubyAnnotation: it is the index (within the same
// Event.Inline slice) of the base this annotation is bound to.
type InlineItem struct {
	Kind          InlineKind
	Text          string
	Style         style.ComputedStyle
	RubySide      RubySide
	RubyBaseIndex int
}

// Event is spec §3's Subtitle event record: a time interval, an anchor
// position in normalized (0..1) video-relative coordinates, an
// alignment, and the ordered inline content.
type Event struct {
	StartMs, EndMs int64
	AnchorX, AnchorY float64
	Alignment      Alignment
	Inline         []InlineItem
}

// Interval is a half-open millisecond range [Start, End). It is used
// both for an Event's own timing and for frame.Pass's unchanged-interval
// bookkeeping (spec §4.7), which operates over (−∞,+∞) as well as
// concrete event ranges, hence the two infinity sentinels below.
type Interval struct {
	Start, End int64
}

// NegInf and PosInf bound an Interval that extends unboundedly in one
// direction, standing in for spec's (−∞, +∞).
const (
	NegInf = int64(-1) << 62
	PosInf = int64(1) << 62
)

// Contains reports whether t falls within the half-open interval.
func (iv Interval) Contains(t int64) bool { return t >= iv.Start && t < iv.End }

// EventInterval returns e's own timing as an Interval.
func (e Event) EventInterval() Interval { return Interval{Start: e.StartMs, End: e.EndMs} }

// Subtitles is an immutable (after construction), reference-counted-by-
// convention collection of Events, shared between the caller and the
// renderer per spec §5. Go's garbage collector makes the explicit
// refcount spec mentions unnecessary; sharing is simply "pass the same
// *Subtitles pointer around".
type Subtitles struct {
	Events []Event
}

// New returns a Subtitles wrapping events. events is not copied;
// callers must treat it as immutable afterward.
func New(events []Event) *Subtitles {
	return &Subtitles{Events: events}
}

// EventsActiveAt returns every event whose interval contains t, in
// input order.
func (s *Subtitles) EventsActiveAt(t int64) []Event {
	var out []Event
	for _, e := range s.Events {
		if e.EventInterval().Contains(t) {
			out = append(out, e)
		}
	}
	return out
}
