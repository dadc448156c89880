// Package textlayout implements spec §4.5: multiline layout over a
// sequence of text/ruby segments, with explicit and Unicode-inferred
// line breaks, ruby base/annotation pairing, and per-line ascender/
// descender accounting.
package textlayout

import (
	"strings"

	"seehuhn.de/go/geom/rect"

	"corvid.dev/go/subray/fontmatch"
	"corvid.dev/go/subray/subtitle"
)

// Shaper is everything Layout needs from the font/shaping layer. The
// production implementation is fontmatch.Engine; tests supply a fake
// that doesn't need real font files.
type Shaper interface {
	Shape(text string, familyList []string, sizePx float64) (*fontmatch.GlyphString, error)
	Split(gs *fontmatch.GlyphString, text string, offset int, familyList []string, sizePx float64) (left, right *fontmatch.GlyphString, err error)
	Metrics(familyList []string, sizePx float64) (ascent, descent, lineGap float64, err error)
}

// LineSegment is one placed piece of shaped text within a line: a
// byte/rune range of one source subtitle.InlineItem, its shaped glyphs,
// and its origin relative to the overall layout's top-left.
type LineSegment struct {
	SourceItemIndex int
	ByteOffset      int // rune offset into the source item's Text this segment starts at
	Glyphs          *fontmatch.GlyphString
	OriginX         float64
	OriginY         float64 // baseline Y, relative to the layout's top
	IsRubyAnnotation bool
	RubySide        subtitle.RubySide
}

// ShapedLine is spec §4.5's output record.
type ShapedLine struct {
	Segments []LineSegment
	Width    float64
	Height   float64

	MaxAscender        float64
	MinDescender        float64 // negative: distance below baseline
	MaxLineskipDescent float64

	originYTop float64
}

// BoundingRect returns the line's bounding rectangle relative to the
// overall layout's top-left.
func (l ShapedLine) BoundingRect() rect.Rect {
	return rect.Rect{LLx: 0, LLy: l.originYTop, URx: l.Width, URy: l.originYTop + l.Height}
}

// Result is Layout's output: every line plus an overall bounding rect.
type Result struct {
	Lines        []ShapedLine
	BoundingRect rect.Rect
}

type itemMetrics struct {
	ascent, descent, lineGap float64
}

// Layout implements spec §4.5's line-breaking pass over items, wrapping
// to availableWidth. Ruby annotations (subtitle.InlineRubyAnnotation)
// must follow their base and reference it via RubyBaseIndex; skip
// markers (subtitle.InlineSkip) are ignored but do not shift any other
// item's index.
func Layout(shaper Shaper, items []subtitle.InlineItem, availableWidth float64) (*Result, error) {
	metrics := make([]itemMetrics, len(items))
	annotationOf := make(map[int]int)
	for i, it := range items {
		if it.Kind == subtitle.InlineSkip {
			continue
		}
		fs := it.Style.Font()
		a, d, lg, err := shaper.Metrics(fs.FamilyList, fs.SizePx)
		if err != nil {
			return nil, err
		}
		metrics[i] = itemMetrics{ascent: a, descent: d, lineGap: lg}
		if it.Kind == subtitle.InlineRubyAnnotation {
			annotationOf[it.RubyBaseIndex] = i
		}
	}

	b := &builder{shaper: shaper, items: items, metrics: metrics, availableWidth: availableWidth}

	for i, it := range items {
		switch it.Kind {
		case subtitle.InlineSkip, subtitle.InlineRubyAnnotation:
			continue
		case subtitle.InlineRubyBase:
			annIdx, ok := annotationOf[i]
			if !ok {
				annIdx = -1
			}
			if err := b.placeRuby(i, annIdx); err != nil {
				return nil, err
			}
		case subtitle.InlineText:
			if err := b.placeText(i); err != nil {
				return nil, err
			}
		}
	}
	b.finishLine()

	return b.result(), nil
}

type builder struct {
	shaper         Shaper
	items          []subtitle.InlineItem
	metrics        []itemMetrics
	availableWidth float64

	lines []ShapedLine
	cur   ShapedLine
	curX  float64
}

func (b *builder) ensureRoom(width float64) {
	if len(b.cur.Segments) > 0 && b.curX+width > b.availableWidth {
		b.finishLine()
	}
}

func (b *builder) finishLine() {
	if len(b.cur.Segments) == 0 && len(b.lines) > 0 {
		return
	}
	b.cur.Width = b.curX
	b.cur.Height = b.cur.MaxAscender - b.cur.MinDescender + b.cur.MaxLineskipDescent
	b.lines = append(b.lines, b.cur)
	b.cur = ShapedLine{}
	b.curX = 0
}

func (b *builder) accumulateMetrics(ascent, descent, lineGap float64) {
	if ascent > b.cur.MaxAscender {
		b.cur.MaxAscender = ascent
	}
	if -descent < b.cur.MinDescender {
		b.cur.MinDescender = -descent
	}
	if lineGap > b.cur.MaxLineskipDescent {
		b.cur.MaxLineskipDescent = lineGap
	}
}

// placeText breaks item i's text on explicit '\n' (spec's pre-pass),
// then soft-wraps each resulting paragraph into the current/following
// lines.
func (b *builder) placeText(i int) error {
	it := b.items[i]
	paragraphs := strings.Split(it.Text, "\n")
	fs := it.Style.Font()

	base := 0 // rune offset of para within it.Text
	for pi, para := range paragraphs {
		if pi > 0 {
			b.finishLine()
		}
		if err := b.wrapParagraph(i, para, base, fs.FamilyList, fs.SizePx); err != nil {
			return err
		}
		base += len([]rune(para)) + 1
	}
	return nil
}

// wrapParagraph shapes para once and splits it across as many lines as
// needed, keeping up to 3 recent break candidates (spec's "3-deep ring
// buffer") so a split only reshapes the small interval around the
// chosen boundary rather than the whole paragraph.
func (b *builder) wrapParagraph(itemIndex int, para string, base int, familyList []string, sizePx float64) error {
	runes := []rune(para)
	if len(runes) == 0 {
		return nil
	}
	gs, err := b.shaper.Shape(para, familyList, sizePx)
	if err != nil {
		return err
	}
	candidates := lineBreakOpportunities(runes)
	// A synthetic trailing candidate at the paragraph's end lets the
	// same fit-or-split loop below decide whether the final remainder
	// needs one more split, instead of unconditionally appending it
	// regardless of width.
	candidates = append(candidates, breakOpportunity{offset: len(runes)})

	text := para
	pos := 0 // rune offset, relative to the *original* para, already consumed
	var ring []int

	flushSegment := func(g *fontmatch.GlyphString, byteOffset int) {
		m := b.metrics[itemIndex]
		b.accumulateMetrics(m.ascent, m.descent, m.lineGap)
		b.cur.Segments = append(b.cur.Segments, LineSegment{
			SourceItemIndex: itemIndex,
			ByteOffset:      base + byteOffset,
			Glyphs:          g,
			OriginX:         b.curX,
		})
		b.curX += g.AdvanceWidth().Float64()
	}

	i := 0
	for i < len(candidates) {
		c := candidates[i]
		width := prefixAdvance(gs, c.offset-pos)
		if b.curX+width <= b.availableWidth || len(b.cur.Segments) == 0 && len(ring) == 0 {
			ring = append(ring, c.offset)
			if len(ring) > 3 {
				ring = ring[len(ring)-3:]
			}
			if c.mandatory {
				// mandatory breaks always take effect immediately at
				// the newest candidate, which is this one.
				i++
				goto doSplit
			}
			i++
			continue
		}

	doSplit:
		splitAt := c.offset
		if !c.mandatory && len(ring) > 0 {
			splitAt = ring[len(ring)-1]
		}
		left, right, err := b.shaper.Split(gs, text, splitAt-pos, familyList, sizePx)
		if err != nil {
			return err
		}
		flushSegment(left, pos)
		b.finishLine()

		pos = splitAt
		text = string(runes[pos:])
		gs = right
		ring = nil
		// drop candidates already consumed
		for i < len(candidates) && candidates[i].offset <= pos {
			i++
		}
	}

	if pos < len(runes) {
		flushSegment(gs, pos)
	}
	return nil
}

// prefixAdvance sums the advance of every glyph in gs whose cluster is
// less than runeCount (runeCount is relative to gs's own text, i.e.
// already rebased by the caller).
func prefixAdvance(gs *fontmatch.GlyphString, runeCount int) float64 {
	var total float64
	for _, g := range gs.All() {
		if g.Cluster < runeCount {
			total += g.Advance.Float64()
		}
	}
	return total
}

// placeRuby places a ruby base (and its paired annotation, if any) as
// a single non-breakable atom, per spec §4.5 ("Ruby blocks forbid
// internal line breaks").
func (b *builder) placeRuby(baseIdx int, annIdx int) error {
	base := b.items[baseIdx]
	bf := base.Style.Font()
	baseGS, err := b.shaper.Shape(base.Text, bf.FamilyList, bf.SizePx)
	if err != nil {
		return err
	}
	baseWidth := baseGS.AdvanceWidth().Float64()

	hasAnn := annIdx >= 0 && annIdx < len(b.items)
	var annGS *fontmatch.GlyphString
	var annWidth float64
	var ann subtitle.InlineItem
	if hasAnn {
		ann = b.items[annIdx]
		af := ann.Style.Font()
		annGS, err = b.shaper.Shape(ann.Text, af.FamilyList, af.SizePx)
		if err != nil {
			return err
		}
		annWidth = annGS.AdvanceWidth().Float64()
	}

	atomWidth := baseWidth
	if annWidth > atomWidth {
		atomWidth = annWidth
	}
	// Padding: (wider - narrower)/2 added to each side of the narrower
	// one, per spec §4.5's ruby rule, expressed here as each element's
	// own local origin offset within the shared atomWidth.
	basePad := (atomWidth - baseWidth) / 2
	annPad := (atomWidth - annWidth) / 2

	b.ensureRoom(atomWidth)

	bm := b.metrics[baseIdx]
	b.accumulateMetrics(bm.ascent, bm.descent, bm.lineGap)

	baseSeg := LineSegment{SourceItemIndex: baseIdx, Glyphs: baseGS, OriginX: b.curX + basePad}
	b.cur.Segments = append(b.cur.Segments, baseSeg)

	if hasAnn {
		am := b.metrics[annIdx]
		// The annotation's own ascent stacks above the base's ascent
		// (RubyAbove) or below the base's descent (RubyBelow); extend
		// the line's ascender/descender to cover it.
		switch ann.RubySide {
		case subtitle.RubyBelow:
			if -(bm.descent + am.ascent + am.descent) < b.cur.MinDescender {
				b.cur.MinDescender = -(bm.descent + am.ascent + am.descent)
			}
		default: // RubyAbove
			if bm.ascent+am.ascent+am.descent > b.cur.MaxAscender {
				b.cur.MaxAscender = bm.ascent + am.ascent + am.descent
			}
		}
		annSeg := LineSegment{
			SourceItemIndex:  annIdx,
			Glyphs:           annGS,
			OriginX:          b.curX + annPad,
			IsRubyAnnotation: true,
			RubySide:         ann.RubySide,
		}
		b.cur.Segments = append(b.cur.Segments, annSeg)
	}

	b.curX += atomWidth
	return nil
}

// result finalizes baseline Y positions (top-down accumulation of
// per-line heights) and the overall bounding rect.
func (b *builder) result() *Result {
	y := 0.0
	maxWidth := 0.0
	for li := range b.lines {
		line := &b.lines[li]
		line.originYTop = y
		baseline := y + line.MaxAscender
		for si := range line.Segments {
			seg := &line.Segments[si]
			if seg.IsRubyAnnotation {
				if seg.RubySide == subtitle.RubyBelow {
					m := b.metrics[seg.SourceItemIndex]
					seg.OriginY = baseline - line.MinDescender + m.ascent
				} else {
					m := b.metrics[seg.SourceItemIndex]
					seg.OriginY = baseline - line.MaxAscender + m.ascent
				}
			} else {
				seg.OriginY = baseline
			}
		}
		if line.Width > maxWidth {
			maxWidth = line.Width
		}
		y += line.Height
	}
	return &Result{Lines: b.lines, BoundingRect: rect.Rect{LLx: 0, LLy: 0, URx: maxWidth, URy: y}}
}
