package fontmatch

import "fmt"

// Engine combines a Matcher with shaping into the single call shape
// textlayout needs: "shape this text at this family list and size,
// possibly split it later at a safe boundary". It is the concrete,
// production implementation of textlayout.Shaper; tests of textlayout's
// line-breaking/ruby logic use a fake implementing the same three
// methods instead of constructing real fonts.
type Engine struct {
	Matcher *Matcher
}

// NewEngine returns an Engine over m.
func NewEngine(m *Matcher) *Engine { return &Engine{Matcher: m} }

func (e *Engine) chain(familyList []string, probe rune) []*Font {
	resolved := e.Matcher.ResolveFamilyList(familyList)
	return e.Matcher.FallbackChain(resolved, probe)
}

// fullChain returns every candidate worth trying across the whole
// string: the resolved family list (regardless of whether it covers
// the first rune — coverage is re-checked per cluster inside
// shapeRange), then system fallback, then tofu.
func (e *Engine) fullChain(familyList []string) []*Font {
	var chain []*Font
	for _, f := range e.Matcher.ResolveFamilyList(familyList) {
		if f != nil {
			chain = append(chain, f)
		}
	}
	chain = append(chain, e.Matcher.SystemFallback...)
	if e.Matcher.Tofu != nil {
		chain = append(chain, e.Matcher.Tofu)
	}
	return chain
}

// Shape implements textlayout.Shaper.
func (e *Engine) Shape(text string, familyList []string, sizePx float64) (*GlyphString, error) {
	chain := e.fullChain(familyList)
	if len(chain) == 0 {
		return nil, fmt.Errorf("fontmatch: no fonts registered (not even tofu)")
	}
	buf := NewShapingBuffer(text, sizePx)
	buf.GuessProperties()
	return buf.Shape(chain)
}

// Split implements textlayout.Shaper: split gs (shaped from text at
// familyList/sizePx) at rune offset, reshaping around the boundary via
// GlyphString.SplitAt's safe-to-break/concat machinery.
func (e *Engine) Split(gs *GlyphString, text string, offset int, familyList []string, sizePx float64) (left, right *GlyphString, err error) {
	chain := e.fullChain(familyList)
	buf := NewShapingBuffer(text, sizePx)
	buf.GuessProperties()
	return gs.SplitAt(offset, buf, chain)
}

// Metrics implements textlayout.Shaper.
func (e *Engine) Metrics(familyList []string, sizePx float64) (ascent, descent, lineGap float64, err error) {
	chain := e.fullChain(familyList)
	if len(chain) == 0 {
		return 0, 0, 0, fmt.Errorf("fontmatch: no fonts registered (not even tofu)")
	}
	return chain[0].Metrics(sizePx)
}
