package fontmatch

import "sort"

// SplitAt implements spec §4.4's safe-to-break/safe-to-concat splitting
// algorithm: split g into a left and right GlyphString at byteOffset
// (a byte/rune offset into the source text chain shaped), preferring a
// glyph that is itself SafeToBreak at exactly byteOffset. When no glyph
// sits exactly on a safe boundary, the interval spanning the nearest
// safe-to-concat glyph before byteOffset through byteOffset is reshaped
// with the same font chain and spliced in; if the reshaped interval's
// first glyph is not itself safe-to-concat (the reshape pulled in
// context that changed what ligated with what), the search walks one
// safe-to-concat candidate further back and retries. If no safe
// boundary exists at all, the whole segment is reshaped.
//
// buf must be the ShapingBuffer that produced g (its Text/Direction/
// Script/Language are reused for any reshaping), and chain the same
// font fallback chain originally passed to Shape.
func (g *GlyphString) SplitAt(byteOffset int, buf *ShapingBuffer, chain []*Font) (left, right *GlyphString, err error) {
	all := g.All()
	if len(all) == 0 {
		return NewGlyphString(nil), NewGlyphString(nil), nil
	}

	idx := sort.Search(len(all), func(i int) bool { return all[i].Cluster >= byteOffset })

	if idx < len(all) && all[idx].Cluster == byteOffset && all[idx].SafeToBreak {
		return NewGlyphString(append([]Glyph(nil), all[:idx]...)),
			NewGlyphString(append([]Glyph(nil), all[idx:]...)), nil
	}

	for back := idx - 1; back >= 0; back-- {
		if !all[back].SafeToConcat {
			continue
		}
		start := all[back].Cluster
		end := len(buf.Text)
		if idx < len(all) {
			// extend the reshape window to the next safe boundary on
			// the right so the splice has a stable far edge too.
			for fwd := idx; fwd < len(all); fwd++ {
				if all[fwd].SafeToConcat {
					end = all[fwd].Cluster
					break
				}
			}
		}
		reshaped, rerr := buf.shapeRange(chain, buf.Text[start:end], start)
		if rerr != nil {
			return nil, nil, rerr
		}
		if len(reshaped) > 0 && !reshaped[0].SafeToConcat {
			// The reshape changed what ligated at the left edge; retry
			// from an earlier candidate.
			continue
		}

		merged := append(append([]Glyph(nil), all[:back]...), reshaped...)
		mergedEnd := idx
		for mergedEnd < len(all) && all[mergedEnd].Cluster < end {
			mergedEnd++
		}
		merged = append(merged, all[mergedEnd:]...)

		splitIdx := sort.Search(len(merged), func(i int) bool { return merged[i].Cluster >= byteOffset })
		return NewGlyphString(append([]Glyph(nil), merged[:splitIdx]...)),
			NewGlyphString(append([]Glyph(nil), merged[splitIdx:]...)), nil
	}

	// No safe boundary anywhere to the left: reshape the whole segment.
	reshaped, rerr := buf.shapeRange(chain, buf.Text, 0)
	if rerr != nil {
		return nil, nil, rerr
	}
	splitIdx := sort.Search(len(reshaped), func(i int) bool { return reshaped[i].Cluster >= byteOffset })
	return NewGlyphString(append([]Glyph(nil), reshaped[:splitIdx]...)),
		NewGlyphString(append([]Glyph(nil), reshaped[splitIdx:]...)), nil
}
