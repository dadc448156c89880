package textlayout

import "corvid.dev/go/subray/subtitle"

// ApplyAlignment shifts every segment of every line horizontally by
// {0, -W/2, -W} for {Left, Center, Right} (spec §4.5), where W is that
// line's own content width — so centering, for instance, is computed
// per line, not against the block's overall bounding width.
func ApplyAlignment(result *Result, align subtitle.Alignment) {
	for li := range result.Lines {
		line := &result.Lines[li]
		var shift float64
		switch align {
		case subtitle.AlignCenter:
			shift = -line.Width / 2
		case subtitle.AlignRight:
			shift = -line.Width
		}
		if shift == 0 {
			continue
		}
		for si := range line.Segments {
			line.Segments[si].OriginX += shift
		}
	}
}
