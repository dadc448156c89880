package frame

import (
	"github.com/rs/zerolog"

	"corvid.dev/go/subray"
	"corvid.dev/go/subray/fontmatch"
	"corvid.dev/go/subray/glyph"
	"corvid.dev/go/subray/subtitle"
	"corvid.dev/go/subray/textlayout"
)

// Library is spec §6's caller-facing entry point: it owns the glyph
// cache, font matcher/shaper, and rasterizer backend exclusively for the
// lifetime of a single renderer instance (spec §5 — single-threaded,
// cooperative, one owner). The module map (SPEC_FULL.md §A) places this
// entry conceptually at the root package; it lives here instead because
// Go's import graph already has glyph/fontmatch/textlayout depending
// downward on the root numeric package (for Rasterizer/Backend/
// RenderTarget) — frame is the one layer that already sits above all of
// them, so this is where the caller-facing ABI can assemble every piece
// without a cycle.
type Library struct {
	Subtitles *subtitle.Subtitles
	Engine    *fontmatch.Engine
	Cache     *glyph.GlyphCache
	Renderer  *glyph.Renderer
	Backend   subray.Backend
	Log       zerolog.Logger

	hasRendered   bool
	lastUnchanged subtitle.Interval
}

// NewLibrary wires a Library with the default software rasterizer
// backend and a fresh glyph cache/renderer. log may be zerolog.Nop() for
// discard-everything logging.
func NewLibrary(subs *subtitle.Subtitles, matcher *fontmatch.Matcher, cacheConfig glyph.CacheConfiguration, log zerolog.Logger) (*Library, error) {
	if err := cacheConfig.Validate(); err != nil {
		return nil, err
	}
	return &Library{
		Subtitles: subs,
		Engine:    fontmatch.NewEngine(matcher),
		Cache:     glyph.NewGlyphCache(cacheConfig, log),
		Renderer:  glyph.NewRenderer(),
		Backend:   subray.NewSoftwareBackend(),
		Log:       log,
	}, nil
}

// Render is spec §6's render(ctx, t_ms, buffer, w, h, stride_in_pixels):
// target is cleared to transparent, every active event is laid out and
// painted, and (on success) the glyph cache's generation is advanced and
// the unchanged interval recorded for DidChange. A layout or paint
// failure is returned to the caller without advancing the unchanged
// interval past it (spec §7).
func (l *Library) Render(ctx SubtitleContext, tMs int64, target *subray.RenderTarget) error {
	target.Clear()

	pass := NewPass(ctx, tMs)
	availableWidth := ctx.VideoWidth - ctx.PadLeft - ctx.PadRight

	for _, e := range l.Subtitles.Events {
		pass.AddEventRange(e.EventInterval())
	}
	for _, e := range l.Subtitles.Events {
		if !e.EventInterval().Contains(tMs) {
			continue
		}
		result, err := textlayout.Layout(l.Engine, e.Inline, availableWidth)
		if err != nil {
			return err
		}
		textlayout.ApplyAlignment(result, e.Alignment)
		pass.EmitFragment(&Fragment{
			X:      e.AnchorX*ctx.VideoWidth + ctx.PadLeft,
			Y:      e.AnchorY*ctx.VideoHeight + ctx.PadTop,
			Layout: result,
			Items:  e.Inline,
		})
	}

	for _, op := range DisplayPass(pass.Fragments()) {
		if err := op.Execute(l.Backend, target, l.Cache, l.Renderer); err != nil {
			return &subray.RasterizerBackendError{Err: err}
		}
	}

	l.Cache.AdvanceGeneration()
	l.hasRendered = true
	l.lastUnchanged = pass.UnchangedInterval()
	return nil
}

// DidChange reports whether a Render at t would produce different output
// than the last successful Render: true before any successful render, or
// whenever t falls outside the unchanged interval that render recorded.
func (l *Library) DidChange(t int64) bool {
	if !l.hasRendered {
		return true
	}
	return !l.lastUnchanged.Contains(t)
}
