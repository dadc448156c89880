// Package style implements the grouped, reference-counted property model
// described by spec §4.6: a ComputedStyle holds one shared handle per
// property group, derivation shares a group by reference when every
// property inside it is inheritable, and applying overrides only
// allocates a fresh copy of the groups that actually change.
//
// This mirrors sbr-macros/src/style.rs's group-of-properties layout in
// the teacher's idiom: each group is a small plain struct behind a
// pointer, the same shape canvas.go uses for its own "small value behind
// a pointer, shared until mutated" types (Texture, RenderTarget), rather
// than introducing a new copy-on-write primitive.
package style

// FontStyle bundles the font-selection-relevant properties. Every
// property in FontStyle is inheritable.
type FontStyle struct {
	FamilyList []string
	Weight     int // CSS-style 100-900
	Italic     bool
	SizePx     float64
}

// TextDecorationStyle bundles underline/strikethrough. Non-inheritable:
// a derived style always starts with DefaultTextDecoration, matching
// how text-decoration works in CSS (it does not inherit; it paints on
// the box that declares it).
type TextDecorationStyle struct {
	Underline     bool
	StrikeThrough bool
	Color         [4]uint8 // BGRA8, straight alpha
}

// ColorStyle bundles the paint color for glyph fills. Inheritable.
type ColorStyle struct {
	Fill [4]uint8
}

// ShadowStyle bundles drop-shadow parameters. Inheritable.
type ShadowStyle struct {
	BlurSigma float64
	OffsetX   float64
	OffsetY   float64
	Color     [4]uint8
}

var (
	defaultFont      = &FontStyle{FamilyList: nil, Weight: 400, Italic: false, SizePx: 16}
	defaultDecor     = &TextDecorationStyle{}
	defaultColor     = &ColorStyle{Fill: [4]uint8{0, 0, 0, 255}}
	defaultShadow    = &ShadowStyle{}
)

// ComputedStyle is spec's ComputedStyle: one reference-counted handle
// per property group. The zero value is not valid; use Default().
type ComputedStyle struct {
	font  *FontStyle
	decor *TextDecorationStyle
	color *ColorStyle
	shadow *ShadowStyle
}

// Default returns the fully-populated default ComputedStyle. It is safe
// to share: callers must never mutate the groups a ComputedStyle points
// to directly, only through the make-mutable accessors below.
func Default() ComputedStyle {
	return ComputedStyle{font: defaultFont, decor: defaultDecor, color: defaultColor, shadow: defaultShadow}
}

// Font returns the read-only font group.
func (s ComputedStyle) Font() *FontStyle { return s.font }

// TextDecoration returns the read-only text-decoration group.
func (s ComputedStyle) TextDecoration() *TextDecorationStyle { return s.decor }

// Color returns the read-only color group.
func (s ComputedStyle) Color() *ColorStyle { return s.color }

// Shadow returns the read-only shadow group.
func (s ComputedStyle) Shadow() *ShadowStyle { return s.shadow }

// CreateDerived returns a style for a child node. Every group in
// FontStyle, ColorStyle and ShadowStyle is fully inheritable, so those
// three are shared by reference; TextDecorationStyle is not inheritable
// and is reset to its default, per spec §4.6's derivation rule ("shares
// each group by reference if every property in the group is
// inheritable; otherwise allocates a fresh group with inheritable
// properties copied and non-inheritable ones reset to defaults" — here
// TextDecorationStyle has no inheritable properties at all, so the
// "fresh group" is simply the shared default instance).
func (s ComputedStyle) CreateDerived() ComputedStyle {
	return ComputedStyle{
		font:   s.font,
		decor:  defaultDecor,
		color:  s.color,
		shadow: s.shadow,
	}
}

// makeFontMut returns a unique, mutable *FontStyle for s, copying the
// group on every call (copy-on-write). Since ComputedStyle
// is a value type here (not refcounted pointers shared across multiple
// owners at the Go level — sharing is expressed by multiple ComputedStyle
// values pointing at the same group), "copy on write" is realised simply
// by always cloning before mutation; callers hold the result in a new
// ComputedStyle rather than mutating in place.
func (s *ComputedStyle) makeFontMut() *FontStyle {
	cp := *s.font
	s.font = &cp
	return s.font
}

func (s *ComputedStyle) makeDecorMut() *TextDecorationStyle {
	cp := *s.decor
	s.decor = &cp
	return s.decor
}

func (s *ComputedStyle) makeColorMut() *ColorStyle {
	cp := *s.color
	s.color = &cp
	return s.color
}

func (s *ComputedStyle) makeShadowMut() *ShadowStyle {
	cp := *s.shadow
	s.shadow = &cp
	return s.shadow
}

// PropertyMap is a sparse set of overrides applied atomically by
// ApplyAll. A nil field means "leave inherited/default value alone";
// FamilyAppend is an "append" property per spec §4.6: when set, its
// contents are concatenated after whatever the inherited FamilyList
// already holds rather than replacing it.
type PropertyMap struct {
	FontFamily   []string
	FamilyAppend []string
	FontWeight   *int
	FontItalic   *bool
	FontSizePx   *float64

	Underline     *bool
	StrikeThrough *bool
	DecorColor    *[4]uint8

	FillColor *[4]uint8

	ShadowBlurSigma *float64
	ShadowOffsetX   *float64
	ShadowOffsetY   *float64
	ShadowColor     *[4]uint8
}

// ApplyAll obtains copy-on-write access to each group that has at least
// one field set in m, and writes the overrides. Groups with no
// overridden property in m are left shared exactly as CreateDerived (or
// the caller's starting style) set them.
func (s *ComputedStyle) ApplyAll(m PropertyMap) {
	if m.FontFamily != nil || m.FamilyAppend != nil || m.FontWeight != nil || m.FontItalic != nil || m.FontSizePx != nil {
		f := s.makeFontMut()
		if m.FontFamily != nil {
			f.FamilyList = append([]string(nil), m.FontFamily...)
		}
		if m.FamilyAppend != nil {
			f.FamilyList = append(append([]string(nil), f.FamilyList...), m.FamilyAppend...)
		}
		if m.FontWeight != nil {
			f.Weight = *m.FontWeight
		}
		if m.FontItalic != nil {
			f.Italic = *m.FontItalic
		}
		if m.FontSizePx != nil {
			f.SizePx = *m.FontSizePx
		}
	}

	if m.Underline != nil || m.StrikeThrough != nil || m.DecorColor != nil {
		d := s.makeDecorMut()
		if m.Underline != nil {
			d.Underline = *m.Underline
		}
		if m.StrikeThrough != nil {
			d.StrikeThrough = *m.StrikeThrough
		}
		if m.DecorColor != nil {
			d.Color = *m.DecorColor
		}
	}

	if m.FillColor != nil {
		c := s.makeColorMut()
		c.Fill = *m.FillColor
	}

	if m.ShadowBlurSigma != nil || m.ShadowOffsetX != nil || m.ShadowOffsetY != nil || m.ShadowColor != nil {
		sh := s.makeShadowMut()
		if m.ShadowBlurSigma != nil {
			sh.BlurSigma = *m.ShadowBlurSigma
		}
		if m.ShadowOffsetX != nil {
			sh.OffsetX = *m.ShadowOffsetX
		}
		if m.ShadowOffsetY != nil {
			sh.OffsetY = *m.ShadowOffsetY
		}
		if m.ShadowColor != nil {
			sh.Color = *m.ShadowColor
		}
	}
}

// SharesFontGroup reports whether a and b point at the same FontStyle
// group instance — exposed for tests asserting the structural-sharing
// invariant rather than forcing tests to compare unexported fields.
func SharesFontGroup(a, b ComputedStyle) bool { return a.font == b.font }

// SharesColorGroup reports whether a and b share their ColorStyle group.
func SharesColorGroup(a, b ComputedStyle) bool { return a.color == b.color }

// SharesShadowGroup reports whether a and b share their ShadowStyle group.
func SharesShadowGroup(a, b ComputedStyle) bool { return a.shadow == b.shadow }
