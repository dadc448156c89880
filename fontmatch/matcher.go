package fontmatch

import "fmt"

// FontSelectionError is spec §7's FontSelectionFailed kind: no matching
// face, not even tofu, was found for a codepoint.
type FontSelectionError struct {
	Rune rune
}

func (e *FontSelectionError) Error() string {
	return fmt.Sprintf("fontmatch: no face (including tofu) covers U+%04X", e.Rune)
}

// Matcher resolves a weighted font-family list plus per-codepoint
// fallback into concrete *Font handles, per spec §4.4's "Font match
// set": exact family match first, then the first family in the chain
// that covers a given codepoint during fallback, then system fallback
// (injected by the caller — OS-level font enumeration is out of scope
// per spec.md §1), then a built-in tofu face.
type Matcher struct {
	byFamily map[string]*Font
	// SystemFallback is consulted, in order, after the requested family
	// list is exhausted. Populating this from the host OS's font
	// enumeration is the caller's responsibility.
	SystemFallback []*Font
	// Tofu renders .notdef boxes for codepoints nothing else covers.
	// Required: spec §4.4 says matching always terminates at tofu.
	Tofu *Font
}

// NewMatcher returns a Matcher with no registered families yet.
func NewMatcher(tofu *Font) *Matcher {
	return &Matcher{byFamily: make(map[string]*Font), Tofu: tofu}
}

// Register makes f resolvable by family name (case-sensitive, matching
// the CSS font-family convention of exact-string matching before any
// normalization layer the caller might add).
func (m *Matcher) Register(f *Font) {
	m.byFamily[f.Family] = f
}

// ResolveFamilyList pre-resolves each entry of familyList into a
// concrete *Font (nil for families that aren't registered), matching
// spec §4.4's "pre-resolves each requested family into a concrete face
// handle (may be None for missing)".
func (m *Matcher) ResolveFamilyList(familyList []string) []*Font {
	out := make([]*Font, 0, len(familyList))
	for _, name := range familyList {
		out = append(out, m.byFamily[name]) // nil if unregistered
	}
	return out
}

// FallbackChain returns, for codepoint r, the ordered sequence of faces
// to try: first every resolved entry of resolvedFamilies that covers r
// (in family-list order, skipping unresolved/non-covering entries),
// then SystemFallback entries that cover r, then Tofu unconditionally.
//
// The chain always ends in Tofu, so FallbackChain never returns an
// empty slice; a caller only reaches FontSelectionError if it insists
// on excluding Tofu itself (e.g. probing "is there a *real* face for
// this codepoint").
func (m *Matcher) FallbackChain(resolvedFamilies []*Font, r rune) []*Font {
	var chain []*Font
	for _, f := range resolvedFamilies {
		if f != nil && f.CoversRune(r) {
			chain = append(chain, f)
		}
	}
	for _, f := range m.SystemFallback {
		if f != nil && f.CoversRune(r) {
			chain = append(chain, f)
		}
	}
	if m.Tofu != nil {
		chain = append(chain, m.Tofu)
	}
	return chain
}

// PrimaryFace picks the single best face for r out of resolvedFamilies,
// falling back through SystemFallback and finally Tofu. Returns
// *FontSelectionError only if even Tofu is nil.
func (m *Matcher) PrimaryFace(resolvedFamilies []*Font, r rune) (*Font, error) {
	chain := m.FallbackChain(resolvedFamilies, r)
	if len(chain) == 0 {
		return nil, &FontSelectionError{Rune: r}
	}
	return chain[0], nil
}
