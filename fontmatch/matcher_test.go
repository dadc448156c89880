package fontmatch

import "testing"

func runeSetCoverer(rs ...rune) func(rune) bool {
	set := make(map[rune]bool, len(rs))
	for _, r := range rs {
		set[r] = true
	}
	return func(r rune) bool { return set[r] }
}

func TestFallbackChainPrefersRequestedFamilyThenFallback(t *testing.T) {
	primary := NewFakeFont("Primary", runeSetCoverer('A', 'C'))
	fallback := NewFakeFont("Fallback", runeSetCoverer('A', 'B', 'C'))
	tofu := NewFakeFont("Tofu", runeSetCoverer())

	m := NewMatcher(tofu)
	m.Register(primary)
	m.Register(fallback)
	m.SystemFallback = []*Font{fallback}

	resolved := m.ResolveFamilyList([]string{"Primary"})

	chainB := m.FallbackChain(resolved, 'B')
	if len(chainB) != 2 || chainB[0] != fallback || chainB[1] != tofu {
		t.Fatalf("expected [fallback, tofu] for uncovered 'B', got %v", chainB)
	}

	chainA := m.FallbackChain(resolved, 'A')
	if len(chainA) != 3 || chainA[0] != primary {
		t.Fatalf("expected primary first for covered 'A', got %v", chainA)
	}
}

func TestFallbackChainAlwaysEndsInTofu(t *testing.T) {
	tofu := NewFakeFont("Tofu", runeSetCoverer())
	m := NewMatcher(tofu)

	chain := m.FallbackChain(nil, 'Z')
	if len(chain) != 1 || chain[0] != tofu {
		t.Fatalf("expected chain to be exactly [tofu] when nothing else is registered, got %v", chain)
	}
}

func TestPrimaryFaceErrorsOnlyWithoutTofu(t *testing.T) {
	m := NewMatcher(nil)
	_, err := m.PrimaryFace(nil, 'A')
	if err == nil {
		t.Fatalf("expected FontSelectionError when no tofu face is configured")
	}
	var selErr *FontSelectionError
	if !asFontSelectionError(err, &selErr) {
		t.Fatalf("expected *FontSelectionError, got %T", err)
	}
}

func asFontSelectionError(err error, target **FontSelectionError) bool {
	if e, ok := err.(*FontSelectionError); ok {
		*target = e
		return true
	}
	return false
}

func TestResolveFamilyListPreservesOrderAndNils(t *testing.T) {
	m := NewMatcher(NewFakeFont("Tofu", runeSetCoverer()))
	a := NewFakeFont("A", runeSetCoverer('x'))
	m.Register(a)

	resolved := m.ResolveFamilyList([]string{"A", "Missing"})
	if len(resolved) != 2 || resolved[0] != a || resolved[1] != nil {
		t.Fatalf("expected [a, nil], got %v", resolved)
	}
}
