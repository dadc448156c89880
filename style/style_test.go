package style

import "testing"

func TestCreateDerivedSharesInheritableGroups(t *testing.T) {
	base := Default()
	weight := 700
	base.ApplyAll(PropertyMap{FontWeight: &weight})

	child := base.CreateDerived()

	if !SharesFontGroup(base, child) {
		t.Fatalf("expected derived style to share the fully-inheritable font group")
	}
	if !SharesColorGroup(base, child) {
		t.Fatalf("expected derived style to share the fully-inheritable color group")
	}
	if child.TextDecoration() != defaultDecor {
		t.Fatalf("expected derived style's non-inheritable decoration group to reset to default")
	}
	if child.Font().Weight != 700 {
		t.Fatalf("expected inherited weight 700, got %d", child.Font().Weight)
	}
}

func TestApplyAllCopyOnWrite(t *testing.T) {
	base := Default()
	derived := base.CreateDerived()

	size := 24.0
	derived.ApplyAll(PropertyMap{FontSizePx: &size})

	if base.Font().SizePx == 24 {
		t.Fatalf("mutating derived's font group must not affect base")
	}
	if derived.Font().SizePx != 24 {
		t.Fatalf("expected derived.Font().SizePx == 24, got %v", derived.Font().SizePx)
	}
	if SharesFontGroup(base, derived) {
		t.Fatalf("after ApplyAll touches the font group, base and derived must no longer share it")
	}
}

func TestApplyAllFamilyAppend(t *testing.T) {
	s := Default()
	s.ApplyAll(PropertyMap{FontFamily: []string{"Arial"}})
	s.ApplyAll(PropertyMap{FamilyAppend: []string{"Noto Sans"}})

	got := s.Font().FamilyList
	want := []string{"Arial", "Noto Sans"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDefaultIsFullyPopulated(t *testing.T) {
	d := Default()
	if d.Font() == nil || d.TextDecoration() == nil || d.Color() == nil || d.Shadow() == nil {
		t.Fatalf("Default() must populate every group")
	}
}
