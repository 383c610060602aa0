package citation

import (
	"reflect"
	"strings"
	"testing"
)

func TestProtect_RoundTrip(t *testing.T) {
	texts := []string{
		"",
		"No citations in this paragraph.",
		"See Brown v. Board, 347 U.S. 483 (1954), holding that separate is not equal.",
		"Compare 550 U.S. 544 with 129 S. Ct. 1937 and 490 F.3d 143.",
		"Relief under 42 U.S.C. § 1983 and 29 C.F.R. § 1604 was denied. 347 U.S. 483 again.",
		"Roe v. Wade and Roe v. Wade and 123 F. Supp. 2d 456.",
		"Unicode § text ✓ with 12 U.S. 34 at the end 12 U.S. 34",
	}
	for _, text := range texts {
		p := Protect(text)
		if got := Restore(p.Text, p.Map()); got != text {
			t.Errorf("round trip failed\nwant: %q\ngot:  %q", text, got)
		}
	}
}

func TestProtect_PlaceholderShapedLiteral(t *testing.T) {
	texts := []string{
		"See __CITATION_0_0__ and 347 U.S. 483.",
		"__CITATION_0_0__ __CITATION1_0_0__ 347 U.S. 483 then __CITATION_0_",
		"Trailing 347 U.S. 483__CITATION_0_1__",
	}
	for _, text := range texts {
		p := Protect(text)
		if got := Restore(p.Text, p.Map()); got != text {
			t.Errorf("round trip failed\nwant: %q\ngot:  %q", text, got)
		}
		if len(p.Replacements) != 1 {
			t.Fatalf("expected 1 replacement in %q, got %d", text, len(p.Replacements))
		}
		if ph := p.Replacements[0].Placeholder; strings.Contains(text, ph) {
			t.Errorf("placeholder %q already occurs in %q", ph, text)
		}
	}

	p := Protect("See __CITATION_0_0__ and 347 U.S. 483.")
	if want := "See __CITATION_0_0__ and __CITATION1_0_0__."; p.Text != want {
		t.Errorf("expected %q, got %q", want, p.Text)
	}
}

func TestProtect_PlaceholdersHideCitations(t *testing.T) {
	p := Protect("See Brown v. Board, 347 U.S. 483 (1954).")

	if strings.Contains(p.Text, "347 U.S. 483") || strings.Contains(p.Text, "Brown v. Board") {
		t.Errorf("expected citations to be replaced, got %q", p.Text)
	}
	want := "See __CITATION_4_0__, __CITATION_0_0__ (1954)."
	if p.Text != want {
		t.Errorf("expected %q, got %q", want, p.Text)
	}
	if len(p.Replacements) != 2 {
		t.Fatalf("expected 2 replacements, got %d", len(p.Replacements))
	}
}

func TestProtect_RepeatedCitationIsProtectedPerOccurrence(t *testing.T) {
	text := "347 U.S. 483 was cited; later 347 U.S. 483 was cited again."
	p := Protect(text)

	want := "__CITATION_0_0__ was cited; later __CITATION_0_1__ was cited again."
	if p.Text != want {
		t.Errorf("expected %q, got %q", want, p.Text)
	}
	m := p.Map()
	if m[Placeholder(0, 0)] != "347 U.S. 483" || m[Placeholder(0, 1)] != "347 U.S. 483" {
		t.Errorf("unexpected placeholder map %v", m)
	}
	if p.Replacements[1].Start != strings.LastIndex(text, "347 U.S. 483") {
		t.Errorf("expected second replacement at second occurrence, got %d", p.Replacements[1].Start)
	}
}

func TestProtect_StatutoryCitations(t *testing.T) {
	p := Protect("Claims under 42 U.S.C. § 1983 and 29 C.F.R. §1604.")

	m := p.Map()
	if m[Placeholder(5, 0)] != "42 U.S.C. § 1983" {
		t.Errorf("expected USC citation, got %v", m)
	}
	if m[Placeholder(6, 0)] != "29 C.F.R. §1604" {
		t.Errorf("expected CFR citation, got %v", m)
	}
}

func TestRestore_EmptyMap(t *testing.T) {
	if got := Restore("unchanged __CITATION_0_0__", nil); got != "unchanged __CITATION_0_0__" {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestRestore_PlaceholderPrefixes(t *testing.T) {
	m := PlaceholderMap{}
	var text []string
	for j := 0; j < 12; j++ {
		m[Placeholder(0, j)] = "cite" + string(rune('A'+j))
		text = append(text, Placeholder(0, j))
	}
	got := Restore(strings.Join(text, " "), m)
	if !strings.HasSuffix(got, "citeK citeL") || strings.Contains(got, "__") {
		t.Errorf("unexpected restore result %q", got)
	}
}

func TestExtract(t *testing.T) {
	got := Extract("Brown v. Board, 347 U.S. 483; Brown v. Board again; 42 U.S.C. § 1983.")
	want := []string{"347 U.S. 483", "42 U.S.C. § 1983", "Brown v. Board"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if got := Extract("nothing here"); len(got) != 0 {
		t.Errorf("expected no citations, got %v", got)
	}
}
