package protocol

import "testing"

func TestNormalizeKind(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"improve_food", KindImproveFood, true},
		{"  IMPROVE_FOOD ", KindImproveFood, true},
		{"[support_agent]", KindSupportAgent, true},
		{"pass", KindPass, true},
		{"conquer_world", KindPass, false},
		{"", KindPass, false},
	}
	for _, c := range cases {
		got, ok := NormalizeKind(c.raw)
		if got != c.want || ok != c.ok {
			t.Fatalf("NormalizeKind(%q) = %q,%v want %q,%v", c.raw, got, ok, c.want, c.ok)
		}
	}
}

func TestSanitizeTarget(t *testing.T) {
	cases := []struct{ raw, want string }{
		{"[Dr_Chen]", "Dr Chen"},
		{"Dr Chen", "Dr Chen"},
		{"  [Marcus]  ", "Marcus"},
		{"a__b", "a b"},
		{"", ""},
	}
	for _, c := range cases {
		if got := SanitizeTarget(c.raw); got != c.want {
			t.Fatalf("SanitizeTarget(%q) = %q want %q", c.raw, got, c.want)
		}
	}
}

func TestActionKinds_AllKnown(t *testing.T) {
	for _, k := range ActionKinds() {
		if !IsKnownKind(k) {
			t.Fatalf("kind %q not in kind set", k)
		}
	}
	if len(ActionKinds()) != 8 {
		t.Fatalf("expected 8 action kinds, got %d", len(ActionKinds()))
	}
}
