package locale

import "testing"

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Language
	}{
		{"mg", Malagasy},
		{"FR", French},
		{" en ", English},
	} {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := Parse("de"); err == nil {
		t.Fatalf("Parse(\"de\") should fail")
	}
}

func TestCopyCoversAllLanguages(t *testing.T) {
	for _, l := range All() {
		if Welcome(l) == "" {
			t.Fatalf("Welcome(%q) is empty", l)
		}
		if Fallback(l) == "" {
			t.Fatalf("Fallback(%q) is empty", l)
		}
		if ErrorReply(l) == "" {
			t.Fatalf("ErrorReply(%q) is empty", l)
		}
		if len(SuggestionPool(l)) < 4 {
			t.Fatalf("SuggestionPool(%q) has %d prompts, want at least 4", l, len(SuggestionPool(l)))
		}
	}
}

func TestSuggestionPoolReturnsCopy(t *testing.T) {
	a := SuggestionPool(French)
	a[0] = "mutated"
	b := SuggestionPool(French)
	if b[0] == "mutated" {
		t.Fatalf("SuggestionPool should return a defensive copy")
	}
}
