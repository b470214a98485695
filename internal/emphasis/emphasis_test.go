package emphasis

import "testing"

func TestApply(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{
			"Ali Tawarath est l'ancêtre des Anakara.",
			"**Ali Tawarath** est l'ancêtre des **Anakara**.",
		},
		{
			"Fondée en 1952, l'association compte 230 membres.",
			"Fondée en **1952**, l'association compte **230** membres.",
		},
		{
			"Le Sorabe est conservé à Vatomasina.",
			"Le **Sorabe** est conservé à **Vatomasina**.",
		},
		{"Rien à signaler ici.", "Rien à signaler ici."},
		{"", ""},
	} {
		if got := Apply(tc.in); got != tc.want {
			t.Fatalf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplyIsCaseInsensitive(t *testing.T) {
	got := Apply("les anakara de la matitanana")
	want := "les **anakara** de la **matitanana**"
	if got != want {
		t.Fatalf("Apply() = %q, want %q", got, want)
	}
}
