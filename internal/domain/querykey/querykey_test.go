package querykey

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and trim", "  Vestido Para Casamento  ", "vestido para casamento"},
		{"accents stripped", "Vestido para casamento de dia no verão", "vestido para casamento de dia no verao"},
		{"cedilla", "Calça de algodão", "calca de algodao"},
		{"collapse whitespace", "vestido\t\tpara\n casamento", "vestido para casamento"},
		{"punctuation dropped", "vestido, para casamento!", "vestido para casamento"},
		{"spaced punctuation", "saia - longa", "saia longa"},
		{"fullwidth folded", "ＶＥＳＴＩＤＯ", "vestido"},
		{"german sharp s", "Straße", "strasse"},
		{"empty", "", ""},
		{"only symbols", "?!  ...", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Canonicalize(tc.in); got != tc.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Vestido para casamento de dia no VERÃO",
		"saia - longa -- para  festa",
		"  Look   p/ praia à noite ",
		"ＶＥＳＴＩＤＯ ﬁno",
		"",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		if twice := Canonicalize(once); twice != once {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestEquivalent(t *testing.T) {
	if !Equivalent("Vestido  para CASAMENTO", "vestido para casamento") {
		t.Error("expected casing/whitespace variants to be equivalent")
	}
	if Equivalent("vestido de festa", "vestido de praia") {
		t.Error("expected different queries to differ")
	}
}
