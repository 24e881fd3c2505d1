package parser

import "testing"

func TestNormalizeSignature_CollapsesWhitespace(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"func  Foo(x int,\n  y string) error", "func Foo(x int, y string) error"},
		{"  leading and trailing  \t\n", "leading and trailing"},
		{"single", "single"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeSignature(c.in); got != c.want {
			t.Errorf("normalizeSignature(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSignature_RoundTripStable(t *testing.T) {
	raw := "func   Bar( a,\n\tb )   {"
	first := normalizeSignature(raw)
	second := normalizeSignature(raw)
	if first != second {
		t.Fatalf("normalization not stable: %q != %q", first, second)
	}
}

func TestHeaderUpTo_StopsAtBrace(t *testing.T) {
	text := []byte("func Foo() {\n  return\n}")
	got := headerUpTo(text, "{")
	if got != "func Foo()" {
		t.Errorf("got %q", got)
	}
}
