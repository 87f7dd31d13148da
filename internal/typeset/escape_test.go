package typeset

import (
	"strings"
	"testing"
)

func TestEscapePerCharacter(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`\`, `\textbackslash{}`},
		{`{`, `\{`},
		{`}`, `\}`},
		{`$`, `\$`},
		{`&`, `\&`},
		{`#`, `\#`},
		{`_`, `\_`},
		{`%`, `\%`},
		{`~`, `\textasciitilde{}`},
		{`^`, `\textasciicircum{}`},
		{`<`, `\textless{}`},
		{`>`, `\textgreater{}`},
		{`|`, `\textbar{}`},
		{`"`, `''`},
	}
	for _, tc := range cases {
		if got := Escape(tc.in); got != tc.want {
			t.Fatalf("Escape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEscapeSinglePassDoesNotReprocessReplacements(t *testing.T) {
	// A backslash followed by a letter must become a literal backslash macro
	// plus the letter, never be collapsed into or read as a control sequence.
	got := Escape(`C:\new\temp`)
	want := `C:\textbackslash{}new\textbackslash{}temp`
	if got != want {
		t.Fatalf("Escape = %q, want %q", got, want)
	}

	// The braces emitted by one replacement must not be escaped again.
	if got := Escape(`~`); strings.Contains(got, `\{`) {
		t.Fatalf("replacement output was re-escaped: %q", got)
	}
}

func TestEscapeMixedContent(t *testing.T) {
	got := Escape("Raised revenue by 40% & cut costs ($1M) via a/b_test #7")
	for _, forbidden := range []string{" % ", " & ", " $", "_t", " #"} {
		if strings.Contains(got, forbidden) {
			t.Fatalf("unescaped control sequence %q in %q", forbidden, got)
		}
	}
	if !strings.Contains(got, `40\%`) || !strings.Contains(got, `\&`) || !strings.Contains(got, `\$1M`) {
		t.Fatalf("expected escaped specials in %q", got)
	}
}

func TestEscapeLeavesPlainTextAlone(t *testing.T) {
	in := "Ada Lovelace, Analytical Engineer (1815)"
	if got := Escape(in); got != in {
		t.Fatalf("plain text was altered: %q", got)
	}
}
