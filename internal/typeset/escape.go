package typeset

import "strings"

// escapeTable maps every character meaningful to the typesetting compiler's
// control syntax to its escaped form. The table is total by construction:
// Escape consults it once per rune in a single pass, so a replacement can
// never be re-interpreted by a later rule. Keep this table exhaustive; it is
// unit-tested per character.
var escapeTable = map[rune]string{
	'\\': `\textbackslash{}`,
	'{':  `\{`,
	'}':  `\}`,
	'$':  `\$`,
	'&':  `\&`,
	'#':  `\#`,
	'_':  `\_`,
	'%':  `\%`,
	'~':  `\textasciitilde{}`,
	'^':  `\textasciicircum{}`,
	'<':  `\textless{}`,
	'>':  `\textgreater{}`,
	'|':  `\textbar{}`,
	'"':  `''`,
}

// Escape renders s safe for insertion into compiler source. User content is
// never trusted to be pre-escaped.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := escapeTable[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
