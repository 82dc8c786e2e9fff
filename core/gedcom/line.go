package gedcom

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// RawLine is one matched physical line.
type RawLine struct {
	Level   int
	Pointer string // without @ delimiters; empty when absent
	Tag     string // upper case
	Value   string // trimmed
}

// HasPointer reports whether the line carries a cross-reference id.
func (l RawLine) HasPointer() bool {
	return l.Pointer != ""
}

// lineLexer tokenizes "<level> [@ptr@] TAG [rest]". After the tag the lexer
// switches to a state that swallows the remainder of the line as one value
// token, so values may contain any characters including '@'.
var lineLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Level", Pattern: `[0-9]+`, Action: lexer.Push("Head")},
	},
	"Head": {
		{Name: "Whitespace", Pattern: `[ \t]+`},
		{Name: "Pointer", Pattern: `@[^@\s]+@`},
		{Name: "Tag", Pattern: `[^@\s]+`, Action: lexer.Push("Rest")},
	},
	"Rest": {
		{Name: "Value", Pattern: `[^\r\n]+`},
	},
})

type lineGrammar struct {
	Level   int    `parser:"@Level"`
	Pointer string `parser:"@Pointer?"`
	Tag     string `parser:"@Tag"`
	Value   string `parser:"@Value?"`
}

var lineParser = participle.MustBuild[lineGrammar](
	participle.Lexer(lineLexer),
	participle.Elide("Whitespace"),
)

// MatchLine classifies one physical line. It returns false for lines that
// do not fit the grammar; such lines are noise, not errors.
func MatchLine(s string) (RawLine, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RawLine{}, false
	}
	g, err := lineParser.ParseString("", s)
	if err != nil || g.Level < 0 {
		return RawLine{}, false
	}
	return RawLine{
		Level:   g.Level,
		Pointer: strings.Trim(g.Pointer, "@"),
		Tag:     strings.ToUpper(g.Tag),
		Value:   strings.TrimSpace(g.Value),
	}, true
}

// SplitLines splits a document into physical lines, accepting "\n" and
// "\r\n" terminators and a leading byte order mark.
func SplitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// pointerValue extracts the id from a value such as "@I1@". It returns
// false when the value is not a pointer.
func pointerValue(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if len(v) < 3 || v[0] != '@' || v[len(v)-1] != '@' {
		return "", false
	}
	id := v[1 : len(v)-1]
	if strings.ContainsAny(id, "@ \t") {
		return "", false
	}
	return id, true
}
