// Package reference implements the $var / ${expr[:fmt]} token grammar
// embedded in probe arguments and condition bodies.
package reference

import (
	"regexp"
	"strconv"
	"strings"
)

// Mode selects how the expanded text will be consumed.
type Mode int

const (
	// ModeString is used for probe arguments and free text inside
	// complex references: the result composes a format template with
	// an ordered list of reference expressions.
	ModeString Mode = iota
	// ModeExpression is used for condition bodies and iteration
	// identifiers: the result is raw expression source.
	ModeExpression
)

// tokenPattern matches, in priority order: an escaped backslash, an
// escaped dollar, a literal brace, a simple $var, or a complex ${...}
// reference. Order matters: Go's regexp uses leftmost-first
// alternation, same as the grammar requires.
var tokenPattern = regexp.MustCompile(`\\\\|\\\$|[{}]|\$[A-Za-z_]\w*|\$\{[^}]+\}`)

// Template is the string-mode result: a printf-style format string
// plus the ordered expression sources that fill its verbs.
type Template struct {
	Format string
	Refs   []string
}

// Expand parses text under the token grammar and returns its
// string-mode Template. Expand is the string-mode entry point;
// ExpandExpression is the expression-mode one.
func Expand(text string) (*Template, error) {
	fmtStr, refs := tokenize(text)
	return &Template{Format: fmtStr, Refs: refs}, nil
}

// ExpandExpression parses text under the same grammar but returns
// expression source for the restricted expression evaluator
// (internal/exprlang)'s "as an expression" call mode.
//
// Quoted text (surrounding single or double quotes) is always treated
// as a string literal, in either mode. The single-reference shortcut
// returns just that reference (wrapped in string(...) if the original
// was quoted).
func ExpandExpression(text string) string {
	quoted, inner := unquote(text)

	fmtStr, refs := tokenize(inner)

	switch {
	case len(refs) == 0:
		// No verbs to fill: undo writeLiteral's '%' escaping so the
		// text comes back verbatim.
		plain := strings.ReplaceAll(fmtStr, "%%", "%")
		if quoted {
			return strconv.Quote(plain)
		}
		return plain
	case len(refs) == 1 && fmtStr == "%v":
		if quoted {
			return "string(" + refs[0] + ")"
		}
		return refs[0]
	default:
		return "format(" + strconv.Quote(fmtStr) + ", " + strings.Join(refs, ", ") + ")"
	}
}

// unquote strips a single layer of matching surrounding quotes; both
// call modes treat quoted text as a forced string literal.
func unquote(text string) (quoted bool, inner string) {
	if len(text) > 1 {
		first, last := text[0], text[len(text)-1]
		if (first == '\'' || first == '"') && first == last {
			return true, text[1 : len(text)-1]
		}
	}
	return false, text
}

// tokenize walks text under tokenPattern and returns a printf-style
// format string (using %v, or a translated verb for ${expr:fmt}
// references) plus the ordered expression sources for each verb.
//
// Braces don't need escaping here: the format string is consumed by
// fmt.Sprintf/our own format() builtin, neither of which treats '{'/'}'
// specially, so literal braces simply pass through.
func tokenize(text string) (string, []string) {
	var fmtStr strings.Builder
	var refs []string

	matches := tokenPattern.FindAllStringIndex(text, -1)
	pos := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > pos {
			writeLiteral(&fmtStr, text[pos:start])
		}
		tok := text[start:end]
		switch {
		case tok == `\\`:
			fmtStr.WriteByte('\\')
		case tok == `\$`:
			fmtStr.WriteByte('$')
		case tok == "{" || tok == "}":
			fmtStr.WriteString(tok)
		case strings.HasPrefix(tok, "${"):
			ref := tok[2 : len(tok)-1]
			verb := "%v"
			if idx := strings.IndexByte(ref, ':'); idx >= 0 {
				verb = pyFormatToVerb(ref[idx+1:])
				ref = ref[:idx]
			}
			refs = append(refs, ref)
			fmtStr.WriteString(verb)
		default: // simple $var
			refs = append(refs, tok[1:])
			fmtStr.WriteString("%v")
		}
		pos = end
	}
	if pos < len(text) {
		writeLiteral(&fmtStr, text[pos:])
	}
	return fmtStr.String(), refs
}

// writeLiteral appends literal text to a format string being built,
// escaping '%' to '%%' so fmt.Sprintf doesn't interpret literal
// percent signs in the source text as verbs.
func writeLiteral(b *strings.Builder, s string) {
	b.WriteString(strings.ReplaceAll(s, "%", "%%"))
}

// pyFormatToVerb translates the common subset of Python's
// str.format() mini-language (width/zero-pad/precision + d/f/x/o/s)
// into a Go fmt verb. The two languages share the
// %[flags][width][.precision]verb grammar for this subset, so most
// specs translate directly; anything unrecognized falls back to %v.
func pyFormatToVerb(spec string) string {
	if spec == "" {
		return "%v"
	}
	if len(spec) == 0 {
		return "%v"
	}
	last := spec[len(spec)-1]
	switch last {
	case 'd', 'f', 'x', 'X', 'o', 's', 'e', 'g', 'b':
		return "%" + spec
	default:
		return "%v"
	}
}
