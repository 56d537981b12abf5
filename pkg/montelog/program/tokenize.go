package program

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokAtom tokenKind = iota
	tokVariable
	tokNumber
	tokPunct
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	line int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// multi-character punctuation, longest first
var punct2plus = []string{"=:=", "=\\=", "=<", ">=", ":-", "::", "\\+"}

func isPunctStart(r rune) bool {
	return strings.ContainsRune("():,;.=<>\\+-*/", r)
}

// tokenize splits a program source into tokens. Comments run from % to end
// of line. A period terminates a clause only when followed by whitespace,
// a comment or end of input; otherwise it is part of a number.
func tokenize(src string) ([]token, error) {
	var out []token
	line := 1
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '\n':
			line++
			i++
		case unicode.IsSpace(r):
			i++
		case r == '%':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			if j+1 < len(runes) && runes[j] == '.' && unicode.IsDigit(runes[j+1]) {
				j++
				for j < len(runes) && unicode.IsDigit(runes[j]) {
					j++
				}
			}
			// exponent part
			if j < len(runes) && (runes[j] == 'e' || runes[j] == 'E') {
				k := j + 1
				if k < len(runes) && (runes[k] == '+' || runes[k] == '-') {
					k++
				}
				if k < len(runes) && unicode.IsDigit(runes[k]) {
					for k < len(runes) && unicode.IsDigit(runes[k]) {
						k++
					}
					j = k
				}
			}
			out = append(out, token{tokNumber, string(runes[i:j]), line})
			i = j
		case unicode.IsLower(r):
			j := i
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			out = append(out, token{tokAtom, string(runes[i:j]), line})
			i = j
		case unicode.IsUpper(r) || r == '_':
			j := i
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			out = append(out, token{tokVariable, string(runes[i:j]), line})
			i = j
		case r == '\'':
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				if runes[j] == '\n' {
					return nil, fmt.Errorf("line %d: unterminated quoted atom", line)
				}
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("line %d: unterminated quoted atom", line)
			}
			out = append(out, token{tokAtom, string(runes[i+1 : j]), line})
			i = j + 1
		case isPunctStart(r):
			matched := ""
			for _, p := range punct2plus {
				if strings.HasPrefix(string(runes[i:]), p) {
					matched = p
					break
				}
			}
			if matched == "" {
				matched = string(r)
			}
			out = append(out, token{tokPunct, matched, line})
			i += len([]rune(matched))
		default:
			return nil, fmt.Errorf("line %d: unexpected character %q", line, r)
		}
	}
	out = append(out, token{kind: tokEOF, line: line})
	return out, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
