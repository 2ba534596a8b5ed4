package cpp

import (
	"strings"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
)

// annotation is one annotation macro invocation found in the source.
type annotation struct {
	macro   string
	kinds   entity.Kind
	payload string
	start   int
	end     int // offset just past the closing parenthesis
}

// scan is the source with every annotation and body macro blanked out.
// Blanking keeps byte offsets and line numbers of the remaining text.
type scan struct {
	src         []byte
	annotations []annotation
	markers     []int // offsets of body macro invocations
}

// preprocess locates annotation and body macro invocations outside comments,
// literals and preprocessor directives.
func (f *Frontend) preprocess(src []byte) (*scan, error) {
	s := &scan{src: append([]byte(nil), src...)}
	n := len(src)
	lineStart := true

	for i := 0; i < n; {
		c := src[i]
		switch {
		case c == '\n':
			lineStart = true
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r':
			i++
			continue
		case c == '#' && lineStart:
			i = skipDirective(src, i)
			continue
		}
		lineStart = false

		switch {
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			end := strings.Index(string(src[i+2:]), "*/")
			if end < 0 {
				i = n
			} else {
				i += end + 4
			}
		case c == 'R' && i+1 < n && src[i+1] == '"' && (i == 0 || !isIdentByte(src[i-1])):
			i = skipRawString(src, i+1)
		case c == '"' || c == '\'':
			i = skipLiteral(src, i)
		case isIdentStart(c) && (i == 0 || !isIdentByte(src[i-1])):
			j := i
			for j < n && isIdentByte(src[j]) {
				j++
			}
			word := string(src[i:j])
			kinds, isAnnotation := f.macros[word]
			isBody := word == f.opts.BodyMacro
			k := skipSpaces(src, j)
			if (!isAnnotation && !isBody) || k >= n || src[k] != '(' {
				i = j
				continue
			}
			end, ok := matchParen(src, k)
			if !ok {
				return nil, errors.Newf("line %d: unterminated %s(", lineOf(src, i), word)
			}
			if isBody {
				if m := skipSpaces(src, end); m < n && src[m] == ';' {
					end = m + 1
				}
				s.markers = append(s.markers, i)
			} else {
				s.annotations = append(s.annotations, annotation{
					macro:   word,
					kinds:   kinds,
					payload: strings.TrimSpace(string(src[k+1 : end-1])),
					start:   i,
					end:     end,
				})
			}
			blank(s.src, i, end)
			i = end
		default:
			i++
		}
	}
	return s, nil
}

// blank replaces src[from:to] with spaces, keeping line breaks.
func blank(src []byte, from, to int) {
	for i := from; i < to; i++ {
		if src[i] != '\n' && src[i] != '\r' {
			src[i] = ' '
		}
	}
}

func skipDirective(src []byte, i int) int {
	for i < len(src) {
		switch {
		case src[i] == '\\' && i+1 < len(src) && src[i+1] == '\n':
			i += 2
		case src[i] == '\n':
			return i
		default:
			i++
		}
	}
	return i
}

func skipLiteral(src []byte, i int) int {
	quote := src[i]
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		case '\n':
			return i
		}
	}
	return i
}

// skipRawString skips R"delim(...)delim"; i points at the opening quote.
func skipRawString(src []byte, i int) int {
	open := strings.IndexByte(string(src[i:]), '(')
	if open < 0 {
		return len(src)
	}
	delim := string(src[i+1 : i+open])
	closing := ")" + delim + "\""
	end := strings.Index(string(src[i+open:]), closing)
	if end < 0 {
		return len(src)
	}
	return i + open + end + len(closing)
}

// matchParen returns the offset just past the parenthesis closing the one at
// src[open].
func matchParen(src []byte, open int) (int, bool) {
	depth := 0
	for i := open; i < len(src); {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		case '"', '\'':
			i = skipLiteral(src, i)
			continue
		}
		i++
	}
	return 0, false
}

func skipSpaces(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r' || src[i] == '\n') {
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// lineOf returns the 1-based line of offset.
func lineOf(src []byte, offset int) int {
	return strings.Count(string(src[:offset]), "\n") + 1
}

// columnOf returns the 1-based byte column of offset.
func columnOf(src []byte, offset int) int {
	return offset - strings.LastIndexByte(string(src[:offset]), '\n')
}
