package property

import (
	"strings"
	"unicode"

	"github.com/teranos/annogen/errors"
)

// Parser turns raw payloads into properties. A Parser is immutable and safe
// for concurrent use.
type Parser struct {
	grammar Grammar
}

// NewParser returns a parser for g. The grammar is assumed valid.
func NewParser(g Grammar) *Parser {
	return &Parser{grammar: g}
}

// Grammar returns the parser's grammar.
func (p *Parser) Grammar() Grammar {
	return p.grammar
}

type piece struct {
	text string
	err  error
}

// Parse splits payload into properties. Malformed properties are dropped and
// reported as ErrGrammar errors; well-formed siblings are still returned.
func (p *Parser) Parse(payload string) ([]Property, []error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}

	var (
		props []Property
		errs  []error
	)
	for _, pc := range p.split(payload) {
		if pc.err != nil {
			errs = append(errs, pc.err)
			continue
		}
		prop, err := p.parsePiece(pc.text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		props = append(props, prop)
	}
	return props, errs
}

// split cuts payload at top-level separators. Each piece carries its own
// balance error so one bad property does not hide the others.
func (p *Parser) split(payload string) []piece {
	g := p.grammar
	var (
		pieces  []piece
		cur     strings.Builder
		depth   int
		inQuote bool
		escaped bool
		bad     error
	)
	flush := func() {
		text := strings.TrimSpace(cur.String())
		pc := piece{text: text, err: bad}
		if pc.err == nil && inQuote {
			pc.err = grammarErrorf(text, "unterminated string literal")
		}
		if pc.err == nil && depth > 0 {
			pc.err = grammarErrorf(text, "unbalanced %q", g.ArgumentOpen)
		}
		pieces = append(pieces, pc)
		cur.Reset()
		depth, inQuote, bad = 0, false, nil
	}

	for _, r := range payload {
		switch {
		case escaped:
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == g.ArgumentOpen:
			depth++
		case r == g.ArgumentClose:
			depth--
			if depth < 0 && bad == nil {
				bad = grammarErrorf(cur.String()+string(r), "unexpected %q", g.ArgumentClose)
				depth = 0
			}
		case r == g.Separator && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return pieces
}

func (p *Parser) parsePiece(text string) (Property, error) {
	g := p.grammar
	if text == "" {
		return Property{}, grammarErrorf(text, "empty property")
	}

	open := strings.IndexRune(text, g.ArgumentOpen)
	if open < 0 {
		if !isIdentifier(text) {
			return Property{}, grammarErrorf(text, "invalid property name")
		}
		return Property{Name: text}, nil
	}

	name := strings.TrimSpace(text[:open])
	if !isIdentifier(name) {
		return Property{}, grammarErrorf(text, "invalid property name %q", name)
	}
	if !strings.HasSuffix(text, string(g.ArgumentClose)) {
		return Property{}, grammarErrorf(text, "unexpected text after %q", g.ArgumentClose)
	}
	inner := text[open+len(string(g.ArgumentOpen)) : len(text)-len(string(g.ArgumentClose))]

	args, err := p.splitArguments(text, inner)
	if err != nil {
		return Property{}, err
	}
	return Property{Name: name, Arguments: args}, nil
}

// splitArguments cuts inner at depth-0 argument separators. Nested
// argument lists are kept verbatim, quoted arguments are unquoted.
func (p *Parser) splitArguments(text, inner string) ([]string, error) {
	g := p.grammar
	if strings.TrimSpace(inner) == "" {
		return nil, nil
	}

	var (
		args    []string
		cur     strings.Builder
		depth   int
		inQuote bool
		escaped bool
	)
	push := func() error {
		arg := strings.TrimSpace(cur.String())
		cur.Reset()
		if arg == "" {
			return grammarErrorf(text, "empty argument")
		}
		if len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' {
			arg = unquote(arg[1 : len(arg)-1])
		}
		args = append(args, arg)
		return nil
	}

	for _, r := range inner {
		switch {
		case escaped:
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == g.ArgumentOpen:
			depth++
		case r == g.ArgumentClose:
			depth--
			if depth < 0 {
				return nil, grammarErrorf(text, "unexpected %q", g.ArgumentClose)
			}
		case r == g.ArgumentSeparator && depth == 0:
			if err := push(); err != nil {
				return nil, err
			}
			continue
		}
		cur.WriteRune(r)
	}
	if err := push(); err != nil {
		return nil, err
	}
	return args, nil
}

func unquote(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func grammarErrorf(text, format string, args ...interface{}) error {
	err := errors.Newf(format, args...)
	err = errors.Wrapf(err, "property %q", text)
	return errors.Mark(err, errors.ErrGrammar)
}
