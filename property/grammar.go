package property

import (
	"github.com/teranos/annogen/errors"
)

// Grammar configures how a payload is split.
type Grammar struct {
	Separator         rune
	ArgumentOpen      rune
	ArgumentClose     rune
	ArgumentSeparator rune
}

// DefaultGrammar is `Name[arg, arg], Other`.
func DefaultGrammar() Grammar {
	return Grammar{
		Separator:         ',',
		ArgumentOpen:      '[',
		ArgumentClose:     ']',
		ArgumentSeparator: ',',
	}
}

// Validate rejects grammars that can not be parsed unambiguously.
func (g Grammar) Validate() error {
	if g.Separator == 0 || g.ArgumentOpen == 0 || g.ArgumentClose == 0 || g.ArgumentSeparator == 0 {
		return errors.Mark(errors.New("property grammar characters must all be set"), errors.ErrInvalidConfig)
	}
	if g.ArgumentOpen == g.ArgumentClose {
		return errors.Mark(errors.Newf("argument open and close are both %q", g.ArgumentOpen), errors.ErrInvalidConfig)
	}
	for _, r := range []rune{g.Separator, g.ArgumentSeparator} {
		if r == g.ArgumentOpen || r == g.ArgumentClose {
			return errors.Mark(errors.Newf("separator %q collides with an argument encloser", r), errors.ErrInvalidConfig)
		}
	}
	for _, r := range []rune{g.Separator, g.ArgumentOpen, g.ArgumentClose, g.ArgumentSeparator} {
		if r == '"' || r == ' ' || r == '\t' {
			return errors.Mark(errors.Newf("%q can not be used in a property grammar", r), errors.ErrInvalidConfig)
		}
	}
	return nil
}
