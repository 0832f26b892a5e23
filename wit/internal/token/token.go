package token

import (
	"fmt"
	"unicode"
)

type Type int

const (
	Ident Type = iota
	// EscapedIdent is a %-prefixed identifier. The value carries no '%';
	// the distinct type keeps keyword dispatch from seeing it.
	EscapedIdent
	Version
	LBrace
	RBrace
	LParen
	RParen
	Lt
	Gt
	Colon
	Semi
	Comma
	Dot
	Slash
	At
	Eq
	Arrow
	Star
)

func (t Type) String() string {
	switch t {
	case Ident, EscapedIdent:
		return "identifier"
	case Version:
		return "version"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Lt:
		return "'<'"
	case Gt:
		return "'>'"
	case Colon:
		return "':'"
	case Semi:
		return "';'"
	case Comma:
		return "','"
	case Dot:
		return "'.'"
	case Slash:
		return "'/'"
	case At:
		return "'@'"
	case Eq:
		return "'='"
	case Arrow:
		return "'->'"
	case Star:
		return "'*'"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

func isVersionRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '+'
}

// Tokenize splits WIT source text into tokens. Line comments (//), block
// comments (/* */), and doc comments (///) are dropped. A '@' is followed by
// a Version token so semver suffixes with dots never collide with the Dot
// token.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	line := 1
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		if r == '/' {
			if i+1 < len(runes) && runes[i+1] == '/' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				line++
				continue
			}
			if i+1 < len(runes) && runes[i+1] == '*' {
				depth := 1
				i += 2
				for i < len(runes) && depth > 0 {
					if runes[i] == '/' && i+1 < len(runes) && runes[i+1] == '*' {
						depth++
						i++
					} else if runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/' {
						depth--
						i++
					} else if runes[i] == '\n' {
						line++
					}
					i++
				}
				if depth > 0 {
					return nil, fmt.Errorf("line %d: unterminated block comment", line)
				}
				i--
				continue
			}
			tokens = append(tokens, Token{"/", Slash, line})
			continue
		}

		if r == '-' && i+1 < len(runes) && runes[i+1] == '>' {
			tokens = append(tokens, Token{"->", Arrow, line})
			i++
			continue
		}

		if r == '@' {
			tokens = append(tokens, Token{"@", At, line})
			start := i + 1
			j := start
			for j < len(runes) && isVersionRune(runes[j]) {
				// In "use pkg/iface@1.0.0.{names}" the dot before '{'
				// belongs to the use list, not the version.
				if runes[j] == '.' && j+1 < len(runes) && runes[j+1] == '{' {
					break
				}
				j++
			}
			if j == start {
				return nil, fmt.Errorf("line %d: expected version after '@'", line)
			}
			tokens = append(tokens, Token{string(runes[start:j]), Version, line})
			i = j - 1
			continue
		}

		switch r {
		case '{':
			tokens = append(tokens, Token{"{", LBrace, line})
			continue
		case '}':
			tokens = append(tokens, Token{"}", RBrace, line})
			continue
		case '(':
			tokens = append(tokens, Token{"(", LParen, line})
			continue
		case ')':
			tokens = append(tokens, Token{")", RParen, line})
			continue
		case '<':
			tokens = append(tokens, Token{"<", Lt, line})
			continue
		case '>':
			tokens = append(tokens, Token{">", Gt, line})
			continue
		case ':':
			tokens = append(tokens, Token{":", Colon, line})
			continue
		case ';':
			tokens = append(tokens, Token{";", Semi, line})
			continue
		case ',':
			tokens = append(tokens, Token{",", Comma, line})
			continue
		case '.':
			tokens = append(tokens, Token{".", Dot, line})
			continue
		case '=':
			tokens = append(tokens, Token{"=", Eq, line})
			continue
		case '*':
			tokens = append(tokens, Token{"*", Star, line})
			continue
		}

		// %-prefixed identifiers escape keywords
		if r == '%' {
			start := i + 1
			j := start
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			if j == start {
				return nil, fmt.Errorf("line %d: expected identifier after '%%'", line)
			}
			tokens = append(tokens, Token{string(runes[start:j]), EscapedIdent, line})
			i = j - 1
			continue
		}

		if isIdentRune(r) {
			start := i
			j := i
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			tokens = append(tokens, Token{string(runes[start:j]), Ident, line})
			i = j - 1
			continue
		}

		return nil, fmt.Errorf("line %d: unexpected character %q", line, r)
	}

	return tokens, nil
}
