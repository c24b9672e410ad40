// Package invocation turns a raw input line into a structured command
// invocation and provides read helpers for command handlers.
//
// Grammar, one whitespace separated token at a time:
//
//	hello name=Ada -formal --excited extra "quoted arg" msg="hi there"
//
// The first token is the command. A token holding an unquoted '=' is a
// parameter (duplicate keys: last value wins). A token starting with one or
// two dashes and holding no '=' is a flag. Anything else is a positional
// argument. Double quotes group whitespace; inside quotes \" and \\ escape.
package invocation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is returned by Parse for a line that is empty after trimming.
// It is not a ParseError: callers usually just show the next prompt.
var ErrEmpty = errors.New("empty line")

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	UnterminatedQuote ErrorKind = iota + 1
	EmptyKey
)

func (k ErrorKind) String() string {
	switch k {
	case UnterminatedQuote:
		return "unterminated quote"
	case EmptyKey:
		return "parameter without key"
	}
	return "parse error"
}

// ParseError describes malformed input. Pos is the byte offset in the line
// where the offending token or quote starts.
type ParseError struct {
	Kind ErrorKind
	Pos  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at column %d", e.Kind, e.Pos+1)
}

type token struct {
	text   string
	eq     int // offset of the first unquoted '=' in text, -1 if none
	quoted bool
}

// Parse tokenizes line into an Invocation in a single pass.
func Parse(line string) (*Invocation, error) {
	inv := &Invocation{Raw: line}
	seenCommand := false
	var (
		paramAt   map[string]int
		flagsSeen map[string]struct{}
	)

	for i := 0; ; {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			break
		}

		start := i
		tok, next, err := scanToken(line, start)
		if err != nil {
			return nil, err
		}
		i = next

		if !seenCommand {
			inv.Command = tok.text
			seenCommand = true
			continue
		}

		switch {
		case tok.eq >= 0:
			if tok.eq == 0 {
				return nil, &ParseError{Kind: EmptyKey, Pos: start}
			}
			key, value := tok.text[:tok.eq], tok.text[tok.eq+1:]
			if paramAt == nil {
				paramAt = make(map[string]int)
			}
			// first position, last value
			if at, dup := paramAt[key]; dup {
				inv.Params[at].Value = value
				continue
			}
			paramAt[key] = len(inv.Params)
			inv.Params = append(inv.Params, Param{Key: key, Value: value})
		case line[start] == '-' && flagName(tok.text) != "":
			name := flagName(tok.text)
			if flagsSeen == nil {
				flagsSeen = make(map[string]struct{})
			}
			if _, dup := flagsSeen[name]; dup {
				continue
			}
			flagsSeen[name] = struct{}{}
			inv.Flags = append(inv.Flags, Flag{Name: name, Present: true})
		default:
			inv.Args = append(inv.Args, tok.text)
		}
	}

	if !seenCommand {
		return nil, ErrEmpty
	}
	return inv, nil
}

// scanToken reads one token starting at start. Unquoted tokens are sliced
// straight out of line; a builder is only set up once a quote shows up.
func scanToken(line string, start int) (token, int, error) {
	tok := token{eq: -1}
	var b strings.Builder
	inQuote := false
	quoteAt := 0

	i := start
	for ; i < len(line); i++ {
		c := line[i]
		if inQuote {
			switch {
			case c == '"':
				inQuote = false
			case c == '\\' && i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\'):
				i++
				b.WriteByte(line[i])
			default:
				b.WriteByte(c)
			}
			continue
		}
		if isSpace(c) {
			break
		}
		if c == '"' {
			if !tok.quoted {
				tok.quoted = true
				b.Grow(len(line) - start)
				b.WriteString(line[start:i])
			}
			inQuote = true
			quoteAt = i
			continue
		}
		if c == '=' && tok.eq < 0 {
			if tok.quoted {
				tok.eq = b.Len()
			} else {
				tok.eq = i - start
			}
		}
		if tok.quoted {
			b.WriteByte(c)
		}
	}

	if inQuote {
		return token{}, i, &ParseError{Kind: UnterminatedQuote, Pos: quoteAt}
	}
	if tok.quoted {
		tok.text = b.String()
	} else {
		tok.text = line[start:i]
	}
	return tok, i, nil
}

// flagName strips one or two leading dashes.
func flagName(s string) string {
	if strings.HasPrefix(s, "--") {
		return s[2:]
	}
	return strings.TrimPrefix(s, "-")
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
