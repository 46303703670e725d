package parse

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// cmd.exe operators become standalone tokens. Ordered longest first so
// multi-character operators win over their single-character prefixes.
var cmdOperators = []string{"&&", "||", ">>", "<<", "|", "&", ">", "<", "(", ")"}

// Split tokenizes a command-line fragment using cmd.exe conventions: caret
// escapes, %VAR% expansion outside quotes and operators as separate tokens.
// Single quotes delimit arguments the same way double quotes do, so extra
// argument strings can be written identically on every platform.
func Split(s string) ([]string, error) {
	lx := winLexer{input: s}
	return lx.split()
}

type winLexer struct {
	input   string
	tokens  []string
	current strings.Builder
	// pending marks that a token exists even when current is empty, as for
	// "" or an environment variable which expands to nothing.
	pending bool
	quote   rune
	escaped bool
}

func (l *winLexer) split() ([]string, error) {
	i := 0
	for i < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[i:])
		if r == utf8.RuneError && size == 1 {
			return nil, fmt.Errorf("invalid UTF-8 encoding at position %d", i)
		}
		if r == '\n' || r == '\r' {
			r = ' '
		}

		switch {
		case l.escaped:
			l.write(r)
			l.escaped = false
			i += size
		case l.quote == 0 && r == '^':
			l.escaped = true
			i += size
		case l.quote != 0 && r == l.quote:
			l.quote = 0
			l.pending = true
			i += size
		case l.quote == 0 && (r == '"' || r == '\''):
			l.quote = r
			i += size
		case r == '\\' && l.quote != '\'':
			i = l.backslashes(i)
		case l.quote != 0:
			l.write(r)
			i += size
		case r == '%':
			i = l.envVar(i)
		case r == ' ' || r == '\t':
			l.flush()
			i += size
		default:
			if n := l.operator(i); n > 0 {
				i += n
				continue
			}
			l.write(r)
			i += size
		}
	}

	l.flush()
	return l.tokens, nil
}

func (l *winLexer) write(r rune) {
	l.current.WriteRune(r)
	l.pending = true
}

func (l *winLexer) flush() {
	if l.current.Len() == 0 && !l.pending {
		return
	}
	l.tokens = append(l.tokens, l.current.String())
	l.current.Reset()
	l.pending = false
}

// backslashes consumes a run of backslashes starting at i. Before a double
// quote, cmd collapses each pair into one literal backslash and an odd
// remainder escapes the quote; anywhere else backslashes are literal.
func (l *winLexer) backslashes(i int) int {
	n := 0
	for i < len(l.input) && l.input[i] == '\\' {
		n++
		i++
	}

	if i < len(l.input) && l.input[i] == '"' {
		l.current.WriteString(strings.Repeat(`\`, n/2))
		l.pending = true
		if n%2 == 0 {
			if l.quote == '"' {
				l.quote = 0
			} else {
				l.quote = '"'
			}
		} else {
			l.current.WriteByte('"')
		}
		return i + 1
	}

	l.current.WriteString(strings.Repeat(`\`, n))
	l.pending = true
	return i
}

// envVar expands a %VAR% reference at i. Without a closing percent the
// leading percent stays literal, matching cmd.
func (l *winLexer) envVar(i int) int {
	end := strings.IndexByte(l.input[i+1:], '%')
	if end < 0 {
		l.write('%')
		return i + 1
	}

	name := l.input[i+1 : i+1+end]
	l.current.WriteString(os.Getenv(name))
	l.pending = true
	return i + 2 + end
}

// operator emits the operator starting at i, if any, and reports how many
// bytes it consumed. A redirection glued to a file descriptor, 2>> for
// example, stays one token.
func (l *winLexer) operator(i int) int {
	for _, op := range cmdOperators {
		if !strings.HasPrefix(l.input[i:], op) {
			continue
		}
		if (op[0] == '>' || op[0] == '<') && l.fdToken() {
			l.current.WriteString(op)
			l.flush()
		} else {
			l.flush()
			l.tokens = append(l.tokens, op)
		}
		return len(op)
	}

	return 0
}

// fdToken reports whether the token being built is a bare file descriptor.
func (l *winLexer) fdToken() bool {
	s := l.current.String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
