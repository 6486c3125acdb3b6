package lexer

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Guardsquare/proguard-assembler/jbcerr"
)

// TokenSource lexes a character stream into a Token stream: a cursor over
// an io.Reader of JBC source text, with small look-ahead helpers, and a
// single rune of pushback instead of a fixed-width field.
type TokenSource struct {
	r    *bufio.Reader
	line int

	havePeek bool
	peeked   rune

	havePending bool
	pending     rune

	pushedBack bool
	last       Token
}

// New wraps any io.Reader as a TokenSource, starting at line 1.
func New(r io.Reader) *TokenSource {
	return &TokenSource{r: bufio.NewReader(r), line: 1}
}

// Line returns the 1-based line number of the most recently returned token.
func (s *TokenSource) Line() int {
	return s.line
}

// PushBack un-reads the last token returned by Next. Valid exactly once
// after a successful read (invariant); a second call without an
// intervening Next is a programmer error and panics.
func (s *TokenSource) PushBack() {
	if s.pushedBack {
		panic("lexer: PushBack called twice in a row")
	}
	s.pushedBack = true
}

func (s *TokenSource) peekRune() (rune, error) {
	if s.havePending {
		return s.pending, nil
	}
	if s.havePeek {
		return s.peeked, nil
	}
	r, _, err := s.r.ReadRune()
	if err != nil {
		return 0, err
	}
	s.peeked = r
	s.havePeek = true
	return r, nil
}

func (s *TokenSource) readRune() (rune, error) {
	if s.havePending {
		s.havePending = false
		r := s.pending
		if r == '\n' {
			s.line++
		}
		return r, nil
	}
	r, err := s.peekRune()
	if err != nil {
		return 0, err
	}
	s.havePeek = false
	if r == '\n' {
		s.line++
	}
	return r, nil
}

// skipIgnorable consumes whitespace and both comment styles (:
// "// to end-of-line; /* ... */ block, non-nesting"). It stops with a
// pending rune buffered whenever it consumes a '/' that turns out not to
// start a comment.
func (s *TokenSource) skipIgnorable() error {
	for {
		r, err := s.peekRune()
		if err != nil {
			return err
		}
		switch r {
		case ' ', '\t', '\r', '\n':
			s.readRune()
			continue
		case '/':
			s.readRune()
			r2, err2 := s.peekRune()
			if err2 == nil && r2 == '/' {
				s.readRune()
				for {
					rr, e := s.readRune()
					if e != nil || rr == '\n' {
						break
					}
				}
				continue
			}
			if err2 == nil && r2 == '*' {
				s.readRune()
				prevStar := false
				for {
					rr, e := s.readRune()
					if e != nil {
						return e
					}
					if prevStar && rr == '/' {
						break
					}
					prevStar = rr == '*'
				}
				continue
			}
			// A lone '/': not a comment, buffer it as the real next token's
			// first character.
			s.pending = '/'
			s.havePending = true
			return nil
		default:
			return nil
		}
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isWordStart(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case r == '_', r == '$', r == '.', r == '-':
		return true
	case r >= 0xF0 && r <= 0xFF:
		return true
	}
	return false
}

func isWordContinue(r rune) bool {
	return isWordStart(r) || isDigit(r)
}

// Next returns the next token, or a ParseError wrapping any underlying
// read failure.
func (s *TokenSource) Next() (Token, error) {
	if s.pushedBack {
		s.pushedBack = false
		return s.last, nil
	}

	if err := s.skipIgnorable(); err != nil {
		if err == io.EOF {
			tok := Token{Kind: Eof, Line: s.line}
			s.last = tok
			return tok, nil
		}
		return Token{}, jbcerr.NewParse(s.line, "read error: %v", err)
	}

	r, err := s.peekRune()
	if err != nil {
		if err == io.EOF {
			tok := Token{Kind: Eof, Line: s.line}
			s.last = tok
			return tok, nil
		}
		return Token{}, jbcerr.NewParse(s.line, "read error: %v", err)
	}

	startLine := s.line
	var tok Token
	switch {
	case r == '-':
		s.readRune()
		r2, err2 := s.peekRune()
		if err2 == nil && isDigit(r2) {
			tok, err = s.lexNumber(startLine, true)
		} else {
			tok, err = s.lexWord(startLine, "-")
		}
	case isDigit(r):
		tok, err = s.lexNumber(startLine, false)
	case isWordStart(r):
		s.readRune()
		tok, err = s.lexWord(startLine, string(r))
	case r == '"':
		s.readRune()
		tok, err = s.lexQuotedString(startLine)
	case r == '\'':
		s.readRune()
		tok, err = s.lexQuotedChar(startLine)
	default:
		s.readRune()
		tok, err = Token{Kind: Punct, Line: startLine, Ch: r}, nil
	}
	if err != nil {
		return Token{}, err
	}
	s.last = tok
	return tok, nil
}

func (s *TokenSource) lexWord(line int, prefix string) (Token, error) {
	buf := []byte(prefix)
	for {
		r, err := s.peekRune()
		if err != nil {
			break
		}
		if !isWordContinue(r) {
			break
		}
		s.readRune()
		buf = append(buf, string(r)...)
	}
	return Token{Kind: Word, Line: line, Str: string(buf)}, nil
}

func (s *TokenSource) lexNumber(line int, negative bool) (Token, error) {
	var buf []byte
	if negative {
		buf = append(buf, '-')
	}
	for {
		r, err := s.peekRune()
		if err != nil || !isDigit(r) {
			break
		}
		s.readRune()
		buf = append(buf, byte(r))
	}
	if r, err := s.peekRune(); err == nil && r == '.' {
		s.readRune()
		buf = append(buf, '.')
		for {
			r, err := s.peekRune()
			if err != nil || !isDigit(r) {
				break
			}
			s.readRune()
			buf = append(buf, byte(r))
		}
	}
	var v float64
	if _, err := fmt.Sscanf(string(buf), "%g", &v); err != nil {
		return Token{}, jbcerr.NewParse(line, "malformed number %q", string(buf))
	}
	return Token{Kind: Number, Line: line, Num: v}, nil
}

func (s *TokenSource) lexQuotedString(line int) (Token, error) {
	var buf []rune
	for {
		r, err := s.readRune()
		if err != nil {
			return Token{}, jbcerr.NewParse(line, "unterminated string literal")
		}
		if r == '"' {
			break
		}
		if r == '\\' {
			decoded, err := s.decodeEscape(line)
			if err != nil {
				return Token{}, err
			}
			buf = append(buf, decoded)
			continue
		}
		buf = append(buf, r)
	}
	return Token{Kind: QuotedString, Line: line, Str: string(buf)}, nil
}

func (s *TokenSource) lexQuotedChar(line int) (Token, error) {
	r, err := s.readRune()
	if err != nil {
		return Token{}, jbcerr.NewParse(line, "unterminated char literal")
	}
	var ch rune
	if r == '\\' {
		decoded, err := s.decodeEscape(line)
		if err != nil {
			return Token{}, err
		}
		ch = decoded
	} else {
		ch = r
	}
	closing, err := s.readRune()
	if err != nil || closing != '\'' {
		return Token{}, jbcerr.NewParse(line, "char literal must contain exactly one character")
	}
	return Token{Kind: QuotedChar, Line: line, Ch: ch}, nil
}

// decodeEscape decodes one escape sequence, the cursor already past the
// backslash.
func (s *TokenSource) decodeEscape(line int) (rune, error) {
	r, err := s.readRune()
	if err != nil {
		return 0, jbcerr.NewParse(line, "unterminated escape sequence")
	}
	switch r {
	case 'a':
		return 0x07, nil
	case 'b':
		return 0x08, nil
	case 'f':
		return 0x0C, nil
	case 'n':
		return 0x0A, nil
	case 'r':
		return 0x0D, nil
	case 't':
		return 0x09, nil
	case 'v':
		return 0x0B, nil
	case '"':
		return '"', nil
	case '\'':
		return '\'', nil
	case '\\':
		return '\\', nil
	case '0', '1', '2', '3', '4', '5', '6', '7':
		value := int(r - '0')
		for i := 0; i < 2; i++ {
			rr, err := s.peekRune()
			if err != nil || rr < '0' || rr > '7' {
				break
			}
			next := value*8 + int(rr-'0')
			if next > 0o377 {
				break
			}
			s.readRune()
			value = next
		}
		return rune(value), nil
	default:
		return 0, jbcerr.NewParse(line, "unknown escape sequence \\%c", r)
	}
}
