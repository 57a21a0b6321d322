package sqlguard

import "strings"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokNumber
	tokString  // '...'
	tokQuoted  // "..." or `...`
	tokComment // -- ..., # ... or /* ... */
	tokSemicolon
	tokComma
	tokLParen
	tokRParen
	tokDot
	tokOp
	tokIllegal // unterminated literal or comment, or a backslash escape
)

type token struct {
	kind     tokenKind
	text     string
	pos, end int // byte offsets into the input
}

// upper returns the token text uppercased, for keyword comparison.
func (t token) upper() string { return strings.ToUpper(t.text) }

// isWord reports whether t is the bare word w (case-insensitive).
func (t token) isWord(w string) bool { return t.kind == tokWord && strings.EqualFold(t.text, w) }

// scanner splits SQL text into tokens. It knows just enough about literals
// and comments to keep clause keywords inside them from being seen.
type scanner struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

func newScanner(input string) *scanner {
	s := &scanner{input: input}
	s.readChar()
	return s
}

func (s *scanner) readChar() {
	if s.readPos >= len(s.input) {
		s.ch = 0
	} else {
		s.ch = s.input[s.readPos]
	}
	s.pos = s.readPos
	s.readPos++
}

func (s *scanner) peekChar() byte {
	if s.readPos >= len(s.input) {
		return 0
	}
	return s.input[s.readPos]
}

func (s *scanner) atEOF() bool { return s.pos >= len(s.input) }

func (s *scanner) skipWhitespace() {
	for !s.atEOF() && (s.ch == ' ' || s.ch == '\t' || s.ch == '\n' || s.ch == '\r' || s.ch == '\f') {
		s.readChar()
	}
}

func (s *scanner) next() token {
	s.skipWhitespace()
	start := s.pos
	if s.atEOF() {
		return token{kind: tokEOF, pos: start, end: start}
	}

	kind := tokOp
	switch {
	case s.ch == '\'':
		kind = s.readQuoted('\'', tokString)
	case s.ch == '"':
		kind = s.readQuoted('"', tokQuoted)
	case s.ch == '`':
		kind = s.readQuoted('`', tokQuoted)
	case s.ch == '-' && s.peekChar() == '-', s.ch == '#':
		for !s.atEOF() && s.ch != '\n' {
			s.readChar()
		}
		kind = tokComment
	case s.ch == '/' && s.peekChar() == '*':
		kind = s.readBlockComment()
	case isWordStart(s.ch):
		for !s.atEOF() && isWordPart(s.ch) {
			s.readChar()
		}
		kind = tokWord
	case isDigit(s.ch):
		for !s.atEOF() && (isDigit(s.ch) || s.ch == '.') {
			s.readChar()
		}
		kind = tokNumber
	default:
		switch s.ch {
		case ';':
			kind = tokSemicolon
		case ',':
			kind = tokComma
		case '(':
			kind = tokLParen
		case ')':
			kind = tokRParen
		case '.':
			kind = tokDot
		}
		s.readChar()
	}
	return token{kind: kind, text: s.input[start:s.pos], pos: start, end: s.pos}
}

// readQuoted consumes a quoted run where a doubled quote is an escape.
// Backslashes inside are reported as illegal: dialects disagree on them.
func (s *scanner) readQuoted(q byte, kind tokenKind) tokenKind {
	s.readChar()
	for !s.atEOF() {
		switch {
		case s.ch == '\\':
			kind = tokIllegal
		case s.ch == q && s.peekChar() == q:
			s.readChar()
		case s.ch == q:
			s.readChar()
			return kind
		}
		s.readChar()
	}
	return tokIllegal
}

func (s *scanner) readBlockComment() tokenKind {
	s.readChar()
	s.readChar()
	for !s.atEOF() {
		if s.ch == '*' && s.peekChar() == '/' {
			s.readChar()
			s.readChar()
			return tokComment
		}
		s.readChar()
	}
	return tokIllegal
}

func isWordStart(c byte) bool {
	return c == '_' || c == '$' || c == '@' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isWordPart(c byte) bool { return isWordStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// tokenize returns every token of input, without the trailing EOF.
func tokenize(input string) []token {
	s := newScanner(input)
	var out []token
	for {
		t := s.next()
		if t.kind == tokEOF {
			return out
		}
		out = append(out, t)
	}
}
