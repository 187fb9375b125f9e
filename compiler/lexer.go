package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Tessera syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes Tessera source code. Spaces, tabs and carriage returns are
// discarded; newlines and comments are returned as tokens.
type Lexer struct {
	input   string
	limit   int  // offset where lexing stops
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, 0 at end
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)
	prev    Token
	err     *LexError
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return newSpanLexer(input, 0, len(input), Position{Offset: 0, Line: 1, Column: 1})
}

// newSpanLexer creates a lexer over input[start:end], where start sits at
// the given source position. Token offsets stay relative to input.
func newSpanLexer(input string, start, end int, at Position) *Lexer {
	l := &Lexer{
		input:   input,
		limit:   end,
		readPos: start,
		line:    at.Line,
		col:     at.Column - 1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.col++
	if l.readPos >= l.limit {
		l.ch = 0
		l.pos = l.limit
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= l.limit {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) atEnd() bool {
	return l.pos >= l.limit
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// Err returns the error that stopped the lexer, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// NextToken returns the next token. After an error every call returns the
// same TokenError token.
func (l *Lexer) NextToken() Token {
	if l.err != nil {
		return Token{Type: TokenError, Literal: l.err.Msg, Pos: l.err.Pos, End: l.err.Pos.Offset}
	}
	tok := l.scan()
	if !tok.IsTrivia() {
		l.prev = tok
	}
	return tok
}

func (l *Lexer) token(tt TokenType, pos Position) Token {
	return Token{Type: tt, Literal: l.input[pos.Offset:l.pos], Pos: pos, End: l.pos}
}

// single consumes one character and returns it as a token.
func (l *Lexer) single(tt TokenType, pos Position) Token {
	l.readChar()
	return l.token(tt, pos)
}

func (l *Lexer) fail(pos Position, format string, args ...interface{}) Token {
	l.err = &LexError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
	return Token{Type: TokenError, Literal: l.err.Msg, Pos: pos, End: l.pos}
}

func (l *Lexer) scan() Token {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}

	pos := l.position()

	switch {
	case l.atEnd():
		return Token{Type: TokenEOF, Pos: pos, End: l.pos}

	case l.ch == '\n':
		return l.single(TokenNewline, pos)

	case l.ch == '/' && l.peekChar() == '/':
		for l.ch != '\n' && !l.atEnd() {
			l.readChar()
		}
		return l.token(TokenComment, pos)

	case l.ch == '(':
		return l.single(TokenLParen, pos)
	case l.ch == ')':
		return l.single(TokenRParen, pos)
	case l.ch == '[':
		return l.single(TokenLBracket, pos)
	case l.ch == ']':
		return l.single(TokenRBracket, pos)
	case l.ch == '{':
		return l.single(TokenLBrace, pos)
	case l.ch == '}':
		return l.single(TokenRBrace, pos)
	case l.ch == '#':
		return l.single(TokenHash, pos)
	case l.ch == ',':
		return l.single(TokenComma, pos)
	case l.ch == ';':
		return l.single(TokenSemicolon, pos)
	case l.ch == '.':
		return l.single(TokenDot, pos)

	case l.ch == ':':
		l.readChar()
		if l.ch == ':' {
			l.readChar()
			return l.token(TokenDoubleColon, pos)
		}
		return l.token(TokenColon, pos)

	case l.ch == '=':
		l.readChar()
		switch l.ch {
		case '>':
			l.readChar()
			return l.token(TokenArrow, pos)
		case '=':
			l.readChar()
			return l.token(TokenSymbol, pos)
		}
		return l.token(TokenEqual, pos)

	case l.ch == '!':
		l.readChar()
		if l.ch != '=' {
			return l.fail(pos, "unexpected character: '!'")
		}
		l.readChar()
		return l.token(TokenSymbol, pos)

	case l.ch == '<' || l.ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
		}
		return l.token(TokenSymbol, pos)

	case l.ch == '-' && isDigit(l.peekChar()) && !l.prev.endsOperand():
		return l.readNumber(pos)

	case l.ch == '+' || l.ch == '-' || l.ch == '*' || l.ch == '/':
		return l.single(TokenSymbol, pos)

	case l.ch == '"':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)

	default:
		return l.fail(pos, "unexpected character: %q", l.ch)
	}
}

// readString reads a double-quoted string literal. The token literal holds
// the unescaped contents.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for {
		switch {
		case l.atEnd() || l.ch == '\n':
			return l.fail(pos, "unterminated string")
		case l.ch == '"':
			l.readChar()
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos, End: l.pos}
		case l.ch == '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '"', '\\':
				sb.WriteRune(l.ch)
			default:
				return l.fail(l.position(), "unknown escape sequence: \\%c", l.ch)
			}
			l.readChar()
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

// readNumber reads an integer or decimal literal, with an optional leading
// minus sign.
func (l *Lexer) readNumber(pos Position) Token {
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume .
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.token(TokenNumber, pos)
}

// readIdentifier reads an identifier, class identifier or reserved word.
func (l *Lexer) readIdentifier(pos Position) Token {
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	tok := l.token(TokenIdentifier, pos)
	if tt, ok := reservedWords[tok.Literal]; ok {
		tok.Type = tt
		return tok
	}
	first, _ := utf8.DecodeRuneInString(tok.Literal)
	if unicode.IsUpper(first) {
		tok.Type = TokenClassIdentifier
	}
	return tok
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input, ending with TokenEOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			return tokens, l.Err()
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// ---------------------------------------------------------------------------
// Cursor: restartable multi-position lookahead over a Lexer
// ---------------------------------------------------------------------------

// Cursor buffers tokens from a Lexer so the parser can look arbitrarily far
// ahead. Peek advances a speculative cursor; ResetPeek rewinds it without
// consuming anything; Next consumes one token and resets the peek cursor.
type Cursor struct {
	lexer *Lexer
	buf   []Token
	peek  int
}

// NewCursor wraps a lexer.
func NewCursor(l *Lexer) *Cursor {
	return &Cursor{lexer: l}
}

// fill ensures at least n tokens are buffered. Once the lexer reports EOF or
// an error, that token is repeated.
func (c *Cursor) fill(n int) {
	for len(c.buf) < n {
		if k := len(c.buf); k > 0 && (c.buf[k-1].Type == TokenEOF || c.buf[k-1].Type == TokenError) {
			c.buf = append(c.buf, c.buf[k-1])
			continue
		}
		c.buf = append(c.buf, c.lexer.NextToken())
	}
}

// Next consumes and returns the next token.
func (c *Cursor) Next() Token {
	c.fill(1)
	tok := c.buf[0]
	c.buf = c.buf[1:]
	c.peek = 0
	return tok
}

// Peek returns the token under the peek cursor and advances the cursor.
func (c *Cursor) Peek() Token {
	c.fill(c.peek + 1)
	tok := c.buf[c.peek]
	c.peek++
	return tok
}

// ResetPeek rewinds the peek cursor to the next unconsumed token.
func (c *Cursor) ResetPeek() {
	c.peek = 0
}

// Lookahead returns the token n positions ahead without moving either cursor.
func (c *Cursor) Lookahead(n int) Token {
	c.fill(n + 1)
	return c.buf[n]
}

// Err returns the lexer error, if lexing has failed.
func (c *Cursor) Err() error {
	return c.lexer.Err()
}
