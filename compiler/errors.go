package compiler

import "fmt"

// LexError reports source text the lexer cannot tokenize. Lexing stops at
// the first error.
type LexError struct {
	Pos Position
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %s: %s", e.Pos, e.Msg)
}

// ParseError reports a token sequence that does not form a valid program.
// The parser never recovers; the first ParseError aborts the parse.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Msg)
}

func errorAt(tok Token, format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

// describe renders a token for error messages.
func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenNewline:
		return "newline"
	case TokenIdentifier, TokenClassIdentifier, TokenNumber, TokenSymbol:
		return fmt.Sprintf("%q", tok.Literal)
	case TokenString:
		return fmt.Sprintf("string %q", tok.Literal)
	}
	return fmt.Sprintf("%q", tok.Type.String())
}
