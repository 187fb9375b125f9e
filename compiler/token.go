package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types for the Tessera lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Names and literals
	TokenIdentifier      // foo, this
	TokenClassIdentifier // Foo
	TokenNumber          // 42, 3.5, -1
	TokenString          // "hello"
	TokenBoolean         // true, false
	TokenNull            // null

	// Operators
	TokenSymbol // + - * / == != < > <= >=

	// Structural punctuation
	TokenLParen      // (
	TokenRParen      // )
	TokenLBracket    // [
	TokenRBracket    // ]
	TokenLBrace      // {
	TokenRBrace      // }
	TokenHash        // #
	TokenComma       // ,
	TokenColon       // :
	TokenDoubleColon // ::
	TokenDot         // .
	TokenArrow       // =>
	TokenEqual       // =
	TokenSemicolon   // ;
	TokenNewline     // \n
	TokenComment     // // ...

	// Keywords
	TokenVar
	TokenFn
	TokenStatic
	TokenClass
	TokenOp
	TokenIf
	TokenElse
	TokenReturn
	TokenImport
	TokenExport
)

var tokenNames = map[TokenType]string{
	TokenEOF:             "EOF",
	TokenError:           "ERROR",
	TokenIdentifier:      "IDENTIFIER",
	TokenClassIdentifier: "CLASS_IDENTIFIER",
	TokenNumber:          "NUMBER",
	TokenString:          "STRING",
	TokenBoolean:         "BOOLEAN",
	TokenNull:            "null",
	TokenSymbol:          "SYMBOL",
	TokenLParen:          "(",
	TokenRParen:          ")",
	TokenLBracket:        "[",
	TokenRBracket:        "]",
	TokenLBrace:          "{",
	TokenRBrace:          "}",
	TokenHash:            "#",
	TokenComma:           ",",
	TokenColon:           ":",
	TokenDoubleColon:     "::",
	TokenDot:             ".",
	TokenArrow:           "=>",
	TokenEqual:           "=",
	TokenSemicolon:       ";",
	TokenNewline:         "NEWLINE",
	TokenComment:         "COMMENT",
	TokenVar:             "var",
	TokenFn:              "fn",
	TokenStatic:          "static",
	TokenClass:           "class",
	TokenOp:              "op",
	TokenIf:              "if",
	TokenElse:            "else",
	TokenReturn:          "return",
	TokenImport:          "import",
	TokenExport:          "export",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token. Literal is the raw source slice; for
// strings it is the unquoted, unescaped contents.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position // start position
	End     int      // byte offset just past the token in the source
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Is reports whether the token has the given type.
func (t Token) Is(tt TokenType) bool { return t.Type == tt }

// IsTrivia reports whether the token carries no syntax (newlines, comments).
func (t Token) IsTrivia() bool {
	return t.Type == TokenNewline || t.Type == TokenComment
}

// endsOperand reports whether a token can be the last token of an operand.
// The lexer uses it to tell a negative literal from a binary minus.
func (t Token) endsOperand() bool {
	switch t.Type {
	case TokenIdentifier, TokenClassIdentifier, TokenNumber, TokenString,
		TokenBoolean, TokenNull, TokenRParen, TokenRBracket, TokenRBrace:
		return true
	}
	return false
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"var":    TokenVar,
	"fn":     TokenFn,
	"static": TokenStatic,
	"class":  TokenClass,
	"op":     TokenOp,
	"if":     TokenIf,
	"else":   TokenElse,
	"return": TokenReturn,
	"import": TokenImport,
	"export": TokenExport,
	"true":   TokenBoolean,
	"false":  TokenBoolean,
	"null":   TokenNull,
}

// Keywords returns the reserved words of the language, for completion.
func Keywords() []string {
	words := make([]string, 0, len(reservedWords))
	for w := range reservedWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// IsKeyword reports whether word is reserved.
func IsKeyword(word string) bool {
	_, ok := reservedWords[word]
	return ok
}
