package compiler

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Expression parser: operator precedence over a finite token slice
// ---------------------------------------------------------------------------

// Binding powers, lowest to highest. Assignment is non-associative; every
// other infix operator is left-associative.
const (
	precLowest  = iota
	precAssign  = 2  // =
	precCompare = 3  // == != < > <= >=
	precSum     = 4  // + -
	precProduct = 5  // * /
	precMember  = 10 // .
	precPath    = 11 // ::
)

type infixInfo struct {
	prec     int
	nonAssoc bool
}

// infixFor returns the binding information for a token used as an infix
// operator.
func infixFor(tok Token) (infixInfo, bool) {
	switch tok.Type {
	case TokenDot:
		return infixInfo{prec: precMember}, true
	case TokenDoubleColon:
		return infixInfo{prec: precPath}, true
	case TokenEqual:
		return infixInfo{prec: precAssign, nonAssoc: true}, true
	case TokenSymbol:
		switch tok.Literal {
		case "+", "-":
			return infixInfo{prec: precSum}, true
		case "*", "/":
			return infixInfo{prec: precProduct}, true
		case "==", "!=", "<", ">", "<=", ">=":
			return infixInfo{prec: precCompare}, true
		}
	}
	return infixInfo{}, false
}

// ExprParser turns a pre-sliced run of tokens into an expression tree.
// It holds no state between calls and may be used recursively; the source
// text is kept so arrow-function block bodies can be re-lexed from their
// span.
type ExprParser struct {
	src string
}

// NewExprParser creates an expression parser for tokens lexed from src.
func NewExprParser(src string) *ExprParser {
	return &ExprParser{src: src}
}

// Parse parses the whole token slice as one expression. Newline and comment
// tokens are ignored. Leftover tokens are an error.
func (ep *ExprParser) Parse(tokens []Token) (Expr, error) {
	toks := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if !t.IsTrivia() && t.Type != TokenEOF {
			toks = append(toks, t)
		}
	}
	if len(toks) == 0 {
		return nil, &ParseError{Msg: "expected expression"}
	}
	s := &exprState{ep: ep, toks: toks}
	e, err := s.parse(precLowest)
	if err != nil {
		return nil, err
	}
	if s.i < len(s.toks) {
		return nil, errorAt(s.peek(), "unexpected %s in expression", describe(s.peek()))
	}
	return e, nil
}

// exprState is the cursor for one Parse call.
type exprState struct {
	ep   *ExprParser
	toks []Token
	i    int
}

func (s *exprState) peek() Token {
	if s.i >= len(s.toks) {
		return s.eof()
	}
	return s.toks[s.i]
}

func (s *exprState) next() Token {
	tok := s.peek()
	if s.i < len(s.toks) {
		s.i++
	}
	return tok
}

// eof synthesizes an EOF token positioned after the last token.
func (s *exprState) eof() Token {
	if len(s.toks) == 0 {
		return Token{Type: TokenEOF}
	}
	last := s.toks[len(s.toks)-1]
	return Token{Type: TokenEOF, Pos: tokenEnd(last), End: last.End}
}

func (s *exprState) last() Token {
	if s.i == 0 {
		return s.eof()
	}
	return s.toks[s.i-1]
}

// parse is the precedence-climbing loop: it parses a primary and folds in
// infix operators that bind tighter than minPrec.
func (s *exprState) parse(minPrec int) (Expr, error) {
	left, err := s.primary()
	if err != nil {
		return nil, err
	}

	for {
		opTok := s.peek()
		info, ok := infixFor(opTok)
		if !ok || info.prec <= minPrec {
			return left, nil
		}
		s.next()

		if s.i >= len(s.toks) {
			return nil, errorAt(opTok, "missing right operand for %s", describe(opTok))
		}
		right, err := s.parse(info.prec)
		if err != nil {
			return nil, err
		}

		if opTok.Type == TokenDot || opTok.Type == TokenDoubleColon {
			switch right.(type) {
			case *Identifier, *ClassIdentifier, *FunctionCall:
			default:
				return nil, errorAt(opTok, "expected member name after %s", describe(opTok))
			}
		}

		if info.nonAssoc {
			if nextInfo, ok := infixFor(s.peek()); ok && nextInfo.prec == info.prec {
				return nil, errorAt(s.peek(), "operator %s is not associative", describe(s.peek()))
			}
		}

		left = &BinaryOp{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Left:    left,
			Op:      opTok.Literal,
			Right:   right,
		}
	}
}

// primary parses a nilfix form: literals, names, groups, array/object
// literals, class instantiations and arrow functions.
func (s *exprState) primary() (Expr, error) {
	tok := s.next()

	switch tok.Type {
	case TokenNumber:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, errorAt(tok, "invalid number %q", tok.Literal)
		}
		return &NumberLiteral{SpanVal: tokenSpan(tok), Value: v}, nil

	case TokenString:
		return &StringLiteral{SpanVal: tokenSpan(tok), Value: tok.Literal}, nil

	case TokenBoolean:
		return &BooleanLiteral{SpanVal: tokenSpan(tok), Value: tok.Literal == "true"}, nil

	case TokenNull:
		return &NullLiteral{SpanVal: tokenSpan(tok)}, nil

	case TokenLBracket:
		return s.arrayLiteral(tok)

	case TokenHash:
		open := s.next()
		if open.Type != TokenLBrace {
			return nil, errorAt(open, "expected { after #, got %s", describe(open))
		}
		fields, closeTok, err := s.fields(open)
		if err != nil {
			return nil, err
		}
		return &ObjectLiteral{SpanVal: MakeSpan(tok.Pos, tokenEnd(closeTok)), Fields: fields}, nil

	case TokenClassIdentifier:
		if s.peek().Type == TokenLBrace {
			open := s.next()
			fields, closeTok, err := s.fields(open)
			if err != nil {
				return nil, err
			}
			return &ClassInstantiation{
				SpanVal: MakeSpan(tok.Pos, tokenEnd(closeTok)),
				Class:   tok.Literal,
				Fields:  fields,
			}, nil
		}
		return &ClassIdentifier{SpanVal: tokenSpan(tok), Name: tok.Literal}, nil

	case TokenIdentifier:
		return s.callSuffixes(&Identifier{SpanVal: tokenSpan(tok), Name: tok.Literal})

	case TokenLParen:
		inner, closeTok, err := s.balanced(tok)
		if err != nil {
			return nil, err
		}
		if s.peek().Type == TokenArrow {
			s.next()
			fn, err := s.arrowFunction(tok, inner)
			if err != nil {
				return nil, err
			}
			return s.callSuffixes(fn)
		}
		if len(inner) == 0 {
			return nil, errorAt(closeTok, "empty parentheses must be followed by =>")
		}
		e, err := s.ep.Parse(inner)
		if err != nil {
			return nil, err
		}
		return s.callSuffixes(e)

	case TokenEOF:
		return nil, errorAt(tok, "unexpected end of expression")

	case TokenRParen, TokenRBracket, TokenRBrace:
		return nil, errorAt(tok, "unmatched %s", describe(tok))
	}

	return nil, errorAt(tok, "unexpected %s in expression", describe(tok))
}

// balanced consumes tokens up to the delimiter matching open (already
// consumed) and returns the tokens in between plus the closing token.
// Every bracket kind is tracked so nested literals and calls stay intact.
func (s *exprState) balanced(open Token) ([]Token, Token, error) {
	stack := []TokenType{closerFor(open.Type)}
	start := s.i
	for s.i < len(s.toks) {
		tok := s.next()
		switch tok.Type {
		case TokenLParen, TokenLBracket, TokenLBrace:
			stack = append(stack, closerFor(tok.Type))
		case TokenRParen, TokenRBracket, TokenRBrace:
			want := stack[len(stack)-1]
			if tok.Type != want {
				return nil, tok, errorAt(tok, "unmatched %s, expected %s", describe(tok), want)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s.toks[start : s.i-1], tok, nil
			}
		}
	}
	return nil, open, errorAt(open, "unmatched %s", describe(open))
}

func closerFor(tt TokenType) TokenType {
	switch tt {
	case TokenLParen:
		return TokenRParen
	case TokenLBracket:
		return TokenRBracket
	}
	return TokenRBrace
}

// splitTopLevel splits tokens on commas that are not nested inside any
// bracket pair.
func splitTopLevel(toks []Token) [][]Token {
	var parts [][]Token
	depth := 0
	start := 0
	for i, tok := range toks {
		switch tok.Type {
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
		case TokenRParen, TokenRBracket, TokenRBrace:
			depth--
		case TokenComma:
			if depth == 0 {
				parts = append(parts, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, toks[start:])
}

// list parses comma-separated sub-expressions. A single trailing comma is
// allowed; any other empty element is an error.
func (s *exprState) list(toks []Token, at Token, what string) ([]Expr, error) {
	exprs := []Expr{}
	if len(toks) == 0 {
		return exprs, nil
	}
	parts := splitTopLevel(toks)
	for i, part := range parts {
		if len(part) == 0 {
			if i == len(parts)-1 && i > 0 {
				break
			}
			return nil, errorAt(at, "empty %s", what)
		}
		e, err := s.ep.Parse(part)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func (s *exprState) arrayLiteral(open Token) (Expr, error) {
	inner, closeTok, err := s.balanced(open)
	if err != nil {
		return nil, err
	}
	elems, err := s.list(inner, open, "array element")
	if err != nil {
		return nil, err
	}
	return &ArrayLiteral{SpanVal: MakeSpan(open.Pos, tokenEnd(closeTok)), Elements: elems}, nil
}

// callSuffixes folds any number of immediately following (...) argument
// lists onto callee, so f()() calls the result of f().
func (s *exprState) callSuffixes(callee Expr) (Expr, error) {
	for s.peek().Type == TokenLParen {
		open := s.next()
		inner, closeTok, err := s.balanced(open)
		if err != nil {
			return nil, err
		}
		args, err := s.list(inner, open, "argument")
		if err != nil {
			return nil, err
		}
		callee = &FunctionCall{
			SpanVal: MakeSpan(callee.Span().Start, tokenEnd(closeTok)),
			Callee:  callee,
			Args:    args,
		}
	}
	return callee, nil
}

// fields parses the `name: expr` pairs of an object literal or class
// instantiation. open is the consumed `{`. Pairs are separated by commas,
// or simply follow one another (e.g. across newlines).
func (s *exprState) fields(open Token) (map[string]Expr, Token, error) {
	inner, closeTok, err := s.balanced(open)
	if err != nil {
		return nil, closeTok, err
	}

	fields := make(map[string]Expr)
	depth := 0
	i := 0
	for i < len(inner) {
		if inner[i].Type == TokenComma {
			i++
			continue
		}
		if i+1 >= len(inner) || inner[i].Type != TokenIdentifier || inner[i+1].Type != TokenColon {
			return nil, closeTok, errorAt(inner[i], "expected field name followed by :, got %s", describe(inner[i]))
		}
		name := inner[i]
		i += 2

		start := i
	value:
		for i < len(inner) {
			switch inner[i].Type {
			case TokenLParen, TokenLBracket, TokenLBrace:
				depth++
			case TokenRParen, TokenRBracket, TokenRBrace:
				depth--
			case TokenComma:
				if depth == 0 {
					break value
				}
			case TokenIdentifier:
				if depth == 0 && i > start && i+1 < len(inner) && inner[i+1].Type == TokenColon {
					break value
				}
			}
			i++
		}
		if i == start {
			return nil, closeTok, errorAt(name, "missing value for field %q", name.Literal)
		}
		if _, dup := fields[name.Literal]; dup {
			return nil, closeTok, errorAt(name, "duplicate field %q", name.Literal)
		}
		v, err := s.ep.Parse(inner[start:i])
		if err != nil {
			return nil, closeTok, err
		}
		fields[name.Literal] = v
	}
	return fields, closeTok, nil
}

// arrowFunction builds an arrow function from its parenthesized parameter
// tokens. The `=>` has been consumed. A `{` body is re-lexed from its source
// span and parsed as a full statement sequence; any other body is a single
// expression that is implicitly returned.
func (s *exprState) arrowFunction(open Token, paramToks []Token) (Expr, error) {
	params, err := arrowParams(open, paramToks)
	if err != nil {
		return nil, err
	}

	if s.peek().Type == TokenLBrace {
		lbrace := s.next()
		_, rbrace, err := s.balanced(lbrace)
		if err != nil {
			return nil, err
		}
		p := newSpanParser(s.ep.src, lbrace.End, rbrace.Pos.Offset, tokenEnd(lbrace))
		body, err := p.ParseProgram()
		if err != nil {
			return nil, err
		}
		return &ArrowFunction{
			SpanVal: MakeSpan(open.Pos, tokenEnd(rbrace)),
			Params:  params,
			Body:    body,
		}, nil
	}

	rest := s.toks[s.i:]
	if len(rest) == 0 {
		return nil, errorAt(s.last(), "missing arrow function body")
	}
	s.i = len(s.toks)
	e, err := s.ep.Parse(rest)
	if err != nil {
		return nil, err
	}
	ret := &ReturnStatement{SpanVal: e.Span(), Value: e}
	return &ArrowFunction{
		SpanVal: MakeSpan(open.Pos, e.Span().End),
		Params:  params,
		Body:    []Stmt{ret},
	}, nil
}

// arrowParams validates `a, b, c` between the arrow function's parentheses.
func arrowParams(open Token, toks []Token) ([]string, error) {
	params := []string{}
	for i, tok := range toks {
		if i%2 == 0 {
			if tok.Type != TokenIdentifier {
				return nil, errorAt(tok, "malformed arrow function parameters: expected name, got %s", describe(tok))
			}
			params = append(params, tok.Literal)
			continue
		}
		if tok.Type != TokenComma {
			return nil, errorAt(tok, "malformed arrow function parameters: expected , got %s", describe(tok))
		}
	}
	if len(toks) > 0 && len(toks)%2 == 0 {
		return nil, errorAt(open, "malformed arrow function parameters: trailing comma")
	}
	return params, nil
}
