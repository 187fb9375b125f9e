package compiler

import "strings"

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Tessera statements
// ---------------------------------------------------------------------------

// Parser parses Tessera source into a statement list. Expression spans are
// sliced out of the token stream and handed to an ExprParser.
type Parser struct {
	src    string
	cursor *Cursor
	expr   *ExprParser
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	return &Parser{
		src:    input,
		cursor: NewCursor(NewLexer(input)),
		expr:   NewExprParser(input),
	}
}

// newSpanParser creates a parser over input[start:end], used to re-enter the
// full parser for block bodies captured inside expressions.
func newSpanParser(input string, start, end int, at Position) *Parser {
	return &Parser{
		src:    input,
		cursor: NewCursor(newSpanLexer(input, start, end, at)),
		expr:   NewExprParser(input),
	}
}

// Parse parses a complete program.
func Parse(input string) ([]Stmt, error) {
	return NewParser(input).ParseProgram()
}

// ParseExpression parses input as a single expression.
func ParseExpression(input string) (Expr, error) {
	toks, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return NewExprParser(input).Parse(toks)
}

// ParseProgram parses statements until end of input.
func (p *Parser) ParseProgram() ([]Stmt, error) {
	stmts, err := p.parseStatements(false)
	if err != nil {
		return nil, err
	}
	if err := p.cursor.Err(); err != nil {
		return nil, err
	}
	return stmts, nil
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

// peek returns the next token that is not a newline or comment, without
// consuming anything.
func (p *Parser) peek() Token {
	p.cursor.ResetPeek()
	defer p.cursor.ResetPeek()
	for {
		tok := p.cursor.Peek()
		if !tok.IsTrivia() {
			return tok
		}
	}
}

// peekSecond returns the significant token after peek().
func (p *Parser) peekSecond() Token {
	p.cursor.ResetPeek()
	defer p.cursor.ResetPeek()
	seen := 0
	for {
		tok := p.cursor.Peek()
		if tok.IsTrivia() {
			continue
		}
		if seen == 1 || tok.Type == TokenEOF {
			return tok
		}
		seen++
	}
}

// skipTrivia consumes newlines and comments.
func (p *Parser) skipTrivia() {
	for p.cursor.Lookahead(0).IsTrivia() {
		p.cursor.Next()
	}
}

// next consumes the next significant token.
func (p *Parser) next() Token {
	p.skipTrivia()
	return p.cursor.Next()
}

// expect consumes the next significant token, which must have type t.
func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.next()
	if tok.Type == TokenError {
		return tok, p.cursor.Err()
	}
	if tok.Type != t {
		return tok, errorAt(tok, "expected %s, got %s", t, describe(tok))
	}
	return tok, nil
}

// endStatement consumes an optional `;`. The statement must be followed by
// a terminator: `;`, newline, `}` or end of input.
func (p *Parser) endStatement() error {
	for p.cursor.Lookahead(0).Type == TokenComment {
		p.cursor.Next()
	}
	tok := p.cursor.Lookahead(0)
	switch tok.Type {
	case TokenSemicolon:
		p.cursor.Next()
		return nil
	case TokenNewline, TokenRBrace, TokenEOF:
		return nil
	case TokenError:
		return p.cursor.Err()
	}
	return errorAt(tok, "unexpected %s after statement", describe(tok))
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseStatements parses statements up to end of input, or up to (not
// including) the closing `}` of a block.
func (p *Parser) parseStatements(inBlock bool) ([]Stmt, error) {
	stmts := []Stmt{}
	for {
		tok := p.peek()
		switch tok.Type {
		case TokenEOF:
			if inBlock {
				return nil, errorAt(tok, "unexpected end of input, expected }")
			}
			p.skipTrivia()
			return stmts, nil
		case TokenError:
			return nil, p.cursor.Err()
		case TokenRBrace:
			if inBlock {
				p.skipTrivia()
				return stmts, nil
			}
			return nil, errorAt(tok, "unmatched }")
		case TokenSemicolon:
			p.next()
			continue
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

// parseStatement dispatches on the leading token.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenReturn:
		return p.parseReturn()
	case TokenClass:
		return p.parseClass()
	case TokenVar:
		return p.parseVar()
	case TokenOp:
		return p.parseOp()
	case TokenFn:
		return p.parseFunction(false)
	case TokenStatic:
		return p.parseFunction(true)
	case TokenImport:
		return p.parseImport()
	case TokenExport:
		return p.parseExport()
	case TokenIf:
		return p.parseIf()
	case TokenElse:
		return nil, errorAt(tok, "else without if")
	case TokenIdentifier:
		if p.peekSecond().Type == TokenEqual {
			return p.parseAssignment()
		}
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseExpressionStatement() (Stmt, error) {
	start := p.peek()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ExpressionStatement{SpanVal: MakeSpan(start.Pos, e.Span().End), Expr: e}, nil
}

// collectExpr slices the tokens of one expression out of the stream. It
// stops at `;`, at an unbalanced closing delimiter, at a `{` that cannot
// open a literal or arrow body, or at a newline that ends a complete
// operand. Newlines inside brackets never end the expression.
func (p *Parser) collectExpr() []Token {
	var toks []Token
	paren, bracket, brace := 0, 0, 0
	var prev Token

	for {
		tok := p.cursor.Lookahead(0)
		nested := paren > 0 || bracket > 0 || brace > 0

		switch tok.Type {
		case TokenEOF, TokenError:
			return toks
		case TokenComment:
			p.cursor.Next()
			continue
		case TokenNewline:
			if !nested && len(toks) > 0 && prev.endsOperand() && !continuesExpr(p.peek()) {
				return toks
			}
			p.cursor.Next()
			continue
		case TokenSemicolon:
			if !nested {
				return toks
			}
		case TokenLParen:
			paren++
		case TokenRParen:
			if paren == 0 {
				return toks
			}
			paren--
		case TokenLBracket:
			bracket++
		case TokenRBracket:
			if bracket == 0 {
				return toks
			}
			bracket--
		case TokenLBrace:
			if !nested && prev.Type != TokenClassIdentifier && prev.Type != TokenArrow && prev.Type != TokenHash {
				return toks
			}
			brace++
		case TokenRBrace:
			if brace == 0 {
				return toks
			}
			brace--
		}

		toks = append(toks, p.cursor.Next())
		prev = tok
	}
}

// continuesExpr reports whether a token at the start of a line continues the
// expression on the previous line.
func continuesExpr(tok Token) bool {
	switch tok.Type {
	case TokenDot, TokenDoubleColon, TokenSymbol, TokenEqual, TokenArrow:
		return true
	}
	return false
}

// parseExpr collects and parses one expression.
func (p *Parser) parseExpr() (Expr, error) {
	at := p.peek()
	toks := p.collectExpr()
	if err := p.cursor.Err(); err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, errorAt(at, "unexpected %s", describe(at))
	}
	return p.expr.Parse(toks)
}

func (p *Parser) parseReturn() (Stmt, error) {
	kw, _ := p.expect(TokenReturn)

	for p.cursor.Lookahead(0).Type == TokenComment {
		p.cursor.Next()
	}
	switch p.cursor.Lookahead(0).Type {
	case TokenSemicolon, TokenNewline, TokenRBrace, TokenEOF:
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return &ReturnStatement{SpanVal: tokenSpan(kw), Value: &NullLiteral{SpanVal: tokenSpan(kw)}}, nil
	}

	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ReturnStatement{SpanVal: MakeSpan(kw.Pos, value.Span().End), Value: value}, nil
}

func (p *Parser) parseVar() (Stmt, error) {
	kw, _ := p.expect(TokenVar)
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}

	var value Expr = &NullLiteral{SpanVal: tokenSpan(name)}
	if p.peek().Type == TokenEqual {
		p.next()
		if value, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &VariableDefinition{SpanVal: MakeSpan(kw.Pos, value.Span().End), Name: name.Literal, Value: value}, nil
}

func (p *Parser) parseAssignment() (Stmt, error) {
	name, _ := p.expect(TokenIdentifier)
	if _, err := p.expect(TokenEqual); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &VariableAssignment{SpanVal: MakeSpan(name.Pos, value.Span().End), Name: name.Literal, Value: value}, nil
}

// parseParams parses `(a, b, c)` in a definition header.
func (p *Parser) parseParams() ([]string, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	params := []string{}
	if p.peek().Type == TokenRParen {
		p.next()
		return params, nil
	}
	for {
		name, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		params = append(params, name.Literal)

		tok := p.next()
		switch tok.Type {
		case TokenComma:
			continue
		case TokenRParen:
			return params, nil
		}
		return nil, errorAt(tok, "expected , or ) in parameter list, got %s", describe(tok))
	}
}

// parseBlock parses `{ statements }` and returns the statements and the
// closing brace.
func (p *Parser) parseBlock() ([]Stmt, Token, error) {
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, Token{}, err
	}
	body, err := p.parseStatements(true)
	if err != nil {
		return nil, Token{}, err
	}
	closeTok, err := p.expect(TokenRBrace)
	if err != nil {
		return nil, Token{}, err
	}
	return body, closeTok, nil
}

func (p *Parser) parseFunction(static bool) (Stmt, error) {
	start := p.peek()
	if static {
		p.next()
	}
	if _, err := p.expect(TokenFn); err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, closeTok, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	span := MakeSpan(start.Pos, tokenEnd(closeTok))
	if static {
		return &StaticFunctionDefinition{SpanVal: span, Name: name.Literal, Params: params, Body: body}, nil
	}
	return &FunctionDefinition{SpanVal: span, Name: name.Literal, Params: params, Body: body}, nil
}

func (p *Parser) parseOp() (Stmt, error) {
	kw, _ := p.expect(TokenOp)
	nameTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	op, ok := OperatorByName(nameTok.Literal)
	if !ok {
		return nil, errorAt(nameTok, "unknown operator %q", nameTok.Literal)
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, closeTok, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &OperatorImplementation{
		SpanVal: MakeSpan(kw.Pos, tokenEnd(closeTok)),
		Op:      op,
		Params:  params,
		Body:    body,
	}, nil
}

// parseClass parses a class definition. The body is parsed as an ordinary
// statement sequence and then mapped onto class members.
func (p *Parser) parseClass() (Stmt, error) {
	kw, _ := p.expect(TokenClass)
	name, err := p.expect(TokenClassIdentifier)
	if err != nil {
		return nil, err
	}
	body, closeTok, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	members := make([]ClassMember, 0, len(body))
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *VariableDefinition:
			members = append(members, &ClassField{SpanVal: s.SpanVal, Name: s.Name, Default: s.Value})
		case *FunctionDefinition:
			members = append(members, &ClassFunction{SpanVal: s.SpanVal, Name: s.Name, Params: s.Params, Body: s.Body})
		case *StaticFunctionDefinition:
			members = append(members, &ClassStaticFunction{SpanVal: s.SpanVal, Name: s.Name, Params: s.Params, Body: s.Body})
		case *OperatorImplementation:
			members = append(members, &ClassOperator{SpanVal: s.SpanVal, Op: s.Op, Params: s.Params, Body: s.Body})
		default:
			return nil, &ParseError{
				Pos: stmt.Span().Start,
				Msg: "class " + name.Literal + ": only fields, functions, static functions and operators are allowed in a class body",
			}
		}
	}

	return &ClassDefinition{SpanVal: MakeSpan(kw.Pos, tokenEnd(closeTok)), Name: name.Literal, Members: members}, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	kw, _ := p.expect(TokenIf)
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, closeTok, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &IfStatement{SpanVal: MakeSpan(kw.Pos, tokenEnd(closeTok)), Cond: cond, Body: body}

	if p.peek().Type != TokenElse {
		return stmt, nil
	}
	p.next()
	if p.peek().Type == TokenIf {
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		stmt.Else = []Stmt{nested}
		stmt.SpanVal.End = nested.Span().End
		return stmt, nil
	}
	elseBody, closeTok, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt.Else = elseBody
	stmt.SpanVal.End = tokenEnd(closeTok)
	return stmt, nil
}

// parseImport accepts `import a.b.c` and `import("a.b.c")`.
func (p *Parser) parseImport() (Stmt, error) {
	kw, _ := p.expect(TokenImport)

	if p.peek().Type == TokenLParen {
		p.next()
		path, err := p.expect(TokenString)
		if err != nil {
			return nil, err
		}
		closeTok, err := p.expect(TokenRParen)
		if err != nil {
			return nil, err
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return &ImportStatement{SpanVal: MakeSpan(kw.Pos, tokenEnd(closeTok)), Path: path.Literal}, nil
	}

	var path string
	last := kw
	for {
		tok := p.cursor.Lookahead(0)
		if tok.Type != TokenIdentifier && tok.Type != TokenDot {
			break
		}
		path += tok.Literal
		last = p.cursor.Next()
	}
	if path == "" || last.Type == TokenDot || path[0] == '.' || strings.Contains(path, "..") {
		return nil, errorAt(last, "malformed import path %q", path)
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ImportStatement{SpanVal: MakeSpan(kw.Pos, tokenEnd(last)), Path: path}, nil
}

// parseExport accepts exactly one identifier or class identifier.
func (p *Parser) parseExport() (Stmt, error) {
	kw, _ := p.expect(TokenExport)
	tok := p.next()

	var e Expr
	switch tok.Type {
	case TokenIdentifier:
		e = &Identifier{SpanVal: tokenSpan(tok), Name: tok.Literal}
	case TokenClassIdentifier:
		e = &ClassIdentifier{SpanVal: tokenSpan(tok), Name: tok.Literal}
	default:
		return nil, errorAt(tok, "export expects a variable or class name, got %s", describe(tok))
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	span := MakeSpan(kw.Pos, tokenEnd(tok))
	return &ExportStatement{SpanVal: span, Inner: &ExpressionStatement{SpanVal: tokenSpan(tok), Expr: e}}, nil
}
