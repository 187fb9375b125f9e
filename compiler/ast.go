package compiler

import "fmt"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Tessera
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// tokenSpan returns the span covered by a single token.
func tokenSpan(tok Token) Span {
	return MakeSpan(tok.Pos, tokenEnd(tok))
}

// tokenEnd returns the position just past a token. Tokens never span lines.
func tokenEnd(tok Token) Position {
	width := tok.End - tok.Pos.Offset
	return Position{Offset: tok.End, Line: tok.Pos.Line, Column: tok.Pos.Column + width}
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// NumberLiteral represents a numeric literal.
type NumberLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *NumberLiteral) Span() Span { return n.SpanVal }
func (n *NumberLiteral) node()      {}
func (n *NumberLiteral) expr()      {}

// StringLiteral represents a double-quoted string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// BooleanLiteral represents true or false.
type BooleanLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BooleanLiteral) Span() Span { return n.SpanVal }
func (n *BooleanLiteral) node()      {}
func (n *BooleanLiteral) expr()      {}

// NullLiteral represents null.
type NullLiteral struct {
	SpanVal Span
}

func (n *NullLiteral) Span() Span { return n.SpanVal }
func (n *NullLiteral) node()      {}
func (n *NullLiteral) expr()      {}

// Identifier is a reference to a lowercase name.
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// ClassIdentifier is a bare reference to a class, as in `Point::origin()`.
type ClassIdentifier struct {
	SpanVal Span
	Name    string
}

func (n *ClassIdentifier) Span() Span { return n.SpanVal }
func (n *ClassIdentifier) node()      {}
func (n *ClassIdentifier) expr()      {}

// ArrayLiteral represents [a, b, c].
type ArrayLiteral struct {
	SpanVal  Span
	Elements []Expr
}

func (n *ArrayLiteral) Span() Span { return n.SpanVal }
func (n *ArrayLiteral) node()      {}
func (n *ArrayLiteral) expr()      {}

// ObjectLiteral represents #{ name: expr, ... }.
type ObjectLiteral struct {
	SpanVal Span
	Fields  map[string]Expr
}

func (n *ObjectLiteral) Span() Span { return n.SpanVal }
func (n *ObjectLiteral) node()      {}
func (n *ObjectLiteral) expr()      {}

// ClassInstantiation represents ClassName{ field: expr, ... }.
type ClassInstantiation struct {
	SpanVal Span
	Class   string
	Fields  map[string]Expr
}

func (n *ClassInstantiation) Span() Span { return n.SpanVal }
func (n *ClassInstantiation) node()      {}
func (n *ClassInstantiation) expr()      {}

// FunctionCall applies Callee to Args. Callee is any expression, so f()()
// is a call whose callee is the call f().
type FunctionCall struct {
	SpanVal Span
	Callee  Expr
	Args    []Expr
}

func (n *FunctionCall) Span() Span { return n.SpanVal }
func (n *FunctionCall) node()      {}
func (n *FunctionCall) expr()      {}

// BinaryOp represents every infix form, including member access (".") and
// scoped-path access ("::").
type BinaryOp struct {
	SpanVal Span
	Left    Expr
	Op      string
	Right   Expr
}

func (n *BinaryOp) Span() Span { return n.SpanVal }
func (n *BinaryOp) node()      {}
func (n *BinaryOp) expr()      {}

// ArrowFunction represents (a, b) => expr and (a, b) => { stmts }.
// An expression body is stored as a single return statement.
type ArrowFunction struct {
	SpanVal Span
	Params  []string
	Body    []Stmt
}

func (n *ArrowFunction) Span() Span { return n.SpanVal }
func (n *ArrowFunction) node()      {}
func (n *ArrowFunction) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// FunctionDefinition represents fn name(params) { body }.
type FunctionDefinition struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    []Stmt
}

func (n *FunctionDefinition) Span() Span { return n.SpanVal }
func (n *FunctionDefinition) node()      {}
func (n *FunctionDefinition) stmt()      {}

// StaticFunctionDefinition represents static fn name(params) { body }.
type StaticFunctionDefinition struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    []Stmt
}

func (n *StaticFunctionDefinition) Span() Span { return n.SpanVal }
func (n *StaticFunctionDefinition) node()      {}
func (n *StaticFunctionDefinition) stmt()      {}

// VariableDefinition represents var name = value.
type VariableDefinition struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *VariableDefinition) Span() Span { return n.SpanVal }
func (n *VariableDefinition) node()      {}
func (n *VariableDefinition) stmt()      {}

// VariableAssignment represents name = value.
type VariableAssignment struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *VariableAssignment) Span() Span { return n.SpanVal }
func (n *VariableAssignment) node()      {}
func (n *VariableAssignment) stmt()      {}

// ClassDefinition represents class Name { members }.
type ClassDefinition struct {
	SpanVal Span
	Name    string
	Members []ClassMember
}

func (n *ClassDefinition) Span() Span { return n.SpanVal }
func (n *ClassDefinition) node()      {}
func (n *ClassDefinition) stmt()      {}

// OperatorImplementation represents op name(params) { body }.
type OperatorImplementation struct {
	SpanVal Span
	Op      Operator
	Params  []string
	Body    []Stmt
}

func (n *OperatorImplementation) Span() Span { return n.SpanVal }
func (n *OperatorImplementation) node()      {}
func (n *OperatorImplementation) stmt()      {}

// IfStatement represents if cond { body } else { elseBody }.
// Else is nil when there is no else branch.
type IfStatement struct {
	SpanVal Span
	Cond    Expr
	Body    []Stmt
	Else    []Stmt
}

func (n *IfStatement) Span() Span { return n.SpanVal }
func (n *IfStatement) node()      {}
func (n *IfStatement) stmt()      {}

// ReturnStatement represents return value.
type ReturnStatement struct {
	SpanVal Span
	Value   Expr
}

func (n *ReturnStatement) Span() Span { return n.SpanVal }
func (n *ReturnStatement) node()      {}
func (n *ReturnStatement) stmt()      {}

// ImportStatement represents import a.b.c.
type ImportStatement struct {
	SpanVal Span
	Path    string
}

func (n *ImportStatement) Span() Span { return n.SpanVal }
func (n *ImportStatement) node()      {}
func (n *ImportStatement) stmt()      {}

// ExportStatement marks one top-level binding as visible to importers.
// Inner is an ExpressionStatement holding an Identifier or ClassIdentifier.
type ExportStatement struct {
	SpanVal Span
	Inner   Stmt
}

func (n *ExportStatement) Span() Span { return n.SpanVal }
func (n *ExportStatement) node()      {}
func (n *ExportStatement) stmt()      {}

// Name returns the exported binding name.
func (n *ExportStatement) Name() string {
	if es, ok := n.Inner.(*ExpressionStatement); ok {
		switch e := es.Expr.(type) {
		case *Identifier:
			return e.Name
		case *ClassIdentifier:
			return e.Name
		}
	}
	return ""
}

// ExpressionStatement is a bare expression evaluated for its effects.
type ExpressionStatement struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExpressionStatement) Span() Span { return n.SpanVal }
func (n *ExpressionStatement) node()      {}
func (n *ExpressionStatement) stmt()      {}

// ---------------------------------------------------------------------------
// Class members
// ---------------------------------------------------------------------------

// ClassMember is one of ClassField, ClassFunction, ClassStaticFunction or
// ClassOperator. No other statement is legal inside a class body.
type ClassMember interface {
	Node
	MemberName() string
	member() // marker method
}

// ClassField declares a field with its default value.
type ClassField struct {
	SpanVal Span
	Name    string
	Default Expr
}

func (m *ClassField) Span() Span         { return m.SpanVal }
func (m *ClassField) node()              {}
func (m *ClassField) member()            {}
func (m *ClassField) MemberName() string { return m.Name }

// ClassFunction declares an instance method.
type ClassFunction struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    []Stmt
}

func (m *ClassFunction) Span() Span         { return m.SpanVal }
func (m *ClassFunction) node()              {}
func (m *ClassFunction) member()            {}
func (m *ClassFunction) MemberName() string { return m.Name }

// ClassStaticFunction declares a static method.
type ClassStaticFunction struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    []Stmt
}

func (m *ClassStaticFunction) Span() Span         { return m.SpanVal }
func (m *ClassStaticFunction) node()              {}
func (m *ClassStaticFunction) member()            {}
func (m *ClassStaticFunction) MemberName() string { return m.Name }

// ClassOperator declares an operator overload.
type ClassOperator struct {
	SpanVal Span
	Op      Operator
	Params  []string
	Body    []Stmt
}

func (m *ClassOperator) Span() Span         { return m.SpanVal }
func (m *ClassOperator) node()              {}
func (m *ClassOperator) member()            {}
func (m *ClassOperator) MemberName() string { return "op " + m.Op.String() }
