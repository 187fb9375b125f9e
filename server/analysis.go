package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/tessera/compiler"
)

// ---------------------------------------------------------------------------
// Static analysis shared by CheckSyntax and the language server
// ---------------------------------------------------------------------------

// SyntaxDiagnostic is a lex or parse failure at a 1-based position.
type SyntaxDiagnostic struct {
	Line    int
	Column  int
	Message string
}

// CheckSource parses src and returns its statements, or the single
// diagnostic that stopped the parse. The parser never recovers, so there
// is at most one.
func CheckSource(src string) ([]compiler.Stmt, *SyntaxDiagnostic) {
	stmts, err := compiler.Parse(src)
	if err == nil {
		return stmts, nil
	}
	return nil, syntaxDiagnostic(err)
}

func syntaxDiagnostic(err error) *SyntaxDiagnostic {
	var lexErr *compiler.LexError
	var parseErr *compiler.ParseError
	switch {
	case errors.As(err, &lexErr):
		return &SyntaxDiagnostic{Line: lexErr.Pos.Line, Column: lexErr.Pos.Column, Message: lexErr.Msg}
	case errors.As(err, &parseErr):
		return &SyntaxDiagnostic{Line: parseErr.Pos.Line, Column: parseErr.Pos.Column, Message: parseErr.Msg}
	}
	return &SyntaxDiagnostic{Line: 1, Column: 1, Message: err.Error()}
}

// SymbolKind classifies a definition.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolVariable
	SymbolClass
	SymbolOperator
	SymbolField
	SymbolMethod
	SymbolStatic
)

// Symbol is a named definition found in a parsed document. Class members
// are children of their class.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Detail   string
	Span     compiler.Span
	Exported bool
	Children []Symbol
}

// Symbols lists the top-level definitions of a module in source order.
func Symbols(stmts []compiler.Stmt) []Symbol {
	exported := make(map[string]bool)
	for _, s := range stmts {
		if es, ok := s.(*compiler.ExportStatement); ok {
			exported[es.Name()] = true
		}
	}

	var syms []Symbol
	for _, s := range stmts {
		sym, ok := stmtSymbol(s)
		if !ok {
			continue
		}
		sym.Exported = exported[sym.Name]
		syms = append(syms, sym)
	}
	return syms
}

func stmtSymbol(s compiler.Stmt) (Symbol, bool) {
	switch n := s.(type) {
	case *compiler.FunctionDefinition:
		return Symbol{Name: n.Name, Kind: SymbolFunction, Detail: signature("fn", n.Name, n.Params), Span: n.Span()}, true
	case *compiler.StaticFunctionDefinition:
		return Symbol{Name: n.Name, Kind: SymbolFunction, Detail: signature("static fn", n.Name, n.Params), Span: n.Span()}, true
	case *compiler.VariableDefinition:
		return Symbol{Name: n.Name, Kind: SymbolVariable, Detail: "var " + n.Name, Span: n.Span()}, true
	case *compiler.OperatorImplementation:
		name := n.Op.String()
		return Symbol{Name: name, Kind: SymbolOperator, Detail: signature("op", name, n.Params), Span: n.Span()}, true
	case *compiler.ClassDefinition:
		sym := Symbol{Name: n.Name, Kind: SymbolClass, Detail: "class " + n.Name, Span: n.Span()}
		for _, m := range n.Members {
			sym.Children = append(sym.Children, memberSymbol(m))
		}
		return sym, true
	}
	return Symbol{}, false
}

func memberSymbol(m compiler.ClassMember) Symbol {
	switch n := m.(type) {
	case *compiler.ClassField:
		return Symbol{Name: n.Name, Kind: SymbolField, Detail: "var " + n.Name, Span: n.Span()}
	case *compiler.ClassFunction:
		return Symbol{Name: n.Name, Kind: SymbolMethod, Detail: signature("fn", n.Name, n.Params), Span: n.Span()}
	case *compiler.ClassStaticFunction:
		return Symbol{Name: n.Name, Kind: SymbolStatic, Detail: signature("static fn", n.Name, n.Params), Span: n.Span()}
	case *compiler.ClassOperator:
		name := n.Op.String()
		return Symbol{Name: name, Kind: SymbolOperator, Detail: signature("op", name, n.Params), Span: n.Span()}
	}
	return Symbol{Name: m.MemberName(), Span: m.Span()}
}

func signature(keyword, name string, params []string) string {
	return fmt.Sprintf("%s %s(%s)", keyword, name, strings.Join(params, ", "))
}

// FindSymbol looks name up among top-level symbols, then among class
// members.
func FindSymbol(syms []Symbol, name string) (Symbol, bool) {
	for _, s := range syms {
		if s.Name == name {
			return s, true
		}
	}
	for _, s := range syms {
		for _, c := range s.Children {
			if c.Name == name {
				return c, true
			}
		}
	}
	return Symbol{}, false
}

// Imports returns the import statements of a module in source order.
func Imports(stmts []compiler.Stmt) []*compiler.ImportStatement {
	var out []*compiler.ImportStatement
	for _, s := range stmts {
		if imp, ok := s.(*compiler.ImportStatement); ok {
			out = append(out, imp)
		}
	}
	return out
}

// ExportedNames returns the names a module exports, in source order.
func ExportedNames(stmts []compiler.Stmt) []string {
	var names []string
	for _, s := range stmts {
		if es, ok := s.(*compiler.ExportStatement); ok && es.Name() != "" {
			names = append(names, es.Name())
		}
	}
	return names
}

// lastSegment returns the binding name an import introduces.
func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
