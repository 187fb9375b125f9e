package compiler

import (
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Printer: single-line source rendering of AST nodes
// ---------------------------------------------------------------------------

// FormatExpr renders an expression on one line. Binary operations are fully
// parenthesized, so the output shows how the parser grouped operands:
// user::functions::call() prints as ((user :: functions) :: call()).
func FormatExpr(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

// FormatStmt renders a statement on one line.
func FormatStmt(s Stmt) string {
	var sb strings.Builder
	writeStmt(&sb, s)
	return sb.String()
}

// FormatProgram renders each statement on its own line.
func FormatProgram(stmts []Stmt) string {
	var sb strings.Builder
	for _, s := range stmts {
		writeStmt(&sb, s)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatNumber renders a number without a fractional part when it is
// integral.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *NumberLiteral:
		sb.WriteString(FormatNumber(n.Value))
	case *StringLiteral:
		sb.WriteString(strconv.Quote(n.Value))
	case *BooleanLiteral:
		sb.WriteString(strconv.FormatBool(n.Value))
	case *NullLiteral:
		sb.WriteString("null")
	case *Identifier:
		sb.WriteString(n.Name)
	case *ClassIdentifier:
		sb.WriteString(n.Name)
	case *ArrayLiteral:
		sb.WriteByte('[')
		writeExprList(sb, n.Elements)
		sb.WriteByte(']')
	case *ObjectLiteral:
		sb.WriteString("#")
		writeFields(sb, n.Fields)
	case *ClassInstantiation:
		sb.WriteString(n.Class)
		writeFields(sb, n.Fields)
	case *FunctionCall:
		writeExpr(sb, n.Callee)
		sb.WriteByte('(')
		writeExprList(sb, n.Args)
		sb.WriteByte(')')
	case *BinaryOp:
		sb.WriteByte('(')
		writeExpr(sb, n.Left)
		sb.WriteString(" " + n.Op + " ")
		writeExpr(sb, n.Right)
		sb.WriteByte(')')
	case *ArrowFunction:
		sb.WriteString("(" + strings.Join(n.Params, ", ") + ") => ")
		writeBlock(sb, n.Body)
	default:
		sb.WriteString("<?>")
	}
}

func writeExprList(sb *strings.Builder, exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeExpr(sb, e)
	}
}

// writeFields prints fields sorted by name, since field order carries no
// meaning.
func writeFields(sb *strings.Builder, fields map[string]Expr) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name + ": ")
		writeExpr(sb, fields[name])
	}
	sb.WriteByte('}')
}

func writeBlock(sb *strings.Builder, body []Stmt) {
	if len(body) == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{ ")
	for _, s := range body {
		writeStmt(sb, s)
		sb.WriteByte(' ')
	}
	sb.WriteByte('}')
}

func writeFunction(sb *strings.Builder, prefix, name string, params []string, body []Stmt) {
	sb.WriteString(prefix + name + "(" + strings.Join(params, ", ") + ") ")
	writeBlock(sb, body)
}

func writeStmt(sb *strings.Builder, s Stmt) {
	switch n := s.(type) {
	case *ExpressionStatement:
		writeExpr(sb, n.Expr)
		sb.WriteByte(';')
	case *VariableDefinition:
		sb.WriteString("var " + n.Name + " = ")
		writeExpr(sb, n.Value)
		sb.WriteByte(';')
	case *VariableAssignment:
		sb.WriteString(n.Name + " = ")
		writeExpr(sb, n.Value)
		sb.WriteByte(';')
	case *ReturnStatement:
		sb.WriteString("return ")
		writeExpr(sb, n.Value)
		sb.WriteByte(';')
	case *FunctionDefinition:
		writeFunction(sb, "fn ", n.Name, n.Params, n.Body)
	case *StaticFunctionDefinition:
		writeFunction(sb, "static fn ", n.Name, n.Params, n.Body)
	case *OperatorImplementation:
		writeFunction(sb, "op ", n.Op.String(), n.Params, n.Body)
	case *ClassDefinition:
		sb.WriteString("class " + n.Name + " ")
		if len(n.Members) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{ ")
		for _, m := range n.Members {
			writeMember(sb, m)
			sb.WriteByte(' ')
		}
		sb.WriteByte('}')
	case *IfStatement:
		sb.WriteString("if ")
		writeExpr(sb, n.Cond)
		sb.WriteByte(' ')
		writeBlock(sb, n.Body)
		if n.Else != nil {
			sb.WriteString(" else ")
			if len(n.Else) == 1 {
				if nested, ok := n.Else[0].(*IfStatement); ok {
					writeStmt(sb, nested)
					return
				}
			}
			writeBlock(sb, n.Else)
		}
	case *ImportStatement:
		sb.WriteString("import " + n.Path + ";")
	case *ExportStatement:
		sb.WriteString("export " + n.Name() + ";")
	default:
		sb.WriteString("<?>")
	}
}

func writeMember(sb *strings.Builder, m ClassMember) {
	switch n := m.(type) {
	case *ClassField:
		sb.WriteString("var " + n.Name + " = ")
		writeExpr(sb, n.Default)
		sb.WriteByte(';')
	case *ClassFunction:
		writeFunction(sb, "fn ", n.Name, n.Params, n.Body)
	case *ClassStaticFunction:
		writeFunction(sb, "static fn ", n.Name, n.Params, n.Body)
	case *ClassOperator:
		writeFunction(sb, "op ", n.Op.String(), n.Params, n.Body)
	}
}
