package compiler

// Operator identifies an overloadable operator. Classes declare overloads
// with `op <name>(other) { ... }`.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpDot
)

var operatorNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpEq:  "eq",
	OpNe:  "ne",
	OpLt:  "lt",
	OpLe:  "le",
	OpGt:  "gt",
	OpGe:  "ge",
	OpDot: "dot",
}

var operatorSymbols = map[string]Operator{
	"+":  OpAdd,
	"-":  OpSub,
	"*":  OpMul,
	"/":  OpDiv,
	"==": OpEq,
	"!=": OpNe,
	"<":  OpLt,
	"<=": OpLe,
	">":  OpGt,
	">=": OpGe,
	".":  OpDot,
}

func (o Operator) String() string {
	if int(o) >= 0 && int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return "unknown"
}

// OperatorByName maps an overload name ("add", "dot", ...) to its Operator.
func OperatorByName(name string) (Operator, bool) {
	for op, n := range operatorNames {
		if n == name {
			return Operator(op), true
		}
	}
	return 0, false
}

// OperatorForSymbol maps operator text ("+", "==", ...) to its Operator.
func OperatorForSymbol(sym string) (Operator, bool) {
	op, ok := operatorSymbols[sym]
	return op, ok
}
