package vm

import (
	"context"
	"errors"
	"sort"

	"github.com/chazu/tessera/compiler"
)

// ---------------------------------------------------------------------------
// Interpreter: tree-walking evaluator
// ---------------------------------------------------------------------------

// DefaultMaxDepth is the default limit on nested calls.
const DefaultMaxDepth = 2000

// Interpreter evaluates modules against a root scope of host-registered
// values. An Interpreter is not safe for concurrent use; hosts that need
// parallel evaluation create one Interpreter per goroutine.
type Interpreter struct {
	globals  *Scope
	modules  map[string]*Module
	resolver Resolver

	stepLimit int
	maxDepth  int

	// per-run state
	ctx       context.Context
	running   int
	steps     int
	depth     int
	current   *Module
	linkStack []string

	repl *Module
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithResolver sets the resolver used for imports of modules that were not
// registered with AddModule.
func WithResolver(r Resolver) Option {
	return func(in *Interpreter) { in.resolver = r }
}

// WithStepLimit bounds the number of statements and calls one run may
// execute. Zero means unlimited.
func WithStepLimit(n int) Option {
	return func(in *Interpreter) { in.stepLimit = n }
}

// WithMaxDepth bounds call nesting.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) { in.maxDepth = n }
}

// NewInterpreter creates an interpreter with an empty root scope.
func NewInterpreter(opts ...Option) *Interpreter {
	in := &Interpreter{
		globals:  NewScope(),
		modules:  make(map[string]*Module),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Define binds a value in the root scope shared by every module.
func (in *Interpreter) Define(name string, v Value) {
	in.globals.Define(name, v)
}

// DefineFunc registers a native function in the root scope.
func (in *Interpreter) DefineFunc(name string, fn NativeFunc) {
	in.Define(name, NewNative(name, fn))
}

// Globals returns the root scope.
func (in *Interpreter) Globals() *Scope {
	return in.globals
}

// Context returns the context of the active run, for natives that block.
func (in *Interpreter) Context() context.Context {
	if in.ctx == nil {
		return context.Background()
	}
	return in.ctx
}

func (in *Interpreter) begin(ctx context.Context) {
	if in.running == 0 {
		if ctx == nil {
			ctx = context.Background()
		}
		in.ctx = ctx
		in.steps = 0
		in.depth = 0
	}
	in.running++
}

func (in *Interpreter) end() {
	in.running--
	if in.running == 0 {
		in.ctx = nil
	}
}

// Run links and executes m. Imports are resolved, and imported modules
// run, before the first statement of m. The result is the value of a
// top-level return, or null.
func (in *Interpreter) Run(ctx context.Context, m *Module) (Value, error) {
	if err := in.AddModule(m); err != nil {
		return nil, err
	}
	if m.state != moduleUnlinked {
		return nil, &LinkError{Module: m.Name, Msg: "module has already run"}
	}
	in.begin(ctx)
	defer in.end()
	return in.runModule(m)
}

// runModule executes m in a fresh scope under the root scope.
func (in *Interpreter) runModule(m *Module) (Value, error) {
	prev := in.current
	in.current = m
	in.linkStack = append(in.linkStack, m.Name)
	defer func() {
		in.current = prev
		in.linkStack = in.linkStack[:len(in.linkStack)-1]
	}()

	m.state = moduleLinking
	m.scope = in.globals.Child()

	fail := func(err error) (Value, error) {
		m.state = moduleFailed
		m.err = err
		return nil, err
	}

	if err := in.hoistImports(m.Stmts, m.scope); err != nil {
		return fail(err)
	}
	v, returned, err := in.execBlock(m.Stmts, m.scope)
	if err != nil {
		return fail(err)
	}
	if !returned {
		v = Null
	}
	m.snapshotExports()
	m.state = moduleDone
	m.result = v
	return v, nil
}

// hoistImports links every top-level import before execution starts.
func (in *Interpreter) hoistImports(stmts []compiler.Stmt, scope *Scope) error {
	for _, s := range stmts {
		if imp, ok := s.(*compiler.ImportStatement); ok {
			if err := in.importInto(imp.Path, scope); err != nil {
				return err
			}
		}
	}
	return nil
}

// Eval parses and runs src in a persistent scope, so definitions carry
// over between calls. It returns the value of a top-level return, else
// the value of the last expression statement, else null.
func (in *Interpreter) Eval(ctx context.Context, src string) (Value, error) {
	stmts, err := compiler.Parse(src)
	if err != nil {
		return nil, err
	}
	if in.repl == nil {
		in.repl = NewModule("<repl>", "", nil)
		in.repl.scope = in.globals.Child()
		in.repl.state = moduleLinking
	}

	in.begin(ctx)
	defer in.end()
	prev := in.current
	in.current = in.repl
	defer func() { in.current = prev }()

	scope := in.repl.scope
	if err := in.hoistImports(stmts, scope); err != nil {
		return nil, err
	}

	var last Value = Null
	for _, s := range stmts {
		if es, ok := s.(*compiler.ExpressionStatement); ok {
			if err := in.tick(es); err != nil {
				return nil, err
			}
			v, err := in.eval(es.Expr, scope)
			if err != nil {
				return nil, err
			}
			last = v
			continue
		}
		v, returned, err := in.execStmt(s, scope)
		if err != nil {
			return nil, err
		}
		if returned {
			return v, nil
		}
	}
	return last, nil
}

// REPLScope returns the persistent scope used by Eval.
func (in *Interpreter) REPLScope() *Scope {
	if in.repl == nil {
		return in.globals
	}
	return in.repl.scope
}

// Call invokes a script callable with args. Natives use it to call back
// into script code during a run; hosts may use it after a run to invoke
// functions a script registered.
func (in *Interpreter) Call(fn Value, args ...Value) (Value, error) {
	return in.CallContext(in.Context(), fn, args...)
}

// CallContext is Call with an explicit context for host-initiated calls.
func (in *Interpreter) CallContext(ctx context.Context, fn Value, args ...Value) (Value, error) {
	in.begin(ctx)
	defer in.end()
	if err := in.step(); err != nil {
		return nil, err
	}
	v, err := in.call(fn, args)
	if err != nil {
		return nil, in.locate(err, nil)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Limits and errors
// ---------------------------------------------------------------------------

// step counts one unit of work and checks the step limit and the context.
func (in *Interpreter) step() error {
	in.steps++
	if in.stepLimit > 0 && in.steps > in.stepLimit {
		return evalErr(ErrStepLimit, "exceeded %d steps", in.stepLimit)
	}
	if in.ctx != nil {
		select {
		case <-in.ctx.Done():
			e := evalErr(ErrCanceled, "%v", in.ctx.Err())
			e.Err = in.ctx.Err()
			return e
		default:
		}
	}
	return nil
}

func (in *Interpreter) tick(n compiler.Node) error {
	if err := in.step(); err != nil {
		return in.locate(err, n)
	}
	return nil
}

func (in *Interpreter) moduleName() string {
	if in.current == nil {
		return ""
	}
	return in.current.Name
}

// errAt builds an EvalError positioned at n.
func (in *Interpreter) errAt(n compiler.Node, kind ErrorKind, format string, args ...interface{}) error {
	e := evalErr(kind, format, args...)
	return in.locate(e, n)
}

// locate fills in the module and position of an EvalError that does not
// have one yet. Other errors pass through unchanged.
func (in *Interpreter) locate(err error, n compiler.Node) error {
	var e *EvalError
	if !errors.As(err, &e) {
		return err
	}
	if e.Module == "" {
		e.Module = in.moduleName()
	}
	if e.Pos.Line == 0 && n != nil {
		e.Pos = n.Span().Start
	}
	return err
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// execBlock runs statements in order. returned is true when a return
// statement ran; the signal passes through if blocks up to the nearest
// call frame.
func (in *Interpreter) execBlock(stmts []compiler.Stmt, scope *Scope) (Value, bool, error) {
	for _, s := range stmts {
		v, returned, err := in.execStmt(s, scope)
		if err != nil || returned {
			return v, returned, err
		}
	}
	return Null, false, nil
}

func (in *Interpreter) execStmt(s compiler.Stmt, scope *Scope) (Value, bool, error) {
	if err := in.tick(s); err != nil {
		return nil, false, err
	}

	switch s := s.(type) {
	case *compiler.ExpressionStatement:
		_, err := in.eval(s.Expr, scope)
		return Null, false, err

	case *compiler.VariableDefinition:
		v, err := in.eval(s.Value, scope)
		if err != nil {
			return nil, false, err
		}
		scope.Define(s.Name, v)

	case *compiler.VariableAssignment:
		v, err := in.eval(s.Value, scope)
		if err != nil {
			return nil, false, err
		}
		if !scope.Assign(s.Name, v) {
			return nil, false, in.errAt(s, ErrUnbound, "assignment to undefined variable %s", s.Name)
		}

	case *compiler.FunctionDefinition:
		scope.Define(s.Name, &Closure{Name: s.Name, Params: s.Params, Body: s.Body, Scope: scope})

	case *compiler.StaticFunctionDefinition:
		scope.Define(s.Name, &Closure{Name: s.Name, Params: s.Params, Body: s.Body, Scope: scope})

	case *compiler.OperatorImplementation:
		name := operatorBinding(s.Op)
		scope.Define(name, &Closure{Name: name, Params: s.Params, Body: s.Body, Scope: scope})

	case *compiler.ClassDefinition:
		if existing, ok := scope.vars[s.Name]; ok {
			if _, isClass := existing.(*Class); isClass {
				return nil, false, in.errAt(s, ErrRedefinition, "class %s is already defined", s.Name)
			}
		}
		c, err := NewClass(s, in.moduleName(), scope)
		if err != nil {
			return nil, false, in.locate(err, s)
		}
		scope.Define(s.Name, c)

	case *compiler.IfStatement:
		cond, err := in.eval(s.Cond, scope)
		if err != nil {
			return nil, false, err
		}
		if Truthy(cond) {
			return in.execBlock(s.Body, scope.Child())
		}
		if s.Else != nil {
			return in.execBlock(s.Else, scope.Child())
		}

	case *compiler.ReturnStatement:
		v, err := in.eval(s.Value, scope)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil

	case *compiler.ImportStatement:
		// Top-level imports were linked before the module started.
		if in.current != nil && scope == in.current.scope {
			return Null, false, nil
		}
		if err := in.importInto(s.Path, scope); err != nil {
			return nil, false, err
		}

	case *compiler.ExportStatement:
		name := s.Name()
		if _, ok := scope.Lookup(name); !ok {
			return nil, false, in.errAt(s, ErrUnbound, "cannot export undefined name %s", name)
		}
		if in.current != nil {
			in.current.markExport(name)
		}

	default:
		return nil, false, in.errAt(s, ErrTypeMismatch, "unsupported statement %T", s)
	}
	return Null, false, nil
}

// operatorBinding is the scope name of a module-level operator
// implementation. It is not a valid identifier, so scripts cannot shadow
// or read it directly.
func operatorBinding(op compiler.Operator) string {
	return "op " + op.String()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) eval(e compiler.Expr, scope *Scope) (Value, error) {
	switch e := e.(type) {
	case *compiler.NumberLiteral:
		return Number(e.Value), nil

	case *compiler.StringLiteral:
		return String(e.Value), nil

	case *compiler.BooleanLiteral:
		return Boolean(e.Value), nil

	case *compiler.NullLiteral:
		return Null, nil

	case *compiler.Identifier:
		v, ok := scope.Lookup(e.Name)
		if !ok {
			return nil, in.errAt(e, ErrUnbound, "undefined variable %s", e.Name)
		}
		return v, nil

	case *compiler.ClassIdentifier:
		v, ok := scope.Lookup(e.Name)
		if !ok {
			return nil, in.errAt(e, ErrUnbound, "undefined class %s", e.Name)
		}
		return v, nil

	case *compiler.ArrayLiteral:
		arr := &Array{Elements: make([]Value, 0, len(e.Elements))}
		for _, el := range e.Elements {
			v, err := in.eval(el, scope)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, v)
		}
		return arr, nil

	case *compiler.ObjectLiteral:
		obj := NewObject()
		for _, name := range sortedFieldNames(e.Fields) {
			v, err := in.eval(e.Fields[name], scope)
			if err != nil {
				return nil, err
			}
			obj.Fields[name] = v
		}
		return obj, nil

	case *compiler.ClassInstantiation:
		return in.instantiate(e, scope)

	case *compiler.FunctionCall:
		fn, err := in.eval(e.Callee, scope)
		if err != nil {
			return nil, err
		}
		return in.applyCall(e, fn, scope)

	case *compiler.BinaryOp:
		return in.evalBinary(e, scope)

	case *compiler.ArrowFunction:
		return &Closure{Params: e.Params, Body: e.Body, Scope: scope}, nil
	}
	return nil, in.errAt(e, ErrTypeMismatch, "unsupported expression %T", e)
}

// sortedFieldNames gives literal fields a fixed evaluation order.
func sortedFieldNames(fields map[string]compiler.Expr) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// instantiate creates an instance: declared defaults first, evaluated in
// the class's defining scope, then the supplied fields.
func (in *Interpreter) instantiate(e *compiler.ClassInstantiation, scope *Scope) (Value, error) {
	cv, ok := scope.Lookup(e.Class)
	if !ok {
		return nil, in.errAt(e, ErrUnbound, "undefined class %s", e.Class)
	}
	cls, ok := cv.(*Class)
	if !ok {
		return nil, in.errAt(e, ErrTypeMismatch, "%s is a %s, not a class", e.Class, TypeName(cv))
	}

	inst := &Instance{Class: cls, Fields: make(map[string]Value, len(cls.Fields))}
	for _, f := range cls.Fields {
		if _, supplied := e.Fields[f.Name]; supplied {
			continue
		}
		v, err := in.eval(f.Default, cls.scope)
		if err != nil {
			return nil, err
		}
		inst.Fields[f.Name] = v
	}
	for _, name := range sortedFieldNames(e.Fields) {
		v, err := in.eval(e.Fields[name], scope)
		if err != nil {
			return nil, err
		}
		inst.Fields[name] = v
	}
	return inst, nil
}

// applyCall evaluates call's arguments left to right and applies fn.
func (in *Interpreter) applyCall(call *compiler.FunctionCall, fn Value, scope *Scope) (Value, error) {
	args := make([]Value, 0, len(call.Args))
	for _, a := range call.Args {
		v, err := in.eval(a, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if err := in.tick(call); err != nil {
		return nil, err
	}
	v, err := in.call(fn, args)
	if err != nil {
		return nil, in.locate(err, call)
	}
	return v, nil
}

// call dispatches to a closure or a native function.
func (in *Interpreter) call(fn Value, args []Value) (Value, error) {
	switch f := fn.(type) {
	case *Closure:
		if len(args) > len(f.Params) {
			return nil, evalErr(ErrArity, "%s expects %d argument(s), got %d", closureName(f), len(f.Params), len(args))
		}
		if in.depth >= in.maxDepth {
			return nil, evalErr(ErrStackOverflow, "call depth exceeds %d", in.maxDepth)
		}
		in.depth++
		defer func() { in.depth-- }()

		frame := f.Scope.Child()
		if f.This != nil {
			frame.Define("this", f.This)
		}
		for i, p := range f.Params {
			if i < len(args) {
				frame.Define(p, args[i])
			} else {
				frame.Define(p, Null)
			}
		}
		v, returned, err := in.execBlock(f.Body, frame)
		if err != nil {
			return nil, err
		}
		if !returned {
			return Null, nil
		}
		return v, nil

	case *NativeFunction:
		v, err := f.Fn(in, f.Receiver, args)
		if err != nil {
			var ee *EvalError
			if errors.As(err, &ee) {
				return nil, err
			}
			return nil, &EvalError{Kind: ErrNative, Msg: f.Name + ": " + err.Error(), Err: err}
		}
		if v == nil {
			return Null, nil
		}
		return v, nil
	}
	return nil, evalErr(ErrNotCallable, "%s is not callable", TypeName(fn))
}

func closureName(c *Closure) string {
	if c.Name == "" {
		return "anonymous function"
	}
	return c.Name
}

// ---------------------------------------------------------------------------
// Binary operations, member access and assignment
// ---------------------------------------------------------------------------

func (in *Interpreter) evalBinary(e *compiler.BinaryOp, scope *Scope) (Value, error) {
	switch e.Op {
	case "=":
		return in.assign(e, scope)
	case ".", "::":
		recv, err := in.eval(e.Left, scope)
		if err != nil {
			return nil, err
		}
		return in.member(recv, e.Right, scope, e.Op == "::")
	}

	l, err := in.eval(e.Left, scope)
	if err != nil {
		return nil, err
	}
	r, err := in.eval(e.Right, scope)
	if err != nil {
		return nil, err
	}
	v, err := in.binary(e.Op, l, r, scope)
	if err != nil {
		return nil, in.locate(err, e)
	}
	return v, nil
}

// binary applies an arithmetic or comparison operator. A class overload
// on the left operand wins; then built-in semantics; then a module-level
// operator implementation taking both operands.
func (in *Interpreter) binary(sym string, l, r Value, scope *Scope) (Value, error) {
	op, ok := compiler.OperatorForSymbol(sym)
	if !ok {
		return nil, evalErr(ErrTypeMismatch, "unknown operator %s", sym)
	}

	if inst, ok := l.(*Instance); ok {
		if m, ok := inst.Class.Operator(op); ok {
			return in.call(inst.Class.bindMethod(m, inst), []Value{r})
		}
		if op == compiler.OpNe {
			if m, ok := inst.Class.Operator(compiler.OpEq); ok {
				v, err := in.call(inst.Class.bindMethod(m, inst), []Value{r})
				if err != nil {
					return nil, err
				}
				return Boolean(!Truthy(v)), nil
			}
		}
	}

	v, ok, err := builtinBinary(op, l, r)
	if err != nil || ok {
		return v, err
	}

	if fn, ok := scope.Lookup(operatorBinding(op)); ok {
		return in.call(fn, []Value{l, r})
	}
	return nil, evalErr(ErrTypeMismatch, "cannot apply %s to %s and %s", sym, TypeName(l), TypeName(r))
}

// builtinBinary implements the operators on primitives. ok is false when
// the operand types have no built-in meaning for op.
func builtinBinary(op compiler.Operator, l, r Value) (Value, bool, error) {
	a, aNum := l.(Number)
	b, bNum := r.(Number)
	nums := aNum && bNum

	switch op {
	case compiler.OpEq:
		return Boolean(Equal(l, r)), true, nil
	case compiler.OpNe:
		return Boolean(!Equal(l, r)), true, nil
	case compiler.OpAdd:
		if nums {
			return a + b, true, nil
		}
		_, ls := l.(String)
		_, rs := r.(String)
		if ls || rs {
			return String(Format(l) + Format(r)), true, nil
		}
	case compiler.OpSub:
		if nums {
			return a - b, true, nil
		}
	case compiler.OpMul:
		if nums {
			return a * b, true, nil
		}
	case compiler.OpDiv:
		if nums {
			if b == 0 {
				return nil, true, evalErr(ErrDivideByZero, "division by zero")
			}
			return a / b, true, nil
		}
	case compiler.OpLt, compiler.OpLe, compiler.OpGt, compiler.OpGe:
		if nums {
			return Boolean(compareOrdered(op, float64(a), float64(b))), true, nil
		}
		ls, lok := l.(String)
		rs, rok := r.(String)
		if lok && rok {
			return Boolean(compareOrdered(op, string(ls), string(rs))), true, nil
		}
	}
	return nil, false, nil
}

func compareOrdered[T float64 | string](op compiler.Operator, a, b T) bool {
	switch op {
	case compiler.OpLt:
		return a < b
	case compiler.OpLe:
		return a <= b
	case compiler.OpGt:
		return a > b
	}
	return a >= b
}

// member evaluates the right side of `.` or `::` against recv. A call on
// the right side applies to the member it names, so a.f()() calls the
// result of a.f().
func (in *Interpreter) member(recv Value, right compiler.Expr, scope *Scope, path bool) (Value, error) {
	switch r := right.(type) {
	case *compiler.Identifier:
		v, err := in.getMember(recv, r.Name, path)
		if err != nil {
			return nil, in.locate(err, r)
		}
		return v, nil
	case *compiler.ClassIdentifier:
		v, err := in.getMember(recv, r.Name, path)
		if err != nil {
			return nil, in.locate(err, r)
		}
		return v, nil
	case *compiler.FunctionCall:
		fn, err := in.member(recv, r.Callee, scope, path)
		if err != nil {
			return nil, err
		}
		return in.applyCall(r, fn, scope)
	}
	return nil, in.errAt(right, ErrTypeMismatch, "invalid member expression %s", compiler.FormatExpr(right))
}

// getMember resolves name on recv. With path set (the `::` operator) only
// static methods and namespace entries are visible.
func (in *Interpreter) getMember(recv Value, name string, path bool) (Value, error) {
	switch x := recv.(type) {
	case *Instance:
		if path {
			return staticMember(x.Class, name)
		}
		if v, ok := x.Fields[name]; ok {
			return v, nil
		}
		if m, ok := x.Class.Method(name); ok {
			return x.Class.bindMethod(m, x), nil
		}
		if m, ok := x.Class.Operator(compiler.OpDot); ok {
			return in.call(x.Class.bindMethod(m, x), []Value{String(name)})
		}
		return nil, evalErr(ErrUnbound, "%s has no member %s", x.Class.Name, name)

	case *Class:
		return staticMember(x, name)

	case *Object:
		if v, ok := x.Fields[name]; ok {
			return v, nil
		}
		if !path {
			if fn, ok := objectMethods[name]; ok {
				return fn.Bind(x), nil
			}
		}
		return nil, evalErr(ErrUnbound, "object has no member %s", name)

	case *Array:
		if fn, ok := arrayMethods[name]; ok && !path {
			return fn.Bind(x), nil
		}
		return nil, evalErr(ErrUnbound, "array has no method %s", name)

	case String:
		if fn, ok := stringMethods[name]; ok && !path {
			return fn.Bind(x), nil
		}
		return nil, evalErr(ErrUnbound, "string has no method %s", name)
	}

	op := "."
	if path {
		op = "::"
	}
	return nil, evalErr(ErrTypeMismatch, "cannot use %s on %s", op, TypeName(recv))
}

// staticMember binds a static method with this set to the class.
func staticMember(c *Class, name string) (Value, error) {
	if m, ok := c.Static(name); ok {
		return c.bindMethod(m, c), nil
	}
	return nil, evalErr(ErrUnbound, "class %s has no static method %s", c.Name, name)
}

// assign implements `=` inside expressions. Targets are a variable or a
// field of an object or instance.
func (in *Interpreter) assign(e *compiler.BinaryOp, scope *Scope) (Value, error) {
	switch target := e.Left.(type) {
	case *compiler.Identifier:
		v, err := in.eval(e.Right, scope)
		if err != nil {
			return nil, err
		}
		if !scope.Assign(target.Name, v) {
			return nil, in.errAt(target, ErrUnbound, "assignment to undefined variable %s", target.Name)
		}
		return v, nil

	case *compiler.BinaryOp:
		field, ok := target.Right.(*compiler.Identifier)
		if target.Op != "." || !ok {
			break
		}
		recv, err := in.eval(target.Left, scope)
		if err != nil {
			return nil, err
		}
		v, err := in.eval(e.Right, scope)
		if err != nil {
			return nil, err
		}
		if err := setField(recv, field.Name, v); err != nil {
			return nil, in.locate(err, field)
		}
		return v, nil
	}
	return nil, in.errAt(e, ErrTypeMismatch, "cannot assign to %s", compiler.FormatExpr(e.Left))
}

func setField(recv Value, name string, v Value) error {
	switch x := recv.(type) {
	case *Instance:
		if _, ok := x.Fields[name]; !ok {
			return evalErr(ErrUnbound, "%s has no field %s", x.Class.Name, name)
		}
		x.Fields[name] = v
		return nil
	case *Object:
		x.Fields[name] = v
		return nil
	}
	return evalErr(ErrTypeMismatch, "cannot set field %s on %s", name, TypeName(recv))
}
