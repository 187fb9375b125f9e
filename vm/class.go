package vm

import (
	"sort"

	"github.com/chazu/tessera/compiler"
)

// ---------------------------------------------------------------------------
// Class: user-defined classes
// ---------------------------------------------------------------------------

// Field is a declared class field and its default value expression.
type Field struct {
	Name    string
	Default compiler.Expr
}

// Method is a function body owned by a class: an instance method, a static
// method or an operator overload.
type Method struct {
	Name   string
	Params []string
	Body   []compiler.Stmt
}

// Class is a user-defined class. Classes are immutable once registered;
// instances refer to their class rather than copying it.
type Class struct {
	Name      string
	Module    string
	Fields    []Field
	Methods   map[string]*Method
	Statics   map[string]*Method
	Operators map[compiler.Operator]*Method

	// scope is where the class was defined; method bodies and field
	// defaults close over it.
	scope *Scope
}

func (*Class) Kind() Kind { return KindClass }

// NewClass builds a class from its definition. Declaring two members with
// the same name is a redefinition error.
func NewClass(def *compiler.ClassDefinition, module string, scope *Scope) (*Class, error) {
	c := &Class{
		Name:      def.Name,
		Module:    module,
		Methods:   make(map[string]*Method),
		Statics:   make(map[string]*Method),
		Operators: make(map[compiler.Operator]*Method),
		scope:     scope,
	}

	seen := make(map[string]bool)
	for _, m := range def.Members {
		name := m.MemberName()
		if seen[name] {
			return nil, &EvalError{
				Kind: ErrRedefinition,
				Pos:  m.Span().Start,
				Msg:  "class " + def.Name + " declares " + name + " more than once",
			}
		}
		seen[name] = true

		switch m := m.(type) {
		case *compiler.ClassField:
			c.Fields = append(c.Fields, Field{Name: m.Name, Default: m.Default})
		case *compiler.ClassFunction:
			c.Methods[m.Name] = &Method{Name: m.Name, Params: m.Params, Body: m.Body}
		case *compiler.ClassStaticFunction:
			c.Statics[m.Name] = &Method{Name: m.Name, Params: m.Params, Body: m.Body}
		case *compiler.ClassOperator:
			c.Operators[m.Op] = &Method{Name: "op " + m.Op.String(), Params: m.Params, Body: m.Body}
		}
	}
	return c, nil
}

// HasField reports whether the class declares a field called name.
func (c *Class) HasField(name string) bool {
	for _, f := range c.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Method returns the instance method called name.
func (c *Class) Method(name string) (*Method, bool) {
	m, ok := c.Methods[name]
	return m, ok
}

// Static returns the static method called name.
func (c *Class) Static(name string) (*Method, bool) {
	m, ok := c.Statics[name]
	return m, ok
}

// Operator returns the overload for op.
func (c *Class) Operator(op compiler.Operator) (*Method, bool) {
	m, ok := c.Operators[op]
	return m, ok
}

// bindMethod turns a method into a closure with this bound to recv.
func (c *Class) bindMethod(m *Method, recv Value) *Closure {
	return &Closure{
		Name:   c.Name + "." + m.Name,
		Params: m.Params,
		Body:   m.Body,
		Scope:  c.scope,
		This:   recv,
	}
}

// MemberNames returns field names in declaration order followed by
// method and static method names, each group sorted.
func (c *Class) MemberNames() []string {
	var names []string
	for _, f := range c.Fields {
		names = append(names, f.Name)
	}
	names = append(names, sortedKeys(c.Methods)...)
	return append(names, sortedKeys(c.Statics)...)
}

func sortedKeys(m map[string]*Method) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
