package vm

import (
	"github.com/chazu/tessera/compiler"
)

// ---------------------------------------------------------------------------
// Value: the dynamic runtime value
// ---------------------------------------------------------------------------

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBoolean
	KindArray
	KindObject
	KindInstance
	KindClosure
	KindNative
	KindClass
)

var kindNames = [...]string{
	KindNull:     "null",
	KindNumber:   "number",
	KindString:   "string",
	KindBoolean:  "boolean",
	KindArray:    "array",
	KindObject:   "object",
	KindInstance: "instance",
	KindClosure:  "function",
	KindNative:   "native function",
	KindClass:    "class",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a Tessera runtime value. The set of implementations is closed:
// Number, String, Boolean, Null, *Array, *Object, *Instance, *Closure,
// *NativeFunction and *Class. Primitives are copied on assignment;
// containers and functions are shared.
type Value interface {
	Kind() Kind
}

// Number is a float64 number.
type Number float64

// String is an immutable string.
type String string

// Boolean is true or false.
type Boolean bool

type nullValue struct{}

// Null is the single null value.
var Null Value = nullValue{}

func (Number) Kind() Kind    { return KindNumber }
func (String) Kind() Kind    { return KindString }
func (Boolean) Kind() Kind   { return KindBoolean }
func (nullValue) Kind() Kind { return KindNull }

// Array is an ordered, mutable list.
type Array struct {
	Elements []Value
}

// NewArray creates an array holding elems.
func NewArray(elems ...Value) *Array {
	if elems == nil {
		elems = []Value{}
	}
	return &Array{Elements: elems}
}

func (*Array) Kind() Kind { return KindArray }

// Object is a string-keyed mutable map.
type Object struct {
	Fields map[string]Value
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{Fields: make(map[string]Value)}
}

func (*Object) Kind() Kind { return KindObject }

// Instance is an instance of a user-defined class.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

func (*Instance) Kind() Kind { return KindInstance }

// Closure is a user-defined function: a parameter list and body plus the
// scope active where it was defined. This is the bound receiver for
// methods, the class for static functions, and nil otherwise.
type Closure struct {
	Name   string
	Params []string
	Body   []compiler.Stmt
	Scope  *Scope
	This   Value
}

func (*Closure) Kind() Kind { return KindClosure }

// bind returns a copy of the closure with this bound to recv.
func (c *Closure) bind(recv Value) *Closure {
	bound := *c
	bound.This = recv
	return &bound
}

// NativeFunc is the Go signature of a host-supplied function. recv is the
// bound receiver for built-in methods and nil for free functions. A nil
// result is read as null.
type NativeFunc func(in *Interpreter, recv Value, args []Value) (Value, error)

// NativeFunction is a Go function exposed to scripts.
type NativeFunction struct {
	Name     string
	Scope    *Scope // optional captured scope
	Receiver Value
	Fn       NativeFunc
}

// NewNative wraps fn as a script-callable value.
func NewNative(name string, fn NativeFunc) *NativeFunction {
	return &NativeFunction{Name: name, Fn: fn}
}

func (*NativeFunction) Kind() Kind { return KindNative }

// Bind returns a copy of the native with its receiver set.
func (n *NativeFunction) Bind(recv Value) *NativeFunction {
	bound := *n
	bound.Receiver = recv
	return &bound
}

// ---------------------------------------------------------------------------
// Value helpers
// ---------------------------------------------------------------------------

// Truthy reports whether v counts as true in a condition. false, null, 0
// and the empty string are falsy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil, nullValue:
		return false
	case Boolean:
		return bool(x)
	case Number:
		return x != 0
	case String:
		return x != ""
	}
	return true
}

// Equal compares primitives by value and everything else by identity.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Boolean:
		y, ok := b.(Boolean)
		return ok && x == y
	case nullValue:
		_, ok := b.(nullValue)
		return ok
	}
	return a == b
}

// TypeName returns the name reported by typeof: the class name for
// instances and the kind name otherwise.
func TypeName(v Value) string {
	if v == nil {
		return KindNull.String()
	}
	if inst, ok := v.(*Instance); ok {
		return inst.Class.Name
	}
	if v.Kind() == KindNative {
		return KindClosure.String()
	}
	return v.Kind().String()
}

// IsCallable reports whether v can be applied to arguments.
func IsCallable(v Value) bool {
	switch v.(type) {
	case *Closure, *NativeFunction:
		return true
	}
	return false
}

// FromGo converts a Go value to a Value. Supported inputs are nil, bool,
// numeric types, string, []interface{}, map[string]interface{} and values
// that already implement Value.
func FromGo(x interface{}) (Value, bool) {
	switch v := x.(type) {
	case nil:
		return Null, true
	case Value:
		return v, true
	case bool:
		return Boolean(v), true
	case float64:
		return Number(v), true
	case float32:
		return Number(v), true
	case int:
		return Number(v), true
	case int64:
		return Number(v), true
	case uint64:
		return Number(v), true
	case string:
		return String(v), true
	case []interface{}:
		arr := NewArray()
		for _, e := range v {
			ev, ok := FromGo(e)
			if !ok {
				return nil, false
			}
			arr.Elements = append(arr.Elements, ev)
		}
		return arr, true
	case map[string]interface{}:
		obj := NewObject()
		for k, e := range v {
			ev, ok := FromGo(e)
			if !ok {
				return nil, false
			}
			obj.Fields[k] = ev
		}
		return obj, true
	}
	return nil, false
}

// maxDataDepth bounds container nesting in ToGo, so self-referencing
// containers are rejected instead of recursing forever.
const maxDataDepth = 512

// ToGo converts data values to plain Go values: float64, string, bool,
// nil, []interface{} and map[string]interface{}. Instances become maps.
// Functions, classes and self-referencing containers report false.
func ToGo(v Value) (interface{}, bool) {
	return toGo(v, 0)
}

func toGo(v Value, depth int) (interface{}, bool) {
	if depth > maxDataDepth {
		return nil, false
	}
	switch x := v.(type) {
	case nil, nullValue:
		return nil, true
	case Number:
		return float64(x), true
	case String:
		return string(x), true
	case Boolean:
		return bool(x), true
	case *Array:
		out := make([]interface{}, len(x.Elements))
		for i, e := range x.Elements {
			g, ok := toGo(e, depth+1)
			if !ok {
				return nil, false
			}
			out[i] = g
		}
		return out, true
	case *Object:
		return fieldsToGo(x.Fields, depth)
	case *Instance:
		return fieldsToGo(x.Fields, depth)
	}
	return nil, false
}

func fieldsToGo(fields map[string]Value, depth int) (interface{}, bool) {
	out := make(map[string]interface{}, len(fields))
	for k, e := range fields {
		g, ok := toGo(e, depth+1)
		if !ok {
			return nil, false
		}
		out[k] = g
	}
	return out, true
}
