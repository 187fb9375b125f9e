package vm

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Built-in methods on arrays, strings and objects
// ---------------------------------------------------------------------------

// Built-in methods are natives bound to their receiver on access, so
// `xs.push` is a value that can be passed around like any function.
var (
	arrayMethods  map[string]*NativeFunction
	stringMethods map[string]*NativeFunction
	objectMethods map[string]*NativeFunction
)

// The tables are filled in init because the natives call back into the
// interpreter, which itself consults the tables.
func init() {
	arrayMethods = methodTable("array", map[string]NativeFunc{
		"push":     arrayPush,
		"pop":      arrayPop,
		"len":      arrayLen,
		"get":      arrayGet,
		"set":      arraySet,
		"each":     arrayEach,
		"map":      arrayMap,
		"filter":   arrayFilter,
		"join":     arrayJoin,
		"contains": arrayContains,
	})
	stringMethods = methodTable("string", map[string]NativeFunc{
		"len":      stringLen,
		"upper":    stringUpper,
		"lower":    stringLower,
		"split":    stringSplit,
		"contains": stringContains,
		"trim":     stringTrim,
	})
	objectMethods = methodTable("object", map[string]NativeFunc{
		"keys":   objectKeys,
		"has":    objectHas,
		"get":    objectGet,
		"set":    objectSet,
		"remove": objectRemove,
		"len":    objectLen,
	})
}

func methodTable(kind string, fns map[string]NativeFunc) map[string]*NativeFunction {
	table := make(map[string]*NativeFunction, len(fns))
	for name, fn := range fns {
		table[name] = NewNative(kind+"."+name, fn)
	}
	return table
}

// BuiltinMethods returns the built-in method names for arrays, strings or
// objects, sorted.
func BuiltinMethods(k Kind) []string {
	var table map[string]*NativeFunction
	switch k {
	case KindArray:
		table = arrayMethods
	case KindString:
		table = stringMethods
	case KindObject:
		table = objectMethods
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

func wantArgs(args []Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func numberArg(args []Value, i int) (Number, error) {
	n, ok := args[i].(Number)
	if !ok {
		return 0, fmt.Errorf("argument %d must be a number, got %s", i+1, TypeName(args[i]))
	}
	return n, nil
}

func stringArg(args []Value, i int) (String, error) {
	s, ok := args[i].(String)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string, got %s", i+1, TypeName(args[i]))
	}
	return s, nil
}

// indexArg converts an argument to an index into a slice of length n.
func indexArg(args []Value, i, n int) (int, bool, error) {
	num, err := numberArg(args, i)
	if err != nil {
		return 0, false, err
	}
	idx := int(num)
	if Number(idx) != num {
		return 0, false, fmt.Errorf("index %s is not an integer", Inspect(num))
	}
	return idx, idx >= 0 && idx < n, nil
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

func arrayPush(_ *Interpreter, recv Value, args []Value) (Value, error) {
	arr := recv.(*Array)
	arr.Elements = append(arr.Elements, args...)
	return Number(len(arr.Elements)), nil
}

func arrayPop(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	arr := recv.(*Array)
	if len(arr.Elements) == 0 {
		return Null, nil
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return last, nil
}

func arrayLen(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	return Number(len(recv.(*Array).Elements)), nil
}

// arrayGet returns null for an index outside the array.
func arrayGet(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	arr := recv.(*Array)
	idx, inRange, err := indexArg(args, 0, len(arr.Elements))
	if err != nil {
		return nil, err
	}
	if !inRange {
		return Null, nil
	}
	return arr.Elements[idx], nil
}

func arraySet(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 2); err != nil {
		return nil, err
	}
	arr := recv.(*Array)
	idx, inRange, err := indexArg(args, 0, len(arr.Elements))
	if err != nil {
		return nil, err
	}
	if !inRange {
		return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(arr.Elements))
	}
	arr.Elements[idx] = args[1]
	return args[1], nil
}

func arrayEach(in *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	// Iterate over a snapshot so callbacks that push do not loop forever.
	elems := append([]Value(nil), recv.(*Array).Elements...)
	for _, e := range elems {
		if _, err := in.call(args[0], []Value{e}); err != nil {
			return nil, err
		}
	}
	return Null, nil
}

func arrayMap(in *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	elems := append([]Value(nil), recv.(*Array).Elements...)
	out := make([]Value, 0, len(elems))
	for _, e := range elems {
		v, err := in.call(args[0], []Value{e})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return NewArray(out...), nil
}

func arrayFilter(in *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	elems := append([]Value(nil), recv.(*Array).Elements...)
	out := []Value{}
	for _, e := range elems {
		keep, err := in.call(args[0], []Value{e})
		if err != nil {
			return nil, err
		}
		if Truthy(keep) {
			out = append(out, e)
		}
	}
	return NewArray(out...), nil
}

func arrayJoin(_ *Interpreter, recv Value, args []Value) (Value, error) {
	sep := String("")
	if len(args) > 1 {
		return nil, fmt.Errorf("expected at most 1 argument, got %d", len(args))
	}
	if len(args) == 1 {
		s, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		sep = s
	}
	elems := recv.(*Array).Elements
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = Format(e)
	}
	return String(strings.Join(parts, string(sep))), nil
}

func arrayContains(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	for _, e := range recv.(*Array).Elements {
		if Equal(e, args[0]) {
			return Boolean(true), nil
		}
	}
	return Boolean(false), nil
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

func stringLen(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	return Number(utf8.RuneCountInString(string(recv.(String)))), nil
}

func stringUpper(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	return String(strings.ToUpper(string(recv.(String)))), nil
}

func stringLower(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	return String(strings.ToLower(string(recv.(String)))), nil
}

func stringSplit(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	sep, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(string(recv.(String)), string(sep))
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = String(p)
	}
	return NewArray(out...), nil
}

func stringContains(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	sub, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	return Boolean(strings.Contains(string(recv.(String)), string(sub))), nil
}

func stringTrim(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	return String(strings.TrimSpace(string(recv.(String)))), nil
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

func objectKeys(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	fields := recv.(*Object).Fields
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Value, len(keys))
	for i, k := range keys {
		out[i] = String(k)
	}
	return NewArray(out...), nil
}

func objectHas(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	key, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	_, ok := recv.(*Object).Fields[string(key)]
	return Boolean(ok), nil
}

// objectGet returns null for a missing key.
func objectGet(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	key, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	if v, ok := recv.(*Object).Fields[string(key)]; ok {
		return v, nil
	}
	return Null, nil
}

func objectSet(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 2); err != nil {
		return nil, err
	}
	key, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	recv.(*Object).Fields[string(key)] = args[1]
	return args[1], nil
}

func objectRemove(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 1); err != nil {
		return nil, err
	}
	key, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	fields := recv.(*Object).Fields
	v, ok := fields[string(key)]
	if !ok {
		return Null, nil
	}
	delete(fields, string(key))
	return v, nil
}

func objectLen(_ *Interpreter, recv Value, args []Value) (Value, error) {
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	return Number(len(recv.(*Object).Fields)), nil
}
