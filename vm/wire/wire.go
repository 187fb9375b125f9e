// Package wire encodes Tessera data values as canonical CBOR.
//
// Numbers, strings, booleans, null, arrays and objects map onto the
// matching CBOR types. Class instances are written as tag 27 (a generic
// named object) whose content is [className, fields]. Functions and
// classes are not data and cannot be encoded.
package wire

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/chazu/tessera/vm"
	"github.com/fxamacker/cbor/v2"
)

// TagObject is the CBOR tag number used for class instances.
const TagObject = 27

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// ErrCycle is returned when a container holds itself.
var ErrCycle = errors.New("wire: value contains a reference cycle")

// UnsupportedError reports a value that has no data encoding.
type UnsupportedError struct {
	Type string
}

func (e *UnsupportedError) Error() string {
	return "wire: cannot encode " + e.Type
}

// UnknownClassError reports an encoded instance whose class is not known
// to the decoder.
type UnknownClassError struct {
	Class string
}

func (e *UnknownClassError) Error() string {
	return "wire: unknown class " + e.Class
}

// ClassLookup finds a class by name when decoding instances.
type ClassLookup func(name string) (*vm.Class, bool)

// ScopeClasses looks classes up in s.
func ScopeClasses(s *vm.Scope) ClassLookup {
	return func(name string) (*vm.Class, bool) {
		v, ok := s.Lookup(name)
		if !ok {
			return nil, false
		}
		c, ok := v.(*vm.Class)
		return c, ok
	}
}

// Marshal encodes v. Equal data always yields identical bytes.
func Marshal(v vm.Value) ([]byte, error) {
	x, err := toWire(v, make(map[vm.Value]bool))
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(x)
}

// Unmarshal decodes one value. classes may be nil when the data holds no
// instances.
func Unmarshal(data []byte, classes ClassLookup) (vm.Value, error) {
	var x interface{}
	if err := decMode.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("wire: unmarshal: %w", err)
	}
	return fromWire(x, classes)
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func toWire(v vm.Value, active map[vm.Value]bool) (interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case vm.Number:
		return float64(x), nil
	case vm.String:
		return string(x), nil
	case vm.Boolean:
		return bool(x), nil
	case *vm.Array:
		if active[x] {
			return nil, ErrCycle
		}
		active[x] = true
		defer delete(active, x)
		out := make([]interface{}, len(x.Elements))
		for i, e := range x.Elements {
			w, err := toWire(e, active)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	case *vm.Object:
		if active[x] {
			return nil, ErrCycle
		}
		active[x] = true
		defer delete(active, x)
		return fieldsToWire(x.Fields, active)
	case *vm.Instance:
		if active[x] {
			return nil, ErrCycle
		}
		active[x] = true
		defer delete(active, x)
		fields, err := fieldsToWire(x.Fields, active)
		if err != nil {
			return nil, err
		}
		return cbor.Tag{Number: TagObject, Content: []interface{}{x.Class.Name, fields}}, nil
	}
	if v.Kind() == vm.KindNull {
		return nil, nil
	}
	return nil, &UnsupportedError{Type: vm.TypeName(v)}
}

func fieldsToWire(fields map[string]vm.Value, active map[vm.Value]bool) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for k, e := range fields {
		w, err := toWire(e, active)
		if err != nil {
			return nil, err
		}
		out[k] = w
	}
	return out, nil
}

func fromWire(x interface{}, classes ClassLookup) (vm.Value, error) {
	switch v := x.(type) {
	case nil:
		return vm.Null, nil
	case bool:
		return vm.Boolean(v), nil
	case float64:
		return vm.Number(v), nil
	case float32:
		return vm.Number(v), nil
	case uint64:
		return vm.Number(v), nil
	case int64:
		return vm.Number(v), nil
	case string:
		return vm.String(v), nil
	case []interface{}:
		arr := vm.NewArray()
		for _, e := range v {
			ev, err := fromWire(e, classes)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, ev)
		}
		return arr, nil
	case map[string]interface{}:
		obj := vm.NewObject()
		for k, e := range v {
			ev, err := fromWire(e, classes)
			if err != nil {
				return nil, err
			}
			obj.Fields[k] = ev
		}
		return obj, nil
	case cbor.Tag:
		if v.Number != TagObject {
			return nil, fmt.Errorf("wire: unsupported tag %d", v.Number)
		}
		return instanceFromWire(v.Content, classes)
	}
	return nil, fmt.Errorf("wire: unsupported CBOR item %T", x)
}

func instanceFromWire(content interface{}, classes ClassLookup) (vm.Value, error) {
	parts, ok := content.([]interface{})
	if !ok || len(parts) != 2 {
		return nil, errors.New("wire: malformed instance")
	}
	name, ok := parts[0].(string)
	if !ok {
		return nil, errors.New("wire: instance class name is not a string")
	}
	raw, ok := parts[1].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("wire: fields of %s instance are not a map", name)
	}
	if classes == nil {
		return nil, &UnknownClassError{Class: name}
	}
	cls, ok := classes(name)
	if !ok {
		return nil, &UnknownClassError{Class: name}
	}

	inst := &vm.Instance{Class: cls, Fields: make(map[string]vm.Value, len(cls.Fields))}
	for _, f := range cls.Fields {
		inst.Fields[f.Name] = vm.Null
	}
	for _, k := range sortedKeys(raw) {
		if !cls.HasField(k) {
			return nil, fmt.Errorf("wire: class %s has no field %s", name, k)
		}
		ev, err := fromWire(raw[k], classes)
		if err != nil {
			return nil, err
		}
		inst.Fields[k] = ev
	}
	return inst, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
