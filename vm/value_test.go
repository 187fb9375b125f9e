package vm

import (
	"reflect"
	"testing"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{nil, false},
		{Boolean(false), false},
		{Boolean(true), true},
		{Number(0), false},
		{Number(-1), true},
		{String(""), false},
		{String("0"), true},
		{NewArray(), true},
		{NewObject(), true},
	}
	for _, tc := range tests {
		if got := Truthy(tc.v); got != tc.want {
			t.Errorf("Truthy(%s) = %v, want %v", Inspect(tc.v), got, tc.want)
		}
	}
}

func TestEqual(t *testing.T) {
	arr := NewArray(Number(1))
	tests := []struct {
		a, b Value
		want bool
	}{
		{Number(1), Number(1), true},
		{Number(1), String("1"), false},
		{String("a"), String("a"), true},
		{Boolean(true), Boolean(true), true},
		{Null, Null, true},
		{Null, Boolean(false), false},
		{arr, arr, true},
		{arr, NewArray(Number(1)), false},
	}
	for _, tc := range tests {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Errorf("Equal(%s, %s) = %v, want %v", Inspect(tc.a), Inspect(tc.b), got, tc.want)
		}
	}
}

func TestTypeName(t *testing.T) {
	cls := &Class{Name: "Point"}
	tests := []struct {
		v    Value
		want string
	}{
		{Number(1), "number"},
		{String(""), "string"},
		{Boolean(true), "boolean"},
		{Null, "null"},
		{NewArray(), "array"},
		{NewObject(), "object"},
		{&Instance{Class: cls}, "Point"},
		{&Closure{}, "function"},
		{NewNative("f", nil), "function"},
		{cls, "class"},
	}
	for _, tc := range tests {
		if got := TypeName(tc.v); got != tc.want {
			t.Errorf("TypeName(%T) = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestGoConversion(t *testing.T) {
	in := map[string]interface{}{
		"name":  "grid",
		"size":  3,
		"ok":    true,
		"none":  nil,
		"items": []interface{}{1.5, "x"},
	}
	v, ok := FromGo(in)
	if !ok {
		t.Fatal("FromGo failed")
	}
	if got, want := Inspect(v), `#{items: [1.5, "x"], name: "grid", none: null, ok: true, size: 3}`; got != want {
		t.Errorf("FromGo = %s, want %s", got, want)
	}

	back, ok := ToGo(v)
	if !ok {
		t.Fatal("ToGo failed")
	}
	want := map[string]interface{}{
		"name":  "grid",
		"size":  3.0,
		"ok":    true,
		"none":  nil,
		"items": []interface{}{1.5, "x"},
	}
	if !reflect.DeepEqual(back, want) {
		t.Errorf("ToGo = %#v, want %#v", back, want)
	}

	if _, ok := FromGo(struct{}{}); ok {
		t.Error("FromGo(struct{}) should fail")
	}
	if _, ok := ToGo(&Closure{}); ok {
		t.Error("ToGo(closure) should fail")
	}

	loop := NewArray()
	loop.Elements = append(loop.Elements, loop)
	if _, ok := ToGo(loop); ok {
		t.Error("ToGo of a self-referencing array should fail")
	}
}

func TestFormat(t *testing.T) {
	cls := &Class{Name: "P"}
	loop := NewObject()
	loop.Fields["self"] = loop

	tests := []struct {
		v       Value
		format  string
		inspect string
	}{
		{String("hi"), "hi", `"hi"`},
		{Number(2.5), "2.5", "2.5"},
		{Number(-0.125), "-0.125", "-0.125"},
		{Number(1e21), "1000000000000000000000", "1000000000000000000000"},
		{NewArray(String("a"), Null), `["a", null]`, `["a", null]`},
		{&Instance{Class: cls, Fields: map[string]Value{"y": Number(2), "x": Number(1)}}, "P{x: 1, y: 2}", "P{x: 1, y: 2}"},
		{loop, "#{self: #{...}}", "#{self: #{...}}"},
		{&Closure{Name: "f"}, "<fn f>", "<fn f>"},
		{&Closure{}, "<fn>", "<fn>"},
		{NewNative("print", nil), "<native print>", "<native print>"},
		{cls, "<class P>", "<class P>"},
	}
	for _, tc := range tests {
		if got := Format(tc.v); got != tc.format {
			t.Errorf("Format = %q, want %q", got, tc.format)
		}
		if got := Inspect(tc.v); got != tc.inspect {
			t.Errorf("Inspect = %q, want %q", got, tc.inspect)
		}
	}
}

func TestScope(t *testing.T) {
	root := NewScope()
	root.Define("a", Number(1))
	child := root.Child()
	child.Define("b", Number(2))

	if v, ok := child.Lookup("a"); !ok || !Equal(v, Number(1)) {
		t.Errorf("Lookup(a) = %v, %v", v, ok)
	}
	if _, ok := root.Lookup("b"); ok {
		t.Error("parent sees child binding")
	}
	if !child.Assign("a", Number(5)) {
		t.Fatal("Assign(a) failed")
	}
	if v, _ := root.Lookup("a"); !Equal(v, Number(5)) {
		t.Errorf("Assign did not update the defining scope, a = %s", Inspect(v))
	}
	if child.Assign("zzz", Null) {
		t.Error("Assign of an undefined name succeeded")
	}

	child.Define("a", String("shadow"))
	if v, _ := child.Lookup("a"); !Equal(v, String("shadow")) {
		t.Errorf("shadowed a = %s", Inspect(v))
	}
	if v, _ := root.Lookup("a"); !Equal(v, Number(5)) {
		t.Errorf("shadowing changed the outer binding, a = %s", Inspect(v))
	}

	if got := child.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names = %v", got)
	}
	if got := child.LocalNames(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("LocalNames = %v", got)
	}
	if child.Parent() != root || root.Parent() != nil {
		t.Error("Parent links are wrong")
	}
}
