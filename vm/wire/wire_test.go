package wire

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/chazu/tessera/vm"
)

func TestValueRoundTrip(t *testing.T) {
	obj := vm.NewObject()
	obj.Fields["name"] = vm.String("grid")
	obj.Fields["cells"] = vm.NewArray(vm.Number(1), vm.Number(2.5), vm.Null)
	obj.Fields["ok"] = vm.Boolean(true)

	tests := []vm.Value{
		vm.Number(0),
		vm.Number(-3.75),
		vm.Number(1e300),
		vm.String(""),
		vm.String("héllo"),
		vm.Boolean(false),
		vm.Null,
		vm.NewArray(),
		vm.NewObject(),
		obj,
	}
	for _, v := range tests {
		data, err := Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", vm.Inspect(v), err)
		}
		got, err := Unmarshal(data, nil)
		if err != nil {
			t.Fatalf("Unmarshal(%s): %v", vm.Inspect(v), err)
		}
		if vm.Inspect(got) != vm.Inspect(v) {
			t.Errorf("round trip = %s, want %s", vm.Inspect(got), vm.Inspect(v))
		}
	}
}

func TestCanonical(t *testing.T) {
	a := vm.NewObject()
	a.Fields["z"] = vm.Number(1)
	a.Fields["a"] = vm.Number(2)
	b := vm.NewObject()
	b.Fields["a"] = vm.Number(2)
	b.Fields["z"] = vm.Number(1)

	for i := 0; i < 5; i++ {
		da, err := Marshal(a)
		if err != nil {
			t.Fatal(err)
		}
		db, err := Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(da, db) {
			t.Fatalf("encodings differ: %x vs %x", da, db)
		}
	}
}

func TestUnsupported(t *testing.T) {
	if _, err := Marshal(&vm.Closure{}); err == nil {
		t.Error("Marshal(closure) should fail")
	} else {
		var ue *UnsupportedError
		if !errors.As(err, &ue) || ue.Type != "function" {
			t.Errorf("err = %v, want UnsupportedError for function", err)
		}
	}

	loop := vm.NewArray()
	loop.Elements = append(loop.Elements, loop)
	if _, err := Marshal(loop); !errors.Is(err, ErrCycle) {
		t.Errorf("Marshal(cycle) = %v, want ErrCycle", err)
	}

	// Shared but acyclic references are fine.
	shared := vm.NewArray(vm.Number(1))
	if _, err := Marshal(vm.NewArray(shared, shared)); err != nil {
		t.Errorf("Marshal(shared) = %v", err)
	}
}

func runModule(t *testing.T, src string) (*vm.Interpreter, *vm.Module) {
	t.Helper()
	m, err := vm.ParseModule("shapes", "shapes.tess", src)
	if err != nil {
		t.Fatal(err)
	}
	in := vm.NewInterpreter()
	if _, err := in.Run(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	return in, m
}

func TestInstances(t *testing.T) {
	_, m := runModule(t, "class Point {\n  var x = 0\n  var y = 0\n}\nvar p = Point{x: 3}\nexport p\nexport Point")
	p, _ := m.Export("p")

	data, err := Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data, ScopeClasses(m.Scope()))
	if err != nil {
		t.Fatal(err)
	}
	inst, ok := got.(*vm.Instance)
	if !ok {
		t.Fatalf("got %T, want *vm.Instance", got)
	}
	if inst.Class.Name != "Point" || vm.Inspect(inst) != "Point{x: 3, y: 0}" {
		t.Errorf("decoded %s", vm.Inspect(inst))
	}

	var uce *UnknownClassError
	if _, err := Unmarshal(data, nil); !errors.As(err, &uce) || uce.Class != "Point" {
		t.Errorf("Unmarshal without classes = %v, want UnknownClassError", err)
	}
}

func TestSnapshot(t *testing.T) {
	_, m := runModule(t, `class Tile { var kind = "floor" }
var size = 4
var tiles = [Tile{}, Tile{kind: "wall"}]
fn area() { return size * size }
var meta = #{name: "dungeon", tags: ["a", "b"]}
export size
export tiles
export area
export meta
export Tile
size = 5`)

	data, err := MarshalExports(m)
	if err != nil {
		t.Fatal(err)
	}
	s, err := UnmarshalSnapshot(data, ScopeClasses(m.Scope()))
	if err != nil {
		t.Fatal(err)
	}
	if s.Module != "shapes" {
		t.Errorf("Module = %q", s.Module)
	}
	want := map[string]string{
		"size":  "5",
		"tiles": `[Tile{kind: "floor"}, Tile{kind: "wall"}]`,
		"meta":  `#{name: "dungeon", tags: ["a", "b"]}`,
	}
	if len(s.Exports) != len(want) {
		t.Errorf("got %d exports, want %d", len(s.Exports), len(want))
	}
	for name, w := range want {
		if got := vm.Inspect(s.Exports[name]); got != w {
			t.Errorf("export %s = %s, want %s", name, got, w)
		}
	}
	if len(s.Skipped) != 2 || s.Skipped[0] != "area" || s.Skipped[1] != "Tile" {
		t.Errorf("Skipped = %v, want [area Tile]", s.Skipped)
	}

	again, err := MarshalExports(m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("snapshot encoding is not deterministic")
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", []byte{0x82, 0x01}},
		{"byte string", []byte{0x41, 0x00}},
		{"other tag", []byte{0xd8, 0x20, 0x60}},
		{"malformed instance", []byte{0xd8, 0x1b, 0x01}},
	}
	for _, tc := range tests {
		if _, err := Unmarshal(tc.data, nil); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
