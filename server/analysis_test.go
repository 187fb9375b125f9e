package server

import (
	"reflect"
	"testing"
)

func TestCheckSource(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantLine int
	}{
		{"valid", "var a = 1\nfn f() { return a }", 0},
		{"parse error", "var a = 1\nvar = 2", 2},
		{"lex error", "var a = 1\n\nvar s = \"open", 3},
		{"unclosed block", "fn f() {\n  return 1\n", 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stmts, diag := CheckSource(tc.src)
			if tc.wantLine == 0 {
				if diag != nil {
					t.Fatalf("unexpected diagnostic %+v", diag)
				}
				if len(stmts) == 0 {
					t.Error("no statements parsed")
				}
				return
			}
			if diag == nil {
				t.Fatal("expected a diagnostic")
			}
			if diag.Line != tc.wantLine {
				t.Errorf("line = %d, want %d (%s)", diag.Line, tc.wantLine, diag.Message)
			}
			if diag.Message == "" || diag.Column < 1 {
				t.Errorf("diagnostic = %+v", diag)
			}
		})
	}
}

const symbolsSource = `import geometry.points

var origin = 0

class Point {
  var x = 0
  var y = 0
  fn norm() { return this.x * this.x + this.y * this.y }
  static fn at(x, y) { return Point{x: x, y: y} }
  op add(o) { return Point{x: this.x + o.x, y: this.y + o.y} }
}

fn dist(a, b) {
  return (a - b).norm()
}

op sub(a, b) {
  return Point{x: a.x - b.x, y: a.y - b.y}
}

export Point
export dist
`

func TestSymbols(t *testing.T) {
	stmts, diag := CheckSource(symbolsSource)
	if diag != nil {
		t.Fatalf("parse: %+v", diag)
	}
	syms := Symbols(stmts)

	type flat struct {
		Name     string
		Kind     SymbolKind
		Detail   string
		Exported bool
	}
	var got []flat
	for _, s := range syms {
		got = append(got, flat{s.Name, s.Kind, s.Detail, s.Exported})
	}
	want := []flat{
		{"origin", SymbolVariable, "var origin", false},
		{"Point", SymbolClass, "class Point", true},
		{"dist", SymbolFunction, "fn dist(a, b)", true},
		{"sub", SymbolOperator, "op sub(a, b)", false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Symbols =\n%+v\nwant\n%+v", got, want)
	}

	var members []string
	for _, m := range syms[1].Children {
		members = append(members, m.Detail)
	}
	wantMembers := []string{"var x", "var y", "fn norm()", "static fn at(x, y)", "op add(o)"}
	if !reflect.DeepEqual(members, wantMembers) {
		t.Errorf("Point members = %v, want %v", members, wantMembers)
	}

	if syms[1].Span.Start.Line != 5 {
		t.Errorf("Point starts on line %d, want 5", syms[1].Span.Start.Line)
	}
}

func TestFindSymbol(t *testing.T) {
	stmts, _ := CheckSource(symbolsSource)
	syms := Symbols(stmts)

	if s, ok := FindSymbol(syms, "norm"); !ok || s.Kind != SymbolMethod {
		t.Errorf("FindSymbol(norm) = %+v, %v", s, ok)
	}
	if s, ok := FindSymbol(syms, "at"); !ok || s.Kind != SymbolStatic {
		t.Errorf("FindSymbol(at) = %+v, %v", s, ok)
	}
	if _, ok := FindSymbol(syms, "missing"); ok {
		t.Error("FindSymbol(missing) succeeded")
	}
}

func TestImportsAndExports(t *testing.T) {
	stmts, _ := CheckSource(symbolsSource)

	imports := Imports(stmts)
	if len(imports) != 1 || imports[0].Path != "geometry.points" {
		t.Errorf("Imports = %v", imports)
	}
	if got := lastSegment(imports[0].Path); got != "points" {
		t.Errorf("lastSegment = %q, want %q", got, "points")
	}
	if got := ExportedNames(stmts); !reflect.DeepEqual(got, []string{"Point", "dist"}) {
		t.Errorf("ExportedNames = %v", got)
	}
}
