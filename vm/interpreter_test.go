package vm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// run executes src as module "main" with the host natives registered and
// returns what print wrote together with the module result.
func run(t *testing.T, src string, opts ...Option) (string, Value, error) {
	t.Helper()
	m, err := ParseModule("main", "main.tess", src)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	in := NewInterpreter(opts...)
	var out bytes.Buffer
	RegisterHostFuncs(in, &out)
	v, err := in.Run(context.Background(), m)
	return out.String(), v, err
}

func mustRun(t *testing.T, src string, opts ...Option) (string, Value) {
	t.Helper()
	out, v, err := run(t, src, opts...)
	if err != nil {
		t.Fatalf("Run(%q): %v", src, err)
	}
	return out, v
}

func wantKind(t *testing.T, err error, kind ErrorKind) *EvalError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var ee *EvalError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EvalError, got %T: %v", err, err)
	}
	if ee.Kind != kind {
		t.Fatalf("error kind = %s, want %s (%v)", ee.Kind, kind, err)
	}
	return ee
}

func TestResults(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"precedence", "return 1 + 2 * 3", "7"},
		{"grouping", "return (1 + 2) * 3", "9"},
		{"left associative", "return 10 - 4 - 6", "0"},
		{"division", "return 7 / 2", "3.5"},
		{"comparison", "return 1 + 1 == 2", "true"},
		{"string concat", `return "n=" + 1.5`, `"n=1.5"`},
		{"number then string", `return 1 + "a"`, `"1a"`},
		{"string compare", `return "abc" < "abd"`, "true"},
		{"no return", "var x = 1", "null"},
		{"bare return", "return", "null"},
		{"array literal", "return [1, \"a\", true, null]", `[1, "a", true, null]`},
		{"object literal", "return #{b: 2, a: 1}", "#{a: 1, b: 2}"},
		{"equality by identity", "var a = [1]\nvar b = [1]\nreturn [a == a, a == b]", "[true, false]"},
		{"truthiness zero", "if 0 { return 1 }\nreturn 2", "2"},
		{"truthiness empty string", `if "" { return 1 } else { return 2 }`, "2"},
		{"truthiness array", "if [] { return 1 }\nreturn 2", "1"},
		{"else if", "var x = 5\nif x < 3 { return \"low\" } else if x < 10 { return \"mid\" } else { return \"high\" }", `"mid"`},
		{
			"closure counter",
			`fn makeCounter() {
  var n = 0
  return () => { n = n + 1; return n }
}
var c = makeCounter()
c()
c()
return c()`,
			"3",
		},
		{
			"closures are independent",
			`fn makeCounter() {
  var n = 0
  return () => { n = n + 1; return n }
}
var a = makeCounter()
var b = makeCounter()
a()
a()
return [a(), b()]`,
			"[3, 1]",
		},
		{"if block scope", "var x = 1\nif true { var x = 2 }\nreturn x", "1"},
		{"if assigns outer", "var x = 1\nif true { x = 2 }\nreturn x", "2"},
		{"missing args are null", "fn f(a, b) { return b }\nreturn f(1)", "null"},
		{"return from nested if", "fn f(x) {\n  if x { return \"yes\" }\n  return \"no\"\n}\nreturn [f(1), f(0)]", `["yes", "no"]`},
		{"recursion", "fn fact(n) {\n  if n <= 1 { return 1 }\n  return n * fact(n - 1)\n}\nreturn fact(10)", "3628800"},
		{"assignment expression", "var a = 0\nvar b = (a = 5)\nreturn [a, b]", "[5, 5]"},
		{"object field assign", "var o = #{a: 1}\no.b = 2\nreturn o", "#{a: 1, b: 2}"},
		{"higher order", "fn apply(f, x) { return f(x) }\nreturn apply((v) => { return v * 3 }, 4)", "12"},
		{"call chain", "fn adder(a) { return (b) => { return a + b } }\nreturn adder(2)(3)", "5"},
		{"function value", "fn f() {}\nreturn f", "<fn f>"},
		{"empty function", "fn f() {}\nreturn f()", "null"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, v := mustRun(t, tc.src)
			if got := Inspect(v); got != tc.want {
				t.Errorf("result = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClasses(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"defaults and fields",
			"class P {\n  var x = 1\n  var y\n}\nreturn P{y: 2}",
			"P{x: 1, y: 2}",
		},
		{
			"method uses this",
			"class User {\n  var name = \"anon\"\n  fn greet() { return \"hi \" + this.name }\n}\nvar u = User{name: \"bob\"}\nreturn u.greet()",
			`"hi bob"`,
		},
		{
			"method mutates this",
			"class C {\n  var n = 0\n  fn inc() { this.n = this.n + 1; return this.n }\n}\nvar c = C{}\nc.inc()\nc.inc()\nreturn c.n",
			"2",
		},
		{
			"static function",
			"class User {\n  var name\n  static fn create(n) { return User{name: n} }\n}\nreturn User::create(\"amy\").name",
			`"amy"`,
		},
		{
			"add overload",
			`class Vec {
  var x = 0
  var y = 0
  op add(o) { return Vec{x: this.x + o.x, y: this.y + o.y} }
}
var v = Vec{x: 1, y: 2} + Vec{x: 3, y: 4}
return v.x * 10 + v.y`,
			"46",
		},
		{
			"empty instances add",
			"class A {\n  op add(o) { return \"added\" }\n}\nreturn A{} + A{}",
			`"added"`,
		},
		{
			"ne falls back to eq",
			"class P {\n  var v\n  op eq(o) { return this.v == o.v }\n}\nreturn [P{v: 1} == P{v: 1}, P{v: 1} != P{v: 1}, P{v: 1} != P{v: 2}]",
			"[true, false, true]",
		},
		{
			"dot overload for missing members",
			"class Dyn {\n  var real = 1\n  op dot(name) { return \"dyn:\" + name }\n}\nvar d = Dyn{}\nreturn [d.real, d.other]",
			`[1, "dyn:other"]`,
		},
		{
			"module operator fallback",
			"class P { var v = 1 }\nop add(a, b) { return a.v + b.v }\nreturn P{v: 2} + P{v: 3}",
			"5",
		},
		{
			"class overload beats module operator",
			"class P {\n  var v = 1\n  op add(o) { return \"class\" }\n}\nop add(a, b) { return \"module\" }\nreturn P{} + P{}",
			`"class"`,
		},
		{
			"defaults see defining scope",
			"var base = 10\nclass P { var x = base + 1 }\nfn f() {\n  var base = 99\n  return P{}\n}\nreturn f().x",
			"11",
		},
		{
			"methods are bound values",
			"class C {\n  var n = 7\n  fn get() { return this.n }\n}\nvar g = C{}.get\nreturn g()",
			"7",
		},
		{"typeof instance", "class P {}\nreturn typeof(P{})", `"P"`},
		{"class value", "class P {}\nreturn P", "<class P>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, v := mustRun(t, tc.src)
			if got := Inspect(v); got != tc.want {
				t.Errorf("result = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"undefined variable", "return y", ErrUnbound},
		{"assign undefined", "x = 1", ErrUnbound},
		{"assign undefined in expression", "var a = (b = 1)", ErrUnbound},
		{"unknown field", "class P { var x }\nvar p = P{}\np.y = 1", ErrUnbound},
		{"missing member", "var o = #{}\nreturn o.nope", ErrUnbound},
		{"export undefined", "export nope", ErrUnbound},
		{"call number", "var f = 1\nf()", ErrNotCallable},
		{"call null", "var f\nf()", ErrNotCallable},
		{"too many args", "fn f(a) {}\nf(1, 2)", ErrArity},
		{"divide by zero", "return 1 / 0", ErrDivideByZero},
		{"add bool", "return 1 + true", ErrTypeMismatch},
		{"compare mixed", `return 1 < "a"`, ErrTypeMismatch},
		{"subtract strings", `return "a" - "b"`, ErrTypeMismatch},
		{"member of number", "var n = 1\nreturn n.x", ErrTypeMismatch},
		{"class redefinition", "class A {}\nclass A {}", ErrRedefinition},
		{"duplicate member", "class A {\n  var x\n  var x\n}", ErrRedefinition},
		{"native failure", `return num("abc")`, ErrNative},
		{"native arity", "return str()", ErrNative},
		{"array set out of range", "var a = []\na.set(0, 1)", ErrNative},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, tc.src)
			wantKind(t, err, tc.kind)
		})
	}
}

func TestErrorPosition(t *testing.T) {
	_, _, err := run(t, "var x = 1\nreturn x + y")
	ee := wantKind(t, err, ErrUnbound)
	if ee.Module != "main" {
		t.Errorf("Module = %q, want main", ee.Module)
	}
	if ee.Pos.Line != 2 || ee.Pos.Column != 12 {
		t.Errorf("Pos = %s, want 2:12", ee.Pos)
	}
	if !strings.HasPrefix(err.Error(), "main:2:12: unbound name:") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorAbortsRun(t *testing.T) {
	out, _, err := run(t, "print(\"before\")\nvar x = 1 / 0\nprint(\"after\")")
	wantKind(t, err, ErrDivideByZero)
	if out != "before\n" {
		t.Errorf("output = %q, want only the first line", out)
	}
}

func TestStepLimit(t *testing.T) {
	_, _, err := run(t, "fn f() { return f() }\nf()", WithStepLimit(100))
	wantKind(t, err, ErrStepLimit)

	// A limit that is large enough does not trigger.
	_, v := mustRun(t, "fn f(n) {\n  if n == 0 { return 0 }\n  return f(n - 1)\n}\nreturn f(10)", WithStepLimit(1000))
	if !Equal(v, Number(0)) {
		t.Errorf("result = %s, want 0", Inspect(v))
	}
}

func TestStackOverflow(t *testing.T) {
	_, _, err := run(t, "fn f() { return f() }\nf()", WithMaxDepth(50))
	wantKind(t, err, ErrStackOverflow)
}

func TestContextCanceled(t *testing.T) {
	m, err := ParseModule("main", "", "fn f() { return f() }\nf()")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewInterpreter().Run(ctx, m)
	wantKind(t, err, ErrCanceled)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("errors.Is(err, context.Canceled) = false for %v", err)
	}
}

func TestRunTwice(t *testing.T) {
	m, err := ParseModule("main", "", "return 1")
	if err != nil {
		t.Fatal(err)
	}
	in := NewInterpreter()
	if _, err := in.Run(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	_, err = in.Run(context.Background(), m)
	var le *LinkError
	if !errors.As(err, &le) {
		t.Fatalf("second Run: got %v, want *LinkError", err)
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"var xs = [1, 2, 3]\nxs.push(4)\nreturn xs", "[1, 2, 3, 4]"},
		{"var xs = [1, 2]\nreturn xs.push(3, 4)", "4"},
		{"var xs = [1, 2]\nreturn [xs.pop(), xs]", "[2, [1]]"},
		{"return [].pop()", "null"},
		{"return [1, 2, 3].len()", "3"},
		{"return [[1, 2].get(1), [1].get(5)]", "[2, null]"},
		{"var xs = [1, 2]\nxs.set(0, 9)\nreturn xs", "[9, 2]"},
		{"return [1, 2, 3].map((x) => { return x * x }).join(\",\")", `"1,4,9"`},
		{"return [1, 2, 3, 4].filter((x) => { return x > 2 })", "[3, 4]"},
		{"var sum = 0\n[1, 2, 3].each((x) => { sum = sum + x })\nreturn sum", "6"},
		{"var xs = [1]\nxs.each((x) => { xs.push(x) })\nreturn xs", "[1, 1]"},
		{`return [1, "a"].join()`, `"1a"`},
		{`return [1, "a"].contains("a")`, "true"},
		{`return "héllo".len()`, "5"},
		{`return "Hello".upper() + "Hello".lower()`, `"HELLOhello"`},
		{`return "a,b,c".split(",")`, `["a", "b", "c"]`},
		{`return "  x  ".trim()`, `"x"`},
		{`return "tessera".contains("ss")`, "true"},
		{"var o = #{b: 1, a: 2}\nreturn o.keys()", `["a", "b"]`},
		{`var o = #{a: 1}` + "\n" + `return [o.has("a"), o.has("b"), o.get("b"), o.len()]`, "[true, false, null, 1]"},
		{`var o = #{a: 1}` + "\n" + `o.set("b", 2)` + "\n" + `o.remove("a")` + "\nreturn o", "#{b: 2}"},
		{"var o = #{len: 5}\nreturn o.len", "5"},
		{"var push = [1].push\npush(2)\nreturn typeof(push)", `"function"`},
		{`return [str(1.5), str([1, "a"]), typeof(1), typeof("s"), typeof(null), typeof(#{}), typeof(print)]`,
			`["1.5", "[1, \"a\"]", "number", "string", "null", "object", "function"]`},
		{`return num(" 42 ") + num(1)`, "43"},
	}

	for _, tc := range tests {
		_, v := mustRun(t, tc.src)
		if got := Inspect(v); got != tc.want {
			t.Errorf("%q\n  = %s, want %s", tc.src, got, tc.want)
		}
	}
}

func TestPrint(t *testing.T) {
	out, _ := mustRun(t, "print(\"a\", 1, [1, \"b\"], #{k: null})\nprint()")
	want := "a 1 [1, \"b\"] #{k: null}\n\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestImports(t *testing.T) {
	var ticks int
	resolver := MapResolver{
		"util.math": "fn double(x) { return x * 2 }\nexport double",
		"counted":   "tick()\nvar v = 1\nexport v",
		"mid":       "import counted\nexport v",
		"late":      "var x = 1\nexport x\nx = 2",
		"private":   "var hidden = 1\nvar shown = 2\nexport shown",
	}
	newInterp := func() *Interpreter {
		in := NewInterpreter(WithResolver(resolver))
		in.DefineFunc("tick", func(*Interpreter, Value, []Value) (Value, error) {
			ticks++
			return Null, nil
		})
		return in
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"exports and namespace", "import util.math\nreturn double(4) + math.double(1)", "10"},
		{"run once", "import counted\nimport counted\nimport mid\nreturn v", "1"},
		{"final export value", "import late\nreturn x", "2"},
		{"only exports", "import private\nreturn [shown, private.shown]", "[2, 2]"},
		{"string form", "import(\"util.math\")\nreturn double(2)", "4"},
		{"nested import", "fn f() {\n  import util.math\n  return double(5)\n}\nreturn f()", "10"},
		{"import hoisted", "var r = double(3)\nimport util.math\nreturn r", "6"},
		{"namespace does not shadow", "var math = 1\nimport util.math\nreturn math", "1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ticks = 0
			m, err := ParseModule("main", "", tc.src)
			if err != nil {
				t.Fatal(err)
			}
			v, err := newInterp().Run(context.Background(), m)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := Inspect(v); got != tc.want {
				t.Errorf("result = %s, want %s", got, tc.want)
			}
		})
	}

	t.Run("side effects once", func(t *testing.T) {
		ticks = 0
		m, _ := ParseModule("main", "", "import counted\nimport mid\nimport counted")
		if _, err := newInterp().Run(context.Background(), m); err != nil {
			t.Fatal(err)
		}
		if ticks != 1 {
			t.Errorf("counted ran %d times, want 1", ticks)
		}
	})
}

func TestImportPrivateName(t *testing.T) {
	in := NewInterpreter(WithResolver(MapResolver{"p": "var hidden = 1"}))
	m, _ := ParseModule("main", "", "import p\nreturn hidden")
	_, err := in.Run(context.Background(), m)
	wantKind(t, err, ErrUnbound)
}

func TestLinkErrors(t *testing.T) {
	tests := []struct {
		name    string
		modules MapResolver
		src     string
		wantMsg string
	}{
		{"unresolved", MapResolver{}, "import nope", `cannot resolve import "nope"`},
		{"cycle", MapResolver{"b": "import a\nvar y = 1\nexport y"}, "import b\nvar x = 1\nexport x", "import cycle: a -> b -> a"},
		{"self import", MapResolver{}, "import a", "import cycle: a -> a"},
		{"parse error in dependency", MapResolver{"bad": "var = 1"}, "import bad", `cannot resolve import "bad"`},
		{"failing dependency", MapResolver{"boom": "return 1 / 0"}, "import boom", `import "boom" failed`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := NewInterpreter(WithResolver(tc.modules))
			ran := false
			in.DefineFunc("mark", func(*Interpreter, Value, []Value) (Value, error) {
				ran = true
				return Null, nil
			})
			m, err := ParseModule("a", "", "mark()\n"+tc.src)
			if err != nil {
				t.Fatal(err)
			}
			_, err = in.Run(context.Background(), m)
			var le *LinkError
			if !errors.As(err, &le) {
				t.Fatalf("got %v, want *LinkError", err)
			}
			if !strings.Contains(le.Msg, tc.wantMsg) {
				t.Errorf("Msg = %q, want it to contain %q", le.Msg, tc.wantMsg)
			}
			if ran {
				t.Error("statements ran before linking finished")
			}
		})
	}
}

func TestFailedModuleStaysFailed(t *testing.T) {
	in := NewInterpreter(WithResolver(MapResolver{"boom": "return 1 / 0"}))
	for i := 0; i < 2; i++ {
		m, _ := ParseModule("main"+strings.Repeat("x", i), "", "import boom")
		_, err := in.Run(context.Background(), m)
		var le *LinkError
		if !errors.As(err, &le) {
			t.Fatalf("run %d: got %v, want *LinkError", i, err)
		}
		var ee *EvalError
		if !errors.As(err, &ee) || ee.Kind != ErrDivideByZero {
			t.Errorf("run %d: cause = %v, want division by zero", i, err)
		}
	}
}

func TestAddModule(t *testing.T) {
	in := NewInterpreter()
	lib, err := ParseModule("lib", "", "fn id(x) { return x }\nexport id")
	if err != nil {
		t.Fatal(err)
	}
	if err := in.AddModule(lib); err != nil {
		t.Fatal(err)
	}
	m, _ := ParseModule("main", "", "import lib\nreturn id(3)")
	v, err := in.Run(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(v, Number(3)) {
		t.Errorf("result = %s, want 3", Inspect(v))
	}
	if got := strings.Join(in.ModuleNames(), ","); got != "lib,main" {
		t.Errorf("ModuleNames = %s", got)
	}
	if !lib.Done() {
		t.Error("lib.Done() = false after import")
	}
	if got := lib.ExportNames(); len(got) != 1 || got[0] != "id" {
		t.Errorf("ExportNames = %v", got)
	}

	again, _ := ParseModule("lib", "", "")
	if err := in.AddModule(again); err == nil {
		t.Error("replacing a module that already ran should fail")
	}
}

func TestExportIdempotent(t *testing.T) {
	m, _ := ParseModule("main", "", "var a = 1\nexport a\nexport a\nclass K {}\nexport K")
	if _, err := NewInterpreter().Run(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(m.ExportNames(), ","); got != "a,K" {
		t.Errorf("ExportNames = %s, want a,K", got)
	}
	if v, ok := m.Export("K"); !ok || v.Kind() != KindClass {
		t.Errorf("Export(K) = %v, %v", v, ok)
	}
}

func TestREPLEval(t *testing.T) {
	in := NewInterpreter()
	ctx := context.Background()
	steps := []struct {
		src  string
		want string
	}{
		{"var x = 2", "null"},
		{"x * 21", "42"},
		{"class P { var v = 1 }", "null"},
		{"P{v: x}.v", "2"},
		{"fn f() { return x + 1 }\nf()\nx", "2"},
		{"x = 5\nreturn f()\n99", "6"},
	}
	for _, s := range steps {
		v, err := in.Eval(ctx, s.src)
		if err != nil {
			t.Fatalf("Eval(%q): %v", s.src, err)
		}
		if got := Inspect(v); got != s.want {
			t.Errorf("Eval(%q) = %s, want %s", s.src, got, s.want)
		}
	}

	// A failing line leaves earlier definitions intact.
	if _, err := in.Eval(ctx, "nope()"); err == nil {
		t.Error("Eval(nope()) should fail")
	}
	if v, err := in.Eval(ctx, "x"); err != nil || !Equal(v, Number(5)) {
		t.Errorf("Eval(x) = %v, %v after failure", v, err)
	}
	if !in.REPLScope().HasLocal("P") {
		t.Error("REPL scope lost class P")
	}

	if _, err := in.Eval(ctx, "var = 1"); err == nil {
		t.Error("Eval should return parse errors")
	}
}

func TestHostCall(t *testing.T) {
	in := NewInterpreter()
	m, _ := ParseModule("main", "", "fn greet(name) { return \"hello \" + name }\nexport greet")
	if _, err := in.Run(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	fn, ok := m.Export("greet")
	if !ok {
		t.Fatal("greet not exported")
	}
	v, err := in.Call(fn, String("world"))
	if err != nil {
		t.Fatal(err)
	}
	if got := Format(v); got != "hello world" {
		t.Errorf("Call = %q", got)
	}
	if _, err := in.Call(Number(1)); err == nil {
		t.Error("calling a number should fail")
	}
}

func TestNativeCallback(t *testing.T) {
	in := NewInterpreter()
	in.DefineFunc("twice", func(in *Interpreter, _ Value, args []Value) (Value, error) {
		if _, err := in.Call(args[0]); err != nil {
			return nil, err
		}
		return in.Call(args[0])
	})
	m, _ := ParseModule("main", "", "var n = 0\ntwice(() => { n = n + 1 })\nreturn n")
	v, err := in.Run(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(v, Number(2)) {
		t.Errorf("n = %s, want 2", Inspect(v))
	}

	// Script errors raised inside a callback keep their kind.
	m2, _ := ParseModule("main2", "", "twice(() => { return 1 / 0 })")
	_, err = in.Run(context.Background(), m2)
	wantKind(t, err, ErrDivideByZero)
}
