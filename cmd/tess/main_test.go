package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/tessera/compiler"
	"github.com/chazu/tessera/vm"
	"github.com/chazu/tessera/vm/wire"
)

func bg() context.Context { return context.Background() }

func TestIncomplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"fn f() {", true},
		{"fn f() {\n  return 1", true},
		{"class A {\n  var x = 1\n", true},
		{"var s = \"open", true},
		{"var = 1", false},
		{"1 +", true},
		{"var a = )", false},
	}
	for _, tc := range tests {
		_, err := compiler.Parse(tc.src)
		if err == nil {
			t.Errorf("%q parsed without error", tc.src)
			continue
		}
		if got := incomplete(tc.src, err); got != tc.want {
			t.Errorf("incomplete(%q) = %v, want %v (%v)", tc.src, got, tc.want, err)
		}
	}
}

func TestModuleNameFor(t *testing.T) {
	tests := map[string]string{
		"hello.tess":            "hello",
		"/tmp/x/my-script.tess": "my_script",
		"src/Main.tess":         "main",
	}
	for path, want := range tests {
		if got := moduleNameFor(path); got != want {
			t.Errorf("moduleNameFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestCompleteLine(t *testing.T) {
	in := vm.NewInterpreter()
	vm.RegisterHostFuncs(in, &bytes.Buffer{})
	if _, err := in.Eval(bg(), "var total = 1"); err != nil {
		t.Fatal(err)
	}

	got := completeLine(in, "print(to")
	if len(got) != 1 || got[0] != "print(total" {
		t.Errorf("completeLine = %v, want [print(total]", got)
	}
	if got := completeLine(in, "x + "); got != nil {
		t.Errorf("completeLine after a space = %v, want nil", got)
	}
}

func writeProjectFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProjectRunsEntry(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, filepath.Join(dir, "tessera.toml"), `
[project]
name = "demo"

[source]
entry = "app"

[runtime]
step-limit = 10000
timeout = "5s"
`)
	writeProjectFile(t, filepath.Join(dir, "src", "app.tess"), "import lib.nums\nvar total = double(21)\nexport total\n")
	writeProjectFile(t, filepath.Join(dir, "src", "lib", "nums.tess"), "fn double(n) { return n * 2 }\nexport double\n")

	t.Chdir(dir)

	proj, err := openProject("")
	if err != nil {
		t.Fatalf("openProject: %v", err)
	}
	if proj.manifest == nil || proj.manifest.Project.Name != "demo" {
		t.Fatalf("manifest = %+v", proj.manifest)
	}

	m, err := proj.mainModule("")
	if err != nil || m == nil {
		t.Fatalf("mainModule = %v, %v", m, err)
	}
	in := proj.newInterpreter()
	ctx, cancel := proj.context()
	defer cancel()
	if _, err := in.Run(ctx, m); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := filepath.Join(dir, "snap.cbor")
	if err := writeSnapshot(m, out); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := wire.UnmarshalSnapshot(data, nil)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if v := snap.Exports["total"]; !vm.Equal(v, vm.Number(42)) {
		t.Errorf("snapshot total = %s, want 42", vm.Inspect(v))
	}
}

func TestExitCode(t *testing.T) {
	in := vm.NewInterpreter(vm.WithStepLimit(10))
	_, err := in.Eval(bg(), "fn f(n) { return f(n) }\nf(1)")
	if err == nil {
		t.Fatal("expected the step limit to stop the run")
	}
	if got := exitCode(err); got != 1 {
		t.Errorf("exitCode(step limit) = %d, want 1", got)
	}
}
