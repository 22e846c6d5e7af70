package vm

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// lineEval is a minimal EvalFunc: each line is "count", "require NAME",
// "load NAME" or "fail". Evaluated files are recorded in order.
type lineEval struct {
	files []string
}

func (e *lineEval) eval(vm *VM, source string, b *Binding) (Value, error) {
	e.files = append(e.files, b.File)
	for _, line := range strings.Split(source, "\n") {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "count":
			n, _ := vm.LookupGlobal("$count")
			if n.IsNil() {
				n = FromSmallInt(0)
			}
			vm.SetGlobal("$count", FromSmallInt(n.SmallInt()+1))
		case "require":
			if _, err := vm.Loader.Require(arg); err != nil {
				return Nil, err
			}
		case "load":
			if _, err := vm.Loader.Load(arg); err != nil {
				return Nil, err
			}
		case "fail":
			return Nil, Errorf(StandardError, "boom")
		}
	}
	return Nil, nil
}

func newLoaderVM(t *testing.T, dirs ...string) (*VM, *lineEval) {
	t.Helper()
	vm := NewVM()
	e := &lineEval{}
	vm.SetEvalFunc(e.eval)
	vm.Loader.SetSearchPath(dirs)
	return vm, e
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func count(vm *VM) int64 {
	n, _ := vm.LookupGlobal("$count")
	if n.IsNil() {
		return 0
	}
	return n.SmallInt()
}

func TestRequireEvaluatesOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.rb"), "count\n")
	vm, _ := newLoaderVM(t, dir)

	first, err := vm.Loader.Require("x")
	if err != nil || !first {
		t.Fatalf("first require = %v, %v", first, err)
	}
	second, err := vm.Loader.Require("x")
	if err != nil || second {
		t.Fatalf("second require = %v, %v", second, err)
	}
	if got := count(vm); got != 1 {
		t.Errorf("file evaluated %d times, want 1", got)
	}

	// The explicit extension resolves to the same canonical path.
	if again, _ := vm.Loader.Require("x.rb"); again {
		t.Error("require with the extension should see the file as loaded")
	}
}

func TestLoadAlwaysEvaluates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.rb"), "count\n")
	vm, _ := newLoaderVM(t, dir)

	for i := 0; i < 2; i++ {
		ok, err := vm.Loader.Load("x")
		if err != nil || !ok {
			t.Fatalf("load #%d = %v, %v", i+1, ok, err)
		}
	}
	if got := count(vm); got != 2 {
		t.Errorf("file evaluated %d times, want 2", got)
	}
	if len(vm.Loader.Loaded()) != 0 {
		t.Error("load should not record the file")
	}
}

func TestRequireSearchOrder(t *testing.T) {
	root := t.TempDir()
	libA := filepath.Join(root, "libA")
	libB := filepath.Join(root, "libB")
	if err := os.MkdirAll(libA, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(libB, "util.rb"), "count\n")
	vm, e := newLoaderVM(t, libA, libB)

	if _, err := vm.Loader.Require("util"); err != nil {
		t.Fatal(err)
	}
	want := libB + "/util.rb"
	if len(e.files) != 1 || e.files[0] != want {
		t.Errorf("evaluated %v, want [%s]", e.files, want)
	}

	// A file in an earlier directory shadows later ones.
	writeFile(t, filepath.Join(libA, "both.rb"), "")
	writeFile(t, filepath.Join(libB, "both.rb"), "")
	got, err := vm.Loader.Resolve("both")
	if err != nil || got != libA+"/both.rb" {
		t.Errorf("Resolve(both) = %q, %v", got, err)
	}
}

func TestRequireDirectPathFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "direct.rb")
	writeFile(t, path, "count\n")
	vm, _ := newLoaderVM(t)

	if _, err := vm.Loader.Require(path); err != nil {
		t.Fatalf("direct path: %v", err)
	}
	if _, err := vm.Loader.Require(strings.TrimSuffix(path, ".rb")); err != nil {
		t.Fatalf("direct path without extension: %v", err)
	}
	if got := count(vm); got != 1 {
		t.Errorf("evaluated %d times, want 1", got)
	}
}

func TestRequireMissingFile(t *testing.T) {
	vm, e := newLoaderVM(t, t.TempDir())
	_, err := vm.Loader.Require("nowhere")

	var nf *FileNotFoundError
	if !errors.As(err, &nf) || nf.Path != "nowhere" {
		t.Fatalf("expected FileNotFoundError, got %v", err)
	}
	if len(e.files) != 0 {
		t.Error("nothing should be evaluated")
	}
	if _, err := vm.Loader.Load("nowhere"); !errors.As(err, &nf) {
		t.Errorf("load: expected FileNotFoundError, got %v", err)
	}
}

func TestRequireNested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.rb"), "require b\ncount\n")
	writeFile(t, filepath.Join(dir, "b.rb"), "require c\ncount\n")
	writeFile(t, filepath.Join(dir, "c.rb"), "require a\ncount\n")
	vm, e := newLoaderVM(t, dir)

	if _, err := vm.Loader.Require("a"); err != nil {
		t.Fatal(err)
	}
	if got := count(vm); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
	if len(e.files) != 3 {
		t.Errorf("evaluated %v", e.files)
	}
	if len(vm.Loader.Loaded()) != 3 {
		t.Errorf("loaded = %v", vm.Loader.Loaded())
	}
}

func TestRequireFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.rb"), "count\nfail\n")
	vm, _ := newLoaderVM(t, dir)

	if _, err := vm.Loader.Require("bad"); !IsKind(err, StandardError) {
		t.Fatalf("expected the evaluation error, got %v", err)
	}
	if len(vm.Loader.Loaded()) != 0 {
		t.Errorf("failed require should not stay recorded: %v", vm.Loader.Loaded())
	}
	abs, _ := filepath.Abs(filepath.Join(dir, "bad.rb"))
	if vm.Loader.IsLoaded(abs) {
		t.Error("IsLoaded should be false after a failed require")
	}

	writeFile(t, filepath.Join(dir, "bad.rb"), "count\n")
	if ok, err := vm.Loader.Require("bad"); err != nil || !ok {
		t.Errorf("retry after fixing the file = %v, %v", ok, err)
	}
}

func TestLoadPathGlobalIsLive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "late.rb"), "count\n")
	vm, _ := newLoaderVM(t)

	lp, ok := vm.LookupGlobal("$:")
	if !ok || !lp.IsArray() {
		t.Fatal("$: should be an array")
	}
	lp.AsArray().Push(NewString(dir))

	if _, err := vm.Loader.Require("late"); err != nil {
		t.Fatalf("require after editing $: = %v", err)
	}
	if err := vm.SetGlobal("$LOAD_PATH", Nil); !IsKind(err, NameError) {
		t.Errorf("assigning $LOAD_PATH should fail, got %v", err)
	}
	features, _ := vm.LookupGlobal(`$"`)
	if features.AsArray().Len() != 1 {
		t.Errorf(`$" = %d entries, want 1`, features.AsArray().Len())
	}
}

func TestPrependPath(t *testing.T) {
	vm, _ := newLoaderVM(t, "b")
	vm.Loader.PrependPath("a")
	vm.Loader.AppendPath("c")
	got := strings.Join(vm.Loader.SearchPath(), ",")
	if got != "a,b,c" {
		t.Errorf("SearchPath = %s", got)
	}
}

func TestEvalWithoutEvaluator(t *testing.T) {
	vm := NewVM()
	if vm.HasEvaluator() {
		t.Fatal("a fresh VM has no evaluator")
	}
	if _, err := vm.EvalString("1", "(eval)"); err == nil {
		t.Error("EvalString without an evaluator should fail")
	}
}

func TestDefaultSearchPath(t *testing.T) {
	vm := NewVM()
	got := vm.Loader.SearchPath()
	if len(got) != len(DefaultSearchPath) || got[0] != "./lib/rubric" || got[1] != "." {
		t.Errorf("SearchPath = %v", got)
	}
}
