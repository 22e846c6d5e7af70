package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/rubric/vm"
	"github.com/chazu/rubric/vm/snapshot"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, src := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	}
}

func TestEvalCommand(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RUBRIC_PATH", "")
	t.Setenv("RUBRIC_LOG", "")

	out, err := execute(t, "eval", "[1, 2].map { |x| x * 3 }")
	require.NoError(t, err)
	assert.Equal(t, "[3, 6]\n", out)

	out, err = execute(t, "eval", "-q", "puts 1 + 1")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestEvalWithoutPrelude(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RUBRIC_PATH", "")
	t.Setenv("RUBRIC_LOG", "")

	_, err := execute(t, "--no-prelude", "eval", "3.times { }")
	var nf *vm.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "times", nf.Name)
}

func TestRunWithIncludePath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("RUBRIC_PATH", "")
	t.Setenv("RUBRIC_LOG", "")
	writeFiles(t, dir, map[string]string{
		"vendor/greet.rb": "def greet(name)\n  \"hello, #{name}\"\nend\n",
		"main.rb":         "require \"greet\"\nputs greet(\"world\")\n",
	})

	out, err := execute(t, "-I", "vendor", "run", "main.rb")
	require.NoError(t, err)
	assert.Equal(t, "hello, world\n", out)

	_, err = execute(t, "run", "main.rb")
	var fnf *vm.FileNotFoundError
	assert.ErrorAs(t, err, &fnf)
}

func TestRunManifestEntry(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("RUBRIC_PATH", "")
	t.Setenv("RUBRIC_LOG", "")
	writeFiles(t, dir, map[string]string{
		"rubric.toml": "[project]\nname = \"shapes\"\n\n[load]\npaths = [\"src\"]\n\n[run]\nentry = \"bin/main.rb\"\n",
		"src/square.rb": `class Square
  include Comparable
  attr_reader :side

  def initialize(side)
    @side = side
  end

  def <=>(other)
    side <=> other.side
  end
end
`,
		"bin/main.rb": "require \"square\"\np Square.new(2) < Square.new(3)\n",
	})

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = execute(t, "ancestors", "-r", "square", "Square")
	require.NoError(t, err)
	assert.Equal(t, "Square\nComparable\nObject\nKernel\n", out)

	_, err = execute(t, "ancestors", "Nope")
	assert.True(t, vm.IsKind(err, vm.NameError))
}

func TestRunWithoutEntry(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RUBRIC_PATH", "")
	t.Setenv("RUBRIC_LOG", "")

	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "no file given")
}

func TestDumpCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("RUBRIC_PATH", "")
	t.Setenv("RUBRIC_LOG", "")
	writeFiles(t, dir, map[string]string{
		"lib/point.rb": "class Point\n  def x\n    0\n  end\nend\n",
	})

	out, err := execute(t, "-I", "lib", "dump", "-r", "point", "-o", "out.image")
	require.NoError(t, err)
	assert.Contains(t, out, "out.image:")

	data, err := os.ReadFile(filepath.Join(dir, "out.image"))
	require.NoError(t, err)
	img, err := snapshot.Unmarshal(data)
	require.NoError(t, err)

	point, ok := img.Lookup("Point")
	require.True(t, ok)
	require.Len(t, point.Methods, 1)
	assert.Equal(t, "x", point.Methods[0].Name)
	assert.Len(t, img.Loaded, 1)
}

func TestShapesExample(t *testing.T) {
	chdir(t, filepath.Join("..", "..", "examples", "shapes"))
	t.Setenv("RUBRIC_PATH", "")
	t.Setenv("RUBRIC_LOG", "")

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Equal(t, `square(1)
square(9)
rect(10)
rect(10)
[Shapes::Square, Shapes::Shape, Comparable, Object, Kernel]
20
true
`, out)
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (stands in for testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(old)) })
}
