package compiler

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hexops/autogold/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/rubric/vm"
)

func run(t *testing.T, src string) string {
	t.Helper()
	v := NewVM()
	var out bytes.Buffer
	v.Stdout = &out
	_, err := v.EvalString(src, "test.rb")
	require.NoError(t, err)
	return out.String()
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	v := NewVM()
	v.Stdout = &bytes.Buffer{}
	_, err := v.EvalString(src, "test.rb")
	require.Error(t, err)
	return err
}

func TestEvalArithmeticAndStrings(t *testing.T) {
	got := run(t, `
puts 1 + 2 * 3
puts 2 ** 100
puts 7 / 2
puts -7 / 2
puts "a" + "b"
puts "x=#{1 + 1}"
`)
	autogold.Expect("7\n1267650600228229401496703205376\n3\n-4\nab\nx=2\n").Equal(t, got)
}

func TestEvalClassesAndSuper(t *testing.T) {
	got := run(t, `
class Animal
  def initialize(name)
    @name = name
  end

  def speak
    "#{@name} makes a sound"
  end
end

class Dog < Animal
  def speak
    super + " (woof)"
  end
end

puts Dog.new("Rex").speak
`)
	autogold.Expect("Rex makes a sound (woof)\n").Equal(t, got)
}

func TestEvalReopenClass(t *testing.T) {
	got := run(t, `
class Point
  def x
    1
  end
end

class Point
  def y
    2
  end
end

pt = Point.new
puts pt.x + pt.y
`)
	autogold.Expect("3\n").Equal(t, got)
}

func TestEvalSuperclassMismatch(t *testing.T) {
	err := runErr(t, "class A\nend\nclass B\nend\nclass A < B\nend\n")
	assert.True(t, vm.IsKind(err, vm.TypeError))

	var ee *EvalError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 5, ee.Line)
}

func TestEvalMixinOrder(t *testing.T) {
	got := run(t, `
module Greet
  def hello
    "hello from #{name}"
  end
end

module Loud
  def hello
    super.upcase
  end
end

class Person
  include Greet
  include Loud
  attr_reader :name

  def initialize(n)
    @name = n
  end
end

puts Person.new("ann").hello
p Person.ancestors
`)
	autogold.Expect("HELLO FROM ANN\n[Person, Loud, Greet, Object, Kernel]\n").Equal(t, got)
}

func TestEvalBlocksAndYield(t *testing.T) {
	got := run(t, `
def twice
  return :none unless block_given?
  yield 1
  yield 2
end

twice { |x| puts x }
p twice

r = [1, 2, 3, 4].each do |x|
  next if x == 2
  break x * 10 if x == 3
  puts x
end
p r
`)
	autogold.Expect("1\n2\n:none\n1\n30\n").Equal(t, got)
}

func TestEvalProcsAndLambdas(t *testing.T) {
	got := run(t, `
add = lambda { |a, b| a + b }
puts add.call(1, 2)
sq = ->(x) { x * x }
puts sq.(4)
pr = proc { |a, b| "#{a.inspect} #{b.inspect}" }
puts pr.call(1)
puts pr.call([3, 4])

def find_first(list)
  list.each { |x| return x if x > 1 }
  nil
end
p find_first([1, 5, 7])

l = lambda { return 10; 20 }
p l.call
`)
	autogold.Expect("3\n16\n1 nil\n3 4\n5\n10\n").Equal(t, got)
}

func TestEvalLambdaArity(t *testing.T) {
	err := runErr(t, "l = lambda { |a, b| a }\nl.call(1)\n")
	assert.True(t, vm.IsKind(err, vm.ArgumentError))
	assert.Contains(t, err.Error(), "wrong number of arguments (given 1, expected 2)")
}

func TestEvalVisibility(t *testing.T) {
	src := `
class Secret
  def reveal
    hidden
  end

  private

  def hidden
    "s"
  end
end
s = Secret.new
puts s.reveal
`
	autogold.Expect("s\n").Equal(t, run(t, src))

	err := runErr(t, src+"s.hidden\n")
	var ve *vm.VisibilityError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "hidden", ve.Name)

	var ee *EvalError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "test.rb", ee.File)
	assert.Equal(t, 15, ee.Line)
}

func TestEvalExplicitSelfReachesOnlyPrivateSetters(t *testing.T) {
	src := `
class Account
  def initialize
    self.balance = 10
  end

  def total
    balance
  end

  def via_self
    self.balance
  end

  private

  def balance
    @balance
  end

  def balance=(v)
    @balance = v
  end
end
a = Account.new
p a.total
`
	autogold.Expect("10\n").Equal(t, run(t, src))

	err := runErr(t, src+"a.via_self\n")
	var ve *vm.VisibilityError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "balance", ve.Name)
}

func TestEvalUndefinedMethod(t *testing.T) {
	err := runErr(t, "x = 1\nx.frobnicate\n")
	var nf *vm.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "frobnicate", nf.Name)

	var ee *EvalError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.Line)
}

func TestEvalMethodMissing(t *testing.T) {
	got := run(t, `
class Ghost
  def method_missing(name, *args)
    "ghost #{name} #{args.length}"
  end
end
puts Ghost.new.boo(1, 2)
`)
	autogold.Expect("ghost boo 2\n").Equal(t, got)
}

func TestEvalComparable(t *testing.T) {
	got := run(t, `
class Version
  include Comparable
  attr_reader :n

  def initialize(n)
    @n = n
  end

  def <=>(other)
    n <=> other.n
  end
end

a = Version.new(1)
b = Version.new(2)
p a < b, a == Version.new(1), b.between?(a, b), a.clamp(b, b).n
`)
	autogold.Expect("true\ntrue\ntrue\n2\n").Equal(t, got)
}

func TestEvalConstants(t *testing.T) {
	got := run(t, `
module Outer
  LIMIT = 3

  class Inner
    def limit
      LIMIT
    end
  end
end
puts Outer::Inner.new.limit
puts Outer::LIMIT
`)
	autogold.Expect("3\n3\n").Equal(t, got)

	err := runErr(t, "Missing\n")
	assert.True(t, vm.IsKind(err, vm.NameError))
	assert.Contains(t, err.Error(), "uninitialized constant Missing")
}

func TestEvalClassVariablesAndSingletons(t *testing.T) {
	got := run(t, `
class Counter
  @@count = 0

  class << self
    def bump
      @@count += 1
    end
  end

  def self.count
    @@count
  end
end
Counter.bump
Counter.bump
puts Counter.count
`)
	autogold.Expect("2\n").Equal(t, got)
}

func TestEvalLoopsAndCase(t *testing.T) {
	got := run(t, `
i = 0
total = 0
while i < 5
  i += 1
  next if i == 2
  total += i
end
puts total

for x in [1, 2, 3]
  break if x == 3
  puts x
end
puts x

r = case 5
    when 1..3 then "low"
    when 4..6 then "mid"
    else "high"
    end
puts r
`)
	autogold.Expect("13\n1\n2\n3\nmid\n").Equal(t, got)
}

func TestEvalAssignment(t *testing.T) {
	got := run(t, `
a, b = 1, 2
a, b = b, a
p [a, b]
first, *rest = [1, 2, 3]
p first, rest

def sum(*nums)
  t = 0
  nums.each { |n| t += n }
  t
end
p sum(*[1, 2], 3)

h = { a: 1, "b" => 2 }
p h[:a] + h["b"]
h[:a] ||= 5
h[:c] ||= 7
p h[:a], h[:c]
`)
	autogold.Expect("[2, 1]\n1\n[2, 3]\n6\n3\n1\n7\n").Equal(t, got)
}

func TestEvalDefineMethod(t *testing.T) {
	got := run(t, `
class Box
  [:width, :height].each do |dim|
    define_method("#{dim}=") { |v| instance_variable_set("@#{dim}", v) }
    define_method(dim) { instance_variable_get("@#{dim}") }
  end
end
b = Box.new
b.width = 3
b.send(:height=, 4)
p b.width * b.height, b.respond_to?(:width), b.respond_to?(:depth)
`)
	autogold.Expect("12\ntrue\nfalse\n").Equal(t, got)
}

func TestEvalMethodAddedHook(t *testing.T) {
	got := run(t, `
class Tracker
  @added = []

  def self.method_added(name)
    @added << name
  end

  def self.added
    @added
  end

  def a; end
  def b; end
end
p Tracker.added
`)
	autogold.Expect("[:a, :b]\n").Equal(t, got)
}

func TestEvalInheritedHook(t *testing.T) {
	got := run(t, `
$subs = []
class Base
  def self.inherited(sub)
    $subs << sub
  end
end
class Child < Base; end
class Grand < Child; end
class Child; end
p $subs
`)
	autogold.Expect("[Child, Grand]\n").Equal(t, got)
}

func TestEvalRemovedAndUndefinedHooks(t *testing.T) {
	got := run(t, `
class Tracker
  @log = []

  def self.method_removed(name)
    @log << [:removed, name]
  end

  def self.method_undefined(name)
    @log << [:undefined, name]
  end

  def self.log
    @log
  end

  def a; end
  def b; end
  remove_method :a
  undef_method :b
end
p Tracker.log

o = Object.new
def o.singleton_method_removed(name)
  $removed = name
end
def o.singleton_method_undefined(name)
  $undefined = name
end
def o.x; end
def o.y; end
class << o
  remove_method :x
  undef_method :y
end
p $removed, $undefined
`)
	autogold.Expect("[[:removed, :a], [:undefined, :b]]\n:x\n:y\n").Equal(t, got)
}

func TestEvalUndefKeywordFiresHook(t *testing.T) {
	got := run(t, `
class Quiet
  def self.method_undefined(name)
    $gone = name
  end

  def talk; end
  undef talk
end
p $gone
`)
	autogold.Expect(":talk\n").Equal(t, got)
}

func TestEvalArraySpaceship(t *testing.T) {
	got := run(t, `
p([1, 2] <=> [1, 3])
p([1, 2] <=> [1, 2, 0])
p([2] <=> [1, 9])
p([1, 2] <=> [1, 2])
p([1, "a"] <=> [1, 2])
p([1] <=> 5)
p [[2, 1], [1, 5], [1, 2]].sort
`)
	autogold.Expect("-1\n-1\n1\n0\nnil\nnil\n[[1, 2], [1, 5], [2, 1]]\n").Equal(t, got)
}

func TestEvalExtendAndSingletonDef(t *testing.T) {
	got := run(t, `
module Shout
  def shout
    to_s.upcase + "!"
  end
end

o = Object.new
def o.to_s
  "obj"
end
o.extend(Shout)
puts o.shout
`)
	autogold.Expect("OBJ!\n").Equal(t, got)
}

func TestEvalAliasAndUndef(t *testing.T) {
	got := run(t, `
class Str
  def greet
    "hi"
  end
  alias hello greet
  undef greet
end
puts Str.new.hello
p Str.new.respond_to?(:greet)
`)
	autogold.Expect("hi\nfalse\n").Equal(t, got)
}

func TestEvalDefined(t *testing.T) {
	got := run(t, "p defined?(zz), defined?(puts), defined?(String), defined?(@a)\n")
	autogold.Expect("nil\n\"method\"\n\"constant\"\nnil\n").Equal(t, got)
}

func TestEvalLocalJumps(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"def m\n  yield\nend\nm\n", "no block given (yield)"},
		{"break\n", "break from proc-closure"},
		{"next\n", "next used outside of block"},
	}
	for _, tc := range tests {
		err := runErr(t, tc.src)
		assert.True(t, vm.IsKind(err, vm.LocalJumpError), tc.src)
		assert.Contains(t, err.Error(), tc.msg, tc.src)
	}
}

func TestEvalSyntaxErrorSurfaces(t *testing.T) {
	err := runErr(t, "def broken(\n")
	assert.True(t, vm.IsKind(err, vm.SyntaxError))
}

func TestEvalSharedBinding(t *testing.T) {
	v := NewVM()
	b := v.TopBinding("(repl)")

	_, err := Eval(v, "x = 5\ndef double(n)\n  n * 2\nend", b)
	require.NoError(t, err)

	got, err := Eval(v, "double(x)", b)
	require.NoError(t, err)
	assert.Equal(t, vm.FromSmallInt(10), got)
}

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestEvalRequire(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a.rb", `$count = ($count || 0) + 1
$file = __FILE__
require "b"
class A
  def self.hi
    B.hi + "!"
  end
end
`)
	writeFile(t, dir, "b.rb", `require "a"
module B
  def self.hi
    "hi"
  end
end
`)

	v := NewVM()
	var out bytes.Buffer
	v.Stdout = &out
	v.Loader.SetSearchPath([]string{dir})

	_, err := v.EvalString("p require(\"a\")\np require(\"a\")\nputs A.hi\nputs $count\n", "main.rb")
	require.NoError(t, err)
	autogold.Expect("true\nfalse\nhi!\n1\n").Equal(t, out.String())

	file, ok := v.LookupGlobal("$file")
	require.True(t, ok)
	s, err := v.ToS(file)
	require.NoError(t, err)
	assert.Equal(t, aPath, s)
	assert.Len(t, v.Loader.Loaded(), 2)
}

func TestEvalLoadRunsEveryTime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.rb", "$n = ($n || 0) + 1\n")

	v := NewVM()
	v.Stdout = &bytes.Buffer{}
	v.Loader.SetSearchPath([]string{dir})

	_, err := v.EvalString("load \"c\"\nload \"c\"\nrequire \"c\"\nrequire \"c\"\n", "main.rb")
	require.NoError(t, err)

	n, ok := v.LookupGlobal("$n")
	require.True(t, ok)
	assert.Equal(t, vm.FromSmallInt(3), n)
}

func TestEvalFailedRequireIsForgotten(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.rb", "def (\n")

	v := NewVM()
	v.Stdout = &bytes.Buffer{}
	v.Loader.SetSearchPath([]string{dir})

	_, err := v.EvalString("require \"bad\"\n", "main.rb")
	require.Error(t, err)
	assert.True(t, vm.IsKind(err, vm.SyntaxError))
	assert.Empty(t, v.Loader.Loaded())

	_, err = v.EvalString("require \"missing\"\n", "main.rb")
	var fnf *vm.FileNotFoundError
	require.True(t, errors.As(err, &fnf))
}
