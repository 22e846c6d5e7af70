package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/rubric/vm"
)

func parse(t *testing.T, src string) []Node {
	t.Helper()
	prog, err := Parse(src, "test.rb")
	require.NoError(t, err)
	return prog.Body.Stmts
}

func parseOne(t *testing.T, src string) Node {
	t.Helper()
	stmts := parse(t, src)
	require.Len(t, stmts, 1)
	return stmts[0]
}

func TestParserAssignmentDeclaresLocal(t *testing.T) {
	stmts := parse(t, "x = 1\nx + 2\ny")
	require.Len(t, stmts, 3)

	assign, ok := stmts[0].(*Assign)
	require.True(t, ok)
	assert.IsType(t, &LocalVar{}, assign.Target)

	sum, ok := stmts[1].(*Call)
	require.True(t, ok)
	assert.Equal(t, "+", sum.Name)
	assert.IsType(t, &LocalVar{}, sum.Recv)

	// y was never assigned, so it is a call on self.
	call, ok := stmts[2].(*Call)
	require.True(t, ok)
	assert.Nil(t, call.Recv)
	assert.Equal(t, "y", call.Name)
}

func TestParserPrecedence(t *testing.T) {
	n := parseOne(t, "1 + 2 * 3 == 7 && !false")
	and, ok := n.(*And)
	require.True(t, ok)

	eq, ok := and.Left.(*Call)
	require.True(t, ok)
	assert.Equal(t, "==", eq.Name)

	plus, ok := eq.Recv.(*Call)
	require.True(t, ok)
	assert.Equal(t, "+", plus.Name)

	times, ok := plus.Args[0].(*Call)
	require.True(t, ok)
	assert.Equal(t, "*", times.Name)

	assert.IsType(t, &Not{}, and.Right)
}

func TestParserCommandCalls(t *testing.T) {
	call, ok := parseOne(t, "foo 1, :a, key: 2").(*Call)
	require.True(t, ok)
	assert.Equal(t, "foo", call.Name)
	require.Len(t, call.Args, 3)
	hash, ok := call.Args[2].(*HashLit)
	require.True(t, ok)
	assert.Len(t, hash.Keys, 1)
}

func TestParserIndexVersusArrayArgument(t *testing.T) {
	index, ok := parseOne(t, "foo[1]").(*Call)
	require.True(t, ok)
	assert.Equal(t, "[]", index.Name)
	assert.IsType(t, &Call{}, index.Recv)

	command, ok := parseOne(t, "foo [1]").(*Call)
	require.True(t, ok)
	assert.Equal(t, "foo", command.Name)
	require.Len(t, command.Args, 1)
	assert.IsType(t, &ArrayLit{}, command.Args[0])
}

func TestParserBinaryMinusVersusNegativeArgument(t *testing.T) {
	stmts := parse(t, "foo - 1\nfoo -1")
	require.Len(t, stmts, 2)
	assert.Equal(t, "-", stmts[0].(*Call).Name)
	assert.Equal(t, "foo", stmts[1].(*Call).Name)
	assert.Len(t, stmts[1].(*Call).Args, 1)
}

func TestParserDoBlockBindsToCommand(t *testing.T) {
	call, ok := parseOne(t, "puts [1].map do |x| x end").(*Call)
	require.True(t, ok)
	assert.Equal(t, "puts", call.Name)
	require.NotNil(t, call.Block)

	inner, ok := call.Args[0].(*Call)
	require.True(t, ok)
	assert.Equal(t, "map", inner.Name)
	assert.Nil(t, inner.Block)
}

func TestParserBraceBlockParams(t *testing.T) {
	call, ok := parseOne(t, "each { |a, (b, c), *d, &e| a }").(*Call)
	require.True(t, ok)
	require.NotNil(t, call.Block)

	ps := call.Block.Params
	assert.Equal(t, []string{"a", "(b,c)"}, ps.Required)
	assert.Equal(t, map[int][]string{1: {"b", "c"}}, ps.Destructure)
	assert.Equal(t, "d", ps.Rest)
	assert.Equal(t, "e", ps.Block)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ps.Names())
	assert.Equal(t, -3, ps.Arity())

	// a is a block local, so the body reads it as a variable.
	assert.IsType(t, &LocalVar{}, call.Block.Body.Stmts[0])
}

func TestParserDefParams(t *testing.T) {
	def, ok := parseOne(t, "def m(a, b = 2, *rest, c, &blk)\n  a\nend").(*Def)
	require.True(t, ok)
	assert.Equal(t, "m", def.Name)
	assert.Nil(t, def.Singleton)

	ps := def.Params
	assert.Equal(t, []string{"a"}, ps.Required)
	require.Len(t, ps.Optional, 1)
	assert.Equal(t, "b", ps.Optional[0].Name)
	assert.Equal(t, "rest", ps.Rest)
	assert.Equal(t, []string{"c"}, ps.Post)
	assert.Equal(t, "blk", ps.Block)
	assert.Equal(t, -3, ps.Arity())
}

func TestParserDefNames(t *testing.T) {
	tests := []struct {
		src  string
		name string
	}{
		{"def ==(other)\nend", "=="},
		{"def <=>(other)\nend", "<=>"},
		{"def [](i)\nend", "[]"},
		{"def []=(i, v)\nend", "[]="},
		{"def name=(v)\nend", "name="},
		{"def -@\nend", "-@"},
		{"def empty?\nend", "empty?"},
		{"def class\nend", "class"},
	}
	for _, tc := range tests {
		def, ok := parseOne(t, tc.src).(*Def)
		require.True(t, ok, tc.src)
		assert.Equal(t, tc.name, def.Name, tc.src)
	}
}

func TestParserSingletonDef(t *testing.T) {
	def, ok := parseOne(t, "def self.create(x) x end").(*Def)
	require.True(t, ok)
	assert.IsType(t, &SelfExpr{}, def.Singleton)
	assert.Equal(t, "create", def.Name)
}

func TestParserClassAndModule(t *testing.T) {
	cls, ok := parseOne(t, "class A::B < C\n  include M\nend").(*ClassDef)
	require.True(t, ok)
	assert.Equal(t, "B", cls.Path.Name)
	require.IsType(t, &Const{}, cls.Path.Scope)
	assert.Equal(t, "A", cls.Path.Scope.(*Const).Name)
	assert.Equal(t, "C", cls.Super.(*Const).Name)
	require.Len(t, cls.Body.Stmts, 1)

	sc, ok := parseOne(t, "class << self\n  def x; end\nend").(*SClass)
	require.True(t, ok)
	assert.IsType(t, &SelfExpr{}, sc.Target)

	mod, ok := parseOne(t, "module ::Top\nend").(*ModuleDef)
	require.True(t, ok)
	assert.True(t, mod.Path.Top)
}

func TestParserMultiAssign(t *testing.T) {
	m, ok := parseOne(t, "a, *b, c = 1, 2, 3, 4").(*MultiAssign)
	require.True(t, ok)
	assert.Len(t, m.Targets, 3)
	assert.Equal(t, 1, m.Splat)
	arr, ok := m.Value.(*ArrayLit)
	require.True(t, ok)
	assert.Len(t, arr.Elems, 4)
}

func TestParserOpAssign(t *testing.T) {
	op, ok := parseOne(t, "@count ||= 0").(*OpAssign)
	require.True(t, ok)
	assert.Equal(t, "||", op.Op)
	assert.IsType(t, &IVar{}, op.Target)

	stmts := parse(t, "h = {}\nh[:a] += 1")
	op, ok = stmts[1].(*OpAssign)
	require.True(t, ok)
	assert.Equal(t, "[]", op.Target.(*Call).Name)
}

func TestParserModifiers(t *testing.T) {
	n, ok := parseOne(t, "x = 5 if ready").(*If)
	require.True(t, ok)
	assert.IsType(t, &Assign{}, n.Then.Stmts[0])

	w, ok := parseOne(t, "begin\n  step\nend while more?").(*While)
	require.True(t, ok)
	assert.True(t, w.DoWhile)

	u, ok := parseOne(t, "go until done").(*While)
	require.True(t, ok)
	assert.True(t, u.Until)
	assert.False(t, u.DoWhile)
}

func TestParserCase(t *testing.T) {
	c, ok := parseOne(t, "case x\nwhen 1, 2 then :low\nwhen *big\n  :high\nelse\n  :none\nend").(*Case)
	require.True(t, ok)
	require.Len(t, c.Whens, 2)
	assert.Len(t, c.Whens[0].Conds, 2)
	assert.IsType(t, &Splat{}, c.Whens[1].Conds[0])
	require.NotNil(t, c.Else)
}

func TestParserLambdaLiteral(t *testing.T) {
	call, ok := parseOne(t, "->(a, b = 1) { a + b }").(*Call)
	require.True(t, ok)
	assert.Equal(t, "lambda", call.Name)
	require.NotNil(t, call.Block)
	assert.Equal(t, -2, call.Block.Params.Arity())
}

func TestParserSafeNavigationAndScopes(t *testing.T) {
	call, ok := parseOne(t, "a&.b").(*Call)
	require.True(t, ok)
	assert.True(t, call.SafeNav)

	c, ok := parseOne(t, "Outer::Inner").(*Const)
	require.True(t, ok)
	assert.Equal(t, "Inner", c.Name)

	m, ok := parseOne(t, "Outer::helper(1)").(*Call)
	require.True(t, ok)
	assert.Equal(t, "helper", m.Name)
}

func TestParserInterpolationSeesLocals(t *testing.T) {
	stmts := parse(t, `name = "x"`+"\n"+`"hi #{name}"`)
	d, ok := stmts[1].(*DStr)
	require.True(t, ok)
	require.Len(t, d.Parts, 2)
	inner := d.Parts[1].(*Begin).Body.Stmts[0]
	assert.IsType(t, &LocalVar{}, inner)
}

func TestParserPredeclaredLocals(t *testing.T) {
	prog, err := Parse("x", "t.rb", "x")
	require.NoError(t, err)
	assert.IsType(t, &LocalVar{}, prog.Body.Stmts[0])
}

func TestParserSyntaxErrors(t *testing.T) {
	tests := []struct {
		src  string
		line int
	}{
		{"def foo(\n", 2},
		{"class foo\nend", 1},
		{"x = (1 + \n", 2},
		{"if x\n  1\n", 3},
		{"begin\n  1\nrescue\nend", 3},
		{"foo(1,, 2)", 1},
	}
	for _, tc := range tests {
		_, err := Parse(tc.src, "bad.rb")
		require.Error(t, err, tc.src)

		var se *SyntaxError
		require.True(t, errors.As(err, &se), tc.src)
		assert.Equal(t, "bad.rb", se.File)
		assert.Equal(t, tc.line, se.Line, tc.src)
		assert.True(t, vm.IsKind(err, vm.SyntaxError), tc.src)
	}
}

func TestParserIncompleteInput(t *testing.T) {
	for _, src := range []string{"def foo\n", "class A\n  def x\n", "[1, 2,", "if x"} {
		_, err := Parse(src, "repl")
		assert.True(t, IsIncomplete(err), src)
	}
	for _, src := range []string{"foo(1,, 2)", "class foo\nend", "x = 1"} {
		_, err := Parse(src, "repl")
		assert.False(t, IsIncomplete(err), src)
	}
}
