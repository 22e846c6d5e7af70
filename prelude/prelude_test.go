package prelude_test

import (
	"bytes"
	"testing"

	"github.com/hexops/autogold/v2"
	"github.com/stretchr/testify/require"

	"github.com/chazu/rubric/compiler"
	"github.com/chazu/rubric/prelude"
)

func run(t *testing.T, src string) string {
	t.Helper()
	v := compiler.NewVM()
	var out bytes.Buffer
	v.Stdout = &out
	require.NoError(t, prelude.Load(v))
	_, err := v.EvalString(src, "test.rb")
	require.NoError(t, err)
	return out.String()
}

func TestNumeric(t *testing.T) {
	got := run(t, `
p -5.abs, 0.zero?, 3.positive?, 4.succ
3.times { |i| print i }
puts
1.upto(3) { |i| print i }
puts
3.downto(1) { |i| print i }
puts
1.step(10, 4) { |i| print i, " " }
puts
`)
	autogold.Expect("5\ntrue\ntrue\n5\n012\n123\n321\n1 5 9 \n").Equal(t, got)
}

func TestTimesBreak(t *testing.T) {
	got := run(t, "r = 10.times { |i| break i * 2 if i == 3 }\np r\n")
	autogold.Expect("6\n").Equal(t, got)
}

func TestEnumerable(t *testing.T) {
	got := run(t, `
a = [3, 1, 2]
p a.map { |x| x * 2 }
p a.select { |x| x > 1 }
p a.reject { |x| x > 1 }
p a.inject { |s, x| s + x }
p a.sum, a.min, a.max, a.sort
p a.include?(2), a.find { |x| x > 1 }
p a.first, a.first(2), a.last, a.count, a.count(1)
p a.any? { |x| x > 2 }, a.all? { |x| x > 2 }
p a.sort_by { |x| -x }
a.each_with_index { |x, i| print i, ":", x, " " }
puts
p a.reverse, [].empty?
`)
	autogold.Expect(`[6, 2, 4]
[3, 2]
[1]
6
6
1
3
[1, 2, 3]
true
3
3
[3, 1]
2
3
1
true
false
[3, 2, 1]
0:3 1:1 2:2 
[2, 1, 3]
true
`).Equal(t, got)
}

func TestEnumerableOverRangeAndHash(t *testing.T) {
	got := run(t, `
p((1..4).map { |x| x * x })
p((1...4).to_a)
h = { a: 1, b: 2 }
p h.map { |k, v| v }
p h.to_a
`)
	autogold.Expect("[1, 4, 9, 16]\n[1, 2, 3]\n[1, 2]\n[[:a, 1], [:b, 2]]\n").Equal(t, got)
}

func TestEnumerableInUserClass(t *testing.T) {
	got := run(t, `
class Trio
  include Enumerable

  def each
    yield 1
    yield 2
    yield 3
    self
  end
end
t = Trio.new
p t.map { |x| x + 1 }, t.first, t.include?(3), t.sort { |a, b| b <=> a }
`)
	autogold.Expect("[2, 3, 4]\n1\ntrue\n[3, 2, 1]\n").Equal(t, got)
}
