package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tok struct {
	typ TokenType
	lit string
}

func lex(input string) []tok {
	var out []tok
	for _, t := range NewLexer(input).Tokenize() {
		out = append(out, tok{t.Type, t.Literal})
	}
	return out
}

func TestLexerBasicTokens(t *testing.T) {
	assert.Equal(t, []tok{
		{TokenIdentifier, "x"},
		{TokenPunct, "="},
		{TokenInteger, "1"},
		{TokenPunct, "+"},
		{TokenFloat, "2.5"},
		{TokenNewline, ";"},
		{TokenIVar, "@a"},
		{TokenPunct, "||="},
		{TokenCVar, "@@b"},
		{TokenNewline, "\n"},
		{TokenGVar, "$:"},
		{TokenPunct, "<<"},
		{TokenConstant, "Foo"},
		{TokenPunct, "::"},
		{TokenConstant, "Bar"},
		{TokenEOF, ""},
	}, lex("x = 1 + 2.5; @a ||= @@b\n$: << Foo::Bar"))
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{"42", TokenInteger, "42"},
		{"1_000_000", TokenInteger, "1000000"},
		{"0xFF", TokenInteger, "0xFF"},
		{"0b1010", TokenInteger, "0b1010"},
		{"3.25", TokenFloat, "3.25"},
		{"1e3", TokenFloat, "1e3"},
	}
	for _, tc := range tests {
		got := NewLexer(tc.input).NextToken()
		assert.Equal(t, tc.typ, got.Type, tc.input)
		assert.Equal(t, tc.want, got.Literal, tc.input)
	}
}

func TestLexerRangeIsNotFloat(t *testing.T) {
	assert.Equal(t, []tok{
		{TokenInteger, "1"},
		{TokenPunct, ".."},
		{TokenInteger, "5"},
		{TokenEOF, ""},
	}, lex("1..5"))
}

func TestLexerKeywordsAfterDot(t *testing.T) {
	assert.Equal(t, []tok{
		{TokenIdentifier, "obj"},
		{TokenPunct, "."},
		{TokenIdentifier, "class"},
		{TokenEOF, ""},
	}, lex("obj.class"))

	assert.Equal(t, []tok{
		{TokenKeyword, "def"},
		{TokenIdentifier, "self"},
		{TokenPunct, "."},
		{TokenIdentifier, "end"},
		{TokenEOF, ""},
	}, lex("def self.end"))
}

func TestLexerPredicateNames(t *testing.T) {
	assert.Equal(t, []tok{
		{TokenIdentifier, "empty?"},
		{TokenIdentifier, "save!"},
		{TokenIdentifier, "x"},
		{TokenPunct, "!="},
		{TokenIdentifier, "y"},
		{TokenEOF, ""},
	}, lex("empty? save! x!= y"))
}

func TestLexerLabelsAndSymbols(t *testing.T) {
	assert.Equal(t, []tok{
		{TokenIdentifier, "f"},
		{TokenLabel, "key"},
		{TokenSymbol, "value"},
		{TokenPunct, ","},
		{TokenSymbol, "<=>"},
		{TokenPunct, ","},
		{TokenSymbol, "name="},
		{TokenPunct, ","},
		{TokenSymbol, "hello world"},
		{TokenPunct, ","},
		{TokenSymbol, "@ivar"},
		{TokenEOF, ""},
	}, lex(`f key: :value, :<=>, :name=, :"hello world", :@ivar`))
}

func TestLexerTernaryColon(t *testing.T) {
	assert.Equal(t, []tok{
		{TokenIdentifier, "a"},
		{TokenPunct, "?"},
		{TokenInteger, "1"},
		{TokenPunct, ":"},
		{TokenInteger, "2"},
		{TokenEOF, ""},
	}, lex("a ? 1 : 2"))
}

func TestLexerStrings(t *testing.T) {
	toks := NewLexer(`"a\tb #{x + 1} c" 'no #{interp}\n'`).Tokenize()
	require.Len(t, toks, 3)

	dq := toks[0]
	assert.Equal(t, TokenString, dq.Type)
	require.Len(t, dq.Parts, 3)
	assert.Equal(t, StrPart{Text: "a\tb "}, dq.Parts[0])
	assert.True(t, dq.Parts[1].Code)
	assert.Equal(t, "x + 1", dq.Parts[1].Text)
	assert.Equal(t, " c", dq.Parts[2].Text)

	sq := toks[1]
	assert.Equal(t, TokenString, sq.Type)
	assert.Equal(t, `no #{interp}\n`, sq.Literal)
}

func TestLexerWordLists(t *testing.T) {
	toks := NewLexer("%w[a b  c] %i(x y)").Tokenize()
	require.Len(t, toks, 3)
	assert.Equal(t, TokenWords, toks[0].Type)
	assert.Equal(t, []string{"a", "b", "c"}, toks[0].Words)
	assert.Equal(t, TokenSymbols, toks[1].Type)
	assert.Equal(t, []string{"x", "y"}, toks[1].Words)
}

func TestLexerLineContinuation(t *testing.T) {
	// Newlines after an operator or before a leading dot do not end the
	// statement.
	assert.Equal(t, []tok{
		{TokenIdentifier, "a"},
		{TokenPunct, "+"},
		{TokenIdentifier, "b"},
		{TokenPunct, "."},
		{TokenIdentifier, "c"},
		{TokenEOF, ""},
	}, lex("a +\n  b\n  .c"))
}

func TestLexerComments(t *testing.T) {
	assert.Equal(t, []tok{
		{TokenIdentifier, "a"},
		{TokenNewline, "\n"},
		{TokenNewline, "\n"},
		{TokenIdentifier, "b"},
		{TokenNewline, "\n"},
		{TokenEOF, ""},
	}, lex("a # trailing\n=begin\nignored\n=end\nb\n__END__\nnot code"))
}

func TestLexerSpaceBefore(t *testing.T) {
	toks := NewLexer("foo [1] foo[1]").Tokenize()
	require.GreaterOrEqual(t, len(toks), 6)
	assert.True(t, toks[1].SpaceBefore)
	assert.False(t, toks[5].SpaceBefore)
}

func TestLexerPositions(t *testing.T) {
	toks := NewLexer("a\n  bb").Tokenize()
	require.Len(t, toks, 4)
	assert.Equal(t, 2, toks[2].Pos.Line)
	assert.Equal(t, 3, toks[2].Pos.Column)
}

func TestLexerErrors(t *testing.T) {
	tests := []string{
		`"unterminated`,
		"$",
		"@@",
		"`",
	}
	for _, input := range tests {
		toks := NewLexer(input).Tokenize()
		assert.Equal(t, TokenError, toks[len(toks)-1].Type, input)
	}
}
