package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline // newline or ';' ending a statement

	// Literals
	TokenInteger // 42, 0xff, 1_000
	TokenFloat   // 3.14, 1e10
	TokenString  // "a #{b}", 'c'
	TokenSymbol  // :foo, :"foo bar", :+
	TokenWords   // %w[a b]
	TokenSymbols // %i[a b]

	// Names
	TokenIdentifier // foo, empty?
	TokenConstant   // Foo
	TokenIVar       // @foo
	TokenCVar       // @@foo
	TokenGVar       // $foo, $:
	TokenLabel      // foo: (hash key or keyword argument)
	TokenKeyword    // def, class, if, ...

	// Operators and delimiters, distinguished by Literal
	TokenPunct
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "NEWLINE",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenSymbol:     "SYMBOL",
	TokenWords:      "WORDS",
	TokenSymbols:    "SYMBOLS",
	TokenIdentifier: "IDENTIFIER",
	TokenConstant:   "CONSTANT",
	TokenIVar:       "IVAR",
	TokenCVar:       "CVAR",
	TokenGVar:       "GVAR",
	TokenLabel:      "LABEL",
	TokenKeyword:    "KEYWORD",
	TokenPunct:      "PUNCT",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// StrPart is one piece of a string literal: literal text, or the source of
// an interpolated #{} expression.
type StrPart struct {
	Text string
	Code bool
	Pos  Position
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the text, unescaped for strings and symbols
	Pos     Position // start position

	// SpaceBefore is set when whitespace separates the token from the
	// previous one; it tells `foo [1]` from `foo[1]`.
	SpaceBefore bool

	Parts []StrPart // TokenString
	Words []string  // TokenWords, TokenSymbols
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "NEWLINE"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Is reports whether t is the punctuation or keyword lit.
func (t Token) Is(lit string) bool {
	return (t.Type == TokenPunct || t.Type == TokenKeyword) && t.Literal == lit
}

// keywords are the reserved words.
var keywords = map[string]bool{
	"alias": true, "and": true, "begin": true, "break": true, "case": true,
	"class": true, "def": true, "do": true, "else": true, "elsif": true,
	"end": true, "ensure": true, "false": true, "for": true, "if": true,
	"in": true, "module": true, "next": true, "nil": true, "not": true,
	"or": true, "redo": true, "rescue": true, "retry": true, "return": true,
	"self": true, "super": true, "then": true, "true": true, "undef": true,
	"unless": true, "until": true, "when": true, "while": true, "yield": true,
	"__FILE__": true, "__LINE__": true,
}

// puncts lists operators longest first so the lexer can match greedily.
var puncts = []string{
	"**=", "<=>", "===", "...", "<<=", ">>=", "&&=", "||=",
	"==", "!=", ">=", "<=", "&&", "||", "<<", ">>", "**", "=~", "=>", "->",
	"+=", "-=", "*=", "/=", "%=", "|=", "&=", "^=", "..", "::", "&.",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "~",
	"?", ":", ",", ".", "(", ")", "[", "]", "{", "}", "@",
}

// symbolOperators are the operator method names a symbol literal can hold.
var symbolOperators = []string{
	"[]=", "[]", "<=>", "===", "==", "=~", "!=", "<<", ">>", "<=", ">=",
	"**", "+@", "-@", "+", "-", "*", "/", "%", "<", ">", "!", "&", "|",
	"^", "~",
}

// continuesLine lists the tokens after which a newline does not end the
// statement.
var continuesLine = map[string]bool{
	",": true, "(": true, "[": true, "{": true, ".": true, "&.": true, "::": true,
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "||=": true, "&&=": true, "|=": true, "&=": true, "^=": true,
	"<<=": true, ">>=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"<=>": true, "===": true, "=~": true, "&&": true, "||": true, "&": true,
	"|": true, "^": true, "<<": true, ">>": true, "=>": true, "?": true,
	":": true, "!": true, "->": true,
	"and": true, "or": true, "not": true,
}
