package compiler

import (
	"fmt"
	"strings"
)

// Position represents a location in source code.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Lexer tokenizes source code.
type Lexer struct {
	input   string
	pos     int  // current position in input (points to current char)
	readPos int  // current reading position (after current char)
	ch      byte // current char under examination
	line    int
	column  int

	last   Token // previous significant token
	method bool  // the next name is a method name (after def or .)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return NewLexerAt(input, 1, 0)
}

// NewLexerAt creates a Lexer whose positions start at the given line and
// column offset. Interpolated code is lexed this way.
func NewLexerAt(input string, line, column int) *Lexer {
	l := &Lexer{input: input, line: line, column: column}
	l.last = Token{Type: TokenNewline}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	return l.peekAt(0)
}

// peekAt returns the character n positions after the next one.
func (l *Lexer) peekAt(n int) byte {
	if l.readPos+n >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+n]
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.column}
}

// atLineStart reports whether only whitespace precedes the current char on
// its line.
func (l *Lexer) atLineStart() bool {
	for i := l.pos - 1; i >= 0; i-- {
		switch l.input[i] {
		case '\n':
			return true
		case ' ', '\t':
			continue
		}
		return false
	}
	return true
}

// Tokenize returns all tokens up to and including EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	tok := l.scan()
	if tok.Type != TokenError {
		l.method = tok.Is("def") || tok.Is(".") || tok.Is("&.")
		l.last = tok
	}
	return tok
}

func (l *Lexer) scan() Token {
	space := false
	for {
		switch l.ch {
		case ' ', '\t', '\r':
			space = true
			l.readChar()
			continue
		case '\\':
			if l.peekChar() == '\n' {
				space = true
				l.readChar()
				l.readChar()
				continue
			}
		case '#':
			l.skipComment()
			continue
		case '=':
			if l.atLineStart() && strings.HasPrefix(l.input[l.pos:], "=begin") {
				if err := l.skipBlockComment(); err != nil {
					return *err
				}
				continue
			}
		case '\n':
			pos := l.position()
			l.readChar()
			if l.continues() {
				space = true
				continue
			}
			return Token{Type: TokenNewline, Literal: "\n", Pos: pos, SpaceBefore: space}
		case '_':
			if l.atLineStart() && l.restOfLine() == "__END__" {
				return Token{Type: TokenEOF, Pos: l.position()}
			}
		}
		break
	}

	var tok Token
	switch {
	case l.ch == 0:
		tok = Token{Type: TokenEOF, Pos: l.position()}
	case l.ch == ';':
		tok = Token{Type: TokenNewline, Literal: ";", Pos: l.position()}
		l.readChar()
	case isDigit(l.ch):
		tok = l.readNumber()
	case isLetter(l.ch):
		tok = l.readName()
	case l.ch == '@':
		tok = l.readVariable()
	case l.ch == '$':
		tok = l.readGlobal()
	case l.ch == '"':
		tok = l.readString('"', true)
	case l.ch == '\'':
		tok = l.readString('\'', false)
	case l.ch == ':' && l.peekChar() != ':' && !l.method:
		tok = l.readSymbol()
	case l.ch == '%' && (l.peekChar() == 'w' || l.peekChar() == 'i') && isOpenBracket(l.peekAt(1)):
		tok = l.readWords()
	default:
		tok = l.readPunct()
	}
	tok.SpaceBefore = space
	return tok
}

// continues reports whether the newline just consumed continues the
// statement: after an operator, or before a leading .method call.
func (l *Lexer) continues() bool {
	if l.last.Type == TokenPunct || l.last.Type == TokenKeyword {
		if continuesLine[l.last.Literal] {
			return true
		}
	}
	i := l.pos
	for i < len(l.input) {
		switch l.input[i] {
		case ' ', '\t', '\r', '\n':
			i++
			continue
		case '.':
			return i+1 < len(l.input) && l.input[i+1] != '.'
		case '&':
			return i+1 < len(l.input) && l.input[i+1] == '.'
		}
		return false
	}
	return false
}

func (l *Lexer) restOfLine() string {
	end := strings.IndexByte(l.input[l.pos:], '\n')
	if end < 0 {
		return strings.TrimRight(l.input[l.pos:], " \t\r")
	}
	return strings.TrimRight(l.input[l.pos:l.pos+end], " \t\r")
}

// skipComment skips a # comment up to (not including) the newline.
func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// skipBlockComment skips an =begin/=end block.
func (l *Lexer) skipBlockComment() *Token {
	start := l.position()
	for {
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		if l.ch == 0 {
			return &Token{Type: TokenError, Literal: "embedded document meets end of file", Pos: start}
		}
		l.readChar()
		if strings.HasPrefix(l.input[l.pos:], "=end") {
			l.skipComment()
			return nil
		}
	}
}

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// readNumber reads an integer or float literal. Underscores between digits
// are dropped.
func (l *Lexer) readNumber() Token {
	pos := l.position()
	var sb strings.Builder

	if l.ch == '0' {
		switch l.peekChar() {
		case 'x', 'X', 'b', 'B', 'o', 'O':
			sb.WriteByte('0')
			l.readChar()
			sb.WriteByte(l.ch | 0x20)
			l.readChar()
			for isHexDigit(l.ch) || l.ch == '_' {
				if l.ch != '_' {
					sb.WriteByte(l.ch)
				}
				l.readChar()
			}
			return Token{Type: TokenInteger, Literal: sb.String(), Pos: pos}
		}
	}

	l.readDigits(&sb)
	typ := TokenInteger
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = TokenFloat
		sb.WriteByte('.')
		l.readChar()
		l.readDigits(&sb)
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) ||
		(l.peekChar() == '-' || l.peekChar() == '+') && isDigit(l.peekAt(1))) {
		typ = TokenFloat
		sb.WriteByte('e')
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			sb.WriteByte(l.ch)
			l.readChar()
		}
		l.readDigits(&sb)
	}
	return Token{Type: typ, Literal: sb.String(), Pos: pos}
}

func (l *Lexer) readDigits(sb *strings.Builder) {
	for isDigit(l.ch) || l.ch == '_' && isDigit(l.peekChar()) {
		if l.ch != '_' {
			sb.WriteByte(l.ch)
		}
		l.readChar()
	}
}

// ---------------------------------------------------------------------------
// Names
// ---------------------------------------------------------------------------

// readIdent reads [A-Za-z_][A-Za-z0-9_]* with an optional ? or ! suffix.
func (l *Lexer) readIdent() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	if (l.ch == '?' || l.ch == '!') && l.peekChar() != '=' {
		l.readChar()
	} else if (l.ch == '?' || l.ch == '!') && l.peekChar() == '=' && l.peekAt(1) == '=' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readName reads an identifier, constant, keyword or label.
func (l *Lexer) readName() Token {
	pos := l.position()
	name := l.readIdent()
	last := name[len(name)-1]

	if l.ch == ':' && l.peekChar() != ':' && last != '?' && last != '!' && !l.method {
		l.readChar()
		return Token{Type: TokenLabel, Literal: name, Pos: pos}
	}
	if l.method {
		return Token{Type: TokenIdentifier, Literal: name, Pos: pos}
	}
	if keywords[name] {
		return Token{Type: TokenKeyword, Literal: name, Pos: pos}
	}
	if isUpper(name[0]) {
		return Token{Type: TokenConstant, Literal: name, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: name, Pos: pos}
}

// readVariable reads @ivar or @@cvar. A bare @ is punctuation (+@, -@).
func (l *Lexer) readVariable() Token {
	pos := l.position()
	start := l.pos
	typ := TokenIVar
	if l.peekChar() == '@' {
		typ = TokenCVar
		l.readChar()
	}
	if !isLetter(l.peekChar()) {
		if typ == TokenCVar {
			return Token{Type: TokenError, Literal: "`@@' without identifiers is not allowed as a class variable name", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenPunct, Literal: "@", Pos: pos}
	}
	l.readChar()
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return Token{Type: typ, Literal: l.input[start:l.pos], Pos: pos}
}

// readGlobal reads $name or one of the punctuation globals ($: and $").
func (l *Lexer) readGlobal() Token {
	pos := l.position()
	start := l.pos
	l.readChar()
	switch {
	case isLetter(l.ch):
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
	case strings.IndexByte(`:"!@;,./\0~*$?&`, l.ch) >= 0 || isDigit(l.ch):
		l.readChar()
	default:
		return Token{Type: TokenError, Literal: "`$' without identifiers is not allowed as a global variable name", Pos: pos}
	}
	return Token{Type: TokenGVar, Literal: l.input[start:l.pos], Pos: pos}
}

// ---------------------------------------------------------------------------
// Strings and symbols
// ---------------------------------------------------------------------------

// readString reads a quoted string. Double-quoted strings process escapes
// and split #{} interpolations into code parts.
func (l *Lexer) readString(quote byte, interpolate bool) Token {
	pos := l.position()
	l.readChar() // opening quote

	var parts []StrPart
	var sb strings.Builder
	for l.ch != quote {
		switch {
		case l.ch == 0:
			return Token{Type: TokenError, Literal: "unterminated string meets end of file", Pos: pos}
		case l.ch == '\\':
			l.readChar()
			if interpolate {
				sb.WriteString(unescape(l.ch))
			} else if l.ch == quote || l.ch == '\\' {
				sb.WriteByte(l.ch)
			} else {
				sb.WriteByte('\\')
				sb.WriteByte(l.ch)
			}
			l.readChar()
		case interpolate && l.ch == '#' && l.peekChar() == '{':
			if sb.Len() > 0 {
				parts = append(parts, StrPart{Text: sb.String()})
				sb.Reset()
			}
			l.readChar()
			l.readChar()
			codePos := l.position()
			code, ok := l.readBalanced()
			if !ok {
				return Token{Type: TokenError, Literal: "unterminated string interpolation", Pos: codePos}
			}
			parts = append(parts, StrPart{Text: code, Code: true, Pos: codePos})
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
	l.readChar() // closing quote

	if sb.Len() > 0 || len(parts) == 0 {
		parts = append(parts, StrPart{Text: sb.String()})
	}
	var lit strings.Builder
	for _, p := range parts {
		if !p.Code {
			lit.WriteString(p.Text)
		}
	}
	return Token{Type: TokenString, Literal: lit.String(), Pos: pos, Parts: parts}
}

// readBalanced reads up to the } closing an interpolation, skipping nested
// braces and quoted strings.
func (l *Lexer) readBalanced() (string, bool) {
	start := l.pos
	depth := 0
	for {
		switch l.ch {
		case 0:
			return "", false
		case '{':
			depth++
		case '}':
			if depth == 0 {
				code := l.input[start:l.pos]
				l.readChar()
				return code, true
			}
			depth--
		case '"', '\'':
			q := l.ch
			l.readChar()
			for l.ch != q && l.ch != 0 {
				if l.ch == '\\' {
					l.readChar()
				}
				l.readChar()
			}
		}
		l.readChar()
	}
}

func unescape(ch byte) string {
	switch ch {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 's':
		return " "
	case '0':
		return "\x00"
	case 'e':
		return "\x1b"
	case 'a':
		return "\a"
	case 'b':
		return "\b"
	}
	return string(ch)
}

// readSymbol reads :name, :"quoted", :+ and friends. A colon that starts
// none of these is punctuation.
func (l *Lexer) readSymbol() Token {
	pos := l.position()
	next := l.peekChar()
	switch {
	case next == '"' || next == '\'':
		l.readChar()
		s := l.readString(next, next == '"')
		if s.Type == TokenError {
			return s
		}
		for _, p := range s.Parts {
			if p.Code {
				return Token{Type: TokenError, Literal: "interpolated symbols are not supported", Pos: pos}
			}
		}
		return Token{Type: TokenSymbol, Literal: s.Literal, Pos: pos}
	case isLetter(next):
		l.readChar()
		start := l.pos
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		switch {
		case l.ch == '?' || l.ch == '!':
			l.readChar()
		case l.ch == '=' && l.peekChar() != '=' && l.peekChar() != '>' && l.peekChar() != '~':
			l.readChar()
		}
		return Token{Type: TokenSymbol, Literal: l.input[start:l.pos], Pos: pos}
	case next == '@' || next == '$':
		l.readChar()
		var v Token
		if l.ch == '@' {
			v = l.readVariable()
		} else {
			v = l.readGlobal()
		}
		if v.Type == TokenPunct || v.Type == TokenError {
			return Token{Type: TokenError, Literal: "invalid symbol", Pos: pos}
		}
		return Token{Type: TokenSymbol, Literal: v.Literal, Pos: pos}
	}
	rest := l.input[l.readPos:]
	for _, op := range symbolOperators {
		if strings.HasPrefix(rest, op) {
			l.readChar()
			for i := 0; i < len(op); i++ {
				l.readChar()
			}
			return Token{Type: TokenSymbol, Literal: op, Pos: pos}
		}
	}
	l.readChar()
	return Token{Type: TokenPunct, Literal: ":", Pos: pos}
}

// readWords reads %w[...] or %i[...].
func (l *Lexer) readWords() Token {
	pos := l.position()
	typ := TokenWords
	l.readChar()
	if l.ch == 'i' {
		typ = TokenSymbols
	}
	l.readChar()
	open := l.ch
	closer := closingBracket(open)
	l.readChar()
	start := l.pos
	for l.ch != closer {
		if l.ch == 0 {
			return Token{Type: TokenError, Literal: "unterminated list meets end of file", Pos: pos}
		}
		l.readChar()
	}
	words := strings.Fields(l.input[start:l.pos])
	l.readChar()
	return Token{Type: typ, Literal: strings.Join(words, " "), Pos: pos, Words: words}
}

// readPunct reads the longest operator at the current position.
func (l *Lexer) readPunct() Token {
	pos := l.position()
	rest := l.input[l.pos:]
	for _, p := range puncts {
		if strings.HasPrefix(rest, p) {
			for i := 0; i < len(p); i++ {
				l.readChar()
			}
			return Token{Type: TokenPunct, Literal: p, Pos: pos}
		}
	}
	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character %q", ch), Pos: pos}
}

// ---------------------------------------------------------------------------
// Character classes
// ---------------------------------------------------------------------------

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isUpper(ch byte) bool {
	return 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

func isOpenBracket(ch byte) bool {
	return ch == '[' || ch == '(' || ch == '{' || ch == '<'
}

func closingBracket(ch byte) byte {
	switch ch {
	case '[':
		return ']'
	case '(':
		return ')'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return ch
}
