package compiler

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/chazu/rubric/vm"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over the token stream
// ---------------------------------------------------------------------------

// Parser parses source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []*SyntaxError
	file      string

	scope *varScope

	// noDo is positive while a do keyword belongs to an enclosing
	// construct: a command call's arguments or a loop condition.
	noDo int

	// noMulti is set where a comma ends the value, so `x = 1, 2` does not
	// build an array.
	noMulti bool
}

// varScope tracks which names are local variables, so that `foo` can be
// told apart from a call to foo. def, class and module bodies are closed:
// lookups stop there.
type varScope struct {
	vars   map[string]bool
	parent *varScope
	closed bool
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	return newParser(NewLexer(input), "", newVarScope(nil, true))
}

func newParser(l *Lexer, file string, scope *varScope) *Parser {
	p := &Parser{lexer: l, file: file, scope: scope}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func newVarScope(parent *varScope, closed bool) *varScope {
	return &varScope{vars: make(map[string]bool), parent: parent, closed: closed}
}

// Parse parses a whole source file. locals names variables already bound
// in the evaluation scope.
func Parse(source, file string, locals ...string) (*Program, error) {
	p := newParser(NewLexer(source), file, newVarScope(nil, true))
	for _, name := range locals {
		p.declare(name)
	}
	prog := p.ParseProgram()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return prog, nil
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// at reports whether the current token is the punctuation or keyword lit.
func (p *Parser) at(lit string) bool {
	return p.curToken.Is(lit)
}

// accept consumes the current token if it is lit.
func (p *Parser) accept(lit string) bool {
	if p.at(lit) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes lit or records an error.
func (p *Parser) expect(lit string) bool {
	if p.accept(lit) {
		return true
	}
	p.errorf("expected '%s', got %s", lit, p.describe(p.curToken))
	return false
}

// skipTerms skips newlines and semicolons.
func (p *Parser) skipTerms() {
	for p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errorAt(p.curToken.Pos, format, args...)
}

func (p *Parser) errorAt(pos Position, format string, args ...interface{}) {
	p.errors = append(p.errors, &SyntaxError{
		File:       p.file,
		Line:       pos.Line,
		Msg:        fmt.Sprintf(format, args...),
		Incomplete: p.curTokenIs(TokenEOF),
	})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	out := make([]string, len(p.errors))
	for i, e := range p.errors {
		out[i] = fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return out
}

func (p *Parser) describe(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end-of-input"
	case TokenNewline:
		return "end of line"
	case TokenError:
		return t.Literal
	}
	return fmt.Sprintf("'%s'", t.Literal)
}

func (p *Parser) span() Span {
	return Span{Start: p.curToken.Pos}
}

// ---------------------------------------------------------------------------
// Local variable scopes
// ---------------------------------------------------------------------------

func (p *Parser) pushScope(closed bool) {
	p.scope = newVarScope(p.scope, closed)
}

func (p *Parser) popScope() {
	p.scope = p.scope.parent
}

func (p *Parser) declare(name string) {
	p.scope.vars[name] = true
}

func (p *Parser) isLocal(name string) bool {
	for s := p.scope; s != nil; s = s.parent {
		if s.vars[name] {
			return true
		}
		if s.closed {
			return false
		}
	}
	return false
}

// withDo parses fn with do blocks allowed again, as inside brackets.
func (p *Parser) withDo(fn func()) {
	savedDo, savedMulti := p.noDo, p.noMulti
	p.noDo, p.noMulti = 0, false
	fn()
	p.noDo, p.noMulti = savedDo, savedMulti
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses statements until end of input.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{Span: p.span(), File: p.file}
	prog.Body = p.parseStatements()
	if !p.failed() && !p.curTokenIs(TokenEOF) {
		p.errorf("unexpected %s", p.describe(p.curToken))
	}
	return prog
}

// parseStatements parses a statement list up to one of the terminators
// (or end of input), leaving the terminator current.
func (p *Parser) parseStatements(terminators ...string) *Seq {
	seq := &Seq{Span: p.span()}
	for !p.failed() {
		p.skipTerms()
		if p.curTokenIs(TokenEOF) || p.atAny(terminators) {
			break
		}
		if p.curTokenIs(TokenError) {
			p.errorf("%s", p.curToken.Literal)
			break
		}
		stmt := p.parseStatement()
		if p.failed() {
			break
		}
		seq.Stmts = append(seq.Stmts, stmt)
		if !p.curTokenIs(TokenNewline) && !p.curTokenIs(TokenEOF) && !p.atAny(terminators) {
			p.errorf("unexpected %s, expecting end of line", p.describe(p.curToken))
		}
	}
	return seq
}

func (p *Parser) atAny(lits []string) bool {
	for _, lit := range lits {
		if p.at(lit) {
			return true
		}
	}
	return false
}

// parseStatement parses an expression statement with trailing modifiers.
func (p *Parser) parseStatement() Node {
	start := p.span()
	var stmt Node
	if p.at("*") {
		stmt = p.parseMultiAssign(start, nil)
	} else {
		stmt = p.parseExprStmt()
		if p.at(",") && isAssignable(stmt) {
			stmt = p.parseMultiAssign(start, stmt)
		}
	}

	for !p.failed() {
		switch {
		case p.at("if"):
			p.nextToken()
			cond := p.parseExprStmt()
			stmt = &If{Span: start, Cond: cond, Then: seqOf(stmt)}
		case p.at("unless"):
			p.nextToken()
			cond := p.parseExprStmt()
			stmt = &If{Span: start, Cond: &Not{Span: start, Expr: cond}, Then: seqOf(stmt)}
		case p.at("while"), p.at("until"):
			until := p.at("until")
			p.nextToken()
			cond := p.parseExprStmt()
			_, isBegin := stmt.(*Begin)
			stmt = &While{Span: start, Cond: cond, Body: seqOf(stmt), Until: until, DoWhile: isBegin}
		case p.at("rescue"):
			p.errorf("rescue is not supported")
		default:
			return stmt
		}
	}
	return stmt
}

func seqOf(n Node) *Seq {
	if s, ok := n.(*Seq); ok {
		return s
	}
	if b, ok := n.(*Begin); ok {
		return b.Body
	}
	return &Seq{Span: Span{Start: n.Pos()}, Stmts: []Node{n}}
}

// parseExprStmt parses not, and, or: the loosest operators.
func (p *Parser) parseExprStmt() Node {
	left := p.parseNotExpr()
	for !p.failed() && (p.at("and") || p.at("or")) {
		start := p.span()
		and := p.at("and")
		p.nextToken()
		p.skipTerms()
		right := p.parseNotExpr()
		if and {
			left = &And{Span: start, Left: left, Right: right}
		} else {
			left = &Or{Span: start, Left: left, Right: right}
		}
	}
	return left
}

func (p *Parser) parseNotExpr() Node {
	if p.at("not") {
		start := p.span()
		p.nextToken()
		return &Not{Span: start, Expr: p.parseNotExpr()}
	}
	return p.parseExpr()
}

// parseMultiAssign parses a, b, *c = values. first is the already parsed
// first target, or nil when the list starts with a splat.
func (p *Parser) parseMultiAssign(start Span, first Node) Node {
	m := &MultiAssign{Span: start, Splat: -1}
	if first != nil {
		m.Targets = append(m.Targets, p.toTarget(first))
		p.nextToken() // ,
	}
	for !p.failed() && !p.at("=") {
		if p.accept("*") {
			if m.Splat >= 0 {
				p.errorf("multiple splats in assignment")
				return m
			}
			m.Splat = len(m.Targets)
		}
		t := p.parsePostfix(p.parsePrimary())
		if !isAssignable(t) {
			p.errorf("can't assign to %s", describeNode(t))
			return m
		}
		m.Targets = append(m.Targets, p.toTarget(t))
		if !p.accept(",") {
			break
		}
	}
	if !p.expect("=") {
		return m
	}
	p.skipTerms()
	values := p.parseValueList()
	if len(values) == 1 {
		if _, splat := values[0].(*Splat); !splat {
			m.Value = values[0]
			return m
		}
	}
	m.Value = &ArrayLit{Span: start, Elems: values}
	return m
}

// parseValueList parses comma-separated values, allowing splats.
func (p *Parser) parseValueList() []Node {
	var values []Node
	for !p.failed() {
		if p.at("*") {
			start := p.span()
			p.nextToken()
			values = append(values, &Splat{Span: start, Expr: p.parseTernary()})
		} else {
			values = append(values, p.parseExpr())
		}
		if !p.accept(",") {
			break
		}
		p.skipTerms()
	}
	return values
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// parseExpr parses an assignment or anything tighter.
func (p *Parser) parseExpr() Node {
	start := p.span()
	left := p.parseTernary()
	if p.failed() {
		return left
	}

	if p.at("=") && isAssignable(left) {
		p.nextToken()
		p.skipTerms()
		target := p.toTarget(left)
		var value Node
		if p.at("*") {
			value = &ArrayLit{Span: start, Elems: p.parseValueList()}
		} else {
			value = p.parseExpr()
			if p.at(",") && !p.noMulti && p.noDo == 0 && isStatementValue(target) {
				p.nextToken()
				rest := p.parseValueList()
				value = &ArrayLit{Span: start, Elems: append([]Node{value}, rest...)}
			}
		}
		return &Assign{Span: start, Target: target, Value: value}
	}

	if p.curTokenIs(TokenPunct) && isOpAssign(p.curToken.Literal) && isAssignable(left) {
		op := strings.TrimSuffix(p.curToken.Literal, "=")
		p.nextToken()
		p.skipTerms()
		target := p.toTarget(left)
		return &OpAssign{Span: start, Target: target, Op: op, Value: p.parseExpr()}
	}
	return left
}

// isStatementValue is true for targets where `x = 1, 2` builds an array.
func isStatementValue(target Node) bool {
	switch target.(type) {
	case *LocalVar, *IVar, *GVar, *CVar:
		return true
	}
	return false
}

func isOpAssign(lit string) bool {
	switch lit {
	case "+=", "-=", "*=", "/=", "%=", "**=", "||=", "&&=", "|=", "&=", "^=", "<<=", ">>=":
		return true
	}
	return false
}

// isAssignable reports whether n can appear left of =.
func isAssignable(n Node) bool {
	switch n := n.(type) {
	case *LocalVar, *IVar, *CVar, *GVar, *Const:
		return true
	case *Call:
		if n.Block != nil || n.BlockArg != nil {
			return false
		}
		if n.Name == "[]" {
			return n.Recv != nil
		}
		if !isIdentName(n.Name) {
			return false
		}
		if n.Recv == nil {
			return len(n.Args) == 0 && !n.HasParens
		}
		return len(n.Args) == 0 && !n.HasParens
	}
	return false
}

func isIdentName(name string) bool {
	if name == "" || !isLetter(name[0]) {
		return false
	}
	last := name[len(name)-1]
	return last != '?' && last != '!'
}

// toTarget turns a parsed expression into an assignment target, declaring
// new locals.
func (p *Parser) toTarget(n Node) Node {
	if c, ok := n.(*Call); ok && c.Recv == nil && c.Name != "[]" {
		p.declare(c.Name)
		return &LocalVar{Span: c.Span, Name: c.Name}
	}
	if lv, ok := n.(*LocalVar); ok {
		p.declare(lv.Name)
	}
	return n
}

// parseTernary parses cond ? a : b.
func (p *Parser) parseTernary() Node {
	start := p.span()
	cond := p.parseRange()
	if p.failed() || !p.at("?") {
		return cond
	}
	p.nextToken()
	p.skipTerms()
	then := p.parseTernary()
	p.skipTerms()
	if !p.expect(":") {
		return cond
	}
	p.skipTerms()
	els := p.parseTernary()
	return &If{Span: start, Cond: cond, Then: seqOf(then), Else: seqOf(els)}
}

// parseRange parses a..b and a...b.
func (p *Parser) parseRange() Node {
	start := p.span()
	left := p.parseOrOp()
	if p.at("..") || p.at("...") {
		excl := p.at("...")
		p.nextToken()
		var right Node
		if p.startsExpr() {
			right = p.parseOrOp()
		}
		return &RangeLit{Span: start, Begin: left, End: right, Exclusive: excl}
	}
	return left
}

func (p *Parser) parseOrOp() Node {
	left := p.parseAndOp()
	for !p.failed() && p.at("||") {
		start := p.span()
		p.nextToken()
		p.skipTerms()
		left = &Or{Span: start, Left: left, Right: p.parseAndOp()}
	}
	return left
}

func (p *Parser) parseAndOp() Node {
	left := p.parseEquality()
	for !p.failed() && p.at("&&") {
		start := p.span()
		p.nextToken()
		p.skipTerms()
		left = &And{Span: start, Left: left, Right: p.parseEquality()}
	}
	return left
}

// parseBinary parses a left-associative level of binary operators.
func (p *Parser) parseBinary(next func() Node, ops ...string) Node {
	left := next()
	for !p.failed() && p.curTokenIs(TokenPunct) && p.atAny(ops) {
		start := p.span()
		op := p.curToken.Literal
		p.nextToken()
		p.skipTerms()
		left = &Call{Span: start, Recv: left, Name: op, Args: []Node{next()}}
	}
	return left
}

func (p *Parser) parseEquality() Node {
	return p.parseBinary(p.parseComparison, "<=>", "==", "===", "!=", "=~")
}

func (p *Parser) parseComparison() Node {
	return p.parseBinary(p.parseBitOr, "<", ">", "<=", ">=")
}

func (p *Parser) parseBitOr() Node {
	return p.parseBinary(p.parseBitAnd, "|", "^")
}

func (p *Parser) parseBitAnd() Node {
	return p.parseBinary(p.parseShift, "&")
}

func (p *Parser) parseShift() Node {
	return p.parseBinary(p.parseAdditive, "<<", ">>")
}

func (p *Parser) parseAdditive() Node {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

func (p *Parser) parseMultiplicative() Node {
	return p.parseBinary(p.parseUnaryMinus, "*", "/", "%")
}

// parseUnaryMinus parses -x, folding -literal into the literal.
func (p *Parser) parseUnaryMinus() Node {
	if !p.at("-") {
		return p.parsePow()
	}
	start := p.span()
	if (p.peekTokenIs(TokenInteger) || p.peekTokenIs(TokenFloat)) && !p.peekToken.SpaceBefore {
		p.nextToken()
		lit := p.parseNumber(true)
		return p.parsePowRest(p.parsePostfix(lit))
	}
	p.nextToken()
	return &Call{Span: start, Recv: p.parseUnaryMinus(), Name: "-@"}
}

func (p *Parser) parsePow() Node {
	return p.parsePowRest(p.parseUnary())
}

// parsePowRest parses a right-associative ** chain after left.
func (p *Parser) parsePowRest(left Node) Node {
	if p.failed() || !p.at("**") {
		return left
	}
	start := p.span()
	p.nextToken()
	p.skipTerms()
	return &Call{Span: start, Recv: left, Name: "**", Args: []Node{p.parseUnaryMinus()}}
}

func (p *Parser) parseUnary() Node {
	start := p.span()
	switch {
	case p.at("!"):
		p.nextToken()
		return &Not{Span: start, Expr: p.parseUnary()}
	case p.at("~"):
		p.nextToken()
		return &Call{Span: start, Recv: p.parseUnary(), Name: "~"}
	case p.at("+"):
		p.nextToken()
		return &Call{Span: start, Recv: p.parseUnary(), Name: "+@"}
	case p.at("&"):
		p.errorf("unexpected &")
		return &NilLit{Span: start}
	}
	return p.parsePostfix(p.parsePrimary())
}

// ---------------------------------------------------------------------------
// Postfix: method calls, indexing, scoped constants
// ---------------------------------------------------------------------------

func (p *Parser) parsePostfix(left Node) Node {
	for !p.failed() {
		switch {
		case p.at(".") || p.at("&."):
			safe := p.at("&.")
			p.nextToken()
			p.skipTerms()
			start := p.span()
			call := &Call{Span: start, Recv: left, SafeNav: safe}
			if p.at("(") {
				call.Name = "call"
			} else {
				call.Name = p.parseMethodName()
			}
			p.parseCallRest(call)
			left = call
		case p.at("::"):
			p.nextToken()
			start := p.span()
			switch {
			case p.curTokenIs(TokenConstant) && !(p.peekToken.Is("(") && !p.peekToken.SpaceBefore):
				left = &Const{Span: start, Scope: left, Name: p.curToken.Literal}
				p.nextToken()
			case p.curTokenIs(TokenIdentifier) || p.curTokenIs(TokenConstant):
				call := &Call{Span: start, Recv: left, Name: p.curToken.Literal}
				p.nextToken()
				p.parseCallRest(call)
				left = call
			default:
				p.errorf("unexpected %s after ::", p.describe(p.curToken))
			}
		case p.at("[") && !p.curToken.SpaceBefore:
			start := p.span()
			p.nextToken()
			args, blockArg := p.parseArgList("]")
			left = &Call{Span: start, Recv: left, Name: "[]", Args: args, BlockArg: blockArg, HasParens: true}
		default:
			return left
		}
	}
	return left
}

// parseMethodName reads the name after a dot.
func (p *Parser) parseMethodName() string {
	t := p.curToken
	switch t.Type {
	case TokenIdentifier, TokenConstant, TokenKeyword:
		p.nextToken()
		return t.Literal
	case TokenLabel:
		p.errorf("unexpected label")
		return ""
	case TokenPunct:
		switch t.Literal {
		case "+", "-", "*", "/", "%", "**", "==", "!=", "<", ">", "<=", ">=", "<=>",
			"===", "<<", ">>", "&", "|", "^", "!", "~", "=~":
			p.nextToken()
			return t.Literal
		case "[":
			p.nextToken()
			if p.expect("]") {
				return "[]"
			}
		}
	}
	p.errorf("expected method name, got %s", p.describe(t))
	return ""
}

// parseCallRest parses the arguments and block of a call whose name has
// been read.
func (p *Parser) parseCallRest(call *Call) {
	switch {
	case p.at("(") && !p.curToken.SpaceBefore:
		p.nextToken()
		call.Args, call.BlockArg = p.parseArgList(")")
		call.HasParens = true
	case p.canStartCommandArg():
		p.parseCommandArgs(call)
		if p.at("do") && p.noDo == 0 {
			call.Block = p.parseDoBlock()
		}
		return
	}
	p.parseBlock(call)
}

// parseBlock attaches a {...} or do...end block to call if one follows.
func (p *Parser) parseBlock(call *Call) {
	switch {
	case p.at("{"):
		call.Block = p.parseBraceBlock()
	case p.at("do") && p.noDo == 0:
		call.Block = p.parseDoBlock()
	}
	if call.Block != nil && call.BlockArg != nil {
		p.errorf("both block arg and actual block given")
	}
}

// canStartCommandArg reports whether the current token begins the first
// argument of a call written without parentheses.
func (p *Parser) canStartCommandArg() bool {
	t := p.curToken
	if !t.SpaceBefore {
		return false
	}
	switch t.Type {
	case TokenInteger, TokenFloat, TokenString, TokenSymbol, TokenWords, TokenSymbols,
		TokenIdentifier, TokenConstant, TokenIVar, TokenCVar, TokenGVar, TokenLabel:
		return true
	case TokenKeyword:
		switch t.Literal {
		case "nil", "true", "false", "self", "not", "def", "super", "yield", "__FILE__", "__LINE__":
			return true
		}
	case TokenPunct:
		switch t.Literal {
		case "(", "[", "->", "!":
			return true
		case "-", "*", "&", "::", "~", "**":
			return !p.peekToken.SpaceBefore && !p.peekTokenIs(TokenNewline)
		}
	}
	return false
}

// parseCommandArgs parses `foo a, b` style arguments up to the end of the
// command.
func (p *Parser) parseCommandArgs(call *Call) {
	p.noDo++
	call.Args, call.BlockArg = p.parseArgs("")
	p.noDo--
}

// parseArgList parses arguments up to close, consuming it.
func (p *Parser) parseArgList(close string) (args []Node, blockArg Node) {
	p.withDo(func() {
		p.skipTerms()
		args, blockArg = p.parseArgs(close)
		p.skipTerms()
		p.expect(close)
	})
	return args, blockArg
}

// parseArgs parses comma-separated arguments: expressions, *splats,
// &block, and trailing key: value or key => value pairs gathered into one
// hash.
func (p *Parser) parseArgs(close string) (args []Node, blockArg Node) {
	var hash *HashLit
	for !p.failed() {
		if close != "" && p.at(close) {
			break
		}
		start := p.span()
		switch {
		case p.at("*") || p.at("**"):
			p.nextToken()
			args = append(args, &Splat{Span: start, Expr: p.parseTernary()})
		case p.at("&"):
			p.nextToken()
			blockArg = p.parseTernary()
		case p.curTokenIs(TokenLabel):
			if hash == nil {
				hash = &HashLit{Span: start}
				args = append(args, hash)
			}
			key := &SymLit{Span: start, Name: p.curToken.Literal}
			p.nextToken()
			p.skipTerms()
			hash.Keys = append(hash.Keys, key)
			hash.Values = append(hash.Values, p.parseNoMulti())
		default:
			e := p.parseNoMulti()
			if p.at("=>") {
				p.nextToken()
				p.skipTerms()
				if hash == nil {
					hash = &HashLit{Span: start}
					args = append(args, hash)
				}
				hash.Keys = append(hash.Keys, e)
				hash.Values = append(hash.Values, p.parseNoMulti())
			} else {
				args = append(args, e)
			}
		}
		if close != "" {
			p.skipTerms()
		}
		if !p.accept(",") {
			break
		}
		p.skipTerms()
	}
	return args, blockArg
}

// parseNoMulti parses an expression where a comma ends the value.
func (p *Parser) parseNoMulti() Node {
	saved := p.noMulti
	p.noMulti = true
	n := p.parseNotArg()
	p.noMulti = saved
	return n
}

func (p *Parser) parseNotArg() Node {
	if p.at("not") {
		start := p.span()
		p.nextToken()
		return &Not{Span: start, Expr: p.parseExpr()}
	}
	return p.parseExpr()
}

// startsExpr reports whether the current token can begin an expression,
// for optional values after return, break and next.
func (p *Parser) startsExpr() bool {
	t := p.curToken
	switch t.Type {
	case TokenEOF, TokenNewline, TokenError, TokenLabel:
		return false
	case TokenKeyword:
		switch t.Literal {
		case "end", "if", "unless", "while", "until", "then", "do", "else", "elsif",
			"when", "and", "or", "rescue", "ensure", "in":
			return false
		}
		return true
	case TokenPunct:
		switch t.Literal {
		case "(", "[", "{", "-", "!", "->", "::", "~", "*":
			return true
		}
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Blocks and parameters
// ---------------------------------------------------------------------------

func (p *Parser) parseBraceBlock() *BlockExpr {
	b := &BlockExpr{Span: p.span()}
	p.nextToken() // {
	p.pushScope(false)
	p.withDo(func() {
		b.Params = p.parseBlockParams()
		b.Body = p.parseStatements("}")
		p.expect("}")
	})
	p.popScope()
	return b
}

func (p *Parser) parseDoBlock() *BlockExpr {
	b := &BlockExpr{Span: p.span()}
	p.nextToken() // do
	p.pushScope(false)
	p.withDo(func() {
		b.Params = p.parseBlockParams()
		b.Body = p.parseStatements("end")
		p.expect("end")
	})
	p.popScope()
	return b
}

// parseBlockParams parses |a, b| if present.
func (p *Parser) parseBlockParams() *ParamList {
	if p.accept("||") {
		return &ParamList{}
	}
	if !p.accept("|") {
		return nil
	}
	params := p.parseParamList("|")
	p.expect("|")
	return params
}

// parseParamList parses parameters up to close (not consumed). An empty
// close reads to the end of the line.
func (p *Parser) parseParamList(close string) *ParamList {
	params := &ParamList{}
	seen := make(map[string]bool)
	add := func(name string) bool {
		if seen[name] {
			p.errorf("duplicated argument name")
			return false
		}
		seen[name] = true
		p.declare(name)
		return true
	}

	for !p.failed() {
		if close != "" && p.at(close) || close == "" && p.curTokenIs(TokenNewline) {
			break
		}
		switch {
		case p.at("*"):
			p.nextToken()
			if params.Rest != "" {
				p.errorf("unexpected second splat parameter")
				return params
			}
			params.Rest = "*"
			if p.curTokenIs(TokenIdentifier) {
				params.Rest = p.curToken.Literal
				add(params.Rest)
				p.nextToken()
			}
		case p.at("&"):
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.errorf("expected block parameter name")
				return params
			}
			params.Block = p.curToken.Literal
			add(params.Block)
			p.nextToken()
		case p.at("("):
			p.nextToken()
			var names []string
			for p.curTokenIs(TokenIdentifier) {
				names = append(names, p.curToken.Literal)
				add(p.curToken.Literal)
				p.nextToken()
				if !p.accept(",") {
					break
				}
			}
			p.expect(")")
			if params.Destructure == nil {
				params.Destructure = make(map[int][]string)
			}
			params.Destructure[len(params.Required)] = names
			params.Required = append(params.Required, "("+strings.Join(names, ",")+")")
		case p.curTokenIs(TokenIdentifier):
			name := p.curToken.Literal
			add(name)
			p.nextToken()
			if p.accept("=") {
				var def Node
				if close == "|" {
					def = p.parseBitAnd()
				} else {
					def = p.parseTernary()
				}
				params.Optional = append(params.Optional, Param{Name: name, Default: def})
			} else if params.Rest != "" || len(params.Optional) > 0 {
				params.Post = append(params.Post, name)
			} else {
				params.Required = append(params.Required, name)
			}
		case p.curTokenIs(TokenLabel):
			p.errorf("keyword arguments are not supported")
			return params
		default:
			p.errorf("unexpected %s in parameter list", p.describe(p.curToken))
			return params
		}
		if !p.accept(",") {
			break
		}
		p.skipTerms()
	}
	return params
}

// ---------------------------------------------------------------------------
// Primary expressions
// ---------------------------------------------------------------------------

func (p *Parser) parsePrimary() Node {
	start := p.span()
	t := p.curToken

	switch t.Type {
	case TokenInteger, TokenFloat:
		return p.parseNumber(false)
	case TokenString:
		return p.parseString()
	case TokenSymbol:
		p.nextToken()
		return &SymLit{Span: start, Name: t.Literal}
	case TokenWords, TokenSymbols:
		p.nextToken()
		arr := &ArrayLit{Span: start}
		for _, w := range t.Words {
			if t.Type == TokenWords {
				arr.Elems = append(arr.Elems, &StrLit{Span: start, Value: w})
			} else {
				arr.Elems = append(arr.Elems, &SymLit{Span: start, Name: w})
			}
		}
		return arr
	case TokenIVar:
		p.nextToken()
		return &IVar{Span: start, Name: t.Literal}
	case TokenCVar:
		p.nextToken()
		return &CVar{Span: start, Name: t.Literal}
	case TokenGVar:
		p.nextToken()
		return &GVar{Span: start, Name: t.Literal}
	case TokenConstant:
		return p.parseConstant()
	case TokenIdentifier:
		return p.parseIdentifier()
	case TokenKeyword:
		return p.parseKeyword()
	case TokenPunct:
		return p.parsePunctPrimary()
	case TokenLabel:
		p.errorf("unexpected label %s:", t.Literal)
	case TokenError:
		p.errorf("%s", t.Literal)
	default:
		p.errorf("unexpected %s", p.describe(t))
	}
	return &NilLit{Span: start}
}

// parseNumber parses the current integer or float token.
func (p *Parser) parseNumber(negative bool) Node {
	start := p.span()
	t := p.curToken
	p.nextToken()
	lit := t.Literal
	if negative {
		lit = "-" + lit
	}
	if t.Type == TokenFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.errorAt(t.Pos, "invalid float literal %s", t.Literal)
		}
		return &FloatLit{Span: start, Value: f}
	}
	n, ok := new(big.Int).SetString(lit, 0)
	if !ok {
		p.errorAt(t.Pos, "invalid integer literal %s", t.Literal)
		return &IntLit{Span: start, Value: vm.FromSmallInt(0)}
	}
	return &IntLit{Span: start, Value: vm.FromBigInt(n)}
}

// parseString builds a StrLit, or a DStr when the token interpolates.
func (p *Parser) parseString() Node {
	start := p.span()
	t := p.curToken
	p.nextToken()
	if len(t.Parts) == 1 && !t.Parts[0].Code {
		return &StrLit{Span: start, Value: t.Parts[0].Text}
	}
	d := &DStr{Span: start}
	for _, part := range t.Parts {
		if !part.Code {
			d.Parts = append(d.Parts, &StrLit{Span: start, Value: part.Text})
			continue
		}
		sub := newParser(NewLexerAt(part.Text, part.Pos.Line, part.Pos.Column-1), p.file, p.scope)
		body := sub.parseStatements()
		if !sub.failed() && !sub.curTokenIs(TokenEOF) {
			sub.errorf("unexpected %s in interpolation", sub.describe(sub.curToken))
		}
		p.errors = append(p.errors, sub.errors...)
		d.Parts = append(d.Parts, &Begin{Span: Span{Start: part.Pos}, Body: body})
	}
	return d
}

// parseConstant parses Name, or Name(args) as a method call.
func (p *Parser) parseConstant() Node {
	start := p.span()
	name := p.curToken.Literal
	p.nextToken()
	if p.at("(") && !p.curToken.SpaceBefore {
		call := &Call{Span: start, Name: name}
		p.parseCallRest(call)
		return call
	}
	if p.curTokenIs(TokenString) && p.curToken.SpaceBefore {
		// Integer "42"
		call := &Call{Span: start, Name: name}
		p.parseCommandArgs(call)
		return call
	}
	return &Const{Span: start, Name: name}
}

// parseIdentifier parses a local variable or a call on self.
func (p *Parser) parseIdentifier() Node {
	start := p.span()
	name := p.curToken.Literal
	p.nextToken()

	if name == "defined?" {
		var expr Node
		if p.at("(") {
			p.nextToken()
			p.withDo(func() {
				p.skipTerms()
				expr = p.parseExprStmt()
				p.skipTerms()
				p.expect(")")
			})
		} else {
			expr = p.parseUnary()
		}
		return &Defined{Span: start, Expr: expr}
	}

	if p.isLocal(name) && !(p.at("(") && !p.curToken.SpaceBefore) {
		return &LocalVar{Span: start, Name: name}
	}
	call := &Call{Span: start, Name: name}
	p.parseCallRest(call)
	return call
}

func (p *Parser) parseKeyword() Node {
	start := p.span()
	switch p.curToken.Literal {
	case "nil":
		p.nextToken()
		return &NilLit{Span: start}
	case "true":
		p.nextToken()
		return &TrueLit{Span: start}
	case "false":
		p.nextToken()
		return &FalseLit{Span: start}
	case "self":
		p.nextToken()
		return &SelfExpr{Span: start}
	case "__FILE__":
		p.nextToken()
		return &FileExpr{Span: start}
	case "__LINE__":
		p.nextToken()
		return &LineExpr{Span: start}
	case "def":
		return p.parseDef()
	case "class":
		return p.parseClass()
	case "module":
		return p.parseModule()
	case "if":
		return p.parseIf()
	case "unless":
		return p.parseUnless()
	case "while", "until":
		return p.parseWhile()
	case "case":
		return p.parseCase()
	case "for":
		return p.parseFor()
	case "begin":
		return p.parseBegin()
	case "return":
		p.nextToken()
		return &Return{Span: start, Value: p.parseJumpValue()}
	case "break":
		p.nextToken()
		return &Break{Span: start, Value: p.parseJumpValue()}
	case "next":
		p.nextToken()
		return &Next{Span: start, Value: p.parseJumpValue()}
	case "yield":
		return p.parseYield()
	case "super":
		return p.parseSuper()
	case "alias":
		return p.parseAlias()
	case "undef":
		return p.parseUndef()
	case "not":
		p.nextToken()
		return &Not{Span: start, Expr: p.parseExpr()}
	case "rescue", "ensure", "retry", "redo":
		p.errorf("%s is not supported", p.curToken.Literal)
		return &NilLit{Span: start}
	}
	p.errorf("unexpected keyword %s", p.curToken.Literal)
	return &NilLit{Span: start}
}

func (p *Parser) parsePunctPrimary() Node {
	start := p.span()
	switch p.curToken.Literal {
	case "(":
		p.nextToken()
		var body *Seq
		p.withDo(func() {
			body = p.parseStatements(")")
			p.expect(")")
		})
		if len(body.Stmts) == 1 {
			return body.Stmts[0]
		}
		return &Begin{Span: start, Body: body}
	case "[":
		p.nextToken()
		elems, blockArg := p.parseArgList("]")
		if blockArg != nil {
			p.errorAt(start.Start, "block argument should not be given")
		}
		return &ArrayLit{Span: start, Elems: elems}
	case "{":
		return p.parseHash()
	case "->":
		return p.parseLambda()
	case "::":
		p.nextToken()
		if !p.curTokenIs(TokenConstant) {
			p.errorf("expected constant after ::")
			return &NilLit{Span: start}
		}
		name := p.curToken.Literal
		p.nextToken()
		return &Const{Span: start, Top: true, Name: name}
	case "..", "...":
		excl := p.at("...")
		p.nextToken()
		return &RangeLit{Span: start, End: p.parseOrOp(), Exclusive: excl}
	}
	p.errorf("unexpected %s", p.describe(p.curToken))
	return &NilLit{Span: start}
}

// parseHash parses {k => v, key: v}.
func (p *Parser) parseHash() Node {
	h := &HashLit{Span: p.span()}
	p.nextToken() // {
	p.withDo(func() {
		p.skipTerms()
		for !p.failed() && !p.at("}") {
			if p.curTokenIs(TokenLabel) {
				h.Keys = append(h.Keys, &SymLit{Span: p.span(), Name: p.curToken.Literal})
				p.nextToken()
			} else {
				h.Keys = append(h.Keys, p.parseNoMulti())
				p.skipTerms()
				if !p.expect("=>") {
					return
				}
			}
			p.skipTerms()
			h.Values = append(h.Values, p.parseNoMulti())
			p.skipTerms()
			if !p.accept(",") {
				break
			}
			p.skipTerms()
		}
		p.expect("}")
	})
	return h
}

// parseLambda parses ->(params) { body } into a call to lambda.
func (p *Parser) parseLambda() Node {
	start := p.span()
	p.nextToken() // ->
	p.pushScope(false)
	defer p.popScope()

	var params *ParamList
	switch {
	case p.at("("):
		p.nextToken()
		params = p.parseParamList(")")
		p.expect(")")
	case p.curTokenIs(TokenIdentifier) || p.at("*") || p.at("&"):
		params = p.parseParamList("{")
	}

	b := &BlockExpr{Span: p.span(), Params: params}
	p.withDo(func() {
		switch {
		case p.accept("{"):
			b.Body = p.parseStatements("}")
			p.expect("}")
		case p.accept("do"):
			b.Body = p.parseStatements("end")
			p.expect("end")
		default:
			p.errorf("expected lambda body")
		}
	})
	if b.Params == nil {
		b.Params = &ParamList{}
	}
	return &Call{Span: start, Name: "lambda", Block: b}
}

// parseJumpValue parses the optional value of return, break or next.
func (p *Parser) parseJumpValue() Node {
	if !p.startsExpr() {
		return nil
	}
	start := p.span()
	v := p.parseExpr()
	if p.at(",") {
		p.nextToken()
		rest := p.parseValueList()
		return &ArrayLit{Span: start, Elems: append([]Node{v}, rest...)}
	}
	return v
}

func (p *Parser) parseYield() Node {
	y := &Yield{Span: p.span()}
	p.nextToken()
	switch {
	case p.at("(") && !p.curToken.SpaceBefore:
		p.nextToken()
		var blockArg Node
		y.Args, blockArg = p.parseArgList(")")
		if blockArg != nil {
			p.errorAt(y.Start, "block argument should not be given")
		}
	case p.canStartCommandArg():
		p.noDo++
		y.Args, _ = p.parseArgs("")
		p.noDo--
	}
	return y
}

func (p *Parser) parseSuper() Node {
	s := &Super{Span: p.span()}
	p.nextToken()
	call := &Call{}
	switch {
	case p.at("(") && !p.curToken.SpaceBefore:
		p.nextToken()
		s.Args, s.BlockArg = p.parseArgList(")")
		s.HasArgs = true
	case p.canStartCommandArg():
		p.noDo++
		s.Args, s.BlockArg = p.parseArgs("")
		p.noDo--
		s.HasArgs = true
	}
	call.BlockArg = s.BlockArg
	p.parseBlock(call)
	s.Block = call.Block
	return s
}

// parseAliasName reads a method name for alias or undef.
func (p *Parser) parseAliasName() string {
	t := p.curToken
	switch t.Type {
	case TokenIdentifier, TokenConstant, TokenKeyword, TokenSymbol:
		p.nextToken()
		return t.Literal
	case TokenPunct:
		return p.parseMethodName()
	}
	p.errorf("expected method name, got %s", p.describe(t))
	return ""
}

func (p *Parser) parseAlias() Node {
	a := &Alias{Span: p.span()}
	p.nextToken()
	a.New = p.parseAliasName()
	a.Old = p.parseAliasName()
	return a
}

func (p *Parser) parseUndef() Node {
	u := &Undef{Span: p.span()}
	p.nextToken()
	for !p.failed() {
		u.Names = append(u.Names, p.parseAliasName())
		if !p.accept(",") {
			break
		}
	}
	return u
}

// ---------------------------------------------------------------------------
// Control structures
// ---------------------------------------------------------------------------

// parseCond parses a condition followed by then, do or a newline.
func (p *Parser) parseCond(sep string) Node {
	p.noDo++
	cond := p.parseExprStmt()
	p.noDo--
	if !p.accept(sep) {
		if !p.curTokenIs(TokenNewline) {
			p.errorf("unexpected %s, expecting '%s' or end of line", p.describe(p.curToken), sep)
		}
	}
	return cond
}

func (p *Parser) parseIf() Node {
	n := &If{Span: p.span()}
	p.nextToken() // if / elsif
	n.Cond = p.parseCond("then")
	n.Then = p.parseStatements("elsif", "else", "end")
	switch {
	case p.at("elsif"):
		n.Else = p.parseIf()
		return n
	case p.accept("else"):
		n.Else = p.parseStatements("end")
	}
	p.expect("end")
	return n
}

func (p *Parser) parseUnless() Node {
	start := p.span()
	p.nextToken()
	cond := p.parseCond("then")
	n := &If{Span: start, Cond: &Not{Span: start, Expr: cond}}
	n.Then = p.parseStatements("else", "end")
	if p.accept("else") {
		n.Else = p.parseStatements("end")
	}
	p.expect("end")
	return n
}

func (p *Parser) parseWhile() Node {
	n := &While{Span: p.span(), Until: p.at("until")}
	p.nextToken()
	n.Cond = p.parseCond("do")
	n.Body = p.parseStatements("end")
	p.expect("end")
	return n
}

func (p *Parser) parseFor() Node {
	n := &For{Span: p.span()}
	p.nextToken()
	for p.curTokenIs(TokenIdentifier) {
		n.Vars = append(n.Vars, p.curToken.Literal)
		p.declare(p.curToken.Literal)
		p.nextToken()
		if !p.accept(",") {
			break
		}
	}
	if len(n.Vars) == 0 {
		p.errorf("expected loop variable")
		return n
	}
	if !p.expect("in") {
		return n
	}
	n.Iter = p.parseCond("do")
	n.Body = p.parseStatements("end")
	p.expect("end")
	return n
}

func (p *Parser) parseCase() Node {
	n := &Case{Span: p.span()}
	p.nextToken()
	if !p.curTokenIs(TokenNewline) {
		n.Subject = p.parseExprStmt()
	}
	p.skipTerms()
	for !p.failed() && p.at("when") {
		w := &When{Span: p.span()}
		p.nextToken()
		for !p.failed() {
			if p.at("*") {
				start := p.span()
				p.nextToken()
				w.Conds = append(w.Conds, &Splat{Span: start, Expr: p.parseTernary()})
			} else {
				w.Conds = append(w.Conds, p.parseTernary())
			}
			if !p.accept(",") {
				break
			}
			p.skipTerms()
		}
		if !p.accept("then") && !p.curTokenIs(TokenNewline) {
			p.errorf("unexpected %s, expecting 'then' or end of line", p.describe(p.curToken))
		}
		w.Body = p.parseStatements("when", "else", "end")
		n.Whens = append(n.Whens, w)
	}
	if len(n.Whens) == 0 && !p.failed() {
		p.errorf("case without when")
	}
	if p.accept("else") {
		n.Else = p.parseStatements("end")
	}
	p.expect("end")
	return n
}

func (p *Parser) parseBegin() Node {
	n := &Begin{Span: p.span()}
	p.nextToken()
	p.withDo(func() {
		n.Body = p.parseStatements("end", "rescue", "ensure")
	})
	if p.at("rescue") || p.at("ensure") {
		p.errorf("%s is not supported", p.curToken.Literal)
		return n
	}
	p.expect("end")
	return n
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

func (p *Parser) parseDef() Node {
	d := &Def{Span: p.span()}
	p.nextToken() // def

	// def self.name / def Const.name
	if (p.curTokenIs(TokenIdentifier) || p.curTokenIs(TokenConstant)) && p.peekToken.Is(".") {
		recvTok := p.curToken
		switch {
		case recvTok.Literal == "self":
			d.Singleton = &SelfExpr{Span: Span{Start: recvTok.Pos}}
		case isUpper(recvTok.Literal[0]):
			d.Singleton = &Const{Span: Span{Start: recvTok.Pos}, Name: recvTok.Literal}
		default:
			d.Singleton = &LocalVar{Span: Span{Start: recvTok.Pos}, Name: recvTok.Literal}
		}
		p.nextToken()
		p.nextToken()
	}
	d.Name = p.parseDefName()
	if p.failed() {
		return d
	}

	p.pushScope(true)
	defer p.popScope()
	p.withDo(func() {
		switch {
		case p.at("("):
			p.nextToken()
			p.skipTerms()
			d.Params = p.parseParamList(")")
			p.skipTerms()
			p.expect(")")
		case !p.curTokenIs(TokenNewline):
			d.Params = p.parseParamList("")
		}
		if d.Params == nil {
			d.Params = &ParamList{}
		}
		d.Body = p.parseStatements("end")
		if p.at("rescue") || p.at("ensure") {
			p.errorf("%s is not supported", p.curToken.Literal)
			return
		}
		p.expect("end")
	})
	return d
}

// parseDefName reads the name after def, including setters (name=),
// operators and the index methods [] and []=.
func (p *Parser) parseDefName() string {
	t := p.curToken
	switch t.Type {
	case TokenIdentifier, TokenConstant:
		p.nextToken()
		if p.at("=") && !p.curToken.SpaceBefore && p.peekToken.Is("(") && !p.peekToken.SpaceBefore {
			p.nextToken()
			return t.Literal + "="
		}
		return t.Literal
	case TokenPunct:
		switch t.Literal {
		case "+", "-", "!", "~":
			p.nextToken()
			if p.at("@") && !p.curToken.SpaceBefore {
				p.nextToken()
				if t.Literal == "+" || t.Literal == "-" {
					return t.Literal + "@"
				}
			}
			return t.Literal
		case "[":
			p.nextToken()
			if !p.expect("]") {
				return ""
			}
			if p.at("=") && !p.curToken.SpaceBefore {
				p.nextToken()
				return "[]="
			}
			return "[]"
		case "*", "/", "%", "**", "==", "!=", "<", ">", "<=", ">=", "<=>", "===",
			"<<", ">>", "&", "|", "^", "=~":
			p.nextToken()
			return t.Literal
		}
	}
	p.errorf("unexpected %s after def", p.describe(t))
	return ""
}

// parseCPath parses a class or module path: Name, Scope::Name, ::Name.
func (p *Parser) parseCPath() *Const {
	start := p.span()
	var c *Const
	switch {
	case p.accept("::"):
		if !p.curTokenIs(TokenConstant) {
			p.errorf("class/module name must be CONSTANT")
			return &Const{Span: start}
		}
		c = &Const{Span: start, Top: true, Name: p.curToken.Literal}
	case p.curTokenIs(TokenConstant):
		c = &Const{Span: start, Name: p.curToken.Literal}
	default:
		p.errorf("class/module name must be CONSTANT")
		return &Const{Span: start}
	}
	p.nextToken()
	for p.at("::") {
		p.nextToken()
		if !p.curTokenIs(TokenConstant) {
			p.errorf("class/module name must be CONSTANT")
			return c
		}
		c = &Const{Span: p.span(), Scope: c, Name: p.curToken.Literal}
		p.nextToken()
	}
	return c
}

func (p *Parser) parseClass() Node {
	start := p.span()
	p.nextToken() // class

	if p.accept("<<") {
		s := &SClass{Span: start}
		s.Target = p.parseExpr()
		s.Body = p.parseBody()
		return s
	}

	c := &ClassDef{Span: start, Path: p.parseCPath()}
	if p.accept("<") {
		c.Super = p.parseExpr()
	}
	c.Body = p.parseBody()
	return c
}

func (p *Parser) parseModule() Node {
	m := &ModuleDef{Span: p.span()}
	p.nextToken() // module
	m.Path = p.parseCPath()
	m.Body = p.parseBody()
	return m
}

// parseBody parses a class or module body in a fresh local scope.
func (p *Parser) parseBody() *Seq {
	var body *Seq
	p.pushScope(true)
	p.withDo(func() {
		body = p.parseStatements("end")
		p.expect("end")
	})
	p.popScope()
	return body
}

// describeNode names a node in error messages.
func describeNode(n Node) string {
	switch n := n.(type) {
	case *Call:
		return "method call " + n.Name
	case *NilLit:
		return "nil"
	case *SelfExpr:
		return "self"
	}
	return strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", n), "*compiler."))
}
