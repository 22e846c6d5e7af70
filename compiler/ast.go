package compiler

import "github.com/chazu/rubric/vm"

// ---------------------------------------------------------------------------
// AST Node interfaces
// ---------------------------------------------------------------------------

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() Position
	node()
}

// Span records where a node starts.
type Span struct {
	Start Position
}

func (s Span) Pos() Position { return s.Start }
func (Span) node()           {}

// ---------------------------------------------------------------------------
// Program and sequences
// ---------------------------------------------------------------------------

// Program is a parsed source file.
type Program struct {
	Span
	File string
	Body *Seq
}

// Seq is a statement list; its value is the value of the last statement.
type Seq struct {
	Span
	Stmts []Node
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

type NilLit struct{ Span }
type TrueLit struct{ Span }
type FalseLit struct{ Span }
type SelfExpr struct{ Span }

// FileExpr is __FILE__.
type FileExpr struct{ Span }

// LineExpr is __LINE__.
type LineExpr struct{ Span }

// IntLit holds a parsed integer, small or big.
type IntLit struct {
	Span
	Value vm.Value
}

type FloatLit struct {
	Span
	Value float64
}

// StrLit is a string without interpolation. Each evaluation yields a new
// mutable string.
type StrLit struct {
	Span
	Value string
}

// DStr is an interpolated string: literal parts and expressions.
type DStr struct {
	Span
	Parts []Node
}

type SymLit struct {
	Span
	Name string
}

type ArrayLit struct {
	Span
	Elems []Node // may contain *Splat
}

// HashLit is {k => v}; Keys and Values are parallel.
type HashLit struct {
	Span
	Keys   []Node
	Values []Node
}

type RangeLit struct {
	Span
	Begin, End Node // either may be nil
	Exclusive  bool
}

// ---------------------------------------------------------------------------
// Variables and constants
// ---------------------------------------------------------------------------

type LocalVar struct {
	Span
	Name string
}

type IVar struct {
	Span
	Name string
}

type CVar struct {
	Span
	Name string
}

type GVar struct {
	Span
	Name string
}

// Const is Name, Scope::Name or ::Name.
type Const struct {
	Span
	Scope Node // nil for a lexical lookup
	Top   bool // ::Name
	Name  string
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

// Assign stores Value into Target: a LocalVar, IVar, CVar, GVar, Const,
// or a Call naming an attribute writer or []=.
type Assign struct {
	Span
	Target Node
	Value  Node
}

// MultiAssign is a, b = c, d. Splat marks the target collecting the rest.
type MultiAssign struct {
	Span
	Targets []Node
	Splat   int // index of the *target, or -1
	Value   Node
}

// OpAssign is target op= value; ||= and &&= short-circuit.
type OpAssign struct {
	Span
	Target Node
	Op     string // "+", "||", "&&", ...
	Value  Node
}

// ---------------------------------------------------------------------------
// Logic
// ---------------------------------------------------------------------------

type And struct {
	Span
	Left, Right Node
}

type Or struct {
	Span
	Left, Right Node
}

type Not struct {
	Span
	Expr Node
}

// Defined is defined?(expr).
type Defined struct {
	Span
	Expr Node
}

// ---------------------------------------------------------------------------
// Calls and blocks
// ---------------------------------------------------------------------------

// Call is a message send. A nil Recv is an implicit self send.
type Call struct {
	Span
	Recv      Node
	Name      string
	Args      []Node // may contain *Splat and a trailing *HashLit
	BlockArg  Node   // &expr
	Block     *BlockExpr
	HasParens bool
	SafeNav   bool // recv&.name
}

// Splat is *expr in an argument list, array literal or assignment.
type Splat struct {
	Span
	Expr Node
}

// BlockExpr is a do...end or {...} block, or a -> literal.
type BlockExpr struct {
	Span
	Params *ParamList
	Body   *Seq
}

// Param is an optional parameter with its default.
type Param struct {
	Name    string
	Default Node
}

// ParamList is a method or block parameter list.
type ParamList struct {
	Required []string
	Optional []Param
	Rest     string // "" when absent; "*" for an anonymous splat
	Post     []string
	Block    string

	// Destructure maps a required position to nested names, for |(a, b)|.
	Destructure map[int][]string
}

// Arity returns the arity in the Proc convention.
func (p *ParamList) Arity() int {
	if p == nil {
		return 0
	}
	n := len(p.Required) + len(p.Post)
	if len(p.Optional) > 0 || p.Rest != "" {
		return -(n + 1)
	}
	return n
}

// Names returns every local the parameter list introduces.
func (p *ParamList) Names() []string {
	if p == nil {
		return nil
	}
	var names []string
	for i, r := range p.Required {
		if nested, ok := p.Destructure[i]; ok {
			names = append(names, nested...)
			continue
		}
		names = append(names, r)
	}
	for _, o := range p.Optional {
		names = append(names, o.Name)
	}
	if p.Rest != "" && p.Rest != "*" {
		names = append(names, p.Rest)
	}
	names = append(names, p.Post...)
	if p.Block != "" {
		names = append(names, p.Block)
	}
	return names
}

// Yield is yield(args).
type Yield struct {
	Span
	Args []Node
}

// Super is super or super(args). Without HasArgs the current method's
// arguments are passed along.
type Super struct {
	Span
	Args     []Node
	HasArgs  bool
	BlockArg Node
	Block    *BlockExpr
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// If covers if, unless (with the branches swapped), elsif chains, ternaries
// and modifiers.
type If struct {
	Span
	Cond Node
	Then *Seq
	Else Node // *Seq, *If or nil
}

// While covers while and until; DoWhile is begin...end while.
type While struct {
	Span
	Cond    Node
	Body    *Seq
	Until   bool
	DoWhile bool
}

// For is for x in expr.
type For struct {
	Span
	Vars []string
	Iter Node
	Body *Seq
}

type When struct {
	Span
	Conds []Node
	Body  *Seq
}

// Case is case subject when ... else ... end. A nil Subject tests each
// condition for truthiness.
type Case struct {
	Span
	Subject Node
	Whens   []*When
	Else    *Seq
}

type Break struct {
	Span
	Value Node
}

type Next struct {
	Span
	Value Node
}

type Return struct {
	Span
	Value Node
}

// Begin is begin...end, which only groups statements.
type Begin struct {
	Span
	Body *Seq
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

// Def is def name ... end; Singleton is the receiver of def self.name.
type Def struct {
	Span
	Singleton Node
	Name      string
	Params    *ParamList
	Body      *Seq
}

// ClassDef is class Path < Super ... end.
type ClassDef struct {
	Span
	Path  *Const
	Super Node
	Body  *Seq
}

// SClass is class << expr ... end.
type SClass struct {
	Span
	Target Node
	Body   *Seq
}

type ModuleDef struct {
	Span
	Path *Const
	Body *Seq
}

type Alias struct {
	Span
	New, Old string
}

type Undef struct {
	Span
	Names []string
}
