/*
Copyright © 2024 the langc authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package ast defines the syntax tree the parser builds and the later
// stages (semantic analyzer, optimizer, code generator) walk and
// annotate in place. Grounded on original_source/ast_nodes.h's tagged
// unions, reshaped into Go interfaces: each original enum-tagged union
// (primary_expression_t, statement_t, declaration_t) becomes an
// interface with one implementing struct per original case, which
// lets every later pass use a type switch instead of checking a tag
// field by hand.
package ast

import (
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

// Node is implemented by every tree node; Span reports its source
// extent for diagnostics.
type Node interface {
	Span() token.Span
}

// Ident mirrors ast_nodes.h's ident_t: a name token plus the semantic
// bookkeeping the analyzer fills in (resolved type and slot).
type Ident struct {
	Name *token.Token

	// Filled in by internal/semant.
	Type     types.Type
	Global   bool
	Resolved bool
	SlotID   int // local_id or global_id, disjoint by the Global flag
}

func (i *Ident) Span() token.Span { return i.Name.Span }

// ---- Expressions ----

// Expr is any node that yields a value. The parser produces these
// untyped; the semantic analyzer fills ValueType bottom-up and may
// wrap a node in a Cast where an implicit conversion was required.
type Expr interface {
	Node
	exprNode()
	ValueType() types.Type
	SetValueType(types.Type)
}

// ExprBase factors the span/type bookkeeping shared by every Expr
// implementation.
type ExprBase struct {
	At  token.Span
	Typ types.Type
}

func (e *ExprBase) Span() token.Span          { return e.At }
func (e *ExprBase) ValueType() types.Type     { return e.Typ }
func (e *ExprBase) SetValueType(t types.Type) { e.Typ = t }
func (*ExprBase) exprNode()                   {}

// AtSpan builds an ExprBase anchored at span, for embedding when
// constructing a node from outside the package, e.g.
// &ast.IntLit{ExprBase: ast.AtSpan(tok.Span), Tok: tok}.
func AtSpan(span token.Span) ExprBase { return ExprBase{At: span} }

// Enclosed is a parenthesized sub-expression, `(expr)`. The AST
// optimizer unwraps chains of these when the enclosed form isn't
// needed to preserve grouping any more.
type Enclosed struct {
	ExprBase
	Inner Expr
}

// IntLit, FloatLit and StringLit carry their literal token directly;
// NullLit carries only its span (the original's null_expr_t is empty).
type IntLit struct {
	ExprBase
	Tok *token.Token
}

type FloatLit struct {
	ExprBase
	Tok *token.Token
}

type StringLit struct {
	ExprBase
	Tok *token.Token
}

type NullLit struct{ ExprBase }

// IdentExpr references a declared variable, parameter or local.
type IdentExpr struct {
	ExprBase
	Ident *Ident
}

// UnaryExpr is a prefix operator applied to an operand: `- x`, `! x`,
// `~ x` (bitwise not), `++x`/`--x` are desugared by the parser into
// Assign nodes before this node type is ever produced for them.
type UnaryExpr struct {
	ExprBase
	Op      *token.Token
	OpCode  types.Op
	Operand Expr

	// Overload names the operator-overload function internal/semant
	// resolved this application to, nil when built-in unary rules apply.
	Overload *Function
}

// CastExpr is an explicit `(TYPE) expr` cast.
type CastExpr struct {
	ExprBase
	CastTok *token.Token
	Target  types.Type
	Operand Expr
}

// BinOp is a binary operator application; left-associative chains are
// represented as a left-leaning tree, matching how parseExpr builds
// them.
type BinOp struct {
	ExprBase
	Left, Right Expr
	Op          *token.Token
	OpCode      types.Op

	// Overload names the operator-overload function internal/semant
	// resolved this application to, nil when built-in binary rules apply.
	Overload *Function
}

// Assign is `lhs = rhs`. Compound assignment operators (`+=` etc.) are
// desugared by the parser into `lhs = lhs OP rhs` before this node is
// built, so by the time the analyzer sees it Expr is already the full
// right-hand side. Discard marks a bare expression-statement wrapping
// of an assignment whose result value nobody consumes (still emitted
// for its side effect).
type Assign struct {
	ExprBase
	Target  Expr // must be an lvalue: IdentExpr, Subscript, FieldAccess, Deref
	Value   Expr
	EqTok   *token.Token
	Discard bool
}

// Ternary is `cond ? t : f`.
type Ternary struct {
	ExprBase
	Cond, True, False Expr
}

// Call is a function invocation, built directly for an ordinary
// `f(args)` and also for `a.method(args)` after the parser's
// Uniform-Function-Call-Syntax rewrite splices `a` in as the first
// argument.
type Call struct {
	ExprBase
	Indirect bool // true if Callee is a function-typed expression, not a named function
	Callee   Expr
	Args     []Expr

	// Builtin names the resolved builtin this call dispatches to, set
	// by internal/semant; empty for a call to a user function or an
	// indirect call through a function value.
	Builtin string
}

// Subscript is `arr[index]`.
type Subscript struct {
	ExprBase
	Array Expr
	Index Expr
}

// Slice is `arr[lo..hi]`.
type Slice struct {
	ExprBase
	Array    Expr
	Lo, Hi   Expr
}

// ArrayRange is the standalone range-generator primary `[a..b]` (as
// opposed to Slice's postfix `arr[a..b]`).
type ArrayRange struct {
	ExprBase
	Lo, Hi Expr
}

// FieldAccess is `s.field` or `s->field` (Indirect == true for `->`,
// i.e. the base is a pointer and gets dereferenced first).
type FieldAccess struct {
	ExprBase
	Base     Expr
	Indirect bool
	Field    *token.Token

	// Resolved is the struct field this access names, filled by
	// internal/semant once Base's struct type is known.
	Resolved types.Field
}

// Deref is `*p`; Optional marks the `p?.` / optional-chaining access
// form the original calls is_optional_access.
type Deref struct {
	ExprBase
	Star     *token.Token
	Optional bool
	Operand  Expr
}

// AddrOf is `&x`.
type AddrOf struct {
	ExprBase
	Amp     *token.Token
	Operand Expr
}

// AsmExpr is an inline-assembly expression: `asm("CODE", args... : type)`.
type AsmExpr struct {
	ExprBase
	Code    string
	Args    []Expr
	RetType types.Type
}

// MatchPatternKind discriminates a match arm's pattern.
type MatchPatternKind struct{ k int }

var (
	PatIntLit = MatchPatternKind{0}
	PatStrLit = MatchPatternKind{1}
	PatIdent  = MatchPatternKind{2}
	PatRange  = MatchPatternKind{3}
)

// MatchPattern is one pattern in a match case's pattern list.
type MatchPattern struct {
	Kind       MatchPatternKind
	IntTok     *token.Token // PatIntLit
	StrTok     *token.Token // PatStrLit
	Ident      *Ident       // PatIdent
	Lo, Hi     *token.Token // PatRange
	ValueType  types.Type
	SpanVal    token.Span
}

// MatchCase is one `pat | pat => expr` arm, or the wildcard `_ => expr`.
type MatchCase struct {
	Wildcard bool
	Patterns []MatchPattern
	Expr     Expr
	ValueType types.Type
	SpanVal   token.Span
}

// MatchExpr is `match(e) { cases... }`.
type MatchExpr struct {
	ExprBase
	Tested Expr
	Cases  []MatchCase

	// Filled in by internal/semant: a synthesized local holding the
	// scrutinee's value, unless Tested is already a bare local ident in
	// which case that slot is reused.
	ScrutineeSlot int
}

// SizeofExpr is `sizeof(TYPE)` or `sizeof(expr)`.
type SizeofExpr struct {
	ExprBase
	IsExpr bool
	Operand Expr       // IsExpr == true
	Type    types.Type // IsExpr == false
}

// NewExpr is `new TYPE`.
type NewExpr struct {
	ExprBase
	Type types.Type
}

// RandomKind discriminates the `%expr`/`%l..r` random-expression forms.
type RandomKind struct{ k int }

var (
	RandInt   = RandomKind{0}
	RandFloat = RandomKind{1}
	RandRange = RandomKind{2}
	RandArray = RandomKind{3}
)

// RandomExpr is `%expr` (single bound) or `%l..r` (ranged).
type RandomExpr struct {
	ExprBase
	Kind         RandomKind
	IsRange      bool
	Single       Expr // IsRange == false
	Lo, Hi       Expr // IsRange == true
}

// ArrayLit is `{e, e, ...}`.
type ArrayLit struct {
	ExprBase
	Elements []Expr
}

// StructInit is `NAME(e, e, ...)` once the parser has resolved NAME to
// a struct type rather than a function call.
type StructInit struct {
	ExprBase
	Type     types.Type
	Elements []Expr
}

// ---- Statements ----

// Stmt is any node appearing in a statement list.
type Stmt interface {
	Node
	stmtNode()
}

type StmtBase struct{ At token.Span }

func (s *StmtBase) Span() token.Span { return s.At }
func (*StmtBase) stmtNode()          {}

// StmtAt builds a StmtBase anchored at span.
func StmtAt(span token.Span) StmtBase { return StmtBase{At: span} }

// ExprStmt is a bare expression evaluated for side effect, e.g. a
// discarded assignment or a call.
type ExprStmt struct {
	StmtBase
	X Expr
}

// EmptyStmt is a lone `;`.
type EmptyStmt struct{ StmtBase }

// ReturnStmt is `return;` (Empty == true) or `return expr;`.
type ReturnStmt struct {
	StmtBase
	Empty bool
	Tok   *token.Token
	Value Expr
}

// DeclStmt wraps a Decl appearing where a statement is expected (a
// local variable, typedef or struct declaration inside a block).
type DeclStmt struct {
	StmtBase
	Decl Decl
}

// Block is a brace-delimited statement list.
type Block struct {
	StmtBase
	Stmts []Stmt
}

// IfStmt is `if (test) stmt [else elseStmt]`.
type IfStmt struct {
	StmtBase
	Test Expr
	Then Stmt
	Else Stmt // nil if no else clause
}

type WhileStmt struct {
	StmtBase
	Test Expr
	Body Stmt
}

type DoWhileStmt struct {
	StmtBase
	Test Expr
	Body Stmt
}

// ForStmt is a C-style `for (init; test; loop) body`; any of Init/Test
// /Loop may be nil (omitted clause).
type ForStmt struct {
	StmtBase
	Init Stmt
	Test Expr
	Loop Expr
	Body Stmt
}

// LoopCtrlKind discriminates break/continue.
type LoopCtrlKind struct{ k int }

var (
	LoopBreak    = LoopCtrlKind{0}
	LoopContinue = LoopCtrlKind{1}
)

type LoopCtrlStmt struct {
	StmtBase
	Tok  *token.Token
	Kind LoopCtrlKind
}

// ForeachStmt is `foreach([ref] [T] x in arr) body`, as written by the
// parser; internal/semant fills CounterSlot/LoopVarDecl/LoopVarAssign
// with the desugared counter-loop pieces once it runs.
type ForeachStmt struct {
	StmtBase
	LoopVarType *types.Type // nil if the element type should be inferred
	Ref         bool
	LoopVar     *Ident
	Array       Expr
	Body        Stmt

	// Filled in by internal/semant's foreach desugaring.
	CounterSlot    int
	LoopVarDecl    *VarDecl
	LoopVarAssign  *Assign
}

// ---- Declarations ----

// Decl is any top-level or local declaration form.
type Decl interface {
	Node
	declNode()
}

type DeclBase struct{ At token.Span }

func (d *DeclBase) Span() token.Span { return d.At }
func (*DeclBase) declNode()          {}

// DeclAt builds a DeclBase anchored at span.
func DeclAt(span token.Span) DeclBase { return DeclBase{At: span} }

// VarDecl is `TYPE name [= expr];`. Init is nil when there's no
// initializer. Global marks a top-level variable declaration; VarID is
// the local or global slot internal/semant assigns.
type VarDecl struct {
	DeclBase
	Type   types.Type
	Name   *token.Token
	Global bool
	VarID  int
	Init   *Assign
}

// TypedefDecl is `typedef TYPE name;`.
type TypedefDecl struct {
	DeclBase
	Type types.Type
	Name *token.Token
}

// StructDecl is `struct NAME { field-decl* };`. StructID is the stable
// id internal/types assigned when the forward declaration (or this
// completing declaration) was registered.
type StructDecl struct {
	DeclBase
	Name      *token.Token
	Fields    []*VarDecl
	StructID  int
}

// ---- Functions and program ----

// Param is one function parameter: a type and a name.
type Param struct {
	Type types.Type
	Name *token.Token
}

// Function is one function or operator-overload definition.
type Function struct {
	Name       *token.Token
	Signature  types.Signature
	IsOverload bool
	OverloadOp types.Op
	Params     []Param
	Body       []Stmt

	// Filled in by internal/semant: every local slot this function
	// owns, user-declared and compiler-synthesized, in allocation
	// order.
	Locals []*LocalVar
}

func (f *Function) Span() token.Span { return f.Name.Span }

// LocalVar is one entry in a function's growing local-variable table.
type LocalVar struct {
	Temp      bool // compiler-synthesized (foreach counter, match scrutinee, ...)
	NestDepth int
	Ident     *Ident
}

// Program is the root node: every function, top-level declaration and
// global variable in source order. The string-literal table is built
// by the code generator, not kept here.
type Program struct {
	Functions []*Function
	Globals   []*VarDecl
	GlobalVars []*GlobalVar
	Decls     []Decl
}

// GlobalVar mirrors ast_nodes.h's global_variable_t: a resolved global
// identifier distinct from its declaring VarDecl (a global may be
// referenced many times; there is exactly one GlobalVar per name).
type GlobalVar struct {
	Ident *Ident
}

func (p *Program) Span() token.Span {
	if len(p.Functions) > 0 {
		return p.Functions[0].Span()
	}
	return token.Span{}
}
