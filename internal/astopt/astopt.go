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

// Package astopt rewrites an already-typed AST in place: constant
// folding, strength-reducing multiply/divide/modulo by a power of two
// into shift/mask, folding a cast of a literal into a re-typed
// literal, and shortening chains of redundant parenthesization.
//
// Grounded on original_source/ast_optimize.c's per-node-kind walk
// (AST_BINOP, AST_EXPRESSION, AST_PRIM_EXPRESSION); the individual
// peephole_* helpers there map onto foldConstantBinOp,
// strengthReduceBinOp, foldConstantUnary and foldConstantCast below.
// Side-effect-bearing sub-expressions are never dropped: a rewrite
// only ever replaces a node with one built purely from its own already
// side-effect-free literal operands.
package astopt

import (
	"strconv"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

// Passes is the fixed iteration count original_source/main.c's driver
// loop runs this pass for (`for (int i = 0; i < 15; ++i)`). Each walk
// is bottom-up, so a nested constant is folded before its parent is
// visited (`(1+2)*x` becomes `3*x` within one walk); the driver re-runs
// the whole walk a fixed number of times rather than detecting a
// fixed point. A var, not a const, so
// internal/config can override the default from a TOML file.
var Passes = 15

// Run walks prog Passes times, folding constants and strength-reducing
// in place.
func Run(prog *ast.Program) {
	for i := 0; i < Passes; i++ {
		optimizeProgram(prog)
	}
}

func optimizeProgram(prog *ast.Program) {
	for _, g := range prog.Globals {
		if g.Init != nil {
			g.Init.Value = optimizeExpr(g.Init.Value)
		}
	}
	for _, fn := range prog.Functions {
		for i, s := range fn.Body {
			fn.Body[i] = optimizeStmt(s)
		}
	}
}

func optimizeStmt(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.ExprStmt:
		n.X = optimizeExpr(n.X)
		return n
	case *ast.EmptyStmt:
		return n
	case *ast.ReturnStmt:
		if !n.Empty {
			n.Value = optimizeExpr(n.Value)
		}
		return n
	case *ast.DeclStmt:
		if vd, ok := n.Decl.(*ast.VarDecl); ok && vd.Init != nil {
			vd.Init.Value = optimizeExpr(vd.Init.Value)
		}
		return n
	case *ast.Block:
		for i, inner := range n.Stmts {
			n.Stmts[i] = optimizeStmt(inner)
		}
		return n
	case *ast.IfStmt:
		n.Test = optimizeExpr(n.Test)
		n.Then = optimizeStmt(n.Then)
		if n.Else != nil {
			n.Else = optimizeStmt(n.Else)
		}
		return n
	case *ast.WhileStmt:
		n.Test = optimizeExpr(n.Test)
		n.Body = optimizeStmt(n.Body)
		return n
	case *ast.DoWhileStmt:
		n.Body = optimizeStmt(n.Body)
		n.Test = optimizeExpr(n.Test)
		return n
	case *ast.ForStmt:
		if n.Init != nil {
			n.Init = optimizeStmt(n.Init)
		}
		if n.Test != nil {
			n.Test = optimizeExpr(n.Test)
		}
		if n.Loop != nil {
			n.Loop = optimizeExpr(n.Loop)
		}
		n.Body = optimizeStmt(n.Body)
		return n
	case *ast.LoopCtrlStmt:
		return n
	case *ast.ForeachStmt:
		n.Array = optimizeExpr(n.Array)
		n.Body = optimizeStmt(n.Body)
		return n
	}
	return s
}

func optimizeExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.NullLit, *ast.IdentExpr:
		return n
	case *ast.Enclosed:
		return optimizeEnclosed(n)
	case *ast.UnaryExpr:
		n.Operand = optimizeExpr(n.Operand)
		return foldConstantUnary(n)
	case *ast.CastExpr:
		n.Operand = optimizeExpr(n.Operand)
		return foldConstantCast(n)
	case *ast.BinOp:
		n.Left = optimizeExpr(n.Left)
		n.Right = optimizeExpr(n.Right)
		if folded := foldConstantBinOp(n); folded != nil {
			return folded
		}
		return strengthReduceBinOp(n)
	case *ast.Assign:
		n.Target = optimizeExpr(n.Target)
		n.Value = optimizeExpr(n.Value)
		return n
	case *ast.Ternary:
		n.Cond = optimizeExpr(n.Cond)
		n.True = optimizeExpr(n.True)
		n.False = optimizeExpr(n.False)
		return n
	case *ast.Call:
		n.Callee = optimizeExpr(n.Callee)
		for i, a := range n.Args {
			n.Args[i] = optimizeExpr(a)
		}
		return n
	case *ast.Subscript:
		n.Array = optimizeExpr(n.Array)
		n.Index = optimizeExpr(n.Index)
		return n
	case *ast.Slice:
		n.Array = optimizeExpr(n.Array)
		n.Lo = optimizeExpr(n.Lo)
		n.Hi = optimizeExpr(n.Hi)
		return n
	case *ast.ArrayRange:
		n.Lo = optimizeExpr(n.Lo)
		n.Hi = optimizeExpr(n.Hi)
		return n
	case *ast.FieldAccess:
		n.Base = optimizeExpr(n.Base)
		return n
	case *ast.Deref:
		n.Operand = optimizeExpr(n.Operand)
		return n
	case *ast.AddrOf:
		n.Operand = optimizeExpr(n.Operand)
		return n
	case *ast.AsmExpr:
		for i, a := range n.Args {
			n.Args[i] = optimizeExpr(a)
		}
		return n
	case *ast.MatchExpr:
		n.Tested = optimizeExpr(n.Tested)
		for ci := range n.Cases {
			n.Cases[ci].Expr = optimizeExpr(n.Cases[ci].Expr)
		}
		return n
	case *ast.SizeofExpr:
		if n.IsExpr {
			n.Operand = optimizeExpr(n.Operand)
		}
		return n
	case *ast.NewExpr:
		return n
	case *ast.RandomExpr:
		if n.IsRange {
			n.Lo = optimizeExpr(n.Lo)
			n.Hi = optimizeExpr(n.Hi)
		} else {
			n.Single = optimizeExpr(n.Single)
		}
		return n
	case *ast.ArrayLit:
		for i, el := range n.Elements {
			n.Elements[i] = optimizeExpr(el)
		}
		return n
	case *ast.StructInit:
		for i, el := range n.Elements {
			n.Elements[i] = optimizeExpr(el)
		}
		return n
	}
	return e
}

// optimizeEnclosed mirrors ast_optimize.c's AST_PRIM_EXPRESSION chain
// shortening: `while (type == ENCLOSED && inner is itself a primary)
// unwrap`. A parenthesized expression wrapping anything other than
// another Enclosed is left alone; grouping still matters to codegen
// for things like `(a+b)*c`, only the redundant nesting goes away.
func optimizeEnclosed(n *ast.Enclosed) ast.Expr {
	n.Inner = optimizeExpr(n.Inner)
	inner := n.Inner
	for {
		next, ok := inner.(*ast.Enclosed)
		if !ok {
			break
		}
		inner = next.Inner
	}
	n.Inner = inner
	return n
}

// unwrapEnclosed peels through any number of parenthesization layers
// to find the expression actually being grouped; folding treats
// `(((5)))` the same as `5` since the grouping carries no meaning once
// precedence has already been baked into the tree shape.
func unwrapEnclosed(e ast.Expr) ast.Expr {
	for {
		enc, ok := e.(*ast.Enclosed)
		if !ok {
			return e
		}
		e = enc.Inner
	}
}

func asIntLit(e ast.Expr) (int, bool) {
	lit, ok := unwrapEnclosed(e).(*ast.IntLit)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(lit.Tok.Text)
	if err != nil {
		return 0, false
	}
	return v, true
}

func asFloatLit(e ast.Expr) (float64, bool) {
	lit, ok := unwrapEnclosed(e).(*ast.FloatLit)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(lit.Tok.Text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isIntType(t types.Type) bool {
	return t.Kind == types.KindBasic && t.Base == types.Int
}

func newIntLit(span token.Span, v int) *ast.IntLit {
	lit := &ast.IntLit{
		ExprBase: ast.AtSpan(span),
		Tok:      &token.Token{Kind: token.IntLit, Text: strconv.Itoa(v), Span: span},
	}
	lit.SetValueType(types.TInt)
	return lit
}

func newFloatLit(span token.Span, v float64) *ast.FloatLit {
	lit := &ast.FloatLit{
		ExprBase: ast.AtSpan(span),
		Tok:      &token.Token{Kind: token.FloatLit, Text: strconv.FormatFloat(v, 'g', -1, 64), Span: span},
	}
	lit.SetValueType(types.TReal)
	return lit
}

func opToken(span token.Span, op types.Op) *token.Token {
	return &token.Token{Kind: token.Operator, Text: op.String(), Span: span, OpCode: op.Alpha()}
}

// foldConstantBinOp mirrors peephole_integer_constant_eval_binop and
// peephole_float_constant_eval_binop: if both operands are already
// literal constants of the same kind, the whole node folds into one
// re-typed literal. Returns nil when n isn't foldable.
func foldConstantBinOp(n *ast.BinOp) ast.Expr {
	if lx, ok := asIntLit(n.Left); ok {
		if rx, ok := asIntLit(n.Right); ok && intFoldableOps[n.OpCode] {
			if rx == 0 && (n.OpCode == types.OpDiv || n.OpCode == types.OpMod) {
				return nil // leave for codegen/runtime to fault on, same as the original
			}
			return newIntLit(n.Span(), types.EvalIntBinop(n.OpCode, lx, rx))
		}
	}
	if lf, ok := asFloatLit(n.Left); ok {
		if rf, ok := asFloatLit(n.Right); ok && floatFoldableOps[n.OpCode] {
			return newFloatLit(n.Span(), types.EvalFloatBinop(n.OpCode, lf, rf))
		}
	}
	return nil
}

// intFoldableOps/floatFoldableOps list exactly the operators each of
// types.EvalIntBinop/EvalFloatBinop supports; OpCat/OpIn (array/string
// concatenation and membership) never apply to two numeric literals
// in a well-typed tree, so they're simply left out rather than guarded
// against at the call site.
var intFoldableOps = map[types.Op]bool{
	types.OpAdd: true, types.OpSub: true, types.OpMul: true,
	types.OpDiv: true, types.OpMod: true,
	types.OpEqual: true, types.OpDiff: true,
	types.OpGt: true, types.OpGe: true, types.OpLt: true, types.OpLe: true,
	types.OpLogicAnd: true, types.OpLogicOr: true,
	types.OpBitAnd: true, types.OpBitOr: true, types.OpBitXor: true,
	types.OpShl: true, types.OpShr: true,
}

var floatFoldableOps = map[types.Op]bool{
	types.OpAdd: true, types.OpSub: true, types.OpMul: true, types.OpDiv: true,
	types.OpEqual: true, types.OpDiff: true,
	types.OpGt: true, types.OpGe: true, types.OpLt: true, types.OpLe: true,
}

// strengthReduceBinOp mirrors peephole_modulo, peephole_div_shift and
// peephole_mul_shift: multiply/divide/modulo by a power-of-two integer
// constant becomes a shift or mask. Division and multiplication only
// reduce when the non-constant operand is itself int-typed (a real
// divided by a power of two stays a real division).
func strengthReduceBinOp(n *ast.BinOp) ast.Expr {
	switch n.OpCode {
	case types.OpMod:
		if c, ok := asIntLit(n.Right); ok && isPowerOfTwo(c) {
			n.OpCode = types.OpBitAnd
			n.Op = opToken(n.Op.Span, types.OpBitAnd)
			n.Right = newIntLit(n.Right.Span(), c-1)
		}
	case types.OpDiv:
		if c, ok := asIntLit(n.Right); ok && isPowerOfTwo(c) && isIntType(n.Left.ValueType()) {
			n.OpCode = types.OpShr
			n.Op = opToken(n.Op.Span, types.OpShr)
			n.Right = newIntLit(n.Right.Span(), log2(c))
		}
	case types.OpMul:
		if c, ok := asIntLit(n.Right); ok && isPowerOfTwo(c) && isIntType(n.Left.ValueType()) {
			n.OpCode = types.OpShl
			n.Op = opToken(n.Op.Span, types.OpShl)
			n.Right = newIntLit(n.Right.Span(), log2(c))
		} else if c, ok := asIntLit(n.Left); ok && isPowerOfTwo(c) && isIntType(n.Right.ValueType()) {
			// Canonicalize: constant always ends up on the right before
			// becoming the shift amount.
			n.Left, n.Right = n.Right, n.Left
			n.OpCode = types.OpShl
			n.Op = opToken(n.Op.Span, types.OpShl)
			n.Right = newIntLit(n.Right.Span(), log2(c))
		}
	}
	return n
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func log2(n int) int {
	shift := 0
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift
}

// foldConstantUnary mirrors peephole_integer_constant_eval_unary and
// peephole_float_constant_eval_unary: a unary operator applied to an
// already-literal operand folds into one re-typed literal.
func foldConstantUnary(n *ast.UnaryExpr) ast.Expr {
	if n.Overload != nil {
		return n
	}
	if v, ok := asIntLit(n.Operand); ok {
		return newIntLit(n.Span(), types.EvalIntUnop(n.OpCode, v))
	}
	if v, ok := asFloatLit(n.Operand); ok && (n.OpCode == types.OpAdd || n.OpCode == types.OpSub) {
		return newFloatLit(n.Span(), types.EvalFloatUnop(n.OpCode, v))
	}
	return n
}

// foldConstantCast mirrors peephole_constant_cast: an explicit cast of
// an int literal to real, or a float literal to int, folds into a
// single re-typed literal instead of keeping the CastExpr wrapper.
func foldConstantCast(n *ast.CastExpr) ast.Expr {
	isReal := n.Target.Kind == types.KindBasic && n.Target.Base == types.Real
	isInt := n.Target.Kind == types.KindBasic && n.Target.Base == types.Int

	if isReal {
		if v, ok := asIntLit(n.Operand); ok {
			return newFloatLit(n.Span(), float64(v))
		}
	}
	if isInt {
		if v, ok := asFloatLit(n.Operand); ok {
			return newIntLit(n.Span(), int(v))
		}
	}
	return n
}
