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

package semant

import (
	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/types"
)

// analyzeStmt analyzes s in place and returns the node to store back
// in its slot (a Block's Stmts entry, a Function's Body entry, ...);
// like analyzeExpr, it's usually s itself, occasionally a sibling
// declaration's initializer having been rewritten underneath it.
func (a *Analyzer) analyzeStmt(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.ExprStmt:
		n.X = a.analyzeExpr(n.X)
		return n
	case *ast.EmptyStmt:
		return n
	case *ast.ReturnStmt:
		return a.analyzeReturn(n)
	case *ast.DeclStmt:
		a.analyzeDeclStmt(n)
		return n
	case *ast.Block:
		a.enterBlock()
		a.nestDepth++
		for i, inner := range n.Stmts {
			n.Stmts[i] = a.analyzeStmt(inner)
		}
		a.nestDepth--
		a.leaveBlock()
		return n
	case *ast.IfStmt:
		n.Test = a.coerceBool(a.analyzeExpr(n.Test))
		n.Then = a.analyzeStmt(n.Then)
		if n.Else != nil {
			n.Else = a.analyzeStmt(n.Else)
		}
		return n
	case *ast.WhileStmt:
		a.loopDepth++
		n.Test = a.coerceBool(a.analyzeExpr(n.Test))
		n.Body = a.analyzeStmt(n.Body)
		a.loopDepth--
		return n
	case *ast.DoWhileStmt:
		a.loopDepth++
		n.Body = a.analyzeStmt(n.Body)
		n.Test = a.coerceBool(a.analyzeExpr(n.Test))
		a.loopDepth--
		return n
	case *ast.ForStmt:
		a.loopDepth++
		a.nestDepth++
		a.enterBlock()
		if n.Init != nil {
			n.Init = a.analyzeStmt(n.Init)
		}
		if n.Test != nil {
			n.Test = a.coerceBool(a.analyzeExpr(n.Test))
		}
		if n.Loop != nil {
			n.Loop = a.analyzeExpr(n.Loop)
		}
		n.Body = a.analyzeStmt(n.Body)
		a.leaveBlock()
		a.nestDepth--
		a.loopDepth--
		return n
	case *ast.LoopCtrlStmt:
		if a.loopDepth == 0 {
			a.sink.Error(n.Span(), "%q outside a loop", n.Tok.Text)
		}
		return n
	case *ast.ForeachStmt:
		return a.analyzeForeach(n)
	}
	return s
}

func (a *Analyzer) analyzeReturn(n *ast.ReturnStmt) ast.Stmt {
	want := a.cur.Signature.Return
	if n.Empty {
		if !(want.Kind == types.KindBasic && want.Base == types.Void) {
			a.sink.Error(n.Span(), "missing return value, function returns %s", types.Display(want))
		}
		return n
	}
	if want.Kind == types.KindBasic && want.Base == types.Void {
		a.sink.Error(n.Span(), "void function cannot return a value")
		n.Value = a.analyzeExpr(n.Value)
		return n
	}
	n.Value = a.analyzeExpr(n.Value)
	n.Value = a.coerce(n.Value, want)
	return n
}

func (a *Analyzer) analyzeDeclStmt(n *ast.DeclStmt) {
	switch d := n.Decl.(type) {
	case *ast.VarDecl:
		a.analyzeLocalVarDecl(d)
	case *ast.TypedefDecl:
		// nothing to check: the type was already resolved by the parser.
	case *ast.StructDecl:
		// struct layout was already registered with the struct table
		// during parsing; nothing further to check here.
	}
}

func (a *Analyzer) analyzeLocalVarDecl(d *ast.VarDecl) {
	a.declareLocalFor(d)
	if d.Init == nil {
		return
	}
	target := a.analyzeExpr(d.Init.Target)
	d.Init.Target = target
	val := a.analyzeExpr(d.Init.Value)
	val = a.coerce(val, d.Type)
	d.Init.Value = val
	d.Init.SetValueType(d.Type)
}

// analyzeForeach desugars `foreach([ref] [T] x in arr) body` into an
// indexed loop over a synthesized counter, grounded on
// AST_FOREACH_STATEMENT: the loop variable's Ident is installed
// directly as the new local (not copied), a counter temp is
// allocated, and the loop body is preceded by an assignment of
// arr[counter] (address-of'd first when ref was given) into the loop
// variable.
func (a *Analyzer) analyzeForeach(n *ast.ForeachStmt) ast.Stmt {
	a.loopDepth++
	a.nestDepth++
	a.enterBlock()

	n.Array = a.analyzeExpr(n.Array)
	arrType := n.Array.ValueType()

	var elemType types.Type
	switch {
	case n.LoopVarType != nil:
		elemType = *n.LoopVarType
	case arrType.Kind == types.KindArray:
		elemType = *arrType.Inner
	case arrType.Kind == types.KindBasic && arrType.Base == types.Str:
		elemType = types.TInt
	default:
		a.sink.Error(n.Array.Span(), "foreach requires an array or str operand, got %s", types.Display(arrType))
		elemType = types.TInt
	}

	declType := elemType
	if n.Ref {
		declType = types.PointerTo(elemType)
	}

	n.LoopVar.Type = declType
	n.LoopVar.Resolved = true
	n.LoopVar.Global = false
	n.LoopVar.SlotID = len(a.cur.Locals)
	loopVarLocal := &ast.LocalVar{NestDepth: a.nestDepth, Ident: n.LoopVar}
	a.cur.Locals = append(a.cur.Locals, loopVarLocal)
	a.pushScope(loopVarLocal)

	n.LoopVarDecl = &ast.VarDecl{
		DeclBase: ast.DeclAt(n.Span()),
		Type:     declType,
		Name:     n.LoopVar.Name,
		VarID:    n.LoopVar.SlotID,
	}

	counter := a.newTemp(types.TInt)
	n.CounterSlot = counter.Ident.SlotID

	counterIdent := &ast.IdentExpr{ExprBase: ast.AtSpan(n.Span()), Ident: counter.Ident}
	counterIdent.SetValueType(types.TInt)

	sub := &ast.Subscript{ExprBase: ast.AtSpan(n.Span()), Array: n.Array, Index: counterIdent}
	sub.SetValueType(elemType)

	var rhs ast.Expr = sub
	if n.Ref {
		addr := &ast.AddrOf{ExprBase: ast.AtSpan(n.Span()), Operand: sub}
		addr.SetValueType(types.PointerTo(elemType))
		rhs = addr
	}

	loopVarIdent := &ast.IdentExpr{ExprBase: ast.AtSpan(n.Span()), Ident: n.LoopVar}
	loopVarIdent.SetValueType(declType)

	assign := &ast.Assign{ExprBase: ast.AtSpan(n.Span()), Target: loopVarIdent, Value: rhs, Discard: true}
	assign.SetValueType(declType)
	n.LoopVarAssign = assign

	n.Body = a.analyzeStmt(n.Body)

	a.leaveBlock()
	a.nestDepth--
	a.loopDepth--
	return n
}
