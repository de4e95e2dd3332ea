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

// Package semant walks the parsed AST once per function, resolving
// every identifier to a local or global slot, computing value types
// bottom-up, inserting implicit casts, desugaring foreach loops and
// match expressions, and rejecting the handful of whole-program rules
// (lvalue-only assignment targets, break/continue inside a loop,
// return arity/type) that span more than one expression.
//
// Grounded on original_source/semantic_pass.c's single-pass AST walk
// (find_local/find_global/create_temporary/generate_type_conversion);
// the walk itself is rewritten as a Go type switch per ast.Expr/Stmt
// case, following internal/ast's doc comment on why the AST was
// reshaped into interfaces in the first place. One deliberate
// departure from the original: semantic_pass.c's find_local carries a
// FIXME admitting it never pops out-of-scope locals (nest_depth is
// compared but never un-compared), so a variable from a sibling block
// can shadow-leak into a later one. This analyzer instead maintains an
// explicit scope stack (scopes) that is pushed on block entry and
// popped on exit, fixing that without changing the slot-numbering
// scheme locals still need for codegen.
package semant

import (
	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/types"
)

// overloadKey identifies one registered operator overload by operator
// and operand type(s); rhs is the empty string for a unary overload.
type overloadKey struct {
	op       types.Op
	lhs, rhs string
}

// Analyzer holds the process-wide tables (functions, overloads,
// globals) plus the per-function state (current function, lexical
// scope stack, nest/loop depth) that AST_PASS-style globals held in
// the original.
type Analyzer struct {
	sink    *diag.Sink
	structs *types.StructTable

	functions map[string]*ast.Function
	overloads map[overloadKey]*ast.Function
	globals   map[string]*ast.GlobalVar

	cur       *ast.Function
	scopes    [][]*ast.LocalVar
	nestDepth int
	loopDepth int
}

// New builds an Analyzer over a struct table already populated by
// parsing (struct layouts are needed for sizeof/new/field-access
// checks and are final by the time parsing completes).
func New(sink *diag.Sink, structs *types.StructTable) *Analyzer {
	return &Analyzer{
		sink:      sink,
		structs:   structs,
		functions: make(map[string]*ast.Function),
		overloads: make(map[overloadKey]*ast.Function),
		globals:   make(map[string]*ast.GlobalVar),
	}
}

// Run analyzes an entire program in place: declarations and function
// signatures are registered first (mirroring
// AST_PROGRAM_PROCESS_1/_2's two-pass shape), so a function may call
// another declared anywhere in the file, forward or back.
func (a *Analyzer) Run(prog *ast.Program) {
	for _, g := range prog.Globals {
		a.declareGlobal(prog, g)
	}
	for _, fn := range prog.Functions {
		if fn.IsOverload {
			a.registerOverload(fn)
		} else {
			a.registerFunction(fn)
		}
	}
	for _, g := range prog.Globals {
		a.analyzeGlobalInit(g)
	}
	for _, fn := range prog.Functions {
		a.analyzeFunction(fn)
	}
}

func (a *Analyzer) registerFunction(fn *ast.Function) {
	if _, exists := a.functions[fn.Name.Text]; exists {
		a.sink.Error(fn.Span(), "function %q redefined", fn.Name.Text)
		return
	}
	a.functions[fn.Name.Text] = fn
}

// registerOverload mangles the operator/arity/operand-types triple
// into an overloadKey, rejecting an attempt to overload an operator
// for operands that are both plain-old-data (spec.md 4.4's rule: a
// POD-only overload is meaningless since built-in rules already cover
// it, and the original reserves operand-identity checks for this
// exact reason).
func (a *Analyzer) registerOverload(fn *ast.Function) {
	op := fn.OverloadOp
	if op.IsUnary() || len(fn.Params) == 1 {
		if len(fn.Params) != 1 {
			a.sink.Error(fn.Span(), "unary operator overload %q must take exactly one parameter", op.String())
			return
		}
		opnd := fn.Params[0].Type
		if opnd.IsPOD() {
			a.sink.Error(fn.Span(), "cannot overload operator %q for a built-in type", op.String())
			return
		}
		a.overloads[overloadKey{op: op, lhs: opnd.String()}] = fn
		return
	}
	if len(fn.Params) != 2 {
		a.sink.Error(fn.Span(), "binary operator overload %q must take exactly two parameters", op.String())
		return
	}
	lhs, rhs := fn.Params[0].Type, fn.Params[1].Type
	if lhs.IsPOD() && rhs.IsPOD() {
		a.sink.Error(fn.Span(), "cannot overload operator %q for two built-in types", op.String())
		return
	}
	a.overloads[overloadKey{op: op, lhs: lhs.String(), rhs: rhs.String()}] = fn
}

func (a *Analyzer) lookupBinaryOverload(op types.Op, lhs, rhs types.Type) (*ast.Function, bool) {
	fn, ok := a.overloads[overloadKey{op: op, lhs: lhs.String(), rhs: rhs.String()}]
	return fn, ok
}

func (a *Analyzer) lookupUnaryOverload(op types.Op, opnd types.Type) (*ast.Function, bool) {
	fn, ok := a.overloads[overloadKey{op: op, lhs: opnd.String()}]
	return fn, ok
}

func (a *Analyzer) declareGlobal(prog *ast.Program, d *ast.VarDecl) {
	if _, exists := a.globals[d.Name.Text]; exists {
		a.sink.Error(d.Span(), "global %q redefined", d.Name.Text)
		return
	}
	ident := &ast.Ident{Name: d.Name, Type: d.Type, Global: true, Resolved: true, SlotID: len(prog.GlobalVars)}
	gv := &ast.GlobalVar{Ident: ident}
	prog.GlobalVars = append(prog.GlobalVars, gv)
	a.globals[d.Name.Text] = gv
	d.VarID = ident.SlotID
	d.Global = true
}

func (a *Analyzer) analyzeGlobalInit(d *ast.VarDecl) {
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

func (a *Analyzer) analyzeFunction(fn *ast.Function) {
	a.cur = fn
	a.nestDepth = 0
	a.loopDepth = 0
	a.scopes = [][]*ast.LocalVar{nil}

	for i := range fn.Params {
		p := &fn.Params[i]
		ident := &ast.Ident{Name: p.Name, Type: p.Type, Resolved: true, SlotID: len(fn.Locals)}
		lv := &ast.LocalVar{NestDepth: 0, Ident: ident}
		fn.Locals = append(fn.Locals, lv)
		a.pushScope(lv)
	}

	for i, s := range fn.Body {
		fn.Body[i] = a.analyzeStmt(s)
	}

	a.cur = nil
	a.scopes = nil
}

func (a *Analyzer) pushScope(lv *ast.LocalVar) {
	top := len(a.scopes) - 1
	a.scopes[top] = append(a.scopes[top], lv)
}

func (a *Analyzer) enterBlock() { a.scopes = append(a.scopes, nil) }
func (a *Analyzer) leaveBlock() { a.scopes = a.scopes[:len(a.scopes)-1] }

// lookupLocal scans scopes innermost-first, and within a scope
// last-declared-first, so a later `int x` shadows an earlier one in
// the same block exactly once it's been declared.
func (a *Analyzer) lookupLocal(name string) (*ast.LocalVar, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		scope := a.scopes[i]
		for j := len(scope) - 1; j >= 0; j-- {
			lv := scope[j]
			if lv.Ident.Name != nil && lv.Ident.Name.Text == name {
				return lv, true
			}
		}
	}
	return nil, false
}

// declareLocalFor installs d as a new local slot in the current
// function and the innermost scope, the same bookkeeping foreach's
// desugared loop variable also needs (see stmt.go).
func (a *Analyzer) declareLocalFor(d *ast.VarDecl) *ast.LocalVar {
	ident := &ast.Ident{Name: d.Name, Type: d.Type, Resolved: true, SlotID: len(a.cur.Locals)}
	lv := &ast.LocalVar{NestDepth: a.nestDepth, Ident: ident}
	a.cur.Locals = append(a.cur.Locals, lv)
	a.pushScope(lv)
	d.VarID = ident.SlotID
	d.Global = false
	return lv
}

// newTemp allocates a compiler-synthesized local (a foreach counter, a
// match scrutinee) the same way create_temporary does in the original.
func (a *Analyzer) newTemp(typ types.Type) *ast.LocalVar {
	ident := &ast.Ident{Type: typ, Resolved: true, SlotID: len(a.cur.Locals)}
	lv := &ast.LocalVar{Temp: true, NestDepth: a.nestDepth, Ident: ident}
	a.cur.Locals = append(a.cur.Locals, lv)
	a.pushScope(lv)
	return lv
}
