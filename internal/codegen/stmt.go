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

package codegen

import (
	"fmt"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/types"
)

// generateProgram mirrors AST_PROGRAM: global initializers run under
// "_global_init" before control ever reaches a user function, then
// main is jumped to directly - every function body (main included)
// follows in source order, and the string-literal table collected
// along the way is appended last as ".string" pseudo-instructions.
func (e *Emitter) generateProgram(prog *ast.Program) {
	e.markLabel("_global_init")
	for _, g := range prog.Globals {
		e.generateVarDecl(g)
	}
	e.emit("jmp", "main")

	for _, fn := range prog.Functions {
		e.generateFunction(fn)
	}

	for i, s := range e.stringOrder {
		e.emit(".string", "%d, \"%s\"", i, escapeForAsm(s))
	}
}

// generateFunction mirrors AST_FUNCTION: parameters are fetched off
// the call stack in reverse order (matching the original's
// reverse-indexed movl loop), with a struct-typed parameter
// additionally deep-copied into a fresh allocation so the callee never
// aliases the caller's copy.
func (e *Emitter) generateFunction(fn *ast.Function) {
	if fn.IsOverload {
		e.markLabel(mangleName(fn))
	} else {
		e.markLabel(fn.Name.Text)
	}

	for i := len(fn.Params) - 1; i >= 0; i-- {
		p := fn.Params[i]
		e.comment("get '%s'", p.Name.Text)
		e.emit("movl", "%d", i)

		if isStructType(p.Type) {
			sz := types.SizeOf(p.Type, e.structs)
			e.emit("pushi", "#%d", sz)
			e.emitPlain("alloc")
			e.emitPlain("dup")
			e.emit("pushl", "%d", i)
			e.emit("pushi", "#%d", sz)
			e.emitPlain("copy")
			e.emit("movl", "%d", i)
		}
	}

	for _, s := range fn.Body {
		e.generateStmt(s)
	}
	e.emitPlain("ret")
}

// generateVarDecl mirrors AST_VARIABLE_DECLARATION: a struct or array
// variable always gets a fresh allocation (the original's guard
// against allocating a dynamic/empty array is itself commented out in
// code_generator.c, so this port never special-cases an unsized array
// dimension either), a pointer/optional/function-typed variable with
// no initializer defaults to null, and anything else relies on its
// initializer alone.
func (e *Emitter) generateVarDecl(d *ast.VarDecl) {
	initialized := false

	switch {
	case isStructType(d.Type):
		e.comment("%s", d.Type.String())
		e.emit("pushi", "#%d", types.SizeOf(d.Type, e.structs))
		e.emitPlain("alloc")
		initialized = true
	case d.Type.Kind == types.KindArray:
		e.generateArraySize(d.Type)
		e.comment("%s", d.Type.String())
		e.emitPlain("alloc")
		initialized = true
	case d.Init == nil && (d.Type.Kind == types.KindOptional || d.Type.Kind == types.KindPointer || d.Type.Kind == types.KindFunction):
		e.emitPlain("pushnull")
		initialized = true
	}

	if initialized {
		if d.Global {
			e.emit("movg", "%d", d.VarID)
		} else {
			e.emit("movl", "%d", d.VarID)
		}
	}

	if d.Init != nil {
		// internal/parser/decl.go's parseVarDecl never sets Discard on
		// the Assign it builds for an initializer, unlike the bare
		// expression-statement wrapping in parser/stmt.go or the
		// foreach desugaring in semant/stmt.go, both of which do. A
		// declaration's initializer is always statement context - it
		// must never leave its value on the stack - so this is forced
		// here rather than upstream, since codegen is the last pass and
		// nothing downstream reads the flag afterward.
		d.Init.Discard = true
		e.generateAssign(d.Init)
	}
}

// generateAssign mirrors AST_ASSIGNMENT. A string-subscript target
// (`s[i] = c`) is special-cased to "setchar" since strings aren't
// addressable the way an array is; every other target is lowered
// through the ordinary addr-calc machinery. An ident target whose
// value is a struct is "copy"-assigned (the target already holds a
// pointer), a non-ident non-string-subscript target computes its
// address then stores through it, and a non-discarded assignment
// re-evaluates its target afterward to produce the assigned value -
// a deliberate double evaluation matching the original exactly rather
// than caching the stored value, since a target with a side effect
// (an overloaded `[]`, say) would otherwise observe a different result
// than a discarded use of the same expression.
func (e *Emitter) generateAssign(n *ast.Assign) {
	if sub, ok := n.Target.(*ast.Subscript); ok {
		arrType := sub.Array.ValueType()
		if arrType.Kind == types.KindBasic && arrType.Base == types.Str {
			e.generateExpr(sub.Array)
			e.generateExpr(sub.Index)
			e.generateExpr(n.Value)
			e.emitPlain("setchar")
			if !n.Discard {
				e.generateExpr(sub.Array)
				e.generateExpr(sub.Index)
				e.emitPlain("getchar")
			}
			return
		}
	}

	if ident, ok := n.Target.(*ast.IdentExpr); ok {
		e.generateExpr(n.Value)
		if isStructType(ident.Ident.Type) {
			e.generateExpr(n.Target)
			e.emit("pushi", "#%d", types.SizeOf(ident.Ident.Type, e.structs))
			e.emitPlain("copy")
		} else if ident.Ident.Global {
			e.emit("movg", "%d", ident.Ident.SlotID)
		} else {
			e.emit("movl", "%d", ident.Ident.SlotID)
		}
	} else {
		e.generateExpr(n.Value)
		old := e.addrCalc
		e.enterAddrCalc()
		e.generateExpr(n.Target)
		if e.addrCalc != old {
			panic("codegen: addr-calc depth mismatched while computing an assignment target's address")
		}
		targetType := n.Target.ValueType()
		if isStructType(targetType) {
			e.emit("pushi", "#%d", types.SizeOf(targetType, e.structs))
			e.emitPlain("copy")
		} else {
			e.emitPlain("store")
		}
	}

	if !n.Discard {
		e.generateExpr(n.Target)
	}
}

// generateStmt mirrors AST_STATEMENT's dispatch over every statement
// kind.
func (e *Emitter) generateStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		e.generateExpr(n.X)
		e.handleDiscard(n.X)
	case *ast.EmptyStmt:
		// nothing to emit
	case *ast.ReturnStmt:
		if !n.Empty {
			e.generateExpr(n.Value)
		}
		e.emitPlain("ret")
	case *ast.DeclStmt:
		e.generateDeclStmt(n.Decl)
	case *ast.Block:
		for _, inner := range n.Stmts {
			e.generateStmt(inner)
		}
	case *ast.IfStmt:
		e.generateIf(n)
	case *ast.WhileStmt:
		e.generateWhile(n)
	case *ast.DoWhileStmt:
		e.generateDoWhile(n)
	case *ast.ForStmt:
		e.generateFor(n)
	case *ast.LoopCtrlStmt:
		if n.Kind == ast.LoopBreak {
			e.emit("jmp", "%s", e.currentLoopExit())
		} else {
			e.emit("jmp", "%s", e.currentLoopEntry())
		}
	case *ast.ForeachStmt:
		e.generateForeach(n)
	default:
		panic(fmt.Sprintf("codegen: unhandled statement node %T", s))
	}
}

// handleDiscard mirrors handle_discarded_expression: a void-valued
// expression statement leaves nothing on the stack to pop, and an
// Assign already manages its own stack balance through Discard, so
// only a genuinely leftover value needs popping.
func (e *Emitter) handleDiscard(expr ast.Expr) {
	if _, ok := expr.(*ast.Assign); ok {
		return
	}
	vt := expr.ValueType()
	if vt.Kind == types.KindBasic && vt.Base == types.Void {
		return
	}
	e.emitPlain("pop")
}

func (e *Emitter) generateDeclStmt(d ast.Decl) {
	if vd, ok := d.(*ast.VarDecl); ok {
		e.generateVarDecl(vd)
	}
	// TypedefDecl and StructDecl carry no runtime representation.
}

// generateIf mirrors AST_IF_STATEMENT.
func (e *Emitter) generateIf(n *ast.IfStmt) {
	elseLabel := e.newLabel()

	e.generateExpr(n.Test)
	e.comment("if")
	e.emit("jf", "%s", elseLabel)
	e.generateStmt(n.Then)

	if n.Else != nil {
		outLabel := e.newLabel()
		e.emit("jmp", "%s", outLabel)
		e.markLabel(elseLabel)
		e.generateStmt(n.Else)
		e.markLabel(outLabel)
	} else {
		e.markLabel(elseLabel)
	}
}

func (e *Emitter) generateWhile(n *ast.WhileStmt) {
	loopLabel := e.newLabel()
	outLabel := e.newLabel()

	e.pushLoop(loopLabel, outLabel)
	e.markLabel(loopLabel)
	e.generateExpr(n.Test)
	e.comment("while")
	e.emit("jf", "%s", outLabel)
	e.generateStmt(n.Body)
	e.emit("jmp", "%s", loopLabel)
	e.markLabel(outLabel)
	e.popLoop()
}

func (e *Emitter) generateDoWhile(n *ast.DoWhileStmt) {
	loopLabel := e.newLabel()
	outLabel := e.newLabel()

	// continue inside a do-while must still re-run the test, so the
	// loop-entry label used for break/continue is the body's start;
	// that's what generate_jump_target marks here too.
	e.pushLoop(loopLabel, outLabel)
	e.markLabel(loopLabel)
	e.generateStmt(n.Body)
	e.generateExpr(n.Test)
	e.comment("do-while")
	e.emit("jt", "%s", loopLabel)
	e.markLabel(outLabel)
	e.popLoop()
}

// generateFor mirrors AST_FOR_STATEMENT. An omitted test clause is
// treated as always-true, matching ordinary C-style for semantics; the
// original's macro always evaluates a test expression, implying its
// grammar never actually allows the clause to be blank, but this port
// is more permissive upstream (ast.ForStmt's doc comment: "any of
// Init/Test/Loop may be nil"), so codegen supplies the missing branch.
func (e *Emitter) generateFor(n *ast.ForStmt) {
	loopLabel := e.newLabel()
	outLabel := e.newLabel()

	e.pushLoop(loopLabel, outLabel)
	if n.Init != nil {
		e.generateStmt(n.Init)
	}
	e.markLabel(loopLabel)
	if n.Test != nil {
		e.generateExpr(n.Test)
		e.comment("for")
		e.emit("jf", "%s", outLabel)
	}
	e.generateStmt(n.Body)
	if n.Loop != nil {
		e.generateExpr(n.Loop)
		e.handleDiscard(n.Loop)
	}
	e.emit("jmp", "%s", loopLabel)
	e.markLabel(outLabel)
	e.popLoop()
}

// generateForeach mirrors AST_FOREACH_STATEMENT, working entirely off
// the counter-loop desugaring internal/semant/stmt.go's analyzeForeach
// already performed: LoopVarDecl declares the element variable,
// CounterSlot is a compiler-synthesized index local, and
// LoopVarAssign re-derives the element's value from Array[CounterSlot]
// once per iteration before Body runs.
func (e *Emitter) generateForeach(n *ast.ForeachStmt) {
	loopLabel := e.newLabel()
	outLabel := e.newLabel()

	e.generateVarDecl(n.LoopVarDecl)

	e.emit("pushi", "#0")
	e.emit("movl", "%d", n.CounterSlot)

	e.pushLoop(loopLabel, outLabel)
	e.markLabel(loopLabel)

	e.emit("pushl", "%d", n.CounterSlot)
	arrType := n.Array.ValueType()
	e.generateExpr(n.Array)
	if arrType.Kind == types.KindArray {
		e.emitPlain("memsize")
		if elemSize := types.SizeOf(*arrType.Inner, e.structs); elemSize > 1 {
			e.emit("pushi", "#%d", elemSize)
			e.emitPlain("idiv")
		}
	} else {
		e.emitPlain("strlen")
	}
	e.emitPlain("lt")
	e.comment("foreach")
	e.emit("jf", "%s", outLabel)

	e.generateAssign(n.LoopVarAssign)
	e.generateStmt(n.Body)
	e.emit("incl", "%d", n.CounterSlot)
	e.emit("jmp", "%s", loopLabel)

	e.markLabel(outLabel)
	e.popLoop()
}
