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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/lexer"
	"github.com/gmofishsauce/langc/internal/parser"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

func check(t *testing.T, a1 any, a2 any) {
	if a1 != a2 {
		t.Errorf("%[1]v (a %[1]T) != %[2]v (a %[2]T)", a1, a2)
	}
}

func lexAll(t *testing.T, src string) []*token.Token {
	lx := lexer.NewString(t.Name(), src, lexer.Flags{})
	var out []*token.Token
	for {
		tok := lx.Next()
		if tok.Kind == token.EOF {
			break
		}
		if tok.Kind == token.Newline {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// analyze parses src and runs the analyzer over the result, returning
// the program and a sink that never calls os.Exit so a test can
// inspect ErrorCount instead of losing control to it.
func analyze(t *testing.T, src string) (*ast.Program, *diag.Sink) {
	sink := diag.NewSink()
	sink.Exit = func(int) {}
	structs := types.NewStructTable()
	p := parser.New(lexAll(t, src), sink, structs)
	prog := p.ParseProgram()
	New(sink, structs).Run(prog)
	return prog, sink
}

func TestLocalSlotAllocation(t *testing.T) {
	prog, sink := analyze(t, "int f(int a) { int b = 1; int c = 2; return a + b + c; }")
	require.False(t, sink.HasErrors())
	fn := prog.Functions[0]
	require.Len(t, fn.Locals, 3)
	check(t, "a", fn.Locals[0].Ident.Name.Text)
	check(t, 0, fn.Locals[0].Ident.SlotID)
	check(t, "b", fn.Locals[1].Ident.Name.Text)
	check(t, 1, fn.Locals[1].Ident.SlotID)
	check(t, "c", fn.Locals[2].Ident.Name.Text)
	check(t, 2, fn.Locals[2].Ident.SlotID)
}

func TestImplicitCastInsertedOnReturn(t *testing.T) {
	prog, sink := analyze(t, "real f() { return 1; }")
	require.False(t, sink.HasErrors())
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	cast, ok := ret.Value.(*ast.CastExpr)
	require.True(t, ok, "expected int literal to be wrapped in an implicit cast to real, got %T", ret.Value)
	check(t, types.Real, cast.Target.Base)
}

func TestImplicitCastRejectsStrToInt(t *testing.T) {
	_, sink := analyze(t, `int f() { int x = "hi"; return x; }`)
	assert.True(t, sink.HasErrors(), "expected an error assigning a str literal to an int local")
}

func TestScopeDoesNotLeakAcrossSiblingBlocks(t *testing.T) {
	// x declared in the first block must not be visible in the second:
	// the lookup for x inside the second block should fail, matching
	// ordinary lexical scoping rather than the original's scope leak.
	_, sink := analyze(t, "int f() { { int x = 1; } { return x; } }")
	assert.True(t, sink.HasErrors(), "expected an unknown-identifier error for x outside its block")
}

func TestShadowingWithinNestedBlock(t *testing.T) {
	prog, sink := analyze(t, "int f(int x) { { int x = 2; return x; } }")
	require.False(t, sink.HasErrors())
	block := prog.Functions[0].Body[0].(*ast.Block)
	ret := block.Stmts[1].(*ast.ReturnStmt)
	ident := ret.Value.(*ast.IdentExpr)
	check(t, 1, ident.Ident.SlotID) // the inner x, not the parameter at slot 0
}

func TestForeachDesugaring(t *testing.T) {
	prog, sink := analyze(t, "int f(int[] xs) { foreach (int x in xs) { } return 0; }")
	require.False(t, sink.HasErrors())
	fn := prog.Functions[0]
	fe := fn.Body[0].(*ast.ForeachStmt)
	require.NotNil(t, fe.LoopVarDecl)
	require.NotNil(t, fe.LoopVarAssign)
	assert.True(t, fe.CounterSlot > fe.LoopVarDecl.VarID, "counter temp should be allocated after the loop variable")
	sub, ok := fe.LoopVarAssign.Value.(*ast.Subscript)
	require.True(t, ok, "expected the loop variable's rhs to be an arr[counter] subscript, got %T", fe.LoopVarAssign.Value)
	idx, ok := sub.Index.(*ast.IdentExpr)
	require.True(t, ok)
	check(t, fe.CounterSlot, idx.Ident.SlotID)
}

func TestForeachRefWrapsAddrOf(t *testing.T) {
	prog, sink := analyze(t, "int f(int[] xs) { foreach (ref int x in xs) { } return 0; }")
	require.False(t, sink.HasErrors())
	fe := prog.Functions[0].Body[0].(*ast.ForeachStmt)
	_, ok := fe.LoopVarAssign.Value.(*ast.AddrOf)
	assert.True(t, ok, "expected a ref foreach loop variable to be assigned the element's address")
}

func TestMatchScrutineeReusesLocalSlot(t *testing.T) {
	prog, sink := analyze(t, "int f(int n) { return match(n) { 0 => 10, _ => 0 }; }")
	require.False(t, sink.HasErrors())
	fn := prog.Functions[0]
	ret := fn.Body[0].(*ast.ReturnStmt)
	m := ret.Value.(*ast.MatchExpr)
	check(t, fn.Locals[0].Ident.SlotID, m.ScrutineeSlot) // n, not a fresh temp
}

func TestMatchScrutineeSynthesizesTempForNonIdent(t *testing.T) {
	prog, sink := analyze(t, "int f() { return match(1 + 1) { 0 => 10, _ => 0 }; }")
	require.False(t, sink.HasErrors())
	fn := prog.Functions[0]
	ret := fn.Body[0].(*ast.ReturnStmt)
	m := ret.Value.(*ast.MatchExpr)
	require.Len(t, fn.Locals, 1)
	check(t, fn.Locals[0].Ident.SlotID, m.ScrutineeSlot)
	assert.True(t, fn.Locals[0].Temp)
}

func TestMatchRejectsMultipleWildcards(t *testing.T) {
	_, sink := analyze(t, "int f(int n) { return match(n) { _ => 1, _ => 2 }; }")
	assert.True(t, sink.HasErrors(), "expected an error for two wildcard cases")
}

func TestMatchRejectsMismatchedCaseResultTypes(t *testing.T) {
	_, sink := analyze(t, `int f(int n) { return match(n) { 0 => 10, _ => "oops" }; }`)
	assert.True(t, sink.HasErrors(), "expected an error: one case returns int, the other str")
}

func TestRandomRetaggedByOperandType(t *testing.T) {
	prog, sink := analyze(t, "int f() { real r = %3.0; return 0; }")
	require.False(t, sink.HasErrors())
	decl := prog.Functions[0].Body[0].(*ast.DeclStmt).Decl.(*ast.VarDecl)
	rnd := decl.Init.Value.(*ast.RandomExpr)
	check(t, ast.RandFloat, rnd.Kind)
}

func TestRandomRangeAlwaysInt(t *testing.T) {
	prog, sink := analyze(t, "int f() { int r = %0..10; return 0; }")
	require.False(t, sink.HasErrors())
	decl := prog.Functions[0].Body[0].(*ast.DeclStmt).Decl.(*ast.VarDecl)
	rnd := decl.Init.Value.(*ast.RandomExpr)
	check(t, ast.RandRange, rnd.Kind)
}

func TestBreakOutsideLoopIsAnError(t *testing.T) {
	_, sink := analyze(t, "int f() { break; return 0; }")
	assert.True(t, sink.HasErrors(), "expected an error for break outside a loop")
}

func TestBreakInsideLoopIsFine(t *testing.T) {
	_, sink := analyze(t, "int f() { while (1) { break; } return 0; }")
	assert.False(t, sink.HasErrors())
}

func TestReturnArityMismatch(t *testing.T) {
	_, sink := analyze(t, "void f() { return 1; }")
	assert.True(t, sink.HasErrors(), "expected an error returning a value from a void function")
}

func TestReturnMissingValue(t *testing.T) {
	_, sink := analyze(t, "int f() { return; }")
	assert.True(t, sink.HasErrors(), "expected an error for a bare return from a non-void function")
}

func TestAssignToNonLvalueIsAnError(t *testing.T) {
	_, sink := analyze(t, "int f() { 1 = 2; return 0; }")
	assert.True(t, sink.HasErrors(), "expected an error assigning to a non-lvalue")
}

func TestCallArgCountMismatch(t *testing.T) {
	_, sink := analyze(t, "int add(int a, int b) { return a + b; } int f() { return add(1); }")
	assert.True(t, sink.HasErrors(), "expected an argument-count error")
}

func TestIndirectCallThroughFunctionValue(t *testing.T) {
	prog, sink := analyze(t, "int add(int a, int b) { return a + b; } int f(int(int,int) fp) { return fp(1, 2); }")
	require.False(t, sink.HasErrors())
	ret := prog.Functions[1].Body[0].(*ast.ReturnStmt)
	call := ret.Value.(*ast.Call)
	assert.True(t, call.Indirect)
}

func TestBuiltinCallResolvesToBuiltinName(t *testing.T) {
	prog, sink := analyze(t, "int f() { return abs(-1); }")
	require.False(t, sink.HasErrors())
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	call := ret.Value.(*ast.Call)
	check(t, "abs", call.Builtin)
	assert.False(t, call.Indirect)
}

func TestOperatorOverloadResolvesOverBuiltinRule(t *testing.T) {
	src := `
struct Vec { int x; int y; };
Vec operator+(Vec a, Vec b) { return a; }
int f() { Vec a = Vec(1, 2); Vec b = Vec(3, 4); Vec c = a + b; return 0; }
`
	prog, sink := analyze(t, src)
	require.False(t, sink.HasErrors())
	fn := prog.Functions[len(prog.Functions)-1]
	decl := fn.Body[2].(*ast.DeclStmt).Decl.(*ast.VarDecl)
	bin := decl.Init.Value.(*ast.BinOp)
	require.NotNil(t, bin.Overload)
	check(t, "+", bin.Overload.Name.Text)
}

func TestOverloadRejectsTwoPODOperands(t *testing.T) {
	_, sink := analyze(t, "int operator+(int a, int b) { return a; }")
	assert.True(t, sink.HasErrors(), "expected an error overloading + for two built-in int operands")
}

func TestFieldAccessResolvesOffset(t *testing.T) {
	src := "struct Point { int x; int y; }; int f() { Point p = Point(1, 2); return p.y; }"
	prog, sink := analyze(t, src)
	require.False(t, sink.HasErrors())
	fn := prog.Functions[0]
	ret := fn.Body[1].(*ast.ReturnStmt)
	fa := ret.Value.(*ast.FieldAccess)
	check(t, "y", fa.Resolved.Name)
	check(t, types.WordSize, fa.Resolved.Offset)
}

func TestArrayCatAppendsElement(t *testing.T) {
	prog, sink := analyze(t, "int f(int[] xs) { int[] ys = xs ~ 1; return 0; }")
	require.False(t, sink.HasErrors())
	decl := prog.Functions[0].Body[0].(*ast.DeclStmt).Decl.(*ast.VarDecl)
	bin := decl.Init.Value.(*ast.BinOp)
	check(t, types.OpCat, bin.OpCode)
	assert.True(t, bin.ValueType().Kind == types.KindArray)
}

func TestStrCatConcatenates(t *testing.T) {
	prog, sink := analyze(t, `str f() { return "a" ~ "b"; }`)
	require.False(t, sink.HasErrors())
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	bin := ret.Value.(*ast.BinOp)
	check(t, types.Str, bin.ValueType().Base)
}
