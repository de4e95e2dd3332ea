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

package parser

import (
	"testing"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/lexer"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

func check(t *testing.T, a1 any, a2 any) {
	if a1 != a2 {
		t.Errorf("%[1]v (a %[1]T) != %[2]v (a %[2]T)", a1, a2)
	}
}

// lexAll runs src through the lexer only (no preprocessing) and drops
// Newline tokens, matching the token stream internal/preprocess hands
// the parser in production.
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

func newTestParser(t *testing.T, src string) *Parser {
	sink := diag.NewSink()
	sink.Exit = func(int) {}
	return New(lexAll(t, src), sink, types.NewStructTable())
}

func TestParseSimpleFunction(t *testing.T) {
	p := newTestParser(t, "int add(int a, int b) { return a + b; }")
	prog := p.ParseProgram()
	check(t, 1, len(prog.Functions))
	fn := prog.Functions[0]
	check(t, "add", fn.Name.Text)
	check(t, 2, len(fn.Params))
	check(t, 1, len(fn.Body))
	ret, ok := fn.Body[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected ReturnStmt, got %T", fn.Body[0])
	}
	bin, ok := ret.Value.(*ast.BinOp)
	if !ok {
		t.Fatalf("expected BinOp, got %T", ret.Value)
	}
	check(t, types.OpAdd, bin.OpCode)
}

func TestParseGlobalVarDecl(t *testing.T) {
	p := newTestParser(t, "int counter = 0;")
	prog := p.ParseProgram()
	check(t, 1, len(prog.Globals))
	check(t, "counter", prog.Globals[0].Name.Text)
	check(t, true, prog.Globals[0].Global)
}

func TestOperatorPrecedence(t *testing.T) {
	p := newTestParser(t, "int f() { return 1 + 2 * 3; }")
	prog := p.ParseProgram()
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	top, ok := ret.Value.(*ast.BinOp)
	if !ok {
		t.Fatalf("expected top-level BinOp, got %T", ret.Value)
	}
	check(t, types.OpAdd, top.OpCode)
	if _, ok := top.Left.(*ast.IntLit); !ok {
		t.Fatalf("expected left operand 1 to stay a literal, got %T", top.Left)
	}
	rhs, ok := top.Right.(*ast.BinOp)
	if !ok {
		t.Fatalf("expected 2 * 3 to bind tighter, got %T", top.Right)
	}
	check(t, types.OpMul, rhs.OpCode)
}

func TestCompoundAssignDesugars(t *testing.T) {
	p := newTestParser(t, "int f() { int x = 1; x += 2; return x; }")
	prog := p.ParseProgram()
	stmt := prog.Functions[0].Body[1].(*ast.ExprStmt)
	assign, ok := stmt.X.(*ast.Assign)
	if !ok {
		t.Fatalf("expected Assign, got %T", stmt.X)
	}
	check(t, true, assign.Discard)
	bin, ok := assign.Value.(*ast.BinOp)
	if !ok {
		t.Fatalf("expected desugared BinOp rhs, got %T", assign.Value)
	}
	check(t, types.OpAdd, bin.OpCode)
}

func TestIfElse(t *testing.T) {
	p := newTestParser(t, "int f(int n) { if (n > 0) { return n; } else { return 0; } }")
	prog := p.ParseProgram()
	ifStmt, ok := prog.Functions[0].Body[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", prog.Functions[0].Body[0])
	}
	if ifStmt.Else == nil {
		t.Fatal("expected an else branch")
	}
}

func TestCastVsParenDisambiguation(t *testing.T) {
	p := newTestParser(t, "int f() { return (int) 3.5; }")
	prog := p.ParseProgram()
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	cast, ok := ret.Value.(*ast.CastExpr)
	if !ok {
		t.Fatalf("expected CastExpr, got %T", ret.Value)
	}
	check(t, types.Int, cast.Target.Base)

	p2 := newTestParser(t, "int f() { return (1 + 2); }")
	prog2 := p2.ParseProgram()
	ret2 := prog2.Functions[0].Body[0].(*ast.ReturnStmt)
	if _, ok := ret2.Value.(*ast.Enclosed); !ok {
		t.Fatalf("expected Enclosed, got %T", ret2.Value)
	}
}

func TestStructDeclAndInit(t *testing.T) {
	p := newTestParser(t, "struct Point { int x; int y; }; int f() { Point p = Point(1, 2); return 0; }")
	prog := p.ParseProgram()
	structDecl, ok := prog.Decls[0].(*ast.StructDecl)
	if !ok {
		t.Fatalf("expected StructDecl, got %T", prog.Decls[0])
	}
	check(t, 2, len(structDecl.Fields))

	localDecl := prog.Functions[0].Body[0].(*ast.DeclStmt).Decl.(*ast.VarDecl)
	init, ok := localDecl.Init.Value.(*ast.StructInit)
	if !ok {
		t.Fatalf("expected StructInit, got %T", localDecl.Init.Value)
	}
	check(t, 2, len(init.Elements))
}

func TestForeachStmt(t *testing.T) {
	p := newTestParser(t, "int f(int[] xs) { foreach (int x in xs) { } return 0; }")
	prog := p.ParseProgram()
	fe, ok := prog.Functions[0].Body[0].(*ast.ForeachStmt)
	if !ok {
		t.Fatalf("expected ForeachStmt, got %T", prog.Functions[0].Body[0])
	}
	check(t, "x", fe.LoopVar.Name.Text)
	if fe.LoopVarType == nil {
		t.Fatal("expected an explicit element type")
	}
}

func TestMatchExpr(t *testing.T) {
	p := newTestParser(t, `int f(int n) { return match(n) { 0 => 10, 1 | 2 => 20, _ => 0 }; }`)
	prog := p.ParseProgram()
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	m, ok := ret.Value.(*ast.MatchExpr)
	if !ok {
		t.Fatalf("expected MatchExpr, got %T", ret.Value)
	}
	check(t, 3, len(m.Cases))
	check(t, true, m.Cases[2].Wildcard)
	check(t, 2, len(m.Cases[1].Patterns))
}

func TestArraySizeAcceptsHexLiteral(t *testing.T) {
	p := newTestParser(t, "int f() { int[0x4] xs; return 0; }")
	prog := p.ParseProgram()
	decl := prog.Functions[0].Body[0].(*ast.DeclStmt).Decl.(*ast.VarDecl)
	check(t, 4, decl.Type.InitialSize)
}

func TestUFCSRewrite(t *testing.T) {
	p := newTestParser(t, "int len(int[] xs) { return 0; } int f(int[] xs) { return xs.len(); }")
	prog := p.ParseProgram()
	ret := prog.Functions[1].Body[0].(*ast.ReturnStmt)
	call, ok := ret.Value.(*ast.Call)
	if !ok {
		t.Fatalf("expected Call, got %T", ret.Value)
	}
	check(t, 1, len(call.Args))
	if _, ok := call.Args[0].(*ast.IdentExpr); !ok {
		t.Fatalf("expected receiver spliced in as first arg, got %T", call.Args[0])
	}
}
