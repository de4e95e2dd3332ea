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

package astopt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/lexer"
	"github.com/gmofishsauce/langc/internal/parser"
	"github.com/gmofishsauce/langc/internal/semant"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

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

// compile lexes, parses and semantically analyzes src, then runs the
// optimizer over the result, returning the single function found
// (every test source here declares exactly one).
func compile(t *testing.T, src string) *ast.Function {
	sink := diag.NewSink()
	sink.Exit = func(int) {}
	structs := types.NewStructTable()
	p := parser.New(lexAll(t, src), sink, structs)
	prog := p.ParseProgram()
	semant.New(sink, structs).Run(prog)
	require.False(t, sink.HasErrors(), "unexpected analysis errors")
	Run(prog)
	require.Len(t, prog.Functions, 1)
	return prog.Functions[0]
}

func returnValue(t *testing.T, fn *ast.Function) ast.Expr {
	require.Len(t, fn.Body, 1)
	ret, ok := fn.Body[0].(*ast.ReturnStmt)
	require.True(t, ok)
	return ret.Value
}

func TestConstantFoldIntegerBinop(t *testing.T) {
	fn := compile(t, "int f() { return 1 + 2 * 3; }")
	lit, ok := returnValue(t, fn).(*ast.IntLit)
	require.True(t, ok, "expected a folded IntLit, got %T", returnValue(t, fn))
	require.Equal(t, "7", lit.Tok.Text)
}

func TestConstantFoldFloatBinop(t *testing.T) {
	fn := compile(t, "real f() { return 1.5 + 2.5; }")
	lit, ok := returnValue(t, fn).(*ast.FloatLit)
	require.True(t, ok, "expected a folded FloatLit, got %T", returnValue(t, fn))
	require.Equal(t, "4", lit.Tok.Text)
}

func TestConstantFoldUnary(t *testing.T) {
	fn := compile(t, "int f() { return -5 + 0; }")
	lit, ok := returnValue(t, fn).(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, "-5", lit.Tok.Text)
}

func TestConstantFoldCastIntToReal(t *testing.T) {
	fn := compile(t, "real f() { return (real)3; }")
	lit, ok := returnValue(t, fn).(*ast.FloatLit)
	require.True(t, ok, "expected a folded FloatLit, got %T", returnValue(t, fn))
	require.Equal(t, "3", lit.Tok.Text)
}

func TestConstantFoldCastRealToInt(t *testing.T) {
	fn := compile(t, "int f() { return (int)3.9; }")
	lit, ok := returnValue(t, fn).(*ast.IntLit)
	require.True(t, ok, "expected a folded IntLit, got %T", returnValue(t, fn))
	require.Equal(t, "3", lit.Tok.Text)
}

func TestModuloByPowerOfTwoBecomesBitAnd(t *testing.T) {
	fn := compile(t, "int f(int x) { return x % 8; }")
	bin, ok := returnValue(t, fn).(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, types.OpBitAnd, bin.OpCode)
	rhs, ok := bin.Right.(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, "7", rhs.Tok.Text)
}

func TestDivideByPowerOfTwoBecomesShift(t *testing.T) {
	fn := compile(t, "int f(int x) { return x / 16; }")
	bin, ok := returnValue(t, fn).(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, types.OpShr, bin.OpCode)
	rhs, ok := bin.Right.(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, "4", rhs.Tok.Text)
}

func TestMultiplyByPowerOfTwoBecomesShift(t *testing.T) {
	fn := compile(t, "int f(int x) { return x * 32; }")
	bin, ok := returnValue(t, fn).(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, types.OpShl, bin.OpCode)
	rhs, ok := bin.Right.(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, "5", rhs.Tok.Text)
}

func TestMultiplyConstantOnLeftIsCanonicalized(t *testing.T) {
	fn := compile(t, "int f(int x) { return 4 * x; }")
	bin, ok := returnValue(t, fn).(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, types.OpShl, bin.OpCode)
	_, leftIsIdent := bin.Left.(*ast.IdentExpr)
	require.True(t, leftIsIdent, "expected the variable operand to end up on the left")
	rhs, ok := bin.Right.(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, "2", rhs.Tok.Text)
}

func TestDivideByNonPowerOfTwoIsUnchanged(t *testing.T) {
	fn := compile(t, "int f(int x) { return x / 7; }")
	bin, ok := returnValue(t, fn).(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, types.OpDiv, bin.OpCode)
}

func TestRealDivisionByPowerOfTwoIsUnchanged(t *testing.T) {
	fn := compile(t, "real f(real x) { return x / 4.0; }")
	bin, ok := returnValue(t, fn).(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, types.OpDiv, bin.OpCode)
}

func TestDivisionByZeroConstantIsNotFolded(t *testing.T) {
	fn := compile(t, "int f() { return 1 / 0; }")
	bin, ok := returnValue(t, fn).(*ast.BinOp)
	require.True(t, ok, "division by a literal zero must survive unfolded, got %T", returnValue(t, fn))
	require.Equal(t, types.OpDiv, bin.OpCode)
}

func TestEnclosedChainIsShortened(t *testing.T) {
	fn := compile(t, "int f(int x) { return ((x)); }")
	enc, ok := returnValue(t, fn).(*ast.Enclosed)
	require.True(t, ok)
	_, innerIsEnclosed := enc.Inner.(*ast.Enclosed)
	require.False(t, innerIsEnclosed, "nested Enclosed chain should have been collapsed to one level")
	_, innerIsIdent := enc.Inner.(*ast.IdentExpr)
	require.True(t, innerIsIdent)
}

func TestNestedConstantFoldAcrossMultiplePasses(t *testing.T) {
	// (1+1) * 4 folds all the way to 8: the walk is bottom-up, so the
	// sum becomes 2 before the multiply is visited, and 2 * 4 is then
	// folded as a constant too. The driver runs the walk Passes times.
	fn := compile(t, "int f() { return (1 + 1) * 4; }")
	lit, ok := returnValue(t, fn).(*ast.IntLit)
	require.True(t, ok, "expected full constant fold, got %T", returnValue(t, fn))
	require.Equal(t, "8", lit.Tok.Text)
}
