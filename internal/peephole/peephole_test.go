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

package peephole

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/langc/internal/codegen"
	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/ir"
	"github.com/gmofishsauce/langc/internal/lexer"
	"github.com/gmofishsauce/langc/internal/parser"
	"github.com/gmofishsauce/langc/internal/semant"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

// compile runs src through the whole front end and code generator,
// for the handful of peephole tests that care about a realistic
// instruction stream rather than a hand-built one.
func compile(t *testing.T, src string) *ir.List {
	t.Helper()
	sink := diag.NewSink()
	sink.Exit = func(int) {}
	structs := types.NewStructTable()

	lx := lexer.NewString(t.Name(), src, lexer.Flags{})
	var toks []*token.Token
	for {
		tok := lx.Next()
		if tok.Kind == token.EOF {
			break
		}
		if tok.Kind == token.Newline {
			continue
		}
		toks = append(toks, tok)
	}

	p := parser.New(toks, sink, structs)
	prog := p.ParseProgram()
	semant.New(sink, structs).Run(prog)
	require.False(t, sink.HasErrors(), "source failed to analyze")

	list, _ := codegen.Generate(prog, structs)
	return list
}

// build assembles a list from bare opcode/operand pairs, for pinning
// down a single pass's behavior without routing through the rest of
// the compiler.
func build(pairs ...[2]string) *ir.List {
	l := ir.NewList()
	for _, p := range pairs {
		l.PushBack(ir.New(p[0], p[1]))
	}
	return l
}

func label(in *ir.Instruction, names ...string) *ir.Instruction {
	in.Labels = append(in.Labels, names...)
	return in
}

func ops(l *ir.List) []string {
	var out []string
	l.Each(func(in *ir.Instruction) bool {
		out = append(out, in.Op)
		return true
	})
	return out
}

func operands(l *ir.List) []string {
	var out []string
	l.Each(func(in *ir.Instruction) bool {
		out = append(out, in.Operand)
		return true
	})
	return out
}

func TestSmallPushiNarrowsToPushib(t *testing.T) {
	l := build([2]string{"pushi", "#5"})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"pushib"}, ops(l))
	assert.Equal(t, []string{"#5"}, operands(l))
}

func TestAddsubZeroRemovesNoOpAddition(t *testing.T) {
	l := build([2]string{"pushl", "0"}, [2]string{"pushi", "#0"}, [2]string{"add", ""}, [2]string{"ret", ""})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"pushl", "ret"}, ops(l))
}

func TestPushpopRemovesBothInstructions(t *testing.T) {
	l := build([2]string{"pushi", "#1"}, [2]string{"pop", ""}, [2]string{"ret", ""})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"ret"}, ops(l))
}

func TestIncdecIncldeclChainCollapses(t *testing.T) {
	// pushl 0; pushi #1; add; movl 0 should collapse all the way down
	// to a single incl 0: the first sweep's incdec turns pushi #1; add
	// into inc after the pushl anchor has already been visited, so
	// incldecl folds pushl 0; inc; movl 0 on the second sweep.
	l := build([2]string{"pushl", "0"}, [2]string{"pushi", "#1"}, [2]string{"add", ""}, [2]string{"movl", "0"})
	Run(l, 2)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"incl"}, ops(l))
	assert.Equal(t, []string{"0"}, operands(l))
}

func TestConstevalFoldsConstantAdditionThenNarrows(t *testing.T) {
	l := build([2]string{"pushi", "#2"}, [2]string{"pushi", "#3"}, [2]string{"add", ""}, [2]string{"ret", ""})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"pushib", "ret"}, ops(l))
	assert.Equal(t, []string{"#5", ""}, operands(l))
}

func TestTailcallBecomesJump(t *testing.T) {
	l := build([2]string{"call", "g"}, [2]string{"ret", ""})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"jmp"}, ops(l))
	assert.Equal(t, []string{"g"}, operands(l))
}

func TestDeadRetRemovedAfterJump(t *testing.T) {
	l := build([2]string{"jmp", ".Lout"}, [2]string{"ret", ""})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"jmp"}, ops(l))
}

func TestInplaceBoolBinopFoldsLocalLoadIntoComparison(t *testing.T) {
	l := build([2]string{"pushl", "0"}, [2]string{"pushi", "#5"}, [2]string{"eq", ""})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"pushib", "eql"}, ops(l))
	assert.Equal(t, []string{"#5", "0"}, operands(l))
}

func TestJccJmpCollapsesToSingleBranch(t *testing.T) {
	l := ir.NewList()
	l.PushBack(ir.New("jf", ".Lx"))
	l.PushBack(ir.New("jmp", ".Lout"))
	l.PushBack(label(ir.New("ret", ""), ".Lx"))

	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"jt", "ret"}, ops(l))
	assert.Equal(t, []string{".Lout", ""}, operands(l))
}

func TestCmovCollapsesConditionalAssignment(t *testing.T) {
	l := ir.NewList()
	l.PushBack(ir.New("jf", ".L0"))
	l.PushBack(ir.New("pushi", "#4"))
	l.PushBack(ir.New("movl", "2"))
	l.PushBack(ir.New("jmp", ".L1"))
	l.PushBack(label(ir.New("pushi", "#8"), ".L0"))
	l.PushBack(ir.New("movl", "2"))
	l.PushBack(label(ir.New("ret", ""), ".L1"))

	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"pushib", "pushib", "cmov", "ret"}, ops(l))
	assert.Equal(t, []string{"#4", "#8", "", ""}, operands(l))
}

func TestLogicnotChainWithEvenCountCancels(t *testing.T) {
	l := build([2]string{"lnot", ""}, [2]string{"lnot", ""}, [2]string{"ret", ""})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"ret"}, ops(l))
}

func TestLogicnotChainWithOddCountCollapsesToOne(t *testing.T) {
	l := build([2]string{"lnot", ""}, [2]string{"lnot", ""}, [2]string{"lnot", ""}, [2]string{"ret", ""})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"lnot", "ret"}, ops(l))
}

func TestJumpnotFlipsBranchSense(t *testing.T) {
	l := build([2]string{"lnot", ""}, [2]string{"jf", ".Lout"})
	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"jt"}, ops(l))
	assert.Equal(t, []string{".Lout"}, operands(l))
}

func TestLabeledInstructionIsNeverSilentlyDiscarded(t *testing.T) {
	// A pushl; pop pair would normally vanish, but the pop is a live
	// jump target here, so the rewrite must not fire.
	l := ir.NewList()
	l.PushBack(ir.New("pushl", "0"))
	l.PushBack(label(ir.New("pop", ""), ".Ltarget"))

	Run(l, 15)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"pushl", "pop"}, ops(l))
}

func TestConvergesWithinFifteenSweeps(t *testing.T) {
	l := build(
		[2]string{"pushl", "0"}, [2]string{"pushi", "#1"}, [2]string{"add", ""}, [2]string{"movl", "0"},
		[2]string{"pushi", "#2"}, [2]string{"pushi", "#3"}, [2]string{"add", ""},
		[2]string{"pushi", "#0"}, [2]string{"pop", ""},
	)
	Run(l, 15)
	before := append([]string(nil), ops(l)...)

	Run(l, 1)
	require.NoError(t, l.Validate())
	assert.Equal(t, before, ops(l), "a 16th sweep over an already-settled list must be a no-op")
}

func TestCompiledTailRecursiveCallBecomesJump(t *testing.T) {
	list := compile(t, `int g(int x) { return x; } int f(int x) { return g(x); }`)
	Run(list, 15)
	require.NoError(t, list.Validate())
	assert.NotContains(t, ops(list), "call")
}
