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
	"fmt"
	"strconv"
	"strings"

	"github.com/gmofishsauce/langc/internal/codegen"
	"github.com/gmofishsauce/langc/internal/ir"
	"github.com/gmofishsauce/langc/internal/types"
)

// peepholeCopyl: movl n; pushl n -> copyl n. Left alone when the
// pushl is immediately followed by a discarding pop, so that
// peepholePushpop gets first crack at the simpler movl;pushl;pop ->
// movl rewrite instead.
func peepholeCopyl(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "movl" {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil || nxt.Op != "pushl" {
		return skip
	}
	if ins.Operand != nxt.Operand {
		return skip
	}
	if len(nxt.Labels) > 0 {
		return skip
	}
	if after := nxt.Next(); after != nil && after.Op == "pop" && len(after.Labels) == 0 {
		return skip
	}

	ins.Op = "copyl"
	l.Remove(nxt)
	return cont
}

// peepholeAddsubZero: pushi #0; add|sub -> removed entirely, since
// adding or subtracting zero is a no-op.
func peepholeAddsubZero(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "pushi" || ins.Operand != "#0" {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil || (nxt.Op != "add" && nxt.Op != "sub") {
		return skip
	}
	if len(ins.Labels) > 0 || len(nxt.Labels) > 0 {
		return skip
	}

	l.Remove(nxt)
	l.Remove(ins)
	return nextInstruction
}

// peepholeUselessCopyl: copyl n; copyl n -> copyl n (the second copy
// reloads the exact same local the first one just loaded).
func peepholeUselessCopyl(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "copyl" {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil || nxt.Op != "copyl" || nxt.Operand != ins.Operand {
		return skip
	}
	if len(nxt.Labels) > 0 {
		return skip
	}

	l.Remove(nxt)
	return cont
}

// peepholeUselessCopylSandwich: copyl n; X; copyl n -> X; copyl n -
// the same redundant-reload idea as peepholeUselessCopyl but with one
// untouched instruction sitting between the two copies.
func peepholeUselessCopylSandwich(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "copyl" {
		return skip
	}
	mid := ins.Next()
	if mid == nil {
		return skip
	}
	last := mid.Next()
	if last == nil || last.Op != "copyl" || last.Operand != ins.Operand {
		return skip
	}
	if len(mid.Labels) > 0 || len(last.Labels) > 0 {
		return skip
	}

	l.Remove(ins)
	return nextInstruction
}

// peepholePushiCopyl: pushi #k; movl n; pushi #k -> pushi #k; copyl n
// - the second push of the same constant is replaced by reloading the
// local it was just stored into.
func peepholePushiCopyl(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "pushi" {
		return skip
	}
	movl := ins.Next()
	if movl == nil || movl.Op != "movl" {
		return skip
	}
	again := movl.Next()
	if again == nil || again.Op != "pushi" || again.Operand != ins.Operand {
		return skip
	}
	if len(again.Labels) > 0 {
		return skip
	}

	movl.Op = "copyl"
	l.Remove(again)
	return cont
}

// peepholePushpop: any push followed directly by a pop discards the
// value it just pushed - both instructions vanish.
func peepholePushpop(l *ir.List, ins *ir.Instruction) passResult {
	if !strings.HasPrefix(ins.Op, "push") {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil || nxt.Op != "pop" || len(nxt.Labels) > 0 {
		return skip
	}

	l.Remove(nxt)
	l.Remove(ins)
	return nextInstruction
}

// peepholeLogicnot: pushi #0; eq -> lnot (comparing against zero for
// equality is exactly logical negation).
func peepholeLogicnot(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "pushi" || ins.Operand != "#0" {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil || nxt.Op != "eq" || len(nxt.Labels) > 0 {
		return skip
	}

	ins.Op = "lnot"
	ins.Operand = ""
	l.Remove(nxt)
	return cont
}

// peepholeLogicnotChain collapses a run of consecutive lnot
// instructions: an even count cancels out entirely (all removed), an
// odd count collapses to a single lnot (only the first kept).
func peepholeLogicnotChain(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "lnot" {
		return skip
	}

	first := ins
	acc := 1
	cur := ins.Next()
	for cur != nil && cur.Op == "lnot" {
		toRemove := cur
		cur = cur.Next()
		l.Remove(toRemove)
		acc++
	}

	if acc%2 == 0 {
		l.Remove(first)
		return nextInstruction
	}
	return cont
}

// peepholeJumpnot: lnot; jf|jt -> jt|jf, dropping the lnot since
// negating the test and flipping the branch sense is the same thing.
func peepholeJumpnot(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "lnot" {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil {
		return skip
	}
	if len(ins.Labels) > 0 {
		return skip
	}

	switch nxt.Op {
	case "jf":
		nxt.Op = "jt"
	case "jt":
		nxt.Op = "jf"
	default:
		return skip
	}
	l.Remove(ins)
	return nextInstruction
}

// peepholeNormalizeLogic: neq/fneq/strneq followed immediately by a
// conditional jump is rewritten to the corresponding equality test
// with the jump sense flipped - eq/jt reads the same as neq/jf but
// keeps every comparison opcode's "positive" form together so later
// passes (peepholeJccJmp in particular) only need to recognize one
// shape.
func peepholeNormalizeLogic(l *ir.List, ins *ir.Instruction) passResult {
	var opposite string
	switch ins.Op {
	case "neq":
		opposite = "eq"
	case "fneq":
		opposite = "feq"
	case "strneq":
		opposite = "streq"
	default:
		return skip
	}

	nxt := ins.Next()
	if nxt == nil || len(nxt.Labels) > 0 {
		return skip
	}

	switch nxt.Op {
	case "jf":
		ins.Op = opposite
		nxt.Op = "jt"
	case "jt":
		ins.Op = opposite
		nxt.Op = "jf"
	}
	return cont
}

// peepholeIncdec: pushi #1|#-1; add|sub -> inc|dec, picking the
// opposite increment/decrement sense for the #-1 operand since
// subtracting -1 is incrementing and vice versa.
func peepholeIncdec(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "pushi" || (ins.Operand != "#1" && ins.Operand != "#-1") {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil || len(nxt.Labels) > 0 {
		return skip
	}
	negative := ins.Operand == "#-1"

	switch nxt.Op {
	case "add":
		if negative {
			ins.Op = "dec"
		} else {
			ins.Op = "inc"
		}
		ins.Operand = ""
		l.Remove(nxt)
	case "sub":
		if negative {
			ins.Op = "inc"
		} else {
			ins.Op = "dec"
		}
		ins.Operand = ""
		l.Remove(nxt)
	}
	return cont
}

// peepholeJccJmp collapses "jcc L1; jmp out; L1: ..." into "jcc' out"
// once L1 is confirmed to label the instruction right after the jmp -
// the inverse condition falls through to exactly where the original
// jcc would have landed, so the explicit jmp and its label become
// unnecessary.
//
// asm_optimizer.c guards this with `if (ins->next->next == NULL)`,
// which is backwards: that branch dereferences ins->next->next inside
// its own body (a NULL-pointer read in the original) and, when
// ins->next->next is non-NULL, the label check is skipped entirely and
// the rewrite fires unconditionally - unsound, since nothing then
// guarantees the fallthrough actually reaches L1. This port applies
// the condition the comment and surrounding code clearly intend: only
// rewrite when ins->next->next exists and is labeled with ins's own
// jump target.
func peepholeJccJmp(l *ir.List, ins *ir.Instruction) passResult {
	nxt := ins.Next()
	if nxt == nil || nxt.Op != "jmp" {
		return skip
	}
	if len(nxt.Labels) > 0 {
		return skip
	}

	fallthroughIns := nxt.Next()
	if fallthroughIns == nil {
		return skip
	}
	found := false
	for _, lbl := range fallthroughIns.Labels {
		if lbl == ins.Operand {
			found = true
			break
		}
	}
	if !found {
		return skip
	}

	switch ins.Op {
	case "jf":
		ins.Op = "jt"
		ins.Operand = nxt.Operand
		l.Remove(nxt)
	case "jt":
		ins.Op = "jf"
		ins.Operand = nxt.Operand
		l.Remove(nxt)
	}
	return cont
}

// peepholeIncldecl: pushl k; inc|dec; movl k -> incl k|decl k, folding
// a load-bump-store-back sequence on the same local into one
// instruction.
func peepholeIncldecl(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "pushl" {
		return skip
	}
	mid := ins.Next()
	if mid == nil {
		return skip
	}
	last := mid.Next()
	if last == nil {
		return skip
	}
	if len(mid.Labels) > 0 || len(last.Labels) > 0 {
		return skip
	}
	if last.Op != "movl" || last.Operand != ins.Operand {
		return skip
	}

	switch mid.Op {
	case "inc":
		ins.Op = "incl"
	case "dec":
		ins.Op = "decl"
	default:
		return skip
	}
	l.Remove(last)
	l.Remove(mid)
	return cont
}

// peepholeCmov folds the canonical if/else-assignment shape:
//
//	jf .L0
//	pushi #4
//	movl 2
//	jmp .L1
//	.L0:
//	pushi #8
//	movl 2
//	.L1:
//
// into an unconditional "pushi #4; pushi #8; cmov" (cmov picks the
// first value when the original test was true, the second otherwise),
// eliminating both branches entirely.
func peepholeCmov(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "jf" && ins.Op != "jt" {
		return skip
	}

	ins1 := nextIns(ins, 1, true)
	ins2 := nextIns(ins, 2, true)
	ins3 := nextIns(ins, 3, true)
	ins4 := nextIns(ins, 4, false)
	ins5 := nextIns(ins, 5, true)
	ins6 := nextIns(ins, 6, false)

	if ins1 == nil || ins1.Op != "pushi" {
		return skip
	}
	if ins2 == nil || ins2.Op != "movl" {
		return skip
	}
	if ins3 == nil || ins3.Op != "jmp" {
		return skip
	}
	if ins4 == nil || ins4.Op != "pushi" {
		return skip
	}
	if ins5 == nil || ins5.Op != "movl" {
		return skip
	}
	if ins6 == nil {
		return skip
	}
	if ins2.Operand != ins5.Operand {
		return skip
	}
	if len(ins4.Labels) != 1 || ins4.Labels[0] != ins.Operand {
		return skip
	}
	targetFound := false
	for _, lbl := range ins6.Labels {
		if lbl == ins3.Operand {
			targetFound = true
			break
		}
	}
	if !targetFound {
		return skip
	}

	second := ins.Next()
	if ins.Op == "jf" {
		ins.Op, ins.Operand, ins.Comment = "pushi", ins1.Operand, "true"
		second.Op, second.Operand, second.Comment = "pushi", ins4.Operand, "false"
	} else {
		ins.Op, ins.Operand, ins.Comment = "pushi", ins4.Operand, "true"
		second.Op, second.Operand, second.Comment = "pushi", ins1.Operand, "false"
	}
	second.Next().Op = "cmov"
	l.Remove(ins3)
	l.Remove(ins4)
	l.Remove(ins5)

	return cont
}

// parseImmediate reads a "#123"-shaped operand, failing if it isn't
// one - every pushi/pushf operand this package ever sees was produced
// by internal/codegen's own emit helpers, so the format is fixed.
func parseImmediate(operand string) (int, bool) {
	if !strings.HasPrefix(operand, "#") {
		return 0, false
	}
	n, err := strconv.Atoi(operand[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// peepholeConstevalInt folds two adjacent integer immediates feeding a
// binary operator into the single immediate that operator would have
// produced at run time.
func peepholeConstevalInt(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "pushi" {
		return skip
	}
	lhs, ok := parseImmediate(ins.Operand)
	if !ok {
		return skip
	}

	rhsIns := ins.Next()
	if rhsIns == nil || rhsIns.Op != "pushi" || len(rhsIns.Labels) > 0 {
		return skip
	}
	rhs, ok := parseImmediate(rhsIns.Operand)
	if !ok {
		return skip
	}

	opIns := rhsIns.Next()
	if opIns == nil || len(opIns.Labels) > 0 {
		return skip
	}
	// Two integer immediates can never reach a concat. strcat is only
	// in the STR opcode row, so OpForIntOpcode would not match it
	// either; this is the original's explicit guard.
	if opIns.Op == "strcat" {
		return skip
	}

	op, ok := codegen.OpForIntOpcode(opIns.Op)
	if !ok {
		return skip
	}

	result := types.EvalIntBinop(op, lhs, rhs)
	ins.Operand = fmt.Sprintf("#%d", result)
	l.Remove(opIns)
	l.Remove(rhsIns)
	return cont
}

// peepholeUselessRepNop collapses a run of consecutive identical
// ret/ret or nop/nop instructions down to the first one - anything
// past the first is dead.
func peepholeUselessRepNop(l *ir.List, ins *ir.Instruction) passResult {
	replaced := false
	cur := ins

	if cur.Op == "ret" {
		n := cur.Next()
		for n != nil && len(n.Labels) == 0 && n.Op == "ret" {
			old := n
			n = n.Next()
			l.Remove(old)
			replaced = true
		}
		cur = n
	}
	if cur != nil && cur.Op == "nop" {
		n := cur.Next()
		for n != nil && len(n.Labels) == 0 && n.Op == "nop" {
			old := n
			n = n.Next()
			l.Remove(old)
			replaced = true
		}
	}

	if replaced {
		return cont
	}
	return skip
}

// peepholeDup: a copyl/pushl of local k followed by one or more
// further pushl k's turns each repeat into a plain stack dup, since
// the local's value is already sitting on top.
func peepholeDup(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "copyl" && ins.Op != "pushl" {
		return skip
	}

	replaced := false
	cur := ins.Next()
	for cur != nil && len(cur.Labels) == 0 && cur.Op == "pushl" && cur.Operand == ins.Operand {
		cur.Op = "dup"
		cur.Operand = ""
		replaced = true
		cur = cur.Next()
	}

	if replaced {
		return cont
	}
	return skip
}

// peepholeLnotCmov: lnot; push; push; cmov -> push; push; cmov with
// the two pushes swapped - negating the test and swapping the cmov's
// true/false operands is equivalent to evaluating the original test.
func peepholeLnotCmov(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "lnot" {
		return skip
	}
	a := ins.Next()
	if a == nil || !strings.HasPrefix(a.Op, "push") {
		return skip
	}
	b := a.Next()
	if b == nil || !strings.HasPrefix(b.Op, "push") {
		return skip
	}
	c := b.Next()
	if c == nil || c.Op != "cmov" {
		return skip
	}

	a.Operand, b.Operand = b.Operand, a.Operand
	l.Remove(ins)
	return nextInstruction
}

// peepholePushDup collapses a run of pushes of the exact same
// opcode+operand (beyond the first) into dup instructions - a second,
// narrower pattern than peepholeDup that fires for any push opcode,
// not just pushl.
func peepholePushDup(l *ir.List, ins *ir.Instruction) passResult {
	if !strings.HasPrefix(ins.Op, "push") {
		return skip
	}

	replaced := false
	cur := ins.Next()
	for cur != nil && cur.Op == ins.Op && cur.Operand == ins.Operand {
		cur.Op = "dup"
		cur.Operand = ""
		replaced = true
		cur = cur.Next()
	}

	if replaced {
		return cont
	}
	return skip
}

// peepholeTailcall: call F; ret -> jmp F. A call immediately followed
// by a return never needs its own stack frame back.
func peepholeTailcall(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "call" {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil || nxt.Op != "ret" || len(nxt.Labels) > 0 {
		return skip
	}

	ins.Op = "jmp"
	l.Remove(nxt)
	return cont
}

// peepholeDeadRet: jmp; ret -> jmp. A ret right after an unconditional
// jump is unreachable.
func peepholeDeadRet(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "jmp" {
		return skip
	}
	nxt := ins.Next()
	if nxt == nil || nxt.Op != "ret" || len(nxt.Labels) > 0 {
		return skip
	}

	l.Remove(nxt)
	return cont
}

// peepholeInplaceBoolBinops: pushl k; pushi|pushf lit; <bool-binop> ->
// <bool-binop>l k, with the immediate staying on the opcode's operand
// and the local load replaced by the binop's own "l" suffix form -
// only fires for a comparison/logical operator (operators.go's
// Op.IsBool()), the only family the original's opcode table has an
// "l"-suffixed in-place form for.
func peepholeInplaceBoolBinops(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "pushl" {
		return skip
	}
	imm := ins.Next()
	if imm == nil || (imm.Op != "pushi" && imm.Op != "pushf") || len(imm.Labels) > 0 {
		return skip
	}
	opIns := imm.Next()
	if opIns == nil || len(opIns.Labels) > 0 {
		return skip
	}

	op, ok := codegen.OpForIntOpcode(opIns.Op)
	if !ok {
		op, ok = codegen.OpForRealOpcode(opIns.Op)
	}
	if !ok || !op.IsBool() {
		return skip
	}

	opIns.Op = opIns.Op + "l"
	opIns.Operand = ins.Operand
	l.Remove(ins)
	return nextInstruction
}

// peepholeSmallPushi narrows a pushi whose immediate lies in -128..126
// down to pushib, the byte-immediate form of pushi.
func peepholeSmallPushi(l *ir.List, ins *ir.Instruction) passResult {
	if ins.Op != "pushi" {
		return skip
	}
	val, ok := parseImmediate(ins.Operand)
	if !ok {
		return skip
	}
	if val < -128 || val > 126 {
		return skip
	}

	ins.Op = "pushib"
	ins.Operand = fmt.Sprintf("#%d", int8(val))
	return cont
}
