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

// Package peephole rewrites a function's generated instruction list in
// place, collapsing the same local stack-machine idioms
// original_source/src/asm_optimizer.c recognizes: redundant local
// loads/stores, useless push/pop pairs, comparison-then-branch
// sequences that fold into a single conditional jump, and so on.
package peephole

import "github.com/gmofishsauce/langc/internal/ir"

// passResult mirrors asm_optimizer.c's opt_pass_behavior. SKIP and
// CONTINUE are both "try the next pass against this same anchor" -
// they exist as distinct names in the original for readability, not
// because the driver treats them differently - and only
// nextInstruction actually changes control flow, stopping the pass
// loop early so a later pass doesn't see a window this pass just
// rewrote out from under it.
type passResult int

const (
	skip passResult = iota
	nextInstruction
	cont
)

// pass is one peephole rule. It inspects ins (and, through ins.Next(),
// a fixed-size window after it) and may rewrite or remove instructions
// via l.
type pass func(l *ir.List, ins *ir.Instruction) passResult

// passCatalog is optimization_passes[], transcribed in the exact order
// the original runs them - later passes see whatever earlier passes in
// the same round already rewrote.
var passCatalog = []pass{
	peepholeCopyl,
	peepholeUselessCopyl,
	peepholeUselessCopylSandwich,
	peepholeAddsubZero,
	peepholePushiCopyl,
	peepholePushpop,
	peepholeLogicnot,
	peepholeLogicnotChain,
	peepholeJumpnot,
	peepholeJccJmp,
	peepholeIncdec,
	peepholeIncldecl,
	peepholeNormalizeLogic,
	peepholeCmov,
	peepholeConstevalInt,
	peepholeUselessRepNop,
	peepholeDup,
	peepholeLnotCmov,
	peepholePushDup,
	peepholeTailcall,
	peepholeDeadRet,
	peepholeInplaceBoolBinops,
	peepholeSmallPushi,
}

// nextIns is next_ins: the instruction idx steps after ins, or nil if
// the list runs out first. When noLabel is set, a label attached to
// the destination also makes the lookup fail - the destination is a
// live jump target, so the window spanning it can't be collapsed
// without losing that target.
func nextIns(ins *ir.Instruction, idx int, noLabel bool) *ir.Instruction {
	cur := ins
	for ; idx > 0; idx-- {
		if cur.Next() == nil {
			return nil
		}
		cur = cur.Next()
	}
	if noLabel && len(cur.Labels) > 0 {
		return nil
	}
	return cur
}

// doPeephole is do_peephole: run every pass in catalog order against
// one anchor instruction, stopping as soon as one reports
// nextInstruction.
func doPeephole(l *ir.List, ins *ir.Instruction) {
	for _, p := range passCatalog {
		if p(l, ins) == nextInstruction {
			return
		}
	}
}

// runOnce is optimize_asm's first loop: one full left-to-right sweep
// of do_peephole over the list.
//
// The original's outer loop just does `ins = ins->next` after
// do_peephole(ins), relying on remove_ins leaving a removed
// instruction's own next pointer stale-but-dereferenceable. This
// package's ir.List.Remove instead nils out a removed node's prev/next
// (ir.go's own documented invariant), so walking off of a
// just-removed anchor doesn't work here. A surviving anchor (still
// linked: it has a predecessor or is the head) continues from its own
// Next(). A removed anchor continues from the Next() of the predecessor
// captured before its passes ran, or from l.Head() if it had none;
// since no single pass ever touches or removes an anchor's immediate
// predecessor, that is the next live instruction.
func runOnce(l *ir.List) {
	ins := l.Head()
	for ins != nil {
		prev := ins.Prev()
		doPeephole(l, ins)
		switch {
		case ins.Prev() != nil || l.Head() == ins:
			ins = ins.Next()
		case prev != nil:
			ins = prev.Next()
		default:
			ins = l.Head()
		}
	}
}

// shortenJumps is shorten_jumps applied across the whole list: a jmp
// whose target is itself jmp/jf/jt/ret is rewritten to jump straight
// to what that target would have done, one hop at a time (running the
// full Run loop again before emission would chase longer chains, but
// the original only ever takes a single hop and this port matches
// that).
func shortenJumps(l *ir.List) {
	targets := l.LabelIndex()
	l.Each(func(ins *ir.Instruction) bool {
		if ins.Op != "jmp" {
			return true
		}
		target, ok := targets[ins.Operand]
		if !ok {
			return true
		}
		switch target.Op {
		case "jmp", "jf", "jt", "ret":
			ins.Op = target.Op
			ins.Operand = target.Operand
		}
		return true
	})
}

// Run is optimize_asm: passCount full sweeps of the peephole catalog
// followed by one jump-shortening pass over the settled list.
// spec.md's convergence property expects a sweep at passCount+1 to be
// a no-op; internal/compiler is the one that decides passCount (15 by
// default, config.go's AST/peephole pass-count knob).
func Run(l *ir.List, passCount int) {
	for i := 0; i < passCount; i++ {
		runOnce(l)
	}
	shortenJumps(l)
}
