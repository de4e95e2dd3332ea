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

import "github.com/gmofishsauce/langc/internal/types"

// binopOpcodes is code_generator.c's binop_opcodes table, transcribed
// row for row (POD row order INT/FLOAT/STR, column order matching
// types.Op's binary indices 0..opBinEnd). "invl" marks a combination
// the original never actually emits - BinOp's dispatch in expr.go
// never reaches one of these cells without first taking an earlier,
// more specific branch (overload call, pointer operand forced to the
// INT row, str+char special-cased to "stradd", OP_IN special-cased to
// "find"/"findi"), so every surviving lookup is a legal cell.
var binopOpcodes = [3][20]string{
	podInt: {
		"add", "sub", "mul", "idiv", "mod", "invl", "invl",
		"eq", "neq", "gt", "ge", "lt", "le",
		"land", "lor", "and", "or", "xor", "shl", "shr",
	},
	podFloat: {
		"fadd", "fsub", "fmul", "fdiv", "fmod", "invl", "invl",
		"feq", "fneq", "fgt", "fge", "flt", "fle",
		"invl", "invl", "invl", "invl", "invl", "invl", "invl",
	},
	podStr: {
		"strcat", "invl", "invl", "invl", "invl", "invl", "strcat",
		"streq", "strneq", "strgt", "strge", "strlt", "strle",
		"invl", "invl", "invl", "invl", "invl", "invl", "invl",
	},
}

// binopOpcode looks up the opcode for a POD binary operator
// application, panicking on an "invl" cell the way the original's
// generate() asserts strcmp(op,"invl") != 0.
func binopOpcode(pod int, op types.Op) string {
	name := binopOpcodes[pod][op.Index()]
	if name == "invl" {
		panic("codegen: invalid binop/type combination reached code generation")
	}
	return name
}

// unaryOpcodes is unary_opcodes, columns ordered inc/dec/lnot/not.
// types.OpBitNot shares its numeric Op value with the binary OpCat
// (operators.go's comment: "OP_BITNOT == OP_CAT in the original"), so
// unlike binopOpcode/castOpcode this can't index by op.Index() - the
// four unary operators are matched by identity instead.
var unaryOpcodes = [3][4]string{
	podInt:   {"inc", "dec", "lnot", "not"},
	podFloat: {"inc", "dec", "invl", "invl"},
	podStr:   {"invl", "invl", "invl", "invl"},
}

func unaryOpcode(pod int, op types.Op) string {
	var col int
	switch op {
	case types.OpInc:
		col = 0
	case types.OpDec:
		col = 1
	case types.OpLogicNot:
		col = 2
	case types.OpBitNot:
		col = 3
	default:
		panic("codegen: unaryOpcode called with a non-unary operator " + op.String())
	}
	name := unaryOpcodes[pod][col]
	if name == "invl" {
		panic("codegen: invalid unary op/type combination reached code generation")
	}
	return name
}

// castOpcodes is cast_opcodes: [from][to], POD row/column order
// INT/FLOAT/STR. A same-type cast and any cast landing on STR never
// reach this table (CanExplicit only allows str->str, which coerce
// short-circuits via Type.Equal before a CastExpr node is even built).
var castOpcodes = [3][3]string{
	podInt:   {"invl", "cvti2f", "cvti2s"},
	podFloat: {"cvtf2i", "invl", "cvtf2s"},
	podStr:   {"invl", "invl", "invl"},
}

func castOpcode(from, to int) string {
	name := castOpcodes[from][to]
	if name == "invl" {
		panic("codegen: invalid cast combination reached code generation")
	}
	return name
}

// binopColumnOps gives the operator behind each binopOpcodes column, in
// the same fixed order as types.Op's binary indices.
var binopColumnOps = [20]types.Op{
	types.OpAdd, types.OpSub, types.OpMul, types.OpDiv, types.OpMod, types.OpIn, types.OpCat,
	types.OpEqual, types.OpDiff, types.OpGt, types.OpGe, types.OpLt, types.OpLe,
	types.OpLogicAnd, types.OpLogicOr, types.OpBitAnd, types.OpBitOr, types.OpBitXor, types.OpShl, types.OpShr,
}

// OpForIntOpcode and OpForRealOpcode recover the operator behind an
// already-emitted binary opcode mnemonic, for internal/peephole's
// constant-folding and inplace-bool-binop passes.
// original_source/src/asm_optimizer.c does the same lookup by linking
// directly against code_generator.c's table (`extern const char
// binop_opcodes[...]`); these two functions are that same sharing
// relationship, expressed as an export instead of a shared C array.
func OpForIntOpcode(name string) (types.Op, bool) { return opForOpcode(podInt, name) }
func OpForRealOpcode(name string) (types.Op, bool) { return opForOpcode(podFloat, name) }

func opForOpcode(pod int, name string) (types.Op, bool) {
	for i, n := range binopOpcodes[pod] {
		if n == name && n != "invl" {
			return binopColumnOps[i], true
		}
	}
	return types.Op{}, false
}
