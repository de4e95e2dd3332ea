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

package preprocess

import (
	"strconv"

	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

// rpl is one entry of the reverse-Polish output of the shunting-yard
// pass below: either a literal integer or an operator to apply to the
// values already produced.
type rpl struct {
	isOp  bool
	value int
	op    types.Op
}

// evaluateExpr evaluates a fully macro-expanded `#if`/`#elif` condition
// down to an int using a shunting-yard pass into reverse Polish form
// followed by a stack evaluation, mirroring pp_evaluate_expr's two
// halves. `defined(NAME)` is handled as a pseudo-literal before any
// operator sees it.
func evaluateExpr(tokens []*token.Token, macros *MacroTable, sink *diag.Sink) int {
	if len(tokens) == 0 {
		sink.Error(token.Span{}, "empty #if expression")
		return 0
	}
	var output []rpl
	var opStack []opStackEntry

	popOp := func() {
		e := opStack[len(opStack)-1]
		opStack = opStack[:len(opStack)-1]
		output = append(output, rpl{isOp: true, op: e.op})
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.Kind == token.IntLit:
			n, err := strconv.Atoi(t.Text)
			if err != nil {
				sink.Error(t.Span, "invalid integer literal %q in #if expression", t.Text)
				n = 0
			}
			output = append(output, rpl{value: n})

		case t.Kind == token.Ident && t.Text == "defined":
			if i+3 < len(tokens) &&
				tokens[i+1].Kind == token.Delimiter && tokens[i+1].Text == "(" &&
				tokens[i+2].Kind == token.Ident &&
				tokens[i+3].Kind == token.Delimiter && tokens[i+3].Text == ")" {
				v := 0
				if macros.IsDefined(tokens[i+2].Text) {
					v = 1
				}
				output = append(output, rpl{value: v})
				i += 3
			} else {
				sink.Error(t.Span, "expected 'defined(NAME)'")
			}

		case t.Kind == token.Ident:
			sink.Error(t.Span, "undefined identifier %q in #if expression", t.Text)

		case t.Kind == token.Operator:
			op, ok := lookupOp(t.Text)
			if !ok {
				sink.Error(t.Span, "unexpected operator %q in #if expression", t.Text)
				continue
			}
			if op.IsUnary() {
				opStack = append(opStack, opStackEntry{op: op})
				continue
			}
			for len(opStack) > 0 && !opStack[len(opStack)-1].isParen &&
				(higherPrec(opStack[len(opStack)-1].op, op) || opStack[len(opStack)-1].op.IsUnary()) {
				popOp()
			}
			opStack = append(opStack, opStackEntry{op: op})

		case t.Kind == token.Delimiter && t.Text == "(":
			opStack = append(opStack, opStackEntry{isParen: true})

		case t.Kind == token.Delimiter && t.Text == ")":
			for len(opStack) > 0 && !opStack[len(opStack)-1].isParen {
				popOp()
			}
			if len(opStack) == 0 {
				sink.Error(t.Span, "unmatched ')' in #if expression")
				continue
			}
			opStack = opStack[:len(opStack)-1] // discard '('

		default:
			sink.Error(t.Span, "unexpected token %q in #if expression", t.Text)
		}
	}
	for len(opStack) > 0 {
		popOp()
	}

	return evalRPL(output, tokens[0].Span, sink)
}

// opStackEntry is an operator-stack slot: either a real operator or a
// '(' marker (isParen), which a real Op value can't represent on its
// own since every Op indexes into the shared operator table.
type opStackEntry struct {
	isParen bool
	op      types.Op
}

func higherPrec(a, b types.Op) bool { return a.Precedence() > b.Precedence() }

func lookupOp(text string) (types.Op, bool) {
	if op, ok := types.LookupBinaryOp(text); ok {
		return op, true
	}
	switch text {
	case "!":
		return types.OpLogicNot, true
	case "~":
		return types.OpBitNot, true
	}
	return types.Op{}, false
}

func evalRPL(out []rpl, span token.Span, sink *diag.Sink) int {
	var stack []int
	for _, e := range out {
		if !e.isOp {
			stack = append(stack, e.value)
			continue
		}
		if e.op == types.OpCat {
			sink.Error(span, "'~' (concatenation) cannot be used in a #if expression")
			continue
		}
		if e.op.IsUnary() {
			if len(stack) < 1 {
				sink.Error(span, "invalid #if expression")
				continue
			}
			stack[len(stack)-1] = types.EvalIntUnop(e.op, stack[len(stack)-1])
			continue
		}
		if len(stack) < 2 {
			sink.Error(span, "invalid #if expression")
			continue
		}
		x, y := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		stack = append(stack, types.EvalIntBinop(e.op, x, y))
	}
	if len(stack) != 1 {
		sink.Error(span, "invalid #if expression")
		return 0
	}
	return stack[0]
}
