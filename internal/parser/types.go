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
	"strconv"

	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

var builtinBase = map[string]types.Base{
	"int":  types.Int,
	"real": types.Real,
	"str":  types.Str,
	"void": types.Void,
}

// isTypeStart reports whether t can begin a type: one of the four
// builtin base keywords, or an identifier already known to name a
// struct. Since this is a single-pass compiler a struct must be
// declared textually before anything references it as a type, so this
// lookup is exactly as forward-looking as parsing itself.
func (p *Parser) isTypeStart(t *token.Token) bool {
	if t.Kind == token.Keyword {
		_, ok := builtinBase[t.Text]
		return ok
	}
	if t.Kind == token.Ident {
		_, ok := p.structs.Lookup(t.Text)
		return ok
	}
	return false
}

// parseType reads a base name then left-to-right postfix declarators:
// `*` wraps a Pointer, `?` an Optional, `[expr?]` an Array (sized when
// a constant expression is present, else an empty/growable array). If
// the whole thing is immediately followed by `(type, ...)` it becomes
// a Function type whose return type is everything parsed so far.
func (p *Parser) parseType() types.Type {
	base := p.parseBaseType()
	for {
		switch {
		case p.accept(token.Operator, "*") != nil:
			base = types.PointerTo(base)
		case p.accept(token.Operator, "?") != nil:
			base = types.OptionalOf(base)
		case p.accept(token.Delimiter, "[") != nil:
			if p.accept(token.Delimiter, "]") != nil {
				base = types.ArrayOf(base, 0, false, true)
				continue
			}
			size, known := p.constIntExpr()
			p.expect(token.Delimiter, "]")
			base = types.ArrayOf(base, size, known, false)
		default:
			if p.accept(token.Delimiter, "(") != nil {
				return p.finishFunctionType(base)
			}
			return base
		}
	}
}

func (p *Parser) parseBaseType() types.Type {
	t := p.cur()
	if t.Kind == token.Keyword {
		if b, ok := builtinBase[t.Text]; ok {
			p.advance()
			return types.Basic(b)
		}
	}
	if t.Kind == token.Ident {
		if _, ok := p.structs.Lookup(t.Text); ok {
			p.advance()
			s := p.structs.Forward(t.Text)
			return types.Basic(types.StructID(s.ID))
		}
	}
	p.fail(t.Span, "expected a type name, got '%s'", t.Text)
	return types.TVoid
}

// finishFunctionType parses `type, type, ...)` after the opening paren
// naming a function type's parameter list, wrapping ret as its return
// type.
func (p *Parser) finishFunctionType(ret types.Type) types.Type {
	sig := types.Signature{Return: ret}
	if p.accept(token.Delimiter, ")") == nil {
		for {
			sig.Params = append(sig.Params, p.parseType())
			if p.accept(token.Delimiter, ",") != nil {
				continue
			}
			break
		}
		p.expect(token.Delimiter, ")")
	}
	return types.FunctionType(sig)
}

// constIntExpr reads a simple constant-folded integer expression for
// an array's size bracket: an optional leading '-' and an integer
// literal, which is all array sizes may be at parse time (general
// constant folding happens later, in the AST optimizer, on already
// fully-typed expressions, but an array's size needs to be known
// before the element type is even usable in a Type value).
func (p *Parser) constIntExpr() (int, bool) {
	neg := p.accept(token.Operator, "-") != nil
	t := p.accept(token.IntLit, "")
	if t == nil {
		p.fail(p.cur().Span, "expected a constant array size")
		return 0, false
	}
	v, err := strconv.ParseInt(t.Text, 0, 64)
	if err != nil {
		p.fail(t.Span, "malformed integer literal '%s'", t.Text)
		return 0, false
	}
	n := int(v)
	if neg {
		n = -n
	}
	return n, true
}
