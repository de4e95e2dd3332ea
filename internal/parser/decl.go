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

// Top-level and local declaration parsing: variables, typedefs,
// structs and function/operator-overload definitions. A function
// definition and a variable declaration share the same leading
// `TYPE name` prefix, so tryParseFunction is attempted speculatively
// and ParseProgram falls back to parseVarDecl when it doesn't commit.
package parser

import (
	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

// typeSize estimates a type's storage size in bytes for struct layout
// purposes: one machine word (types.WordSize bytes) for int/pointer/
// optional/function values, a double (8 bytes) for real, a struct's own
// recorded size for a struct-typed field, and element-size times
// count for a fixed-size array. A single-pass compiler always knows
// every size it needs here, since a type's definition must already
// have been seen by the time it's used.
func typeSize(t types.Type, structs *types.StructTable) int {
	switch t.Kind {
	case types.KindBasic:
		if id, ok := t.Base.IsStruct(); ok {
			return structs.Get(id).Size
		}
		if t.Base == types.Real {
			return 8
		}
		if t.Base == types.Void {
			return 0
		}
		return types.WordSize
	case types.KindArray:
		if t.HasInitialSize {
			return t.InitialSize * typeSize(*t.Inner, structs)
		}
		return types.WordSize
	default: // KindPointer, KindOptional, KindFunction
		return types.WordSize
	}
}

// parseVarDecl parses `TYPE name [= expr];`, consuming the trailing
// semicolon. global marks a top-level declaration; the local/global
// slot numbering itself is internal/semant's job.
func (p *Parser) parseVarDecl(global bool) *ast.VarDecl {
	start := p.cur().Span
	typ := p.parseType()
	name := p.expect(token.Ident, "")

	var init *ast.Assign
	if eq := p.accept(token.Operator, "="); eq != nil {
		value := p.parseExpr()
		init = &ast.Assign{
			ExprBase: ast.AtSpan(joinSpan(name.Span, value.Span())),
			Target:   &ast.IdentExpr{ExprBase: ast.AtSpan(name.Span), Ident: &ast.Ident{Name: name}},
			Value:    value, EqTok: eq,
		}
	}
	semi := p.expect(token.Delimiter, ";")
	return &ast.VarDecl{
		DeclBase: ast.DeclAt(joinSpan(start, semi.Span)),
		Type:     typ, Name: name, Global: global, Init: init,
	}
}

func (p *Parser) parseTypedefDecl() *ast.TypedefDecl {
	kw := p.advance()
	typ := p.parseType()
	name := p.expect(token.Ident, "")
	semi := p.expect(token.Delimiter, ";")
	return &ast.TypedefDecl{DeclBase: ast.DeclAt(joinSpan(kw.Span, semi.Span)), Type: typ, Name: name}
}

// parseStructDecl parses `struct NAME { TYPE field; ... };`, forward
// declaring NAME before its fields (so a field may itself reference
// NAME as a pointer, e.g. a linked-list node) and completing the
// table entry once the closing brace is seen.
func (p *Parser) parseStructDecl() *ast.StructDecl {
	kw := p.advance()
	name := p.expect(token.Ident, "")
	fwd := p.structs.Forward(name.Text)
	p.expect(token.Delimiter, "{")

	var fields []*ast.VarDecl
	var layout []types.Field
	for !p.is(token.Delimiter, "}") {
		fieldStart := p.cur().Span
		ftype := p.parseType()
		fname := p.expect(token.Ident, "")
		fsemi := p.expect(token.Delimiter, ";")
		fields = append(fields, &ast.VarDecl{
			DeclBase: ast.DeclAt(joinSpan(fieldStart, fsemi.Span)),
			Type:     ftype, Name: fname,
		})
		layout = append(layout, types.Field{Name: fname.Text, Type: ftype, Size: typeSize(ftype, p.structs)})
	}
	p.expect(token.Delimiter, "}")
	semi := p.expect(token.Delimiter, ";")

	if _, err := p.structs.Complete(name.Text, layout); err != nil {
		p.fail(name.Span, "%s", err.Error())
	}
	return &ast.StructDecl{
		DeclBase: ast.DeclAt(joinSpan(kw.Span, semi.Span)),
		Name:     name, Fields: fields, StructID: fwd.ID,
	}
}

func (p *Parser) parseParamList() []ast.Param {
	p.expect(token.Delimiter, "(")
	var params []ast.Param
	if p.accept(token.Delimiter, ")") != nil {
		return params
	}
	for {
		t := p.parseType()
		name := p.expect(token.Ident, "")
		params = append(params, ast.Param{Type: t, Name: name})
		if p.accept(token.Delimiter, ",") != nil {
			continue
		}
		break
	}
	p.expect(token.Delimiter, ")")
	return params
}

// tryParseFunction speculatively parses a function or operator-overload
// definition: `TYPE name(params) { body }` or
// `TYPE operator OP(params) { body }`. It only commits once it has
// seen the opening brace of a body, so any top-level `TYPE name;` or
// `TYPE name = expr;` variable declaration falls through untouched for
// ParseProgram to parse as a VarDecl instead.
func (p *Parser) tryParseFunction() (*ast.Function, bool) {
	var fn *ast.Function
	ok := p.Try(func() bool {
		retType := p.parseType()

		var name *token.Token
		isOverload := false
		var overloadOp types.Op

		if p.accept(token.Keyword, "operator") != nil {
			opTok := p.cur()
			opCode, found := types.LookupBinaryOp(opTok.Text)
			if !found {
				return false
			}
			p.advance()
			isOverload = true
			overloadOp = opCode
			name = opTok
		} else {
			if p.cur().Kind != token.Ident {
				return false
			}
			name = p.advance()
		}

		if !p.is(token.Delimiter, "(") {
			return false
		}
		params := p.parseParamList()

		if !p.is(token.Delimiter, "{") {
			return false
		}
		body := p.parseBlock()

		sig := types.Signature{Return: retType}
		for _, prm := range params {
			sig.Params = append(sig.Params, prm.Type)
		}

		fn = &ast.Function{
			Name: name, Signature: sig,
			IsOverload: isOverload, OverloadOp: overloadOp,
			Params: params, Body: body.Stmts,
		}
		if !isOverload {
			p.funcs[name.Text] = true
		}
		return true
	})
	return fn, ok
}
