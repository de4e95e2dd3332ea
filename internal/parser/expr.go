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

// Expression parsing: an assignment-level entry point over a
// precedence-climbing binary cascade, grounded on
// original_source/parser.c's parse_expr, generalized from its fixed
// +-*/ and comparison ladder to the full operator table in
// internal/types/operators.go and to every primary form
// ast_nodes.h's primary_expression_t names.
package parser

import (
	"strconv"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

// joinSpan returns a span covering from a's start through b's end,
// keeping a's line/col/origin as the reported location.
func joinSpan(a, b token.Span) token.Span {
	end := b.Offset + b.Length
	return token.Span{
		File: a.File, Line: a.Line, Col: a.Col,
		LineStart: a.LineStart, Offset: a.Offset,
		Length: end - a.Offset, Origin: a.Origin,
	}
}

var compoundAssignBase = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
	"&=": "&", "|=": "|", "^=": "^", "<<=": "<<", ">>=": ">>",
}

// parseExpr parses a full assignment-level expression. Compound
// operators (`+=` and friends) desugar here into `lhs = lhs OP rhs` so
// every later pass only ever sees plain Assign/BinOp nodes.
func (p *Parser) parseExpr() ast.Expr {
	lhs := p.parseTernary()

	t := p.cur()
	if t.Kind == token.Operator && t.Text == "=" {
		eq := p.advance()
		rhs := p.parseExpr()
		return &ast.Assign{
			ExprBase: ast.AtSpan(joinSpan(lhs.Span(), rhs.Span())),
			Target:   lhs, Value: rhs, EqTok: eq,
		}
	}
	if t.Kind == token.Operator {
		if base, ok := compoundAssignBase[t.Text]; ok {
			eq := p.advance()
			rhs := p.parseExpr()
			opCode, _ := types.LookupBinaryOp(base)
			bin := &ast.BinOp{
				ExprBase: ast.AtSpan(joinSpan(lhs.Span(), rhs.Span())),
				Left:     lhs, Right: rhs, Op: eq, OpCode: opCode,
			}
			return &ast.Assign{
				ExprBase: ast.AtSpan(joinSpan(lhs.Span(), rhs.Span())),
				Target:   lhs, Value: bin, EqTok: eq,
			}
		}
	}
	return lhs
}

// parseTernary parses `cond ? t : f`, the lowest-precedence operator
// after the binary cascade. A `?` glued directly onto a postfix chain
// (its source offset immediately follows its operand's) is consumed in
// parsePostfix as optional-chaining instead, so by the time control
// reaches here a `?` can only be the ternary operator.
func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseBinary(0)
	if p.accept(token.Operator, "?") == nil {
		return cond
	}
	trueExpr := p.parseExpr()
	p.expect(token.Delimiter, ":")
	falseExpr := p.parseExpr()
	return &ast.Ternary{
		ExprBase: ast.AtSpan(joinSpan(cond.Span(), falseExpr.Span())),
		Cond:     cond, True: trueExpr, False: falseExpr,
	}
}

// parseBinary climbs operators.go's precedence table: each recursive
// call only accepts operators at least as tight as minPrec, and
// recurses at prec+1 for its right operand, giving left-associative
// chains without an explicit associativity flag per operator.
func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnaryPostfix()
	for {
		t := p.cur()
		isBinaryToken := t.Kind == token.Operator || (t.Kind == token.Keyword && t.Text == "in")
		if !isBinaryToken {
			return left
		}
		opCode, ok := types.LookupBinaryOp(t.Text)
		if !ok {
			return left
		}
		prec := opCode.Precedence()
		if prec < minPrec {
			return left
		}
		opTok := p.advance()
		right := p.parseBinary(prec + 1)
		left = &ast.BinOp{
			ExprBase: ast.AtSpan(joinSpan(left.Span(), right.Span())),
			Left:     left, Right: right, Op: opTok, OpCode: opCode,
		}
	}
}

func unaryOpCode(text string) types.Op {
	switch text {
	case "-":
		return types.OpSub
	case "+":
		return types.OpAdd
	case "!":
		return types.OpLogicNot
	case "~":
		return types.OpBitNot
	}
	panic("parser: unknown unary operator " + text)
}

// parseUnaryPostfix handles every prefix operator (desugaring prefix
// ++/-- into an Assign the same way the assignment-level compound
// operators do) before falling through to a primary expression and
// its postfix chain.
func (p *Parser) parseUnaryPostfix() ast.Expr {
	t := p.cur()
	switch {
	case t.Kind == token.Operator && (t.Text == "++" || t.Text == "--"):
		opTok := p.advance()
		operand := p.parseUnaryPostfix()
		base := "+"
		if t.Text == "--" {
			base = "-"
		}
		opCode, _ := types.LookupBinaryOp(base)
		one := &ast.IntLit{
			ExprBase: ast.AtSpan(opTok.Span),
			Tok:      &token.Token{Kind: token.IntLit, Text: "1", Span: opTok.Span},
		}
		bin := &ast.BinOp{
			ExprBase: ast.AtSpan(operand.Span()),
			Left:     operand, Right: one, Op: opTok, OpCode: opCode,
		}
		return &ast.Assign{
			ExprBase: ast.AtSpan(joinSpan(opTok.Span, operand.Span())),
			Target:   operand, Value: bin, EqTok: opTok,
		}

	case t.Kind == token.Operator && (t.Text == "-" || t.Text == "+" || t.Text == "!" || t.Text == "~"):
		opTok := p.advance()
		operand := p.parseUnaryPostfix()
		return &ast.UnaryExpr{
			ExprBase: ast.AtSpan(joinSpan(opTok.Span, operand.Span())),
			Op:       opTok, OpCode: unaryOpCode(t.Text), Operand: operand,
		}

	case t.Kind == token.Operator && t.Text == "*":
		star := p.advance()
		operand := p.parseUnaryPostfix()
		return &ast.Deref{
			ExprBase: ast.AtSpan(joinSpan(star.Span, operand.Span())),
			Star:     star, Operand: operand,
		}

	case t.Kind == token.Operator && t.Text == "&":
		amp := p.advance()
		operand := p.parseUnaryPostfix()
		return &ast.AddrOf{
			ExprBase: ast.AtSpan(joinSpan(amp.Span, operand.Span())),
			Amp:      amp, Operand: operand,
		}

	case t.Kind == token.Operator && t.Text == "%":
		return p.parseRandomExpr()
	}
	return p.parsePostfix(p.parsePrimary())
}

// parseRandomExpr parses `%expr` or `%lo..hi`. Kind starts as RandInt;
// internal/semant retags it RandFloat/RandArray once the operand's
// resolved type is known.
func (p *Parser) parseRandomExpr() ast.Expr {
	pct := p.advance()
	first := p.parseUnaryPostfix()
	if p.accept(token.Operator, "..") != nil {
		hi := p.parseUnaryPostfix()
		return &ast.RandomExpr{
			ExprBase: ast.AtSpan(joinSpan(pct.Span, hi.Span())),
			Kind:     ast.RandInt, IsRange: true, Lo: first, Hi: hi,
		}
	}
	return &ast.RandomExpr{
		ExprBase: ast.AtSpan(joinSpan(pct.Span, first.Span())),
		Kind:     ast.RandInt, IsRange: false, Single: first,
	}
}

// parsePostfix applies subscript, slice, field access, optional
// unwrap and call operators left to right onto a base expression.
func (p *Parser) parsePostfix(e ast.Expr) ast.Expr {
	for {
		switch {
		case p.is(token.Operator, "?") && p.cur().Span.Offset == e.Span().Offset+e.Span().Length:
			q := p.advance()
			e = &ast.Deref{
				ExprBase: ast.AtSpan(joinSpan(e.Span(), q.Span)),
				Star:     q, Optional: true, Operand: e,
			}

		case p.is(token.Delimiter, "["):
			p.advance()
			first := p.parseExpr()
			if p.accept(token.Operator, "..") != nil {
				var hi ast.Expr
				if !p.is(token.Delimiter, "]") {
					hi = p.parseExpr()
				}
				close := p.expect(token.Delimiter, "]")
				e = &ast.Slice{
					ExprBase: ast.AtSpan(joinSpan(e.Span(), close.Span)),
					Array:    e, Lo: first, Hi: hi,
				}
			} else {
				close := p.expect(token.Delimiter, "]")
				e = &ast.Subscript{
					ExprBase: ast.AtSpan(joinSpan(e.Span(), close.Span)),
					Array:    e, Index: first,
				}
			}

		case p.is(token.Delimiter, ".") || p.is(token.Operator, "->"):
			indirect := p.is(token.Operator, "->")
			p.advance()
			name := p.expect(token.Ident, "")
			if p.funcs[name.Text] && p.is(token.Delimiter, "(") {
				// Uniform Function Call Syntax: a.f(x) -> f(a, x).
				args, close := p.parseArgList()
				callee := &ast.IdentExpr{ExprBase: ast.AtSpan(name.Span), Ident: &ast.Ident{Name: name}}
				e = &ast.Call{
					ExprBase: ast.AtSpan(joinSpan(e.Span(), close.Span)),
					Callee:   callee, Args: append([]ast.Expr{e}, args...),
				}
			} else {
				// An ordinary field access; if a call follows, the next
				// postfix iteration parses it as an indirect call through
				// the field's (function-typed) value.
				e = &ast.FieldAccess{
					ExprBase: ast.AtSpan(joinSpan(e.Span(), name.Span)),
					Base:     e, Indirect: indirect, Field: name,
				}
			}

		case p.is(token.Delimiter, "("):
			args, close := p.parseArgList()
			indirect := true
			if ident, ok := e.(*ast.IdentExpr); ok && p.funcs[ident.Ident.Name.Text] {
				indirect = false
			}
			e = &ast.Call{
				ExprBase: ast.AtSpan(joinSpan(e.Span(), close.Span)),
				Indirect: indirect, Callee: e, Args: args,
			}

		default:
			return e
		}
	}
}

// parseArgList parses a parenthesized, comma-separated argument list,
// including the delimiters, and returns the closing paren for span
// bookkeeping.
func (p *Parser) parseArgList() ([]ast.Expr, *token.Token) {
	p.expect(token.Delimiter, "(")
	var args []ast.Expr
	if close := p.accept(token.Delimiter, ")"); close != nil {
		return args, close
	}
	for {
		args = append(args, p.parseExpr())
		if p.accept(token.Delimiter, ",") != nil {
			continue
		}
		break
	}
	return args, p.expect(token.Delimiter, ")")
}

func (p *Parser) isIdentText(text string) bool {
	t := p.cur()
	return t.Kind == token.Ident && t.Text == text
}

// parsePrimary parses every leaf/bracketing expression form: literals,
// identifiers and struct initializers, parenthesized sub-expressions
// and casts, and the keyword-introduced forms (asm, sizeof, new,
// match), plus the brace array literal and bracket range generator.
func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch {
	case t.Kind == token.Delimiter && t.Text == "(":
		return p.parseParenOrCast()
	case t.Kind == token.Keyword && t.Text == "null":
		tok := p.advance()
		return &ast.NullLit{ExprBase: ast.AtSpan(tok.Span)}
	case t.Kind == token.Keyword && t.Text == "asm":
		return p.parseAsmExpr()
	case t.Kind == token.Keyword && t.Text == "sizeof":
		return p.parseSizeofExpr()
	case t.Kind == token.Keyword && t.Text == "new":
		return p.parseNewExpr()
	case t.Kind == token.Keyword && t.Text == "match":
		return p.parseMatchExpr()
	case t.Kind == token.Delimiter && t.Text == "{":
		return p.parseArrayLit()
	case t.Kind == token.Delimiter && t.Text == "[":
		return p.parseArrayRange()
	case t.Kind == token.IntLit:
		tok := p.advance()
		return &ast.IntLit{ExprBase: ast.AtSpan(tok.Span), Tok: tok}
	case t.Kind == token.FloatLit:
		tok := p.advance()
		return &ast.FloatLit{ExprBase: ast.AtSpan(tok.Span), Tok: tok}
	case t.Kind == token.StringLit:
		tok := p.advance()
		return &ast.StringLit{ExprBase: ast.AtSpan(tok.Span), Tok: tok}
	case t.Kind == token.Ident:
		return p.parseIdentPrimary()
	}
	p.fail(t.Span, "expected an expression, got '%s'", t.Text)
	p.advance()
	return &ast.NullLit{ExprBase: ast.AtSpan(t.Span)}
}

// parseIdentPrimary distinguishes a plain identifier reference from a
// struct initializer `Name(args...)`: the latter only applies when
// Name already names a declared struct, which a single-pass compiler
// can always decide immediately since structs precede their uses.
func (p *Parser) parseIdentPrimary() ast.Expr {
	name := p.advance()
	if st, ok := p.structs.Lookup(name.Text); ok && p.is(token.Delimiter, "(") {
		args, close := p.parseArgList()
		return &ast.StructInit{
			ExprBase: ast.AtSpan(joinSpan(name.Span, close.Span)),
			Type:     types.Basic(types.StructID(st.ID)),
			Elements: args,
		}
	}
	return &ast.IdentExpr{ExprBase: ast.AtSpan(name.Span), Ident: &ast.Ident{Name: name}}
}

// parseParenOrCast tries a cast first, speculatively: `(` followed by
// a type name followed by `)` followed by an operand it can actually
// parse. If any of that fails the cursor rewinds and `(...)` is parsed
// as an ordinary enclosed sub-expression instead.
func (p *Parser) parseParenOrCast() ast.Expr {
	var cast ast.Expr
	if p.Try(func() bool {
		lparen := p.advance()
		if !p.isTypeStart(p.cur()) {
			return false
		}
		typ := p.parseType()
		p.expect(token.Delimiter, ")")
		operand := p.parseUnaryPostfix()
		cast = &ast.CastExpr{
			ExprBase: ast.AtSpan(joinSpan(lparen.Span, operand.Span())),
			CastTok:  lparen, Target: typ, Operand: operand,
		}
		return true
	}) {
		return cast
	}

	lparen := p.expect(token.Delimiter, "(")
	inner := p.parseExpr()
	rparen := p.expect(token.Delimiter, ")")
	return &ast.Enclosed{
		ExprBase: ast.AtSpan(joinSpan(lparen.Span, rparen.Span)),
		Inner:    inner,
	}
}

// parseAsmExpr parses `asm("code", arg, arg, ... : type)`; the return
// type clause is optional and defaults to void, matching an asm
// expression used only for its side effect.
func (p *Parser) parseAsmExpr() ast.Expr {
	kw := p.advance()
	p.expect(token.Delimiter, "(")
	codeTok := p.expect(token.StringLit, "")

	var args []ast.Expr
	for p.accept(token.Delimiter, ",") != nil {
		args = append(args, p.parseExpr())
	}

	ret := types.TVoid
	if p.accept(token.Delimiter, ":") != nil {
		ret = p.parseType()
	}
	close := p.expect(token.Delimiter, ")")
	return &ast.AsmExpr{
		ExprBase: ast.AtSpan(joinSpan(kw.Span, close.Span)),
		Code:     unquoteText(codeTok.Text), Args: args, RetType: ret,
	}
}

// parseSizeofExpr parses `sizeof(TYPE)` or `sizeof(expr)`, trying the
// type form first (speculatively, like a cast) since a bare
// identifier is ambiguous between a type name and a variable.
func (p *Parser) parseSizeofExpr() ast.Expr {
	kw := p.advance()
	p.expect(token.Delimiter, "(")

	var typ types.Type
	isType := p.Try(func() bool {
		if !p.isTypeStart(p.cur()) {
			return false
		}
		typ = p.parseType()
		return p.is(token.Delimiter, ")")
	})

	var operand ast.Expr
	if !isType {
		operand = p.parseExpr()
	}
	close := p.expect(token.Delimiter, ")")
	return &ast.SizeofExpr{
		ExprBase: ast.AtSpan(joinSpan(kw.Span, close.Span)),
		IsExpr:   !isType, Operand: operand, Type: typ,
	}
}

// parseNewExpr parses `new TYPE`.
func (p *Parser) parseNewExpr() ast.Expr {
	kw := p.advance()
	typ := p.parseType()
	last := p.toks[p.pos-1]
	return &ast.NewExpr{ExprBase: ast.AtSpan(joinSpan(kw.Span, last.Span)), Type: typ}
}

// parseMatchExpr parses `match(tested) { pattern[| pattern]* => expr, ..., _ => expr }`.
func (p *Parser) parseMatchExpr() ast.Expr {
	kw := p.advance()
	p.expect(token.Delimiter, "(")
	tested := p.parseExpr()
	p.expect(token.Delimiter, ")")
	p.expect(token.Delimiter, "{")

	var cases []ast.MatchCase
	for !p.is(token.Delimiter, "}") {
		cases = append(cases, p.parseMatchCase())
		if p.accept(token.Delimiter, ",") == nil {
			break
		}
	}
	close := p.expect(token.Delimiter, "}")
	return &ast.MatchExpr{
		ExprBase: ast.AtSpan(joinSpan(kw.Span, close.Span)),
		Tested:   tested, Cases: cases,
	}
}

func (p *Parser) parseMatchCase() ast.MatchCase {
	start := p.cur().Span
	if p.isIdentText("_") {
		p.advance()
		p.expect(token.Operator, "=>")
		expr := p.parseExpr()
		return ast.MatchCase{Wildcard: true, Expr: expr, SpanVal: joinSpan(start, expr.Span())}
	}

	pats := []ast.MatchPattern{p.parseMatchPattern()}
	for p.accept(token.Operator, "|") != nil {
		pats = append(pats, p.parseMatchPattern())
	}
	p.expect(token.Operator, "=>")
	expr := p.parseExpr()
	return ast.MatchCase{Patterns: pats, Expr: expr, SpanVal: joinSpan(start, expr.Span())}
}

func (p *Parser) parseMatchPattern() ast.MatchPattern {
	t := p.cur()
	switch t.Kind {
	case token.IntLit:
		lo := p.advance()
		if p.accept(token.Operator, "..") != nil {
			hi := p.expect(token.IntLit, "")
			return ast.MatchPattern{Kind: ast.PatRange, Lo: lo, Hi: hi, SpanVal: joinSpan(lo.Span, hi.Span)}
		}
		return ast.MatchPattern{Kind: ast.PatIntLit, IntTok: lo, SpanVal: lo.Span}
	case token.StringLit:
		s := p.advance()
		return ast.MatchPattern{Kind: ast.PatStrLit, StrTok: s, SpanVal: s.Span}
	case token.Ident:
		name := p.advance()
		return ast.MatchPattern{Kind: ast.PatIdent, Ident: &ast.Ident{Name: name}, SpanVal: name.Span}
	}
	p.fail(t.Span, "expected a match pattern, got '%s'", t.Text)
	p.advance()
	return ast.MatchPattern{Kind: ast.PatIntLit, SpanVal: t.Span}
}

// parseArrayLit parses `{e, e, ...}`.
func (p *Parser) parseArrayLit() ast.Expr {
	open := p.expect(token.Delimiter, "{")
	if close := p.accept(token.Delimiter, "}"); close != nil {
		return &ast.ArrayLit{ExprBase: ast.AtSpan(joinSpan(open.Span, close.Span))}
	}
	var elems []ast.Expr
	for {
		elems = append(elems, p.parseExpr())
		if p.accept(token.Delimiter, ",") != nil {
			continue
		}
		break
	}
	close := p.expect(token.Delimiter, "}")
	return &ast.ArrayLit{ExprBase: ast.AtSpan(joinSpan(open.Span, close.Span)), Elements: elems}
}

// parseArrayRange parses the standalone range-generator primary
// `[lo..hi]`. Distinguished from a postfix Slice purely by parse
// position: this is only reached from parsePrimary, never from
// parsePostfix's subscript branch.
func (p *Parser) parseArrayRange() ast.Expr {
	open := p.expect(token.Delimiter, "[")
	lo := p.parseExpr()
	p.expect(token.Operator, "..")
	hi := p.parseExpr()
	close := p.expect(token.Delimiter, "]")
	return &ast.ArrayRange{ExprBase: ast.AtSpan(joinSpan(open.Span, close.Span)), Lo: lo, Hi: hi}
}

// unquoteText strips a string literal token's surrounding quotes,
// falling back to the raw text if it's somehow malformed.
func unquoteText(text string) string {
	s, err := strconv.Unquote(text)
	if err != nil {
		return text
	}
	return s
}
