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

// Statement parsing, grounded on original_source/parser.c's
// statement-keyword dispatch (RETURN/DECLARATION/COMPOUND/IF there),
// generalized with the forms parser.c's reduced grammar never had:
// while/do-while/for/foreach, break/continue, and local struct and
// typedef declarations.
package parser

import (
	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

func (p *Parser) parseBlock() *ast.Block {
	open := p.expect(token.Delimiter, "{")
	var stmts []ast.Stmt
	for !p.is(token.Delimiter, "}") && p.cur().Kind != token.EOF {
		stmts = append(stmts, p.parseStatement())
	}
	close := p.expect(token.Delimiter, "}")
	return &ast.Block{StmtBase: ast.StmtAt(joinSpan(open.Span, close.Span)), Stmts: stmts}
}

// parseStatement dispatches on the current token's keyword, falling
// through to a local declaration when it starts a type and otherwise
// to a bare expression statement.
func (p *Parser) parseStatement() ast.Stmt {
	t := p.cur()
	switch {
	case t.Kind == token.Delimiter && t.Text == ";":
		semi := p.advance()
		return &ast.EmptyStmt{StmtBase: ast.StmtAt(semi.Span)}

	case t.Kind == token.Delimiter && t.Text == "{":
		return p.parseBlock()

	case t.Kind == token.Keyword && t.Text == "return":
		return p.parseReturnStmt()

	case t.Kind == token.Keyword && t.Text == "if":
		return p.parseIfStmt()

	case t.Kind == token.Keyword && t.Text == "while":
		return p.parseWhileStmt()

	case t.Kind == token.Keyword && t.Text == "do":
		return p.parseDoWhileStmt()

	case t.Kind == token.Keyword && t.Text == "for":
		return p.parseForStmt()

	case t.Kind == token.Keyword && t.Text == "foreach":
		return p.parseForeachStmt()

	case t.Kind == token.Keyword && (t.Text == "break" || t.Text == "continue"):
		tok := p.advance()
		semi := p.expect(token.Delimiter, ";")
		kind := ast.LoopBreak
		if t.Text == "continue" {
			kind = ast.LoopContinue
		}
		return &ast.LoopCtrlStmt{StmtBase: ast.StmtAt(joinSpan(tok.Span, semi.Span)), Tok: tok, Kind: kind}

	case t.Kind == token.Keyword && t.Text == "struct":
		d := p.parseStructDecl()
		return &ast.DeclStmt{StmtBase: ast.StmtAt(d.Span()), Decl: d}

	case t.Kind == token.Keyword && t.Text == "typedef":
		d := p.parseTypedefDecl()
		return &ast.DeclStmt{StmtBase: ast.StmtAt(d.Span()), Decl: d}

	case p.isTypeStart(t):
		d := p.parseVarDecl(false)
		return &ast.DeclStmt{StmtBase: ast.StmtAt(d.Span()), Decl: d}
	}

	expr := p.parseExpr()
	semi := p.expect(token.Delimiter, ";")
	if assign, ok := expr.(*ast.Assign); ok {
		assign.Discard = true
	}
	return &ast.ExprStmt{StmtBase: ast.StmtAt(joinSpan(expr.Span(), semi.Span)), X: expr}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	kw := p.advance()
	if semi := p.accept(token.Delimiter, ";"); semi != nil {
		return &ast.ReturnStmt{StmtBase: ast.StmtAt(joinSpan(kw.Span, semi.Span)), Empty: true, Tok: kw}
	}
	value := p.parseExpr()
	semi := p.expect(token.Delimiter, ";")
	return &ast.ReturnStmt{StmtBase: ast.StmtAt(joinSpan(kw.Span, semi.Span)), Tok: kw, Value: value}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	kw := p.advance()
	p.expect(token.Delimiter, "(")
	test := p.parseExpr()
	p.expect(token.Delimiter, ")")
	then := p.parseStatement()

	end := then.Span()
	var elseStmt ast.Stmt
	if p.isKeyword("else") {
		p.advance()
		elseStmt = p.parseStatement()
		end = elseStmt.Span()
	}
	return &ast.IfStmt{StmtBase: ast.StmtAt(joinSpan(kw.Span, end)), Test: test, Then: then, Else: elseStmt}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	kw := p.advance()
	p.expect(token.Delimiter, "(")
	test := p.parseExpr()
	p.expect(token.Delimiter, ")")
	body := p.parseStatement()
	return &ast.WhileStmt{StmtBase: ast.StmtAt(joinSpan(kw.Span, body.Span())), Test: test, Body: body}
}

func (p *Parser) parseDoWhileStmt() ast.Stmt {
	kw := p.advance()
	body := p.parseStatement()
	p.expect(token.Keyword, "while")
	p.expect(token.Delimiter, "(")
	test := p.parseExpr()
	p.expect(token.Delimiter, ")")
	semi := p.expect(token.Delimiter, ";")
	return &ast.DoWhileStmt{StmtBase: ast.StmtAt(joinSpan(kw.Span, semi.Span)), Test: test, Body: body}
}

// parseForStmt parses a C-style `for (init; test; loop) body`; any of
// the three clauses may be omitted, only Init may be a declaration.
func (p *Parser) parseForStmt() ast.Stmt {
	kw := p.advance()
	p.expect(token.Delimiter, "(")

	var init ast.Stmt
	if p.is(token.Delimiter, ";") {
		p.advance()
	} else if p.isTypeStart(p.cur()) {
		d := p.parseVarDecl(false)
		init = &ast.DeclStmt{StmtBase: ast.StmtAt(d.Span()), Decl: d}
	} else {
		e := p.parseExpr()
		semi := p.expect(token.Delimiter, ";")
		init = &ast.ExprStmt{StmtBase: ast.StmtAt(joinSpan(e.Span(), semi.Span)), X: e}
	}

	var test ast.Expr
	if !p.is(token.Delimiter, ";") {
		test = p.parseExpr()
	}
	p.expect(token.Delimiter, ";")

	var loop ast.Expr
	if !p.is(token.Delimiter, ")") {
		loop = p.parseExpr()
	}
	p.expect(token.Delimiter, ")")

	body := p.parseStatement()
	return &ast.ForStmt{StmtBase: ast.StmtAt(joinSpan(kw.Span, body.Span())), Init: init, Test: test, Loop: loop, Body: body}
}

// parseForeachStmt parses `foreach([ref] [TYPE] name in arr) body`.
// The optional element type is tried speculatively: TYPE then an
// identifier commits it, anything else (a bare `name in arr`) rewinds
// and name is read plain, with the element type left for
// internal/semant to infer from arr.
func (p *Parser) parseForeachStmt() ast.Stmt {
	kw := p.advance()
	p.expect(token.Delimiter, "(")
	ref := p.accept(token.Keyword, "ref") != nil

	var loopVarType *types.Type
	p.Try(func() bool {
		if !p.isTypeStart(p.cur()) {
			return false
		}
		t := p.parseType()
		if p.cur().Kind != token.Ident {
			return false
		}
		loopVarType = &t
		return true
	})

	name := p.expect(token.Ident, "")
	p.expect(token.Keyword, "in")
	arr := p.parseExpr()
	p.expect(token.Delimiter, ")")
	body := p.parseStatement()

	return &ast.ForeachStmt{
		StmtBase:    ast.StmtAt(joinSpan(kw.Span, body.Span())),
		LoopVarType: loopVarType,
		Ref:         ref,
		LoopVar:     &ast.Ident{Name: name},
		Array:       arr,
		Body:        body,
	}
}
