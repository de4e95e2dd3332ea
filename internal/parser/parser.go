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

// Package parser builds an internal/ast.Program from the flat token
// stream internal/preprocess produces. Grounded on
// original_source/parser.c's accept/expect/consume_token idiom
// (next_token never advances, consume_token/accept/expect do),
// generalized from its one-shot top-down walk to support the
// speculative rewind a few constructs in the full grammar need: the
// parser keeps a stack of cursor positions ("anchors") so a failed
// alternative can unwind and retry instead of reporting a fatal error.
package parser

import (
	"fmt"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

// Parser holds the token cursor and the tables it consults while
// building the tree: the struct table (so a type name resolves to a
// stable struct id the moment it's seen, forward-declaring it if
// necessary, the same way the original's single hash table works) and
// the set of function names committed so far (funcs, below).
type Parser struct {
	toks []*token.Token
	pos  int

	sink    *diag.Sink
	structs *types.StructTable

	// funcs records every function/operator-overload name committed so
	// far, so the postfix `.` handler can tell a Uniform-Function-Call
	// rewrite (`a.f(x)` -> `f(a, x)`, f a known function) apart from an
	// ordinary field access or an indirect call through a function-typed
	// field.
	funcs map[string]bool

	// speculating > 0 while inside a Try block: expect/fail report
	// through panic(parseFailure{}) instead of the sink, caught by Try.
	speculating int
}

func New(toks []*token.Token, sink *diag.Sink, structs *types.StructTable) *Parser {
	return &Parser{toks: toks, sink: sink, structs: structs, funcs: make(map[string]bool)}
}

// parseFailure is the panic value Try recovers: a fatal token mismatch
// while speculating, not a real compiler bug.
type parseFailure struct{ span token.Span; msg string }

func (p *Parser) cur() *token.Token {
	if p.pos >= len(p.toks) {
		return token.EOFToken("")
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) *token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return token.EOFToken("")
	}
	return p.toks[i]
}

func (p *Parser) advance() *token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// isKind reports whether the current token has the given kind and,
// when text != "", also matches that exact text.
func (p *Parser) is(kind token.Kind, text string) bool {
	t := p.cur()
	return t.Kind == kind && (text == "" || t.Text == text)
}

func (p *Parser) isKeyword(word string) bool { return p.is(token.Keyword, word) }

// accept consumes and returns the current token if it matches, else
// leaves the cursor alone and returns nil.
func (p *Parser) accept(kind token.Kind, text string) *token.Token {
	if p.is(kind, text) {
		return p.advance()
	}
	return nil
}

// expect consumes the current token if it matches, else reports a
// fatal error (or, while speculating, unwinds via panic so Try can
// retry the next alternative).
func (p *Parser) expect(kind token.Kind, text string) *token.Token {
	if t := p.accept(kind, text); t != nil {
		return t
	}
	t := p.cur()
	what := text
	if what == "" {
		what = kind.String()
	}
	p.fail(t.Span, "expected '%s', got '%s'", what, t.Text)
	return t
}

func (p *Parser) fail(span token.Span, format string, args ...any) {
	if p.speculating > 0 {
		panic(parseFailure{span: span, msg: fmt.Sprintf(format, args...)})
	}
	p.sink.Error(span, format, args...)
}

// Try attempts fn speculatively: on success the consumed tokens stay
// consumed (Commit); on a parseFailure panic or a bool-false return,
// the cursor rewinds to where Try started and false is returned so the
// caller can fall through to its next alternative.
func (p *Parser) Try(fn func() bool) (ok bool) {
	mark := p.pos
	p.speculating++
	defer func() {
		p.speculating--
		if r := recover(); r != nil {
			if _, isFail := r.(parseFailure); isFail {
				p.pos = mark
				ok = false
				return
			}
			panic(r)
		}
	}()
	if !fn() {
		p.pos = mark
		return false
	}
	return true
}

// ParseProgram parses the entire token stream into a Program: an
// ordered mix of function definitions and top-level declarations,
// disambiguated the same way the grammar describes — a leading type
// followed by `name (` is a function, followed by anything else is a
// declaration, and `operator` always introduces a function.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.cur().Kind != token.EOF {
		if p.isKeyword("struct") && p.peekAt(1).Kind == token.Ident && p.peekAt(2).Kind == token.Delimiter && p.peekAt(2).Text == "{" {
			prog.Decls = append(prog.Decls, p.parseStructDecl())
			continue
		}
		if p.isKeyword("typedef") {
			prog.Decls = append(prog.Decls, p.parseTypedefDecl())
			continue
		}
		if fn, ok := p.tryParseFunction(); ok {
			prog.Functions = append(prog.Functions, fn)
			continue
		}
		d := p.parseVarDecl(true)
		prog.Decls = append(prog.Decls, d)
		prog.Globals = append(prog.Globals, d)
	}
	return prog
}
