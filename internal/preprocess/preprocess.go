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

// Package preprocess turns one or more source files into a single
// flat token stream ready for the parser: `#include` spliced in,
// `#define`s recorded and expanded, `#if`/`#ifdef` chains resolved to
// their winning branch, and every macro invocation replaced by its
// expansion. Grounded on original_source/preprocessor.c and
// pp_expr_parser.c; generalized from their pointer-into-source-text
// scanning to driving internal/lexer's token stream instead.
package preprocess

import (
	"fmt"
	"strconv"

	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/lexer"
	"github.com/gmofishsauce/langc/internal/token"
)

// MaxExpansionPasses bounds the number of whole-stream macro
// re-expansion rounds, so a macro that (illegally) expands to itself
// can't hang the compiler; sixteen rounds of nesting covers any
// realistic macro depth. A var, not a const, so internal/config can
// override the default from a TOML file.
var MaxExpansionPasses = 16

// Preprocessor drives the directive-handling traversal and the
// macro-expansion passes that follow it.
type Preprocessor struct {
	Macros *MacroTable
	Sink   *diag.Sink

	// Open resolves an #include's filename to a Lexer over its
	// contents. Defaults to lexer.NewFile; tests substitute an
	// in-memory resolver.
	Open func(filename string) (*lexer.Lexer, error)
}

func New(sink *diag.Sink) *Preprocessor {
	return &Preprocessor{
		Macros: NewMacroTable(),
		Sink:   sink,
		Open: func(filename string) (*lexer.Lexer, error) {
			return lexer.NewFile(filename, lexer.Flags{})
		},
	}
}

// ProcessFile preprocesses one file and returns its fully expanded
// token stream, ready for the parser.
func (p *Preprocessor) ProcessFile(path string) ([]*token.Token, error) {
	lx, err := p.Open(path)
	if err != nil {
		return nil, diag.Wrap(token.Span{File: path}, err, "could not open source file")
	}
	defer lx.Close()

	directivesHandled, _ := p.run(lx, nil)
	return p.expandAll(directivesHandled), nil
}

// expandAll runs MaxExpansionPasses rounds of whole-list macro
// expansion, the same fixed-iteration scheme tokenize_program uses
// instead of tracking convergence.
func (p *Preprocessor) expandAll(tokens []*token.Token) []*token.Token {
	for i := 0; i < MaxExpansionPasses; i++ {
		tokens = p.expandOnce(tokens, false)
	}
	return tokens
}

// run consumes tokens from lx, splicing in #include contents and
// recording #defines, dispatching nested #ifdef/#ifndef/#if chains
// recursively, until EOF or until a directive whose name is in
// stopWords is seen — in which case that directive's name token is
// returned unconsumed-past-its-name so the caller (an enclosing
// #if chain) can read whatever follows it itself. stopWords == nil
// means "run to EOF"; seeing elif/else/endif with stopWords == nil is
// reported as a dangling directive.
func (p *Preprocessor) run(lx *lexer.Lexer, stopWords map[string]bool) (out []*token.Token, stoppedOn string) {
	atLineStart := true
	for {
		t := lx.Next()
		switch {
		case t.Kind == token.EOF:
			return out, ""
		case t.Kind == token.Newline:
			atLineStart = true
		case atLineStart && t.Kind == token.Delimiter && t.Text == "#":
			name := lx.Next()
			word := name.Text
			if stopWords != nil && stopWords[word] {
				lx.Unget(name)
				return out, word
			}
			out = p.dispatch(lx, word, name.Span, out)
			atLineStart = true // every dispatch branch consumes through its own line's Newline
		default:
			out = append(out, t)
			atLineStart = false
		}
	}
}

// dispatch handles one directive whose name token has already been
// consumed, appending any tokens it produces (an include's contents,
// a resolved if-chain's winning branch) to out.
func (p *Preprocessor) dispatch(lx *lexer.Lexer, word string, at token.Span, out []*token.Token) []*token.Token {
	switch word {
	case "include":
		return p.handleInclude(lx, at, out)
	case "define":
		p.handleDefine(lx, at)
		return out
	case "undef":
		p.handleUndef(lx, at)
		return out
	case "ifdef", "ifndef", "if":
		body := p.handleIfChain(lx, word, at)
		return append(out, body...)
	case "elif", "else", "endif":
		p.Sink.Error(at, "#%s without a matching #if/#ifdef/#ifndef", word)
		p.skipRestOfLine(lx)
		return out
	case "error":
		p.handleMessage(lx, at, true)
		return out
	case "warning":
		p.handleMessage(lx, at, false)
		return out
	default:
		p.Sink.Error(at, "unknown preprocessor directive '#%s'", word)
		p.skipRestOfLine(lx)
		return out
	}
}

func (p *Preprocessor) handleInclude(lx *lexer.Lexer, at token.Span, out []*token.Token) []*token.Token {
	name := lx.Next()
	if name.Kind != token.StringLit {
		p.Sink.Error(at, "expected filename string after #include")
		p.skipRestOfLine(lx)
		return out
	}
	filename := unquote(name.Text)
	incLx, err := p.Open(filename)
	if err != nil {
		p.Sink.Errorf(name.Span, err, fmt.Sprintf("could not open include file %q", filename))
		p.skipRestOfLine(lx)
		return out
	}
	defer incLx.Close()

	included, _ := p.run(incLx, nil)
	for _, tok := range included {
		tok.Span.Origin = &token.Origin{Kind: token.OriginInclude, Name: filename, At: name.Span, Prev: tok.Span.Origin}
	}
	p.skipRestOfLine(lx)
	return append(out, included...)
}

func (p *Preprocessor) handleUndef(lx *lexer.Lexer, at token.Span) {
	name := lx.Next()
	if name.Kind != token.Ident {
		p.Sink.Error(at, "expected macro name after #undef")
		p.skipRestOfLine(lx)
		return
	}
	p.Macros.Undef(name.Text)
	p.skipRestOfLine(lx)
}

func (p *Preprocessor) handleMessage(lx *lexer.Lexer, at token.Span, isError bool) {
	msg := lx.Next()
	if msg.Kind != token.StringLit {
		verb := "warning"
		if isError {
			verb = "error"
		}
		p.Sink.Error(at, "expected %s message string", verb)
		p.skipRestOfLine(lx)
		return
	}
	text := unquote(msg.Text)
	if isError {
		p.Sink.Error(at, "%s", text)
	} else {
		p.Sink.Warning(at, "%s", text)
	}
	p.skipRestOfLine(lx)
}

func (p *Preprocessor) handleDefine(lx *lexer.Lexer, at token.Span) {
	name := lx.Next()
	if name.Kind != token.Ident {
		p.Sink.Error(at, "expected macro name after #define")
		p.skipRestOfLine(lx)
		return
	}

	def := &MacroDef{Name: name.Text, DefinedAt: name.Span}

	if peek := lx.Next(); peek.Kind == token.Delimiter && peek.Text == "(" {
		def.Params = []string{}
		for {
			pt := lx.Next()
			if pt.Kind == token.Delimiter && pt.Text == ")" {
				break
			}
			if pt.Kind == token.Operator && pt.Text == "..." {
				def.Variadic = true
				closeParen := lx.Next()
				if !(closeParen.Kind == token.Delimiter && closeParen.Text == ")") {
					p.Sink.Error(closeParen.Span, "expected ')' after '...'")
				}
				break
			}
			if pt.Kind != token.Ident {
				p.Sink.Error(pt.Span, "expected macro parameter name")
				break
			}
			def.Params = append(def.Params, pt.Text)
			sep := lx.Next()
			if sep.Kind == token.Delimiter && sep.Text == "," {
				continue
			}
			if sep.Kind == token.Delimiter && sep.Text == ")" {
				break
			}
			p.Sink.Error(sep.Span, "expected ',' or ')' in macro parameter list")
			break
		}
	} else {
		lx.Unget(peek)
	}

	for {
		bt := lx.Next()
		if bt.Kind == token.Newline || bt.Kind == token.EOF {
			break
		}
		def.Body = append(def.Body, bt)
	}

	if prev, redefined := p.Macros.Define(def); redefined {
		p.Sink.Begin()
		p.Sink.Error(name.Span, "redefinition of macro '%s'", name.Text)
		p.Sink.Note(prev.DefinedAt, "first defined here")
		p.Sink.End()
	}
}

func unquote(text string) string {
	s, err := strconv.Unquote(text)
	if err != nil {
		return text
	}
	return s
}
