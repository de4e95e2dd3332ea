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
	"github.com/gmofishsauce/langc/internal/lexer"
	"github.com/gmofishsauce/langc/internal/token"
)

var ifChainStopWords = map[string]bool{"elif": true, "else": true, "endif": true}

// ifBranch is one condition/body pair of an #if/#ifdef/#ifndef chain:
// the chain's leading branch, or one of its #elif follow-ups. #else
// has no condition and is represented as the chain's elseBody.
type ifBranch struct {
	satisfied bool
	body      []*token.Token
}

// handleIfChain reads and resolves one complete #if/#ifdef/#ifndef
// .. #elif .. #else .. #endif chain (word and at name the already
// consumed leading directive), returning only the winning branch's
// already directive-processed tokens.
func (p *Preprocessor) handleIfChain(lx *lexer.Lexer, word string, at token.Span) []*token.Token {
	branches := []ifBranch{p.readBranch(lx, word, at)}

	for {
		// readBranch leaves the stopping directive's name token
		// pushed back; read it again to see which one it was.
		name := lx.Next()
		switch name.Text {
		case "elif":
			branches = append(branches, p.readBranch(lx, "if", name.Span))
		case "else":
			elseBranch := ifBranch{satisfied: true}
			elseBranch.body, _ = p.run(lx, map[string]bool{"endif": true})
			lx.Next() // consumes the "endif" name token
			p.skipRestOfLine(lx)
			branches = append(branches, elseBranch)
			return winningBody(branches)
		case "endif":
			p.skipRestOfLine(lx)
			return winningBody(branches)
		default:
			p.Sink.Error(name.Span, "expected #elif, #else or #endif")
			return winningBody(branches)
		}
	}
}

func winningBody(branches []ifBranch) []*token.Token {
	for _, b := range branches {
		if b.satisfied {
			return b.body
		}
	}
	return nil
}

// readBranch reads one condition (for "if": a macro-expanded #if
// expression; for "ifdef"/"ifndef": a single macro name) and then its
// body, stopping at the next #elif/#else/#endif at this nesting depth.
func (p *Preprocessor) readBranch(lx *lexer.Lexer, word string, at token.Span) ifBranch {
	satisfied := p.evalCondition(lx, word, at)
	body, _ := p.run(lx, ifChainStopWords)
	return ifBranch{satisfied: satisfied, body: body}
}

func (p *Preprocessor) evalCondition(lx *lexer.Lexer, word string, at token.Span) bool {
	var raw []*token.Token
	for {
		t := lx.Next()
		if t.Kind == token.Newline || t.Kind == token.EOF {
			break
		}
		raw = append(raw, t)
	}
	if len(raw) == 0 {
		p.Sink.Error(at, "expected condition after #%s", word)
		return false
	}

	switch word {
	case "ifdef", "ifndef":
		if len(raw) != 1 || raw[0].Kind != token.Ident {
			p.Sink.Error(at, "expected a single macro name after #%s", word)
			return false
		}
		defined := p.Macros.IsDefined(raw[0].Text)
		if word == "ifndef" {
			return !defined
		}
		return defined
	default: // "if"
		expanded := raw
		for i := 0; i < MaxExpansionPasses; i++ {
			expanded = p.expandOnce(expanded, true)
		}
		return evaluateExpr(expanded, p.Macros, p.Sink) != 0
	}
}

// skipRestOfLine discards tokens up to and including the next
// Newline, for the trailing text after #endif/#else on their line.
func (p *Preprocessor) skipRestOfLine(lx *lexer.Lexer) {
	for {
		t := lx.Next()
		if t.Kind == token.Newline || t.Kind == token.EOF {
			return
		}
	}
}
