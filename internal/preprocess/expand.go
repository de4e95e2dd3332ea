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

	"github.com/gmofishsauce/langc/internal/lexer"
	"github.com/gmofishsauce/langc/internal/token"
)

// expandOnce performs a single left-to-right scan of tokens, replacing
// every macro invocation it finds with that macro's (un-re-expanded)
// replacement list; a later call folds in the next level of nesting.
// testForDefined, set only while evaluating a #if/#elif condition,
// leaves a `defined(NAME)` invocation untouched so evaluateExpr sees it
// intact — expanding it here would require knowing its int result
// before the shunting-yard pass runs, when all evaluateExpr really
// wants is the raw NAME token.
func (p *Preprocessor) expandOnce(tokens []*token.Token, testForDefined bool) []*token.Token {
	var out []*token.Token
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]

		switch {
		case testForDefined && t.Kind == token.Ident && t.Text == "defined":
			if i+3 < len(tokens) &&
				tokens[i+1].Kind == token.Delimiter && tokens[i+1].Text == "(" &&
				tokens[i+2].Kind == token.Ident &&
				tokens[i+3].Kind == token.Delimiter && tokens[i+3].Text == ")" {
				out = append(out, tokens[i], tokens[i+1], tokens[i+2], tokens[i+3])
				i += 3
			} else {
				p.Sink.Error(t.Span, "expected macro name after 'defined'")
			}

		case t.Kind == token.Ident && t.Text == "__FILE__":
			out = append(out, &token.Token{Kind: token.StringLit, Text: strconv.Quote(t.Span.File), Span: t.Span})

		case t.Kind == token.Ident && t.Text == "__LINE__":
			out = append(out, &token.Token{Kind: token.IntLit, Text: strconv.Itoa(t.Span.Line), Span: t.Span})

		case t.Kind == token.Ident:
			if def, ok := p.Macros.Lookup(t.Text); ok {
				consumed, expansion := p.expandInvocation(tokens, i, def)
				out = append(out, expansion...)
				i += consumed - 1
			} else {
				out = append(out, t)
			}

		default:
			out = append(out, t)
		}
	}
	return out
}

// expandInvocation expands one macro reference starting at tokens[i]
// (already confirmed to name a defined macro), returning how many
// input tokens it consumed and the replacement tokens it produced. A
// function-like macro used without a following '(' is left as a bare
// identifier, same as the original.
func (p *Preprocessor) expandInvocation(tokens []*token.Token, i int, def *MacroDef) (consumed int, out []*token.Token) {
	ref := tokens[i]
	if !def.FunctionLike() {
		return 1, p.substitute(def, nil, ref)
	}
	if i+1 >= len(tokens) || !(tokens[i+1].Kind == token.Delimiter && tokens[i+1].Text == "(") {
		return 1, []*token.Token{ref}
	}

	args, end, ok := splitArgs(tokens, i+1)
	if !ok {
		p.Sink.Error(ref.Span, "expected ',' or ')' in invocation of macro '%s'", def.Name)
		return 1, []*token.Token{ref}
	}

	minArgs := len(def.Params)
	if (!def.Variadic && len(args) != minArgs) || (def.Variadic && len(args) < minArgs) {
		p.Sink.Error(ref.Span, "invalid argument count in invocation of macro '%s'", def.Name)
		return end - i + 1, nil
	}

	return end - i + 1, p.substitute(def, args, ref)
}

// splitArgs reads a parenthesized, comma-separated argument list
// starting at tokens[openIdx] (the invocation's '('), honoring nested
// parentheses so a comma inside a nested call doesn't split an
// argument early. Returns the arguments, the index of the matching
// ')', and false on a malformed list.
func splitArgs(tokens []*token.Token, openIdx int) (args [][]*token.Token, closeIdx int, ok bool) {
	depth := 1
	var cur []*token.Token
	i := openIdx + 1
	if i < len(tokens) && tokens[i].Kind == token.Delimiter && tokens[i].Text == ")" {
		return nil, i, true
	}
	for ; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind == token.Delimiter && t.Text == "(" {
			depth++
			cur = append(cur, t)
			continue
		}
		if t.Kind == token.Delimiter && t.Text == ")" {
			depth--
			if depth == 0 {
				args = append(args, cur)
				return args, i, true
			}
			cur = append(cur, t)
			continue
		}
		if t.Kind == token.Delimiter && t.Text == "," && depth == 1 {
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return nil, 0, false
}

// substitute builds one macro's replacement-list tokens with its
// parameters replaced by the corresponding call arguments, honoring
// `#param` stringification and the variadic `__VA_ARGS__`/
// `__VA_COUNT__` pseudo-parameters. A non-function-like macro is
// substituted with args == nil, in which case no identifier in its
// body can match a parameter name.
func (p *Preprocessor) substitute(def *MacroDef, args [][]*token.Token, invokedAt *token.Token) []*token.Token {
	origin := &token.Origin{Kind: token.OriginMacro, Name: def.Name, At: invokedAt.Span}

	paramIndex := func(name string) (int, bool) {
		for k, p := range def.Params {
			if p == name {
				return k, true
			}
		}
		return 0, false
	}

	var out []*token.Token
	for j := 0; j < len(def.Body); j++ {
		bt := def.Body[j]

		if bt.Kind == token.Delimiter && bt.Text == "#" && j+1 < len(def.Body) && def.Body[j+1].Kind == token.Ident {
			if k, ok := paramIndex(def.Body[j+1].Text); ok && k < len(args) {
				out = append(out, stringify(args[k], def.Body[j+1]))
				j++
				continue
			}
		}

		if bt.Kind == token.Operator && bt.Text == "##" && len(out) > 0 && j+1 < len(def.Body) {
			rhs := p.expandBodyToken(def, args, origin, paramIndex, def.Body[j+1])
			if len(rhs) > 0 {
				out[len(out)-1] = pasteTokens(out[len(out)-1], rhs[0])
				out = append(out, rhs[1:]...)
			}
			j++
			continue
		}

		out = append(out, p.expandBodyToken(def, args, origin, paramIndex, bt)...)
	}
	return out
}

// expandBodyToken expands a single macro-body token (VA_ARGS/VA_COUNT
// substitution, a parameter name's argument tokens, or the token
// itself stamped with origin) independent of any surrounding `#`/`##`
// handling, so `##`'s right-hand operand can be expanded the same way
// an ordinary body token is before it gets pasted onto the left side.
func (p *Preprocessor) expandBodyToken(def *MacroDef, args [][]*token.Token, origin *token.Origin, paramIndex func(string) (int, bool), bt *token.Token) []*token.Token {
	if bt.Kind == token.Ident && def.Variadic && bt.Text == "__VA_ARGS__" {
		var out []*token.Token
		for k := len(def.Params); k < len(args); k++ {
			out = append(out, stampOrigin(args[k], origin)...)
			if k != len(args)-1 {
				out = append(out, &token.Token{Kind: token.Delimiter, Text: ",", Span: bt.Span})
			}
		}
		return out
	}

	if bt.Kind == token.Ident && def.Variadic && bt.Text == "__VA_COUNT__" {
		n := 0
		if len(args) > len(def.Params) {
			n = len(args) - len(def.Params)
		}
		return []*token.Token{{Kind: token.IntLit, Text: strconv.Itoa(n), Span: bt.Span}}
	}

	if bt.Kind == token.Ident {
		if k, ok := paramIndex(bt.Text); ok && k < len(args) {
			return stampOrigin(args[k], origin)
		}
	}

	cp := *bt
	cp.Span.Origin = origin
	return []*token.Token{&cp}
}

func stampOrigin(toks []*token.Token, origin *token.Origin) []*token.Token {
	out := make([]*token.Token, len(toks))
	for i, t := range toks {
		cp := *t
		cp.Span.Origin = &token.Origin{Kind: token.OriginMacroArg, Name: origin.Name, At: origin.At, Prev: t.Span.Origin}
		out[i] = &cp
	}
	return out
}

// stringify renders an argument's tokens back to source text and
// wraps it as a string-literal token, for `#param`.
func stringify(toks []*token.Token, at *token.Token) *token.Token {
	s := ""
	for i, t := range toks {
		if i > 0 {
			s += " "
		}
		s += t.Text
	}
	return &token.Token{Kind: token.StringLit, Text: strconv.Quote(s), Span: at.Span}
}

// pasteTokens implements `a ## b`: concatenates two tokens' literal
// source text and re-lexes the result as a single token, the same way
// do_tokenization's inline "##" handling builds a scratch buffer and
// re-tokenizes it.
func pasteTokens(a, b *token.Token) *token.Token {
	combined := a.Text + b.Text
	lx := lexer.NewString(a.Span.File, combined, lexer.Flags{SingleToken: true})
	t := lx.Next()
	t.Span = a.Span
	t.Span.Length = len(combined)
	return t
}
