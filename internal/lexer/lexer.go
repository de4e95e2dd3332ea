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

// Package lexer tokenizes (possibly preprocessed) text into the
// token stream the parser consumes. Kept as a state-machine scanner,
// following asm/lexer.go's switch-over-lexerStateType loop,
// generalized from the assembler's small token set to the language's
// full grammar.
//
// '#' is lexed as an ordinary Delimiter token, same as '(' or ','; it
// is the preprocessor (internal/preprocess), not the lexer, that
// decides a '#' token beginning a line starts a directive, by
// tracking line-start state across Newline tokens rather than inside
// the lexer.
package lexer

import (
	"fmt"
	"strings"

	"github.com/gmofishsauce/langc/internal/source"
	"github.com/gmofishsauce/langc/internal/token"
)

// state is the lexerStateType trick: a struct-wrapped int so a stray
// assignment from an unrelated enum doesn't typecheck.
type state struct{ s int }

var (
	stBetween      = state{0}
	stInError      = state{1}
	stInSymbol     = state{2}
	stInString     = state{3}
	stInNumber     = state{4}
	stInComment    = state{5}
	stBlockComment = state{6}
	stEnd          = state{7}
)

// Flags control the one lexer behavior the preprocessor needs that the
// parser never does: single-token mode, used to re-lex the
// concatenation of two tokens' source text for `a ## b` pasting,
// where the combined source is re-tokenized in a scratch lexer run.
type Flags struct {
	SingleToken bool
}

var keywords = map[string]bool{
	"if": true, "else": true, "while": true, "do": true, "for": true,
	"foreach": true, "ref": true, "in": true, "return": true, "break": true,
	"continue": true, "struct": true, "typedef": true, "operator": true,
	"match": true, "sizeof": true, "new": true, "asm": true, "null": true,
	"int": true, "real": true, "str": true, "void": true,
}

// IsKeyword reports whether text is a reserved word, exported so the
// preprocessor can decide whether a macro name shadows one.
func IsKeyword(text string) bool { return keywords[text] }

// multi-char operators; matchOperatorOrDelim tries the longest of
// these before falling back to a single character.
var multiCharOps = []string{
	"<<=", ">>=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"==", "!=", ">=", "<=", "&&", "||", "<<", ">>", "++", "--",
	"=>", "->", "...", "..", "##",
}

const singleCharOps = "+-*/%~=<>!&|^?"
const delimiters = "(){}[],;:.#"

// Lexer scans one source unit (a file or an in-memory macro-expansion
// buffer) into tokens.
type Lexer struct {
	cur   *source.Cursor
	flags Flags
	pb    *token.Token
	st    state
}

func NewFile(path string, flags Flags) (*Lexer, error) {
	c, err := source.NewFile(path)
	if err != nil {
		return nil, err
	}
	return &Lexer{cur: c, flags: flags, st: stBetween}, nil
}

func NewString(name, body string, flags Flags) *Lexer {
	c := source.NewString(name, body)
	return &Lexer{cur: c, flags: flags, st: stBetween}
}

func (lx *Lexer) Close() error { return lx.cur.Close() }

// Unget pushes back a single token for one-token lookahead.
func (lx *Lexer) Unget(t *token.Token) {
	if lx.pb != nil {
		panic("lexer: too many token pushbacks")
	}
	lx.pb = t
}

func (lx *Lexer) span(startOffset, startLine, startCol int) token.Span {
	return token.Span{
		File: lx.cur.File, Line: startLine, Col: startCol,
		LineStart: lx.cur.LineStart, Offset: startOffset,
		Length: lx.cur.Offset - startOffset,
	}
}

// Next returns the next token, or an EOF/error token.
func (lx *Lexer) Next() *token.Token {
	if lx.pb != nil {
		t := lx.pb
		lx.pb = nil
		return t
	}
	t := lx.scan()
	if lx.flags.SingleToken {
		lx.st = stEnd // one token per Lexer instance in single-token mode
	}
	return t
}

func (lx *Lexer) errTok(startOffset, startLine, startCol int, format string, args ...any) *token.Token {
	lx.st = stInError
	return &token.Token{Kind: token.Invalid, Text: fmt.Sprintf(format, args...), Span: lx.span(startOffset, startLine, startCol)}
}

func (lx *Lexer) scan() *token.Token {
	if lx.st == stEnd {
		return token.EOFToken(lx.cur.File)
	}

	var acc []byte
	startOffset, startLine, startCol := lx.cur.Offset, lx.cur.Line, lx.cur.Col

	for {
		b, err := lx.cur.ReadByte()
		if err != nil {
			if len(acc) > 0 {
				t := lx.finishAccumulator(acc, startOffset, startLine, startCol)
				lx.st = stEnd
				return t
			}
			lx.st = stEnd
			return token.EOFToken(lx.cur.File)
		}
		if b >= 0x80 {
			return lx.errTok(startOffset, startLine, startCol, "non-ASCII character 0x%02x", b)
		}

		switch lx.st {
		case stBetween:
			startOffset, startLine, startCol = lx.cur.Offset-1, lx.cur.Line, lx.cur.Col-1
			switch {
			case b == '\n':
				return &token.Token{Kind: token.Newline, Text: "\n", Span: lx.span(startOffset, startLine, startCol)}
			case isSpace(b):
				// stay between tokens
			case b == '/':
				nb, nerr := lx.cur.ReadByte()
				switch {
				case nerr == nil && nb == '/':
					lx.st = stInComment
				case nerr == nil && nb == '*':
					lx.st = stBlockComment
				default:
					if nerr == nil {
						lx.cur.UnreadByte(nb)
					}
					return lx.matchOperatorOrDelim(b, startOffset, startLine, startCol)
				}
			case isDigit(b):
				acc = append(acc, b)
				lx.st = stInNumber
			case isIdentStart(b):
				acc = append(acc, b)
				lx.st = stInSymbol
			case b == '"':
				lx.st = stInString
			case isOpChar(b) || strings.IndexByte(delimiters, b) >= 0:
				return lx.matchOperatorOrDelim(b, startOffset, startLine, startCol)
			default:
				return lx.errTok(startOffset, startLine, startCol, "unexpected character 0x%02x", b)
			}
		case stInComment:
			if b == '\n' {
				lx.st = stBetween
				lx.cur.UnreadByte(b)
			}
		case stBlockComment:
			if b == '*' {
				nb, nerr := lx.cur.ReadByte()
				if nerr == nil && nb == '/' {
					lx.st = stBetween
				} else if nerr == nil {
					lx.cur.UnreadByte(nb)
				}
			}
		case stInSymbol:
			if isIdentPart(b) {
				acc = append(acc, b)
			} else {
				lx.cur.UnreadByte(b)
				lx.st = stBetween
				return lx.finishSymbol(acc, startOffset, startLine, startCol)
			}
		case stInNumber:
			if isDigit(b) || isHexLetter(b) || b == 'x' || b == 'X' {
				acc = append(acc, b)
			} else if b == '.' && !containsDot(acc) && !lx.peekIsDot() {
				acc = append(acc, b)
			} else {
				lx.cur.UnreadByte(b)
				lx.st = stBetween
				return lx.finishNumber(acc, startOffset, startLine, startCol)
			}
		case stInString:
			switch {
			case b == '"':
				lx.st = stBetween
				return &token.Token{Kind: token.StringLit, Text: `"` + string(acc) + `"`, Span: lx.span(startOffset, startLine, startCol)}
			case b == '\n':
				return lx.errTok(startOffset, startLine, startCol, "newline in string literal")
			case b == '\\':
				nb, nerr := lx.cur.ReadByte()
				if nerr == nil {
					acc = append(acc, unescape(nb))
				}
			default:
				acc = append(acc, b)
			}
		case stInError:
			if b == '\n' {
				lx.cur.UnreadByte(b)
				lx.st = stBetween
			}
		}
	}
}

func (lx *Lexer) finishAccumulator(acc []byte, off, line, col int) *token.Token {
	switch lx.st {
	case stInSymbol:
		return lx.finishSymbol(acc, off, line, col)
	case stInNumber:
		return lx.finishNumber(acc, off, line, col)
	}
	return token.EOFToken(lx.cur.File)
}

func (lx *Lexer) finishSymbol(acc []byte, off, line, col int) *token.Token {
	text := string(acc)
	span := lx.span(off, line, col)
	if keywords[text] {
		return &token.Token{Kind: token.Keyword, Text: text, Span: span}
	}
	return &token.Token{Kind: token.Ident, Text: text, Span: span}
}

func (lx *Lexer) finishNumber(acc []byte, off, line, col int) *token.Token {
	text := string(acc)
	span := lx.span(off, line, col)
	if strings.Contains(text, ".") {
		return &token.Token{Kind: token.FloatLit, Text: text, Span: span}
	}
	return &token.Token{Kind: token.IntLit, Text: text, Span: span}
}

// matchOperatorOrDelim greedily matches the longest operator starting
// at first (already consumed), trying assignment compounds and other
// multi-char operators before falling back to a single-char operator
// or delimiter.
func (lx *Lexer) matchOperatorOrDelim(first byte, off, line, col int) *token.Token {
	var look [2]byte
	n := 0
	for n < 2 {
		b, err := lx.cur.ReadByte()
		if err != nil {
			break
		}
		cand := string(first) + string(look[:n]) + string(b)
		if !hasPrefixAny(multiCharOps, cand) {
			lx.cur.UnreadByte(b)
			break
		}
		look[n] = b
		n++
	}
	text := string(first) + string(look[:n])
	for n > 0 {
		for _, op := range multiCharOps {
			if op == text {
				return &token.Token{Kind: token.Operator, Text: op, Span: lx.span(off, line, col), OpCode: op}
			}
		}
		lx.cur.UnreadByte(look[n-1])
		n--
		text = string(first) + string(look[:n])
	}
	s := string(first)
	if strings.IndexByte(delimiters, first) >= 0 {
		return &token.Token{Kind: token.Delimiter, Text: s, Span: lx.span(off, line, col), OpCode: s}
	}
	return &token.Token{Kind: token.Operator, Text: s, Span: lx.span(off, line, col), OpCode: s}
}

func hasPrefixAny(set []string, s string) bool {
	for _, m := range set {
		if strings.HasPrefix(m, s) {
			return true
		}
	}
	return false
}

func unescape(b byte) byte {
	switch b {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case '"':
		return '"'
	case '\\':
		return '\\'
	case '0':
		return 0
	}
	return b
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexLetter(b byte) bool {
	return (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}
func isIdentPart(b byte) bool { return isIdentStart(b) || isDigit(b) }
func isOpChar(b byte) bool    { return strings.IndexByte(singleCharOps, b) >= 0 }

func containsDot(acc []byte) bool {
	for _, b := range acc {
		if b == '.' {
			return true
		}
	}
	return false
}

// peekIsDot reports whether the next unread byte is also '.', so a
// fractional part never swallows the first dot of a `..` range
// operator: a '.' not followed by another '.' starts a fractional
// part instead.
func (lx *Lexer) peekIsDot() bool {
	b, err := lx.cur.ReadByte()
	if err != nil {
		return false
	}
	lx.cur.UnreadByte(b)
	return b == '.'
}
