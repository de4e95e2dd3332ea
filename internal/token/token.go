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

// Package token defines the lexer's output: Token, Span and the
// macro-origin chain used to walk a diagnostic back through any
// preprocessor expansion that produced it.
package token

import "fmt"

// Kind tags the token's payload. Wrapped in a struct, not a bare int,
// so a stray assignment from an unrelated enum is a compile error
// rather than a silent int mismatch (same trick the asm package uses
// for lexerStateType/TokenKindType).
type Kind struct{ k int }

func (k Kind) String() string {
	if k.k < 0 || k.k >= len(kindNames) {
		return "Invalid"
	}
	return kindNames[k.k]
}

var (
	Invalid    = Kind{0}
	EOF        = Kind{1}
	Newline    = Kind{2}
	Ident      = Kind{3}
	Keyword    = Kind{4}
	IntLit     = Kind{5}
	FloatLit   = Kind{6}
	StringLit  = Kind{7}
	Operator   = Kind{8}
	Delimiter  = Kind{9}
)

var kindNames = []string{
	"Invalid", "EOF", "Newline", "Ident", "Keyword",
	"IntLit", "FloatLit", "StringLit", "Operator", "Delimiter",
}

// OriginKind tags how a token came to exist where it is: typed in the
// root file, pulled in via #include, or produced by macro expansion.
type OriginKind struct{ k int }

var (
	OriginNone    = OriginKind{0}
	OriginInclude = OriginKind{1}
	OriginMacro   = OriginKind{2}
	OriginMacroArg = OriginKind{3}
)

// Origin is one link in the macro-expansion chain a diagnostic walks
// to explain "expanded from FOO, included from bar.h:12". Logically
// immutable once produced: nothing after creation ever mutates a link,
// only appends a new one pointing back at it.
type Origin struct {
	Kind OriginKind
	Name string // macro name or included filename
	At   Span   // the invocation/include site
	Prev *Origin
}

// Span is a source location: filename, line, the byte position where
// the current line started (for caret underlines), a pointer into the
// source buffer, and a length. Spans never overlap within one token
// stream.
type Span struct {
	File      string
	Line      int
	Col       int
	LineStart int // byte offset of the first character of this line
	Offset    int // byte offset of the first character of this span
	Length    int
	Origin    *Origin
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Token is a lexeme plus its payload and provenance.
type Token struct {
	Kind Kind
	Text string // verbatim source text (strings keep their quotes)
	Span Span

	// Populated only for Operator/Delimiter tokens by the lexer's
	// lookup tables (out of scope here; the lexer stamps these).
	OpCode string
}

func (t *Token) String() string {
	s := t.Text
	if s == "\n" {
		s = "\\n"
	}
	return fmt.Sprintf("{%s %s}", t.Kind, s)
}

func EOFToken(file string) *Token {
	return &Token{Kind: EOF, Text: "EOF", Span: Span{File: file}}
}
