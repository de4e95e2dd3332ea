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

package lexer

import (
	"testing"

	"github.com/gmofishsauce/langc/internal/token"
)

func check(t *testing.T, a1 any, a2 any) {
	if a1 != a2 {
		t.Errorf("%[1]v (a %[1]T) != %[2]v (a %[2]T)", a1, a2)
	}
}

func TestLexerIdentAndKeyword(t *testing.T) {
	lx := NewString(t.Name(), "if x\n", Flags{})
	tk := lx.Next()
	check(t, token.Keyword, tk.Kind)
	check(t, "if", tk.Text)
	tk = lx.Next()
	check(t, token.Ident, tk.Kind)
	check(t, "x", tk.Text)
	tk = lx.Next()
	check(t, token.Newline, tk.Kind)
}

func TestLexerNumbers(t *testing.T) {
	lx := NewString(t.Name(), "42 3.14 0x1F\n", Flags{})
	tk := lx.Next()
	check(t, token.IntLit, tk.Kind)
	check(t, "42", tk.Text)
	tk = lx.Next()
	check(t, token.FloatLit, tk.Kind)
	check(t, "3.14", tk.Text)
	tk = lx.Next()
	check(t, token.IntLit, tk.Kind)
	check(t, "0x1F", tk.Text)
}

func TestLexerString(t *testing.T) {
	lx := NewString(t.Name(), `"hello\nworld"`, Flags{})
	tk := lx.Next()
	check(t, token.StringLit, tk.Kind)
	check(t, "\"hello\nworld\"", tk.Text)
}

func TestLexerOperatorsGreedy(t *testing.T) {
	lx := NewString(t.Name(), "<<= << < <=", Flags{})
	cases := []string{"<<=", "<<", "<", "<="}
	for _, want := range cases {
		tk := lx.Next()
		check(t, token.Operator, tk.Kind)
		check(t, want, tk.Text)
	}
}

func TestLexerRangeVsFloat(t *testing.T) {
	lx := NewString(t.Name(), "1..5", Flags{})
	tk := lx.Next()
	check(t, token.IntLit, tk.Kind)
	check(t, "1", tk.Text)
	tk = lx.Next()
	check(t, token.Operator, tk.Kind)
	check(t, "..", tk.Text)
	tk = lx.Next()
	check(t, token.IntLit, tk.Kind)
	check(t, "5", tk.Text)
}

func TestLexerHashIsOrdinaryDelimiter(t *testing.T) {
	lx := NewString(t.Name(), "#define", Flags{})
	tk := lx.Next()
	check(t, token.Delimiter, tk.Kind)
	check(t, "#", tk.Text)
	tk = lx.Next()
	check(t, token.Ident, tk.Kind)
	check(t, "define", tk.Text)
}

func TestLexerComments(t *testing.T) {
	lx := NewString(t.Name(), "a // comment\nb /* block\ncomment */ c\n", Flags{})
	tk := lx.Next()
	check(t, "a", tk.Text)
	tk = lx.Next()
	check(t, token.Newline, tk.Kind)
	tk = lx.Next()
	check(t, "b", tk.Text)
	tk = lx.Next()
	check(t, "c", tk.Text)
}

func TestLexerUnget(t *testing.T) {
	lx := NewString(t.Name(), "a b\n", Flags{})
	first := lx.Next()
	lx.Unget(first)
	again := lx.Next()
	check(t, first.Text, again.Text)
	tk := lx.Next()
	check(t, "b", tk.Text)
}

func TestLexerUnexpectedChar(t *testing.T) {
	lx := NewString(t.Name(), "@\n", Flags{})
	tk := lx.Next()
	check(t, token.Invalid, tk.Kind)
}
