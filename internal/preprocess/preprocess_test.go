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
	"strings"
	"testing"

	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/lexer"
	"github.com/gmofishsauce/langc/internal/token"
)

func check(t *testing.T, a1 any, a2 any) {
	if a1 != a2 {
		t.Errorf("%[1]v (a %[1]T) != %[2]v (a %[2]T)", a1, a2)
	}
}

// newTestPreprocessor builds a Preprocessor whose #include resolves
// against an in-memory file set instead of the real filesystem, and
// whose diag.Sink never calls os.Exit.
func newTestPreprocessor(files map[string]string) *Preprocessor {
	sink := diag.NewSink()
	sink.Exit = func(int) {}
	p := New(sink)
	p.Open = func(filename string) (*lexer.Lexer, error) {
		body, ok := files[filename]
		if !ok {
			return nil, errNotFound(filename)
		}
		return lexer.NewString(filename, body, lexer.Flags{}), nil
	}
	return p
}

type errNotFound string

func (e errNotFound) Error() string { return "no such file: " + string(e) }

func tokenTexts(toks []*token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func process(t *testing.T, files map[string]string, entry string) []*token.Token {
	p := newTestPreprocessor(files)
	toks, err := p.ProcessFile(entry)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	return toks
}

func TestObjectLikeMacroExpansion(t *testing.T) {
	src := "#define SIZE 10\nint x = SIZE;\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int x = 10 ;", got)
}

func TestFunctionLikeMacroExpansion(t *testing.T) {
	src := "#define ADD(a, b) a + b\nint x = ADD(1, 2);\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int x = 1 + 2 ;", got)
}

func TestStringifyAndVariadic(t *testing.T) {
	src := "#define SHOW(x) #x\n" +
		"#define COUNT(...) __VA_COUNT__\n" +
		"SHOW(abc);\nCOUNT(1, 2, 3);\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, `"abc" ; 3 ;`, got)
}

func TestIfdefChoosesLiveBranch(t *testing.T) {
	src := "#define FLAG\n#ifdef FLAG\nint a;\n#else\nint b;\n#endif\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int a ;", got)
}

func TestIfExprArithmetic(t *testing.T) {
	src := "#define VERSION 3\n#if VERSION >= 2\nint newAPI;\n#else\nint oldAPI;\n#endif\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int newAPI ;", got)
}

func TestElifChain(t *testing.T) {
	src := "#define MODE 2\n" +
		"#if MODE == 1\nint one;\n#elif MODE == 2\nint two;\n#else\nint other;\n#endif\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int two ;", got)
}

func TestIncludeSplicesTokens(t *testing.T) {
	files := map[string]string{
		"main.lc": "#include \"decl.lc\"\nint y = LIMIT;\n",
		"decl.lc": "#define LIMIT 99\n",
	}
	toks := process(t, files, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int y = 99 ;", got)
}

func TestDefinedOperatorInIfExpr(t *testing.T) {
	src := "#define FEATURE\n#if defined(FEATURE)\nint on;\n#endif\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int on ;", got)
}

func TestTokenPaste(t *testing.T) {
	src := "#define CAT(a, b) a ## b\nint x = CAT(fo, o);\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int x = foo ;", got)
}

func TestTokenPasteWithMultiCharArguments(t *testing.T) {
	src := "#define CAT(a,b) a##b\nint x = CAT(foo,bar);\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	got := strings.Join(tokenTexts(toks), " ")
	check(t, "int x = foobar ;", got)
}

func TestFileAndLineBuiltins(t *testing.T) {
	src := "int f = __FILE__;\nint l = __LINE__;\n"
	toks := process(t, map[string]string{"main.lc": src}, "main.lc")
	check(t, `"main.lc"`, toks[3].Text)
	check(t, "2", toks[8].Text)
}
