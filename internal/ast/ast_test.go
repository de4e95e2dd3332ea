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

package ast

import (
	"testing"

	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

func check(t *testing.T, a1 any, a2 any) {
	if a1 != a2 {
		t.Errorf("%[1]v (a %[1]T) != %[2]v (a %[2]T)", a1, a2)
	}
}

// TestBaseConstructorsSetSpan guards against the base-struct fields
// ever going unexported again: a package outside internal/ast must be
// able to set a real span when building a node via AtSpan/StmtAt/DeclAt.
func TestBaseConstructorsSetSpan(t *testing.T) {
	span := token.Span{File: "t.lc", Line: 3, Col: 5, Offset: 10, Length: 2}

	lit := &IntLit{ExprBase: AtSpan(span), Tok: &token.Token{Kind: token.IntLit, Text: "42", Span: span}}
	check(t, span, lit.Span())
	check(t, types.Type{}, lit.ValueType())
	lit.SetValueType(types.TInt)
	check(t, types.TInt, lit.ValueType())

	stmt := &EmptyStmt{StmtBase: StmtAt(span)}
	check(t, span, stmt.Span())

	decl := &TypedefDecl{DeclBase: DeclAt(span), Type: types.TInt}
	check(t, span, decl.Span())
}

func TestExprTypeSwitchCoversNodeKinds(t *testing.T) {
	var e Expr = &BinOp{OpCode: types.OpAdd}
	switch e.(type) {
	case *BinOp:
	default:
		t.Fatalf("expected *BinOp, got %T", e)
	}
}

func TestProgramSpanFallsBackWithoutFunctions(t *testing.T) {
	p := &Program{}
	check(t, token.Span{}, p.Span())

	name := &token.Token{Span: token.Span{File: "t.lc", Line: 1}}
	p.Functions = append(p.Functions, &Function{Name: name})
	check(t, name.Span, p.Span())
}

func TestMatchPatternKindsAreDistinct(t *testing.T) {
	kinds := []MatchPatternKind{PatIntLit, PatStrLit, PatIdent, PatRange}
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j && a == b {
				t.Fatalf("pattern kinds %d and %d compare equal", i, j)
			}
		}
	}
}
