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

package semant

import (
	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/types"
)

// coerce wraps e in an implicit CastExpr to target when needed,
// reporting an error and returning e unchanged when the conversion
// isn't legal. Grounded on generate_type_conversion, minus its
// in-place node-splicing trick: Go has no union to overwrite, so this
// just returns a new node for the caller to store back.
func (a *Analyzer) coerce(e ast.Expr, target types.Type) ast.Expr {
	from := e.ValueType()
	if from.Equal(target) {
		return e
	}
	if !types.CanImplicit(from, target) {
		a.sink.Error(e.Span(), "cannot implicitly cast %s to %s", types.Display(from), types.Display(target))
		return e
	}
	cast := &ast.CastExpr{ExprBase: ast.AtSpan(e.Span()), Target: target, Operand: e}
	cast.SetValueType(target)
	return cast
}

// isPseudoType reports whether t is one of the wildcard types that
// only appear in builtin signatures (★any, ★array, ★pointer, ★null):
// these are never a cast target, only an Equal-time wildcard match.
func isPseudoType(t types.Type) bool {
	if t.Kind != types.KindBasic {
		return false
	}
	switch t.Base {
	case types.StarAny, types.StarArray, types.StarPointer, types.StarNull:
		return true
	}
	return false
}

// coerceArg is coerce specialized for a call argument against a
// (possibly builtin, possibly pseudo-typed) parameter type.
func (a *Analyzer) coerceArg(e ast.Expr, target types.Type) ast.Expr {
	if isPseudoType(target) {
		if !e.ValueType().Equal(target) {
			a.sink.Error(e.Span(), "argument type %s is not compatible with parameter type %s", types.Display(e.ValueType()), types.Display(target))
		}
		return e
	}
	return a.coerce(e, target)
}

// coerceBool mirrors cast_to_boolean: only int, real, pointer,
// optional and function values may stand in for a boolean condition
// (str, void and structs may not), and int needs no cast at all.
func (a *Analyzer) coerceBool(e ast.Expr) ast.Expr {
	vt := e.ValueType()
	if vt.Kind == types.KindBasic && vt.Base == types.Int {
		return e
	}
	ok := vt.Kind == types.KindPointer || vt.Kind == types.KindOptional || vt.Kind == types.KindFunction ||
		(vt.Kind == types.KindBasic && vt.Base == types.Real)
	if !ok {
		a.sink.Error(e.Span(), "cannot use %s as a boolean expression", types.Display(vt))
		return e
	}
	cast := &ast.CastExpr{ExprBase: ast.AtSpan(e.Span()), Target: types.TInt, Operand: e}
	cast.SetValueType(types.TInt)
	return cast
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IdentExpr, *ast.Subscript, *ast.FieldAccess, *ast.Deref:
		return true
	}
	return false
}
