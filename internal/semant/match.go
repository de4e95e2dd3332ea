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

// analyzeMatchExpr mirrors AST_MATCH_EXPR/AST_MATCH_CASE: every
// pattern within a case must agree with that case's first pattern's
// type, every non-wildcard case's pattern type must agree with the
// tested expression's type, at most one case may be the wildcard `_`,
// and every case's result expression must agree with the others'.
// The scrutinee is evaluated into a slot once: if Tested is already a
// bare, non-global local identifier that slot is reused directly,
// otherwise a fresh temporary is synthesized to hold it.
func (a *Analyzer) analyzeMatchExpr(n *ast.MatchExpr) ast.Expr {
	n.Tested = a.analyzeExpr(n.Tested)
	testedType := n.Tested.ValueType()

	wildcards := 0
	for ci := range n.Cases {
		c := &n.Cases[ci]
		a.analyzeMatchCase(c, testedType)
		if c.Wildcard {
			wildcards++
		}
	}
	if wildcards > 1 {
		a.sink.Error(n.Span(), "cannot have multiple wildcard cases in match expression")
	}

	var resultType types.Type
	haveResult := false
	for ci := range n.Cases {
		c := &n.Cases[ci]
		if !haveResult {
			resultType = c.Expr.ValueType()
			haveResult = true
			continue
		}
		if !c.Expr.ValueType().Equal(resultType) {
			a.sink.Error(c.Expr.Span(), "match case expressions don't have the same type")
		}
	}
	if !haveResult {
		resultType = types.TVoid
	}
	n.SetValueType(resultType)

	if ident, ok := n.Tested.(*ast.IdentExpr); ok && !ident.Ident.Global {
		n.ScrutineeSlot = ident.Ident.SlotID
	} else {
		tmp := a.newTemp(testedType)
		n.ScrutineeSlot = tmp.Ident.SlotID
	}
	return n
}

func (a *Analyzer) analyzeMatchCase(c *ast.MatchCase, testedType types.Type) {
	for pi := range c.Patterns {
		a.analyzeMatchPattern(&c.Patterns[pi])
	}
	for pi := 1; pi < len(c.Patterns); pi++ {
		if !c.Patterns[0].ValueType.Equal(c.Patterns[pi].ValueType) {
			a.sink.Error(c.Patterns[pi].SpanVal, "pattern types don't match")
		}
	}

	c.Expr = a.analyzeExpr(c.Expr)

	if len(c.Patterns) > 0 {
		c.ValueType = c.Patterns[0].ValueType
		if !c.ValueType.Equal(testedType) {
			a.sink.Error(c.SpanVal, "match case type %s incompatible with tested expression type %s",
				types.Display(c.ValueType), types.Display(testedType))
		}
	} else {
		c.ValueType = testedType
	}
}

func (a *Analyzer) analyzeMatchPattern(p *ast.MatchPattern) {
	switch p.Kind {
	case ast.PatIntLit:
		p.ValueType = types.TInt
	case ast.PatStrLit:
		p.ValueType = types.TStr
	case ast.PatIdent:
		a.resolveIdentName(p.Ident)
		p.ValueType = p.Ident.Type
	case ast.PatRange:
		p.ValueType = types.TInt
	}
}
