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

// analyzeExpr computes e's value type bottom-up and returns the node
// to store back in e's place: usually e itself, mutated, but
// occasionally a wrapping CastExpr (see coerce) or, for an unresolved
// call target, the same Call re-tagged with its resolved callee.
func (a *Analyzer) analyzeExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.IntLit:
		n.SetValueType(types.TInt)
		return n
	case *ast.FloatLit:
		n.SetValueType(types.TReal)
		return n
	case *ast.StringLit:
		n.SetValueType(types.TStr)
		return n
	case *ast.NullLit:
		n.SetValueType(types.TNull)
		return n
	case *ast.IdentExpr:
		return a.resolveIdent(n)
	case *ast.Enclosed:
		n.Inner = a.analyzeExpr(n.Inner)
		n.SetValueType(n.Inner.ValueType())
		return n
	case *ast.UnaryExpr:
		return a.analyzeUnary(n)
	case *ast.CastExpr:
		n.Operand = a.analyzeExpr(n.Operand)
		if !types.CanExplicit(n.Operand.ValueType(), n.Target) {
			a.sink.Error(n.Span(), "cannot cast %s to %s", types.Display(n.Operand.ValueType()), types.Display(n.Target))
		}
		n.SetValueType(n.Target)
		return n
	case *ast.BinOp:
		return a.analyzeBinOp(n)
	case *ast.Assign:
		return a.analyzeAssign(n)
	case *ast.Ternary:
		return a.analyzeTernary(n)
	case *ast.Call:
		return a.analyzeCall(n)
	case *ast.Subscript:
		return a.analyzeSubscript(n)
	case *ast.Slice:
		return a.analyzeSlice(n)
	case *ast.ArrayRange:
		n.Lo = a.coerce(a.analyzeExpr(n.Lo), types.TInt)
		n.Hi = a.coerce(a.analyzeExpr(n.Hi), types.TInt)
		n.SetValueType(types.ArrayOf(types.TInt, 0, false, true))
		return n
	case *ast.FieldAccess:
		return a.analyzeFieldAccess(n)
	case *ast.Deref:
		return a.analyzeDeref(n)
	case *ast.AddrOf:
		n.Operand = a.analyzeExpr(n.Operand)
		if !isLvalue(n.Operand) {
			a.sink.Error(n.Span(), "cannot take the address of a non-lvalue expression")
		}
		n.SetValueType(types.PointerTo(n.Operand.ValueType()))
		return n
	case *ast.AsmExpr:
		for i := range n.Args {
			n.Args[i] = a.analyzeExpr(n.Args[i])
		}
		n.SetValueType(n.RetType)
		return n
	case *ast.MatchExpr:
		return a.analyzeMatchExpr(n)
	case *ast.SizeofExpr:
		return a.analyzeSizeof(n)
	case *ast.NewExpr:
		if id, ok := n.Type.Base.IsStruct(); ok && a.structs.Get(id).Incomplete {
			a.sink.Error(n.Span(), "allocation of incomplete type %s", types.Display(n.Type))
		}
		n.SetValueType(n.Type)
		return n
	case *ast.RandomExpr:
		return a.analyzeRandom(n)
	case *ast.ArrayLit:
		return a.analyzeArrayLit(n)
	case *ast.StructInit:
		return a.analyzeStructInit(n)
	}
	return e
}

func (a *Analyzer) resolveIdent(ie *ast.IdentExpr) ast.Expr {
	a.resolveIdentName(ie.Ident)
	ie.SetValueType(ie.Ident.Type)
	return ie
}

// resolveIdentName fills in id's Type/Global/Resolved/SlotID by name,
// preferring an innermost local over a global; shared by both a bare
// IdentExpr and a match pattern's PAT_IDENT (which carries an *Ident
// but isn't wrapped in an IdentExpr).
func (a *Analyzer) resolveIdentName(id *ast.Ident) {
	name := id.Name.Text
	if lv, ok := a.lookupLocal(name); ok {
		id.Type = lv.Ident.Type
		id.Global = false
		id.Resolved = true
		id.SlotID = lv.Ident.SlotID
		return
	}
	if gv, ok := a.globals[name]; ok {
		id.Type = gv.Ident.Type
		id.Global = true
		id.Resolved = true
		id.SlotID = gv.Ident.SlotID
		return
	}
	a.sink.Error(id.Span(), "unknown identifier %q", name)
}

func (a *Analyzer) analyzeUnary(n *ast.UnaryExpr) ast.Expr {
	n.Operand = a.analyzeExpr(n.Operand)
	opndType := n.Operand.ValueType()

	if fn, ok := a.lookupUnaryOverload(n.OpCode, opndType); ok {
		n.Overload = fn
		n.SetValueType(fn.Signature.Return)
		return n
	}

	switch n.OpCode {
	case types.OpLogicNot:
		n.Operand = a.coerceBool(n.Operand)
		n.SetValueType(types.TInt)
	case types.OpBitNot:
		n.Operand = a.coerce(n.Operand, types.TInt)
		n.SetValueType(types.TInt)
	case types.OpAdd, types.OpSub:
		if !opndType.IsPOD() || opndType.Base == types.Str {
			a.sink.Error(n.Span(), "operator %q requires a numeric operand, got %s", n.OpCode.String(), types.Display(opndType))
		}
		n.SetValueType(opndType)
	default:
		a.sink.Error(n.Span(), "unsupported unary operator %q", n.OpCode.String())
		n.SetValueType(opndType)
	}
	return n
}

// analyzeBinOp mirrors AST_BINOP: an operator overload, if one is
// registered for the pair of operand types, always wins over the
// built-in rules below.
func (a *Analyzer) analyzeBinOp(n *ast.BinOp) ast.Expr {
	n.Left = a.analyzeExpr(n.Left)
	n.Right = a.analyzeExpr(n.Right)
	lt, rt := n.Left.ValueType(), n.Right.ValueType()

	if fn, ok := a.lookupBinaryOverload(n.OpCode, lt, rt); ok {
		n.Overload = fn
		n.SetValueType(fn.Signature.Return)
		return n
	}

	switch {
	case n.OpCode.IsLogic():
		n.Left = a.coerceBool(n.Left)
		n.Right = a.coerceBool(n.Right)
		n.SetValueType(types.TInt)

	case n.OpCode == types.OpBitAnd || n.OpCode == types.OpBitOr || n.OpCode == types.OpBitXor ||
		n.OpCode == types.OpShl || n.OpCode == types.OpShr:
		n.Left = a.coerce(n.Left, types.TInt)
		n.Right = a.coerce(n.Right, types.TInt)
		n.SetValueType(types.TInt)

	case n.OpCode == types.OpCat && lt.Kind == types.KindArray:
		n.Right = a.coerce(n.Right, *lt.Inner)
		n.SetValueType(lt)

	case n.OpCode == types.OpCat && lt.Kind == types.KindBasic && lt.Base == types.Str:
		n.Right = a.coerce(n.Right, types.TStr)
		n.SetValueType(types.TStr)

	case n.OpCode == types.OpIn && rt.Kind == types.KindArray:
		n.Left = a.coerce(n.Left, *rt.Inner)
		n.SetValueType(types.TInt)

	case n.OpCode == types.OpIn && rt.Kind == types.KindBasic && rt.Base == types.Str:
		n.Left = a.coerce(n.Left, types.TStr)
		n.SetValueType(types.TInt)

	default:
		a.analyzeNumericBinOp(n, lt, rt)
	}
	return n
}

// analyzeNumericBinOp covers the arithmetic and comparison operators:
// real beats int (the other side is promoted), plain int stays int,
// and str is only legal for the equality/ordering family. The result
// of a comparison is always int (the language's boolean); arithmetic's
// result is the promoted operand type.
func (a *Analyzer) analyzeNumericBinOp(n *ast.BinOp, lt, rt types.Type) {
	bothStr := lt.Kind == types.KindBasic && lt.Base == types.Str && rt.Kind == types.KindBasic && rt.Base == types.Str
	if bothStr {
		if !n.OpCode.IsBool() {
			a.sink.Error(n.Span(), "operator %q is not defined for str operands", n.OpCode.String())
		}
		n.SetValueType(types.TInt)
		return
	}

	isReal := func(t types.Type) bool { return t.Kind == types.KindBasic && t.Base == types.Real }
	isInt := func(t types.Type) bool { return t.Kind == types.KindBasic && t.Base == types.Int }

	switch {
	case isReal(lt) || isReal(rt):
		if !(lt.IsPOD() && rt.IsPOD()) {
			a.sink.Error(n.Span(), "operator %q requires numeric operands", n.OpCode.String())
			n.SetValueType(types.TInt)
			return
		}
		n.Left = a.coerce(n.Left, types.TReal)
		n.Right = a.coerce(n.Right, types.TReal)
		if n.OpCode.IsBool() {
			n.SetValueType(types.TInt)
		} else {
			n.SetValueType(types.TReal)
		}
	case isInt(lt) && isInt(rt):
		if n.OpCode.IsBool() {
			n.SetValueType(types.TInt)
		} else {
			n.SetValueType(types.TInt)
		}
	default:
		a.sink.Error(n.Span(), "operator %q requires matching numeric or str operands, got %s and %s",
			n.OpCode.String(), types.Display(lt), types.Display(rt))
		n.SetValueType(types.TInt)
	}
}

func (a *Analyzer) analyzeAssign(n *ast.Assign) ast.Expr {
	n.Target = a.analyzeExpr(n.Target)
	if !isLvalue(n.Target) {
		a.sink.Error(n.Target.Span(), "assigned expression is not an lvalue")
	}
	n.Value = a.analyzeExpr(n.Value)
	n.Value = a.coerce(n.Value, n.Target.ValueType())
	n.SetValueType(n.Target.ValueType())
	return n
}

func (a *Analyzer) analyzeTernary(n *ast.Ternary) ast.Expr {
	n.Cond = a.coerceBool(a.analyzeExpr(n.Cond))
	n.True = a.analyzeExpr(n.True)
	n.False = a.analyzeExpr(n.False)

	tt, ft := n.True.ValueType(), n.False.ValueType()
	switch {
	case tt.Equal(ft):
		n.SetValueType(tt)
	case types.CanImplicit(ft, tt):
		n.False = a.coerce(n.False, tt)
		n.SetValueType(tt)
	case types.CanImplicit(tt, ft):
		n.True = a.coerce(n.True, ft)
		n.SetValueType(ft)
	default:
		a.sink.Error(n.Span(), "ternary branches have incompatible types %s and %s", types.Display(tt), types.Display(ft))
		n.SetValueType(tt)
	}
	return n
}

// analyzeCall mirrors AST_FUNC_CALL_EXPRESSION: a bare identifier
// callee is checked against declared functions, then builtins, before
// falling back to treating it as an ordinary (necessarily
// function-typed) expression for an indirect call.
func (a *Analyzer) analyzeCall(n *ast.Call) ast.Expr {
	if ident, ok := n.Callee.(*ast.IdentExpr); ok && !ident.Ident.Resolved {
		name := ident.Ident.Name.Text
		if fn, found := a.functions[name]; found {
			ident.Ident.Resolved = true
			ident.Ident.Global = false
			ident.SetValueType(types.FunctionType(fn.Signature))
			n.Indirect = false
			n.Builtin = ""
			a.checkCallArgs(n, fn.Signature)
			n.SetValueType(fn.Signature.Return)
			return n
		}
		if sig, found := BuiltinSignature(name); found {
			ident.Ident.Resolved = true
			ident.Ident.Global = false
			ident.SetValueType(types.FunctionType(sig))
			n.Indirect = false
			n.Builtin = name
			a.checkCallArgs(n, sig)
			n.SetValueType(sig.Return)
			return n
		}
	}

	n.Callee = a.analyzeExpr(n.Callee)
	n.Indirect = true
	n.Builtin = ""
	calleeType := n.Callee.ValueType()
	if calleeType.Kind != types.KindFunction {
		a.sink.Error(n.Callee.Span(), "called expression is not a function")
		for i := range n.Args {
			n.Args[i] = a.analyzeExpr(n.Args[i])
		}
		return n
	}
	a.checkCallArgs(n, *calleeType.Sig)
	n.SetValueType(calleeType.Sig.Return)
	return n
}

func (a *Analyzer) checkCallArgs(n *ast.Call, sig types.Signature) {
	if len(n.Args) != len(sig.Params) {
		a.sink.Error(n.Span(), "invalid argument count: expected %d, got %d", len(sig.Params), len(n.Args))
		for i := range n.Args {
			n.Args[i] = a.analyzeExpr(n.Args[i])
		}
		return
	}
	for i := range n.Args {
		arg := a.analyzeExpr(n.Args[i])
		n.Args[i] = a.coerceArg(arg, sig.Params[i])
	}
}

func (a *Analyzer) analyzeSubscript(n *ast.Subscript) ast.Expr {
	n.Array = a.analyzeExpr(n.Array)
	arrType := n.Array.ValueType()
	n.Index = a.coerce(a.analyzeExpr(n.Index), types.TInt)

	switch {
	case arrType.Kind == types.KindArray:
		n.SetValueType(*arrType.Inner)
	case arrType.Kind == types.KindBasic && arrType.Base == types.Str:
		n.SetValueType(types.TInt)
	default:
		a.sink.Error(n.Array.Span(), "type %s is not an array or a str", types.Display(arrType))
		n.SetValueType(types.TInt)
	}
	return n
}

func (a *Analyzer) analyzeSlice(n *ast.Slice) ast.Expr {
	n.Array = a.analyzeExpr(n.Array)
	arrType := n.Array.ValueType()
	if !arrType.IsArrayKind() {
		a.sink.Error(n.Array.Span(), "type %s is not an array or a str", types.Display(arrType))
	}
	if n.Lo != nil {
		n.Lo = a.coerce(a.analyzeExpr(n.Lo), types.TInt)
	}
	if n.Hi != nil {
		n.Hi = a.coerce(a.analyzeExpr(n.Hi), types.TInt)
	}
	n.SetValueType(arrType)
	return n
}

// analyzeFieldAccess mirrors AST_STRUCT_ACCESS: `->` (Indirect) first
// strips one level of Pointer/Optional before the struct lookup.
func (a *Analyzer) analyzeFieldAccess(n *ast.FieldAccess) ast.Expr {
	n.Base = a.analyzeExpr(n.Base)
	structType := n.Base.ValueType()

	if n.Indirect {
		switch structType.Kind {
		case types.KindPointer, types.KindOptional:
			structType = *structType.Inner
		default:
			a.sink.Error(n.Base.Span(), "type %s is not a pointer nor an optional", types.Display(structType))
		}
	}

	id, ok := structType.Base.IsStruct()
	if structType.Kind != types.KindBasic || !ok {
		a.sink.Error(n.Base.Span(), "type %s is not a struct", types.Display(structType))
		n.SetValueType(types.TInt)
		return n
	}
	st := a.structs.Get(id)
	if st.Incomplete {
		a.sink.Error(n.Base.Span(), "type %s is incomplete", types.Display(structType))
	}
	field, ok := st.FieldByName(n.Field.Text)
	if !ok {
		a.sink.Error(n.Field.Span, "type %s has no field named %s", types.Display(structType), n.Field.Text)
		n.SetValueType(types.TInt)
		return n
	}
	n.Resolved = field
	n.SetValueType(field.Type)
	return n
}

func (a *Analyzer) analyzeDeref(n *ast.Deref) ast.Expr {
	n.Operand = a.analyzeExpr(n.Operand)
	opndType := n.Operand.ValueType()
	switch opndType.Kind {
	case types.KindPointer, types.KindOptional:
		n.SetValueType(*opndType.Inner)
	default:
		a.sink.Error(n.Span(), "cannot dereference a %s value", types.Display(opndType))
		n.SetValueType(opndType)
	}
	return n
}

func (a *Analyzer) analyzeSizeof(n *ast.SizeofExpr) ast.Expr {
	if n.IsExpr {
		n.Operand = a.analyzeExpr(n.Operand)
		n.Type = n.Operand.ValueType()
	}
	if id, ok := n.Type.Base.IsStruct(); ok && a.structs.Get(id).Incomplete {
		a.sink.Error(n.Span(), "sizeof of incomplete type %s", types.Display(n.Type))
	}
	n.SetValueType(types.TInt)
	return n
}

// analyzeRandom retags RandomExpr's Kind once the operand's type is
// known: the parser always guesses RandInt since it runs before
// types exist. A single numeric bound picks int or float random; a
// single array/str bound picks a random element; a range is always
// an int range (spec.md 4.3 only ever shows %l..r with int-looking
// bounds).
func (a *Analyzer) analyzeRandom(n *ast.RandomExpr) ast.Expr {
	if n.IsRange {
		n.Lo = a.coerce(a.analyzeExpr(n.Lo), types.TInt)
		n.Hi = a.coerce(a.analyzeExpr(n.Hi), types.TInt)
		n.Kind = ast.RandRange
		n.SetValueType(types.TInt)
		return n
	}

	n.Single = a.analyzeExpr(n.Single)
	vt := n.Single.ValueType()
	switch {
	case vt.Kind == types.KindBasic && vt.Base == types.Int:
		n.Kind = ast.RandInt
		n.SetValueType(types.TInt)
	case vt.Kind == types.KindBasic && vt.Base == types.Real:
		n.Kind = ast.RandFloat
		n.SetValueType(types.TReal)
	case vt.Kind == types.KindArray:
		n.Kind = ast.RandArray
		n.SetValueType(*vt.Inner)
	case vt.Kind == types.KindBasic && vt.Base == types.Str:
		n.Kind = ast.RandArray
		n.SetValueType(types.TInt)
	default:
		a.sink.Error(n.Span(), "invalid random-expression operand type %s", types.Display(vt))
		n.Kind = ast.RandInt
		n.SetValueType(types.TInt)
	}
	return n
}

func (a *Analyzer) analyzeArrayLit(n *ast.ArrayLit) ast.Expr {
	var elemType types.Type
	for i := range n.Elements {
		n.Elements[i] = a.analyzeExpr(n.Elements[i])
	}
	if len(n.Elements) == 0 {
		n.SetValueType(types.ArrayOf(types.TVoid, 0, true, false))
		return n
	}
	elemType = n.Elements[0].ValueType()
	for i := 1; i < len(n.Elements); i++ {
		if !n.Elements[i].ValueType().Equal(elemType) {
			a.sink.Error(n.Elements[i].Span(), "array literal element type %s doesn't match first element type %s",
				types.Display(n.Elements[i].ValueType()), types.Display(elemType))
		}
	}
	n.SetValueType(types.ArrayOf(elemType, len(n.Elements), true, false))
	return n
}

func (a *Analyzer) analyzeStructInit(n *ast.StructInit) ast.Expr {
	id, _ := n.Type.Base.IsStruct()
	st := a.structs.Get(id)
	if len(n.Elements) != len(st.Fields) {
		a.sink.Error(n.Span(), "struct %s has %d fields, got %d initializers", st.Name, len(st.Fields), len(n.Elements))
	}
	for i := range n.Elements {
		n.Elements[i] = a.analyzeExpr(n.Elements[i])
		if i < len(st.Fields) {
			n.Elements[i] = a.coerce(n.Elements[i], st.Fields[i].Type)
		}
	}
	n.SetValueType(n.Type)
	return n
}
