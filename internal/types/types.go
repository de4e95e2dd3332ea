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

// Package types represents and compares the language's types: a
// tagged sum over basic/pointer/optional/array/function forms, plus
// the struct table, the implicit/explicit cast matrix and the
// operator-overload registry. Grounded on original_source/types.c and
// original_source/ast_nodes.h's type_t usage; the struct-valued-enum
// idiom (Base, below) follows asm/lexer.go's lexerStateType pattern.
package types

import "fmt"

// Base names a basic/pseudo type. User structs get an id >= UserOffset.
type Base struct{ b int }

func (b Base) String() string {
	if b.b >= UserOffset {
		return fmt.Sprintf("struct#%d", b.b-UserOffset)
	}
	if b.b >= 0 && b.b < len(baseNames) {
		return baseNames[b.b]
	}
	return "?"
}

const UserOffset = 1000

var (
	Int        = Base{0}
	Real       = Base{1}
	Str        = Base{2}
	Void       = Base{3}
	StarNull   = Base{4} // pseudo: matches any Pointer(_), used by the `null` literal
	StarAny    = Base{5} // pseudo: matches any type, builtin signatures only
	StarArray  = Base{6} // pseudo: matches any Array(_) or str
	StarPointer = Base{7} // pseudo: matches any Pointer(_)
)

var baseNames = []string{"int", "real", "str", "void", "★null", "★any", "★array", "★pointer"}

// StructID returns the Base for user-struct number id.
func StructID(id int) Base { return Base{UserOffset + id} }

// IsStruct reports whether b names a user struct, and if so its id.
func (b Base) IsStruct() (int, bool) {
	if b.b >= UserOffset {
		return b.b - UserOffset, true
	}
	return 0, false
}

// Kind discriminates the Type sum.
type Kind struct{ k int }

var (
	KindBasic    = Kind{0}
	KindPointer  = Kind{1}
	KindOptional = Kind{2}
	KindArray    = Kind{3}
	KindFunction = Kind{4}
)

// Signature is a function type's shape: return type plus ordered
// parameter types.
type Signature struct {
	Return Type
	Params []Type
}

func (s Signature) Equal(o Signature) bool {
	if !s.Return.Equal(o.Return) || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if !s.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

// Type is the tagged sum used throughout the compiler for value and
// declaration types. Only the fields
// relevant to Kind are populated; Go has no tagged unions, so unlike
// the original's C union this simply leaves the other fields zero,
// which is cheap at this scale (one Type per AST node, not per byte of
// source).
type Type struct {
	Kind Kind

	Base Base // KindBasic

	Inner *Type // KindPointer, KindOptional, KindArray (element type)

	// KindArray
	InitialSize    int  // constant size if known, else 0
	HasInitialSize bool // true if a size expression was given at all
	IsEmptyArray   bool // `T[]` with no size: grows dynamically

	Sig *Signature // KindFunction
}

func Basic(b Base) Type { return Type{Kind: KindBasic, Base: b} }

func PointerTo(inner Type) Type { return Type{Kind: KindPointer, Inner: &inner} }

func OptionalOf(inner Type) Type { return Type{Kind: KindOptional, Inner: &inner} }

func ArrayOf(elem Type, size int, hasSize bool, isEmpty bool) Type {
	return Type{Kind: KindArray, Inner: &elem, InitialSize: size, HasInitialSize: hasSize, IsEmptyArray: isEmpty}
}

func FunctionType(sig Signature) Type { return Type{Kind: KindFunction, Sig: &sig} }

var (
	TInt  = Basic(Int)
	TReal = Basic(Real)
	TStr  = Basic(Str)
	TVoid = Basic(Void)
	TNull = Basic(StarNull)
	TAny  = Basic(StarAny)
)

func (t Type) String() string {
	switch t.Kind {
	case KindBasic:
		return t.Base.String()
	case KindPointer:
		return t.Inner.String() + "*"
	case KindOptional:
		return t.Inner.String() + "?"
	case KindArray:
		if t.IsEmptyArray {
			return t.Inner.String() + "[]"
		}
		if t.HasInitialSize {
			return fmt.Sprintf("%s[%d]", t.Inner.String(), t.InitialSize)
		}
		return t.Inner.String() + "[?]"
	case KindFunction:
		parts := "("
		for i, p := range t.Sig.Params {
			if i > 0 {
				parts += ","
			}
			parts += p.String()
		}
		return t.Sig.Return.String() + parts + ")"
	}
	return "?"
}

// IsPOD reports whether t is one of the plain-old-data basics the
// cast matrix (cast.go) treats specially: int, real, str.
func (t Type) IsPOD() bool {
	return t.Kind == KindBasic && (t.Base == Int || t.Base == Real || t.Base == Str)
}

// IsPointerKind reports whether t is a Pointer. The ★null/★pointer
// pseudo-types are basic types and report false.
func (t Type) IsPointerKind() bool { return t.Kind == KindPointer }

func (t Type) IsArrayKind() bool {
	return t.Kind == KindArray || (t.Kind == KindBasic && t.Base == Str)
}
