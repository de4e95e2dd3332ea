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

package types

// WordSize is the machine word size in bytes the generator's sizeof
// arithmetic is expressed in (pointers, ints and reals are all one
// word; only structs and arrays have multi-word sizes).
const WordSize = 8

// Equal compares two types, honoring the pseudo-type wildcards used
// only in builtin signatures and the `null` literal: ★any matches
// anything, ★array matches any Array(_) or str, ★pointer and ★null
// both match any Pointer(_).
func (t Type) Equal(o Type) bool {
	if t.Kind == KindBasic && t.Base == StarAny {
		return true
	}
	if o.Kind == KindBasic && o.Base == StarAny {
		return true
	}
	if t.Kind == KindBasic && (t.Base == StarArray) {
		return o.IsArrayKind()
	}
	if o.Kind == KindBasic && (o.Base == StarArray) {
		return t.IsArrayKind()
	}
	if t.Kind == KindBasic && (t.Base == StarPointer || t.Base == StarNull) {
		return o.Kind == KindPointer
	}
	if o.Kind == KindBasic && (o.Base == StarPointer || o.Base == StarNull) {
		return t.Kind == KindPointer
	}

	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindBasic:
		return t.Base == o.Base
	case KindPointer, KindOptional:
		return t.Inner.Equal(*o.Inner)
	case KindArray:
		return t.Inner.Equal(*o.Inner)
	case KindFunction:
		return t.Sig.Equal(*o.Sig)
	}
	return false
}

// SizeOf computes a type's byte size. structs consults the struct
// table for completed field layouts; callers must ensure the table is
// populated before codegen runs (struct sizes are needed for `new T`,
// struct-initializer offsets and foreach's implicit element stride).
func SizeOf(t Type, structs *StructTable) int {
	switch t.Kind {
	case KindBasic:
		switch t.Base {
		case Void:
			return 0
		case Str, Int, Real:
			return WordSize
		}
		if id, ok := t.Base.IsStruct(); ok {
			return structs.Get(id).Size
		}
		return WordSize
	case KindPointer:
		return WordSize
	case KindOptional:
		return SizeOf(*t.Inner, structs) // a tag bit is packed into the pointer/word, not a separate field
	case KindArray:
		if t.HasInitialSize && !t.IsEmptyArray {
			return t.InitialSize * SizeOf(*t.Inner, structs)
		}
		return WordSize // empty/dynamic arrays are a pointer to heap-allocated storage
	case KindFunction:
		return WordSize // function pointers are one word
	}
	return 0
}

// CanImplicit reports whether an expression of type from may be used
// where a to is expected without an explicit cast.
func CanImplicit(from, to Type) bool {
	if from.Equal(to) {
		return true
	}
	// T -> Optional(T), null -> Optional(T)
	if to.Kind == KindOptional {
		if from.Kind == KindBasic && from.Base == StarNull {
			return true
		}
		if from.Equal(*to.Inner) {
			return true
		}
	}
	// null -> Pointer(_)
	if to.Kind == KindPointer && from.Kind == KindBasic && from.Base == StarNull {
		return true
	}
	if !from.IsPOD() || !to.IsPOD() {
		return false
	}
	switch from.Base {
	case Int:
		return to.Base == Int || to.Base == Real
	case Real:
		return to.Base == Real
	case Str:
		return to.Base == Str
	}
	return false
}

// CanExplicit reports whether a cast expression may convert from to
// to; every implicit conversion is also a legal explicit one, plus
// real->int truncation.
func CanExplicit(from, to Type) bool {
	if CanImplicit(from, to) {
		return true
	}
	if from.Base == Real && to.Base == Int {
		return true
	}
	return false
}

// Display renders a type the way diagnostics quote it; currently
// identical to String, kept distinct so diagnostic wording can diverge
// from debug-dump wording without touching String's callers.
func Display(t Type) string { return t.String() }
