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

import "fmt"

// Overload is one registered `operator<op>` user function: the
// operator it overloads, its mangled symbol name, and its signature.
// Grounded on original_source/operators.c's op_overload_t and
// register_overload.
type Overload struct {
	Op       Op
	Mangled  string
	Return   Type
	Operands []Type // 1 for unary, 2 for binary
}

// OverloadRegistry is the process-wide, append-only operator-overload
// table.
type OverloadRegistry struct {
	entries []Overload
}

func NewOverloadRegistry() *OverloadRegistry { return &OverloadRegistry{} }

// Mangle produces the canonical symbol name for an operator overload:
// operatorb<alpha>_<lhs>_<rhs> for binary, operatoru<alpha>_<opnd> for
// unary.
func Mangle(op Op, operands []Type) string {
	if len(operands) == 2 {
		return fmt.Sprintf("operatorb%s_%s_%s", op.Alpha(), Display(operands[0]), Display(operands[1]))
	}
	return fmt.Sprintf("operatoru%s_%s", op.Alpha(), Display(operands[0]))
}

// Register installs a new overload. It rejects an overload whose
// return type and every operand type are POD (overloading a
// binary/unary with only POD types on all sides makes no sense, since
// the built-in operator already covers that case) and rejects an
// arity mismatch against the operator's own
// category, with one exception: OP_CAT/OP_BITNOT is ambiguous between
// the binary `~` (string concatenation) and the unary `~` (bitwise
// not) and is disambiguated purely by the overload's own parameter
// count, exactly as original_source/operators.c does.
func (r *OverloadRegistry) Register(op Op, ret Type, operands []Type) (Overload, error) {
	binary := op != OpCat && op.IsBinary()
	unary := op != OpCat && op.IsUnary()
	if op == OpCat {
		binary = len(operands) == 2
		unary = len(operands) == 1
	}
	switch {
	case binary:
		if len(operands) != 2 {
			return Overload{}, fmt.Errorf("invalid operator overload argument count")
		}
	case unary:
		if len(operands) != 1 {
			return Overload{}, fmt.Errorf("invalid operator overload argument count")
		}
	default:
		return Overload{}, fmt.Errorf("invalid operator %s for overload", op)
	}

	if allPOD(ret, operands) {
		return Overload{}, fmt.Errorf("can't overload operator%s with only POD types", op)
	}

	ov := Overload{Op: op, Return: ret, Operands: append([]Type(nil), operands...)}
	ov.Mangled = Mangle(op, operands)
	r.entries = append(r.entries, ov)
	return ov, nil
}

func allPOD(ret Type, operands []Type) bool {
	if !isStructOrAggregate(ret) {
		for _, o := range operands {
			if isStructOrAggregate(o) {
				return false
			}
		}
		return true
	}
	return false
}

func isStructOrAggregate(t Type) bool {
	if t.Kind == KindBasic {
		_, ok := t.Base.IsStruct()
		return ok
	}
	return t.Kind == KindArray
}

// FindBinary looks up a registered binary overload by exact operand
// types; lookup returns the first exact-type match.
func (r *OverloadRegistry) FindBinary(op Op, lhs, rhs Type) (Overload, bool) {
	for _, e := range r.entries {
		if e.Op == op && len(e.Operands) == 2 && e.Operands[0].Equal(lhs) && e.Operands[1].Equal(rhs) {
			return e, true
		}
	}
	return Overload{}, false
}

// FindUnary looks up a registered unary overload by exact operand type.
func (r *OverloadRegistry) FindUnary(op Op, operand Type) (Overload, bool) {
	for _, e := range r.entries {
		if e.Op == op && len(e.Operands) == 1 && e.Operands[0].Equal(operand) {
			return e, true
		}
	}
	return Overload{}, false
}
