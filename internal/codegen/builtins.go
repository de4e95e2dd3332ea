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

package codegen

import (
	"fmt"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/types"
)

// mathUnaryOpcodes lists the single-argument math builtins whose
// callback in builtin.c does nothing but evaluate its one argument and
// emit an opcode of the same name - cos, sin, tan, acos, asin, atan,
// ln, log10, exp, sqrt, fabs, rad2deg and deg2rad all take this shape.
var mathUnaryOpcodes = map[string]string{
	"cos": "cos", "sin": "sin", "tan": "tan",
	"acos": "acos", "asin": "asin", "atan": "atan",
	"ln": "ln", "log10": "log10", "exp": "exp",
	"sqrt": "sqrt", "fabs": "fabs",
	"rad2deg": "rad2deg", "deg2rad": "deg2rad",
	// ceil/floor are listed here too, but with the opcode each name
	// actually describes - builtin.c's callback_ceil emits "sqrt" and
	// callback_floor emits "abs", a copy-paste bug in the original that
	// this port does not reproduce.
	"ceil":  "ceil",
	"floor": "floor",
}

// mathBinaryOpcodes lists the two-argument math builtins: atan2 and
// pow, both plain real,real->real.
var mathBinaryOpcodes = map[string]string{
	"atan2": "atan2",
	"pow":   "pow",
}

// generateBuiltinCall mirrors builtin.c's callback_* dispatch,
// reshaped from a name->function-pointer table into a name->closure
// map the same way this package collapses every other construct into
// one Go-native dispatch.
func (e *Emitter) generateBuiltinCall(name string, args []ast.Expr) {
	if op, ok := mathUnaryOpcodes[name]; ok {
		e.generateExpr(args[0])
		e.emitPlain(op)
		return
	}
	if op, ok := mathBinaryOpcodes[name]; ok {
		e.generateExpr(args[0])
		e.generateExpr(args[1])
		e.emitPlain(op)
		return
	}

	switch name {
	case "abs":
		e.generateExpr(args[0])
		e.emitPlain("absi")
	case "size":
		e.generateSize(args[0])
	case "resize":
		e.generateExpr(args[0])
		e.generateExpr(args[1])
		e.emitPlain("resize")
	case "find":
		e.generateFind(args, "find", false)
	case "findi":
		e.generateFind(args, "findi", true)
	default:
		panic(fmt.Sprintf("codegen: unknown builtin %q reached code generation", name))
	}
}

// generateSize mirrors callback_size: size() is registered against
// the ★array pseudo-type, which covers both a real array and a str,
// so the opcode it lowers to depends on the argument's actual type,
// the same dispatch generateForeach already performs for its implicit
// length test.
func (e *Emitter) generateSize(arg ast.Expr) {
	e.generateExpr(arg)
	t := arg.ValueType()
	if t.Kind == types.KindArray {
		e.emitPlain("memsize")
		if elemSize := types.SizeOf(*t.Inner, e.structs); elemSize > 1 {
			e.emit("pushi", "#%d", elemSize)
			e.emitPlain("idiv")
		}
		return
	}
	e.emitPlain("strlen")
}

// generateFind mirrors callback_find: the element argument (args[1])
// is evaluated before the container (args[0]) - the original's literal
// evaluation order, kept even though it only matters when one of the
// two has a visible side effect. internal/semant/builtins.go already
// split the original's single is_indirect_type-dispatching callback
// into two distinct builtin names ("find" for str,str and "findi" for
// ★array,★any) resolved at the call site, so by the time this runs the
// opcode choice is static rather than a runtime type test.
func (e *Emitter) generateFind(args []ast.Expr, opcode string, indirect bool) {
	elem, container := args[1], args[0]
	e.generateExpr(elem)
	e.generateExpr(container)
	if indirect {
		e.emit("pushi", "#%d", types.SizeOf(elem.ValueType(), e.structs))
	}
	e.emitPlain(opcode)
}
