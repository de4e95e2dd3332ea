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

import "github.com/gmofishsauce/langc/internal/types"

// builtinSignatures mirrors builtin.c's fixed table: size/resize
// dispatch on ★array (any array or str) rather than a single concrete
// type, and the math builtins are plain real->real (or real,real->real
// for the two binary ones) except abs, which the original keeps as an
// integer builtin distinct from fabs. internal/codegen/builtins.go is
// the other half of this table: this copy only needs enough shape to
// type-check a call; the opcode each one lowers to is codegen's
// concern.
var builtinSignatures = map[string]types.Signature{
	"size":   {Return: types.TInt, Params: []types.Type{types.Basic(types.StarArray)}},
	"resize": {Return: types.TVoid, Params: []types.Type{types.Basic(types.StarArray), types.TInt}},

	"find":  {Return: types.TInt, Params: []types.Type{types.TStr, types.TStr}},
	"findi": {Return: types.TInt, Params: []types.Type{types.Basic(types.StarArray), types.TAny}},

	"cos":  {Return: types.TReal, Params: []types.Type{types.TReal}},
	"sin":  {Return: types.TReal, Params: []types.Type{types.TReal}},
	"tan":  {Return: types.TReal, Params: []types.Type{types.TReal}},
	"acos": {Return: types.TReal, Params: []types.Type{types.TReal}},
	"asin": {Return: types.TReal, Params: []types.Type{types.TReal}},
	"atan": {Return: types.TReal, Params: []types.Type{types.TReal}},
	"ln":   {Return: types.TReal, Params: []types.Type{types.TReal}},

	"log10": {Return: types.TReal, Params: []types.Type{types.TReal}},
	"exp":   {Return: types.TReal, Params: []types.Type{types.TReal}},

	"atan2": {Return: types.TReal, Params: []types.Type{types.TReal, types.TReal}},
	"pow":   {Return: types.TReal, Params: []types.Type{types.TReal, types.TReal}},

	"sqrt":  {Return: types.TReal, Params: []types.Type{types.TReal}},
	"fabs":  {Return: types.TReal, Params: []types.Type{types.TReal}},
	"abs":   {Return: types.TInt, Params: []types.Type{types.TInt}},
	"ceil":  {Return: types.TReal, Params: []types.Type{types.TReal}},
	"floor": {Return: types.TReal, Params: []types.Type{types.TReal}},

	"rad2deg": {Return: types.TReal, Params: []types.Type{types.TReal}},
	"deg2rad": {Return: types.TReal, Params: []types.Type{types.TReal}},
}

// BuiltinSignature looks up a builtin's call signature by name;
// internal/codegen uses the same name to dispatch to the matching
// emit routine once the analyzer has tagged a Call with it.
func BuiltinSignature(name string) (types.Signature, bool) {
	sig, ok := builtinSignatures[name]
	return sig, ok
}
