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

import "github.com/gmofishsauce/langc/internal/token"

// MacroDef is one `#define`d macro: its formal parameters (empty for
// an object-like macro), its replacement-list tokens exactly as
// written, and whether the last parameter collects a variadic tail.
type MacroDef struct {
	Name      string
	Params    []string
	Variadic  bool
	Body      []*token.Token
	DefinedAt token.Span
}

func (m *MacroDef) FunctionLike() bool { return m.Params != nil }

// MacroTable is the process-wide macro namespace, one entry per name.
// A second #define of the same name is a redefinition error with a
// note pointing back at the first definition, never a silent replace.
type MacroTable struct {
	byName map[string]*MacroDef
}

func NewMacroTable() *MacroTable {
	return &MacroTable{byName: make(map[string]*MacroDef)}
}

func (t *MacroTable) Lookup(name string) (*MacroDef, bool) {
	d, ok := t.byName[name]
	return d, ok
}

func (t *MacroTable) IsDefined(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Define installs a macro, returning the previous definition (if any)
// so the caller can report a redefinition with both sites.
func (t *MacroTable) Define(def *MacroDef) (prev *MacroDef, redefined bool) {
	prev, redefined = t.byName[def.Name]
	t.byName[def.Name] = def
	return prev, redefined
}

func (t *MacroTable) Undef(name string) {
	delete(t.byName, name)
}
