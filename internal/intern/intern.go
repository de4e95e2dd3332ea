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

// Package intern deduplicates string literals and assigns each a
// stable integer ID. An ID is stable for the rest of compilation once
// assigned (§5: the interner is a process-wide append-only table). No
// other package imports it: internal/codegen keeps its own
// string-literal table for pushs operands and the .string entries.
package intern

// Pool owns the interned strings. It is append-only for the lifetime
// of one compilation.
type Pool struct {
	ids     map[string]int
	strings []string
}

func NewPool() *Pool {
	return &Pool{ids: make(map[string]int)}
}

// Intern returns the stable ID for s, assigning a new one the first
// time s is seen.
func (p *Pool) Intern(s string) int {
	if id, ok := p.ids[s]; ok {
		return id
	}
	id := len(p.strings)
	p.strings = append(p.strings, s)
	p.ids[s] = id
	return id
}

// String returns the interned text for id. Panics on an out-of-range
// id: that can only happen from a code generator bug, never from user
// input, so it's an assertion rather than a reported diagnostic.
func (p *Pool) String(id int) string {
	return p.strings[id]
}

// Len reports how many distinct strings have been interned so far.
func (p *Pool) Len() int { return len(p.strings) }

// All returns the interned strings in assignment order (ID order),
// the order the emitter writes the .string table in.
func (p *Pool) All() []string {
	out := make([]string, len(p.strings))
	copy(out, p.strings)
	return out
}
