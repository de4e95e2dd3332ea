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

// Field is one named, typed, offset member of a struct.
type Field struct {
	Name   string
	Type   Type
	Size   int
	Offset int
}

// Struct is a record type: name, ordered fields, total size, and an
// Incomplete flag for forward declarations. A forward declaration
// installs an incomplete entry that is later filled in place; the
// struct's id stays stable across that completion.
type Struct struct {
	ID         int
	Name       string
	Fields     []Field
	Size       int
	Incomplete bool
}

// FieldByName finds a field or reports ok=false.
func (s *Struct) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// StructTable is the process-wide, append-only struct table. A struct
// reference elsewhere (Type.Base with id >= UserOffset) is an integer
// id into this table, never a direct pointer, which keeps the
// Type <-> Struct <-> AST graph acyclic.
type StructTable struct {
	byName map[string]int
	structs []*Struct
}

func NewStructTable() *StructTable {
	return &StructTable{byName: make(map[string]int)}
}

// Forward installs (or returns the existing) incomplete entry for
// name, for a `struct Foo;` forward declaration or a first-seen field
// reference.
func (t *StructTable) Forward(name string) *Struct {
	if id, ok := t.byName[name]; ok {
		return t.structs[id]
	}
	id := len(t.structs)
	s := &Struct{ID: id, Name: name, Incomplete: true}
	t.structs = append(t.structs, s)
	t.byName[name] = id
	return s
}

// Complete fills in a previously forward-declared struct's fields and
// size in place, preserving its id.
func (t *StructTable) Complete(name string, fields []Field) (*Struct, error) {
	s := t.Forward(name)
	if !s.Incomplete {
		return nil, fmt.Errorf("struct %s redefined", name)
	}
	offset := 0
	for i := range fields {
		fields[i].Offset = offset
		offset += fields[i].Size
	}
	s.Fields = fields
	s.Size = offset
	s.Incomplete = false
	return s, nil
}

func (t *StructTable) Get(id int) *Struct { return t.structs[id] }

func (t *StructTable) Lookup(name string) (*Struct, bool) {
	id, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.structs[id], true
}

func (t *StructTable) Len() int { return len(t.structs) }
