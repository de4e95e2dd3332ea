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

// Package ir is the doubly-linked instruction list the code generator
// builds and the peephole optimizer rewrites in place: one node per
// emitted opcode, carrying the labels that target it, with O(1) splice
// so a peephole window can remove or insert nodes without shifting
// anything else. There is no sentinel node at either end — the list's
// own Head/Tail fields are nil exactly when the list is empty, and an
// interior node's prev/next are nil only at the ends.
package ir

import (
	"fmt"
	"strings"
)

// Instruction is one emitted IR node: zero or more labels attached to
// this exact point in the stream, an opcode, an operand (both kept as
// plain text since the emitter only ever produces opcode/operand
// pairs textually — see internal/emit), and an optional trailing
// comment. Labels migrate to the successor node when an instruction
// carrying them is removed; an opcode is never silently dropped along
// with its labels.
type Instruction struct {
	Labels  []string
	Op      string
	Operand string
	Comment string

	prev, next *Instruction
}

// Prev and Next expose the list links read-only; mutating the list
// shape always goes through a List method so invariants stay true.
func (in *Instruction) Prev() *Instruction { return in.prev }
func (in *Instruction) Next() *Instruction { return in.next }

func (in *Instruction) String() string {
	var b strings.Builder
	for _, l := range in.Labels {
		fmt.Fprintf(&b, "%s:\n", l)
	}
	fmt.Fprintf(&b, "\t%s", in.Op)
	if in.Operand != "" {
		fmt.Fprintf(&b, " %s", in.Operand)
	}
	if in.Comment != "" {
		fmt.Fprintf(&b, "\t; %s", in.Comment)
	}
	return b.String()
}

// New builds a detached instruction, not yet linked into any List.
func New(op, operand string) *Instruction {
	return &Instruction{Op: op, Operand: operand}
}

// List is the doubly-linked stream of instructions for a whole program
// (the code generator builds one List for every function it emits, and
// the peephole optimizer rewrites that List in place).
type List struct {
	head, tail *Instruction
	len        int
}

func NewList() *List { return &List{} }

func (l *List) Head() *Instruction { return l.head }
func (l *List) Tail() *Instruction { return l.tail }
func (l *List) Len() int           { return l.len }
func (l *List) Empty() bool        { return l.head == nil }

// PushBack appends in at the end of the list and returns it, for the
// code generator's emit primitive.
func (l *List) PushBack(in *Instruction) *Instruction {
	in.prev = l.tail
	in.next = nil
	if l.tail != nil {
		l.tail.next = in
	} else {
		l.head = in
	}
	l.tail = in
	l.len++
	return in
}

// InsertAfter splices in immediately after at.
func (l *List) InsertAfter(at, in *Instruction) {
	in.prev = at
	in.next = at.next
	if at.next != nil {
		at.next.prev = in
	} else {
		l.tail = in
	}
	at.next = in
	l.len++
}

// InsertBefore splices in immediately before at.
func (l *List) InsertBefore(at, in *Instruction) {
	in.next = at
	in.prev = at.prev
	if at.prev != nil {
		at.prev.next = in
	} else {
		l.head = in
	}
	at.prev = in
	l.len++
}

// Remove unlinks in from the list. Its labels migrate onto its
// successor, preserving program order (in's labels named this point
// in the stream; once in is gone that point is wherever execution
// falls through to next) — unless in was the tail, in which case
// there is no successor to migrate onto and the labels are dropped;
// spec.md's label-preservation invariant carves out exactly this one
// case ("unless it is the entire trailing sentinel").
func (l *List) Remove(in *Instruction) {
	if in.prev != nil {
		in.prev.next = in.next
	} else {
		l.head = in.next
	}
	if in.next != nil {
		in.next.prev = in.prev
		if len(in.Labels) > 0 {
			in.next.Labels = append(append([]string(nil), in.Labels...), in.next.Labels...)
		}
	}
	if in == l.tail {
		l.tail = in.prev
	}
	in.prev, in.next = nil, nil
	in.Labels = nil
	l.len--
}

// Each visits every instruction front to back, stopping early if fn
// returns false. The visited node may be removed from the list by fn
// without disrupting iteration (the next pointer is captured before
// the callback runs).
func (l *List) Each(fn func(*Instruction) bool) {
	for n := l.head; n != nil; {
		next := n.next
		if !fn(n) {
			return
		}
		n = next
	}
}

// LabelIndex builds the label-name -> instruction map spec.md's jump
// shortening step needs, in one O(n) pass over the current list
// shape.
func (l *List) LabelIndex() map[string]*Instruction {
	idx := make(map[string]*Instruction)
	l.Each(func(in *Instruction) bool {
		for _, lbl := range in.Labels {
			idx[lbl] = in
		}
		return true
	})
	return idx
}

// Validate checks the three list-consistency invariants spec.md
// requires after any peephole pass: every interior node's prev/next
// agree with its neighbors, the head is the only node with a nil
// prev (symmetrically the tail the only one with a nil next), and
// every label resolves to exactly one instruction.
func (l *List) Validate() error {
	seen := make(map[string]*Instruction)
	var prev *Instruction
	n := l.head
	count := 0
	for n != nil {
		if n.prev != prev {
			return fmt.Errorf("ir: node %q has prev %p, expected %p", n.Op, n.prev, prev)
		}
		for _, lbl := range n.Labels {
			if other, ok := seen[lbl]; ok && other != n {
				return fmt.Errorf("ir: label %q attached to more than one instruction", lbl)
			}
			seen[lbl] = n
		}
		prev = n
		n = n.next
		count++
	}
	if prev != l.tail {
		return fmt.Errorf("ir: list tail %p does not match last visited node %p", l.tail, prev)
	}
	if count != l.len {
		return fmt.Errorf("ir: list length %d does not match tracked length %d", count, l.len)
	}
	return nil
}
