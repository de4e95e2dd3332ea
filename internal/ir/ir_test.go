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

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildList(ops ...string) (*List, []*Instruction) {
	l := NewList()
	var nodes []*Instruction
	for _, op := range ops {
		nodes = append(nodes, l.PushBack(New(op, "")))
	}
	return l, nodes
}

func TestPushBackLinksHeadAndTail(t *testing.T) {
	l, nodes := buildList("pushi", "add", "ret")
	assert.Equal(t, nodes[0], l.Head())
	assert.Equal(t, nodes[2], l.Tail())
	assert.Equal(t, 3, l.Len())
	require.NoError(t, l.Validate())
}

func TestRemoveMiddleNodeRelinks(t *testing.T) {
	l, nodes := buildList("pushi", "nop", "ret")
	l.Remove(nodes[1])
	assert.Equal(t, nodes[0], l.Head())
	assert.Equal(t, nodes[2], l.Tail())
	assert.Equal(t, nodes[2], nodes[0].Next())
	assert.Equal(t, nodes[0], nodes[2].Prev())
	assert.Equal(t, 2, l.Len())
	require.NoError(t, l.Validate())
}

func TestRemoveMigratesLabelsToSuccessor(t *testing.T) {
	l, nodes := buildList("pushi", "nop", "ret")
	nodes[1].Labels = []string{"L0"}
	l.Remove(nodes[1])
	assert.Equal(t, []string{"L0"}, nodes[2].Labels)
	require.NoError(t, l.Validate())
}

func TestRemoveTailDropsItsLabels(t *testing.T) {
	l, nodes := buildList("pushi", "ret")
	nodes[1].Labels = []string{"Lend"}
	l.Remove(nodes[1])
	assert.Equal(t, nodes[0], l.Tail())
	assert.Nil(t, nodes[0].Next())
	require.NoError(t, l.Validate())
}

func TestRemoveHeadUpdatesListHead(t *testing.T) {
	l, nodes := buildList("pushi", "ret")
	l.Remove(nodes[0])
	assert.Equal(t, nodes[1], l.Head())
	assert.Nil(t, nodes[1].Prev())
	require.NoError(t, l.Validate())
}

func TestInsertAfterSplicesBetweenNeighbors(t *testing.T) {
	l, nodes := buildList("pushi", "ret")
	mid := New("dup", "")
	l.InsertAfter(nodes[0], mid)
	assert.Equal(t, mid, nodes[0].Next())
	assert.Equal(t, nodes[1], mid.Next())
	assert.Equal(t, mid, nodes[1].Prev())
	assert.Equal(t, 3, l.Len())
	require.NoError(t, l.Validate())
}

func TestInsertAfterTailUpdatesListTail(t *testing.T) {
	l, nodes := buildList("pushi")
	tail := New("ret", "")
	l.InsertAfter(nodes[0], tail)
	assert.Equal(t, tail, l.Tail())
	require.NoError(t, l.Validate())
}

func TestInsertBeforeHeadUpdatesListHead(t *testing.T) {
	l, nodes := buildList("ret")
	head := New("pushi", "#1")
	l.InsertBefore(nodes[0], head)
	assert.Equal(t, head, l.Head())
	require.NoError(t, l.Validate())
}

func TestEachVisitsInProgramOrder(t *testing.T) {
	l, _ := buildList("pushi", "add", "ret")
	var ops []string
	l.Each(func(in *Instruction) bool {
		ops = append(ops, in.Op)
		return true
	})
	assert.Equal(t, []string{"pushi", "add", "ret"}, ops)
}

func TestEachStopsEarlyOnFalse(t *testing.T) {
	l, _ := buildList("pushi", "add", "ret")
	var ops []string
	l.Each(func(in *Instruction) bool {
		ops = append(ops, in.Op)
		return in.Op != "add"
	})
	assert.Equal(t, []string{"pushi", "add"}, ops)
}

func TestEachToleratesRemovalOfVisitedNode(t *testing.T) {
	l, _ := buildList("pushi", "nop", "nop", "ret")
	l.Each(func(in *Instruction) bool {
		if in.Op == "nop" {
			l.Remove(in)
		}
		return true
	})
	assert.Equal(t, 2, l.Len())
	require.NoError(t, l.Validate())
}

func TestLabelIndexFindsEveryLabel(t *testing.T) {
	l, nodes := buildList("pushi", "jmp", "ret")
	nodes[0].Labels = []string{"Lstart"}
	nodes[2].Labels = []string{"Lend"}
	idx := l.LabelIndex()
	assert.Equal(t, nodes[0], idx["Lstart"])
	assert.Equal(t, nodes[2], idx["Lend"])
	assert.Len(t, idx, 2)
}

func TestValidateRejectsDuplicateLabel(t *testing.T) {
	l, nodes := buildList("pushi", "ret")
	nodes[0].Labels = []string{"Ldup"}
	nodes[1].Labels = []string{"Ldup"}
	err := l.Validate()
	require.Error(t, err)
}

func TestInstructionStringFormatsLabelsOperandAndComment(t *testing.T) {
	in := New("pushi", "#7")
	in.Labels = []string{"L0"}
	in.Comment = "answer"
	s := in.String()
	assert.Contains(t, s, "L0:")
	assert.Contains(t, s, "pushi")
	assert.Contains(t, s, "#7")
	assert.Contains(t, s, "answer")
}
