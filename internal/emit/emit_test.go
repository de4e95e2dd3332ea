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

package emit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/langc/internal/ir"
)

func TestWriteEmitsLabelOnItsOwnLine(t *testing.T) {
	l := ir.NewList()
	main := ir.New("pushi", "#0")
	main.Labels = []string{"main"}
	l.PushBack(main)
	l.PushBack(ir.New("ret", ""))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, l))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "main:", lines[0])
	assert.Equal(t, "\tpushi #0", lines[1])
	assert.Equal(t, "\tret", lines[2])
}

func TestWriteEmitsTrailingComment(t *testing.T) {
	l := ir.NewList()
	in := ir.New("jf", ".L0")
	in.Comment = "true"
	l.PushBack(in)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, l))
	assert.Equal(t, "\tjf .L0\t; true\n", buf.String())
}

func TestWriteEmitsStringTableEntries(t *testing.T) {
	l := ir.NewList()
	l.PushBack(ir.New(".string", `0, "hello"`))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, l))
	assert.Equal(t, "\t.string 0, \"hello\"\n", buf.String())
}
