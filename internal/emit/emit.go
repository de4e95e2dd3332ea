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

// Package emit writes a finished internal/ir.List out as the
// line-oriented textual IR the rest of the toolchain hands off to:
// one or more label lines, each on its own line, immediately
// preceding the instruction they attach to, which in turn carries its
// opcode, operand and an optional trailing comment. The string
// literal table rides along inside the same list as ".string"
// pseudo-instructions (internal/codegen/stmt.go's generateProgram
// appends them after every function body), so this package has
// nothing special to do for it beyond writing it out like any other
// instruction.
package emit

import (
	"bufio"
	"io"

	"github.com/gmofishsauce/langc/internal/ir"
)

// Write serializes list to w, one instruction per line (with any
// labels it carries on their own lines immediately before it), and
// flushes before returning. Mirrors the teacher's habit of wrapping
// every multi-line textual dump in a single bufio.Writer rather than
// issuing one Fprintf per field (sim/io.go's buffered record writer,
// itf.go's os.Create-then-stream-to-it idiom).
func Write(w io.Writer, list *ir.List) error {
	bw := bufio.NewWriter(w)
	var werr error
	list.Each(func(in *ir.Instruction) bool {
		if _, err := io.WriteString(bw, in.String()); err != nil {
			werr = err
			return false
		}
		if _, err := io.WriteString(bw, "\n"); err != nil {
			werr = err
			return false
		}
		return true
	})
	if werr != nil {
		return werr
	}
	return bw.Flush()
}
