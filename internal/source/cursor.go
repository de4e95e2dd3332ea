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

// Package source adapts the original PushbackByteReader
// (yapl-0/pbr.go) into a position-tracking cursor: the lexer needs
// filename/line/column/line-start bookkeeping to build token Spans,
// which the original one-byte-pushback reader never needed for its
// register-width assembly language.
package source

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Cursor reads bytes one at a time, supports up to two bytes of
// pushback (the lexer's number state unreads a '.' after peekIsDot has
// already unread the byte that follows it) and tracks enough position
// state to stamp a Span on every token.
type Cursor struct {
	br   io.ByteReader
	closer io.Closer
	pb   []byte // pushed-back bytes, most recent last

	File      string
	Line      int
	Col       int
	LineStart int // byte offset of the start of the current line
	Offset    int // byte offset of the next byte to be read
}

func NewFile(path string) (*Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Cursor{br: bufio.NewReader(f), closer: f, File: path, Line: 1, Col: 1}, nil
}

func NewString(name, body string) *Cursor {
	return &Cursor{br: strings.NewReader(body), File: name, Line: 1, Col: 1}
}

func (c *Cursor) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// ReadByte returns the next byte, advancing line/column bookkeeping.
// A newline bumps Line and resets Col/LineStart for the byte that
// follows it.
func (c *Cursor) ReadByte() (byte, error) {
	var b byte
	var err error
	if n := len(c.pb); n > 0 {
		b, c.pb = c.pb[n-1], c.pb[:n-1]
	} else {
		b, err = c.br.ReadByte()
		if err != nil {
			return 0, err
		}
	}
	c.Offset++
	if b == '\n' {
		c.Line++
		c.Col = 1
		c.LineStart = c.Offset
	} else {
		c.Col++
	}
	return b, nil
}

// UnreadByte pushes one byte back; reads return pushed-back bytes most
// recent first. It also rewinds the position bookkeeping so a
// subsequent ReadByte sees the same line/column it reported before the
// unread byte was consumed. Panics (an internal-assertion condition,
// never user-triggerable) if a third byte is pushed back before reads
// drain the first two.
func (c *Cursor) UnreadByte(b byte) {
	if len(c.pb) >= 2 {
		panic("source.Cursor: too many pushbacks")
	}
	c.pb = append(c.pb, b)
	c.Offset--
	if b == '\n' {
		c.Line--
		c.Col = 1 // column tracking across a pushed-back newline is approximate
	} else {
		c.Col--
	}
}
