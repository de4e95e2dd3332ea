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

// Package diag formats and counts compiler diagnostics: errors,
// warnings and notes, each carrying a source span. Modeled on
// asm/parser.go's report() but generalized to spans, notes and nested
// error blocks.
package diag

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/gmofishsauce/langc/internal/token"
)

// Severity distinguishes fatal errors (which end compilation once the
// outermost error block closes) from warnings (which never do).
type Severity struct{ s int }

var (
	SevError   = Severity{0}
	SevWarning = Severity{1}
	SevNote    = Severity{2}
)

// Diagnostic is one reported item.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     token.Span
	Cause    error // non-nil when wrapping an underlying OS/IO error
}

// Sink collects diagnostics for one compilation. It is not safe for
// concurrent use; one compilation runs strictly single-threaded.
type Sink struct {
	items      []Diagnostic
	errorCount int
	blockDepth int
	source     func(file string, line int) string // optional source-line provider, for caret underlines

	// Exit is called instead of os.Exit when the outermost error block
	// closes with an error recorded. NewSink sets it to os.Exit; tests
	// substitute a panic-free stub. A nil Exit means no exit at all.
	Exit func(code int)
}

func NewSink() *Sink {
	return &Sink{Exit: os.Exit}
}

// SetSourceProvider installs a callback used to fetch the offending
// source line for the caret underline. Optional; without it, Format
// omits the source line and caret.
func (s *Sink) SetSourceProvider(f func(file string, line int) string) {
	s.source = f
}

// Begin opens an "error block": several diagnostics (e.g. a macro
// redefinition plus a note at the prior site) may be emitted inside
// one block before the process decides whether to exit. The process
// only exits once the outermost block closes with an error recorded.
func (s *Sink) Begin() { s.blockDepth++ }

// End closes an error block. If this was the outermost block and any
// error was recorded anywhere in the sink, the process exits non-zero.
func (s *Sink) End() {
	s.blockDepth--
	if s.blockDepth == 0 && s.errorCount > 0 {
		s.dumpAndExit()
	}
}

func (s *Sink) Error(span token.Span, format string, args ...any) {
	s.emit(SevError, span, nil, format, args...)
}

func (s *Sink) Errorf(span token.Span, cause error, format string, args ...any) {
	s.emit(SevError, span, cause, format, args...)
}

func (s *Sink) Warning(span token.Span, format string, args ...any) {
	s.emit(SevWarning, span, nil, format, args...)
}

func (s *Sink) Note(span token.Span, format string, args ...any) {
	s.emit(SevNote, span, nil, format, args...)
}

func (s *Sink) emit(sev Severity, span token.Span, cause error, format string, args ...any) {
	d := Diagnostic{Severity: sev, Message: fmt.Sprintf(format, args...), Span: span, Cause: cause}
	s.items = append(s.items, d)
	if sev == SevError {
		s.errorCount++
	}
	fmt.Fprint(os.Stderr, s.Format(d))
}

// ErrorCount reports how many errors (not warnings/notes) have been
// recorded across the lifetime of the sink.
func (s *Sink) ErrorCount() int { return s.errorCount }

func (s *Sink) HasErrors() bool { return s.errorCount > 0 }

// Wrap attaches span context to an arbitrary lower-level error (e.g. a
// failed os.Open for an #include target) using github.com/pkg/errors so
// the original cause is preserved and can be recovered with
// errors.Cause if a caller needs it.
func Wrap(span token.Span, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "%s: %s", span, msg)
}

// Format renders one diagnostic as filename:line:col: message, the
// offending source line (if a provider was installed) and a caret
// underline spanning the token.
func (s *Sink) Format(d Diagnostic) string {
	var b strings.Builder
	kind := "error"
	switch d.Severity {
	case SevWarning:
		kind = "warning"
	case SevNote:
		kind = "note"
	}
	fmt.Fprintf(&b, "%s: %s: %s\n", d.Span, kind, d.Message)
	if d.Cause != nil {
		fmt.Fprintf(&b, "  caused by: %s\n", d.Cause)
	}
	if s.source != nil {
		line := s.source(d.Span.File, d.Span.Line)
		if line != "" {
			b.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				b.WriteByte('\n')
			}
			col := d.Span.Col
			if col < 1 {
				col = 1
			}
			b.WriteString(strings.Repeat(" ", col-1))
			n := d.Span.Length
			if n < 1 {
				n = 1
			}
			b.WriteString(strings.Repeat("^", n))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (s *Sink) dumpAndExit() {
	if s.Exit != nil {
		s.Exit(1)
	}
}
