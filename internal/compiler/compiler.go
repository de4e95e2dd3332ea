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

// Package compiler wires the pipeline stages - preprocess, parse,
// analyze, optimize, generate, peephole, emit - into the single
// ordered walk cmd/langc drives. Where the original implementation
// threaded this sequence through main()'s local variables and a set
// of file-scope globals shared by every translation unit, Context
// keeps the same sequence but collects its state (the diagnostic
// sink, the struct table, the configured iteration counts) into one
// value, so a caller - a future language server, a test, a batch
// driver compiling many files - can run more than one compilation
// without the stages stepping on each other's globals.
package compiler

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gmofishsauce/langc/internal/ast"
	"github.com/gmofishsauce/langc/internal/astopt"
	"github.com/gmofishsauce/langc/internal/codegen"
	"github.com/gmofishsauce/langc/internal/config"
	"github.com/gmofishsauce/langc/internal/diag"
	"github.com/gmofishsauce/langc/internal/emit"
	"github.com/gmofishsauce/langc/internal/ir"
	"github.com/gmofishsauce/langc/internal/parser"
	"github.com/gmofishsauce/langc/internal/peephole"
	"github.com/gmofishsauce/langc/internal/preprocess"
	"github.com/gmofishsauce/langc/internal/semant"
	"github.com/gmofishsauce/langc/internal/token"
	"github.com/gmofishsauce/langc/internal/types"
)

// Stage names one point in the pipeline, for Result.Elapsed and for
// Config.Debug.TraceStages logging.
type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageParse      Stage = "parse"
	StageAnalyze    Stage = "analyze"
	StageOptimize   Stage = "optimize"
	StageGenerate   Stage = "generate"
	StagePeephole   Stage = "peephole"
	StageEmit       Stage = "emit"
)

// Result reports what a Compile call produced, for a caller (cmd/langc)
// that wants to print per-stage and total timing.
type Result struct {
	// Failed names the stage that left an error in the sink, stopping
	// the pipeline short; the zero value means every stage ran.
	Failed  Stage
	Elapsed map[Stage]time.Duration
	Total   time.Duration
}

// Context holds everything one compilation needs that isn't purely
// local to a single stage: the diagnostic sink every stage reports
// through, and the struct table the parser populates and codegen
// later consults for field layout. Both outlive any single stage.
type Context struct {
	Cfg     *config.Config
	Sink    *diag.Sink
	Structs *types.StructTable

	// Trace receives one line per stage when Cfg.Debug.TraceStages is
	// set. Defaults to os.Stderr; tests substitute a buffer.
	Trace io.Writer
}

// New builds a Context around cfg, with a fresh sink and struct table.
// Passing nil for cfg selects config.Default().
func New(cfg *config.Config) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Context{
		Cfg:     cfg,
		Sink:    diag.NewSink(),
		Structs: types.NewStructTable(),
		Trace:   os.Stderr,
	}
}

// Compile runs path through every pipeline stage in turn, writing the
// final textual IR to w, and stops at the first stage that leaves an
// error recorded in c.Sink - later stages assume a clean tree from the
// ones before them and are not safe to run over one that failed, the
// same reasoning internal/codegen's doc comment gives for panicking
// instead of re-validating internal/semant's work.
//
// The iteration bounds configured on c.Cfg are pushed onto
// internal/preprocess.MaxExpansionPasses and internal/astopt.Passes
// before running; both packages default to the same fixed counts the
// original implementation hardcoded, so a caller that never touches
// config gets identical behavior to a zero-value *config.Config from
// config.Default().
func (c *Context) Compile(path string, w io.Writer) (res Result, err error) {
	preprocess.MaxExpansionPasses = c.Cfg.Passes.MacroExpansion
	astopt.Passes = c.Cfg.Passes.AstOptimize

	res = Result{Elapsed: make(map[Stage]time.Duration)}
	overallStart := time.Now()
	defer func() { res.Total = time.Since(overallStart) }()

	run := func(stage Stage, f func()) {
		t0 := time.Now()
		f()
		res.Elapsed[stage] = time.Since(t0)
		if c.Cfg.Debug.TraceStages {
			fmt.Fprintf(c.Trace, "langc: %-10s %v\n", stage, res.Elapsed[stage])
		}
	}

	failed := func(stage Stage) (Result, error) {
		res.Failed = stage
		return res, fmt.Errorf("langc: %d error(s) during %s", c.Sink.ErrorCount(), stage)
	}

	pp := preprocess.New(c.Sink)
	var tokens []*token.Token
	run(StagePreprocess, func() {
		toks, err := pp.ProcessFile(path)
		if err != nil {
			c.Sink.Errorf(token.Span{File: path}, err, "preprocessing failed")
			return
		}
		tokens = toks
	})
	if c.Sink.HasErrors() {
		return failed(StagePreprocess)
	}

	var prog *ast.Program
	run(StageParse, func() {
		prog = parser.New(tokens, c.Sink, c.Structs).ParseProgram()
	})
	if c.Sink.HasErrors() {
		return failed(StageParse)
	}

	run(StageAnalyze, func() {
		semant.New(c.Sink, c.Structs).Run(prog)
	})
	if c.Sink.HasErrors() {
		return failed(StageAnalyze)
	}

	run(StageOptimize, func() {
		astopt.Run(prog)
	})

	var list *ir.List
	run(StageGenerate, func() {
		list, _ = codegen.Generate(prog, c.Structs)
	})
	if c.Cfg.Debug.DumpIR {
		fmt.Fprintln(c.Trace, "langc: unoptimized IR:")
		emit.Write(c.Trace, list)
	}

	run(StagePeephole, func() {
		peephole.Run(list, c.Cfg.Passes.Peephole)
	})
	if c.Cfg.Debug.DumpIR {
		fmt.Fprintln(c.Trace, "langc: peephole-optimized IR:")
		emit.Write(c.Trace, list)
	}

	var emitErr error
	run(StageEmit, func() {
		emitErr = emit.Write(w, list)
	})
	if emitErr != nil {
		return res, fmt.Errorf("langc: writing output: %w", emitErr)
	}

	return res, nil
}
