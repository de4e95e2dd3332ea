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

// Package config decodes an optional TOML file into the fixed
// iteration counts and debug toggles the rest of the compiler runs
// with, falling back to compiled-in defaults matching the original
// implementation's hardcoded bounds when no file is present or a
// setting is left unspecified. Grounded on
// _examples/lookbusy1344-arm_emulator/config/config.go, the pack's
// only TOML-decoded configuration struct for this genre of tool - the
// teacher itself is zero-config.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config holds every knob the compiler pipeline consults. Field names
// match the pipeline stage they bound.
type Config struct {
	Passes struct {
		// MacroExpansion is the macro re-expansion round bound
		// (original_source/preprocessor.c's tokenize_program loop).
		MacroExpansion int `toml:"macro_expansion"`
		// AstOptimize is the constant-fold/strength-reduce sweep
		// count internal/astopt.Run repeats.
		AstOptimize int `toml:"ast_optimize"`
		// Peephole is the full peephole-catalog sweep count
		// internal/peephole.Run repeats before jump shortening.
		Peephole int `toml:"peephole"`
	} `toml:"passes"`

	Debug struct {
		// TraceStages logs the wall-clock cost of each pipeline
		// stage to stderr as it runs.
		TraceStages bool `toml:"trace_stages"`
		// DumpIR writes the unoptimized IR (straight out of
		// internal/codegen, before internal/peephole runs) to
		// stderr alongside the final emitted IR, for comparing what
		// the peephole pass actually changed.
		DumpIR bool `toml:"dump_ir"`
	} `toml:"debug"`
}

// Default returns a Config matching spec.md's fixed iteration counts
// (16 macro-expansion rounds, 15 AST-optimizer sweeps, 15 peephole
// sweeps) with every debug toggle off, the configuration the compiler
// runs with when no TOML file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Passes.MacroExpansion = 16
	cfg.Passes.AstOptimize = 15
	cfg.Passes.Peephole = 15
	cfg.Debug.TraceStages = false
	cfg.Debug.DumpIR = false
	return cfg
}

// Load reads path as TOML over top of Default(), so a file that only
// sets one field leaves every other field at its compiled-in default.
// A missing path is not an error - it just means the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: failed to parse %q", path)
	}
	return cfg, nil
}
