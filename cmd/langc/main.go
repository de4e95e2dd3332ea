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

// langc compiles one source file to its textual stack-machine IR.
// Grounded on asm/asm.go's flag.Bool-plus-single-positional-arg shape
// and its usage/fatal helpers.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gmofishsauce/langc/internal/compiler"
	"github.com/gmofishsauce/langc/internal/config"
)

var (
	outFlag   = flag.String("o", "", "output file (default: stdout)")
	cfgFlag   = flag.String("c", "", "TOML config file (default: built-in pass counts)")
	traceFlag = flag.Bool("t", false, "trace per-stage timing to stderr")
	dumpFlag  = flag.Bool("d", false, "dump unoptimized and peephole-optimized IR to stderr")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		usage()
	}
	src := args[0]

	cfg, err := config.Load(*cfgFlag)
	if err != nil {
		fatal(fmt.Sprintf("%s: %s", src, err))
	}
	if *traceFlag {
		cfg.Debug.TraceStages = true
	}
	if *dumpFlag {
		cfg.Debug.DumpIR = true
	}

	out := os.Stdout
	if *outFlag != "" {
		f, err := os.Create(*outFlag)
		if err != nil {
			fatal(fmt.Sprintf("create %s: %s", *outFlag, err))
		}
		defer f.Close()
		out = f
	}

	c := compiler.New(cfg)
	res, err := c.Compile(src, out)
	if err != nil {
		fatal(fmt.Sprintf("%s: %s", src, err))
	}
	pr(fmt.Sprintf("%s: compiled in %s", src, res.Total))
}

func usage() {
	pr("Usage: langc [options] source-file\nOptions:")
	flag.PrintDefaults()
	os.Exit(1)
}

func fatal(s string) {
	pr(s)
	os.Exit(2)
}

func pr(s string) {
	fmt.Fprintf(os.Stderr, "%s\n", s)
}
