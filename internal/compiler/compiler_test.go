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

package compiler

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/langc/internal/config"
)

func writeSource(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.lang")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestCompileValidProgramEmitsMainLabel(t *testing.T) {
	path := writeSource(t, "int main() { return 0; }")
	c := New(nil)
	c.Sink.Exit = func(int) {}

	var out bytes.Buffer
	res, err := c.Compile(path, &out)
	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	assert.Contains(t, out.String(), "main:")
	assert.NotZero(t, res.Total)
	assert.Contains(t, res.Elapsed, StageEmit)
}

func TestCompileStopsAtParseOnSyntaxError(t *testing.T) {
	path := writeSource(t, "int main( { return 0; }")
	c := New(nil)
	c.Sink.Exit = func(int) {}

	var out bytes.Buffer
	res, err := c.Compile(path, &out)
	assert.Error(t, err)
	assert.Equal(t, StageParse, res.Failed)
	assert.Empty(t, out.String(), "no IR should be emitted once a stage fails")
}

func TestCompileStopsAtAnalyzeOnUndefinedSymbol(t *testing.T) {
	path := writeSource(t, "int main() { return undefinedThing; }")
	c := New(nil)
	c.Sink.Exit = func(int) {}

	var out bytes.Buffer
	res, err := c.Compile(path, &out)
	assert.Error(t, err)
	assert.Equal(t, StageAnalyze, res.Failed)
}

func TestCompileAppliesConfiguredPeepholePassCount(t *testing.T) {
	path := writeSource(t, "int main() { int x = 1 + 1; return x; }")

	cfg := config.Default()
	cfg.Passes.Peephole = 1
	c := New(cfg)
	c.Sink.Exit = func(int) {}

	var out bytes.Buffer
	_, err := c.Compile(path, &out)
	require.NoError(t, err)
	assert.NotEmpty(t, out.String())
}

func TestCompileTraceStagesWritesOneLinePerStage(t *testing.T) {
	path := writeSource(t, "int main() { return 0; }")
	cfg := config.Default()
	cfg.Debug.TraceStages = true
	c := New(cfg)
	c.Sink.Exit = func(int) {}

	var trace bytes.Buffer
	c.Trace = &trace

	var out bytes.Buffer
	_, err := c.Compile(path, &out)
	require.NoError(t, err)

	for _, stage := range []Stage{StagePreprocess, StageParse, StageAnalyze, StageOptimize, StageGenerate, StagePeephole, StageEmit} {
		assert.Contains(t, trace.String(), string(stage))
	}
	assert.True(t, strings.Count(trace.String(), "\n") >= 7)
}
