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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesFixedIterationCounts(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 16, cfg.Passes.MacroExpansion)
	assert.Equal(t, 15, cfg.Passes.AstOptimize)
	assert.Equal(t, 15, cfg.Passes.Peephole)
	assert.False(t, cfg.Debug.TraceStages)
	assert.False(t, cfg.Debug.DumpIR)
}

func TestLoadWithMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langc.toml")
	const body = `
[passes]
peephole = 20

[debug]
trace_stages = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Passes.MacroExpansion)
	assert.Equal(t, 15, cfg.Passes.AstOptimize)
	assert.Equal(t, 20, cfg.Passes.Peephole)
	assert.True(t, cfg.Debug.TraceStages)
	assert.False(t, cfg.Debug.DumpIR)
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langc.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not [ valid toml"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
