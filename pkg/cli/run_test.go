// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/flowd/pkg/pipeline"
	"github.com/NVIDIA/flowd/pkg/store"
)

const archivePipeline = `
name: node
sources:
  - type: env
    config:
      include: ["FLOWD_CLI_TEST_*"]
  - type: command
    id: greeting
    config:
      command: echo hello
sinks:
  - type: archive
    id: out
    config:
      output: %s
`

func TestRunCommand(t *testing.T) {
	t.Setenv("FLOWD_CLI_TEST_VALUE", "42")
	output := filepath.Join(t.TempDir(), "journal.json")
	path := writeDefinition(t, strings.Replace(archivePipeline, "%s", output, 1))

	stdout, _, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `pipeline "node" run`)
	assert.Contains(t, stdout, "succeeded")

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var j map[string]any
	require.NoError(t, json.Unmarshal(data, &j))
	assert.Equal(t, map[string]any{"FLOWD_CLI_TEST_VALUE": "42"}, j["env"])
	assert.Equal(t, map[string]any{"output": "hello"}, j["greeting"])
}

func TestRunCommandFormat(t *testing.T) {
	path := writeDefinition(t, `
sources:
  - type: command
    id: greeting
    config:
      command: echo hello
`)

	stdout, _, err := execute(t, "run", "--format", "json", path)
	require.NoError(t, err)

	var res pipeline.RunResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.True(t, res.Succeeded)
	assert.Equal(t, pipeline.DefaultName, res.Pipeline)
	assert.Equal(t, "hello", res.Journal["greeting"].(map[string]any)["output"])
}

func TestRunCommandFailure(t *testing.T) {
	path := writeDefinition(t, `
name: broken
sources:
  - type: command
    id: fails
    config:
      command: echo nope >&2; exit 3
`)

	stdout, _, err := execute(t, "run", path)
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, stdout, "failed")
	assert.Contains(t, stdout, "command exited with code 3: nope")
}

func TestRunCommandBuildFailure(t *testing.T) {
	path := writeDefinition(t, `
sources:
  - type: nosuchsource
    id: a
  - type: command
    id: b
sinks:
  - type: archive
    id: c
    config:
      output: out.json
      bogus: true
`)

	_, stderr, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(&strings.Builder{}, err))
	assert.Contains(t, stderr, "pipeline build failed with 3 error(s)")
	assert.Contains(t, stderr, `source "a" (type nosuchsource)`)
	assert.Contains(t, stderr, `source "b" (type command)`)
	assert.Contains(t, stderr, `sink "c" (type archive)`)
}

func TestRunCommandDryRun(t *testing.T) {
	output := filepath.Join(t.TempDir(), "journal.json")
	path := writeDefinition(t, strings.Replace(archivePipeline, "%s", output, 1))

	stdout, _, err := execute(t, "run", "--dry-run", path)
	require.NoError(t, err)
	assert.Equal(t, "pipeline \"node\" is valid: 2 source(s), 0 aggregator(s), 1 sink(s)\n", stdout)
	assert.NoFileExists(t, output)
}

func TestRunCommandJournalStores(t *testing.T) {
	dir := t.TempDir()
	journalDir := filepath.Join(dir, "runs")
	journalDB := filepath.Join(dir, "runs.db")
	path := writeDefinition(t, `
name: stored
sources:
  - type: timestamp
`)

	_, _, err := execute(t, "run", "--journal-dir", journalDir, "--journal-db", journalDB, path)
	require.NoError(t, err)

	fs, err := store.NewFileStore(journalDir)
	require.NoError(t, err)
	files, err := fs.List()
	require.NoError(t, err)
	assert.Len(t, files, 1)

	db, err := store.OpenSQLite(t.Context(), journalDB)
	require.NoError(t, err)
	defer db.Close()
	n, err := db.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunCommandArguments(t *testing.T) {
	path := writeDefinition(t, "sources:\n  - type: timestamp\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing definition", args: []string{"run"}, wantErr: "expected exactly one pipeline definition"},
		{name: "too many definitions", args: []string{"run", path, path}, wantErr: "got 2 argument(s)"},
		{name: "bad isolation", args: []string{"run", "--isolation", "vm", path}, wantErr: `invalid isolation "vm"`},
		{name: "negative timeout", args: []string{"run", "--timeout=-1s", path}, wantErr: "timeout must not be negative"},
		{name: "bad format", args: []string{"run", "--format", "xml", path}, wantErr: `unsupported format "xml"`},
		{name: "missing file", args: []string{"run", filepath.Join(t.TempDir(), "nope.yaml")}, wantErr: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseBuildOptionsTimeout(t *testing.T) {
	unbounded := time.Duration(0)
	short := 2 * time.Second

	tests := []struct {
		name string
		args []string
		want *time.Duration
	}{
		{name: "unset keeps pipeline defaults", args: nil, want: nil},
		{name: "zero is unbounded", args: []string{"--timeout", "0s"}, want: &unbounded},
		{name: "explicit", args: []string{"--timeout", "2s"}, want: &short},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *buildOptions
			cmd := &cli.Command{
				Name:  "run",
				Flags: buildFlags(),
				Action: func(_ context.Context, c *cli.Command) error {
					var err error
					got, err = parseBuildOptions(c)
					return err
				},
			}
			args := append(append([]string{"run"}, tt.args...), "pipeline.yaml")
			require.NoError(t, cmd.Run(t.Context(), args))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.timeout)
		})
	}
}

func TestJournalStoresSave(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFileStore(dir)
	require.NoError(t, err)

	res := &pipeline.RunResult{RunID: "run-1", Pipeline: "p", Components: map[string]*pipeline.ComponentResult{}}
	stores := journalStores{fs, fs}
	require.NoError(t, stores.Save(t.Context(), res))

	files, err := fs.List()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
