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

package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"

	"github.com/NVIDIA/flowd/pkg/collector/file"
	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/defaults"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// Parse modes of the command source.
const (
	ParseText  = "text"
	ParseLines = "lines"
	ParseJSON  = "json"
	ParseKV    = "kv"
)

const maxStderr = 512

// Command runs a shell command and turns its standard output into data.
type Command struct {
	plugin.Base
}

// NewCommand returns an unconfigured command source.
func NewCommand(typeName, id string) *Command {
	return &Command{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *Command) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("command", config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("shell", config.Optional(), config.WithDefault("/bin/sh"),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("parse", config.Optional(), config.WithDefault(ParseText),
		config.WithSchema(map[string]any{"type": "string", "enum": []any{ParseText, ParseLines, ParseJSON, ParseKV}}))
	c.MustAddOption("env", config.Optional(), config.WithDefault(map[string]any{}),
		config.WithSchema(map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		}))
	c.MustAddOption("dir", config.Optional(), config.WithDefault(""),
		config.WithSchema(map[string]any{"type": "string"}))
	c.MustAddOption("timeout", config.Optional(), config.WithDefault(defaults.CommandSourceTimeout.String()),
		config.WithSchema(map[string]any{"type": []any{"string", "number"}}))
}

// Collect implements plugin.Source.
func (s *Command) Collect(ctx context.Context) (map[string]any, error) {
	cfg := s.Config()
	if d := cfg.Duration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.String("shell"), "-c", cfg.String("command"))
	cmd.Dir = cfg.String("dir")
	cmd.Env = commandEnv(cfg.Map("env"))
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = defaults.WorkerKillGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("command interrupted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("command exited with code %d: %s",
				exitErr.ExitCode(), truncate(strings.TrimSpace(stderr.String()), maxStderr))
		}
		return nil, fmt.Errorf("failed to run command: %w", err)
	}

	return parseOutput(cfg.String("parse"), stdout.Bytes())
}

func parseOutput(mode string, out []byte) (map[string]any, error) {
	switch mode {
	case ParseJSON:
		var v any
		if err := json.Unmarshal(out, &v); err != nil {
			return nil, fmt.Errorf("command output is not valid JSON: %w", err)
		}
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
		return map[string]any{ValueKey: v}, nil
	case ParseLines:
		lines := file.NewParser(file.WithCommentPrefix("")).ParseLines(out)
		items := make([]any, len(lines))
		for i, l := range lines {
			items[i] = l
		}
		return map[string]any{"lines": items}, nil
	case ParseKV:
		kv := file.NewParser(file.WithTrimChars(`"'`)).ParseMap(out)
		m := make(map[string]any, len(kv))
		for k, v := range kv {
			m[k] = v
		}
		return m, nil
	default:
		return map[string]any{"output": strings.TrimRight(string(out), "\n")}, nil
	}
}

// commandEnv extends the process environment with extra, in key order.
func commandEnv(extra map[string]any) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%v", k, extra[k]))
	}
	return env
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
