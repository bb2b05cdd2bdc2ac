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
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/NVIDIA/flowd/pkg/collector/file"
	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

const procSys = "/proc/sys"

// DefaultSysctlExclude skips the network tree and removable media noise.
var DefaultSysctlExclude = []string{"net", "dev.cdrom"}

// Sysctl walks /proc/sys and nests each parameter under its path:
// /proc/sys/kernel/pid_max becomes kernel.pid_max. Files holding one
// "key value" pair per line become an object of those pairs.
type Sysctl struct {
	plugin.Base
}

// NewSysctl returns an unconfigured sysctl source.
func NewSysctl(typeName, id string) *Sysctl {
	return &Sysctl{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *Sysctl) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("root", config.Optional(), config.WithDefault(procSys),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("include", config.Optional(), config.WithDefault([]any{}),
		config.WithSchema(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}))
	c.MustAddOption("exclude", config.Optional(), config.WithDefault(toAnySlice(DefaultSysctlExclude)),
		config.WithSchema(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}))
}

// Collect implements plugin.Source.
func (s *Sysctl) Collect(ctx context.Context) (map[string]any, error) {
	cfg := s.Config()
	root := filepath.Clean(cfg.String("root"))
	include := cfg.StringSlice("include")
	exclude := cfg.StringSlice("exclude")

	parser := file.NewParser()
	out := make(map[string]any)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// unreadable subtrees are skipped like unreadable files
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// Skip symlinks to stay inside root
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")

		if d.IsDir() {
			if slices.Contains(exclude, strings.Join(segments, ".")) {
				return fs.SkipDir
			}
			return nil
		}

		lines, err := parser.Lines(path)
		if err != nil {
			// write-only and restricted entries are expected
			return nil
		}
		setNested(out, segments, sysctlValue(lines))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect sysctl parameters: %w", err)
	}

	return journal.Select(out, include, exclude), nil
}

// sysctlValue returns the content of a parameter file, splitting multi-line
// "key value" files into an object.
func sysctlValue(lines []string) any {
	if len(lines) > 1 {
		pairs := make(map[string]any, len(lines))
		for _, line := range lines {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return strings.Join(lines, "\n")
			}
			pairs[fields[0]] = strings.Join(fields[1:], " ")
		}
		return pairs
	}
	return strings.Join(lines, "\n")
}

// setNested stores v under the path segments, creating objects on the way.
// A segment already holding a scalar is left untouched.
func setNested(m map[string]any, segments []string, v any) {
	for _, seg := range segments[:len(segments)-1] {
		child, ok := m[seg].(map[string]any)
		if !ok {
			if _, exists := m[seg]; exists {
				return
			}
			child = make(map[string]any)
			m[seg] = child
		}
		m = child
	}
	m[segments[len(segments)-1]] = v
}
