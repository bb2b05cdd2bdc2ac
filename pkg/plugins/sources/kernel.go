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
	"strconv"
	"strings"

	"github.com/NVIDIA/flowd/pkg/collector/file"
	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

const (
	procCmdline = "/proc/cmdline"
	procModules = "/proc/modules"
)

// DefaultCmdlineExclude drops boot parameters that identify the host disk.
var DefaultCmdlineExclude = []string{"root"}

// KernelCmdline reads the boot parameters the kernel was started with.
// Flags without a value (quiet, splash) map to an empty string.
type KernelCmdline struct {
	plugin.Base
}

// NewKernelCmdline returns an unconfigured kernel_cmdline source.
func NewKernelCmdline(typeName, id string) *KernelCmdline {
	return &KernelCmdline{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *KernelCmdline) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("path", config.Optional(), config.WithDefault(procCmdline),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("exclude", config.Optional(), config.WithDefault(toAnySlice(DefaultCmdlineExclude)),
		config.WithSchema(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}))
}

// Collect implements plugin.Source.
func (s *KernelCmdline) Collect(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.Config()
	path := cfg.String("path")
	parser := file.NewParser(
		file.WithDelimiter(" "),
		file.WithKVDelimiter("="),
	)
	params, err := parser.Map(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kernel parameters from %s: %w", path, err)
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return journal.FilterOut(out, cfg.StringSlice("exclude")), nil
}

// KernelModules lists the loaded kernel modules. Each module maps to true, or
// to its size, reference count and state when details is set.
type KernelModules struct {
	plugin.Base
}

// NewKernelModules returns an unconfigured kernel_modules source.
func NewKernelModules(typeName, id string) *KernelModules {
	return &KernelModules{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *KernelModules) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("path", config.Optional(), config.WithDefault(procModules),
		config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("details", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
}

// Collect implements plugin.Source.
func (s *KernelModules) Collect(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.Config()
	path := cfg.String("path")
	lines, err := file.NewParser().Lines(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kernel modules from %s: %w", path, err)
	}

	details := cfg.Bool("details")
	out := make(map[string]any, len(lines))
	for _, line := range lines {
		// name size instances dependencies state offset
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !details {
			out[fields[0]] = true
			continue
		}
		out[fields[0]] = moduleDetails(fields)
	}
	return out, nil
}

func moduleDetails(fields []string) map[string]any {
	d := make(map[string]any)
	if len(fields) > 1 {
		if n, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			d["size"] = n
		}
	}
	if len(fields) > 2 {
		if n, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
			d["instances"] = n
		}
	}
	if len(fields) > 3 && fields[3] != "-" {
		d["used_by"] = toAnySlice(strings.Split(strings.TrimSuffix(fields[3], ","), ","))
	}
	if len(fields) > 4 {
		d["state"] = fields[4]
	}
	return d
}
