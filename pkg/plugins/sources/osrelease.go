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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/NVIDIA/flowd/pkg/collector/file"
	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

var osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// OSRelease reads the os-release file. Keys are kept as written (NAME,
// VERSION_ID, ...) unless lowercase is set.
type OSRelease struct {
	plugin.Base
}

// NewOSRelease returns an unconfigured os_release source.
func NewOSRelease(typeName, id string) *OSRelease {
	return &OSRelease{Base: plugin.NewBase(typeName, id)}
}

// DeclareConfig implements plugin.Component.
func (s *OSRelease) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("path", config.Optional(), config.WithDefault(""),
		config.WithSchema(map[string]any{"type": "string"}))
	c.MustAddOption("lowercase", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
}

// Collect implements plugin.Source.
func (s *OSRelease) Collect(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolve()
	if err != nil {
		return nil, err
	}

	// Remove surrounding quotes per the freedesktop.org format
	parser := file.NewParser(file.WithTrimChars(`"'`), file.WithSkipEmptyValues(true))
	params, err := parser.Map(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read os release from %s: %w", path, err)
	}

	lower := s.Config().Bool("lowercase")
	out := make(map[string]any, len(params))
	for k, v := range params {
		if lower {
			k = strings.ToLower(k)
		}
		out[k] = v
	}
	return out, nil
}

// resolve falls back to /usr/lib/os-release when the primary file is missing.
func (s *OSRelease) resolve() (string, error) {
	if p := s.Config().String("path"); p != "" {
		return p, nil
	}
	for _, p := range osReleasePaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("no os-release file found in %v", osReleasePaths)
}
