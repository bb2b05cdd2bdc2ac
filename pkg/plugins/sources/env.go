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
	"os"
	"strings"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// DefaultEnvExclude drops variables that usually carry credentials.
var DefaultEnvExclude = []string{"*TOKEN*", "*SECRET*", "*PASSWORD*", "*CREDENTIAL*", "*_KEY"}

// Env reports process environment variables.
type Env struct {
	plugin.Base
	environ func() []string
}

// NewEnv returns an unconfigured env source.
func NewEnv(typeName, id string) *Env {
	return &Env{Base: plugin.NewBase(typeName, id), environ: os.Environ}
}

// DeclareConfig implements plugin.Component.
func (s *Env) DeclareConfig(c *config.Configurator) {
	c.MustAddOption("include", config.Optional(), config.WithDefault([]any{}),
		config.WithSchema(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}))
	c.MustAddOption("exclude", config.Optional(), config.WithDefault(toAnySlice(DefaultEnvExclude)),
		config.WithSchema(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}))
	c.MustAddOption("lowercase", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
}

// Collect implements plugin.Source. Include and exclude match variable names
// before lowercasing.
func (s *Env) Collect(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vars := make(map[string]any)
	for _, kv := range s.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}

	cfg := s.Config()
	selected := journal.Select(vars, cfg.StringSlice("include"), cfg.StringSlice("exclude"))
	if !cfg.Bool("lowercase") {
		return selected, nil
	}

	out := make(map[string]any, len(selected))
	for k, v := range selected {
		out[strings.ToLower(k)] = v
	}
	return out, nil
}
